package broker

import (
	"context"
	"time"

	"github.com/AzielCF/az-relay/pkg/notify"
	"github.com/sirupsen/logrus"
)

const routingPrefix = "relay."

// Notifier publishes core notifications to the broker. Routing keys are
// "relay.<type>", e.g. "relay.instance.status".
type Notifier struct {
	pub     Publisher
	timeout time.Duration
}

func NewNotifier(pub Publisher) *Notifier {
	return &Notifier{pub: pub, timeout: 5 * time.Second}
}

func (n *Notifier) Notify(ctx context.Context, note notify.Notification) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()

	err := n.pub.Publish(ctx, routingPrefix+note.Type, Envelope{
		Meta: Meta{Type: note.Type, Instance: note.Instance, Time: note.Time},
		Data: note.Data,
	})
	if err != nil {
		logrus.Warnf("[BROKER] Failed to publish %s for %s: %v", note.Type, note.Instance, err)
	}
}
