package websocket

import (
	"context"
	"strings"

	"github.com/AzielCF/az-relay/pkg/notify"
	"github.com/sirupsen/logrus"
)

// Notifier forwards core notifications to every connected dashboard.
type Notifier struct{}

func (Notifier) Notify(_ context.Context, n notify.Notification) {
	msg := BroadcastMessage{
		Code:     strings.ToUpper(strings.ReplaceAll(n.Type, ".", "_")),
		Message:  n.Type,
		Instance: n.Instance,
		Result:   n.Data,
	}
	select {
	case Broadcast <- msg:
	default:
		logrus.Warnf("[WS] Broadcast queue full, dropping %s for %s", n.Type, n.Instance)
	}
}
