package notify

import (
	"context"
	"time"
)

const (
	TypeInstanceStatus  = "instance.status"
	TypeInstancePairing = "instance.pairing"
	TypeMessageIngested = "message.ingested"
)

// Notification is an output of the core that dashboards and other services consume.
type Notification struct {
	Type     string    `json:"type"`
	Instance string    `json:"instance"`
	Time     time.Time `json:"time"`
	Data     any       `json:"data,omitempty"`
}

// Notifier delivers notifications best-effort. Implementations log their own
// failures; a lost notification never changes core state.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

type Nop struct{}

func (Nop) Notify(context.Context, Notification) {}

// Multi fans a notification out to every notifier in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) {
	if n.Time.IsZero() {
		n.Time = time.Now().UTC()
	}
	for _, target := range m {
		if target != nil {
			target.Notify(ctx, n)
		}
	}
}
