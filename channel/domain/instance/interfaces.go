package instance

import (
	"context"

	"github.com/AzielCF/az-relay/channel/domain/pairing"
)

// ProvisionResult is what create and connect return once the gateway answered.
type ProvisionResult struct {
	Name       string              `json:"name"`
	InstanceID string              `json:"instance_id,omitempty"`
	Status     Status              `json:"status"`
	State      string              `json:"state,omitempty"`
	Token      string              `json:"token,omitempty"`
	Pairing    *pairing.Credential `json:"pairing,omitempty"`
}

// Provider is the gateway surface the lifecycle manager drives.
type Provider interface {
	CreateInstance(ctx context.Context, name string, settings Settings) (*ProvisionResult, error)
	ConnectInstance(ctx context.Context, name, number string) (*ProvisionResult, error)
	DeleteInstance(ctx context.Context, name string) error
	LogoutInstance(ctx context.Context, name string) error
	RestartInstance(ctx context.Context, name string) error
	ConnectionState(ctx context.Context, name string) (string, error)
	SetPresence(ctx context.Context, name string, presence Presence) error
	SendText(ctx context.Context, name, recipient, text string) (*SentMessage, error)
}

// StatusStore caches the last known Instance per name.
// Get returns (nil, nil) when nothing is cached.
type StatusStore interface {
	Get(ctx context.Context, name string) (*Instance, error)
	Save(ctx context.Context, inst Instance) error
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]Instance, error)
}

type ILifecycleUsecase interface {
	Create(ctx context.Context, name string, settings Settings) (*ProvisionResult, error)
	Connect(ctx context.Context, name, number string) (*ProvisionResult, error)
	Disconnect(ctx context.Context, name string) error
	Delete(ctx context.Context, name string) error
	Restart(ctx context.Context, name string) error
	State(ctx context.Context, name string) (Instance, error)
	Status(ctx context.Context, name string) (Instance, error)
	List(ctx context.Context) ([]Instance, error)
	SetPresence(ctx context.Context, name string, presence Presence) error
	Send(ctx context.Context, name, recipient, text string) (*SentMessage, error)
}
