package rest

import (
	"context"
	"sync"
	"time"

	"github.com/AzielCF/az-relay/channel/domain/event"
	"github.com/AzielCF/az-relay/channel/domain/instance"
	"github.com/AzielCF/az-relay/channel/domain/pairing"
	pkgError "github.com/AzielCF/az-relay/pkg/error"
)

type fakeLifecycle struct {
	mu        sync.Mutex
	created   []string
	settings  instance.Settings
	connected []string
	numbers   []string
	presence  instance.Presence
	sent      []string
	err       error
}

func (f *fakeLifecycle) Create(_ context.Context, name string, settings instance.Settings) (*instance.ProvisionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, name)
	f.settings = settings
	return &instance.ProvisionResult{Name: name, Status: instance.StatusCreated}, nil
}

func (f *fakeLifecycle) Connect(_ context.Context, name, number string) (*instance.ProvisionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.connected = append(f.connected, name)
	f.numbers = append(f.numbers, number)
	return &instance.ProvisionResult{Name: name, Status: instance.StatusQRReady}, nil
}

func (f *fakeLifecycle) Disconnect(context.Context, string) error { return f.err }
func (f *fakeLifecycle) Delete(context.Context, string) error     { return f.err }
func (f *fakeLifecycle) Restart(context.Context, string) error    { return f.err }

func (f *fakeLifecycle) State(_ context.Context, name string) (instance.Instance, error) {
	if f.err != nil {
		return instance.Instance{}, f.err
	}
	return instance.Instance{Name: name, Status: instance.StatusConnected, LastUpdate: time.Now()}, nil
}

func (f *fakeLifecycle) Status(_ context.Context, name string) (instance.Instance, error) {
	return instance.Instance{Name: name, Status: instance.StatusUnknown}, f.err
}

func (f *fakeLifecycle) List(context.Context) ([]instance.Instance, error) {
	return []instance.Instance{
		{Name: "acme", Status: instance.StatusConnected, LastUpdate: time.Now().Add(-time.Minute)},
		{Name: "beta", Status: instance.StatusQRReady},
	}, f.err
}

func (f *fakeLifecycle) SetPresence(_ context.Context, _ string, presence instance.Presence) error {
	f.presence = presence
	return f.err
}

func (f *fakeLifecycle) Send(_ context.Context, _ string, recipient, text string) (*instance.SentMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, recipient+"|"+text)
	return &instance.SentMessage{ID: "MSG-1", RemoteJID: recipient + "@s.whatsapp.net"}, nil
}

type fakePairings struct {
	forced bool
	cred   *pairing.Credential
}

func (f *fakePairings) GetPairingCredential(_ context.Context, name string, forceRefresh bool) (pairing.Credential, error) {
	f.forced = forceRefresh
	if f.cred == nil {
		return pairing.Credential{}, pkgError.NotFoundError(pairing.ErrNoCredential.Error())
	}
	return *f.cred, nil
}

type fakeDispatcher struct {
	mu   sync.Mutex
	seen []event.Envelope
	done chan struct{}
}

func (f *fakeDispatcher) Dispatch(_ context.Context, env event.Envelope) event.DispatchResult {
	f.mu.Lock()
	f.seen = append(f.seen, env)
	f.mu.Unlock()
	if f.done != nil {
		f.done <- struct{}{}
	}
	return event.DispatchResult{Event: env.Event, Instance: env.Instance, Handled: true}
}

func (f *fakeDispatcher) envelopes() []event.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]event.Envelope(nil), f.seen...)
}
