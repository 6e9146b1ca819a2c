package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/AzielCF/az-relay/channel/domain/instance"
	"github.com/AzielCF/az-relay/channel/domain/pairing"
	pkgError "github.com/AzielCF/az-relay/pkg/error"
	"github.com/AzielCF/az-relay/pkg/notify"
	"github.com/AzielCF/az-relay/validations"
	"github.com/sirupsen/logrus"
)

type LifecycleOptions struct {
	// DefaultSettings are used when connect has to provision the instance itself.
	DefaultSettings instance.Settings
	PairingTTL      time.Duration
	Notifier        notify.Notifier
}

// LifecycleService drives create/connect/disconnect/delete on the gateway
// and keeps the status and pairing caches in step with what it observes.
type LifecycleService struct {
	provider instance.Provider
	statuses instance.StatusStore
	pairings pairing.Store
	notifier notify.Notifier
	defaults instance.Settings
	ttl      time.Duration
	now      func() time.Time
}

func NewLifecycleService(provider instance.Provider, statuses instance.StatusStore, pairings pairing.Store, opts LifecycleOptions) *LifecycleService {
	if opts.PairingTTL <= 0 {
		opts.PairingTTL = 45 * time.Second
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop{}
	}
	return &LifecycleService{
		provider: provider,
		statuses: statuses,
		pairings: pairings,
		notifier: opts.Notifier,
		defaults: opts.DefaultSettings,
		ttl:      opts.PairingTTL,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

var _ instance.ILifecycleUsecase = (*LifecycleService)(nil)

func (s *LifecycleService) Create(ctx context.Context, name string, settings instance.Settings) (*instance.ProvisionResult, error) {
	if err := validations.ValidateInstanceName(name); err != nil {
		return nil, err
	}
	return s.create(ctx, name, settings, true)
}

func (s *LifecycleService) Connect(ctx context.Context, name, number string) (*instance.ProvisionResult, error) {
	if err := validations.ValidateInstanceName(name); err != nil {
		return nil, err
	}
	return s.connect(ctx, name, number, true)
}

// create and connect fall through to each other at most once, so a gateway
// that answers "conflict" to create and "not found" to connect cannot loop.
func (s *LifecycleService) create(ctx context.Context, name string, settings instance.Settings, fallback bool) (*instance.ProvisionResult, error) {
	res, err := s.provider.CreateInstance(ctx, name, settings)
	if err != nil {
		var conflict pkgError.InstanceConflictError
		if fallback && errors.As(err, &conflict) {
			logrus.Infof("[LIFECYCLE] Instance %s already exists, connecting instead", name)
			return s.connect(ctx, name, settings.Number, false)
		}
		return nil, err
	}

	if res.Pairing != nil {
		cred := res.Pairing.Stamp(s.now(), s.ttl)
		cred.Instance = name
		res.Pairing = &cred
	}
	res.Status = instance.StatusCreated
	s.saveStatus(ctx, name, instance.StatusCreated)
	logrus.Infof("[LIFECYCLE] Instance %s created", name)
	return res, nil
}

func (s *LifecycleService) connect(ctx context.Context, name, number string, fallback bool) (*instance.ProvisionResult, error) {
	res, err := s.provider.ConnectInstance(ctx, name, number)
	if err != nil {
		var notFound pkgError.InstanceNotFoundError
		if fallback && errors.As(err, &notFound) {
			logrus.Infof("[LIFECYCLE] Instance %s unknown to the gateway, provisioning it", name)
			settings := s.defaults
			if number != "" {
				settings.Number = number
			}
			return s.create(ctx, name, settings, false)
		}
		return nil, err
	}

	if res.Pairing != nil {
		cred := res.Pairing.Stamp(s.now(), s.ttl)
		cred.Instance = name
		if cred.Source == "" {
			cred.Source = "connect"
		}
		res.Pairing = &cred
		res.Status = instance.StatusQRReady
		s.savePairing(ctx, cred)
		s.saveStatus(ctx, name, instance.StatusQRReady)
		return res, nil
	}

	if res.Status == "" {
		res.Status = instance.ParseState(res.State)
	}
	if res.Status == instance.StatusConnected {
		s.dropPairing(ctx, name)
	}
	s.saveStatus(ctx, name, res.Status)
	return res, nil
}

// Disconnect logs the session out. Cached state is dropped even when the
// gateway call fails; the error is still returned.
func (s *LifecycleService) Disconnect(ctx context.Context, name string) error {
	err := s.provider.LogoutInstance(ctx, name)
	s.purge(ctx, name)
	if err == nil {
		s.notifyStatus(ctx, name, instance.StatusDisconnected)
	}
	return err
}

func (s *LifecycleService) Delete(ctx context.Context, name string) error {
	err := s.provider.DeleteInstance(ctx, name)
	s.purge(ctx, name)
	return err
}

func (s *LifecycleService) Restart(ctx context.Context, name string) error {
	if err := s.provider.RestartInstance(ctx, name); err != nil {
		return err
	}
	s.saveStatus(ctx, name, instance.StatusConnecting)
	return nil
}

// State asks the gateway and refreshes the cache with the answer.
func (s *LifecycleService) State(ctx context.Context, name string) (instance.Instance, error) {
	raw, err := s.provider.ConnectionState(ctx, name)
	if err != nil {
		return instance.Instance{}, err
	}
	status := instance.ParseState(raw)
	if status == instance.StatusConnected {
		s.dropPairing(ctx, name)
	}
	return s.saveStatus(ctx, name, status), nil
}

// Status answers from the cache and only goes remote on a miss.
func (s *LifecycleService) Status(ctx context.Context, name string) (instance.Instance, error) {
	cached, err := s.statuses.Get(ctx, name)
	if err != nil {
		logrus.Warnf("[LIFECYCLE] Status cache read failed for %s: %v", name, err)
	}
	if cached != nil {
		return *cached, nil
	}
	return s.State(ctx, name)
}

func (s *LifecycleService) List(ctx context.Context) ([]instance.Instance, error) {
	return s.statuses.List(ctx)
}

func (s *LifecycleService) SetPresence(ctx context.Context, name string, presence instance.Presence) error {
	if !presence.Valid() {
		return pkgError.InvalidPresenceError(presence)
	}
	return s.provider.SetPresence(ctx, name, presence)
}

func (s *LifecycleService) Send(ctx context.Context, name, recipient, text string) (*instance.SentMessage, error) {
	if recipient == "" || text == "" {
		return nil, pkgError.ValidationError("recipient and text are required")
	}
	return s.provider.SendText(ctx, name, recipient, text)
}

func (s *LifecycleService) saveStatus(ctx context.Context, name string, status instance.Status) instance.Instance {
	inst := instance.Instance{Name: name, Status: status, LastUpdate: s.now()}
	if err := s.statuses.Save(ctx, inst); err != nil {
		logrus.Warnf("[LIFECYCLE] Failed to cache status %s for %s: %v", status, name, err)
	}
	s.notifyStatus(ctx, name, status)
	return inst
}

func (s *LifecycleService) notifyStatus(ctx context.Context, name string, status instance.Status) {
	s.notifier.Notify(ctx, notify.Notification{
		Type:     notify.TypeInstanceStatus,
		Instance: name,
		Time:     s.now(),
		Data:     map[string]any{"status": status},
	})
}

func (s *LifecycleService) savePairing(ctx context.Context, cred pairing.Credential) {
	if err := s.pairings.Save(ctx, cred, s.ttl); err != nil {
		logrus.Warnf("[LIFECYCLE] Failed to cache pairing for %s: %v", cred.Instance, err)
	}
	s.notifier.Notify(ctx, notify.Notification{
		Type:     notify.TypeInstancePairing,
		Instance: cred.Instance,
		Time:     s.now(),
		Data:     cred,
	})
}

func (s *LifecycleService) dropPairing(ctx context.Context, name string) {
	if err := s.pairings.Delete(ctx, name); err != nil {
		logrus.Warnf("[LIFECYCLE] Failed to drop pairing for %s: %v", name, err)
	}
}

func (s *LifecycleService) purge(ctx context.Context, name string) {
	s.dropPairing(ctx, name)
	if err := s.statuses.Delete(ctx, name); err != nil {
		logrus.Warnf("[LIFECYCLE] Failed to drop status for %s: %v", name, err)
	}
}
