package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/AzielCF/az-relay/channel/domain/instance"
	"github.com/AzielCF/az-relay/channel/domain/pairing"
	pkgError "github.com/AzielCF/az-relay/pkg/error"
	"github.com/AzielCF/az-relay/validations"
	"github.com/sirupsen/logrus"
)

// PairingSource is the read-only part of the gateway the resolvers use.
type PairingSource interface {
	FetchQRCode(ctx context.Context, name string) (pairing.Credential, bool, error)
	FetchInstance(ctx context.Context, name string) (pairing.Credential, bool, error)
}

// GatewayResolvers returns the dedicated QR endpoint first and the instance
// listing second.
func GatewayResolvers(src PairingSource) pairing.Chain {
	return pairing.FirstSuccess(
		pairing.ResolverFunc{Label: "qrcode", Fn: src.FetchQRCode},
		pairing.ResolverFunc{Label: "fetch-instances", Fn: src.FetchInstance},
	)
}

// connector is satisfied by LifecycleService.
type connector interface {
	Connect(ctx context.Context, name, number string) (*instance.ProvisionResult, error)
}

type PairingService struct {
	store     pairing.Store
	resolvers pairing.Resolver
	connector connector
	ttl       time.Duration
	now       func() time.Time
}

func NewPairingService(store pairing.Store, resolvers pairing.Resolver, lifecycle connector, ttl time.Duration) *PairingService {
	if ttl <= 0 {
		ttl = 45 * time.Second
	}
	return &PairingService{
		store:     store,
		resolvers: resolvers,
		connector: lifecycle,
		ttl:       ttl,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

var _ pairing.IPairingUsecase = (*PairingService)(nil)

// GetPairingCredential returns a fresh cached artifact when there is one and
// forceRefresh is false. Otherwise it asks the resolvers in order, then
// falls back to a connect call, caching whatever it finds.
func (s *PairingService) GetPairingCredential(ctx context.Context, name string, forceRefresh bool) (pairing.Credential, error) {
	if err := validations.ValidateInstanceName(name); err != nil {
		return pairing.Credential{}, err
	}

	if !forceRefresh {
		cached, err := s.store.Get(ctx, name)
		if err != nil {
			logrus.Warnf("[PAIRING] Cache read failed for %s: %v", name, err)
		}
		if cached != nil && cached.Fresh(s.now()) {
			cred := *cached
			cred.Source = "cache"
			return cred, nil
		}
	}

	var resolveErr error
	if s.resolvers != nil {
		cred, found, err := s.resolvers.Resolve(ctx, name)
		if found {
			cred.Instance = name
			cred = cred.Stamp(s.now(), s.ttl)
			if err := s.store.Save(ctx, cred, s.ttl); err != nil {
				logrus.Warnf("[PAIRING] Failed to cache credential for %s: %v", name, err)
			}
			return cred, nil
		}
		resolveErr = err
		if err != nil {
			logrus.Debugf("[PAIRING] Resolvers found nothing for %s: %v", name, err)
		}
	}

	res, err := s.connector.Connect(ctx, name, "")
	if err != nil {
		return pairing.Credential{}, err
	}
	if res == nil || res.Pairing == nil {
		if resolveErr != nil {
			return pairing.Credential{}, pkgError.NotFoundError(fmt.Sprintf("%s for %s: %v", pairing.ErrNoCredential, name, resolveErr))
		}
		return pairing.Credential{}, pkgError.NotFoundError(fmt.Sprintf("%s for %s", pairing.ErrNoCredential, name))
	}

	// connect may have fallen through to create, which does not cache
	cred := *res.Pairing
	cred.Instance = name
	if cred.ExpiresAt.IsZero() {
		cred = cred.Stamp(s.now(), s.ttl)
	}
	cred.Source = "connect"
	if ttl := cred.ExpiresAt.Sub(s.now()); ttl > 0 {
		if err := s.store.Save(ctx, cred, ttl); err != nil {
			logrus.Warnf("[PAIRING] Failed to cache credential for %s: %v", name, err)
		}
	}
	return cred, nil
}
