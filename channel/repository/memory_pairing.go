package repository

import (
	"context"
	"time"

	"github.com/AzielCF/az-relay/channel/domain/pairing"
	gocache "github.com/patrickmn/go-cache"
)

const pairingJanitorInterval = time.Minute

// MemoryPairingStore is a process-local TTL cache of pairing credentials.
type MemoryPairingStore struct {
	cache *gocache.Cache
	now   func() time.Time
}

func NewMemoryPairingStore() *MemoryPairingStore {
	return &MemoryPairingStore{
		cache: gocache.New(gocache.NoExpiration, pairingJanitorInterval),
		now:   time.Now,
	}
}

func (s *MemoryPairingStore) Get(_ context.Context, name string) (*pairing.Credential, error) {
	v, ok := s.cache.Get(name)
	if !ok {
		return nil, nil
	}
	cred, ok := v.(pairing.Credential)
	if !ok || !cred.Fresh(s.now()) {
		s.cache.Delete(name)
		return nil, nil
	}
	return &cred, nil
}

func (s *MemoryPairingStore) Save(_ context.Context, cred pairing.Credential, ttl time.Duration) error {
	s.cache.Set(cred.Instance, cred, ttl)
	return nil
}

func (s *MemoryPairingStore) Delete(_ context.Context, name string) error {
	s.cache.Delete(name)
	return nil
}
