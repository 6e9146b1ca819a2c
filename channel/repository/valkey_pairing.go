package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AzielCF/az-relay/channel/domain/pairing"
	"github.com/AzielCF/az-relay/infrastructure/valkey"
)

// ValkeyPairingStore keeps pairing credentials in Valkey with a native TTL so
// every relay process sees the QR pushed to any of them.
type ValkeyPairingStore struct {
	client *valkey.Client
	prefix string
	now    func() time.Time
}

func NewValkeyPairingStore(client *valkey.Client) *ValkeyPairingStore {
	return &ValkeyPairingStore{
		client: client,
		prefix: client.Key("pairing") + ":",
		now:    time.Now,
	}
}

func (s *ValkeyPairingStore) Get(ctx context.Context, name string) (*pairing.Credential, error) {
	cmd := s.client.Inner().B().Get().Key(s.prefix + name).Build()
	data, err := s.client.Inner().Do(ctx, cmd).AsBytes()
	if err != nil {
		if valkey.IsNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get pairing credential: %w", err)
	}

	var cred pairing.Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pairing credential: %w", err)
	}
	if !cred.Fresh(s.now()) {
		return nil, nil
	}
	return &cred, nil
}

func (s *ValkeyPairingStore) Save(ctx context.Context, cred pairing.Credential, ttl time.Duration) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to marshal pairing credential: %w", err)
	}
	if ttl < time.Second {
		ttl = time.Second
	}

	cmd := s.client.Inner().B().Set().
		Key(s.prefix + cred.Instance).
		Value(string(data)).
		Ex(ttl).
		Build()
	if err := s.client.Inner().Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to save pairing credential: %w", err)
	}
	return nil
}

func (s *ValkeyPairingStore) Delete(ctx context.Context, name string) error {
	cmd := s.client.Inner().B().Del().Key(s.prefix + name).Build()
	if err := s.client.Inner().Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to delete pairing credential: %w", err)
	}
	return nil
}
