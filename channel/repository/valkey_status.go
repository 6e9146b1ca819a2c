package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/AzielCF/az-relay/channel/domain/instance"
	"github.com/AzielCF/az-relay/infrastructure/valkey"
)

// ValkeyStatusStore shares instance statuses between relay processes.
type ValkeyStatusStore struct {
	client *valkey.Client
	prefix string
	ttl    time.Duration
}

// NewValkeyStatusStore stores entries for ttl so abandoned instance names
// eventually disappear. A zero ttl keeps them until deleted.
func NewValkeyStatusStore(client *valkey.Client, ttl time.Duration) *ValkeyStatusStore {
	return &ValkeyStatusStore{
		client: client,
		prefix: client.Key("status") + ":",
		ttl:    ttl,
	}
}

func (s *ValkeyStatusStore) Get(ctx context.Context, name string) (*instance.Instance, error) {
	cmd := s.client.Inner().B().Get().Key(s.prefix + name).Build()
	data, err := s.client.Inner().Do(ctx, cmd).AsBytes()
	if err != nil {
		if valkey.IsNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get instance status: %w", err)
	}

	var inst instance.Instance
	if err := json.Unmarshal(data, &inst); err != nil {
		return nil, fmt.Errorf("failed to unmarshal instance status: %w", err)
	}
	return &inst, nil
}

func (s *ValkeyStatusStore) Save(ctx context.Context, inst instance.Instance) error {
	data, err := json.Marshal(inst)
	if err != nil {
		return fmt.Errorf("failed to marshal instance status: %w", err)
	}

	b := s.client.Inner().B().Set().Key(s.prefix + inst.Name).Value(string(data))
	var cmdErr error
	if s.ttl > 0 {
		cmdErr = s.client.Inner().Do(ctx, b.Ex(s.ttl).Build()).Error()
	} else {
		cmdErr = s.client.Inner().Do(ctx, b.Build()).Error()
	}
	if cmdErr != nil {
		return fmt.Errorf("failed to save instance status: %w", cmdErr)
	}
	return nil
}

func (s *ValkeyStatusStore) Delete(ctx context.Context, name string) error {
	cmd := s.client.Inner().B().Del().Key(s.prefix + name).Build()
	if err := s.client.Inner().Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to delete instance status: %w", err)
	}
	return nil
}

func (s *ValkeyStatusStore) List(ctx context.Context) ([]instance.Instance, error) {
	var out []instance.Instance
	var cursor uint64

	for {
		scanCmd := s.client.Inner().B().Scan().Cursor(cursor).Match(s.prefix + "*").Count(100).Build()
		result, err := s.client.Inner().Do(ctx, scanCmd).AsScanEntry()
		if err != nil {
			return nil, fmt.Errorf("failed to scan instance status keys: %w", err)
		}

		if len(result.Elements) > 0 {
			mgetCmd := s.client.Inner().B().Mget().Key(result.Elements...).Build()
			values, err := s.client.Inner().Do(ctx, mgetCmd).AsStrSlice()
			if err != nil {
				return nil, fmt.Errorf("failed to mget instance statuses: %w", err)
			}
			for _, val := range values {
				if val == "" {
					continue
				}
				var inst instance.Instance
				if err := json.Unmarshal([]byte(val), &inst); err == nil {
					out = append(out, inst)
				}
			}
		}

		cursor = result.Cursor
		if cursor == 0 {
			break
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
