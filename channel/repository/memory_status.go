package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/AzielCF/az-relay/channel/domain/instance"
)

// MemoryStatusStore keeps instance statuses in process memory. It is lost on
// restart, which is fine: statuses are re-derived from the gateway.
type MemoryStatusStore struct {
	mu      sync.RWMutex
	entries map[string]instance.Instance
}

func NewMemoryStatusStore() *MemoryStatusStore {
	return &MemoryStatusStore{entries: make(map[string]instance.Instance)}
}

func (s *MemoryStatusStore) Get(_ context.Context, name string) (*instance.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inst, ok := s.entries[name]
	if !ok {
		return nil, nil
	}
	return &inst, nil
}

func (s *MemoryStatusStore) Save(_ context.Context, inst instance.Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[inst.Name] = inst
	return nil
}

func (s *MemoryStatusStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, name)
	return nil
}

func (s *MemoryStatusStore) List(_ context.Context) ([]instance.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]instance.Instance, 0, len(s.entries))
	for _, inst := range s.entries {
		out = append(out, inst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
