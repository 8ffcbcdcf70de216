package identity

import (
	"context"
	"maps"
	"sync"
)

// Memory is a Store held in process memory.
type Memory struct {
	mu      sync.Mutex
	entries map[string]Identity
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]Identity)}
}

func (m *Memory) Read(_ context.Context, name string) (Identity, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.entries[name]
	return id, ok, nil
}

func (m *Memory) Write(_ context.Context, name string, id Identity) error {
	if err := validate(name, id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[name] = id
	return nil
}

func (m *Memory) Remove(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, name)
	return nil
}

func (m *Memory) List(_ context.Context) (map[string]Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.entries), nil
}
