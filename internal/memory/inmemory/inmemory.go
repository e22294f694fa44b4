package inmemory

import (
	"context"
	"sync"
)

// InMemory implements memory.Backend using a map.
type InMemory struct {
	mu      sync.RWMutex
	records map[string][]string
}

// New creates a new InMemory backend.
func New() *InMemory {
	return &InMemory{
		records: make(map[string][]string),
	}
}

// Load returns a copy of the stored history.
func (m *InMemory) Load(_ context.Context, conversationID string) ([]string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	history, ok := m.records[conversationID]
	if !ok {
		return nil, false, nil
	}

	result := make([]string, len(history))
	copy(result, history)
	return result, true, nil
}

// Save replaces the stored history with a copy of history.
func (m *InMemory) Save(_ context.Context, conversationID string, history []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record := make([]string, len(history))
	copy(record, history)
	m.records[conversationID] = record
	return nil
}

func (m *InMemory) Close(context.Context) error { return nil }
