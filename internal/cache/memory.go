package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Memory is a process-local snapshot store for dev and tests. It keeps the
// serialized form so Load/Save round-trip exactly like the durable backends.
type Memory struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

// NewMemory creates an empty in-memory snapshot store.
func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

// Load reads a collection snapshot; a missing entry leaves dest empty.
func (m *Memory) Load(_ context.Context, collection string, dest any) error {
	m.mu.Lock()
	raw, ok := m.blobs[collection]
	m.mu.Unlock()
	if !ok {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("cache decode %s: %w", collection, err)
	}
	return nil
}

// Save replaces a collection snapshot.
func (m *Memory) Save(_ context.Context, collection string, items any) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", collection, err)
	}
	m.mu.Lock()
	m.blobs[collection] = raw
	m.mu.Unlock()
	return nil
}

// Clear removes a collection snapshot.
func (m *Memory) Clear(_ context.Context, collection string) error {
	m.mu.Lock()
	delete(m.blobs, collection)
	m.mu.Unlock()
	return nil
}
