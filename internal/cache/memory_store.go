package cache

import (
	"context"
	"sync"
)

// MemoryStore keeps entries in a map for the lifetime of the process
type MemoryStore struct {
	entries map[string]Entry
	mutex   sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]Entry),
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) (Entry, bool, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	entry, exists := m.entries[key]
	return entry, exists, nil
}

func (m *MemoryStore) Set(_ context.Context, entry Entry) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.entries[entry.Path] = entry
	return nil
}

// Len returns the number of stored entries, stale ones included
func (m *MemoryStore) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return len(m.entries)
}
