package storage

import (
	"context"
	"sync"
)

// MemoryAdapter is a process-local [Adapter] for tests and examples.
// Nothing survives a restart; it exists so the engine can run without a
// backing store.
type MemoryAdapter struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryAdapter creates an empty in-memory adapter.
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		values: make(map[string]string),
	}
}

// Get returns the value stored under key, or [ErrKeyNotFound].
func (a *MemoryAdapter) Get(_ context.Context, key string) (string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	value, ok := a.values[key]
	if !ok {
		return "", ErrKeyNotFound
	}
	return value, nil
}

// Set stores value under key.
func (a *MemoryAdapter) Set(_ context.Context, key, value string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.values[key] = value
	return nil
}

// Remove deletes key. Removing an absent key is not an error.
func (a *MemoryAdapter) Remove(_ context.Context, key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.values, key)
	return nil
}

// Len reports the number of stored keys. Test helper.
func (a *MemoryAdapter) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.values)
}
