package store

import (
	"fmt"
	"sync"
)

// Memory keeps values in a map. It is the default backend.
type Memory struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string][]byte)}
}

func (m *Memory) Get(key string, dst any) error {
	m.mu.RLock()
	data, ok := m.values[key]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return decode(key, data, dst)
}

func (m *Memory) Put(key string, v any) error {
	data, err := encode(key, v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = data
	return nil
}

func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// Keys returns the number of stored keys.
func (m *Memory) Keys() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}

func (m *Memory) Close() error {
	return nil
}
