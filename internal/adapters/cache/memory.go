package cache

import (
	"context"
	"sync"
)

// MemoryKV is an in-process KV. Values are copied on the way in and out.
type MemoryKV struct {
	values sync.Map
}

// NewMemoryKV creates an empty in-memory store.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{}
}

// Get returns a copy of the value stored under key.
func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	value, ok := m.values.Load(key)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value.([]byte)...), true, nil
}

// Set stores a copy of value under key.
func (m *MemoryKV) Set(_ context.Context, key string, value []byte) error {
	m.values.Store(key, append([]byte(nil), value...))
	return nil
}

// Delete removes keys; absent keys are ignored.
func (m *MemoryKV) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		m.values.Delete(key)
	}
	return nil
}

// Len counts the stored keys.
func (m *MemoryKV) Len() int {
	n := 0
	m.values.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}

func (m *MemoryKV) Close() error { return nil }
