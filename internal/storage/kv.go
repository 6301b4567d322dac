// Package storage persists the task list and the timer session log to a
// local key-value store.
package storage

import (
	"context"
	"errors"
	"sync"
)

// ErrUnavailable is returned by a KV that has been disabled.
var ErrUnavailable = errors.New("storage unavailable")

// KV is the local key-value capability the gateway writes through.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// MemoryKV is an in-process KV. It backs ephemeral sessions and tests.
type MemoryKV struct {
	mu       sync.RWMutex
	data     map[string]string
	disabled bool
}

// NewMemoryKV returns an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]string)}
}

// SetDisabled makes every operation fail with ErrUnavailable, the way a
// browser store behaves when storage is turned off or over quota.
func (m *MemoryKV) SetDisabled(disabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disabled = disabled
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.disabled {
		return "", false, ErrUnavailable
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disabled {
		return ErrUnavailable
	}
	m.data[key] = value
	return nil
}

func (m *MemoryKV) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disabled {
		return ErrUnavailable
	}
	delete(m.data, key)
	return nil
}
