// Package storage provides the key/blob stores that cache serialized
// dictionaries.
package storage

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrStorage wraps every backend failure.
	ErrStorage = errors.New("storage error")
	// ErrNotFound is returned by Get for a missing key.
	ErrNotFound = errors.New("blob not found")
)

// BlobStore is a key to bytes store. Keys are slash separated paths.
type BlobStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	EnsureNamespace(ctx context.Context, prefix string) error
}

// MemoryStore keeps blobs in process memory. It is safe for concurrent use.
type MemoryStore struct {
	mu         sync.RWMutex
	blobs      map[string][]byte
	namespaces map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		blobs:      make(map[string][]byte),
		namespaces: make(map[string]struct{}),
	}
}

func (m *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.blobs[key]
	return ok, nil
}

func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (m *MemoryStore) Put(ctx context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryStore) EnsureNamespace(ctx context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.namespaces[prefix] = struct{}{}
	return nil
}

// Keys returns the number of stored blobs.
func (m *MemoryStore) Keys() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}
