// Package memory is an in-process cache backend, used when no Redis is
// configured and in tests.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/vncsmyrnk/pollcore/internal/cache"
)

var _ cache.Backend = (*Backend)(nil)

type Backend struct {
	mu          sync.RWMutex
	entries     map[string][]byte
	generations map[string]uint64
}

func New() *Backend {
	return &Backend{
		entries:     make(map[string][]byte),
		generations: make(map[string]uint64),
	}
}

func (b *Backend) Get(_ context.Context, key string) ([]byte, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	value, ok := b.entries[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

func (b *Backend) Set(_ context.Context, key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[key] = append([]byte(nil), value...)
	return nil
}

func (b *Backend) DeletePrefix(_ context.Context, prefix string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	for key := range b.entries {
		if strings.HasPrefix(key, prefix) {
			delete(b.entries, key)
			removed++
		}
	}
	return removed, nil
}

func (b *Backend) Generation(_ context.Context, namespace string) (uint64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.generations[namespace], nil
}

func (b *Backend) BumpGeneration(_ context.Context, namespace string) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.generations[namespace]++
	return b.generations[namespace], nil
}

// Len returns the number of stored entries.
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}
