// Package memory is an in-process StateRepository for ephemeral servers and tests.
package memory

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/herohuhu666/wanwu/internal/domain"
)

type Repository struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

func NewRepository() *Repository {
	return &Repository{entries: make(map[string][]byte)}
}

func (r *Repository) Get(_ context.Context, key string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.entries[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return slices.Clone(v), nil
}

func (r *Repository) Put(_ context.Context, key string, value []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[key] = slices.Clone(value)
	return nil
}

func (r *Repository) Delete(_ context.Context, keys ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range keys {
		delete(r.entries, k)
	}
	return nil
}

func (r *Repository) List(_ context.Context, prefix string) (map[string][]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string][]byte)
	for k, v := range r.entries {
		if strings.HasPrefix(k, prefix) {
			out[k] = slices.Clone(v)
		}
	}
	return out, nil
}

// Keys returns every stored key, sorted.
func (r *Repository) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.entries))
}
