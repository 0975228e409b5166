package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/aretw0/formdraft/pkg/domain"
)

// ErrQuotaExceeded is returned when a write would grow the store past its quota.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// Store implements ports.KVStore in memory.
// Safe for concurrent use.
type Store struct {
	data  map[string]string
	size  int
	quota int
	mu    sync.RWMutex
}

// Option configures the Store.
type Option func(*Store)

// WithQuota caps the total size (keys plus values, in bytes) the store may hold.
// Zero means unlimited. It mirrors the per-origin quota of browser storage.
func WithQuota(bytes int) Option {
	return func(s *Store) {
		s.quota = bytes
	}
}

// NewStore creates a new in-memory store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		data: make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get retrieves a value from memory.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	val, ok := s.data[key]
	if !ok {
		return "", domain.ErrKeyNotFound
	}
	return val, nil
}

// SetMany writes all entries, or none of them when the quota would be exceeded.
func (s *Store) SetMany(ctx context.Context, entries map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	size := s.size
	for k, v := range entries {
		if old, ok := s.data[k]; ok {
			size -= len(k) + len(old)
		}
		size += len(k) + len(v)
	}
	if s.quota > 0 && size > s.quota {
		return ErrQuotaExceeded
	}

	for k, v := range entries {
		s.data[k] = v
	}
	s.size = size
	return nil
}

// Delete removes the keys.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range keys {
		if old, ok := s.data[k]; ok {
			s.size -= len(k) + len(old)
			delete(s.data, k)
		}
	}
	return nil
}

// Keys returns the stored keys with the given prefix, sorted.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
