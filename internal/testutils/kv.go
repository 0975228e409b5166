package testutils

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aretw0/formdraft/pkg/ports"
)

// ErrUnavailable is returned by a FlakyStore for the reads it was told to fail.
var ErrUnavailable = errors.New("store temporarily unavailable")

// FlakyStore wraps a KVStore with slow writes and reads that fail on demand.
type FlakyStore struct {
	ports.KVStore

	// WriteDelay is slept before every SetMany.
	WriteDelay time.Duration

	mu       sync.Mutex
	failGets map[string]int
}

// NewFlakyStore wraps kv.
func NewFlakyStore(kv ports.KVStore) *FlakyStore {
	return &FlakyStore{KVStore: kv, failGets: make(map[string]int)}
}

// FailGets makes the next n reads of key return ErrUnavailable.
func (f *FlakyStore) FailGets(key string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failGets[key] += n
}

func (f *FlakyStore) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	if f.failGets[key] > 0 {
		f.failGets[key]--
		f.mu.Unlock()
		return "", ErrUnavailable
	}
	f.mu.Unlock()
	return f.KVStore.Get(ctx, key)
}

func (f *FlakyStore) SetMany(ctx context.Context, entries map[string]string) error {
	if f.WriteDelay > 0 {
		time.Sleep(f.WriteDelay)
	}
	return f.KVStore.SetMany(ctx, entries)
}
