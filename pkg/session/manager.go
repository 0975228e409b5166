package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/formdraft/internal/logging"
	"github.com/aretw0/formdraft/pkg/autosave"
	"github.com/aretw0/formdraft/pkg/domain"
	"github.com/aretw0/formdraft/pkg/draft"
	"github.com/aretw0/formdraft/pkg/ports"
	"github.com/aretw0/formdraft/pkg/schema"
	"github.com/aretw0/formdraft/pkg/stepper"
)

// DefaultLockTTL bounds how long a distributed lock outlives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates access to form drafts.
// It uses reference counting to garbage collect unused locks.
type Manager struct {
	registry *schema.Registry
	store    *draft.Store

	mu    sync.Mutex            // guards locks and controllers
	locks map[string]*lockEntry // active per-form locks

	controllers map[string]*stepper.Controller
	ctrlOpts    []stepper.Option

	autosave *autosave.Debouncer
	debounce time.Duration
	submit   stepper.SubmitFunc

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithAutosave debounces Edit by delay. A zero delay writes every edit directly.
func WithAutosave(delay time.Duration) Option {
	return func(m *Manager) {
		m.debounce = delay
	}
}

// WithSubmitter sets where completed forms are delivered.
func WithSubmitter(fn stepper.SubmitFunc) Option {
	return func(m *Manager) {
		m.submit = fn
	}
}

// WithControllerOptions is passed to every stepper.Controller.
func WithControllerOptions(opts ...stepper.Option) Option {
	return func(m *Manager) {
		m.ctrlOpts = append(m.ctrlOpts, opts...)
	}
}

// NewManager creates a Manager over the schemas in registry and the drafts in store.
func NewManager(registry *schema.Registry, store *draft.Store, opts ...Option) *Manager {
	m := &Manager{
		registry:    registry,
		store:       store,
		locks:       make(map[string]*lockEntry),
		controllers: make(map[string]*stepper.Controller),
		lockTTL:     DefaultLockTTL,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.submit == nil {
		m.submit = m.logSubmission
	}
	if m.debounce > 0 {
		m.autosave = autosave.New(m.saveLocked, autosave.WithDelay(m.debounce), autosave.WithLogger(m.logger))
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(formID) after unlocking.
func (m *Manager) acquire(formID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[formID]
	if !exists {
		entry = &lockEntry{}
		m.locks[formID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(formID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[formID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, formID)
	}
}

// WithLock executes fn while holding the lock for formID.
func (m *Manager) WithLock(ctx context.Context, formID string, fn func(context.Context) error) error {
	entry := m.acquire(formID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(formID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, formID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"form_id", formID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Registry returns the schema registry.
func (m *Manager) Registry() *schema.Registry {
	return m.registry
}

// Store returns the draft store.
func (m *Manager) Store() *draft.Store {
	return m.store
}

// Controller returns the cached controller of a form schema.
func (m *Manager) Controller(formID string) (*stepper.Controller, error) {
	form, err := m.registry.Get(formID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.controllers[formID]; ok && c.Form() == form {
		return c, nil
	}
	opts := append([]stepper.Option{stepper.WithLogger(m.logger)}, m.ctrlOpts...)
	c := stepper.New(form, m.store, opts...)
	m.controllers[formID] = c
	return c, nil
}

// Flush writes pending autosaves of formIDs, or all of them.
func (m *Manager) Flush(ctx context.Context, formIDs ...string) error {
	if m.autosave == nil {
		return nil
	}
	return m.autosave.Flush(ctx, formIDs...)
}

// Close flushes pending autosaves and stops the debouncer.
func (m *Manager) Close(ctx context.Context) error {
	if m.autosave == nil {
		return nil
	}
	err := m.autosave.Flush(ctx)
	m.autosave.Stop()
	return err
}

func (m *Manager) saveLocked(ctx context.Context, formID string, values domain.Draft) error {
	c, err := m.Controller(formID)
	if err != nil {
		return err
	}
	return m.WithLock(ctx, formID, func(ctx context.Context) error {
		return c.Save(ctx, formID, values)
	})
}

func (m *Manager) discardPending(formID string) {
	if m.autosave != nil {
		m.autosave.Discard(formID)
	}
}

func (m *Manager) logSubmission(ctx context.Context, values domain.Draft) error {
	m.logger.Info("Form submitted", "fields", len(values))
	return nil
}
