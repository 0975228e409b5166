// Package autosave coalesces rapid draft edits into a single write per form.
package autosave

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/aretw0/formdraft/internal/logging"
	"github.com/aretw0/formdraft/pkg/domain"
)

// DefaultDelay is the quiet period after the last edit before a draft is written.
const DefaultDelay = 500 * time.Millisecond

// SaveFunc writes one draft.
type SaveFunc func(ctx context.Context, formID string, values domain.Draft) error

type pendingWrite struct {
	timer  *time.Timer
	values domain.Draft
	gen    uint64
}

// inflightWrite stays visible to Pending until its save returns, so an edit
// made meanwhile builds on it instead of on the older stored draft.
type inflightWrite struct {
	values domain.Draft
	done   chan struct{}
}

// Debouncer delays draft writes until edits on a form stop for Delay.
// Only the most recent values of a form are ever written.
type Debouncer struct {
	delay  time.Duration
	save   SaveFunc
	logger *slog.Logger

	mu       sync.Mutex
	gen      uint64
	pending  map[string]*pendingWrite
	inflight map[string]*inflightWrite
	stopped  bool
}

// Option configures the Debouncer.
type Option func(*Debouncer)

// WithDelay overrides DefaultDelay. Non-positive values are ignored.
func WithDelay(d time.Duration) Option {
	return func(db *Debouncer) {
		if d > 0 {
			db.delay = d
		}
	}
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(db *Debouncer) {
		db.logger = logger
	}
}

// New creates a Debouncer writing through save.
func New(save SaveFunc, opts ...Option) *Debouncer {
	d := &Debouncer{
		delay:    DefaultDelay,
		save:     save,
		logger:   logging.NewNop(),
		pending:  make(map[string]*pendingWrite),
		inflight: make(map[string]*inflightWrite),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Delay returns the configured quiet period.
func (d *Debouncer) Delay() time.Duration {
	return d.delay
}

// Edit records the latest values of formID and restarts its timer.
// After Stop, edits are written synchronously.
func (d *Debouncer) Edit(formID string, values domain.Draft) {
	values = values.Clone()

	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		d.write(context.Background(), formID, values)
		return
	}

	if p, ok := d.pending[formID]; ok {
		p.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.pending[formID] = &pendingWrite{
		values: values,
		gen:    gen,
		timer: time.AfterFunc(d.delay, func() {
			d.fire(formID, gen)
		}),
	}
	d.mu.Unlock()
}

// Pending returns the newest values of formID not yet confirmed by the
// store: a waiting edit, or else a write still in progress.
func (d *Debouncer) Pending(formID string) (domain.Draft, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p, ok := d.pending[formID]; ok {
		return p.values.Clone(), true
	}
	if w, ok := d.inflight[formID]; ok {
		return w.values.Clone(), true
	}
	return nil, false
}

// Discard cancels the pending write of formID and waits for a write already
// in progress, so a cleared draft is not written back afterwards.
func (d *Debouncer) Discard(formID string) {
	d.mu.Lock()
	if p, ok := d.pending[formID]; ok {
		p.timer.Stop()
		delete(d.pending, formID)
	}
	w := d.inflight[formID]
	d.mu.Unlock()

	// The newest write waits for older ones, so one wait covers them all.
	if w != nil {
		<-w.done
	}
}

// Flush writes the pending drafts of formIDs now, or every pending draft
// when no ID is given.
func (d *Debouncer) Flush(ctx context.Context, formIDs ...string) error {
	d.mu.Lock()
	type queued struct{ w, prev *inflightWrite }
	batch := make(map[string]queued, len(d.pending))
	for id, p := range d.pending {
		if len(formIDs) > 0 && !slices.Contains(formIDs, id) {
			continue
		}
		p.timer.Stop()
		delete(d.pending, id)
		w, prev := d.track(id, p.values)
		batch[id] = queued{w, prev}
	}
	d.mu.Unlock()

	var errs []error
	for id, q := range batch {
		if err := d.run(ctx, id, q.w, q.prev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Stop cancels all timers without writing. Use Flush first to keep edits.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, p := range d.pending {
		p.timer.Stop()
	}
	clear(d.pending)
	d.stopped = true
}

func (d *Debouncer) fire(formID string, gen uint64) {
	d.mu.Lock()
	p, ok := d.pending[formID]
	if !ok || p.gen != gen {
		// Superseded by a newer edit or discarded
		d.mu.Unlock()
		return
	}
	delete(d.pending, formID)
	w, prev := d.track(formID, p.values)
	d.mu.Unlock()

	_ = d.run(context.Background(), formID, w, prev)
}

// track marks values as the newest write of formID and returns the write it
// has to wait for. Callers hold d.mu.
func (d *Debouncer) track(formID string, values domain.Draft) (w, prev *inflightWrite) {
	w = &inflightWrite{values: values, done: make(chan struct{})}
	prev = d.inflight[formID]
	d.inflight[formID] = w
	return w, prev
}

// run writes w once prev has finished, keeping w visible through Pending
// until the store has it.
func (d *Debouncer) run(ctx context.Context, formID string, w, prev *inflightWrite) error {
	defer func() {
		d.mu.Lock()
		if d.inflight[formID] == w {
			delete(d.inflight, formID)
		}
		d.mu.Unlock()
		close(w.done)
	}()

	if prev != nil {
		<-prev.done
	}
	return d.write(ctx, formID, w.values)
}

func (d *Debouncer) write(ctx context.Context, formID string, values domain.Draft) error {
	if err := d.save(ctx, formID, values); err != nil {
		d.logger.Warn("Autosave failed", "form_id", formID, "err", err)
		return err
	}
	d.logger.Debug("Autosaved draft", "form_id", formID, "fields", len(values))
	return nil
}
