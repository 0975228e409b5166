package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/aretw0/formdraft/internal/logging"
	"github.com/aretw0/formdraft/pkg/domain"
	"github.com/aretw0/formdraft/pkg/ports"
)

// DefaultNamespace prefixes every key written by a Store.
const DefaultNamespace = "formdraft"

const (
	draftSuffix = "_draft"
	stepSuffix  = "_step"
)

// Store is the draft store. Safe for concurrent use when the KVStore is.
type Store struct {
	kv        ports.KVStore
	namespace string
	excluded  map[string]struct{}
	logger    *slog.Logger
	hooks     domain.LifecycleHooks
}

// Option configures the Store.
type Option func(*Store)

// WithNamespace replaces DefaultNamespace.
func WithNamespace(ns string) Option {
	return func(s *Store) {
		s.namespace = ns
	}
}

// WithExcludedFields names fields that are never persisted, whatever the form.
func WithExcludedFields(names ...string) Option {
	return func(s *Store) {
		for _, n := range names {
			s.excluded[n] = struct{}{}
		}
	}
}

// WithLogger configures a logger for swallowed storage failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Store) {
		s.hooks = hooks
	}
}

// New creates a draft store over kv.
func New(kv ports.KVStore, opts ...Option) *Store {
	s := &Store{
		kv:        kv,
		namespace: DefaultNamespace,
		excluded:  make(map[string]struct{}),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DraftKey returns the key holding the draft of formID.
func (s *Store) DraftKey(formID string) string {
	return s.namespace + ":" + formID + draftSuffix
}

// StepKey returns the key holding the step of formID.
func (s *Store) StepKey(formID string) string {
	return s.namespace + ":" + formID + stepSuffix
}

// Save persists draft, keeping the step already stored (1 if none).
// Storage failures are swallowed; only an invalid formID is returned.
// When the stored step cannot be read nothing is written, so the step of
// a draft further along is never reset to 1.
func (s *Store) Save(ctx context.Context, formID string, draft domain.Draft) error {
	if err := domain.ValidateFormID(formID); err != nil {
		return err
	}
	step, err := s.ReadStep(ctx, formID)
	if err != nil {
		s.saveFailed(ctx, formID, 0, len(draft), err)
		return nil
	}
	return s.SaveState(ctx, formID, step, draft)
}

// SaveState persists draft and step together.
// Storage failures are swallowed; only invalid arguments are returned.
func (s *Store) SaveState(ctx context.Context, formID string, step int, draft domain.Draft) error {
	if err := domain.ValidateFormID(formID); err != nil {
		return err
	}
	if step < 1 {
		return fmt.Errorf("%w: %d", domain.ErrStepOutOfRange, step)
	}

	values := s.Strip(draft)
	data, err := json.Marshal(values)
	if err != nil {
		s.saveFailed(ctx, formID, step, len(values), fmt.Errorf("failed to marshal draft: %w", err))
		return nil
	}

	err = s.kv.SetMany(ctx, map[string]string{
		s.DraftKey(formID): string(data),
		s.StepKey(formID):  strconv.Itoa(step),
	})
	if err != nil {
		s.saveFailed(ctx, formID, step, len(values), err)
		return nil
	}

	if s.hooks.OnDraftSaved != nil {
		s.hooks.OnDraftSaved(ctx, &domain.DraftEvent{
			EventBase: domain.NewEventBase(domain.EventDraftSaved, formID),
			Step:      step,
			Fields:    len(values),
		})
	}
	return nil
}

func (s *Store) saveFailed(ctx context.Context, formID string, step, fields int, err error) {
	s.logger.Warn("Draft not persisted, keeping in-memory values only",
		"form_id", formID,
		"step", step,
		"err", err,
	)
	if s.hooks.OnSaveFailed != nil {
		s.hooks.OnSaveFailed(ctx, &domain.DraftEvent{
			EventBase: domain.NewEventBase(domain.EventSaveFailed, formID),
			Step:      step,
			Fields:    fields,
			Err:       err,
		})
	}
}

// Load returns the stored draft of formID, or an empty draft when there is
// none or it cannot be read.
func (s *Store) Load(ctx context.Context, formID string) domain.Draft {
	draft, err := s.Read(ctx, formID)
	if err != nil {
		s.logger.Warn("Failed to read draft", "form_id", formID, "err", err)
		return domain.Draft{}
	}
	return draft
}

// Read is Load for callers that write back what they read. A missing or
// undecodable draft is empty; a failing store is an error, because writing
// over it would wipe a draft that is still there.
func (s *Store) Read(ctx context.Context, formID string) (domain.Draft, error) {
	if err := domain.ValidateFormID(formID); err != nil {
		return nil, err
	}

	raw, err := s.kv.Get(ctx, s.DraftKey(formID))
	if errors.Is(err, domain.ErrKeyNotFound) {
		return domain.Draft{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read draft '%s': %w", formID, err)
	}

	var draft domain.Draft
	if err := json.Unmarshal([]byte(raw), &draft); err != nil || draft == nil {
		s.logger.Debug("Discarding unreadable draft", "form_id", formID, "err", err)
		return domain.Draft{}, nil
	}
	return draft, nil
}

// LoadStep returns the stored step of formID, or 1.
func (s *Store) LoadStep(ctx context.Context, formID string) int {
	step, err := s.ReadStep(ctx, formID)
	if err != nil {
		s.logger.Warn("Failed to read step", "form_id", formID, "err", err)
		return 1
	}
	return step
}

// ReadStep is LoadStep that reports a failing store instead of assuming step 1.
func (s *Store) ReadStep(ctx context.Context, formID string) (int, error) {
	if err := domain.ValidateFormID(formID); err != nil {
		return 0, err
	}

	raw, err := s.kv.Get(ctx, s.StepKey(formID))
	if errors.Is(err, domain.ErrKeyNotFound) {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read step of '%s': %w", formID, err)
	}

	step, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || step < 1 {
		s.logger.Debug("Discarding unreadable step", "form_id", formID, "value", raw)
		return 1, nil
	}
	return step, nil
}

// LoadSnapshot returns draft and step of formID in one value.
func (s *Store) LoadSnapshot(ctx context.Context, formID string) domain.Snapshot {
	return domain.Snapshot{
		FormID: formID,
		Step:   s.LoadStep(ctx, formID),
		Values: s.Load(ctx, formID),
	}
}

// Clear deletes draft and step of formID together.
func (s *Store) Clear(ctx context.Context, formID string) error {
	if err := domain.ValidateFormID(formID); err != nil {
		return err
	}

	if err := s.kv.Delete(ctx, s.DraftKey(formID), s.StepKey(formID)); err != nil {
		s.logger.Warn("Failed to clear draft", "form_id", formID, "err", err)
		return fmt.Errorf("failed to clear draft '%s': %w", formID, err)
	}

	if s.hooks.OnDraftCleared != nil {
		s.hooks.OnDraftCleared(ctx, &domain.DraftEvent{
			EventBase: domain.NewEventBase(domain.EventDraftCleared, formID),
		})
	}
	return nil
}

// List returns the IDs of all forms with a stored draft.
func (s *Store) List(ctx context.Context) ([]string, error) {
	prefix := s.namespace + ":"
	keys, err := s.kv.Keys(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}

	ids := []string{}
	for _, k := range keys {
		id, ok := strings.CutSuffix(strings.TrimPrefix(k, prefix), draftSuffix)
		if ok && id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
