// Package stepper gates navigation through a multi-step form on validation
// and keeps the persisted step in sync with the draft.
package stepper

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/formdraft/internal/logging"
	"github.com/aretw0/formdraft/pkg/domain"
	"github.com/aretw0/formdraft/pkg/draft"
	"github.com/aretw0/formdraft/pkg/validation"
)

// Result is the outcome of a navigation attempt.
type Result struct {
	// Step is the step the user is on after the attempt.
	Step int `json:"step"`
	// Errors holds the field errors that blocked an advance.
	Errors domain.FieldErrors `json:"errors,omitempty"`
	// ReadyToSubmit is set when the last step validated; there is no next step.
	ReadyToSubmit bool `json:"ready_to_submit,omitempty"`
}

// SubmitFunc delivers a completed form downstream.
type SubmitFunc func(ctx context.Context, values domain.Draft) error

// Controller drives one form schema. It holds no per-user state: the current
// step and values are passed in and persisted through the draft store.
type Controller struct {
	form      *domain.Form
	store     *draft.Store
	validator *validation.Validator
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
}

// Option configures the Controller.
type Option func(*Controller)

// WithValidator replaces the package validator.
func WithValidator(v *validation.Validator) Option {
	return func(c *Controller) {
		c.validator = v
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *Controller) {
		c.hooks = hooks
	}
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// New creates a controller for form backed by store.
func New(form *domain.Form, store *draft.Store, opts ...Option) *Controller {
	c := &Controller{
		form:      form,
		store:     store,
		validator: validation.New(),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Form returns the schema driven by the controller.
func (c *Controller) Form() *domain.Form {
	return c.form
}

// Open returns the stored snapshot of formID, with the step clamped into the
// schema's range in case the schema shrank since the draft was written.
func (c *Controller) Open(ctx context.Context, formID string) domain.Snapshot {
	snap := c.store.LoadSnapshot(ctx, formID)
	snap.Step = c.form.ClampStep(snap.Step)
	return snap
}

// Save persists values at the stored step.
func (c *Controller) Save(ctx context.Context, formID string, values domain.Draft) error {
	return c.store.Save(ctx, formID, c.persistable(values))
}

// Advance validates the fields of step current only. When they pass it
// persists and returns current+1; otherwise it persists the partial values at
// current and returns the field errors. Advancing from the last step never
// creates a new step: it reports ReadyToSubmit.
func (c *Controller) Advance(ctx context.Context, formID string, current int, values domain.Draft) (Result, error) {
	if err := c.check(formID); err != nil {
		return Result{}, err
	}

	current = c.form.ClampStep(current)
	step, err := c.form.Step(current)
	if err != nil {
		return Result{}, err
	}

	errs := c.validator.ValidateStep(step.Fields, values)
	if !errs.Valid() {
		if err := c.store.SaveState(ctx, formID, current, c.persistable(values)); err != nil {
			return Result{}, err
		}
		c.logger.Debug("Step blocked by validation", "form_id", formID, "step", current, "fields", errs.Fields())
		c.emitStep(ctx, domain.EventStepBlocked, formID, current, current, errs)
		return Result{Step: current, Errors: errs}, nil
	}

	if current == c.form.TotalSteps() {
		if err := c.store.SaveState(ctx, formID, current, c.persistable(values)); err != nil {
			return Result{}, err
		}
		c.emitStep(ctx, domain.EventReadyToSubmit, formID, current, current, nil)
		return Result{Step: current, ReadyToSubmit: true}, nil
	}

	next := current + 1
	if err := c.store.SaveState(ctx, formID, next, c.persistable(values)); err != nil {
		return Result{}, err
	}
	c.emitStep(ctx, domain.EventStepAdvanced, formID, current, next, nil)
	return Result{Step: next}, nil
}

// Retreat moves back one step (never below 1) without validating, and
// persists the new step together with the stored draft. If the draft cannot
// be read the store is left as it is.
func (c *Controller) Retreat(ctx context.Context, formID string, current int) (Result, error) {
	if err := c.check(formID); err != nil {
		return Result{}, err
	}

	current = c.form.ClampStep(current)
	prev := max(current-1, 1)

	values, err := c.store.Read(ctx, formID)
	if err != nil {
		c.logger.Warn("Retreat not persisted, draft unreadable", "form_id", formID, "step", prev, "err", err)
	} else if err := c.store.SaveState(ctx, formID, prev, values); err != nil {
		return Result{}, err
	}
	c.emitStep(ctx, domain.EventStepRetreated, formID, current, prev, nil)
	return Result{Step: prev}, nil
}

// Submit validates every step. If one fails, the first invalid step becomes
// current and a *domain.ValidationError is returned. Otherwise fn is called;
// only a successful fn clears the draft, a failing one keeps it.
func (c *Controller) Submit(ctx context.Context, formID string, values domain.Draft, fn SubmitFunc) (Result, error) {
	if err := c.check(formID); err != nil {
		return Result{}, err
	}

	byStep := c.validator.ValidateForm(c.form, values)
	if first := validation.FirstInvalidStep(byStep); first > 0 {
		if err := c.store.SaveState(ctx, formID, first, c.persistable(values)); err != nil {
			return Result{}, err
		}
		c.emitStep(ctx, domain.EventStepBlocked, formID, c.form.TotalSteps(), first, byStep[first])
		return Result{Step: first, Errors: byStep[first]}, &domain.ValidationError{
			FormID: formID,
			Step:   first,
			Errors: byStep[first],
		}
	}

	last := c.form.TotalSteps()
	if err := fn(ctx, values); err != nil {
		// Keep the user's input for a retry
		if serr := c.store.SaveState(ctx, formID, last, c.persistable(values)); serr != nil {
			c.logger.Warn("Could not keep draft after failed submission", "form_id", formID, "err", serr)
		}
		c.emitSubmit(ctx, domain.EventSubmitFailed, formID, err)
		return Result{Step: last, ReadyToSubmit: true}, fmt.Errorf("form '%s': %w: %w", formID, domain.ErrSubmitFailed, err)
	}

	c.emitSubmit(ctx, domain.EventSubmitted, formID, nil)
	if err := c.store.Clear(ctx, formID); err != nil {
		c.logger.Warn("Submitted form but could not clear its draft", "form_id", formID, "err", err)
	}
	return Result{Step: 1}, nil
}

// Clear drops the draft and step of formID.
func (c *Controller) Clear(ctx context.Context, formID string) error {
	return c.store.Clear(ctx, formID)
}

func (c *Controller) check(formID string) error {
	if err := domain.ValidateFormID(formID); err != nil {
		return err
	}
	if c.form.TotalSteps() == 0 {
		return fmt.Errorf("form '%s' has no steps: %w", c.form.ID, domain.ErrStepOutOfRange)
	}
	return nil
}

func (c *Controller) persistable(values domain.Draft) domain.Draft {
	return values.Without(c.form.TransientFields()...)
}

func (c *Controller) emitStep(ctx context.Context, t domain.EventType, formID string, from, to int, errs domain.FieldErrors) {
	if c.hooks.OnStep == nil {
		return
	}
	c.hooks.OnStep(ctx, &domain.StepEvent{
		EventBase: domain.NewEventBase(t, formID),
		Schema:    c.form.ID,
		From:      from,
		To:        to,
		Errors:    errs,
	})
}

func (c *Controller) emitSubmit(ctx context.Context, t domain.EventType, formID string, err error) {
	if c.hooks.OnSubmit == nil {
		return
	}
	c.hooks.OnSubmit(ctx, &domain.SubmitEvent{
		EventBase: domain.NewEventBase(t, formID),
		Schema:    c.form.ID,
		Err:       err,
	})
}
