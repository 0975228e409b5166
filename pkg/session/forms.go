package session

import (
	"context"

	"github.com/aretw0/formdraft/pkg/domain"
	"github.com/aretw0/formdraft/pkg/stepper"
)

// Forms lists the registered schemas.
func (m *Manager) Forms() []*domain.Form {
	return m.registry.List()
}

// Open returns the current draft and step of formID. A pending autosave wins
// over the stored values.
func (m *Manager) Open(ctx context.Context, formID string) (domain.Snapshot, error) {
	c, err := m.Controller(formID)
	if err != nil {
		return domain.Snapshot{}, err
	}

	var snap domain.Snapshot
	err = m.WithLock(ctx, formID, func(ctx context.Context) error {
		snap = c.Open(ctx, formID)
		return nil
	})
	if pending, ok := m.pending(formID); ok {
		snap.Values = pending
	}
	return snap, err
}

// Edit merges patch into the draft of formID and saves it, debounced when
// autosave is enabled. A nil value removes the field.
func (m *Manager) Edit(ctx context.Context, formID string, patch domain.Draft) (domain.Draft, error) {
	c, err := m.Controller(formID)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateFormID(formID); err != nil {
		return nil, err
	}

	if m.autosave != nil {
		base, err := m.current(ctx, formID)
		if err != nil {
			return nil, err
		}
		values := merge(base, patch)
		m.autosave.Edit(formID, values)
		return values, nil
	}

	var values domain.Draft
	err = m.WithLock(ctx, formID, func(ctx context.Context) error {
		base, err := m.store.Read(ctx, formID)
		if err != nil {
			return err
		}
		values = merge(base, patch)
		return c.Save(ctx, formID, values)
	})
	return values, err
}

// Next merges patch into the draft and tries to advance from the stored step.
func (m *Manager) Next(ctx context.Context, formID string, patch domain.Draft) (stepper.Result, error) {
	c, err := m.Controller(formID)
	if err != nil {
		return stepper.Result{}, err
	}
	base, err := m.current(ctx, formID)
	if err != nil {
		return stepper.Result{}, err
	}
	values := merge(base, patch)
	m.discardPending(formID)

	var res stepper.Result
	err = m.WithLock(ctx, formID, func(ctx context.Context) error {
		step, err := m.store.ReadStep(ctx, formID)
		if err != nil {
			return err
		}
		res, err = c.Advance(ctx, formID, step, values)
		return err
	})
	return res, err
}

// Back moves the draft of formID one step back.
func (m *Manager) Back(ctx context.Context, formID string) (stepper.Result, error) {
	c, err := m.Controller(formID)
	if err != nil {
		return stepper.Result{}, err
	}
	if err := m.Flush(ctx, formID); err != nil {
		m.logger.Warn("Autosave flush before retreat failed", "form_id", formID, "err", err)
	}

	var res stepper.Result
	err = m.WithLock(ctx, formID, func(ctx context.Context) error {
		step, err := m.store.ReadStep(ctx, formID)
		if err != nil {
			return err
		}
		res, err = c.Retreat(ctx, formID, step)
		return err
	})
	return res, err
}

// Submit merges patch into the draft, validates every step and hands the
// values to the configured submitter.
func (m *Manager) Submit(ctx context.Context, formID string, patch domain.Draft) (stepper.Result, error) {
	c, err := m.Controller(formID)
	if err != nil {
		return stepper.Result{}, err
	}
	base, err := m.current(ctx, formID)
	if err != nil {
		return stepper.Result{}, err
	}
	values := merge(base, patch)
	m.discardPending(formID)

	var res stepper.Result
	err = m.WithLock(ctx, formID, func(ctx context.Context) error {
		var err error
		res, err = c.Submit(ctx, formID, values, m.submit)
		return err
	})
	return res, err
}

// Cancel clears the draft of formID.
func (m *Manager) Cancel(ctx context.Context, formID string) error {
	c, err := m.Controller(formID)
	if err != nil {
		return err
	}
	m.discardPending(formID)

	return m.WithLock(ctx, formID, func(ctx context.Context) error {
		return c.Clear(ctx, formID)
	})
}

// List returns the IDs of forms with a stored draft.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

func (m *Manager) pending(formID string) (domain.Draft, bool) {
	if m.autosave == nil {
		return nil, false
	}
	return m.autosave.Pending(formID)
}

// current returns the newest values of formID: unsaved autosave edits, else
// the stored draft. A store that cannot be read is an error, since callers
// write the result back.
func (m *Manager) current(ctx context.Context, formID string) (domain.Draft, error) {
	if values, ok := m.pending(formID); ok {
		return values, nil
	}
	return m.store.Read(ctx, formID)
}

func merge(base, patch domain.Draft) domain.Draft {
	out := base.Clone()
	for k, v := range patch {
		if v == nil {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	return out
}
