/*
Package formdraft keeps the drafts of multi-step forms and gates each step on validation.

A form is a typed schema of ordered steps. While the user fills it in, the
entered values and the current step are written together to a key-value store,
so closing the page, the terminal or the process never loses work. Moving to
the next step is only allowed when the fields of the current step pass their
rules; going back is always allowed.

# Packages

  - pkg/domain: forms, drafts, field errors and lifecycle events.
  - pkg/validation: declarative field rules, one message per invalid field.
  - pkg/draft: the draft store over any ports.KVStore.
  - pkg/stepper: the step controller (advance, retreat, submit).
  - pkg/session: per-form locking, debounced autosave and schema lookup.
  - pkg/adapters: memory, file and redis stores; HTTP and MCP front ends.

# Usage

	form := &domain.Form{
		ID: "add_course",
		Steps: []domain.Step{
			{Fields: []domain.Field{{Name: "title", Rules: []domain.Rule{domain.Required("Title is required")}}}},
			{Fields: []domain.Field{{Name: "price", Type: domain.FieldNumber}}},
		},
	}

	store := draft.New(memory.NewStore())
	ctrl := stepper.New(form, store)

	res, err := ctrl.Advance(ctx, "add_course", 1, domain.Draft{"title": ""})
	// res.Step == 1, res.Errors["title"] == "Title is required"

	res, err = ctrl.Advance(ctx, "add_course", 1, domain.Draft{"title": "Go 101"})
	// res.Step == 2, and the draft survives a restart:
	snap := store.LoadSnapshot(ctx, "add_course")

The formdraft command serves the same operations over HTTP, MCP and an
interactive terminal prompt.
*/
package formdraft
