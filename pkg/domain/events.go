package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventDraftSaved    EventType = "draft_saved"
	EventSaveFailed    EventType = "draft_save_failed"
	EventDraftCleared  EventType = "draft_cleared"
	EventStepAdvanced  EventType = "step_advanced"
	EventStepBlocked   EventType = "step_blocked"
	EventStepRetreated EventType = "step_retreated"
	EventReadyToSubmit EventType = "ready_to_submit"
	EventSubmitted     EventType = "submitted"
	EventSubmitFailed  EventType = "submit_failed"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	FormID    string    `json:"form_id"`
}

// NewEventBase stamps an event with the current time.
func NewEventBase(t EventType, formID string) EventBase {
	return EventBase{Timestamp: time.Now(), Type: t, FormID: formID}
}

// DraftEvent reports a write or delete on the draft store.
type DraftEvent struct {
	EventBase
	Step   int   `json:"step,omitempty"`
	Fields int   `json:"fields,omitempty"`
	Err    error `json:"-"`
}

// StepEvent reports a navigation attempt.
type StepEvent struct {
	EventBase
	Schema string      `json:"schema"`
	From   int         `json:"from"`
	To     int         `json:"to"`
	Errors FieldErrors `json:"errors,omitempty"`
}

// SubmitEvent reports the outcome of a final submission.
type SubmitEvent struct {
	EventBase
	Schema string `json:"schema"`
	Err    error  `json:"-"`
}

// LifecycleHooks defines callbacks for observability.
type LifecycleHooks struct {
	OnDraftSaved   func(context.Context, *DraftEvent)
	OnSaveFailed   func(context.Context, *DraftEvent)
	OnDraftCleared func(context.Context, *DraftEvent)
	OnStep         func(context.Context, *StepEvent)
	OnSubmit       func(context.Context, *SubmitEvent)
}

// ComposeHooks fans each callback out to every non-nil callback in hooks.
func ComposeHooks(hooks ...LifecycleHooks) LifecycleHooks {
	var out LifecycleHooks
	for _, h := range hooks {
		out.OnDraftSaved = chain(out.OnDraftSaved, h.OnDraftSaved)
		out.OnSaveFailed = chain(out.OnSaveFailed, h.OnSaveFailed)
		out.OnDraftCleared = chain(out.OnDraftCleared, h.OnDraftCleared)
		out.OnStep = chain(out.OnStep, h.OnStep)
		out.OnSubmit = chain(out.OnSubmit, h.OnSubmit)
	}
	return out
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
