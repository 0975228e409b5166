package observability

import (
	"context"

	"github.com/aretw0/formdraft/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the formdraft collectors.
type Metrics struct {
	Saves        prometheus.Counter
	SaveFailures prometheus.Counter
	Clears       prometheus.Counter
	Transitions  *prometheus.CounterVec
	FieldErrors  *prometheus.CounterVec
	Submissions  *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Saves: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "formdraft_saves_total",
			Help: "Total number of persisted draft writes",
		}),
		SaveFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "formdraft_save_failures_total",
			Help: "Total number of draft writes the storage rejected",
		}),
		Clears: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "formdraft_clears_total",
			Help: "Total number of cleared drafts",
		}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "formdraft_step_transitions_total",
			Help: "Step navigation attempts by form, direction and result",
		}, []string{"form", "direction", "result"}),
		FieldErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "formdraft_validation_errors_total",
			Help: "Field errors that blocked a step",
		}, []string{"form", "field"}),
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "formdraft_submissions_total",
			Help: "Form submissions by outcome",
		}, []string{"form", "outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.Saves, m.SaveFailures, m.Clears, m.Transitions, m.FieldErrors, m.Submissions)
	}
	return m
}

// Hooks returns lifecycle hooks feeding the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnDraftSaved: func(ctx context.Context, e *domain.DraftEvent) {
			m.Saves.Inc()
		},
		OnSaveFailed: func(ctx context.Context, e *domain.DraftEvent) {
			m.SaveFailures.Inc()
		},
		OnDraftCleared: func(ctx context.Context, e *domain.DraftEvent) {
			m.Clears.Inc()
		},
		OnStep: func(ctx context.Context, e *domain.StepEvent) {
			direction, result := transitionLabels(e.Type)
			m.Transitions.WithLabelValues(e.Schema, direction, result).Inc()
			for field := range e.Errors {
				m.FieldErrors.WithLabelValues(e.Schema, field).Inc()
			}
		},
		OnSubmit: func(ctx context.Context, e *domain.SubmitEvent) {
			outcome := "success"
			if e.Type == domain.EventSubmitFailed {
				outcome = "failure"
			}
			m.Submissions.WithLabelValues(e.Schema, outcome).Inc()
		},
	}
}

func transitionLabels(t domain.EventType) (direction, result string) {
	switch t {
	case domain.EventStepRetreated:
		return "back", "moved"
	case domain.EventStepBlocked:
		return "next", "blocked"
	case domain.EventReadyToSubmit:
		return "next", "ready"
	default:
		return "next", "moved"
	}
}
