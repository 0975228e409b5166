package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/formdraft/pkg/domain"
)

// LogHooks returns lifecycle hooks that log every event.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	draftEvent := func(level slog.Level) func(context.Context, *domain.DraftEvent) {
		return func(ctx context.Context, e *domain.DraftEvent) {
			attrs := []any{"form_id", e.FormID}
			if e.Step > 0 {
				attrs = append(attrs, "step", e.Step)
			}
			if e.Err != nil {
				attrs = append(attrs, "err", e.Err)
			}
			logger.Log(ctx, level, string(e.Type), attrs...)
		}
	}

	return domain.LifecycleHooks{
		OnDraftSaved:   draftEvent(slog.LevelDebug),
		OnSaveFailed:   draftEvent(slog.LevelWarn),
		OnDraftCleared: draftEvent(slog.LevelInfo),
		OnStep: func(ctx context.Context, e *domain.StepEvent) {
			attrs := []any{"form_id", e.FormID, "schema", e.Schema, "from", e.From, "to", e.To}
			if !e.Errors.Valid() {
				attrs = append(attrs, "fields", e.Errors.Fields())
			}
			logger.Info(string(e.Type), attrs...)
		},
		OnSubmit: func(ctx context.Context, e *domain.SubmitEvent) {
			if e.Err != nil {
				logger.Warn(string(e.Type), "form_id", e.FormID, "schema", e.Schema, "err", e.Err)
				return
			}
			logger.Info(string(e.Type), "form_id", e.FormID, "schema", e.Schema)
		},
	}
}
