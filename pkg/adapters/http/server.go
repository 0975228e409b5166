package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/aretw0/formdraft/internal/logging"
	"github.com/aretw0/formdraft/pkg/domain"
	"github.com/aretw0/formdraft/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// maxBodyBytes bounds draft request bodies.
const maxBodyBytes = 1 << 20

// Server exposes a session.Manager over HTTP.
type Server struct {
	Manager *session.Manager
	Streams *StreamManager

	logger  *slog.Logger
	metrics http.Handler
	cors    bool
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetricsHandler mounts h under GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithCORS allows cross-origin browser clients.
func WithCORS(enabled bool) Option {
	return func(s *Server) {
		s.cors = enabled
	}
}

// NewHandler creates the HTTP handler for manager.
func NewHandler(manager *session.Manager, opts ...Option) http.Handler {
	s := &Server{
		Manager: manager,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams = NewStreamManager(s.logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if s.cors {
		r.Use(enableCORS)
	}

	r.Get("/healthz", s.GetHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/forms", func(r chi.Router) {
		r.Get("/", s.ListForms)
		r.Route("/{formID}", func(r chi.Router) {
			r.Get("/", s.GetForm)
			r.Get("/draft", s.GetDraft)
			r.Put("/draft", s.PutDraft)
			r.Delete("/draft", s.DeleteDraft)
			r.Post("/next", s.Next)
			r.Post("/back", s.Back)
			r.Post("/submit", s.Submit)
			r.Get("/events", s.SubscribeEvents)
		})
	})
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type formSummary struct {
	ID          string `json:"id"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Steps       int    `json:"steps"`
}

type draftRequest struct {
	Values domain.Draft `json:"values"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type validationResponse struct {
	Step   int                `json:"step"`
	Errors domain.FieldErrors `json:"errors"`
}

// GetHealth handles GET /healthz.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListForms handles GET /forms.
func (s *Server) ListForms(w http.ResponseWriter, r *http.Request) {
	forms := s.Manager.Forms()
	out := make([]formSummary, 0, len(forms))
	for _, f := range forms {
		out = append(out, formSummary{ID: f.ID, Title: f.Title, Description: f.Description, Steps: f.TotalSteps()})
	}
	s.writeJSON(w, http.StatusOK, out)
}

// GetForm handles GET /forms/{formID}.
func (s *Server) GetForm(w http.ResponseWriter, r *http.Request) {
	form, err := s.Manager.Registry().Get(chi.URLParam(r, "formID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, form)
}

// GetDraft handles GET /forms/{formID}/draft.
func (s *Server) GetDraft(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Manager.Open(r.Context(), chi.URLParam(r, "formID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

// PutDraft handles PUT /forms/{formID}/draft. Values are merged into the
// stored draft; a null value removes the field.
func (s *Server) PutDraft(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "formID")
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}

	before, err := s.Manager.Open(r.Context(), formID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if _, err := s.Manager.Edit(r.Context(), formID, body.Values); err != nil {
		s.writeError(w, err)
		return
	}
	snap, err := s.Manager.Open(r.Context(), formID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	// Subscribers only get the fields that changed.
	if diff := domain.Diff(&before, &snap); diff != nil {
		s.broadcast(formID, diff)
	}
	s.writeJSON(w, http.StatusOK, snap)
}

// DeleteDraft handles DELETE /forms/{formID}/draft.
func (s *Server) DeleteDraft(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "formID")
	if err := s.Manager.Cancel(r.Context(), formID); err != nil {
		s.writeError(w, err)
		return
	}
	s.broadcast(formID, domain.Snapshot{FormID: formID, Step: 1, Values: domain.Draft{}})
	w.WriteHeader(http.StatusNoContent)
}

// Next handles POST /forms/{formID}/next.
func (s *Server) Next(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "formID")
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}

	res, err := s.Manager.Next(r.Context(), formID, body.Values)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.broadcast(formID, res)
	if !res.Errors.Valid() {
		s.writeJSON(w, http.StatusUnprocessableEntity, validationResponse{Step: res.Step, Errors: res.Errors})
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

// Back handles POST /forms/{formID}/back.
func (s *Server) Back(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "formID")
	res, err := s.Manager.Back(r.Context(), formID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.broadcast(formID, res)
	s.writeJSON(w, http.StatusOK, res)
}

// Submit handles POST /forms/{formID}/submit.
func (s *Server) Submit(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "formID")
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}

	res, err := s.Manager.Submit(r.Context(), formID, body.Values)
	s.broadcast(formID, res)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"step": res.Step, "submitted": true})
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) (draftRequest, bool) {
	var body draftRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		s.logger.Warn("Invalid request body", "path", r.URL.Path, "err", err)
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return body, false
	}
	return body, true
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr):
		s.writeJSON(w, http.StatusUnprocessableEntity, validationResponse{Step: vErr.Step, Errors: vErr.Errors})
	case errors.Is(err, domain.ErrFormNotFound):
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrInvalidFormID):
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrSubmitFailed):
		s.writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
	default:
		s.logger.Error("Request failed", "err", err)
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "err", err)
	}
}

func (s *Server) broadcast(formID string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	s.Streams.Broadcast(formID, string(data))
}
