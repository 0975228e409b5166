package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/formdraft/internal/logging"
	"github.com/aretw0/formdraft/pkg/domain"
	"github.com/aretw0/formdraft/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// FormsURI lists the registered form schemas.
const FormsURI = "formdraft://forms"

// DraftResponse is the structured result of every tool.
type DraftResponse struct {
	FormID        string             `json:"form_id" jsonschema_description:"The form identifier"`
	Step          int                `json:"step" jsonschema_description:"The current step, starting at 1"`
	TotalSteps    int                `json:"total_steps" jsonschema_description:"Number of steps of the form"`
	Fields        []string           `json:"fields,omitempty" jsonschema_description:"Field names of the current step"`
	Values        domain.Draft       `json:"values,omitempty" jsonschema_description:"The saved draft values"`
	Errors        domain.FieldErrors `json:"errors,omitempty" jsonschema_description:"Field errors that blocked the step"`
	ReadyToSubmit bool               `json:"ready_to_submit,omitempty" jsonschema_description:"All steps are valid"`
	Submitted     bool               `json:"submitted,omitempty" jsonschema_description:"The form was submitted and its draft cleared"`
}

// Server exposes a session.Manager as an MCP server so assistants can fill forms.
type Server struct {
	manager   *session.Manager
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// NewServer creates a new MCP Server instance.
func NewServer(manager *session.Manager, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		manager:   manager,
		mcpServer: server.NewMCPServer("formdraft-mcp", version),
		logger:    logger,
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	formID := mcp.WithString("form_id", mcp.Required(), mcp.Description("Form identifier, see "+FormsURI))
	values := mcp.WithString("values", mcp.Description("JSON object of field values to merge into the draft; null removes a field"))

	s.mcpServer.AddTool(mcp.NewTool("get_draft",
		mcp.WithDescription("Get the saved draft and current step of a form."),
		formID,
		mcp.WithOutputSchema[DraftResponse](),
	), mcp.NewStructuredToolHandler(s.handleGetDraft))

	s.mcpServer.AddTool(mcp.NewTool("save_draft",
		mcp.WithDescription("Merge values into the draft of a form without changing the step."),
		formID,
		mcp.WithString("values", mcp.Required(), mcp.Description("JSON object of field values; null removes a field")),
		mcp.WithOutputSchema[DraftResponse](),
	), mcp.NewStructuredToolHandler(s.handleSaveDraft))

	s.mcpServer.AddTool(mcp.NewTool("next_step",
		mcp.WithDescription("Validate the current step and move to the next one. Returns field errors when blocked."),
		formID,
		values,
		mcp.WithOutputSchema[DraftResponse](),
	), mcp.NewStructuredToolHandler(s.handleNextStep))

	s.mcpServer.AddTool(mcp.NewTool("previous_step",
		mcp.WithDescription("Go back one step. Never validates."),
		formID,
		mcp.WithOutputSchema[DraftResponse](),
	), mcp.NewStructuredToolHandler(s.handlePreviousStep))

	s.mcpServer.AddTool(mcp.NewTool("submit_form",
		mcp.WithDescription("Validate every step and submit the form. The draft is cleared on success."),
		formID,
		values,
		mcp.WithOutputSchema[DraftResponse](),
	), mcp.NewStructuredToolHandler(s.handleSubmit))

	s.mcpServer.AddTool(mcp.NewTool("clear_draft",
		mcp.WithDescription("Discard the draft of a form."),
		formID,
		mcp.WithOutputSchema[DraftResponse](),
	), mcp.NewStructuredToolHandler(s.handleClearDraft))
}

func (s *Server) handleGetDraft(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (DraftResponse, error) {
	id, err := formIDArg(args)
	if err != nil {
		return DraftResponse{}, err
	}
	return s.snapshot(ctx, id, nil)
}

func (s *Server) handleSaveDraft(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (DraftResponse, error) {
	id, err := formIDArg(args)
	if err != nil {
		return DraftResponse{}, err
	}
	patch, err := valuesArg(args)
	if err != nil {
		return DraftResponse{}, err
	}
	if _, err := s.manager.Edit(ctx, id, patch); err != nil {
		return DraftResponse{}, fmt.Errorf("save failed: %w", err)
	}
	return s.snapshot(ctx, id, nil)
}

func (s *Server) handleNextStep(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (DraftResponse, error) {
	id, err := formIDArg(args)
	if err != nil {
		return DraftResponse{}, err
	}
	patch, err := valuesArg(args)
	if err != nil {
		return DraftResponse{}, err
	}

	res, err := s.manager.Next(ctx, id, patch)
	if err != nil {
		return DraftResponse{}, fmt.Errorf("next step failed: %w", err)
	}
	out, err := s.snapshot(ctx, id, res.Errors)
	out.ReadyToSubmit = res.ReadyToSubmit
	return out, err
}

func (s *Server) handlePreviousStep(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (DraftResponse, error) {
	id, err := formIDArg(args)
	if err != nil {
		return DraftResponse{}, err
	}
	if _, err := s.manager.Back(ctx, id); err != nil {
		return DraftResponse{}, fmt.Errorf("previous step failed: %w", err)
	}
	return s.snapshot(ctx, id, nil)
}

func (s *Server) handleSubmit(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (DraftResponse, error) {
	id, err := formIDArg(args)
	if err != nil {
		return DraftResponse{}, err
	}
	patch, err := valuesArg(args)
	if err != nil {
		return DraftResponse{}, err
	}

	_, err = s.manager.Submit(ctx, id, patch)
	var vErr *domain.ValidationError
	if errors.As(err, &vErr) {
		return s.snapshot(ctx, id, vErr.Errors)
	}
	if err != nil {
		s.logger.Warn("MCP submit failed", "form_id", id, "err", err)
		return DraftResponse{}, err
	}

	out, err := s.snapshot(ctx, id, nil)
	out.Submitted = true
	return out, err
}

func (s *Server) handleClearDraft(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (DraftResponse, error) {
	id, err := formIDArg(args)
	if err != nil {
		return DraftResponse{}, err
	}
	if err := s.manager.Cancel(ctx, id); err != nil {
		return DraftResponse{}, fmt.Errorf("clear failed: %w", err)
	}
	return s.snapshot(ctx, id, nil)
}

func (s *Server) snapshot(ctx context.Context, formID string, errs domain.FieldErrors) (DraftResponse, error) {
	form, err := s.manager.Registry().Get(formID)
	if err != nil {
		return DraftResponse{}, err
	}
	snap, err := s.manager.Open(ctx, formID)
	if err != nil {
		return DraftResponse{}, err
	}

	out := DraftResponse{
		FormID:     formID,
		Step:       snap.Step,
		TotalSteps: form.TotalSteps(),
		Values:     snap.Values,
	}
	if len(errs) > 0 {
		out.Errors = errs
	}
	if step, err := form.Step(snap.Step); err == nil {
		out.Fields = step.FieldNames()
	}
	return out, nil
}

func formIDArg(args map[string]interface{}) (string, error) {
	id, _ := args["form_id"].(string)
	if id == "" {
		return "", fmt.Errorf("form_id is required")
	}
	return id, nil
}

// valuesArg accepts the values either as a JSON string or as an object.
func valuesArg(args map[string]interface{}) (domain.Draft, error) {
	switch v := args["values"].(type) {
	case nil:
		return nil, nil
	case map[string]interface{}:
		return domain.Draft(v), nil
	case string:
		if v == "" {
			return nil, nil
		}
		var out domain.Draft
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return nil, fmt.Errorf("values must be a JSON object: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("values must be a JSON object, got %T", v)
	}
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(FormsURI, "Registered form schemas",
		mcp.WithMIMEType("application/json"),
	), s.readForms)
}

func (s *Server) readForms(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	jsonBytes, err := json.Marshal(s.manager.Forms())
	if err != nil {
		return nil, fmt.Errorf("failed to encode forms: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      FormsURI,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}
