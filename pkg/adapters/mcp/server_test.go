package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/formdraft/internal/testutils"
	"github.com/aretw0/formdraft/pkg/adapters/memory"
	"github.com/aretw0/formdraft/pkg/domain"
	"github.com/aretw0/formdraft/pkg/draft"
	"github.com/aretw0/formdraft/pkg/schema"
	"github.com/aretw0/formdraft/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, opts ...session.Option) *Server {
	t.Helper()
	reg, err := schema.NewRegistry(testutils.CourseForm())
	require.NoError(t, err)
	mgr := session.NewManager(reg, draft.New(memory.NewStore()), opts...)
	return NewServer(mgr, "test", nil)
}

func TestTools_FillForm(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	req := mcp.CallToolRequest{}

	out, err := s.handleGetDraft(ctx, req, map[string]interface{}{"form_id": "add_course"})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Step)
	assert.Equal(t, 3, out.TotalSteps)
	assert.Equal(t, []string{"title", "category", "cover"}, out.Fields)

	out, err = s.handleSaveDraft(ctx, req, map[string]interface{}{
		"form_id": "add_course",
		"values":  `{"title":"Go"}`,
	})
	require.NoError(t, err)
	assert.Equal(t, "Go", out.Values["title"])

	out, err = s.handleNextStep(ctx, req, map[string]interface{}{"form_id": "add_course"})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Step)
	assert.Contains(t, out.Errors, "category")

	out, err = s.handleNextStep(ctx, req, map[string]interface{}{
		"form_id": "add_course",
		"values":  map[string]interface{}{"category": "design"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Step)
	assert.Empty(t, out.Errors)
	assert.Equal(t, []string{"price", "payout_account"}, out.Fields)

	out, err = s.handlePreviousStep(ctx, req, map[string]interface{}{"form_id": "add_course"})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Step)

	out, err = s.handleClearDraft(ctx, req, map[string]interface{}{"form_id": "add_course"})
	require.NoError(t, err)
	assert.Empty(t, out.Values)
}

func TestTools_Submit(t *testing.T) {
	var got domain.Draft
	s := newTestServer(t, session.WithSubmitter(func(ctx context.Context, values domain.Draft) error {
		got = values
		return nil
	}))
	ctx := context.Background()

	values := map[string]interface{}(testutils.CourseValues())
	values["confirm_password"] = "different"
	out, err := s.handleSubmit(ctx, mcp.CallToolRequest{}, map[string]interface{}{"form_id": "add_course", "values": values})
	require.NoError(t, err)
	assert.False(t, out.Submitted)
	assert.Equal(t, 3, out.Step)
	assert.Equal(t, "Passwords do not match", out.Errors["confirm_password"])

	out, err = s.handleSubmit(ctx, mcp.CallToolRequest{}, map[string]interface{}{
		"form_id": "add_course",
		"values":  `{"confirm_password":"s3cretpass"}`,
	})
	require.NoError(t, err)
	assert.True(t, out.Submitted)
	assert.Equal(t, 1, out.Step)
	assert.Equal(t, "instructor@academy.io", got["email"])
}

func TestTools_SubmitFailure(t *testing.T) {
	s := newTestServer(t, session.WithSubmitter(func(ctx context.Context, values domain.Draft) error {
		return errors.New("rejected")
	}))

	_, err := s.handleSubmit(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{
		"form_id": "add_course",
		"values":  map[string]interface{}(testutils.CourseValues()),
	})
	assert.ErrorIs(t, err, domain.ErrSubmitFailed)
}

func TestTools_BadArguments(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, err := s.handleGetDraft(ctx, mcp.CallToolRequest{}, map[string]interface{}{})
	assert.ErrorContains(t, err, "form_id")

	_, err = s.handleGetDraft(ctx, mcp.CallToolRequest{}, map[string]interface{}{"form_id": "add_product"})
	assert.ErrorIs(t, err, domain.ErrFormNotFound)

	_, err = s.handleSaveDraft(ctx, mcp.CallToolRequest{}, map[string]interface{}{"form_id": "add_course", "values": "[1,2]"})
	assert.ErrorContains(t, err, "JSON object")

	_, err = s.handleSaveDraft(ctx, mcp.CallToolRequest{}, map[string]interface{}{"form_id": "add_course", "values": 42.0})
	assert.ErrorContains(t, err, "JSON object")
}

func TestFormsResource(t *testing.T) {
	s := newTestServer(t)

	contents, err := s.readForms(context.Background(), mcp.ReadResourceRequest{})
	require.NoError(t, err)
	require.Len(t, contents, 1)

	text, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, FormsURI, text.URI)
	assert.Contains(t, text.Text, `"id":"add_course"`)
}
