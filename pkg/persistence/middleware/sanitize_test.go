package middleware_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/aretw0/formdraft/pkg/adapters/memory"
	"github.com/aretw0/formdraft/pkg/persistence/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeMiddleware_StripsMarkup(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewStore()
	store := middleware.NewSanitizeMiddleware(nil)(underlying)

	draft := `{"title":"<b>Go</b> 101","about":"Tom & Jerry","price":49,"tags":["<i>web</i>","go"],"seo":{"slug":"<a href=\"x\">go-101</a>"}}`
	require.NoError(t, store.SetMany(ctx, map[string]string{
		"course_draft": draft,
		"course_step":  "1",
	}))

	raw, err := underlying.Get(ctx, "course_draft")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &got))
	assert.Equal(t, "Go 101", got["title"])
	assert.Equal(t, "Tom & Jerry", got["about"], "plain text round-trips")
	assert.Equal(t, 49.0, got["price"])
	assert.Equal(t, []any{"web", "go"}, got["tags"])
	assert.Equal(t, "go-101", got["seo"].(map[string]any)["slug"])

	step, err := underlying.Get(ctx, "course_step")
	require.NoError(t, err)
	assert.Equal(t, "1", step)
}

func TestChain_OrderSanitizeThenEncrypt(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewStore()
	key := make([]byte, 32)
	store := middleware.Chain(underlying,
		middleware.NewSanitizeMiddleware(nil),
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}),
	)

	require.NoError(t, store.SetMany(ctx, map[string]string{"course_draft": `{"title":"<b>Go</b>"}`}))

	raw, err := underlying.Get(ctx, "course_draft")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(raw, "enc:v1:"))
	assert.NotContains(t, raw, "{")

	val, err := store.Get(ctx, "course_draft")
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Go"}`, val)
}
