package middleware

import (
	"context"
	"html"

	"github.com/aretw0/formdraft/pkg/ports"
	"github.com/microcosm-cc/bluemonday"
)

type sanitizeMiddleware struct {
	next   ports.KVStore
	policy *bluemonday.Policy
}

// NewSanitizeMiddleware strips markup from every string value of a draft
// before it is written. Plain text, including "&" and "<" used as text,
// round-trips unchanged. A nil policy means bluemonday.StrictPolicy.
func NewSanitizeMiddleware(policy *bluemonday.Policy) Middleware {
	if policy == nil {
		policy = bluemonday.StrictPolicy()
	}
	return func(next ports.KVStore) ports.KVStore {
		return &sanitizeMiddleware{next: next, policy: policy}
	}
}

func (m *sanitizeMiddleware) Get(ctx context.Context, key string) (string, error) {
	return m.next.Get(ctx, key)
}

func (m *sanitizeMiddleware) SetMany(ctx context.Context, entries map[string]string) error {
	clean := make(map[string]string, len(entries))
	for k, v := range entries {
		clean[k] = rewriteObject(v, m.sanitizeMap)
	}
	return m.next.SetMany(ctx, clean)
}

func (m *sanitizeMiddleware) Delete(ctx context.Context, keys ...string) error {
	return m.next.Delete(ctx, keys...)
}

func (m *sanitizeMiddleware) Keys(ctx context.Context, prefix string) ([]string, error) {
	return m.next.Keys(ctx, prefix)
}

func (m *sanitizeMiddleware) sanitizeMap(obj map[string]any) {
	for k, v := range obj {
		obj[k] = m.sanitizeValue(v)
	}
}

func (m *sanitizeMiddleware) sanitizeValue(v any) any {
	switch val := v.(type) {
	case string:
		// bluemonday escapes its output; undo that so plain text survives
		return html.UnescapeString(m.policy.Sanitize(val))
	case map[string]any:
		m.sanitizeMap(val)
		return val
	case []any:
		for i := range val {
			val[i] = m.sanitizeValue(val[i])
		}
		return val
	default:
		return v
	}
}
