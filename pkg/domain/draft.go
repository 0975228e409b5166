package domain

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Draft maps field names to the values entered so far in one form.
// Only serializable values belong in a Draft; see FileRef.
type Draft map[string]any

// FileRef points at a file picked by the user (an upload, a local path).
// It is never persisted: callers re-attach files after a draft is restored.
type FileRef struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type,omitempty"`
}

// Snapshot is a draft together with the step it was left on.
type Snapshot struct {
	FormID string `json:"form_id"`
	Step   int    `json:"step"`
	Values Draft  `json:"values"`
}

// Clone returns a copy of the draft. Nested maps are copied recursively,
// other values are shared.
func (d Draft) Clone() Draft {
	if d == nil {
		return Draft{}
	}
	return Draft(deepCopyMap(d))
}

// Without returns a copy of the draft without the named fields.
func (d Draft) Without(names ...string) Draft {
	out := d.Clone()
	for _, name := range names {
		delete(out, name)
	}
	return out
}

// Has reports whether the field is present, even with an empty value.
func (d Draft) Has(name string) bool {
	_, ok := d[name]
	return ok
}

// Decode maps the draft onto a typed struct using `mapstructure` tags.
// Input is weakly typed: "42" decodes into an int field.
func (d Draft) Decode(target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return fmt.Errorf("failed to build draft decoder: %w", err)
	}
	if err := decoder.Decode(map[string]any(d)); err != nil {
		return fmt.Errorf("failed to decode draft: %w", err)
	}
	return nil
}

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch sub := v.(type) {
		case map[string]any:
			out[k] = deepCopyMap(sub)
		case Draft:
			out[k] = Draft(deepCopyMap(sub))
		case []any:
			cp := make([]any, len(sub))
			copy(cp, sub)
			out[k] = cp
		default:
			out[k] = v
		}
	}
	return out
}
