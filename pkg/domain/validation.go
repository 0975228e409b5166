package domain

import (
	"fmt"
	"sort"
	"strings"
)

// FieldErrors maps a field name to the message of its first failing rule.
// A field that is absent is valid.
type FieldErrors map[string]string

// Valid reports whether no field failed.
func (e FieldErrors) Valid() bool {
	return len(e) == 0
}

// Fields returns the names of the invalid fields, sorted.
func (e FieldErrors) Fields() []string {
	names := make([]string, 0, len(e))
	for name := range e {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidationError reports the invalid fields of one step.
type ValidationError struct {
	FormID string
	Step   int
	Errors FieldErrors
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("form '%s' step %d has invalid fields: %s", e.FormID, e.Step, strings.Join(e.Errors.Fields(), ", "))
}

// Unwrap lets callers match with errors.Is(err, ErrValidation).
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
