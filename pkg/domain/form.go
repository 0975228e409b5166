package domain

import (
	"fmt"
	"strings"
	"unicode"
)

// FieldType describes how a field is entered and stored.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldTextarea FieldType = "textarea"
	FieldNumber   FieldType = "number"
	FieldEmail    FieldType = "email"
	FieldPassword FieldType = "password"
	FieldSelect   FieldType = "select"
	FieldBool     FieldType = "bool"
	FieldFile     FieldType = "file" // Never persisted
)

// RuleKind names a validation rule.
type RuleKind string

const (
	RuleRequired  RuleKind = "required"
	RuleMin       RuleKind = "min"        // Numeric lower bound (inclusive)
	RuleMax       RuleKind = "max"        // Numeric upper bound (inclusive)
	RuleRange     RuleKind = "range"      // Both bounds
	RuleMinLength RuleKind = "min_length" // Characters
	RuleMaxLength RuleKind = "max_length"
	RulePattern   RuleKind = "pattern" // Regular expression, fully anchored
	RuleEmail     RuleKind = "email"
	RuleURL       RuleKind = "url"
	RuleEquals    RuleKind = "equals" // Must equal the sibling named by Rule.Field
	RuleOneOf     RuleKind = "one_of"
)

// Rule is one declarative check applied to a field.
// Only the parameters relevant to Kind are read.
type Rule struct {
	Kind    RuleKind `json:"kind" yaml:"kind"`
	Message string   `json:"message,omitempty" yaml:"message,omitempty"`
	Min     *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max     *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Pattern string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Field   string   `json:"field,omitempty" yaml:"field,omitempty"`
	Options []string `json:"options,omitempty" yaml:"options,omitempty"`
}

// Field is one input of a step.
type Field struct {
	Name  string    `json:"name" yaml:"name"`
	Label string    `json:"label,omitempty" yaml:"label,omitempty"`
	Type  FieldType `json:"type,omitempty" yaml:"type,omitempty"`
	// Transient fields are validated but never written to the draft store.
	Transient bool     `json:"transient,omitempty" yaml:"transient,omitempty"`
	Options   []string `json:"options,omitempty" yaml:"options,omitempty"`
	Rules     []Rule   `json:"rules,omitempty" yaml:"rules,omitempty"`
}

// IsTransient reports whether the field is excluded from persistence.
func (f Field) IsTransient() bool {
	return f.Transient || f.Type == FieldFile
}

// DisplayName returns the label, or the name when no label is set.
func (f Field) DisplayName() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}

// Step is one page of a multi-step form.
type Step struct {
	Title       string  `json:"title,omitempty" yaml:"title,omitempty"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
	Fields      []Field `json:"fields" yaml:"fields"`
}

// FieldNames returns the names of the step's fields in declaration order.
func (s Step) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Form is the full schema of a multi-step form.
type Form struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title,omitempty" yaml:"title,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Steps       []Step `json:"steps" yaml:"steps"`
}

// TotalSteps returns the number of declared steps.
func (f *Form) TotalSteps() int {
	return len(f.Steps)
}

// Step returns the 1-based step n.
func (f *Form) Step(n int) (Step, error) {
	if n < 1 || n > len(f.Steps) {
		return Step{}, fmt.Errorf("form '%s' has %d steps, got %d: %w", f.ID, len(f.Steps), n, ErrStepOutOfRange)
	}
	return f.Steps[n-1], nil
}

// ClampStep forces n into 1..TotalSteps.
func (f *Form) ClampStep(n int) int {
	if n > len(f.Steps) {
		n = len(f.Steps)
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Field looks a field up by name across all steps.
func (f *Form) Field(name string) (Field, bool) {
	for _, s := range f.Steps {
		for _, field := range s.Fields {
			if field.Name == name {
				return field, true
			}
		}
	}
	return Field{}, false
}

// TransientFields returns the names of all fields excluded from persistence.
func (f *Form) TransientFields() []string {
	var names []string
	for _, s := range f.Steps {
		for _, field := range s.Fields {
			if field.IsTransient() {
				names = append(names, field.Name)
			}
		}
	}
	return names
}

// Rule constructors for schemas declared in Go.

// Required fails on nil, empty strings, empty collections and false.
func Required(message string) Rule {
	return Rule{Kind: RuleRequired, Message: message}
}

// Range bounds a numeric value.
func Range(min, max float64, message string) Rule {
	return Rule{Kind: RuleRange, Min: &min, Max: &max, Message: message}
}

// Min sets a numeric lower bound.
func Min(min float64, message string) Rule {
	return Rule{Kind: RuleMin, Min: &min, Message: message}
}

// Max sets a numeric upper bound.
func Max(max float64, message string) Rule {
	return Rule{Kind: RuleMax, Max: &max, Message: message}
}

// MinLength sets a minimum length in characters.
func MinLength(n int, message string) Rule {
	v := float64(n)
	return Rule{Kind: RuleMinLength, Min: &v, Message: message}
}

// MaxLength sets a maximum length in characters.
func MaxLength(n int, message string) Rule {
	v := float64(n)
	return Rule{Kind: RuleMaxLength, Max: &v, Message: message}
}

// Pattern requires the whole value to match expr.
func Pattern(expr, message string) Rule {
	return Rule{Kind: RulePattern, Pattern: expr, Message: message}
}

// Email requires a syntactically valid e-mail address.
func Email(message string) Rule {
	return Rule{Kind: RuleEmail, Message: message}
}

// URL requires an absolute URL.
func URL(message string) Rule {
	return Rule{Kind: RuleURL, Message: message}
}

// Equals requires the value to equal the sibling field.
func Equals(field, message string) Rule {
	return Rule{Kind: RuleEquals, Field: field, Message: message}
}

// OneOf restricts the value to the given options.
func OneOf(options []string, message string) Rule {
	return Rule{Kind: RuleOneOf, Options: options, Message: message}
}

// ValidateFormID rejects identifiers that cannot be turned into storage keys.
func ValidateFormID(formID string) error {
	if formID == "" {
		return fmt.Errorf("%w: empty", ErrInvalidFormID)
	}
	if strings.ContainsAny(formID, `/\`) || strings.IndexFunc(formID, unicode.IsSpace) >= 0 {
		return fmt.Errorf("%w: %q", ErrInvalidFormID, formID)
	}
	return nil
}
