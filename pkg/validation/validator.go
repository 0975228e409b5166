package validation

import (
	"regexp"
	"sync"

	"github.com/aretw0/formdraft/pkg/domain"
	"github.com/go-playground/validator/v10"
)

// Validator applies field rules. The zero value is not usable; use New.
type Validator struct {
	validate *validator.Validate
	patterns sync.Map // string -> *regexp.Regexp or error
}

// New creates a Validator.
func New() *Validator {
	return &Validator{
		validate: validator.New(),
	}
}

var std = New()

// ValidateStep validates fields against values with the package validator.
func ValidateStep(fields []domain.Field, values domain.Draft) domain.FieldErrors {
	return std.ValidateStep(fields, values)
}

// ValidateForm validates every step of form with the package validator.
func ValidateForm(form *domain.Form, values domain.Draft) map[int]domain.FieldErrors {
	return std.ValidateForm(form, values)
}

// ValidateStep checks every declared field and returns the first failing
// rule message per field. An empty map means the step is valid.
func (v *Validator) ValidateStep(fields []domain.Field, values domain.Draft) domain.FieldErrors {
	errs := domain.FieldErrors{}
	labels := labelIndex(fields)
	for _, f := range fields {
		if msg := v.checkField(f, values, labels); msg != "" {
			errs[f.Name] = msg
		}
	}
	return errs
}

// ValidateForm returns the errors of every invalid step, keyed by step number.
func (v *Validator) ValidateForm(form *domain.Form, values domain.Draft) map[int]domain.FieldErrors {
	out := make(map[int]domain.FieldErrors)
	for i, step := range form.Steps {
		if errs := v.ValidateStep(step.Fields, values); !errs.Valid() {
			out[i+1] = errs
		}
	}
	return out
}

// FirstInvalidStep returns the lowest step number with errors, or 0.
func FirstInvalidStep(byStep map[int]domain.FieldErrors) int {
	first := 0
	for n := range byStep {
		if first == 0 || n < first {
			first = n
		}
	}
	return first
}

func (v *Validator) checkField(f domain.Field, values domain.Draft, labels map[string]string) string {
	value := values[f.Name]
	empty := isEmpty(value)

	for _, r := range f.Rules {
		switch r.Kind {
		case domain.RuleRequired:
			if empty {
				return message(r, "%s is required", f.DisplayName())
			}
			continue
		case domain.RuleEquals:
			// Runs on empty values too: an empty confirmation never matches a password
			if msg := v.checkEquals(f, r, value, values, labels); msg != "" {
				return msg
			}
			continue
		}

		if empty {
			continue
		}
		if msg := v.apply(f, r, value); msg != "" {
			return msg
		}
	}
	return ""
}

func (v *Validator) pattern(expr string) (*regexp.Regexp, error) {
	if cached, ok := v.patterns.Load(expr); ok {
		if re, ok := cached.(*regexp.Regexp); ok {
			return re, nil
		}
		return nil, cached.(error)
	}

	re, err := compilePattern(expr)
	if err != nil {
		v.patterns.Store(expr, err)
		return nil, err
	}
	v.patterns.Store(expr, re)
	return re, nil
}

func compilePattern(expr string) (*regexp.Regexp, error) {
	return regexp.Compile(`^(?:` + expr + `)$`)
}

func labelIndex(fields []domain.Field) map[string]string {
	labels := make(map[string]string, len(fields))
	for _, f := range fields {
		labels[f.Name] = f.DisplayName()
	}
	return labels
}
