package validation

import (
	"errors"
	"fmt"

	"github.com/aretw0/formdraft/pkg/domain"
)

var knownRules = map[domain.RuleKind]bool{
	domain.RuleRequired:  true,
	domain.RuleMin:       true,
	domain.RuleMax:       true,
	domain.RuleRange:     true,
	domain.RuleMinLength: true,
	domain.RuleMaxLength: true,
	domain.RulePattern:   true,
	domain.RuleEmail:     true,
	domain.RuleURL:       true,
	domain.RuleEquals:    true,
	domain.RuleOneOf:     true,
}

// SchemaError lists every problem found in one form schema.
type SchemaError struct {
	FormID string
	Issues []string
}

func (e *SchemaError) Error() string {
	msg := fmt.Sprintf("form '%s' has %d schema issue(s):", e.FormID, len(e.Issues))
	for _, issue := range e.Issues {
		msg += "\n- " + issue
	}
	return msg
}

// CheckSchema statically checks a form: IDs, empty steps, duplicate field
// names, unknown rule kinds, missing rule parameters, invalid patterns and
// equals rules pointing at fields that do not exist.
func CheckSchema(form *domain.Form) error {
	if form == nil {
		return errors.New("form schema is nil")
	}

	var issues []string
	if err := domain.ValidateFormID(form.ID); err != nil {
		issues = append(issues, err.Error())
	}
	if len(form.Steps) == 0 {
		issues = append(issues, "form has no steps")
	}

	seen := make(map[string]int)
	for i, step := range form.Steps {
		n := i + 1
		if len(step.Fields) == 0 {
			issues = append(issues, fmt.Sprintf("step %d has no fields", n))
		}
		for _, f := range step.Fields {
			if f.Name == "" {
				issues = append(issues, fmt.Sprintf("step %d has a field without a name", n))
				continue
			}
			if prev, dup := seen[f.Name]; dup {
				issues = append(issues, fmt.Sprintf("field '%s' declared in step %d and step %d", f.Name, prev, n))
				continue
			}
			seen[f.Name] = n
		}
	}

	for i, step := range form.Steps {
		for _, f := range step.Fields {
			for _, r := range f.Rules {
				if issue := checkRule(f, r, seen); issue != "" {
					issues = append(issues, fmt.Sprintf("step %d field '%s': %s", i+1, f.Name, issue))
				}
			}
		}
	}

	if len(issues) > 0 {
		return &SchemaError{FormID: form.ID, Issues: issues}
	}
	return nil
}

func checkRule(f domain.Field, r domain.Rule, fields map[string]int) string {
	if !knownRules[r.Kind] {
		return fmt.Sprintf("unknown rule '%s'", r.Kind)
	}

	switch r.Kind {
	case domain.RuleMin, domain.RuleMinLength:
		if r.Min == nil {
			return fmt.Sprintf("rule '%s' needs min", r.Kind)
		}
	case domain.RuleMax, domain.RuleMaxLength:
		if r.Max == nil {
			return fmt.Sprintf("rule '%s' needs max", r.Kind)
		}
	case domain.RuleRange:
		if r.Min == nil || r.Max == nil {
			return "rule 'range' needs min and max"
		}
		if *r.Min > *r.Max {
			return "rule 'range' has min greater than max"
		}
	case domain.RulePattern:
		if r.Pattern == "" {
			return "rule 'pattern' needs a pattern"
		}
		if _, err := compilePattern(r.Pattern); err != nil {
			return fmt.Sprintf("invalid pattern: %v", err)
		}
	case domain.RuleEquals:
		if r.Field == "" {
			return "rule 'equals' needs field"
		}
		if r.Field == f.Name {
			return "rule 'equals' refers to the field itself"
		}
		if _, ok := fields[r.Field]; !ok {
			return fmt.Sprintf("rule 'equals' refers to unknown field '%s'", r.Field)
		}
	case domain.RuleOneOf:
		if len(r.Options) == 0 && len(f.Options) == 0 {
			return "rule 'one_of' needs options"
		}
	}
	return ""
}
