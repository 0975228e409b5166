package validation

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/aretw0/formdraft/pkg/domain"
	"github.com/spf13/cast"
)

func (v *Validator) apply(f domain.Field, r domain.Rule, value any) string {
	label := f.DisplayName()

	switch r.Kind {
	case domain.RuleMin, domain.RuleMax, domain.RuleRange:
		n, ok := toNumber(value)
		if !ok {
			return message(r, "%s must be a number", label)
		}
		return checkBounds(r, n, label)

	case domain.RuleMinLength:
		if r.Min != nil && float64(length(value)) < *r.Min {
			return message(r, "%s must be at least %s characters", label, formatNumber(*r.Min))
		}
	case domain.RuleMaxLength:
		if r.Max != nil && float64(length(value)) > *r.Max {
			return message(r, "%s must be at most %s characters", label, formatNumber(*r.Max))
		}

	case domain.RulePattern:
		re, err := v.pattern(r.Pattern)
		if err != nil {
			return message(r, "%s cannot be checked: invalid pattern", label)
		}
		s, ok := value.(string)
		if !ok || !re.MatchString(s) {
			return message(r, "%s has an invalid format", label)
		}

	case domain.RuleEmail:
		s, ok := value.(string)
		if !ok || v.validate.Var(s, "required,email") != nil {
			return message(r, "%s must be a valid email address", label)
		}
	case domain.RuleURL:
		s, ok := value.(string)
		if !ok || v.validate.Var(s, "required,url") != nil {
			return message(r, "%s must be a valid URL", label)
		}

	case domain.RuleOneOf:
		options := r.Options
		if len(options) == 0 {
			options = f.Options
		}
		if !within(value, options) {
			return message(r, "%s must be one of: %s", label, strings.Join(options, ", "))
		}

	default:
		return message(r, "%s has an unknown rule '%s'", label, r.Kind)
	}
	return ""
}

func (v *Validator) checkEquals(f domain.Field, r domain.Rule, value any, values domain.Draft, labels map[string]string) string {
	other := labels[r.Field]
	if other == "" {
		other = r.Field
	}
	sibling, ok := values[r.Field]
	if !ok || r.Field == "" {
		return message(r, "%s must match %s", f.DisplayName(), other)
	}
	if !equal(value, sibling) {
		return message(r, "%s must match %s", f.DisplayName(), other)
	}
	return ""
}

func checkBounds(r domain.Rule, n float64, label string) string {
	lowOK := r.Min == nil || n >= *r.Min
	highOK := r.Max == nil || n <= *r.Max

	switch {
	case r.Kind == domain.RuleRange && (!lowOK || !highOK):
		return message(r, "%s must be between %s and %s", label, bound(r.Min), bound(r.Max))
	case !lowOK:
		return message(r, "%s must be at least %s", label, formatNumber(*r.Min))
	case !highOK:
		return message(r, "%s must be at most %s", label, formatNumber(*r.Max))
	}
	return ""
}

// message returns the rule's own message, or the formatted default.
func message(r domain.Rule, format string, args ...any) string {
	if r.Message != "" {
		return r.Message
	}
	return fmt.Sprintf(format, args...)
}

func isEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case bool:
		return !val
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func toNumber(v any) (float64, bool) {
	switch val := v.(type) {
	case bool:
		return 0, false
	case string:
		val = strings.TrimSpace(val)
		if val == "" {
			return 0, false
		}
		v = val
	}
	n, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func length(v any) int {
	if s, ok := v.(string); ok {
		return utf8.RuneCountInString(s)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len()
	}
	return utf8.RuneCountInString(cast.ToString(v))
}

func within(v any, options []string) bool {
	if items, ok := v.([]any); ok {
		for _, item := range items {
			if !within(item, options) {
				return false
			}
		}
		return true
	}
	s := cast.ToString(v)
	for _, o := range options {
		if o == s {
			return true
		}
	}
	return false
}

func equal(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	return cast.ToString(a) == cast.ToString(b) && cast.ToString(a) != ""
}

func bound(p *float64) string {
	if p == nil {
		return "any"
	}
	return formatNumber(*p)
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
