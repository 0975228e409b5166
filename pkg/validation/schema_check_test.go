package validation_test

import (
	"errors"
	"testing"

	"github.com/aretw0/formdraft/pkg/domain"
	"github.com/aretw0/formdraft/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckSchema_Valid(t *testing.T) {
	form := &domain.Form{
		ID: "signup",
		Steps: []domain.Step{
			{Fields: signupFields},
		},
	}
	assert.NoError(t, validation.CheckSchema(form))
}

func TestCheckSchema_ReportsAllIssues(t *testing.T) {
	form := &domain.Form{
		ID: "bad form",
		Steps: []domain.Step{
			{Fields: []domain.Field{
				{Name: "a", Rules: []domain.Rule{{Kind: "luhn"}}},
				{Name: "b", Rules: []domain.Rule{{Kind: domain.RulePattern, Pattern: "(["}}},
				{Name: "c", Rules: []domain.Rule{domain.Equals("ghost", "")}},
				{Name: "d", Rules: []domain.Rule{{Kind: domain.RuleRange}}},
			}},
			{Fields: []domain.Field{{Name: "a"}}},
			{},
		},
	}

	err := validation.CheckSchema(form)
	require.Error(t, err)

	var schemaErr *validation.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Len(t, schemaErr.Issues, 7)
	assert.Contains(t, err.Error(), "unknown rule 'luhn'")
	assert.Contains(t, err.Error(), "unknown field 'ghost'")
	assert.Contains(t, err.Error(), "field 'a' declared in step 1 and step 2")
	assert.Contains(t, err.Error(), "step 3 has no fields")
}
