package schema_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/aretw0/formdraft/internal/testutils"
	"github.com/aretw0/formdraft/pkg/domain"
	"github.com/aretw0/formdraft/pkg/schema"
	"github.com/aretw0/formdraft/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const couponYAML = `
title: Create coupon
steps:
  - title: Code
    fields:
      - name: code
        label: Code
        rules:
          - kind: required
            message: Code is required
          - kind: pattern
            pattern: "[A-Z0-9]{4,12}"
      - name: discount
        type: number
        rules:
          - kind: range
            min: 1
            max: 100
`

const affiliateJSON = `{
  "id": "affiliate_link",
  "steps": [
    {"fields": [
      {"name": "url", "rules": [{"kind": "required"}, {"kind": "url"}]}
    ]}
  ]
}`

func TestLoadFile_YAML(t *testing.T) {
	dir := testutils.WriteFiles(t, map[string]string{"coupon.yaml": couponYAML})

	form, err := schema.LoadFile(filepath.Join(dir, "coupon.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "coupon", form.ID, "id falls back to the file name")
	assert.Equal(t, "Create coupon", form.Title)
	require.Equal(t, 1, form.TotalSteps())

	discount, ok := form.Field("discount")
	require.True(t, ok)
	assert.Equal(t, domain.FieldNumber, discount.Type)
	require.Len(t, discount.Rules, 1)
	assert.Equal(t, 1.0, *discount.Rules[0].Min)
	assert.Equal(t, 100.0, *discount.Rules[0].Max)
}

func TestLoadFile_JSON(t *testing.T) {
	dir := testutils.WriteFiles(t, map[string]string{"links.json": affiliateJSON})

	form, err := schema.LoadFile(filepath.Join(dir, "links.json"))
	require.NoError(t, err)
	assert.Equal(t, "affiliate_link", form.ID)
}

func TestLoadFile_RejectsUnknownKeys(t *testing.T) {
	dir := testutils.WriteFiles(t, map[string]string{
		"bad.yaml": "steps:\n  - fields:\n      - name: a\n        rulez: []\n",
		"bad.json": `{"steps": [], "colour": "red"}`,
	})

	_, err := schema.LoadFile(filepath.Join(dir, "bad.yaml"))
	assert.ErrorContains(t, err, "rulez")

	_, err = schema.LoadFile(filepath.Join(dir, "bad.json"))
	assert.ErrorContains(t, err, "colour")
}

func TestLoadFile_Empty(t *testing.T) {
	dir := testutils.WriteFiles(t, map[string]string{"empty.yml": "  \n"})

	_, err := schema.LoadFile(filepath.Join(dir, "empty.yml"))
	var loadErr *schema.LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Contains(t, loadErr.Path, "empty.yml")
}

func TestLoadDir(t *testing.T) {
	dir := testutils.WriteFiles(t, map[string]string{
		"coupon.yaml":        couponYAML,
		"nested/links.json":  affiliateJSON,
		"README.md":          "# not a schema",
		"nested/ignored.txt": "id: nope",
	})

	reg, err := schema.LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())

	ids := []string{}
	for _, f := range reg.List() {
		ids = append(ids, f.ID)
	}
	assert.Equal(t, []string{"affiliate_link", "coupon"}, ids)
}

func TestLoadDir_CollectsAllErrors(t *testing.T) {
	dir := testutils.WriteFiles(t, map[string]string{
		"coupon.yaml":  couponYAML,
		"broken.yaml":  "steps: [",
		"nosteps.json": `{"id": "nosteps", "steps": []}`,
	})

	reg, err := schema.LoadDir(dir)
	require.Error(t, err)
	assert.Len(t, schema.LoadErrors(err), 2)

	var schemaErr *validation.SchemaError
	assert.True(t, errors.As(err, &schemaErr), "schema check failures are reachable through the aggregate")

	// Valid files are still available
	_, getErr := reg.Get("coupon")
	assert.NoError(t, getErr)
}

func TestLoadDir_MissingDir(t *testing.T) {
	_, err := schema.LoadDir(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
