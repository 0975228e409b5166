package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/formdraft/pkg/domain"
	"github.com/stretchr/testify/require"
)

// CourseForm returns a three step "add course" form: basics, pricing, instructor account.
func CourseForm() *domain.Form {
	return &domain.Form{
		ID:    "add_course",
		Title: "Add course",
		Steps: []domain.Step{
			{
				Title: "Basics",
				Fields: []domain.Field{
					{Name: "title", Label: "Title", Rules: []domain.Rule{domain.Required("Title is required"), domain.MaxLength(80, "")}},
					{Name: "category", Label: "Category", Options: []string{"programming", "design"}, Rules: []domain.Rule{domain.Required(""), domain.OneOf(nil, "")}},
					{Name: "cover", Label: "Cover image", Type: domain.FieldFile},
				},
			},
			{
				Title: "Pricing",
				Fields: []domain.Field{
					{Name: "price", Label: "Price", Type: domain.FieldNumber, Rules: []domain.Rule{domain.Required(""), domain.Range(0, 10000, "")}},
					{Name: "payout_account", Label: "Bank account", Rules: []domain.Rule{domain.Pattern(`\d{8,12}`, "Bank account must be 8 to 12 digits")}},
				},
			},
			{
				Title: "Instructor",
				Fields: []domain.Field{
					{Name: "email", Label: "Email", Type: domain.FieldEmail, Rules: []domain.Rule{domain.Required(""), domain.Email("")}},
					{Name: "password", Label: "Password", Type: domain.FieldPassword, Rules: []domain.Rule{domain.Required(""), domain.MinLength(8, "")}},
					{Name: "confirm_password", Label: "Confirm password", Type: domain.FieldPassword, Rules: []domain.Rule{domain.Equals("password", "Passwords do not match")}},
				},
			},
		},
	}
}

// CourseValues returns values that pass every step of CourseForm.
func CourseValues() domain.Draft {
	return domain.Draft{
		"title":            "Go for backend developers",
		"category":         "programming",
		"price":            49.0,
		"payout_account":   "12345678",
		"email":            "instructor@academy.io",
		"password":         "s3cretpass",
		"confirm_password": "s3cretpass",
	}
}

// WriteFiles writes name -> content files into a fresh temp dir and returns it.
func WriteFiles(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644), "Failed to write %s", name)
	}
	return dir
}
