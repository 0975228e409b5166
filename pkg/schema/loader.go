package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/formdraft/pkg/domain"
	"gopkg.in/yaml.v3"
)

// IsSchemaFile reports whether path has a schema extension.
func IsSchemaFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// Parse decodes one form. Unknown keys are rejected so that typos in rule
// names surface at load time.
func Parse(data []byte, format string) (*domain.Form, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("file is empty")
	}

	var form domain.Form
	switch strings.TrimPrefix(strings.ToLower(format), ".") {
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&form); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
	case "yaml", "yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&form); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("invalid YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported schema format '%s'", format)
	}
	return &form, nil
}

// LoadFile reads and parses a schema file. The file name stem is used when
// the document has no id.
func LoadFile(path string) (*domain.Form, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	form, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	if form.ID == "" {
		form.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return form, nil
}

// LoadDir loads every schema file below dir into a new Registry. All broken
// files are reported together in an *AggregateError.
func LoadDir(dir string) (*Registry, error) {
	reg, _ := NewRegistry()

	var errs []error
	walkErr := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || !IsSchemaFile(path) {
			return nil
		}

		form, err := LoadFile(path)
		if err != nil {
			errs = append(errs, err)
			return nil
		}
		if err := reg.Register(form); err != nil {
			errs = append(errs, &LoadError{Path: path, Err: err})
		}
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("failed to read schema dir %s: %w", dir, walkErr)
	}
	if len(errs) > 0 {
		return reg, &AggregateError{Errors: errs}
	}
	return reg, nil
}
