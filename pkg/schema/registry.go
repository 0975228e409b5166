package schema

import (
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/formdraft/pkg/domain"
	"github.com/aretw0/formdraft/pkg/validation"
)

// Registry holds form schemas by ID. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	forms map[string]*domain.Form
}

// NewRegistry creates a registry holding forms. It fails on the first form
// that does not pass CheckSchema or reuses an ID.
func NewRegistry(forms ...*domain.Form) (*Registry, error) {
	r := &Registry{forms: make(map[string]*domain.Form)}
	for _, f := range forms {
		if err := r.Register(f); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register checks form and adds it.
func (r *Registry) Register(form *domain.Form) error {
	if form == nil {
		return fmt.Errorf("cannot register a nil form")
	}
	if err := validation.CheckSchema(form); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.forms[form.ID]; exists {
		return fmt.Errorf("form '%s' is already registered", form.ID)
	}
	r.forms[form.ID] = form
	return nil
}

// Get returns the form with the given ID or domain.ErrFormNotFound.
func (r *Registry) Get(id string) (*domain.Form, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	form, ok := r.forms[id]
	if !ok {
		return nil, fmt.Errorf("form '%s': %w", id, domain.ErrFormNotFound)
	}
	return form, nil
}

// List returns every form sorted by ID.
func (r *Registry) List() []*domain.Form {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Form, 0, len(r.forms))
	for _, f := range r.forms {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of registered forms.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.forms)
}
