// Package generator turns a template plus requirements into a playable game deliverable.
// Templates define the static HTML, CSS and JavaScript of each game kind.
package generator

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mrz1836/gamesmith/internal/domain"
	gserrors "github.com/mrz1836/gamesmith/internal/errors"
)

// Registry provides thread-safe access to game templates.
// Templates are stored by manifest id and listed in id order.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]*domain.Template
}

// NewRegistry creates a new empty template registry.
func NewRegistry() *Registry {
	return &Registry{
		templates: make(map[string]*domain.Template),
	}
}

// Get retrieves a template by id.
// Returns a clone of the template to prevent mutation of registry state.
// Returns ErrTemplateNotFound if the template doesn't exist.
func (r *Registry) Get(id string) (*domain.Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.templates[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", gserrors.ErrTemplateNotFound, id)
	}
	return t.Clone(), nil
}

// List returns all registered templates sorted by id.
// The returned templates are clones, safe to modify without affecting the registry.
func (r *Registry) List() []*domain.Template {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.Template, 0, len(r.templates))
	for _, t := range r.templates {
		result = append(result, t.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Manifest.ID < result[j].Manifest.ID
	})
	return result
}

// Manifests returns the manifests of all registered templates sorted by id.
func (r *Registry) Manifests() []domain.TemplateManifest {
	list := r.List()
	out := make([]domain.TemplateManifest, 0, len(list))
	for _, t := range list {
		out = append(out, t.Manifest)
	}
	return out
}

// Len returns the number of registered templates.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.templates)
}

// Register adds a template to the registry.
// Returns error if template is nil, has an empty id, or already exists.
func (r *Registry) Register(t *domain.Template) error {
	if err := checkTemplate(t); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.templates[t.Manifest.ID]; exists {
		return fmt.Errorf("%w: %s", gserrors.ErrTemplateDuplicate, t.Manifest.ID)
	}
	r.templates[t.Manifest.ID] = t.Clone()
	return nil
}

// RegisterOrReplace adds a template, replacing any existing template with the same id.
// Templates loaded from the configured templates directory use this to override the embedded ones.
func (r *Registry) RegisterOrReplace(t *domain.Template) error {
	if err := checkTemplate(t); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.templates[t.Manifest.ID] = t.Clone()
	return nil
}

func checkTemplate(t *domain.Template) error {
	if t == nil {
		return gserrors.ErrTemplateNil
	}
	if strings.TrimSpace(t.Manifest.ID) == "" {
		return fmt.Errorf("%w: template id %w", gserrors.ErrTemplateInvalid, gserrors.ErrEmptyValue)
	}
	return nil
}
