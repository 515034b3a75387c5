// Package sage provides the catalogue of council sages: the named voices a
// seeker may address a question to. Each sage pairs display metadata with the
// generation preamble used to flavor its answers.
//
// The built-in catalogue ships with the binary; a deployment can replace it
// with a YAML file (see Load).
package sage

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// Sage is one selectable voice. Immutable once registered.
type Sage struct {
	ID     string `yaml:"id" json:"id"`
	Name   string `yaml:"name" json:"name"`
	Title  string `yaml:"title" json:"title"`
	Prompt string `yaml:"prompt" json:"prompt"`
}

// Placeholder returns the fixed user-visible text substituted when this
// sage's generation fails. The text is stable product copy; callers compare
// against it to tell a served answer from a degraded one.
func (s *Sage) Placeholder() string {
	return fmt.Sprintf("%s is currently in deep meditation and unable to respond.", s.Name)
}

// Registry maps sage ids to their definitions. Lookup order is preserved
// from registration order. Safe for concurrent reads after construction.
type Registry struct {
	order []string
	byID  map[string]*Sage
}

// NewRegistry builds a registry from the given sages. Duplicate ids keep the
// first definition.
func NewRegistry(sages []Sage) *Registry {
	r := &Registry{byID: make(map[string]*Sage, len(sages))}
	for i := range sages {
		s := sages[i]
		if _, ok := r.byID[s.ID]; ok {
			continue
		}
		r.byID[s.ID] = &s
		r.order = append(r.order, s.ID)
	}
	return r
}

// Default returns a registry holding the built-in catalogue.
func Default() *Registry {
	return NewRegistry(builtin)
}

// Load reads a YAML sage catalogue from path and returns a registry over it.
//
// The file is a list of sage entries:
//
//	- id: lao-tzu
//	  name: Lao Tzu
//	  title: Founder of Taoism
//	  prompt: ...
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sage: read catalogue: %w", err)
	}
	var sages []Sage
	if err := yaml.Unmarshal(data, &sages); err != nil {
		return nil, fmt.Errorf("sage: parse catalogue: %w", err)
	}
	if len(sages) == 0 {
		return nil, fmt.Errorf("sage: catalogue %s is empty", path)
	}
	for _, s := range sages {
		if s.ID == "" || s.Name == "" || s.Prompt == "" {
			return nil, fmt.Errorf("sage: catalogue entry missing id, name or prompt: %+v", s)
		}
	}
	return NewRegistry(sages), nil
}

// Lookup returns the sage with the given id, or nil.
func (r *Registry) Lookup(id string) *Sage {
	return r.byID[id]
}

// All returns the catalogue in registration order.
func (r *Registry) All() []*Sage {
	out := make([]*Sage, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Len returns the number of registered sages.
func (r *Registry) Len() int {
	return len(r.order)
}

// Resolve maps the requested ids to known sages, preserving request order and
// collapsing duplicates. Unknown ids are returned separately so the caller
// can report them per sage rather than failing the whole request.
func (r *Registry) Resolve(ids []string) (resolved []*Sage, unknown []string) {
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if s := r.byID[id]; s != nil {
			resolved = append(resolved, s)
		} else {
			unknown = append(unknown, id)
		}
	}
	return resolved, unknown
}
