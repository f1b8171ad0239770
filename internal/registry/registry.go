// Package registry holds the versioned table of trial eligibility
// requirements. A Registry is built once, validated, and never mutated.
package registry

import (
	"sort"

	"github.com/trialscout-server/internal/domain"
)

// Document is the serialized form of a registry.
type Document struct {
	Version string                             `json:"version" yaml:"version"`
	Trials  map[string]domain.TrialRequirement `json:"trials" yaml:"trials"`
}

// Registry is an immutable set of trial requirements.
type Registry struct {
	version string
	source  string
	entries map[string]domain.TrialRequirement
	ids     []string
}

// New validates doc and builds a registry from a private copy of it.
func New(doc Document, source string) (*Registry, error) {
	if err := Validate(doc); err != nil {
		return nil, err
	}

	r := &Registry{
		version: doc.Version,
		source:  source,
		entries: make(map[string]domain.TrialRequirement, len(doc.Trials)),
		ids:     make([]string, 0, len(doc.Trials)),
	}
	for id, req := range doc.Trials {
		r.entries[id] = req.Clone()
		r.ids = append(r.ids, id)
	}
	sort.Strings(r.ids)
	return r, nil
}

// Lookup returns a copy of the requirement for id. When id is not
// registered it returns the empty requirement and false.
func (r *Registry) Lookup(id string) (domain.TrialRequirement, bool) {
	req, ok := r.entries[id]
	if !ok {
		return domain.TrialRequirement{}, false
	}
	return req.Clone(), true
}

// Version returns the registry document version.
func (r *Registry) Version() string {
	return r.version
}

// Source describes where the registry was loaded from.
func (r *Registry) Source() string {
	return r.source
}

// IDs returns the registered trial IDs in sorted order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.ids...)
}

// Len returns the number of registered trials.
func (r *Registry) Len() int {
	return len(r.ids)
}

// Document returns a copy of the registry in serializable form.
func (r *Registry) Document() Document {
	doc := Document{
		Version: r.version,
		Trials:  make(map[string]domain.TrialRequirement, len(r.entries)),
	}
	for id, req := range r.entries {
		doc.Trials[id] = req.Clone()
	}
	return doc
}
