// Package compiler turns operator-authored templates into tool and variable
// records.
package compiler

import (
	"time"

	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/domain"
	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/ident"
	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/template"
)

// Registry allocates one variable id per distinct name for a single tool
// build. Ids are allocated before the owning tool exists; Bind stamps the
// tool id afterwards.
type Registry struct {
	ids          ident.Generator
	order        []string
	byName       map[string]string
	descriptions map[string]string
}

// NewRegistry creates an empty registry.
func NewRegistry(ids ident.Generator) *Registry {
	return &Registry{
		ids:          ids,
		byName:       make(map[string]string),
		descriptions: make(map[string]string),
	}
}

// Collect allocates ids for every placeholder in url, then each query
// value in order, then body.
func (r *Registry) Collect(url string, queryValues []string, body string) {
	tpls := make([]string, 0, len(queryValues)+2)
	tpls = append(tpls, url)
	tpls = append(tpls, queryValues...)
	tpls = append(tpls, body)
	for _, name := range template.NamesIn(tpls...) {
		r.Allocate(name)
	}
}

// Allocate returns the id for name, allocating it on first use.
func (r *Registry) Allocate(name string) string {
	if id, ok := r.byName[name]; ok {
		return id
	}
	id := r.ids.NewID()
	r.byName[name] = id
	r.order = append(r.order, name)
	return id
}

// Describe attaches a description to an allocated name. Unknown names are ignored.
func (r *Registry) Describe(name, description string) {
	if _, ok := r.byName[name]; ok {
		r.descriptions[name] = description
	}
}

// DescribeAll applies Describe for each entry.
func (r *Registry) DescribeAll(descriptions map[string]string) {
	for name, d := range descriptions {
		r.Describe(name, d)
	}
}

// ID returns the id allocated for name.
func (r *Registry) ID(name string) (string, bool) {
	id, ok := r.byName[name]
	return id, ok
}

// Names returns allocated names in first-seen order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Len returns the number of allocated variables.
func (r *Registry) Len() int {
	return len(r.order)
}

// Lookup returns a copy of the name -> id map for the tokenizer.
func (r *Registry) Lookup() map[string]string {
	out := make(map[string]string, len(r.byName))
	for k, v := range r.byName {
		out[k] = v
	}
	return out
}

// Bind produces the variable records owned by toolID.
func (r *Registry) Bind(toolID string, creatorID int, now time.Time) []domain.Variable {
	ts := domain.Timestamp(now)
	vars := make([]domain.Variable, 0, len(r.order))
	for _, name := range r.order {
		vars = append(vars, domain.Variable{
			ID:          r.byName[name],
			Name:        name,
			APIToolID:   toolID,
			Description: r.descriptions[name],
			Datatype:    domain.DatatypeText,
			CreatedAt:   ts,
			UpdatedAt:   ts,
			CreatedByID: creatorID,
			UpdatedByID: creatorID,
		})
	}
	return vars
}
