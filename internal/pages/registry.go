// Package pages provides the page factory used by the navigator.
//
// Pages are declared in configuration with their view parameters. A Registry
// hands out the declared page for an id; in non-strict mode an undeclared id
// yields a bare page with no view parameters.
package pages

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/solatis/waypoint/internal/navigation"
	"github.com/solatis/waypoint/internal/types"
)

// Page is a declared page. Immutable once registered.
type Page struct {
	ID     string
	Flow   string // composite flow the page belongs to, "" = none
	Params []navigation.ViewParam
}

// PageID returns the page id.
func (p *Page) PageID() string { return p.ID }

// ViewParams returns the declared view parameters in declaration order.
func (p *Page) ViewParams() []navigation.ViewParam { return p.Params }

// Registry is a read-only set of declared pages. Safe for concurrent use.
type Registry struct {
	strict bool
	pages  map[string]*Page
}

// NewRegistry builds a registry. Duplicate or empty page ids and view
// parameters with reserved or empty names are configuration errors.
func NewRegistry(strict bool, declared ...Page) (*Registry, error) {
	r := &Registry{strict: strict, pages: make(map[string]*Page, len(declared))}
	for i := range declared {
		p := declared[i]
		p.ID = strings.TrimSpace(p.ID)
		if p.ID == "" {
			return nil, fmt.Errorf("%w: page %d has no id", types.ErrConfiguration, i)
		}
		if _, dup := r.pages[p.ID]; dup {
			return nil, fmt.Errorf("%w: page %q declared twice", types.ErrConfiguration, p.ID)
		}
		seen := make(map[string]bool, len(p.Params))
		for _, vp := range p.Params {
			switch {
			case vp.Name == "":
				return nil, fmt.Errorf("%w: page %q: %w", types.ErrConfiguration, p.ID, types.ErrEmptyParameterName)
			case types.IsReservedParam(vp.Name):
				return nil, fmt.Errorf("%w: page %q: view parameter %q: %w", types.ErrConfiguration, p.ID, vp.Name, types.ErrReservedParameter)
			case seen[vp.Name]:
				return nil, fmt.Errorf("%w: page %q: view parameter %q: %w", types.ErrConfiguration, p.ID, vp.Name, types.ErrDuplicateParameter)
			}
			seen[vp.Name] = true
		}
		p.Params = append([]navigation.ViewParam(nil), p.Params...)
		r.pages[p.ID] = &p
	}
	return r, nil
}

// CreateOrRestore returns the declared page for pageID. Undeclared ids fail
// with types.ErrPageNotFound in strict mode.
func (r *Registry) CreateOrRestore(_ context.Context, pageID string) (navigation.PageHandle, error) {
	if p, ok := r.pages[pageID]; ok {
		return p, nil
	}
	if r.strict {
		return nil, fmt.Errorf("%w: %q", types.ErrPageNotFound, pageID)
	}
	return &Page{ID: pageID}, nil
}

// Lookup returns the declared page for id.
func (r *Registry) Lookup(id string) (*Page, bool) {
	p, ok := r.pages[id]
	return p, ok
}

// IDs returns the declared page ids in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.pages))
	for id := range r.pages {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Strict reports whether undeclared pages are rejected.
func (r *Registry) Strict() bool {
	return r.strict
}
