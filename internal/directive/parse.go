// Package directive parses and renders the navigation directive dialect.
//
// An outcome or target string has the form
//
//	<pageId>[?name=value[(&|&amp;)name=value]*]
//
// The names faces-redirect, includeViewParams and faces-include-view-params
// control the transition and never become parameters. Every other pair is
// collected into an ordered multi-valued parameter map.
//
// Parsing never fails: a pair without '=' or with an empty name is dropped.
package directive

import (
	"strings"

	"github.com/solatis/waypoint/internal/types"
)

const (
	querySep      = "?"
	pairSep       = "&"
	escapedSep    = "&amp;"
	valueSep      = "="
	reservedValue = "true"
)

// Parse splits s into a page id and its directive query.
// A string without '?' is returned as the page id with no flags or params.
func Parse(s string) types.Target {
	pageID, query, found := strings.Cut(s, querySep)
	if !found {
		return types.Target{PageID: s}
	}

	t := types.Target{PageID: pageID}
	query = strings.ReplaceAll(query, escapedSep, pairSep)
	for _, pair := range strings.Split(query, pairSep) {
		name, value, ok := strings.Cut(pair, valueSep)
		if !ok || name == "" {
			continue
		}

		switch name {
		case types.DirectiveRedirect:
			if strings.EqualFold(value, reservedValue) {
				t.Redirect = true
			}
		case types.DirectiveIncludeViewParams, types.DirectiveIncludeViewParamsLong:
			if value == reservedValue {
				t.IncludeViewParams = true
			}
		default:
			t.Params.Add(name, value)
		}
	}
	return t
}

// Format renders t back into the directive dialect. Parameters come first in
// their stored order, followed by any set control flags.
func Format(t types.Target) string {
	var b strings.Builder
	b.WriteString(t.PageID)

	sep := querySep
	write := func(name, value string) {
		b.WriteString(sep)
		b.WriteString(name)
		b.WriteString(valueSep)
		b.WriteString(value)
		sep = pairSep
	}

	for _, p := range t.Params {
		for _, v := range p.Values {
			write(p.Name, v)
		}
	}
	if t.Redirect {
		write(types.DirectiveRedirect, reservedValue)
	}
	if t.IncludeViewParams {
		write(types.DirectiveIncludeViewParams, reservedValue)
	}
	return b.String()
}
