// Package types provides domain models shared across waypoint components.
//
// Wire-format agnostic: the gRPC layer converts structpb messages into these
// types at the API boundary, and the config and database loaders produce them
// from their own formats. Nothing here depends on a transport or a store.
//
// ID utilities in ids.go import uuid; everything else is standard library only.
package types

// RuleID identifies a declared navigation rule (UUIDv7).
// Several RuleIDs may share one rule key; their cases are merged at load.
type RuleID string

// EventID identifies one recorded navigation (UUIDv7).
type EventID string

// SessionID identifies a client session whose current page is remembered
// between requests.
type SessionID string

// Reserved directive names. They control transition semantics and are never
// emitted as parameters.
const (
	DirectiveRedirect              = "faces-redirect"
	DirectiveIncludeViewParams     = "includeViewParams"
	DirectiveIncludeViewParamsLong = "faces-include-view-params"
)

// IsReservedParam reports whether name is a directive control name.
func IsReservedParam(name string) bool {
	switch name {
	case DirectiveRedirect, DirectiveIncludeViewParams, DirectiveIncludeViewParamsLong:
		return true
	}
	return false
}

// Resource limits enforced when rules are compiled.
const (
	// MaxKeyLength bounds a rule key (page id or wildcard pattern).
	MaxKeyLength = 1024

	// MaxCasesPerKey bounds the merged case list of a single rule key.
	// Resolution scans every case of a candidate rule.
	MaxCasesPerKey = 4096

	// MaxParameters bounds the distinct parameter names on one case.
	MaxParameters = 64

	// MaxParameterValues bounds the values carried by a single parameter name.
	MaxParameterValues = 64
)
