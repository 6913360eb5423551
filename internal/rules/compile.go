// internal/rules/compile.go
package rules

import (
	"sort"
	"strings"

	"github.com/solatis/waypoint/internal/types"
)

/*
 * Rule compilation and validation.
 *
 * Compiles types.Rule to CompiledRule with a classified key, validated
 * resource limits, and per-case specificity scores.
 *
 * Compilation workflow:
 *   1. Classify key (exact, wildcard prefix, global) and validate its shape
 *   2. Validate each case (target present, parameter names and limits)
 *   3. Assign declaration ordinals and static specificity to each case
 *   4. Order cases by ordinal so diagnostics are stable
 *
 * Ordinals are the tie-breaker between equally specific cases. They are fixed
 * here and carried through merges, so selection never depends on where a case
 * sits in any slice or map.
 *
 * Specificity is static: a case that survives filtering has matched every
 * criterion it declares, so the score depends only on which criteria are set.
 */

// KeyKind classifies a rule key.
type KeyKind int

const (
	KeyExact KeyKind = iota
	KeyWildcard
	KeyGlobal
)

func (k KeyKind) String() string {
	switch k {
	case KeyExact:
		return "exact"
	case KeyWildcard:
		return "wildcard"
	case KeyGlobal:
		return "global"
	default:
		return "unknown"
	}
}

// GlobalKey is the canonical key of the global rule.
const GlobalKey = "*"

// CompiledCase is a validated case ready for resolution.
type CompiledCase struct {
	types.Case
	RuleKey     string // canonical key of the owning rule
	Ordinal     int    // load-time declaration position within the rule key
	Specificity int    // static score, see Specificity
}

// CompiledRule is a validated rule ready for lookup.
type CompiledRule struct {
	Key     string // canonical key ("*" for global)
	Kind    KeyKind
	Prefix  string // wildcard prefix; empty for exact and global
	RuleIDs []types.RuleID
	Cases   []*CompiledCase // ordered by Ordinal
}

// ParseKey classifies a rule key and returns its canonical form and wildcard prefix.
// "" and "*" are global; "prefix*" is a wildcard; anything else is exact.
func ParseKey(key string) (canonical string, kind KeyKind, prefix string, err error) {
	key = strings.TrimSpace(key)
	if len(key) > types.MaxKeyLength {
		return "", 0, "", types.ErrKeyTooLong
	}
	if key == "" || key == GlobalKey {
		return GlobalKey, KeyGlobal, "", nil
	}

	star := strings.IndexByte(key, '*')
	switch {
	case star < 0:
		return key, KeyExact, "", nil
	case star != len(key)-1:
		return "", 0, "", types.ErrMalformedWildcard
	default:
		return key, KeyWildcard, key[:star], nil
	}
}

// Compile validates and pre-processes a rule for resolution.
// Case ordinals start at zero; merge renumbers them when keys collide.
func Compile(rule *types.Rule) (*CompiledRule, error) {
	key, kind, prefix, err := ParseKey(rule.Key)
	if err != nil {
		return nil, &types.ConfigError{Key: rule.Key, Case: -1, Err: err}
	}
	if len(rule.Cases) > types.MaxCasesPerKey {
		return nil, &types.ConfigError{Key: key, Case: -1, Err: types.ErrTooManyCases}
	}

	compiled := &CompiledRule{
		Key:    key,
		Kind:   kind,
		Prefix: prefix,
		Cases:  make([]*CompiledCase, 0, len(rule.Cases)),
	}
	if rule.RuleID != "" {
		compiled.RuleIDs = []types.RuleID{rule.RuleID}
	}

	for i, c := range rule.Cases {
		cc, err := compileCase(c)
		if err != nil {
			return nil, &types.ConfigError{Key: key, Case: i, Err: err}
		}
		cc.RuleKey = key
		cc.Ordinal = i
		compiled.Cases = append(compiled.Cases, cc)
	}

	return compiled, nil
}

// compileCase validates a single case and computes its specificity.
// Parameters are deep-copied so later mutation of the source cannot leak in.
func compileCase(c types.Case) (*CompiledCase, error) {
	c.ToPageID = strings.TrimSpace(c.ToPageID)
	c.ToFlowReference = strings.TrimSpace(c.ToFlowReference)
	if c.ToPageID == "" && c.ToFlowReference == "" {
		return nil, types.ErrMissingTarget
	}

	if len(c.Parameters) > types.MaxParameters {
		return nil, types.ErrTooManyParameters
	}
	seen := make(map[string]struct{}, len(c.Parameters))
	for _, p := range c.Parameters {
		if p.Name == "" {
			return nil, types.ErrEmptyParameterName
		}
		if types.IsReservedParam(p.Name) {
			return nil, types.ErrReservedParameter
		}
		if _, dup := seen[p.Name]; dup {
			return nil, types.ErrDuplicateParameter
		}
		if len(p.Values) > types.MaxParameterValues {
			return nil, types.ErrTooManyParameters
		}
		seen[p.Name] = struct{}{}
	}
	c.Parameters = c.Parameters.Clone()

	return &CompiledCase{
		Case:        c,
		Specificity: Specificity(&c),
	}, nil
}

// merge returns a new rule holding existing's cases followed by incoming's.
// Incoming ordinals continue after existing's highest ordinal (declaration order).
// Neither argument is modified; published snapshots stay immutable.
func merge(existing, incoming *CompiledRule) (*CompiledRule, error) {
	if len(existing.Cases)+len(incoming.Cases) > types.MaxCasesPerKey {
		return nil, &types.ConfigError{Key: existing.Key, Case: -1, Err: types.ErrTooManyCases}
	}

	next := 0
	for _, c := range existing.Cases {
		if c.Ordinal >= next {
			next = c.Ordinal + 1
		}
	}

	merged := &CompiledRule{
		Key:     existing.Key,
		Kind:    existing.Kind,
		Prefix:  existing.Prefix,
		RuleIDs: append(append([]types.RuleID(nil), existing.RuleIDs...), incoming.RuleIDs...),
		Cases:   make([]*CompiledCase, 0, len(existing.Cases)+len(incoming.Cases)),
	}
	merged.Cases = append(merged.Cases, existing.Cases...)
	for _, c := range incoming.Cases {
		cc := *c
		cc.Ordinal = next + c.Ordinal
		merged.Cases = append(merged.Cases, &cc)
	}

	// Stable sort by ordinal: canonical order for listing and diagnostics
	sort.SliceStable(merged.Cases, func(i, j int) bool {
		return merged.Cases[i].Ordinal < merged.Cases[j].Ordinal
	})

	return merged, nil
}
