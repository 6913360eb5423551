// internal/rules/store.go
package rules

import (
	"sort"
	"strings"
	"sync"

	"go.uber.org/atomic"

	"github.com/solatis/waypoint/internal/types"
)

/*
 * Process-wide rule registry.
 *
 * Store publishes immutable Snapshots through an atomic pointer. Readers load
 * the pointer and never lock; writers serialize on a mutex, build a new
 * snapshot from the current one (copy-on-write), and swap it in. An in-flight
 * Resolve keeps the snapshot it loaded, so it never observes a partial update.
 *
 * Candidate order for a page id:
 *   1. exact rule for the page id
 *   2. wildcard rules whose prefix prefixes the page id, longest prefix first
 *   3. global rule
 * Wildcards are kept sorted at publication time, so lookup order is a
 * function of the keys alone.
 */

// Snapshot is an immutable view of the rule set.
type Snapshot struct {
	exact     map[string]*CompiledRule
	wildcards []*CompiledRule // longest prefix first, then prefix ascending
	global    *CompiledRule
	version   uint64
}

var emptySnapshot = &Snapshot{exact: map[string]*CompiledRule{}}

// Version increments on every publication. Zero means never written.
func (s *Snapshot) Version() uint64 {
	return s.version
}

// Len returns the number of distinct rule keys.
func (s *Snapshot) Len() int {
	n := len(s.exact) + len(s.wildcards)
	if s.global != nil {
		n++
	}
	return n
}

// Candidates returns the rules applicable to pageID in priority order.
func (s *Snapshot) Candidates(pageID string) []*CompiledRule {
	candidates := make([]*CompiledRule, 0, 4)
	if r, ok := s.exact[pageID]; ok {
		candidates = append(candidates, r)
	}
	for _, r := range s.wildcards {
		if strings.HasPrefix(pageID, r.Prefix) {
			candidates = append(candidates, r)
		}
	}
	if s.global != nil {
		candidates = append(candidates, s.global)
	}
	return candidates
}

// Rule returns the compiled rule for a key, in any accepted spelling.
func (s *Snapshot) Rule(key string) (*CompiledRule, bool) {
	canonical, kind, _, err := ParseKey(key)
	if err != nil {
		return nil, false
	}
	switch kind {
	case KeyGlobal:
		return s.global, s.global != nil
	case KeyWildcard:
		for _, r := range s.wildcards {
			if r.Key == canonical {
				return r, true
			}
		}
		return nil, false
	default:
		r, ok := s.exact[canonical]
		return r, ok
	}
}

// Rules lists every rule: exact keys ascending, then wildcards in lookup order, then global.
func (s *Snapshot) Rules() []*CompiledRule {
	out := make([]*CompiledRule, 0, s.Len())
	keys := make([]string, 0, len(s.exact))
	for k := range s.exact {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, s.exact[k])
	}
	out = append(out, s.wildcards...)
	if s.global != nil {
		out = append(out, s.global)
	}
	return out
}

// clone copies the top-level indexes; compiled rules are shared (immutable).
func (s *Snapshot) clone() *Snapshot {
	next := &Snapshot{
		exact:     make(map[string]*CompiledRule, len(s.exact)+1),
		wildcards: append([]*CompiledRule(nil), s.wildcards...),
		global:    s.global,
		version:   s.version,
	}
	for k, r := range s.exact {
		next.exact[k] = r
	}
	return next
}

// add merges a compiled rule into the (unpublished) snapshot.
func (s *Snapshot) add(rule *CompiledRule) error {
	existing, ok := s.Rule(rule.Key)
	if ok {
		merged, err := merge(existing, rule)
		if err != nil {
			return err
		}
		rule = merged
	}

	switch rule.Kind {
	case KeyGlobal:
		s.global = rule
	case KeyExact:
		s.exact[rule.Key] = rule
	case KeyWildcard:
		replaced := false
		for i, r := range s.wildcards {
			if r.Key == rule.Key {
				s.wildcards[i] = rule
				replaced = true
				break
			}
		}
		if !replaced {
			s.wildcards = append(s.wildcards, rule)
			sortWildcards(s.wildcards)
		}
	}
	return nil
}

// sortWildcards orders wildcard rules longest prefix first.
// Equal-length prefixes are distinct strings, so at most one can prefix a
// given page id; the secondary key only fixes listing order.
func sortWildcards(ws []*CompiledRule) {
	sort.Slice(ws, func(i, j int) bool {
		if len(ws[i].Prefix) != len(ws[j].Prefix) {
			return len(ws[i].Prefix) > len(ws[j].Prefix)
		}
		return ws[i].Prefix < ws[j].Prefix
	})
}

// Store is the shared, read-mostly rule registry.
type Store struct {
	current *atomic.Pointer[Snapshot]
	mu      sync.Mutex // serializes writers
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{current: atomic.NewPointer(emptySnapshot)}
}

// Snapshot returns the currently published rule set. Never nil.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Put compiles rule and merges its cases into any rule sharing its key.
// On error nothing is published.
func (s *Store) Put(rule *types.Rule) error {
	compiled, err := Compile(rule)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current.Load().clone()
	if err := next.add(compiled); err != nil {
		return err
	}
	next.version++
	s.current.Store(next)
	return nil
}

// Replace compiles rules into a fresh snapshot, publishes it atomically and
// returns it. Rules sharing a key merge in slice order. On error the current
// set is kept.
func (s *Store) Replace(rules []types.Rule) (*Snapshot, error) {
	next := &Snapshot{exact: make(map[string]*CompiledRule, len(rules))}
	for i := range rules {
		compiled, err := Compile(&rules[i])
		if err != nil {
			return nil, err
		}
		if err := next.add(compiled); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next.version = s.current.Load().version + 1
	s.current.Store(next)
	return next, nil
}
