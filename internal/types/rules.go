// internal/types/rules.go
package types

/*
 * Domain types for navigation rules.
 *
 * Provides Rule, Case, and Target used by internal/rules for compilation and
 * resolution and by internal/navigation for applying a transition. Loaders
 * (config file, database) build these; the rules package never parses a
 * declarative source itself.
 *
 * Key types:
 *   - Rule: cases scoped to a page key (exact id, "prefix*" wildcard, or global)
 *   - Case: one candidate transition with match criteria and a target
 *   - Target: normalized destination (page id, redirect, view params, params)
 *
 * Unset match fields are empty strings. An absent outcome is likewise "".
 */

// Case is one candidate transition declared under a rule.
type Case struct {
	FromActionRef     string // exact action reference, "" = any
	FromOutcome       string // exact outcome, "" = any (non-empty outcomes only, unless Condition set)
	Condition         string // boolean expression text, "" = none
	ToPageID          string // target page id, may carry directive syntax or an expression
	ToFlowReference   string // composite flow the target page belongs to, "" = none
	Redirect          bool
	IncludeViewParams bool
	Parameters        Params
}

// Rule groups the cases declared for one key.
type Rule struct {
	RuleID RuleID // source identifier; informational only
	Key    string // "/page.xhtml", "/admin/*", or "*"/"" for global
	Cases  []Case
}

// Target is a normalized navigation destination. Produced per call, never stored.
type Target struct {
	PageID            string
	Redirect          bool
	IncludeViewParams bool
	Params            Params
}
