// internal/rules/resolve.go
package rules

import (
	"context"
	"errors"

	"github.com/solatis/waypoint/internal/types"
)

/*
 * Case resolution.
 *
 * Resolves (page id, action ref, outcome) to at most one CompiledCase.
 *
 * Resolution flow:
 *   1. Candidate rules from Snapshot.Candidates (exact, wildcards, global)
 *   2. Per rule, filter cases: action, then outcome, then condition
 *      (cheap string checks first; conditions only for survivors)
 *   3. Drop catch-alls (no outcome, no condition) when the outcome is absent
 *   4. Select the preferred survivor (specificity desc, ordinal asc)
 *   5. First rule with a survivor wins; otherwise NoMatch (nil, nil)
 *
 * Condition semantics: every surviving case's condition is evaluated, and the
 * first evaluation failure aborts the attempt with an ExpressionError. A rule
 * whose cases all fail their conditions is a non-match for that rule only;
 * the search continues with the next candidate.
 *
 * Resolve reads only the snapshot and the evaluator it is handed. It holds no
 * state and is safe for concurrent use.
 */

// ConditionEvaluator evaluates boolean case conditions for one request.
type ConditionEvaluator interface {
	EvaluateBoolean(ctx context.Context, expr string) (bool, error)
}

// Query is the input of a resolution.
type Query struct {
	PageID    string
	ActionRef string // "" = no action reference
	Outcome   string // "" = absent outcome
}

// errNoEvaluator is returned when a case carries a condition but the caller
// supplied no evaluator.
var errNoEvaluator = errors.New("no condition evaluator")

// Resolve selects the case that applies to q, or returns nil when none does.
func Resolve(ctx context.Context, snap *Snapshot, eval ConditionEvaluator, q Query) (*CompiledCase, error) {
	for _, rule := range snap.Candidates(q.PageID) {
		selected, err := resolveRule(ctx, rule, eval, q)
		if err != nil {
			return nil, err
		}
		if selected != nil {
			return selected, nil
		}
	}
	return nil, nil
}

// resolveRule filters one rule's cases and returns the preferred survivor.
func resolveRule(ctx context.Context, rule *CompiledRule, eval ConditionEvaluator, q Query) (*CompiledCase, error) {
	var best *CompiledCase
	for _, c := range rule.Cases {
		matched, err := matchCase(ctx, c, eval, q)
		if err != nil {
			return nil, err
		}
		if !matched {
			continue
		}
		if best == nil || preferred(c, best) {
			best = c
		}
	}
	return best, nil
}

// matchCase applies the filter criteria to a single case.
func matchCase(ctx context.Context, c *CompiledCase, eval ConditionEvaluator, q Query) (bool, error) {
	if c.FromActionRef != "" && c.FromActionRef != q.ActionRef {
		return false, nil
	}
	if c.FromOutcome != "" && c.FromOutcome != q.Outcome {
		return false, nil
	}
	// Catch-alls never fire on an absent outcome
	if q.Outcome == "" && c.FromOutcome == "" && c.Condition == "" {
		return false, nil
	}
	if c.Condition == "" {
		return true, nil
	}

	if eval == nil {
		return false, &types.ExpressionError{Expr: c.Condition, Err: errNoEvaluator}
	}
	ok, err := eval.EvaluateBoolean(ctx, c.Condition)
	if err != nil {
		var exprErr *types.ExpressionError
		if errors.As(err, &exprErr) {
			return false, err
		}
		return false, &types.ExpressionError{Expr: c.Condition, Err: err}
	}
	return ok, nil
}
