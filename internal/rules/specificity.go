// internal/rules/specificity.go
package rules

import "github.com/solatis/waypoint/internal/types"

/*
 * Specificity model for case selection.
 *
 * score = 2*(action matched) + 2*(outcome matched) + 1*(condition true)
 *
 * A case is scored only after it passed filtering, so every criterion it
 * declares has matched and the score reduces to which criteria are declared.
 * Highest score wins; equal scores fall back to the load-time ordinal, lowest
 * first. Iteration order of any collection never participates.
 */

// Canonical specificity weights.
const (
	ScoreActionMatch    = 2
	ScoreOutcomeMatch   = 2
	ScoreConditionMatch = 1
)

// Specificity computes the score a case earns when it matches.
func Specificity(c *types.Case) int {
	score := 0
	if c.FromActionRef != "" {
		score += ScoreActionMatch
	}
	if c.FromOutcome != "" {
		score += ScoreOutcomeMatch
	}
	if c.Condition != "" {
		score += ScoreConditionMatch
	}
	return score
}

// preferred reports whether a should be selected over b.
// Total order over distinct cases of one rule: score desc, then ordinal asc.
func preferred(a, b *CompiledCase) bool {
	if a.Specificity != b.Specificity {
		return a.Specificity > b.Specificity
	}
	return a.Ordinal < b.Ordinal
}
