package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/solatis/waypoint/internal/rules"
	"github.com/solatis/waypoint/internal/types"
)

/*
 * Navigation rule persistence.
 *
 * Schema (see migrations/<driver>/001_initial_schema.sql):
 *   navigation_rules            one row per declared rule, position = load order
 *   navigation_cases            cases of a rule, position = declaration order
 *   navigation_case_parameters  one row per parameter value, position orders
 *                               names (first seen) and values within a name
 *
 * Positions reproduce the declaration order exactly, so a rule set loaded
 * from the database compiles to the same ordinals as the file it came from.
 */

type ruleRow struct {
	RuleID   string `db:"rule_id"`
	Key      string `db:"rule_key"`
	Position int    `db:"position"`
}

type caseRow struct {
	CaseID            string `db:"case_id"`
	RuleID            string `db:"rule_id"`
	Position          int    `db:"position"`
	FromAction        string `db:"from_action"`
	FromOutcome       string `db:"from_outcome"`
	Condition         string `db:"condition_expr"`
	ToPage            string `db:"to_page"`
	ToFlow            string `db:"to_flow"`
	Redirect          bool   `db:"redirect"`
	IncludeViewParams bool   `db:"include_view_params"`
}

type paramRow struct {
	CaseID   string `db:"case_id"`
	Position int    `db:"position"`
	Name     string `db:"name"`
	Value    string `db:"value"`
}

// LoadRules reads every declared rule in load order.
func LoadRules(ctx context.Context, q *Queries) ([]types.Rule, error) {
	var ruleRows []ruleRow
	if err := q.Select(ctx, "list-navigation-rules", &ruleRows); err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	var caseRows []caseRow
	if err := q.Select(ctx, "list-navigation-cases", &caseRows); err != nil {
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}
	var paramRows []paramRow
	if err := q.Select(ctx, "list-navigation-case-parameters", &paramRows); err != nil {
		return nil, fmt.Errorf("failed to list case parameters: %w", err)
	}

	params := make(map[string]types.Params)
	for _, p := range paramRows {
		ps := params[p.CaseID]
		ps.Add(p.Name, p.Value)
		params[p.CaseID] = ps
	}

	cases := make(map[string][]types.Case)
	for _, c := range caseRows {
		cases[c.RuleID] = append(cases[c.RuleID], types.Case{
			FromActionRef:     c.FromAction,
			FromOutcome:       c.FromOutcome,
			Condition:         c.Condition,
			ToPageID:          c.ToPage,
			ToFlowReference:   c.ToFlow,
			Redirect:          c.Redirect,
			IncludeViewParams: c.IncludeViewParams,
			Parameters:        params[c.CaseID],
		})
	}

	out := make([]types.Rule, 0, len(ruleRows))
	for _, r := range ruleRows {
		out = append(out, types.Rule{
			RuleID: types.RuleID(r.RuleID),
			Key:    r.Key,
			Cases:  cases[r.RuleID],
		})
	}
	return out, nil
}

// ImportRules replaces the stored rule set with rs in one transaction.
// Every rule is compiled first; nothing is written if any rule is invalid.
func ImportRules(ctx context.Context, q *Queries, rs []types.Rule) error {
	for i := range rs {
		if _, err := rules.Compile(&rs[i]); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	return q.InTx(ctx, func(tx *TxQueries) error {
		if _, err := tx.Exec(ctx, "delete-navigation-rules"); err != nil {
			return fmt.Errorf("failed to clear rules: %w", err)
		}

		for i, r := range rs {
			ruleID := string(r.RuleID)
			if ruleID == "" {
				ruleID = string(types.NewRuleID())
			}
			if _, err := tx.Exec(ctx, "insert-navigation-rule", ruleID, r.Key, i, now); err != nil {
				return fmt.Errorf("failed to insert rule %q: %w", r.Key, err)
			}

			for j, c := range r.Cases {
				caseID := uuid.Must(uuid.NewV7()).String()
				_, err := tx.Exec(ctx, "insert-navigation-case",
					caseID, ruleID, j, c.FromActionRef, c.FromOutcome, c.Condition,
					c.ToPageID, c.ToFlowReference, c.Redirect, c.IncludeViewParams,
				)
				if err != nil {
					return fmt.Errorf("failed to insert rule %q case %d: %w", r.Key, j, err)
				}

				pos := 0
				for _, p := range c.Parameters {
					for _, v := range p.Values {
						if _, err := tx.Exec(ctx, "insert-navigation-case-parameter", caseID, pos, p.Name, v); err != nil {
							return fmt.Errorf("failed to insert rule %q case %d parameter %q: %w", r.Key, j, p.Name, err)
						}
						pos++
					}
				}
			}
		}
		return nil
	})
}
