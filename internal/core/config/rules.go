package config

import (
	"github.com/solatis/waypoint/internal/navigation"
	"github.com/solatis/waypoint/internal/pages"
	"github.com/solatis/waypoint/internal/types"
)

/*
 * Declarative rule and page format.
 *
 *   navigation:
 *     rules:
 *       - key: /orders/*
 *         cases:
 *           - from_outcome: edit
 *             condition: "#{user.admin}"
 *             to_page: /orders/edit.xhtml
 *             redirect: true
 *             parameters:
 *               - name: tab
 *                 values: [summary]
 *     pages:
 *       - id: /orders/list.xhtml
 *         view_params:
 *           - name: id
 *             value: "#{order.id}"
 *
 * Decoding produces plain declarations. Validation happens when the rules are
 * compiled into a rules.Store and when pages are registered.
 */

// RuleDecl is one rule as written in the config file.
type RuleDecl struct {
	ID    string     `mapstructure:"id"`
	Key   string     `mapstructure:"key"`
	Cases []CaseDecl `mapstructure:"cases"`
}

// CaseDecl is one case as written in the config file.
type CaseDecl struct {
	FromAction        string      `mapstructure:"from_action"`
	FromOutcome       string      `mapstructure:"from_outcome"`
	Condition         string      `mapstructure:"condition"`
	ToPage            string      `mapstructure:"to_page"`
	ToFlow            string      `mapstructure:"to_flow"`
	Redirect          bool        `mapstructure:"redirect"`
	IncludeViewParams bool        `mapstructure:"include_view_params"`
	Parameters        []ParamDecl `mapstructure:"parameters"`
}

// ParamDecl is a named, multi-valued parameter.
type ParamDecl struct {
	Name   string   `mapstructure:"name"`
	Values []string `mapstructure:"values"`
}

// PageDecl declares a page and its view parameters.
type PageDecl struct {
	ID         string          `mapstructure:"id"`
	Flow       string          `mapstructure:"flow"`
	ViewParams []ViewParamDecl `mapstructure:"view_params"`
}

// ViewParamDecl is one view parameter of a page.
type ViewParamDecl struct {
	Name  string `mapstructure:"name"`
	Value string `mapstructure:"value"`
}

// NavigationRules converts the declared rules to domain rules. Declarations
// without an id get a generated one.
func (n NavigationConfig) NavigationRules() []types.Rule {
	out := make([]types.Rule, 0, len(n.Rules))
	for _, decl := range n.Rules {
		r := types.Rule{RuleID: types.RuleID(decl.ID), Key: decl.Key}
		if r.RuleID == "" {
			r.RuleID = types.NewRuleID()
		}
		for _, c := range decl.Cases {
			tc := types.Case{
				FromActionRef:     c.FromAction,
				FromOutcome:       c.FromOutcome,
				Condition:         c.Condition,
				ToPageID:          c.ToPage,
				ToFlowReference:   c.ToFlow,
				Redirect:          c.Redirect,
				IncludeViewParams: c.IncludeViewParams,
			}
			for _, p := range c.Parameters {
				tc.Parameters = append(tc.Parameters, types.Param{
					Name:   p.Name,
					Values: append([]string(nil), p.Values...),
				})
			}
			r.Cases = append(r.Cases, tc)
		}
		out = append(out, r)
	}
	return out
}

// PageDeclarations converts the declared pages for pages.NewRegistry.
func (n NavigationConfig) PageDeclarations() []pages.Page {
	out := make([]pages.Page, 0, len(n.Pages))
	for _, decl := range n.Pages {
		p := pages.Page{ID: decl.ID, Flow: decl.Flow}
		for _, vp := range decl.ViewParams {
			p.Params = append(p.Params, navigation.ViewParam{Name: vp.Name, Value: vp.Value})
		}
		out = append(out, p)
	}
	return out
}
