// internal/rules/compile_test.go
package rules

import (
	"errors"
	"strings"
	"testing"

	"github.com/solatis/waypoint/internal/types"
)

func TestParseKey(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		wantKey    string
		wantKind   KeyKind
		wantPrefix string
		wantErr    error
	}{
		{name: "exact page", key: "/a.xhtml", wantKey: "/a.xhtml", wantKind: KeyExact},
		{name: "exact trims whitespace", key: "  /a.xhtml ", wantKey: "/a.xhtml", wantKind: KeyExact},
		{name: "wildcard", key: "/admin/*", wantKey: "/admin/*", wantKind: KeyWildcard, wantPrefix: "/admin/"},
		{name: "root wildcard", key: "/*", wantKey: "/*", wantKind: KeyWildcard, wantPrefix: "/"},
		{name: "global star", key: "*", wantKey: GlobalKey, wantKind: KeyGlobal},
		{name: "global empty", key: "", wantKey: GlobalKey, wantKind: KeyGlobal},
		{name: "star in middle", key: "/a*/b", wantErr: types.ErrMalformedWildcard},
		{name: "double star", key: "/a**", wantErr: types.ErrMalformedWildcard},
		{name: "too long", key: "/" + strings.Repeat("x", types.MaxKeyLength), wantErr: types.ErrKeyTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, kind, prefix, err := ParseKey(tt.key)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseKey() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseKey() error = %v, want nil", err)
			}
			if key != tt.wantKey {
				t.Errorf("key = %q, want %q", key, tt.wantKey)
			}
			if kind != tt.wantKind {
				t.Errorf("kind = %v, want %v", kind, tt.wantKind)
			}
			if prefix != tt.wantPrefix {
				t.Errorf("prefix = %q, want %q", prefix, tt.wantPrefix)
			}
		})
	}
}

func TestCompile_AssignsOrdinalsAndSpecificity(t *testing.T) {
	rule := &types.Rule{
		RuleID: "rule-001",
		Key:    "/a.xhtml",
		Cases: []types.Case{
			{FromOutcome: "go", ToPageID: "/b.xhtml"},
			{FromActionRef: "#{bean.save}", FromOutcome: "go", ToPageID: "/c.xhtml"},
			{Condition: "#{user.admin}", ToPageID: "/d.xhtml"},
			{FromActionRef: "#{bean.save}", FromOutcome: "go", Condition: "true", ToPageID: "/e.xhtml"},
		},
	}

	compiled, err := Compile(rule)
	if err != nil {
		t.Fatalf("Compile() error = %v, want nil", err)
	}
	if compiled.Kind != KeyExact {
		t.Errorf("Kind = %v, want exact", compiled.Kind)
	}
	if len(compiled.RuleIDs) != 1 || compiled.RuleIDs[0] != "rule-001" {
		t.Errorf("RuleIDs = %v, want [rule-001]", compiled.RuleIDs)
	}

	wantScores := []int{2, 4, 1, 5}
	for i, c := range compiled.Cases {
		if c.Ordinal != i {
			t.Errorf("case %d Ordinal = %d, want %d", i, c.Ordinal, i)
		}
		if c.Specificity != wantScores[i] {
			t.Errorf("case %d Specificity = %d, want %d", i, c.Specificity, wantScores[i])
		}
		if c.RuleKey != "/a.xhtml" {
			t.Errorf("case %d RuleKey = %q, want /a.xhtml", i, c.RuleKey)
		}
	}
}

func TestCompile_CopiesParameters(t *testing.T) {
	params := types.Params{{Name: "id", Values: []string{"1"}}}
	rule := &types.Rule{
		Key:   "/a.xhtml",
		Cases: []types.Case{{FromOutcome: "go", ToPageID: "/b.xhtml", Parameters: params}},
	}

	compiled, err := Compile(rule)
	if err != nil {
		t.Fatalf("Compile() error = %v, want nil", err)
	}

	params[0].Values[0] = "mutated"
	if got := compiled.Cases[0].Parameters.Get("id"); got[0] != "1" {
		t.Errorf("Parameters[id] = %v, want [1] (source mutation leaked)", got)
	}
}

func TestCompile_FlowOnlyTarget(t *testing.T) {
	rule := &types.Rule{Key: "/a", Cases: []types.Case{{FromOutcome: "go", ToFlowReference: "checkout"}}}

	compiled, err := Compile(rule)
	if err != nil {
		t.Fatalf("Compile() error = %v, want nil", err)
	}
	c := compiled.Cases[0]
	if c.ToPageID != "" || c.ToFlowReference != "checkout" {
		t.Errorf("case target = (%q, %q), want (\"\", \"checkout\")", c.ToPageID, c.ToFlowReference)
	}
}

func TestCompile_Errors(t *testing.T) {
	tooMany := make(types.Params, 0, types.MaxParameters+1)
	for i := 0; i <= types.MaxParameters; i++ {
		tooMany = append(tooMany, types.Param{Name: "p" + strings.Repeat("x", i), Values: []string{"v"}})
	}

	tests := []struct {
		name     string
		rule     types.Rule
		wantErr  error
		wantCase int
	}{
		{
			name:     "malformed wildcard",
			rule:     types.Rule{Key: "/a*b", Cases: []types.Case{{ToPageID: "/x"}}},
			wantErr:  types.ErrMalformedWildcard,
			wantCase: -1,
		},
		{
			name:     "missing target",
			rule:     types.Rule{Key: "/a", Cases: []types.Case{{ToPageID: "/x"}, {FromOutcome: "go", ToPageID: "  "}}},
			wantErr:  types.ErrMissingTarget,
			wantCase: 1,
		},
		{
			name:     "blank flow reference",
			rule:     types.Rule{Key: "/a", Cases: []types.Case{{FromOutcome: "go", ToFlowReference: " "}}},
			wantErr:  types.ErrMissingTarget,
			wantCase: 0,
		},
		{
			name: "reserved parameter",
			rule: types.Rule{Key: "/a", Cases: []types.Case{{
				ToPageID:   "/x",
				Parameters: types.Params{{Name: types.DirectiveRedirect, Values: []string{"true"}}},
			}}},
			wantErr: types.ErrReservedParameter,
		},
		{
			name: "duplicate parameter",
			rule: types.Rule{Key: "/a", Cases: []types.Case{{
				ToPageID:   "/x",
				Parameters: types.Params{{Name: "a", Values: []string{"1"}}, {Name: "a", Values: []string{"2"}}},
			}}},
			wantErr: types.ErrDuplicateParameter,
		},
		{
			name: "empty parameter name",
			rule: types.Rule{Key: "/a", Cases: []types.Case{{
				ToPageID:   "/x",
				Parameters: types.Params{{Name: "", Values: []string{"1"}}},
			}}},
			wantErr: types.ErrEmptyParameterName,
		},
		{
			name:    "too many parameters",
			rule:    types.Rule{Key: "/a", Cases: []types.Case{{ToPageID: "/x", Parameters: tooMany}}},
			wantErr: types.ErrTooManyParameters,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(&tt.rule)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Compile() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, types.ErrConfiguration) {
				t.Errorf("Compile() error = %v, want it to match ErrConfiguration", err)
			}
			var cfgErr *types.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Compile() error type = %T, want *types.ConfigError", err)
			}
			if cfgErr.Case != tt.wantCase {
				t.Errorf("ConfigError.Case = %d, want %d", cfgErr.Case, tt.wantCase)
			}
		})
	}
}

func TestMerge_ContinuesOrdinals(t *testing.T) {
	first, err := Compile(&types.Rule{RuleID: "r1", Key: "/a", Cases: []types.Case{
		{FromOutcome: "x", ToPageID: "/1"},
		{FromOutcome: "y", ToPageID: "/2"},
	}})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	second, err := Compile(&types.Rule{RuleID: "r2", Key: "/a", Cases: []types.Case{
		{FromOutcome: "z", ToPageID: "/3"},
	}})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	merged, err := merge(first, second)
	if err != nil {
		t.Fatalf("merge() error = %v", err)
	}
	if len(merged.Cases) != 3 {
		t.Fatalf("len(Cases) = %d, want 3", len(merged.Cases))
	}
	if merged.Cases[2].Ordinal != 2 || merged.Cases[2].ToPageID != "/3" {
		t.Errorf("Cases[2] = (%d, %s), want (2, /3)", merged.Cases[2].Ordinal, merged.Cases[2].ToPageID)
	}
	if second.Cases[0].Ordinal != 0 {
		t.Errorf("merge mutated incoming rule: Ordinal = %d, want 0", second.Cases[0].Ordinal)
	}
	if len(merged.RuleIDs) != 2 {
		t.Errorf("RuleIDs = %v, want 2 entries", merged.RuleIDs)
	}
}
