package directive

import (
	"reflect"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/solatis/waypoint/internal/types"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  types.Target
	}{
		{
			name:  "plain page id",
			input: "/next.xhtml",
			want:  types.Target{PageID: "/next.xhtml"},
		},
		{
			name:  "empty input",
			input: "",
			want:  types.Target{},
		},
		{
			name:  "mixed separators",
			input: "next.xhtml?faces-redirect=true&a=b&amp;includeViewParams=true&amp;c=d",
			want: types.Target{
				PageID:            "next.xhtml",
				Redirect:          true,
				IncludeViewParams: true,
				Params: types.Params{
					{Name: "a", Values: []string{"b"}},
					{Name: "c", Values: []string{"d"}},
				},
			},
		},
		{
			name:  "redirect case insensitive",
			input: "/x?faces-redirect=TRUE",
			want:  types.Target{PageID: "/x", Redirect: true},
		},
		{
			name:  "redirect false",
			input: "/x?faces-redirect=false",
			want:  types.Target{PageID: "/x"},
		},
		{
			name:  "long include spelling",
			input: "/x?faces-include-view-params=true",
			want:  types.Target{PageID: "/x", IncludeViewParams: true},
		},
		{
			name:  "include requires exact true",
			input: "/x?includeViewParams=TRUE",
			want:  types.Target{PageID: "/x"},
		},
		{
			name:  "repeated names keep first-seen order",
			input: "/x?b=1&a=2&b=3&b=1",
			want: types.Target{PageID: "/x", Params: types.Params{
				{Name: "b", Values: []string{"1", "3", "1"}},
				{Name: "a", Values: []string{"2"}},
			}},
		},
		{
			name:  "malformed pairs dropped",
			input: "/x?=orphan&novalue&&a=1&",
			want: types.Target{PageID: "/x", Params: types.Params{
				{Name: "a", Values: []string{"1"}},
			}},
		},
		{
			name:  "empty value kept",
			input: "/x?a=",
			want: types.Target{PageID: "/x", Params: types.Params{
				{Name: "a", Values: []string{""}},
			}},
		},
		{
			name:  "value may contain equals and question mark",
			input: "/x?q=a=b?c",
			want: types.Target{PageID: "/x", Params: types.Params{
				{Name: "q", Values: []string{"a=b?c"}},
			}},
		},
		{
			name:  "empty page id",
			input: "?faces-redirect=true",
			want:  types.Target{Redirect: true},
		},
		{
			name:  "reserved flag is never reset",
			input: "/x?faces-redirect=true&faces-redirect=false",
			want:  types.Target{PageID: "/x", Redirect: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	target := types.Target{
		PageID:            "/orders.xhtml",
		Redirect:          true,
		IncludeViewParams: true,
		Params: types.Params{
			{Name: "id", Values: []string{"7", "8"}},
			{Name: "tab", Values: []string{"lines"}},
		},
	}
	want := "/orders.xhtml?id=7&id=8&tab=lines&faces-redirect=true&includeViewParams=true"
	if got := Format(target); got != want {
		t.Errorf("Format() = %q, want %q", got, want)
	}

	if got := Format(types.Target{PageID: "/a"}); got != "/a" {
		t.Errorf("Format(no query) = %q, want /a", got)
	}
}

// Property-based test: Format output parses back to the same target
func TestFormat_PropertyRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	names := []string{"a", "b", "id", "tab", "q"}

	properties.Property("Parse(Format(t)) == t", prop.ForAll(
		func(page string, redirect, include bool, pairs []int, values []string) bool {
			target := types.Target{PageID: "/" + page, Redirect: redirect, IncludeViewParams: include}
			for i, n := range pairs {
				v := ""
				if i < len(values) {
					v = values[i]
				}
				target.Params.Add(names[n], v)
			}
			return reflect.DeepEqual(Parse(Format(target)), target)
		},
		gen.AlphaString(),
		gen.Bool(),
		gen.Bool(),
		gen.SliceOf(gen.IntRange(0, len(names)-1)),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}

// Property-based test: arbitrary input never panics and never leaks control names
func TestParse_PropertyNoReservedParams(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	fragments := []string{
		"?", "&", "&amp;", "=", "a", "b", "true", "TRUE",
		"faces-redirect", "includeViewParams", "faces-include-view-params", "/p.xhtml",
	}

	properties.Property("reserved names never appear as params", prop.ForAll(
		func(picks []int) bool {
			var b strings.Builder
			for _, p := range picks {
				b.WriteString(fragments[p])
			}
			got := Parse(b.String())
			for _, name := range got.Params.Names() {
				if name == "" || types.IsReservedParam(name) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, len(fragments)-1)),
	))

	properties.TestingRun(t)
}
