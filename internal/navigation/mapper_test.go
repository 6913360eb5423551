package navigation

import "testing"

func TestPathMappers(t *testing.T) {
	tests := []struct {
		name     string
		mapper   PathMapper
		path     string
		wantPage string
		wantPath string
	}{
		{name: "prefix", mapper: PrefixMapper{Prefix: "/faces"}, path: "/faces/a/b.xhtml", wantPage: "/a/b.xhtml", wantPath: "/faces/a/b.xhtml"},
		{name: "prefix trailing slash", mapper: PrefixMapper{Prefix: "/faces/"}, path: "/faces/a.xhtml", wantPage: "/a.xhtml", wantPath: "/faces/a.xhtml"},
		{name: "prefix not matched", mapper: PrefixMapper{Prefix: "/faces"}, path: "/facesx/a.xhtml", wantPage: "/facesx/a.xhtml", wantPath: "/faces/facesx/a.xhtml"},
		{name: "suffix", mapper: SuffixMapper{Suffix: ".jsf", PageSuffix: ".xhtml"}, path: "/a/b.jsf", wantPage: "/a/b.xhtml", wantPath: "/a/b.jsf"},
		{name: "suffix not matched", mapper: SuffixMapper{Suffix: ".jsf", PageSuffix: ".xhtml"}, path: "/a/b.html", wantPage: "/a/b.html", wantPath: "/a/b.html"},
		{name: "exact", mapper: ExactMapper{}, path: "/a.xhtml", wantPage: "/a.xhtml", wantPath: "/a.xhtml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := tt.mapper.PageID(tt.path)
			if page != tt.wantPage {
				t.Errorf("PageID(%q) = %q, want %q", tt.path, page, tt.wantPage)
			}
			if got := tt.mapper.Path(page); got != tt.wantPath {
				t.Errorf("Path(%q) = %q, want %q", page, got, tt.wantPath)
			}
		})
	}
}

func TestStripQuery(t *testing.T) {
	tests := map[string]string{
		"/a.xhtml":          "/a.xhtml",
		"/a.xhtml?x=1":      "/a.xhtml",
		"/a.xhtml#frag":     "/a.xhtml",
		"/a.xhtml?x=1#frag": "/a.xhtml",
		"":                  "",
	}
	for in, want := range tests {
		if got := stripQuery(in); got != want {
			t.Errorf("stripQuery(%q) = %q, want %q", in, got, want)
		}
	}
}
