package navigation

import (
	"strings"
)

// PathMapper translates between transport paths and page ids. The set of
// mappers is closed: PrefixMapper, SuffixMapper and ExactMapper.
type PathMapper interface {
	// PageID derives a page id from a transport path without query or fragment.
	PageID(path string) string
	// Path builds the transport path that serves pageID.
	Path(pageID string) string

	isPathMapper()
}

// PrefixMapper serves pages under a routing prefix, e.g. "/faces".
type PrefixMapper struct {
	Prefix string
}

func (m PrefixMapper) PageID(path string) string {
	prefix := strings.TrimSuffix(m.Prefix, "/")
	if prefix == "" {
		return path
	}
	if rest, ok := strings.CutPrefix(path, prefix); ok && strings.HasPrefix(rest, "/") {
		return rest
	}
	return path
}

func (m PrefixMapper) Path(pageID string) string {
	return strings.TrimSuffix(m.Prefix, "/") + pageID
}

func (PrefixMapper) isPathMapper() {}

// SuffixMapper serves pages under an extension that differs from the page
// source, e.g. "/a.jsf" for page "/a.xhtml".
type SuffixMapper struct {
	Suffix     string // transport extension, ".jsf"
	PageSuffix string // page id extension, ".xhtml"
}

func (m SuffixMapper) PageID(path string) string {
	if m.Suffix == "" {
		return path
	}
	if base, ok := strings.CutSuffix(path, m.Suffix); ok {
		return base + m.PageSuffix
	}
	return path
}

func (m SuffixMapper) Path(pageID string) string {
	if m.PageSuffix == "" {
		return pageID
	}
	if base, ok := strings.CutSuffix(pageID, m.PageSuffix); ok {
		return base + m.Suffix
	}
	return pageID
}

func (SuffixMapper) isPathMapper() {}

// ExactMapper uses the transport path as the page id.
type ExactMapper struct{}

func (ExactMapper) PageID(path string) string { return path }
func (ExactMapper) Path(pageID string) string { return pageID }
func (ExactMapper) isPathMapper()             {}

// stripQuery removes any query string and fragment from a transport path.
func stripQuery(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		return path[:i]
	}
	return path
}
