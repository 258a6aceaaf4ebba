package scrape

import (
	"net/url"
	"path"
	"strings"
)

// defaultExcludePatterns skip binaries and account pages.
var defaultExcludePatterns = []string{
	"/*.pdf",
	"/*.zip",
	"/*.jpg",
	"/*.png",
	"/cdn-cgi/*",
	"/login*",
	"/signin*",
	"/account/*",
	"/cart/*",
}

// PathMatcher filters URLs by glob-style path patterns. A pattern ending in
// "/*" also matches deeper paths, so "/account/*" excludes
// "/account/a/b".
type PathMatcher struct {
	patterns []string
}

// NewPathMatcher creates a PathMatcher. No patterns means the defaults.
func NewPathMatcher(patterns []string) *PathMatcher {
	if len(patterns) == 0 {
		patterns = defaultExcludePatterns
	}
	lowered := make([]string, len(patterns))
	for i, p := range patterns {
		lowered[i] = strings.ToLower(p)
	}
	return &PathMatcher{patterns: lowered}
}

// Patterns returns the configured patterns.
func (m *PathMatcher) Patterns() []string {
	return m.patterns
}

// IsExcluded reports whether rawURL is unparsable or matches a pattern.
func (m *PathMatcher) IsExcluded(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	p := strings.ToLower(u.Path)
	for _, pattern := range m.patterns {
		if matchSegmented(pattern, p) {
			return true
		}
	}
	return false
}

func matchSegmented(pattern, urlPath string) bool {
	if ok, _ := path.Match(pattern, urlPath); ok {
		return true
	}
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		return urlPath == prefix || strings.HasPrefix(urlPath, prefix+"/")
	}
	return false
}
