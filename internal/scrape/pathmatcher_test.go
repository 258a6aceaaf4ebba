package scrape

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPathMatcher_Defaults(t *testing.T) {
	m := NewPathMatcher(nil)
	assert.NotEmpty(t, m.Patterns())

	excluded := []string{
		"https://acme.io/brochure.pdf",
		"https://acme.io/cdn-cgi/l/email-protection",
		"https://acme.io/login",
		"https://acme.io/account/settings/billing",
	}
	for _, u := range excluded {
		assert.True(t, m.IsExcluded(u), u)
	}

	allowed := []string{
		"https://acme.io/",
		"https://acme.io/about",
		"https://acme.io/careers",
		"https://acme.io/blog",
		"https://acme.io/docs/guide.pdf",
	}
	for _, u := range allowed {
		assert.False(t, m.IsExcluded(u), u)
	}
}

func TestPathMatcher_Custom(t *testing.T) {
	m := NewPathMatcher([]string{"/Blog/*", "/*.xml"})
	assert.Equal(t, []string{"/blog/*", "/*.xml"}, m.Patterns())
	assert.True(t, m.IsExcluded("https://acme.io/blog"))
	assert.True(t, m.IsExcluded("https://acme.io/BLOG/2024/post"))
	assert.True(t, m.IsExcluded("https://acme.io/sitemap.xml"))
	assert.False(t, m.IsExcluded("https://acme.io/blogroll"))
}

func TestPathMatcher_Unparsable(t *testing.T) {
	assert.True(t, NewPathMatcher(nil).IsExcluded("://bad url"))
}
