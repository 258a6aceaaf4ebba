// Package scrape fetches public web pages as plain text through a chain of
// scrapers: the Jina reader, a local HTTP fetch and Firecrawl.
package scrape

import "context"

// Page is one fetched page reduced to text.
type Page struct {
	URL        string
	Title      string
	Text       string
	StatusCode int
}

// Result holds a scraped page with the scraper that produced it.
type Result struct {
	Page   Page
	Source string // e.g. "jina", "firecrawl"
}

// Scraper fetches a single URL and returns its content.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*Result, error)
	Name() string
	Supports(url string) bool
}
