package scrape

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/meetingintel/pkg/firecrawl"
)

// FirecrawlScraper wraps a Firecrawl client as the last-resort Scraper.
type FirecrawlScraper struct {
	client  firecrawl.Client
	timeout time.Duration
}

// NewFirecrawlScraper creates a FirecrawlScraper.
func NewFirecrawlScraper(client firecrawl.Client, timeout time.Duration) *FirecrawlScraper {
	return &FirecrawlScraper{client: client, timeout: timeout}
}

// Name implements Scraper.
func (f *FirecrawlScraper) Name() string { return "firecrawl" }

// Supports implements Scraper; Firecrawl can attempt any URL.
func (f *FirecrawlScraper) Supports(_ string) bool { return true }

// Scrape fetches the main content of a single URL.
func (f *FirecrawlScraper) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	resp, err := f.client.Scrape(ctx, firecrawl.ScrapeRequest{
		URL:             targetURL,
		Formats:         []string{"markdown"},
		OnlyMainContent: true,
		ExcludeTags:     []string{"nav", "footer", "header"},
		Timeout:         int(f.timeout.Milliseconds()),
	})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, eris.Errorf("firecrawl: scrape not successful: %s", resp.Error)
	}
	if strings.TrimSpace(resp.Data.Markdown) == "" {
		return nil, eris.New("firecrawl: empty page")
	}

	u := resp.Data.Metadata.SourceURL
	if u == "" {
		u = targetURL
	}
	return &Result{
		Page: Page{
			URL:        u,
			Title:      resp.Data.Metadata.Title,
			Text:       resp.Data.Markdown,
			StatusCode: resp.Data.Metadata.StatusCode,
		},
		Source: "firecrawl",
	}, nil
}
