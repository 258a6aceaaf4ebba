package adapter

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/meetingintel/internal/model"
	"github.com/sells-group/meetingintel/internal/scrape"
)

// DefaultSitePaths are crawled on the company domain.
var DefaultSitePaths = []string{"/", "/about", "/about-us", "/company", "/careers", "/blog"}

const (
	maxSitePages  = 8
	siteChunkSize = 2000
)

// Crawler fetches a set of pages. *scrape.Chain satisfies it.
type Crawler interface {
	ScrapeAll(ctx context.Context, urls []string, maxConcurrent int) []scrape.Page
}

// Site crawls a few well-known paths on the company domain.
type Site struct {
	crawler     Crawler
	paths       []string
	concurrency int
}

// NewSite creates a Site adapter. Empty paths means DefaultSitePaths.
func NewSite(crawler Crawler, paths []string, concurrency int) *Site {
	if len(paths) == 0 {
		paths = DefaultSitePaths
	}
	if len(paths) > maxSitePages {
		paths = paths[:maxSitePages]
	}
	if concurrency <= 0 {
		concurrency = 3
	}
	return &Site{crawler: crawler, paths: paths, concurrency: concurrency}
}

// Name implements Adapter.
func (s *Site) Name() string { return string(model.SourceCompanySite) }

// Applies implements Adapter. Free-mail domains are never crawled.
func (s *Site) Applies(id model.Identity) bool {
	return id.CompanyDomain != "" && !id.FreeMail
}

// Collect implements Adapter.
func (s *Site) Collect(ctx context.Context, id model.Identity) (Output, error) {
	urls := SiteURLs(id.CompanyDomain, s.paths)
	pages := s.crawler.ScrapeAll(ctx, urls, s.concurrency)
	if err := ctx.Err(); err != nil {
		return Output{}, eris.Wrap(err, "adapter: company-site")
	}

	var out Output
	for _, p := range pages {
		text := model.CollapseSpace(p.Text)
		if text == "" {
			continue
		}
		chunk := model.TruncateRunes(text, siteChunkSize)
		if title := strings.TrimSpace(p.Title); title != "" {
			chunk = title + " - " + chunk
		}
		out.Items = append(out.Items, model.NewEvidenceItem(model.SourceCompanySite, chunk, p.URL))
	}
	if len(out.Items) == 0 {
		return Output{}, eris.Errorf("adapter: company-site: no readable pages on %s", id.CompanyDomain)
	}
	return out, nil
}

// SiteURLs joins domain with each path over https.
func SiteURLs(domain string, paths []string) []string {
	domain = strings.TrimSuffix(strings.TrimSpace(domain), "/")
	urls := make([]string, 0, len(paths))
	for _, p := range paths {
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		urls = append(urls, "https://"+domain+p)
	}
	return urls
}
