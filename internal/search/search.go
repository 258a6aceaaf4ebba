// Package search runs web searches through interchangeable providers.
package search

import (
	"context"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/sells-group/meetingintel/internal/model"
)

// Result is one provider-neutral search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Text joins title and snippet the way evidence items present them.
func (r Result) Text() string {
	switch {
	case r.Title == "":
		return r.Snippet
	case r.Snippet == "":
		return r.Title
	default:
		return r.Title + " - " + r.Snippet
	}
}

// Searcher performs a web search returning at most limit results.
type Searcher interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}

var strict = bluemonday.StrictPolicy()

// CleanText strips markup from provider snippets (Brave wraps matches in
// <strong>) and collapses whitespace.
func CleanText(s string) string {
	return model.CollapseSpace(html.UnescapeString(strict.Sanitize(s)))
}

func clean(results []Result, limit int) []Result {
	out := make([]Result, 0, len(results))
	for _, r := range results {
		r.Title = CleanText(r.Title)
		r.Snippet = CleanText(r.Snippet)
		r.URL = strings.TrimSpace(r.URL)
		if r.Title == "" && r.Snippet == "" {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Chain tries each searcher in order and returns the first successful
// answer, even when it is empty.
type Chain struct {
	searchers []Searcher
}

// NewChain creates a Chain.
func NewChain(searchers ...Searcher) *Chain {
	return &Chain{searchers: searchers}
}

// Name implements Searcher.
func (c *Chain) Name() string { return "chain" }

// Search implements Searcher.
func (c *Chain) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	var lastErr error
	for _, s := range c.searchers {
		res, err := s.Search(ctx, query, limit)
		if err == nil {
			return res, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		zap.L().Debug("search: provider failed, trying next",
			zap.String("provider", s.Name()),
			zap.Error(err),
		)
	}
	if lastErr == nil {
		return nil, nil
	}
	return nil, lastErr
}
