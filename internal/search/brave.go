package search

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/meetingintel/pkg/brave"
)

// Brave searches with the Brave web search API.
type Brave struct {
	client brave.Client
}

// NewBrave creates a Brave searcher.
func NewBrave(client brave.Client) *Brave {
	return &Brave{client: client}
}

// Name implements Searcher.
func (b *Brave) Name() string { return "brave" }

// Search implements Searcher.
func (b *Brave) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	hits, err := b.client.WebSearch(ctx, query, limit)
	if err != nil {
		return nil, eris.Wrap(err, "search: brave")
	}
	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		results = append(results, Result{Title: h.Title, URL: h.URL, Snippet: h.Description})
	}
	return clean(results, limit), nil
}
