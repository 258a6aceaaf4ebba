package search

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/meetingintel/pkg/jina"
)

// Jina searches with the Jina search endpoint.
type Jina struct {
	client jina.Client
}

// NewJina creates a Jina searcher.
func NewJina(client jina.Client) *Jina {
	return &Jina{client: client}
}

// Name implements Searcher.
func (j *Jina) Name() string { return "jina" }

// Search implements Searcher.
func (j *Jina) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	resp, err := j.client.Search(ctx, query, jina.WithSnippetsOnly())
	if err != nil {
		return nil, eris.Wrap(err, "search: jina")
	}
	results := make([]Result, 0, len(resp.Data))
	for _, d := range resp.Data {
		snippet := d.Description
		if snippet == "" {
			snippet = d.Content
		}
		results = append(results, Result{Title: d.Title, URL: d.URL, Snippet: snippet})
	}
	return clean(results, limit), nil
}
