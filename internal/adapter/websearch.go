package adapter

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/meetingintel/internal/model"
	"github.com/sells-group/meetingintel/internal/search"
)

// Query is a search template for one evidence source. Placeholders are
// {domain}, {company} and {name}; {domain} falls back to the company name.
type Query struct {
	Source   model.Source
	Template string
	// NeedsDomain and NeedsName gate the query on identity fields.
	NeedsDomain bool
	NeedsName   bool
}

// DefaultQueries are the stock web-search templates.
func DefaultQueries() []Query {
	return []Query{
		{Source: model.SourceWebSearchCompany, Template: "{domain} about company"},
		{Source: model.SourceWebSearchNews, Template: "{domain} funding OR raises OR press release"},
		{Source: model.SourceWebSearchHiring, Template: "site:{domain} careers OR jobs OR hiring", NeedsDomain: true},
		{Source: model.SourceWebSearchPerson, Template: "{name} {domain}", NeedsName: true},
	}
}

// WebSearch runs one query template and turns hits into items.
type WebSearch struct {
	query    Query
	searcher search.Searcher
	limit    int
}

// NewWebSearch creates a WebSearch adapter returning at most limit items.
func NewWebSearch(q Query, searcher search.Searcher, limit int) *WebSearch {
	if limit <= 0 {
		limit = 5
	}
	return &WebSearch{query: q, searcher: searcher, limit: limit}
}

// Name implements Adapter.
func (w *WebSearch) Name() string { return string(w.query.Source) }

// Applies implements Adapter.
func (w *WebSearch) Applies(id model.Identity) bool {
	if w.query.NeedsDomain && id.CompanyDomain == "" {
		return false
	}
	if w.query.NeedsName && id.NameGuess == "" {
		return false
	}
	return id.CompanyDomain != "" || id.Company != "" || (w.query.NeedsName && id.NameGuess != "")
}

// Collect implements Adapter.
func (w *WebSearch) Collect(ctx context.Context, id model.Identity) (Output, error) {
	q := RenderQuery(w.query.Template, id)
	results, err := w.searcher.Search(ctx, q, w.limit)
	if err != nil {
		return Output{}, eris.Wrapf(err, "adapter: %s", w.Name())
	}
	return Output{Items: searchItems(w.query.Source, hitsOf(results))}, nil
}

// RenderQuery fills a template from id.
func RenderQuery(tmpl string, id model.Identity) string {
	domain := id.CompanyDomain
	if domain == "" {
		domain = id.Company
	}
	r := strings.NewReplacer(
		"{domain}", domain,
		"{company}", id.CompanyHint(),
		"{name}", id.NameGuess,
	)
	return model.CollapseSpace(r.Replace(tmpl))
}

func hitsOf(results []search.Result) []searchHit {
	hits := make([]searchHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, searchHit{text: r.Text(), url: r.URL})
	}
	return hits
}
