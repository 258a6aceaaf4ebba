// Package adapter collects raw evidence items from public sources. Each
// adapter is independently failable; the Fanout runs them concurrently with
// per-adapter timeouts and circuit breakers and treats a failure as an empty
// contribution.
package adapter

import (
	"context"

	"github.com/sells-group/meetingintel/internal/model"
)

// Output is one adapter's contribution.
type Output struct {
	Items []model.EvidenceItem
	// GitHub is set by the code-host adapter when a profile was found.
	GitHub *model.GitHubProfile
	// CompanyResolved reports that the company behind a social profile was
	// identified.
	CompanyResolved bool
	// Agreeing lists high-trust sources that confirmed the company by means
	// other than a text mention.
	Agreeing []model.Source
}

// Adapter pulls evidence for an identity from one public source.
type Adapter interface {
	Name() string
	// Applies reports whether the identity carries what this adapter needs.
	Applies(id model.Identity) bool
	Collect(ctx context.Context, id model.Identity) (Output, error)
}

// searchItems converts search hits into evidence items tagged source.
func searchItems(source model.Source, hits []searchHit) []model.EvidenceItem {
	items := make([]model.EvidenceItem, 0, len(hits))
	for _, h := range hits {
		items = append(items, model.NewEvidenceItem(source, h.text, h.url))
	}
	return items
}

type searchHit struct {
	text string
	url  string
}
