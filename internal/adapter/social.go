package adapter

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/meetingintel/internal/fusion"
	"github.com/sells-group/meetingintel/internal/identity"
	"github.com/sells-group/meetingintel/internal/model"
	"github.com/sells-group/meetingintel/internal/search"
)

// discoveryTemplate looks for public profiles of a named person.
const discoveryTemplate = `"{name}" {company} linkedin OR twitter OR github`

// Social reads public profile cards. In social mode it searches the given
// profile; otherwise it discovers profiles for the name guess.
type Social struct {
	searcher search.Searcher
	limit    int
}

// NewSocial creates a Social adapter.
func NewSocial(searcher search.Searcher, limit int) *Social {
	if limit <= 0 {
		limit = 5
	}
	return &Social{searcher: searcher, limit: limit}
}

// Name implements Adapter.
func (s *Social) Name() string { return "social" }

// Applies implements Adapter.
func (s *Social) Applies(id model.Identity) bool {
	if id.Mode == model.InputModeSocial {
		return id.SocialURL != ""
	}
	return id.NameGuess != ""
}

// Collect implements Adapter.
func (s *Social) Collect(ctx context.Context, id model.Identity) (Output, error) {
	if id.Mode == model.InputModeSocial {
		return s.profile(ctx, id)
	}
	return s.discover(ctx, id)
}

func (s *Social) profile(ctx context.Context, id model.Identity) (Output, error) {
	results, err := s.searcher.Search(ctx, identity.ProfileQuery(id), s.limit)
	if err != nil {
		return Output{}, eris.Wrap(err, "adapter: social profile")
	}

	var out Output
	handle := strings.ToLower(id.Handle)
	company := id.Company
	for _, r := range profileResults(results, handle) {
		if _, headline := identity.SplitProfileTitle(r.Title); headline != "" && company == "" {
			_, company = identity.ParseHeadline(headline)
		}
		out.Items = append(out.Items, model.NewEvidenceItem(model.SourceSocialProfileSnippet, r.Text(), r.URL))
	}
	out.CompanyResolved = company != "" && id.CompanyDomain != ""
	return out, nil
}

// profileResults keeps results on the profile's own URL, or the first result
// when none carry the handle.
func profileResults(results []search.Result, handle string) []search.Result {
	if len(results) == 0 {
		return nil
	}
	var own []search.Result
	for _, r := range results {
		if handle != "" && strings.Contains(strings.ToLower(r.URL), handle) {
			own = append(own, r)
		}
	}
	if len(own) == 0 {
		return results[:1]
	}
	return own
}

func (s *Social) discover(ctx context.Context, id model.Identity) (Output, error) {
	results, err := s.searcher.Search(ctx, RenderQuery(discoveryTemplate, id), s.limit)
	if err != nil {
		return Output{}, eris.Wrap(err, "adapter: social discovery")
	}

	m := fusion.NewMatcher(fusion.TargetFor(id))
	var out Output
	for _, r := range results {
		if identity.PlatformForURL(r.URL) == "" {
			continue
		}
		if !m.MentionsName(r.Title + " " + r.Snippet) {
			continue
		}
		out.Items = append(out.Items, model.NewEvidenceItem(model.SourceSocialProfileDiscovered, r.Text(), r.URL))
	}
	return out, nil
}
