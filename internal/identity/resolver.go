package identity

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/meetingintel/internal/model"
	"github.com/sells-group/meetingintel/internal/search"
)

const resolverResults = 3

// Resolver fills in what the raw hints leave open: the company domain for
// name+company input and the person, headline and company behind a social
// profile. Lookups are best effort; only cancellation is an error.
type Resolver struct {
	searcher search.Searcher
}

// NewResolver creates a Resolver. A nil searcher limits resolution to
// direct domains and guesses.
func NewResolver(searcher search.Searcher) *Resolver {
	return &Resolver{searcher: searcher}
}

// Resolve returns id with resolution fields filled.
func (r *Resolver) Resolve(ctx context.Context, id model.Identity) (model.Identity, error) {
	if id.Mode == model.InputModeSocial {
		if err := r.lookupProfile(ctx, &id); err != nil {
			return id, err
		}
	}
	if id.CompanyDomain != "" || id.Company == "" {
		return id, nil
	}

	domain, how, err := r.ResolveDomain(ctx, id.Company)
	if err != nil {
		return id, err
	}
	id.CompanyDomain = domain
	id.CompanyResolution = how
	return id, nil
}

// ResolveDomain maps a company name to a domain: used as is when it already
// looks like one, else the first search hit whose host matches the company
// slug, else "<slug>.com".
func (r *Resolver) ResolveDomain(ctx context.Context, company string) (string, model.CompanyResolution, error) {
	company = strings.TrimSpace(company)
	if company == "" {
		return "", model.ResolutionNone, nil
	}
	if IsLikelyDomain(company) {
		return strings.ToLower(company), model.ResolutionDirect, nil
	}

	if r.searcher != nil {
		results, err := r.searcher.Search(ctx, `"`+company+`" official website`, resolverResults)
		switch {
		case ctx.Err() != nil:
			return "", model.ResolutionNone, eris.Wrap(ctx.Err(), "identity: resolve domain")
		case err != nil:
			zap.L().Warn("identity: company search failed, guessing domain", zap.Error(err))
		default:
			for _, res := range results {
				if d := DomainFromURL(res.URL); d != "" && domainMatches(d, company) {
					return d, model.ResolutionSearch, nil
				}
			}
		}
	}

	if guess := GuessDomain(company); guess != "" {
		return guess, model.ResolutionGuess, nil
	}
	return "", model.ResolutionNone, nil
}

// ProfileQuery is the search used to find a social profile's public card.
func ProfileQuery(id model.Identity) string {
	if id.SocialPlatform == PlatformLinkedIn && id.Handle != "" {
		return "site:linkedin.com/in/" + id.Handle
	}
	return id.SocialURL
}

func (r *Resolver) lookupProfile(ctx context.Context, id *model.Identity) error {
	if r.searcher == nil || id.SocialURL == "" {
		return nil
	}
	results, err := r.searcher.Search(ctx, ProfileQuery(*id), resolverResults)
	if ctx.Err() != nil {
		return eris.Wrap(ctx.Err(), "identity: profile lookup")
	}
	if err != nil {
		zap.L().Warn("identity: profile lookup failed",
			zap.String("platform", id.SocialPlatform),
			zap.Error(err),
		)
		return nil
	}

	hit, ok := pickProfile(results, id.Handle)
	if !ok {
		return nil
	}
	name, headline := SplitProfileTitle(hit.Title)
	if name != "" && !strings.EqualFold(name, id.Handle) && !strings.HasPrefix(name, "@") {
		id.NameGuess = name
	}
	if headline == "" {
		return nil
	}
	id.Headline = headline
	if _, company := ParseHeadline(headline); company != "" && id.Company == "" {
		id.Company = company
	}
	return nil
}

// pickProfile prefers a result whose URL carries the handle.
func pickProfile(results []search.Result, handle string) (search.Result, bool) {
	if len(results) == 0 {
		return search.Result{}, false
	}
	h := strings.ToLower(handle)
	for _, res := range results {
		if h != "" && strings.Contains(strings.ToLower(res.URL), h) {
			return res, true
		}
	}
	return results[0], true
}
