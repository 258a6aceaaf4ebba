package confidence

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sells-group/meetingintel/internal/fusion"
	"github.com/sells-group/meetingintel/internal/model"
)

// Signals are optional cross-validation inputs gathered outside the
// evidence set.
type Signals struct {
	// CompanyResolved is set when the company behind a social profile was
	// identified.
	CompanyResolved bool
	// Agreeing lists high-trust sources that agreed on a company or role
	// fact by other means (for example a code-host profile company field).
	Agreeing []model.Source
}

// Estimator computes verdicts. It is immutable and safe for concurrent use.
type Estimator struct {
	policy   Policy
	surnames map[string]struct{}
}

// NewEstimator freezes p into an estimator.
func NewEstimator(p Policy) *Estimator {
	e := &Estimator{policy: p, surnames: make(map[string]struct{}, len(p.CommonSurnames))}
	for _, s := range p.CommonSurnames {
		e.surnames[fusion.Fold(s)] = struct{}{}
	}
	return e
}

// Policy returns the estimator's thresholds.
func (e *Estimator) Policy() Policy { return e.policy }

// Estimate returns the verdict for set under id's input mode. Identical
// inputs always produce identical verdicts.
func (e *Estimator) Estimate(set model.FusedEvidenceSet, id model.Identity, sig Signals) model.Verdict {
	target := fusion.TargetFor(id)
	matcher := fusion.NewMatcher(target)
	n := set.Len()
	coverage := set.SourceCoverage()

	var sentences []string
	if n == 0 {
		sentences = append(sentences, tmplNoEvidence)
	} else {
		sentences = append(sentences, fmt.Sprintf(tmplVolume, modeName(id.Mode), n, len(coverage), joinSources(coverage)))
	}

	label, why := e.base(set, id, matcher, sig)
	sentences = append(sentences, why...)

	limit := e.policy.Cap(id.Mode)
	if agreeing := e.corroborating(set, matcher, sig); len(agreeing) >= e.policy.CorroborationMin && label.Rank() < limit.Rank() {
		label = model.LabelFromRank(label.Rank() + 1)
		sentences = append(sentences, fmt.Sprintf(tmplBoost, joinSources(agreeing)))
	}

	if limit != model.LabelHigh && label == limit {
		sentences = append(sentences, tmplModeCap)
	}

	if !id.HasAuthoritativeAnchor() && e.isCommonName(id.NameGuess) && label != model.LabelLow {
		label = model.LabelLow
		sentences = append(sentences, fmt.Sprintf(tmplCommonName, id.NameGuess))
	}

	return model.Verdict{Label: label, Rationale: strings.Join(sentences, " ")}
}

// base applies the mode's volume thresholds.
func (e *Estimator) base(set model.FusedEvidenceSet, id model.Identity, m *fusion.Matcher, sig Signals) (model.Label, []string) {
	p := e.policy
	n := set.Len()

	switch id.Mode {
	case model.InputModeEmail:
		site := set.Covers(model.SourceCompanySite)
		switch {
		case n >= p.EmailHighMin && site:
			return model.LabelHigh, []string{fmt.Sprintf(tmplEmailHigh, p.EmailHighMin)}
		case n >= p.EmailMediumMin:
			if !site {
				return model.LabelMedium, []string{tmplNoSite}
			}
			return model.LabelMedium, []string{fmt.Sprintf(tmplBelow, p.EmailHighMin)}
		default:
			return model.LabelLow, []string{fmt.Sprintf(tmplBelow, p.EmailMediumMin)}
		}

	case model.InputModeNameCompany:
		rate := MatchRate(set, m)
		why := fmt.Sprintf(tmplMatchRate, rate*100)
		switch {
		case n >= p.NameCompanyPrimaryMin && rate >= p.NameCompanyPrimaryRate,
			n >= p.NameCompanySecondaryMin && rate >= p.NameCompanySecondaryRate:
			return model.LabelMedium, []string{why}
		case n < p.NameCompanySecondaryMin:
			return model.LabelLow, []string{why, fmt.Sprintf(tmplBelow, p.NameCompanySecondaryMin)}
		default:
			return model.LabelLow, []string{why}
		}

	case model.InputModeSocial:
		if !sig.CompanyResolved {
			return model.LabelLow, []string{tmplUnresolved}
		}
		if n >= p.SocialMin {
			return model.LabelMedium, []string{tmplResolved}
		}
		return model.LabelLow, []string{tmplResolved, fmt.Sprintf(tmplBelow, p.SocialMin)}

	default:
		return model.LabelLow, []string{tmplUnknownMode}
	}
}

// corroborating returns the distinct high-trust sources that mention the
// target company, merged with externally supplied agreement.
func (e *Estimator) corroborating(set model.FusedEvidenceSet, m *fusion.Matcher, sig Signals) []model.Source {
	seen := make(map[model.Source]struct{})
	for _, s := range sig.Agreeing {
		seen[s] = struct{}{}
	}
	if m.HasCompany() {
		for _, it := range set.Items {
			if it.Weight >= e.policy.HighTrustWeight && m.MentionsCompany(it.Snippet) {
				seen[it.Source] = struct{}{}
			}
		}
	}
	out := make([]model.Source, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// isCommonName flags single-token names and names whose surname is on the
// frequent-surname list.
func (e *Estimator) isCommonName(name string) bool {
	parts := strings.Fields(fusion.Fold(name))
	switch len(parts) {
	case 0:
		return false
	case 1:
		return true
	}
	_, ok := e.surnames[parts[len(parts)-1]]
	return ok
}

// MatchRate is the share of items that mention the target company. It is 0
// for an empty set or a target without a company.
func MatchRate(set model.FusedEvidenceSet, m *fusion.Matcher) float64 {
	if set.Len() == 0 || !m.HasCompany() {
		return 0
	}
	hits := 0
	for _, it := range set.Items {
		if m.MentionsCompany(it.Snippet) || m.MentionsCompany(it.URL) {
			hits++
		}
	}
	return float64(hits) / float64(set.Len())
}

const (
	tmplNoEvidence  = "No public evidence was found."
	tmplVolume      = "%s input: %d evidence items from %d sources (%s)."
	tmplEmailHigh   = "At least %d items including the company website."
	tmplNoSite      = "The company website contributed no evidence."
	tmplBelow       = "Fewer than %d items for the next tier."
	tmplMatchRate   = "%.0f%% of items mention the company."
	tmplResolved    = "The profile's company was resolved."
	tmplUnresolved  = "The profile's company could not be resolved."
	tmplUnknownMode = "Unrecognized input mode."
	tmplBoost       = "Promoted one tier: %s independently mention the company."
	tmplModeCap     = "Capped at medium: this input has no authoritative identity anchor."
	tmplCommonName  = "Capped at low: %q is a common name and nothing anchors it to one person."
)

func modeName(m model.InputMode) string {
	switch m {
	case model.InputModeEmail:
		return "Email"
	case model.InputModeNameCompany:
		return "Name and company"
	case model.InputModeSocial:
		return "Social profile"
	default:
		return "Unknown"
	}
}

func joinSources(srcs []model.Source) string {
	parts := make([]string, len(srcs))
	for i, s := range srcs {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}
