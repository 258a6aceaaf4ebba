package identity

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/sells-group/meetingintel/internal/fusion"
	"github.com/sells-group/meetingintel/internal/model"
)

// NameCompany validates an explicit name and company. A domain-like
// company ("acme.io") is used directly as the company domain.
func NameCompany(name, company string) (model.Identity, error) {
	name = model.CollapseSpace(name)
	company = model.CollapseSpace(company)
	if name == "" {
		return model.Identity{}, ErrMissingName
	}
	if company == "" {
		return model.Identity{}, ErrMissingCompany
	}

	id := model.Identity{
		Mode:      model.InputModeNameCompany,
		NameGuess: name,
		Company:   company,
	}
	if IsLikelyDomain(company) {
		id.CompanyDomain = strings.ToLower(company)
		id.CompanyResolution = model.ResolutionDirect
	}
	return id, nil
}

// IsLikelyDomain reports whether s already looks like a domain name.
func IsLikelyDomain(s string) bool {
	if !strings.Contains(s, ".") || strings.ContainsAny(s, " /@") || len(s) >= 100 {
		return false
	}
	labels := strings.Split(s, ".")
	if len(labels) < 2 || len(labels) > 4 {
		return false
	}
	for _, l := range labels {
		if l == "" {
			return false
		}
	}
	return true
}

// DomainFromURL returns the host of raw without a leading "www.".
func DomainFromURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Slug compacts a company name for domain comparison: suffixes stripped,
// folded, letters and digits only ("Acme Robotics, Inc." becomes
// "acmerobotics").
func Slug(company string) string {
	return nonAlnum.ReplaceAllString(fusion.NormalizeCompany(company), "")
}

// GuessDomain is the last-resort domain: the first word of the normalized
// company plus ".com".
func GuessDomain(company string) string {
	normalized := fusion.NormalizeCompany(company)
	first := normalized
	if fields := strings.Fields(normalized); len(fields) > 0 {
		first = fields[0]
	}
	slug := nonAlnum.ReplaceAllString(first, "")
	if slug == "" {
		slug = nonAlnum.ReplaceAllString(strings.ToLower(company), "")
	}
	if slug == "" {
		return ""
	}
	return slug + ".com"
}

// domainMatches reports whether domain plausibly belongs to company: the
// first domain label contains the company slug or vice versa.
func domainMatches(domain, company string) bool {
	slug := Slug(company)
	label, _, _ := strings.Cut(domain, ".")
	if slug == "" || len(label) < 3 {
		return false
	}
	return strings.Contains(label, slug) || strings.Contains(slug, label)
}
