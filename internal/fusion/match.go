package fusion

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// minTermRunes is the shortest token or company term matched on its own.
const minTermRunes = 3

// Target names what the evidence should be about.
type Target struct {
	Name    string
	Company string
	Domain  string
}

// Matcher is a best-effort mention heuristic, not identity resolution.
//
// A name matches when the folded full name appears, or when its first and
// last tokens appear anywhere in the text. Tokens shorter than 3 runes are
// dropped from the token check, so "J Smith" falls back to "smith" alone and
// will match any Smith. A company matches when its
// folded name or the first label of its domain (at least 3 runes) appears.
// Expect false positives for short or generic company names ("Apex") and
// false negatives for nicknames, initials and transliterations.
type Matcher struct {
	fullName  string
	nameParts []string
	companies []string
}

// NewMatcher prepares folded match terms for target.
func NewMatcher(target Target) *Matcher {
	m := &Matcher{fullName: Fold(target.Name)}
	if parts := strings.Fields(m.fullName); len(parts) >= 2 {
		for _, p := range []string{parts[0], parts[len(parts)-1]} {
			if len([]rune(p)) >= minTermRunes {
				m.nameParts = append(m.nameParts, p)
			}
		}
	}
	if c := Fold(target.Company); len([]rune(c)) >= minTermRunes {
		m.companies = append(m.companies, c)
	}
	if label := domainLabel(target.Domain); len([]rune(label)) >= minTermRunes && !contains(m.companies, label) {
		m.companies = append(m.companies, label)
	}
	return m
}

// MentionsName reports whether text mentions the target person.
func (m *Matcher) MentionsName(text string) bool {
	if m.fullName == "" {
		return false
	}
	t := Fold(text)
	if strings.Contains(t, m.fullName) {
		return true
	}
	if len(m.nameParts) == 0 {
		return false
	}
	for _, p := range m.nameParts {
		if !strings.Contains(t, p) {
			return false
		}
	}
	return true
}

// MentionsCompany reports whether text mentions the target company.
func (m *Matcher) MentionsCompany(text string) bool {
	if len(m.companies) == 0 {
		return false
	}
	t := Fold(text)
	for _, c := range m.companies {
		if strings.Contains(t, c) {
			return true
		}
	}
	return false
}

// HasCompany reports whether the matcher has any company term.
func (m *Matcher) HasCompany() bool { return len(m.companies) > 0 }

// Fold lower-cases s, strips combining marks and collapses whitespace so
// "José  Núñez" and "jose nunez" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(strings.ToLower(out)), " ")
}

func domainLabel(domain string) string {
	d := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(domain)), "www.")
	if i := strings.IndexByte(d, '.'); i > 0 {
		return d[:i]
	}
	return ""
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
