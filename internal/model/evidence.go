package model

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
)

// MaxSnippetRunes bounds every evidence snippet.
const MaxSnippetRunes = 600

// Source tags the public source an evidence item came from.
type Source string

const (
	SourceCompanySite             Source = "company-site"
	SourceWebSearchCompany        Source = "web-search-company"
	SourceWebSearchPerson         Source = "web-search-person"
	SourceWebSearchNews           Source = "web-search-news"
	SourceWebSearchHiring         Source = "web-search-hiring"
	SourceWebSearchCodeHost       Source = "web-search-code-host"
	SourceCodeHostProfile         Source = "code-host-profile"
	SourceSocialProfileSnippet    Source = "social-profile-snippet"
	SourceSocialProfileDiscovered Source = "social-profile-discovered"
)

// AllSources returns the fixed source vocabulary in a stable order.
func AllSources() []Source {
	return []Source{
		SourceCompanySite,
		SourceWebSearchCompany,
		SourceWebSearchPerson,
		SourceWebSearchNews,
		SourceWebSearchHiring,
		SourceWebSearchCodeHost,
		SourceCodeHostProfile,
		SourceSocialProfileSnippet,
		SourceSocialProfileDiscovered,
	}
}

// ErrUnknownSource is returned by ParseSource for tags outside the vocabulary.
var ErrUnknownSource = eris.New("unknown evidence source")

// Valid reports whether s is part of the known vocabulary.
func (s Source) Valid() bool {
	for _, known := range AllSources() {
		if s == known {
			return true
		}
	}
	return false
}

// ParseSource converts a raw tag into a Source.
func ParseSource(raw string) (Source, error) {
	s := Source(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", eris.Wrapf(ErrUnknownSource, "source %q", raw)
	}
	return s, nil
}

// EvidenceItem is one normalized fragment of public information.
// Items are created by source adapters and are not mutated afterwards;
// the fusion engine works on copies.
type EvidenceItem struct {
	Source       Source  `json:"source"`
	Snippet      string  `json:"snippet"`
	URL          string  `json:"url,omitempty"`
	Weight       float64 `json:"-"`
	QualityScore float64 `json:"-"`
}

// NewEvidenceItem builds an item with a whitespace-collapsed snippet
// truncated to MaxSnippetRunes. Weight is assigned later by the fusion policy.
func NewEvidenceItem(source Source, snippet, url string) EvidenceItem {
	return EvidenceItem{
		Source:  source,
		Snippet: TruncateRunes(CollapseSpace(snippet), MaxSnippetRunes),
		URL:     strings.TrimSpace(url),
	}
}

// CollapseSpace trims s and folds internal whitespace runs to single spaces.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// TruncateRunes cuts s to at most n runes without splitting a rune.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// FusedEvidenceSet is the deduplicated, ranked and truncated evidence list.
type FusedEvidenceSet struct {
	Items []EvidenceItem `json:"items"`
}

// Len returns the number of fused items.
func (f FusedEvidenceSet) Len() int { return len(f.Items) }

// SourceCoverage returns the distinct source tags present, sorted.
func (f FusedEvidenceSet) SourceCoverage() []Source {
	seen := make(map[Source]struct{}, len(f.Items))
	var out []Source
	for _, it := range f.Items {
		if _, ok := seen[it.Source]; ok {
			continue
		}
		seen[it.Source] = struct{}{}
		out = append(out, it.Source)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Covers reports whether any item carries the given source tag.
func (f FusedEvidenceSet) Covers(s Source) bool {
	for _, it := range f.Items {
		if it.Source == s {
			return true
		}
	}
	return false
}

// CountBySource tallies items per source tag.
func (f FusedEvidenceSet) CountBySource() map[Source]int {
	out := make(map[Source]int)
	for _, it := range f.Items {
		out[it.Source]++
	}
	return out
}

// EvidenceRef is the public evidence shape returned to callers.
type EvidenceRef struct {
	Source  Source `json:"source"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

// Refs converts the fused set into the caller-facing evidence list.
// The result is never nil.
func (f FusedEvidenceSet) Refs() []EvidenceRef {
	out := make([]EvidenceRef, 0, len(f.Items))
	for _, it := range f.Items {
		out = append(out, EvidenceRef{Source: it.Source, Snippet: it.Snippet, URL: it.URL})
	}
	return out
}
