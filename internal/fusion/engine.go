package fusion

import (
	"net/url"
	"sort"
	"strings"

	"github.com/OneOfOne/xxhash"

	"github.com/sells-group/meetingintel/internal/model"
)

// Engine fuses raw adapter evidence. It holds no mutable state and is safe
// for concurrent use.
type Engine struct {
	policy Policy
	table  weightTable
}

// NewEngine freezes p into an engine. p must already be valid.
func NewEngine(p Policy) *Engine {
	p = p.clone()
	return &Engine{policy: p, table: newWeightTable(p)}
}

// Policy returns a copy of the engine's policy.
func (e *Engine) Policy() Policy { return e.policy.clone() }

// Weight returns the table weight for a source tag.
func (e *Engine) Weight(s model.Source) float64 { return e.table.weight(s) }

// HighTrust reports whether items from s count as high-trust corroboration.
func (e *Engine) HighTrust(s model.Source) bool {
	return e.table.weight(s) >= e.policy.HighTrustWeight
}

// Fuse deduplicates, scores, ranks and truncates items. items must be in
// adapter enumeration order; that order is the tie-break. An empty input
// yields an empty set.
func (e *Engine) Fuse(items []model.EvidenceItem, target Target) model.FusedEvidenceSet {
	matcher := NewMatcher(target)

	type ranked struct {
		item  model.EvidenceItem
		order int
	}

	seen := make(map[uint64]struct{}, len(items))
	kept := make([]ranked, 0, len(items))
	for i, it := range items {
		if strings.TrimSpace(it.Snippet) == "" {
			continue
		}
		k := e.dedupeKey(it)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}

		it.Weight = e.table.weight(it.Source)
		it.QualityScore = e.score(it, matcher)
		kept = append(kept, ranked{item: it, order: i})
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].item.QualityScore != kept[j].item.QualityScore {
			return kept[i].item.QualityScore > kept[j].item.QualityScore
		}
		return kept[i].order < kept[j].order
	})

	if len(kept) > e.policy.MaxItems {
		kept = kept[:e.policy.MaxItems]
	}

	out := model.FusedEvidenceSet{Items: make([]model.EvidenceItem, 0, len(kept))}
	for _, r := range kept {
		out.Items = append(out.Items, r.item)
	}
	return out
}

func (e *Engine) score(it model.EvidenceItem, m *Matcher) float64 {
	s := it.Weight
	if m.MentionsName(it.Snippet) || m.MentionsCompany(it.Snippet) {
		s += e.policy.MentionBonus
	}
	if len([]rune(it.Snippet)) < e.policy.ShortSnippetRunes {
		s -= e.policy.ShortSnippetPenalty
	}
	if host := hostOf(it.URL); host != "" && e.table.isAggregator(host) {
		s -= e.policy.AggregatorPenalty
	}
	return clamp(s)
}

// DedupeKey exposes the identity used for deduplication.
func (e *Engine) DedupeKey(it model.EvidenceItem) uint64 { return e.dedupeKey(it) }

func (e *Engine) dedupeKey(it model.EvidenceItem) uint64 {
	prefix := model.TruncateRunes(Fold(it.Snippet), e.policy.PrefixRunes)
	h := xxhash.NewS64(0)
	h.Write([]byte(normalizeURL(it.URL)))
	h.Write([]byte{0})
	h.Write([]byte(prefix))
	return h.Sum64()
}

// normalizeURL lower-cases scheme and host, drops fragments and trailing
// slashes. Unparseable values fall back to trimmed lower-case text.
func normalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimRight(strings.ToLower(raw), "/")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	return strings.TrimRight(u.String(), "/")
}

func hostOf(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
