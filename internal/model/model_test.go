package model

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSource(t *testing.T) {
	s, err := ParseSource(" Company-Site ")
	require.NoError(t, err)
	assert.Equal(t, SourceCompanySite, s)

	_, err = ParseSource("ddg_random")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownSource)
}

func TestAllSourcesValid(t *testing.T) {
	for _, s := range AllSources() {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, Source("blog-aggregator").Valid())
}

func TestNewEvidenceItem_TruncatesAndCollapses(t *testing.T) {
	long := strings.Repeat("é", MaxSnippetRunes+50)
	it := NewEvidenceItem(SourceWebSearchNews, "  a\n\tb  "+long, " https://x.test ")
	assert.True(t, strings.HasPrefix(it.Snippet, "a b "))
	assert.Equal(t, MaxSnippetRunes, len([]rune(it.Snippet)))
	assert.Equal(t, "https://x.test", it.URL)
	assert.Zero(t, it.QualityScore)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "", TruncateRunes("abc", 0))
	assert.Equal(t, "ab", TruncateRunes("abc", 2))
	assert.Equal(t, "abc", TruncateRunes("abc", 5))
	assert.Equal(t, "日本", TruncateRunes("日本語", 2))
}

func TestFusedEvidenceSet_Coverage(t *testing.T) {
	set := FusedEvidenceSet{Items: []EvidenceItem{
		{Source: SourceWebSearchNews},
		{Source: SourceCompanySite},
		{Source: SourceWebSearchNews},
	}}
	assert.Equal(t, []Source{SourceCompanySite, SourceWebSearchNews}, set.SourceCoverage())
	assert.True(t, set.Covers(SourceCompanySite))
	assert.False(t, set.Covers(SourceCodeHostProfile))
	assert.Equal(t, 2, set.CountBySource()[SourceWebSearchNews])
}

func TestFusedEvidenceSet_RefsNeverNil(t *testing.T) {
	refs := FusedEvidenceSet{}.Refs()
	require.NotNil(t, refs)
	assert.Empty(t, refs)
}

func TestLabelOrdering(t *testing.T) {
	assert.Less(t, LabelLow.Rank(), LabelMedium.Rank())
	assert.Less(t, LabelMedium.Rank(), LabelHigh.Rank())
	assert.Equal(t, LabelMedium, MinLabel(LabelHigh, LabelMedium))
	assert.Equal(t, LabelHigh, LabelFromRank(7))
	assert.Equal(t, LabelLow, LabelFromRank(-3))

	l, ok := ParseLabel(" HIGH ")
	assert.True(t, ok)
	assert.Equal(t, LabelHigh, l)
	_, ok = ParseLabel("very high")
	assert.False(t, ok)
}

func TestBriefApplyDefaults(t *testing.T) {
	b := Brief{GitHubProfile: &GitHubProfile{Username: "octo"}}
	b.ApplyDefaults()

	assert.Equal(t, Unknown, b.OneMinuteBrief)
	assert.Equal(t, Unknown, b.EmailOpeners.Warm)
	assert.Equal(t, DefaultQuestions, b.QuestionsToAsk)
	assert.Equal(t, DefaultRedFlags, b.RedFlags)
	assert.NotNil(t, b.CompanyProfile.HiringSignals)
	assert.NotNil(t, b.Recommendations.SuggestedAgenda)
	assert.NotNil(t, b.Evidence)
	assert.NotNil(t, b.GitHubProfile.TopRepos)

	// Lists render as [] rather than null.
	raw, err := json.Marshal(b)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"dos":[]`)
	assert.NotContains(t, string(raw), "null")
}

func TestBriefApplyDefaults_KeepsValues(t *testing.T) {
	b := Brief{OneMinuteBrief: "Acme builds rockets.", RedFlags: []string{"x"}}
	b.ApplyDefaults()
	assert.Equal(t, "Acme builds rockets.", b.OneMinuteBrief)
	assert.Equal(t, []string{"x"}, b.RedFlags)
}

func TestIdentityAnchor(t *testing.T) {
	assert.True(t, Identity{Mode: InputModeEmail, CompanyDomain: "acme.com"}.HasAuthoritativeAnchor())
	assert.False(t, Identity{Mode: InputModeEmail, FreeMail: true}.HasAuthoritativeAnchor())
	assert.False(t, Identity{Mode: InputModeNameCompany, CompanyDomain: "acme.com"}.HasAuthoritativeAnchor())
	assert.Equal(t, "acme.com", Identity{CompanyDomain: "acme.com"}.CompanyHint())
	assert.Equal(t, "Acme", Identity{Company: "Acme", CompanyDomain: "acme.com"}.CompanyHint())
}

func TestRunStatsFallbackRate(t *testing.T) {
	assert.Zero(t, RunStats{}.FallbackRate())
	assert.InDelta(t, 0.25, RunStats{Total: 8, Fallbacks: 2}.FallbackRate(), 1e-9)
}
