package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/meetingintel/internal/model"
)

func TestParseDraft(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"plain", `{"a":1}`, false},
		{"padded", "\n  {\"a\":1}  \n", false},
		{"fenced json", "```json\n{\"a\":1}\n```", false},
		{"fenced bare", "```\n{\"a\":1}\n```", false},
		{"fenced inline", "```{\"a\":1}```", false},
		{"prose before", `Here you go: {"a":1}`, true},
		{"prose after", `{"a":1} Hope this helps!`, true},
		{"array", `[1,2]`, true},
		{"empty", "   ", true},
		{"truncated", `{"a":`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseDraft(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 1.0, doc["a"])
		})
	}

	_, err := ParseDraft("")
	assert.ErrorIs(t, err, ErrEmptyDraft)
}

func TestCoalesceList(t *testing.T) {
	l, ok := coalesceList(nil)
	require.True(t, ok)
	assert.Equal(t, []any{}, l)

	l, ok = coalesceList("- one\n- two\n\n* three")
	require.True(t, ok)
	assert.Equal(t, []any{"one", "two", "three"}, l)

	l, ok = coalesceList("alpha; beta;")
	require.True(t, ok)
	assert.Equal(t, []any{"alpha", "beta"}, l)

	l, ok = coalesceList("Unknown")
	require.True(t, ok)
	assert.Equal(t, []any{}, l)

	l, ok = coalesceList([]any{" a ", "", "b"})
	require.True(t, ok)
	assert.Equal(t, []any{"a", "b"}, l)

	_, ok = coalesceList([]any{"a", 2.0})
	assert.False(t, ok)

	_, ok = coalesceList(map[string]any{})
	assert.False(t, ok)
}

func TestNormalizeVerdict(t *testing.T) {
	tests := []struct {
		name  string
		in    any
		label model.Label
		why   string
		ok    bool
	}{
		{"canonical", map[string]any{"label": "High", "rationale": "many"}, model.LabelHigh, "many", true},
		{"level and reason", map[string]any{"level": "medium", "reason": "some"}, model.LabelMedium, "some", true},
		{"confidence key", map[string]any{"confidence": "low", "explanation": "few"}, model.LabelLow, "few", true},
		{"numeric label", map[string]any{"label": 0.8}, model.LabelHigh, "", true},
		{"score", map[string]any{"score": 0.5}, model.LabelMedium, "", true},
		{"overall score", map[string]any{"overall_confidence_score": 0.1}, model.LabelLow, "", true},
		{"bare string", "MEDIUM", model.LabelMedium, "", true},
		{"bare number", 0.75, model.LabelHigh, "", true},
		{"unrecognized label", map[string]any{"label": "certain", "rationale": "x"}, "", "x", false},
		{"nil", nil, "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := normalizeVerdict(tt.in)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.label, v.Label)
			}
			assert.Equal(t, tt.why, v.Rationale)
		})
	}
}

func TestNormalize(t *testing.T) {
	estimate := model.Verdict{Label: model.LabelLow, Rationale: "estimator says low"}
	doc := map[string]any{
		"confidence":         map[string]any{"label": "bogus"},
		"company_confidence": map[string]any{"level": "high"},
		"person_confidence":  "nonsense",
		"questions_to_ask":   "Ask about roadmap; Ask about hiring",
		"red_flags":          nil,
		"recommendations":    map[string]any{"dos": nil},
		"evidence":           "model supplied evidence",
		"input_email":        "spoofed@example.com",
	}
	normalize(doc, estimate, "")

	assert.Equal(t, map[string]any{"label": "low", "rationale": "estimator says low"}, doc["confidence"])
	assert.Equal(t, map[string]any{"label": "high", "rationale": "unknown"}, doc["company_confidence"])
	assert.NotContains(t, doc, "person_confidence")
	assert.NotContains(t, doc, "evidence")
	assert.NotContains(t, doc, "input_email")
	assert.Equal(t, []any{"Ask about roadmap", "Ask about hiring"}, doc["questions_to_ask"])
	assert.Equal(t, []any{}, doc["red_flags"])
	assert.Equal(t, map[string]any{}, doc["email_openers"])

	recs := doc["recommendations"].(map[string]any)
	assert.Equal(t, []any{}, recs["dos"])
	assert.Equal(t, []any{}, recs["suggested_agenda"])
}

func TestNormalize_CapsModelConfidence(t *testing.T) {
	doc := map[string]any{"confidence": map[string]any{"label": "high", "rationale": "model is sure"}}
	normalize(doc, model.Verdict{Label: model.LabelMedium, Rationale: "est"}, model.LabelMedium)
	assert.Equal(t, map[string]any{"label": "medium", "rationale": "model is sure"}, doc["confidence"])
}

func TestNormalize_KeepsRationaleFromEstimate(t *testing.T) {
	doc := map[string]any{"confidence": map[string]any{"label": "medium"}}
	normalize(doc, model.Verdict{Label: model.LabelLow, Rationale: "est"}, "")
	assert.Equal(t, map[string]any{"label": "medium", "rationale": "est"}, doc["confidence"])
}
