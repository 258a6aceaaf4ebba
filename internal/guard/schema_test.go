package guard

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/meetingintel/internal/model"
)

func newTestSchema(t *testing.T) *Schema {
	t.Helper()
	s, err := NewSchema()
	require.NoError(t, err)
	return s
}

func validDoc() map[string]any {
	return map[string]any{
		"confidence":       map[string]any{"label": "medium", "rationale": "Several sources."},
		"one_minute_brief": "Jane leads platform engineering at Acme.",
		"questions_to_ask": []any{"What is on the roadmap?"},
		"red_flags":        []any{},
		"email_openers":    map[string]any{"formal": "Dear Jane", "warm": "Hi Jane", "technical": "Saw your talk"},
		"company_profile": map[string]any{
			"summary":                  "Robotics company.",
			"likely_products_services": []any{"robots"},
			"hiring_signals":           []any{},
			"recent_public_mentions":   []any{},
		},
		"study_of_person": map[string]any{"likely_role_focus": "platform"},
		"recommendations": map[string]any{
			"dos": []any{"Be concise"}, "donts": []any{}, "connecting_points": []any{}, "suggested_agenda": []any{},
		},
		"extra_key": "tolerated",
	}
}

func TestSchema_Valid(t *testing.T) {
	s := newTestSchema(t)
	assert.Empty(t, s.Validate(validDoc()))
}

func TestSchema_Violations(t *testing.T) {
	s := newTestSchema(t)

	tests := []struct {
		name   string
		mutate func(map[string]any)
		field  string
	}{
		{"missing brief", func(d map[string]any) { delete(d, "one_minute_brief") }, "one_minute_brief"},
		{"empty brief", func(d map[string]any) { d["one_minute_brief"] = "" }, "one_minute_brief"},
		{"bad label", func(d map[string]any) { d["confidence"] = map[string]any{"label": "certain", "rationale": "x"} }, "confidence"},
		{"list of numbers", func(d map[string]any) { d["questions_to_ask"] = []any{1.0, 2.0} }, "questions_to_ask"},
		{"openers as string", func(d map[string]any) { d["email_openers"] = "hello" }, "email_openers"},
		{"null list", func(d map[string]any) { d["red_flags"] = nil }, "red_flags"},
		{"bad sub confidence", func(d map[string]any) {
			d["person_confidence"] = map[string]any{"label": "sure", "rationale": "x"}
		}, "person_confidence"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDoc()
			tt.mutate(d)
			errs := s.Validate(d)
			require.NotEmpty(t, errs)
			assert.Contains(t, strings.Join(errs, "\n"), tt.field)
		})
	}
}

func TestSchema_DefaultedBriefValidates(t *testing.T) {
	s := newTestSchema(t)

	b := model.Brief{Confidence: model.Verdict{Label: model.LabelLow, Rationale: "No public evidence was found."}}
	b.ApplyDefaults()
	data, err := json.Marshal(b)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.Empty(t, s.Validate(doc))
}

func TestSchema_Source(t *testing.T) {
	assert.Contains(t, newTestSchema(t).Source(), "#Brief")
}

func TestCompileSchema_Invalid(t *testing.T) {
	_, err := compileSchema("#Brief: {")
	assert.Error(t, err)

	_, err = compileSchema("#Other: {}")
	assert.Error(t, err)
}
