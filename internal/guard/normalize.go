package guard

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/meetingintel/internal/model"
)

// ErrEmptyDraft is the parse failure for a blank response.
var ErrEmptyDraft = eris.New("guard: empty response")

// ParseDraft decodes a raw model response into a JSON object. Only a
// surrounding markdown code fence is tolerated; any other text around the
// object is a parse failure.
func ParseDraft(raw string) (map[string]any, error) {
	s := stripFence(strings.TrimSpace(raw))
	if s == "" {
		return nil, ErrEmptyDraft
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, eris.Wrap(err, "guard: invalid json")
	}
	doc, ok := v.(map[string]any)
	if !ok {
		return nil, eris.New("guard: response is not a JSON object")
	}
	return doc, nil
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	body := strings.TrimSuffix(s[3:], "```")
	// Drop an info string such as "json" on the opening fence line.
	if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.ContainsAny(body[:nl], "{[") {
		body = body[nl+1:]
	}
	return strings.TrimSpace(body)
}

// listFields are the string lists normalized before validation, keyed by
// their parent object ("" for top level).
var listFields = map[string][]string{
	"":                {"questions_to_ask", "red_flags"},
	"company_profile": {"likely_products_services", "hiring_signals", "recent_public_mentions"},
	"recommendations": {"dos", "donts", "connecting_points", "suggested_agenda"},
}

var objectFields = []string{"email_openers", "company_profile", "study_of_person", "recommendations"}

// ownedFields are stamped from the request, never taken from the model.
var ownedFields = []string{"input_email", "person_name_guess", "company_domain", "evidence", "github_profile", "correlation_id"}

// normalize rewrites doc in place so that near-miss drafts validate:
// missing or null lists and objects become empty, list-shaped strings are
// split, and confidence objects are coerced to {label, rationale}. Values of
// the wrong type are left alone for the schema to report.
func normalize(doc map[string]any, estimate model.Verdict, limit model.Label) {
	for _, key := range ownedFields {
		delete(doc, key)
	}
	for _, key := range objectFields {
		if v, ok := doc[key]; !ok || v == nil {
			doc[key] = map[string]any{}
		}
	}
	for parent, keys := range listFields {
		obj := doc
		if parent != "" {
			m, ok := doc[parent].(map[string]any)
			if !ok {
				continue
			}
			obj = m
		}
		for _, k := range keys {
			if l, ok := coalesceList(obj[k]); ok {
				obj[k] = l
			}
		}
	}

	v, ok := normalizeVerdict(doc["confidence"])
	switch {
	case !ok:
		v = estimate
	case v.Rationale == "":
		v.Rationale = estimate.Rationale
	}
	if limit != "" && v.Label.Rank() > limit.Rank() {
		v.Label = limit
	}
	doc["confidence"] = verdictMap(v)

	for _, key := range []string{"company_confidence", "person_confidence"} {
		raw, present := doc[key]
		if !present {
			continue
		}
		sub, ok := normalizeVerdict(raw)
		if !ok {
			delete(doc, key)
			continue
		}
		if sub.Rationale == "" {
			sub.Rationale = model.Unknown
		}
		doc[key] = verdictMap(sub)
	}
}

// coalesceList returns a cleaned []any for nil, string and all-string list
// values. ok is false for anything else.
func coalesceList(v any) ([]any, bool) {
	switch t := v.(type) {
	case nil:
		return []any{}, true
	case string:
		out := []any{}
		for _, s := range splitList(t) {
			out = append(out, s)
		}
		return out, true
	case []any:
		out := make([]any, 0, len(t))
		for _, item := range t {
			s, isStr := item.(string)
			if !isStr {
				return nil, false
			}
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out, true
	default:
		return nil, false
	}
}

// splitList breaks a prose list into items: one per line (bullets
// stripped), else on semicolons.
func splitList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, model.Unknown) {
		return nil
	}
	var parts []string
	for _, line := range strings.Split(strings.ReplaceAll(s, "\r", ""), "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*•"))
		if line != "" {
			parts = append(parts, line)
		}
	}
	if len(parts) > 1 {
		return parts
	}
	if strings.Contains(s, ";") {
		parts = parts[:0]
		for _, p := range strings.Split(s, ";") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		return parts
	}
	return []string{s}
}

// normalizeVerdict accepts the key spellings models use for a confidence
// object, a bare label string or a numeric score.
func normalizeVerdict(v any) (model.Verdict, bool) {
	switch t := v.(type) {
	case string:
		l, ok := model.ParseLabel(t)
		return model.Verdict{Label: l}, ok
	case float64:
		return model.Verdict{Label: labelFromScore(t)}, true
	case map[string]any:
		var out model.Verdict
		ok := false
		for _, k := range []string{"label", "level", "confidence"} {
			switch lv := t[k].(type) {
			case string:
				if l, valid := model.ParseLabel(lv); valid {
					out.Label, ok = l, true
				}
			case float64:
				out.Label, ok = labelFromScore(lv), true
			}
			if ok {
				break
			}
		}
		if !ok {
			for _, k := range []string{"score", "overall_confidence_score"} {
				if f, isNum := t[k].(float64); isNum {
					out.Label, ok = labelFromScore(f), true
					break
				}
			}
		}
		for _, k := range []string{"rationale", "reason", "explanation"} {
			if s, isStr := t[k].(string); isStr && strings.TrimSpace(s) != "" {
				out.Rationale = strings.TrimSpace(s)
				break
			}
		}
		return out, ok
	default:
		return model.Verdict{}, false
	}
}

func labelFromScore(f float64) model.Label {
	switch {
	case f >= 0.75:
		return model.LabelHigh
	case f >= 0.45:
		return model.LabelMedium
	default:
		return model.LabelLow
	}
}

func verdictMap(v model.Verdict) map[string]any {
	return map[string]any{"label": string(v.Label), "rationale": v.Rationale}
}
