package generate

import (
	"fmt"
	"strings"

	"github.com/sells-group/meetingintel/internal/model"
)

// SystemPrompt is sent with every generation request.
const SystemPrompt = `You prepare meeting intelligence from public web signals.

Rules:
- Use probabilistic language. Never claim certainty.
- Do not assert facts that the evidence does not support.
- Output MUST be a single JSON object with no markdown and no commentary.
- Follow the requested keys exactly.
- confidence MUST be an object with keys label (low|medium|high) and rationale (string).
- recommendations MUST contain arrays for dos, donts, connecting_points and suggested_agenda (they may be empty).`

// StrictJSONInstruction is appended to every repair attempt.
const StrictJSONInstruction = "Return ONLY a valid JSON object. No extra text, no markdown fences."

const shape = `Task:
Return JSON with keys:
- confidence: {label, rationale}
- company_confidence (optional): {label, rationale}
- person_confidence (optional): {label, rationale}
- one_minute_brief (string)
- questions_to_ask (array of strings)
- email_openers: {formal, warm, technical}
- red_flags (array of strings)
- company_profile: {summary, likely_products_services[], hiring_signals[], recent_public_mentions[]}
- study_of_person: {likely_role_focus, domain, communication_style}
- recommendations: {dress, tone, dos[], donts[], connecting_points[], suggested_agenda[]}

Rules:
- If something is unknown, use the string "unknown" (not null).
- Base every claim on the evidence above.`

// BuildPrompt renders the user prompt for one identity and its fused
// evidence. The evidence set is already bounded by fusion, so the prompt is
// bounded too.
func BuildPrompt(id model.Identity, set model.FusedEvidenceSet) string {
	var b strings.Builder

	b.WriteString("Input:\n")
	writeField(&b, "mode", string(id.Mode))
	writeField(&b, "email", id.Email)
	writeField(&b, "name_guess", id.NameGuess)
	writeField(&b, "company", id.Company)
	writeField(&b, "company_domain", id.CompanyDomain)
	writeField(&b, "social_profile", id.SocialURL)
	if id.Headline != "" {
		writeField(&b, "headline", id.Headline)
	}

	b.WriteString("\nEvidence (public web signals):\n")
	if set.Len() == 0 {
		b.WriteString("- None\n")
	}
	for _, it := range set.Items {
		fmt.Fprintf(&b, "- [%s] %s", it.Source, it.Snippet)
		if it.URL != "" {
			fmt.Fprintf(&b, " (%s)", it.URL)
		}
		b.WriteByte('\n')
	}

	b.WriteByte('\n')
	b.WriteString(shape)
	return b.String()
}

func writeField(b *strings.Builder, key, val string) {
	if val == "" {
		val = model.Unknown
	}
	fmt.Fprintf(b, "- %s: %s\n", key, val)
}
