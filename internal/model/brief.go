package model

import "strings"

// Unknown is the placeholder for descriptive fields with no supported value.
const Unknown = "unknown"

// Outcome distinguishes a validated model result from a deterministic fallback.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeFallback Outcome = "fallback"
)

// EmailOpeners holds three opening lines in different registers.
type EmailOpeners struct {
	Formal    string `json:"formal"`
	Warm      string `json:"warm"`
	Technical string `json:"technical"`
}

// CompanyProfile summarizes what public evidence says about the company.
type CompanyProfile struct {
	Summary                string   `json:"summary"`
	LikelyProductsServices []string `json:"likely_products_services"`
	HiringSignals          []string `json:"hiring_signals"`
	RecentPublicMentions   []string `json:"recent_public_mentions"`
}

// StudyOfPerson describes the person's likely focus and style.
type StudyOfPerson struct {
	LikelyRoleFocus    string `json:"likely_role_focus"`
	Domain             string `json:"domain"`
	CommunicationStyle string `json:"communication_style"`
}

// Recommendations are meeting-preparation suggestions.
type Recommendations struct {
	Dress            string   `json:"dress"`
	Tone             string   `json:"tone"`
	Dos              []string `json:"dos"`
	Donts            []string `json:"donts"`
	ConnectingPoints []string `json:"connecting_points"`
	SuggestedAgenda  []string `json:"suggested_agenda"`
}

// GitHubProfile is the public code-host summary for the person, when found.
type GitHubProfile struct {
	Username     string   `json:"username"`
	Name         string   `json:"name,omitempty"`
	Bio          string   `json:"bio,omitempty"`
	Company      string   `json:"company,omitempty"`
	Blog         string   `json:"blog,omitempty"`
	Location     string   `json:"location,omitempty"`
	PublicRepos  int      `json:"public_repos"`
	Followers    int      `json:"followers"`
	TopLanguages []string `json:"top_languages"`
	TopRepos     []string `json:"top_repos"`
	ProfileURL   string   `json:"profile_url"`
}

// Brief is the structured persona result returned to callers.
type Brief struct {
	InputEmail        string          `json:"input_email"`
	PersonNameGuess   string          `json:"person_name_guess"`
	CompanyDomain     string          `json:"company_domain"`
	Confidence        Verdict         `json:"confidence"`
	CompanyConfidence *Verdict        `json:"company_confidence,omitempty"`
	PersonConfidence  *Verdict        `json:"person_confidence,omitempty"`
	OneMinuteBrief    string          `json:"one_minute_brief"`
	QuestionsToAsk    []string        `json:"questions_to_ask"`
	EmailOpeners      EmailOpeners    `json:"email_openers"`
	RedFlags          []string        `json:"red_flags"`
	CompanyProfile    CompanyProfile  `json:"company_profile"`
	StudyOfPerson     StudyOfPerson   `json:"study_of_person"`
	Recommendations   Recommendations `json:"recommendations"`
	Evidence          []EvidenceRef   `json:"evidence"`
	GitHubProfile     *GitHubProfile  `json:"github_profile,omitempty"`

	Outcome        Outcome `json:"-"`
	RepairAttempts int     `json:"-"`
	CorrelationID  string  `json:"correlation_id,omitempty"`
}

// DefaultQuestions are offered when the model supplies none.
var DefaultQuestions = []string{
	"What are your top priorities for the next 30 to 60 days?",
	"What does success look like after the first 90 days?",
	"Which skills or traits differentiate strong partners for your team?",
}

// DefaultRedFlags are offered when the model supplies none.
var DefaultRedFlags = []string{
	"Avoid assuming the person's exact title or seniority without confirmation.",
	"Avoid claiming information beyond the provided public evidence.",
}

// ApplyDefaults fills every empty string with Unknown and every nil list with
// an empty one, so renderers only ever check for empty lists.
func (b *Brief) ApplyDefaults() {
	b.PersonNameGuess = orUnknown(b.PersonNameGuess)
	b.CompanyDomain = orUnknown(b.CompanyDomain)
	b.OneMinuteBrief = orUnknown(b.OneMinuteBrief)

	if len(b.QuestionsToAsk) == 0 {
		b.QuestionsToAsk = append([]string(nil), DefaultQuestions...)
	}
	if len(b.RedFlags) == 0 {
		b.RedFlags = append([]string(nil), DefaultRedFlags...)
	}

	b.EmailOpeners.Formal = orUnknown(b.EmailOpeners.Formal)
	b.EmailOpeners.Warm = orUnknown(b.EmailOpeners.Warm)
	b.EmailOpeners.Technical = orUnknown(b.EmailOpeners.Technical)

	cp := &b.CompanyProfile
	cp.Summary = orUnknown(cp.Summary)
	cp.LikelyProductsServices = nonNil(cp.LikelyProductsServices)
	cp.HiringSignals = nonNil(cp.HiringSignals)
	cp.RecentPublicMentions = nonNil(cp.RecentPublicMentions)

	sp := &b.StudyOfPerson
	sp.LikelyRoleFocus = orUnknown(sp.LikelyRoleFocus)
	sp.Domain = orUnknown(sp.Domain)
	sp.CommunicationStyle = orUnknown(sp.CommunicationStyle)

	r := &b.Recommendations
	r.Dress = orUnknown(r.Dress)
	r.Tone = orUnknown(r.Tone)
	r.Dos = nonNil(r.Dos)
	r.Donts = nonNil(r.Donts)
	r.ConnectingPoints = nonNil(r.ConnectingPoints)
	r.SuggestedAgenda = nonNil(r.SuggestedAgenda)

	if b.Evidence == nil {
		b.Evidence = []EvidenceRef{}
	}
	if b.GitHubProfile != nil {
		b.GitHubProfile.TopLanguages = nonNil(b.GitHubProfile.TopLanguages)
		b.GitHubProfile.TopRepos = nonNil(b.GitHubProfile.TopRepos)
	}
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return Unknown
	}
	return s
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
