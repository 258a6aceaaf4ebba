package model

// InputMode describes which identity hint started the request.
type InputMode string

const (
	InputModeEmail       InputMode = "email"        // validated email + domain + name guess
	InputModeNameCompany InputMode = "name_company" // explicit name + company
	InputModeSocial      InputMode = "social"       // social profile URL or handle
)

// Valid reports whether m is a known input mode.
func (m InputMode) Valid() bool {
	switch m {
	case InputModeEmail, InputModeNameCompany, InputModeSocial:
		return true
	default:
		return false
	}
}

// CompanyResolution records how the company domain was obtained.
type CompanyResolution string

const (
	ResolutionNone   CompanyResolution = ""
	ResolutionDirect CompanyResolution = "direct"
	ResolutionSearch CompanyResolution = "search"
	ResolutionGuess  CompanyResolution = "guess"
)

// Identity is the normalized identity descriptor consumed by the pipeline.
type Identity struct {
	Mode              InputMode         `json:"mode"`
	Email             string            `json:"email,omitempty"`
	FreeMail          bool              `json:"free_mail,omitempty"`
	NameGuess         string            `json:"name_guess,omitempty"`
	Company           string            `json:"company,omitempty"`
	CompanyDomain     string            `json:"company_domain,omitempty"`
	CompanyResolution CompanyResolution `json:"company_resolution,omitempty"`
	SocialURL         string            `json:"social_url,omitempty"`
	SocialPlatform    string            `json:"social_platform,omitempty"`
	Handle            string            `json:"handle,omitempty"`
	Headline          string            `json:"headline,omitempty"`
	GitHubUser        string            `json:"github_user,omitempty"`
}

// CompanyHint returns the best string for matching company mentions.
func (id Identity) CompanyHint() string {
	if id.Company != "" {
		return id.Company
	}
	return id.CompanyDomain
}

// HasAuthoritativeAnchor reports whether the identity is anchored to a
// company-controlled domain (a non-free email address).
func (id Identity) HasAuthoritativeAnchor() bool {
	return id.Mode == InputModeEmail && !id.FreeMail && id.CompanyDomain != ""
}
