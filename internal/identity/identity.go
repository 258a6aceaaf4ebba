// Package identity turns raw identity hints (an email, a name plus company,
// or a social profile) into a normalized model.Identity and resolves the
// company domain behind them.
package identity

import (
	"errors"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/meetingintel/internal/model"
)

// Input validation errors. All of them are caller mistakes.
var (
	ErrEmptyInput        = eris.New("identity: email, name+company or social profile required")
	ErrInvalidEmail      = eris.New("identity: invalid email")
	ErrMissingName       = eris.New("identity: name required")
	ErrMissingCompany    = eris.New("identity: company required")
	ErrUnsupportedSocial = eris.New("identity: unsupported social profile")
)

// IsInvalidInput reports whether err is one of the validation errors above.
func IsInvalidInput(err error) bool {
	for _, target := range []error{ErrEmptyInput, ErrInvalidEmail, ErrMissingName, ErrMissingCompany, ErrUnsupportedSocial} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Request carries the raw hints as received from a caller. The first
// populated mode wins: email, then name+company, then social.
type Request struct {
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
	Company   string `json:"company,omitempty"`
	SocialURL string `json:"social_url,omitempty"`
}

// Normalize validates req and returns the identity for its mode.
func Normalize(req Request) (model.Identity, error) {
	switch {
	case strings.TrimSpace(req.Email) != "":
		return ParseEmail(req.Email)
	case strings.TrimSpace(req.Name) != "" || strings.TrimSpace(req.Company) != "":
		return NameCompany(req.Name, req.Company)
	case strings.TrimSpace(req.SocialURL) != "":
		return ParseSocial(req.SocialURL)
	default:
		return model.Identity{}, ErrEmptyInput
	}
}
