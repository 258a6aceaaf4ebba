package identity

import (
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/meetingintel/internal/model"
)

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

var freeMailDomains = map[string]bool{
	"gmail.com":      true,
	"yahoo.com":      true,
	"outlook.com":    true,
	"hotmail.com":    true,
	"icloud.com":     true,
	"proton.me":      true,
	"protonmail.com": true,
}

// IsFreeMail reports whether domain is a consumer mailbox provider.
func IsFreeMail(domain string) bool {
	return freeMailDomains[strings.ToLower(domain)]
}

// ParseEmail validates raw and builds an email-mode identity. Free-mail
// addresses are accepted but carry no company domain.
func ParseEmail(raw string) (model.Identity, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if !emailRe.MatchString(email) {
		return model.Identity{}, eris.Wrapf(ErrInvalidEmail, "identity: %d chars", len(email))
	}
	local, domain, _ := strings.Cut(email, "@")

	id := model.Identity{
		Mode:      model.InputModeEmail,
		Email:     email,
		NameGuess: GuessName(local),
	}
	if IsFreeMail(domain) {
		id.FreeMail = true
		return id, nil
	}
	id.CompanyDomain = domain
	id.CompanyResolution = model.ResolutionDirect
	return id, nil
}

var localPartSeparators = []string{".", "_", "-"}

// GuessName derives "First Last" from a first.last style local part or
// profile slug. It returns "" when no two alphabetic parts are found.
func GuessName(local string) string {
	for _, sep := range localPartSeparators {
		if !strings.Contains(local, sep) {
			continue
		}
		var parts []string
		for _, p := range strings.Split(local, sep) {
			if p = lettersOnly(p); p != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) >= 2 {
			title := cases.Title(language.Und)
			return title.String(parts[0]) + " " + title.String(parts[1])
		}
	}
	return ""
}

func lettersOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
