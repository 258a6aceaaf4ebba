package fusion

import (
	"regexp"
	"strings"

	"github.com/sells-group/meetingintel/internal/model"
)

var companySuffix = regexp.MustCompile(`(?i)[\s,]+(inc|corp|corporation|llc|ltd|limited|co|company|gmbh|plc|ag|sa|bv)\.?$`)

// NormalizeCompany lower-cases and folds a company name and strips trailing
// corporate suffixes ("Acme, Inc." becomes "acme").
func NormalizeCompany(company string) string {
	c := Fold(company)
	for {
		stripped := strings.TrimSpace(companySuffix.ReplaceAllString(c, ""))
		if stripped == c || stripped == "" {
			return c
		}
		c = stripped
	}
}

// TargetFor builds the match target for an identity.
func TargetFor(id model.Identity) Target {
	return Target{
		Name:    id.NameGuess,
		Company: NormalizeCompany(id.Company),
		Domain:  id.CompanyDomain,
	}
}
