// Package confidence derives a deterministic, explainable confidence verdict
// from fused evidence. It performs no I/O.
package confidence

import "github.com/sells-group/meetingintel/internal/model"

// Policy holds the tunable thresholds for each input mode.
type Policy struct {
	EmailHighMin   int `yaml:"email_high_min" mapstructure:"email_high_min"`
	EmailMediumMin int `yaml:"email_medium_min" mapstructure:"email_medium_min"`

	NameCompanyPrimaryMin    int     `yaml:"name_company_primary_min" mapstructure:"name_company_primary_min"`
	NameCompanyPrimaryRate   float64 `yaml:"name_company_primary_rate" mapstructure:"name_company_primary_rate"`
	NameCompanySecondaryMin  int     `yaml:"name_company_secondary_min" mapstructure:"name_company_secondary_min"`
	NameCompanySecondaryRate float64 `yaml:"name_company_secondary_rate" mapstructure:"name_company_secondary_rate"`

	SocialMin int `yaml:"social_min" mapstructure:"social_min"`

	// CorroborationMin is how many distinct high-trust sources must mention
	// the company before the label is promoted one tier.
	CorroborationMin int     `yaml:"corroboration_min" mapstructure:"corroboration_min"`
	HighTrustWeight  float64 `yaml:"high_trust_weight" mapstructure:"high_trust_weight"`

	CommonSurnames []string `yaml:"common_surnames" mapstructure:"common_surnames"`
}

// DefaultPolicy returns the stock thresholds.
func DefaultPolicy() Policy {
	return Policy{
		EmailHighMin:             15,
		EmailMediumMin:           8,
		NameCompanyPrimaryMin:    12,
		NameCompanyPrimaryRate:   0.6,
		NameCompanySecondaryMin:  6,
		NameCompanySecondaryRate: 0.4,
		SocialMin:                6,
		CorroborationMin:         2,
		HighTrustWeight:          0.7,
		CommonSurnames:           append([]string(nil), commonSurnames...),
	}
}

// Cap is the highest label a mode can reach.
func (p Policy) Cap(mode model.InputMode) model.Label {
	if mode == model.InputModeEmail {
		return model.LabelHigh
	}
	return model.LabelMedium
}

var commonSurnames = []string{
	"smith", "johnson", "williams", "brown", "jones", "garcia", "miller", "davis",
	"rodriguez", "martinez", "hernandez", "lopez", "gonzalez", "wilson", "anderson",
	"thomas", "taylor", "moore", "jackson", "martin", "lee", "perez", "thompson",
	"white", "harris", "sanchez", "clark", "ramirez", "lewis", "robinson", "walker",
	"young", "allen", "king", "wright", "scott", "torres", "nguyen", "hill", "green",
	"adams", "baker", "hall", "rivera", "campbell", "mitchell", "carter", "roberts",
	"kumar", "singh", "sharma", "patel", "shah", "wang", "li", "zhang", "liu", "chen",
	"yang", "huang", "zhao", "wu", "zhou", "kim", "park", "khan", "ali", "ahmed",
	"muller", "schmidt", "schneider", "fischer", "rossi", "russo", "silva", "santos",
	"dubois", "tanaka", "suzuki", "sato", "ivanov",
}
