package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	assert.Equal(t, "jose nunez", Fold("  José\tNúñez "))
	assert.Equal(t, "", Fold(""))
}

func TestMatcher_Name(t *testing.T) {
	m := NewMatcher(Target{Name: "José Núñez"})
	assert.True(t, m.MentionsName("Interview with jose nunez on scaling"))
	assert.True(t, m.MentionsName("Núñez, José. Staff engineer"))
	assert.False(t, m.MentionsName("Jose Garcia joins"))
}

func TestMatcher_InitialFallsBackToSurname(t *testing.T) {
	m := NewMatcher(Target{Name: "J Smith"})
	assert.True(t, m.MentionsName("J. Smith spoke at the summit"))
	assert.True(t, m.MentionsName("Smith, Jane"))
	assert.False(t, m.MentionsName("jobs in jacksonville"))
	assert.False(t, m.MentionsName("j and k went hiking"))
}

func TestMatcher_ShortTokensOnlyMatchFullName(t *testing.T) {
	m := NewMatcher(Target{Name: "Li Wu"})
	assert.True(t, m.MentionsName("an interview with Li Wu"))
	assert.False(t, m.MentionsName("wu tang live in lille"))
}

func TestMatcher_SingleTokenName(t *testing.T) {
	m := NewMatcher(Target{Name: "Prince"})
	assert.True(t, m.MentionsName("prince performs"))
	assert.False(t, m.MentionsName("a royal visit"))
}

func TestMatcher_Company(t *testing.T) {
	m := NewMatcher(Target{Company: "Acme Robotics", Domain: "acmerobotics.io"})
	assert.True(t, m.HasCompany())
	assert.True(t, m.MentionsCompany("ACME ROBOTICS announces"))
	assert.True(t, m.MentionsCompany("see acmerobotics.io/careers"))
	assert.False(t, m.MentionsCompany("Acme Anvils"))
}

func TestMatcher_ShortCompanyIgnored(t *testing.T) {
	m := NewMatcher(Target{Company: "HP", Domain: "hp.com"})
	assert.False(t, m.HasCompany())
	assert.False(t, m.MentionsCompany("HP releases laptops"))
}

func TestMatcher_Empty(t *testing.T) {
	m := NewMatcher(Target{})
	assert.False(t, m.MentionsName("anything"))
	assert.False(t, m.MentionsCompany("anything"))
}

func TestNormalizeCompany(t *testing.T) {
	assert.Equal(t, "acme", NormalizeCompany("Acme, Inc."))
	assert.Equal(t, "acme robotics", NormalizeCompany("  ACME Robotics LLC "))
	assert.Equal(t, "globex", NormalizeCompany("Globex Corporation Ltd"))
	assert.Equal(t, "societe generale", NormalizeCompany("Société Générale SA"))
	assert.Equal(t, "company", NormalizeCompany("Company"))
}
