package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/meetingintel/internal/model"
	"github.com/sells-group/meetingintel/internal/search"
)

type MockSearcher struct {
	mock.Mock
}

func (m *MockSearcher) Name() string { return "mock" }

func (m *MockSearcher) Search(ctx context.Context, query string, limit int) ([]search.Result, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]search.Result), args.Error(1)
}

func TestParseEmail(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantErr   bool
		nameGuess string
		domain    string
		freeMail  bool
	}{
		{name: "dotted", raw: " Jane.Doe@Acme.io ", nameGuess: "Jane Doe", domain: "acme.io"},
		{name: "underscore with digits", raw: "john_smith2@corp.example.com", nameGuess: "John Smith", domain: "corp.example.com"},
		{name: "hyphen", raw: "ana-maria@acme.io", nameGuess: "Ana Maria", domain: "acme.io"},
		{name: "single token", raw: "jdoe@acme.io", domain: "acme.io"},
		{name: "free mail", raw: "jane.doe@gmail.com", nameGuess: "Jane Doe", freeMail: true},
		{name: "no at", raw: "jane.doe.acme.io", wantErr: true},
		{name: "no tld", raw: "jane@acme", wantErr: true},
		{name: "spaces", raw: "jane doe@acme.io", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ParseEmail(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidEmail)
				assert.True(t, IsInvalidInput(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, model.InputModeEmail, id.Mode)
			assert.Equal(t, tt.nameGuess, id.NameGuess)
			assert.Equal(t, tt.domain, id.CompanyDomain)
			assert.Equal(t, tt.freeMail, id.FreeMail)
			if tt.freeMail {
				assert.Equal(t, model.ResolutionNone, id.CompanyResolution)
				assert.False(t, id.HasAuthoritativeAnchor())
			} else {
				assert.Equal(t, model.ResolutionDirect, id.CompanyResolution)
				assert.True(t, id.HasAuthoritativeAnchor())
			}
		})
	}
}

func TestNameCompany(t *testing.T) {
	id, err := NameCompany("  Jane   Doe ", " Acme Robotics ")
	require.NoError(t, err)
	assert.Equal(t, model.InputModeNameCompany, id.Mode)
	assert.Equal(t, "Jane Doe", id.NameGuess)
	assert.Equal(t, "Acme Robotics", id.Company)
	assert.Empty(t, id.CompanyDomain)

	id, err = NameCompany("Jane Doe", "Acme.IO")
	require.NoError(t, err)
	assert.Equal(t, "acme.io", id.CompanyDomain)
	assert.Equal(t, model.ResolutionDirect, id.CompanyResolution)

	_, err = NameCompany("", "Acme")
	assert.ErrorIs(t, err, ErrMissingName)
	_, err = NameCompany("Jane", " ")
	assert.ErrorIs(t, err, ErrMissingCompany)
}

func TestNormalize(t *testing.T) {
	id, err := Normalize(Request{Email: "a.b@acme.io", Name: "ignored"})
	require.NoError(t, err)
	assert.Equal(t, model.InputModeEmail, id.Mode)

	id, err = Normalize(Request{Name: "Jane Doe", Company: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, model.InputModeNameCompany, id.Mode)

	_, err = Normalize(Request{Company: "Acme"})
	assert.ErrorIs(t, err, ErrMissingName)

	id, err = Normalize(Request{SocialURL: "@janedoe"})
	require.NoError(t, err)
	assert.Equal(t, model.InputModeSocial, id.Mode)

	_, err = Normalize(Request{})
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.False(t, IsInvalidInput(errors.New("other")))
}

func TestIsLikelyDomain(t *testing.T) {
	for _, s := range []string{"openai.com", "example.co.uk", "a.b.c.d"} {
		assert.True(t, IsLikelyDomain(s), s)
	}
	for _, s := range []string{"OpenAI", "Acme Corp", "acme.", "a.b.c.d.e", "x@y.com", "https://acme.io/x"} {
		assert.False(t, IsLikelyDomain(s), s)
	}
}

func TestDomainHelpers(t *testing.T) {
	assert.Equal(t, "openai.com", DomainFromURL("https://www.openai.com/about"))
	assert.Equal(t, "acme.io", DomainFromURL("acme.io/careers"))
	assert.Equal(t, "", DomainFromURL(""))

	assert.Equal(t, "acmerobotics", Slug("Acme Robotics, Inc."))
	assert.Equal(t, "acme.com", GuessDomain("Acme Widgets Corp"))
	assert.Equal(t, "microsoft.com", GuessDomain("Microsoft Corporation"))
	assert.Equal(t, "", GuessDomain("!!!"))

	assert.True(t, domainMatches("acmerobotics.com", "Acme Robotics"))
	assert.True(t, domainMatches("acme.com", "Acme Robotics"))
	assert.False(t, domainMatches("wikipedia.org", "Acme Robotics"))
	assert.False(t, domainMatches("ab.com", "Ab"))
}

func TestParseSocial(t *testing.T) {
	tests := []struct {
		raw      string
		platform string
		handle   string
		name     string
		github   string
	}{
		{raw: "https://www.linkedin.com/in/jane-doe-1a2b3c/", platform: PlatformLinkedIn, handle: "jane-doe-1a2b3c", name: "Jane Doe"},
		{raw: "linkedin.com/in/jdoe", platform: PlatformLinkedIn, handle: "jdoe"},
		{raw: "https://uk.linkedin.com/in/ana-lima", platform: PlatformLinkedIn, handle: "ana-lima", name: "Ana Lima"},
		{raw: "https://github.com/octocat", platform: PlatformGitHub, handle: "octocat", github: "octocat"},
		{raw: "https://twitter.com/janedoe", platform: PlatformX, handle: "janedoe"},
		{raw: "https://x.com/jane_doe?lang=en", platform: PlatformX, handle: "jane_doe"},
		{raw: "https://www.instagram.com/jane.doe/", platform: PlatformInstagram, handle: "jane.doe"},
		{raw: "https://medium.com/@janedoe/some-post-123", platform: PlatformMedium, handle: "janedoe"},
		{raw: "@janedoe", platform: PlatformX, handle: "janedoe"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			id, err := ParseSocial(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, model.InputModeSocial, id.Mode)
			assert.Equal(t, tt.platform, id.SocialPlatform)
			assert.Equal(t, tt.handle, id.Handle)
			assert.Equal(t, tt.name, id.NameGuess)
			assert.Equal(t, tt.github, id.GitHubUser)
			assert.NotEmpty(t, id.SocialURL)
		})
	}
}

func TestParseSocial_Unsupported(t *testing.T) {
	for _, raw := range []string{
		"https://facebook.com/jane",
		"https://github.com/octocat/hello-world",
		"https://x.com/search",
		"https://x.com/home",
		"janedoe",
		"",
	} {
		_, err := ParseSocial(raw)
		assert.ErrorIs(t, err, ErrUnsupportedSocial, raw)
	}
}

func TestPlatformHelpers(t *testing.T) {
	assert.Equal(t, PlatformInstagram, PlatformForURL("https://instagram.com/acme"))
	assert.Equal(t, "", PlatformForURL("https://acme.io"))
	assert.Equal(t, "", PlatformForURL("https://x.com/explore"))

	assert.Equal(t, "octocat", GitHubUserFromURL("https://github.com/octocat/"))
	assert.Equal(t, "", GitHubUserFromURL("https://github.com/octocat/repo"))
	assert.Equal(t, "", GitHubUserFromURL("https://github.com/orgs"))
}

func TestSplitProfileTitle(t *testing.T) {
	name, headline := SplitProfileTitle("Jane Doe - VP Engineering at Acme Robotics | LinkedIn")
	assert.Equal(t, "Jane Doe", name)
	assert.Equal(t, "VP Engineering at Acme Robotics", headline)

	name, headline = SplitProfileTitle("Jane Doe")
	assert.Equal(t, "Jane Doe", name)
	assert.Empty(t, headline)
}

func TestParseHeadline(t *testing.T) {
	tests := []struct {
		in, role, company string
	}{
		{"Software Engineer at OpenAI", "Software Engineer", "OpenAI"},
		{"CEO @ Acme Corp", "CEO", "Acme Corp"},
		{"Product Manager | Microsoft", "Product Manager", "Microsoft"},
		{"Founder AT Widgets Inc", "Founder", "Widgets Inc"},
		{"Builder of things", "Builder of things", ""},
	}
	for _, tt := range tests {
		role, company := ParseHeadline(tt.in)
		assert.Equal(t, tt.role, role, tt.in)
		assert.Equal(t, tt.company, company, tt.in)
	}
}
