package identity

import (
	"regexp"
	"strings"

	"github.com/sells-group/meetingintel/internal/model"
)

// Social platforms recognized by ParseSocial.
const (
	PlatformLinkedIn  = "linkedin"
	PlatformGitHub    = "github"
	PlatformX         = "x"
	PlatformInstagram = "instagram"
	PlatformMedium    = "medium"
)

type platformPattern struct {
	platform string
	re       *regexp.Regexp
}

// Each pattern captures the handle in group 1.
var platformPatterns = []platformPattern{
	{PlatformLinkedIn, regexp.MustCompile(`(?i)^https?://(?:[a-z]{2,3}\.)?(?:www\.)?linkedin\.com/in/([a-z0-9-]+)/?`)},
	{PlatformGitHub, regexp.MustCompile(`(?i)^https?://(?:www\.)?github\.com/([a-z0-9-]{1,39})/?$`)},
	{PlatformX, regexp.MustCompile(`(?i)^https?://(?:www\.|mobile\.)?(?:x|twitter)\.com/([a-z0-9_]{1,15})/?(?:\?.*)?$`)},
	{PlatformInstagram, regexp.MustCompile(`(?i)^https?://(?:www\.)?instagram\.com/([a-z0-9_.]{1,30})/?(?:\?.*)?$`)},
	{PlatformMedium, regexp.MustCompile(`(?i)^https?://(?:www\.)?medium\.com/@([a-z0-9_.-]+)/?`)},
}

var (
	bareHandleRe = regexp.MustCompile(`^@([A-Za-z0-9_]{1,15})$`)
	// Site sections that look like handles but are not profiles.
	reservedHandles = map[string]bool{
		"home": true, "search": true, "explore": true, "i": true, "settings": true,
		"login": true, "about": true, "orgs": true, "p": true, "reel": true,
	}
)

// ParseSocial recognizes a profile URL or an @handle (treated as X) and
// returns a social-mode identity. LinkedIn and GitHub handles also seed a
// name guess or code-host username.
func ParseSocial(raw string) (model.Identity, error) {
	s := strings.TrimSpace(raw)
	if m := bareHandleRe.FindStringSubmatch(s); m != nil {
		return model.Identity{
			Mode:           model.InputModeSocial,
			SocialURL:      "https://x.com/" + m[1],
			SocialPlatform: PlatformX,
			Handle:         m[1],
		}, nil
	}

	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	platform, handle := matchPlatform(s)
	if platform == "" || reservedHandles[strings.ToLower(handle)] {
		return model.Identity{}, ErrUnsupportedSocial
	}

	id := model.Identity{
		Mode:           model.InputModeSocial,
		SocialURL:      s,
		SocialPlatform: platform,
		Handle:         handle,
	}
	switch platform {
	case PlatformLinkedIn:
		id.NameGuess = GuessName(handle)
	case PlatformGitHub:
		id.GitHubUser = handle
	}
	return id, nil
}

func matchPlatform(u string) (platform, handle string) {
	for _, p := range platformPatterns {
		m := p.re.FindStringSubmatch(u)
		if m == nil {
			continue
		}
		return p.platform, m[len(m)-1]
	}
	return "", ""
}

// PlatformForURL names the social platform of u, or "" for other sites.
func PlatformForURL(u string) string {
	platform, handle := matchPlatform(strings.TrimSpace(u))
	if reservedHandles[strings.ToLower(handle)] {
		return ""
	}
	return platform
}

var githubProfileRe = regexp.MustCompile(`(?i)^https?://(?:www\.)?github\.com/([a-z0-9-]{1,39})/?$`)

// GitHubUserFromURL returns the username when u is a bare GitHub profile URL.
func GitHubUserFromURL(u string) string {
	m := githubProfileRe.FindStringSubmatch(strings.TrimSpace(u))
	if m == nil || reservedHandles[strings.ToLower(m[1])] {
		return ""
	}
	return m[1]
}

// SplitProfileTitle splits a search title of the form "Name - Headline".
// Trailing site names ("| LinkedIn") are dropped.
func SplitProfileTitle(title string) (name, headline string) {
	title = model.CollapseSpace(title)
	if i := strings.LastIndex(title, " | "); i >= 0 && strings.EqualFold(strings.TrimSpace(title[i+3:]), "linkedin") {
		title = title[:i]
	}
	name, headline, ok := strings.Cut(title, " - ")
	if !ok {
		return strings.TrimSpace(title), ""
	}
	return strings.TrimSpace(name), strings.TrimSpace(headline)
}

var headlinePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(.+?)\s+at\s+(.+)$`),
	regexp.MustCompile(`^(.+?)\s+@\s+(.+)$`),
	regexp.MustCompile(`^(.+?)\s+\|\s+(.+)$`),
}

// ParseHeadline splits "Role at Company", "Role @ Company" or
// "Role | Company". Without a separator the whole headline is the role.
func ParseHeadline(headline string) (role, company string) {
	headline = strings.TrimSpace(headline)
	for _, re := range headlinePatterns {
		if m := re.FindStringSubmatch(headline); m != nil {
			return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
		}
	}
	return headline, ""
}
