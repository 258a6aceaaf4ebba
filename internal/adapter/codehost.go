package adapter

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/meetingintel/internal/fusion"
	"github.com/sells-group/meetingintel/internal/identity"
	"github.com/sells-group/meetingintel/internal/model"
	"github.com/sells-group/meetingintel/internal/search"
	"github.com/sells-group/meetingintel/pkg/github"
)

const (
	topRepos     = 8
	topLanguages = 5
	repoItems    = 3
)

// CodeHost finds the person's GitHub account and summarizes it.
type CodeHost struct {
	searcher search.Searcher
	client   github.Client
	limit    int
}

// NewCodeHost creates a CodeHost adapter. searcher may be nil when only
// explicit GitHub usernames should be looked up.
func NewCodeHost(searcher search.Searcher, client github.Client, limit int) *CodeHost {
	if limit <= 0 {
		limit = 5
	}
	return &CodeHost{searcher: searcher, client: client, limit: limit}
}

// Name implements Adapter.
func (c *CodeHost) Name() string { return "code-host" }

// Applies implements Adapter.
func (c *CodeHost) Applies(id model.Identity) bool {
	return id.GitHubUser != "" || (id.NameGuess != "" && c.searcher != nil)
}

// Collect implements Adapter.
func (c *CodeHost) Collect(ctx context.Context, id model.Identity) (Output, error) {
	var out Output
	login := id.GitHubUser

	if c.searcher != nil && id.NameGuess != "" {
		q := RenderQuery("{name} github", id)
		results, err := c.searcher.Search(ctx, q, c.limit)
		if err != nil {
			if login == "" {
				return Output{}, eris.Wrap(err, "adapter: code-host search")
			}
			zap.L().Warn("adapter: code-host search failed", zap.Error(err))
		}
		out.Items = searchItems(model.SourceWebSearchCodeHost, hitsOf(results))
		if login == "" {
			login = discoverLogin(results)
		}
	}
	if login == "" || c.client == nil {
		return out, nil
	}

	user, err := c.client.GetUser(ctx, login)
	if errors.Is(err, github.ErrNotFound) {
		return out, nil
	}
	if err != nil {
		if len(out.Items) == 0 {
			return Output{}, eris.Wrapf(err, "adapter: code-host user %s", login)
		}
		zap.L().Warn("adapter: code-host profile lookup failed", zap.Error(err))
		return out, nil
	}

	repos, err := c.client.ListRepos(ctx, user.Login, 100)
	if err != nil {
		zap.L().Warn("adapter: code-host repo listing failed", zap.Error(err))
		repos = nil
	}

	profile := BuildProfile(user, repos)
	out.GitHub = profile
	out.Items = append(out.Items, model.NewEvidenceItem(model.SourceCodeHostProfile, profileSnippet(user), profile.ProfileURL))
	for _, r := range rankRepos(repos, repoItems) {
		out.Items = append(out.Items, model.NewEvidenceItem(model.SourceCodeHostProfile, repoSnippet(user.Login, r), r.HTMLURL))
	}

	if user.Company != "" && id.CompanyHint() != "" {
		m := fusion.NewMatcher(fusion.TargetFor(id))
		if m.MentionsCompany(user.Company) {
			out.Agreeing = append(out.Agreeing, model.SourceCodeHostProfile)
		}
	}
	return out, nil
}

// discoverLogin returns the first profile-root GitHub URL's user.
func discoverLogin(results []search.Result) string {
	for _, r := range results {
		if u := identity.GitHubUserFromURL(r.URL); u != "" {
			return u
		}
	}
	return ""
}

// BuildProfile summarizes user and repos: top languages by repo count and
// top non-fork repos by stars.
func BuildProfile(user *github.User, repos []github.Repo) *model.GitHubProfile {
	p := &model.GitHubProfile{
		Username:     user.Login,
		Name:         user.Name,
		Bio:          model.CollapseSpace(user.Bio),
		Company:      strings.TrimPrefix(strings.TrimSpace(user.Company), "@"),
		Blog:         user.Blog,
		Location:     user.Location,
		PublicRepos:  user.PublicRepos,
		Followers:    user.Followers,
		TopLanguages: []string{},
		TopRepos:     []string{},
		ProfileURL:   user.HTMLURL,
	}

	counts := map[string]int{}
	for _, r := range repos {
		if r.Fork || r.Language == "" {
			continue
		}
		counts[r.Language]++
	}
	langs := make([]string, 0, len(counts))
	for l := range counts {
		langs = append(langs, l)
	}
	sort.Slice(langs, func(i, j int) bool {
		if counts[langs[i]] != counts[langs[j]] {
			return counts[langs[i]] > counts[langs[j]]
		}
		return langs[i] < langs[j]
	})
	if len(langs) > topLanguages {
		langs = langs[:topLanguages]
	}
	p.TopLanguages = append(p.TopLanguages, langs...)

	for _, r := range rankRepos(repos, topRepos) {
		p.TopRepos = append(p.TopRepos, r.Name)
	}
	return p
}

// rankRepos returns up to n non-fork repos, most stars first.
func rankRepos(repos []github.Repo, n int) []github.Repo {
	own := make([]github.Repo, 0, len(repos))
	for _, r := range repos {
		if !r.Fork {
			own = append(own, r)
		}
	}
	sort.SliceStable(own, func(i, j int) bool { return own[i].StargazersCount > own[j].StargazersCount })
	if len(own) > n {
		own = own[:n]
	}
	return own
}

func profileSnippet(u *github.User) string {
	var b strings.Builder
	b.WriteString("GitHub user " + u.Login)
	if u.Name != "" {
		b.WriteString(" (" + u.Name + ")")
	}
	if u.Bio != "" {
		b.WriteString(": " + u.Bio)
	}
	if u.Company != "" {
		b.WriteString(". Company: " + u.Company)
	}
	if u.Location != "" {
		b.WriteString(". Location: " + u.Location)
	}
	fmt.Fprintf(&b, ". %d public repos, %d followers.", u.PublicRepos, u.Followers)
	return b.String()
}

func repoSnippet(login string, r github.Repo) string {
	s := fmt.Sprintf("%s/%s", login, r.Name)
	if r.Description != "" {
		s += ": " + r.Description
	}
	if r.Language != "" {
		s += fmt.Sprintf(" (%s, %d stars)", r.Language, r.StargazersCount)
	} else {
		s += fmt.Sprintf(" (%d stars)", r.StargazersCount)
	}
	return s
}
