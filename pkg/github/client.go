// Package github provides a minimal client for the public GitHub REST API.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// ErrNotFound is returned when the user does not exist.
var ErrNotFound = eris.New("github: not found")

// Client defines the GitHub operations used for profile lookups.
type Client interface {
	GetUser(ctx context.Context, login string) (*User, error)
	ListRepos(ctx context.Context, login string, perPage int) ([]Repo, error)
}

// User is the public user record.
type User struct {
	Login       string `json:"login"`
	HTMLURL     string `json:"html_url"`
	Name        string `json:"name"`
	Company     string `json:"company"`
	Blog        string `json:"blog"`
	Location    string `json:"location"`
	Bio         string `json:"bio"`
	PublicRepos int    `json:"public_repos"`
	Followers   int    `json:"followers"`
	Following   int    `json:"following"`
}

// Repo is one public repository.
type Repo struct {
	Name            string    `json:"name"`
	HTMLURL         string    `json:"html_url"`
	Description     string    `json:"description"`
	Language        string    `json:"language"`
	StargazersCount int       `json:"stargazers_count"`
	Fork            bool      `json:"fork"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// StatusError is returned for non-2xx replies other than 404.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("github: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Option configures the GitHub client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *httpClient) {
		c.userAgent = ua
	}
}

type httpClient struct {
	token     string
	baseURL   string
	userAgent string
	http      *http.Client
}

// NewClient creates a GitHub client. An empty token makes unauthenticated
// requests, which GitHub rate-limits per IP.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:     strings.TrimSpace(token),
		baseURL:   "https://api.github.com",
		userAgent: "meetingintel/1.0",
		http:      &http.Client{Timeout: 12 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) GetUser(ctx context.Context, login string) (*User, error) {
	var u User
	if err := c.get(ctx, "/users/"+url.PathEscape(login), nil, &u); err != nil {
		return nil, err
	}
	if u.HTMLURL == "" {
		u.HTMLURL = "https://github.com/" + login
	}
	return &u, nil
}

func (c *httpClient) ListRepos(ctx context.Context, login string, perPage int) ([]Repo, error) {
	if perPage <= 0 || perPage > 100 {
		perPage = 100
	}
	q := url.Values{}
	q.Set("per_page", strconv.Itoa(perPage))
	q.Set("sort", "updated")

	var repos []Repo
	if err := c.get(ctx, "/users/"+url.PathEscape(login)+"/repos", q, &repos); err != nil {
		return nil, err
	}
	return repos, nil
}

func (c *httpClient) get(ctx context.Context, path string, q url.Values, out any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return eris.Wrap(err, "github: create request")
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "github: request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return eris.Wrap(err, "github: read response body")
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return eris.Wrapf(ErrNotFound, "github: %s", path)
	case resp.StatusCode >= 300:
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "github: unmarshal response")
	}
	return nil
}
