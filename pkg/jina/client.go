// Package jina is a client for the Jina reader (r.jina.ai) and search
// (s.jina.ai) endpoints.
package jina

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/meetingintel/internal/resilience"
)

const (
	defaultReadURL   = "https://r.jina.ai"
	defaultSearchURL = "https://s.jina.ai"
)

// Client reads pages and searches the web through Jina.
type Client interface {
	Read(ctx context.Context, targetURL string, opts ...ReadOption) (*ReadResponse, error)
	Search(ctx context.Context, query string, opts ...SearchOption) (*SearchResponse, error)
}

// ReadResponse is the reader envelope.
type ReadResponse struct {
	Code int      `json:"code"`
	Data ReadData `json:"data"`
}

// ReadData is one page rendered as markdown.
type ReadData struct {
	Title   string    `json:"title"`
	URL     string    `json:"url"`
	Content string    `json:"content"`
	Usage   ReadUsage `json:"usage"`
}

// ReadUsage is the token count Jina bills for a read.
type ReadUsage struct {
	Tokens int `json:"tokens"`
}

// SearchResponse is the search envelope.
type SearchResponse struct {
	Code int            `json:"code"`
	Data []SearchResult `json:"data"`
}

// SearchResult is one hit. Content is empty when snippets only were asked.
type SearchResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Content     string `json:"content"`
	Description string `json:"description"`
}

// StatusError is a non-2xx reply, returned after retries for retryable
// statuses run out.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("jina: %s unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
}

// SearchOption configures Search.
type SearchOption func(http.Header, url.Values)

// WithSiteFilter restricts hits to one domain.
func WithSiteFilter(domain string) SearchOption {
	return func(_ http.Header, q url.Values) { q.Set("site", domain) }
}

// WithSnippetsOnly skips page bodies; titles and descriptions come back
// much faster.
func WithSnippetsOnly() SearchOption {
	return func(h http.Header, _ url.Values) { h.Set("X-Respond-With", "no-content") }
}

// ReadOption configures Read.
type ReadOption func(http.Header)

// WithReadTimeout asks the reader to give up on a slow page after d.
func WithReadTimeout(d time.Duration) ReadOption {
	return func(h http.Header) {
		if d > 0 {
			h.Set("X-Timeout", strconv.Itoa(int(d.Seconds())))
		}
	}
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the reader host.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		if u != "" {
			c.readURL = u
		}
	}
}

// WithSearchBaseURL overrides the search host.
func WithSearchBaseURL(u string) Option {
	return func(c *httpClient) {
		if u != "" {
			c.searchURL = u
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithRetry sets the attempt count and first backoff. Non-positive values
// keep the defaults.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(c *httpClient) {
		if attempts > 0 {
			c.retry.Attempts = attempts
		}
		if backoff > 0 {
			c.retry.Initial = backoff
			c.retry.Max = 8 * backoff
		}
	}
}

type httpClient struct {
	apiKey    string
	readURL   string
	searchURL string
	http      *http.Client
	retry     resilience.RetryPolicy
}

// NewClient returns a Client. An empty apiKey uses the anonymous tier.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:    apiKey,
		readURL:   defaultReadURL,
		searchURL: defaultSearchURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		retry: resilience.RetryPolicy{
			Attempts:   3,
			Initial:    time.Second,
			Max:        8 * time.Second,
			Multiplier: 2,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Read(ctx context.Context, targetURL string, opts ...ReadOption) (*ReadResponse, error) {
	h := http.Header{}
	h.Set("X-Return-Format", "markdown")
	h.Set("X-Retain-Images", "none")
	for _, o := range opts {
		o(h)
	}

	status, body, err := c.get(ctx, "read", c.readURL+"/"+targetURL, h)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &StatusError{Op: "read", StatusCode: status, Body: string(body)}
	}

	var out ReadResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "jina: unmarshal read response")
	}
	return &out, nil
}

func (c *httpClient) Search(ctx context.Context, query string, opts ...SearchOption) (*SearchResponse, error) {
	h := http.Header{}
	q := url.Values{}
	for _, o := range opts {
		o(h, q)
	}
	u := c.searchURL + "/" + url.PathEscape(query)
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	status, body, err := c.get(ctx, "search", u, h)
	if err != nil {
		return nil, err
	}
	// 422 means the query has no results.
	if status == http.StatusUnprocessableEntity {
		return &SearchResponse{Code: status}, nil
	}
	if status != http.StatusOK {
		return nil, &StatusError{Op: "search", StatusCode: status, Body: string(body)}
	}

	var out SearchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "jina: unmarshal search response")
	}
	return &out, nil
}

type reply struct {
	status int
	body   []byte
}

// get issues a GET, retrying network failures and retryable statuses. A
// retryable status that outlasts the retries comes back as *StatusError.
func (c *httpClient) get(ctx context.Context, op, rawURL string, h http.Header) (int, []byte, error) {
	r, err := resilience.Retry(ctx, c.retry, func(ctx context.Context) (reply, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return reply{}, eris.Wrapf(err, "jina: build %s request", op)
		}
		for k, v := range h {
			req.Header[k] = v
		}
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return reply{}, err
		}
		defer resp.Body.Close() //nolint:errcheck

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return reply{}, err
		}
		if resilience.RetryableStatus(resp.StatusCode) {
			se := &StatusError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
			return reply{}, resilience.Transient(se, resp.StatusCode)
		}
		return reply{status: resp.StatusCode, body: body}, nil
	})
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			return 0, nil, se
		}
		return 0, nil, eris.Wrapf(err, "jina: %s request failed", op)
	}
	return r.status, r.body, nil
}
