package scrape

import (
	"context"
	"html"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/meetingintel/internal/model"
)

const maxBodyBytes = 512 * 1024

// LocalOptions configures the LocalScraper.
type LocalOptions struct {
	UserAgent string
	Timeout   time.Duration
	// PerHostRate bounds requests per second to one host.
	PerHostRate float64
	PerHostBurst int
}

// LocalScraper fetches HTML via net/http, detects blocks and reduces the
// page to text. Requests to one host are rate limited.
type LocalScraper struct {
	client *http.Client
	opts   LocalOptions
	policy *bluemonday.Policy

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewLocalScraper creates a LocalScraper; zero options take defaults.
func NewLocalScraper(opts LocalOptions) *LocalScraper {
	if opts.UserAgent == "" {
		opts.UserAgent = "Mozilla/5.0 (compatible; meetingintel/1.0)"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.PerHostRate <= 0 {
		opts.PerHostRate = 2
	}
	if opts.PerHostBurst <= 0 {
		opts.PerHostBurst = 2
	}
	return &LocalScraper{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		opts:     opts,
		policy:   textPolicy(),
		limiters: make(map[string]*rate.Limiter),
	}
}

// textPolicy strips all markup, drops page chrome and scripts entirely and
// keeps words on either side of a tag apart.
func textPolicy() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.SkipElementsContent("script", "style", "noscript", "svg", "nav", "footer", "header", "form")
	p.AddSpaceWhenStrippingTag(true)
	return p
}

func (l *LocalScraper) Name() string           { return "local_http" }
func (l *LocalScraper) Supports(_ string) bool { return true }

func (l *LocalScraper) limiter(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[host]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(l.opts.PerHostRate), l.opts.PerHostBurst)
		l.limiters[host] = lim
	}
	return lim
}

// Scrape fetches a URL, detects blocks and strips HTML to text.
func (l *LocalScraper) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	u, err := url.Parse(targetURL)
	if err != nil || u.Host == "" {
		return nil, eris.Errorf("local_http: invalid url %q", targetURL)
	}
	if err := l.limiter(strings.ToLower(u.Host)).Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "local_http: rate limit wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: create request")
	}
	req.Header.Set("User-Agent", l.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "local_http: read body")
	}

	if blocked, blockType := DetectBlock(resp, body); blocked {
		return nil, eris.Errorf("local_http: blocked (%s)", blockType)
	}
	if resp.StatusCode >= 400 {
		return nil, eris.Errorf("local_http: status %d", resp.StatusCode)
	}

	text := l.extractText(body)
	if len(text) < 100 {
		return nil, eris.New("local_http: empty page")
	}

	return &Result{
		Page: Page{
			URL:        targetURL,
			Title:      extractTitle(body),
			Text:       text,
			StatusCode: resp.StatusCode,
		},
		Source: "local_http",
	}, nil
}

var titleRe = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

// extractTitle pulls the <title> from HTML.
func extractTitle(body []byte) string {
	m := titleRe.FindSubmatch(body)
	if len(m) > 1 {
		return model.CollapseSpace(html.UnescapeString(string(m[1])))
	}
	return ""
}

// extractText sanitizes body down to entity-decoded, whitespace-collapsed
// text.
func (l *LocalScraper) extractText(body []byte) string {
	return model.CollapseSpace(html.UnescapeString(string(l.policy.SanitizeBytes(bodyOf(body)))))
}

var bodyRe = regexp.MustCompile(`(?is)<body[^>]*>(.*)</body>`)

// bodyOf narrows a full document to its <body> so the <title> text is not
// repeated in the extracted text.
func bodyOf(doc []byte) []byte {
	if m := bodyRe.FindSubmatch(doc); len(m) > 1 {
		return m[1]
	}
	return doc
}
