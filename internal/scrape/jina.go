package scrape

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/meetingintel/internal/resilience"
	"github.com/sells-group/meetingintel/pkg/jina"
)

// ErrNeedsFallback marks a reader response that is empty or a challenge page.
var ErrNeedsFallback = eris.New("jina: response needs fallback")

// JinaScraper wraps the Jina reader as a Scraper behind a circuit breaker.
type JinaScraper struct {
	client  jina.Client
	breaker *resilience.Breaker
	timeout time.Duration
}

// NewJinaScraper creates a JinaScraper. Three consecutive failures open the
// circuit for 60s, during which Supports is false and the chain moves on.
func NewJinaScraper(client jina.Client, timeout time.Duration) *JinaScraper {
	return &JinaScraper{
		client:  client,
		timeout: timeout,
		breaker: resilience.NewBreaker("jina-reader", resilience.BreakerConfig{
			Threshold: 3,
			Cooldown:  60 * time.Second,
			OnStateChange: func(_ string, from, to resilience.State) {
				zap.L().Warn("scrape: jina circuit breaker state change",
					zap.Stringer("from", from),
					zap.Stringer("to", to),
				)
			},
		}),
	}
}

func (j *JinaScraper) Name() string { return "jina" }

// Supports returns true unless the circuit breaker is open.
func (j *JinaScraper) Supports(_ string) bool {
	return j.breaker.State() != resilience.StateOpen
}

// Scrape fetches a URL via the Jina reader and validates the response.
func (j *JinaScraper) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	var opts []jina.ReadOption
	if j.timeout > 0 {
		opts = append(opts, jina.WithReadTimeout(j.timeout))
	}
	resp, err := resilience.Call(ctx, j.breaker, func(ctx context.Context) (*jina.ReadResponse, error) {
		resp, err := j.client.Read(ctx, targetURL, opts...)
		if err != nil {
			return nil, err
		}
		if needsFallback(resp) {
			return nil, ErrNeedsFallback
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}

	u := resp.Data.URL
	if u == "" {
		u = targetURL
	}
	return &Result{
		Page: Page{
			URL:        u,
			Title:      resp.Data.Title,
			Text:       resp.Data.Content,
			StatusCode: resp.Code,
		},
		Source: "jina",
	}, nil
}

var challengeSignatures = []string{
	"checking your browser",
	"enable javascript",
	"please enable cookies",
	"access denied",
	"403 forbidden",
	"just a moment",
	"cloudflare",
	"attention required",
}

// needsFallback reports whether a reader response is unusable: a non-200
// code, under 100 characters, or a short challenge page.
func needsFallback(resp *jina.ReadResponse) bool {
	if resp == nil {
		return true
	}
	if resp.Code != 0 && resp.Code != 200 {
		return true
	}

	content := strings.TrimSpace(resp.Data.Content)
	if len(content) < 100 {
		return true
	}

	lower := strings.ToLower(content)
	for _, sig := range challengeSignatures {
		if strings.Contains(lower, sig) && len(content) < 1000 {
			return true
		}
	}
	return false
}
