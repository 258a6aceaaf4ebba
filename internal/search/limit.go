package search

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/meetingintel/pkg/brave"
	"github.com/sells-group/meetingintel/pkg/jina"
)

// AdaptiveLimiter wraps a rate.Limiter with adaptive rate adjustment.
// On success it increases the rate by 20% (up to 2x initial).
// On 429 it halves the rate (down to initial/4 minimum).
type AdaptiveLimiter struct {
	mu          sync.Mutex
	limiter     *rate.Limiter
	initialRate rate.Limit
	maxRate     rate.Limit
	minRate     rate.Limit
	currentRate rate.Limit
}

// NewAdaptiveLimiter creates an adaptive rate limiter.
func NewAdaptiveLimiter(initialRate rate.Limit, burst int) *AdaptiveLimiter {
	return &AdaptiveLimiter{
		limiter:     rate.NewLimiter(initialRate, burst),
		initialRate: initialRate,
		maxRate:     initialRate * 2,
		minRate:     initialRate / 4,
		currentRate: initialRate,
	}
}

// Wait blocks until the limiter allows an event.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// OnSuccess increases the rate by 20%, up to 2x initial.
func (a *AdaptiveLimiter) OnSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.currentRate = min(a.currentRate*1.2, a.maxRate)
	a.limiter.SetLimit(a.currentRate)
}

// OnRateLimit halves the rate, down to initial/4.
func (a *AdaptiveLimiter) OnRateLimit() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.currentRate = max(a.currentRate*0.5, a.minRate)
	a.limiter.SetLimit(a.currentRate)
	zap.L().Warn("search: reducing rate after 429",
		zap.Float64("new_rate", float64(a.currentRate)),
	)
}

// Limit returns the current rate limit.
func (a *AdaptiveLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentRate
}

// Limited throttles a Searcher so concurrent adapters share one provider
// budget.
type Limited struct {
	next    Searcher
	limiter *AdaptiveLimiter
}

// NewLimited wraps next with perSecond requests per second and the given burst.
func NewLimited(next Searcher, perSecond float64, burst int) *Limited {
	if burst < 1 {
		burst = 1
	}
	if perSecond <= 0 {
		return &Limited{next: next, limiter: NewAdaptiveLimiter(rate.Inf, burst)}
	}
	return &Limited{next: next, limiter: NewAdaptiveLimiter(rate.Limit(perSecond), burst)}
}

// Name implements Searcher.
func (l *Limited) Name() string { return l.next.Name() }

// Search implements Searcher.
func (l *Limited) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	res, err := l.next.Search(ctx, query, limit)
	switch {
	case err == nil:
		l.limiter.OnSuccess()
	case isRateLimited(err):
		l.limiter.OnRateLimit()
	}
	return res, err
}

func isRateLimited(err error) bool {
	var js *jina.StatusError
	if errors.As(err, &js) {
		return js.StatusCode == http.StatusTooManyRequests
	}
	var bs *brave.StatusError
	if errors.As(err, &bs) {
		return bs.StatusCode == http.StatusTooManyRequests
	}
	return false
}
