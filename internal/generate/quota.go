package generate

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultRetryAfter is used when a provider signals quota exhaustion
	// without saying when to come back.
	DefaultRetryAfter = 30 * time.Second
	// MinRetryAfter is the floor applied to every advertised wait.
	MinRetryAfter = time.Second
)

// QuotaExceededError reports that the generation provider refused the call
// for rate or quota reasons. It is never retried by the pipeline.
type QuotaExceededError struct {
	Provider   string
	RetryAfter time.Duration
	Err        error
}

// NewQuotaExceeded builds a QuotaExceededError, clamping retryAfter to at
// least MinRetryAfter. A non-positive value becomes DefaultRetryAfter.
func NewQuotaExceeded(provider string, retryAfter time.Duration, err error) *QuotaExceededError {
	switch {
	case retryAfter <= 0:
		retryAfter = DefaultRetryAfter
	case retryAfter < MinRetryAfter:
		retryAfter = MinRetryAfter
	}
	return &QuotaExceededError{Provider: provider, RetryAfter: retryAfter, Err: err}
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("generate: %s quota exceeded, retry after %s", e.Provider, e.RetryAfter)
}

func (e *QuotaExceededError) Unwrap() error { return e.Err }

// RetryAfterSeconds rounds the wait up to whole seconds for Retry-After
// headers.
func (e *QuotaExceededError) RetryAfterSeconds() int {
	return int(math.Ceil(e.RetryAfter.Seconds()))
}

// AsQuotaExceeded finds a QuotaExceededError in err's chain.
func AsQuotaExceeded(err error) (*QuotaExceededError, bool) {
	var qe *QuotaExceededError
	if errors.As(err, &qe) {
		return qe, true
	}
	return nil, false
}

// TransportError is an unexpected provider failure that survived retries.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("generate: %s transport: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

var (
	retryInRe    = regexp.MustCompile(`(?i)(?:retry|try again) in\s+([0-9]+(?:\.[0-9]+)?)\s*s`)
	retryDelayRe = regexp.MustCompile(`(?i)retryDelay['"]?\s*[:=]\s*['"]([0-9]+(?:\.[0-9]+)?)s['"]`)

	quotaMarkers = []string{
		"resource_exhausted",
		"quota",
		"rate limit",
		"rate_limit",
		"too many requests",
		"429",
	}
)

// ParseRetryAfter extracts a wait from provider error text such as
// "Please retry in 12.5s" or `"retryDelay": "20s"`.
func ParseRetryAfter(msg string) (time.Duration, bool) {
	for _, re := range []*regexp.Regexp{retryInRe, retryDelayRe} {
		m := re.FindStringSubmatch(msg)
		if m == nil {
			continue
		}
		secs, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		return time.Duration(secs * float64(time.Second)), true
	}
	return 0, false
}

// RetryAfterHeader reads retry-after-ms or Retry-After (delta seconds or an
// HTTP date relative to now).
func RetryAfterHeader(h http.Header, now time.Time) (time.Duration, bool) {
	if h == nil {
		return 0, false
	}
	if v := strings.TrimSpace(h.Get("retry-after-ms")); v != "" {
		if ms, err := strconv.ParseFloat(v, 64); err == nil && ms > 0 {
			return time.Duration(ms * float64(time.Millisecond)), true
		}
	}
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
		return time.Duration(secs * float64(time.Second)), true
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := at.Sub(now); d > 0 {
			return d, true
		}
	}
	return 0, false
}

// LooksLikeQuota reports whether error text carries a rate or quota marker.
func LooksLikeQuota(msg string) bool {
	lower := strings.ToLower(msg)
	for _, m := range quotaMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// quotaFrom classifies a provider failure. status is the HTTP status when
// known (0 otherwise).
func quotaFrom(provider string, status int, h http.Header, err error) (*QuotaExceededError, bool) {
	msg := err.Error()
	if status != http.StatusTooManyRequests && !(status == 0 && LooksLikeQuota(msg)) {
		return nil, false
	}
	wait, ok := RetryAfterHeader(h, time.Now())
	if !ok {
		wait, _ = ParseRetryAfter(msg)
	}
	return NewQuotaExceeded(provider, wait, err), true
}
