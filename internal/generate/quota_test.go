package generate

import (
	"net/http"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want time.Duration
		ok   bool
	}{
		{"retry in", "Quota exceeded. Please retry in 12.5s.", 12500 * time.Millisecond, true},
		{"try again", "Rate limit reached. Please try again in 7s.", 7 * time.Second, true},
		{"retry delay json", `{"retryDelay": "20s"}`, 20 * time.Second, true},
		{"retry delay equals", `retryDelay='3s'`, 3 * time.Second, true},
		{"none", "something broke", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseRetryAfter(tt.msg)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRetryAfterHeader(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	h := http.Header{}
	_, ok := RetryAfterHeader(h, now)
	assert.False(t, ok)

	_, ok = RetryAfterHeader(nil, now)
	assert.False(t, ok)

	h.Set("Retry-After", "9")
	d, ok := RetryAfterHeader(h, now)
	require.True(t, ok)
	assert.Equal(t, 9*time.Second, d)

	h.Set("retry-after-ms", "1500")
	d, ok = RetryAfterHeader(h, now)
	require.True(t, ok)
	assert.Equal(t, 1500*time.Millisecond, d)

	h = http.Header{}
	h.Set("Retry-After", now.Add(2*time.Minute).Format(http.TimeFormat))
	d, ok = RetryAfterHeader(h, now)
	require.True(t, ok)
	assert.Equal(t, 2*time.Minute, d)

	h.Set("Retry-After", "garbage")
	_, ok = RetryAfterHeader(h, now)
	assert.False(t, ok)
}

func TestNewQuotaExceeded_Clamps(t *testing.T) {
	assert.Equal(t, DefaultRetryAfter, NewQuotaExceeded("p", 0, nil).RetryAfter)
	assert.Equal(t, DefaultRetryAfter, NewQuotaExceeded("p", -time.Second, nil).RetryAfter)
	assert.Equal(t, MinRetryAfter, NewQuotaExceeded("p", 200*time.Millisecond, nil).RetryAfter)
	assert.Equal(t, 5*time.Second, NewQuotaExceeded("p", 5*time.Second, nil).RetryAfter)
}

func TestQuotaExceededError_Chain(t *testing.T) {
	cause := eris.New("429 from upstream")
	qe := NewQuotaExceeded("anthropic", 2500*time.Millisecond, cause)
	wrapped := eris.Wrap(qe, "pipeline: generate")

	got, ok := AsQuotaExceeded(wrapped)
	require.True(t, ok)
	assert.Equal(t, 3, got.RetryAfterSeconds())
	assert.ErrorIs(t, wrapped, cause)
	assert.Contains(t, qe.Error(), "anthropic quota exceeded")

	_, ok = AsQuotaExceeded(cause)
	assert.False(t, ok)
}

func TestLooksLikeQuota(t *testing.T) {
	for _, msg := range []string{"RESOURCE_EXHAUSTED", "You exceeded your current quota", "Rate limit reached", "HTTP 429", "Too Many Requests"} {
		assert.True(t, LooksLikeQuota(msg), msg)
	}
	assert.False(t, LooksLikeQuota("invalid api key"))
}

func TestQuotaFrom(t *testing.T) {
	err := eris.New("rate limited, retry in 4s")
	qe, ok := quotaFrom("x", http.StatusTooManyRequests, nil, err)
	require.True(t, ok)
	assert.Equal(t, 4*time.Second, qe.RetryAfter)

	h := http.Header{}
	h.Set("Retry-After", "11")
	qe, ok = quotaFrom("x", http.StatusTooManyRequests, h, err)
	require.True(t, ok)
	assert.Equal(t, 11*time.Second, qe.RetryAfter)

	// Unknown status falls back to text markers.
	qe, ok = quotaFrom("x", 0, nil, eris.New("RESOURCE_EXHAUSTED"))
	require.True(t, ok)
	assert.Equal(t, DefaultRetryAfter, qe.RetryAfter)

	// A known non-429 status is never quota even if the text says so.
	_, ok = quotaFrom("x", http.StatusBadRequest, nil, eris.New("quota field invalid"))
	assert.False(t, ok)
}
