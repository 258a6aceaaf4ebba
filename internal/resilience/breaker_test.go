package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestBreaker(cfg BreakerConfig) (*Breaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}
	b := NewBreaker("test", cfg)
	b.now = clock.now
	return b, clock
}

func fail(context.Context) (int, error)    { return 0, errors.New("boom") }
func succeed(context.Context) (int, error) { return 1, nil }

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b, _ := newTestBreaker(BreakerConfig{Threshold: 2, Cooldown: time.Minute})

	for range 2 {
		_, err := Call(context.Background(), b, fail)
		require.EqualError(t, err, "boom")
	}
	assert.Equal(t, StateOpen, b.State())

	called := false
	_, err := Call(context.Background(), b, func(context.Context) (int, error) {
		called = true
		return 0, nil
	})
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)
}

func TestBreaker_SuccessResetsCount(t *testing.T) {
	b, _ := newTestBreaker(BreakerConfig{Threshold: 2})

	_, _ = Call(context.Background(), b, fail)
	_, _ = Call(context.Background(), b, succeed)
	_, _ = Call(context.Background(), b, fail)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	b, clock := newTestBreaker(BreakerConfig{Threshold: 1, Cooldown: time.Minute})

	_, _ = Call(context.Background(), b, fail)
	require.Equal(t, StateOpen, b.State())

	clock.advance(time.Minute)
	assert.Equal(t, StateHalfOpen, b.State())

	v, err := Call(context.Background(), b, succeed)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_ProbeFailureReopens(t *testing.T) {
	b, clock := newTestBreaker(BreakerConfig{Threshold: 3, Cooldown: time.Minute})

	for range 3 {
		_, _ = Call(context.Background(), b, fail)
	}
	clock.advance(time.Minute)

	_, err := Call(context.Background(), b, fail)
	require.EqualError(t, err, "boom")
	assert.Equal(t, StateOpen, b.State())

	// The cooldown restarts from the failed probe.
	clock.advance(30 * time.Second)
	_, err = Call(context.Background(), b, succeed)
	assert.ErrorIs(t, err, ErrOpen)
}

func TestBreaker_SingleProbeInFlight(t *testing.T) {
	b, clock := newTestBreaker(BreakerConfig{Threshold: 1, Cooldown: time.Second})
	_, _ = Call(context.Background(), b, fail)
	clock.advance(time.Second)

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := Call(context.Background(), b, func(context.Context) (int, error) {
			close(entered)
			<-release
			return 1, nil
		})
		done <- err
	}()
	<-entered

	_, err := Call(context.Background(), b, succeed)
	assert.ErrorIs(t, err, ErrOpen)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_CancelNotCounted(t *testing.T) {
	b, _ := newTestBreaker(BreakerConfig{Threshold: 1})

	for range 3 {
		_, err := Call(context.Background(), b, func(context.Context) (int, error) {
			return 0, context.Canceled
		})
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_CustomCounts(t *testing.T) {
	ignored := errors.New("not found")
	b, _ := newTestBreaker(BreakerConfig{
		Threshold: 1,
		Counts:    func(err error) bool { return !errors.Is(err, ignored) },
	})

	_, _ = Call(context.Background(), b, func(context.Context) (int, error) { return 0, ignored })
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_OnStateChange(t *testing.T) {
	type change struct {
		name     string
		from, to State
	}
	var changes []change
	b, clock := newTestBreaker(BreakerConfig{
		Threshold: 1,
		Cooldown:  time.Second,
		OnStateChange: func(name string, from, to State) {
			changes = append(changes, change{name, from, to})
		},
	})

	_, _ = Call(context.Background(), b, fail)
	clock.advance(time.Second)
	_, _ = Call(context.Background(), b, succeed)

	assert.Equal(t, []change{
		{"test", StateClosed, StateOpen},
		{"test", StateOpen, StateHalfOpen},
		{"test", StateHalfOpen, StateClosed},
	}, changes)
}

func TestBreaker_Defaults(t *testing.T) {
	b := NewBreaker("x", BreakerConfig{})
	assert.Equal(t, 5, b.cfg.Threshold)
	assert.Equal(t, 30*time.Second, b.cfg.Cooldown)
	assert.Equal(t, "x", b.Name())
}

func TestBreakers_For(t *testing.T) {
	r := NewBreakers(BreakerConfig{Threshold: 1})

	a := r.For("social")
	assert.Same(t, a, r.For("social"))
	assert.NotSame(t, a, r.For("company-site"))

	_, _ = Call(context.Background(), a, fail)
	assert.Equal(t, StateOpen, r.For("social").State())
	assert.Equal(t, StateClosed, r.For("company-site").State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}
