package monitoring

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/meetingintel/internal/config"
	"github.com/sells-group/meetingintel/internal/model"
)

func TestChecker_RunStopsOnCancel(t *testing.T) {
	cfg := config.MonitoringConfig{CheckIntervalSecs: 1, LookbackWindowHours: 24}
	checker := NewChecker(NewCollector(&stubStats{stats: &model.RunStats{}}), NewAlerter(cfg), cfg)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		checker.Run(ctx)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Checker.Run did not stop after context cancellation")
	}
}

func TestChecker_DefaultInterval(t *testing.T) {
	checker := NewChecker(NewCollector(&stubStats{stats: &model.RunStats{}}), NewAlerter(config.MonitoringConfig{}), config.MonitoringConfig{})
	require.NotNil(t, checker)

	// Start and immediately cancel to verify it doesn't panic.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	checker.Run(ctx)
}

func TestChecker_CheckSendsAlerts(t *testing.T) {
	var received atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		received.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	cfg := thresholds()
	cfg.LookbackWindowHours = 24
	cfg.WebhookURL = ts.URL
	src := &stubStats{stats: &model.RunStats{Total: 10, Fallbacks: 6}}
	checker := NewChecker(NewCollector(src), NewAlerter(cfg), cfg)

	snap, alerts, err := checker.Check(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 0.6, snap.FallbackRate, 0.0001)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertFallbackRate, alerts[0].Type)
	assert.Equal(t, int32(1), received.Load())
}

func TestChecker_CheckHealthy(t *testing.T) {
	cfg := thresholds()
	checker := NewChecker(NewCollector(&stubStats{stats: &model.RunStats{Total: 10, Fallbacks: 1}}), NewAlerter(cfg), cfg)

	snap, alerts, err := checker.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, snap.Total)
	assert.Empty(t, alerts)
}

func TestChecker_CheckCollectError(t *testing.T) {
	cfg := thresholds()
	checker := NewChecker(NewCollector(&stubStats{err: errors.New("db down")}), NewAlerter(cfg), cfg)

	_, _, err := checker.Check(context.Background())
	assert.Error(t, err)
}
