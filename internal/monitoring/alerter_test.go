package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/meetingintel/internal/config"
)

func thresholds() config.MonitoringConfig {
	return config.MonitoringConfig{
		MinRuns:                 5,
		FallbackRateThreshold:   0.30,
		AdapterFailureThreshold: 1.0,
	}
}

func TestAlerter_Evaluate_NoAlerts(t *testing.T) {
	a := NewAlerter(thresholds())

	snap := &Snapshot{
		Total:           100,
		Fallbacks:       10,
		FallbackRate:    0.10,
		AdapterFailures: 40,
		FailuresPerRun:  0.4,
		LookbackHours:   24,
	}

	assert.Empty(t, a.Evaluate(snap))
}

func TestAlerter_Evaluate_FallbackRate(t *testing.T) {
	a := NewAlerter(thresholds())

	snap := &Snapshot{
		Total:         20,
		Fallbacks:     8,
		FallbackRate:  0.4,
		LookbackHours: 24,
	}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertFallbackRate, alerts[0].Type)
	assert.Equal(t, "high", alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "40.0%")
	assert.Equal(t, 8, alerts[0].Details["fallbacks"])
}

func TestAlerter_Evaluate_AdapterFailures(t *testing.T) {
	a := NewAlerter(thresholds())

	snap := &Snapshot{
		Total:           10,
		AdapterFailures: 25,
		FailuresPerRun:  2.5,
		LookbackHours:   6,
	}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertAdapterFailures, alerts[0].Type)
	assert.Contains(t, alerts[0].Message, "2.50 failed adapters per run")
	assert.Contains(t, alerts[0].Message, "last 6h")
}

func TestAlerter_Evaluate_Both(t *testing.T) {
	a := NewAlerter(thresholds())

	snap := &Snapshot{
		Total:          10,
		Fallbacks:      9,
		FallbackRate:   0.9,
		FailuresPerRun: 3,
	}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 2)
	assert.Equal(t, AlertFallbackRate, alerts[0].Type)
	assert.Equal(t, AlertAdapterFailures, alerts[1].Type)
}

func TestAlerter_Evaluate_MinimumRunsRequired(t *testing.T) {
	a := NewAlerter(thresholds())

	// Only 3 runs, below the 5-run minimum.
	snap := &Snapshot{
		Total:          3,
		Fallbacks:      3,
		FallbackRate:   1,
		FailuresPerRun: 4,
	}

	assert.Empty(t, a.Evaluate(snap))
	assert.Empty(t, a.Evaluate(&Snapshot{}))
}

func TestAlerter_Evaluate_ZeroThresholdsDisable(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{})

	snap := &Snapshot{Total: 50, FallbackRate: 1, FailuresPerRun: 5}
	assert.Empty(t, a.Evaluate(snap))
}

func TestAlerter_SendAlerts_Webhook(t *testing.T) {
	var received atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var alert Alert
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&alert))
		assert.NotEmpty(t, alert.Type)
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: ts.URL})

	alerts := []Alert{
		{Type: AlertFallbackRate, Severity: "high", Message: "test alert 1"},
		{Type: AlertAdapterFailures, Severity: "medium", Message: "test alert 2"},
	}

	sent := a.SendAlerts(context.Background(), alerts)
	assert.Equal(t, 2, sent)
	assert.Equal(t, int32(2), received.Load())
}

func TestAlerter_SendAlerts_EmptyURL(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{})

	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertFallbackRate, Message: "test"}})
	assert.Equal(t, 0, sent)
}

func TestAlerter_SendAlerts_EmptyAlerts(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{WebhookURL: "http://example.com"})

	assert.Equal(t, 0, a.SendAlerts(context.Background(), nil))
}

func TestAlerter_SendAlerts_WebhookError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: ts.URL})

	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertFallbackRate, Message: "test"}})
	assert.Equal(t, 0, sent)
}
