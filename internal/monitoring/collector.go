// Package monitoring watches the run log for degraded brief quality: a high
// share of fallback briefs or frequently failing evidence adapters.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/meetingintel/internal/model"
)

// Snapshot is a point-in-time view of run health over a lookback window.
type Snapshot struct {
	Total           int     `json:"total"`
	Fallbacks       int     `json:"fallbacks"`
	FallbackRate    float64 `json:"fallback_rate"`
	CacheHits       int     `json:"cache_hits"`
	AdapterFailures int     `json:"adapter_failures"`
	// FailuresPerRun is the mean number of failed adapters per run.
	FailuresPerRun float64 `json:"adapter_failures_per_run"`
	AvgEvidence    float64 `json:"avg_evidence"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// StatsSource aggregates the run log. store.Store satisfies it.
type StatsSource interface {
	RunStats(ctx context.Context, since time.Time) (*model.RunStats, error)
}

// Collector builds snapshots from the run log.
type Collector struct {
	stats StatsSource
	now   func() time.Time
}

// NewCollector creates a Collector.
func NewCollector(stats StatsSource) *Collector {
	return &Collector{stats: stats, now: time.Now}
}

// Collect gathers a snapshot over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*Snapshot, error) {
	now := c.now().UTC()
	st, err := c.stats.RunStats(ctx, now.Add(-time.Duration(lookbackHours)*time.Hour))
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: run stats")
	}

	snap := &Snapshot{
		Total:           st.Total,
		Fallbacks:       st.Fallbacks,
		FallbackRate:    st.FallbackRate(),
		CacheHits:       st.CacheHits,
		AdapterFailures: st.AdapterFailure,
		AvgEvidence:     st.AvgEvidence,
		LookbackHours:   lookbackHours,
		CollectedAt:     now,
	}
	if st.Total > 0 {
		snap.FailuresPerRun = float64(st.AdapterFailure) / float64(st.Total)
	}
	return snap, nil
}
