package model

import "time"

// RunRecord is the privacy-safe log entry written for every brief request.
// It carries counts and outcomes only, never the identity itself.
type RunRecord struct {
	ID             string    `json:"id"`
	InputHash      string    `json:"input_hash"`
	Mode           InputMode `json:"mode"`
	Outcome        Outcome   `json:"outcome"`
	Label          Label     `json:"label"`
	EvidenceCount  int       `json:"evidence_count"`
	RepairAttempts int       `json:"repair_attempts"`
	AdaptersFailed int       `json:"adapters_failed"`
	CacheHit       bool      `json:"cache_hit"`
	DurationMs     int64     `json:"duration_ms"`
	CreatedAt      time.Time `json:"created_at"`
}

// RunStats aggregates run records over a time window.
type RunStats struct {
	Total          int     `json:"total"`
	Fallbacks      int     `json:"fallbacks"`
	CacheHits      int     `json:"cache_hits"`
	AdapterFailure int     `json:"adapter_failures"`
	AvgEvidence    float64 `json:"avg_evidence"`
}

// FallbackRate returns fallbacks / total, or 0 for an empty window.
func (s RunStats) FallbackRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Fallbacks) / float64(s.Total)
}
