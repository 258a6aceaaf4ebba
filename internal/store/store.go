// Package store persists the privacy-safe run log: one record per brief
// request with counts and outcomes, never the identity itself.
package store

import (
	"context"
	"time"

	"github.com/sells-group/meetingintel/internal/model"
)

// RunFilter narrows ListRuns.
type RunFilter struct {
	Outcome model.Outcome   `json:"outcome,omitempty"`
	Mode    model.InputMode `json:"mode,omitempty"`
	Since   time.Time       `json:"since,omitempty"`
	Limit   int             `json:"limit,omitempty"`
}

// DefaultListLimit applies when RunFilter.Limit is not positive.
const DefaultListLimit = 50

// Store is the run log.
type Store interface {
	RecordRun(ctx context.Context, rec model.RunRecord) error
	// RecordRuns writes many records at once, used by batch runs.
	RecordRuns(ctx context.Context, recs []model.RunRecord) error
	// ListRuns returns matching records, newest first.
	ListRuns(ctx context.Context, filter RunFilter) ([]model.RunRecord, error)
	// RunStats aggregates records created at or after since.
	RunStats(ctx context.Context, since time.Time) (*model.RunStats, error)

	Migrate(ctx context.Context) error
	Close() error
}

func limitOf(f RunFilter) int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}

// prepare stamps an id and creation time when missing.
func prepare(rec model.RunRecord) model.RunRecord {
	if rec.ID == "" {
		rec.ID = newID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec
}
