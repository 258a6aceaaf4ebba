package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/meetingintel/internal/model"
)

func newID() string { return uuid.New().String() }

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// created_at is unix milliseconds so range filters compare numerically.
const sqliteMigration = `
CREATE TABLE IF NOT EXISTS brief_runs (
	id              TEXT PRIMARY KEY,
	input_hash      TEXT NOT NULL,
	mode            TEXT NOT NULL,
	outcome         TEXT NOT NULL,
	label           TEXT NOT NULL,
	evidence_count  INTEGER NOT NULL DEFAULT 0,
	repair_attempts INTEGER NOT NULL DEFAULT 0,
	adapters_failed INTEGER NOT NULL DEFAULT 0,
	cache_hit       INTEGER NOT NULL DEFAULT 0,
	duration_ms     INTEGER NOT NULL DEFAULT 0,
	created_at      INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_brief_runs_created_at ON brief_runs(created_at);
CREATE INDEX IF NOT EXISTS idx_brief_runs_outcome ON brief_runs(outcome);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sqliteInsert = `INSERT INTO brief_runs
	(id, input_hash, mode, outcome, label, evidence_count, repair_attempts, adapters_failed, cache_hit, duration_ms, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertSQLite(ctx context.Context, ex execer, rec model.RunRecord) error {
	rec = prepare(rec)
	_, err := ex.ExecContext(ctx, sqliteInsert,
		rec.ID, rec.InputHash, string(rec.Mode), string(rec.Outcome), string(rec.Label),
		rec.EvidenceCount, rec.RepairAttempts, rec.AdaptersFailed, boolInt(rec.CacheHit),
		rec.DurationMs, rec.CreatedAt.UnixMilli(),
	)
	return eris.Wrapf(err, "sqlite: insert run %s", rec.ID)
}

func (s *SQLiteStore) RecordRun(ctx context.Context, rec model.RunRecord) error {
	return insertSQLite(ctx, s.db, rec)
}

func (s *SQLiteStore) RecordRuns(ctx context.Context, recs []model.RunRecord) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, rec := range recs {
		if err := insertSQLite(ctx, tx, rec); err != nil {
			return err
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit runs")
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.RunRecord, error) {
	var where []string
	var args []any
	if filter.Outcome != "" {
		where = append(where, "outcome = ?")
		args = append(args, string(filter.Outcome))
	}
	if filter.Mode != "" {
		where = append(where, "mode = ?")
		args = append(args, string(filter.Mode))
	}
	if !filter.Since.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, filter.Since.UnixMilli())
	}

	query := `SELECT id, input_hash, mode, outcome, label, evidence_count, repair_attempts,
		adapters_failed, cache_hit, duration_ms, created_at FROM brief_runs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id LIMIT ?"
	args = append(args, limitOf(filter))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.RunRecord
	for rows.Next() {
		var r model.RunRecord
		var createdMs int64
		if err := rows.Scan(&r.ID, &r.InputHash, &r.Mode, &r.Outcome, &r.Label, &r.EvidenceCount,
			&r.RepairAttempts, &r.AdaptersFailed, &r.CacheHit, &r.DurationMs, &createdMs); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		r.CreatedAt = time.UnixMilli(createdMs).UTC()
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) RunStats(ctx context.Context, since time.Time) (*model.RunStats, error) {
	var st model.RunStats
	err := s.db.QueryRowContext(ctx, `SELECT
		COUNT(*),
		COALESCE(SUM(CASE WHEN outcome = 'fallback' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(cache_hit), 0),
		COALESCE(SUM(adapters_failed), 0),
		COALESCE(AVG(evidence_count), 0)
		FROM brief_runs WHERE created_at >= ?`,
		since.UnixMilli(),
	).Scan(&st.Total, &st.Fallbacks, &st.CacheHits, &st.AdapterFailure, &st.AvgEvidence)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: run stats")
	}
	return &st, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
