package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/meetingintel/internal/db"
	"github.com/sells-group/meetingintel/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const runsTable = "brief_runs"

var runColumns = []string{
	"id", "input_hash", "mode", "outcome", "label", "evidence_count",
	"repair_attempts", "adapters_failed", "cache_hit", "duration_ms", "created_at",
}

const pgInsertRun = `INSERT INTO brief_runs
	(id, input_hash, mode, outcome, label, evidence_count, repair_attempts, adapters_failed, cache_hit, duration_ms, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS brief_runs (
	id              TEXT PRIMARY KEY,
	input_hash      TEXT NOT NULL,
	mode            TEXT NOT NULL,
	outcome         TEXT NOT NULL,
	label           TEXT NOT NULL,
	evidence_count  INTEGER NOT NULL DEFAULT 0,
	repair_attempts INTEGER NOT NULL DEFAULT 0,
	adapters_failed INTEGER NOT NULL DEFAULT 0,
	cache_hit       BOOLEAN NOT NULL DEFAULT false,
	duration_ms     BIGINT NOT NULL DEFAULT 0,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_brief_runs_created_at ON brief_runs(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_brief_runs_outcome ON brief_runs(outcome);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func runRow(rec model.RunRecord) []any {
	return []any{
		rec.ID, rec.InputHash, string(rec.Mode), string(rec.Outcome), string(rec.Label),
		rec.EvidenceCount, rec.RepairAttempts, rec.AdaptersFailed, rec.CacheHit,
		rec.DurationMs, rec.CreatedAt,
	}
}

func (s *PostgresStore) RecordRun(ctx context.Context, rec model.RunRecord) error {
	rec = prepare(rec)
	if _, err := s.pool.Exec(ctx, pgInsertRun, runRow(rec)...); err != nil {
		return eris.Wrapf(err, "postgres: insert run %s", rec.ID)
	}
	return nil
}

func (s *PostgresStore) RecordRuns(ctx context.Context, recs []model.RunRecord) error {
	rows := make([][]any, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, runRow(prepare(rec)))
	}
	_, err := db.CopyFrom(ctx, s.pool, runsTable, runColumns, rows)
	return eris.Wrap(err, "postgres: record runs")
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.RunRecord, error) {
	query := `SELECT id, input_hash, mode, outcome, label, evidence_count, repair_attempts, adapters_failed, cache_hit, duration_ms, created_at FROM brief_runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Outcome != "" {
		query += fmt.Sprintf(` AND outcome = $%d`, argIdx)
		args = append(args, string(filter.Outcome))
		argIdx++
	}
	if filter.Mode != "" {
		query += fmt.Sprintf(` AND mode = $%d`, argIdx)
		args = append(args, string(filter.Mode))
		argIdx++
	}
	if !filter.Since.IsZero() {
		query += fmt.Sprintf(` AND created_at >= $%d`, argIdx)
		args = append(args, filter.Since.UTC())
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d`, argIdx)
	args = append(args, limitOf(filter))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var out []model.RunRecord
	for rows.Next() {
		var r model.RunRecord
		var mode, outcome, label string
		if err := rows.Scan(&r.ID, &r.InputHash, &mode, &outcome, &label, &r.EvidenceCount,
			&r.RepairAttempts, &r.AdaptersFailed, &r.CacheHit, &r.DurationMs, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		r.Mode, r.Outcome, r.Label = model.InputMode(mode), model.Outcome(outcome), model.Label(label)
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) RunStats(ctx context.Context, since time.Time) (*model.RunStats, error) {
	var st model.RunStats
	var total, fallbacks, hits, failures int64
	err := s.pool.QueryRow(ctx, `SELECT
		COUNT(*),
		COUNT(*) FILTER (WHERE outcome = 'fallback'),
		COUNT(*) FILTER (WHERE cache_hit),
		COALESCE(SUM(adapters_failed), 0),
		COALESCE(AVG(evidence_count), 0)::float8
		FROM brief_runs WHERE created_at >= $1`,
		since.UTC(),
	).Scan(&total, &fallbacks, &hits, &failures, &st.AvgEvidence)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: run stats")
	}
	st.Total, st.Fallbacks, st.CacheHits, st.AdapterFailure = int(total), int(fallbacks), int(hits), int(failures)
	return &st, nil
}
