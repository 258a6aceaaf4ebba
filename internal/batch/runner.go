package batch

import (
	"context"
	"encoding/json"
	"io"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/meetingintel/internal/generate"
	"github.com/sells-group/meetingintel/internal/identity"
	"github.com/sells-group/meetingintel/internal/model"
	"github.com/sells-group/meetingintel/internal/pipeline"
)

// DefaultConcurrency bounds in-flight rows when none is configured.
const DefaultConcurrency = 4

// Analyzer produces one brief. *pipeline.Service satisfies it.
type Analyzer interface {
	Analyze(ctx context.Context, req identity.Request) (*pipeline.Result, error)
}

// Line is one JSONL output record. Exactly one of Brief or Error is set.
type Line struct {
	Row               int          `json:"row"`
	RunID             string       `json:"run_id,omitempty"`
	Outcome           string       `json:"outcome,omitempty"`
	CacheHit          bool         `json:"cache_hit,omitempty"`
	Brief             *model.Brief `json:"brief,omitempty"`
	Error             string       `json:"error,omitempty"`
	RetryAfterSeconds int          `json:"retry_after_seconds,omitempty"`
}

// Summary counts row outcomes.
type Summary struct {
	Rows      int
	Succeeded int
	Fallbacks int
	Failed    int
	Quota     int
}

// Runner processes rows with bounded concurrency.
type Runner struct {
	analyzer    Analyzer
	concurrency int
}

// NewRunner creates a Runner. concurrency <= 0 uses DefaultConcurrency.
func NewRunner(a Analyzer, concurrency int) *Runner {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Runner{analyzer: a, concurrency: concurrency}
}

// Run analyzes every row and writes one line per row to w in input order.
// A failing row is written with its error and never stops the others. The
// returned error is a write failure or cancellation of ctx.
func (r *Runner) Run(ctx context.Context, rows []Row, w io.Writer) (Summary, error) {
	sum := Summary{Rows: len(rows)}
	if len(rows) == 0 {
		zap.L().Info("batch: no rows to process")
		return sum, nil
	}

	zap.L().Info("batch: processing",
		zap.Int("rows", len(rows)),
		zap.Int("concurrency", r.concurrency),
	)

	lines := make([]Line, len(rows))
	done := make([]chan struct{}, len(rows))
	for i := range done {
		done[i] = make(chan struct{})
	}

	var succeeded, fallbacks, failed, quota atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(r.concurrency)

	// Dispatch in its own goroutine so ordered writing can start while
	// later rows are still queued behind the limit.
	go func() {
		for i, row := range rows {
			g.Go(func() error {
				defer close(done[i])
				lines[i] = r.process(ctx, row)
				switch {
				case lines[i].RetryAfterSeconds > 0:
					quota.Add(1)
					failed.Add(1)
				case lines[i].Error != "":
					failed.Add(1)
				case lines[i].Outcome == string(model.OutcomeFallback):
					fallbacks.Add(1)
				default:
					succeeded.Add(1)
				}
				return nil
			})
		}
	}()

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	var writeErr error
	for i := range rows {
		<-done[i]
		if writeErr != nil {
			continue
		}
		if err := enc.Encode(lines[i]); err != nil {
			writeErr = eris.Wrap(err, "batch: write output")
		}
	}
	_ = g.Wait()

	sum.Succeeded = int(succeeded.Load())
	sum.Fallbacks = int(fallbacks.Load())
	sum.Failed = int(failed.Load())
	sum.Quota = int(quota.Load())

	zap.L().Info("batch: complete",
		zap.Int("succeeded", sum.Succeeded),
		zap.Int("fallbacks", sum.Fallbacks),
		zap.Int("failed", sum.Failed),
		zap.Int("quota", sum.Quota),
	)

	if writeErr != nil {
		return sum, writeErr
	}
	if ctx.Err() != nil {
		return sum, eris.Wrap(ctx.Err(), "batch: cancelled")
	}
	return sum, nil
}

func (r *Runner) process(ctx context.Context, row Row) Line {
	line := Line{Row: row.Line}
	res, err := r.analyzer.Analyze(ctx, row.Request)
	if err != nil {
		line.Error = err.Error()
		if qe, ok := generate.AsQuotaExceeded(err); ok {
			line.RetryAfterSeconds = qe.RetryAfterSeconds()
		}
		if !identity.IsInvalidInput(err) {
			zap.L().Warn("batch: row failed", zap.Int("row", row.Line), zap.Error(err))
		}
		return line
	}
	brief := res.Brief
	line.RunID = res.RunID
	line.Outcome = string(brief.Outcome)
	line.CacheHit = res.CacheHit
	line.Brief = &brief
	return line
}
