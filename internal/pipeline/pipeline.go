// Package pipeline turns one identity hint into a persona brief:
// normalize, resolve, collect evidence, fuse, estimate confidence, generate
// under the output guard, then cache and log the run.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/meetingintel/internal/adapter"
	"github.com/sells-group/meetingintel/internal/cache"
	"github.com/sells-group/meetingintel/internal/confidence"
	"github.com/sells-group/meetingintel/internal/fusion"
	"github.com/sells-group/meetingintel/internal/generate"
	"github.com/sells-group/meetingintel/internal/guard"
	"github.com/sells-group/meetingintel/internal/identity"
	"github.com/sells-group/meetingintel/internal/metrics"
	"github.com/sells-group/meetingintel/internal/model"
	"github.com/sells-group/meetingintel/internal/store"
)

// Resolver fills in company details before evidence collection.
type Resolver interface {
	Resolve(ctx context.Context, id model.Identity) (model.Identity, error)
}

// Collector gathers raw evidence. *adapter.Fanout satisfies it.
type Collector interface {
	Collect(ctx context.Context, id model.Identity) (*adapter.Collection, error)
}

// Generator runs guarded generation. *guard.Guard satisfies it.
type Generator interface {
	Run(ctx context.Context, in guard.Input) (*guard.Result, error)
}

// Deps are the Service collaborators. Resolver, Cache and Store are
// optional.
type Deps struct {
	Resolver  Resolver
	Collector Collector
	Fusion    *fusion.Engine
	Estimator *confidence.Estimator
	Guard     Generator
	Cache     *cache.Cache
	Store     store.Store
}

// Result is one analyzed request.
type Result struct {
	RunID    string         `json:"run_id"`
	Brief    model.Brief    `json:"brief"`
	CacheHit bool           `json:"cache_hit"`
	Adapters []adapter.Stat `json:"adapters,omitempty"`
	Trace    []guard.State  `json:"trace,omitempty"`
	Identity model.Identity `json:"-"`
	Duration time.Duration  `json:"-"`
	Fallback string         `json:"fallback_reason,omitempty"`
}

// Service runs the brief pipeline. It is safe for concurrent use.
type Service struct {
	deps Deps
}

// New creates a Service.
func New(deps Deps) *Service {
	if deps.Fusion == nil {
		deps.Fusion = fusion.NewEngine(fusion.DefaultPolicy())
	}
	if deps.Estimator == nil {
		deps.Estimator = confidence.NewEstimator(confidence.DefaultPolicy())
	}
	return &Service{deps: deps}
}

// entry is the cached form of a successful brief. Outcome and repair count
// are not part of the brief's JSON so they travel alongside it.
type entry struct {
	Brief          model.Brief    `json:"brief"`
	RepairAttempts int            `json:"repair_attempts"`
	Identity       model.Identity `json:"identity"`
}

// build carries per-run details that never enter the cache.
type build struct {
	adapters []adapter.Stat
	trace    []guard.State
	fallback string
}

// Analyze produces a brief for req. Invalid input, quota exhaustion,
// transport failure and cancellation are returned as errors; every other
// problem ends in a brief, possibly a fallback one.
func (s *Service) Analyze(ctx context.Context, req identity.Request) (*Result, error) {
	id, err := identity.Normalize(req)
	if err != nil {
		return nil, err
	}
	return s.AnalyzeIdentity(ctx, id)
}

// AnalyzeIdentity runs the pipeline for an already normalized identity.
func (s *Service) AnalyzeIdentity(ctx context.Context, id model.Identity) (*Result, error) {
	start := time.Now()
	inputHash := cache.InputHash(id)
	log := zap.L().With(zap.String("input_hash", inputHash), zap.String("mode", string(id.Mode)))

	var b build
	load := func(ctx context.Context) (entry, bool, error) {
		e, err := s.generate(ctx, id, &b)
		if err != nil {
			return entry{}, false, err
		}
		return e, e.Brief.Outcome == model.OutcomeSuccess, nil
	}

	var (
		e   entry
		hit bool
		err error
	)
	if s.deps.Cache != nil {
		e, hit, err = cache.Do(ctx, s.deps.Cache, cache.Key(id), load)
	} else {
		e, _, err = load(ctx)
	}
	if err != nil {
		s.countFailure(id, err)
		return nil, err
	}
	if hit {
		e.Brief.Outcome = model.OutcomeSuccess
		e.Brief.RepairAttempts = e.RepairAttempts
	}

	res := &Result{
		RunID:    uuid.NewString(),
		Brief:    e.Brief,
		CacheHit: hit,
		Adapters: b.adapters,
		Trace:    b.trace,
		Identity: e.Identity,
		Duration: time.Since(start),
		Fallback: b.fallback,
	}
	metrics.BriefsTotal.WithLabelValues(string(id.Mode), string(res.Brief.Outcome)).Inc()
	s.record(ctx, res, inputHash, id.Mode)

	log.Info("pipeline: brief produced",
		zap.String("outcome", string(res.Brief.Outcome)),
		zap.String("label", string(res.Brief.Confidence.Label)),
		zap.Int("evidence", len(res.Brief.Evidence)),
		zap.Bool("cache_hit", hit),
		zap.Duration("elapsed", res.Duration),
	)
	return res, nil
}

func (s *Service) generate(ctx context.Context, id model.Identity, b *build) (entry, error) {
	if s.deps.Resolver != nil {
		resolved, err := s.deps.Resolver.Resolve(ctx, id)
		if err != nil {
			return entry{}, eris.Wrap(err, "pipeline: resolve")
		}
		id = resolved
	}

	col := &adapter.Collection{}
	if s.deps.Collector != nil {
		var err error
		col, err = s.deps.Collector.Collect(ctx, id)
		if err != nil {
			return entry{}, eris.Wrap(err, "pipeline: collect")
		}
	}
	b.adapters = col.Stats

	set := s.deps.Fusion.Fuse(col.Items, fusion.TargetFor(id))
	metrics.EvidenceItems.Observe(float64(set.Len()))

	verdict := s.deps.Estimator.Estimate(set, id, confidence.Signals{
		CompanyResolved: col.CompanyResolved,
		Agreeing:        col.Agreeing,
	})

	gres, err := s.deps.Guard.Run(ctx, guard.Input{
		Identity: id,
		Evidence: set,
		Estimate: verdict,
		Cap:      s.deps.Estimator.Policy().Cap(id.Mode),
		GitHub:   col.GitHub,
	})
	if err != nil {
		return entry{}, err
	}
	b.trace = gres.Trace
	b.fallback = gres.Reason
	return entry{Brief: gres.Brief, RepairAttempts: gres.Brief.RepairAttempts, Identity: id}, nil
}

func (s *Service) countFailure(id model.Identity, err error) {
	outcome := "error"
	if qe, ok := generate.AsQuotaExceeded(err); ok {
		outcome = "quota"
		metrics.QuotaExceededTotal.WithLabelValues(qe.Provider).Inc()
	}
	if errors.Is(err, context.Canceled) {
		return
	}
	metrics.BriefsTotal.WithLabelValues(string(id.Mode), outcome).Inc()
}

// record writes the privacy-safe run log entry. Failures only log.
func (s *Service) record(ctx context.Context, res *Result, inputHash string, mode model.InputMode) {
	if s.deps.Store == nil {
		return
	}
	rec := RunRecord(res, inputHash, mode)
	if err := s.deps.Store.RecordRun(context.WithoutCancel(ctx), rec); err != nil {
		zap.L().Warn("pipeline: record run failed", zap.String("run_id", res.RunID), zap.Error(err))
	}
}

// RunRecord derives the run log entry for res.
func RunRecord(res *Result, inputHash string, mode model.InputMode) model.RunRecord {
	failed := 0
	for _, st := range res.Adapters {
		switch st.Status {
		case adapter.StatusError, adapter.StatusTimeout, adapter.StatusOpen:
			failed++
		}
	}
	return model.RunRecord{
		ID:             res.RunID,
		InputHash:      inputHash,
		Mode:           mode,
		Outcome:        res.Brief.Outcome,
		Label:          res.Brief.Confidence.Label,
		EvidenceCount:  len(res.Brief.Evidence),
		RepairAttempts: res.Brief.RepairAttempts,
		AdaptersFailed: failed,
		CacheHit:       res.CacheHit,
		DurationMs:     res.Duration.Milliseconds(),
		CreatedAt:      time.Now().UTC(),
	}
}
