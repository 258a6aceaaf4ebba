package adapter

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/meetingintel/internal/metrics"
	"github.com/sells-group/meetingintel/internal/model"
	"github.com/sells-group/meetingintel/internal/resilience"
)

// Adapter call statuses, also used as metric labels.
const (
	StatusOK      = "ok"
	StatusError   = "error"
	StatusTimeout = "timeout"
	StatusOpen    = "open"
	StatusSkipped = "skipped"
)

// FanoutConfig bounds each adapter call.
type FanoutConfig struct {
	// Timeout applies to each adapter separately. Default 8s.
	Timeout time.Duration
	// MaxItems caps one adapter's contribution. Default 10.
	MaxItems int
	// Breakers holds one circuit per adapter name. Nil creates a registry
	// that trips after 3 consecutive failures for 60s.
	Breakers *resilience.Breakers
}

// Stat describes one adapter's run.
type Stat struct {
	Adapter  string        `json:"adapter"`
	Status   string        `json:"status"`
	Items    int           `json:"items"`
	Duration time.Duration `json:"duration"`
	Err      string        `json:"error,omitempty"`
}

// Collection is the joined output of every adapter.
type Collection struct {
	// Items are concatenated in adapter enumeration order.
	Items           []model.EvidenceItem
	GitHub          *model.GitHubProfile
	CompanyResolved bool
	Agreeing        []model.Source
	Stats           []Stat
}

// Failed counts adapters that ran and contributed nothing due to an error.
func (c Collection) Failed() int {
	n := 0
	for _, s := range c.Stats {
		switch s.Status {
		case StatusError, StatusTimeout, StatusOpen:
			n++
		}
	}
	return n
}

// Fanout runs adapters concurrently and joins their output.
type Fanout struct {
	adapters []Adapter
	cfg      FanoutConfig
}

// NewFanout creates a Fanout over adapters in enumeration order.
func NewFanout(cfg FanoutConfig, adapters ...Adapter) *Fanout {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = 10
	}
	if cfg.Breakers == nil {
		cfg.Breakers = resilience.NewBreakers(DefaultBreakerConfig())
	}
	return &Fanout{adapters: adapters, cfg: cfg}
}

// DefaultBreakerConfig trips an adapter's circuit after 3 consecutive
// failures. Caller cancellation never counts as a failure.
func DefaultBreakerConfig() resilience.BreakerConfig {
	return resilience.BreakerConfig{
		Threshold: 3,
		Cooldown:  60 * time.Second,
		OnStateChange: func(name string, from, to resilience.State) {
			zap.L().Warn("adapter: circuit state change",
				zap.String("adapter", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}
}

// Adapters returns the configured adapters in enumeration order.
func (f *Fanout) Adapters() []Adapter { return f.adapters }

// Collect runs every applicable adapter. An adapter that fails, times out
// or is circuit-broken contributes nothing. Only cancellation of ctx itself
// is returned as an error.
func (f *Fanout) Collect(ctx context.Context, id model.Identity) (*Collection, error) {
	outputs := make([]Output, len(f.adapters))
	stats := make([]Stat, len(f.adapters))

	g, gctx := errgroup.WithContext(ctx)
	for i, a := range f.adapters {
		stats[i] = Stat{Adapter: a.Name(), Status: StatusSkipped}
		if !a.Applies(id) {
			continue
		}
		g.Go(func() error {
			outputs[i], stats[i] = f.run(gctx, a, id)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "adapter: collect cancelled")
	}

	col := &Collection{Stats: stats}
	for _, out := range outputs {
		col.Items = append(col.Items, out.Items...)
		if out.GitHub != nil && col.GitHub == nil {
			col.GitHub = out.GitHub
		}
		col.CompanyResolved = col.CompanyResolved || out.CompanyResolved
		col.Agreeing = append(col.Agreeing, out.Agreeing...)
	}
	return col, nil
}

func (f *Fanout) run(ctx context.Context, a Adapter, id model.Identity) (Output, Stat) {
	name := a.Name()
	stat := Stat{Adapter: name}

	callCtx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	start := time.Now()
	out, err := resilience.Call(callCtx, f.cfg.Breakers.For(name), func(ctx context.Context) (Output, error) {
		return a.Collect(ctx, id)
	})
	stat.Duration = time.Since(start)
	metrics.AdapterDuration.WithLabelValues(name).Observe(stat.Duration.Seconds())

	switch {
	case err == nil:
		stat.Status = StatusOK
	case errors.Is(err, resilience.ErrOpen):
		stat.Status = StatusOpen
	case ctx.Err() == nil && (callCtx.Err() != nil || errors.Is(err, context.DeadlineExceeded)):
		stat.Status = StatusTimeout
	default:
		stat.Status = StatusError
	}

	if err != nil {
		stat.Err = err.Error()
		if ctx.Err() == nil {
			metrics.AdapterRequestsTotal.WithLabelValues(name, stat.Status).Inc()
			zap.L().Warn("adapter: unavailable",
				zap.String("adapter", name),
				zap.String("status", stat.Status),
				zap.Duration("elapsed", stat.Duration),
				zap.Error(err),
			)
		}
		return Output{}, stat
	}
	metrics.AdapterRequestsTotal.WithLabelValues(name, StatusOK).Inc()

	out.Items = sanitize(out.Items, f.cfg.MaxItems)
	stat.Items = len(out.Items)
	return out, stat
}

// sanitize drops items with empty snippets or unknown sources and caps the
// result at limit.
func sanitize(items []model.EvidenceItem, limit int) []model.EvidenceItem {
	out := make([]model.EvidenceItem, 0, len(items))
	for _, it := range items {
		if it.Snippet == "" || !it.Source.Valid() {
			continue
		}
		out = append(out, it)
		if len(out) == limit {
			break
		}
	}
	return out
}
