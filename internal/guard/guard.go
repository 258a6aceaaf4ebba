// Package guard turns raw generation output into a schema-valid brief. It
// parses and validates each draft, issues at most two repair prompts, and
// falls back to a deterministic brief built from evidence when the model
// cannot produce usable output.
package guard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/meetingintel/internal/generate"
	"github.com/sells-group/meetingintel/internal/metrics"
	"github.com/sells-group/meetingintel/internal/model"
)

// MaxRepairs is the ceiling on repair prompts after the first draft.
const MaxRepairs = 2

// State is a step of one guarded generation.
type State string

const (
	StateDrafting        State = "drafting"
	StateParsed          State = "parsed"
	StateParseFailed     State = "parse_failed"
	StateSchemaInvalid   State = "schema_invalid"
	StateSchemaValid     State = "schema_valid"
	StateRepairRequested State = "repair_requested"
	StateFallback        State = "fallback"
)

// Invoker performs one bounded generation call.
type Invoker interface {
	Invoke(ctx context.Context, req generate.Request) (string, error)
	Provider() string
}

// Input is everything the guard needs for one brief.
type Input struct {
	Identity model.Identity
	Evidence model.FusedEvidenceSet
	// Estimate is the deterministic verdict used when the model's own
	// confidence is unusable and for the fallback brief.
	Estimate model.Verdict
	// Cap bounds the model-supplied confidence label. Empty means no cap.
	Cap    model.Label
	GitHub *model.GitHubProfile
}

// Result is the guarded brief plus the states it passed through.
type Result struct {
	Brief  model.Brief
	Trace  []State
	Reason string // fallback trigger, empty on success
}

// Options tune the generation requests.
type Options struct {
	MaxTokens   int64
	Temperature float64
	JSONMode    bool
}

// Guard runs the draft, validate, repair, fallback cycle.
type Guard struct {
	inv    Invoker
	schema *Schema
	opts   Options
}

// New creates a Guard.
func New(inv Invoker, schema *Schema, opts Options) *Guard {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1800
	}
	return &Guard{inv: inv, schema: schema, opts: opts}
}

// failure records why the previous draft was rejected.
type failure struct {
	reason string // "parse" or "schema"
	errs   []string
}

// Run produces a brief for in. Quota, transport and cancellation errors
// from the invoker are returned unchanged and no further attempts are made.
// Every other failure ends in a schema-valid result.
func (g *Guard) Run(ctx context.Context, in Input) (*Result, error) {
	prompt := generate.BuildPrompt(in.Identity, in.Evidence)
	res := &Result{Trace: []State{StateDrafting}}

	var last failure
	for attempt := 0; attempt <= MaxRepairs; attempt++ {
		req := generate.Request{
			System:      generate.SystemPrompt,
			Prompt:      prompt,
			MaxTokens:   g.opts.MaxTokens,
			Temperature: g.opts.Temperature,
			JSONMode:    g.opts.JSONMode,
		}
		if attempt > 0 {
			req.Prompt = g.repairPrompt(prompt, attempt, last)
			res.Trace = append(res.Trace, StateRepairRequested)
			metrics.RepairAttemptsTotal.Inc()
		}

		raw, err := g.inv.Invoke(ctx, req)
		if errors.Is(err, generate.ErrTimeout) {
			return g.fallback(res, in, attempt, "timeout"), nil
		}
		if err != nil {
			return nil, err
		}

		doc, perr := ParseDraft(raw)
		if perr != nil {
			res.Trace = append(res.Trace, StateParseFailed)
			last = failure{reason: "parse", errs: []string{perr.Error()}}
			zap.L().Debug("guard: draft did not parse", zap.Int("attempt", attempt), zap.Error(perr))
			continue
		}
		res.Trace = append(res.Trace, StateParsed)

		normalize(doc, in.Estimate, in.Cap)
		if errs := g.schema.Validate(doc); len(errs) > 0 {
			res.Trace = append(res.Trace, StateSchemaInvalid)
			last = failure{reason: "schema", errs: errs}
			zap.L().Debug("guard: draft failed schema", zap.Int("attempt", attempt), zap.Strings("errors", errs))
			continue
		}

		brief, err := decode(doc)
		if err != nil {
			res.Trace = append(res.Trace, StateSchemaInvalid)
			last = failure{reason: "schema", errs: []string{err.Error()}}
			continue
		}
		res.Trace = append(res.Trace, StateSchemaValid)
		finish(&brief, in)
		brief.Outcome = model.OutcomeSuccess
		brief.RepairAttempts = attempt
		res.Brief = brief
		return res, nil
	}

	return g.fallback(res, in, MaxRepairs, last.reason), nil
}

// repairPrompt rebuilds the request from the original prompt. The first
// repair only insists on strict JSON (plus schema errors when the draft
// parsed); the second also lists every error and the full contract.
func (g *Guard) repairPrompt(prompt string, attempt int, last failure) string {
	var b strings.Builder
	b.WriteString(prompt)
	b.WriteString("\n\n")
	b.WriteString(generate.StrictJSONInstruction)

	if attempt == 1 && last.reason != "schema" {
		return b.String()
	}

	b.WriteString("\n\nThe previous response did not validate. Fix ONLY the JSON. Errors:\n")
	for _, e := range last.errs {
		fmt.Fprintf(&b, "- %s\n", e)
	}
	if attempt >= MaxRepairs {
		b.WriteString("\nThe JSON must satisfy this CUE definition of #Brief:\n")
		b.WriteString(g.schema.Source())
	}
	return b.String()
}

// fallback builds the deterministic brief.
func (g *Guard) fallback(res *Result, in Input, repairs int, reason string) *Result {
	brief := model.Brief{Confidence: in.Estimate}
	finish(&brief, in)
	brief.Outcome = model.OutcomeFallback
	brief.RepairAttempts = repairs
	brief.CorrelationID = uuid.NewString()

	res.Trace = append(res.Trace, StateFallback)
	res.Brief = brief
	res.Reason = reason

	metrics.FallbacksTotal.WithLabelValues(reason).Inc()
	zap.L().Warn("guard: fallback produced",
		zap.String("correlation_id", brief.CorrelationID),
		zap.String("provider", g.inv.Provider()),
		zap.String("reason", reason),
		zap.Int("repair_attempts", repairs),
		zap.Int("evidence_items", in.Evidence.Len()),
		zap.String("label", string(in.Estimate.Label)),
	)
	return res
}

// finish stamps the fields the model never owns and fills defaults.
func finish(b *model.Brief, in Input) {
	b.InputEmail = in.Identity.Email
	b.PersonNameGuess = in.Identity.NameGuess
	b.CompanyDomain = in.Identity.CompanyDomain
	b.Evidence = in.Evidence.Refs()
	b.GitHubProfile = in.GitHub
	b.ApplyDefaults()
}

func decode(doc map[string]any) (model.Brief, error) {
	var b model.Brief
	data, err := json.Marshal(doc)
	if err != nil {
		return b, eris.Wrap(err, "guard: re-encode draft")
	}
	if err := json.Unmarshal(data, &b); err != nil {
		return b, eris.Wrap(err, "guard: decode draft")
	}
	return b, nil
}
