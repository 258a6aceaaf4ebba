// Package generate calls a generative model provider and classifies its
// failures into quota, timeout and transport errors.
package generate

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/meetingintel/internal/resilience"
)

// ErrTimeout is returned when a generation call outlives the invoker's own
// deadline while the caller's context is still live.
var ErrTimeout = eris.New("generate: timed out")

// Request is one provider-agnostic generation call.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int64
	Temperature float64
	// JSONMode asks providers that support it to constrain output to a
	// JSON object.
	JSONMode bool
}

// Generator produces raw text for a request.
type Generator interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}

// Invoker bounds a Generator with a deadline and transport retries.
type Invoker struct {
	gen     Generator
	timeout time.Duration
	retry   resilience.RetryPolicy
}

// NewInvoker wraps gen. A zero timeout disables the invoker deadline.
func NewInvoker(gen Generator, timeout time.Duration, retry resilience.RetryPolicy) *Invoker {
	retry.Retryable = retryable
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.LogRetry("generate", gen.Name())
	}
	return &Invoker{gen: gen, timeout: timeout, retry: retry}
}

// Provider names the wrapped generator.
func (i *Invoker) Provider() string { return i.gen.Name() }

// Invoke runs one generation attempt. Quota errors are returned unchanged,
// an expired invoker deadline yields ErrTimeout and caller cancellation
// yields the context's error. Anything else is a *TransportError.
func (i *Invoker) Invoke(ctx context.Context, req Request) (string, error) {
	callCtx := ctx
	if i.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := resilience.Retry(callCtx, i.retry, func(ctx context.Context) (string, error) {
		return i.gen.Generate(ctx, req)
	})
	if err == nil {
		zap.L().Debug("generate: completed",
			zap.String("provider", i.gen.Name()),
			zap.Duration("elapsed", time.Since(start)),
			zap.Int("chars", len(text)),
		)
		return text, nil
	}

	if ctx.Err() != nil {
		return "", eris.Wrap(ctx.Err(), "generate: cancelled")
	}
	if qe, ok := AsQuotaExceeded(err); ok {
		return "", qe
	}
	if callCtx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return "", ErrTimeout
	}
	return "", &TransportError{Provider: i.gen.Name(), Err: err}
}

func retryable(err error) bool {
	if _, ok := AsQuotaExceeded(err); ok {
		return false
	}
	return resilience.IsTransient(err)
}
