package generate

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/meetingintel/internal/resilience"
	"github.com/sells-group/meetingintel/pkg/anthropic"
)

// AnthropicProvider generates with a Claude model.
type AnthropicProvider struct {
	client anthropic.Client
	model  string
}

// NewAnthropicProvider wraps client for model.
func NewAnthropicProvider(client anthropic.Client, model string) *AnthropicProvider {
	return &AnthropicProvider{client: client, model: model}
}

// Name implements Generator.
func (p *AnthropicProvider) Name() string { return "anthropic" }

// Generate implements Generator.
func (p *AnthropicProvider) Generate(ctx context.Context, req Request) (string, error) {
	temp := req.Temperature
	mr := anthropic.MessageRequest{
		Model:       p.model,
		MaxTokens:   req.MaxTokens,
		Messages:    []anthropic.Message{{Role: "user", Content: req.Prompt}},
		Temperature: &temp,
	}
	if req.System != "" {
		mr.System = anthropic.CachedSystem(req.System)
	}

	resp, err := p.client.CreateMessage(ctx, mr)
	if err != nil {
		return "", p.classify(err)
	}
	resp.Usage.Log(p.model, "brief")
	return resp.Text(), nil
}

func (p *AnthropicProvider) classify(err error) error {
	status, header, ok := anthropic.APIStatus(err)
	if qe, quota := quotaFrom(p.Name(), status, header, err); quota {
		return qe
	}
	if ok && resilience.RetryableStatus(status) {
		return resilience.Transient(err, status)
	}
	return eris.Wrap(err, "generate: anthropic")
}
