package generate

import (
	"context"
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
	openai "github.com/sashabaranov/go-openai"

	"github.com/sells-group/meetingintel/internal/resilience"
)

// OpenAIConfig holds settings for an OpenAI-compatible chat endpoint
// (OpenAI, Groq, local gateways).
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	// Provider labels logs and quota errors. Defaults to "openai".
	Provider string
}

// OpenAIProvider generates with an OpenAI-compatible chat completion API.
type OpenAIProvider struct {
	client   *openai.Client
	model    string
	provider string
}

// NewOpenAIProvider creates a provider from cfg.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	provider := cfg.Provider
	if provider == "" {
		provider = "openai"
	}
	return &OpenAIProvider{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    cfg.Model,
		provider: provider,
	}
}

// Name implements Generator.
func (p *OpenAIProvider) Name() string { return p.provider }

// Generate implements Generator.
func (p *OpenAIProvider) Generate(ctx context.Context, req Request) (string, error) {
	var msgs []openai.ChatCompletionMessage
	if req.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	ccr := openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    msgs,
		MaxTokens:   int(req.MaxTokens),
		Temperature: float32(req.Temperature),
	}
	if req.JSONMode {
		ccr.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	resp, err := p.client.CreateChatCompletion(ctx, ccr)
	if err != nil {
		return "", p.classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", eris.New(fmt.Sprintf("generate: %s returned no choices", p.provider))
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *OpenAIProvider) classify(err error) error {
	status := 0
	var reqErr *openai.RequestError
	var apiErr *openai.APIError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	if qe, quota := quotaFrom(p.provider, status, nil, err); quota {
		return qe
	}
	if status != 0 && resilience.RetryableStatus(status) {
		return resilience.Transient(err, status)
	}
	return eris.Wrap(err, "generate: "+p.provider)
}
