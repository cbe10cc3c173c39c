package ai

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"

	"github.com/reviewpilot/pkg/models"
)

const defaultAnthropicModel = "claude-3-5-sonnet-latest"

// AnthropicProvider reviews code through the Anthropic Messages API.
type AnthropicProvider struct {
	llm   llms.Model
	model string
}

// NewAnthropicProvider constructs a provider for the given API key and
// model. An empty model selects a default.
func NewAnthropicProvider(apiKey, model string) (*AnthropicProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}
	if model == "" {
		model = defaultAnthropicModel
	}

	llm, err := anthropic.New(
		anthropic.WithToken(apiKey),
		anthropic.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("anthropic: initialize client: %w", err)
	}

	return &AnthropicProvider{llm: llm, model: model}, nil
}

// Identity implements Provider.
func (p *AnthropicProvider) Identity() models.ProviderIdentity {
	return models.ProviderIdentity{Name: "anthropic", Model: p.model}
}

// Review implements Provider.
func (p *AnthropicProvider) Review(ctx context.Context, promptText string, opts Options) (string, error) {
	return generateReview(ctx, p.llm, p.Identity(), promptText, opts)
}

// generateReview runs one prompt through a langchain model and normalizes
// the result. Shared by all langchain-backed providers.
func generateReview(ctx context.Context, llm llms.Model, id models.ProviderIdentity, promptText string, opts Options) (string, error) {
	callOpts := []llms.CallOption{}
	if opts.MaxOutputTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(opts.MaxOutputTokens))
	}
	if opts.Temperature > 0 {
		callOpts = append(callOpts, llms.WithTemperature(opts.Temperature))
	}

	raw, err := llms.GenerateFromSinglePrompt(ctx, llm, promptText, callOpts...)
	if err != nil {
		pe := classifyCallError(err)
		log.Debug().
			Str("provider", id.String()).
			Str("kind", string(pe.Kind)).
			Err(err).
			Msg("model call failed")
		return "", pe
	}

	text, err := normalizeResponse(raw)
	if err != nil {
		return "", err
	}
	return text, nil
}
