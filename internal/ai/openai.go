package ai

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/reviewpilot/pkg/models"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIProvider reviews code through the OpenAI Chat Completions API.
type OpenAIProvider struct {
	llm   llms.Model
	model string
}

// NewOpenAIProvider constructs a provider for the given API key and model.
// baseURL may be empty; a non-empty value points the client at an
// OpenAI-compatible endpoint.
func NewOpenAIProvider(apiKey, model, baseURL string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if model == "" {
		model = defaultOpenAIModel
	}

	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("openai: initialize client: %w", err)
	}

	return &OpenAIProvider{llm: llm, model: model}, nil
}

// Identity implements Provider.
func (p *OpenAIProvider) Identity() models.ProviderIdentity {
	return models.ProviderIdentity{Name: "openai", Model: p.model}
}

// Review implements Provider.
func (p *OpenAIProvider) Review(ctx context.Context, promptText string, opts Options) (string, error) {
	return generateReview(ctx, p.llm, p.Identity(), promptText, opts)
}
