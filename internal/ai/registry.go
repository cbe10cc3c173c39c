package ai

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// Spec describes one configured provider. The order of specs is the
// order fragments appear in the final report.
type Spec struct {
	Name    string
	Model   string
	APIKey  string
	BaseURL string
}

// BuildProviders constructs providers from configuration. Registration is
// a static, config-driven list; the set never changes during a run.
func BuildProviders(specs []Spec) ([]Provider, error) {
	providers := make([]Provider, 0, len(specs))
	for _, spec := range specs {
		p, err := buildProvider(spec)
		if err != nil {
			return nil, fmt.Errorf("configure provider %q: %w", spec.Name, err)
		}
		log.Info().
			Str("provider", p.Identity().String()).
			Msg("review provider configured")
		providers = append(providers, p)
	}
	return providers, nil
}

func buildProvider(spec Spec) (Provider, error) {
	switch spec.Name {
	case "anthropic":
		return NewAnthropicProvider(spec.APIKey, spec.Model)
	case "openai":
		return NewOpenAIProvider(spec.APIKey, spec.Model, spec.BaseURL)
	default:
		return nil, fmt.Errorf("unsupported provider type %q", spec.Name)
	}
}
