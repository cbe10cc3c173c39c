package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog/log"
)

// ProviderConfig configures one AI review provider. The order of the
// [[providers]] tables in the config file is the order providers appear
// in the published review.
type ProviderConfig struct {
	Name    string `koanf:"name"`
	Model   string `koanf:"model"`
	APIKey  string `koanf:"api_key"`
	BaseURL string `koanf:"base_url"`
}

// Config represents the application configuration.
type Config struct {
	Server struct {
		Port          int    `koanf:"port"`
		WebhookSecret string `koanf:"webhook_secret"`
	} `koanf:"server"`

	Database struct {
		URL string `koanf:"url"`
	} `koanf:"database"`

	GitLab struct {
		URL               string  `koanf:"url"`
		Token             string  `koanf:"token"`
		RequestsPerSecond float64 `koanf:"requests_per_second"`
	} `koanf:"gitlab"`

	Review struct {
		ChunkBudget        int    `koanf:"chunk_budget"`
		ChunkWorkers       int    `koanf:"chunk_workers"`
		RunDeadlineSeconds int    `koanf:"run_deadline_seconds"`
		RulesPath          string `koanf:"rules_path"`
		RulesRef           string `koanf:"rules_ref"`
	} `koanf:"review"`

	Dispatch struct {
		PerCallTimeoutSeconds int     `koanf:"per_call_timeout_seconds"`
		MaxRetries            int     `koanf:"max_retries"`
		MaxOutputTokens       int     `koanf:"max_output_tokens"`
		Temperature           float64 `koanf:"temperature"`
	} `koanf:"dispatch"`

	Providers []ProviderConfig `koanf:"providers"`
}

// LoadConfig loads configuration from defaults, an optional TOML file,
// and REVIEWPILOT_-prefixed environment variables, in that order of
// precedence (later wins). In env names a double underscore separates
// sections: REVIEWPILOT_GITLAB__TOKEN sets gitlab.token.
func LoadConfig(configPath string) (*Config, error) {
	var k = koanf.New(".")

	k.Load(confmap.Provider(map[string]interface{}{
		"server.port":                       8844,
		"review.chunk_budget":               100000,
		"review.chunk_workers":              4,
		"review.run_deadline_seconds":       600,
		"review.rules_path":                 "REVIEW_RULES.md",
		"dispatch.per_call_timeout_seconds": 120,
		"dispatch.max_retries":              2,
		"dispatch.max_output_tokens":        4096,
		"dispatch.temperature":              0.2,
		"gitlab.url":                        "https://gitlab.com",
	}, "."), nil)

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
	} else {
		defaultPaths := []string{"./reviewpilot.toml", "$HOME/.reviewpilot.toml"}
		for _, path := range defaultPaths {
			path = os.ExpandEnv(path)
			if _, err := os.Stat(path); err == nil {
				if err := k.Load(file.Provider(path), toml.Parser()); err == nil {
					break
				}
			}
		}
	}

	k.Load(env.Provider("REVIEWPILOT_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "REVIEWPILOT_")), "__", ".", -1)
	}), nil)

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	return &config, nil
}

// Validate checks the parts of the configuration without usable
// defaults.
func Validate(config *Config) error {
	if config.GitLab.Token == "" {
		return fmt.Errorf("gitlab token is required")
	}
	// Zero providers is a valid, if odd, deployment: every run publishes
	// an explicit "no providers configured" report instead of reviewing.
	if len(config.Providers) == 0 {
		log.Warn().Msg("no review providers configured, reviews will publish an empty report")
	}
	for i, p := range config.Providers {
		if p.Name == "" {
			return fmt.Errorf("provider %d: name is required", i)
		}
		if p.APIKey == "" {
			return fmt.Errorf("provider %q: api_key is required", p.Name)
		}
	}
	if config.Review.ChunkBudget <= 0 {
		return fmt.Errorf("review chunk_budget must be positive")
	}
	return nil
}

// InitConfig writes a starter configuration file.
func InitConfig(configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists at %s", configPath)
	}

	sampleConfig := `# ReviewPilot Configuration

[server]
port = 8844
webhook_secret = "change-me"

[gitlab]
url = "https://gitlab.example.com"
token = "your-gitlab-token"

[review]
chunk_budget = 100000
chunk_workers = 4
run_deadline_seconds = 600
rules_path = "REVIEW_RULES.md"

[[providers]]
name = "anthropic"
model = "claude-3-5-sonnet-latest"
api_key = "your-anthropic-api-key"

[[providers]]
name = "openai"
model = "gpt-4o-mini"
api_key = "your-openai-api-key"
`

	return os.WriteFile(configPath, []byte(sampleConfig), 0644)
}

// RunDeadline returns the run deadline as a duration.
func (c *Config) RunDeadline() time.Duration {
	return time.Duration(c.Review.RunDeadlineSeconds) * time.Second
}

// PerCallTimeout returns the per-provider-call timeout as a duration.
func (c *Config) PerCallTimeout() time.Duration {
	return time.Duration(c.Dispatch.PerCallTimeoutSeconds) * time.Second
}
