package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reviewpilot.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
[gitlab]
token = "glpat-test"

[[providers]]
name = "anthropic"
api_key = "key"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 8844, cfg.Server.Port)
	assert.Equal(t, 100000, cfg.Review.ChunkBudget)
	assert.Equal(t, 4, cfg.Review.ChunkWorkers)
	assert.Equal(t, "REVIEW_RULES.md", cfg.Review.RulesPath)
	assert.Equal(t, "https://gitlab.com", cfg.GitLab.URL)
	assert.Equal(t, 600, cfg.Review.RunDeadlineSeconds)
}

func TestLoadConfigFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[server]
port = 9000

[review]
chunk_budget = 50000
chunk_workers = 2

[gitlab]
url = "https://gitlab.example.com"
token = "glpat-test"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 50000, cfg.Review.ChunkBudget)
	assert.Equal(t, 2, cfg.Review.ChunkWorkers)
	assert.Equal(t, "https://gitlab.example.com", cfg.GitLab.URL)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
[gitlab]
token = "from-file"
`)
	t.Setenv("REVIEWPILOT_GITLAB__TOKEN", "from-env")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.GitLab.Token)
}

func TestLoadConfigPreservesProviderOrder(t *testing.T) {
	path := writeConfig(t, `
[[providers]]
name = "openai"
model = "gpt-4o-mini"
api_key = "k1"

[[providers]]
name = "anthropic"
model = "claude-3-5-sonnet-latest"
api_key = "k2"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.Len(t, cfg.Providers, 2)
	assert.Equal(t, "openai", cfg.Providers[0].Name)
	assert.Equal(t, "anthropic", cfg.Providers[1].Name)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		cfg.GitLab.Token = "glpat-test"
		cfg.Review.ChunkBudget = 100000
		cfg.Providers = []ProviderConfig{{Name: "anthropic", APIKey: "key"}}
		return cfg
	}

	assert.NoError(t, Validate(valid()))

	cfg := valid()
	cfg.GitLab.Token = ""
	assert.ErrorContains(t, Validate(cfg), "gitlab token")

	// No providers is allowed; runs publish an empty report instead.
	cfg = valid()
	cfg.Providers = nil
	assert.NoError(t, Validate(cfg))

	cfg = valid()
	cfg.Providers[0].APIKey = ""
	assert.ErrorContains(t, Validate(cfg), "api_key")

	cfg = valid()
	cfg.Review.ChunkBudget = 0
	assert.ErrorContains(t, Validate(cfg), "chunk_budget")
}

func TestInitConfigRefusesToOverwrite(t *testing.T) {
	path := writeConfig(t, "# existing\n")
	assert.Error(t, InitConfig(path))
}

func TestInitConfigWritesLoadableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reviewpilot.toml")
	require.NoError(t, InitConfig(path))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Len(t, cfg.Providers, 2)
	assert.Equal(t, "anthropic", cfg.Providers[0].Name)
	assert.Equal(t, 8844, cfg.Server.Port)
}
