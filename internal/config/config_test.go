package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/gamesmith/internal/errors"
)

func writeYAML(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, Validate(cfg))
	assert.Equal(t, ProviderNone, cfg.AI.Provider)
	assert.Equal(t, StoreFile, cfg.Store.Driver)
	assert.Equal(t, "ANTHROPIC_API_KEY", cfg.AI.APIKeyEnvVars[ProviderAnthropic])
}

func TestLoadFromPaths_Defaults(t *testing.T) {
	cfg, err := LoadFromPaths(context.Background(), "", "")
	require.NoError(t, err)

	def := DefaultConfig()
	assert.Equal(t, def.Server.Addr, cfg.Server.Addr)
	assert.Equal(t, def.Server.ShutdownTimeout, cfg.Server.ShutdownTimeout)
	assert.Equal(t, def.AI.Timeout, cfg.AI.Timeout)
	assert.Equal(t, def.AI.MaxRetries, cfg.AI.MaxRetries)
	assert.Equal(t, def.Execution, cfg.Execution)
	assert.Equal(t, def.Events.BufferSize, cfg.Events.BufferSize)
	assert.False(t, cfg.Generator.StrictTemplates)
}

func TestLoadFromPaths_ProjectOverridesGlobal(t *testing.T) {
	dir := t.TempDir()
	global := writeYAML(t, dir, "global.yaml", `
ai:
  provider: anthropic
  model: claude-sonnet-4-5
store:
  driver: sqlite
`)
	project := writeYAML(t, dir, "project.yaml", `
ai:
  provider: openai
execution:
  min_step_delay: 0s
  max_step_delay: 100ms
generator:
  strict_templates: true
`)

	cfg, err := LoadFromPaths(context.Background(), project, global)
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, cfg.AI.Provider)
	assert.Equal(t, "claude-sonnet-4-5", cfg.AI.Model)
	assert.Equal(t, StoreSQLite, cfg.Store.Driver)
	assert.Equal(t, time.Duration(0), cfg.Execution.MinStepDelay)
	assert.Equal(t, 100*time.Millisecond, cfg.Execution.MaxStepDelay)
	assert.True(t, cfg.Generator.StrictTemplates)
}

func TestLoadFromPaths_EnvOverridesFiles(t *testing.T) {
	dir := t.TempDir()
	project := writeYAML(t, dir, "project.yaml", "ai:\n  provider: openai\n")
	t.Setenv("GAMESMITH_AI_PROVIDER", "gemini")
	t.Setenv("GAMESMITH_SERVER_ADDR", ":9999")

	cfg, err := LoadFromPaths(context.Background(), project, "")
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, cfg.AI.Provider)
	assert.Equal(t, ":9999", cfg.Server.Addr)
}

func TestLoadFromPaths_Invalid(t *testing.T) {
	dir := t.TempDir()
	project := writeYAML(t, dir, "project.yaml", "ai:\n  provider: llama\n")

	_, err := LoadFromPaths(context.Background(), project, "")
	require.ErrorIs(t, err, errors.ErrConfigInvalid)
}

func TestLoadWithOverrides(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, "config.yaml", "store:\n  driver: memory\n")
	t.Setenv("HOME", dir)

	cfg, err := LoadWithOverrides(context.Background(), path, &Config{
		Server: ServerConfig{Addr: ":7000"},
		AI:     AIConfig{Provider: ProviderAnthropic},
	})
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, ProviderAnthropic, cfg.AI.Provider)
	assert.Equal(t, StoreMemory, cfg.Store.Driver)

	_, err = LoadWithOverrides(context.Background(), filepath.Join(dir, "missing.yaml"), nil)
	require.ErrorIs(t, err, errors.ErrConfigNotFound)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid", func(*Config) {}, nil},
		{"empty addr", func(c *Config) { c.Server.Addr = "" }, errors.ErrConfigInvalid},
		{"zero read timeout", func(c *Config) { c.Server.ReadTimeout = 0 }, errors.ErrConfigInvalid},
		{"unknown provider", func(c *Config) { c.AI.Provider = "llama" }, errors.ErrConfigInvalid},
		{"zero ai timeout", func(c *Config) { c.AI.Timeout = 0 }, errors.ErrConfigInvalid},
		{"zero max tokens", func(c *Config) { c.AI.MaxTokens = 0 }, errors.ErrConfigInvalid},
		{"negative retries", func(c *Config) { c.AI.MaxRetries = -1 }, errors.ErrConfigInvalid},
		{"too many retries", func(c *Config) { c.AI.MaxRetries = 11 }, errors.ErrConfigInvalid},
		{"unknown driver", func(c *Config) { c.Store.Driver = "postgres" }, errors.ErrUnknownStoreDriver},
		{"negative delay", func(c *Config) { c.Execution.MinStepDelay = -time.Second }, errors.ErrConfigInvalid},
		{"min above max", func(c *Config) {
			c.Execution.MinStepDelay = 2 * time.Second
			c.Execution.MaxStepDelay = time.Second
		}, errors.ErrConfigInvalid},
		{"zero buffer", func(c *Config) { c.Events.BufferSize = 0 }, errors.ErrConfigInvalid},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := Validate(cfg)
			if tc.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.wantErr)
		})
	}

	require.ErrorIs(t, Validate(nil), errors.ErrConfigNil)
}

func TestAIConfig_GetAPIKeyEnvVar(t *testing.T) {
	cfg := AIConfig{APIKeyEnvVars: map[string]string{ProviderOpenAI: "WORK_OPENAI_KEY"}}
	assert.Equal(t, "WORK_OPENAI_KEY", cfg.GetAPIKeyEnvVar(ProviderOpenAI))
	assert.Equal(t, "ANTHROPIC_API_KEY", cfg.GetAPIKeyEnvVar(ProviderAnthropic))
	assert.Equal(t, "GEMINI_API_KEY", cfg.GetAPIKeyEnvVar(ProviderGemini))
	assert.Empty(t, cfg.GetAPIKeyEnvVar(ProviderNone))
}

func TestConfig_Paths(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := DefaultConfig()
	root, err := cfg.ArtifactRoot()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".gamesmith", "artifacts"), root)

	path, err := cfg.StorePath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".gamesmith", "projects"), path)

	cfg.Store.Driver = StoreSQLite
	path, err = cfg.StorePath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".gamesmith", "gamesmith.db"), path)

	cfg.Store.Driver = StoreMemory
	path, err = cfg.StorePath()
	require.NoError(t, err)
	assert.Empty(t, path)

	cfg.Artifacts.Root = "/srv/games"
	root, err = cfg.ArtifactRoot()
	require.NoError(t, err)
	assert.Equal(t, "/srv/games", root)

	assert.Equal(t, filepath.Join(".gamesmith", "config.yaml"), ProjectConfigPath())
}
