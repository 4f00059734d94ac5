// Package config provides configuration management for gamesmith.
//
// Configuration is layered: built-in defaults, then the global
// ~/.gamesmith/config.yaml, then the project .gamesmith/config.yaml,
// then GAMESMITH_* environment variables, then CLI flag overrides.
//
// IMPORTANT: This package may import internal/constants and internal/errors.
// It MUST NOT import any other internal package.
package config

import (
	"time"
)

// AI provider names accepted by ai.provider.
const (
	ProviderNone      = "none"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
)

// Project store drivers accepted by store.driver.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

// Config is the root configuration structure for gamesmith.
type Config struct {
	// Server contains settings for the HTTP API and websocket hub.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Artifacts contains settings for the artifact store.
	Artifacts ArtifactsConfig `yaml:"artifacts" mapstructure:"artifacts"`

	// AI contains settings for the text generator backend.
	AI AIConfig `yaml:"ai" mapstructure:"ai"`

	// Store contains settings for project persistence.
	Store StoreConfig `yaml:"store" mapstructure:"store"`

	// Generator contains settings for game generation from templates.
	Generator GeneratorConfig `yaml:"generator" mapstructure:"generator"`

	// Execution contains settings for work plan execution.
	Execution ExecutionConfig `yaml:"execution" mapstructure:"execution"`

	// Events contains settings for the event bus.
	Events EventsConfig `yaml:"events" mapstructure:"events"`
}

// ServerConfig contains settings for the HTTP server.
type ServerConfig struct {
	// Addr is the listen address. Default: "127.0.0.1:8420"
	Addr string `yaml:"addr" mapstructure:"addr"`

	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`

	// AllowedOrigins lists websocket and CORS origins. Empty allows all.
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// ArtifactsConfig contains settings for artifact storage.
type ArtifactsConfig struct {
	// Root is the directory all generated files live under.
	// Default: ~/.gamesmith/artifacts
	Root string `yaml:"root" mapstructure:"root"`
}

// AIConfig contains settings for the text generator.
type AIConfig struct {
	// Provider selects the backend: none, anthropic, openai or gemini.
	// Default: "none" (heuristic planning only)
	Provider string `yaml:"provider" mapstructure:"provider"`

	// Model is the provider model id. Empty uses the provider default.
	Model string `yaml:"model" mapstructure:"model"`

	// APIKeyEnvVars maps provider names to the environment variable holding the key.
	// Defaults: {"anthropic": "ANTHROPIC_API_KEY", "openai": "OPENAI_API_KEY", "gemini": "GEMINI_API_KEY"}
	APIKeyEnvVars map[string]string `yaml:"api_key_env_vars" mapstructure:"api_key_env_vars"`

	// BaseURL overrides the provider endpoint.
	BaseURL string `yaml:"base_url,omitempty" mapstructure:"base_url"`

	// MaxTokens caps the response length. Default: 2048
	MaxTokens int `yaml:"max_tokens" mapstructure:"max_tokens"`

	// Timeout bounds a single generation call including retries. Default: 2m
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// MaxRetries is the number of retries after the first failed call. Default: 2
	MaxRetries int `yaml:"max_retries" mapstructure:"max_retries"`
}

// GetAPIKeyEnvVar returns the environment variable name holding the key for provider.
func (c *AIConfig) GetAPIKeyEnvVar(provider string) string {
	if c.APIKeyEnvVars != nil {
		if envVar, ok := c.APIKeyEnvVars[provider]; ok {
			return envVar
		}
	}
	switch provider {
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderGemini:
		return "GEMINI_API_KEY"
	default:
		return ""
	}
}

// StoreConfig contains settings for project persistence.
type StoreConfig struct {
	// Driver is memory, file or sqlite. Default: "file"
	Driver string `yaml:"driver" mapstructure:"driver"`

	// Path is the directory (file driver) or database file (sqlite driver).
	// Empty uses ~/.gamesmith/projects or ~/.gamesmith/gamesmith.db.
	Path string `yaml:"path" mapstructure:"path"`
}

// GeneratorConfig contains settings for template-based generation.
type GeneratorConfig struct {
	// TemplatesDir loads additional templates from disk on top of the built-in set.
	TemplatesDir string `yaml:"templates_dir" mapstructure:"templates_dir"`

	// StrictTemplates fails generation when no template matches the game kind
	// instead of falling back to the first template.
	StrictTemplates bool `yaml:"strict_templates" mapstructure:"strict_templates"`

	// PreviewImage writes a placeholder preview image next to the game.
	PreviewImage bool `yaml:"preview_image" mapstructure:"preview_image"`
}

// ExecutionConfig bounds the simulated delay of non-file steps.
type ExecutionConfig struct {
	MinStepDelay time.Duration `yaml:"min_step_delay" mapstructure:"min_step_delay"`
	MaxStepDelay time.Duration `yaml:"max_step_delay" mapstructure:"max_step_delay"`
}

// EventsConfig contains settings for the event bus.
type EventsConfig struct {
	// BufferSize is the per-subscriber queue length. Default: 256
	BufferSize int `yaml:"buffer_size" mapstructure:"buffer_size"`
}
