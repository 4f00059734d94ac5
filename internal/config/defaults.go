package config

import (
	"time"

	"github.com/mrz1836/gamesmith/internal/constants"
)

// Default values shared by DefaultConfig and setDefaults.
const (
	defaultAddr            = "127.0.0.1:8420"
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultMaxTokens       = 2048
)

// DefaultConfig returns a new Config with sensible default values.
// Path fields are left empty and resolved against the home directory at use time.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            defaultAddr,
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
			AllowedOrigins:  []string{},
		},
		AI: AIConfig{
			Provider:      ProviderNone,
			APIKeyEnvVars: defaultAPIKeyEnvVars(),
			MaxTokens:     defaultMaxTokens,
			Timeout:       constants.DefaultAITimeout,
			MaxRetries:    constants.DefaultMaxRetries,
		},
		Store: StoreConfig{
			Driver: StoreFile,
		},
		Execution: ExecutionConfig{
			MinStepDelay: constants.DefaultMinStepDelay,
			MaxStepDelay: constants.DefaultMaxStepDelay,
		},
		Events: EventsConfig{
			BufferSize: constants.DefaultEventBuffer,
		},
	}
}

func defaultAPIKeyEnvVars() map[string]string {
	return map[string]string{
		ProviderAnthropic: "ANTHROPIC_API_KEY",
		ProviderOpenAI:    "OPENAI_API_KEY",
		ProviderGemini:    "GEMINI_API_KEY",
	}
}
