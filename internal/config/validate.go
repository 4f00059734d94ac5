package config

import (
	"slices"

	"github.com/mrz1836/gamesmith/internal/errors"
)

// Limits enforced by Validate.
const (
	maxRetriesLimit = 10
	maxTokensLimit  = 64000
)

// Validate checks the configuration for invalid or inconsistent values.
// It returns an error describing the first validation failure found.
//
// Validation rules:
//   - server.addr must not be empty and timeouts must be positive
//   - ai.provider must be a known provider, ai.timeout positive,
//     ai.max_tokens positive and ai.max_retries between 0 and 10
//   - store.driver must be memory, file or sqlite
//   - execution delays must be non-negative with min <= max
//   - events.buffer_size must be positive
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.ErrConfigNil
	}

	if err := validateServerConfig(&cfg.Server); err != nil {
		return err
	}
	if err := validateAIConfig(&cfg.AI); err != nil {
		return err
	}
	if err := validateStoreConfig(&cfg.Store); err != nil {
		return err
	}
	if err := validateExecutionConfig(&cfg.Execution); err != nil {
		return err
	}
	if cfg.Events.BufferSize <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalid,
			"events.buffer_size must be positive, got %d", cfg.Events.BufferSize)
	}
	return nil
}

func validateServerConfig(cfg *ServerConfig) error {
	if cfg.Addr == "" {
		return errors.Wrap(errors.ErrConfigInvalid, "server.addr must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.ShutdownTimeout <= 0 {
		return errors.Wrap(errors.ErrConfigInvalid, "server timeouts must be positive")
	}
	return nil
}

func validateAIConfig(cfg *AIConfig) error {
	known := []string{ProviderNone, ProviderAnthropic, ProviderOpenAI, ProviderGemini}
	if !slices.Contains(known, cfg.Provider) {
		return errors.Wrapf(errors.ErrConfigInvalid,
			"ai.provider must be one of %v, got %q", known, cfg.Provider)
	}
	if cfg.Timeout <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalid,
			"ai.timeout must be positive, got %s", cfg.Timeout)
	}
	if cfg.MaxTokens < 1 || cfg.MaxTokens > maxTokensLimit {
		return errors.Wrapf(errors.ErrConfigInvalid,
			"ai.max_tokens must be between 1 and %d, got %d", maxTokensLimit, cfg.MaxTokens)
	}
	if cfg.MaxRetries < 0 || cfg.MaxRetries > maxRetriesLimit {
		return errors.Wrapf(errors.ErrConfigInvalid,
			"ai.max_retries must be between 0 and %d, got %d", maxRetriesLimit, cfg.MaxRetries)
	}
	return nil
}

func validateStoreConfig(cfg *StoreConfig) error {
	switch cfg.Driver {
	case StoreMemory, StoreFile, StoreSQLite:
		return nil
	default:
		return errors.Wrapf(errors.ErrUnknownStoreDriver, "store.driver %q", cfg.Driver)
	}
}

func validateExecutionConfig(cfg *ExecutionConfig) error {
	if cfg.MinStepDelay < 0 || cfg.MaxStepDelay < 0 {
		return errors.Wrap(errors.ErrConfigInvalid, "execution step delays cannot be negative")
	}
	if cfg.MinStepDelay > cfg.MaxStepDelay {
		return errors.Wrapf(errors.ErrConfigInvalid,
			"execution.min_step_delay %s exceeds execution.max_step_delay %s",
			cfg.MinStepDelay, cfg.MaxStepDelay)
	}
	return nil
}
