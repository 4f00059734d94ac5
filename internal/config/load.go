package config

import (
	"context"
	stderrors "errors"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/mrz1836/gamesmith/internal/errors"
)

// mergeStringMaps merges src map into dst map, creating dst if nil.
func mergeStringMaps(dst, src map[string]string) map[string]string {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]string, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// newViperInstance creates a new Viper instance with the GAMESMITH_ env prefix,
// key replacer and defaults.
func newViperInstance() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("GAMESMITH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// isConfigNotFoundError returns true if the error is a viper config file not found error.
func isConfigNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	var configNotFoundErr viper.ConfigFileNotFoundError
	return stderrors.As(err, &configNotFoundErr)
}

// unmarshalAndValidate unmarshals viper config into Config struct and validates it.
func unmarshalAndValidate(ctx context.Context, v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, viperDecoderOption()); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	logger := zerolog.Ctx(ctx).With().Str("component", "config").Logger()
	logger.Debug().
		Str("ai.provider", cfg.AI.Provider).
		Str("store.driver", cfg.Store.Driver).
		Str("server.addr", cfg.Server.Addr).
		Msg("configuration loaded and unmarshaled")

	if err := Validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return &cfg, nil
}

// Load reads configuration from all available sources with proper precedence.
// Configuration is loaded in the following order (highest precedence first):
//  1. Environment variables (GAMESMITH_* prefix)
//  2. Project config (.gamesmith/config.yaml)
//  3. Global config (~/.gamesmith/config.yaml)
//  4. Built-in defaults
//
// Missing config files are not an error.
func Load(ctx context.Context) (*Config, error) {
	v := newViperInstance()

	if err := loadGlobalConfig(v); err != nil {
		return nil, err
	}
	if err := loadProjectConfig(v, ProjectConfigPath()); err != nil {
		return nil, err
	}

	return unmarshalAndValidate(ctx, v)
}

// loadGlobalConfig attempts to load ~/.gamesmith/config.yaml.
// Returns nil if the file doesn't exist or home directory cannot be determined.
func loadGlobalConfig(v *viper.Viper) error {
	globalConfigPath, err := GlobalConfigPath()
	if err != nil || !fileExists(globalConfigPath) {
		return nil
	}

	v.SetConfigFile(globalConfigPath)
	if err := v.ReadInConfig(); err != nil && !isConfigNotFoundError(err) {
		return errors.Wrap(err, "failed to read global config file")
	}
	return nil
}

// loadProjectConfig merges the project config file over what is already loaded.
// Returns nil if the file doesn't exist.
func loadProjectConfig(v *viper.Viper, path string) error {
	if !fileExists(path) {
		return nil
	}

	v.SetConfigFile(path)
	if err := v.MergeInConfig(); err != nil && !isConfigNotFoundError(err) {
		return errors.Wrap(err, "failed to read project config file")
	}
	return nil
}

// fileExists returns true if the file at path exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LoadWithOverrides loads configuration and applies CLI flag overrides.
// When configPath is set it replaces the project config file.
//
// Only non-zero values in overrides are applied. Zero values are ignored
// to allow partial overrides.
func LoadWithOverrides(ctx context.Context, configPath string, overrides *Config) (*Config, error) {
	var (
		cfg *Config
		err error
	)
	if configPath != "" {
		if !fileExists(configPath) {
			return nil, errors.Wrapf(errors.ErrConfigNotFound, "config file %s", configPath)
		}
		globalPath, _ := GlobalConfigPath()
		cfg, err = LoadFromPaths(ctx, configPath, globalPath)
	} else {
		cfg, err = Load(ctx)
	}
	if err != nil {
		return nil, err
	}

	if overrides != nil {
		applyOverrides(cfg, overrides)
	}

	if err := Validate(cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration after overrides")
	}
	return cfg, nil
}

// LoadFromPaths loads configuration from specific file paths.
// projectConfigPath has higher priority than globalConfigPath.
// Either path can be empty to skip that level.
func LoadFromPaths(ctx context.Context, projectConfigPath, globalConfigPath string) (*Config, error) {
	v := newViperInstance()

	if globalConfigPath != "" && fileExists(globalConfigPath) {
		v.SetConfigFile(globalConfigPath)
		if err := v.ReadInConfig(); err != nil && !isConfigNotFoundError(err) {
			return nil, errors.Wrapf(err, "failed to read global config: %s", globalConfigPath)
		}
	}

	if projectConfigPath != "" && fileExists(projectConfigPath) {
		v.SetConfigFile(projectConfigPath)
		if err := v.MergeInConfig(); err != nil && !isConfigNotFoundError(err) {
			return nil, errors.Wrapf(err, "failed to read project config: %s", projectConfigPath)
		}
	}

	return unmarshalAndValidate(ctx, v)
}

// setDefaults configures all default values on the Viper instance.
// These defaults match the values from DefaultConfig().
// IMPORTANT: Keys must match the YAML tag names exactly for proper mapping.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.addr", defaultAddr)
	v.SetDefault("server.read_timeout", defaultReadTimeout.String())
	v.SetDefault("server.write_timeout", defaultWriteTimeout.String())
	v.SetDefault("server.shutdown_timeout", defaultShutdownTimeout.String())
	v.SetDefault("server.allowed_origins", []string{})

	// Artifacts defaults
	v.SetDefault("artifacts.root", "")

	// AI defaults
	v.SetDefault("ai.provider", ProviderNone)
	v.SetDefault("ai.model", "")
	v.SetDefault("ai.api_key_env_vars", defaultAPIKeyEnvVars())
	v.SetDefault("ai.base_url", "")
	v.SetDefault("ai.max_tokens", defaultMaxTokens)
	v.SetDefault("ai.timeout", DefaultConfig().AI.Timeout.String())
	v.SetDefault("ai.max_retries", DefaultConfig().AI.MaxRetries)

	// Store defaults
	v.SetDefault("store.driver", StoreFile)
	v.SetDefault("store.path", "")

	// Generator defaults
	v.SetDefault("generator.templates_dir", "")
	v.SetDefault("generator.strict_templates", false)
	v.SetDefault("generator.preview_image", false)

	// Execution defaults
	v.SetDefault("execution.min_step_delay", DefaultConfig().Execution.MinStepDelay.String())
	v.SetDefault("execution.max_step_delay", DefaultConfig().Execution.MaxStepDelay.String())

	// Events defaults
	v.SetDefault("events.buffer_size", DefaultConfig().Events.BufferSize)
}

// applyOverrides merges non-zero override values into the config.
//
// IMPORTANT: Boolean fields (StrictTemplates, PreviewImage) cannot be
// overridden to false here. CLI implementations handle them with
// cmd.Flags().Changed.
func applyOverrides(cfg, overrides *Config) {
	if overrides.Server.Addr != "" {
		cfg.Server.Addr = overrides.Server.Addr
	}
	if len(overrides.Server.AllowedOrigins) > 0 {
		cfg.Server.AllowedOrigins = overrides.Server.AllowedOrigins
	}
	if overrides.Artifacts.Root != "" {
		cfg.Artifacts.Root = overrides.Artifacts.Root
	}

	applyAIOverrides(cfg, overrides)

	if overrides.Store.Driver != "" {
		cfg.Store.Driver = overrides.Store.Driver
	}
	if overrides.Store.Path != "" {
		cfg.Store.Path = overrides.Store.Path
	}
	if overrides.Generator.TemplatesDir != "" {
		cfg.Generator.TemplatesDir = overrides.Generator.TemplatesDir
	}
	if overrides.Generator.StrictTemplates {
		cfg.Generator.StrictTemplates = true
	}
	if overrides.Generator.PreviewImage {
		cfg.Generator.PreviewImage = true
	}
}

// applyAIOverrides applies AI-related overrides to the config.
func applyAIOverrides(cfg, overrides *Config) {
	if overrides.AI.Provider != "" {
		cfg.AI.Provider = overrides.AI.Provider
	}
	if overrides.AI.Model != "" {
		cfg.AI.Model = overrides.AI.Model
	}
	cfg.AI.APIKeyEnvVars = mergeStringMaps(cfg.AI.APIKeyEnvVars, overrides.AI.APIKeyEnvVars)
	if overrides.AI.BaseURL != "" {
		cfg.AI.BaseURL = overrides.AI.BaseURL
	}
	if overrides.AI.Timeout != 0 {
		cfg.AI.Timeout = overrides.AI.Timeout
	}
	if overrides.AI.MaxTokens != 0 {
		cfg.AI.MaxTokens = overrides.AI.MaxTokens
	}
}

// viperDecoderOption returns the decoder options for Viper unmarshal.
// Durations decode from strings and comma-separated env values decode into slices.
func viperDecoderOption() viper.DecoderConfigOption {
	return viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	)
}
