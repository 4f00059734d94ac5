// Package ai provides text generation backends for the planning stage.
//
// A TextGenerator is either available (configured with a provider and key)
// or unavailable, in which case callers fall back to deterministic behavior.
// Backends wrap the Anthropic, OpenAI and Gemini SDKs behind one retrying
// Generator.
//
// IMPORTANT: This package may import internal/constants, internal/errors,
// internal/config and internal/clock. It MUST NOT import internal/agent,
// internal/planning or internal/cli.
package ai

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrz1836/gamesmith/internal/clock"
	"github.com/mrz1836/gamesmith/internal/config"
	"github.com/mrz1836/gamesmith/internal/constants"
	"github.com/mrz1836/gamesmith/internal/ctxutil"
	gserrors "github.com/mrz1836/gamesmith/internal/errors"
)

// TextGenerator produces free text from a prompt.
type TextGenerator interface {
	// IsAvailable reports whether GenerateText can be called.
	IsAvailable() bool

	// GenerateText sends prompt to the backend and returns the reply text.
	// Returns ErrGeneratorUnavailable when not available and
	// ErrGeneratorCallFailed when the backend call fails.
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// callFunc performs one backend call without retries.
type callFunc func(ctx context.Context, prompt string) (string, error)

// Generator is the retrying TextGenerator shared by all providers.
type Generator struct {
	provider   string
	model      string
	call       callFunc
	timeout    time.Duration
	maxRetries int
	clock      clock.Clock
	logger     zerolog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock sets the clock used for retry backoff.
func WithClock(c clock.Clock) Option {
	return func(g *Generator) {
		g.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(g *Generator) {
		g.logger = l
	}
}

// WithRetries sets the retry count after the first failure.
func WithRetries(n int) Option {
	return func(g *Generator) {
		if n >= 0 {
			g.maxRetries = n
		}
	}
}

// WithTimeout bounds each GenerateText call including retries.
func WithTimeout(d time.Duration) Option {
	return func(g *Generator) {
		if d > 0 {
			g.timeout = d
		}
	}
}

func newGenerator(provider, model string, call callFunc, opts ...Option) *Generator {
	g := &Generator{
		provider:   provider,
		model:      model,
		call:       call,
		timeout:    constants.DefaultAITimeout,
		maxRetries: constants.DefaultMaxRetries,
		clock:      clock.RealClock{},
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With().Str("component", "ai").Str("provider", provider).Logger()
	return g
}

// Unavailable returns a generator that is never available.
func Unavailable() *Generator {
	return newGenerator(config.ProviderNone, "", nil)
}

// Func wraps a plain function as an available generator. Used for embedding
// custom backends and in tests.
func Func(fn func(ctx context.Context, prompt string) (string, error), opts ...Option) *Generator {
	return newGenerator("func", "", fn, opts...)
}

// Provider returns the backend name.
func (g *Generator) Provider() string {
	return g.provider
}

// Model returns the model id sent to the backend.
func (g *Generator) Model() string {
	return g.model
}

// IsAvailable reports whether a backend is configured.
func (g *Generator) IsAvailable() bool {
	return g != nil && g.call != nil
}

// GenerateText calls the backend with timeout and retry handling.
func (g *Generator) GenerateText(ctx context.Context, prompt string) (string, error) {
	if !g.IsAvailable() {
		return "", gserrors.ErrGeneratorUnavailable
	}
	if err := ctxutil.Canceled(ctx); err != nil {
		return "", err
	}

	runCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	text, err := g.runWithRetry(runCtx, prompt)
	if err != nil {
		return "", err
	}
	return text, nil
}

// New builds the generator selected by cfg. A provider without an API key in
// its environment variable yields an unavailable generator and a warning.
func New(cfg *config.AIConfig, logger zerolog.Logger, opts ...Option) (*Generator, error) {
	if cfg == nil {
		return nil, gserrors.ErrConfigNil
	}
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" || provider == config.ProviderNone {
		return Unavailable(), nil
	}

	envVar := cfg.GetAPIKeyEnvVar(provider)
	apiKey := strings.TrimSpace(os.Getenv(envVar))
	if apiKey == "" {
		logger.Warn().
			Str("provider", provider).
			Str("env_var", envVar).
			Msg("API key not set, text generator unavailable")
		return Unavailable(), nil
	}

	opts = append([]Option{
		WithLogger(logger),
		WithTimeout(cfg.Timeout),
		WithRetries(cfg.MaxRetries),
	}, opts...)

	backend := backendConfig{
		APIKey:    apiKey,
		Model:     cfg.Model,
		BaseURL:   cfg.BaseURL,
		MaxTokens: cfg.MaxTokens,
	}

	switch provider {
	case config.ProviderAnthropic:
		return NewAnthropic(backend, opts...), nil
	case config.ProviderOpenAI:
		return NewOpenAI(backend, opts...), nil
	case config.ProviderGemini:
		return NewGemini(context.Background(), backend, opts...)
	default:
		return nil, gserrors.Wrapf(gserrors.ErrConfigInvalid, "unknown ai provider %q", cfg.Provider)
	}
}

// backendConfig is the per-provider connection setup.
type backendConfig struct {
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int
}

func (c backendConfig) maxTokens() int {
	if c.MaxTokens <= 0 {
		return 2048
	}
	return c.MaxTokens
}

func (c backendConfig) modelOr(fallback string) string {
	if c.Model != "" {
		return c.Model
	}
	return fallback
}

// emptyResponseError reports a reply with no text content.
func emptyResponseError(provider string) error {
	return fmt.Errorf("%w: %s returned no text", gserrors.ErrGeneratorCallFailed, provider)
}

var _ TextGenerator = (*Generator)(nil)
