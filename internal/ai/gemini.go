package ai

import (
	"context"

	"google.golang.org/genai"

	"github.com/mrz1836/gamesmith/internal/config"
	gserrors "github.com/mrz1836/gamesmith/internal/errors"
)

// defaultGeminiModel is used when ai.model is empty.
const defaultGeminiModel = "gemini-2.5-flash"

// NewGemini creates a generator backed by the Gemini API.
// The client is built eagerly so a bad configuration fails at startup.
func NewGemini(ctx context.Context, cfg backendConfig, opts ...Option) (*Generator, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, gserrors.Wrap(err, "failed to create gemini client")
	}
	model := cfg.modelOr(defaultGeminiModel)
	maxTokens := int32(cfg.maxTokens()) //nolint:gosec // bounded by config validation

	call := func(ctx context.Context, prompt string) (string, error) {
		resp, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
			MaxOutputTokens:   maxTokens,
		})
		if err != nil {
			return "", err
		}
		return resp.Text(), nil
	}

	return newGenerator(config.ProviderGemini, model, call, opts...), nil
}
