package ai

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/mrz1836/gamesmith/internal/config"
)

// defaultAnthropicModel is used when ai.model is empty.
const defaultAnthropicModel = "claude-sonnet-4-5"

// systemPrompt frames every request as game design work.
const systemPrompt = "You are an assistant that designs small educational browser games. " +
	"Answer concisely. When asked for JSON, reply with a single JSON object and nothing else."

// NewAnthropic creates a generator backed by the Anthropic Messages API.
func NewAnthropic(cfg backendConfig, opts ...Option) *Generator {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	client := anthropic.NewClient(reqOpts...)
	model := cfg.modelOr(defaultAnthropicModel)
	maxTokens := cfg.maxTokens()

	call := func(ctx context.Context, prompt string) (string, error) {
		msg, err := client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(model),
			MaxTokens: int64(maxTokens),
			System: []anthropic.TextBlockParam{
				{Text: systemPrompt},
			},
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		if err != nil {
			return "", classifyAnthropicError(err)
		}

		var sb strings.Builder
		for _, block := range msg.Content {
			if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
				sb.WriteString(tb.Text)
			}
		}
		return sb.String(), nil
	}

	return newGenerator(config.ProviderAnthropic, model, call, opts...)
}

// classifyAnthropicError marks client-side API errors as permanent.
func classifyAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) && isPermanentStatus(apiErr.StatusCode) {
		return permanent(err)
	}
	return err
}

// isPermanentStatus reports HTTP statuses that retrying cannot fix.
func isPermanentStatus(code int) bool {
	switch code {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return true
	default:
		return false
	}
}
