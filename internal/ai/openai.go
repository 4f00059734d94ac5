package ai

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"

	"github.com/mrz1836/gamesmith/internal/config"
)

// defaultOpenAIModel is used when ai.model is empty.
const defaultOpenAIModel = "gpt-4.1-mini"

// NewOpenAI creates a generator backed by the OpenAI Responses API.
func NewOpenAI(cfg backendConfig, opts ...Option) *Generator {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(reqOpts...)
	model := cfg.modelOr(defaultOpenAIModel)
	maxTokens := cfg.maxTokens()

	call := func(ctx context.Context, prompt string) (string, error) {
		result, err := client.Responses.New(ctx, responses.ResponseNewParams{
			Model: shared.ResponsesModel(model),
			Input: responses.ResponseNewParamsInputUnion{
				OfInputItemList: responses.ResponseInputParam{
					responses.ResponseInputItemParamOfMessage(systemPrompt, responses.EasyInputMessageRoleSystem),
					responses.ResponseInputItemParamOfMessage(prompt, responses.EasyInputMessageRoleUser),
				},
			},
			MaxOutputTokens: openai.Int(int64(maxTokens)),
		})
		if err != nil {
			var apiErr *openai.Error
			if errors.As(err, &apiErr) && isPermanentStatus(apiErr.StatusCode) {
				return "", permanent(err)
			}
			return "", err
		}
		return result.OutputText(), nil
	}

	return newGenerator(config.ProviderOpenAI, model, call, opts...)
}
