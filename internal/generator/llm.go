package generator

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nearyou-pipeline/internal/config"
	"github.com/nearyou-pipeline/internal/domain"
	apperrors "github.com/nearyou-pipeline/internal/pkg/errors"
)

// LLM produces a message for a prompt. Satisfied by the OpenAI client
// and by test doubles.
type LLM interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// providerModels maps configured providers onto their chat model.
var providerModels = map[string]string{
	"openai": "gpt-4o-mini",
	"groq":   "gemma2-9b-it",
}

const fallbackModel = "gpt-3.5-turbo"

// OpenAIClient talks to any OpenAI-compatible endpoint, selected by
// OPENAI_API_BASE (Groq and local gateways expose the same API).
type OpenAIClient struct {
	client *openai.Client
	model  string
}

func NewOpenAIClient(cfg *config.Config) *OpenAIClient {
	clientCfg := openai.DefaultConfig(cfg.LLM.APIKey)
	if cfg.LLM.BaseURL != "" {
		clientCfg.BaseURL = cfg.LLM.BaseURL
	}

	model, ok := providerModels[cfg.LLM.Provider]
	if !ok {
		model = fallbackModel
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
	}
}

func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0.7,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", apperrors.ErrGenerationFailed.WithReason("empty completion")
	}

	return resp.Choices[0].Message.Content, nil
}

// Description renders the distance line included in the prompt.
func Description(shop *domain.Shop) string {
	return fmt.Sprintf("Negozio a %.0fm di distanza", shop.Distance)
}
