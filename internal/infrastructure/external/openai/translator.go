// Package openai translates record text through a chat completion model.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/garyjia/dmt-records/internal/application/port"
	"github.com/garyjia/dmt-records/internal/domain/entity"
)

// DefaultModel is used when no model is configured
const DefaultModel = openai.GPT4oMini

// Translator implements port.TranslationProvider using OpenAI chat completions
type Translator struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// Config holds translator settings. BaseURL targets any OpenAI-compatible endpoint.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

// NewTranslator creates a new OpenAI translator
func NewTranslator(cfg Config, logger *zap.Logger) *Translator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Translator{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
		logger: logger,
	}
}

// Translate renders text from source into target
func (t *Translator) Translate(ctx context.Context, text string, source, target entity.Language) (string, error) {
	if source == target {
		return text, nil
	}

	resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       t.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildTranslationPrompt(text, source, target),
			},
		},
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			t.logger.Debug("OpenAI API error",
				zap.Int("status", apiErr.HTTPStatusCode),
				zap.String("code", fmt.Sprint(apiErr.Code)))
		}
		return "", fmt.Errorf("OpenAI API call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Name identifies the provider
func (t *Translator) Name() string {
	return "openai"
}

// Ping lists models to confirm the key and endpoint work
func (t *Translator) Ping(ctx context.Context) error {
	if _, err := t.client.ListModels(ctx); err != nil {
		return fmt.Errorf("OpenAI unreachable: %w", err)
	}
	return nil
}

// Verify interface compliance
var _ port.TranslationProvider = (*Translator)(nil)
