package ai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/iai-solution/invoice-analyzer/internal/models"
)

// Answerer composes natural-language answers grounded in retrieved analyses
type Answerer struct {
	client ChatCompleter
	config Config
	logger *zap.Logger
}

// NewAnswerer creates a new chat answerer
func NewAnswerer(client ChatCompleter, config Config, logger *zap.Logger) *Answerer {
	return &Answerer{
		client: client,
		config: config,
		logger: logger,
	}
}

// Answer asks the language model to answer a query using the retrieved
// records as context
func (a *Answerer) Answer(ctx context.Context, query string, records []models.InvoiceRecord) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.config.Model,
		Temperature: a.config.Temperature,
		MaxTokens:   a.config.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: chatSystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildChatPrompt(query, records),
			},
		},
	})
	if err != nil {
		a.logger.Error("Chat completion failed", zap.Error(err))
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from language model")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
