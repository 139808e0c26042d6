// Package ai wraps language model calls: classifying invoices against policy
// wording and composing grounded answers for the chat interface.
package ai

import (
	"context"
	"regexp"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// ChatCompleter is the slice of the OpenAI client the package needs. The
// concrete client also serves Groq and other compatible endpoints via the
// configured base URL.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Config holds language model call parameters
type Config struct {
	Model       string
	Temperature float32
	MaxTokens   int
}

// NewClient builds an OpenAI-compatible client for the given endpoint
func NewClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}

var jsonBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// extractJSON pulls a JSON object out of a model response that wrapped it in
// markdown fences or surrounded it with prose
func extractJSON(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "{") {
		return content
	}
	if m := jsonBlockRe.FindStringSubmatch(content); len(m) == 2 {
		return m[1]
	}
	// Last resort: widest brace-delimited span
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		return content[start : end+1]
	}
	return ""
}
