// Package embedding generates fixed-dimension vectors for semantic indexing
// through an Ollama-compatible embeddings API.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/iai-solution/invoice-analyzer/internal/models"
)

// Generator produces embeddings for text
type Generator interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// Config holds embedding client configuration
type Config struct {
	BaseURL   string
	Model     string
	Dimension int
	Timeout   time.Duration
}

// Client talks to an Ollama-compatible embeddings endpoint
type Client struct {
	baseURL    string
	model      string
	dimension  int
	httpClient *http.Client
	logger     *zap.Logger
}

type embeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

// NewClient creates a new embedding client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		model:      cfg.Model,
		dimension:  cfg.Dimension,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Dimension returns the configured vector dimension
func (c *Client) Dimension() int {
	return c.dimension
}

// Embed generates an embedding for the given text. The model's output must
// match the configured dimension; a mismatch means the wrong model is loaded.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embeddingRequest{
		Model:  c.model,
		Prompt: text,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("embedding API returned status %d: %s", resp.StatusCode, payload)
	}

	var result embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode embedding response: %w", err)
	}

	if len(result.Embedding) != c.dimension {
		return nil, fmt.Errorf("embedding dimension mismatch: got %d, want %d",
			len(result.Embedding), c.dimension)
	}

	return result.Embedding, nil
}

// Probe verifies the embedding model is reachable and produces vectors of the
// configured dimension. A failed probe is a startup-fatal condition.
func (c *Client) Probe(ctx context.Context) error {
	if _, err := c.Embed(ctx, "startup probe"); err != nil {
		return fmt.Errorf("%w: %v", models.ErrEmbeddingUnavailable, err)
	}
	c.logger.Info("Embedding model available",
		zap.String("model", c.model),
		zap.Int("dimension", c.dimension))
	return nil
}

// InvoiceText combines invoice content with its analysis so stored embeddings
// also match queries about verdicts and reasons
func InvoiceText(content string, analysis *models.AnalysisResult) string {
	return fmt.Sprintf(
		"Invoice Content: %s\nAnalysis Status: %s\nReason: %s\nPolicy Reference: %s",
		content, analysis.Status, analysis.Reason, analysis.PolicyReference)
}
