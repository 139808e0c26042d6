package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/iai-solution/invoice-analyzer/internal/models"
)

const retryBackoff = 500 * time.Millisecond

// verdict is the strict schema the model response must satisfy
type verdict struct {
	Status           string   `json:"status"`
	Reason           string   `json:"reason"`
	PolicyReference  string   `json:"policy_reference"`
	Category         string   `json:"category"`
	PolicyRule       string   `json:"policy_rule"`
	Amount           *float64 `json:"amount"`
	ReimbursedAmount *float64 `json:"reimbursed_amount"`
}

// Classifier judges invoices against policy wording via a language model
type Classifier struct {
	client ChatCompleter
	config Config
	logger *zap.Logger
}

// NewClassifier creates a new invoice classifier
func NewClassifier(client ChatCompleter, config Config, logger *zap.Logger) *Classifier {
	return &Classifier{
		client: client,
		config: config,
		logger: logger,
	}
}

// Classify asks the language model for a verdict on one invoice. The response
// is validated against the verdict schema: the status must be one of the
// three known values and reimbursed_amount is clamped at amount. A transport
// error or unusable response is retried once; the second failure is
// ErrClassificationFailed.
func (c *Classifier) Classify(ctx context.Context, invoiceText string, policy *models.PolicyDocument, invoiceID string) (*models.AnalysisResult, error) {
	prompt := buildClassificationPrompt(policy.Text, invoiceText, invoiceID)

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			c.logger.Warn("Retrying classification",
				zap.String("invoice_id", invoiceID),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryBackoff):
			}
		}

		result, err := c.classifyOnce(ctx, prompt, invoiceID)
		if err == nil {
			return result, nil
		}
		lastErr = err
	}

	return nil, fmt.Errorf("%w: %s: %v", models.ErrClassificationFailed, invoiceID, lastErr)
}

func (c *Classifier) classifyOnce(ctx context.Context, prompt, invoiceID string) (*models.AnalysisResult, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.config.Model,
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: classificationSystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("language model call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from language model")
	}

	content := resp.Choices[0].Message.Content

	var v verdict
	if err := json.Unmarshal([]byte(content), &v); err != nil {
		// Fallback: models often wrap JSON in markdown fences
		jsonStr := extractJSON(content)
		if jsonStr == "" {
			return nil, fmt.Errorf("no JSON object in response")
		}
		if err := json.Unmarshal([]byte(jsonStr), &v); err != nil {
			c.logger.Debug("Unparseable model response",
				zap.String("invoice_id", invoiceID),
				zap.String("content", content))
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return c.toResult(v, invoiceID)
}

// toResult validates a parsed verdict and shapes it into an AnalysisResult
func (c *Classifier) toResult(v verdict, invoiceID string) (*models.AnalysisResult, error) {
	status := models.ReimbursementStatus(v.Status)
	if !status.Valid() {
		return nil, fmt.Errorf("unknown status %q", v.Status)
	}

	var amount, reimbursed float64
	if v.Amount != nil {
		amount = *v.Amount
	}
	if v.ReimbursedAmount != nil {
		reimbursed = *v.ReimbursedAmount
	}
	if reimbursed > amount {
		c.logger.Warn("Clamping reimbursed amount to invoice amount",
			zap.String("invoice_id", invoiceID),
			zap.Float64("amount", amount),
			zap.Float64("reimbursed_amount", reimbursed))
		reimbursed = amount
	}

	return &models.AnalysisResult{
		InvoiceID:        invoiceID,
		Status:           status,
		Reason:           v.Reason,
		PolicyReference:  v.PolicyReference,
		Category:         v.Category,
		PolicyRule:       v.PolicyRule,
		Amount:           amount,
		ReimbursedAmount: reimbursed,
		CreatedAt:        time.Now().UTC(),
	}, nil
}
