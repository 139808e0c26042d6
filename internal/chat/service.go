// Package chat answers natural-language questions about previously analyzed
// invoices using retrieval-augmented generation over the result store.
package chat

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/iai-solution/invoice-analyzer/internal/models"
	"github.com/iai-solution/invoice-analyzer/internal/repository"
)

const noContextResponse = "I couldn't find any relevant invoice analyses to answer your query. " +
	"Please make sure invoices have been analyzed first, or try rephrasing your question."

// Embedder generates the query vector for retrieval
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher retrieves the stored records most similar to a query vector
type Searcher interface {
	Search(ctx context.Context, queryEmbedding []float32, topK int, minScore float64) ([]repository.SearchResult, error)
}

// Responder turns a query plus retrieved records into a grounded answer
type Responder interface {
	Answer(ctx context.Context, query string, records []models.InvoiceRecord) (string, error)
}

// Config holds retrieval tuning for the chat service
type Config struct {
	TopK                int
	SimilarityThreshold float64
}

// Service handles chat queries over stored invoice analyses
type Service struct {
	config    Config
	embedder  Embedder
	searcher  Searcher
	responder Responder
	logger    *zap.Logger
}

// NewService creates a new chat service
func NewService(config Config, embedder Embedder, searcher Searcher, responder Responder, logger *zap.Logger) *Service {
	if config.TopK <= 0 {
		config.TopK = 5
	}
	return &Service{
		config:    config,
		embedder:  embedder,
		searcher:  searcher,
		responder: responder,
		logger:    logger,
	}
}

// Query embeds the question, retrieves similar analyses and asks the language
// model to answer grounded in them. An empty store (or no match above the
// similarity threshold) yields a fixed fallback answer with no sources.
func (s *Service) Query(ctx context.Context, query string) (*models.ChatQueryResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query must not be empty", models.ErrValidation)
	}

	queryEmbedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	matches, err := s.searcher.Search(ctx, queryEmbedding, s.config.TopK, s.config.SimilarityThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to search analyses: %w", err)
	}

	if len(matches) == 0 {
		s.logger.Info("No relevant analyses for chat query")
		return &models.ChatQueryResponse{
			Response:        noContextResponse,
			Sources:         []models.SourceDocument{},
			ConfidenceScore: 0,
		}, nil
	}

	records := make([]models.InvoiceRecord, len(matches))
	sources := make([]models.SourceDocument, len(matches))
	for i, m := range matches {
		records[i] = m.Record
		sources[i] = models.SourceDocument{
			InvoiceID:       m.Record.InvoiceID,
			Employee:        m.Record.EmployeeName,
			Date:            m.Record.CreatedAt,
			Status:          m.Record.Analysis.Status,
			SimilarityScore: m.Score,
		}
	}

	answer, err := s.responder.Answer(ctx, query, records)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Chat query answered",
		zap.Int("sources", len(sources)),
		zap.Float64("top_score", matches[0].Score))

	// Matches come back ordered by similarity, so the first score is the
	// best available grounding.
	return &models.ChatQueryResponse{
		Response:        answer,
		Sources:         sources,
		ConfidenceScore: matches[0].Score,
	}, nil
}

// ExampleQueries returns sample questions for the chat interface
func ExampleQueries() []string {
	return []string{
		"Why was invoice_123.pdf declined?",
		"Show me all partially reimbursed invoices",
		"What invoices did John Doe submit?",
		"Which invoices exceeded the meal allowance?",
		"Summarize the reimbursement status of the latest batch",
	}
}
