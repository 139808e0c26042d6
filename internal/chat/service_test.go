package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iai-solution/invoice-analyzer/internal/models"
	"github.com/iai-solution/invoice-analyzer/internal/repository"
)

type fakeEmbedder struct {
	embedding []float32
	err       error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.embedding, f.err
}

type fakeSearcher struct {
	results []repository.SearchResult
	err     error

	gotTopK     int
	gotMinScore float64
}

func (f *fakeSearcher) Search(ctx context.Context, queryEmbedding []float32, topK int, minScore float64) ([]repository.SearchResult, error) {
	f.gotTopK = topK
	f.gotMinScore = minScore
	return f.results, f.err
}

type fakeResponder struct {
	answer     string
	err        error
	gotQuery   string
	gotRecords []models.InvoiceRecord
}

func (f *fakeResponder) Answer(ctx context.Context, query string, records []models.InvoiceRecord) (string, error) {
	f.gotQuery = query
	f.gotRecords = records
	return f.answer, f.err
}

func match(invoiceID, employee string, status models.ReimbursementStatus, score float64) repository.SearchResult {
	return repository.SearchResult{
		Record: models.InvoiceRecord{
			InvoiceID:    invoiceID,
			EmployeeName: employee,
			Content:      "invoice text",
			Analysis: models.AnalysisResult{
				InvoiceID: invoiceID,
				Status:    status,
			},
			CreatedAt: time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC),
		},
		Score: score,
	}
}

func newTestService(embedder *fakeEmbedder, searcher *fakeSearcher, responder *fakeResponder) *Service {
	return NewService(Config{TopK: 5, SimilarityThreshold: 0.7}, embedder, searcher, responder, zap.NewNop())
}

func TestQueryReturnsGroundedAnswer(t *testing.T) {
	searcher := &fakeSearcher{results: []repository.SearchResult{
		match("inv_001.pdf", "John Doe", models.StatusDeclined, 0.92),
		match("inv_002.pdf", "Jane Roe", models.StatusFullyReimbursed, 0.81),
	}}
	responder := &fakeResponder{answer: "inv_001.pdf was declined because it contained alcohol."}

	s := newTestService(&fakeEmbedder{embedding: []float32{0.1, 0.2}}, searcher, responder)

	resp, err := s.Query(context.Background(), "Why was inv_001.pdf declined?")
	require.NoError(t, err)

	assert.Equal(t, responder.answer, resp.Response)
	require.Len(t, resp.Sources, 2)
	assert.Equal(t, "inv_001.pdf", resp.Sources[0].InvoiceID)
	assert.Equal(t, "John Doe", resp.Sources[0].Employee)
	assert.Equal(t, models.StatusDeclined, resp.Sources[0].Status)
	assert.InDelta(t, 0.92, resp.Sources[0].SimilarityScore, 1e-9)

	// confidence tracks the best retrieval score
	assert.InDelta(t, 0.92, resp.ConfidenceScore, 1e-9)

	assert.Equal(t, 5, searcher.gotTopK)
	assert.InDelta(t, 0.7, searcher.gotMinScore, 1e-9)
	require.Len(t, responder.gotRecords, 2)
	assert.Equal(t, "inv_001.pdf", responder.gotRecords[0].InvoiceID)
}

func TestQueryNoMatchesReturnsFallback(t *testing.T) {
	responder := &fakeResponder{answer: "should not be called"}
	s := newTestService(&fakeEmbedder{embedding: []float32{0.1}}, &fakeSearcher{}, responder)

	resp, err := s.Query(context.Background(), "anything stored?")
	require.NoError(t, err)

	assert.Contains(t, resp.Response, "couldn't find any relevant invoice analyses")
	assert.Empty(t, resp.Sources)
	assert.Zero(t, resp.ConfidenceScore)
	assert.Empty(t, responder.gotQuery)
}

func TestQueryRejectsEmptyQuery(t *testing.T) {
	s := newTestService(&fakeEmbedder{}, &fakeSearcher{}, &fakeResponder{})

	_, err := s.Query(context.Background(), "   ")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestQueryEmbeddingFailure(t *testing.T) {
	s := newTestService(&fakeEmbedder{err: errors.New("service down")}, &fakeSearcher{}, &fakeResponder{})

	_, err := s.Query(context.Background(), "why declined?")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embed")
}

func TestQuerySearchFailure(t *testing.T) {
	s := newTestService(&fakeEmbedder{embedding: []float32{0.1}},
		&fakeSearcher{err: errors.New("db closed")}, &fakeResponder{})

	_, err := s.Query(context.Background(), "why declined?")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search")
}

func TestQueryResponderFailure(t *testing.T) {
	searcher := &fakeSearcher{results: []repository.SearchResult{
		match("inv_001.pdf", "John Doe", models.StatusDeclined, 0.9),
	}}
	s := newTestService(&fakeEmbedder{embedding: []float32{0.1}}, searcher,
		&fakeResponder{err: errors.New("model unavailable")})

	_, err := s.Query(context.Background(), "why declined?")
	assert.Error(t, err)
}

func TestExampleQueries(t *testing.T) {
	examples := ExampleQueries()
	assert.NotEmpty(t, examples)
	for _, q := range examples {
		assert.NotEmpty(t, q)
	}
}
