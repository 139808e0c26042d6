package analysis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iai-solution/invoice-analyzer/internal/models"
)

type fakeUnpacker struct {
	files map[string][]byte
	err   error
}

func (f *fakeUnpacker) Unpack(archive []byte) (map[string][]byte, error) {
	return f.files, f.err
}

type fakeExtractor struct {
	texts map[string]string
}

func (f *fakeExtractor) ExtractText(data []byte, filename string) (string, error) {
	text, ok := f.texts[filename]
	if !ok {
		return "", fmt.Errorf("%w: %s", models.ErrUnreadableDocument, filename)
	}
	return text, nil
}

type fakeResolver struct {
	policy *models.PolicyDocument
	err    error
}

func (f *fakeResolver) Resolve(useIntegrated bool, uploaded []byte, filename string) (*models.PolicyDocument, error) {
	return f.policy, f.err
}

type fakeRules struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeRules) Analyze(invoiceText, invoiceID string) models.AnalysisResult {
	f.mu.Lock()
	f.calls = append(f.calls, invoiceID)
	f.mu.Unlock()
	return models.AnalysisResult{
		InvoiceID: invoiceID,
		Status:    models.StatusFullyReimbursed,
		Reason:    "within limits",
		Amount:    100,
	}
}

type fakeClassifier struct {
	mu      sync.Mutex
	calls   []string
	failFor map[string]bool
}

func (f *fakeClassifier) Classify(ctx context.Context, invoiceText string, policy *models.PolicyDocument, invoiceID string) (*models.AnalysisResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, invoiceID)
	f.mu.Unlock()
	if f.failFor[invoiceID] {
		return nil, fmt.Errorf("%w: %s", models.ErrClassificationFailed, invoiceID)
	}
	return &models.AnalysisResult{
		InvoiceID: invoiceID,
		Status:    models.StatusPartiallyReimbursed,
		Reason:    "over limit",
	}, nil
}

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type fakeStore struct {
	mu    sync.Mutex
	saved []*models.InvoiceRecord
	err   error
}

func (f *fakeStore) Save(ctx context.Context, record *models.InvoiceRecord) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, record)
	return record.InvoiceID, nil
}

func testEmbedText(content string, analysis *models.AnalysisResult) string {
	return content + " " + string(analysis.Status)
}

func newTestOrchestrator(
	unpacker *fakeUnpacker,
	extractor *fakeExtractor,
	resolver *fakeResolver,
	rules *fakeRules,
	classifier *fakeClassifier,
	embedder *fakeEmbedder,
	store *fakeStore,
) *Orchestrator {
	return NewOrchestrator(
		Config{
			MaxFileSize:       1 << 20,
			ArchiveExtensions: []string{".zip"},
			InvoiceExtensions: []string{".pdf"},
			Workers:           2,
		},
		unpacker, extractor, resolver, rules, classifier, embedder, store,
		testEmbedText,
		zap.NewNop(),
	)
}

func integratedPolicy() *models.PolicyDocument {
	return &models.PolicyDocument{PolicyTitle: "Integrated", Integrated: true}
}

func customPolicy() *models.PolicyDocument {
	return &models.PolicyDocument{PolicyTitle: "Custom", Text: "policy text"}
}

func TestAnalyzeIntegratedPolicyUsesRuleEngine(t *testing.T) {
	unpacker := &fakeUnpacker{files: map[string][]byte{
		"b.pdf": []byte("b"),
		"a.pdf": []byte("a"),
	}}
	extractor := &fakeExtractor{texts: map[string]string{
		"a.pdf": "meal receipt",
		"b.pdf": "taxi receipt",
	}}
	rules := &fakeRules{}
	classifier := &fakeClassifier{}
	store := &fakeStore{}

	o := newTestOrchestrator(unpacker, extractor, &fakeResolver{policy: integratedPolicy()},
		rules, classifier, &fakeEmbedder{}, store)

	resp, err := o.Analyze(context.Background(), &models.BatchRequest{
		ArchiveName:         "invoices.zip",
		Archive:             []byte("zip"),
		EmployeeName:        "John Doe",
		UseIntegratedPolicy: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, 2, resp.TotalInvoices)
	require.Len(t, resp.Results, 2)

	// Results ordered by filename regardless of worker completion order
	assert.Equal(t, "a.pdf", resp.Results[0].InvoiceID)
	assert.Equal(t, "b.pdf", resp.Results[1].InvoiceID)
	assert.Equal(t, "John Doe", resp.Results[0].EmployeeName)

	sort.Strings(rules.calls)
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, rules.calls)
	assert.Empty(t, classifier.calls)
	assert.Len(t, store.saved, 2)
}

func TestAnalyzeCustomPolicyUsesClassifier(t *testing.T) {
	unpacker := &fakeUnpacker{files: map[string][]byte{"a.pdf": []byte("a")}}
	extractor := &fakeExtractor{texts: map[string]string{"a.pdf": "receipt"}}
	rules := &fakeRules{}
	classifier := &fakeClassifier{}
	store := &fakeStore{}

	o := newTestOrchestrator(unpacker, extractor, &fakeResolver{policy: customPolicy()},
		rules, classifier, &fakeEmbedder{}, store)

	resp, err := o.Analyze(context.Background(), &models.BatchRequest{
		ArchiveName: "invoices.zip",
		Archive:     []byte("zip"),
		PolicyName:  "policy.pdf",
		Policy:      []byte("pdf"),
	})
	require.NoError(t, err)

	require.Len(t, resp.Results, 1)
	assert.Equal(t, models.StatusPartiallyReimbursed, resp.Results[0].Status)
	assert.Equal(t, []string{"a.pdf"}, classifier.calls)
	assert.Empty(t, rules.calls)
}

func TestAnalyzeRejectsWrongArchiveExtension(t *testing.T) {
	o := newTestOrchestrator(&fakeUnpacker{}, &fakeExtractor{}, &fakeResolver{policy: integratedPolicy()},
		&fakeRules{}, &fakeClassifier{}, &fakeEmbedder{}, &fakeStore{})

	_, err := o.Analyze(context.Background(), &models.BatchRequest{
		ArchiveName:         "invoices.rar",
		Archive:             []byte("data"),
		UseIntegratedPolicy: true,
	})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestAnalyzeRejectsOversizedArchive(t *testing.T) {
	o := newTestOrchestrator(&fakeUnpacker{}, &fakeExtractor{}, &fakeResolver{policy: integratedPolicy()},
		&fakeRules{}, &fakeClassifier{}, &fakeEmbedder{}, &fakeStore{})

	_, err := o.Analyze(context.Background(), &models.BatchRequest{
		ArchiveName:         "invoices.zip",
		Archive:             make([]byte, 2<<20),
		UseIntegratedPolicy: true,
	})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestAnalyzeEmptyArchiveSucceeds(t *testing.T) {
	o := newTestOrchestrator(&fakeUnpacker{files: map[string][]byte{}}, &fakeExtractor{},
		&fakeResolver{policy: integratedPolicy()},
		&fakeRules{}, &fakeClassifier{}, &fakeEmbedder{}, &fakeStore{})

	resp, err := o.Analyze(context.Background(), &models.BatchRequest{
		ArchiveName:         "invoices.zip",
		Archive:             []byte("zip"),
		UseIntegratedPolicy: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, 0, resp.TotalInvoices)
	assert.Empty(t, resp.Results)
}

func TestAnalyzeInvalidArchivePropagates(t *testing.T) {
	o := newTestOrchestrator(&fakeUnpacker{err: models.ErrInvalidArchive}, &fakeExtractor{},
		&fakeResolver{policy: integratedPolicy()},
		&fakeRules{}, &fakeClassifier{}, &fakeEmbedder{}, &fakeStore{})

	_, err := o.Analyze(context.Background(), &models.BatchRequest{
		ArchiveName:         "invoices.zip",
		Archive:             []byte("not a zip"),
		UseIntegratedPolicy: true,
	})
	assert.ErrorIs(t, err, models.ErrInvalidArchive)
}

func TestAnalyzeUnreadableInvoiceBecomesDeclinedEntry(t *testing.T) {
	unpacker := &fakeUnpacker{files: map[string][]byte{
		"good.pdf":   []byte("ok"),
		"broken.pdf": []byte("bad"),
	}}
	// only good.pdf has extractable text
	extractor := &fakeExtractor{texts: map[string]string{"good.pdf": "receipt"}}
	store := &fakeStore{}

	o := newTestOrchestrator(unpacker, extractor, &fakeResolver{policy: integratedPolicy()},
		&fakeRules{}, &fakeClassifier{}, &fakeEmbedder{}, store)

	resp, err := o.Analyze(context.Background(), &models.BatchRequest{
		ArchiveName:         "invoices.zip",
		Archive:             []byte("zip"),
		UseIntegratedPolicy: true,
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)

	broken := resp.Results[0]
	assert.Equal(t, "broken.pdf", broken.InvoiceID)
	assert.Equal(t, models.StatusDeclined, broken.Status)
	assert.Equal(t, "Error in processing", broken.PolicyReference)
	assert.Contains(t, broken.Reason, "could not be read")

	// failed entries are not persisted
	require.Len(t, store.saved, 1)
	assert.Equal(t, "good.pdf", store.saved[0].InvoiceID)
}

func TestAnalyzeClassificationFailureBecomesDeclinedEntry(t *testing.T) {
	unpacker := &fakeUnpacker{files: map[string][]byte{"a.pdf": []byte("a")}}
	extractor := &fakeExtractor{texts: map[string]string{"a.pdf": "receipt"}}
	classifier := &fakeClassifier{failFor: map[string]bool{"a.pdf": true}}
	store := &fakeStore{}

	o := newTestOrchestrator(unpacker, extractor, &fakeResolver{policy: customPolicy()},
		&fakeRules{}, classifier, &fakeEmbedder{}, store)

	resp, err := o.Analyze(context.Background(), &models.BatchRequest{
		ArchiveName: "invoices.zip",
		Archive:     []byte("zip"),
		PolicyName:  "policy.pdf",
		Policy:      []byte("pdf"),
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, models.StatusDeclined, resp.Results[0].Status)
	assert.Contains(t, resp.Results[0].Reason, "Analysis failed")
	assert.Empty(t, store.saved)
}

func TestAnalyzeEmbeddingFailureIsFatal(t *testing.T) {
	unpacker := &fakeUnpacker{files: map[string][]byte{"a.pdf": []byte("a")}}
	extractor := &fakeExtractor{texts: map[string]string{"a.pdf": "receipt"}}
	embedder := &fakeEmbedder{err: errors.New("embedding service down")}

	o := newTestOrchestrator(unpacker, extractor, &fakeResolver{policy: integratedPolicy()},
		&fakeRules{}, &fakeClassifier{}, embedder, &fakeStore{})

	_, err := o.Analyze(context.Background(), &models.BatchRequest{
		ArchiveName:         "invoices.zip",
		Archive:             []byte("zip"),
		UseIntegratedPolicy: true,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embed")
}

func TestAnalyzeStoreFailureIsFatal(t *testing.T) {
	unpacker := &fakeUnpacker{files: map[string][]byte{"a.pdf": []byte("a")}}
	extractor := &fakeExtractor{texts: map[string]string{"a.pdf": "receipt"}}
	store := &fakeStore{err: errors.New("database locked")}

	o := newTestOrchestrator(unpacker, extractor, &fakeResolver{policy: integratedPolicy()},
		&fakeRules{}, &fakeClassifier{}, &fakeEmbedder{}, store)

	_, err := o.Analyze(context.Background(), &models.BatchRequest{
		ArchiveName:         "invoices.zip",
		Archive:             []byte("zip"),
		UseIntegratedPolicy: true,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persist")
}

func TestAnalyzeDefaultsEmployeeName(t *testing.T) {
	unpacker := &fakeUnpacker{files: map[string][]byte{"a.pdf": []byte("a")}}
	extractor := &fakeExtractor{texts: map[string]string{"a.pdf": "receipt"}}
	store := &fakeStore{}

	o := newTestOrchestrator(unpacker, extractor, &fakeResolver{policy: integratedPolicy()},
		&fakeRules{}, &fakeClassifier{}, &fakeEmbedder{}, store)

	resp, err := o.Analyze(context.Background(), &models.BatchRequest{
		ArchiveName:         "invoices.zip",
		Archive:             []byte("zip"),
		UseIntegratedPolicy: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Batch Analysis", resp.Results[0].EmployeeName)
	assert.Equal(t, "Batch Analysis", store.saved[0].EmployeeName)
}

func TestAnalyzeRecordsMetadata(t *testing.T) {
	unpacker := &fakeUnpacker{files: map[string][]byte{"a.pdf": []byte("a")}}
	extractor := &fakeExtractor{texts: map[string]string{"a.pdf": "receipt"}}
	store := &fakeStore{}

	o := newTestOrchestrator(unpacker, extractor, &fakeResolver{policy: customPolicy()},
		&fakeRules{}, &fakeClassifier{}, &fakeEmbedder{}, store)

	_, err := o.Analyze(context.Background(), &models.BatchRequest{
		ArchiveName: "march_invoices.zip",
		Archive:     []byte("zip"),
		PolicyName:  "hr_policy.pdf",
		Policy:      []byte("pdf"),
	})
	require.NoError(t, err)

	require.Len(t, store.saved, 1)
	meta := store.saved[0].Metadata
	assert.Equal(t, "uploaded", meta["policy_type"])
	assert.Equal(t, "hr_policy.pdf", meta["policy_filename"])
	assert.Equal(t, "march_invoices.zip", meta["invoices_filename"])
	assert.NotEmpty(t, meta["processing_timestamp"])
}

func TestSummarize(t *testing.T) {
	results := []models.AnalysisResult{
		{Status: models.StatusFullyReimbursed, Amount: 100, ReimbursedAmount: 100},
		{Status: models.StatusPartiallyReimbursed, Amount: 300, ReimbursedAmount: 200},
		{Status: models.StatusDeclined, Amount: 100, ReimbursedAmount: 0},
	}

	summary := Summarize(results)
	assert.Equal(t, 3, summary.TotalInvoices)
	assert.Equal(t, 1, summary.StatusDistribution[models.StatusDeclined])
	assert.InDelta(t, 500.0, summary.TotalAmount, 1e-9)
	assert.InDelta(t, 300.0, summary.TotalReimbursed, 1e-9)
	assert.InDelta(t, 60.0, summary.ReimbursementRate, 1e-9)
}

func TestSummarizeEmpty(t *testing.T) {
	summary := Summarize(nil)
	assert.Equal(t, 0, summary.TotalInvoices)
	assert.Zero(t, summary.ReimbursementRate)
}
