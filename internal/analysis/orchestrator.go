// Package analysis orchestrates the invoice analysis pipeline: validation,
// policy resolution, archive unpacking and per-invoice classification,
// embedding and persistence.
package analysis

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iai-solution/invoice-analyzer/internal/models"
	"github.com/iai-solution/invoice-analyzer/pkg/utils"
)

// Unpacker extracts matching files from an uploaded archive
type Unpacker interface {
	Unpack(archive []byte) (map[string][]byte, error)
}

// TextExtractor converts document bytes into plain text
type TextExtractor interface {
	ExtractText(data []byte, filename string) (string, error)
}

// PolicyResolver supplies the policy document for a batch
type PolicyResolver interface {
	Resolve(useIntegrated bool, uploaded []byte, filename string) (*models.PolicyDocument, error)
}

// RuleAnalyzer classifies invoices against the integrated policy rules
type RuleAnalyzer interface {
	Analyze(invoiceText, invoiceID string) models.AnalysisResult
}

// Classifier classifies invoices against custom policy wording via a
// language model
type Classifier interface {
	Classify(ctx context.Context, invoiceText string, policy *models.PolicyDocument, invoiceID string) (*models.AnalysisResult, error)
}

// Embedder generates vectors for semantic indexing
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Store persists analysis records
type Store interface {
	Save(ctx context.Context, record *models.InvoiceRecord) (string, error)
}

// EmbedText combines invoice content and analysis into the text that gets
// embedded; injected so the orchestrator stays decoupled from the embedding
// package's shaping.
type EmbedText func(content string, analysis *models.AnalysisResult) string

// Config holds orchestrator limits
type Config struct {
	MaxFileSize       int64
	ArchiveExtensions []string
	InvoiceExtensions []string
	Workers           int
}

// Orchestrator composes the analysis pipeline per batch request
type Orchestrator struct {
	config     Config
	unpacker   Unpacker
	extractor  TextExtractor
	policies   PolicyResolver
	rules      RuleAnalyzer
	classifier Classifier
	embedder   Embedder
	store      Store
	embedText  EmbedText
	logger     *zap.Logger
}

// NewOrchestrator creates a new analysis orchestrator
func NewOrchestrator(
	config Config,
	unpacker Unpacker,
	extractor TextExtractor,
	policies PolicyResolver,
	rules RuleAnalyzer,
	classifier Classifier,
	embedder Embedder,
	store Store,
	embedText EmbedText,
	logger *zap.Logger,
) *Orchestrator {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	return &Orchestrator{
		config:     config,
		unpacker:   unpacker,
		extractor:  extractor,
		policies:   policies,
		rules:      rules,
		classifier: classifier,
		embedder:   embedder,
		store:      store,
		embedText:  embedText,
		logger:     logger,
	}
}

// Analyze runs the full pipeline for one batch request. Per-file failures
// (unreadable documents, unusable model responses) become Declined entries in
// the result list; infrastructure failures (embedding, storage) abort the
// whole request. Results are ordered by invoice filename.
func (o *Orchestrator) Analyze(ctx context.Context, req *models.BatchRequest) (*models.BatchResponse, error) {
	start := time.Now()

	if err := o.validate(req); err != nil {
		return nil, err
	}

	policy, err := o.policies.Resolve(req.UseIntegratedPolicy, req.Policy, req.PolicyName)
	if err != nil {
		return nil, err
	}

	files, err := o.unpacker.Unpack(req.Archive)
	if err != nil {
		return nil, err
	}

	employeeName := strings.TrimSpace(req.EmployeeName)
	if employeeName == "" {
		employeeName = "Batch Analysis"
	}

	// Empty batch is a valid outcome, not an error
	if len(files) == 0 {
		o.logger.Warn("No extractable invoices in archive",
			zap.String("archive", req.ArchiveName))
		return &models.BatchResponse{
			Status:         "success",
			Results:        []models.AnalysisResult{},
			TotalInvoices:  0,
			ProcessingTime: time.Since(start).Seconds(),
		}, nil
	}

	o.logger.Info("Analyzing invoice batch",
		zap.String("archive", req.ArchiveName),
		zap.String("employee", employeeName),
		zap.Int("invoices", len(files)),
		zap.Bool("integrated_policy", policy.Integrated))

	filenames := make([]string, 0, len(files))
	for name := range files {
		filenames = append(filenames, name)
	}
	sort.Strings(filenames)

	results, err := o.processAll(ctx, req, policy, employeeName, filenames, files)
	if err != nil {
		return nil, err
	}

	return &models.BatchResponse{
		Status:         "success",
		Results:        results,
		TotalInvoices:  len(files),
		ProcessingTime: time.Since(start).Seconds(),
	}, nil
}

// validate fails fast on input shape before any extraction work
func (o *Orchestrator) validate(req *models.BatchRequest) error {
	if err := utils.ValidateFileExtension(req.ArchiveName, o.config.ArchiveExtensions); err != nil {
		return fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	if err := utils.ValidateFileSize(int64(len(req.Archive)), o.config.MaxFileSize); err != nil {
		return fmt.Errorf("%w: invoices archive: %v", models.ErrValidation, err)
	}

	if !req.UseIntegratedPolicy && len(req.Policy) > 0 {
		if err := utils.ValidateFileExtension(req.PolicyName, o.config.InvoiceExtensions); err != nil {
			return fmt.Errorf("%w: %v", models.ErrValidation, err)
		}
		if err := utils.ValidateFileSize(int64(len(req.Policy)), o.config.MaxFileSize); err != nil {
			return fmt.Errorf("%w: policy document: %v", models.ErrValidation, err)
		}
	}
	return nil
}

// processAll fans the batch out over a bounded worker pool. Invoices are
// independent; order is restored afterwards by slot.
func (o *Orchestrator) processAll(
	ctx context.Context,
	req *models.BatchRequest,
	policy *models.PolicyDocument,
	employeeName string,
	filenames []string,
	files map[string][]byte,
) ([]models.AnalysisResult, error) {
	workers := o.config.Workers
	if workers > len(filenames) {
		workers = len(filenames)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]models.AnalysisResult, len(filenames))
	jobs := make(chan int)

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		fatalErr error
	)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				filename := filenames[idx]
				result, err := o.processOne(ctx, req, policy, employeeName, filename, files[filename])
				if err != nil {
					errOnce.Do(func() {
						fatalErr = err
						cancel()
					})
					return
				}
				results[idx] = *result
			}
		}()
	}

	for idx := range filenames {
		select {
		case jobs <- idx:
		case <-ctx.Done():
		}
	}
	close(jobs)
	wg.Wait()

	if fatalErr != nil {
		return nil, fatalErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// processOne runs extract, classify, embed and persist for a single invoice.
// A nil error with a Declined result marks a per-item failure; a non-nil
// error is infrastructure-level and fatal for the batch.
func (o *Orchestrator) processOne(
	ctx context.Context,
	req *models.BatchRequest,
	policy *models.PolicyDocument,
	employeeName, filename string,
	data []byte,
) (*models.AnalysisResult, error) {
	invoiceText, err := o.extractor.ExtractText(data, filename)
	if err != nil {
		o.logger.Warn("Skipping unreadable invoice",
			zap.String("invoice_id", filename),
			zap.Error(err))
		return failedResult(filename, employeeName, "Document could not be read: "+err.Error()), nil
	}

	var result *models.AnalysisResult
	if policy.Integrated {
		r := o.rules.Analyze(invoiceText, filename)
		result = &r
	} else {
		result, err = o.classifier.Classify(ctx, invoiceText, policy, filename)
		if err != nil {
			o.logger.Warn("Classification failed for invoice",
				zap.String("invoice_id", filename),
				zap.Error(err))
			return failedResult(filename, employeeName, "Analysis failed: "+err.Error()), nil
		}
	}
	result.EmployeeName = employeeName

	vec, err := o.embedder.Embed(ctx, o.embedText(invoiceText, result))
	if err != nil {
		return nil, fmt.Errorf("failed to embed invoice %s: %w", filename, err)
	}

	record := &models.InvoiceRecord{
		InvoiceID:    filename,
		EmployeeName: employeeName,
		Content:      invoiceText,
		Analysis:     *result,
		Embedding:    vec,
		Metadata:     buildMetadata(req, result),
		CreatedAt:    result.CreatedAt,
	}
	if _, err := o.store.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to persist invoice %s: %w", filename, err)
	}

	o.logger.Info("Invoice analyzed",
		zap.String("invoice_id", filename),
		zap.String("status", string(result.Status)))

	return result, nil
}

func failedResult(invoiceID, employeeName, reason string) *models.AnalysisResult {
	return &models.AnalysisResult{
		InvoiceID:       invoiceID,
		Status:          models.StatusDeclined,
		Reason:          reason,
		PolicyReference: "Error in processing",
		EmployeeName:    employeeName,
		CreatedAt:       time.Now().UTC(),
	}
}

func buildMetadata(req *models.BatchRequest, result *models.AnalysisResult) map[string]string {
	policyType := "integrated"
	policyFilename := "IAI_Solution_Policy"
	if !req.UseIntegratedPolicy {
		policyType = "uploaded"
		policyFilename = req.PolicyName
	}
	return map[string]string{
		"policy_type":          policyType,
		"policy_filename":      policyFilename,
		"invoices_filename":    req.ArchiveName,
		"processing_timestamp": time.Now().UTC().Format(time.RFC3339),
		"category":             result.Category,
		"policy_rule":          result.PolicyRule,
	}
}

// Summarize aggregates statistics over a batch of results
func Summarize(results []models.AnalysisResult) models.BatchSummary {
	summary := models.BatchSummary{
		TotalInvoices:      len(results),
		StatusDistribution: make(map[models.ReimbursementStatus]int),
	}
	for _, r := range results {
		summary.StatusDistribution[r.Status]++
		summary.TotalAmount += r.Amount
		summary.TotalReimbursed += r.ReimbursedAmount
	}
	if summary.TotalAmount > 0 {
		summary.ReimbursementRate = summary.TotalReimbursed / summary.TotalAmount * 100
	}
	return summary
}
