package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/iai-solution/invoice-analyzer/internal/chat"
	"github.com/iai-solution/invoice-analyzer/internal/models"
	"github.com/iai-solution/invoice-analyzer/internal/policy"
)

// BatchAnalyzer runs the invoice analysis pipeline
type BatchAnalyzer interface {
	Analyze(ctx context.Context, req *models.BatchRequest) (*models.BatchResponse, error)
}

// ChatQuerier answers questions over stored analyses
type ChatQuerier interface {
	Query(ctx context.Context, query string) (*models.ChatQueryResponse, error)
}

// RecordLister reads stored analyses for reporting and health checks
type RecordLister interface {
	ListRecent(ctx context.Context, limit int) ([]models.InvoiceRecord, error)
	CountAll(ctx context.Context) (int, error)
}

// Reporter renders stored analyses as a downloadable workbook
type Reporter interface {
	WriteReport(w io.Writer, records []models.InvoiceRecord) error
}

// Handlers contains all HTTP request handlers
type Handlers struct {
	analyzer BatchAnalyzer
	chat     ChatQuerier
	records  RecordLister
	reporter Reporter
	logger   *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(analyzer BatchAnalyzer, chatService ChatQuerier, records RecordLister, reporter Reporter, logger *zap.Logger) *Handlers {
	return &Handlers{
		analyzer: analyzer,
		chat:     chatService,
		records:  records,
		reporter: reporter,
		logger:   logger,
	}
}

// ErrorResponse is the JSON shape of all error replies
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// HealthResponse reports service availability
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Service:   "invoice-analyzer",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// AnalyzeInvoices handles POST /analyze-invoices. The request is multipart:
// an invoices archive (required), an optional policy document, and form
// fields employee_name and use_integrated_policy.
func (h *Handlers) AnalyzeInvoices(c *gin.Context) {
	archiveName, archive, err := readFormFile(c, "invoices")
	if err != nil {
		h.respondError(c, fmt.Errorf("%w: invoices archive is required: %v", models.ErrValidation, err))
		return
	}

	policyName, policyData, err := readOptionalFormFile(c, "policy")
	if err != nil {
		h.respondError(c, fmt.Errorf("%w: policy document: %v", models.ErrValidation, err))
		return
	}

	useIntegrated := true
	if raw := c.PostForm("use_integrated_policy"); raw != "" {
		useIntegrated, err = strconv.ParseBool(raw)
		if err != nil {
			h.respondError(c, fmt.Errorf("%w: use_integrated_policy must be a boolean", models.ErrValidation))
			return
		}
	}

	req := &models.BatchRequest{
		ArchiveName:         archiveName,
		Archive:             archive,
		PolicyName:          policyName,
		Policy:              policyData,
		EmployeeName:        c.PostForm("employee_name"),
		UseIntegratedPolicy: useIntegrated,
	}

	resp, err := h.analyzer.Analyze(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// PolicySummary handles GET /analyze-invoices/policy
func (h *Handlers) PolicySummary(c *gin.Context) {
	c.JSON(http.StatusOK, policy.Summary())
}

// ExportReport handles GET /analyze-invoices/export. It streams an xlsx
// workbook of the most recent analyses.
func (h *Handlers) ExportReport(c *gin.Context) {
	limit := 1000
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.respondError(c, fmt.Errorf("%w: limit must be a positive integer", models.ErrValidation))
			return
		}
		limit = parsed
	}

	records, err := h.records.ListRecent(c.Request.Context(), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := h.reporter.WriteReport(&buf, records); err != nil {
		h.respondError(c, err)
		return
	}

	filename := fmt.Sprintf("invoice_analyses_%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// AnalysisHealth handles GET /analyze-invoices/health
func (h *Handlers) AnalysisHealth(c *gin.Context) {
	count, err := h.records.CountAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"service": "invoice-analysis",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":          "healthy",
		"service":         "invoice-analysis",
		"stored_analyses": count,
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
	})
}

// ChatQuery handles POST /chat-query
func (h *Handlers) ChatQuery(c *gin.Context) {
	var req models.ChatQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, fmt.Errorf("%w: %v", models.ErrValidation, err))
		return
	}

	resp, err := h.chat.Query(c.Request.Context(), req.Query)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ChatExamples handles GET /chat-query/examples
func (h *Handlers) ChatExamples(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"examples": chat.ExampleQueries()})
}

// ChatHealth handles GET /chat-query/health
func (h *Handlers) ChatHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Service:   "chat-query",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// respondError maps service errors onto HTTP statuses. Client mistakes
// (validation, bad archives, missing policy) become 400s; everything else is
// a 500 without internal detail beyond the error chain.
func (h *Handlers) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrValidation),
		errors.Is(err, models.ErrInvalidArchive),
		errors.Is(err, models.ErrPolicyRequired):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:  "invalid request",
			Detail: err.Error(),
		})
	default:
		h.logger.Error("Request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:  "internal error",
			Detail: err.Error(),
		})
	}
}

// readFormFile reads a required multipart file into memory
func readFormFile(c *gin.Context, field string) (string, []byte, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return "", nil, err
	}
	data, err := readMultipartFile(header)
	if err != nil {
		return "", nil, err
	}
	return header.Filename, data, nil
}

// readOptionalFormFile reads a multipart file if present; absence is not an
// error
func readOptionalFormFile(c *gin.Context, field string) (string, []byte, error) {
	header, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil, nil
		}
		return "", nil, err
	}
	data, err := readMultipartFile(header)
	if err != nil {
		return "", nil, err
	}
	return header.Filename, data, nil
}

func readMultipartFile(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}
