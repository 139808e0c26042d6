package models

import "time"

// ReimbursementStatus is the verdict assigned to an analyzed invoice
type ReimbursementStatus string

const (
	StatusFullyReimbursed     ReimbursementStatus = "Fully Reimbursed"
	StatusPartiallyReimbursed ReimbursementStatus = "Partially Reimbursed"
	StatusDeclined            ReimbursementStatus = "Declined"
)

// Valid reports whether the status is one of the three known verdicts
func (s ReimbursementStatus) Valid() bool {
	switch s {
	case StatusFullyReimbursed, StatusPartiallyReimbursed, StatusDeclined:
		return true
	}
	return false
}

// AnalysisResult is the outcome of classifying a single invoice against policy.
// Immutable after creation; persisted verbatim together with its embedding.
type AnalysisResult struct {
	InvoiceID        string              `json:"invoice_id"`
	Status           ReimbursementStatus `json:"status"`
	Reason           string              `json:"reason"`
	PolicyReference  string              `json:"policy_reference"`
	Amount           float64             `json:"amount"`
	ReimbursedAmount float64             `json:"reimbursed_amount"`
	Category         string              `json:"category"`
	PolicyRule       string              `json:"policy_rule"`
	EmployeeName     string              `json:"employee_name"`
	CreatedAt        time.Time           `json:"created_at"`
}

// BatchRequest groups the inputs of one analysis call. It exists only for the
// duration of the HTTP request that carries it.
type BatchRequest struct {
	ArchiveName         string
	Archive             []byte
	PolicyName          string
	Policy              []byte
	EmployeeName        string
	UseIntegratedPolicy bool
}

// BatchResponse is returned by the analysis endpoint
type BatchResponse struct {
	Status         string           `json:"status"`
	Results        []AnalysisResult `json:"results"`
	TotalInvoices  int              `json:"total_invoices"`
	ProcessingTime float64          `json:"processing_time"`
}

// BatchSummary aggregates statistics over a batch of analysis results
type BatchSummary struct {
	TotalInvoices      int                         `json:"total_invoices"`
	StatusDistribution map[ReimbursementStatus]int `json:"status_distribution"`
	TotalAmount        float64                     `json:"total_amount"`
	TotalReimbursed    float64                     `json:"total_reimbursed"`
	ReimbursementRate  float64                     `json:"reimbursement_rate"`
}

// InvoiceRecord is the persisted form of an analysis: the result, the source
// text it was derived from, and the embedding used for similarity search.
type InvoiceRecord struct {
	ID           string            `json:"id"`
	InvoiceID    string            `json:"invoice_id"`
	EmployeeName string            `json:"employee_name"`
	Content      string            `json:"content"`
	Analysis     AnalysisResult    `json:"analysis_result"`
	Embedding    []float32         `json:"embedding"`
	Metadata     map[string]string `json:"metadata"`
	CreatedAt    time.Time         `json:"created_at"`
}
