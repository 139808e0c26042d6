package models

import "time"

// ChatQueryRequest is the body of a chat query
type ChatQueryRequest struct {
	Query string `json:"query" binding:"required,min=1,max=1000"`
}

// SourceDocument identifies a stored analysis that grounded a chat answer
type SourceDocument struct {
	InvoiceID       string              `json:"invoice_id"`
	Employee        string              `json:"employee"`
	Date            time.Time           `json:"date"`
	Status          ReimbursementStatus `json:"status"`
	SimilarityScore float64             `json:"similarity_score"`
}

// ChatQueryResponse is the answer to a chat query together with the retrieved
// sources and a confidence score derived from retrieval relevance
type ChatQueryResponse struct {
	Response        string           `json:"response"`
	Sources         []SourceDocument `json:"sources"`
	ConfidenceScore float64          `json:"confidence_score"`
}
