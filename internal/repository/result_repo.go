// Package repository persists analysis results together with their
// embeddings and serves approximate nearest-neighbor retrieval over them.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iai-solution/invoice-analyzer/internal/models"
	"github.com/iai-solution/invoice-analyzer/internal/vector"
)

// SearchResult pairs a stored record with its similarity to a query vector
type SearchResult struct {
	Record models.InvoiceRecord
	Score  float64
}

// ResultRepository handles invoice analysis persistence and vector search
type ResultRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewResultRepository creates a new result repository
func NewResultRepository(db *sql.DB, logger *zap.Logger) *ResultRepository {
	return &ResultRepository{
		db:     db,
		logger: logger,
	}
}

// Save persists one analysis record with its embedding and returns the
// assigned id. Each record is inserted independently; there are no
// cross-record transactions.
func (r *ResultRepository) Save(ctx context.Context, record *models.InvoiceRecord) (string, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	if record.Metadata == nil {
		record.Metadata = map[string]string{}
	}

	analysisJSON, err := json.Marshal(record.Analysis)
	if err != nil {
		return "", fmt.Errorf("failed to marshal analysis: %w", err)
	}
	metadataJSON, err := json.Marshal(record.Metadata)
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `
		INSERT INTO invoice_analyses (
			id, invoice_id, employee_name, content, analysis, embedding, metadata, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		record.ID,
		record.InvoiceID,
		record.EmployeeName,
		record.Content,
		string(analysisJSON),
		vector.Encode(record.Embedding),
		string(metadataJSON),
		record.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to save analysis record",
			zap.String("invoice_id", record.InvoiceID),
			zap.Error(err))
		return "", fmt.Errorf("failed to save analysis record: %w", err)
	}

	r.logger.Debug("Saved analysis record",
		zap.String("id", record.ID),
		zap.String("invoice_id", record.InvoiceID))

	return record.ID, nil
}

// GetByID returns the stored record with the given id
func (r *ResultRepository) GetByID(ctx context.Context, id string) (*models.InvoiceRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, invoice_id, employee_name, content, analysis, embedding, metadata, created_at
		FROM invoice_analyses WHERE id = ?
	`, id)

	record, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("analysis record not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load analysis record: %w", err)
	}
	return record, nil
}

// Search returns up to topK stored records ordered by descending cosine
// similarity to the query vector, ties broken by most recent first. Records
// below minScore are filtered out; pass 0 to disable the threshold.
func (r *ResultRepository) Search(ctx context.Context, queryEmbedding []float32, topK int, minScore float64) ([]SearchResult, error) {
	if topK <= 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, invoice_id, employee_name, content, analysis, embedding, metadata, created_at
		FROM invoice_analyses
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis records: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis record: %w", err)
		}

		score, err := vector.CosineSimilarity(queryEmbedding, record.Embedding)
		if err != nil {
			// Dimension drift from an older model config; skip, don't fail the query
			r.logger.Warn("Skipping record with incompatible embedding",
				zap.String("id", record.ID),
				zap.Error(err))
			continue
		}
		if score < minScore {
			continue
		}

		results = append(results, SearchResult{Record: *record, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Record.CreatedAt.After(results[j].Record.CreatedAt)
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// ListRecent returns up to limit records, newest first
func (r *ResultRepository) ListRecent(ctx context.Context, limit int) ([]models.InvoiceRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, invoice_id, employee_name, content, analysis, embedding, metadata, created_at
		FROM invoice_analyses ORDER BY created_at DESC, id LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list analysis records: %w", err)
	}
	defer rows.Close()

	var records []models.InvoiceRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis record: %w", err)
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

// CountAll returns the number of stored records
func (r *ResultRepository) CountAll(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM invoice_analyses").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count analysis records: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.InvoiceRecord, error) {
	var (
		record       models.InvoiceRecord
		analysisJSON string
		metadataJSON string
		embedding    []byte
	)

	err := row.Scan(
		&record.ID,
		&record.InvoiceID,
		&record.EmployeeName,
		&record.Content,
		&analysisJSON,
		&embedding,
		&metadataJSON,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(analysisJSON), &record.Analysis); err != nil {
		return nil, fmt.Errorf("failed to unmarshal analysis: %w", err)
	}
	if err := json.Unmarshal([]byte(metadataJSON), &record.Metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	record.Embedding, err = vector.Decode(embedding)
	if err != nil {
		return nil, err
	}

	return &record, nil
}
