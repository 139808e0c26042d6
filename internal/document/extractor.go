// Package document extracts plain text from uploaded PDF documents.
package document

import (
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"

	"github.com/iai-solution/invoice-analyzer/internal/models"
)

// Extractor converts PDF bytes into plain text using MuPDF
type Extractor struct {
	logger *zap.Logger
}

// NewExtractor creates a new text extractor
func NewExtractor(logger *zap.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// ExtractText parses the given PDF bytes and returns the concatenated text of
// all pages. Documents that cannot be parsed, or that yield no text at all,
// fail with ErrUnreadableDocument.
func (e *Extractor) ExtractText(data []byte, filename string) (string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		e.logger.Warn("Failed to open document",
			zap.String("filename", filename),
			zap.Error(err))
		return "", fmt.Errorf("%w: %s: %v", models.ErrUnreadableDocument, filename, err)
	}
	defer doc.Close()

	var sb strings.Builder
	pageCount := doc.NumPage()
	for pageNum := 0; pageNum < pageCount; pageNum++ {
		text, err := doc.Text(pageNum)
		if err != nil {
			e.logger.Warn("Failed to extract page text",
				zap.String("filename", filename),
				zap.Int("page", pageNum),
				zap.Error(err))
			continue
		}
		sb.WriteString(text)
	}

	content := strings.TrimSpace(sb.String())
	if content == "" {
		return "", fmt.Errorf("%w: %s: no extractable text", models.ErrUnreadableDocument, filename)
	}

	e.logger.Debug("Extracted document text",
		zap.String("filename", filename),
		zap.Int("pages", pageCount),
		zap.Int("chars", len(content)))

	return content, nil
}
