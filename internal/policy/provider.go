package policy

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/iai-solution/invoice-analyzer/internal/models"
)

// TextExtractor converts an uploaded policy document into plain text
type TextExtractor interface {
	ExtractText(data []byte, filename string) (string, error)
}

// Provider resolves the policy document for a batch request
type Provider struct {
	extractor TextExtractor
	logger    *zap.Logger
}

// NewProvider creates a new policy provider
func NewProvider(extractor TextExtractor, logger *zap.Logger) *Provider {
	return &Provider{
		extractor: extractor,
		logger:    logger,
	}
}

// Resolve returns the policy for a batch: the built-in company policy when
// useIntegrated is true, otherwise a policy derived from the uploaded
// document. A custom policy without uploaded bytes fails with
// ErrPolicyRequired.
func (p *Provider) Resolve(useIntegrated bool, uploaded []byte, filename string) (*models.PolicyDocument, error) {
	if useIntegrated {
		p.logger.Info("Using integrated company policy")
		return Integrated(), nil
	}

	if len(uploaded) == 0 {
		return nil, models.ErrPolicyRequired
	}

	text, err := p.extractor.ExtractText(uploaded, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded policy: %w", err)
	}

	p.logger.Info("Using uploaded policy document",
		zap.String("filename", filename),
		zap.Int("chars", len(text)))

	// Uploaded policies carry only their raw wording; category structure is
	// whatever the language model infers during classification.
	return &models.PolicyDocument{
		CompanyName: "Uploaded Policy",
		PolicyTitle: filename,
		Version:     "custom",
		Categories:  map[string]models.PolicyRule{},
		Text:        text,
		Integrated:  false,
	}, nil
}
