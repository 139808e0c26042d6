package policy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iai-solution/invoice-analyzer/internal/models"
)

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) ExtractText(data []byte, filename string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func TestResolveIntegrated(t *testing.T) {
	p := NewProvider(&fakeExtractor{}, zap.NewNop())

	// Uploaded bytes are ignored when the integrated policy is requested
	doc, err := p.Resolve(true, []byte("ignored"), "ignored.pdf")
	require.NoError(t, err)
	assert.True(t, doc.Integrated)
	assert.Equal(t, "IAI Solution", doc.CompanyName)
}

func TestResolveCustomPolicyMissing(t *testing.T) {
	p := NewProvider(&fakeExtractor{}, zap.NewNop())

	_, err := p.Resolve(false, nil, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrPolicyRequired))
}

func TestResolveCustomPolicy(t *testing.T) {
	p := NewProvider(&fakeExtractor{text: "custom policy wording"}, zap.NewNop())

	doc, err := p.Resolve(false, []byte("%PDF..."), "policy.pdf")
	require.NoError(t, err)
	assert.False(t, doc.Integrated)
	assert.Equal(t, "custom policy wording", doc.Text)
	assert.Equal(t, "policy.pdf", doc.PolicyTitle)
}

func TestResolveCustomPolicyUnreadable(t *testing.T) {
	p := NewProvider(&fakeExtractor{err: models.ErrUnreadableDocument}, zap.NewNop())

	_, err := p.Resolve(false, []byte("junk"), "bad.pdf")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrUnreadableDocument))
}
