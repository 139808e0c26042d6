package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/iai-solution/invoice-analyzer/internal/models"
)

func sampleRecords() []models.InvoiceRecord {
	created := time.Date(2025, 3, 15, 10, 30, 0, 0, time.UTC)
	return []models.InvoiceRecord{
		{
			InvoiceID:    "inv_001.pdf",
			EmployeeName: "John Doe",
			Analysis: models.AnalysisResult{
				InvoiceID:        "inv_001.pdf",
				Status:           models.StatusFullyReimbursed,
				Reason:           "Within the meal allowance",
				PolicyReference:  "Section 5.1",
				Amount:           180,
				ReimbursedAmount: 180,
				Category:         "food_beverages",
			},
			CreatedAt: created,
		},
		{
			InvoiceID:    "inv_002.pdf",
			EmployeeName: "Jane Roe",
			Analysis: models.AnalysisResult{
				InvoiceID:        "inv_002.pdf",
				Status:           models.StatusPartiallyReimbursed,
				Reason:           "Exceeds the travel limit",
				PolicyReference:  "Section 5.2",
				Amount:           2500,
				ReimbursedAmount: 2000,
				Category:         "travel_expenses",
			},
			CreatedAt: created,
		},
	}
}

func TestWriteReport(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewExcelReporter(zap.NewNop())

	require.NoError(t, reporter.WriteReport(&buf, sampleRecords()))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	const sheet = "Invoice Analyses"

	header, err := f.GetCellValue(sheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Invoice ID", header)

	invoiceID, err := f.GetCellValue(sheet, "A2")
	require.NoError(t, err)
	assert.Equal(t, "inv_001.pdf", invoiceID)

	status, err := f.GetCellValue(sheet, "C3")
	require.NoError(t, err)
	assert.Equal(t, "Partially Reimbursed", status)

	// totals row sits one blank row below the data
	totalLabel, err := f.GetCellValue(sheet, "D5")
	require.NoError(t, err)
	assert.Equal(t, "Total", totalLabel)

	totalAmount, err := f.GetCellValue(sheet, "E5")
	require.NoError(t, err)
	assert.Equal(t, "2680", totalAmount)
}

func TestWriteReportEmpty(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewExcelReporter(zap.NewNop())

	require.NoError(t, reporter.WriteReport(&buf, nil))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	header, err := f.GetCellValue("Invoice Analyses", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Invoice ID", header)
}
