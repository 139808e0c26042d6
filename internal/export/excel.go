// Package export renders stored invoice analyses as downloadable reports.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/iai-solution/invoice-analyzer/internal/models"
)

var reportHeaders = []string{
	"Invoice ID",
	"Employee",
	"Status",
	"Category",
	"Amount (INR)",
	"Reimbursed (INR)",
	"Reason",
	"Policy Reference",
	"Analyzed At",
}

// ExcelReporter writes invoice analysis reports as xlsx workbooks
type ExcelReporter struct {
	logger *zap.Logger
}

// NewExcelReporter creates a new Excel reporter
func NewExcelReporter(logger *zap.Logger) *ExcelReporter {
	return &ExcelReporter{logger: logger}
}

// WriteReport renders the records as a single-sheet workbook and writes it to
// w. Records are written in the order given; a totals row follows the data.
func (er *ExcelReporter) WriteReport(w io.Writer, records []models.InvoiceRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheetName = "Invoice Analyses"
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	for col, header := range reportHeaders {
		er.setCell(f, sheetName, cellRef(col, 1), header)
	}

	var totalAmount, totalReimbursed float64
	for i, record := range records {
		row := i + 2
		a := record.Analysis
		er.setCell(f, sheetName, cellRef(0, row), a.InvoiceID)
		er.setCell(f, sheetName, cellRef(1, row), record.EmployeeName)
		er.setCell(f, sheetName, cellRef(2, row), string(a.Status))
		er.setCell(f, sheetName, cellRef(3, row), a.Category)
		er.setCell(f, sheetName, cellRef(4, row), a.Amount)
		er.setCell(f, sheetName, cellRef(5, row), a.ReimbursedAmount)
		er.setCell(f, sheetName, cellRef(6, row), a.Reason)
		er.setCell(f, sheetName, cellRef(7, row), a.PolicyReference)
		er.setCell(f, sheetName, cellRef(8, row), record.CreatedAt.Format("2006-01-02 15:04"))

		totalAmount += a.Amount
		totalReimbursed += a.ReimbursedAmount
	}

	totalsRow := len(records) + 3
	er.setCell(f, sheetName, cellRef(3, totalsRow), "Total")
	er.setCell(f, sheetName, cellRef(4, totalsRow), totalAmount)
	er.setCell(f, sheetName, cellRef(5, totalsRow), totalReimbursed)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write Excel report: %w", err)
	}

	er.logger.Info("Excel report generated", zap.Int("records", len(records)))
	return nil
}

// setCell sets a cell value, logging rather than failing on bad references
func (er *ExcelReporter) setCell(f *excelize.File, sheet, cell string, value interface{}) {
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		er.logger.Warn("Failed to set cell value",
			zap.String("sheet", sheet),
			zap.String("cell", cell),
			zap.Error(err))
	}
}

// cellRef converts a zero-based column index and one-based row to an A1-style
// reference; the report never exceeds 26 columns.
func cellRef(col, row int) string {
	return fmt.Sprintf("%c%d", 'A'+col, row)
}
