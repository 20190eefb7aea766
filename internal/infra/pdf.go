package infra

// pdf.go — Z-report PDF rendering using go-pdf/fpdf. The PDF is an external
// representation of the immutable reconciliation summary; it never feeds back
// into the core.

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/zolijavos/KGC-3-sub017/internal/model"

	"github.com/go-pdf/fpdf"
)

// GenerateZReportPDF writes an A4 reconciliation sheet for a closed session
// and returns the absolute path of the file.
func GenerateZReportPDF(z *model.ZReport, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}

	fileName := fmt.Sprintf("zreport_%s.pdf", z.SessionNumber)
	filePath := filepath.Join(storagePath, fileName)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "Z-Report", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Session %s", z.SessionNumber), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("%s — %s",
		z.OpenedAt.Format("2006-01-02 15:04"),
		z.ClosedAt.Format("2006-01-02 15:04")), "", 1, "C", false, 0, "")
	if z.Provisional {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(0, 6, "PROVISIONAL — pending variance approval", "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	// Balances
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 7, "Cash reconciliation", "B", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	row := func(label, value string) {
		pdf.CellFormat(90, 6, label, "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, value, "", 1, "R", false, 0, "")
	}
	row("Opening balance", z.OpeningBalance.String()+" Ft")
	row("Expected balance", z.ExpectedBalance.String()+" Ft")
	row("Counted balance", z.ClosingBalance.String()+" Ft")
	pdf.SetFont("Helvetica", "B", 10)
	row("Variance", z.Variance.String()+" Ft")
	pdf.Ln(4)

	// Payment method breakdown
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 7, "Payments by method", "B", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, m := range z.MethodBreakdown {
		pdf.CellFormat(60, 6, m.Method, "", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%d pcs", m.Count), "", 0, "R", false, 0, "")
		pdf.CellFormat(0, 6, m.Total.String()+" Ft", "", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	// Tax breakdown
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 7, "VAT summary", "B", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, t := range z.TaxBreakdown {
		pdf.CellFormat(60, 6, fmt.Sprintf("%d%%", t.Rate), "", 0, "L", false, 0, "")
		pdf.CellFormat(45, 6, "net "+t.Net.String(), "", 0, "R", false, 0, "")
		pdf.CellFormat(0, 6, "VAT "+t.Tax.String(), "", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 10)
	row("Transactions", fmt.Sprintf("%d", z.TransactionCount))
	row("Voided", fmt.Sprintf("%d", z.VoidCount))

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write %s: %w", filePath, err)
	}
	return filePath, nil
}
