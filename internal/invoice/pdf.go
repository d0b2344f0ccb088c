package invoice

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/tay-dev-lab/voice-to-invoice/internal/domain"
)

// Renderer writes invoice PDFs into a fixed output directory.
type Renderer struct {
	outputDir string
}

// NewRenderer creates a PDF renderer, ensuring the output directory exists.
func NewRenderer(outputDir string) (*Renderer, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create pdf output directory: %w", err)
	}
	return &Renderer{outputDir: outputDir}, nil
}

// Render writes the invoice as a PDF file and returns its path. Amounts
// and totals are computed here from the raw per-item rates.
func (r *Renderer) Render(inv *domain.Invoice) (string, error) {
	filename := fmt.Sprintf("%s_%s.pdf", inv.ReferenceNumber, time.Now().UTC().Format("20060102_150405"))
	path := filepath.Join(r.outputDir, filename)

	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	// Title
	title := "INVOICE"
	if inv.Details.Type == domain.InvoiceTypeDeposit {
		title = "DEPOSIT INVOICE"
	}
	pdf.SetFont("Helvetica", "B", 22)
	pdf.CellFormat(0, 12, title, "", 1, "C", false, 0, "")
	pdf.Ln(4)

	// Details block
	pdf.SetFont("Helvetica", "", 10)
	details := [][2]string{
		{"Invoice Number:", inv.ReferenceNumber},
		{"Invoice Date:", time.Now().UTC().Format("02 January 2006")},
		{"Due Date:", inv.Details.DueDate.Format("02 January 2006")},
		{"Invoice Type:", titleCase(string(inv.Details.Type))},
	}
	for _, row := range details {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(45, 6, row[0], "", 0, "R", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 6, row[1], "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	// Bill-to block
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 7, "Bill To:", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, tr(inv.Client.Name), "", 1, "L", false, 0, "")
	for _, line := range strings.Split(inv.Client.Address, "\n") {
		pdf.CellFormat(0, 6, tr(strings.TrimSpace(line)), "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	// Items table
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 7, "Invoice Items:", "", 1, "L", false, 0, "")

	colWidths := []float64{60, 25, 20, 25, 15, 25}
	headers := []string{"Description", "Value", "Discount", "Net", "VAT", "Gross"}
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(229, 233, 240)
	for i, h := range headers {
		align := "C"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(colWidths[i], 7, h, "1", 0, align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, item := range inv.Items {
		a := AmountsFor(item)

		discount := "-"
		if item.DiscountRate > 0 {
			discount = fmt.Sprintf("%g%%", item.DiscountRate)
		}
		vat := "-"
		if item.VATRate > 0 {
			vat = fmt.Sprintf("%g%%", item.VATRate)
		}

		pdf.CellFormat(colWidths[0], 6, tr(item.Description), "1", 0, "L", false, 0, "")
		pdf.CellFormat(colWidths[1], 6, tr(formatCurrency(item.Value)), "1", 0, "R", false, 0, "")
		pdf.CellFormat(colWidths[2], 6, discount, "1", 0, "R", false, 0, "")
		pdf.CellFormat(colWidths[3], 6, tr(formatCurrency(a.Net)), "1", 0, "R", false, 0, "")
		pdf.CellFormat(colWidths[4], 6, vat, "1", 0, "R", false, 0, "")
		pdf.CellFormat(colWidths[5], 6, tr(formatCurrency(a.Gross)), "1", 1, "R", false, 0, "")
	}

	// Summary rows
	totals := TotalsFor(inv)
	summary := [][2]string{
		{"Subtotal:", formatCurrency(totals.Net)},
	}
	if totals.VAT > 0 {
		summary = append(summary, [2]string{"VAT:", formatCurrency(totals.VAT)})
	}
	summary = append(summary, [2]string{"Gross Total:", formatCurrency(totals.Gross)})
	if totals.CIS > 0 {
		summary = append(summary, [2]string{"Less CIS:", "(" + formatCurrency(totals.CIS) + ")"})
	}
	if totals.Retention > 0 {
		summary = append(summary, [2]string{"Less Retention:", "(" + formatCurrency(totals.Retention) + ")"})
	}
	summary = append(summary, [2]string{"Amount Payable:", formatCurrency(totals.Payable)})

	labelWidth := colWidths[0] + colWidths[1] + colWidths[2] + colWidths[3]
	for i, row := range summary {
		style := ""
		if i == len(summary)-1 {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 9)
		pdf.CellFormat(labelWidth, 6, row[0], "", 0, "R", false, 0, "")
		pdf.CellFormat(colWidths[4]+colWidths[5], 6, tr(row[1]), "T", 1, "R", false, 0, "")
	}
	pdf.Ln(10)

	// Payment terms
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 7, "Payment Terms:", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, "Payment due by "+inv.Details.DueDate.Format("02 January 2006"), "", 1, "L", false, 0, "")
	if inv.Details.Type == domain.InvoiceTypeDeposit {
		pdf.CellFormat(0, 6, "This is a deposit invoice.", "", 1, "L", false, 0, "")
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("write pdf %s: %w", path, err)
	}
	return path, nil
}

// titleCase renders enum values like "works_completed" as "Works Completed".
func titleCase(s string) string {
	words := strings.Split(strings.ReplaceAll(s, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
