package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// InvoiceLine is one billable row on a rendered invoice.
type InvoiceLine struct {
	Name        string
	Description string
	Quantity    int
	Price       float64
}

// InvoiceDocument carries everything needed to render an invoice PDF.
type InvoiceDocument struct {
	Number          string
	BusinessName    string
	CustomerName    string
	CustomerEmail   string
	CustomerAddress string
	IssueDate       string
	Lines           []InvoiceLine
	TaxRate         float64
}

// InvoicePDFExporter renders invoices into printable PDF documents.
type InvoicePDFExporter struct{}

// NewInvoicePDFExporter constructs an invoice PDF exporter.
func NewInvoicePDFExporter() *InvoicePDFExporter {
	return &InvoicePDFExporter{}
}

// Render produces the PDF bytes for an invoice.
func (e *InvoicePDFExporter) Render(doc InvoiceDocument) ([]byte, error) {
	if len(doc.Lines) == 0 {
		return nil, fmt.Errorf("invoice requires at least one line item")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(12, 15, 12)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, strings.ToUpper(doc.BusinessName), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Invoice %s", doc.Number), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Issued %s", doc.IssueDate), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 6, "Bill To", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	for _, line := range []string{doc.CustomerName, doc.CustomerEmail, doc.CustomerAddress} {
		if line != "" {
			pdf.CellFormat(0, 5, line, "", 1, "L", false, 0, "")
		}
	}
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(96, 8, "Service", "1", 0, "L", false, 0, "")
	pdf.CellFormat(20, 8, "Qty", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 8, "Price", "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 8, "Amount", "1", 1, "R", false, 0, "")

	pdf.SetFont("Arial", "", 9)
	subtotal := 0.0
	for _, line := range doc.Lines {
		qty := line.Quantity
		if qty <= 0 {
			qty = 1
		}
		amount := float64(qty) * line.Price
		subtotal += amount

		name := line.Name
		if line.Description != "" {
			name = fmt.Sprintf("%s - %s", line.Name, line.Description)
		}
		pdf.CellFormat(96, 7, name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 7, fmt.Sprintf("%d", qty), "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 7, fmt.Sprintf("$%.2f", line.Price), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 7, fmt.Sprintf("$%.2f", amount), "1", 1, "R", false, 0, "")
	}

	tax := subtotal * doc.TaxRate / 100
	total := subtotal + tax

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(151, 7, "Subtotal", "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 7, fmt.Sprintf("$%.2f", subtotal), "1", 1, "R", false, 0, "")
	pdf.CellFormat(151, 7, fmt.Sprintf("Sales Tax (%.2f%%)", doc.TaxRate), "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 7, fmt.Sprintf("$%.2f", tax), "1", 1, "R", false, 0, "")
	pdf.CellFormat(151, 7, "Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 7, fmt.Sprintf("$%.2f", total), "1", 1, "R", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render invoice pdf: %w", err)
	}
	return buf.Bytes(), nil
}
