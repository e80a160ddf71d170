// Package report renders monthly donation summaries as Excel and PDF files.
package report

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/xuri/excelize/v2"

	"donor-bot/internal/jalali"
	"donor-bot/internal/messages"
	"donor-bot/internal/repo"
)

var columnHeaders = []string{"نام کامل", "مبلغ حمایت", "وضعیت پرداخت"}

// Renderer builds report documents. FontPath, when set, points to a TTF with
// Persian glyph coverage used for PDF output; without it the PDF falls back
// to a core font and Persian text will not shape correctly.
type Renderer struct {
	FontPath string
}

// ExcelFilename returns the attachment name for a period's workbook.
func ExcelFilename(month, year int) string {
	return fmt.Sprintf("monthly_report_%d_%02d.xlsx", year, month)
}

// PDFFilename returns the attachment name for a period's PDF.
func PDFFilename(month, year int) string {
	return fmt.Sprintf("monthly_report_%d_%02d.pdf", year, month)
}

// Excel renders the summary rows as an xlsx workbook.
func (r *Renderer) Excel(month, year int, rows []repo.SummaryRow) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	rtl := true
	if err := f.SetSheetView(sheet, 0, &excelize.ViewOptions{RightToLeft: &rtl}); err != nil {
		return nil, fmt.Errorf("set sheet view: %w", err)
	}
	if err := f.SetColWidth(sheet, "A", "C", 28); err != nil {
		return nil, fmt.Errorf("set col width: %w", err)
	}

	title := fmt.Sprintf("گزارش ماهانه %s %d", jalali.MonthName(month), year)
	if err := f.SetCellValue(sheet, "A1", title); err != nil {
		return nil, fmt.Errorf("set title: %w", err)
	}
	for i, header := range columnHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, fmt.Errorf("set header %s: %w", cell, err)
		}
	}
	for i, row := range rows {
		values := []string{row.FullName, row.DonationAmount, messages.PaymentStatusLabel(row.PaymentStatus)}
		for j, value := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+3)
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf, nil
}

// PDF renders the summary rows as a simple three-column table.
func (r *Renderer) PDF(month, year int, rows []repo.SummaryRow) (*bytes.Buffer, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Monthly report %d/%02d", year, month), true)
	pdf.AddPage()

	family := "Helvetica"
	if r.FontPath != "" {
		family = "report"
		pdf.AddUTF8Font(family, "", r.FontPath)
	}

	pdf.SetFont(family, "", 14)
	pdf.CellFormat(0, 10, fmt.Sprintf("%s %d", jalali.MonthName(month), year), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	colWidths := []float64{70, 55, 55}
	pdf.SetFont(family, "", 11)
	for i, header := range columnHeaders {
		pdf.CellFormat(colWidths[i], 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont(family, "", 10)
	for _, row := range rows {
		values := []string{row.FullName, row.DonationAmount, messages.PaymentStatusLabel(row.PaymentStatus)}
		for i, value := range values {
			pdf.CellFormat(colWidths[i], 7, value, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return &buf, nil
}
