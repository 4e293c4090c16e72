package reports

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"solarsync/internal/observability/metrics"
)

// BuildYearlyXLSX renders a yearly summary workbook.
func BuildYearlyXLSX(sum YearlySummary) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "summary"
	f.SetSheetName("Sheet1", sheet)

	_ = f.SetCellValue(sheet, "A1", fmt.Sprintf("Energy report %d", sum.Year))
	_ = f.SetCellValue(sheet, "A3", "Month")
	_ = f.SetCellValue(sheet, "B3", "Days")
	_ = f.SetCellValue(sheet, "C3", "Generated (kWh)")
	_ = f.SetCellValue(sheet, "D3", "Feed-in (kWh)")
	_ = f.SetCellValue(sheet, "E3", "Purchase (kWh)")
	_ = f.SetCellValue(sheet, "F3", "Generated income")
	_ = f.SetCellValue(sheet, "G3", "Feed-in income")
	_ = f.SetCellValue(sheet, "H3", "Total income")

	for i, m := range sum.Months {
		row := i + 4
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("%d-%02d", m.Year, int(m.Month)))
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), m.Days)
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), m.GeneratedKWh)
		_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", row), m.FeedInKWh)
		_ = f.SetCellValue(sheet, fmt.Sprintf("E%d", row), m.PurchasedKWh)
		_ = f.SetCellValue(sheet, fmt.Sprintf("F%d", row), m.GeneratedIncome)
		_ = f.SetCellValue(sheet, fmt.Sprintf("G%d", row), m.FeedInIncome)
		_ = f.SetCellValue(sheet, fmt.Sprintf("H%d", row), m.TotalIncome)
	}
	totalRow := len(sum.Months) + 4
	_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", totalRow), "Total")
	_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", totalRow), sum.GeneratedKWh)
	_ = f.SetCellValue(sheet, fmt.Sprintf("F%d", totalRow), sum.GeneratedIncome)
	_ = f.SetCellValue(sheet, fmt.Sprintf("G%d", totalRow), sum.FeedInIncome)
	_ = f.SetCellValue(sheet, fmt.Sprintf("H%d", totalRow), sum.TotalIncome)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildYearlyPDF renders a yearly summary as a one-page PDF table.
func BuildYearlyPDF(sum YearlySummary) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, fmt.Sprintf("Energy report %d", sum.Year))
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(22, 6, "Month", "1", 0, "C", false, 0, "")
	pdf.CellFormat(14, 6, "Days", "1", 0, "C", false, 0, "")
	pdf.CellFormat(34, 6, "Generated kWh", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Feed-in kWh", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Gen. income", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Feed-in income", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Total income", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	for _, m := range sum.Months {
		pdf.CellFormat(22, 6, fmt.Sprintf("%d-%02d", m.Year, int(m.Month)), "1", 0, "C", false, 0, "")
		pdf.CellFormat(14, 6, fmt.Sprintf("%d", m.Days), "1", 0, "R", false, 0, "")
		pdf.CellFormat(34, 6, fmt.Sprintf("%.1f", m.GeneratedKWh), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%.1f", m.FeedInKWh), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%.2f", m.GeneratedIncome), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%.2f", m.FeedInIncome), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%.2f", m.TotalIncome), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(36, 6, "Total", "1", 0, "C", false, 0, "")
	pdf.CellFormat(34, 6, fmt.Sprintf("%.1f", sum.GeneratedKWh), "1", 0, "R", false, 0, "")
	pdf.CellFormat(30, 6, fmt.Sprintf("%.1f", sum.FeedInKWh), "1", 0, "R", false, 0, "")
	pdf.CellFormat(30, 6, fmt.Sprintf("%.2f", sum.GeneratedIncome), "1", 0, "R", false, 0, "")
	pdf.CellFormat(30, 6, fmt.Sprintf("%.2f", sum.FeedInIncome), "1", 0, "R", false, 0, "")
	pdf.CellFormat(30, 6, fmt.Sprintf("%.2f", sum.TotalIncome), "1", 0, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Export renders a yearly summary into path; the format follows the file
// extension (.xlsx or .pdf).
func Export(sum YearlySummary, path string) error {
	var (
		data   []byte
		err    error
		format string
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		format = "xlsx"
		data, err = BuildYearlyXLSX(sum)
	case ".pdf":
		format = "pdf"
		data, err = BuildYearlyPDF(sum)
	default:
		return fmt.Errorf("reports: unsupported export extension %q", filepath.Ext(path))
	}
	if err != nil {
		metrics.IncReportExport(format, metrics.ResultError)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		metrics.IncReportExport(format, metrics.ResultError)
		return err
	}
	metrics.IncReportExport(format, metrics.ResultSuccess)
	return nil
}
