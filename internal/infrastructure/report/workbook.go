// Package report renders analyses into xlsx workbooks with charts.
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"ReviewScanner/internal/domain"
	"ReviewScanner/internal/infrastructure/export"
	"ReviewScanner/internal/ports"
)

const (
	summarySheet = "Summary"
	reviewsSheet = "Reviews"
)

// Workbook writes a count chart, a percentage chart and the labeled reviews.
type Workbook struct {
	dir string
}

var _ ports.ReportSink = (*Workbook)(nil)

// NewWorkbook targets dir; it is created on first write.
func NewWorkbook(dir string) *Workbook {
	return &Workbook{dir: dir}
}

func (w *Workbook) Name() string { return "workbook" }

// Deliver renders <product>_report.xlsx.
func (w *Workbook) Deliver(_ context.Context, analysis domain.Analysis) error {
	_, err := w.Render(analysis)
	return err
}

// Render builds the workbook and returns its path.
func (w *Workbook) Render(analysis domain.Analysis) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return "", fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeSummary(f, analysis.Report); err != nil {
		return "", err
	}
	if err := addCharts(f); err != nil {
		return "", err
	}
	if err := writeReviews(f, analysis.Reviews); err != nil {
		return "", err
	}

	path := filepath.Join(w.dir, export.CleanFilename(analysis.Report.ProductName)+"_report.xlsx")
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}
	return path, nil
}

func writeSummary(f *excelize.File, report domain.Report) error {
	rows := [][]any{
		{"Product", report.ProductName},
		{"URL", report.ProductURL},
		{"Label", "Count", "Percentage"},
		{"Fake", report.FakeCount, report.FakePercentage},
		{"Genuine", report.GenuineCount, report.GenuinePercentage},
		{"Total", report.Total, 100},
	}
	if report.Total == 0 {
		rows[5][2] = 0
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("summary cell: %w", err)
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("write summary row %d: %w", i+1, err)
		}
	}
	return nil
}

func addCharts(f *excelize.File) error {
	categories := summarySheet + "!$A$4:$A$5"

	counts := &excelize.Chart{
		Type: excelize.Col,
		Series: []excelize.ChartSeries{{
			Name:       summarySheet + "!$B$3",
			Categories: categories,
			Values:     summarySheet + "!$B$4:$B$5",
		}},
		Title: []excelize.RichTextRun{{Text: "Fake vs Genuine Reviews"}},
	}
	if err := f.AddChart(summarySheet, "E2", counts); err != nil {
		return fmt.Errorf("add count chart: %w", err)
	}

	shares := &excelize.Chart{
		Type: excelize.Pie,
		Series: []excelize.ChartSeries{{
			Name:       summarySheet + "!$C$3",
			Categories: categories,
			Values:     summarySheet + "!$C$4:$C$5",
		}},
		Title: []excelize.RichTextRun{{Text: "Review Distribution"}},
	}
	if err := f.AddChart(summarySheet, "E20", shares); err != nil {
		return fmt.Errorf("add percentage chart: %w", err)
	}
	return nil
}

func writeReviews(f *excelize.File, reviews []domain.LabeledReview) error {
	if _, err := f.NewSheet(reviewsSheet); err != nil {
		return fmt.Errorf("create reviews sheet: %w", err)
	}
	if err := f.SetSheetRow(reviewsSheet, "A1", &[]any{"#", "Review", "Label"}); err != nil {
		return fmt.Errorf("write reviews header: %w", err)
	}
	for i, review := range reviews {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("review cell: %w", err)
		}
		if err := f.SetSheetRow(reviewsSheet, cell, &[]any{i + 1, review.Text, string(review.Label)}); err != nil {
			return fmt.Errorf("write review %d: %w", i+1, err)
		}
	}
	return nil
}
