// Package export writes harvested reviews to CSV files.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ReviewScanner/internal/domain"
	"ReviewScanner/internal/ports"
)

const maxNameLength = 50

// CSVWriter stores the labeled reviews of every analysis under dir.
type CSVWriter struct {
	dir string
}

var _ ports.ReportSink = (*CSVWriter)(nil)

// NewCSVWriter targets dir; it is created on first write.
func NewCSVWriter(dir string) *CSVWriter {
	return &CSVWriter{dir: dir}
}

func (w *CSVWriter) Name() string { return "csv" }

// Deliver writes <product>_reviews.csv, replacing any earlier export for the same product.
func (w *CSVWriter) Deliver(_ context.Context, analysis domain.Analysis) error {
	_, err := w.Write(analysis)
	return err
}

// Write stores the export and returns its path.
func (w *CSVWriter) Write(analysis domain.Analysis) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	path := filepath.Join(w.dir, CleanFilename(analysis.Report.ProductName)+"_reviews.csv")
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create csv: %w", err)
	}

	writer := csv.NewWriter(file)
	records := make([][]string, 0, len(analysis.Reviews)+1)
	records = append(records, []string{"review", "normalized", "label"})
	for _, review := range analysis.Reviews {
		records = append(records, []string{review.Text, review.Normalized, string(review.Label)})
	}

	if err := writer.WriteAll(records); err != nil {
		_ = file.Close()
		return "", fmt.Errorf("write csv: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("close csv: %w", err)
	}
	return path, nil
}

// CleanFilename strips characters that are invalid in file names,
// replaces spaces with underscores and truncates to 50 characters.
func CleanFilename(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '\\', '/', '*', '?', ':', '"', '<', '>', '|':
			return -1
		case ' ':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))

	runes := []rune(cleaned)
	if len(runes) > maxNameLength {
		runes = runes[:maxNameLength]
	}
	if len(runes) == 0 {
		return "product"
	}
	return string(runes)
}
