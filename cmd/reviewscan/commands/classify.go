package commands

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"ReviewScanner/internal/app"
	"ReviewScanner/internal/domain"
	"ReviewScanner/internal/textnorm"
)

func init() {
	rootCmd.AddCommand(classifyCmd)
}

var classifyCmd = &cobra.Command{
	Use:   "classify < reviews.txt",
	Short: "Labels review texts read from stdin, one per line, without a browser.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger := loadConfig()

		classifier, err := app.NewClassifier(cmd.Context(), cfg.Classifier, logger)
		if err != nil {
			return err
		}

		texts, err := readLines(cmd.InOrStdin())
		if err != nil {
			return err
		}
		if len(texts) == 0 {
			return fmt.Errorf("no review text on stdin")
		}

		labels, err := classifier.Classify(cmd.Context(), textnorm.NormalizeAll(texts))
		if err != nil {
			return err
		}
		renderLabels(cmd.OutOrStdout(), texts, labels)
		return nil
	},
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

func renderLabels(w io.Writer, texts []string, labels []domain.Label) {
	t := newTable(w)
	t.AppendHeader(table.Row{"#", "Review", "Label"})
	for i, text := range texts {
		if i >= len(labels) {
			break
		}
		t.AppendRow(table.Row{i + 1, truncate(text, 60), string(labels[i])})
	}
	t.Render()
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
