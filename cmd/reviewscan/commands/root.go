package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"ReviewScanner/internal/config"
	"ReviewScanner/internal/logging"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:           "reviewscan",
	Short:         "reviewscan scrapes product reviews and flags the computer-generated ones.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Overrides the configured log level.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (config.Config, *slog.Logger) {
	cfg := config.Load()
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, logging.NewWithFormat(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}
