package commands

import (
	"bufio"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"ReviewScanner/internal/app"
	"ReviewScanner/internal/domain"
)

var (
	analyzePages     int
	analyzeWaitLogin bool
)

func init() {
	analyzeCmd.Flags().IntVar(&analyzePages, "pages", 0, "Maximum review pages to visit (default from config).")
	analyzeCmd.Flags().BoolVar(&analyzeWaitLogin, "wait-login", false, "Open a visible browser and wait for Enter so you can sign in first.")
	rootCmd.AddCommand(analyzeCmd)
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <product-url> [--pages N] [--wait-login]",
	Short: "Opens a browser session, analyses one product and prints the verdict.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, logger := loadConfig()
		if analyzePages > 0 {
			cfg.Harvest.MaxPages = analyzePages
		}
		if analyzeWaitLogin {
			cfg.Browser.Headless = false
		}

		application, err := app.New(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer application.Close()

		handle, err := application.Sessions().Open(ctx)
		if err != nil {
			return err
		}
		logger.Info("session opened", "session_id", handle.ID, "home", handle.HomeURL)

		if analyzeWaitLogin {
			fmt.Fprintln(cmd.OutOrStdout(), "Sign in in the browser window, then press Enter to continue...")
			if err := waitForEnter(cmd.InOrStdin()); err != nil {
				return err
			}
		}

		report, err := application.Pipeline().Run(ctx, args[0])
		if err != nil {
			return err
		}
		renderReport(cmd.OutOrStdout(), report)
		return nil
	},
}

func waitForEnter(r io.Reader) error {
	_, err := bufio.NewReader(r).ReadString('\n')
	if err == io.EOF {
		return nil
	}
	return err
}

func renderReport(w io.Writer, report domain.Report) {
	t := newTable(w)
	t.SetTitle(report.ProductName)
	t.AppendHeader(table.Row{"Label", "Count", "Percentage"})
	t.AppendRows([]table.Row{
		{"Fake", report.FakeCount, fmt.Sprintf("%.2f%%", report.FakePercentage)},
		{"Genuine", report.GenuineCount, fmt.Sprintf("%.2f%%", report.GenuinePercentage)},
	})
	t.AppendFooter(table.Row{"Total", report.Total, ""})
	t.Render()
}
