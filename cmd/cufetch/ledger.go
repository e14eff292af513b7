package main

import (
	"fmt"
	"time"

	"cufetch/pkg/config"
	"cufetch/pkg/ledger"
	"cufetch/pkg/logger"
	"cufetch/pkg/scraper"
	"cufetch/pkg/ui"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var failureLimit int

// ledgerCmd represents the ledger command
var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect the resume ledgers in the output directory",
}

// ledgerStatusCmd represents the ledger status command
var ledgerStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarize downloads, processed tasks and failures",
	Args:  cobra.NoArgs,
	RunE:  runLedgerStatus,
}

// ledgerFailuresCmd represents the ledger failures command
var ledgerFailuresCmd = &cobra.Command{
	Use:   "failures",
	Short: "List failed downloads, newest first",
	Args:  cobra.NoArgs,
	RunE:  runLedgerFailures,
}

func init() {
	rootCmd.AddCommand(ledgerCmd)
	ledgerCmd.AddCommand(ledgerStatusCmd)
	ledgerCmd.AddCommand(ledgerFailuresCmd)

	ledgerFailuresCmd.Flags().IntVarP(&failureLimit, "limit", "n", 20, "show at most this many failures (0 for all)")
}

func openLedger(cmd *cobra.Command) (*ledger.Ledger, *config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	return scraper.NewLedger(cfg, logger.GetLogger()), cfg, nil
}

func runLedgerStatus(cmd *cobra.Command, args []string) error {
	l, cfg, err := openLedger(cmd)
	if err != nil {
		return err
	}

	stats := l.Stats()
	console := ui.NewConsole(cmd.OutOrStdout())

	console.PrintInfo("Output directory", l.Root())
	console.PrintInfo("Downloaded files", fmt.Sprintf("%s (%s)", humanize.Comma(int64(stats.Downloads)), humanize.Bytes(uint64(stats.DownloadBytes))))
	console.PrintInfo("Processed tasks", humanize.Comma(int64(stats.ProcessedTasks)))
	console.PrintInfo("Failed downloads", humanize.Comma(int64(stats.Failures)))

	var latest float64
	for _, record := range l.Metadata() {
		if record.DownloadedAt > latest {
			latest = record.DownloadedAt
		}
	}
	if latest > 0 {
		console.PrintInfo("Last download", humanize.Time(unixSeconds(latest)))
	}

	console.PrintStatus("Ledger files")
	for _, path := range []string{cfg.MetadataPath(), cfg.ProcessedTasksPath(), cfg.FailedDownloadsPath()} {
		console.PrintDetail(path)
	}
	return nil
}

func runLedgerFailures(cmd *cobra.Command, args []string) error {
	l, _, err := openLedger(cmd)
	if err != nil {
		return err
	}

	console := ui.NewConsole(cmd.OutOrStdout())
	failures := l.Failures()
	if len(failures) == 0 {
		console.PrintCheck("No failed downloads")
		return nil
	}

	shown := 0
	for i := len(failures) - 1; i >= 0; i-- {
		if failureLimit > 0 && shown == failureLimit {
			break
		}
		f := failures[i]
		console.PrintError(fmt.Sprintf("%s (%s)", f.Dest, humanize.Time(unixSeconds(f.FailedAt))))
		console.PrintDetail("url:   " + f.URL)
		console.PrintDetail("error: " + f.Error)
		shown++
	}

	if shown < len(failures) {
		console.PrintInfo("Showing", fmt.Sprintf("%d of %d (use --limit 0 for all)", shown, len(failures)))
	}
	return nil
}

// unixSeconds converts a fractional Unix timestamp
func unixSeconds(ts float64) time.Time {
	return time.Unix(0, int64(ts*float64(time.Second)))
}
