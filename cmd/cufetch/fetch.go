package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cufetch/pkg/logger"
	"cufetch/pkg/scraper"
	"cufetch/pkg/ui"

	"github.com/spf13/cobra"
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download all image attachments of a workspace",
	Long: `Download every image attachment of every task in a ClickUp workspace.

Tasks already recorded in the processed-task ledger are skipped without any
API call. Files whose metadata record matches the attachment URL and on-disk
size are not downloaded again. Press Ctrl+C to stop; progress is saved after
every file and every task.`,
	Example: `  # Use CLICKUP_TOKEN and TEAM_ID from the environment or .env
  cufetch fetch

  # Explicit workspace and output directory
  cufetch fetch --team 1234567 --output ./images

  # Slower pacing for large workspaces
  cufetch fetch --rate-delay 1s --requests-per-minute 60`,
	Args: cobra.NoArgs,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	addFetchFlags(fetchCmd)
}

func addFetchFlags(cmd *cobra.Command) {
	cmd.Flags().Duration("rate-delay", 600*time.Millisecond, "delay after every page, download and task")
	cmd.Flags().Int("requests-per-minute", 85, "hard ceiling on API requests per minute (0 disables)")
	cmd.Flags().Duration("download-timeout", 30*time.Second, "timeout for each attachment download")
	cmd.Flags().String("api-url", "", "ClickUp API root (default https://api.clickup.com/api/v2)")
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := resolveCredentials(cfg, true); err != nil {
		return err
	}

	log := logger.GetLogger()
	logger.LogComponentStart(log, "fetch", map[string]interface{}{
		"version":    version,
		"team_id":    cfg.ClickUp.TeamID,
		"output_dir": cfg.Output.BaseDirectory,
		"rate_delay": cfg.RateLimit.Delay,
	})

	console := ui.NewConsole(cmd.OutOrStdout())
	s, err := scraper.NewFromConfig(cfg, log, console)
	if err != nil {
		return err
	}

	// Stop between units of work on Ctrl+C or SIGTERM
	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := s.Run(ctx)
	if err != nil {
		log.WithError(err).Error("Fetch failed")
		return explainAuth(err)
	}

	log.InfoWithFields("Fetch completed", map[string]interface{}{
		"run_id":      summary.RunID,
		"downloaded":  summary.Downloaded,
		"failed":      summary.Failed,
		"interrupted": summary.Interrupted,
	})
	return nil
}

// cmdContext returns the command's context, or Background when run outside Execute
func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
