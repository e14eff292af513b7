package main

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"cufetch/pkg/auth"
	"cufetch/pkg/config"
	apierrors "cufetch/pkg/errors"
	"cufetch/pkg/logger"

	"github.com/spf13/cobra"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	token      string
	teamID     string
	outputDir  string
	logLevel   string
	logFile    string
	profile    string
	noColor    bool
)

// newCredentialManager is replaced in tests
var newCredentialManager = auth.NewManager

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cufetch",
	Short: "Download every image attached to tasks in a ClickUp workspace",
	Long: `cufetch walks a ClickUp workspace (spaces, folders, lists, tasks) and downloads
every image attachment into <output>/<space>/<list>/<file>.

Progress is kept in three JSON ledgers in the output directory, so an
interrupted run picks up where it stopped and a finished run can be repeated
without downloading anything twice.

Running cufetch without a subcommand is the same as 'cufetch fetch'.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			os.Setenv("NO_COLOR", "1")
		}
	},
	Args:          cobra.NoArgs,
	RunE:          runFetch,
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default .cufetch.yaml or ~/.config/cufetch/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "ClickUp API token (default from CLICKUP_TOKEN or 'cufetch auth login')")
	rootCmd.PersistentFlags().StringVarP(&teamID, "team", "t", "", "workspace id (default from TEAM_ID)")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "output directory (default images_download)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to this file instead of stderr")
	rootCmd.PersistentFlags().StringVar(&profile, "profile", auth.DefaultProfile, "stored credential profile")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	addFetchFlags(rootCmd)

	// Version template
	rootCmd.SetVersionTemplate(`cufetch {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	// Disable default completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// commandFlags collects the flags the user actually set, keyed the way
// config.MergeCommandLineFlags expects
func commandFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	set := cmd.Flags()

	for _, name := range []string{"token", "team", "output", "log-level", "log-file", "api-url"} {
		if f := set.Lookup(name); f != nil && f.Changed {
			flags[name] = f.Value.String()
		}
	}
	if f := set.Lookup("rate-delay"); f != nil && f.Changed {
		if d, err := time.ParseDuration(f.Value.String()); err == nil {
			flags["rate-delay"] = d
		}
	}
	if f := set.Lookup("download-timeout"); f != nil && f.Changed {
		if d, err := time.ParseDuration(f.Value.String()); err == nil {
			flags["download-timeout"] = d
		}
	}
	if f := set.Lookup("requests-per-minute"); f != nil && f.Changed {
		if n, err := set.GetInt("requests-per-minute"); err == nil {
			flags["requests-per-minute"] = n
		}
	}
	return flags
}

// loadConfig loads configuration from every source and initializes logging
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFile, commandFlags(cmd))
	if err != nil {
		return nil, err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

// resolveCredentials fills the token (and workspace id, if still unset) from
// the credential store when configuration did not provide them
func resolveCredentials(cfg *config.Config, needTeam bool) error {
	if cfg.ClickUp.Token == "" || (needTeam && cfg.ClickUp.TeamID == "") {
		manager, err := newCredentialManager()
		if err != nil {
			logger.WithError(err).Warn("Credential store unavailable")
		} else if cred, err := manager.Retrieve(profile); err == nil {
			if cfg.ClickUp.Token == "" {
				cfg.ClickUp.Token = cred.Token
				logger.WithField("profile", cred.Profile).Info("Using stored credentials")
			}
			if cfg.ClickUp.TeamID == "" {
				cfg.ClickUp.TeamID = cred.TeamID
			}
		}
	}

	return cfg.ValidateCredentials(needTeam)
}

// explainAuth adds a hint to errors caused by a token ClickUp rejected
func explainAuth(err error) error {
	if !apierrors.IsAuth(err) {
		return err
	}
	return fmt.Errorf("%w\nClickUp rejected the token; run 'cufetch auth login' or check %s", err, auth.TokenEnv)
}
