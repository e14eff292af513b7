package main

import (
	"fmt"
	"os"

	"cufetch/pkg/auth"
	"cufetch/pkg/config"
	"cufetch/pkg/ui"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var forceInit bool

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage cufetch configuration files.

Configuration is loaded from, in order of priority:
  - Command line flags
  - Environment variables (CLICKUP_TOKEN, TEAM_ID, CUFETCH_*)
  - .env files
  - Configuration file (.yaml, .yml or .toml)
  - Default values`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the default values",
	Long: `Write a configuration file with every option set to its default.

The file is created as '.cufetch.yaml' in the current directory unless a
different path is given with --config. The token is left out; store it with
'cufetch auth login' instead.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after merging every source. The token is masked.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)

	initCmd.Flags().BoolVar(&forceInit, "force", false, "overwrite an existing file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = ".cufetch.yaml"
	}

	if _, err := os.Stat(configPath); err == nil && !forceInit {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	cfg := config.DefaultConfig()
	cfg.MergeCommandLineFlags(commandFlags(cmd))
	cfg.ClickUp.Token = ""

	if err := cfg.Save(configPath); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	ui.NewConsole(out).PrintSuccess("Configuration file created: " + configPath)
	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "1. Run 'cufetch auth login' to store your API token")
	fmt.Fprintln(out, "2. Set clickup.team_id in the file (see 'cufetch teams')")
	fmt.Fprintln(out, "3. Start downloading with 'cufetch fetch'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	display := *cfg
	if display.ClickUp.Token != "" {
		display.ClickUp.Token = auth.MaskToken(display.ClickUp.Token)
	}

	data, err := yaml.Marshal(&display)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	out := cmd.OutOrStdout()
	console := ui.NewConsole(out)
	console.Printf("%s\n\n", console.Bold("Current Configuration"))
	fmt.Fprint(out, string(data))

	fmt.Fprintln(out, "\nConfiguration sources (in order of priority):")
	fmt.Fprintln(out, "1. Command line flags")
	fmt.Fprintln(out, "2. Environment variables (CLICKUP_TOKEN, TEAM_ID, CUFETCH_*)")
	if configFile != "" {
		fmt.Fprintf(out, "3. Configuration file: %s\n", configFile)
	} else {
		fmt.Fprintln(out, "3. Configuration file: (searched in ., ~/.config/cufetch)")
	}
	fmt.Fprintln(out, "4. Default values")
	return nil
}
