package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"cufetch/pkg/auth"
	"cufetch/pkg/config"
	"cufetch/pkg/logger"
	"cufetch/pkg/scraper"
	"cufetch/pkg/ui"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	showGuide  bool
	skipVerify bool
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the stored ClickUp API token",
	Long: `Manage the stored ClickUp API token.

Tokens are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - The CLICKUP_TOKEN environment variable is read but never written

Never share your token or config files!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store a ClickUp API token",
	Long: `Store a ClickUp personal API token in the system keychain or encrypted file.

The token is read without echo. It is checked against the API before it is
stored unless --no-verify is given.`,
	Example: `  # Interactive login
  cufetch auth login

  # Remember the workspace too
  cufetch auth login --team 1234567

  # Pipe the token in
  echo "$TOKEN" | cufetch auth login --profile work`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored token",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

// statusCmd represents the auth status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show where the token comes from",
	Long:  `Show the stored profiles with masked tokens and which store serves the active profile.`,
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(statusCmd)

	loginCmd.Flags().BoolVar(&showGuide, "guide", false, "show how to create a token first")
	loginCmd.Flags().BoolVar(&skipVerify, "no-verify", false, "store the token without checking it")
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := newCredentialManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	out := cmd.OutOrStdout()
	console := ui.NewConsole(out)

	if showGuide {
		auth.ShowTokenGuide(out)
	} else {
		auth.ShowQuickTokenGuide(out)
	}

	fmt.Fprint(out, "ClickUp API token: ")
	secret, err := readSecret(cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("failed to read token: %w", err)
	}
	if secret == "" {
		return errors.New("token is required")
	}
	if !strings.HasPrefix(secret, "pk_") {
		console.PrintWarning("Personal tokens usually start with pk_")
	}

	if !skipVerify {
		if err := verifyToken(cmd, secret); err != nil {
			return err
		}
		console.PrintCheck("Token accepted by ClickUp")
	}

	cred := &auth.Credential{
		Profile: profile,
		Token:   secret,
		TeamID:  teamID,
	}
	location, err := manager.Store(cred)
	if err != nil {
		return err
	}

	console.PrintSuccess(fmt.Sprintf("Token saved for profile %q", cred.Profile))
	console.PrintInfo("Stored in", location)
	console.PrintInfo("Token", auth.MaskToken(secret))
	if teamID == "" {
		fmt.Fprintln(out, "\nRun 'cufetch teams' to find your workspace id, then:")
		fmt.Fprintln(out, "  cufetch fetch --team <id>")
	}
	return nil
}

// verifyToken lists workspaces with the token to make sure it works
func verifyToken(cmd *cobra.Command, secret string) error {
	cfg := config.DefaultConfig()
	if err := cfg.LoadFromFile(configFile); err != nil {
		return err
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return err
	}
	cfg.MergeCommandLineFlags(commandFlags(cmd))
	cfg.ClickUp.Token = secret

	client := scraper.NewClient(cfg, logger.NewNopLogger())
	if _, err := client.Teams(cmdContext(cmd)); err != nil {
		return fmt.Errorf("token check failed: %w", err)
	}
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := newCredentialManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	if err := manager.Delete(profile); err != nil {
		return err
	}

	console := ui.NewConsole(cmd.OutOrStdout())
	console.PrintSuccess(fmt.Sprintf("Token removed for profile %q", profile))
	if os.Getenv(auth.TokenEnv) != "" {
		console.PrintWarning(auth.TokenEnv + " is still set in the environment")
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	manager, err := newCredentialManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	console := ui.NewConsole(cmd.OutOrStdout())

	creds, err := manager.List()
	if err != nil {
		return err
	}
	if len(creds) == 0 {
		console.PrintWarning("No token found. Run 'cufetch auth login' or set " + auth.TokenEnv)
		return nil
	}

	for _, cred := range creds {
		masked := auth.Sanitize(cred)
		console.Printf("%s\n", console.Bold(masked.Profile))
		console.PrintInfo("  Token", masked.Token)
		if masked.TeamID != "" {
			console.PrintInfo("  Workspace", masked.TeamID)
		}
		if !masked.LastModified.IsZero() {
			console.PrintInfo("  Saved", masked.LastModified.Format("2006-01-02 15:04:05"))
		}
	}

	if location, ok := manager.Locate(profile); ok {
		console.PrintCheck(fmt.Sprintf("Profile %q is served by the %s store", profile, location))
	} else {
		console.PrintWarning(fmt.Sprintf("Profile %q has no token", profile))
	}
	return nil
}

// readSecret reads a line without echo when in is an interactive terminal
func readSecret(in io.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Println() // New line after password
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(secret)), nil
	}

	// Fallback to regular input
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
