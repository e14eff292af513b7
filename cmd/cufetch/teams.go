package main

import (
	"fmt"
	"sort"

	"cufetch/pkg/logger"
	"cufetch/pkg/ratelimit"
	"cufetch/pkg/scraper"
	"cufetch/pkg/ui"
	"cufetch/pkg/walker"

	"github.com/spf13/cobra"
)

var showSpaces bool

// teamsCmd represents the teams command
var teamsCmd = &cobra.Command{
	Use:   "teams",
	Short: "List the workspaces the token can access",
	Long: `List the workspaces (teams) the token can access, with the id to pass as
--team or TEAM_ID. With --spaces, also list each workspace's spaces.`,
	Args: cobra.NoArgs,
	RunE: runTeams,
}

func init() {
	rootCmd.AddCommand(teamsCmd)
	teamsCmd.Flags().BoolVar(&showSpaces, "spaces", false, "also list the spaces of each workspace")
}

func runTeams(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := resolveCredentials(cfg, false); err != nil {
		return err
	}

	log := logger.GetLogger()
	client := scraper.NewClient(cfg, log)
	console := ui.NewConsole(cmd.OutOrStdout())
	ctx := cmdContext(cmd)

	teams, err := client.Teams(ctx)
	if err != nil {
		return explainAuth(fmt.Errorf("failed to list workspaces: %w", err))
	}
	if len(teams) == 0 {
		console.PrintWarning("The token has no accessible workspaces")
		return nil
	}

	w := walker.New(client, ratelimit.NoDelay{}, log)
	for _, team := range teams {
		console.PrintInfo(team.ID, team.Name)
		if !showSpaces {
			continue
		}

		spaces, err := w.ListSpaces(ctx, team.ID)
		if err != nil {
			console.PrintError("  Failed to list spaces", err)
			continue
		}
		ids := make([]string, 0, len(spaces))
		for id := range spaces {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			console.PrintDetail(fmt.Sprintf("%s  %s", id, spaces[id]))
		}
	}
	return nil
}
