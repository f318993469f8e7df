package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show the writing-style profile",
	Long: `Print the writing-style profile built by the last ingestion as JSON.
Prints {} when nothing has been ingested yet.`,
	Args: cobra.NoArgs,
	RunE: runProfile,
}

func init() {
	requireCore(profileCmd)
	rootCmd.AddCommand(profileCmd)
}

func runProfile(cmd *cobra.Command, _ []string) error {
	if core == nil {
		return errors.New("core not configured")
	}

	profile := core.StyleProfile(cmd.Context())
	if profile == nil {
		cmd.Println("{}")
		return nil
	}
	return writeJSON(cmd.OutOrStdout(), profile)
}
