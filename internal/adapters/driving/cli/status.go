package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index and profile status",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().Bool("json", false, "print status as JSON")
	requireCore(statusCmd)
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if core == nil {
		return errors.New("core not configured")
	}

	status := core.Status(cmd.Context())

	asJSON, _ := cmd.Flags().GetBool("json") //nolint:errcheck // flag is registered above
	if asJSON {
		return writeJSON(cmd.OutOrStdout(), status)
	}

	cmd.Printf("Backend:         %s\n", status.Backend)
	cmd.Printf("Embedding model: %s\n", status.EmbeddingModel)
	if status.EmbeddingError != "" {
		cmd.Printf("Embedding:       unreachable (%s)\n", status.EmbeddingError)
	}
	if status.CountError != "" {
		cmd.Printf("Indexed emails:  unknown (%s)\n", status.CountError)
	} else {
		cmd.Printf("Indexed emails:  %d\n", status.Count)
	}
	if status.ProfilePresent {
		cmd.Println("Style profile:   present")
	} else {
		cmd.Println("Style profile:   not built yet")
	}
	return nil
}
