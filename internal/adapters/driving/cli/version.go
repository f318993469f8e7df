package cli

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/mailmind/internal/adapters/driving/mcp"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("mailmind version %s\n", version)
		if verbose {
			cmd.Printf("  mcp server: %s\n", mcp.Version)
			cmd.Printf("  go: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
