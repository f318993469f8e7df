package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/mailmind/internal/core/domain"
)

// previewChars limits how much of each text is shown in the listing.
const previewChars = 200

var retrieveCmd = &cobra.Command{
	Use:   "retrieve [email-body]",
	Short: "Find past replies to similar emails",
	Long: `Find the past emails most similar to an incoming one and show what you
replied. Pass the incoming body as an argument, or "-" to read it from stdin.

Matches beyond the configured distance threshold are left out, so an empty
result means nothing similar has been indexed yet.`,
	Args: cobra.ExactArgs(1),
	RunE: runRetrieve,
}

func init() {
	retrieveCmd.Flags().IntP("limit", "n", 0, "maximum number of results (default max_rag_results)")
	retrieveCmd.Flags().Bool("json", false, "print results as JSON")
	requireCore(retrieveCmd)
	rootCmd.AddCommand(retrieveCmd)
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	if core == nil {
		return errors.New("core not configured")
	}

	body := args[0]
	if body == stdinPath {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		body = string(data)
	}
	if strings.TrimSpace(body) == "" {
		return fmt.Errorf("%w: email body is empty", domain.ErrInvalidInput)
	}

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return fmt.Errorf("getting limit flag: %w", err)
	}
	if limit < 0 {
		return fmt.Errorf("%w: limit must not be negative", domain.ErrInvalidInput)
	}

	results := core.Retrieve(cmd.Context(), body, limit)

	asJSON, _ := cmd.Flags().GetBool("json") //nolint:errcheck // flag is registered above
	if asJSON {
		return writeJSON(cmd.OutOrStdout(), results)
	}

	if len(results) == 0 {
		cmd.Println("No similar emails found.")
		return nil
	}

	cmd.Printf("Found %d similar emails:\n\n", len(results))
	for i, r := range results {
		cmd.Printf("%d. %s (similarity %.3f)\n", i+1, r.Subject, r.Similarity)
		if r.Received != "" {
			cmd.Printf("   Received: %s\n", preview(r.Received))
		}
		cmd.Printf("   Replied:  %s\n\n", preview(r.Reply))
	}
	return nil
}

// preview flattens whitespace and shortens s for one-line display.
func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if short := domain.Truncate(s, previewChars); short != s {
		return short + "..."
	}
	return s
}
