package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/mailmind/internal/connectors/google"
	gmailsource "github.com/custodia-labs/mailmind/internal/connectors/google/gmail"
	"github.com/custodia-labs/mailmind/internal/core/domain"
	"github.com/custodia-labs/mailmind/internal/logger"
	"github.com/custodia-labs/mailmind/internal/normalisers/eml"
)

// stdinPath reads the JSON batch from standard input.
const stdinPath = "-"

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Index past emails and rebuild the style profile",
	Long: `Index emails you have written so similar ones can be retrieved later, and
rebuild the writing-style profile from the same batch.

Sources can be combined in one run:
  --file      JSON array of {id, subject, body, from, to, received} ("-" for stdin)
  --eml-dir   directory of .eml files; quoted text becomes the received email
  --gmail     sent mail from Gmail (run 'mailmind gmail auth' first)

Re-ingesting an email with the same id replaces the stored copy. The style
profile reflects only the latest batch.

Examples:
  mailmind ingest --file sent.json
  mailmind ingest --eml-dir ~/Mail/Sent
  mailmind ingest --gmail --query "newer_than:1y" --max 300`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringP("file", "f", "", "JSON file with an array of emails")
	ingestCmd.Flags().String("eml-dir", "", "directory of .eml files")
	ingestCmd.Flags().Bool("gmail", false, "fetch sent mail from Gmail")
	ingestCmd.Flags().String("query", "", "Gmail search query")
	ingestCmd.Flags().Int("max", domain.DefaultMaxEmailHistory, "maximum number of Gmail messages to fetch")
	ingestCmd.Flags().Bool("json", false, "print the report as JSON")
	addGmailFileFlags(ingestCmd)
	requireCore(ingestCmd)
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	if core == nil {
		return errors.New("core not configured")
	}

	emails, err := collectEmails(cmd)
	if err != nil {
		return err
	}
	if len(emails) == 0 {
		return fmt.Errorf("%w: no emails found", domain.ErrInvalidInput)
	}

	report, err := core.IngestBatch(cmd.Context(), emails)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	asJSON, _ := cmd.Flags().GetBool("json") //nolint:errcheck // flag is registered above
	if asJSON {
		return writeJSON(cmd.OutOrStdout(), report)
	}

	cmd.Printf("Indexed %d of %d emails (%d skipped)\n", report.Indexed, report.Received, report.Skipped)
	if report.Profile != nil {
		cmd.Printf("Style: %s, %s, signs off with %q\n",
			report.Profile.Tone, report.Profile.AvgLength, report.Profile.SignOff)
	}
	cmd.Printf("Run: %s\n", report.RunID)
	return nil
}

// collectEmails gathers records from every source flag that was given.
func collectEmails(cmd *cobra.Command) ([]domain.EmailRecord, error) {
	path, _ := cmd.Flags().GetString("file")      //nolint:errcheck // flag is registered above
	emlDir, _ := cmd.Flags().GetString("eml-dir") //nolint:errcheck // flag is registered above
	useGmail, _ := cmd.Flags().GetBool("gmail")   //nolint:errcheck // flag is registered above

	if path == "" && emlDir == "" && !useGmail {
		return nil, fmt.Errorf("%w: give --file, --eml-dir or --gmail", domain.ErrInvalidInput)
	}

	var emails []domain.EmailRecord

	if path != "" {
		batch, err := readEmailFile(cmd, path)
		if err != nil {
			return nil, err
		}
		logger.Info("Read %d emails from %s", len(batch), path)
		emails = append(emails, batch...)
	}

	if emlDir != "" {
		batch, err := eml.New().LoadDir(cmd.Context(), emlDir)
		if err != nil {
			return nil, err
		}
		logger.Info("Parsed %d emails from %s", len(batch), emlDir)
		emails = append(emails, batch...)
	}

	if useGmail {
		batch, err := fetchGmail(cmd)
		if err != nil {
			return nil, err
		}
		logger.Info("Fetched %d emails from Gmail", len(batch))
		emails = append(emails, batch...)
	}

	return emails, nil
}

func readEmailFile(cmd *cobra.Command, path string) ([]domain.EmailRecord, error) {
	var r io.Reader
	if path == stdinPath {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening email file: %w", err)
		}
		defer f.Close()
		r = f
	}

	var emails []domain.EmailRecord
	if err := json.NewDecoder(r).Decode(&emails); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %w", domain.ErrInvalidInput, path, err)
	}
	return emails, nil
}

func fetchGmail(cmd *cobra.Command) ([]domain.EmailRecord, error) {
	credentialsPath, tokenPath, err := gmailPaths(cmd)
	if err != nil {
		return nil, err
	}
	query, _ := cmd.Flags().GetString("query") //nolint:errcheck // flag is registered above
	limit, _ := cmd.Flags().GetInt("max")      //nolint:errcheck // flag is registered above

	ctx := cmd.Context()
	ts, err := google.NewTokenSource(ctx, credentialsPath, tokenPath)
	if err != nil {
		if errors.Is(err, google.ErrNoToken) {
			return nil, fmt.Errorf("%w (run 'mailmind gmail auth')", err)
		}
		return nil, err
	}

	svc, err := google.NewGmailService(ctx, ts)
	if err != nil {
		return nil, err
	}

	cfg := gmailsource.DefaultConfig()
	cfg.Query = query
	cfg.MaxMessages = limit
	return gmailsource.NewFetcher(svc, nil, cfg).Fetch(ctx)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return nil
}
