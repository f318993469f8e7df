package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/mailmind/internal/adapters/driving/oauth"
	"github.com/custodia-labs/mailmind/internal/connectors/google"
	"github.com/custodia-labs/mailmind/internal/logger"
)

// Default Gmail credential file names inside the config directory.
const (
	gmailCredentialsFile = "gmail_credentials.json"
	gmailTokenFile       = "gmail_token.json"

	authTimeout = 5 * time.Minute
)

var gmailCmd = &cobra.Command{
	Use:   "gmail",
	Short: "Gmail account commands",
	Long: `Commands for connecting MailMind to a Gmail account.

Download an OAuth client (type "Desktop app") from the Google Cloud console and
save it as gmail_credentials.json in the config directory, or pass its path
with --credentials.`,
}

var gmailAuthCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorise read-only access to Gmail",
	Long: `Open the Google consent page and store the resulting token.

A temporary server on 127.0.0.1 receives the redirect. The token is written to
gmail_token.json in the config directory unless --token is given, and is then
used by 'mailmind ingest --gmail'.`,
	RunE: runGmailAuth,
}

func init() {
	addGmailFileFlags(gmailAuthCmd)
	gmailAuthCmd.Flags().Bool("no-browser", false, "print the consent URL instead of opening a browser")
	gmailCmd.AddCommand(gmailAuthCmd)
	rootCmd.AddCommand(gmailCmd)
}

func addGmailFileFlags(cmd *cobra.Command) {
	cmd.Flags().String("credentials", "", "OAuth client credentials file (default <config-dir>/"+gmailCredentialsFile+")")
	cmd.Flags().String("token", "", "OAuth token file (default <config-dir>/"+gmailTokenFile+")")
}

// gmailPaths resolves the credentials and token file flags.
func gmailPaths(cmd *cobra.Command) (credentials, token string, err error) {
	credentials, err = cmd.Flags().GetString("credentials")
	if err != nil {
		return "", "", fmt.Errorf("getting credentials flag: %w", err)
	}
	token, err = cmd.Flags().GetString("token")
	if err != nil {
		return "", "", fmt.Errorf("getting token flag: %w", err)
	}

	dir := "."
	if settingsService != nil && settingsService.ConfigPath() != "" {
		dir = filepath.Dir(settingsService.ConfigPath())
	}
	if credentials == "" {
		credentials = filepath.Join(dir, gmailCredentialsFile)
	}
	if token == "" {
		token = filepath.Join(dir, gmailTokenFile)
	}
	return credentials, token, nil
}

func runGmailAuth(cmd *cobra.Command, _ []string) error {
	credentialsPath, tokenPath, err := gmailPaths(cmd)
	if err != nil {
		return err
	}
	noBrowser, err := cmd.Flags().GetBool("no-browser")
	if err != nil {
		return fmt.Errorf("getting no-browser flag: %w", err)
	}

	cfg, err := google.LoadClientConfig(credentialsPath)
	if err != nil {
		return err
	}

	state, err := oauth.GenerateState()
	if err != nil {
		return err
	}

	server := oauth.NewCallbackServer(0, state)
	if err := server.Start(); err != nil {
		return fmt.Errorf("starting callback server: %w", err)
	}
	defer func() {
		if err := server.Stop(); err != nil {
			logger.Warn("stopping callback server: %v", err)
		}
	}()

	cfg.RedirectURL = server.RedirectURI()
	verifier := oauth2.GenerateVerifier()
	authURL := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier))

	cmd.Println("Authorise MailMind to read your Gmail:")
	cmd.Println(authURL)
	if !noBrowser {
		if err := oauth.OpenBrowser(authURL); err != nil {
			logger.Debug("Could not open browser: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), authTimeout)
	defer cancel()

	code, err := server.WaitForCode(ctx)
	if err != nil {
		return err
	}

	token, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return fmt.Errorf("exchanging authorization code: %w", err)
	}
	if err := google.SaveToken(tokenPath, token); err != nil {
		return err
	}

	cmd.Printf("Token saved to %s\n", tokenPath)
	return nil
}
