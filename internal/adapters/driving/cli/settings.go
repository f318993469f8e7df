package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/mailmind/internal/core/domain"
	"github.com/custodia-labs/mailmind/internal/core/services"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure storage locations, retrieval limits and the embedding
provider. Values are stored in config.toml in the config directory; environment
variables (and a .env file) override them.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a single setting",
	Long: `Set a single setting in config.toml.

Run 'mailmind settings keys' for the list of keys.

Examples:
  mailmind settings set max_rag_results 3
  mailmind settings set retrieval.distance_threshold 0.6
  mailmind settings set vector_store.dsn postgres://localhost/mailmind`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List configurable keys",
	Args:  cobra.NoArgs,
	RunE:  runSettingsKeys,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long: `Configure the embedding provider used to index and retrieve emails.

Without flags the command asks interactively. Changing the provider or model
changes the vector size, so re-ingest afterwards.`,
	RunE: runSettingsEmbedding,
}

func init() {
	settingsEmbeddingCmd.Flags().String("provider", "", "embedding provider (local, ollama, openai)")
	settingsEmbeddingCmd.Flags().String("model", "", "embedding model (default depends on provider)")
	settingsEmbeddingCmd.Flags().String("api-key", "", "API key for cloud providers")
	settingsEmbeddingCmd.Flags().Bool("skip-validation", false, "do not ping the provider")

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsKeysCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	rootCmd.AddCommand(settingsCmd)
}

// field is one "  Label: value" line of settings output.
type field struct{ label, value string }

func printSection(cmd *cobra.Command, title string, fields []field) {
	cmd.Printf("[%s]\n", title)
	for _, f := range fields {
		if f.value != "" {
			cmd.Printf("  %s: %s\n", f.label, f.value)
		}
	}
	cmd.Println()
}

// settingsSvc returns the settings service or an error when the command runs
// without one.
func settingsSvc() (*services.SettingsService, error) {
	if settingsService == nil {
		return nil, errors.New("settings service not configured")
	}
	return settingsService, nil
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	svc, err := settingsSvc()
	if err != nil {
		return err
	}
	settings, err := svc.Get()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}

	cmd.Println("MailMind settings")
	if path := svc.ConfigPath(); path != "" {
		cmd.Printf("Config file: %s\n", path)
	}
	cmd.Println()

	vectorDir := ""
	if settings.VectorStore.Backend() == domain.VectorBackendSQLite {
		vectorDir = settings.VectorDBDir
	}
	printSection(cmd, "Storage", []field{
		{"Data dir", settings.DataDir},
		{"Backend", string(settings.VectorStore.Backend())},
		{"Vector DB dir", vectorDir},
		{"Collection", settings.VectorStore.Collection},
	})

	printSection(cmd, "Retrieval", []field{
		{"Max results", strconv.Itoa(settings.MaxRAGResults)},
		{"Max email history", strconv.Itoa(settings.MaxEmailHistory)},
		{"Distance threshold", strconv.FormatFloat(settings.Retrieval.DistanceThreshold, 'g', -1, 64)},
	})

	emb := settings.Embedding
	embedding := []field{
		{"Provider", emb.Provider.Description()},
		{"Model", emb.ResolvedModel()},
		{"Base URL", emb.BaseURL},
	}
	if dims := emb.ResolvedDimensions(); dims > 0 {
		embedding = append(embedding, field{"Dimensions", strconv.Itoa(dims)})
	}
	if emb.Provider.RequiresAPIKey() {
		key := "(not set)"
		if emb.APIKey != "" {
			key = maskAPIKey(emb.APIKey)
		}
		embedding = append(embedding, field{"API Key", key})
	}
	if emb.RequestsPerSecond > 0 {
		embedding = append(embedding, field{"Requests per second", strconv.FormatFloat(emb.RequestsPerSecond, 'g', -1, 64)})
	}
	if emb.CacheSize > 0 {
		embedding = append(embedding, field{"Query cache", fmt.Sprintf("%d entries", emb.CacheSize)})
	}
	printSection(cmd, "Embedding", embedding)

	if err := svc.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'mailmind settings embedding' to fix configuration issues.")
		return nil
	}
	cmd.Println("Configuration is valid.")
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	svc, err := settingsSvc()
	if err != nil {
		return err
	}

	key, value := args[0], args[1]
	if err := svc.Set(key, value); err != nil {
		return err
	}

	shown := value
	if strings.HasSuffix(key, "api_key") {
		shown = maskAPIKey(value)
	}
	cmd.Printf("Set %s = %s\n", key, shown)
	return nil
}

func runSettingsKeys(cmd *cobra.Command, _ []string) error {
	svc, err := settingsSvc()
	if err != nil {
		return err
	}
	for _, key := range svc.Keys() {
		cmd.Println(key)
	}
	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	svc, err := settingsSvc()
	if err != nil {
		return err
	}

	provider, _ := cmd.Flags().GetString("provider")  //nolint:errcheck // flag is registered above
	model, _ := cmd.Flags().GetString("model")        //nolint:errcheck // flag is registered above
	apiKey, _ := cmd.Flags().GetString("api-key")     //nolint:errcheck // flag is registered above
	skip, _ := cmd.Flags().GetBool("skip-validation") //nolint:errcheck // flag is registered above

	var selected domain.AIProvider
	if provider != "" {
		selected = domain.AIProvider(provider)
		if !selected.IsValid() {
			return fmt.Errorf("%w: unknown embedding provider %q", domain.ErrInvalidInput, provider)
		}
		if model == "" {
			model = domain.DefaultEmbeddingModels()[selected]
		}
	} else {
		reader := bufio.NewReader(cmd.InOrStdin())
		selected, model, apiKey, err = promptEmbeddingProvider(cmd, reader)
		if err != nil {
			return err
		}
	}

	if err := svc.SetEmbeddingProvider(selected, model, apiKey); err != nil {
		return fmt.Errorf("configuring embedding provider: %w", err)
	}

	if !skip {
		cmd.Print("Validating configuration... ")
		if err := svc.ValidateEmbeddingConfig(); err != nil {
			cmd.Printf("FAILED: %v\n", err)
			return fmt.Errorf("validating embedding configuration: %w", err)
		}
		cmd.Println("OK")
	}

	cmd.Printf("Embedding provider configured: %s (%s)\n", selected.Description(), model)
	return nil
}

func promptEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader) (domain.AIProvider, string, string, error) {
	cmd.Println("Select Embedding Provider")
	providers := domain.AllEmbeddingProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(providers), 1)
	selected := providers[idx-1]

	defaultModel := domain.DefaultEmbeddingModels()[selected]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if selected.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword(cmd.InOrStdin(), reader)
		cmd.Println()
		if apiKey == "" {
			return "", "", "", errors.New("API key is required for this provider")
		}
	}

	return selected, model, apiKey, nil
}

// readLine returns the next line without surrounding space. EOF reads as "".
func readLine(reader *bufio.Reader) string {
	line, _ := reader.ReadString('\n') //nolint:errcheck // partial line is still usable
	return strings.TrimSpace(line)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo when in is an interactive terminal and
// falls back to a plain line read otherwise.
func readPassword(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
