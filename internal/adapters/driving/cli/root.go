// Package cli provides the mailmind command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/mailmind/internal/adapters/driven/ai"
	"github.com/custodia-labs/mailmind/internal/adapters/driven/config/file"
	"github.com/custodia-labs/mailmind/internal/adapters/driven/metrics/prometheus"
	profilefile "github.com/custodia-labs/mailmind/internal/adapters/driven/profile/file"
	"github.com/custodia-labs/mailmind/internal/adapters/driven/storage"
	"github.com/custodia-labs/mailmind/internal/core/domain"
	"github.com/custodia-labs/mailmind/internal/core/ports/driving"
	"github.com/custodia-labs/mailmind/internal/core/services"
	"github.com/custodia-labs/mailmind/internal/logger"
)

// needsCoreAnnotation marks commands that open the stores before running.
const needsCoreAnnotation = "mailmind/needs-core"

// dotEnvFile is loaded from the working directory at startup when present.
const dotEnvFile = ".env"

var (
	version = "dev"

	verbose   bool
	configDir string

	settingsService *services.SettingsService

	// core is opened by PersistentPreRunE for commands that need it and
	// closed again by PersistentPostRunE.
	core driving.Core

	// metricsHandler exposes the recorder attached to core, if any.
	metricsHandler http.Handler

	// coreFactory builds the core from resolved settings. Tests replace it.
	coreFactory = buildCore
)

var rootCmd = &cobra.Command{
	Use:   "mailmind",
	Short: "Writing-style-aware email retrieval",
	Long: `MailMind indexes the emails you have written and, for a new incoming email,
finds your past replies to similar messages. It also derives a writing-style
profile (tone, typical length, sign-off and recurring phrases) that an
assistant can use when drafting replies in your voice.

Run 'mailmind ingest' to index mail, 'mailmind retrieve' to look up context
and 'mailmind mcp serve' to expose both to an MCP client.`,
	SilenceUsage:       true,
	PersistentPreRunE:  initServices,
	PersistentPostRunE: closeServices,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug output")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "config directory (default ~/.mailmind)")
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// requireCore marks cmd as needing an open core.
func requireCore(cmd *cobra.Command) {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[needsCoreAnnotation] = "true"
}

func initServices(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	loadDotEnv()

	if settingsService == nil {
		store, err := file.NewConfigStore(configDir)
		if err != nil {
			return fmt.Errorf("opening config: %w", err)
		}
		settingsService = services.NewSettingsService(store, ai.NewConfigValidator(), nil)
	}

	if cmd.Annotations[needsCoreAnnotation] != "true" || core != nil {
		return nil
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}

	c, handler, err := coreFactory(cmd.Context(), settings)
	if err != nil {
		return err
	}
	core = c
	metricsHandler = handler
	return nil
}

func closeServices(_ *cobra.Command, _ []string) error {
	if core == nil {
		return nil
	}
	err := core.Close()
	core = nil
	metricsHandler = nil
	if err != nil {
		return fmt.Errorf("closing stores: %w", err)
	}
	return nil
}

func loadDotEnv() {
	err := godotenv.Load(dotEnvFile)
	switch {
	case err == nil:
		logger.Debug("Loaded environment from %s", dotEnvFile)
	case errors.Is(err, fs.ErrNotExist):
	default:
		logger.Warn("ignoring %s: %v", dotEnvFile, err)
	}
}

// buildCore wires the configured embedder, vector store, profile store and
// metrics recorder into a core.
func buildCore(ctx context.Context, settings *domain.Settings) (driving.Core, http.Handler, error) {
	embedder, err := ai.CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		return nil, nil, fmt.Errorf("creating embedding service: %w", err)
	}

	vectors, err := storage.NewVectorStore(ctx, settings, embedder)
	if err != nil {
		embedder.Close() //nolint:errcheck // already failing
		return nil, nil, err
	}

	profiles, err := profilefile.NewStore(settings.ProfilePath())
	if err != nil {
		vectors.Close()  //nolint:errcheck // already failing
		embedder.Close() //nolint:errcheck // already failing
		return nil, nil, fmt.Errorf("opening style profile store: %w", err)
	}

	recorder := prometheus.NewRecorder()
	c, err := services.NewCore(*settings, services.CoreDeps{
		VectorStore:  vectors,
		ProfileStore: profiles,
		Embedding:    embedder,
		Metrics:      recorder,
	})
	if err != nil {
		profiles.Close() //nolint:errcheck // already failing
		vectors.Close()  //nolint:errcheck // already failing
		embedder.Close() //nolint:errcheck // already failing
		return nil, nil, err
	}

	logger.Debug("Opened %s vector store with %s", settings.VectorStore.Backend(), embedder.ModelName())
	return c, recorder.Handler(), nil
}
