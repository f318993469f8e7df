package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mailmind/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/mailmind/internal/core/services"
)

func TestMain(m *testing.M) {
	// Commands that build their own settings service read ~/.mailmind.
	home, err := os.MkdirTemp("", "mailmind-cli-home")
	if err != nil {
		panic(err)
	}
	os.Setenv("HOME", home)

	code := m.Run()
	os.RemoveAll(home)
	os.Exit(code)
}

// setupTestServices points the CLI at a fresh in-memory config whose data
// directories live under a temp dir. The real core factory is used, so each
// command opens a sqlite index with the local embedder.
func setupTestServices(t *testing.T) func() {
	t.Helper()
	origSettings := settingsService
	origFactory := coreFactory

	dir := t.TempDir()
	store := memory.NewConfigStore()
	require.NoError(t, store.Set("data_dir", filepath.Join(dir, "data")))
	require.NoError(t, store.Set("vector_db_dir", filepath.Join(dir, "data", "vectordb")))

	noEnv := func(string) (string, bool) { return "", false }
	settingsService = services.NewSettingsService(store, nil, noEnv)

	return func() {
		if core != nil {
			_ = core.Close()
			core = nil
		}
		settingsService = origSettings
		coreFactory = origFactory
	}
}

// execute runs the root command with args and returns its output.
// Flag values are reset afterwards so tests do not leak into each other.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(bytes.NewBufferString(stdin))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		resetFlags(rootCmd)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "mailmind", rootCmd.Use)
	assert.Contains(t, rootCmd.Long, "writing-style")
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, flag)
	assert.Equal(t, "v", flag.Shorthand)
	assert.Equal(t, "false", flag.DefValue)

	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config-dir"))
}

func TestRootCmd_RegistersCommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"ingest", "retrieve", "profile", "status", "settings", "mcp", "gmail", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestRequireCore_Annotations(t *testing.T) {
	for _, c := range []*cobra.Command{ingestCmd, retrieveCmd, profileCmd, statusCmd, mcpServeCmd} {
		assert.Equal(t, "true", c.Annotations[needsCoreAnnotation], c.Name())
	}
	assert.Empty(t, versionCmd.Annotations[needsCoreAnnotation])
	assert.Empty(t, settingsCmd.Annotations[needsCoreAnnotation])
}

func TestInitServices_ClosesCoreAfterCommand(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()

	_, err := execute(t, "", "status")
	require.NoError(t, err)
	assert.Nil(t, core)
	assert.Nil(t, metricsHandler)
}

func TestInitServices_FactoryError(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()
	require.NoError(t, settingsService.Set("embedding.provider", "openai"))

	_, err := execute(t, "", "status")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "creating embedding service")
	assert.Nil(t, core)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer func() { require.NoError(t, os.Chdir(wd)) }()

	t.Setenv("MAILMIND_TEST_DOTENV", "")
	os.Unsetenv("MAILMIND_TEST_DOTENV")

	loadDotEnv()
	_, ok := os.LookupEnv("MAILMIND_TEST_DOTENV")
	assert.False(t, ok, "missing .env is ignored")

	require.NoError(t, os.WriteFile(filepath.Join(dir, dotEnvFile), []byte("MAILMIND_TEST_DOTENV=loaded\n"), 0o600))
	loadDotEnv()
	assert.Equal(t, "loaded", os.Getenv("MAILMIND_TEST_DOTENV"))
}
