package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "config")

	store, err := NewConfigStore(dir)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.toml"), store.Path())
	assert.DirExists(t, dir)
	_, ok := store.Get("data_dir")
	assert.False(t, ok, "no file yet means no values")
}

func TestNewConfigStore_DefaultDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	store, err := NewConfigStore("")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, DefaultConfigDirName, "config.toml"), store.Path())
}

func TestNewConfigStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("data_dir = [unterminated"), 0600))

	_, err := NewConfigStore(dir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "config.toml")
}

func TestNewConfigStore_DirIsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taken")
	require.NoError(t, os.WriteFile(path, nil, 0600))

	_, err := NewConfigStore(path)

	assert.Error(t, err)
}

func TestConfigStore_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Set("data_dir", "/var/lib/mailmind"))
	require.NoError(t, store.Set("max_email_history", 250))
	require.NoError(t, store.Set("retrieval.distance_threshold", 0.65))
	require.NoError(t, store.Set("embedding.provider", "ollama"))
	require.NoError(t, store.Set("embedding.model", "all-minilm"))

	reopened, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/mailmind", reopened.GetString("data_dir"))
	assert.Equal(t, 250, reopened.GetInt("max_email_history"))
	assert.InDelta(t, 0.65, reopened.GetFloat("retrieval.distance_threshold"), 1e-9)
	assert.Equal(t, "ollama", reopened.GetString("embedding.provider"))
	assert.Equal(t, "all-minilm", reopened.GetString("embedding.model"))
}

func TestConfigStore_WritesNestedTables(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("embedding.provider", "ollama"))
	require.NoError(t, store.Set("max_rag_results", 3))

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[embedding]")
	assert.Regexp(t, `provider = ['"]ollama['"]`, string(raw))
	assert.Contains(t, string(raw), "max_rag_results = 3")
}

func TestConfigStore_ReadsHandWrittenTables(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`data_dir = "/var/lib/mailmind"

[vector_store]
dsn = "postgres://localhost/mail"
collection = "sent"

[retrieval]
distance_threshold = 0.7

[embedding]
dimensions = 384.0
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), content, 0600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/mailmind", store.GetString("data_dir"))
	assert.Equal(t, "postgres://localhost/mail", store.GetString("vector_store.dsn"))
	assert.Equal(t, "sent", store.GetString("vector_store.collection"))
	assert.InDelta(t, 0.7, store.GetFloat("retrieval.distance_threshold"), 1e-9)
	assert.Equal(t, 384, store.GetInt("embedding.dimensions"), "whole floats read as ints")
}

func TestConfigStore_TypeMismatch(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("embedding.model", "nomic-embed-text"))
	require.NoError(t, store.Set("retrieval.distance_threshold", 0.5))

	assert.Zero(t, store.GetInt("embedding.model"))
	assert.Zero(t, store.GetFloat("embedding.model"))
	assert.Zero(t, store.GetInt("retrieval.distance_threshold"))
	assert.Empty(t, store.GetString("retrieval.distance_threshold"))
	assert.Empty(t, store.GetString("missing"))
}

func TestConfigStore_FileIsPrivateAndAtomic(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Set("embedding.api_key", "sk-secret"))
	require.NoError(t, store.Save())

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files left behind")
	assert.Equal(t, "config.toml", entries[0].Name())
}

func TestConfigStore_LoadPicksUpExternalChanges(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Set("data_dir", "/saved"))

	other, err := NewConfigStore(dir)
	require.NoError(t, err)
	require.NoError(t, other.Set("data_dir", "/changed"))

	require.NoError(t, store.Load())
	assert.Equal(t, "/changed", store.GetString("data_dir"))
}

func TestConfigStore_ConcurrentSet(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, store.Set(fmt.Sprintf("bench.key_%d", i), i))
		}(i)
	}
	wg.Wait()

	require.NoError(t, store.Load())
	for i := 0; i < 10; i++ {
		assert.Equal(t, i, store.GetInt(fmt.Sprintf("bench.key_%d", i)))
	}
}

func TestNest(t *testing.T) {
	nested := nest(map[string]any{
		"a.b":   1,
		"a.c":   "x",
		"top":   true,
		"x":     "flat",
		"x.sub": 2,
	})

	assert.Equal(t, map[string]any{"b": 1, "c": "x"}, nested["a"])
	assert.Equal(t, true, nested["top"])

	// "x" is both a value and a table prefix; one of the two keeps its flat form.
	flat := make(map[string]any)
	flatten(flat, "", nested)
	assert.Equal(t, 1, flat["a.b"])
	assert.Equal(t, "x", flat["a.c"])
	assert.Len(t, flat, 5)
}
