package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_Seed(t *testing.T) {
	store := NewConfigStore(map[string]any{
		"data_dir":           "/tmp/mail",
		"max_rag_results":    3,
		"embedding.provider": "ollama",
	})

	assert.Equal(t, "/tmp/mail", store.GetString("data_dir"))
	assert.Equal(t, 3, store.GetInt("max_rag_results"))
	assert.Equal(t, "ollama", store.GetString("embedding.provider"))
	assert.Equal(t, MemoryPath, store.Path())
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("string", "value"))
	require.NoError(t, store.Set("int", 7))
	require.NoError(t, store.Set("int64", int64(9)))
	require.NoError(t, store.Set("whole_float", 5.0))
	require.NoError(t, store.Set("fraction", 0.65))
	require.NoError(t, store.Set("float32", float32(0.5)))

	tests := []struct {
		key       string
		wantStr   string
		wantInt   int
		wantFloat float64
	}{
		{key: "string", wantStr: "value"},
		{key: "int", wantInt: 7, wantFloat: 7},
		{key: "int64", wantInt: 9, wantFloat: 9},
		{key: "whole_float", wantInt: 5, wantFloat: 5},
		{key: "fraction", wantFloat: 0.65},
		{key: "float32", wantFloat: 0.5},
		{key: "missing"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.wantStr, store.GetString(tt.key))
			assert.Equal(t, tt.wantInt, store.GetInt(tt.key))
			assert.Equal(t, tt.wantFloat, store.GetFloat(tt.key))
		})
	}
}

func TestConfigStore_SetOverwrites(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("embedding.model", "a"))
	require.NoError(t, store.Set("embedding.model", "b"))

	val, ok := store.Get("embedding.model")
	assert.True(t, ok)
	assert.Equal(t, "b", val)

	require.NoError(t, store.Save())
	require.NoError(t, store.Load())
	assert.Equal(t, "b", store.GetString("embedding.model"), "save and load keep values")
}

func TestConfigStore_ConcurrentAccess(t *testing.T) {
	store := NewConfigStore()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = store.Set(fmt.Sprintf("key.%d", i), i)
		}(i)
		go func(i int) {
			defer wg.Done()
			_ = store.GetInt(fmt.Sprintf("key.%d", i))
		}(i)
	}
	wg.Wait()

	for i := 0; i < 20; i++ {
		assert.Equal(t, i, store.GetInt(fmt.Sprintf("key.%d", i)))
	}
}
