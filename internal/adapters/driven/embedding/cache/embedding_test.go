package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEmbedder records which texts reached it.
type countingEmbedder struct {
	embedded []string
	batches  int
	err      error
	closed   bool
}

func (e *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.embedded = append(e.embedded, text)
	return []float32{float32(len(text))}, nil
}

func (e *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.batches++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *countingEmbedder) Dimensions() int { return 1 }
func (e *countingEmbedder) ModelName() string { return "counting" }
func (e *countingEmbedder) Ping(_ context.Context) error { return nil }
func (e *countingEmbedder) Close() error {
	e.closed = true
	return nil
}

func TestEmbed_CachesByText(t *testing.T) {
	inner := &countingEmbedder{}
	svc, err := New(inner, 10)
	require.NoError(t, err)
	ctx := context.Background()

	a, err := svc.Embed(ctx, "hello")
	require.NoError(t, err)
	b, err := svc.Embed(ctx, "hello")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, []string{"hello"}, inner.embedded)
	assert.Equal(t, 1, svc.Len())
}

func TestEmbed_EvictsLeastRecentlyUsed(t *testing.T) {
	inner := &countingEmbedder{}
	svc, err := New(inner, 2)
	require.NoError(t, err)
	ctx := context.Background()

	for _, text := range []string{"a", "b", "c", "a"} {
		_, err := svc.Embed(ctx, text)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"a", "b", "c", "a"}, inner.embedded)
	assert.Equal(t, 2, svc.Len())
}

func TestEmbed_ErrorsAreNotCached(t *testing.T) {
	inner := &countingEmbedder{err: errors.New("down")}
	svc, err := New(inner, 10)
	require.NoError(t, err)

	_, err = svc.Embed(context.Background(), "hello")
	assert.Error(t, err)
	assert.Equal(t, 0, svc.Len())
}

func TestEmbedBatch_OnlyForwardsMisses(t *testing.T) {
	inner := &countingEmbedder{}
	svc, err := New(inner, 10)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.Embed(ctx, "bb")
	require.NoError(t, err)

	vectors, err := svc.EmbedBatch(ctx, []string{"a", "bb", "ccc"})

	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1}, {2}, {3}}, vectors)
	assert.Equal(t, []string{"bb", "a", "ccc"}, inner.embedded)
	assert.Equal(t, 1, inner.batches)

	_, err = svc.EmbedBatch(ctx, []string{"a", "ccc"})
	require.NoError(t, err)
	assert.Equal(t, 1, inner.batches)
}

func TestDelegates(t *testing.T) {
	inner := &countingEmbedder{}
	svc, err := New(inner, 0)
	require.NoError(t, err)

	assert.Equal(t, "counting", svc.ModelName())
	assert.Equal(t, 1, svc.Dimensions())
	assert.NoError(t, svc.Ping(context.Background()))
	assert.NoError(t, svc.Close())
	assert.True(t, inner.closed)
}
