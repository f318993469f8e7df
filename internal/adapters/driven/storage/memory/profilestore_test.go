package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mailmind/internal/core/domain"
)

func TestProfileStore_LoadEmpty(t *testing.T) {
	store := NewProfileStore()

	profile, err := store.Load(context.Background())
	assert.Nil(t, profile)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProfileStore_SaveAndLoad(t *testing.T) {
	store := NewProfileStore()
	ctx := context.Background()
	saved := &domain.StyleProfile{
		Tone:          domain.ToneFormal,
		AvgLength:     domain.LengthConcise,
		SignOff:       "Kind regards",
		CommonPhrases: []string{"thank you"},
		EmailCount:    3,
	}

	require.NoError(t, store.Save(ctx, saved))
	saved.CommonPhrases[0] = "mutated"

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"thank you"}, loaded.CommonPhrases)
	assert.Equal(t, "Kind regards", loaded.SignOff)
	assert.Equal(t, 1, store.Saves())
}

func TestProfileStore_SaveOverwrites(t *testing.T) {
	store := NewProfileStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &domain.StyleProfile{EmailCount: 1}))
	require.NoError(t, store.Save(ctx, &domain.StyleProfile{EmailCount: 2}))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.EmailCount)
	assert.Equal(t, 2, store.Saves())
	assert.NoError(t, store.Close())
}
