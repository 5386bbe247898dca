package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ElusiveMori/mmhscanner/internal/game"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "scanner.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSetAndGetChannels(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.SetChannel("c1", []game.Category{game.CategoryAOC, game.CategoryRP}))
	require.NoError(t, repo.SetChannel("c2", []game.Category{game.CategoryYARP}))

	channels, err := repo.GetAllChannels()
	require.NoError(t, err)

	assert.Equal(t, map[string][]game.Category{
		"c1": {game.CategoryAOC, game.CategoryRP},
		"c2": {game.CategoryYARP},
	}, channels)
}

func TestSetChannelReplacesCategories(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.SetChannel("c1", []game.Category{game.CategoryAOC, game.CategoryRP}))
	require.NoError(t, repo.SetChannel("c1", []game.Category{game.CategoryTL}))

	channels, err := repo.GetAllChannels()
	require.NoError(t, err)
	assert.Equal(t, []game.Category{game.CategoryTL}, channels["c1"])
}

func TestRemoveChannel(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.SetChannel("c1", []game.Category{game.CategoryAOC}))
	require.NoError(t, repo.RemoveChannel("c1"))

	channels, err := repo.GetAllChannels()
	require.NoError(t, err)
	assert.Empty(t, channels)

	// Removing an unknown channel is not an error.
	assert.NoError(t, repo.RemoveChannel("nope"))
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scanner.db")

	repo, err := NewRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.SetChannel("c1", []game.Category{game.CategoryAOC}))
	require.NoError(t, repo.Close())

	repo, err = NewRepository(path)
	require.NoError(t, err)
	defer repo.Close()

	channels, err := repo.GetAllChannels()
	require.NoError(t, err)
	assert.Equal(t, []game.Category{game.CategoryAOC}, channels["c1"])
}
