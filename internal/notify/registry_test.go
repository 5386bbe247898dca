package notify

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ElusiveMori/mmhscanner/internal/game"
)

type fakeStore struct {
	mu       sync.Mutex
	channels map[string][]game.Category
}

func newFakeStore() *fakeStore {
	return &fakeStore{channels: make(map[string][]game.Category)}
}

func (s *fakeStore) SetChannel(channelID string, categories []game.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels[channelID] = categories
	return nil
}

func (s *fakeStore) RemoveChannel(channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.channels, channelID)
	return nil
}

func (s *fakeStore) saved(channelID string) []game.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channels[channelID]
}

type registryFixture struct {
	registry *Registry
	store    *fakeStore
	mu       sync.Mutex
	channels map[string]*fakeChannel
}

func newRegistryFixture(snapshot func() []game.Info) *registryFixture {
	f := &registryFixture{
		store:    newFakeStore(),
		channels: make(map[string]*fakeChannel),
	}
	factory := func(channelID string) (ChannelClient, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		ch, ok := f.channels[channelID]
		if !ok {
			ch = newFakeChannel(channelID)
			f.channels[channelID] = ch
		}
		return ch, nil
	}
	f.registry = NewRegistry(factory, snapshot, f.store, testConfig())
	return f
}

func (f *registryFixture) channel(id string) *fakeChannel {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.channels[id]
}

func (f *registryFixture) flushAll() {
	f.mu.Lock()
	dispatchers := f.registry.dispatchers()
	f.mu.Unlock()
	for _, d := range dispatchers {
		d.flush()
	}
}

func TestRegistrySubscribeLifecycle(t *testing.T) {
	f := newRegistryFixture(emptySnapshot)
	defer f.registry.Close()

	require.NoError(t, f.registry.Subscribe("c1", []game.Category{game.CategoryAOC}))
	assert.True(t, f.registry.IsSubscribed("c1"))
	assert.Equal(t, []game.Category{game.CategoryAOC}, f.registry.Categories("c1"))
	assert.Equal(t, []game.Category{game.CategoryAOC}, f.store.saved("c1"))

	require.NoError(t, f.registry.Subscribe("c1", []game.Category{game.CategoryRP}))
	assert.Equal(t, []game.Category{game.CategoryAOC, game.CategoryRP}, f.registry.Categories("c1"))

	require.NoError(t, f.registry.Unsubscribe("c1", []game.Category{game.CategoryRP}))
	assert.True(t, f.registry.IsSubscribed("c1"))

	// Removing the last category tears the destination down.
	require.NoError(t, f.registry.Unsubscribe("c1", []game.Category{game.CategoryAOC}))
	assert.False(t, f.registry.IsSubscribed("c1"))
	assert.Nil(t, f.store.saved("c1"))
}

func TestRegistryUnsubscribeUnknownChannel(t *testing.T) {
	f := newRegistryFixture(emptySnapshot)
	defer f.registry.Close()

	assert.Error(t, f.registry.Unsubscribe("nope", []game.Category{game.CategoryAOC}))
}

func TestRegistrySubscribeRequiresCategories(t *testing.T) {
	f := newRegistryFixture(emptySnapshot)
	defer f.registry.Close()

	assert.Error(t, f.registry.Subscribe("c1", nil))
	assert.False(t, f.registry.IsSubscribed("c1"))
}

func TestRegistryFansOutByCategory(t *testing.T) {
	f := newRegistryFixture(emptySnapshot)
	defer f.registry.Close()

	require.NoError(t, f.registry.Subscribe("aoc-channel", []game.Category{game.CategoryAOC}))
	require.NoError(t, f.registry.Subscribe("rp-channel", []game.Category{game.CategoryRP}))

	f.registry.OnGameHosted(game.Info{ID: 1, Account: "bot1", Category: game.CategoryAOC, Name: "aoc night", Players: "3"})
	f.flushAll()

	assert.Len(t, f.channel("aoc-channel").containing("A game has been hosted!"), 1)
	assert.Empty(t, f.channel("rp-channel").containing("A game has been hosted!"))
}

func TestRegistrySubscribeReplaysSnapshot(t *testing.T) {
	snapshot := func() []game.Info {
		return []game.Info{{ID: 7, Account: "bot1", Category: game.CategoryAOC, Name: "aoc night", Players: "3"}}
	}
	f := newRegistryFixture(snapshot)
	defer f.registry.Close()

	require.NoError(t, f.registry.Subscribe("c1", []game.Category{game.CategoryAOC}))
	f.flushAll()

	assert.Len(t, f.channel("c1").containing("A game has been hosted!"), 1)
}

func TestRegistryRestoreDoesNotPersist(t *testing.T) {
	f := newRegistryFixture(emptySnapshot)
	defer f.registry.Close()

	f.registry.Restore(map[string][]game.Category{"c1": {game.CategoryAOC}})

	assert.True(t, f.registry.IsSubscribed("c1"))
	assert.Nil(t, f.store.saved("c1"))
}

func TestRegistryFactoryFailure(t *testing.T) {
	store := newFakeStore()
	factory := func(channelID string) (ChannelClient, error) {
		return nil, fmt.Errorf("no such channel")
	}
	r := NewRegistry(factory, emptySnapshot, store, testConfig())
	defer r.Close()

	assert.Error(t, r.Subscribe("c1", []game.Category{game.CategoryAOC}))
	assert.False(t, r.IsSubscribed("c1"))
}
