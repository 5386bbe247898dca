package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ElusiveMori/mmhscanner/internal/game"
)

func deletesOf(ch *fakeChannel) int {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return len(ch.deletes)
}

func editsOf(ch *fakeChannel) int {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return len(ch.edits)
}

func TestStatusEditsInPlaceWhenStillOnTop(t *testing.T) {
	ch := newFakeChannel("c1")
	d := NewDispatcher(ch, emptySnapshot, testConfig())
	defer d.Close()

	d.AddCategories([]game.Category{game.CategoryAOC})
	d.flush()
	require.Equal(t, 1, ch.messageCount())

	// Re-render with nothing burying the message: edit, not repost.
	d.submit(d.renderStatus)
	d.flush()

	assert.Equal(t, 1, ch.messageCount())
	assert.Equal(t, 1, editsOf(ch))
	assert.Equal(t, 0, deletesOf(ch))
}

func TestStatusRepostsWhenBuried(t *testing.T) {
	ch := newFakeChannel("c1")
	d := NewDispatcher(ch, emptySnapshot, testConfig())
	defer d.Close()

	d.AddCategories([]game.Category{game.CategoryAOC})
	d.flush()
	first := ch.snapshotMessages()[0].id

	ch.chatter("someone", "blah blah")

	d.submit(d.renderStatus)
	d.flush()

	messages := ch.snapshotMessages()
	require.Len(t, messages, 2) // chatter + fresh status
	assert.NotEqual(t, first, messages[1].id)
	assert.Equal(t, fakeBotID, messages[1].authorID)
	assert.Equal(t, 1, deletesOf(ch))
}

func TestRenewDebouncesBursts(t *testing.T) {
	ch := newFakeChannel("c1")
	d := NewDispatcher(ch, emptySnapshot, testConfig())
	defer d.Close()

	d.AddCategories([]game.Category{game.CategoryAOC})
	d.flush()
	require.Equal(t, 1, ch.messageCount())

	for i := 0; i < 10; i++ {
		d.RenewStatus()
	}

	time.Sleep(100 * time.Millisecond)
	d.flush()

	// One burst, one repost.
	assert.Equal(t, 1, deletesOf(ch))
	assert.Equal(t, 1, ch.messageCount())
}

func TestRenewAfterCloseIsIgnored(t *testing.T) {
	ch := newFakeChannel("c1")
	d := NewDispatcher(ch, emptySnapshot, testConfig())

	d.AddCategories([]game.Category{game.CategoryAOC})
	d.flush()
	d.Close()
	before := ch.messageCount()

	d.RenewStatus()
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, before, ch.messageCount())
}

func TestStatusTracksLatestContent(t *testing.T) {
	ch := newFakeChannel("c1")
	d := NewDispatcher(ch, emptySnapshot, testConfig())
	defer d.Close()

	d.AddCategories([]game.Category{game.CategoryAOC})
	d.OnGameHosted(aocGame(1, "bot1"))
	d.flush()

	var status *fakeMessage
	for _, m := range ch.snapshotMessages() {
		m := m
		if d.status.IsTracked(m.id) {
			status = &m
		}
	}
	require.NotNil(t, status)
	require.NotNil(t, status.embed)
	assert.Contains(t, status.embed.Fields[0].Value, "aoc night")
	assert.Contains(t, status.embed.Description, "aoc")
}
