package notify

import (
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

// statusManager owns the single live status message of one destination.
// It decides between edit-in-place and delete-and-repost, and debounces
// renewal requests so a burst of channel chatter causes one repost.
//
// Mutating methods other than Renew and Close must only run on the
// dispatcher's worker goroutine; the internal lock exists because Renew,
// IsTracked and the debounce timer fire from other goroutines.
type statusManager struct {
	client   ChannelClient
	submit   func(task func()) bool
	lookback int
	debounce time.Duration

	mu        sync.Mutex
	messageID string
	content   string
	embed     *discordgo.MessageEmbed
	pending   bool
	timer     *time.Timer
	closed    bool
}

func newStatusManager(client ChannelClient, submit func(task func()) bool, lookback int, debounce time.Duration) *statusManager {
	return &statusManager{
		client:   client,
		submit:   submit,
		lookback: lookback,
		debounce: debounce,
	}
}

// Update stores the latest content and brings the live message in line:
// post if absent, edit if still at the bottom of the channel, otherwise
// delete and repost. Worker goroutine only.
func (m *statusManager) Update(content string, embed *discordgo.MessageEmbed) {
	m.mu.Lock()
	m.content = content
	m.embed = embed
	messageID := m.messageID
	m.mu.Unlock()

	if messageID == "" {
		m.post()
		return
	}

	if m.isBuried(messageID) {
		m.repost()
		return
	}

	if err := m.client.Edit(messageID, content, embed); err != nil {
		// The tracked message may have been deleted out from under us.
		slog.Warn("Status edit failed, reposting", "channel", m.client.ChannelID(), "error", err)
		m.repost()
	}
}

// Renew requests that the status message be moved back to the bottom of
// the channel. Requests within the debounce window coalesce into a single
// repost. Safe from any goroutine.
func (m *statusManager) Renew() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || m.pending {
		return
	}
	m.pending = true

	m.timer = time.AfterFunc(m.debounce, func() {
		m.mu.Lock()
		m.pending = false
		closed := m.closed
		m.mu.Unlock()
		if closed {
			return
		}
		if !m.submit(m.repost) {
			slog.Warn("Status renewal abandoned, queue unavailable", "channel", m.client.ChannelID())
		}
	})
}

// IsTracked reports whether messageID is the live status message.
func (m *statusManager) IsTracked(messageID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return messageID != "" && messageID == m.messageID
}

// Forget drops tracking without touching the platform. Used during
// teardown so the purge scan treats the old message as stray.
func (m *statusManager) Forget() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messageID = ""
}

// Close cancels any pending renewal. Further renewals are ignored.
func (m *statusManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.pending = false
}

// isBuried reports whether other messages have pushed the tracked status
// message away from the bottom of the channel. Bounded-lookback heuristic:
// only the newest message is compared, the lookback caps the fetch.
func (m *statusManager) isBuried(messageID string) bool {
	history, err := m.client.History(m.lookback)
	if err != nil {
		slog.Warn("Status history fetch failed, editing in place", "channel", m.client.ChannelID(), "error", err)
		return false
	}
	if len(history) == 0 {
		return false
	}
	return history[0].ID != messageID
}

// post sends a fresh status message with the latest pending content.
func (m *statusManager) post() {
	if !m.client.Can(CapabilityPost) {
		slog.Warn("Missing send permission, skipping status post", "channel", m.client.ChannelID())
		return
	}

	m.mu.Lock()
	content, embed := m.content, m.embed
	m.mu.Unlock()

	id, err := m.client.Send(content, embed)
	if err != nil {
		slog.Error("Failed to post status message", "channel", m.client.ChannelID(), "error", err)
		return
	}

	m.mu.Lock()
	m.messageID = id
	m.mu.Unlock()
}

// repost deletes the tracked message (if permitted) and posts a new one
// at the bottom of the channel.
func (m *statusManager) repost() {
	m.mu.Lock()
	messageID := m.messageID
	m.messageID = ""
	m.mu.Unlock()

	if messageID != "" {
		if m.client.Can(CapabilityDelete) {
			if err := m.client.Delete(messageID); err != nil {
				slog.Warn("Failed to delete old status message", "channel", m.client.ChannelID(), "error", err)
			}
		} else {
			slog.Warn("Missing delete permission, leaving old status message", "channel", m.client.ChannelID())
		}
	}

	m.post()
}
