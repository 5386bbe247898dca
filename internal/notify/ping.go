package notify

import (
	"log/slog"
	"sync"

	"github.com/ElusiveMori/mmhscanner/internal/game"
)

// pingManager owns the ephemeral "new game" announcements of one
// destination: at most one tracked message per live game id, created
// idempotently and deleted when the game goes away.
type pingManager struct {
	client ChannelClient

	mu       sync.Mutex
	messages map[int64]string // game id -> message id
}

func newPingManager(client ChannelClient) *pingManager {
	return &pingManager{
		client:   client,
		messages: make(map[int64]string),
	}
}

// Announce posts the announcement for a game unless one is already
// tracked for its id. Repeated deliveries of the same hosted event are
// therefore harmless.
func (p *pingManager) Announce(info game.Info, mention string) {
	p.mu.Lock()
	_, exists := p.messages[info.ID]
	p.mu.Unlock()
	if exists {
		return
	}

	if !p.client.Can(CapabilityPost) {
		slog.Warn("Missing send permission, skipping announcement", "channel", p.client.ChannelID(), "game", info.Name)
		return
	}

	id, err := p.client.Send(announceText(mention, info), nil)
	if err != nil {
		slog.Error("Failed to post announcement", "channel", p.client.ChannelID(), "game", info.Name, "error", err)
		return
	}

	p.mu.Lock()
	p.messages[info.ID] = id
	p.mu.Unlock()
}

// Retract deletes the tracked announcement for a game id, if any.
func (p *pingManager) Retract(gameID int64) {
	p.mu.Lock()
	messageID, ok := p.messages[gameID]
	delete(p.messages, gameID)
	p.mu.Unlock()
	if !ok {
		return
	}

	if !p.client.Can(CapabilityDelete) {
		slog.Warn("Missing delete permission, leaving announcement", "channel", p.client.ChannelID())
		return
	}

	if err := p.client.Delete(messageID); err != nil {
		slog.Warn("Failed to delete announcement", "channel", p.client.ChannelID(), "error", err)
	}
}

// IsTracked reports whether messageID is one of our live announcements.
func (p *pingManager) IsTracked(messageID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range p.messages {
		if id == messageID {
			return true
		}
	}
	return false
}

// Forget drops all tracking without touching the platform.
func (p *pingManager) Forget() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = make(map[int64]string)
}
