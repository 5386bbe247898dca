package notify

import (
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/ElusiveMori/mmhscanner/internal/game"
)

// Capability is a platform permission the bot needs before mutating a
// channel. Missing capabilities make actions no-ops, never errors.
type Capability int

const (
	// CapabilityPost covers reading the channel and sending messages.
	CapabilityPost Capability = iota
	// CapabilityDelete covers deleting messages (own and others').
	CapabilityDelete
	// CapabilityEmbed covers rich embed rendering.
	CapabilityEmbed
)

// Message is the slice of platform message state the managers care about.
type Message struct {
	ID       string
	AuthorID string
}

// ChannelClient is the per-destination platform surface consumed by the
// dispatcher and its message managers. Implementations are expected to
// absorb rate limiting internally; every other failure surfaces as an
// error the caller logs and moves past.
type ChannelClient interface {
	ChannelID() string
	BotUserID() string
	Can(c Capability) bool

	// Send posts a message and returns its id.
	Send(content string, embed *discordgo.MessageEmbed) (string, error)
	Edit(messageID, content string, embed *discordgo.MessageEmbed) error
	Delete(messageID string) error

	// History returns up to limit recent messages, newest first.
	History(limit int) ([]Message, error)

	// Mention resolves a best-effort mention string for a category,
	// falling back to a generic channel-wide mention.
	Mention(category game.Category) string
}

// ClientFactory builds a ChannelClient for a destination channel.
type ClientFactory func(channelID string) (ChannelClient, error)

// Config holds the tunables of the notification layer.
type Config struct {
	// StatusLookback is how many recent messages to inspect when deciding
	// whether the status message is still at the bottom of the channel.
	StatusLookback int
	// PurgeLookback is how many recent messages the startup cleanup scan
	// fetches.
	PurgeLookback int
	// RenewDebounce is how long renewal requests are coalesced before the
	// status message is reposted.
	RenewDebounce time.Duration
	// RefreshInterval drives the periodic status message re-render.
	RefreshInterval time.Duration
	// QueueSize bounds each destination's task queue.
	QueueSize int
	// SubmitWait bounds how long an enqueue may wait on a full queue
	// before the operation is abandoned.
	SubmitWait time.Duration
}

func (c Config) withDefaults() Config {
	if c.StatusLookback <= 0 {
		c.StatusLookback = 8
	}
	if c.PurgeLookback <= 0 {
		c.PurgeLookback = 256
	}
	if c.RenewDebounce <= 0 {
		c.RenewDebounce = 2 * time.Second
	}
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = 5 * time.Second
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 128
	}
	if c.SubmitWait <= 0 {
		c.SubmitWait = 7 * time.Second
	}
	return c
}
