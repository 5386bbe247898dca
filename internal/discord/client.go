package discord

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/ElusiveMori/mmhscanner/internal/game"
	"github.com/ElusiveMori/mmhscanner/internal/notify"
)

// Client wraps a discordgo session behind the notification layer's
// channel abstraction.
type Client struct {
	session *discordgo.Session
}

func NewClient(session *discordgo.Session) *Client {
	return &Client{session: session}
}

// ForChannel resolves a channel id into a notify.ChannelClient.
func (c *Client) ForChannel(channelID string) (notify.ChannelClient, error) {
	channel, err := c.session.Channel(channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve channel: %w", err)
	}

	return &channelClient{
		session:   c.session,
		channelID: channelID,
		guildID:   channel.GuildID,
	}, nil
}

// channelClient is the per-channel platform surface. Every REST call runs
// through reliable, so rate limits are invisible to the callers.
type channelClient struct {
	session   *discordgo.Session
	channelID string
	guildID   string
}

func (c *channelClient) ChannelID() string { return c.channelID }

func (c *channelClient) BotUserID() string {
	if user := c.session.State.User; user != nil {
		return user.ID
	}
	return ""
}

func (c *channelClient) Can(capability notify.Capability) bool {
	perms, err := c.session.State.UserChannelPermissions(c.BotUserID(), c.channelID)
	if err != nil {
		slog.Warn("Permission lookup failed", "channel", c.channelID, "error", err)
		return false
	}

	var required int64
	switch capability {
	case notify.CapabilityPost:
		required = discordgo.PermissionViewChannel | discordgo.PermissionSendMessages
	case notify.CapabilityDelete:
		required = discordgo.PermissionManageMessages
	case notify.CapabilityEmbed:
		required = discordgo.PermissionEmbedLinks
	}

	return perms&required == required
}

func (c *channelClient) Send(content string, embed *discordgo.MessageEmbed) (string, error) {
	send := &discordgo.MessageSend{Content: content}
	if embed != nil {
		send.Embeds = []*discordgo.MessageEmbed{embed}
	}

	msg, err := reliable(func() (*discordgo.Message, error) {
		return c.session.ChannelMessageSendComplex(c.channelID, send)
	})
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}
	return msg.ID, nil
}

func (c *channelClient) Edit(messageID, content string, embed *discordgo.MessageEmbed) error {
	edit := discordgo.NewMessageEdit(c.channelID, messageID).SetContent(content)
	if embed != nil {
		edit = edit.SetEmbeds([]*discordgo.MessageEmbed{embed})
	} else {
		edit = edit.SetEmbeds([]*discordgo.MessageEmbed{})
	}

	_, err := reliable(func() (*discordgo.Message, error) {
		return c.session.ChannelMessageEditComplex(edit)
	})
	if err != nil {
		return fmt.Errorf("failed to edit message: %w", err)
	}
	return nil
}

func (c *channelClient) Delete(messageID string) error {
	_, err := reliable(func() (struct{}, error) {
		return struct{}{}, c.session.ChannelMessageDelete(c.channelID, messageID)
	})
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

func (c *channelClient) History(limit int) ([]notify.Message, error) {
	msgs, err := reliable(func() ([]*discordgo.Message, error) {
		return c.session.ChannelMessages(c.channelID, limit, "", "", "")
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}

	// discordgo returns newest first, which is what the managers expect.
	out := make([]notify.Message, 0, len(msgs))
	for _, msg := range msgs {
		authorID := ""
		if msg.Author != nil {
			authorID = msg.Author.ID
		}
		out = append(out, notify.Message{ID: msg.ID, AuthorID: authorID})
	}
	return out, nil
}

// Mention resolves a category to a role mention by substring-matching the
// category's aliases against the guild's role names. Best-effort: role
// names overlap in the wild, the first hit wins, and @here is the
// fallback.
func (c *channelClient) Mention(category game.Category) string {
	aliases := game.Aliases(category)
	if len(aliases) == 0 {
		return "@here"
	}

	roles, err := reliable(func() ([]*discordgo.Role, error) {
		return c.session.GuildRoles(c.guildID)
	})
	if err != nil {
		slog.Warn("Role lookup failed, falling back to @here", "guild", c.guildID, "error", err)
		return "@here"
	}

	for _, alias := range aliases {
		needle := strings.ToLower(alias)
		if needle == "" {
			continue
		}
		for _, role := range roles {
			if strings.Contains(strings.ToLower(role.Name), needle) {
				return role.Mention()
			}
		}
	}

	return "@here"
}
