package bot

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/ElusiveMori/mmhscanner/internal/game"
)

const commandPrefix = "-mmh"

// command is one parsed administrative command.
type command struct {
	name string
	arg  string
}

// parseCommand recognizes "-mmh <command> [arg]" messages.
func parseCommand(content string) (command, bool) {
	fields := strings.Fields(content)
	if len(fields) < 2 || fields[0] != commandPrefix {
		return command{}, false
	}

	return command{
		name: strings.ToLower(fields[1]),
		arg:  strings.ToLower(strings.Join(fields[2:], " ")),
	}, true
}

func (b *Bot) dispatchCommand(s *discordgo.Session, m *discordgo.MessageCreate, cmd command) {
	slog.Debug("Received command", "command", cmd.name, "channel", m.ChannelID, "user", m.Author.ID)

	if !b.canManage(s, m) {
		b.reply(s, m, "You don't have permission to do that.")
		return
	}

	switch cmd.name {
	case "register":
		b.handleRegister(s, m, cmd.arg)
	case "unregister":
		b.handleUnregister(s, m, cmd.arg)
	case "list":
		b.handleList(s, m)
	case "clear":
		b.handleClear(s, m)
	default:
		b.reply(s, m, fmt.Sprintf("Unknown command `%s`. Commands: register, unregister, list, clear.", cmd.name))
	}
}

// canManage gates administrative commands: guild administrators, users
// with Manage Server, or the configured owner.
func (b *Bot) canManage(s *discordgo.Session, m *discordgo.MessageCreate) bool {
	if b.config.OwnerUserID != "" && m.Author.ID == b.config.OwnerUserID {
		return true
	}

	perms, err := s.State.UserChannelPermissions(m.Author.ID, m.ChannelID)
	if err != nil {
		slog.Warn("Permission lookup failed", "user", m.Author.ID, "channel", m.ChannelID, "error", err)
		return false
	}

	return perms&(discordgo.PermissionAdministrator|discordgo.PermissionManageServer) != 0
}

func (b *Bot) handleRegister(s *discordgo.Session, m *discordgo.MessageCreate, arg string) {
	categories, err := game.ParseCategories(arg)
	if err != nil {
		b.reply(s, m, fmt.Sprintf("Usage: `%s register <categories|all>` — %s", commandPrefix, err))
		return
	}

	if err := b.registry.Subscribe(m.ChannelID, categories); err != nil {
		slog.Error("Failed to register channel", "channel", m.ChannelID, "error", err)
		b.reply(s, m, "Failed to register this channel. Please try again.")
		return
	}

	b.reply(s, m, fmt.Sprintf("Channel registered for notifications: %s", game.FormatCategories(b.registry.Categories(m.ChannelID))))
}

func (b *Bot) handleUnregister(s *discordgo.Session, m *discordgo.MessageCreate, arg string) {
	if !b.registry.IsSubscribed(m.ChannelID) {
		b.reply(s, m, "This channel is not registered for notifications.")
		return
	}

	categories, err := game.ParseCategories(arg)
	if err != nil {
		b.reply(s, m, fmt.Sprintf("Usage: `%s unregister <categories|all>` — %s", commandPrefix, err))
		return
	}

	if err := b.registry.Unsubscribe(m.ChannelID, categories); err != nil {
		b.reply(s, m, "This channel is not registered for notifications.")
		return
	}

	if remaining := b.registry.Categories(m.ChannelID); len(remaining) > 0 {
		b.reply(s, m, fmt.Sprintf("Still watching: %s", game.FormatCategories(remaining)))
	} else {
		b.reply(s, m, "Channel unregistered from notifications.")
	}
}

func (b *Bot) handleList(s *discordgo.Session, m *discordgo.MessageCreate) {
	categories := b.registry.Categories(m.ChannelID)
	if len(categories) == 0 {
		b.reply(s, m, fmt.Sprintf("This channel is not registered. Use `%s register <categories|all>`.", commandPrefix))
		return
	}

	b.reply(s, m, fmt.Sprintf("Watching: %s", game.FormatCategories(categories)))
}

func (b *Bot) handleClear(s *discordgo.Session, m *discordgo.MessageCreate) {
	categories := b.registry.Categories(m.ChannelID)
	if len(categories) == 0 {
		b.reply(s, m, "This channel is not registered for notifications.")
		return
	}

	if err := b.registry.Unsubscribe(m.ChannelID, categories); err != nil {
		slog.Error("Failed to clear channel", "channel", m.ChannelID, "error", err)
		b.reply(s, m, "Failed to unregister this channel. Please try again.")
		return
	}

	b.reply(s, m, "Channel unregistered from notifications.")
}

func (b *Bot) reply(s *discordgo.Session, m *discordgo.MessageCreate, content string) {
	if _, err := s.ChannelMessageSend(m.ChannelID, content); err != nil {
		slog.Error("Failed to send reply", "channel", m.ChannelID, "error", err)
	}
}
