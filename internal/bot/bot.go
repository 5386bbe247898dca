package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/ElusiveMori/mmhscanner/internal/config"
	"github.com/ElusiveMori/mmhscanner/internal/discord"
	"github.com/ElusiveMori/mmhscanner/internal/feed"
	"github.com/ElusiveMori/mmhscanner/internal/game"
	"github.com/ElusiveMori/mmhscanner/internal/notify"
	"github.com/ElusiveMori/mmhscanner/internal/scanner"
	"github.com/ElusiveMori/mmhscanner/internal/storage"
)

// Bot ties the roster scanner to the Discord notification surface.
type Bot struct {
	config   *config.Config
	session  *discordgo.Session
	repo     *storage.Repository
	registry *notify.Registry
	scanner  *scanner.Scanner

	readyOnce sync.Once
}

// New creates a new Bot instance
func New(cfg *config.Config) (*Bot, error) {
	// Create Discord session
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	// Set intents; message content is needed for the command prefix.
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentMessageContent

	// Rate limits are handled by our own retry policy, not discordgo's.
	session.ShouldRetryOnRateLimit = false

	// Initialize storage
	repo, err := storage.NewRepository(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	b := &Bot{
		config:  cfg,
		session: session,
		repo:    repo,
	}

	clients := discord.NewClient(session)
	b.registry = notify.NewRegistry(
		clients.ForChannel,
		func() []game.Info { return b.scanner.Snapshot() },
		repo,
		notify.Config{
			StatusLookback: cfg.StatusLookback,
			PurgeLookback:  cfg.PurgeLookback,
		},
	)

	b.scanner = scanner.New(
		feed.NewClient(cfg.FeedURL),
		b.registry,
		time.Duration(cfg.PollingIntervalSeconds)*time.Second,
		time.Duration(cfg.EmptyGraceSeconds)*time.Second,
	)

	// Register event handlers
	b.registerHandlers()

	return b, nil
}

// Start opens the Discord connection. The scanner starts once the
// gateway reports ready.
func (b *Bot) Start(ctx context.Context) error {
	b.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		b.readyOnce.Do(func() { b.onReady(ctx) })
	})

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}

	slog.Info("Connected to Discord", "user", b.session.State.User.Username)
	return nil
}

// onReady restores persisted subscriptions and starts the scanner.
func (b *Bot) onReady(ctx context.Context) {
	slog.Info("Gateway ready, restoring subscriptions")

	saved, err := b.repo.GetAllChannels()
	if err != nil {
		slog.Error("Failed to load subscriptions", "error", err)
	} else {
		b.registry.Restore(saved)
		slog.Info("Subscriptions restored", "channels", len(saved))
	}

	go b.scanner.Start(ctx)
}

// Stop gracefully shuts down the bot
func (b *Bot) Stop() error {
	if b.scanner != nil {
		b.scanner.Stop()
	}

	if b.registry != nil {
		b.registry.Close()
	}

	if b.repo != nil {
		b.repo.Close()
	}

	if b.session != nil {
		return b.session.Close()
	}

	return nil
}

// registerHandlers sets up Discord event handlers
func (b *Bot) registerHandlers() {
	b.session.AddHandler(b.handleMessage)
}

// handleMessage routes channel messages: commands are dispatched, any
// other chatter in a subscribed channel buries the status message and
// triggers a renewal.
func (b *Bot) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || s.State.User == nil || m.Author.ID == s.State.User.ID {
		return
	}

	if cmd, ok := parseCommand(m.Content); ok {
		b.dispatchCommand(s, m, cmd)
		return
	}

	b.registry.Renew(m.ChannelID)
}
