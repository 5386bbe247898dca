package notify

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ElusiveMori/mmhscanner/internal/game"
)

// Dispatcher consumes game events for one destination channel. All of its
// state is owned by a single worker goroutine fed from a task queue, so
// operations apply in order and never interleave; destinations stay fully
// independent of each other.
type Dispatcher struct {
	client   ChannelClient
	cfg      Config
	snapshot func() []game.Info

	queue    chan func()
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	refreshQueued atomic.Bool

	// worker-owned; only the worker goroutine touches these.
	categories map[game.Category]bool
	view       map[string]game.Info // account -> displayed game

	status *statusManager
	pings  *pingManager
}

// NewDispatcher creates and starts a dispatcher for one channel. The
// snapshot func supplies the scanner's current state for replays.
func NewDispatcher(client ChannelClient, snapshot func() []game.Info, cfg Config) *Dispatcher {
	cfg = cfg.withDefaults()

	d := &Dispatcher{
		client:     client,
		cfg:        cfg,
		snapshot:   snapshot,
		queue:      make(chan func(), cfg.QueueSize),
		stop:       make(chan struct{}),
		categories: make(map[game.Category]bool),
		view:       make(map[string]game.Info),
		pings:      newPingManager(client),
	}
	d.status = newStatusManager(client, d.submit, cfg.StatusLookback, cfg.RenewDebounce)

	d.wg.Add(2)
	go d.worker()
	go d.refresher()

	slog.Info("Dispatcher created", "channel", client.ChannelID())
	return d
}

// submit queues a task for the worker. It waits a bounded time on a full
// queue and then abandons the operation rather than blocking the caller
// indefinitely.
func (d *Dispatcher) submit(task func()) bool {
	timeout := time.NewTimer(d.cfg.SubmitWait)
	defer timeout.Stop()

	select {
	case d.queue <- task:
		return true
	case <-d.stop:
		return false
	case <-timeout.C:
		slog.Warn("Dispatcher queue full, dropping operation", "channel", d.client.ChannelID())
		return false
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case <-d.stop:
			return
		case task := <-d.queue:
			d.run(task)
		}
	}
}

// run executes one queued task; a panic abandons that task only.
func (d *Dispatcher) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Dispatcher operation panicked", "channel", d.client.ChannelID(), "panic", r)
		}
	}()
	task()
}

// refresher periodically re-renders the status message. Refreshes are
// coalesced: a new one is only queued once the previous one has run, so a
// slow channel cannot pile them up.
func (d *Dispatcher) refresher() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			if !d.refreshQueued.CompareAndSwap(false, true) {
				continue
			}
			ok := d.submit(func() {
				d.refreshQueued.Store(false)
				d.renderStatus()
			})
			if !ok {
				d.refreshQueued.Store(false)
			}
		}
	}
}

// OnGameHosted implements the scanner sink for this destination.
func (d *Dispatcher) OnGameHosted(info game.Info) {
	d.submit(func() {
		if d.categories[info.Category] {
			d.upsertGame(info)
			d.renderStatus()
		}
	})
}

// OnGameUpdated implements the scanner sink for this destination.
func (d *Dispatcher) OnGameUpdated(info game.Info) {
	d.submit(func() {
		if d.categories[info.Category] {
			d.upsertGame(info)
			d.renderStatus()
		}
	})
}

// OnGameRemoved implements the scanner sink for this destination.
func (d *Dispatcher) OnGameRemoved(info game.Info) {
	d.submit(func() {
		if d.categories[info.Category] {
			d.removeGame(info)
			d.renderStatus()
		}
	})
}

// AddCategories extends the subscription and replays the scanner's
// current state for the newly covered categories.
func (d *Dispatcher) AddCategories(categories []game.Category) {
	d.submit(func() {
		for _, c := range categories {
			d.categories[c] = true
		}
		for _, info := range d.snapshot() {
			if d.categories[info.Category] {
				d.upsertGame(info)
			}
		}
		d.renderStatus()
	})
}

// RemoveCategories shrinks the subscription and retracts every displayed
// game that is no longer covered.
func (d *Dispatcher) RemoveCategories(categories []game.Category) {
	d.submit(func() {
		removed := make(map[game.Category]bool, len(categories))
		for _, c := range categories {
			removed[c] = true
			delete(d.categories, c)
		}
		for _, info := range d.view {
			if removed[info.Category] {
				d.removeGame(info)
			}
		}
		d.renderStatus()
	})
}

// RenewStatus requests that the status message be moved to the bottom of
// the channel; bursts coalesce into a single repost.
func (d *Dispatcher) RenewStatus() {
	d.status.Renew()
}

// PurgeUntracked scans recent channel history and deletes our own
// messages that are neither the status message nor a live announcement.
// Run at startup to clean up leftovers from a previous session.
func (d *Dispatcher) PurgeUntracked() {
	d.submit(d.purge)
}

// Close stops the dispatcher: timers cancelled, worker stopped, tracked
// messages left in place. Used at process shutdown so a restart can
// re-attach to them (or purge them).
func (d *Dispatcher) Close() {
	d.stopOnce.Do(func() {
		d.status.Close()
		close(d.stop)
	})
	d.wg.Wait()
}

// CloseAndCleanup tears the destination down for good: Close, then drop
// all tracking and delete our remaining messages. Used when the channel
// unregisters.
func (d *Dispatcher) CloseAndCleanup() {
	d.Close()

	// With tracking dropped, the purge scan removes the now-stray status
	// and announcement messages. Worker is gone; safe to run inline.
	d.status.Forget()
	d.pings.Forget()
	d.purge()

	slog.Info("Dispatcher closed", "channel", d.client.ChannelID())
}

// IsTrackedMessage reports whether messageID is currently owned and
// tracked by this destination.
func (d *Dispatcher) IsTrackedMessage(messageID string) bool {
	return d.status.IsTracked(messageID) || d.pings.IsTracked(messageID)
}

// upsertGame applies a hosted or updated event to the local view. The
// announcement is created only when the account is newly displayed, which
// keeps repeated deliveries idempotent.
func (d *Dispatcher) upsertGame(info game.Info) {
	if _, shown := d.view[info.Account]; !shown {
		d.pings.Announce(info, d.client.Mention(info.Category))
	}
	d.view[info.Account] = info
}

func (d *Dispatcher) removeGame(info game.Info) {
	delete(d.view, info.Account)
	d.pings.Retract(info.ID)
}

// renderStatus pushes the current view into the status message, with a
// plain-text fallback when embeds aren't permitted.
func (d *Dispatcher) renderStatus() {
	if len(d.categories) == 0 {
		return
	}
	if d.client.Can(CapabilityEmbed) {
		d.status.Update("", buildStatusEmbed(d.categories, d.view))
	} else {
		d.status.Update(buildStatusText(d.categories, d.view), nil)
	}
}

func (d *Dispatcher) purge() {
	if !d.client.Can(CapabilityDelete) {
		slog.Warn("Missing delete permission, skipping cleanup scan", "channel", d.client.ChannelID())
		return
	}

	history, err := d.client.History(d.cfg.PurgeLookback)
	if err != nil {
		slog.Warn("Cleanup history fetch failed", "channel", d.client.ChannelID(), "error", err)
		return
	}

	deleted := 0
	for _, msg := range history {
		if msg.AuthorID != d.client.BotUserID() || d.IsTrackedMessage(msg.ID) {
			continue
		}
		if err := d.client.Delete(msg.ID); err != nil {
			slog.Warn("Failed to delete stray message", "channel", d.client.ChannelID(), "message", msg.ID, "error", err)
			continue
		}
		deleted++
	}

	if deleted > 0 {
		slog.Info("Deleted stray messages", "channel", d.client.ChannelID(), "count", deleted)
	}
}
