package notify

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/ElusiveMori/mmhscanner/internal/game"
)

// Store persists destination subscriptions across restarts.
type Store interface {
	SetChannel(channelID string, categories []game.Category) error
	RemoveChannel(channelID string) error
}

// Registry maps destination channels to their dispatchers and category
// subscriptions. It implements the scanner sink and fans events out to
// every dispatcher; each dispatcher filters by its own categories.
type Registry struct {
	clients  ClientFactory
	snapshot func() []game.Info
	store    Store
	cfg      Config

	mu      sync.Mutex
	targets map[string]*target
}

type target struct {
	dispatcher *Dispatcher
	categories map[game.Category]bool
}

// NewRegistry creates a Registry. snapshot supplies the scanner's current
// state for replay into newly subscribed destinations.
func NewRegistry(clients ClientFactory, snapshot func() []game.Info, store Store, cfg Config) *Registry {
	return &Registry{
		clients:  clients,
		snapshot: snapshot,
		store:    store,
		cfg:      cfg,
		targets:  make(map[string]*target),
	}
}

// Subscribe adds categories to a destination, creating its dispatcher on
// first use. The new dispatcher cleans up stray messages from previous
// sessions and replays the current scanner state for its categories.
func (r *Registry) Subscribe(channelID string, categories []game.Category) error {
	return r.subscribe(channelID, categories, true)
}

// Restore re-attaches persisted subscriptions at startup, without
// rewriting them back to the store.
func (r *Registry) Restore(saved map[string][]game.Category) {
	for channelID, categories := range saved {
		if err := r.subscribe(channelID, categories, false); err != nil {
			slog.Error("Failed to restore subscription", "channel", channelID, "error", err)
		}
	}
}

func (r *Registry) subscribe(channelID string, categories []game.Category, persist bool) error {
	if len(categories) == 0 {
		return fmt.Errorf("no categories given")
	}

	r.mu.Lock()
	tgt, ok := r.targets[channelID]
	if !ok {
		client, err := r.clients(channelID)
		if err != nil {
			r.mu.Unlock()
			return fmt.Errorf("failed to open channel %s: %w", channelID, err)
		}

		tgt = &target{
			dispatcher: NewDispatcher(client, r.snapshot, r.cfg),
			categories: make(map[game.Category]bool),
		}
		r.targets[channelID] = tgt
		tgt.dispatcher.PurgeUntracked()
	}

	for _, c := range categories {
		tgt.categories[c] = true
	}
	current := categorySet(tgt.categories)
	dispatcher := tgt.dispatcher
	r.mu.Unlock()

	dispatcher.AddCategories(categories)

	if persist {
		if err := r.store.SetChannel(channelID, current); err != nil {
			slog.Error("Failed to persist subscription", "channel", channelID, "error", err)
		}
	}
	return nil
}

// Unsubscribe removes categories from a destination. Removing the last
// one tears the dispatcher down and forgets the destination.
func (r *Registry) Unsubscribe(channelID string, categories []game.Category) error {
	r.mu.Lock()
	tgt, ok := r.targets[channelID]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("channel %s is not registered", channelID)
	}

	for _, c := range categories {
		delete(tgt.categories, c)
	}

	empty := len(tgt.categories) == 0
	if empty {
		delete(r.targets, channelID)
	}
	current := categorySet(tgt.categories)
	dispatcher := tgt.dispatcher
	r.mu.Unlock()

	if empty {
		// Teardown deletes the tracked messages; run outside the lock so
		// other destinations keep flowing.
		dispatcher.CloseAndCleanup()
		if err := r.store.RemoveChannel(channelID); err != nil {
			slog.Error("Failed to remove persisted subscription", "channel", channelID, "error", err)
		}
		return nil
	}

	dispatcher.RemoveCategories(categories)
	if err := r.store.SetChannel(channelID, current); err != nil {
		slog.Error("Failed to persist subscription", "channel", channelID, "error", err)
	}
	return nil
}

// IsSubscribed reports whether a destination has any subscription.
func (r *Registry) IsSubscribed(channelID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.targets[channelID]
	return ok
}

// Categories returns a destination's subscribed categories, sorted.
func (r *Registry) Categories(channelID string) []game.Category {
	r.mu.Lock()
	defer r.mu.Unlock()
	tgt, ok := r.targets[channelID]
	if !ok {
		return nil
	}
	return categorySet(tgt.categories)
}

// Renew asks a destination to move its status message to the bottom of
// the channel. No-op for unregistered channels.
func (r *Registry) Renew(channelID string) {
	r.mu.Lock()
	tgt, ok := r.targets[channelID]
	r.mu.Unlock()
	if ok {
		tgt.dispatcher.RenewStatus()
	}
}

// Close stops every dispatcher without deleting its messages. Used at
// shutdown; subscriptions stay persisted and the next run re-attaches.
func (r *Registry) Close() {
	r.mu.Lock()
	dispatchers := make([]*Dispatcher, 0, len(r.targets))
	for _, tgt := range r.targets {
		dispatchers = append(dispatchers, tgt.dispatcher)
	}
	r.targets = make(map[string]*target)
	r.mu.Unlock()

	for _, d := range dispatchers {
		d.Close()
	}
}

// OnGameHosted implements the scanner sink.
func (r *Registry) OnGameHosted(info game.Info) {
	for _, d := range r.dispatchers() {
		d.OnGameHosted(info)
	}
}

// OnGameUpdated implements the scanner sink.
func (r *Registry) OnGameUpdated(info game.Info) {
	for _, d := range r.dispatchers() {
		d.OnGameUpdated(info)
	}
}

// OnGameRemoved implements the scanner sink.
func (r *Registry) OnGameRemoved(info game.Info) {
	for _, d := range r.dispatchers() {
		d.OnGameRemoved(info)
	}
}

func (r *Registry) dispatchers() []*Dispatcher {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Dispatcher, 0, len(r.targets))
	for _, tgt := range r.targets {
		out = append(out, tgt.dispatcher)
	}
	return out
}

func categorySet(set map[game.Category]bool) []game.Category {
	out := make([]game.Category, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
