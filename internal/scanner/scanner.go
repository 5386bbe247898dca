package scanner

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/ElusiveMori/mmhscanner/internal/feed"
	"github.com/ElusiveMori/mmhscanner/internal/game"
)

// Source supplies the current roster. A fetch may fail transiently.
type Source interface {
	Fetch(ctx context.Context) ([]feed.Row, error)
}

// Sink receives game lifecycle events produced by the scanner. Payloads
// are value copies; the sink must not assume it can see later mutations.
type Sink interface {
	OnGameHosted(info game.Info)
	OnGameUpdated(info game.Info)
	OnGameRemoved(info game.Info)
}

// Scanner periodically polls the roster, diffs it against the previous
// state keyed by hosting account, and emits hosted/updated/removed events.
// It is the sole owner of the game registry.
type Scanner struct {
	source     Source
	sink       Sink
	interval   time.Duration
	emptyGrace time.Duration

	mu       sync.Mutex
	registry map[string]*game.Info
	nextID   int64

	// lastRoster guards against the upstream table transiently serving an
	// empty page; see tick.
	lastRoster time.Time

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a Scanner. emptyGrace bounds how long a suddenly-empty
// roster is held back before being believed; zero disables the hold.
func New(source Source, sink Sink, interval, emptyGrace time.Duration) *Scanner {
	return &Scanner{
		source:     source,
		sink:       sink,
		interval:   interval,
		emptyGrace: emptyGrace,
		registry:   make(map[string]*game.Info),
		stopChan:   make(chan struct{}),
	}
}

// Start begins the polling loop. It blocks until the context is cancelled
// or Stop is called, so run it in its own goroutine.
func (s *Scanner) Start(ctx context.Context) {
	slog.Info("Starting scanner", "interval", s.interval)

	s.wg.Add(1)
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Initial poll
	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Scanner stopped (context cancelled)")
			return
		case <-s.stopChan:
			slog.Info("Scanner stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// Stop signals the scanner to stop and waits for the loop to exit.
func (s *Scanner) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
}

// Snapshot returns a copy of every currently tracked game, ordered by
// account. Used to replay state into newly subscribed destinations.
func (s *Scanner) Snapshot() []game.Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]game.Info, 0, len(s.registry))
	for _, info := range s.registry {
		infos = append(infos, *info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Account < infos[j].Account })
	return infos
}

// tick runs one poll. No error here may stop the polling schedule: fetch
// failures keep the registry untouched, anything unexpected is logged and
// the tick discarded.
func (s *Scanner) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Scanner tick panicked", "panic", r)
		}
	}()

	rows, err := s.source.Fetch(ctx)
	if err != nil {
		// A transient outage must never read as "all games removed".
		slog.Warn("Roster fetch failed, keeping previous state", "error", err)
		return
	}

	type classified struct {
		row      feed.Row
		category game.Category
	}

	var matched []classified
	for _, row := range rows {
		category, ok := game.Classify(row.Name)
		if !ok {
			continue
		}
		matched = append(matched, classified{row: row, category: category})
	}

	now := time.Now()
	if len(matched) > 0 {
		s.lastRoster = now
	} else if s.emptyGrace > 0 && now.Sub(s.lastRoster) < s.emptyGrace {
		// The upstream table occasionally serves an empty page for a
		// refresh or two; hold the previous roster briefly instead of
		// flapping every tracked game through remove/create.
		slog.Debug("Empty roster within grace window, holding previous state")
		return
	}

	// Diff under the lock, deliver after releasing it: a destination with
	// a backed-up queue must not be able to stall Snapshot callers.
	var events []event

	s.mu.Lock()

	seen := make(map[string]bool, len(matched))

	for _, m := range matched {
		account := m.row.Account
		info := s.registry[account]

		if info != nil && info.Category != m.category {
			// A different game on the same account: never an in-place
			// update, always remove then create.
			events = append(events, event{kind: eventRemoved, info: *info})
			delete(s.registry, account)
			info = nil
		}

		if info != nil {
			if info.Name != m.row.Name || info.Players != m.row.Players {
				info.PrevName = info.Name
				info.PrevPlayers = info.Players
				info.Name = m.row.Name
				info.Players = m.row.Players
				events = append(events, event{kind: eventUpdated, info: *info})
			}
		} else {
			info = &game.Info{
				ID:       s.nextID,
				Account:  account,
				Category: m.category,
				Name:     m.row.Name,
				Players:  m.row.Players,
			}
			s.nextID++
			s.registry[account] = info
			events = append(events, event{kind: eventHosted, info: *info})
		}

		seen[account] = true
	}

	for account, info := range s.registry {
		if !seen[account] {
			events = append(events, event{kind: eventRemoved, info: *info})
			delete(s.registry, account)
		}
	}

	s.mu.Unlock()

	for _, ev := range events {
		switch ev.kind {
		case eventHosted:
			s.sink.OnGameHosted(ev.info)
		case eventUpdated:
			s.sink.OnGameUpdated(ev.info)
		case eventRemoved:
			s.sink.OnGameRemoved(ev.info)
		}
	}
}

type eventKind int

const (
	eventHosted eventKind = iota
	eventUpdated
	eventRemoved
)

type event struct {
	kind eventKind
	info game.Info
}
