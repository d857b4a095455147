// Package session owns one playthrough: the price cache, the event runtime
// state, per-location price tables, and the player. Every engine call goes
// through the session; nothing in this repository keeps engine state in
// package-level globals.
// See design doc Section 2.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/google/uuid"

	"github.com/talgya/crossroads-trader/internal/catalog"
	"github.com/talgya/crossroads-trader/internal/entropy"
	"github.com/talgya/crossroads-trader/internal/events"
	"github.com/talgya/crossroads-trader/internal/market"
	"github.com/talgya/crossroads-trader/internal/notify"
	"github.com/talgya/crossroads-trader/internal/player"
	"github.com/talgya/crossroads-trader/internal/tuning"
)

// ErrNoPendingEvent is returned when resolution is requested with nothing
// surfaced.
var ErrNoPendingEvent = errors.New("no pending event")

// Config assembles a new session.
type Config struct {
	Catalog *catalog.Catalog
	Tuning  tuning.Tuning
	// Rng drives event draws. Noise drives price jitter.
	Rng   entropy.Source
	Noise entropy.NoiseFunc
	// Bus receives notifications; nil disables broadcasting.
	Bus *notify.Bus
}

// Session is a single simulation playthrough. Safe for concurrent use; the
// API server and the tick loop share it.
type Session struct {
	mu sync.Mutex

	ID   string
	Week int

	Catalog   *catalog.Catalog
	Player    *player.State
	Inventory *player.MemoryInventory
	Runtime   *events.RuntimeState

	// Prices holds the current price table per location id.
	Prices map[string]market.PriceTable

	pending *events.Instance

	cache    *market.PriceCache
	updater  *market.BatchUpdater
	selector *events.Selector
	applier  *events.Applier
	rng      entropy.Source
	bus      *notify.Bus
}

// New creates a fresh session at week zero. The first AdvanceWeek call
// produces week one's prices.
func New(cfg Config) (*Session, error) {
	if cfg.Catalog == nil || len(cfg.Catalog.Goods) == 0 {
		return nil, fmt.Errorf("session: catalog with goods required")
	}
	if cfg.Rng == nil {
		cfg.Rng = entropy.Crypto()
	}
	if cfg.Noise == nil {
		cfg.Noise = entropy.HashNoise(cfg.Tuning.Seed)
	}

	diff := cfg.Tuning.Difficulty
	startLoc := diff.StartingLocation
	if startLoc == "" {
		startLoc = cfg.Catalog.Locations[0].ID
	}
	if _, ok := cfg.Catalog.LocationsByID[startLoc]; !ok {
		return nil, fmt.Errorf("session: unknown starting location %s", startLoc)
	}

	p := player.NewState(startLoc, diff.StartingMoney, diff.StartingDebt, diff.StartingCapacity)

	calc := market.NewCalculator(cfg.Noise)
	cache, err := market.NewPriceCache(calc, cfg.Tuning.PriceCacheSize)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	s := &Session{
		ID:        uuid.NewString(),
		Catalog:   cfg.Catalog,
		Player:    p,
		Inventory: player.NewMemoryInventory(p),
		Runtime:   events.NewRuntimeState(),
		Prices:    make(map[string]market.PriceTable),
		cache:     cache,
		updater:   market.NewBatchUpdater(cache),
		applier:   events.NewApplier(),
		rng:       cfg.Rng,
		bus:       cfg.Bus,
	}
	s.selector = events.NewSelector(cfg.Catalog.Events, cfg.Rng, events.Difficulty{
		EventFrequency: diff.EventFrequency,
		PhaseEarly:     diff.PhaseEarly,
		PhaseMid:       diff.PhaseMid,
		PhaseLate:      diff.PhaseLate,
		MaxWeeks:       diff.MaxWeeks,
		LowWealth:      diff.LowWealth,
	})
	return s, nil
}

// AdvanceWeek moves the simulation one tick: a full price refresh per
// location, then modifier and cooldown maintenance, then at most one event
// draw (chained events take precedence over fresh selection).
func (s *Session) AdvanceWeek() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Week++
	// Prices first, maintenance second: a modifier with N weeks left
	// influences exactly N refreshes before it ages out.
	s.refreshPrices()
	if s.Runtime.TickMaintenance(s.Week) {
		// Expired modifiers leave memoized prices behind stale fingerprints.
		s.cache.Clear("")
	}
	s.rollEvent()

	slog.Info("week advanced",
		"week", s.Week,
		"money", s.Player.Money,
		"debt", s.Player.Debt,
		"active_modifiers", len(s.Runtime.Active),
		"pending_event", s.pending != nil,
	)
}

func (s *Session) refreshPrices() {
	for _, loc := range s.Catalog.Locations {
		mods := market.Combine(s.Runtime.Active, loc.ID)
		s.Prices[loc.ID] = s.updater.UpdateAllForLocation(s.Catalog.Goods, s.Week, s.Prices[loc.ID], mods, loc)
	}
	s.publish(notify.KindPricesUpdated, map[string]any{"locations": len(s.Catalog.Locations)})
}

func (s *Session) rollEvent() {
	if s.pending != nil {
		// An unresolved prompt carries over; never stack a second one.
		return
	}
	gs := s.gameState()

	var def *events.Definition
	for _, id := range s.Runtime.DrainChained() {
		if d, ok := s.Catalog.EventsByID[id]; ok && def == nil {
			def = d
		} else if def != nil {
			// Only one event surfaces per tick; push the rest back.
			s.Runtime.ScheduleChained(id)
		}
	}
	if def == nil {
		def = s.selector.Pick(gs, s.Runtime)
	}
	if def == nil {
		return
	}

	s.pending = s.applier.Surface(def, gs, s.Runtime)
	s.publish(notify.KindEventTriggered, map[string]any{
		"event_id": def.ID,
		"title":    def.Title,
		"options":  len(def.Options),
	})
}

// PendingEvent returns the surfaced, unresolved event definition, if any.
func (s *Session) PendingEvent() (*events.Definition, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return nil, false
	}
	return s.pending.Def, true
}

// ResolvePending applies the chosen option of the pending event. On a
// validation error the event stays pending and no state changes.
func (s *Session) ResolvePending(optionIndex int) (*events.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		return nil, ErrNoPendingEvent
	}

	res, err := s.applier.Resolve(s.pending, optionIndex, s.gameState(), s.Runtime)
	if err != nil {
		return nil, err
	}
	s.pending = nil

	if res.Applied.MarketEffects > 0 {
		// New modifiers change the fingerprint of everything downstream.
		s.cache.Clear("")
	}

	s.publish(notify.KindEventResolved, map[string]any{
		"event_id": res.EventID,
		"option":   res.OptionIndex,
	})
	s.publish(notify.KindEffectsApplied, res.Applied)
	return res, nil
}

// PriceTable returns the current table for a location. Tables are built
// fresh every tick and never mutated after publication, so the returned
// value is safe to read without further locking.
func (s *Session) PriceTable(locationID string) (market.PriceTable, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.Prices[locationID]
	return t, ok
}

// SessionID returns the playthrough id.
func (s *Session) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ID
}

// CurrentWeek returns the simulated week.
func (s *Session) CurrentWeek() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Week
}

// PlayerInfo is a point-in-time copy of the player for read-only surfaces.
// The maps are detached from the live state.
type PlayerInfo struct {
	Money      float64            `json:"money"`
	Debt       float64            `json:"debt"`
	Location   string             `json:"location"`
	Capacity   int                `json:"capacity"`
	Attributes map[string]float64 `json:"attributes"`
	Inventory  map[string]int     `json:"inventory"`
	Cargo      int                `json:"cargo"`
}

// PlayerView captures the player under the session lock.
func (s *Session) PlayerView() PlayerInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return PlayerInfo{
		Money:      s.Player.Money,
		Debt:       s.Player.Debt,
		Location:   s.Player.Location,
		Capacity:   s.Player.Capacity,
		Attributes: maps.Clone(s.Player.Attributes),
		Inventory:  s.Inventory.Items(),
		Cargo:      s.Inventory.Total(),
	}
}

// HistoryTail returns a copy of the most recent resolved events, oldest
// first, capped at limit when positive.
func (s *Session) HistoryTail(limit int) []events.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	hist := s.Runtime.History
	if limit > 0 && len(hist) > limit {
		hist = hist[len(hist)-limit:]
	}
	out := make([]events.HistoryEntry, len(hist))
	copy(out, hist)
	return out
}

// CacheStats exposes the memo table counters for the status endpoint.
func (s *Session) CacheStats() (hits, misses uint64) { return s.cache.Stats() }

func (s *Session) gameState() *events.GameState {
	return &events.GameState{Week: s.Week, Player: s.Player, Inventory: s.Inventory}
}

func (s *Session) publish(kind notify.Kind, payload any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(notify.Notification{Kind: kind, Week: s.Week, Payload: payload})
}
