package session

import (
	"fmt"
	"log/slog"
	"maps"

	"github.com/talgya/crossroads-trader/internal/events"
	"github.com/talgya/crossroads-trader/internal/market"
)

// SaveState is the flat, JSON-serializable snapshot of a session. It carries
// plain data only; services are rebuilt on load.
type SaveState struct {
	SessionID     string                       `json:"session_id"`
	Week          int                          `json:"week"`
	CatalogDigest string                       `json:"catalog_digest"`
	Player        *playerSave                  `json:"player"`
	Runtime       *events.RuntimeState         `json:"runtime"`
	Prices        map[string]market.PriceTable `json:"prices"`
	// A pending event survives a save; it is re-surfaced as unresolved.
	PendingEventID string `json:"pending_event_id,omitempty"`
	PendingWeek    int    `json:"pending_week,omitempty"`
}

type playerSave struct {
	Money      float64            `json:"money"`
	Debt       float64            `json:"debt"`
	Location   string             `json:"location"`
	Capacity   int                `json:"capacity"`
	Attributes map[string]float64 `json:"attributes,omitempty"`
	Inventory  map[string]int     `json:"inventory,omitempty"`
}

// SaveState captures the current session as plain data. Everything the
// snapshot references is deep-copied, so callers may marshal it after the
// session lock is released.
func (s *Session) SaveState() *SaveState {
	s.mu.Lock()
	defer s.mu.Unlock()

	prices := make(map[string]market.PriceTable, len(s.Prices))
	for locID, t := range s.Prices {
		prices[locID] = t.Clone()
	}

	st := &SaveState{
		SessionID:     s.ID,
		Week:          s.Week,
		CatalogDigest: s.Catalog.Digest,
		Player: &playerSave{
			Money:      s.Player.Money,
			Debt:       s.Player.Debt,
			Location:   s.Player.Location,
			Capacity:   s.Player.Capacity,
			Attributes: maps.Clone(s.Player.Attributes),
			Inventory:  s.Inventory.Items(),
		},
		Runtime: s.Runtime.Clone(),
		Prices:  prices,
	}
	if s.pending != nil {
		st.PendingEventID = s.pending.Def.ID
		st.PendingWeek = s.pending.Week
	}
	return st
}

// LoadSaveState replaces the session's state wholesale with the snapshot.
// The snapshot must come from a catalogue-compatible save; a digest mismatch
// is logged but tolerated so catalogue tweaks do not orphan saves.
func (s *Session) LoadSaveState(st *SaveState) error {
	if st == nil || st.Player == nil {
		return fmt.Errorf("session: empty save state")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if st.CatalogDigest != "" && st.CatalogDigest != s.Catalog.Digest {
		slog.Warn("catalogue changed since save",
			"saved", st.CatalogDigest, "current", s.Catalog.Digest)
	}
	if _, ok := s.Catalog.LocationsByID[st.Player.Location]; !ok {
		return fmt.Errorf("session: save references unknown location %s", st.Player.Location)
	}

	if st.SessionID != "" {
		s.ID = st.SessionID
	}
	s.Week = st.Week
	s.Player.Money = st.Player.Money
	s.Player.Debt = st.Player.Debt
	s.Player.Location = st.Player.Location
	s.Player.Capacity = st.Player.Capacity
	s.Player.Attributes = st.Player.Attributes
	if s.Player.Attributes == nil {
		s.Player.Attributes = make(map[string]float64)
	}
	s.Inventory.Restore(st.Player.Inventory)

	s.Runtime = st.Runtime
	if s.Runtime == nil {
		s.Runtime = events.NewRuntimeState()
	}
	s.Runtime.Normalize()

	s.Prices = st.Prices
	if s.Prices == nil {
		s.Prices = make(map[string]market.PriceTable)
	}

	s.pending = nil
	if st.PendingEventID != "" {
		def, ok := s.Catalog.EventsByID[st.PendingEventID]
		if !ok {
			slog.Warn("pending event missing from catalogue, dropped", "event_id", st.PendingEventID)
		} else {
			s.pending = events.Reinstate(def, st.PendingWeek)
		}
	}

	s.cache.Clear("")
	return nil
}
