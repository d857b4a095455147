package events

import (
	"maps"
	"slices"

	"github.com/talgya/crossroads-trader/internal/market"
)

// AppliedSummary records what one resolution actually changed. Flat and
// JSON-serializable for history and save blobs.
type AppliedSummary struct {
	Money         float64            `json:"money,omitempty"`
	Debt          float64            `json:"debt,omitempty"`
	Items         map[string]int     `json:"items,omitempty"`
	ItemFailures  map[string]string  `json:"item_failures,omitempty"`
	Attributes    map[string]float64 `json:"attributes,omitempty"`
	NewLocation   string             `json:"new_location,omitempty"`
	Capacity      int                `json:"capacity,omitempty"`
	MarketEffects int                `json:"market_effects,omitempty"`
	ChainedEvent  string             `json:"chained_event,omitempty"`
}

// HistoryEntry is one resolved event in the ordered session history.
type HistoryEntry struct {
	ID          string         `json:"id"`
	EventID     string         `json:"event_id"`
	Week        int            `json:"week"`
	OptionIndex int            `json:"option_index"`
	OptionText  string         `json:"option_text,omitempty"`
	Applied     AppliedSummary `json:"applied"`
}

// RuntimeState is the mutable per-playthrough event state. Owned by the
// simulation session, mutated only by the effect applier and the tick
// maintenance, serialized wholesale for save/restore.
type RuntimeState struct {
	// Triggered guards non-repeatable events for the rest of the session.
	Triggered map[string]bool `json:"triggered"`
	// Active holds the timed market effects currently in force.
	Active []*market.ActiveModifier `json:"active_modifiers,omitempty"`
	// History is the ordered resolution record.
	History []HistoryEntry `json:"history,omitempty"`
	// Cooldowns maps event id to the week at which reconsideration opens.
	Cooldowns map[string]int `json:"cooldowns,omitempty"`
	// Chained queues event ids scheduled for the following tick.
	Chained []string `json:"chained,omitempty"`
	// Congestion counts triggers per location, for selection dampening.
	Congestion map[string]int `json:"congestion,omitempty"`
}

// NewRuntimeState returns an empty runtime state.
func NewRuntimeState() *RuntimeState {
	return &RuntimeState{
		Triggered:  make(map[string]bool),
		Cooldowns:  make(map[string]int),
		Congestion: make(map[string]int),
	}
}

// Normalize repairs nil maps after a JSON round trip. Empty maps are
// dropped by omitempty on save and must come back usable.
func (rt *RuntimeState) Normalize() {
	if rt.Triggered == nil {
		rt.Triggered = make(map[string]bool)
	}
	if rt.Cooldowns == nil {
		rt.Cooldowns = make(map[string]int)
	}
	if rt.Congestion == nil {
		rt.Congestion = make(map[string]int)
	}
}

// Clone returns a deep copy. Save and snapshot writers marshal the copy
// outside the session lock while ticks keep mutating the original.
func (rt *RuntimeState) Clone() *RuntimeState {
	c := &RuntimeState{
		Triggered:  maps.Clone(rt.Triggered),
		Cooldowns:  maps.Clone(rt.Cooldowns),
		Congestion: maps.Clone(rt.Congestion),
		History:    slices.Clone(rt.History),
		Chained:    slices.Clone(rt.Chained),
	}
	for _, m := range rt.Active {
		mm := *m
		c.Active = append(c.Active, &mm)
	}
	c.Normalize()
	return c
}

// WasTriggered reports whether the event id has ever triggered this session.
func (rt *RuntimeState) WasTriggered(id string) bool { return rt.Triggered[id] }

// MarkTriggered records an event id into the non-repeatable guard set.
func (rt *RuntimeState) MarkTriggered(id string) {
	if rt.Triggered == nil {
		rt.Triggered = make(map[string]bool)
	}
	rt.Triggered[id] = true
}

// ScheduleChained queues an event for the following tick.
func (rt *RuntimeState) ScheduleChained(id string) {
	rt.Chained = append(rt.Chained, id)
}

// DrainChained pops every queued chained event id.
func (rt *RuntimeState) DrainChained() []string {
	out := rt.Chained
	rt.Chained = nil
	return out
}

// PushModifier adds a timed market effect.
func (rt *RuntimeState) PushModifier(m *market.ActiveModifier) {
	rt.Active = append(rt.Active, m)
}

// TickMaintenance runs at every tick boundary: active modifiers age by one
// week and vanish at zero, and cooldown entries at or before the current
// week are purged. Returns true when any modifier expired, which invalidates
// memoized prices upstream.
func (rt *RuntimeState) TickMaintenance(week int) (modifiersExpired bool) {
	remaining, expired := market.DecrementAll(rt.Active)
	rt.Active = remaining

	for id, until := range rt.Cooldowns {
		if until <= week {
			delete(rt.Cooldowns, id)
		}
	}
	return expired > 0
}
