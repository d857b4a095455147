// Package market provides the procedural pricing engine: the goods catalogue
// model, the per-week price calculator, the LRU-memoized wrapper around it,
// and the batch updater that refreshes a whole price table per location.
// See design doc Section 4.
package market

import (
	"fmt"
	"slices"
)

// Category groups goods for display and event targeting.
type Category string

const (
	CategoryFood       Category = "food"
	CategoryRaw        Category = "raw"
	CategoryCraft      Category = "craft"
	CategoryLuxury     Category = "luxury"
	CategoryContraband Category = "contraband"
)

// Good is an immutable catalogue entry. Prices for a good always stay inside
// [MinPrice, MaxPrice]; Volatility (1–10) scales the weekly random swing.
type Good struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	BasePrice  float64  `json:"base_price"`
	MinPrice   float64  `json:"min_price"`
	MaxPrice   float64  `json:"max_price"`
	Volatility float64  `json:"volatility"`
	Category   Category `json:"category"`
	// Locations where the good trades. Empty means everywhere.
	Locations []string `json:"locations,omitempty"`
}

// Validate rejects malformed catalogue entries. Called once at catalog load —
// data errors never surface per tick.
func (g *Good) Validate() error {
	if g.ID == "" {
		return fmt.Errorf("good: missing id")
	}
	if g.MinPrice > g.BasePrice || g.BasePrice > g.MaxPrice {
		return fmt.Errorf("good %s: price bounds violated (min=%.2f base=%.2f max=%.2f)",
			g.ID, g.MinPrice, g.BasePrice, g.MaxPrice)
	}
	if g.MinPrice <= 0 {
		return fmt.Errorf("good %s: min price must be positive, got %.2f", g.ID, g.MinPrice)
	}
	if g.Volatility <= 0 || g.Volatility > 10 {
		return fmt.Errorf("good %s: volatility must be in (0, 10], got %.2f", g.ID, g.Volatility)
	}
	return nil
}

// AvailableAt reports whether the good trades at the given location.
func (g *Good) AvailableAt(locationID string) bool {
	if len(g.Locations) == 0 {
		return true
	}
	for _, id := range g.Locations {
		if id == locationID {
			return true
		}
	}
	return false
}

// Trend is the qualitative classification of a good's price movement, or —
// when the movement is small — its position inside the price band.
type Trend string

const (
	TrendUnknown       Trend = "unknown" // zero value, before the first computation
	TrendRisingStrong  Trend = "rising_strong"
	TrendRising        Trend = "rising"
	TrendStableHigh    Trend = "stable_high"
	TrendStable        Trend = "stable"
	TrendStableLow     Trend = "stable_low"
	TrendFalling       Trend = "falling"
	TrendFallingStrong Trend = "falling_strong"
)

// HistoryLen bounds the per-record price history ring.
const HistoryLen = 20

// PriceRecord is the mutable per-good, per-location price state. Overwritten
// every tick; never deleted while the good exists.
type PriceRecord struct {
	GoodID        string  `json:"good_id"`
	Price         float64 `json:"price"`
	PrevPrice     float64 `json:"prev_price"`
	Trend         Trend   `json:"trend"`
	ChangePercent float64 `json:"change_percent"`
	// History holds the last HistoryLen prices, oldest first.
	History []float64 `json:"history,omitempty"`
}

// pushHistory appends p, dropping the oldest entry once the ring is full.
func (r *PriceRecord) pushHistory(p float64) {
	r.History = append(r.History, p)
	if len(r.History) > HistoryLen {
		r.History = r.History[len(r.History)-HistoryLen:]
	}
}

// Clone returns a deep copy, detaching the history ring.
func (r *PriceRecord) Clone() *PriceRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.History = slices.Clone(r.History)
	return &c
}

// PriceTable maps good id to its current record for one location.
type PriceTable map[string]*PriceRecord

// Clone deep-copies the table so it can be handed off outside the owning
// session's lock.
func (t PriceTable) Clone() PriceTable {
	if t == nil {
		return nil
	}
	out := make(PriceTable, len(t))
	for id, rec := range t {
		out[id] = rec.Clone()
	}
	return out
}
