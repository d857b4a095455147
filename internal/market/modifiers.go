// Transient market-wide modifiers. Event effects push ActiveModifier entries;
// the session decrements them each tick and drops them at zero. The
// calculator only ever sees the combined Modifiers snapshot.
package market

import (
	"github.com/talgya/crossroads-trader/internal/numutil"
)

// ActiveModifier is one timed market effect. LocationID restricts the
// modifier to a single location; empty means market-wide.
type ActiveModifier struct {
	SourceEventID    string  `json:"source_event_id,omitempty"`
	GlobalMultiplier float64 `json:"global_multiplier"`
	VolatilityBump   float64 `json:"volatility_bump"`
	TrendBias        float64 `json:"trend_bias"`
	LocationID       string  `json:"location_id,omitempty"`
	WeeksLeft        int     `json:"weeks_left"`
}

// Modifiers is the aggregate snapshot passed into the calculator. A nil
// *Modifiers means no modifier is active.
type Modifiers struct {
	GlobalMultiplier float64
	VolatilityBump   float64
	TrendBias        float64
}

// Combine folds the active modifiers that apply at locationID into one
// snapshot. Returns nil when nothing applies, so callers can pass the result
// straight to the calculator.
func Combine(active []*ActiveModifier, locationID string) *Modifiers {
	var out *Modifiers
	for _, m := range active {
		if m.WeeksLeft <= 0 {
			continue
		}
		if m.LocationID != "" && m.LocationID != locationID {
			continue
		}
		if out == nil {
			out = &Modifiers{GlobalMultiplier: 1}
		}
		if m.GlobalMultiplier > 0 {
			out.GlobalMultiplier *= m.GlobalMultiplier
		}
		out.VolatilityBump += m.VolatilityBump
		out.TrendBias += m.TrendBias
	}
	return out
}

// Fingerprint folds the three decision-relevant fields into a cache-key
// component. Nil modifiers fingerprint to zero.
func (m *Modifiers) Fingerprint() uint64 {
	if m == nil {
		return 0
	}
	return numutil.Fingerprint(m.GlobalMultiplier, m.VolatilityBump, m.TrendBias)
}

// DecrementAll ages every modifier by one tick and returns the survivors
// along with how many expired.
func DecrementAll(active []*ActiveModifier) (remaining []*ActiveModifier, expired int) {
	for _, m := range active {
		m.WeeksLeft--
		if m.WeeksLeft > 0 {
			remaining = append(remaining, m)
		} else {
			expired++
		}
	}
	return remaining, expired
}
