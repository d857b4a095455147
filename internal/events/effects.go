// Package events provides the narrative event engine: loaded definitions
// with eligibility conditions and weighted options, weekly selection, and
// the effect applier that mutates player and market state.
// See design doc Section 5.
package events

import (
	"encoding/json"
	"fmt"
)

// EffectKind tags one variant of the closed effect set. The applier switches
// over these exhaustively; there is no open-ended payload.
type EffectKind string

const (
	EffectMoney     EffectKind = "money"
	EffectDebt      EffectKind = "debt"
	EffectInventory EffectKind = "inventory"
	EffectMarket    EffectKind = "market"
	EffectAttribute EffectKind = "attribute"
	EffectLocation  EffectKind = "location"
	EffectCapacity  EffectKind = "capacity"
	EffectChain     EffectKind = "chain"
)

// Effect is one variant of the closed effect set.
type Effect interface {
	Kind() EffectKind
}

// MoneyEffect adds Amount (possibly negative) to the player's money.
type MoneyEffect struct {
	Amount float64
}

// DebtEffect adds Amount (possibly negative) to the player's debt.
type DebtEffect struct {
	Amount float64
}

// InventoryEffect moves Qty units of a good in (positive) or out (negative)
// of the player's inventory via the inventory collaborator.
type InventoryEffect struct {
	GoodID string
	Qty    int
}

// MarketEffect pushes a timed market modifier. Weeks is the duration; an
// empty LocationID makes the modifier market-wide.
type MarketEffect struct {
	GlobalMultiplier float64
	VolatilityBump   float64
	TrendBias        float64
	LocationID       string
	Weeks            int
}

// AttributeEffect adds Delta to a named player attribute.
type AttributeEffect struct {
	Name  string
	Delta float64
}

// LocationEffect forcibly moves the player.
type LocationEffect struct {
	LocationID string
}

// CapacityEffect adjusts the player's carrying capacity.
type CapacityEffect struct {
	Delta int
}

// ChainEffect schedules another event for the following tick. Never resolved
// synchronously, to avoid reentrant mutation during resolution.
type ChainEffect struct {
	EventID string
}

func (MoneyEffect) Kind() EffectKind     { return EffectMoney }
func (DebtEffect) Kind() EffectKind      { return EffectDebt }
func (InventoryEffect) Kind() EffectKind { return EffectInventory }
func (MarketEffect) Kind() EffectKind    { return EffectMarket }
func (AttributeEffect) Kind() EffectKind { return EffectAttribute }
func (LocationEffect) Kind() EffectKind  { return EffectLocation }
func (CapacityEffect) Kind() EffectKind  { return EffectCapacity }
func (ChainEffect) Kind() EffectKind     { return EffectChain }

// EffectList carries an option's effects through JSON as an array of
// {"kind": ...} envelopes.
type EffectList []Effect

// effectDoc is the flat JSON envelope covering every variant's fields.
type effectDoc struct {
	Kind EffectKind `json:"kind"`

	Amount float64 `json:"amount,omitempty"`

	GoodID string `json:"good_id,omitempty"`
	Qty    int    `json:"qty,omitempty"`

	GlobalMultiplier float64 `json:"global_multiplier,omitempty"`
	VolatilityBump   float64 `json:"volatility_bump,omitempty"`
	TrendBias        float64 `json:"trend_bias,omitempty"`
	LocationID       string  `json:"location_id,omitempty"`
	Weeks            int     `json:"weeks,omitempty"`

	Name  string  `json:"name,omitempty"`
	Delta float64 `json:"delta,omitempty"`

	EventID string `json:"event_id,omitempty"`
}

// UnmarshalJSON decodes the envelope array into concrete variants, rejecting
// unknown kinds at catalog load rather than at apply time.
func (l *EffectList) UnmarshalJSON(b []byte) error {
	var docs []effectDoc
	if err := json.Unmarshal(b, &docs); err != nil {
		return err
	}
	out := make(EffectList, 0, len(docs))
	for i, d := range docs {
		eff, err := d.toEffect()
		if err != nil {
			return fmt.Errorf("effect %d: %w", i, err)
		}
		out = append(out, eff)
	}
	*l = out
	return nil
}

// MarshalJSON re-encodes the variants as envelopes.
func (l EffectList) MarshalJSON() ([]byte, error) {
	docs := make([]effectDoc, 0, len(l))
	for _, e := range l {
		docs = append(docs, toDoc(e))
	}
	return json.Marshal(docs)
}

func (d effectDoc) toEffect() (Effect, error) {
	switch d.Kind {
	case EffectMoney:
		return MoneyEffect{Amount: d.Amount}, nil
	case EffectDebt:
		return DebtEffect{Amount: d.Amount}, nil
	case EffectInventory:
		if d.GoodID == "" {
			return nil, fmt.Errorf("inventory effect: missing good_id")
		}
		return InventoryEffect{GoodID: d.GoodID, Qty: d.Qty}, nil
	case EffectMarket:
		if d.Weeks <= 0 {
			return nil, fmt.Errorf("market effect: duration must be positive, got %d", d.Weeks)
		}
		return MarketEffect{
			GlobalMultiplier: d.GlobalMultiplier,
			VolatilityBump:   d.VolatilityBump,
			TrendBias:        d.TrendBias,
			LocationID:       d.LocationID,
			Weeks:            d.Weeks,
		}, nil
	case EffectAttribute:
		if d.Name == "" {
			return nil, fmt.Errorf("attribute effect: missing name")
		}
		return AttributeEffect{Name: d.Name, Delta: d.Delta}, nil
	case EffectLocation:
		if d.LocationID == "" {
			return nil, fmt.Errorf("location effect: missing location_id")
		}
		return LocationEffect{LocationID: d.LocationID}, nil
	case EffectCapacity:
		return CapacityEffect{Delta: int(d.Delta)}, nil
	case EffectChain:
		if d.EventID == "" {
			return nil, fmt.Errorf("chain effect: missing event_id")
		}
		return ChainEffect{EventID: d.EventID}, nil
	default:
		return nil, fmt.Errorf("unknown effect kind %q", d.Kind)
	}
}

func toDoc(e Effect) effectDoc {
	switch v := e.(type) {
	case MoneyEffect:
		return effectDoc{Kind: EffectMoney, Amount: v.Amount}
	case DebtEffect:
		return effectDoc{Kind: EffectDebt, Amount: v.Amount}
	case InventoryEffect:
		return effectDoc{Kind: EffectInventory, GoodID: v.GoodID, Qty: v.Qty}
	case MarketEffect:
		return effectDoc{
			Kind:             EffectMarket,
			GlobalMultiplier: v.GlobalMultiplier,
			VolatilityBump:   v.VolatilityBump,
			TrendBias:        v.TrendBias,
			LocationID:       v.LocationID,
			Weeks:            v.Weeks,
		}
	case AttributeEffect:
		return effectDoc{Kind: EffectAttribute, Name: v.Name, Delta: v.Delta}
	case LocationEffect:
		return effectDoc{Kind: EffectLocation, LocationID: v.LocationID}
	case CapacityEffect:
		return effectDoc{Kind: EffectCapacity, Delta: float64(v.Delta)}
	case ChainEffect:
		return effectDoc{Kind: EffectChain, EventID: v.EventID}
	default:
		return effectDoc{}
	}
}
