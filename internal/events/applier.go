// Effect application. An event instance moves Pending → Resolved exactly
// once; a failed resolution leaves it Pending with no partial effects.
// See design doc Section 5.3.
package events

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/talgya/crossroads-trader/internal/market"
	"github.com/talgya/crossroads-trader/internal/player"
)

// CooldownWeeks is how long a resolved non-repeatable event stays off the
// selector's table.
const CooldownWeeks = 10

// Resolution errors. The caller reports these to the player; the instance
// stays Pending.
var (
	ErrInvalidOption     = errors.New("option index out of range")
	ErrAlreadyResolved   = errors.New("event already resolved")
	ErrOptionUnavailable = errors.New("option not available in current state")
)

// ResolutionState tracks an instance through its lifecycle.
type ResolutionState int

const (
	StatePending ResolutionState = iota
	StateResolved
)

// Instance is one surfaced event awaiting (or past) resolution.
type Instance struct {
	Def  *Definition
	Week int

	state ResolutionState
}

// State returns the instance's lifecycle state.
func (i *Instance) State() ResolutionState { return i.state }

// Result reports a completed resolution.
type Result struct {
	EventID     string         `json:"event_id"`
	OptionIndex int            `json:"option_index"`
	ResultText  string         `json:"result_text,omitempty"`
	Applied     AppliedSummary `json:"applied"`
}

// Applier owns every mutation of the runtime state: surfacing, resolution,
// history, cooldowns. No other component writes RuntimeState directly.
type Applier struct{}

// NewApplier returns an effect applier.
func NewApplier() *Applier { return &Applier{} }

// Surface creates a Pending instance for a selected event and records the
// trigger against the current location's congestion counter.
func (a *Applier) Surface(def *Definition, gs *GameState, rt *RuntimeState) *Instance {
	if rt.Congestion == nil {
		rt.Congestion = make(map[string]int)
	}
	rt.Congestion[gs.Player.Location]++
	return &Instance{Def: def, Week: gs.Week}
}

// Reinstate rebuilds a Pending instance from a save. Unlike Surface it does
// not touch congestion; the original trigger was already counted.
func Reinstate(def *Definition, week int) *Instance {
	return &Instance{Def: def, Week: week}
}

// Resolve applies the chosen option's effects. On any validation failure the
// instance remains Pending and no effect is applied. Inventory rejections
// (capacity, shortage) are not failures: the rejection reason lands in the
// summary and resolution proceeds.
func (a *Applier) Resolve(inst *Instance, optionIndex int, gs *GameState, rt *RuntimeState) (*Result, error) {
	if inst.state == StateResolved {
		return nil, ErrAlreadyResolved
	}
	if optionIndex < 0 || optionIndex >= len(inst.Def.Options) {
		return nil, fmt.Errorf("%w: %d of %d", ErrInvalidOption, optionIndex, len(inst.Def.Options))
	}
	opt := &inst.Def.Options[optionIndex]
	if opt.Eligible != nil && !opt.Eligible(gs) {
		return nil, ErrOptionUnavailable
	}

	applied := a.applyEffects(opt.Effects, inst.Def.ID, gs, rt)

	inst.state = StateResolved
	rt.MarkTriggered(inst.Def.ID)
	if !inst.Def.Repeatable {
		if rt.Cooldowns == nil {
			rt.Cooldowns = make(map[string]int)
		}
		rt.Cooldowns[inst.Def.ID] = gs.Week + CooldownWeeks
	}
	rt.History = append(rt.History, HistoryEntry{
		ID:          uuid.NewString(),
		EventID:     inst.Def.ID,
		Week:        gs.Week,
		OptionIndex: optionIndex,
		OptionText:  opt.Text,
		Applied:     applied,
	})

	return &Result{
		EventID:     inst.Def.ID,
		OptionIndex: optionIndex,
		ResultText:  opt.ResultText,
		Applied:     applied,
	}, nil
}

// applyEffects matches every variant of the closed effect set.
func (a *Applier) applyEffects(effects EffectList, eventID string, gs *GameState, rt *RuntimeState) AppliedSummary {
	var sum AppliedSummary
	for _, e := range effects {
		switch v := e.(type) {
		case MoneyEffect:
			gs.Player.Money += v.Amount
			sum.Money += v.Amount
		case DebtEffect:
			gs.Player.Debt += v.Amount
			if gs.Player.Debt < 0 {
				gs.Player.Debt = 0
			}
			sum.Debt += v.Amount
		case InventoryEffect:
			a.applyInventory(v, gs, &sum)
		case MarketEffect:
			rt.PushModifier(&market.ActiveModifier{
				SourceEventID:    eventID,
				GlobalMultiplier: v.GlobalMultiplier,
				VolatilityBump:   v.VolatilityBump,
				TrendBias:        v.TrendBias,
				LocationID:       v.LocationID,
				WeeksLeft:        v.Weeks,
			})
			sum.MarketEffects++
		case AttributeEffect:
			gs.Player.AdjustAttribute(v.Name, v.Delta)
			if sum.Attributes == nil {
				sum.Attributes = make(map[string]float64)
			}
			sum.Attributes[v.Name] += v.Delta
		case LocationEffect:
			gs.Player.Location = v.LocationID
			sum.NewLocation = v.LocationID
		case CapacityEffect:
			gs.Player.Capacity += v.Delta
			if gs.Player.Capacity < 0 {
				gs.Player.Capacity = 0
			}
			sum.Capacity += v.Delta
		case ChainEffect:
			rt.ScheduleChained(v.EventID)
			sum.ChainedEvent = v.EventID
		}
	}
	return sum
}

func (a *Applier) applyInventory(v InventoryEffect, gs *GameState, sum *AppliedSummary) {
	var res player.InventoryResult
	if v.Qty >= 0 {
		res = gs.Inventory.AddItem(v.GoodID, v.Qty)
	} else {
		res = gs.Inventory.RemoveItem(v.GoodID, -v.Qty)
	}
	if res.OK {
		if sum.Items == nil {
			sum.Items = make(map[string]int)
		}
		sum.Items[v.GoodID] += v.Qty
		return
	}
	if sum.ItemFailures == nil {
		sum.ItemFailures = make(map[string]string)
	}
	sum.ItemFailures[v.GoodID] = string(res.Reason)
}
