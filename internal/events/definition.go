package events

import (
	"fmt"

	"github.com/talgya/crossroads-trader/internal/entropy"
	"github.com/talgya/crossroads-trader/internal/player"
)

// Category biases event selection by game stage and player wealth.
type Category string

const (
	CategoryPositive Category = "positive"
	CategoryNegative Category = "negative"
	CategoryNeutral  Category = "neutral"
)

// GameState is the view the event engine evaluates conditions against and
// applies effects to.
type GameState struct {
	Week      int
	Player    *player.State
	Inventory player.InventoryService
}

// Option is one player choice on an event. Eligible, when set, hides the
// option from states it doesn't apply to; it is code-registered, never
// catalog data.
type Option struct {
	Text       string     `json:"text"`
	ResultText string     `json:"result_text,omitempty"`
	Effects    EffectList `json:"effects,omitempty"`

	Eligible func(*GameState) bool `json:"-"`
}

// ItemRequirement gates an event on held quantity of one good.
type ItemRequirement struct {
	GoodID string `json:"good_id"`
	Min    *int   `json:"min,omitempty"`
	Max    *int   `json:"max,omitempty"`
}

// AttributeRange gates an event on a player attribute.
type AttributeRange struct {
	Name string   `json:"name"`
	Min  *float64 `json:"min,omitempty"`
	Max  *float64 `json:"max,omitempty"`
}

// Conditions gate event eligibility. Every field is optional; zero values
// mean "no constraint". Checks run in declaration order and short-circuit on
// the first failure.
type Conditions struct {
	MinWeek   int      `json:"min_week,omitempty"`
	MaxWeek   int      `json:"max_week,omitempty"` // 0 = open-ended
	Locations []string `json:"locations,omitempty"`

	MinMoney *float64 `json:"min_money,omitempty"`
	MaxMoney *float64 `json:"max_money,omitempty"`
	MinDebt  *float64 `json:"min_debt,omitempty"`
	MaxDebt  *float64 `json:"max_debt,omitempty"`

	Items      []ItemRequirement `json:"items,omitempty"`
	Attributes []AttributeRange  `json:"attributes,omitempty"`

	RequiredEvents []string `json:"required_events,omitempty"`
	ExcludedEvents []string `json:"excluded_events,omitempty"`

	// Probability is a final Bernoulli gate in (0, 1]; 0 means 1.
	Probability float64 `json:"probability,omitempty"`

	// Predicate is a code-registered custom check, run after all data
	// checks and before the probability draw.
	Predicate func(*GameState) bool `json:"-"`
}

// Definition is an immutable catalogue event.
type Definition struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Options     []Option   `json:"options"`
	Conditions  Conditions `json:"conditions,omitempty"`
	Repeatable  bool       `json:"repeatable,omitempty"`
	Weight      float64    `json:"weight"`
	Category    Category   `json:"category"`
}

// Validate rejects malformed definitions at catalog load.
func (d *Definition) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("event: missing id")
	}
	if len(d.Options) == 0 {
		return fmt.Errorf("event %s: needs at least one option", d.ID)
	}
	if d.Weight <= 0 {
		return fmt.Errorf("event %s: weight must be positive, got %.2f", d.ID, d.Weight)
	}
	switch d.Category {
	case CategoryPositive, CategoryNegative, CategoryNeutral:
	default:
		return fmt.Errorf("event %s: unknown category %q", d.ID, d.Category)
	}
	if p := d.Conditions.Probability; p < 0 || p > 1 {
		return fmt.Errorf("event %s: probability must be in [0, 1], got %.2f", d.ID, p)
	}
	if d.Conditions.MaxWeek != 0 && d.Conditions.MaxWeek < d.Conditions.MinWeek {
		return fmt.Errorf("event %s: week window inverted (%d > %d)", d.ID, d.Conditions.MinWeek, d.Conditions.MaxWeek)
	}
	return nil
}

// CanTrigger evaluates the eligibility gauntlet in order, short-circuiting
// on the first failing check, and finishes with the Bernoulli probability
// draw. rt supplies the triggered set and cooldowns.
func (d *Definition) CanTrigger(gs *GameState, rt *RuntimeState, rng entropy.Source) bool {
	if !d.Repeatable && rt.WasTriggered(d.ID) {
		return false
	}
	if until, ok := rt.Cooldowns[d.ID]; ok && gs.Week < until {
		return false
	}

	c := &d.Conditions
	if gs.Week < c.MinWeek {
		return false
	}
	if c.MaxWeek != 0 && gs.Week > c.MaxWeek {
		return false
	}
	if len(c.Locations) > 0 && !containsString(c.Locations, gs.Player.Location) {
		return false
	}
	if c.MinMoney != nil && gs.Player.Money < *c.MinMoney {
		return false
	}
	if c.MaxMoney != nil && gs.Player.Money > *c.MaxMoney {
		return false
	}
	if c.MinDebt != nil && gs.Player.Debt < *c.MinDebt {
		return false
	}
	if c.MaxDebt != nil && gs.Player.Debt > *c.MaxDebt {
		return false
	}
	for _, req := range c.Items {
		q := gs.Inventory.Quantity(req.GoodID)
		if req.Min != nil && q < *req.Min {
			return false
		}
		if req.Max != nil && q > *req.Max {
			return false
		}
	}
	for _, ar := range c.Attributes {
		v := gs.Player.Attribute(ar.Name)
		if ar.Min != nil && v < *ar.Min {
			return false
		}
		if ar.Max != nil && v > *ar.Max {
			return false
		}
	}
	for _, id := range c.RequiredEvents {
		if !rt.WasTriggered(id) {
			return false
		}
	}
	for _, id := range c.ExcludedEvents {
		if rt.WasTriggered(id) {
			return false
		}
	}
	if c.Predicate != nil && !c.Predicate(gs) {
		return false
	}

	p := c.Probability
	if p == 0 {
		p = 1
	}
	return rng.Float() < p
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
