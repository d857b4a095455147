// Weekly event selection: one Bernoulli draw decides whether anything fires,
// a stage/wealth bias picks the mood, and a weighted scan picks the event.
// See design doc Section 5.2.
package events

import (
	"github.com/talgya/crossroads-trader/internal/entropy"
)

// Difficulty is the selector's tuning slice.
type Difficulty struct {
	// EventFrequency is the base per-week trigger chance before stage and
	// phase multipliers.
	EventFrequency float64
	// Phase multipliers per game stage, from the difficulty profile.
	PhaseEarly float64
	PhaseMid   float64
	PhaseLate  float64
	// MaxWeeks is the run length; week/MaxWeeks determines the stage.
	MaxWeeks int
	// LowWealth is the money level under which selection skews positive.
	LowWealth float64
}

// Stage boundaries and multipliers. Early game fires fewer events, late game
// more.
const (
	earlyStageEnd = 0.3
	midStageEnd   = 0.7

	earlyStageMult = 0.7
	midStageMult   = 1.0
	lateStageMult  = 1.3

	triggerCap = 0.95

	// Category bias: positive events are favored early and for poor
	// players, negative late.
	baseBias      = 0.5
	stageBiasStep = 0.15
	wealthBias    = 0.2
	biasFloor     = 0.05
	biasCeil      = 0.95

	// Location congestion dampening: each prior trigger at the current
	// location shaves 5% off the trigger chance, capped at half.
	congestionStep = 0.05
	congestionCap  = 0.5
)

// Selector picks at most one event per week from the catalog.
type Selector struct {
	catalog []*Definition
	rng     entropy.Source
	diff    Difficulty
}

// NewSelector returns a selector over the loaded catalog.
func NewSelector(catalog []*Definition, rng entropy.Source, diff Difficulty) *Selector {
	return &Selector{catalog: catalog, rng: rng, diff: diff}
}

// Pick returns the selected event for this week, or nil — no candidates and
// a failed trigger draw are both the defined nil result, never errors.
func (s *Selector) Pick(gs *GameState, rt *RuntimeState) *Definition {
	if !s.rollTrigger(gs, rt) {
		return nil
	}

	wantPositive := s.rollBias(gs)

	var eligible, preferred []*Definition
	for _, d := range s.catalog {
		if !d.CanTrigger(gs, rt, s.rng) {
			continue
		}
		eligible = append(eligible, d)
		if d.Category == CategoryNeutral ||
			(wantPositive && d.Category == CategoryPositive) ||
			(!wantPositive && d.Category == CategoryNegative) {
			preferred = append(preferred, d)
		}
	}
	if len(eligible) == 0 {
		return nil
	}
	candidates := preferred
	if len(candidates) == 0 {
		candidates = eligible
	}

	return weightedPick(candidates, s.rng)
}

// rollTrigger performs the single per-week Bernoulli draw.
func (s *Selector) rollTrigger(gs *GameState, rt *RuntimeState) bool {
	stage, phase := s.stageMultipliers(gs.Week)
	p := s.diff.EventFrequency * stage * phase
	if p > triggerCap {
		p = triggerCap
	}

	// Repeated triggers at one location dampen further ones there.
	if n := rt.Congestion[gs.Player.Location]; n > 0 {
		reduction := congestionStep * float64(n)
		if reduction > congestionCap {
			reduction = congestionCap
		}
		p *= 1 - reduction
	}

	return s.rng.Float() < p
}

func (s *Selector) stageMultipliers(week int) (stage, phase float64) {
	maxWeeks := s.diff.MaxWeeks
	if maxWeeks <= 0 {
		maxWeeks = 52
	}
	progress := float64(week) / float64(maxWeeks)
	switch {
	case progress < earlyStageEnd:
		return earlyStageMult, s.diff.PhaseEarly
	case progress < midStageEnd:
		return midStageMult, s.diff.PhaseMid
	default:
		return lateStageMult, s.diff.PhaseLate
	}
}

// rollBias decides whether this week's event should skew positive.
func (s *Selector) rollBias(gs *GameState) bool {
	maxWeeks := s.diff.MaxWeeks
	if maxWeeks <= 0 {
		maxWeeks = 52
	}
	progress := float64(gs.Week) / float64(maxWeeks)

	p := baseBias
	switch {
	case progress < earlyStageEnd:
		p += stageBiasStep
	case progress >= midStageEnd:
		p -= stageBiasStep
	}
	if s.diff.LowWealth > 0 && gs.Player.Money < s.diff.LowWealth {
		p += wealthBias
	}
	if p < biasFloor {
		p = biasFloor
	}
	if p > biasCeil {
		p = biasCeil
	}
	return s.rng.Float() < p
}

// weightedPick draws uniformly in [0, totalWeight) and walks the list
// subtracting weights. Floating-point rounding can exhaust the list without
// the remainder reaching zero; the last candidate is the defined fallback
// for that case, not an error.
func weightedPick(candidates []*Definition, rng entropy.Source) *Definition {
	var total float64
	for _, c := range candidates {
		total += c.Weight
	}
	r := rng.Float() * total
	for _, c := range candidates {
		r -= c.Weight
		if r <= 0 {
			return c
		}
	}
	return candidates[len(candidates)-1]
}
