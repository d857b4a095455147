// Weekly price computation. Pure: identical inputs plus an identical noise
// draw give an identical quote. See design doc Section 4.1.
package market

import (
	"fmt"
	"math"

	"github.com/talgya/crossroads-trader/internal/entropy"
	"github.com/talgya/crossroads-trader/internal/numutil"
)

// Influence weights. Five additive influences form a single multiplicative
// delta on the previous price.
const (
	seasonalAmplitude = 0.03  // ±3% over a 52-week cycle
	noiseWeight       = 0.2   // scaled by volatility/10
	trendBiasEarly    = 0.005 // slow rise for the first half of the run
	trendBiasLate     = -0.005
	trendBiasFlipWeek = 26
	locationWeight    = 0.1
	globalModWeight   = 0.05
	volModWeight      = 0.02

	weeksPerCycle = 52

	// Soft mean reversion: once the clamped price sits more than
	// reversionZone of the half-range from the midpoint, pull it back with
	// strength (distance - reversionZone) * reversionRate. Keeps prices off
	// the rails without forbidding excursions.
	reversionZone = 0.4
	reversionRate = 0.05
)

// Trend classification thresholds, in percent.
const (
	strongMovePct = 15
	movePct       = 5
	// Band position quintiles for the stable classifications.
	highBandPos = 0.8
	lowBandPos  = 0.2
)

// Quote is the result of one price computation.
type Quote struct {
	Price         float64 `json:"price"`
	Trend         Trend   `json:"trend"`
	ChangePercent float64 `json:"change_percent"`
}

// Calculator computes weekly prices. It holds no mutable state; the injected
// noise function is the only stochastic input.
type Calculator struct {
	noise entropy.NoiseFunc
}

// NewCalculator returns a calculator drawing jitter from noise.
func NewCalculator(noise entropy.NoiseFunc) *Calculator {
	return &Calculator{noise: noise}
}

// Compute derives the next price for g at the given week. prev is the price
// from the previous tick, or nil on the first computation (the base price is
// used instead). locationFactor is the multiplicative adjustment of the
// trading location; mods is the combined modifier snapshot, nil when none is
// active.
func (c *Calculator) Compute(g *Good, week int, prev *float64, locationFactor float64, mods *Modifiers) (Quote, error) {
	if err := g.Validate(); err != nil {
		return Quote{}, err
	}
	if locationFactor <= 0 {
		return Quote{}, fmt.Errorf("good %s: location factor must be positive, got %.3f", g.ID, locationFactor)
	}

	base := g.BasePrice
	if prev != nil {
		base = *prev
	}
	if base <= 0 || math.IsNaN(base) || math.IsInf(base, 0) {
		return Quote{}, fmt.Errorf("good %s: unusable previous price %v", g.ID, base)
	}

	seasonal := numutil.FastSin(2*math.Pi*float64(week)/weeksPerCycle) * seasonalAmplitude

	draw := c.noise(g.ID, week)
	noise := (draw - 0.5) * (g.Volatility / 10) * noiseWeight

	bias := trendBiasEarly
	if week >= trendBiasFlipWeek {
		bias = trendBiasLate
	}

	location := (locationFactor - 1) * locationWeight

	var modInfluence float64
	if mods != nil {
		modInfluence = (mods.GlobalMultiplier-1)*globalModWeight + mods.VolatilityBump*volModWeight
		bias += mods.TrendBias
	}

	total := seasonal + noise + bias + location + modInfluence
	price := base * (1 + total)

	// Hard clamp, then soft mean reversion away from the rails.
	if price < g.MinPrice {
		price = g.MinPrice
	}
	if price > g.MaxPrice {
		price = g.MaxPrice
	}
	mid := (g.MinPrice + g.MaxPrice) / 2
	halfRange := (g.MaxPrice - g.MinPrice) / 2
	if halfRange > 0 {
		dist := math.Abs(price-mid) / halfRange
		if dist > reversionZone {
			strength := (dist - reversionZone) * reversionRate
			price += (mid - price) * strength
		}
	}

	price = numutil.Round2(price)
	changePct := numutil.Round2((price - base) / base * 100)

	return Quote{
		Price:         price,
		Trend:         classifyTrend(changePct, price, g),
		ChangePercent: changePct,
	}, nil
}

// classifyTrend picks the first matching movement class; small movements
// classify by position in the price band instead.
func classifyTrend(changePct, price float64, g *Good) Trend {
	switch {
	case changePct > strongMovePct:
		return TrendRisingStrong
	case changePct > movePct:
		return TrendRising
	case changePct < -strongMovePct:
		return TrendFallingStrong
	case changePct < -movePct:
		return TrendFalling
	}

	band := g.MaxPrice - g.MinPrice
	if band <= 0 {
		return TrendStable
	}
	pos := (price - g.MinPrice) / band
	switch {
	case pos >= highBandPos:
		return TrendStableHigh
	case pos <= lowBandPos:
		return TrendStableLow
	default:
		return TrendStable
	}
}
