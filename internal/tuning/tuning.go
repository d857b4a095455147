// Package tuning loads the simulation tuning profile from YAML.
package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	SimName string `yaml:"sim_name"`

	// TickIntervalMs is the wall-clock duration of one simulated week when
	// the loop free-runs. 0 means manual advancement only.
	TickIntervalMs int `yaml:"tick_interval_ms"`

	Seed int64 `yaml:"seed"`

	// PriceNoise selects the jitter source: "simplex" (smooth weekly drift)
	// or "hash" (independent draws).
	PriceNoise     string  `yaml:"price_noise"`
	NoiseStep      float64 `yaml:"noise_step"`
	PriceCacheSize int     `yaml:"price_cache_size"`

	Difficulty Difficulty `yaml:"difficulty"`
}

type Difficulty struct {
	Name           string  `yaml:"name"`
	EventFrequency float64 `yaml:"event_frequency"`
	PhaseEarly     float64 `yaml:"phase_early"`
	PhaseMid       float64 `yaml:"phase_mid"`
	PhaseLate      float64 `yaml:"phase_late"`
	MaxWeeks       int     `yaml:"max_weeks"`
	LowWealth      float64 `yaml:"low_wealth"`

	StartingMoney    float64 `yaml:"starting_money"`
	StartingDebt     float64 `yaml:"starting_debt"`
	StartingCapacity int     `yaml:"starting_capacity"`
	StartingLocation string  `yaml:"starting_location"`
}

// Load reads the tuning file and fills unset knobs with defaults.
func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.applyDefaults()
	return t, nil
}

// Default returns the built-in profile, used when no tuning file is given.
func Default() Tuning {
	var t Tuning
	t.applyDefaults()
	return t
}

func (t *Tuning) applyDefaults() {
	if t.SimName == "" {
		t.SimName = "crossroads-trader"
	}
	if t.PriceNoise == "" {
		t.PriceNoise = "simplex"
	}
	if t.NoiseStep <= 0 {
		t.NoiseStep = 0.35
	}
	if t.PriceCacheSize <= 0 {
		t.PriceCacheSize = 1000
	}
	d := &t.Difficulty
	if d.Name == "" {
		d.Name = "standard"
	}
	if d.EventFrequency <= 0 {
		d.EventFrequency = 0.35
	}
	if d.PhaseEarly <= 0 {
		d.PhaseEarly = 1.0
	}
	if d.PhaseMid <= 0 {
		d.PhaseMid = 1.0
	}
	if d.PhaseLate <= 0 {
		d.PhaseLate = 1.0
	}
	if d.MaxWeeks <= 0 {
		d.MaxWeeks = 52
	}
	if d.LowWealth <= 0 {
		d.LowWealth = 500
	}
	if d.StartingMoney <= 0 {
		d.StartingMoney = 2000
	}
	if d.StartingCapacity <= 0 {
		d.StartingCapacity = 100
	}
}
