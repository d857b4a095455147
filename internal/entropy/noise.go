// Per-good price noise. Unlike Source, a NoiseFunc is keyed by good and week
// so the batch updater can run its loop in any order (or in parallel) and
// still produce an identical price table.
package entropy

import (
	opensimplex "github.com/ojrac/opensimplex-go"
)

// NoiseFunc returns a uniform-ish value in [0, 1) for a (key, week) pair.
// Calls with the same arguments always return the same value.
type NoiseFunc func(key string, week int) float64

// HashNoise returns a NoiseFunc derived from the seed by hashing. Draws for
// different (key, week) pairs are statistically independent.
func HashNoise(seed int64) NoiseFunc {
	return func(key string, week int) float64 {
		x := keyHash(key, week) ^ uint64(seed)
		// splitmix64 finalizer — decorrelates the structured hash input.
		x += 0x9e3779b97f4a7c15
		x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
		x = (x ^ (x >> 27)) * 0x94d049bb133111eb
		x ^= x >> 31
		return float64(x>>11) / float64(1<<53)
	}
}

// SimplexNoise returns a NoiseFunc backed by normalized OpenSimplex noise.
// Each key gets its own track through the noise field, so a good's weekly
// jitter drifts smoothly instead of jumping — adjacent weeks are correlated.
// step controls how fast the track moves per week; 0.35 keeps week-to-week
// correlation around 0.5.
func SimplexNoise(seed int64, step float64) NoiseFunc {
	if step <= 0 {
		step = 0.35
	}
	noise := opensimplex.NewNormalized(seed)
	return func(key string, week int) float64 {
		// Spread keys far apart on the y axis so tracks don't overlap.
		track := float64(keyHash(key, 0)%100000) * 7.13
		v := noise.Eval2(float64(week)*step, track)
		if v >= 1 {
			v = 0.999999
		}
		if v < 0 {
			v = 0
		}
		return v
	}
}

// FixedNoise returns a NoiseFunc that always yields v. Test helper: v=0.5
// cancels the noise influence entirely.
func FixedNoise(v float64) NoiseFunc {
	return func(string, int) float64 { return v }
}
