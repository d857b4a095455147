package market

import (
	"sync/atomic"
	"testing"

	"github.com/talgya/crossroads-trader/internal/entropy"
)

// countingNoise wraps a fixed draw and counts invocations, which measures
// how often the underlying calculator actually ran.
func countingNoise(calls *atomic.Int64) entropy.NoiseFunc {
	return func(string, int) float64 {
		calls.Add(1)
		return 0.5
	}
}

func TestCacheMemoizes(t *testing.T) {
	var calls atomic.Int64
	cache, err := NewPriceCache(NewCalculator(countingNoise(&calls)), 10)
	if err != nil {
		t.Fatal(err)
	}
	g := testGood()

	a, err := cache.Compute(g, 3, nil, 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	b, err := cache.Compute(g, 3, nil, 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatalf("cache returned a different quote: %+v vs %+v", a, b)
	}
	if calls.Load() != 1 {
		t.Fatalf("calculator ran %d times, want 1", calls.Load())
	}
	hits, misses := cache.Stats()
	if hits != 1 || misses != 1 {
		t.Fatalf("stats = %d hits %d misses, want 1/1", hits, misses)
	}
}

func TestCacheKeyComponents(t *testing.T) {
	var calls atomic.Int64
	cache, err := NewPriceCache(NewCalculator(countingNoise(&calls)), 100)
	if err != nil {
		t.Fatal(err)
	}
	g := testGood()
	prev := 120.0

	// Each variation below must be a distinct computation.
	inputs := []struct {
		week   int
		prev   *float64
		factor float64
		mods   *Modifiers
	}{
		{3, nil, 1, nil},
		{4, nil, 1, nil},
		{3, &prev, 1, nil},
		{3, nil, 1.1, nil},
		{3, nil, 1, &Modifiers{GlobalMultiplier: 1.2}},
	}
	for _, in := range inputs {
		if _, err := cache.Compute(g, in.week, in.prev, in.factor, in.mods); err != nil {
			t.Fatal(err)
		}
	}
	if calls.Load() != int64(len(inputs)) {
		t.Fatalf("calculator ran %d times, want %d", calls.Load(), len(inputs))
	}
}

func TestCacheEvicts(t *testing.T) {
	cache, err := NewPriceCache(NewCalculator(entropy.FixedNoise(0.5)), 2)
	if err != nil {
		t.Fatal(err)
	}
	g := testGood()

	for week := 1; week <= 3; week++ {
		if _, err := cache.Compute(g, week, nil, 1, nil); err != nil {
			t.Fatal(err)
		}
	}
	if cache.Len() != 2 {
		t.Fatalf("table holds %d entries after overflow, want 2", cache.Len())
	}

	// Week 1 was the least recently used and must recompute.
	if _, err := cache.Compute(g, 1, nil, 1, nil); err != nil {
		t.Fatal(err)
	}
	_, misses := cache.Stats()
	if misses != 4 {
		t.Fatalf("misses = %d, want 4 (evicted entry recomputed)", misses)
	}
}

func TestCacheClearByGood(t *testing.T) {
	cache, err := NewPriceCache(NewCalculator(entropy.FixedNoise(0.5)), 10)
	if err != nil {
		t.Fatal(err)
	}
	a := testGood()
	b := testGood()
	b.ID = "silk"

	for week := 1; week <= 3; week++ {
		if _, err := cache.Compute(a, week, nil, 1, nil); err != nil {
			t.Fatal(err)
		}
		if _, err := cache.Compute(b, week, nil, 1, nil); err != nil {
			t.Fatal(err)
		}
	}

	cache.Clear(a.ID)
	if cache.Len() != 3 {
		t.Fatalf("after Clear(%q): %d entries remain, want 3", a.ID, cache.Len())
	}

	cache.Clear("")
	if cache.Len() != 0 {
		t.Fatalf("after full clear: %d entries remain", cache.Len())
	}
}

func TestCacheNeverCachesErrors(t *testing.T) {
	var calls atomic.Int64
	cache, err := NewPriceCache(NewCalculator(countingNoise(&calls)), 10)
	if err != nil {
		t.Fatal(err)
	}
	bad := testGood()
	bad.Volatility = 0

	for i := 0; i < 2; i++ {
		if _, err := cache.Compute(bad, 1, nil, 1, nil); err == nil {
			t.Fatal("invalid good accepted")
		}
	}
	if cache.Len() != 0 {
		t.Fatalf("error result was cached: %d entries", cache.Len())
	}
}
