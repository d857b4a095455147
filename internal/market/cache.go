// LRU memoization over the calculator. Within a tick the batch updater asks
// for the same (good, week, prev, factor, modifiers) tuple from several
// paths; the cache answers repeats without recomputation.
// See design doc Section 4.2.
package market

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru"
)

// DefaultCacheSize caps the memo table. One entry per distinct computation
// input; 1000 comfortably covers a catalogue across several locations and
// weeks of lookback.
const DefaultCacheSize = 1000

// cacheKey identifies one computation. A struct key avoids the collision and
// parsing ambiguity of concatenated strings.
type cacheKey struct {
	GoodID         string
	Week           int
	PrevPrice      float64
	HasPrev        bool
	LocationFactor float64
	ModFingerprint uint64
}

// PriceCache memoizes Calculator.Compute behind a fixed-capacity LRU table.
// Safe for concurrent use; the underlying table serializes access and the
// counters are atomic.
type PriceCache struct {
	calc  *Calculator
	table *lru.Cache

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewPriceCache wraps calc with an LRU table of the given capacity.
// capacity <= 0 selects DefaultCacheSize.
func NewPriceCache(calc *Calculator, capacity int) (*PriceCache, error) {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	table, err := lru.New(capacity)
	if err != nil {
		return nil, err
	}
	return &PriceCache{calc: calc, table: table}, nil
}

// Compute returns the memoized quote for the inputs, delegating to the
// calculator on a miss. Hits refresh the entry's recency; misses insert and
// evict the least-recently-touched entry once the table is full. Failed
// computations are never cached.
func (pc *PriceCache) Compute(g *Good, week int, prev *float64, locationFactor float64, mods *Modifiers) (Quote, error) {
	key := cacheKey{
		GoodID:         g.ID,
		Week:           week,
		LocationFactor: locationFactor,
		ModFingerprint: mods.Fingerprint(),
	}
	if prev != nil {
		key.PrevPrice = *prev
		key.HasPrev = true
	}

	if v, ok := pc.table.Get(key); ok {
		pc.hits.Add(1)
		return v.(Quote), nil
	}

	q, err := pc.calc.Compute(g, week, prev, locationFactor, mods)
	if err != nil {
		return Quote{}, err
	}
	pc.misses.Add(1)
	pc.table.Add(key, q)
	return q, nil
}

// Clear removes every entry for the given good id; with an empty id it
// clears the whole table. Called when upstream modifier or catalogue state
// changes in a way that would leave stale entries behind.
func (pc *PriceCache) Clear(goodID string) {
	if goodID == "" {
		pc.table.Purge()
		return
	}
	for _, k := range pc.table.Keys() {
		if ck, ok := k.(cacheKey); ok && ck.GoodID == goodID {
			pc.table.Remove(k)
		}
	}
}

// Len returns the current entry count.
func (pc *PriceCache) Len() int { return pc.table.Len() }

// Stats returns the hit and miss counters.
func (pc *PriceCache) Stats() (hits, misses uint64) {
	return pc.hits.Load(), pc.misses.Load()
}
