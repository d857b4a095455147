// Batch refresh of a whole catalogue for one tick. Goods are independent, so
// the loop fans out across a bounded worker group; the cache key space makes
// the resulting table identical regardless of execution order.
// See design doc Section 4.3.
package market

import (
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// defaultParallelism bounds the worker group. The per-good computation is
// cheap, so a small fan-out already saturates the win.
const defaultParallelism = 4

// BatchUpdater applies the cache-backed calculator across a catalogue.
type BatchUpdater struct {
	cache *PriceCache

	// Parallelism overrides the worker bound when positive. A value of 1
	// forces the serial path, which tests use to compare against the
	// parallel result.
	Parallelism int
}

// NewBatchUpdater returns an updater backed by cache.
func NewBatchUpdater(cache *PriceCache) *BatchUpdater {
	return &BatchUpdater{cache: cache}
}

// UpdateAll computes this week's record for every good with a neutral
// location factor. Every good in the input has exactly one entry in the
// output: a good whose computation fails gets a fallback record at its base
// price instead of aborting the batch.
func (b *BatchUpdater) UpdateAll(goods []*Good, week int, prev PriceTable, mods *Modifiers) PriceTable {
	return b.update(goods, week, prev, mods, func(*Good) float64 { return 1 })
}

// UpdateAllForLocation is the location-aware variant: each good is computed
// with the location's price factor, and the location's specialty goods get a
// further 10% discount. The adjustment happens via the effective factor fed
// to the cache, never by mutating the cache layer.
func (b *BatchUpdater) UpdateAllForLocation(goods []*Good, week int, prev PriceTable, mods *Modifiers, loc *Location) PriceTable {
	return b.update(goods, week, prev, mods, func(g *Good) float64 { return loc.EffectiveFactor(g.ID) })
}

func (b *BatchUpdater) update(goods []*Good, week int, prev PriceTable, mods *Modifiers, factorFor func(*Good) float64) PriceTable {
	workers := b.Parallelism
	if workers <= 0 {
		workers = defaultParallelism
	}

	records := make([]*PriceRecord, len(goods))

	var eg errgroup.Group
	eg.SetLimit(workers)
	for i, g := range goods {
		i, g := i, g
		eg.Go(func() error {
			records[i] = b.updateOne(g, week, prev[g.ID], mods, factorFor(g))
			return nil
		})
	}
	// Workers never return errors; failures become fallback records.
	_ = eg.Wait()

	table := make(PriceTable, len(goods))
	for _, r := range records {
		table[r.GoodID] = r
	}
	return table
}

func (b *BatchUpdater) updateOne(g *Good, week int, prev *PriceRecord, mods *Modifiers, factor float64) *PriceRecord {
	var prevPrice *float64
	if prev != nil {
		p := prev.Price
		prevPrice = &p
	}

	q, err := b.cache.Compute(g, week, prevPrice, factor, mods)
	if err != nil {
		slog.Warn("price computation failed, using fallback record",
			"good", g.ID, "week", week, "error", err)
		q = Quote{Price: g.BasePrice, Trend: TrendStable, ChangePercent: 0}
	}

	rec := &PriceRecord{
		GoodID:        g.ID,
		Price:         q.Price,
		Trend:         q.Trend,
		ChangePercent: q.ChangePercent,
	}
	if prev != nil {
		rec.PrevPrice = prev.Price
		rec.History = append(rec.History, prev.History...)
	} else {
		rec.PrevPrice = g.BasePrice
	}
	rec.pushHistory(q.Price)
	return rec
}
