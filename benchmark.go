package main

import (
	"context"
	"database/sql"
	"log"
	"sort"
)

// PeerDistribution summarizes one metric across a cohort.
type PeerDistribution struct {
	Slot    string  `json:"slot"`
	Median  float64 `json:"median"`
	Q1      float64 `json:"q1"`
	Q3      float64 `json:"q3"`
	Samples int     `json:"samples"`
}

// PeerBenchmark is the survivor-cohort view used for estimation and for
// auto-suggesting counterfactual deltas. Basis records which fallback
// level produced it.
type PeerBenchmark struct {
	Basis         string                      `json:"basis"` // "peers", "sector", or "global"
	Confidence    float64                     `json:"confidence"`
	Distributions map[string]PeerDistribution `json:"distributions"`
}

// Slots benchmarked for perturbation suggestions; must be financial
// slots of the active schema.
var benchmarkSlots = []string{
	metricDebtToEquity,
	metricCurrentRatio,
	slotBurnRatio,
	metricRevenueGrowth,
}

// Benchmarker computes peer metric distributions from the metric
// provider. It degrades through peers, sector, and global defaults and
// never hard-fails. When a cache db is set, the global fallback serves
// the scheduler-refreshed distributions instead of hardcoded defaults.
type Benchmarker struct {
	provider MetricProvider
	cache    *sql.DB
}

func NewBenchmarker(provider MetricProvider, cache *sql.DB) *Benchmarker {
	return &Benchmarker{provider: provider, cache: cache}
}

// Benchmark builds the cohort distribution for a target. An empty or
// unavailable peer set falls back to the sector, then to the cached
// global distributions, then to hardcoded global averages, with
// confidence lowered at each step.
func (b *Benchmarker) Benchmark(ctx context.Context, sector string, peers []string) PeerBenchmark {
	if len(peers) > 0 {
		rows, err := b.provider.PeerMetrics(ctx, peers)
		if err != nil {
			log.Printf("benchmark peers error (falling back to sector): %v", err)
		} else if dists := distributions(rows); len(dists) > 0 {
			return PeerBenchmark{Basis: "peers", Confidence: 0.9, Distributions: dists}
		}
	}

	if sector != "" {
		rows, err := b.provider.SectorMetrics(ctx, sector)
		if err != nil {
			log.Printf("benchmark sector error (falling back to global): %v", err)
		} else if dists := distributions(rows); len(dists) > 0 {
			return PeerBenchmark{Basis: "sector", Confidence: 0.6, Distributions: dists}
		}
	}

	if b.cache != nil {
		dists, err := LoadBenchmarkCache(ctx, b.cache)
		if err != nil {
			log.Printf("benchmark cache read error (falling back to defaults): %v", err)
		} else if len(dists) > 0 {
			return PeerBenchmark{Basis: "global", Confidence: 0.3, Distributions: dists}
		}
	}

	return GlobalBenchmark()
}

// GlobalBenchmark is the last-resort cohort: mid-range defaults with
// low confidence.
func GlobalBenchmark() PeerBenchmark {
	dists := make(map[string]PeerDistribution, len(benchmarkSlots))
	for _, slot := range benchmarkSlots {
		v := globalDefaultSlots[slot]
		dists[slot] = PeerDistribution{Slot: slot, Median: v, Q1: v, Q3: v, Samples: 1}
	}
	return PeerBenchmark{Basis: "global", Confidence: 0.3, Distributions: dists}
}

func distributions(rows []FinancialMetrics) map[string]PeerDistribution {
	out := make(map[string]PeerDistribution)
	for _, slot := range benchmarkSlots {
		var values []float64
		for _, m := range rows {
			var v *float64
			if slot == slotBurnRatio {
				v = m.BurnRatio()
			} else {
				v = m.Get(slot)
			}
			if v != nil {
				values = append(values, *v)
			}
		}
		if len(values) == 0 {
			continue
		}
		sort.Float64s(values)
		out[slot] = PeerDistribution{
			Slot:    slot,
			Median:  quantile(values, 0.5),
			Q1:      quantile(values, 0.25),
			Q3:      quantile(values, 0.75),
			Samples: len(values),
		}
	}
	return out
}

// quantile interpolates linearly over sorted values.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(pos)
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// SuggestPerturbations proposes peer-median deltas for each benchmarked
// slot: the counterfactual "what if this company looked like its
// surviving peers".
func SuggestPerturbations(bench PeerBenchmark, baseline FeatureVector) []ScenarioPerturbation {
	var out []ScenarioPerturbation
	for _, slot := range benchmarkSlots {
		dist, ok := bench.Distributions[slot]
		if !ok || dist.Samples == 0 {
			continue
		}
		idx, err := SlotIndex(baseline.SchemaVersion, slot)
		if err != nil {
			continue
		}
		delta := dist.Median - baseline.Values[idx]
		if delta == 0 {
			continue
		}
		out = append(out, ScenarioPerturbation{Slot: slot, Delta: delta, Mode: PerturbAdditive})
	}
	return out
}
