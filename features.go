package main

import "fmt"

// SchemaVersionV1 fixes the feature slot order and width shared by
// training and inference. Any change to the slot list is a new version.
const SchemaVersionV1 = "v1"

const slotMacroStress = "macro_stress"
const slotBurnRatio = "burn_ratio"

var schemaV1Slots = []string{
	metricDebtToEquity,
	metricCurrentRatio,
	slotBurnRatio,
	metricRevenueGrowth,
	slotMacroStress,
	"theme:bankruptcy_language",
	"theme:cash_crisis",
	"theme:debt_stress",
	"theme:demand_decline",
	"theme:legal_regulatory",
	"theme:liquidity_concerns",
	"theme:margin_pressure",
	"theme:revenue_decline",
}

// Fallback values when neither the company nor its cohort provides a
// metric; deliberately mid-range so estimation never dominates.
var globalDefaultSlots = map[string]float64{
	metricDebtToEquity:  1.6,
	metricCurrentRatio:  1.1,
	slotBurnRatio:       0.1,
	metricRevenueGrowth: 0.0,
}

// SchemaSlots returns the ordered slot names for a schema version.
func SchemaSlots(version string) ([]string, error) {
	if version != SchemaVersionV1 {
		return nil, &SchemaMismatchError{Detail: fmt.Sprintf("unknown schema version %q", version)}
	}
	return schemaV1Slots, nil
}

// SlotIndex resolves a slot name within a schema version.
func SlotIndex(version, slot string) (int, error) {
	slots, err := SchemaSlots(version)
	if err != nil {
		return 0, err
	}
	for i, s := range slots {
		if s == slot {
			return i, nil
		}
	}
	return 0, &SchemaMismatchError{Detail: fmt.Sprintf("slot %q not in schema %s", slot, version)}
}

// BuildFeatureVector merges theme scores and financial metrics into a
// fixed-schema vector. Missing financial metrics are backfilled from the
// peer benchmark (then global defaults) and flagged as estimated; theme
// slots default to zero severity and are never flagged.
func BuildFeatureVector(version string, scores []ThemeScore, m FinancialMetrics, macroStress float64, bench PeerBenchmark) (FeatureVector, error) {
	slots, err := SchemaSlots(version)
	if err != nil {
		return FeatureVector{}, err
	}

	severities := make(map[string]float64, len(scores))
	for _, ts := range scores {
		severities[ts.Theme] = ts.Severity
	}

	vec := FeatureVector{
		SchemaVersion: version,
		Values:        make([]float64, len(slots)),
		Estimated:     make([]bool, len(slots)),
	}
	for i, slot := range slots {
		switch {
		case slot == slotMacroStress:
			vec.Values[i] = clampRange(macroStress, 0, 100)
		case len(slot) > 6 && slot[:6] == "theme:":
			vec.Values[i] = severities[slot[6:]]
		default:
			value, estimated := resolveMetricSlot(slot, m, bench)
			vec.Values[i] = value
			vec.Estimated[i] = estimated
		}
	}
	return vec, nil
}

func resolveMetricSlot(slot string, m FinancialMetrics, bench PeerBenchmark) (float64, bool) {
	var observed *float64
	if slot == slotBurnRatio {
		observed = m.BurnRatio()
	} else {
		observed = m.Get(slot)
	}
	if observed != nil {
		return *observed, false
	}
	if dist, ok := bench.Distributions[slot]; ok && dist.Samples > 0 {
		return dist.Median, true
	}
	return globalDefaultSlots[slot], true
}

func clampRange(v, low, high float64) float64 {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}
