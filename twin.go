package main

import "sort"

// Simulate is the digital twin: it reruns the classifier on a perturbed
// copy of the baseline vector. All perturbations combine additively in
// logit space before the final sigmoid; sequential reapplication would
// double-count correlated deltas. The baseline is never mutated and
// identical inputs yield bit-identical results.
func Simulate(model *ClassifierModel, baseline FeatureVector, perts []ScenarioPerturbation) (SimulationResult, error) {
	baseLogit, err := model.Logit(baseline)
	if err != nil {
		return SimulationResult{}, err
	}

	adjusted := baseline.Clone()
	// Raw deltas per slot; multiplicative deltas are relative to the
	// baseline value, so stacking perturbations on one slot stays
	// order-independent.
	rawDeltas := make(map[int]float64)
	for _, p := range perts {
		idx, err := SlotIndex(baseline.SchemaVersion, p.Slot)
		if err != nil {
			return SimulationResult{}, err
		}
		switch p.Mode {
		case PerturbMultiplicative:
			rawDeltas[idx] += baseline.Values[idx] * (p.Delta - 1)
		default:
			rawDeltas[idx] += p.Delta
		}
	}

	slots, err := SchemaSlots(baseline.SchemaVersion)
	if err != nil {
		return SimulationResult{}, err
	}

	// Accumulate in slot order: summation order is fixed so repeated
	// runs are bit-identical.
	indices := make([]int, 0, len(rawDeltas))
	for idx := range rawDeltas {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	shift := 0.0
	contributions := make([]Contribution, 0, len(rawDeltas))
	for _, idx := range indices {
		delta := rawDeltas[idx]
		adjusted.Values[idx] += delta
		logitShift := model.Weights[idx] * delta / model.Stddevs[idx]
		shift += logitShift
		contributions = append(contributions, Contribution{
			Slot:       slots[idx],
			RawDelta:   delta,
			LogitShift: logitShift,
		})
	}

	// Rank by |weight x delta| contribution; ties break on slot name so
	// re-runs order identically.
	sort.SliceStable(contributions, func(i, j int) bool {
		ai, aj := abs(contributions[i].LogitShift), abs(contributions[j].LogitShift)
		if ai != aj {
			return ai > aj
		}
		return contributions[i].Slot < contributions[j].Slot
	})

	baselineRisk := sigmoid(baseLogit)
	counterfactual := sigmoid(baseLogit + shift)
	return SimulationResult{
		BaselineRisk:       baselineRisk,
		CounterfactualRisk: counterfactual,
		Delta:              counterfactual - baselineRisk,
		Adjusted:           adjusted,
		Contributions:      contributions,
	}, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
