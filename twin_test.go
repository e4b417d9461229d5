package main

import (
	"errors"
	"testing"
)

// twinModel is a hand-built model with unit standardization so logit
// arithmetic in tests stays readable.
func twinModel(t *testing.T) *ClassifierModel {
	t.Helper()
	width := len(schemaV1Slots)
	m := &ClassifierModel{
		SchemaVersion: SchemaVersionV1,
		Weights:       make([]float64, width),
		Means:         make([]float64, width),
		Stddevs:       onesVector(width),
		Bias:          -1.0,
	}
	set := func(slot string, w float64) {
		idx, err := SlotIndex(SchemaVersionV1, slot)
		if err != nil {
			t.Fatalf("SlotIndex(%s): %v", slot, err)
		}
		m.Weights[idx] = w
	}
	set(metricDebtToEquity, 1.2)
	set(metricCurrentRatio, -1.0)
	set(slotBurnRatio, 1.5)
	set(metricRevenueGrowth, -2.0)
	return m
}

func twinBaseline(t *testing.T) FeatureVector {
	t.Helper()
	m := FinancialMetrics{
		DebtToEquity:  fptr(2.0),
		CurrentRatio:  fptr(1.0),
		CashBurn:      fptr(20),
		Revenue:       fptr(100),
		RevenueGrowth: fptr(-0.1),
	}
	vec, err := BuildFeatureVector(SchemaVersionV1, nil, m, 40, PeerBenchmark{})
	if err != nil {
		t.Fatalf("BuildFeatureVector: %v", err)
	}
	return vec
}

func TestSimulateIdempotent(t *testing.T) {
	model := twinModel(t)
	baseline := twinBaseline(t)
	perts := []ScenarioPerturbation{
		{Slot: metricDebtToEquity, Delta: -0.5, Mode: PerturbAdditive},
		{Slot: slotBurnRatio, Delta: 0.6, Mode: PerturbMultiplicative},
	}

	first, err := Simulate(model, baseline, perts)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	second, err := Simulate(model, baseline, perts)
	if err != nil {
		t.Fatalf("Simulate again: %v", err)
	}

	if first.BaselineRisk != second.BaselineRisk ||
		first.CounterfactualRisk != second.CounterfactualRisk ||
		first.Delta != second.Delta {
		t.Fatalf("repeated simulation diverged: %+v vs %+v", first, second)
	}
	for i := range first.Adjusted.Values {
		if first.Adjusted.Values[i] != second.Adjusted.Values[i] {
			t.Fatalf("adjusted slot %d diverged", i)
		}
	}
}

func TestSimulateDoesNotMutateBaseline(t *testing.T) {
	model := twinModel(t)
	baseline := twinBaseline(t)
	before := baseline.Clone()

	if _, err := Simulate(model, baseline, []ScenarioPerturbation{
		{Slot: metricCurrentRatio, Delta: 0.8, Mode: PerturbAdditive},
	}); err != nil {
		t.Fatalf("Simulate: %v", err)
	}

	for i := range baseline.Values {
		if baseline.Values[i] != before.Values[i] {
			t.Fatalf("baseline slot %d mutated: %v -> %v", i, before.Values[i], baseline.Values[i])
		}
	}
}

func TestSimulateUnknownSlot(t *testing.T) {
	var mismatch *SchemaMismatchError
	_, err := Simulate(twinModel(t), twinBaseline(t), []ScenarioPerturbation{
		{Slot: "no_such_slot", Delta: 1, Mode: PerturbAdditive},
	})
	if !errors.As(err, &mismatch) {
		t.Fatalf("err = %v, want SchemaMismatchError", err)
	}
}

func TestSimulateHealthierInputsLowerRisk(t *testing.T) {
	model := twinModel(t)
	baseline := twinBaseline(t)

	result, err := Simulate(model, baseline, []ScenarioPerturbation{
		{Slot: slotBurnRatio, Delta: 0.5, Mode: PerturbMultiplicative},
		{Slot: metricCurrentRatio, Delta: 0.5, Mode: PerturbAdditive},
	})
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if result.CounterfactualRisk >= result.BaselineRisk {
		t.Fatalf("healthier counterfactual risk %v should be below baseline %v",
			result.CounterfactualRisk, result.BaselineRisk)
	}
	if result.Delta >= 0 {
		t.Fatalf("delta = %v, want negative", result.Delta)
	}
}

func TestSimulateNoPerturbations(t *testing.T) {
	model := twinModel(t)
	baseline := twinBaseline(t)

	result, err := Simulate(model, baseline, nil)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if result.CounterfactualRisk != result.BaselineRisk {
		t.Fatalf("empty perturbation set changed risk: %v -> %v",
			result.BaselineRisk, result.CounterfactualRisk)
	}
	if len(result.Contributions) != 0 {
		t.Fatalf("empty perturbation set produced %d contributions", len(result.Contributions))
	}
}

func TestSimulateStackedPerturbationsCombine(t *testing.T) {
	// Two additive deltas on the same slot behave exactly like their sum.
	model := twinModel(t)
	baseline := twinBaseline(t)

	stacked, err := Simulate(model, baseline, []ScenarioPerturbation{
		{Slot: metricDebtToEquity, Delta: -0.3, Mode: PerturbAdditive},
		{Slot: metricDebtToEquity, Delta: -0.2, Mode: PerturbAdditive},
	})
	if err != nil {
		t.Fatalf("Simulate stacked: %v", err)
	}
	combined, err := Simulate(model, baseline, []ScenarioPerturbation{
		{Slot: metricDebtToEquity, Delta: -0.5, Mode: PerturbAdditive},
	})
	if err != nil {
		t.Fatalf("Simulate combined: %v", err)
	}
	if diff := abs(stacked.CounterfactualRisk - combined.CounterfactualRisk); diff > 1e-12 {
		t.Fatalf("stacked risk %v != combined risk %v (diff %v)",
			stacked.CounterfactualRisk, combined.CounterfactualRisk, diff)
	}
}

func TestSimulateContributionsRanked(t *testing.T) {
	model := twinModel(t)
	baseline := twinBaseline(t)

	result, err := Simulate(model, baseline, []ScenarioPerturbation{
		{Slot: metricDebtToEquity, Delta: -0.1, Mode: PerturbAdditive},
		{Slot: metricRevenueGrowth, Delta: 0.5, Mode: PerturbAdditive},
	})
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if len(result.Contributions) != 2 {
		t.Fatalf("got %d contributions, want 2", len(result.Contributions))
	}
	// |-2.0 * 0.5| = 1.0 beats |1.2 * -0.1| = 0.12.
	if result.Contributions[0].Slot != metricRevenueGrowth {
		t.Fatalf("top contribution = %s, want %s", result.Contributions[0].Slot, metricRevenueGrowth)
	}
	if abs(result.Contributions[0].LogitShift) < abs(result.Contributions[1].LogitShift) {
		t.Fatal("contributions not sorted by magnitude")
	}
}
