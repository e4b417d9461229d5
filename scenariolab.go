package main

import (
	"sort"
	"strings"
)

// The Scenario Lab is the thin control surface over the simulator:
// named strategy templates become perturbation sets, run through the
// digital twin, and ranked by feasibility-weighted impact.

type slotAction string

const (
	actionMoveTowardSurvivor slotAction = "move_toward_survivor"
	actionReducePct          slotAction = "reduce_by_pct"   // cut to 60%
	actionAggressiveReduce   slotAction = "aggressive_cut"  // cut to 40%
	actionImprovePartial     slotAction = "improve_partial" // halfway to survivor
)

type ScenarioTemplate struct {
	Name                 string
	Strategy             string
	SurvivorReference    string
	Actions              map[string]slotAction
	RequiresMarketAccess bool
	BlockedBy            []string
	EnabledBy            []string
}

// ScenarioOutcome is one named counterfactual path with its simulated
// risk change and feasibility rating.
type ScenarioOutcome struct {
	Name              string           `json:"name"`
	Strategy          string           `json:"strategy"`
	SurvivorReference string           `json:"survivor_reference"`
	Result            SimulationResult `json:"result"`
	RiskReduction     float64          `json:"risk_reduction"`
	Feasibility       float64          `json:"feasibility"`
	FeasibilityLabel  string           `json:"feasibility_label"`
	Likelihood        string           `json:"likelihood"`
	Reasoning         string           `json:"reasoning"`
}

// Strategy templates grounded in observed survivor patterns.
var scenarioTemplates = []ScenarioTemplate{
	{
		Name:              "Early Capital Raise",
		Strategy:          "Secure equity or debt financing well before cash runway drops below six months, easing burn pressure.",
		SurvivorReference: "Rivian pre-production raise; Tesla Series D timing",
		Actions: map[string]slotAction{
			slotBurnRatio:      actionReducePct,
			metricCurrentRatio: actionMoveTowardSurvivor,
		},
		RequiresMarketAccess: true,
		BlockedBy:            []string{"credit_tightening", "high_interest_rates"},
		EnabledBy:            []string{"ev_subsidy_tailwind"},
	},
	{
		Name:              "Supplier Diversification",
		Strategy:          "Qualify alternative vendors for critical components, reducing supply-shock exposure and burn.",
		SurvivorReference: "Tesla multi-sourcing; NIO supplier network",
		Actions: map[string]slotAction{
			slotBurnRatio: actionReducePct,
		},
		BlockedBy: []string{"supply_chain_shock"},
	},
	{
		Name:              "Revenue Mix Diversification",
		Strategy:          "Add a secondary revenue stream (fleet, software, licensing) to reduce single-product dependence.",
		SurvivorReference: "Tesla energy and services; Rivian fleet contract",
		Actions: map[string]slotAction{
			metricRevenueGrowth: actionMoveTowardSurvivor,
		},
		BlockedBy: []string{"demand_softening", "tech_disruption_pressure"},
		EnabledBy: []string{"ev_subsidy_tailwind"},
	},
	{
		Name:              "Controlled Scale-Down",
		Strategy:          "Deliberately reduce production targets and headcount to extend runway, trading volume for survival.",
		SurvivorReference: "Canoo restructuring pivot; Lucid guidance reset",
		Actions: map[string]slotAction{
			slotBurnRatio:      actionAggressiveReduce,
			metricCurrentRatio: actionImprovePartial,
		},
	},
}

// Macro force detection vocabulary over evidence notes.
var macroForceKeywords = map[string][]string{
	"high_interest_rates":      {"rate", "fed", "interest", "yield", "tightening"},
	"ev_subsidy_tailwind":      {"subsidy", "tax credit", "incentive"},
	"supply_chain_shock":       {"supply chain", "shortage", "logistics", "semiconductor"},
	"credit_tightening":        {"credit", "spread", "default", "refinanc", "covenant"},
	"demand_softening":         {"demand", "slowdown", "consumer", "sentiment"},
	"tech_disruption_pressure": {"technology", "disruption", "competitor", "platform"},
}

// DetectActiveMacroForces scans evidence text for live macro forces.
// High macro stress always implies credit tightening.
func DetectActiveMacroForces(snippets []EvidenceSnippet, macroStress float64) []string {
	var joined strings.Builder
	for _, s := range snippets {
		joined.WriteString(strings.ToLower(s.Text))
		joined.WriteString(" ")
	}
	text := joined.String()

	var active []string
	forces := make([]string, 0, len(macroForceKeywords))
	for force := range macroForceKeywords {
		forces = append(forces, force)
	}
	sort.Strings(forces)
	for _, force := range forces {
		for _, kw := range macroForceKeywords[force] {
			if strings.Contains(text, kw) {
				active = append(active, force)
				break
			}
		}
	}
	if macroStress >= 65 && !containsString(active, "credit_tightening") {
		active = append(active, "credit_tightening")
	}
	return active
}

// RunScenarios simulates every template and ranks outcomes by
// feasibility-weighted risk reduction.
func RunScenarios(model *ClassifierModel, baseline FeatureVector, bench PeerBenchmark, activeForces []string, macroStress float64) ([]ScenarioOutcome, error) {
	var outcomes []ScenarioOutcome
	for _, tpl := range scenarioTemplates {
		perts := templatePerturbations(tpl, baseline, bench)
		if len(perts) == 0 {
			continue
		}
		result, err := Simulate(model, baseline, perts)
		if err != nil {
			return nil, err
		}
		feasibility, label, likelihood, reasoning := scoreFeasibility(tpl, activeForces, macroStress)
		outcomes = append(outcomes, ScenarioOutcome{
			Name:              tpl.Name,
			Strategy:          tpl.Strategy,
			SurvivorReference: tpl.SurvivorReference,
			Result:            result,
			RiskReduction:     result.BaselineRisk - result.CounterfactualRisk,
			Feasibility:       feasibility,
			FeasibilityLabel:  label,
			Likelihood:        likelihood,
			Reasoning:         reasoning,
		})
	}

	sort.SliceStable(outcomes, func(i, j int) bool {
		wi := outcomes[i].RiskReduction * outcomes[i].Feasibility
		wj := outcomes[j].RiskReduction * outcomes[j].Feasibility
		if wi != wj {
			return wi > wj
		}
		return outcomes[i].Name < outcomes[j].Name
	})
	return outcomes, nil
}

func templatePerturbations(tpl ScenarioTemplate, baseline FeatureVector, bench PeerBenchmark) []ScenarioPerturbation {
	slots := make([]string, 0, len(tpl.Actions))
	for slot := range tpl.Actions {
		slots = append(slots, slot)
	}
	sort.Strings(slots)

	var out []ScenarioPerturbation
	for _, slot := range slots {
		idx, err := SlotIndex(baseline.SchemaVersion, slot)
		if err != nil {
			continue
		}
		current := baseline.Values[idx]
		dist, hasDist := bench.Distributions[slot]

		switch tpl.Actions[slot] {
		case actionMoveTowardSurvivor:
			if hasDist && dist.Samples > 0 && dist.Median != current {
				out = append(out, ScenarioPerturbation{Slot: slot, Delta: dist.Median - current, Mode: PerturbAdditive})
			}
		case actionImprovePartial:
			if hasDist && dist.Samples > 0 && dist.Median != current {
				out = append(out, ScenarioPerturbation{Slot: slot, Delta: (dist.Median - current) / 2, Mode: PerturbAdditive})
			}
		case actionReducePct:
			out = append(out, ScenarioPerturbation{Slot: slot, Delta: 0.60, Mode: PerturbMultiplicative})
		case actionAggressiveReduce:
			out = append(out, ScenarioPerturbation{Slot: slot, Delta: 0.40, Mode: PerturbMultiplicative})
		}
	}
	return out
}

func scoreFeasibility(tpl ScenarioTemplate, activeForces []string, macroStress float64) (score float64, label, likelihood, reasoning string) {
	score = 0.70
	var reasons []string

	for _, blocker := range tpl.BlockedBy {
		if containsString(activeForces, blocker) {
			score -= 0.15
			reasons = append(reasons, "blocked by active macro force: "+strings.ReplaceAll(blocker, "_", " "))
		}
	}
	for _, enabler := range tpl.EnabledBy {
		if containsString(activeForces, enabler) {
			score += 0.10
			reasons = append(reasons, "supported by: "+strings.ReplaceAll(enabler, "_", " "))
		}
	}
	if tpl.RequiresMarketAccess && containsString(activeForces, "credit_tightening") {
		score -= 0.25
		reasons = append(reasons, "requires capital market access, currently blocked by credit tightening")
	}
	if macroStress >= 70 {
		score -= 0.10
		reasons = append(reasons, "high macro stress reduces the execution window")
	}

	if score < 0.05 {
		score = 0.05
	}
	if score > 0.95 {
		score = 0.95
	}

	switch {
	case score >= 0.60:
		label, likelihood = "high", "Plausible"
	case score >= 0.35:
		label, likelihood = "medium", "Difficult"
	default:
		label, likelihood = "low", "Unlikely"
	}

	reasoning = "No major macro blockers identified for this strategy"
	if len(reasons) > 0 {
		reasoning = strings.Join(reasons, "; ")
	}
	return score, label, likelihood, reasoning
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
