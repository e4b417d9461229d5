package main

import "time"

// EvidenceSnippet is one piece of evidence text with provenance.
// Immutable once ingested.
type EvidenceSnippet struct {
	Text      string    `json:"text"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// ThemeHit is one matched lexicon span. Hits are never aggregated in
// place; the scorer folds them into ThemeScores per run.
type ThemeHit struct {
	Theme        string  `json:"theme"`
	Phrase       string  `json:"phrase"`
	Sentence     string  `json:"sentence"`
	Source       string  `json:"source"`
	BaseWeight   float64 `json:"base_weight"`
	Polarity     float64 `json:"polarity"` // +1 or -1
	Negated      bool    `json:"negated"`
	Dampening    float64 `json:"dampening"`     // 1.0 = undampened; hedge cues lower it
	SeverityMult float64 `json:"severity_mult"` // sentence-level intensity, 0.65..1.8
}

// SignedWeight is the hit's effective contribution to its theme.
func (h ThemeHit) SignedWeight() float64 {
	return h.BaseWeight * h.SeverityMult * h.Dampening * h.Polarity
}

// ThemeScore is the per-theme aggregate for one company run.
// Severity and confidence are always in [0,1]; zero-hit themes score
// {0, 0}, never null.
type ThemeScore struct {
	Theme      string   `json:"theme"`
	Severity   float64  `json:"severity"`
	Confidence float64  `json:"confidence"`
	Evidence   []string `json:"evidence,omitempty"`
}

// FeatureVector is an ordered numeric sequence whose slot order and
// length are fixed by its schema version. Estimated marks slots that
// were backfilled rather than observed.
type FeatureVector struct {
	SchemaVersion string    `json:"schema_version"`
	Values        []float64 `json:"values"`
	Estimated     []bool    `json:"estimated"`
}

// Clone returns a deep copy; the simulator perturbs copies only.
func (v FeatureVector) Clone() FeatureVector {
	out := FeatureVector{
		SchemaVersion: v.SchemaVersion,
		Values:        make([]float64, len(v.Values)),
		Estimated:     make([]bool, len(v.Estimated)),
	}
	copy(out.Values, v.Values)
	copy(out.Estimated, v.Estimated)
	return out
}

// PerturbMode selects how a ScenarioPerturbation delta combines with the
// baseline slot value.
type PerturbMode string

const (
	// PerturbAdditive adds Delta to the slot value.
	PerturbAdditive PerturbMode = "additive"
	// PerturbMultiplicative treats Delta as a multiplier on the slot
	// value (0.6 means "reduce to 60%").
	PerturbMultiplicative PerturbMode = "multiplicative"
)

// ScenarioPerturbation is one knob turned in the Scenario Lab.
type ScenarioPerturbation struct {
	Slot  string      `json:"slot"`
	Delta float64     `json:"delta"`
	Mode  PerturbMode `json:"mode"`
}

// Contribution explains how much one perturbed slot moved the logit.
type Contribution struct {
	Slot       string  `json:"slot"`
	RawDelta   float64 `json:"raw_delta"`
	LogitShift float64 `json:"logit_shift"`
}

// SimulationResult is the before/after of one digital-twin run.
// Ephemeral: one per Scenario Lab interaction.
type SimulationResult struct {
	BaselineRisk       float64        `json:"baseline_risk"`
	CounterfactualRisk float64        `json:"counterfactual_risk"`
	Delta              float64        `json:"delta"`
	Adjusted           FeatureVector  `json:"adjusted"`
	Contributions      []Contribution `json:"contributions"`
}

// TrainingExample is a training-time-only entity.
type TrainingExample struct {
	Vector     FeatureVector
	Distressed bool
	ScenarioID string
}

// VerificationResult is the verification-gate output: does the evidence
// support genuine distress. Estimated is set when the completion backend
// was unavailable and the gate fell back to theme-score estimation.
type VerificationResult struct {
	Distressed bool    `json:"distressed"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
	Estimated  bool    `json:"estimated"`
}

// MetricValue is one financial-metric slot in a report, with its
// transparent-estimation flag.
type MetricValue struct {
	Value     float64 `json:"value"`
	Estimated bool    `json:"estimated"`
}

// AnalysisReport is the serializable output consumed by export and Q&A
// surfaces downstream of the core.
type AnalysisReport struct {
	RunID            string                 `json:"run_id"`
	Ticker           string                 `json:"ticker"`
	GeneratedAt      time.Time              `json:"generated_at"`
	Verification     VerificationResult     `json:"verification"`
	ThemeScores      []ThemeScore           `json:"theme_scores"`
	Metrics          map[string]MetricValue `json:"metrics"`
	MacroStress      float64                `json:"macro_stress"`
	ActiveForces     []string               `json:"active_macro_forces,omitempty"`
	BaselineRisk     float64                `json:"baseline_risk"`
	Benchmark        PeerBenchmark          `json:"benchmark"`
	PeerSimulation   SimulationResult       `json:"peer_simulation"`
	Scenarios        []ScenarioOutcome      `json:"scenarios"`
	EvidenceCount    int                    `json:"evidence_count"`
	SyntheticSources int                    `json:"synthetic_sources"`
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
