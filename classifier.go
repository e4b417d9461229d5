package main

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// ClassifierModel is a trained logistic model: standardization constants,
// weight vector, and bias, tied to a feature schema version. Loaded
// read-only at serving time and safe for unlimited concurrent reads.
type ClassifierModel struct {
	SchemaVersion string    `json:"schema_version"`
	Weights       []float64 `json:"weights"`
	Bias          float64   `json:"bias"`
	Means         []float64 `json:"means"`
	Stddevs       []float64 `json:"stddevs"`
	CorpusID      string    `json:"corpus_id"`
	TrainedAt     time.Time `json:"trained_at"`
}

func (m *ClassifierModel) Width() int { return len(m.Weights) }

func (m *ClassifierModel) checkSchema(v FeatureVector) error {
	if v.SchemaVersion != m.SchemaVersion || len(v.Values) != m.Width() {
		return &SchemaMismatchError{
			WantVersion: m.SchemaVersion,
			GotVersion:  v.SchemaVersion,
			WantWidth:   m.Width(),
			GotWidth:    len(v.Values),
		}
	}
	return nil
}

// Logit returns the pre-sigmoid score. Deterministic pure function of
// (vector, model); no randomness at serving time.
func (m *ClassifierModel) Logit(v FeatureVector) (float64, error) {
	if err := m.checkSchema(v); err != nil {
		return 0, err
	}
	logit := m.Bias
	for i, x := range v.Values {
		logit += m.Weights[i] * (x - m.Means[i]) / m.Stddevs[i]
	}
	return logit, nil
}

// Score returns the risk probability in [0,1].
func (m *ClassifierModel) Score(v FeatureVector) (float64, error) {
	logit, err := m.Logit(v)
	if err != nil {
		return 0, err
	}
	return sigmoid(logit), nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// TrainOptions control the offline fit. Zero values take defaults.
type TrainOptions struct {
	LearningRate float64
	Epochs       int
	L2           float64
}

func (o TrainOptions) withDefaults() TrainOptions {
	if o.LearningRate <= 0 {
		o.LearningRate = 0.1
	}
	if o.Epochs <= 0 {
		o.Epochs = 400
	}
	if o.L2 < 0 {
		o.L2 = 0
	}
	return o
}

// TrainClassifier fits weights and bias by batch gradient descent over
// standardized features. Fails with TrainingDataError when the corpus is
// empty or single-class, and SchemaMismatchError when examples disagree
// on schema.
func TrainClassifier(examples []TrainingExample, schemaVersion, corpusID string, opts TrainOptions) (*ClassifierModel, error) {
	if len(examples) == 0 {
		return nil, &TrainingDataError{Reason: "no training examples"}
	}
	slots, err := SchemaSlots(schemaVersion)
	if err != nil {
		return nil, err
	}
	width := len(slots)

	pos, neg := 0, 0
	for _, ex := range examples {
		if ex.Vector.SchemaVersion != schemaVersion || len(ex.Vector.Values) != width {
			return nil, &SchemaMismatchError{
				WantVersion: schemaVersion,
				GotVersion:  ex.Vector.SchemaVersion,
				WantWidth:   width,
				GotWidth:    len(ex.Vector.Values),
			}
		}
		if ex.Distressed {
			pos++
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return nil, &TrainingDataError{
			Reason: fmt.Sprintf("labels are degenerate: %d distressed, %d healthy", pos, neg),
		}
	}

	opts = opts.withDefaults()
	means, stds := standardization(examples, width)

	// Standardize once up front.
	n := len(examples)
	z := make([][]float64, n)
	y := make([]float64, n)
	for i, ex := range examples {
		row := make([]float64, width)
		for j, x := range ex.Vector.Values {
			row[j] = (x - means[j]) / stds[j]
		}
		z[i] = row
		if ex.Distressed {
			y[i] = 1
		}
	}

	weights := make([]float64, width)
	bias := 0.0
	for epoch := 0; epoch < opts.Epochs; epoch++ {
		gradW := make([]float64, width)
		gradB := 0.0
		for i := 0; i < n; i++ {
			logit := bias
			for j := 0; j < width; j++ {
				logit += weights[j] * z[i][j]
			}
			residual := sigmoid(logit) - y[i]
			for j := 0; j < width; j++ {
				gradW[j] += residual * z[i][j]
			}
			gradB += residual
		}
		scale := opts.LearningRate / float64(n)
		for j := 0; j < width; j++ {
			weights[j] -= scale * (gradW[j] + opts.L2*weights[j])
		}
		bias -= scale * gradB
	}

	return &ClassifierModel{
		SchemaVersion: schemaVersion,
		Weights:       weights,
		Bias:          bias,
		Means:         means,
		Stddevs:       stds,
		CorpusID:      corpusID,
		TrainedAt:     time.Now().UTC(),
	}, nil
}

func standardization(examples []TrainingExample, width int) (means, stds []float64) {
	means = make([]float64, width)
	stds = make([]float64, width)
	n := float64(len(examples))

	for _, ex := range examples {
		for j, x := range ex.Vector.Values {
			means[j] += x
		}
	}
	for j := range means {
		means[j] /= n
	}
	for _, ex := range examples {
		for j, x := range ex.Vector.Values {
			d := x - means[j]
			stds[j] += d * d
		}
	}
	for j := range stds {
		stds[j] = math.Sqrt(stds[j] / n)
		if stds[j] == 0 {
			stds[j] = 1
		}
	}
	return means, stds
}

// SyntheticScenarioCorpus emulates distressed-vs-survivor outcomes with
// a seeded latent signal, so the classifier can be trained before any
// labeled corpus exists. Deterministic for a given seed.
func SyntheticScenarioCorpus(lx *Lexicon, n int, seed int64) []TrainingExample {
	rng := rand.New(rand.NewSource(seed))
	slots := schemaV1Slots

	out := make([]TrainingExample, 0, n)
	for i := 0; i < n; i++ {
		dte := rng.Float64() * 6.0
		cr := 0.3 + rng.Float64()*2.7
		burn := rng.Float64() * 0.9
		revg := -0.6 + rng.Float64()
		macro := 15 + rng.Float64()*85

		vec := FeatureVector{
			SchemaVersion: SchemaVersionV1,
			Values:        make([]float64, len(slots)),
			Estimated:     make([]bool, len(slots)),
		}
		totalImportance := 0.0
		pressure := 0.0
		for j, slot := range slots {
			switch slot {
			case metricDebtToEquity:
				vec.Values[j] = dte
			case metricCurrentRatio:
				vec.Values[j] = cr
			case slotBurnRatio:
				vec.Values[j] = burn
			case metricRevenueGrowth:
				vec.Values[j] = revg
			case slotMacroStress:
				vec.Values[j] = macro
			default:
				// Sparse theme severities: most themes silent.
				sev := rng.Float64()*1.4 - 0.4
				if sev < 0 {
					sev = 0
				}
				vec.Values[j] = clamp01(sev)
				imp := lx.ImportanceOf(slot[len("theme:"):])
				totalImportance += imp
				pressure += imp * vec.Values[j]
			}
		}
		if totalImportance > 0 {
			pressure /= totalImportance
		}

		latent := 1.25*dte - 1.10*cr + 1.45*burn - 2.00*revg + 0.022*macro + 2.2*pressure - 2.4
		noise := rng.NormFloat64() * 0.65
		out = append(out, TrainingExample{
			Vector:     vec,
			Distressed: sigmoid(latent+noise) > 0.5,
			ScenarioID: fmt.Sprintf("synthetic-%06d", i),
		})
	}
	return out
}
