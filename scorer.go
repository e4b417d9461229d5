package main

import (
	"math"
	"sort"
)

// Severity saturates as signed hit weight accumulates; k is the
// half-saturation constant carried in config.
const defaultSeveritySaturationK = 2.2

// Confidence saturates in hit count; distinct sources add half a hit
// each so corroborated themes read stronger than single-source ones.
const confidenceSaturationHits = 3.0

// Scorer folds theme hits into one ThemeScore per lexicon theme.
// Pure function of its inputs.
type Scorer struct {
	lexicon     *Lexicon
	saturationK float64
}

func NewScorer(lx *Lexicon, saturationK float64) *Scorer {
	if saturationK <= 0 {
		saturationK = defaultSeveritySaturationK
	}
	return &Scorer{lexicon: lx, saturationK: saturationK}
}

// Score returns one ThemeScore per theme in taxonomy order. Zero-hit
// themes score severity 0 and confidence 0.
func (s *Scorer) Score(hits []ThemeHit) []ThemeScore {
	byTheme := make(map[string][]ThemeHit)
	for _, h := range hits {
		byTheme[h.Theme] = append(byTheme[h.Theme], h)
	}

	out := make([]ThemeScore, 0, len(s.lexicon.ThemeOrder()))
	for _, theme := range s.lexicon.ThemeOrder() {
		out = append(out, s.scoreTheme(theme, byTheme[theme]))
	}
	return out
}

func (s *Scorer) scoreTheme(theme string, hits []ThemeHit) ThemeScore {
	score := ThemeScore{Theme: theme}
	if len(hits) == 0 {
		return score
	}

	signed := 0.0
	sources := make(map[string]bool)
	for _, h := range hits {
		signed += h.SignedWeight()
		if h.Source != "" {
			sources[h.Source] = true
		}
	}
	if signed < 0 {
		signed = 0
	}
	score.Severity = clamp01(1 - math.Exp(-signed/s.saturationK))

	diversity := 0.5 * float64(len(sources)-1)
	if diversity < 0 {
		diversity = 0
	}
	score.Confidence = clamp01(1 - math.Exp(-(float64(len(hits))+diversity)/confidenceSaturationHits))

	score.Evidence = topEvidence(hits, 3)
	return score
}

// topEvidence keeps the strongest positive sentences, deduplicated.
func topEvidence(hits []ThemeHit, n int) []string {
	ranked := make([]ThemeHit, 0, len(hits))
	for _, h := range hits {
		if !h.Negated {
			ranked = append(ranked, h)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].SignedWeight() > ranked[j].SignedWeight()
	})

	seen := make(map[string]bool)
	var out []string
	for _, h := range ranked {
		if seen[h.Sentence] {
			continue
		}
		seen[h.Sentence] = true
		out = append(out, h.Sentence)
		if len(out) == n {
			break
		}
	}
	return out
}

// DistressIntensity is a 0-10 roll-up of the full theme score set,
// used by the verification-gate fallback and the report.
func DistressIntensity(lx *Lexicon, scores []ThemeScore) float64 {
	totalImportance := 0.0
	weighted := 0.0
	for _, ts := range scores {
		imp := lx.ImportanceOf(ts.Theme)
		totalImportance += imp
		weighted += imp * ts.Severity
	}
	if totalImportance == 0 {
		return 0
	}
	v := 10 * weighted / totalImportance
	if v < 0 {
		v = 0
	}
	if v > 10 {
		v = 10
	}
	return v
}
