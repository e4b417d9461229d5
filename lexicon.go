package main

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Lexicon maps distress themes to weighted phrase patterns plus the
// negation and intensity vocabulary the parser needs. Loaded once and
// treated as immutable; safe for concurrent reads.
type Lexicon struct {
	Themes           map[string][]ThemePattern `yaml:"themes"`
	Importance       map[string]float64        `yaml:"importance"`
	StrongCues       []string                  `yaml:"strong_negation_cues"`
	HedgeCues        []string                  `yaml:"hedge_cues"`
	SeverityTerms    []string                  `yaml:"severity_terms"`
	UncertaintyTerms []string                  `yaml:"uncertainty_terms"`

	order []string
}

type ThemePattern struct {
	Pattern string  `yaml:"pattern"`
	Weight  float64 `yaml:"weight"`

	re *regexp.Regexp
}

// LoadLexicon reads a yaml lexicon file, falling back to the built-in
// default when path is empty. Malformed entries fail with ConfigError.
func LoadLexicon(path string) (*Lexicon, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultLexicon()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Field: "lexicon_path", Reason: err.Error()}
	}
	var lx Lexicon
	if err := yaml.Unmarshal(data, &lx); err != nil {
		return nil, &ConfigError{Field: "lexicon_path", Reason: fmt.Sprintf("parse yaml: %v", err)}
	}
	if err := lx.compile(); err != nil {
		return nil, err
	}
	return &lx, nil
}

// ThemeOrder returns the fixed, deterministic taxonomy order.
func (lx *Lexicon) ThemeOrder() []string {
	return lx.order
}

func (lx *Lexicon) ImportanceOf(theme string) float64 {
	if w, ok := lx.Importance[theme]; ok {
		return w
	}
	return 1.0
}

func (lx *Lexicon) compile() error {
	if len(lx.Themes) == 0 {
		return &ConfigError{Field: "themes", Reason: "lexicon has no themes"}
	}
	lx.order = lx.order[:0]
	for theme := range lx.Themes {
		if strings.TrimSpace(theme) == "" {
			return &ConfigError{Field: "themes", Reason: "empty theme id"}
		}
		lx.order = append(lx.order, theme)
	}
	sort.Strings(lx.order)

	for theme, patterns := range lx.Themes {
		if len(patterns) == 0 {
			return &ConfigError{Field: "themes." + theme, Reason: "no patterns"}
		}
		for i, p := range patterns {
			if strings.TrimSpace(p.Pattern) == "" {
				return &ConfigError{Field: "themes." + theme, Reason: "empty pattern"}
			}
			if p.Weight <= 0 {
				return &ConfigError{
					Field:  "themes." + theme,
					Reason: fmt.Sprintf("pattern %q has non-positive weight %v", p.Pattern, p.Weight),
				}
			}
			re, err := regexp.Compile(p.Pattern)
			if err != nil {
				return &ConfigError{
					Field:  "themes." + theme,
					Reason: fmt.Sprintf("pattern %q: %v", p.Pattern, err),
				}
			}
			patterns[i].re = re
		}
	}

	for theme := range lx.Importance {
		if _, ok := lx.Themes[theme]; !ok {
			return &ConfigError{
				Field:  "importance",
				Reason: fmt.Sprintf("importance for unknown theme %q", theme),
			}
		}
	}

	if len(lx.StrongCues) == 0 {
		lx.StrongCues = defaultStrongCues()
	}
	if len(lx.HedgeCues) == 0 {
		lx.HedgeCues = defaultHedgeCues()
	}
	if len(lx.SeverityTerms) == 0 {
		lx.SeverityTerms = defaultSeverityTerms()
	}
	if len(lx.UncertaintyTerms) == 0 {
		lx.UncertaintyTerms = defaultUncertaintyTerms()
	}
	return nil
}

// DefaultLexicon is the built-in distress taxonomy: eight themes covering
// liquidity, leverage, demand, revenue, cash, margin, legal, and
// bankruptcy language.
func DefaultLexicon() (*Lexicon, error) {
	lx := &Lexicon{
		Themes: map[string][]ThemePattern{
			"liquidity_concerns": {
				{Pattern: `\bliquidity\b`, Weight: 1.2},
				{Pattern: `\bgoing concern\b`, Weight: 1.8},
				{Pattern: `\bliquidity crisis\b`, Weight: 1.8},
				{Pattern: `\bcash shortfall\b`, Weight: 1.5},
				{Pattern: `\bworking capital\b`, Weight: 1.1},
				{Pattern: `\bcurrent liabilities exceed\b`, Weight: 1.3},
				{Pattern: `\btight cash\b`, Weight: 1.4},
				{Pattern: `\blimited cash runway\b`, Weight: 1.7},
				{Pattern: `\bcash crunch\b`, Weight: 1.6},
				{Pattern: `\binability to pay\b`, Weight: 1.9},
			},
			"debt_stress": {
				{Pattern: `\bcovenant(?: breach)?\b`, Weight: 1.8},
				{Pattern: `\bdebt maturit(?:y|ies)\b`, Weight: 1.3},
				{Pattern: `\brefinanc(?:e|ing)\b`, Weight: 1.2},
				{Pattern: `\bhigh leverage\b`, Weight: 1.3},
				{Pattern: `\binterest burden\b`, Weight: 1.3},
				{Pattern: `\bdefault(?: risk)?\b`, Weight: 1.7},
				{Pattern: `\bdebt restructuring\b`, Weight: 1.6},
				{Pattern: `\bover-leveraged\b`, Weight: 1.5},
				{Pattern: `\bdebt to equity\b`, Weight: 1.1},
			},
			"demand_decline": {
				{Pattern: `\bdeclin(?:ing|ed) demand\b`, Weight: 1.6},
				{Pattern: `\bsoft demand\b`, Weight: 1.4},
				{Pattern: `\breduced orders?\b`, Weight: 1.3},
				{Pattern: `\bvolume decline\b`, Weight: 1.3},
				{Pattern: `\bcustomer slowdown\b`, Weight: 1.3},
				{Pattern: `\bweaker demand\b`, Weight: 1.2},
				{Pattern: `\bloss of customers\b`, Weight: 1.4},
				{Pattern: `\bmarket share loss\b`, Weight: 1.3},
			},
			"revenue_decline": {
				{Pattern: `\brevenue declin(?:e|ing)\b`, Weight: 1.7},
				{Pattern: `\bdeclining revenue\b`, Weight: 1.7},
				{Pattern: `\bfalling revenue\b`, Weight: 1.5},
				{Pattern: `\brevenue contraction\b`, Weight: 1.6},
				{Pattern: `\bnegative revenue growth\b`, Weight: 1.6},
				{Pattern: `\btop.line decline\b`, Weight: 1.5},
				{Pattern: `\bsales decline\b`, Weight: 1.4},
				{Pattern: `\bshrinking sales\b`, Weight: 1.4},
			},
			"cash_crisis": {
				{Pattern: `\boperating cash burn\b`, Weight: 1.8},
				{Pattern: `\bcash burn rate\b`, Weight: 1.6},
				{Pattern: `\bnegative free cash flow\b`, Weight: 1.7},
				{Pattern: `\bfunding gap\b`, Weight: 1.6},
				{Pattern: `\bcapital raise required\b`, Weight: 1.5},
				{Pattern: `\brunning out of cash\b`, Weight: 2.0},
				{Pattern: `\bcash consumed\b`, Weight: 1.4},
				{Pattern: `\bhigh burn\b`, Weight: 1.5},
			},
			"margin_pressure": {
				{Pattern: `\bmargin compression\b`, Weight: 1.6},
				{Pattern: `\bcost inflation\b`, Weight: 1.4},
				{Pattern: `\bpricing pressure\b`, Weight: 1.3},
				{Pattern: `\bgross margin decline\b`, Weight: 1.5},
				{Pattern: `\boperating margin contraction\b`, Weight: 1.5},
				{Pattern: `\bnegative operating margin\b`, Weight: 1.6},
				{Pattern: `\bunit economics deteriorat`, Weight: 1.4},
			},
			"legal_regulatory": {
				{Pattern: `\blitigation\b`, Weight: 1.0},
				{Pattern: `\blawsuit\b`, Weight: 1.0},
				{Pattern: `\bregulator(?:y)?\b`, Weight: 1.0},
				{Pattern: `\bcompliance risk\b`, Weight: 1.1},
				{Pattern: `\binvestigation\b`, Weight: 1.2},
				{Pattern: `\benforcement action\b`, Weight: 1.4},
				{Pattern: `\bfraud\b`, Weight: 1.8},
				{Pattern: `\bsec investigation\b`, Weight: 1.9},
				{Pattern: `\baccounting irregularit`, Weight: 1.7},
			},
			"bankruptcy_language": {
				{Pattern: `\bsubstantial doubt\b`, Weight: 2.1},
				{Pattern: `\binsolven(?:cy|t)\b`, Weight: 2.0},
				{Pattern: `\bchapter (?:11|7)\b`, Weight: 2.4},
				{Pattern: `\bbankrupt(?:cy)?\b`, Weight: 2.2},
				{Pattern: `\bliquidation\b`, Weight: 2.0},
				{Pattern: `\brestructur(?:e|ing)\b`, Weight: 1.5},
				{Pattern: `\bdistress(?:ed)?\b`, Weight: 1.2},
				{Pattern: `\bceased operations\b`, Weight: 2.0},
				{Pattern: `\bfiled for protection\b`, Weight: 2.3},
			},
		},
		Importance: map[string]float64{
			"liquidity_concerns":  1.25,
			"debt_stress":         1.20,
			"demand_decline":      1.00,
			"revenue_decline":     1.15,
			"cash_crisis":         1.30,
			"margin_pressure":     0.95,
			"legal_regulatory":    0.80,
			"bankruptcy_language": 1.45,
		},
	}
	if err := lx.compile(); err != nil {
		return nil, err
	}
	return lx, nil
}

func defaultStrongCues() []string {
	return []string{
		"not", "never", "no", "without", "denies", "denied",
		"did not", "does not", "no evidence of", "not filed",
	}
}

func defaultHedgeCues() []string {
	return []string{
		"may", "might", "could", "somewhat", "possibly",
		"potential", "possible", "risk of", "unlikely",
	}
}

func defaultSeverityTerms() []string {
	return []string{
		"substantial", "severe", "material", "acute", "critical",
		"significant", "default", "covenant breach", "bankruptcy",
		"insolvency", "liquidation",
	}
}

func defaultUncertaintyTerms() []string {
	return []string{"may", "might", "could", "potential", "possible", "risk of"}
}
