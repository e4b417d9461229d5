package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Analyzer wires the full assessment pipeline: evidence gathering,
// distress parsing and scoring, verification, benchmarking,
// classification, and counterfactual simulation.
type Analyzer struct {
	cfg     Config
	db      *sql.DB
	search  SearchProvider
	llm     CompletionProvider
	metrics MetricProvider
	lexicon *Lexicon
	model   *ClassifierModel
	parser  *Parser
	scorer  *Scorer
	bench   *Benchmarker
}

func NewAnalyzer(cfg Config, db *sql.DB, lx *Lexicon, model *ClassifierModel) *Analyzer {
	provider := NewSQLiteMetricProvider(db)
	return &Analyzer{
		cfg:     cfg,
		db:      db,
		search:  NewTavilyClient(cfg.TavilyAPIKey),
		llm:     NewCompletionProvider(cfg),
		metrics: provider,
		lexicon: lx,
		model:   model,
		parser:  NewParser(lx, cfg.NegationWindowTokens, cfg.HedgeDampening),
		scorer:  NewScorer(lx, cfg.SeveritySaturationK),
		bench:   NewBenchmarker(provider, db),
	}
}

// Search queries run per analysis; evidence from both is pooled.
var evidenceQueries = []string{
	"%s financial distress liquidity bankruptcy risk news",
	"%s earnings cash burn going concern covenant",
}

// Analyze runs the complete assessment for one ticker.
func (a *Analyzer) Analyze(ctx context.Context, ticker string) (*AnalysisReport, error) {
	start := time.Now()
	log.Printf("analyze start ticker=%s", ticker)

	// Evidence search and fundamentals load are independent; fetch both
	// at once.
	snippetSets := make([][]EvidenceSnippet, len(evidenceQueries))
	var fin FinancialMetrics
	var finErr error

	var wg sync.WaitGroup
	for i, q := range evidenceQueries {
		wg.Add(1)
		go func(i int, query string) {
			defer wg.Done()
			results, err := a.search.Search(ctx, fmt.Sprintf(query, ticker), a.cfg.SearchMaxResults)
			if err != nil {
				log.Printf("analyze search error ticker=%s err=%v", ticker, err)
				return
			}
			snippetSets[i] = results
		}(i, q)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		fin, finErr = a.metrics.CompanyMetrics(ctx, ticker)
	}()
	wg.Wait()

	if finErr != nil {
		// Fundamentals may simply not be loaded yet; estimation fills
		// the metric slots from the benchmark instead.
		log.Printf("analyze fundamentals missing ticker=%s err=%v", ticker, finErr)
		fin = FinancialMetrics{}
	}

	var snippets []EvidenceSnippet
	for _, set := range snippetSets {
		snippets = append(snippets, set...)
	}

	// Thin evidence: derive a narrative from the fundamentals so the
	// textual pipeline still has signal to work with.
	syntheticSources := 0
	if len(snippets) < a.cfg.MinEvidenceSnippets {
		if narrative := SynthesizeMetricNarrative(fin); narrative != "" {
			snippets = append(snippets, EvidenceSnippet{
				Text:      narrative,
				Source:    "derived:metrics",
				Timestamp: time.Now().UTC(),
			})
			syntheticSources++
		}
	}

	hits, err := a.parser.Parse(snippets)
	if err != nil {
		var unsupported *UnsupportedInputError
		if !errors.As(err, &unsupported) {
			return nil, err
		}
		// All evidence unanalyzable: score on zero hits.
		log.Printf("analyze evidence unusable ticker=%s err=%v", ticker, err)
	}
	scores := a.scorer.Score(hits)

	macroStress := a.cfg.MacroStressScore
	activeForces := DetectActiveMacroForces(snippets, macroStress)

	verification := a.verify(ctx, ticker, snippets, scores)

	sector, peers := a.cohort(ctx, ticker)
	bench := a.bench.Benchmark(ctx, sector, peers)

	vector, err := BuildFeatureVector(a.cfg.SchemaVersion, scores, fin, macroStress, bench)
	if err != nil {
		return nil, err
	}
	baselineRisk, err := a.model.Score(vector)
	if err != nil {
		return nil, err
	}

	peerSim, err := Simulate(a.model, vector, SuggestPerturbations(bench, vector))
	if err != nil {
		return nil, err
	}
	scenarios, err := RunScenarios(a.model, vector, bench, activeForces, macroStress)
	if err != nil {
		return nil, err
	}

	report := &AnalysisReport{
		RunID:            uuid.NewString(),
		Ticker:           ticker,
		GeneratedAt:      time.Now().UTC(),
		Verification:     verification,
		ThemeScores:      scores,
		Metrics:          reportMetrics(fin),
		MacroStress:      macroStress,
		ActiveForces:     activeForces,
		BaselineRisk:     baselineRisk,
		Benchmark:        bench,
		PeerSimulation:   peerSim,
		Scenarios:        scenarios,
		EvidenceCount:    len(snippets),
		SyntheticSources: syntheticSources,
	}

	log.Printf("analyze done ticker=%s risk=%.3f benchmark=%s scenarios=%d elapsed=%s",
		ticker, baselineRisk, bench.Basis, len(scenarios), time.Since(start).Round(time.Millisecond))
	return report, nil
}

// verify runs the LLM gate when a provider is configured, falling back
// to the lexicon-derived estimate on any provider failure.
func (a *Analyzer) verify(ctx context.Context, ticker string, snippets []EvidenceSnippet, scores []ThemeScore) VerificationResult {
	if a.llm != nil && len(snippets) > 0 {
		result, err := VerifyDistress(ctx, a.llm, ticker, snippets)
		if err == nil {
			return result
		}
		log.Printf("analyze verification fallback ticker=%s err=%v", ticker, err)
	}
	return EstimateVerification(a.lexicon, scores)
}

func (a *Analyzer) cohort(ctx context.Context, ticker string) (sector string, peers []string) {
	sector, err := a.metrics.CompanySector(ctx, ticker)
	if err != nil {
		log.Printf("analyze sector unavailable ticker=%s err=%v", ticker, err)
	}
	peers, err = a.metrics.PeerTickers(ctx, ticker)
	if err != nil {
		log.Printf("analyze peers unavailable ticker=%s err=%v", ticker, err)
	}
	return sector, peers
}

func reportMetrics(m FinancialMetrics) map[string]MetricValue {
	out := make(map[string]MetricValue)
	for _, name := range []string{
		metricDebtToEquity, metricCurrentRatio, metricRevenueGrowth,
		metricGrossMargin, metricOperatingMargin,
	} {
		if v := m.Get(name); v != nil {
			out[name] = MetricValue{Value: *v, Estimated: false}
		}
	}
	if v := m.BurnRatio(); v != nil {
		out[slotBurnRatio] = MetricValue{Value: *v, Estimated: false}
	}
	return out
}
