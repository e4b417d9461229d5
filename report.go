package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// BuildReportMarkdown renders the analysis as a human-readable report.
func BuildReportMarkdown(rep *AnalysisReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Distress Assessment: %s\n\n", rep.Ticker)
	fmt.Fprintf(&b, "Run `%s` generated %s\n\n", rep.RunID, rep.GeneratedAt.Format("2006-01-02 15:04 MST"))

	fmt.Fprintf(&b, "### Verdict\n\n")
	verdict := "Not in distress"
	if rep.Verification.Distressed {
		verdict = "Distressed"
	}
	mode := "verified"
	if rep.Verification.Estimated {
		mode = "estimated"
	}
	fmt.Fprintf(&b, "- **%s** (confidence %.0f%%, %s)\n", verdict, rep.Verification.Confidence*100, mode)
	if rep.Verification.Reason != "" {
		fmt.Fprintf(&b, "- %s\n", rep.Verification.Reason)
	}
	fmt.Fprintf(&b, "- **Baseline failure risk: %.1f%%**\n\n", rep.BaselineRisk*100)

	fmt.Fprintf(&b, "### Distress Themes\n\n")
	active := 0
	for _, ts := range rep.ThemeScores {
		if ts.Severity < 0.05 {
			continue
		}
		active++
		fmt.Fprintf(&b, "- **%s** severity %.2f, confidence %.2f\n", themeTitle(ts.Theme), ts.Severity, ts.Confidence)
		for _, ev := range ts.Evidence {
			fmt.Fprintf(&b, "  - %q\n", ev)
		}
	}
	if active == 0 {
		fmt.Fprintf(&b, "- No material distress themes detected in the evidence.\n")
	}
	fmt.Fprintf(&b, "\n")

	if len(rep.Metrics) > 0 {
		fmt.Fprintf(&b, "### Financial Metrics\n\n")
		names := make([]string, 0, len(rep.Metrics))
		for name := range rep.Metrics {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			mv := rep.Metrics[name]
			suffix := ""
			if mv.Estimated {
				suffix = " (estimated)"
			}
			fmt.Fprintf(&b, "- %s: %.3f%s\n", strings.ReplaceAll(name, "_", " "), mv.Value, suffix)
		}
		fmt.Fprintf(&b, "\n")
	}

	fmt.Fprintf(&b, "### Macro Environment\n\n")
	fmt.Fprintf(&b, "- Macro stress score: %.0f/100\n", rep.MacroStress)
	if len(rep.ActiveForces) > 0 {
		fmt.Fprintf(&b, "- Active forces: %s\n", strings.ReplaceAll(strings.Join(rep.ActiveForces, ", "), "_", " "))
	} else {
		fmt.Fprintf(&b, "- No active macro forces detected.\n")
	}
	fmt.Fprintf(&b, "\n")

	fmt.Fprintf(&b, "### Peer Counterfactual\n\n")
	fmt.Fprintf(&b, "- Benchmark basis: %s (confidence %.0f%%)\n", rep.Benchmark.Basis, rep.Benchmark.Confidence*100)
	fmt.Fprintf(&b, "- Risk at peer-median financials: %.1f%% (%+.1f pts)\n\n",
		rep.PeerSimulation.CounterfactualRisk*100, rep.PeerSimulation.Delta*100)
	for _, c := range rep.PeerSimulation.Contributions {
		fmt.Fprintf(&b, "- %s: delta %+.3f, logit shift %+.3f\n", strings.ReplaceAll(c.Slot, "_", " "), c.RawDelta, c.LogitShift)
	}
	fmt.Fprintf(&b, "\n")

	fmt.Fprintf(&b, "### Strategy Scenarios\n\n")
	for i, sc := range rep.Scenarios {
		fmt.Fprintf(&b, "#### %d. %s\n\n", i+1, sc.Name)
		fmt.Fprintf(&b, "- %s\n", sc.Strategy)
		fmt.Fprintf(&b, "- Survivor reference: %s\n", sc.SurvivorReference)
		fmt.Fprintf(&b, "- Risk %.1f%% -> %.1f%% (reduction %.1f pts)\n",
			sc.Result.BaselineRisk*100, sc.Result.CounterfactualRisk*100, sc.RiskReduction*100)
		fmt.Fprintf(&b, "- Feasibility: %s (%.2f), %s\n", sc.FeasibilityLabel, sc.Feasibility, sc.Likelihood)
		fmt.Fprintf(&b, "- %s\n\n", sc.Reasoning)
	}

	fmt.Fprintf(&b, "---\n\n")
	fmt.Fprintf(&b, "Evidence snippets: %d (%d synthesized from metrics)\n", rep.EvidenceCount, rep.SyntheticSources)
	return b.String()
}

func themeTitle(theme string) string {
	words := strings.Split(strings.ReplaceAll(theme, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func WriteReportFile(content, outputDir, ticker string, rep *AnalysisReport) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", err
	}
	filename := fmt.Sprintf("%s_%s.md", ticker, rep.GeneratedAt.Format("20060102_150405"))
	path := filepath.Join(outputDir, filename)
	return path, os.WriteFile(path, []byte(content), 0644)
}

// WriteReportJSON persists the structured report alongside the
// markdown rendering.
func WriteReportJSON(rep *AnalysisReport, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return "", err
	}
	filename := fmt.Sprintf("%s_%s.json", rep.Ticker, rep.GeneratedAt.Format("20060102_150405"))
	path := filepath.Join(outputDir, filename)
	return path, os.WriteFile(path, data, 0644)
}
