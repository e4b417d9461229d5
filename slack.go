package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/slack-go/slack"
)

// SlackNotifier posts a short assessment summary to a channel. With no
// bot token configured it is a no-op.
type SlackNotifier struct {
	api       *slack.Client
	channelID string
}

func NewSlackNotifier(cfg Config) *SlackNotifier {
	if cfg.SlackBotToken == "" {
		return &SlackNotifier{}
	}
	return &SlackNotifier{
		api:       slack.New(cfg.SlackBotToken),
		channelID: cfg.SlackChannelID,
	}
}

func (n *SlackNotifier) Enabled() bool { return n.api != nil }

func (n *SlackNotifier) NotifyReport(rep *AnalysisReport, reportPath string) {
	if !n.Enabled() {
		return
	}

	verdict := "not in distress"
	if rep.Verification.Distressed {
		verdict = "DISTRESSED"
	}
	var top string
	if len(rep.Scenarios) > 0 {
		sc := rep.Scenarios[0]
		top = fmt.Sprintf("\nBest path: *%s* (%.1f pts risk reduction, feasibility %s)",
			sc.Name, sc.RiskReduction*100, sc.FeasibilityLabel)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*%s* assessed %s (confidence %.0f%%)\n", rep.Ticker, verdict, rep.Verification.Confidence*100)
	fmt.Fprintf(&b, "Baseline failure risk: *%.1f%%* | peer counterfactual: %.1f%%%s\n",
		rep.BaselineRisk*100, rep.PeerSimulation.CounterfactualRisk*100, top)
	fmt.Fprintf(&b, "Full report: %s", reportPath)

	_, _, err := n.api.PostMessage(n.channelID,
		slack.MsgOptionText(b.String(), false),
		slack.MsgOptionDisableLinkUnfurl(),
	)
	if err != nil {
		log.Printf("slack notify error channel=%s err=%v", n.channelID, err)
	}
}
