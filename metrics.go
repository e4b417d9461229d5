package main

import (
	"fmt"
	"strings"
)

// Canonical metric names, shared between the metric provider, the
// benchmarker, and the feature schema.
const (
	metricDebtToEquity    = "debt_to_equity"
	metricCurrentRatio    = "current_ratio"
	metricCashBurn        = "cash_burn"
	metricRevenue         = "revenue"
	metricRevenueGrowth   = "revenue_growth"
	metricExpenseGrowth   = "expense_growth"
	metricInventoryGrowth = "inventory_growth"
	metricGrossMargin     = "gross_margin"
	metricOperatingMargin = "operating_margin"
)

// FinancialMetrics is one company's metric set. Nil means the value is
// unknown; downstream estimation always flags what it fills in.
type FinancialMetrics struct {
	DebtToEquity    *float64
	CurrentRatio    *float64
	CashBurn        *float64
	Revenue         *float64
	RevenueGrowth   *float64
	ExpenseGrowth   *float64
	InventoryGrowth *float64
	GrossMargin     *float64
	OperatingMargin *float64
}

func (m FinancialMetrics) Get(name string) *float64 {
	switch name {
	case metricDebtToEquity:
		return m.DebtToEquity
	case metricCurrentRatio:
		return m.CurrentRatio
	case metricCashBurn:
		return m.CashBurn
	case metricRevenue:
		return m.Revenue
	case metricRevenueGrowth:
		return m.RevenueGrowth
	case metricExpenseGrowth:
		return m.ExpenseGrowth
	case metricInventoryGrowth:
		return m.InventoryGrowth
	case metricGrossMargin:
		return m.GrossMargin
	case metricOperatingMargin:
		return m.OperatingMargin
	}
	return nil
}

// BurnRatio is operating cash burn as a share of revenue, clamped to
// [0,1]. Returns nil when either input is unknown.
func (m FinancialMetrics) BurnRatio() *float64 {
	if m.CashBurn == nil || m.Revenue == nil || *m.Revenue == 0 {
		return nil
	}
	rev := *m.Revenue
	if rev < 0 {
		rev = -rev
	}
	r := clamp01(*m.CashBurn / rev)
	return &r
}

// RawFundamentals are statement line items as stored, before ratio
// derivation. All fields optional; providers are tolerant of gaps.
type RawFundamentals struct {
	Ticker               string
	Sector               string
	TotalDebt            *float64
	TotalEquity          *float64
	CurrentAssets        *float64
	CurrentLiabilities   *float64
	RevenueNow           *float64
	RevenuePrev          *float64
	OperatingExpenseNow  *float64
	OperatingExpensePrev *float64
	GrossProfit          *float64
	OperatingIncome      *float64
	InventoryNow         *float64
	InventoryPrev        *float64
	OperatingCashFlow    *float64
}

// DeriveMetrics computes ratio metrics from raw line items, leaving nil
// wherever a numerator or denominator is missing.
func DeriveMetrics(raw RawFundamentals) FinancialMetrics {
	var m FinancialMetrics

	m.DebtToEquity = safeDiv(raw.TotalDebt, raw.TotalEquity)
	m.CurrentRatio = safeDiv(raw.CurrentAssets, raw.CurrentLiabilities)
	m.Revenue = raw.RevenueNow
	m.GrossMargin = safeDiv(raw.GrossProfit, raw.RevenueNow)
	m.OperatingMargin = safeDiv(raw.OperatingIncome, raw.RevenueNow)
	m.RevenueGrowth = growthRate(raw.RevenueNow, raw.RevenuePrev)
	m.ExpenseGrowth = growthRate(raw.OperatingExpenseNow, raw.OperatingExpensePrev)
	m.InventoryGrowth = growthRate(raw.InventoryNow, raw.InventoryPrev)

	// Cash burn is the negative part of operating cash flow.
	if raw.OperatingCashFlow != nil {
		burn := 0.0
		if *raw.OperatingCashFlow < 0 {
			burn = -*raw.OperatingCashFlow
		}
		m.CashBurn = &burn
	}
	return m
}

func safeDiv(num, den *float64) *float64 {
	if num == nil || den == nil || *den == 0 {
		return nil
	}
	v := *num / *den
	return &v
}

func growthRate(now, prev *float64) *float64 {
	if now == nil || prev == nil || *prev == 0 {
		return nil
	}
	v := (*now - *prev) / *prev
	return &v
}

// SynthesizeMetricNarrative generates distress language from raw metric
// values so the parser always has something to analyze when external
// text is thin. Sentences are phrased to match the lexicon patterns.
func SynthesizeMetricNarrative(m FinancialMetrics) string {
	var sentences []string

	if m.DebtToEquity != nil {
		dte := *m.DebtToEquity
		switch {
		case dte > 4.0:
			sentences = append(sentences, fmt.Sprintf(
				"The company carries a substantial debt to equity ratio of %.1f, indicating an over-leveraged balance sheet and elevated default risk.", dte))
		case dte > 2.5:
			sentences = append(sentences, fmt.Sprintf(
				"High leverage with a debt to equity of %.1f creates significant interest burden and refinancing pressure.", dte))
		case dte > 1.5:
			sentences = append(sentences, fmt.Sprintf(
				"The debt to equity of %.1f signals moderate leverage with potential covenant breach risk under stressed conditions.", dte))
		}
	}

	if m.CurrentRatio != nil {
		cr := *m.CurrentRatio
		switch {
		case cr < 0.8:
			sentences = append(sentences, fmt.Sprintf(
				"Current ratio of %.2f indicates a severe cash crunch where current liabilities exceed short-term assets substantially. The working capital deficit raises going concern questions.", cr))
		case cr < 1.0:
			sentences = append(sentences, fmt.Sprintf(
				"Current ratio of %.2f signals tight cash. The company cannot fully cover current liabilities, creating liquidity concerns and limited cash runway.", cr))
		case cr < 1.3:
			sentences = append(sentences, fmt.Sprintf(
				"Thin liquidity buffer with a current ratio of %.2f leaves limited working capital headroom for operational stress.", cr))
		}
	}

	if br := m.BurnRatio(); br != nil && *br > 0 {
		if *br > 0.15 {
			sentences = append(sentences, fmt.Sprintf(
				"Significant operating cash burn rate: cash consumed by operations represents %.1f%% of revenue, indicating negative free cash flow and high burn that may require capital raise.", *br*100))
		} else {
			sentences = append(sentences,
				"Operating cash burn is present. Negative free cash flow is a meaningful distress signal that pressures the funding gap.")
		}
	}

	if m.RevenueGrowth != nil {
		rg := *m.RevenueGrowth
		switch {
		case rg < -0.20:
			sentences = append(sentences, fmt.Sprintf(
				"Severe revenue decline of %.1f%%: declining revenue and shrinking sales signal demand decline and top-line contraction.", -rg*100))
		case rg < -0.05:
			sentences = append(sentences, fmt.Sprintf(
				"Revenue contraction of %.1f%%: falling revenue suggests negative revenue growth and a weakening market position.", -rg*100))
		case rg < 0:
			sentences = append(sentences,
				"Negative revenue growth indicates sales decline, with the company experiencing revenue contraction year over year.")
		}
	}

	if m.OperatingMargin != nil {
		om := *m.OperatingMargin
		switch {
		case om < -0.10:
			sentences = append(sentences, fmt.Sprintf(
				"Deeply negative operating margin of %.1f%% indicates severe margin pressure and operating margin contraction: the cost structure is unsustainable.", om*100))
		case om < 0:
			sentences = append(sentences,
				"Negative operating margin reflects operating margin contraction and pricing pressure eroding profitability.")
		}
	}

	if m.GrossMargin != nil && *m.GrossMargin < 0.15 {
		sentences = append(sentences, fmt.Sprintf(
			"Gross margin of %.1f%% is critically thin: gross margin decline and cost inflation are compressing unit economics.", *m.GrossMargin*100))
	}

	return strings.Join(sentences, " ")
}
