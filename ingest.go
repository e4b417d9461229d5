package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

// fundamentalsFile is the yaml layout for bulk-loading company
// fundamentals and peer sets into the local store.
type fundamentalsFile struct {
	Companies []struct {
		Ticker               string   `yaml:"ticker"`
		Sector               string   `yaml:"sector"`
		Peers                []string `yaml:"peers"`
		TotalDebt            *float64 `yaml:"total_debt"`
		TotalEquity          *float64 `yaml:"total_equity"`
		CurrentAssets        *float64 `yaml:"current_assets"`
		CurrentLiabilities   *float64 `yaml:"current_liabilities"`
		RevenueNow           *float64 `yaml:"revenue_now"`
		RevenuePrev          *float64 `yaml:"revenue_prev"`
		OperatingExpenseNow  *float64 `yaml:"operating_expense_now"`
		OperatingExpensePrev *float64 `yaml:"operating_expense_prev"`
		GrossProfit          *float64 `yaml:"gross_profit"`
		OperatingIncome      *float64 `yaml:"operating_income"`
		InventoryNow         *float64 `yaml:"inventory_now"`
		InventoryPrev        *float64 `yaml:"inventory_prev"`
		OperatingCashFlow    *float64 `yaml:"operating_cash_flow"`
	} `yaml:"companies"`
}

// IngestFundamentalsFile upserts every company in the file and records
// its peer links. Returns the number of companies loaded.
func IngestFundamentalsFile(ctx context.Context, db *sql.DB, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var file fundamentalsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return 0, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(file.Companies) == 0 {
		return 0, fmt.Errorf("%s contains no companies", path)
	}

	loaded := 0
	for _, c := range file.Companies {
		if c.Ticker == "" {
			return loaded, fmt.Errorf("company %d has no ticker", loaded)
		}
		raw := RawFundamentals{
			Ticker:               c.Ticker,
			Sector:               c.Sector,
			TotalDebt:            c.TotalDebt,
			TotalEquity:          c.TotalEquity,
			CurrentAssets:        c.CurrentAssets,
			CurrentLiabilities:   c.CurrentLiabilities,
			RevenueNow:           c.RevenueNow,
			RevenuePrev:          c.RevenuePrev,
			OperatingExpenseNow:  c.OperatingExpenseNow,
			OperatingExpensePrev: c.OperatingExpensePrev,
			GrossProfit:          c.GrossProfit,
			OperatingIncome:      c.OperatingIncome,
			InventoryNow:         c.InventoryNow,
			InventoryPrev:        c.InventoryPrev,
			OperatingCashFlow:    c.OperatingCashFlow,
		}
		if err := UpsertFundamentals(ctx, db, raw); err != nil {
			return loaded, fmt.Errorf("upserting %s: %w", c.Ticker, err)
		}
		for _, peer := range c.Peers {
			if err := AddPeer(ctx, db, c.Ticker, peer); err != nil {
				return loaded, fmt.Errorf("linking peer %s of %s: %w", peer, c.Ticker, err)
			}
		}
		loaded++
	}
	log.Printf("ingest done companies=%d file=%s", loaded, path)
	return loaded, nil
}
