package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
)

// MetricProvider supplies financial metrics for companies and cohorts.
// Implementations tolerate missing values; absence is expressed as nil
// metric fields, never as a hard failure.
type MetricProvider interface {
	CompanyMetrics(ctx context.Context, ticker string) (FinancialMetrics, error)
	PeerMetrics(ctx context.Context, tickers []string) ([]FinancialMetrics, error)
	SectorMetrics(ctx context.Context, sector string) ([]FinancialMetrics, error)
	CompanySector(ctx context.Context, ticker string) (string, error)
	PeerTickers(ctx context.Context, ticker string) ([]string, error)
}

// sqliteMetricProvider reads fundamentals stored in the local database.
type sqliteMetricProvider struct {
	db *sql.DB
}

func NewSQLiteMetricProvider(db *sql.DB) MetricProvider {
	return &sqliteMetricProvider{db: db}
}

func (p *sqliteMetricProvider) CompanyMetrics(ctx context.Context, ticker string) (FinancialMetrics, error) {
	raw, err := GetFundamentals(ctx, p.db, ticker)
	if err != nil {
		return FinancialMetrics{}, &ExternalProviderError{Provider: "marketdata", Err: err}
	}
	return DeriveMetrics(raw), nil
}

func (p *sqliteMetricProvider) PeerMetrics(ctx context.Context, tickers []string) ([]FinancialMetrics, error) {
	var out []FinancialMetrics
	for _, ticker := range tickers {
		raw, err := GetFundamentals(ctx, p.db, ticker)
		if err != nil {
			// A missing peer thins the cohort, it does not abort it.
			log.Printf("marketdata peer skipped ticker=%s err=%v", ticker, err)
			continue
		}
		out = append(out, DeriveMetrics(raw))
	}
	if len(out) == 0 && len(tickers) > 0 {
		return nil, &ExternalProviderError{
			Provider: "marketdata",
			Err:      fmt.Errorf("no fundamentals for any of %d peers", len(tickers)),
		}
	}
	return out, nil
}

func (p *sqliteMetricProvider) SectorMetrics(ctx context.Context, sector string) ([]FinancialMetrics, error) {
	tickers, err := ListSectorTickers(ctx, p.db, sector)
	if err != nil {
		return nil, &ExternalProviderError{Provider: "marketdata", Err: err}
	}
	return p.PeerMetrics(ctx, tickers)
}

func (p *sqliteMetricProvider) CompanySector(ctx context.Context, ticker string) (string, error) {
	raw, err := GetFundamentals(ctx, p.db, ticker)
	if err != nil {
		return "", &ExternalProviderError{Provider: "marketdata", Err: err}
	}
	return raw.Sector, nil
}

func (p *sqliteMetricProvider) PeerTickers(ctx context.Context, ticker string) ([]string, error) {
	peers, err := ListPeerTickers(ctx, p.db, ticker)
	if err != nil {
		return nil, &ExternalProviderError{Provider: "marketdata", Err: err}
	}
	return peers, nil
}
