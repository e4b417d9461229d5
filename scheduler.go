package main

import (
	"context"
	"database/sql"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// StartBenchmarkScheduler periodically recomputes the global cohort
// distributions from stored fundamentals and caches them, so serve-mode
// analyses fall back to fresh numbers when a target has no peer set.
// The schedule is a standard 5-field cron expression.
func StartBenchmarkScheduler(cfg Config, db *sql.DB) {
	schedule := strings.TrimSpace(cfg.BenchmarkRefreshSchedule)
	if schedule == "" {
		log.Println("Benchmark refresh disabled (benchmark_refresh_schedule not set)")
		return
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		log.Printf("Invalid benchmark_refresh_schedule '%s': %v — refresh disabled", schedule, err)
		return
	}
	log.Printf("Benchmark refresh scheduled (cron: %s)", schedule)

	go func() {
		for {
			now := time.Now()
			next := sched.Next(now)
			log.Printf("Next benchmark refresh at %s (in %s)", next.Format("Mon Jan 2 15:04"), next.Sub(now).Round(time.Minute))

			time.Sleep(next.Sub(now))

			if err := RefreshBenchmarkCache(context.Background(), db); err != nil {
				log.Printf("Benchmark refresh error: %v", err)
			}
		}
	}()
}

// RefreshBenchmarkCache recomputes distributions over every company
// with stored fundamentals and upserts them into the cache table.
func RefreshBenchmarkCache(ctx context.Context, db *sql.DB) error {
	tickers, err := ListAllTickers(ctx, db)
	if err != nil {
		return err
	}
	if len(tickers) == 0 {
		log.Println("Benchmark refresh skipped: no fundamentals stored")
		return nil
	}

	provider := NewSQLiteMetricProvider(db)
	rows, err := provider.PeerMetrics(ctx, tickers)
	if err != nil {
		return err
	}
	dists := distributions(rows)
	bench := PeerBenchmark{Basis: "global", Confidence: 0.3, Distributions: dists}
	if err := UpsertBenchmarkCache(ctx, db, bench); err != nil {
		return err
	}
	log.Printf("Benchmark refresh complete companies=%d slots=%d", len(tickers), len(dists))
	return nil
}
