package main

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := InitDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestFundamentalsRoundTrip(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	raw := RawFundamentals{
		Ticker:             "ACME",
		Sector:             "automotive",
		TotalDebt:          fptr(500),
		TotalEquity:        fptr(200),
		CurrentAssets:      fptr(90),
		CurrentLiabilities: fptr(100),
		RevenueNow:         fptr(1000),
		RevenuePrev:        fptr(1200),
		OperatingCashFlow:  fptr(-150),
	}
	if err := UpsertFundamentals(ctx, db, raw); err != nil {
		t.Fatalf("UpsertFundamentals: %v", err)
	}

	got, err := GetFundamentals(ctx, db, "ACME")
	if err != nil {
		t.Fatalf("GetFundamentals: %v", err)
	}
	if got.Sector != "automotive" {
		t.Fatalf("sector = %s, want automotive", got.Sector)
	}
	if got.TotalDebt == nil || *got.TotalDebt != 500 {
		t.Fatalf("total debt = %v, want 500", got.TotalDebt)
	}
	// Unset line items stay nil.
	if got.GrossProfit != nil {
		t.Fatalf("gross profit = %v, want nil", got.GrossProfit)
	}

	// Upsert replaces in place.
	raw.TotalDebt = fptr(650)
	if err := UpsertFundamentals(ctx, db, raw); err != nil {
		t.Fatalf("UpsertFundamentals update: %v", err)
	}
	got, err = GetFundamentals(ctx, db, "ACME")
	if err != nil {
		t.Fatalf("GetFundamentals after update: %v", err)
	}
	if *got.TotalDebt != 650 {
		t.Fatalf("total debt after update = %v, want 650", *got.TotalDebt)
	}
}

func TestGetFundamentalsMissing(t *testing.T) {
	db := testDB(t)
	if _, err := GetFundamentals(context.Background(), db, "NOPE"); err == nil {
		t.Fatal("expected error for unknown ticker")
	}
}

func TestSectorAndPeerListing(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	for _, ticker := range []string{"AAA", "BBB", "CCC"} {
		if err := UpsertFundamentals(ctx, db, RawFundamentals{Ticker: ticker, Sector: "automotive"}); err != nil {
			t.Fatalf("UpsertFundamentals(%s): %v", ticker, err)
		}
	}
	if err := UpsertFundamentals(ctx, db, RawFundamentals{Ticker: "ZZZ", Sector: "retail"}); err != nil {
		t.Fatalf("UpsertFundamentals(ZZZ): %v", err)
	}

	sector, err := ListSectorTickers(ctx, db, "automotive")
	if err != nil {
		t.Fatalf("ListSectorTickers: %v", err)
	}
	if len(sector) != 3 {
		t.Fatalf("sector tickers = %v, want 3", sector)
	}

	all, err := ListAllTickers(ctx, db)
	if err != nil {
		t.Fatalf("ListAllTickers: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("all tickers = %v, want 4", all)
	}

	if err := AddPeer(ctx, db, "AAA", "BBB"); err != nil {
		t.Fatalf("AddPeer: %v", err)
	}
	if err := AddPeer(ctx, db, "AAA", "BBB"); err != nil {
		t.Fatalf("AddPeer duplicate: %v", err)
	}
	peers, err := ListPeerTickers(ctx, db, "AAA")
	if err != nil {
		t.Fatalf("ListPeerTickers: %v", err)
	}
	if len(peers) != 1 || peers[0] != "BBB" {
		t.Fatalf("peers = %v, want [BBB]", peers)
	}
}

func TestModelRoundTrip(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if model, err := LoadLatestModel(ctx, db); err != nil || model != nil {
		t.Fatalf("empty store: model=%v err=%v, want nil/nil", model, err)
	}

	width := len(schemaV1Slots)
	saved := &ClassifierModel{
		SchemaVersion: SchemaVersionV1,
		Weights:       onesVector(width),
		Bias:          -1.25,
		Means:         make([]float64, width),
		Stddevs:       onesVector(width),
		CorpusID:      "corpus-1",
		TrainedAt:     time.Now().UTC().Truncate(time.Second),
	}
	if err := SaveModel(ctx, db, saved); err != nil {
		t.Fatalf("SaveModel: %v", err)
	}

	got, err := LoadLatestModel(ctx, db)
	if err != nil {
		t.Fatalf("LoadLatestModel: %v", err)
	}
	if got == nil {
		t.Fatal("LoadLatestModel returned nil after save")
	}
	if got.CorpusID != "corpus-1" || got.Bias != -1.25 || got.Width() != width {
		t.Fatalf("loaded model mismatch: %+v", got)
	}

	// A newer artifact shadows the old one.
	saved.CorpusID = "corpus-2"
	saved.TrainedAt = saved.TrainedAt.Add(time.Hour)
	if err := SaveModel(ctx, db, saved); err != nil {
		t.Fatalf("SaveModel second: %v", err)
	}
	got, err = LoadLatestModel(ctx, db)
	if err != nil {
		t.Fatalf("LoadLatestModel second: %v", err)
	}
	if got.CorpusID != "corpus-2" {
		t.Fatalf("latest corpus = %s, want corpus-2", got.CorpusID)
	}
}

func TestLoadModelRejectsZeroStddev(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	width := len(schemaV1Slots)
	stddevs := onesVector(width)
	stddevs[2] = 0
	saved := &ClassifierModel{
		SchemaVersion: SchemaVersionV1,
		Weights:       onesVector(width),
		Means:         make([]float64, width),
		Stddevs:       stddevs,
		CorpusID:      "corpus-bad",
		TrainedAt:     time.Now().UTC(),
	}
	if err := SaveModel(ctx, db, saved); err != nil {
		t.Fatalf("SaveModel: %v", err)
	}

	_, err := LoadLatestModel(ctx, db)
	var mismatch *SchemaMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("err = %v, want SchemaMismatchError", err)
	}
}

func TestLoadModelRejectsWidthDrift(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	width := len(schemaV1Slots)
	saved := &ClassifierModel{
		SchemaVersion: SchemaVersionV1,
		Weights:       onesVector(width - 1),
		Means:         make([]float64, width-1),
		Stddevs:       onesVector(width - 1),
		CorpusID:      "corpus-short",
		TrainedAt:     time.Now().UTC(),
	}
	if err := SaveModel(ctx, db, saved); err != nil {
		t.Fatalf("SaveModel: %v", err)
	}

	_, err := LoadLatestModel(ctx, db)
	var mismatch *SchemaMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("err = %v, want SchemaMismatchError", err)
	}
	if mismatch.WantWidth != width || mismatch.GotWidth != width-1 {
		t.Fatalf("mismatch widths = %d/%d, want %d/%d", mismatch.WantWidth, mismatch.GotWidth, width, width-1)
	}
}

func TestTrainingExamplesRoundTrip(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	lx := testLexicon(t)

	examples := SyntheticScenarioCorpus(lx, 25, 3)
	inserted, err := InsertTrainingExamples(ctx, db, examples)
	if err != nil {
		t.Fatalf("InsertTrainingExamples: %v", err)
	}
	if inserted != 25 {
		t.Fatalf("inserted = %d, want 25", inserted)
	}

	loaded, err := LoadTrainingExamples(ctx, db, SchemaVersionV1)
	if err != nil {
		t.Fatalf("LoadTrainingExamples: %v", err)
	}
	if len(loaded) != 25 {
		t.Fatalf("loaded = %d, want 25", len(loaded))
	}
	for i := range loaded {
		if loaded[i].ScenarioID != examples[i].ScenarioID || loaded[i].Distressed != examples[i].Distressed {
			t.Fatalf("example %d mismatch after round trip", i)
		}
		for j := range loaded[i].Vector.Values {
			if loaded[i].Vector.Values[j] != examples[i].Vector.Values[j] {
				t.Fatalf("example %d slot %d mismatch after round trip", i, j)
			}
		}
	}
}

func TestBenchmarkCacheUpsert(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	bench := GlobalBenchmark()
	if err := UpsertBenchmarkCache(ctx, db, bench); err != nil {
		t.Fatalf("UpsertBenchmarkCache: %v", err)
	}
	// Second refresh overwrites rather than duplicating.
	if err := UpsertBenchmarkCache(ctx, db, bench); err != nil {
		t.Fatalf("UpsertBenchmarkCache second: %v", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM benchmark_cache`).Scan(&count); err != nil {
		t.Fatalf("counting cache rows: %v", err)
	}
	if count != len(benchmarkSlots) {
		t.Fatalf("cache rows = %d, want %d", count, len(benchmarkSlots))
	}
}
