package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS fundamentals (
		ticker                 TEXT PRIMARY KEY,
		sector                 TEXT DEFAULT '',
		total_debt             REAL,
		total_equity           REAL,
		current_assets         REAL,
		current_liabilities    REAL,
		revenue_now            REAL,
		revenue_prev           REAL,
		operating_expense_now  REAL,
		operating_expense_prev REAL,
		gross_profit           REAL,
		operating_income       REAL,
		inventory_now          REAL,
		inventory_prev         REAL,
		operating_cash_flow    REAL,
		as_of                  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_fundamentals_sector ON fundamentals(sector);

	CREATE TABLE IF NOT EXISTS company_peers (
		ticker      TEXT NOT NULL,
		peer_ticker TEXT NOT NULL,
		PRIMARY KEY (ticker, peer_ticker)
	);

	CREATE TABLE IF NOT EXISTS model_artifacts (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		schema_version TEXT NOT NULL,
		corpus_id      TEXT NOT NULL,
		bias           REAL NOT NULL,
		weights        TEXT NOT NULL,
		means          TEXT NOT NULL,
		stddevs        TEXT NOT NULL,
		trained_at     DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_model_trained_at ON model_artifacts(trained_at);

	CREATE TABLE IF NOT EXISTS training_scenarios (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		scenario_id    TEXT NOT NULL,
		schema_version TEXT NOT NULL,
		distressed     INTEGER NOT NULL,
		vector         TEXT NOT NULL,
		created_at     DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_ts_schema ON training_scenarios(schema_version);

	CREATE TABLE IF NOT EXISTS analyses (
		id                      INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id                  TEXT NOT NULL,
		ticker                  TEXT NOT NULL,
		verified                INTEGER NOT NULL,
		verification_confidence REAL NOT NULL,
		baseline_risk           REAL NOT NULL,
		counterfactual_risk     REAL NOT NULL,
		report_path             TEXT DEFAULT '',
		created_at              DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_analyses_ticker ON analyses(ticker);

	CREATE TABLE IF NOT EXISTS benchmark_cache (
		slot         TEXT PRIMARY KEY,
		basis        TEXT NOT NULL,
		median       REAL NOT NULL,
		q1           REAL NOT NULL,
		q3           REAL NOT NULL,
		samples      INTEGER NOT NULL,
		refreshed_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, err
	}
	return db, nil
}

// --- fundamentals ---

func UpsertFundamentals(ctx context.Context, db *sql.DB, raw RawFundamentals) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO fundamentals (
			ticker, sector, total_debt, total_equity, current_assets, current_liabilities,
			revenue_now, revenue_prev, operating_expense_now, operating_expense_prev,
			gross_profit, operating_income, inventory_now, inventory_prev, operating_cash_flow, as_of)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(ticker) DO UPDATE SET
			sector = excluded.sector,
			total_debt = excluded.total_debt,
			total_equity = excluded.total_equity,
			current_assets = excluded.current_assets,
			current_liabilities = excluded.current_liabilities,
			revenue_now = excluded.revenue_now,
			revenue_prev = excluded.revenue_prev,
			operating_expense_now = excluded.operating_expense_now,
			operating_expense_prev = excluded.operating_expense_prev,
			gross_profit = excluded.gross_profit,
			operating_income = excluded.operating_income,
			inventory_now = excluded.inventory_now,
			inventory_prev = excluded.inventory_prev,
			operating_cash_flow = excluded.operating_cash_flow,
			as_of = CURRENT_TIMESTAMP`,
		raw.Ticker, raw.Sector,
		nullFloat(raw.TotalDebt), nullFloat(raw.TotalEquity),
		nullFloat(raw.CurrentAssets), nullFloat(raw.CurrentLiabilities),
		nullFloat(raw.RevenueNow), nullFloat(raw.RevenuePrev),
		nullFloat(raw.OperatingExpenseNow), nullFloat(raw.OperatingExpensePrev),
		nullFloat(raw.GrossProfit), nullFloat(raw.OperatingIncome),
		nullFloat(raw.InventoryNow), nullFloat(raw.InventoryPrev),
		nullFloat(raw.OperatingCashFlow),
	)
	return err
}

func GetFundamentals(ctx context.Context, db *sql.DB, ticker string) (RawFundamentals, error) {
	row := db.QueryRowContext(ctx,
		`SELECT ticker, sector, total_debt, total_equity, current_assets, current_liabilities,
			revenue_now, revenue_prev, operating_expense_now, operating_expense_prev,
			gross_profit, operating_income, inventory_now, inventory_prev, operating_cash_flow
		 FROM fundamentals WHERE ticker = ?`, ticker)

	var raw RawFundamentals
	var vals [13]sql.NullFloat64
	err := row.Scan(&raw.Ticker, &raw.Sector,
		&vals[0], &vals[1], &vals[2], &vals[3], &vals[4], &vals[5], &vals[6],
		&vals[7], &vals[8], &vals[9], &vals[10], &vals[11], &vals[12])
	if err == sql.ErrNoRows {
		return raw, fmt.Errorf("no fundamentals for ticker %s", ticker)
	}
	if err != nil {
		return raw, err
	}

	raw.TotalDebt = floatPtr(vals[0])
	raw.TotalEquity = floatPtr(vals[1])
	raw.CurrentAssets = floatPtr(vals[2])
	raw.CurrentLiabilities = floatPtr(vals[3])
	raw.RevenueNow = floatPtr(vals[4])
	raw.RevenuePrev = floatPtr(vals[5])
	raw.OperatingExpenseNow = floatPtr(vals[6])
	raw.OperatingExpensePrev = floatPtr(vals[7])
	raw.GrossProfit = floatPtr(vals[8])
	raw.OperatingIncome = floatPtr(vals[9])
	raw.InventoryNow = floatPtr(vals[10])
	raw.InventoryPrev = floatPtr(vals[11])
	raw.OperatingCashFlow = floatPtr(vals[12])
	return raw, nil
}

func ListSectorTickers(ctx context.Context, db *sql.DB, sector string) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT ticker FROM fundamentals WHERE sector = ? ORDER BY ticker`, sector)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStrings(rows)
}

func ListAllTickers(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT ticker FROM fundamentals ORDER BY ticker`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStrings(rows)
}

func ListPeerTickers(ctx context.Context, db *sql.DB, ticker string) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT peer_ticker FROM company_peers WHERE ticker = ? ORDER BY peer_ticker`, ticker)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStrings(rows)
}

func AddPeer(ctx context.Context, db *sql.DB, ticker, peer string) error {
	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO company_peers (ticker, peer_ticker) VALUES (?, ?)`, ticker, peer)
	return err
}

// --- classifier model artifacts ---

func SaveModel(ctx context.Context, db *sql.DB, m *ClassifierModel) error {
	weights, err := json.Marshal(m.Weights)
	if err != nil {
		return err
	}
	means, err := json.Marshal(m.Means)
	if err != nil {
		return err
	}
	stddevs, err := json.Marshal(m.Stddevs)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO model_artifacts (schema_version, corpus_id, bias, weights, means, stddevs, trained_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.SchemaVersion, m.CorpusID, m.Bias, string(weights), string(means), string(stddevs), m.TrainedAt)
	return err
}

// LoadLatestModel returns the most recently trained artifact, or nil
// when none has been persisted yet.
func LoadLatestModel(ctx context.Context, db *sql.DB) (*ClassifierModel, error) {
	row := db.QueryRowContext(ctx,
		`SELECT schema_version, corpus_id, bias, weights, means, stddevs, trained_at
		 FROM model_artifacts ORDER BY trained_at DESC, id DESC LIMIT 1`)

	var m ClassifierModel
	var weights, means, stddevs string
	err := row.Scan(&m.SchemaVersion, &m.CorpusID, &m.Bias, &weights, &means, &stddevs, &m.TrainedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(weights), &m.Weights); err != nil {
		return nil, fmt.Errorf("decoding model weights: %w", err)
	}
	if err := json.Unmarshal([]byte(means), &m.Means); err != nil {
		return nil, fmt.Errorf("decoding model means: %w", err)
	}
	if err := json.Unmarshal([]byte(stddevs), &m.Stddevs); err != nil {
		return nil, fmt.Errorf("decoding model stddevs: %w", err)
	}
	if err := validateModelArtifact(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// validateModelArtifact rejects stored artifacts that would standardize
// into NaN or Inf, e.g. after a hand edit of the sqlite row.
func validateModelArtifact(m *ClassifierModel) error {
	slots, err := SchemaSlots(m.SchemaVersion)
	if err != nil {
		return err
	}
	if m.Width() != len(slots) || len(m.Means) != m.Width() || len(m.Stddevs) != m.Width() {
		return &SchemaMismatchError{
			WantVersion: m.SchemaVersion,
			GotVersion:  m.SchemaVersion,
			WantWidth:   len(slots),
			GotWidth:    m.Width(),
			Detail: fmt.Sprintf("stored artifact has weights=%d means=%d stddevs=%d",
				m.Width(), len(m.Means), len(m.Stddevs)),
		}
	}
	for i, s := range m.Stddevs {
		if s == 0 {
			return &SchemaMismatchError{
				WantVersion: m.SchemaVersion,
				GotVersion:  m.SchemaVersion,
				WantWidth:   len(slots),
				GotWidth:    m.Width(),
				Detail:      fmt.Sprintf("stored artifact stddev is zero for slot %s", slots[i]),
			}
		}
	}
	return nil
}

// --- training scenarios ---

func InsertTrainingExamples(ctx context.Context, db *sql.DB, examples []TrainingExample) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO training_scenarios (scenario_id, schema_version, distressed, vector) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, ex := range examples {
		vector, err := json.Marshal(ex.Vector.Values)
		if err != nil {
			return inserted, err
		}
		label := 0
		if ex.Distressed {
			label = 1
		}
		if _, err := stmt.ExecContext(ctx, ex.ScenarioID, ex.Vector.SchemaVersion, label, string(vector)); err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, tx.Commit()
}

func LoadTrainingExamples(ctx context.Context, db *sql.DB, schemaVersion string) ([]TrainingExample, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT scenario_id, distressed, vector FROM training_scenarios WHERE schema_version = ? ORDER BY id`,
		schemaVersion)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TrainingExample
	for rows.Next() {
		var scenarioID, vector string
		var label int
		if err := rows.Scan(&scenarioID, &label, &vector); err != nil {
			return nil, err
		}
		var values []float64
		if err := json.Unmarshal([]byte(vector), &values); err != nil {
			return nil, fmt.Errorf("decoding training vector %s: %w", scenarioID, err)
		}
		out = append(out, TrainingExample{
			Vector: FeatureVector{
				SchemaVersion: schemaVersion,
				Values:        values,
				Estimated:     make([]bool, len(values)),
			},
			Distressed: label == 1,
			ScenarioID: scenarioID,
		})
	}
	return out, rows.Err()
}

// --- analyses and benchmark cache ---

func InsertAnalysis(ctx context.Context, db *sql.DB, rep *AnalysisReport, reportPath string) error {
	verified := 0
	if rep.Verification.Distressed {
		verified = 1
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO analyses (run_id, ticker, verified, verification_confidence, baseline_risk, counterfactual_risk, report_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rep.RunID, rep.Ticker, verified, rep.Verification.Confidence,
		rep.BaselineRisk, rep.PeerSimulation.CounterfactualRisk, reportPath)
	return err
}

func UpsertBenchmarkCache(ctx context.Context, db *sql.DB, bench PeerBenchmark) error {
	for slot, dist := range bench.Distributions {
		_, err := db.ExecContext(ctx,
			`INSERT INTO benchmark_cache (slot, basis, median, q1, q3, samples, refreshed_at)
			 VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
			 ON CONFLICT(slot) DO UPDATE SET
				basis = excluded.basis,
				median = excluded.median,
				q1 = excluded.q1,
				q3 = excluded.q3,
				samples = excluded.samples,
				refreshed_at = CURRENT_TIMESTAMP`,
			slot, bench.Basis, dist.Median, dist.Q1, dist.Q3, dist.Samples)
		if err != nil {
			return err
		}
	}
	return nil
}

// LoadBenchmarkCache reads the scheduler-refreshed per-slot
// distributions. An empty table returns an empty map, not an error.
func LoadBenchmarkCache(ctx context.Context, db *sql.DB) (map[string]PeerDistribution, error) {
	rows, err := db.QueryContext(ctx, `SELECT slot, median, q1, q3, samples FROM benchmark_cache`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]PeerDistribution)
	for rows.Next() {
		var d PeerDistribution
		if err := rows.Scan(&d.Slot, &d.Median, &d.Q1, &d.Q3, &d.Samples); err != nil {
			return nil, err
		}
		out[d.Slot] = d
	}
	return out, rows.Err()
}

// --- helpers ---

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

