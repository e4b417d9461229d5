package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg := LoadConfig()

	db, err := InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to init database: %v", err)
	}
	defer db.Close()

	lx, err := LoadLexicon(cfg.LexiconPath)
	if err != nil {
		log.Fatalf("Failed to load lexicon: %v", err)
	}

	switch os.Args[1] {
	case "train":
		runTrain(cfg, db, lx, os.Args[2:])
	case "analyze":
		runAnalyze(cfg, db, lx, os.Args[2:])
	case "serve":
		runServe(cfg, db)
	case "ingest":
		runIngest(db, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: distresslab <train|analyze|serve|ingest> [flags]")
	fmt.Fprintln(os.Stderr, "  train    train a classifier on the synthetic scenario corpus")
	fmt.Fprintln(os.Stderr, "  analyze  run a full assessment for one or more tickers")
	fmt.Fprintln(os.Stderr, "  serve    run the benchmark refresh scheduler")
	fmt.Fprintln(os.Stderr, "  ingest   load company fundamentals and peer sets from a yaml file")
}

func runIngest(db *sql.DB, args []string) {
	if len(args) != 1 {
		log.Fatalf("usage: distresslab ingest <fundamentals.yaml>")
	}
	loaded, err := IngestFundamentalsFile(context.Background(), db, args[0])
	if err != nil {
		log.Fatalf("ingest failed: %v", err)
	}
	fmt.Printf("loaded %d companies\n", loaded)
}

func runTrain(cfg Config, db *sql.DB, lx *Lexicon, args []string) {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	samples := fs.Int("samples", cfg.TrainSamples, "synthetic corpus size")
	seed := fs.Int64("seed", cfg.TrainSeed, "corpus generation seed")
	persist := fs.Bool("persist-corpus", false, "store the generated corpus alongside the model")
	fromStore := fs.Bool("from-store", false, "train on the persisted corpus instead of generating one")
	fs.Parse(args)

	ctx := context.Background()
	corpusID := uuid.NewString()

	var examples []TrainingExample
	if *fromStore {
		stored, err := LoadTrainingExamples(ctx, db, cfg.SchemaVersion)
		if err != nil {
			log.Fatalf("loading stored corpus: %v", err)
		}
		log.Printf("train start stored=%d corpus=%s", len(stored), corpusID)
		examples = stored
	} else {
		log.Printf("train start samples=%d seed=%d corpus=%s", *samples, *seed, corpusID)
		examples = SyntheticScenarioCorpus(lx, *samples, *seed)
	}

	model, err := TrainClassifier(examples, cfg.SchemaVersion, corpusID, TrainOptions{})
	if err != nil {
		log.Fatalf("training failed: %v", err)
	}
	if err := SaveModel(ctx, db, model); err != nil {
		log.Fatalf("saving model: %v", err)
	}
	if *persist && !*fromStore {
		inserted, err := InsertTrainingExamples(ctx, db, examples)
		if err != nil {
			log.Fatalf("persisting corpus: %v", err)
		}
		log.Printf("train corpus persisted examples=%d", inserted)
	}
	log.Printf("train done corpus=%s bias=%.4f width=%d", corpusID, model.Bias, model.Width())
}

func runAnalyze(cfg Config, db *sql.DB, lx *Lexicon, args []string) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	timeout := fs.Duration("timeout", 2*time.Minute, "per-ticker analysis timeout")
	fs.Parse(args)

	tickers := fs.Args()
	if len(tickers) == 0 {
		log.Fatalf("analyze requires at least one ticker")
	}

	model := mustLoadModel(db)
	analyzer := NewAnalyzer(cfg, db, lx, model)
	notifier := NewSlackNotifier(cfg)

	for _, ticker := range tickers {
		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		report, err := analyzer.Analyze(ctx, ticker)
		cancel()
		if err != nil {
			log.Fatalf("analysis failed ticker=%s: %v", ticker, err)
		}

		content := BuildReportMarkdown(report)
		path, err := WriteReportFile(content, cfg.ReportOutputDir, ticker, report)
		if err != nil {
			log.Fatalf("writing report: %v", err)
		}
		if _, err := WriteReportJSON(report, cfg.ReportOutputDir); err != nil {
			log.Fatalf("writing report json: %v", err)
		}
		if err := InsertAnalysis(context.Background(), db, report, path); err != nil {
			log.Printf("recording analysis ticker=%s err=%v", ticker, err)
		}
		notifier.NotifyReport(report, path)
		fmt.Println(path)
	}
}

func runServe(cfg Config, db *sql.DB) {
	StartBenchmarkScheduler(cfg, db)
	log.Println("Starting distresslab scheduler...")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("Shutting down")
}

func mustLoadModel(db *sql.DB) *ClassifierModel {
	model, err := LoadLatestModel(context.Background(), db)
	if err != nil {
		log.Fatalf("loading model: %v", err)
	}
	if model == nil {
		log.Fatalf("no trained model found; run 'distresslab train' first")
	}
	return model
}
