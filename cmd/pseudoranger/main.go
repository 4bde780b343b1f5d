// Command pseudoranger runs the multilateration service: it loads the
// station registry, processes an observation stream into position
// estimates, persists them, and serves the estimate API until stopped.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/qrqiuren/lonepseudoranger/internal/api"
	"github.com/qrqiuren/lonepseudoranger/internal/config"
	"github.com/qrqiuren/lonepseudoranger/internal/ingest"
	"github.com/qrqiuren/lonepseudoranger/internal/multilat"
	"github.com/qrqiuren/lonepseudoranger/internal/report"
	"github.com/qrqiuren/lonepseudoranger/internal/storage/sqlite"
	"github.com/qrqiuren/lonepseudoranger/internal/version"
)

var (
	listen          = flag.String("listen", ":8080", "Listen address for the estimate API")
	dbPath          = flag.String("db", "estimates.db", "Path to the estimates database")
	migrationsDir   = flag.String("migrations", "internal/storage/sqlite/migrations", "Path to the schema migrations directory")
	stationsPath    = flag.String("stations", "", "Path to the station registry JSON (required)")
	obsPath         = flag.String("observations", "", "Path to the observation stream, '-' for stdin (required)")
	configPath      = flag.String("config", "", "Optional tuning config JSON")
	plotDir         = flag.String("plot-dir", "", "Optional directory for per-epoch candidate scatter PNGs")
	storeCandidates = flag.Bool("store-candidates", false, "Persist the raw candidate set with each estimate")
	showVersion     = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}
	if *stationsPath == "" {
		log.Fatal("-stations is required")
	}
	if *obsPath == "" {
		log.Fatal("-observations is required")
	}

	tuning := config.EmptyTuningConfig()
	if *configPath != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
	}

	registry, err := ingest.LoadRegistry(*stationsPath)
	if err != nil {
		log.Fatalf("failed to load station registry: %v", err)
	}
	log.Printf("loaded %d stations from %s", registry.Len(), *stationsPath)

	db, err := sqlite.Open(*dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()
	if err := db.MigrateUp(*migrationsDir); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}
	store := sqlite.NewEstimateStore(db)

	pipeline := multilat.NewPipeline(multilat.ConfigFromTuning(tuning))

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Estimate API goroutine.
	wg.Add(1)
	go func() {
		defer wg.Done()
		server := api.NewServer(api.ServerConfig{
			Address: *listen,
			Store:   store,
			Tuning:  tuning,
		})
		if err := server.Start(ctx); err != nil {
			log.Printf("api server: %v", err)
			stop()
		}
	}()

	// Observation processing goroutine.
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := processObservations(ctx, registry, pipeline, store); err != nil {
			log.Printf("observation processing failed: %v", err)
			stop()
			return
		}
		log.Print("observation stream drained; API still serving, Ctrl-C to exit")
	}()

	wg.Wait()
	log.Printf("graceful shutdown complete")
}

func processObservations(ctx context.Context, registry *ingest.Registry, pipeline *multilat.Pipeline, store *sqlite.EstimateStore) error {
	var in io.Reader
	if *obsPath == "-" {
		in = os.Stdin
	} else {
		f, err := os.Open(*obsPath)
		if err != nil {
			return fmt.Errorf("open observation stream: %w", err)
		}
		defer f.Close()
		in = f
	}

	epochs, stats, err := ingest.ReadEpochs(in, registry)
	if err != nil {
		return err
	}
	log.Printf("ingested %d epochs (%d lines, %d parsed, %d parse errors, %d unknown stations)",
		len(epochs), stats.Lines, stats.Parsed, stats.ParseErrors, stats.UnknownStations)

	for _, epoch := range epochs {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		result, err := pipeline.Process(ctx, epoch)
		if err != nil {
			log.Printf("epoch %s/%s skipped: %v", epoch.EmitterID, epoch.TransmitTime, err)
			continue
		}
		log.Print(report.Summary(result))

		var candidates []multilat.PositionCandidate
		if *storeCandidates {
			candidates = result.Candidates.All()
		}
		id, err := store.Insert(result.Estimate, candidates)
		if err != nil {
			log.Printf("epoch %s/%s: persist failed: %v", epoch.EmitterID, epoch.TransmitTime, err)
			continue
		}
		log.Printf("stored estimate %s", id)

		if *plotDir != "" {
			path := fmt.Sprintf("%s/candidates-%s.png", *plotDir, id)
			if err := report.ScatterPlot(result, path); err != nil {
				log.Printf("epoch %s/%s: plot failed: %v", epoch.EmitterID, epoch.TransmitTime, err)
			}
		}
	}
	return nil
}
