package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"options-spread-lab/internal/marketdata"
	"options-spread-lab/internal/observability"
	"options-spread-lab/internal/orchestrator"
	"options-spread-lab/internal/storage"
	chstore "options-spread-lab/internal/storage/clickhouse"
	"options-spread-lab/internal/storage/memory"
	"options-spread-lab/internal/storage/migrations"
	pgstore "options-spread-lab/internal/storage/postgres"
)

func main() {
	// Parse flags
	tickers := flag.String("tickers", "", "Comma-separated tickers to ingest (required)")
	fromDate := flag.String("from", "", "Start date for price bars (YYYY-MM-DD, required)")
	toDate := flag.String("to", "", "End date for price bars (YYYY-MM-DD, default today)")
	expiration := flag.String("expiration", "", "Option expiration to ingest (YYYY-MM-DD, skip chain if empty)")
	apiBase := flag.String("api-base", "", "Market data provider base URL (required)")
	forwardFill := flag.Bool("forward-fill", false, "Forward-fill missing trading-day values")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (empty to disable mirror)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")
	verbose := flag.Bool("verbose", false, "Verbose output")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[ingest] ", log.LstdFlags|log.Lshortfile)

	if *tickers == "" {
		logger.Fatal("--tickers is required")
	}
	if *apiBase == "" {
		logger.Fatal("--api-base is required")
	}
	if *fromDate == "" {
		logger.Fatal("--from is required")
	}
	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	start, err := time.Parse("2006-01-02", *fromDate)
	if err != nil {
		logger.Fatalf("Invalid --from date: %v", err)
	}
	end := time.Now().UTC()
	if *toDate != "" {
		end, err = time.Parse("2006-01-02", *toDate)
		if err != nil {
			logger.Fatalf("Invalid --to date: %v", err)
		}
	}
	var expirationDate time.Time
	if *expiration != "" {
		expirationDate, err = time.Parse("2006-01-02", *expiration)
		if err != nil {
			logger.Fatalf("Invalid --expiration date: %v", err)
		}
	}

	// Start metrics server if enabled
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, aborting...", sig)
		cancel()
	}()

	if err := run(ctx, logger, runConfig{
		tickers:       splitTickers(*tickers),
		start:         start,
		end:           end,
		expiration:    expirationDate,
		apiBase:       *apiBase,
		forwardFill:   *forwardFill,
		postgresDSN:   *postgresDSN,
		clickhouseDSN: *clickhouseDSN,
		useMemory:     *useMemory,
		verbose:       *verbose,
	}); err != nil && err != context.Canceled {
		logger.Fatalf("Error: %v", err)
	}

	logger.Println("Ingestion complete")
}

type runConfig struct {
	tickers       []string
	start, end    time.Time
	expiration    time.Time
	apiBase       string
	forwardFill   bool
	postgresDSN   string
	clickhouseDSN string
	useMemory     bool
	verbose       bool
}

func run(ctx context.Context, logger *log.Logger, cfg runConfig) error {
	if len(cfg.tickers) == 0 {
		return fmt.Errorf("no tickers specified")
	}

	// Create stores (use interfaces)
	var barStore storage.PriceBarStore = memory.NewPriceBarStore()
	var legStore storage.OptionLegStore = memory.NewOptionLegStore()

	if !cfg.useMemory {
		pool, err := pgstore.NewPool(ctx, cfg.postgresDSN)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return fmt.Errorf("apply postgres migrations: %w", err)
		}

		barStore = pgstore.NewPriceBarStore(pool)
		legStore = pgstore.NewOptionLegStore(pool)
	}

	// Optional analytics mirror
	var analytics storage.PriceBarAnalytics
	if cfg.clickhouseDSN != "" {
		conn, err := chstore.NewConn(ctx, cfg.clickhouseDSN)
		if err != nil {
			return fmt.Errorf("connect to clickhouse: %w", err)
		}
		defer conn.Close()

		if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
			return fmt.Errorf("apply clickhouse migrations: %w", err)
		}
		analytics = chstore.NewPriceBarStore(conn)
	}

	provider := marketdata.NewHTTPClient(cfg.apiBase)
	orch := orchestrator.New(orchestrator.Options{
		Provider:    provider,
		BarStore:    barStore,
		LegStore:    legStore,
		Analytics:   analytics,
		ForwardFill: cfg.forwardFill,
		Verbose:     cfg.verbose,
	})

	// Runs for different tickers are independent; a failed ticker aborts
	// only its own run.
	var failed int
	for _, ticker := range cfg.tickers {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := orch.RunIngestion(ctx, ticker, cfg.start, cfg.end); err != nil {
			logger.Printf("Ingestion failed for %s: %v", ticker, err)
			failed++
			continue
		}
		if !cfg.expiration.IsZero() {
			if err := orch.IngestChain(ctx, ticker, cfg.expiration); err != nil {
				logger.Printf("Chain ingestion failed for %s: %v", ticker, err)
				failed++
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d tickers failed", failed, len(cfg.tickers))
	}
	return nil
}

func splitTickers(s string) []string {
	var result []string
	for _, t := range strings.Split(s, ",") {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t != "" {
			result = append(result, t)
		}
	}
	return result
}
