package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"options-spread-lab/internal/marketdata"
	"options-spread-lab/internal/orchestrator"
	"options-spread-lab/internal/reporting"
	"options-spread-lab/internal/spread"
)

func main() {
	// Parse flags
	ticker := flag.String("ticker", "", "Underlying ticker (required)")
	expiration := flag.String("expiration", "", "Option expiration (YYYY-MM-DD, required)")
	height := flag.Float64("height", spread.DefaultHeight, "Strike window height below current price")
	apiBase := flag.String("api-base", "", "Market data provider base URL (required)")
	wsEndpoint := flag.String("ws-endpoint", "", "Quote stream WebSocket endpoint (falls back to REST quote)")
	outputDir := flag.String("output-dir", "reports", "Output directory for generated files")
	verbose := flag.Bool("verbose", false, "Verbose output")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[analyze] ", log.LstdFlags)

	if *ticker == "" {
		logger.Fatal("--ticker is required")
	}
	if *expiration == "" {
		logger.Fatal("--expiration is required")
	}
	if *apiBase == "" {
		logger.Fatal("--api-base is required")
	}

	expirationDate, err := time.Parse("2006-01-02", *expiration)
	if err != nil {
		logger.Fatalf("Invalid --expiration date: %v", err)
	}
	tick := strings.ToUpper(strings.TrimSpace(*ticker))

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, aborting...", sig)
		cancel()
	}()

	provider := marketdata.NewHTTPClient(*apiBase)

	// Optional live quote stream; wait briefly for a first quote so the
	// analysis uses a live price when the stream is healthy.
	var prices orchestrator.PriceSource
	if *wsEndpoint != "" {
		streamer, err := marketdata.NewQuoteStreamer(ctx, *wsEndpoint, []string{tick}, nil)
		if err != nil {
			logger.Printf("Quote stream unavailable, falling back to REST quote: %v", err)
		} else {
			defer streamer.Close()
			waitCtx, waitCancel := context.WithTimeout(ctx, 5*time.Second)
			if _, err := streamer.WaitForQuote(waitCtx, tick); err != nil {
				logger.Printf("No streamed quote within 5s, falling back to REST quote")
			}
			waitCancel()
			prices = streamer
		}
	}

	// Analysis never touches the stores; the selector always operates on
	// a freshly normalized live chain.
	orch := orchestrator.New(orchestrator.Options{
		Provider: provider,
		Prices:   prices,
		Verbose:  *verbose,
	})

	result, err := orch.RunAnalysis(ctx, tick, expirationDate, *height)
	if err != nil {
		logger.Fatalf("Analysis failed: %v", err)
	}

	report := reporting.NewReport(tick, expirationDate, result.CurrentPrice, *height, result.Selection)
	report.Trend = result.Trend

	if err := writeReports(*outputDir, report); err != nil {
		logger.Fatalf("Writing reports: %v", err)
	}

	fmt.Print(reporting.RenderMarkdown(report))
}

// writeReports writes the markdown and CSV renderings to outputDir.
func writeReports(dir string, report *reporting.Report) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	base := fmt.Sprintf("%s_%s_spread", report.Ticker, report.Expiration.Format("2006-01-02"))

	mdPath := filepath.Join(dir, base+".md")
	if err := os.WriteFile(mdPath, []byte(reporting.RenderMarkdown(report)), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", mdPath, err)
	}

	csvPath := filepath.Join(dir, base+".csv")
	if err := os.WriteFile(csvPath, []byte(reporting.RenderCSV(report)), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", csvPath, err)
	}

	return nil
}
