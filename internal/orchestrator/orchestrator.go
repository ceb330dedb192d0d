// Package orchestrator sequences the pipeline stages.
// It coordinates: market data fetch → normalization → storage (ingestion)
// and market data fetch → normalization → spread selection (analysis).
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"time"

	"options-spread-lab/internal/domain"
	"options-spread-lab/internal/lookup"
	"options-spread-lab/internal/marketdata"
	"options-spread-lab/internal/normalization"
	"options-spread-lab/internal/observability"
	"options-spread-lab/internal/spread"
	"options-spread-lab/internal/storage"
)

// PriceSource supplies the current underlying price for analysis. The
// websocket quote streamer satisfies this; when it has no quote yet the
// orchestrator falls back to the provider's quote endpoint.
type PriceSource interface {
	LastPrice(ticker string) (float64, bool)
}

// Orchestrator coordinates ingestion and analysis runs. It is the only
// component with side effects beyond storage. Safe for concurrent runs
// across different tickers; concurrent runs for the same ticker and
// expiration race on upsert with last-writer-wins.
type Orchestrator struct {
	provider  marketdata.Provider
	barStore  storage.PriceBarStore
	legStore  storage.OptionLegStore
	analytics storage.PriceBarAnalytics // optional mirror, may be nil
	prices    PriceSource               // optional, may be nil

	forwardFill bool
	verbose     bool
}

// Options for creating Orchestrator.
type Options struct {
	// Required
	Provider marketdata.Provider
	BarStore storage.PriceBarStore
	LegStore storage.OptionLegStore

	// Optional analytics mirror; ingested bars are also written here.
	Analytics storage.PriceBarAnalytics

	// Optional live price source consulted before the provider quote.
	Prices PriceSource

	// ForwardFill fills missing bar fields from the previous trading day
	// instead of dropping incomplete rows.
	ForwardFill bool
	Verbose     bool
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	return &Orchestrator{
		provider:    opts.Provider,
		barStore:    opts.BarStore,
		legStore:    opts.LegStore,
		analytics:   opts.Analytics,
		prices:      opts.Prices,
		forwardFill: opts.ForwardFill,
		verbose:     opts.Verbose,
	}
}

// RunIngestion fetches daily bars for [start, end], normalizes them and
// upserts the batch. An empty normalized batch is a logged skip, not an
// error. Fetch and storage failures abort the run for this ticker; the
// upsert is transactional, so an aborted run leaves no partial state.
func (o *Orchestrator) RunIngestion(ctx context.Context, ticker string, start, end time.Time) (err error) {
	defer func() { observability.RecordIngestionRun(err) }()

	raw, err := o.provider.FetchPriceBars(ctx, ticker, start, end)
	if err != nil {
		return fmt.Errorf("fetch price bars for %s: %w", ticker, err)
	}

	var opts []normalization.BarOption
	if o.forwardFill {
		opts = append(opts, normalization.WithForwardFill())
	}
	bars := normalization.NormalizePriceBars(raw, opts...)
	if len(bars) == 0 {
		o.log("skipping upsert for %s: no usable bars in range %s..%s",
			ticker, start.Format("2006-01-02"), end.Format("2006-01-02"))
		observability.RecordEmptyBatchSkip("price_bars")
		return nil
	}

	if err = o.barStore.UpsertBars(ctx, ticker, bars); err != nil {
		observability.RecordUpsert("price_bars", len(bars), err)
		return fmt.Errorf("upsert price bars for %s: %w", ticker, err)
	}
	observability.RecordUpsert("price_bars", len(bars), nil)
	o.log("upserted %d bars for %s", len(bars), ticker)

	if o.analytics != nil {
		if mirrorErr := o.analytics.InsertBars(ctx, bars); mirrorErr != nil {
			// The relational store is the source of truth; a mirror
			// failure must not fail the run.
			o.log("analytics mirror insert failed for %s: %v", ticker, mirrorErr)
		}
	}
	return nil
}

// IngestChain fetches the option chain for one expiration, normalizes it
// and upserts the legs. A chain with empty call and put partitions is a
// logged no-op.
func (o *Orchestrator) IngestChain(ctx context.Context, ticker string, expiration time.Time) (err error) {
	defer func() { observability.RecordIngestionRun(err) }()

	raw, err := o.provider.FetchOptionChain(ctx, ticker, expiration)
	if err != nil {
		return fmt.Errorf("fetch option chain for %s %s: %w", ticker, expiration.Format("2006-01-02"), err)
	}
	if raw.Empty() {
		o.log("skipping upsert for %s %s: empty call and put partitions",
			ticker, expiration.Format("2006-01-02"))
		observability.RecordEmptyBatchSkip("option_legs")
		return nil
	}

	snapshot := normalization.NormalizeChain(raw, expiration)
	if err = o.legStore.UpsertLegs(ctx, ticker, snapshot.Expiration, snapshot.Legs); err != nil {
		observability.RecordUpsert("option_legs", len(snapshot.Legs), err)
		return fmt.Errorf("upsert option legs for %s %s: %w", ticker, expiration.Format("2006-01-02"), err)
	}
	observability.RecordUpsert("option_legs", len(snapshot.Legs), nil)
	o.log("upserted %d legs for %s %s", len(snapshot.Legs), ticker, expiration.Format("2006-01-02"))
	return nil
}

// AnalysisResult is the outcome of one analysis run.
type AnalysisResult struct {
	Snapshot     *domain.ChainSnapshot
	CurrentPrice float64
	Selection    *spread.Result
	Trend        *lookup.TrendContext // nil when bar history is unavailable
}

// trendHistoryDays is the calendar span fetched for trend context. It
// covers the long SMA window of trading days with weekend slack.
const trendHistoryDays = 365

// RunAnalysis fetches a fresh chain, normalizes it and selects a put
// credit spread against the current underlying price. Selection errors
// are input-shape errors and are surfaced without retry. Trend context
// is best effort: a failed bar fetch is logged, not fatal.
func (o *Orchestrator) RunAnalysis(ctx context.Context, ticker string, expiration time.Time, height float64) (res *AnalysisResult, err error) {
	defer func() { observability.RecordAnalysisRun(err) }()

	raw, err := o.provider.FetchOptionChain(ctx, ticker, expiration)
	if err != nil {
		return nil, fmt.Errorf("fetch option chain for %s %s: %w", ticker, expiration.Format("2006-01-02"), err)
	}
	snapshot := normalization.NormalizeChain(raw, expiration)

	price, err := o.currentPrice(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("current price for %s: %w", ticker, err)
	}

	selection, err := spread.SelectPutCreditSpread(snapshot, price, height)
	if err != nil {
		return nil, err
	}
	observability.RecordSpreadEvaluated(len(selection.Candidates))
	o.log("selected short strike %.2f (ask %.2f) for %s from %d candidates",
		selection.ShortStrike, selection.ShortAsk, ticker, len(selection.Candidates))

	trend, trendErr := o.trendContext(ctx, ticker)
	if trendErr != nil {
		o.log("trend context unavailable for %s: %v", ticker, trendErr)
	}

	return &AnalysisResult{
		Snapshot:     snapshot,
		CurrentPrice: price,
		Selection:    selection,
		Trend:        trend,
	}, nil
}

// trendContext fetches recent bar history and derives moving averages
// for the report.
func (o *Orchestrator) trendContext(ctx context.Context, ticker string) (*lookup.TrendContext, error) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -trendHistoryDays)

	raw, err := o.provider.FetchPriceBars(ctx, ticker, start, end)
	if err != nil {
		return nil, err
	}
	bars := normalization.NormalizePriceBars(raw)
	return lookup.TrendFor(end, bars), nil
}

func (o *Orchestrator) currentPrice(ctx context.Context, ticker string) (float64, error) {
	if o.prices != nil {
		if price, ok := o.prices.LastPrice(ticker); ok {
			return price, nil
		}
	}
	return o.provider.FetchQuote(ctx, ticker)
}

func (o *Orchestrator) log(format string, args ...interface{}) {
	if o.verbose {
		log.Printf("[orchestrator] "+format, args...)
	}
}
