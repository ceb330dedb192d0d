package marketdata

import (
	"context"
	"fmt"
	"time"
)

// Provider fetches raw market data from the upstream feed.
// Implementations own all retry/backoff logic; callers see either usable
// raw data or a *DataUnavailable error.
type Provider interface {
	// FetchPriceBars retrieves daily bars for [start, end].
	FetchPriceBars(ctx context.Context, ticker string, start, end time.Time) (*RawBars, error)

	// FetchOptionChain retrieves the option chain for one expiration.
	FetchOptionChain(ctx context.Context, ticker string, expiration time.Time) (*RawChain, error)

	// FetchQuote retrieves the latest traded price for a ticker.
	FetchQuote(ctx context.Context, ticker string) (float64, error)
}

// RawBars is the provider's daily bar payload after column flattening.
// Field pointers are nil where the provider reported no value for that
// trading day; the normalizer decides how to treat the gaps.
type RawBars struct {
	Ticker string
	Bars   []RawBar
}

// RawBar is a single raw daily bar row.
type RawBar struct {
	Date   string // YYYY-MM-DD as reported by the provider
	Open   *float64
	High   *float64
	Low    *float64
	Close  *float64
	Volume *int64
}

// RawChain is the provider's option chain payload for one expiration.
// Calls and puts arrive as separate partitions; the normalizer merges them
// into a single discriminated table.
type RawChain struct {
	Ticker     string   `json:"ticker"`
	Expiration string   `json:"expiration"`
	Calls      []RawLeg `json:"calls"`
	Puts       []RawLeg `json:"puts"`
}

// Empty reports whether both partitions carry no rows.
func (c *RawChain) Empty() bool {
	return c == nil || (len(c.Calls) == 0 && len(c.Puts) == 0)
}

// RawLeg is a single raw option quote row.
type RawLeg struct {
	Strike     float64 `json:"strike"`
	LastPrice  float64 `json:"lastPrice"`
	Bid        float64 `json:"bid"`
	Ask        float64 `json:"ask"`
	Volume     int64   `json:"volume"`
	InTheMoney bool    `json:"inTheMoney"`
}

// DataUnavailable is returned once the retry budget is exhausted.
// Cause is nil when every attempt returned an empty payload, and holds the
// last observed upstream error otherwise, so callers can tell "empty every
// time" from "threw every time".
type DataUnavailable struct {
	Ticker   string
	Attempts int
	Cause    error
}

func (e *DataUnavailable) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("market data unavailable for %s: empty response on all %d attempts", e.Ticker, e.Attempts)
	}
	return fmt.Sprintf("market data unavailable for %s after %d attempts: %v", e.Ticker, e.Attempts, e.Cause)
}

func (e *DataUnavailable) Unwrap() error {
	return e.Cause
}
