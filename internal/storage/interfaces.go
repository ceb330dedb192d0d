package storage

import (
	"context"
	"time"

	"options-spread-lab/internal/domain"
)

// PriceBarStore provides access to price_bars storage.
//
// Upserts are keyed by (ticker, date): rows sharing a key are replaced,
// new rows inserted, atomically for the whole batch. Reads return an empty
// slice, never an error: no-match means empty, and backend query failures
// are logged by the implementation and downgraded to empty as well. Only
// writes surface storage errors.
type PriceBarStore interface {
	// UpsertBars replaces or inserts the batch in one transaction.
	// An empty batch is a no-op. Returns a *WriteError after rollback on failure.
	UpsertBars(ctx context.Context, ticker string, bars []*domain.PriceBar) error

	// GetByDateRange retrieves bars for a ticker within [start, end]
	// (inclusive), ordered by date ASC. Never fails: query errors are
	// logged and converted to an empty result.
	GetByDateRange(ctx context.Context, ticker string, start, end time.Time) ([]*domain.PriceBar, error)
}

// OptionLegStore provides access to option_legs storage.
//
// Upserts are keyed by (ticker, expiration, strike, option_type). Options
// reprice continuously, so repeated ingestion for the same expiration
// overwrites stale quotes rather than appending.
type OptionLegStore interface {
	// UpsertLegs replaces or inserts the batch in one transaction.
	// An empty batch is a no-op. Returns a *WriteError after rollback on failure.
	UpsertLegs(ctx context.Context, ticker string, expiration time.Time, legs []*domain.OptionLeg) error

	// GetByExpiration retrieves all legs for a ticker/expiration,
	// ordered by option_type, strike ASC. Never fails: query errors are
	// logged and converted to an empty result.
	GetByExpiration(ctx context.Context, ticker string, expiration time.Time) ([]*domain.OptionLeg, error)
}

// PriceBarAnalytics mirrors price bars into an analytical store for
// backtesting collaborators. Last-writer-wins; not the system of record.
type PriceBarAnalytics interface {
	InsertBars(ctx context.Context, bars []*domain.PriceBar) error
	GetByDateRange(ctx context.Context, ticker string, start, end time.Time) ([]*domain.PriceBar, error)
}
