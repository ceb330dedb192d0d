package postgres

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"

	"options-spread-lab/internal/domain"
	"options-spread-lab/internal/observability"
	"options-spread-lab/internal/storage"
)

// PriceBarStore implements storage.PriceBarStore using PostgreSQL.
type PriceBarStore struct {
	pool *Pool
}

// NewPriceBarStore creates a new PriceBarStore.
func NewPriceBarStore(pool *Pool) *PriceBarStore {
	return &PriceBarStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PriceBarStore = (*PriceBarStore)(nil)

// UpsertBars replaces or inserts the batch in one transaction.
// Rows sharing (ticker, date) are overwritten. An empty batch is a no-op.
func (s *PriceBarStore) UpsertBars(ctx context.Context, ticker string, bars []*domain.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}
	if ticker == "" {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) {
		observability.RecordDBQuery("postgres", "upsert_bars", time.Since(start).Seconds())
	}(time.Now())

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return &storage.WriteError{Table: "price_bars", Err: fmt.Errorf("begin tx: %w", err)}
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO price_bars (
			ticker, date, open, high, low, close, volume
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (ticker, date) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume
	`

	for _, b := range bars {
		if b == nil {
			return &storage.WriteError{Table: "price_bars", Err: storage.ErrInvalidInput}
		}
		_, err := tx.Exec(ctx, query,
			ticker,
			domain.Day(b.Date),
			b.Open,
			b.High,
			b.Low,
			b.Close,
			b.Volume,
		)
		if err != nil {
			if isConstraintError(err) {
				err = fmt.Errorf("constraint violation: %w", err)
			}
			return &storage.WriteError{Table: "price_bars", Err: fmt.Errorf("upsert bar %s: %w", b.Date.Format(time.DateOnly), err)}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return &storage.WriteError{Table: "price_bars", Err: fmt.Errorf("commit tx: %w", err)}
	}

	return nil
}

// GetByDateRange retrieves bars for a ticker within [start, end] (inclusive),
// ordered by date ASC. Query failures are logged and yield an empty result
// so that read-side consumers see a missing day, not a dead feature.
func (s *PriceBarStore) GetByDateRange(ctx context.Context, ticker string, start, end time.Time) ([]*domain.PriceBar, error) {
	defer func(started time.Time) {
		observability.RecordDBQuery("postgres", "get_bars", time.Since(started).Seconds())
	}(time.Now())

	query := `
		SELECT ticker, date, open, high, low, close, volume
		FROM price_bars
		WHERE ticker = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC
	`

	rows, err := s.pool.Query(ctx, query, ticker, domain.Day(start), domain.Day(end))
	if err != nil {
		log.Printf("[storage] get price bars for %s: %v", ticker, err)
		return nil, nil
	}
	defer rows.Close()

	bars, err := scanPriceBars(rows)
	if err != nil {
		log.Printf("[storage] get price bars for %s: %v", ticker, err)
		return nil, nil
	}
	return bars, nil
}

// scanPriceBars scans multiple rows into a slice of PriceBar.
func scanPriceBars(rows pgx.Rows) ([]*domain.PriceBar, error) {
	var bars []*domain.PriceBar

	for rows.Next() {
		var b domain.PriceBar

		err := rows.Scan(
			&b.Ticker,
			&b.Date,
			&b.Open,
			&b.High,
			&b.Low,
			&b.Close,
			&b.Volume,
		)
		if err != nil {
			return nil, fmt.Errorf("scan price bar row: %w", err)
		}

		b.Date = domain.Day(b.Date)
		bars = append(bars, &b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price bar rows: %w", err)
	}

	return bars, nil
}
