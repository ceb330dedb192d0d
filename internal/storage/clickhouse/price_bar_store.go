package clickhouse

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"options-spread-lab/internal/domain"
	"options-spread-lab/internal/observability"
	"options-spread-lab/internal/storage"
)

// PriceBarStore mirrors price bars into ClickHouse for backtesting
// collaborators. The table is a ReplacingMergeTree keyed on (ticker, date),
// so re-ingesting a bar supersedes the previous version at merge time:
// last-writer-wins, matching the upsert semantics of the system of record.
type PriceBarStore struct {
	conn *Conn
}

// NewPriceBarStore creates a new analytical price bar store.
func NewPriceBarStore(conn *Conn) *PriceBarStore {
	return &PriceBarStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PriceBarAnalytics = (*PriceBarStore)(nil)

// InsertBars appends the batch. Duplicate keys are collapsed by the
// ReplacingMergeTree engine rather than rejected.
func (s *PriceBarStore) InsertBars(ctx context.Context, bars []*domain.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}
	defer func(start time.Time) {
		observability.RecordDBQuery("clickhouse", "insert_bars", time.Since(start).Seconds())
	}(time.Now())

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_bars (
			ticker, date, open, high, low, close, volume
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, b := range bars {
		err = batch.Append(
			b.Ticker, domain.Day(b.Date),
			b.Open, b.High, b.Low, b.Close, b.Volume,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByDateRange retrieves bars for a ticker within [start, end] (inclusive),
// ordered by date ASC. FINAL forces collapse of superseded versions.
// Query failures are logged and yield an empty result, matching the
// relational store's read contract.
func (s *PriceBarStore) GetByDateRange(ctx context.Context, ticker string, start, end time.Time) ([]*domain.PriceBar, error) {
	defer func(started time.Time) {
		observability.RecordDBQuery("clickhouse", "get_bars", time.Since(started).Seconds())
	}(time.Now())

	query := `
		SELECT ticker, date, open, high, low, close, volume
		FROM price_bars FINAL
		WHERE ticker = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`

	rows, err := s.conn.Query(ctx, query, ticker, domain.Day(start), domain.Day(end))
	if err != nil {
		log.Printf("[storage] query price bars for %s: %v", ticker, err)
		return nil, nil
	}
	defer rows.Close()

	bars, err := scanPriceBars(rows)
	if err != nil {
		log.Printf("[storage] query price bars for %s: %v", ticker, err)
		return nil, nil
	}
	return bars, nil
}

// scanPriceBars scans multiple rows.
func scanPriceBars(rows driver.Rows) ([]*domain.PriceBar, error) {
	var bars []*domain.PriceBar

	for rows.Next() {
		var b domain.PriceBar

		err := rows.Scan(
			&b.Ticker, &b.Date,
			&b.Open, &b.High, &b.Low, &b.Close, &b.Volume,
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
