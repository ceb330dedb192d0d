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

// OptionLegStore implements storage.OptionLegStore using PostgreSQL.
type OptionLegStore struct {
	pool *Pool
}

// NewOptionLegStore creates a new OptionLegStore.
func NewOptionLegStore(pool *Pool) *OptionLegStore {
	return &OptionLegStore{pool: pool}
}

// Compile-time interface check.
var _ storage.OptionLegStore = (*OptionLegStore)(nil)

// UpsertLegs replaces or inserts the batch in one transaction.
// Rows sharing (ticker, expiration, strike, option_type) are overwritten
// so that repeated ingestion refreshes stale quotes. An empty batch is a no-op.
func (s *OptionLegStore) UpsertLegs(ctx context.Context, ticker string, expiration time.Time, legs []*domain.OptionLeg) error {
	if len(legs) == 0 {
		return nil
	}
	if ticker == "" {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) {
		observability.RecordDBQuery("postgres", "upsert_legs", time.Since(start).Seconds())
	}(time.Now())

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return &storage.WriteError{Table: "option_legs", Err: fmt.Errorf("begin tx: %w", err)}
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO option_legs (
			ticker, expiration, strike, option_type, last_price, bid, ask, volume
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (ticker, expiration, strike, option_type) DO UPDATE SET
			last_price = EXCLUDED.last_price,
			bid = EXCLUDED.bid,
			ask = EXCLUDED.ask,
			volume = EXCLUDED.volume
	`

	for _, l := range legs {
		if l == nil || !l.Type.Valid() {
			return &storage.WriteError{Table: "option_legs", Err: storage.ErrInvalidInput}
		}
		_, err := tx.Exec(ctx, query,
			ticker,
			domain.Day(expiration),
			l.Strike,
			string(l.Type),
			l.LastPrice,
			l.Bid,
			l.Ask,
			l.Volume,
		)
		if err != nil {
			if isConstraintError(err) {
				err = fmt.Errorf("constraint violation: %w", err)
			}
			return &storage.WriteError{Table: "option_legs", Err: fmt.Errorf("upsert leg %g/%s: %w", l.Strike, l.Type, err)}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return &storage.WriteError{Table: "option_legs", Err: fmt.Errorf("commit tx: %w", err)}
	}

	return nil
}

// GetByExpiration retrieves all legs for a ticker/expiration,
// ordered by option_type, strike ASC. Query failures are logged and yield
// an empty result so that read-side consumers see a missing chain, not a
// dead feature.
func (s *OptionLegStore) GetByExpiration(ctx context.Context, ticker string, expiration time.Time) ([]*domain.OptionLeg, error) {
	defer func(started time.Time) {
		observability.RecordDBQuery("postgres", "get_legs", time.Since(started).Seconds())
	}(time.Now())

	query := `
		SELECT ticker, expiration, strike, option_type, last_price, bid, ask, volume
		FROM option_legs
		WHERE ticker = $1 AND expiration = $2
		ORDER BY option_type ASC, strike ASC
	`

	rows, err := s.pool.Query(ctx, query, ticker, domain.Day(expiration))
	if err != nil {
		log.Printf("[storage] get option legs for %s: %v", ticker, err)
		return nil, nil
	}
	defer rows.Close()

	legs, err := scanOptionLegs(rows)
	if err != nil {
		log.Printf("[storage] get option legs for %s: %v", ticker, err)
		return nil, nil
	}
	return legs, nil
}

// scanOptionLegs scans multiple rows into a slice of OptionLeg.
func scanOptionLegs(rows pgx.Rows) ([]*domain.OptionLeg, error) {
	var legs []*domain.OptionLeg

	for rows.Next() {
		var l domain.OptionLeg
		var optionType string

		err := rows.Scan(
			&l.Ticker,
			&l.Expiration,
			&l.Strike,
			&optionType,
			&l.LastPrice,
			&l.Bid,
			&l.Ask,
			&l.Volume,
		)
		if err != nil {
			return nil, fmt.Errorf("scan option leg row: %w", err)
		}

		l.Type = domain.OptionType(optionType)
		l.Expiration = domain.Day(l.Expiration)
		legs = append(legs, &l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate option leg rows: %w", err)
	}

	return legs, nil
}
