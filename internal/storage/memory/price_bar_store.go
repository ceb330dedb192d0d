package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"options-spread-lab/internal/domain"
	"options-spread-lab/internal/storage"
)

// PriceBarStore is an in-memory implementation of storage.PriceBarStore.
type PriceBarStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PriceBar // keyed by (ticker, date)
}

// NewPriceBarStore creates a new in-memory price bar store.
func NewPriceBarStore() *PriceBarStore {
	return &PriceBarStore{
		data: make(map[string]*domain.PriceBar),
	}
}

// Compile-time interface check.
var _ storage.PriceBarStore = (*PriceBarStore)(nil)

// barKey generates a unique key for a price bar.
func barKey(ticker string, date time.Time) string {
	return fmt.Sprintf("%s|%s", ticker, domain.Day(date).Format(time.DateOnly))
}

// UpsertBars replaces or inserts the batch. An empty batch is a no-op.
func (s *PriceBarStore) UpsertBars(_ context.Context, ticker string, bars []*domain.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}

	for _, b := range bars {
		if b == nil || ticker == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range bars {
		barCopy := *b
		barCopy.Ticker = ticker
		barCopy.Date = domain.Day(b.Date)
		s.data[barKey(ticker, b.Date)] = &barCopy
	}

	return nil
}

// GetByDateRange retrieves bars for a ticker within [start, end] (inclusive),
// ordered by date ASC.
func (s *PriceBarStore) GetByDateRange(_ context.Context, ticker string, start, end time.Time) ([]*domain.PriceBar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	startDay := domain.Day(start)
	endDay := domain.Day(end)

	var result []*domain.PriceBar
	for _, b := range s.data {
		if b.Ticker != ticker {
			continue
		}
		if b.Date.Before(startDay) || b.Date.After(endDay) {
			continue
		}
		barCopy := *b
		result = append(result, &barCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})

	return result, nil
}

// Count returns the number of stored bars. Test helper.
func (s *PriceBarStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
