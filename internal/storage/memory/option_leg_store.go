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

// OptionLegStore is an in-memory implementation of storage.OptionLegStore.
type OptionLegStore struct {
	mu   sync.RWMutex
	data map[string]*domain.OptionLeg // keyed by (ticker, expiration, strike, option_type)
}

// NewOptionLegStore creates a new in-memory option leg store.
func NewOptionLegStore() *OptionLegStore {
	return &OptionLegStore{
		data: make(map[string]*domain.OptionLeg),
	}
}

// Compile-time interface check.
var _ storage.OptionLegStore = (*OptionLegStore)(nil)

// legKey generates a unique key for an option leg.
func legKey(ticker string, expiration time.Time, strike float64, optionType domain.OptionType) string {
	return fmt.Sprintf("%s|%s|%g|%s", ticker, domain.Day(expiration).Format(time.DateOnly), strike, optionType)
}

// UpsertLegs replaces or inserts the batch. An empty batch is a no-op.
func (s *OptionLegStore) UpsertLegs(_ context.Context, ticker string, expiration time.Time, legs []*domain.OptionLeg) error {
	if len(legs) == 0 {
		return nil
	}

	for _, l := range legs {
		if l == nil || ticker == "" || !l.Type.Valid() {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range legs {
		legCopy := *l
		legCopy.Ticker = ticker
		legCopy.Expiration = domain.Day(expiration)
		s.data[legKey(ticker, expiration, l.Strike, l.Type)] = &legCopy
	}

	return nil
}

// GetByExpiration retrieves all legs for a ticker/expiration,
// ordered by option_type, strike ASC.
func (s *OptionLegStore) GetByExpiration(_ context.Context, ticker string, expiration time.Time) ([]*domain.OptionLeg, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expDay := domain.Day(expiration)

	var result []*domain.OptionLeg
	for _, l := range s.data {
		if l.Ticker == ticker && l.Expiration.Equal(expDay) {
			legCopy := *l
			result = append(result, &legCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Type != result[j].Type {
			return result[i].Type < result[j].Type
		}
		return result[i].Strike < result[j].Strike
	})

	return result, nil
}

// Count returns the number of stored legs. Test helper.
func (s *OptionLegStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
