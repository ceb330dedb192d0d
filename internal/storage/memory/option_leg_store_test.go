package memory

import (
	"context"
	"testing"

	"options-spread-lab/internal/domain"
	"options-spread-lab/internal/storage"
)

func sampleLegs() []*domain.OptionLeg {
	exp := day(2026, 10, 16)
	return []*domain.OptionLeg{
		{Ticker: "SPY", Expiration: exp, Strike: 195, Type: domain.OptionTypePut, LastPrice: 2.9, Bid: 2.8, Ask: 3.0, Volume: 120},
		{Ticker: "SPY", Expiration: exp, Strike: 190, Type: domain.OptionTypePut, LastPrice: 1.9, Bid: 1.8, Ask: 2.0, Volume: 80},
		{Ticker: "SPY", Expiration: exp, Strike: 195, Type: domain.OptionTypeCall, LastPrice: 8.1, Bid: 8.0, Ask: 8.2, Volume: 60},
	}
}

func TestOptionLegStore_UpsertAndRead(t *testing.T) {
	store := NewOptionLegStore()
	ctx := context.Background()
	exp := day(2026, 10, 16)

	if err := store.UpsertLegs(ctx, "SPY", exp, sampleLegs()); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	legs, err := store.GetByExpiration(ctx, "SPY", exp)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(legs) != 3 {
		t.Fatalf("expected 3 legs, got %d", len(legs))
	}

	// Ordered by option_type, then strike ascending.
	if legs[0].Type != domain.OptionTypeCall {
		t.Errorf("expected call first, got %s", legs[0].Type)
	}
	if legs[1].Strike != 190 || legs[2].Strike != 195 {
		t.Errorf("puts not ordered by strike: %f, %f", legs[1].Strike, legs[2].Strike)
	}
}

func TestOptionLegStore_RepeatedIngestionOverwritesQuotes(t *testing.T) {
	store := NewOptionLegStore()
	ctx := context.Background()
	exp := day(2026, 10, 16)

	if err := store.UpsertLegs(ctx, "SPY", exp, sampleLegs()); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	// Same keys, repriced quotes.
	repriced := []*domain.OptionLeg{
		{Ticker: "SPY", Expiration: exp, Strike: 195, Type: domain.OptionTypePut, LastPrice: 3.4, Bid: 3.3, Ask: 3.5, Volume: 200},
	}
	if err := store.UpsertLegs(ctx, "SPY", exp, repriced); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	if store.Count() != 3 {
		t.Errorf("repeated ingestion must not add rows, got %d", store.Count())
	}

	legs, err := store.GetByExpiration(ctx, "SPY", exp)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	for _, leg := range legs {
		if leg.Strike == 195 && leg.Type == domain.OptionTypePut && leg.Ask != 3.5 {
			t.Errorf("stale quote survived: ask %f", leg.Ask)
		}
	}
}

func TestOptionLegStore_SameStrikeDifferentTypeAreDistinct(t *testing.T) {
	store := NewOptionLegStore()
	ctx := context.Background()
	exp := day(2026, 10, 16)

	legs := []*domain.OptionLeg{
		{Ticker: "SPY", Expiration: exp, Strike: 195, Type: domain.OptionTypePut, Ask: 3.0},
		{Ticker: "SPY", Expiration: exp, Strike: 195, Type: domain.OptionTypeCall, Ask: 8.2},
	}
	if err := store.UpsertLegs(ctx, "SPY", exp, legs); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if store.Count() != 2 {
		t.Errorf("call and put at the same strike are distinct rows, got %d", store.Count())
	}
}

func TestOptionLegStore_EmptyBatchIsNoOp(t *testing.T) {
	store := NewOptionLegStore()

	if err := store.UpsertLegs(context.Background(), "SPY", day(2026, 10, 16), nil); err != nil {
		t.Errorf("empty batch must be a no-op, got %v", err)
	}
	if store.Count() != 0 {
		t.Errorf("expected 0 rows, got %d", store.Count())
	}
}

func TestOptionLegStore_InvalidOptionType(t *testing.T) {
	store := NewOptionLegStore()
	exp := day(2026, 10, 16)

	legs := []*domain.OptionLeg{
		{Ticker: "SPY", Expiration: exp, Strike: 195, Type: "straddle", Ask: 3.0},
	}
	err := store.UpsertLegs(context.Background(), "SPY", exp, legs)
	if err != storage.ErrInvalidInput {
		t.Errorf("expected ErrInvalidInput for unknown option type, got %v", err)
	}
}

func TestOptionLegStore_NoMatchReturnsEmpty(t *testing.T) {
	store := NewOptionLegStore()

	legs, err := store.GetByExpiration(context.Background(), "SPY", day(2026, 10, 16))
	if err != nil {
		t.Fatalf("reads must not error on no match: %v", err)
	}
	if len(legs) != 0 {
		t.Errorf("expected empty result, got %d rows", len(legs))
	}
}
