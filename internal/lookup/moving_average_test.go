package lookup

import (
	"testing"
	"time"

	"options-spread-lab/internal/domain"
)

func barsWithCloses(closes ...float64) []*domain.PriceBar {
	bars := make([]*domain.PriceBar, len(closes))
	base := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = &domain.PriceBar{
			Ticker: "SPY",
			Date:   base.AddDate(0, 0, i),
			Close:  c,
		}
	}
	return bars
}

func TestMovingAverage_EmptyInput(t *testing.T) {
	_, err := MovingAverage(nil, 50)
	if err != ErrNoBarData {
		t.Errorf("expected ErrNoBarData, got %v", err)
	}
}

func TestMovingAverage_InvalidWindow(t *testing.T) {
	_, err := MovingAverage(barsWithCloses(1, 2, 3), 0)
	if err != ErrInvalidWindow {
		t.Errorf("expected ErrInvalidWindow, got %v", err)
	}
}

func TestMovingAverage_NilUntilWindowFilled(t *testing.T) {
	result, err := MovingAverage(barsWithCloses(10, 20, 30, 40), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 4 {
		t.Fatalf("expected 4 values, got %d", len(result))
	}

	if result[0] != nil || result[1] != nil {
		t.Error("values before a full window must be nil")
	}
	if result[2] == nil || *result[2] != 20 {
		t.Errorf("expected sma 20 at index 2, got %v", result[2])
	}
	if result[3] == nil || *result[3] != 30 {
		t.Errorf("expected sma 30 at index 3, got %v", result[3])
	}
}

func TestMovingAverage_WindowOne(t *testing.T) {
	result, err := MovingAverage(barsWithCloses(10, 20), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *result[0] != 10 || *result[1] != 20 {
		t.Errorf("window 1 must echo closes, got %v %v", result[0], result[1])
	}
}

func TestCloseAt_EmptySlice(t *testing.T) {
	_, err := CloseAt(time.Now(), nil)
	if err != ErrNoBarData {
		t.Errorf("expected ErrNoBarData, got %v", err)
	}
}

func TestCloseAt_ExactAndBetween(t *testing.T) {
	bars := barsWithCloses(10, 20, 30)

	price, err := CloseAt(time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC), bars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price != 20 {
		t.Errorf("expected 20, got %f", price)
	}

	// Intraday timestamp resolves to that calendar day's close.
	price, err = CloseAt(time.Date(2026, 1, 6, 15, 30, 0, 0, time.UTC), bars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price != 20 {
		t.Errorf("expected 20, got %f", price)
	}
}

func TestCloseAt_BeforeFirst(t *testing.T) {
	bars := barsWithCloses(10, 20, 30)

	price, err := CloseAt(time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), bars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price != 10 {
		t.Errorf("expected first close 10, got %f", price)
	}
}
