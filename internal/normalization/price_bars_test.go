package normalization

import (
	"testing"
	"time"

	"options-spread-lab/internal/marketdata"
)

func f(v float64) *float64 { return &v }
func i(v int64) *int64     { return &v }

func TestNormalizePriceBars_DropsIncompleteRows(t *testing.T) {
	raw := &marketdata.RawBars{
		Ticker: "SPY",
		Bars: []marketdata.RawBar{
			{Date: "2026-01-05", Open: f(100), High: f(102), Low: f(99), Close: f(101), Volume: i(1000)},
			{Date: "2026-01-06", Open: f(101), High: f(103), Low: f(100), Close: nil, Volume: i(1100)},
			{Date: "2026-01-07", Open: f(102), High: f(104), Low: f(101), Close: f(103), Volume: i(1200)},
		},
	}

	bars := NormalizePriceBars(raw)

	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}
	if bars[0].Close != 101 || bars[1].Close != 103 {
		t.Errorf("unexpected closes: %f, %f", bars[0].Close, bars[1].Close)
	}
}

func TestNormalizePriceBars_ForwardFillOptIn(t *testing.T) {
	raw := &marketdata.RawBars{
		Ticker: "SPY",
		Bars: []marketdata.RawBar{
			{Date: "2026-01-05", Open: f(100), High: f(102), Low: f(99), Close: f(101), Volume: i(1000)},
			{Date: "2026-01-06", Open: f(101), High: f(103), Low: f(100), Close: nil, Volume: nil},
		},
	}

	bars := NormalizePriceBars(raw, WithForwardFill())

	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}
	if bars[1].Close != 101 {
		t.Errorf("expected close filled from previous day (101), got %f", bars[1].Close)
	}
	if bars[1].Volume != 1000 {
		t.Errorf("expected volume filled from previous day (1000), got %d", bars[1].Volume)
	}
	if bars[1].Open != 101 {
		t.Errorf("present fields must not be overwritten, got open %f", bars[1].Open)
	}
}

func TestNormalizePriceBars_ForwardFillDropsLeadingGaps(t *testing.T) {
	raw := &marketdata.RawBars{
		Ticker: "SPY",
		Bars: []marketdata.RawBar{
			{Date: "2026-01-05", Open: f(100), High: f(102), Low: f(99), Close: nil, Volume: i(1000)},
			{Date: "2026-01-06", Open: f(101), High: f(103), Low: f(100), Close: f(102), Volume: i(1100)},
		},
	}

	bars := NormalizePriceBars(raw, WithForwardFill())

	// No prior value exists for the first row's close.
	if len(bars) != 1 {
		t.Fatalf("expected 1 bar, got %d", len(bars))
	}
	if !bars[0].Date.Equal(time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected surviving bar date: %v", bars[0].Date)
	}
}

func TestNormalizePriceBars_SkipsUnparsableDates(t *testing.T) {
	raw := &marketdata.RawBars{
		Ticker: "SPY",
		Bars: []marketdata.RawBar{
			{Date: "not-a-date", Open: f(100), High: f(102), Low: f(99), Close: f(101), Volume: i(1000)},
			{Date: "2026-01-06", Open: f(101), High: f(103), Low: f(100), Close: f(102), Volume: i(1100)},
		},
	}

	bars := NormalizePriceBars(raw)

	if len(bars) != 1 {
		t.Fatalf("expected 1 bar, got %d", len(bars))
	}
}

func TestNormalizePriceBars_SortsByDate(t *testing.T) {
	raw := &marketdata.RawBars{
		Ticker: "SPY",
		Bars: []marketdata.RawBar{
			{Date: "2026-01-07", Open: f(102), High: f(104), Low: f(101), Close: f(103), Volume: i(1200)},
			{Date: "2026-01-05", Open: f(100), High: f(102), Low: f(99), Close: f(101), Volume: i(1000)},
		},
	}

	bars := NormalizePriceBars(raw)

	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}
	if !bars[0].Date.Before(bars[1].Date) {
		t.Error("bars must be sorted by date ascending")
	}
}
