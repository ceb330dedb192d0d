package domain

import "time"

// PriceBar represents one daily OHLCV bar for a ticker.
// Corresponds to price_bars table. Natural key: (ticker, date).
type PriceBar struct {
	Ticker string
	Date   time.Time // calendar date, UTC midnight
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// Day truncates t to its calendar date in UTC.
// All price bar keys are normalized through this before storage or comparison.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
