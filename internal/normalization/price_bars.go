package normalization

import (
	"sort"
	"time"

	"options-spread-lab/internal/domain"
	"options-spread-lab/internal/marketdata"
)

// BarOption configures NormalizePriceBars.
type BarOption func(*barConfig)

type barConfig struct {
	forwardFill bool
}

// WithForwardFill fills missing OHLCV fields from the most recent prior
// value of the same column instead of dropping the row. Rows that are
// still incomplete after filling (no prior value exists) are dropped.
func WithForwardFill() BarOption {
	return func(c *barConfig) {
		c.forwardFill = true
	}
}

// NormalizePriceBars converts a raw daily bar payload into domain rows.
// Rows with an unparsable date are dropped. By default rows missing any
// OHLCV field are dropped too; WithForwardFill changes that to
// fill-from-previous. Output is sorted by date ascending.
func NormalizePriceBars(raw *marketdata.RawBars, opts ...BarOption) []*domain.PriceBar {
	var cfg barConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	var (
		bars []*domain.PriceBar
		prev fillState
	)
	for _, row := range raw.Bars {
		date, err := time.Parse("2006-01-02", row.Date)
		if err != nil {
			continue
		}

		if cfg.forwardFill {
			row = prev.fill(row)
		}
		if row.Open == nil || row.High == nil || row.Low == nil || row.Close == nil || row.Volume == nil {
			continue
		}
		prev.remember(row)

		bars = append(bars, &domain.PriceBar{
			Ticker: raw.Ticker,
			Date:   domain.Day(date),
			Open:   *row.Open,
			High:   *row.High,
			Low:    *row.Low,
			Close:  *row.Close,
			Volume: *row.Volume,
		})
	}

	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Date.Before(bars[j].Date)
	})
	return bars
}

// fillState carries the last seen value per column for forward filling.
type fillState struct {
	open, high, low, close *float64
	volume                 *int64
}

func (s *fillState) fill(row marketdata.RawBar) marketdata.RawBar {
	if row.Open == nil {
		row.Open = s.open
	}
	if row.High == nil {
		row.High = s.high
	}
	if row.Low == nil {
		row.Low = s.low
	}
	if row.Close == nil {
		row.Close = s.close
	}
	if row.Volume == nil {
		row.Volume = s.volume
	}
	return row
}

func (s *fillState) remember(row marketdata.RawBar) {
	s.open, s.high, s.low, s.close = row.Open, row.High, row.Low, row.Close
	s.volume = row.Volume
}
