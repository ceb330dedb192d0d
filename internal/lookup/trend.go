package lookup

import (
	"time"

	"options-spread-lab/internal/domain"
)

// TrendContext summarizes recent price action for an analysis report.
// An SMA is nil when the history is shorter than its window.
type TrendContext struct {
	LastClose *float64
	ShortSMA  *float64
	LongSMA   *float64
}

// TrendFor computes the trend context over daily bars as of the given date,
// using the default short and long windows. Returns nil when no bars are
// available.
func TrendFor(asOf time.Time, bars []*domain.PriceBar) *TrendContext {
	if len(bars) == 0 {
		return nil
	}

	tc := &TrendContext{
		ShortSMA: latestAverage(bars, DefaultShortWindow),
		LongSMA:  latestAverage(bars, DefaultLongWindow),
	}
	if last, err := CloseAt(asOf, bars); err == nil {
		tc.LastClose = &last
	}
	return tc
}

// latestAverage returns the most recent SMA value, nil when the history
// does not cover a full window.
func latestAverage(bars []*domain.PriceBar, window int) *float64 {
	averages, err := MovingAverage(bars, window)
	if err != nil || len(averages) == 0 {
		return nil
	}
	return averages[len(averages)-1]
}
