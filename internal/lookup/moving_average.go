// Package lookup provides read-side helpers over stored price bars for
// downstream feature consumers.
package lookup

import (
	"errors"
	"time"

	"options-spread-lab/internal/domain"
)

// Errors returned by lookup functions.
var (
	ErrNoBarData     = errors.New("no price bar data available")
	ErrInvalidWindow = errors.New("moving average window must be positive")
)

// Default simple moving average windows, in trading days.
const (
	DefaultShortWindow = 50
	DefaultLongWindow  = 200
)

// MovingAverage returns one SMA value per input bar, computed over closing
// prices. The value is nil until a full window of bars is available: a
// short history must not silently produce an average over fewer days.
// Bars are assumed sorted by date ascending, as the stores return them.
func MovingAverage(bars []*domain.PriceBar, window int) ([]*float64, error) {
	if window <= 0 {
		return nil, ErrInvalidWindow
	}
	if len(bars) == 0 {
		return nil, ErrNoBarData
	}

	result := make([]*float64, len(bars))
	var sum float64
	for i, bar := range bars {
		sum += bar.Close
		if i >= window {
			sum -= bars[i-window].Close
		}
		if i >= window-1 {
			avg := sum / float64(window)
			result[i] = &avg
		}
	}
	return result, nil
}

// CloseAt returns the closing price at or before the target date.
// If no bar exists on or before the target, the first available close is
// returned. Returns ErrNoBarData if the slice is empty.
func CloseAt(target time.Time, bars []*domain.PriceBar) (float64, error) {
	if len(bars) == 0 {
		return 0, ErrNoBarData
	}

	target = domain.Day(target)
	for i := len(bars) - 1; i >= 0; i-- {
		if !bars[i].Date.After(target) {
			return bars[i].Close, nil
		}
	}

	// No bar on or before target, use first available
	return bars[0].Close, nil
}
