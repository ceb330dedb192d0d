// Package reporting renders spread analysis results for human review and
// downstream feature consumers.
package reporting

import (
	"time"

	"options-spread-lab/internal/domain"
	"options-spread-lab/internal/lookup"
	"options-spread-lab/internal/spread"
)

// Report is one spread analysis run ready for rendering.
type Report struct {
	Ticker       string
	Expiration   time.Time
	CurrentPrice float64
	Height       float64
	GeneratedAt  time.Time

	// Trend is optional price-action context; omitted from output when nil.
	Trend *lookup.TrendContext

	ShortStrike float64
	ShortAsk    float64
	Candidates  []domain.SpreadCandidate
}

// NewReport builds a report from a selection result.
func NewReport(ticker string, expiration time.Time, currentPrice, height float64, result *spread.Result) *Report {
	return &Report{
		Ticker:       ticker,
		Expiration:   expiration,
		CurrentPrice: currentPrice,
		Height:       height,
		GeneratedAt:  time.Now().UTC(),
		ShortStrike:  result.ShortStrike,
		ShortAsk:     result.ShortAsk,
		Candidates:   result.Candidates,
	}
}
