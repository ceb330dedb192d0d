// Package spread implements put credit spread selection over a normalized
// option chain.
package spread

import (
	"errors"
	"fmt"

	"options-spread-lab/internal/domain"
)

// ErrEmptyEligibleChain is returned when no put leg falls inside the
// strike window. The short leg is undefined on an empty set, so selection
// cannot proceed.
var ErrEmptyEligibleChain = errors.New("no eligible put legs in strike window")

// ErrInvalidPrice is returned when the current price or window height is
// out of domain.
var ErrInvalidPrice = errors.New("invalid price or window height")

// DefaultHeight is the default strike window height in underlying price units.
const DefaultHeight = 20.0

// Result is the outcome of one spread selection.
type Result struct {
	// Candidates holds one evaluated row per eligible long leg, including
	// the short leg paired with itself, in eligible-set order.
	Candidates []domain.SpreadCandidate

	// ShortStrike and ShortAsk identify the chosen short leg and the
	// premium received for selling it.
	ShortStrike float64
	ShortAsk    float64
}

// SelectPutCreditSpread picks a short put and evaluates every eligible
// long put against it.
//
// The eligible window is (currentPrice-height, currentPrice), exclusive on
// both ends, restricted to out-of-the-money puts: the short leg must be a
// near-the-money OTM put to harvest premium without excess assignment
// risk. The short leg is the eligible leg with the highest strike; on
// equal strikes the earlier row wins. Rows tying the maximum defined ROI
// are all flagged Best.
//
// Stateless single-pass computation; the snapshot is not mutated.
func SelectPutCreditSpread(snapshot *domain.ChainSnapshot, currentPrice, height float64) (*Result, error) {
	if currentPrice <= 0 || height < 0 {
		return nil, fmt.Errorf("%w: currentPrice=%v height=%v", ErrInvalidPrice, currentPrice, height)
	}

	lowBound := currentPrice - height

	var eligible []*domain.OptionLeg
	for _, leg := range snapshot.Legs {
		if leg.Type != domain.OptionTypePut || leg.InTheMoney {
			continue
		}
		if leg.Strike <= lowBound || leg.Strike >= currentPrice {
			continue
		}
		eligible = append(eligible, leg)
	}
	if len(eligible) == 0 {
		return nil, fmt.Errorf("%w: ticker=%s window=(%v,%v)", ErrEmptyEligibleChain, snapshot.Ticker, lowBound, currentPrice)
	}

	short := eligible[0]
	for _, leg := range eligible[1:] {
		if leg.Strike > short.Strike {
			short = leg
		}
	}

	result := &Result{
		Candidates:  make([]domain.SpreadCandidate, 0, len(eligible)),
		ShortStrike: short.Strike,
		ShortAsk:    short.Ask,
	}

	var maxROI float64
	var haveROI bool
	for _, leg := range eligible {
		candidate := domain.SpreadCandidate{
			LongStrike: leg.Strike,
			LongAsk:    leg.Ask,
			Collateral: (short.Strike - leg.Strike) * domain.ContractSize,
			Profit:     (short.Ask - leg.Ask) * domain.ContractSize,
		}
		candidate.MaxLoss = candidate.Collateral - candidate.Profit
		if candidate.Collateral > 0 {
			roi := candidate.Profit / candidate.Collateral * 100
			candidate.ROI = &roi
			if !haveROI || roi > maxROI {
				maxROI = roi
				haveROI = true
			}
		}
		result.Candidates = append(result.Candidates, candidate)
	}

	if haveROI {
		for i := range result.Candidates {
			if result.Candidates[i].ROI != nil && *result.Candidates[i].ROI == maxROI {
				result.Candidates[i].Best = true
			}
		}
	}

	return result, nil
}
