package domain

// SpreadCandidate is one evaluated long leg of a put credit spread.
// Collateral is the strike distance times contract size, so it is >= 0 by
// construction (the short strike dominates every eligible long strike).
// ROI is nil, not zero, when collateral is zero: pairing the short leg with
// itself is "no position", which must stay distinguishable from a position
// with zero return.
type SpreadCandidate struct {
	LongStrike float64
	LongAsk    float64
	Collateral float64
	Profit     float64
	MaxLoss    float64
	ROI        *float64 // percent; nil when collateral == 0
	Best       bool     // true on every row tying the maximum defined ROI
}

// ContractSize is the share multiplier for one option contract.
const ContractSize = 100
