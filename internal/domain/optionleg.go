package domain

import "time"

// OptionType discriminates call and put legs.
type OptionType string

const (
	OptionTypeCall OptionType = "call"
	OptionTypePut  OptionType = "put"
)

// Valid reports whether the option type is one of the known values.
func (t OptionType) Valid() bool {
	return t == OptionTypeCall || t == OptionTypePut
}

// OptionLeg represents a single option contract quote.
// Corresponds to option_legs table.
// Natural key: (ticker, expiration, strike, option_type).
type OptionLeg struct {
	Ticker     string
	Expiration time.Time // calendar date, UTC midnight
	Strike     float64
	Type       OptionType
	LastPrice  float64
	Bid        float64
	Ask        float64
	Volume     int64

	// InTheMoney is a snapshot-time tag relative to the underlying price.
	// It is carried on live chain snapshots for the selector and is not persisted.
	InTheMoney bool
}

// ChainSnapshot is an in-memory option chain for one ticker/expiration
// pulled at one instant. Legs are ordered calls first, then puts, each
// partition preserving the provider's row order. Constructed per analysis
// request and discarded after the selector consumes it.
type ChainSnapshot struct {
	Ticker     string
	Expiration time.Time
	Legs       []*OptionLeg
}

// Puts returns the put legs of the snapshot in order.
func (s *ChainSnapshot) Puts() []*OptionLeg {
	var puts []*OptionLeg
	for _, leg := range s.Legs {
		if leg.Type == OptionTypePut {
			puts = append(puts, leg)
		}
	}
	return puts
}
