// Package normalization converts raw provider payloads into domain rows
// ready for storage.
package normalization

import (
	"time"

	"options-spread-lab/internal/domain"
	"options-spread-lab/internal/marketdata"
)

// NormalizeChain merges the call and put partitions of a raw chain into a
// single snapshot. Calls are emitted first, then puts, each partition in
// provider order, so the merged table has a stable layout regardless of
// which partition the provider populated.
func NormalizeChain(raw *marketdata.RawChain, expiration time.Time) *domain.ChainSnapshot {
	snapshot := &domain.ChainSnapshot{
		Ticker:     raw.Ticker,
		Expiration: domain.Day(expiration),
	}
	if raw.Empty() {
		return snapshot
	}

	snapshot.Legs = make([]*domain.OptionLeg, 0, len(raw.Calls)+len(raw.Puts))
	for _, leg := range raw.Calls {
		snapshot.Legs = append(snapshot.Legs, normalizeLeg(raw.Ticker, snapshot.Expiration, domain.OptionTypeCall, leg))
	}
	for _, leg := range raw.Puts {
		snapshot.Legs = append(snapshot.Legs, normalizeLeg(raw.Ticker, snapshot.Expiration, domain.OptionTypePut, leg))
	}
	return snapshot
}

func normalizeLeg(ticker string, expiration time.Time, optType domain.OptionType, raw marketdata.RawLeg) *domain.OptionLeg {
	return &domain.OptionLeg{
		Ticker:     ticker,
		Expiration: expiration,
		Strike:     raw.Strike,
		Type:       optType,
		LastPrice:  raw.LastPrice,
		Bid:        raw.Bid,
		Ask:        raw.Ask,
		Volume:     raw.Volume,
		InTheMoney: raw.InTheMoney,
	}
}
