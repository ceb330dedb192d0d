package stub

import (
	"context"
	"time"

	"options-spread-lab/internal/marketdata"
)

// Provider returns fixed in-memory market data for testing.
// Implements marketdata.Provider interface.
type Provider struct {
	bars   map[string][]marketdata.RawBar  // keyed by ticker
	chains map[string]*marketdata.RawChain // keyed by ticker|expiration
	quotes map[string]float64              // keyed by ticker
}

// NewProvider creates a new stub provider with no data loaded.
func NewProvider() *Provider {
	return &Provider{
		bars:   make(map[string][]marketdata.RawBar),
		chains: make(map[string]*marketdata.RawChain),
		quotes: make(map[string]float64),
	}
}

// SetBars loads daily bars for a ticker.
func (p *Provider) SetBars(ticker string, bars []marketdata.RawBar) {
	p.bars[ticker] = bars
}

// SetChain loads an option chain for a ticker and expiration.
func (p *Provider) SetChain(ticker string, expiration time.Time, chain *marketdata.RawChain) {
	p.chains[chainKey(ticker, expiration)] = chain
}

// SetQuote loads the latest price for a ticker.
func (p *Provider) SetQuote(ticker string, price float64) {
	p.quotes[ticker] = price
}

// FetchPriceBars returns bars whose dates fall inside [start, end].
// Returns copies to prevent mutation.
func (p *Provider) FetchPriceBars(_ context.Context, ticker string, start, end time.Time) (*marketdata.RawBars, error) {
	var result []marketdata.RawBar
	for _, bar := range p.bars[ticker] {
		d, err := time.Parse("2006-01-02", bar.Date)
		if err != nil {
			continue
		}
		if d.Before(start) || d.After(end) {
			continue
		}
		result = append(result, bar)
	}
	if len(result) == 0 {
		return nil, &marketdata.DataUnavailable{Ticker: ticker, Attempts: 1}
	}
	return &marketdata.RawBars{Ticker: ticker, Bars: result}, nil
}

// FetchOptionChain returns the loaded chain for the ticker and expiration.
func (p *Provider) FetchOptionChain(_ context.Context, ticker string, expiration time.Time) (*marketdata.RawChain, error) {
	chain, exists := p.chains[chainKey(ticker, expiration)]
	if !exists || chain.Empty() {
		return nil, &marketdata.DataUnavailable{Ticker: ticker, Attempts: 1}
	}
	cp := *chain
	cp.Calls = append([]marketdata.RawLeg(nil), chain.Calls...)
	cp.Puts = append([]marketdata.RawLeg(nil), chain.Puts...)
	return &cp, nil
}

// FetchQuote returns the loaded price for the ticker.
func (p *Provider) FetchQuote(_ context.Context, ticker string) (float64, error) {
	price, exists := p.quotes[ticker]
	if !exists {
		return 0, &marketdata.DataUnavailable{Ticker: ticker, Attempts: 1}
	}
	return price, nil
}

func chainKey(ticker string, expiration time.Time) string {
	return ticker + "|" + expiration.Format("2006-01-02")
}
