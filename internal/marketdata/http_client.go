package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"options-spread-lab/internal/observability"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxAttempts = 3
	DefaultRetryPause  = 1 * time.Second
)

// Provider endpoints.
const (
	pathDailyBars   = "/v1/daily"
	pathOptionChain = "/v1/options"
	pathQuote       = "/v1/quote"
)

// HTTPClient implements Provider against an HTTP market data feed.
//
// Every fetch retries up to maxAttempts with a fixed pause between attempts,
// on transport errors, bad statuses, undecodable bodies, and empty payloads
// alike. The upstream feed drops whole days of data without erroring, so an
// empty payload is treated as retryable, not as a result.
type HTTPClient struct {
	baseURL     string
	client      *http.Client
	maxAttempts int
	retryPause  time.Duration
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxAttempts sets the total attempt budget per fetch.
func WithMaxAttempts(n int) ClientOption {
	return func(c *HTTPClient) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithRetryPause sets the fixed pause between attempts.
func WithRetryPause(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryPause = d
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a new market data HTTP client.
func NewHTTPClient(baseURL string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		client:      &http.Client{Timeout: DefaultTimeout},
		maxAttempts: DefaultMaxAttempts,
		retryPause:  DefaultRetryPause,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ Provider = (*HTTPClient)(nil)

// FetchPriceBars retrieves daily bars for [start, end].
// Ticker-qualified field names in the response are flattened before return.
func (c *HTTPClient) FetchPriceBars(ctx context.Context, ticker string, start, end time.Time) (*RawBars, error) {
	params := url.Values{}
	params.Set("ticker", ticker)
	params.Set("start", start.Format(time.DateOnly))
	params.Set("end", end.Format(time.DateOnly))

	var bars *RawBars
	err := c.fetch(ctx, ticker, pathDailyBars, params, func(body []byte) (empty bool, err error) {
		bars, err = decodeBars(body, ticker)
		if err != nil {
			return false, err
		}
		return len(bars.Bars) == 0, nil
	})
	if err != nil {
		return nil, err
	}
	return bars, nil
}

// FetchOptionChain retrieves the option chain for one expiration.
func (c *HTTPClient) FetchOptionChain(ctx context.Context, ticker string, expiration time.Time) (*RawChain, error) {
	params := url.Values{}
	params.Set("ticker", ticker)
	params.Set("expiration", expiration.Format(time.DateOnly))

	var chain *RawChain
	err := c.fetch(ctx, ticker, pathOptionChain, params, func(body []byte) (empty bool, err error) {
		var decoded RawChain
		if err := json.Unmarshal(body, &decoded); err != nil {
			return false, fmt.Errorf("unmarshal option chain: %w", err)
		}
		chain = &decoded
		return chain.Empty(), nil
	})
	if err != nil {
		return nil, err
	}
	return chain, nil
}

// FetchQuote retrieves the latest traded price for a ticker.
func (c *HTTPClient) FetchQuote(ctx context.Context, ticker string) (float64, error) {
	params := url.Values{}
	params.Set("ticker", ticker)

	var price float64
	err := c.fetch(ctx, ticker, pathQuote, params, func(body []byte) (empty bool, err error) {
		var decoded struct {
			Ticker string   `json:"ticker"`
			Price  *float64 `json:"price"`
		}
		if err := json.Unmarshal(body, &decoded); err != nil {
			return false, fmt.Errorf("unmarshal quote: %w", err)
		}
		if decoded.Price == nil {
			return true, nil
		}
		price = *decoded.Price
		return false, nil
	})
	if err != nil {
		return 0, err
	}
	return price, nil
}

// fetch performs one GET with the retry policy. decode reports whether the
// payload was empty; both decode errors and empty payloads consume an attempt.
func (c *HTTPClient) fetch(ctx context.Context, ticker, path string, params url.Values, decode func(body []byte) (empty bool, err error)) error {
	endpoint := c.baseURL + path + "?" + params.Encode()

	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryPause):
			}
		}

		body, err := c.get(ctx, endpoint)
		if err != nil {
			lastErr = err
			observability.RecordFetchAttempt(path, "error")
			continue
		}

		empty, err := decode(body)
		if err != nil {
			lastErr = err
			observability.RecordFetchAttempt(path, "malformed")
			continue
		}
		if empty {
			observability.RecordFetchAttempt(path, "empty")
			continue
		}

		observability.RecordFetchAttempt(path, "ok")
		return nil
	}

	observability.RecordFetchExhausted(path)
	return &DataUnavailable{Ticker: ticker, Attempts: c.maxAttempts, Cause: lastErr}
}

// get performs a single HTTP GET and returns the response body.
func (c *HTTPClient) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("rate limited (429)")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// decodeBars decodes a daily bar payload, flattening ticker-qualified field
// names ("close SPY", "close.SPY", "close:SPY") to single-level names.
func decodeBars(body []byte, ticker string) (*RawBars, error) {
	var decoded struct {
		Ticker string                       `json:"ticker"`
		Bars   []map[string]json.RawMessage `json:"bars"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("unmarshal bars: %w", err)
	}

	if decoded.Ticker == "" {
		decoded.Ticker = ticker
	}

	result := &RawBars{Ticker: decoded.Ticker}
	for i, row := range decoded.Bars {
		flat := flattenColumns(row, decoded.Ticker)

		bar := RawBar{}
		if raw, ok := flat["date"]; ok {
			if err := json.Unmarshal(raw, &bar.Date); err != nil {
				return nil, fmt.Errorf("bar %d: decode date: %w", i, err)
			}
		}
		if bar.Date == "" {
			return nil, fmt.Errorf("bar %d: missing date", i)
		}

		var err error
		if bar.Open, err = optFloat(flat, "open"); err != nil {
			return nil, fmt.Errorf("bar %s: %w", bar.Date, err)
		}
		if bar.High, err = optFloat(flat, "high"); err != nil {
			return nil, fmt.Errorf("bar %s: %w", bar.Date, err)
		}
		if bar.Low, err = optFloat(flat, "low"); err != nil {
			return nil, fmt.Errorf("bar %s: %w", bar.Date, err)
		}
		if bar.Close, err = optFloat(flat, "close"); err != nil {
			return nil, fmt.Errorf("bar %s: %w", bar.Date, err)
		}
		if bar.Volume, err = optInt(flat, "volume"); err != nil {
			return nil, fmt.Errorf("bar %s: %w", bar.Date, err)
		}

		result.Bars = append(result.Bars, bar)
	}

	return result, nil
}

// flattenColumns lowercases field names and strips a ticker qualifier
// appended by providers that report two-level column schemes.
func flattenColumns(row map[string]json.RawMessage, ticker string) map[string]json.RawMessage {
	flat := make(map[string]json.RawMessage, len(row))
	suffix := strings.ToLower(ticker)

	for key, value := range row {
		name := strings.ToLower(strings.TrimSpace(key))
		for _, sep := range []string{" ", ".", ":"} {
			if cut, found := strings.CutSuffix(name, sep+suffix); found {
				name = cut
				break
			}
		}
		flat[name] = value
	}

	return flat
}

func optFloat(row map[string]json.RawMessage, field string) (*float64, error) {
	raw, ok := row[field]
	if !ok || string(raw) == "null" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(string(raw)), 64)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", field, err)
	}
	return &v, nil
}

func optInt(row map[string]json.RawMessage, field string) (*int64, error) {
	raw, ok := row[field]
	if !ok || string(raw) == "null" {
		return nil, nil
	}
	v, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", field, err)
	}
	return &v, nil
}
