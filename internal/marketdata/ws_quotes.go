package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"options-spread-lab/internal/observability"
)

// QuoteStreamConfig configures QuoteStreamer behavior.
type QuoteStreamConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultQuoteStreamConfig returns default streaming configuration.
func DefaultQuoteStreamConfig() QuoteStreamConfig {
	return QuoteStreamConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// Quote is one streamed last-trade price.
type Quote struct {
	Ticker      string  `json:"ticker"`
	Price       float64 `json:"price"`
	TimestampMs int64   `json:"ts"`
}

// QuoteStreamer maintains a WebSocket subscription to the provider's quote
// stream and tracks the last traded price per ticker. It reconnects with
// exponential backoff and resubscribes after connection loss; consumers
// read either the Updates channel or LastPrice.
type QuoteStreamer struct {
	endpoint string
	config   QuoteStreamConfig

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	tickers   map[string]struct{}
	last      map[string]Quote
	tickersMu sync.RWMutex

	updates chan Quote
	done    chan struct{}
	wg      sync.WaitGroup

	reconnecting atomic.Bool
}

// NewQuoteStreamer connects to the quote stream and subscribes to tickers.
func NewQuoteStreamer(ctx context.Context, endpoint string, tickers []string, config *QuoteStreamConfig) (*QuoteStreamer, error) {
	cfg := DefaultQuoteStreamConfig()
	if config != nil {
		cfg = *config
	}

	s := &QuoteStreamer{
		endpoint: endpoint,
		config:   cfg,
		tickers:  make(map[string]struct{}, len(tickers)),
		last:     make(map[string]Quote),
		updates:  make(chan Quote, 1024),
		done:     make(chan struct{}),
	}
	for _, t := range tickers {
		s.tickers[t] = struct{}{}
	}

	if err := s.connect(ctx); err != nil {
		return nil, err
	}
	if err := s.subscribe(); err != nil {
		s.conn.Close()
		return nil, err
	}

	s.wg.Add(1)
	go s.readLoop()

	s.wg.Add(1)
	go s.pingLoop()

	return s, nil
}

// Updates returns the channel of streamed quotes. Quotes are dropped, not
// blocked on, when the consumer falls behind: only the latest price matters.
func (s *QuoteStreamer) Updates() <-chan Quote {
	return s.updates
}

// LastPrice returns the most recent streamed price for a ticker.
func (s *QuoteStreamer) LastPrice(ticker string) (float64, bool) {
	s.tickersMu.RLock()
	defer s.tickersMu.RUnlock()
	q, ok := s.last[ticker]
	return q.Price, ok
}

// WaitForQuote blocks until a price for ticker arrives or ctx expires.
func (s *QuoteStreamer) WaitForQuote(ctx context.Context, ticker string) (float64, error) {
	if price, ok := s.LastPrice(ticker); ok {
		return price, nil
	}

	for {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-s.done:
			return 0, fmt.Errorf("quote stream closed")
		case q := <-s.updates:
			if q.Ticker == ticker {
				return q.Price, nil
			}
		}
	}
}

// Close closes the stream connection.
func (s *QuoteStreamer) Close() error {
	if s.closed.Swap(true) {
		return nil // Already closed
	}

	close(s.done)

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.conn.Close()
	}
	s.connMu.Unlock()

	s.wg.Wait()
	return nil
}

// connect establishes the WebSocket connection.
func (s *QuoteStreamer) connect(ctx context.Context) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	s.conn = conn
	return nil
}

// subscribeRequest is the wire message opening a ticker subscription.
type subscribeRequest struct {
	Op      string   `json:"op"`
	Tickers []string `json:"tickers"`
}

// subscribe sends the subscription for all tracked tickers.
func (s *QuoteStreamer) subscribe() error {
	s.tickersMu.RLock()
	tickers := make([]string, 0, len(s.tickers))
	for t := range s.tickers {
		tickers = append(tickers, t)
	}
	s.tickersMu.RUnlock()

	req := subscribeRequest{Op: "subscribe", Tickers: tickers}

	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn == nil {
		return fmt.Errorf("not connected")
	}
	s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := s.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}
	return nil
}

// readLoop reads quote messages and dispatches them.
func (s *QuoteStreamer) readLoop() {
	defer s.wg.Done()

	reconnectDelay := s.config.ReconnectDelay

	for !s.closed.Load() {
		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()

		if conn == nil {
			// A previous reconnect attempt failed; re-arm it so the
			// stream recovers once the endpoint comes back.
			if !s.reconnecting.Swap(true) {
				go s.reconnect(reconnectDelay)
				reconnectDelay = reconnectDelay * 2
				if reconnectDelay > s.config.MaxReconnectDelay {
					reconnectDelay = s.config.MaxReconnectDelay
				}
			}
			select {
			case <-s.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if s.closed.Load() {
				return
			}

			if !s.reconnecting.Swap(true) {
				go s.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > s.config.MaxReconnectDelay {
				reconnectDelay = s.config.MaxReconnectDelay
			}

			select {
			case <-s.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		// Reset delay on successful read
		reconnectDelay = s.config.ReconnectDelay

		s.handleMessage(message)
	}
}

// reconnect attempts to reconnect and resubscribe.
func (s *QuoteStreamer) reconnect(delay time.Duration) {
	defer s.reconnecting.Store(false)

	if s.closed.Load() {
		return
	}

	select {
	case <-s.done:
		return
	case <-time.After(delay):
	}

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.connect(ctx); err != nil {
		// Reconnect failed; the reader re-arms while conn stays nil
		return
	}

	observability.RecordQuoteStreamReconnect()

	if err := s.subscribe(); err != nil {
		// Subscription failed, reader will trigger another reconnect
		return
	}
}

// handleMessage processes an incoming quote message.
func (s *QuoteStreamer) handleMessage(message []byte) {
	var q Quote
	if err := json.Unmarshal(message, &q); err != nil || q.Ticker == "" {
		return
	}

	s.tickersMu.Lock()
	if _, tracked := s.tickers[q.Ticker]; !tracked {
		s.tickersMu.Unlock()
		return
	}
	s.last[q.Ticker] = q
	s.tickersMu.Unlock()

	observability.RecordQuoteReceived(q.Ticker)

	// Drop when the consumer lags; a newer quote always follows.
	select {
	case s.updates <- q:
	default:
	}
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (s *QuoteStreamer) pingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.connMu.Lock()
			if s.conn != nil {
				s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
				if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					// Connection might be dead, reader will handle reconnect
				}
			}
			s.connMu.Unlock()
		}
	}
}
