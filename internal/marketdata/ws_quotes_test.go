package marketdata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// quoteServer upgrades connections, verifies the subscribe request and
// streams the given quotes.
func quoteServer(t *testing.T, quotes []Quote) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var req subscribeRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			t.Errorf("unmarshal subscribe: %v", err)
			return
		}
		if req.Op != "subscribe" {
			t.Errorf("expected subscribe op, got %s", req.Op)
		}
		if len(req.Tickers) == 0 {
			t.Error("subscribe carried no tickers")
		}

		for _, q := range quotes {
			if err := conn.WriteJSON(q); err != nil {
				return
			}
		}

		// Keep connection open
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestQuoteStreamer_LastPrice(t *testing.T) {
	server := quoteServer(t, []Quote{
		{Ticker: "SPY", Price: 411.5, TimestampMs: 1},
		{Ticker: "SPY", Price: 412.37, TimestampMs: 2},
	})
	defer server.Close()

	streamer, err := NewQuoteStreamer(context.Background(), wsURL(server), []string{"SPY"}, nil)
	if err != nil {
		t.Fatalf("NewQuoteStreamer: %v", err)
	}
	defer streamer.Close()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if price, ok := streamer.LastPrice("SPY"); ok && price == 412.37 {
			break
		}
		if time.Now().After(deadline) {
			price, ok := streamer.LastPrice("SPY")
			t.Fatalf("last price never reached 412.37 (got %f, %v)", price, ok)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestQuoteStreamer_WaitForQuote(t *testing.T) {
	server := quoteServer(t, []Quote{
		{Ticker: "QQQ", Price: 480.1, TimestampMs: 1},
		{Ticker: "SPY", Price: 412.37, TimestampMs: 2},
	})
	defer server.Close()

	streamer, err := NewQuoteStreamer(context.Background(), wsURL(server), []string{"SPY", "QQQ"}, nil)
	if err != nil {
		t.Fatalf("NewQuoteStreamer: %v", err)
	}
	defer streamer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	price, err := streamer.WaitForQuote(ctx, "SPY")
	if err != nil {
		t.Fatalf("WaitForQuote: %v", err)
	}
	if price != 412.37 {
		t.Errorf("expected 412.37, got %f", price)
	}
}

func TestQuoteStreamer_IgnoresUntrackedTickers(t *testing.T) {
	server := quoteServer(t, []Quote{
		{Ticker: "IWM", Price: 230.0, TimestampMs: 1},
		{Ticker: "SPY", Price: 412.37, TimestampMs: 2},
	})
	defer server.Close()

	streamer, err := NewQuoteStreamer(context.Background(), wsURL(server), []string{"SPY"}, nil)
	if err != nil {
		t.Fatalf("NewQuoteStreamer: %v", err)
	}
	defer streamer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := streamer.WaitForQuote(ctx, "SPY"); err != nil {
		t.Fatalf("WaitForQuote: %v", err)
	}

	if _, ok := streamer.LastPrice("IWM"); ok {
		t.Error("untracked ticker must not be recorded")
	}
}

func TestQuoteStreamer_RecoversAfterFailedReconnect(t *testing.T) {
	var dials atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := dials.Add(1)
		// Dials 2 and 3: endpoint is down, so the reconnect attempt
		// itself fails and the streamer is left without a connection.
		if n == 2 || n == 3 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}

		// Dial 1: drop the session right after subscribe to force the
		// first reconnect.
		if n == 1 {
			return
		}

		if err := conn.WriteJSON(Quote{Ticker: "SPY", Price: 401.5, TimestampMs: 9}); err != nil {
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	cfg := DefaultQuoteStreamConfig()
	cfg.ReconnectDelay = 5 * time.Millisecond

	streamer, err := NewQuoteStreamer(context.Background(), wsURL(server), []string{"SPY"}, &cfg)
	if err != nil {
		t.Fatalf("NewQuoteStreamer: %v", err)
	}
	defer streamer.Close()

	deadline := time.Now().Add(5 * time.Second)
	for {
		if price, ok := streamer.LastPrice("SPY"); ok && price == 401.5 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("stream never recovered after failed reconnect (%d dials)", dials.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}

	if got := dials.Load(); got < 4 {
		t.Errorf("expected at least 4 dials, got %d", got)
	}
}

func TestQuoteStreamer_DialFailure(t *testing.T) {
	_, err := NewQuoteStreamer(context.Background(), "ws://127.0.0.1:1", []string{"SPY"}, nil)
	if err == nil {
		t.Fatal("expected dial error")
	}
}

func TestQuoteStreamer_CloseIsIdempotent(t *testing.T) {
	server := quoteServer(t, nil)
	defer server.Close()

	streamer, err := NewQuoteStreamer(context.Background(), wsURL(server), []string{"SPY"}, nil)
	if err != nil {
		t.Fatalf("NewQuoteStreamer: %v", err)
	}

	if err := streamer.Close(); err != nil {
		t.Errorf("first close: %v", err)
	}
	if err := streamer.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
}
