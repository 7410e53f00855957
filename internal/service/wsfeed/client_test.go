package wsfeed

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"TradeDash/internal/domain/models"
	wshandler "TradeDash/internal/handler/ws"
	applogger "TradeDash/pkg/logger"
)

type nopMetrics struct{}

func (nopMetrics) RecordEnvelope(kind, symbol string)           {}
func (nopMetrics) RecordError(kind string)                      {}
func (nopMetrics) RecordLastPrice(symbol string, price float64) {}
func (nopMetrics) RecordLatency(op string, seconds float64)     {}
func (nopMetrics) SetSubscribers(n int)                         {}
func (nopMetrics) SetWSClients(n int)                           {}

type collector struct {
	mu   sync.Mutex
	envs []*models.Envelope
}

func (c *collector) handle(env *models.Envelope) {
	c.mu.Lock()
	c.envs = append(c.envs, env)
	c.mu.Unlock()
}

func (c *collector) snapshot() []*models.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*models.Envelope, len(c.envs))
	copy(out, c.envs)
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}

// startRelay runs a real hub behind httptest and returns its ws base url.
func startRelay(t *testing.T) (*wshandler.Hub, string) {
	t.Helper()
	hub := wshandler.NewHub(applogger.Nop(), nopMetrics{})
	e := echo.New()
	hub.RegisterRoutes(e)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestClientRelaysEnvelopes(t *testing.T) {
	hub, baseURL := startRelay(t)

	c := New(applogger.Nop(), nopMetrics{}, baseURL)
	col := &collector{}
	c.Subscribe(col.handle)

	if err := c.Connect(context.Background(), "client_relay"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Disconnect()
	if !c.IsConnected() {
		t.Fatalf("expected connected")
	}

	if err := c.SubscribeToSymbol(models.PairBTCUSD); err != nil {
		t.Fatalf("subscribe symbol: %v", err)
	}

	// the relay acknowledges the symbol subscription over the wire
	waitFor(t, func() bool {
		for _, env := range col.snapshot() {
			if env.Kind == models.KindSubscriptionAck && env.Ack.Symbol == models.PairBTCUSD {
				return true
			}
		}
		return false
	})

	hub.Broadcast(models.NewMarketEnvelope(&models.MarketData{
		Symbol:    models.PairBTCUSD,
		Price:     50000,
		Volume:    1000,
		Timestamp: time.Now().UTC(),
	}))

	waitFor(t, func() bool {
		for _, env := range col.snapshot() {
			if env.Kind == models.KindMarketData && env.Market.Price == 50000 {
				return true
			}
		}
		return false
	})
}

// Control frames and keepalive pings go out on separate goroutines; a very
// short ping interval under a tight subscribe loop must not corrupt the
// connection.
func TestClientControlSafeDuringKeepalives(t *testing.T) {
	_, baseURL := startRelay(t)

	c := New(applogger.Nop(), nopMetrics{}, baseURL,
		WithPingInterval(time.Millisecond))
	if err := c.Connect(context.Background(), "client_ping"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Disconnect()

	deadline := time.Now().Add(250 * time.Millisecond)
	for time.Now().Before(deadline) {
		if err := c.SubscribeToSymbol(models.PairBTCUSD); err != nil {
			t.Fatalf("subscribe during keepalives: %v", err)
		}
		if err := c.UnsubscribeFromSymbol(models.PairBTCUSD); err != nil {
			t.Fatalf("unsubscribe during keepalives: %v", err)
		}
	}
	if !c.IsConnected() {
		t.Fatalf("connection died under keepalive load")
	}
}

func TestClientRejectsDoubleConnect(t *testing.T) {
	_, baseURL := startRelay(t)

	c := New(applogger.Nop(), nopMetrics{}, baseURL)
	if err := c.Connect(context.Background(), "client_a"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Disconnect()

	if err := c.Connect(context.Background(), "client_b"); err == nil {
		t.Fatalf("expected error on double connect")
	}
}

func TestClientControlRequiresConnection(t *testing.T) {
	c := New(applogger.Nop(), nopMetrics{}, "ws://127.0.0.1:0")
	if err := c.SubscribeToSymbol(models.PairBTCUSD); err == nil {
		t.Fatalf("expected not connected error")
	}
	if err := c.SubscribeToSymbol(models.TradingPair("DOGEUSD")); err == nil {
		t.Fatalf("expected unknown pair error")
	}
	if c.IsConnected() {
		t.Fatalf("never connected")
	}
}

func TestClientDisconnectIsIdempotent(t *testing.T) {
	_, baseURL := startRelay(t)

	c := New(applogger.Nop(), nopMetrics{}, baseURL)
	if err := c.Connect(context.Background(), "client_a"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := c.Disconnect(); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if err := c.Disconnect(); err != nil {
		t.Fatalf("second disconnect: %v", err)
	}
	if c.IsConnected() {
		t.Fatalf("still connected")
	}
}
