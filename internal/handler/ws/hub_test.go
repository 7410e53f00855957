package ws

import (
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"TradeDash/internal/domain/models"
	applogger "TradeDash/pkg/logger"
)

type nopMetrics struct{}

func (nopMetrics) RecordEnvelope(kind, symbol string)           {}
func (nopMetrics) RecordError(kind string)                      {}
func (nopMetrics) RecordLastPrice(symbol string, price float64) {}
func (nopMetrics) RecordLatency(op string, seconds float64)     {}
func (nopMetrics) SetSubscribers(n int)                         {}
func (nopMetrics) SetWSClients(n int)                           {}

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(applogger.Nop(), nopMetrics{})
	e := echo.New()
	hub.RegisterRoutes(e)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, clientID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + clientID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) *models.Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env models.Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read envelope: %v", err)
	}
	return &env
}

func TestHubSubscribeAck(t *testing.T) {
	_, srv := startHub(t)
	conn := dial(t, srv, "client_1")

	msg := models.ControlMessage{Type: "subscribe", Symbol: "BTCUSD"}
	if err := conn.WriteJSON(&msg); err != nil {
		t.Fatalf("write control: %v", err)
	}

	env := readEnvelope(t, conn)
	if env.Kind != models.KindSubscriptionAck {
		t.Fatalf("kind = %q", env.Kind)
	}
	if env.Ack.Action != models.AckSubscribed || env.Ack.Symbol != models.PairBTCUSD {
		t.Fatalf("ack = %+v", env.Ack)
	}
}

func TestHubBroadcastRespectsSubscriptions(t *testing.T) {
	hub, srv := startHub(t)
	btcConn := dial(t, srv, "client_btc")
	ethConn := dial(t, srv, "client_eth")

	if err := btcConn.WriteJSON(&models.ControlMessage{Type: "subscribe", Symbol: "BTCUSD"}); err != nil {
		t.Fatalf("subscribe btc: %v", err)
	}
	if err := ethConn.WriteJSON(&models.ControlMessage{Type: "subscribe", Symbol: "ETHUSD"}); err != nil {
		t.Fatalf("subscribe eth: %v", err)
	}
	readEnvelope(t, btcConn) // acks
	readEnvelope(t, ethConn)

	hub.Broadcast(models.NewMarketEnvelope(&models.MarketData{
		Symbol:    models.PairBTCUSD,
		Price:     50000,
		Volume:    1000,
		Timestamp: time.Now().UTC(),
	}))

	env := readEnvelope(t, btcConn)
	if env.Kind != models.KindMarketData || env.Market.Symbol != models.PairBTCUSD {
		t.Fatalf("btc client got %+v", env)
	}

	// the eth subscriber must not receive the btc tick
	ethConn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var stray models.Envelope
	if err := ethConn.ReadJSON(&stray); err == nil {
		t.Fatalf("eth client received btc envelope: %+v", stray)
	}
}

func TestHubErrorEnvelopeGoesToEveryone(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv, "client_1")

	// no symbol subscription at all
	hub.Broadcast(models.NewErrorEnvelope("feed stalled"))

	env := readEnvelope(t, conn)
	if env.Kind != models.KindError || env.Error != "feed stalled" {
		t.Fatalf("got %+v", env)
	}
}

func TestHubRejectsBadControlFrames(t *testing.T) {
	_, srv := startHub(t)
	conn := dial(t, srv, "client_1")

	cases := []string{
		`not json`,
		`{"type":"subscribe"}`,
		`{"type":"resubscribe","symbol":"BTCUSD"}`,
		`{"type":"subscribe","symbol":"DOGEUSD"}`,
	}
	for _, raw := range cases {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
			t.Fatalf("write %q: %v", raw, err)
		}
		env := readEnvelope(t, conn)
		if env.Kind != models.KindError {
			t.Fatalf("frame %q: got kind %q, want error", raw, env.Kind)
		}
	}
}

func TestHubUnsubscribeStopsDelivery(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv, "client_1")

	if err := conn.WriteJSON(&models.ControlMessage{Type: "subscribe", Symbol: "BTCUSD"}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	readEnvelope(t, conn)

	if err := conn.WriteJSON(&models.ControlMessage{Type: "unsubscribe", Symbol: "BTCUSD"}); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	env := readEnvelope(t, conn)
	if env.Ack == nil || env.Ack.Action != models.AckUnsubscribed {
		t.Fatalf("unsubscribe ack = %+v", env)
	}

	hub.Broadcast(models.NewMarketEnvelope(&models.MarketData{
		Symbol: models.PairBTCUSD, Price: 1, Volume: 1, Timestamp: time.Now().UTC(),
	}))

	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var stray models.Envelope
	if err := conn.ReadJSON(&stray); err == nil {
		t.Fatalf("received envelope after unsubscribe: %+v", stray)
	}
}

// A broadcast snapshots the client set and delivers outside the lock, so it
// can reach a client the unregister path already closed. That must drop the
// envelope, never panic.
func TestHubBroadcastAfterClientClose(t *testing.T) {
	hub := NewHub(applogger.Nop(), nopMetrics{})
	cl := newClient(hub, nil, "client_gone", hub.sendBuf)
	hub.register(cl)

	cl.close()

	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("broadcast after close panicked: %v", r)
		}
	}()
	hub.Broadcast(models.NewErrorEnvelope("feed stalled"))
	if cl.trySend(models.NewErrorEnvelope("feed stalled")) {
		t.Fatalf("send to a closed client should report a drop")
	}
}

func TestHubBroadcastDuringClientChurn(t *testing.T) {
	hub, srv := startHub(t)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				hub.Broadcast(models.NewErrorEnvelope("churn"))
			}
		}
	}()

	for i := 0; i < 20; i++ {
		conn := dial(t, srv, "client_churn")
		conn.Close()
	}

	close(stop)
	wg.Wait()
}

func TestHubTracksClientCount(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv, "client_1")

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.ClientCount() != 1 {
		t.Fatalf("client count = %d", hub.ClientCount())
	}

	conn.Close()
	deadline = time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.ClientCount() != 0 {
		t.Fatalf("client count after close = %d", hub.ClientCount())
	}
}
