// Package ws relays feed envelopes to browser clients over websockets.
// Each client subscribes to individual symbols with control frames and only
// receives envelopes for those symbols.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"TradeDash/internal/domain/models"
	domrepo "TradeDash/internal/domain/repository"
	"TradeDash/internal/service/ratelimit"
	applogger "TradeDash/pkg/logger"
)

// Hub owns the connected client set and the per-symbol subscription index.
// Broadcast is registered as a feed subscriber; everything the feed emits
// flows through here on its way to the browsers.
type Hub struct {
	log      *applogger.Logger
	metrics  domrepo.Metrics
	validate *validator.Validate
	limiter  *ratelimit.Limiter
	upgrader websocket.Upgrader

	sendBuf  int
	msgRate  float64
	msgBurst float64

	mu      sync.RWMutex
	clients map[*Client]struct{}
	subs    map[models.TradingPair]map[*Client]struct{}
}

type HubOption func(*Hub)

// WithSendBuffer sets the per-client outbound queue length.
func WithSendBuffer(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.sendBuf = n
		}
	}
}

// WithMessageRate throttles control frames per client (tokens/sec, burst).
func WithMessageRate(rate, burst float64) HubOption {
	return func(h *Hub) {
		if rate > 0 {
			h.msgRate = rate
		}
		if burst > 0 {
			h.msgBurst = burst
		}
	}
}

// NewHub creates an empty hub.
func NewHub(log *applogger.Logger, metrics domrepo.Metrics, opts ...HubOption) *Hub {
	h := &Hub{
		log:      log,
		metrics:  metrics,
		validate: validator.New(),
		limiter:  ratelimit.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// The dashboard frontend is served from another origin in dev.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		sendBuf:  64,
		msgRate:  10,
		msgBurst: 20,
		clients:  make(map[*Client]struct{}),
		subs:     make(map[models.TradingPair]map[*Client]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes mounts the websocket endpoint.
func (h *Hub) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/:client_id", h.Serve)
}

// Serve upgrades the request and pumps the connection until the client
// goes away.
func (h *Hub) Serve(c echo.Context) error {
	clientID := c.Param("client_id")
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.metrics.RecordError("ws_upgrade")
		return err
	}

	cl := newClient(h, conn, clientID, h.sendBuf)
	h.register(cl)
	h.log.Info("ws client connected", applogger.String("client_id", clientID))

	go cl.writePump()
	cl.readPump()
	return nil
}

// Broadcast relays one envelope to every client subscribed to its symbol.
// Envelopes without a symbol (error kind) go to everyone. A slow client
// loses the envelope rather than delaying the rest.
func (h *Hub) Broadcast(env *models.Envelope) {
	sym := env.Symbol()

	h.mu.RLock()
	var targets []*Client
	if sym == "" {
		targets = make([]*Client, 0, len(h.clients))
		for cl := range h.clients {
			targets = append(targets, cl)
		}
	} else {
		targets = make([]*Client, 0, len(h.subs[sym]))
		for cl := range h.subs[sym] {
			targets = append(targets, cl)
		}
	}
	h.mu.RUnlock()

	for _, cl := range targets {
		if !cl.trySend(env) {
			h.metrics.RecordError("ws_client_slow")
		}
	}
}

// ClientCount reports connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(cl *Client) {
	h.mu.Lock()
	h.clients[cl] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.metrics.SetWSClients(n)
}

// unregister removes the client from the client set and from every
// subscription index entry.
func (h *Hub) unregister(cl *Client) {
	h.mu.Lock()
	if _, ok := h.clients[cl]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, cl)
	for pair, set := range h.subs {
		delete(set, cl)
		if len(set) == 0 {
			delete(h.subs, pair)
		}
	}
	n := len(h.clients)
	h.mu.Unlock()

	h.metrics.SetWSClients(n)
	cl.close()
	h.log.Info("ws client disconnected", applogger.String("client_id", cl.id))
}

func (h *Hub) subscribe(cl *Client, pair models.TradingPair) {
	h.mu.Lock()
	if h.subs[pair] == nil {
		h.subs[pair] = make(map[*Client]struct{})
	}
	h.subs[pair][cl] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unsubscribe(cl *Client, pair models.TradingPair) {
	h.mu.Lock()
	if set, ok := h.subs[pair]; ok {
		delete(set, cl)
		if len(set) == 0 {
			delete(h.subs, pair)
		}
	}
	h.mu.Unlock()
}

// handleControl processes one client frame: {type: subscribe|unsubscribe,
// symbol}. Bad frames are answered with an error envelope; the connection
// itself stays up.
func (h *Hub) handleControl(cl *Client, raw []byte) {
	if !h.limiter.Allow(cl.id, h.msgBurst, h.msgRate) {
		h.metrics.RecordError("ws_rate_limited")
		cl.trySend(models.NewErrorEnvelope("rate limited"))
		return
	}

	var msg models.ControlMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		h.metrics.RecordError("ws_bad_frame")
		cl.trySend(models.NewErrorEnvelope("malformed control message"))
		return
	}
	if err := h.validate.Struct(&msg); err != nil {
		h.metrics.RecordError("ws_bad_frame")
		cl.trySend(models.NewErrorEnvelope("invalid control message"))
		return
	}
	pair, err := models.ParsePair(msg.Symbol)
	if err != nil {
		h.metrics.RecordError("ws_bad_frame")
		cl.trySend(models.NewErrorEnvelope(err.Error()))
		return
	}

	switch msg.Type {
	case "subscribe":
		h.subscribe(cl, pair)
		cl.trySend(models.NewAckEnvelope(models.AckSubscribed, pair))
	case "unsubscribe":
		h.unsubscribe(cl, pair)
		cl.trySend(models.NewAckEnvelope(models.AckUnsubscribed, pair))
	}
}
