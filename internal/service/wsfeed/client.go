// Package wsfeed implements a feed connection over a websocket to a remote
// envelope relay, such as another instance of this service. The wire frames
// are the same tagged envelopes the mock feed produces, so consumers cannot
// tell the two feeds apart.
package wsfeed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"TradeDash/internal/domain/models"
	domrepo "TradeDash/internal/domain/repository"
	"TradeDash/internal/middleware"
	applogger "TradeDash/pkg/logger"
)

// Client connects to baseURL + "/ws/" + clientID and relays decoded
// envelopes to local subscribers through the dispatcher. Symbol filtering
// happens server side: SubscribeToSymbol sends a control frame upstream.
type Client struct {
	log          *applogger.Logger
	metrics      domrepo.Metrics
	dispatcher   *middleware.Dispatcher
	baseURL      string
	pingInterval time.Duration

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

type Option func(*Client)

// WithPingInterval overrides the keepalive cadence.
func WithPingInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pingInterval = d
		}
	}
}

// WithQueueSize sets the local dispatch queue length.
func WithQueueSize(n int) Option {
	return func(c *Client) {
		c.dispatcher = middleware.NewDispatcher(c.metrics, middleware.WithQueueSize(n))
	}
}

// New creates a disconnected relay client for baseURL (e.g. ws://host:8080).
func New(log *applogger.Logger, metrics domrepo.Metrics, baseURL string, opts ...Option) *Client {
	c := &Client{
		log:          log,
		metrics:      metrics,
		dispatcher:   middleware.NewDispatcher(metrics),
		baseURL:      baseURL,
		pingInterval: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ domrepo.FeedConnection = (*Client)(nil)

// Connect dials the relay and starts the read and ping loops.
func (c *Client) Connect(ctx context.Context, clientID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected {
		return fmt.Errorf("wsfeed: already connected")
	}

	u := c.baseURL + "/ws/" + clientID
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("wsfeed connect %s: %w", u, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c.conn = conn
	c.connected = true
	c.cancel = cancel
	c.dispatcher.Start(runCtx)

	c.wg.Add(2)
	go c.readLoop(runCtx, conn)
	go c.pingLoop(runCtx, conn)

	c.log.Info("wsfeed connected",
		applogger.String("url", u),
		applogger.String("client_id", clientID))
	return nil
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer c.wg.Done()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.log.Error("wsfeed read", applogger.Error(err))
				c.metrics.RecordError("wsfeed_read")
			}
			return
		}
		var env models.Envelope
		if err := env.UnmarshalJSON(raw); err != nil {
			c.metrics.RecordError("wsfeed_decode")
			continue
		}
		if err := c.dispatcher.Publish(&env); err != nil {
			return
		}
	}
}

func (c *Client) pingLoop(ctx context.Context, conn *websocket.Conn) {
	defer c.wg.Done()
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// WriteControl is the only write safe to issue concurrently
			// with the data writes in sendControl.
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
				return
			}
		}
	}
}

// Subscribe registers a local handler for relayed envelopes.
func (c *Client) Subscribe(h domrepo.EnvelopeHandler) domrepo.SubscriptionID {
	return c.dispatcher.Subscribe(h)
}

// Unsubscribe removes a handler registered with Subscribe.
func (c *Client) Unsubscribe(id domrepo.SubscriptionID) {
	c.dispatcher.Unsubscribe(id)
}

// SubscribeToSymbol asks the relay to start sending this symbol.
func (c *Client) SubscribeToSymbol(pair models.TradingPair) error {
	return c.sendControl("subscribe", pair)
}

// UnsubscribeFromSymbol asks the relay to stop sending this symbol.
func (c *Client) UnsubscribeFromSymbol(pair models.TradingPair) error {
	return c.sendControl("unsubscribe", pair)
}

func (c *Client) sendControl(typ string, pair models.TradingPair) error {
	if _, err := models.ParsePair(string(pair)); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return fmt.Errorf("wsfeed: not connected")
	}
	msg := models.ControlMessage{Type: typ, Symbol: string(pair)}
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := c.conn.WriteJSON(&msg); err != nil {
		return fmt.Errorf("wsfeed %s %s: %w", typ, pair, err)
	}
	return nil
}

// Publish injects an envelope into the local dispatch queue. It does not
// travel upstream; the relay is read-only from this side.
func (c *Client) Publish(env *models.Envelope) error {
	c.mu.Lock()
	connected := c.connected
	c.mu.Unlock()
	if !connected {
		return fmt.Errorf("wsfeed: not connected")
	}
	return c.dispatcher.Publish(env)
}

// Disconnect closes the connection and stops delivery. Safe to call twice.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return nil
	}
	c.connected = false
	cancel := c.cancel
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	cancel()
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	conn.Close()
	c.wg.Wait()
	c.dispatcher.Stop()
	c.log.Info("wsfeed disconnected")
	return nil
}

// IsConnected reports the connection state.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}
