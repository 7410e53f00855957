// Package mockfeed implements the FeedConnection contract with an
// in-process generator producing randomized market envelopes on a timer.
// Production deployments swap it for the websocket-backed connection in
// internal/service/wsfeed; both sides speak the same envelope schema.
package mockfeed

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"TradeDash/internal/domain/models"
	domrepo "TradeDash/internal/domain/repository"
	mid "TradeDash/internal/middleware"
	applogger "TradeDash/pkg/logger"
)

var (
	ErrAlreadyConnected = errors.New("mockfeed: already connected")
	ErrNotConnected     = errors.New("mockfeed: not connected")
	ErrUnknownPair      = errors.New("mockfeed: pair not tracked")
)

const (
	defaultTickInterval = time.Second
	defaultSetupProb    = 0.10
)

// seedBook holds the starting price/volume for every tracked pair.
var seedBook = map[models.TradingPair]pairState{
	models.PairBTCUSD:  {price: 50000, volume: 1000},
	models.PairETHUSD:  {price: 3000, volume: 500},
	models.PairXRPUSD:  {price: 0.5, volume: 10000},
	models.PairSOLUSD:  {price: 100, volume: 200},
	models.PairAVAXUSD: {price: 30, volume: 150},
	models.PairLINKUSD: {price: 15, volume: 300},
}

type pairState struct {
	price  float64
	volume float64
}

// Connection is one owned feed instance: it holds the generation lifecycle,
// the running per-pair walk state, and (through its dispatcher) the
// subscriber registry. Each dashboard mount owns its own Connection, so
// independent mounts never cross-contaminate.
type Connection struct {
	log        *applogger.Logger
	metrics    domrepo.Metrics
	dispatcher *mid.Dispatcher

	tickInterval time.Duration
	setupProb    float64
	queueSize    int
	rand         *rand.Rand

	pairs []models.TradingPair
	book  map[models.TradingPair]*pairState

	filterMu sync.RWMutex
	filter   map[models.TradingPair]struct{}

	mu        sync.Mutex
	connected bool
	clientID  string
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// Option configures Connection construction parameters.
type Option func(*Connection)

// WithTickInterval overrides the default 1s generation cadence.
func WithTickInterval(d time.Duration) Option {
	return func(c *Connection) {
		if d > 0 {
			c.tickInterval = d
		}
	}
}

// WithSetupProbability overrides the per-tick chance of a setup alert.
func WithSetupProbability(p float64) Option {
	return func(c *Connection) {
		if p >= 0 && p <= 1 {
			c.setupProb = p
		}
	}
}

// WithRand injects a seeded source for deterministic generation in tests.
func WithRand(r *rand.Rand) Option {
	return func(c *Connection) { c.rand = r }
}

// WithQueueSize sets the dispatcher buffer between generation and fan-out.
func WithQueueSize(n int) Option {
	return func(c *Connection) {
		if n > 0 {
			c.queueSize = n
		}
	}
}

// WithPairs restricts generation to a subset of the tracked pair set.
func WithPairs(pairs []models.TradingPair) Option {
	return func(c *Connection) {
		if len(pairs) > 0 {
			c.pairs = pairs
		}
	}
}

// New constructs a disconnected mock feed for the given pairs.
func New(log *applogger.Logger, metrics domrepo.Metrics, opts ...Option) *Connection {
	c := &Connection{
		log:          log,
		metrics:      metrics,
		tickInterval: defaultTickInterval,
		setupProb:    defaultSetupProb,
		rand:         rand.New(rand.NewSource(time.Now().UnixNano())),
		pairs:        models.AllPairs(),
		filter:       make(map[models.TradingPair]struct{}),
		queueSize:    256,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.book = make(map[models.TradingPair]*pairState, len(c.pairs))
	for _, p := range c.pairs {
		seed := seedBook[p]
		c.book[p] = &pairState{price: seed.price, volume: seed.volume}
	}
	c.dispatcher = mid.NewDispatcher(metrics, mid.WithQueueSize(c.queueSize))
	return c
}

// Connect begins producing envelopes for every tracked pair. It returns
// immediately; generation runs on the connection's own goroutine. A second
// Connect on a live connection is refused rather than double-starting the
// scheduler. Reconnecting after Disconnect is supported: the scheduler and
// queue are rebuilt fresh, the walk state and registry carry over.
func (c *Connection) Connect(ctx context.Context, clientID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected {
		return ErrAlreadyConnected
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.connected = true
	c.clientID = clientID
	c.cancel = cancel

	c.dispatcher.Start(runCtx)
	sched := newSchedule(c.pairs, c.tickInterval, time.Now())

	c.wg.Add(1)
	go c.run(runCtx, sched)

	c.log.Info("mock feed connected",
		applogger.String("client_id", clientID),
		applogger.Int("pairs", len(c.pairs)),
		applogger.Duration("tick", c.tickInterval),
	)
	return nil
}

// run is the single driving loop: it sleeps until the earliest pair is due,
// generates for everything due, and reschedules. Walk state and the random
// source are touched only here.
func (c *Connection) run(ctx context.Context, sched *schedule) {
	defer c.wg.Done()

	timer := time.NewTimer(time.Until(sched.nextAt()))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-timer.C:
			for _, pair := range sched.due(now) {
				c.tick(pair)
			}
			timer.Reset(time.Until(sched.nextAt()))
		}
	}
}

// tick produces one generation cycle for a pair: always a market_data
// envelope, and with setupProb an additional setup_alert. The market
// snapshot is enqueued first, so within one pair's tick market data is
// always delivered before its same-tick alert.
func (c *Connection) tick(pair models.TradingPair) {
	st := c.book[pair]
	md := c.nextMarketData(pair, st)

	var setup *models.TradeSetup
	if c.rand.Float64() < c.setupProb {
		setup = c.nextSetup(pair, md.Price)
	}

	if !c.allowed(pair) {
		return
	}

	if err := c.dispatcher.Publish(models.NewMarketEnvelope(md)); err != nil {
		c.log.Warn("market envelope dropped", applogger.String("symbol", string(pair)), applogger.Error(err))
	}
	if c.metrics != nil {
		c.metrics.RecordLastPrice(string(pair), md.Price)
	}

	if setup != nil {
		if err := c.dispatcher.Publish(models.NewSetupEnvelope(setup)); err != nil {
			c.log.Warn("setup envelope dropped", applogger.String("symbol", string(pair)), applogger.Error(err))
		}
	}
}

// allowed reports whether envelopes for the pair are currently delivered.
// An empty symbol-subscription set means "everything": subscribers that
// never narrow their interest get the full stream.
func (c *Connection) allowed(pair models.TradingPair) bool {
	c.filterMu.RLock()
	defer c.filterMu.RUnlock()
	if len(c.filter) == 0 {
		return true
	}
	_, ok := c.filter[pair]
	return ok
}

// Subscribe registers a handler with the dispatcher.
func (c *Connection) Subscribe(h domrepo.EnvelopeHandler) domrepo.SubscriptionID {
	return c.dispatcher.Subscribe(h)
}

// Unsubscribe removes a handler; unknown ids are a no-op.
func (c *Connection) Unsubscribe(id domrepo.SubscriptionID) {
	c.dispatcher.Unsubscribe(id)
}

// SubscribeToSymbol narrows delivery to the subscribed pair set and
// acknowledges over the feed when connected.
func (c *Connection) SubscribeToSymbol(pair models.TradingPair) error {
	if _, ok := c.book[pair]; !ok {
		return ErrUnknownPair
	}
	c.filterMu.Lock()
	c.filter[pair] = struct{}{}
	c.filterMu.Unlock()

	if c.IsConnected() {
		_ = c.dispatcher.Publish(models.NewAckEnvelope(models.AckSubscribed, pair))
	}
	return nil
}

// UnsubscribeFromSymbol removes a pair from the subscribed set.
func (c *Connection) UnsubscribeFromSymbol(pair models.TradingPair) error {
	if _, ok := c.book[pair]; !ok {
		return ErrUnknownPair
	}
	c.filterMu.Lock()
	delete(c.filter, pair)
	c.filterMu.Unlock()

	if c.IsConnected() {
		_ = c.dispatcher.Publish(models.NewAckEnvelope(models.AckUnsubscribed, pair))
	}
	return nil
}

// Publish delivers one envelope to all subscribers through the dispatcher.
func (c *Connection) Publish(env *models.Envelope) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return c.dispatcher.Publish(env)
}

// Disconnect stops generation and delivery. Safe to call repeatedly and
// from teardown paths; after it returns no envelope reaches any subscriber.
func (c *Connection) Disconnect() error {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return nil
	}
	c.connected = false
	cancel := c.cancel
	c.mu.Unlock()

	cancel()
	c.wg.Wait()
	c.dispatcher.Stop()

	c.log.Info("mock feed disconnected", applogger.String("client_id", c.clientID))
	return nil
}

// IsConnected indicates status.
func (c *Connection) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

var _ domrepo.FeedConnection = (*Connection)(nil)
