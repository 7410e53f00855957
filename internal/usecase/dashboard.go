package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"TradeDash/internal/domain/models"
	domrepo "TradeDash/internal/domain/repository"
	applogger "TradeDash/pkg/logger"
)

// DashState tracks the controller lifecycle: UNMOUNTED -> CONNECTING ->
// STREAMING -> UNMOUNTED (terminal). There is no reconnect path.
type DashState int32

const (
	StateUnmounted DashState = iota
	StateConnecting
	StateStreaming
)

func (s DashState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	default:
		return "unmounted"
	}
}

// Dashboard wires a feed connection to the symbol state store. It owns the
// store and the single subscription; the feed owns its own registry and
// timers. Each Dashboard generates a fresh client id per Start so separate
// mounts never collide on a shared server.
type Dashboard struct {
	feed    domrepo.FeedConnection
	store   *StateStore
	metrics domrepo.Metrics
	log     *applogger.Logger
	pairs   []models.TradingPair

	state    atomic.Int32
	clientID string
	subID    domrepo.SubscriptionID
	stopOnce sync.Once
}

// NewDashboard creates an unmounted controller over the given pairs.
func NewDashboard(feed domrepo.FeedConnection, metrics domrepo.Metrics, log *applogger.Logger, pairs []models.TradingPair) *Dashboard {
	return &Dashboard{
		feed:    feed,
		store:   NewStateStore(pairs),
		metrics: metrics,
		log:     log,
		pairs:   pairs,
	}
}

// Start connects the feed, registers the envelope handler, and issues a
// per-symbol subscription for every tracked pair.
func (d *Dashboard) Start(ctx context.Context) error {
	if !d.state.CompareAndSwap(int32(StateUnmounted), int32(StateConnecting)) {
		return fmt.Errorf("dashboard: already started")
	}

	d.clientID = "client_" + uuid.NewString()
	if err := d.feed.Connect(ctx, d.clientID); err != nil {
		d.state.Store(int32(StateUnmounted))
		return fmt.Errorf("dashboard connect: %w", err)
	}

	d.subID = d.feed.Subscribe(d.handle)
	for _, pair := range d.pairs {
		if err := d.feed.SubscribeToSymbol(pair); err != nil {
			d.log.Warn("symbol subscription failed",
				applogger.String("symbol", string(pair)), applogger.Error(err))
		}
	}

	d.state.Store(int32(StateStreaming))
	d.log.Info("dashboard streaming",
		applogger.String("client_id", d.clientID),
		applogger.Int("pairs", len(d.pairs)),
	)
	return nil
}

// handle is the single subscriber callback: it classifies the envelope by
// kind and merges the payload into the store. Mis-shaped envelopes are
// dropped at this boundary instead of reaching rendering.
func (d *Dashboard) handle(env *models.Envelope) {
	if err := env.Validate(); err != nil {
		d.metrics.RecordError("envelope_invalid")
		d.log.Warn("envelope dropped", applogger.Error(err))
		return
	}

	switch env.Kind {
	case models.KindMarketData:
		d.store.ApplyMarket(env.Market)
	case models.KindSetupAlert:
		d.store.ApplySetup(env.Setup)
	case models.KindError:
		d.log.Warn("feed error", applogger.String("message", env.Error))
	case models.KindSubscriptionAck:
		d.log.Debug("subscription ack",
			applogger.String("action", env.Ack.Action),
			applogger.String("symbol", string(env.Ack.Symbol)),
		)
	}
}

// Stop tears the dashboard down: the subscription is removed, the feed is
// disconnected exactly once, and the store is discarded. Safe to call
// repeatedly; only the first call does anything.
func (d *Dashboard) Stop() {
	d.stopOnce.Do(func() {
		d.feed.Unsubscribe(d.subID)
		if err := d.feed.Disconnect(); err != nil {
			d.log.Warn("feed disconnect error", applogger.Error(err))
		}
		d.store.Reset()
		d.state.Store(int32(StateUnmounted))
		d.log.Info("dashboard unmounted", applogger.String("client_id", d.clientID))
	})
}

// State reports the current lifecycle phase.
func (d *Dashboard) State() DashState {
	return DashState(d.state.Load())
}

// View exposes the read side of the store to presentation consumers.
func (d *Dashboard) View() domrepo.StateView {
	return d.store
}

// ClientID returns the identifier used for the current mount.
func (d *Dashboard) ClientID() string {
	return d.clientID
}
