package repository

import (
	"context"

	"TradeDash/internal/domain/models"
)

// EnvelopeHandler consumes one envelope. Handlers are invoked in
// registration order by the owning connection's dispatcher.
type EnvelopeHandler func(*models.Envelope)

// SubscriptionID identifies a registered handler. Go functions are not
// comparable, so unsubscription is by id rather than by callback identity.
type SubscriptionID int64

// FeedConnection is the streaming distribution layer: one connection owns
// the production (or transport) lifecycle and a subscriber registry.
type FeedConnection interface {
	// Connect starts envelope production. It must not block the caller.
	// A second Connect on a live connection returns an error.
	Connect(ctx context.Context, clientID string) error

	// Subscribe registers a handler for every delivered envelope.
	Subscribe(h EnvelopeHandler) SubscriptionID
	// Unsubscribe removes a handler; unknown ids are a no-op.
	Unsubscribe(id SubscriptionID)

	// SubscribeToSymbol narrows delivery to subscribed pairs. With no
	// symbol subscriptions the connection delivers all tracked pairs.
	SubscribeToSymbol(pair models.TradingPair) error
	UnsubscribeFromSymbol(pair models.TradingPair) error

	// Publish delivers one envelope through the connection's dispatcher.
	Publish(env *models.Envelope) error

	// Disconnect stops all production and delivery. Idempotent; safe from
	// teardown paths. No envelope reaches any subscriber afterwards.
	Disconnect() error

	IsConnected() bool
}

// StateView is the read side of the symbol state store handed to
// presentation consumers. Values are returned by copy.
type StateView interface {
	Snapshot(pair models.TradingPair) (models.MarketData, bool)
	Setup(pair models.TradingPair) (models.TradeSetup, bool)
	Pairs() []models.TradingPair
}

type Metrics interface {
	RecordEnvelope(kind, symbol string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
	SetSubscribers(n int)
	SetWSClients(n int)
}
