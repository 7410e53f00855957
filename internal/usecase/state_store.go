package usecase

import (
	"sync"

	"TradeDash/internal/domain/models"
	domrepo "TradeDash/internal/domain/repository"
)

var _ domrepo.StateView = (*StateStore)(nil)

// StateStore holds the latest known snapshot and the latest setup per
// tracked pair. Snapshots replace wholesale: there is no partial-field
// merging, and setups are sparse, so absence is represented and
// distinguishable from a zero value. The store is read by HTTP and
// websocket handlers on other goroutines, so access is serialized.
type StateStore struct {
	mu      sync.RWMutex
	pairs   []models.TradingPair
	markets map[models.TradingPair]models.MarketData
	setups  map[models.TradingPair]models.TradeSetup
}

// NewStateStore creates an empty store for the given pair set.
func NewStateStore(pairs []models.TradingPair) *StateStore {
	return &StateStore{
		pairs:   pairs,
		markets: make(map[models.TradingPair]models.MarketData, len(pairs)),
		setups:  make(map[models.TradingPair]models.TradeSetup, len(pairs)),
	}
}

// ApplyMarket replaces the stored snapshot for the payload's pair.
func (s *StateStore) ApplyMarket(md *models.MarketData) {
	s.mu.Lock()
	s.markets[md.Symbol] = *md
	s.mu.Unlock()
}

// ApplySetup replaces the stored setup for the payload's pair.
func (s *StateStore) ApplySetup(setup *models.TradeSetup) {
	s.mu.Lock()
	s.setups[setup.Symbol] = *setup
	s.mu.Unlock()
}

// Snapshot returns a copy of the latest snapshot for the pair, if any.
func (s *StateStore) Snapshot(pair models.TradingPair) (models.MarketData, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	md, ok := s.markets[pair]
	return md, ok
}

// Setup returns a copy of the latest setup for the pair, if any.
func (s *StateStore) Setup(pair models.TradingPair) (models.TradeSetup, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	setup, ok := s.setups[pair]
	return setup, ok
}

// Pairs returns the tracked pair set in display order.
func (s *StateStore) Pairs() []models.TradingPair {
	out := make([]models.TradingPair, len(s.pairs))
	copy(out, s.pairs)
	return out
}

// Reset discards all entries. Called on dashboard unmount; nothing
// persists across mounts.
func (s *StateStore) Reset() {
	s.mu.Lock()
	s.markets = make(map[models.TradingPair]models.MarketData, len(s.pairs))
	s.setups = make(map[models.TradingPair]models.TradeSetup, len(s.pairs))
	s.mu.Unlock()
}
