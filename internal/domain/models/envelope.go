package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind tags the payload carried by an Envelope. The kind alone determines
// the payload's shape; payloads do not self-describe.
type Kind string

const (
	KindMarketData      Kind = "market_data"
	KindSetupAlert      Kind = "setup_alert"
	KindError           Kind = "error"
	KindSubscriptionAck Kind = "subscription_ack"
)

// SubscriptionAck confirms a per-symbol subscribe or unsubscribe.
type SubscriptionAck struct {
	Action string      `json:"action"`
	Symbol TradingPair `json:"symbol"`
}

const (
	AckSubscribed   = "subscribed"
	AckUnsubscribed = "unsubscribed"
)

// Envelope is the tagged-union wire message of the feed. Exactly one of the
// payload fields is set, matching Kind.
type Envelope struct {
	Kind      Kind
	Timestamp time.Time

	Market *MarketData
	Setup  *TradeSetup
	Ack    *SubscriptionAck
	Error  string
}

func NewMarketEnvelope(m *MarketData) *Envelope {
	return &Envelope{Kind: KindMarketData, Timestamp: m.Timestamp, Market: m}
}

func NewSetupEnvelope(s *TradeSetup) *Envelope {
	return &Envelope{Kind: KindSetupAlert, Timestamp: s.Timestamp, Setup: s}
}

func NewAckEnvelope(action string, pair TradingPair) *Envelope {
	return &Envelope{
		Kind:      KindSubscriptionAck,
		Timestamp: time.Now().UTC(),
		Ack:       &SubscriptionAck{Action: action, Symbol: pair},
	}
}

func NewErrorEnvelope(msg string) *Envelope {
	return &Envelope{Kind: KindError, Timestamp: time.Now().UTC(), Error: msg}
}

// Symbol returns the pair the envelope refers to, or "" for error envelopes.
func (e *Envelope) Symbol() TradingPair {
	switch e.Kind {
	case KindMarketData:
		if e.Market != nil {
			return e.Market.Symbol
		}
	case KindSetupAlert:
		if e.Setup != nil {
			return e.Setup.Symbol
		}
	case KindSubscriptionAck:
		if e.Ack != nil {
			return e.Ack.Symbol
		}
	}
	return ""
}

// Validate checks that the kind agrees with the payload that is set. It is
// the hardening boundary: dispatchers drop envelopes that fail here instead
// of letting a mis-shaped payload reach a consumer.
func (e *Envelope) Validate() error {
	if e == nil {
		return fmt.Errorf("envelope nil")
	}
	switch e.Kind {
	case KindMarketData:
		if e.Market == nil {
			return fmt.Errorf("market_data envelope without snapshot")
		}
		if e.Market.Symbol == "" {
			return fmt.Errorf("market_data envelope without symbol")
		}
		if e.Market.Price <= 0 {
			return fmt.Errorf("market_data price must be positive, got %v", e.Market.Price)
		}
		if e.Market.Volume < 0 {
			return fmt.Errorf("market_data volume negative")
		}
	case KindSetupAlert:
		if e.Setup == nil {
			return fmt.Errorf("setup_alert envelope without setup")
		}
		if e.Setup.Symbol == "" {
			return fmt.Errorf("setup_alert envelope without symbol")
		}
		if !e.Setup.SignalStrength.Valid() {
			return fmt.Errorf("setup_alert invalid signal strength %q", e.Setup.SignalStrength)
		}
	case KindSubscriptionAck:
		if e.Ack == nil {
			return fmt.Errorf("subscription_ack envelope without ack")
		}
	case KindError:
		if e.Error == "" {
			return fmt.Errorf("error envelope without message")
		}
	default:
		return fmt.Errorf("unknown envelope kind %q", e.Kind)
	}
	return nil
}

// wireEnvelope is the serialized form: {"type": ..., "data": ..., "timestamp": ...}.
type wireEnvelope struct {
	Type      Kind            `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp *time.Time      `json:"timestamp,omitempty"`
}

func (e *Envelope) MarshalJSON() ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	var (
		data []byte
		err  error
	)
	switch e.Kind {
	case KindMarketData:
		data, err = json.Marshal(e.Market)
	case KindSetupAlert:
		data, err = json.Marshal(e.Setup)
	case KindSubscriptionAck:
		data, err = json.Marshal(e.Ack)
	case KindError:
		data, err = json.Marshal(e.Error)
	}
	if err != nil {
		return nil, err
	}
	w := wireEnvelope{Type: e.Kind, Data: data}
	if !e.Timestamp.IsZero() {
		ts := e.Timestamp
		w.Timestamp = &ts
	}
	return json.Marshal(w)
}

func (e *Envelope) UnmarshalJSON(b []byte) error {
	var w wireEnvelope
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	e.Kind = w.Type
	if w.Timestamp != nil {
		e.Timestamp = *w.Timestamp
	}
	switch w.Type {
	case KindMarketData:
		e.Market = &MarketData{}
		if err := json.Unmarshal(w.Data, e.Market); err != nil {
			return fmt.Errorf("decode market_data: %w", err)
		}
	case KindSetupAlert:
		e.Setup = &TradeSetup{}
		if err := json.Unmarshal(w.Data, e.Setup); err != nil {
			return fmt.Errorf("decode setup_alert: %w", err)
		}
	case KindSubscriptionAck:
		e.Ack = &SubscriptionAck{}
		if err := json.Unmarshal(w.Data, e.Ack); err != nil {
			return fmt.Errorf("decode subscription_ack: %w", err)
		}
	case KindError:
		if err := json.Unmarshal(w.Data, &e.Error); err != nil {
			return fmt.Errorf("decode error payload: %w", err)
		}
	default:
		return fmt.Errorf("unknown envelope kind %q", w.Type)
	}
	return nil
}
