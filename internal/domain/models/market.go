package models

import (
	"fmt"
	"time"
)

// TradingPair identifies one of the fixed set of tracked markets.
type TradingPair string

const (
	PairBTCUSD  TradingPair = "BTCUSD"
	PairETHUSD  TradingPair = "ETHUSD"
	PairXRPUSD  TradingPair = "XRPUSD"
	PairSOLUSD  TradingPair = "SOLUSD"
	PairAVAXUSD TradingPair = "AVAXUSD"
	PairLINKUSD TradingPair = "LINKUSD"
)

// AllPairs returns the closed set of tracked pairs in display order.
func AllPairs() []TradingPair {
	return []TradingPair{PairBTCUSD, PairETHUSD, PairXRPUSD, PairSOLUSD, PairAVAXUSD, PairLINKUSD}
}

// ParsePair validates a symbol string against the closed pair set.
func ParsePair(s string) (TradingPair, error) {
	for _, p := range AllPairs() {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown trading pair %q", s)
}

// SignalStrength is an ordinal conviction level, not a boolean.
type SignalStrength string

const (
	SignalStrong   SignalStrength = "STRONG"
	SignalModerate SignalStrength = "MODERATE"
	SignalWeak     SignalStrength = "WEAK"
	SignalNeutral  SignalStrength = "NEUTRAL"
)

// Rank orders signal strengths by conviction (higher is stronger).
func (s SignalStrength) Rank() int {
	switch s {
	case SignalStrong:
		return 3
	case SignalModerate:
		return 2
	case SignalWeak:
		return 1
	default:
		return 0
	}
}

func (s SignalStrength) Valid() bool {
	switch s {
	case SignalStrong, SignalModerate, SignalWeak, SignalNeutral:
		return true
	}
	return false
}

// SetupType classifies a trade setup.
type SetupType string

const (
	SetupMomentum      SetupType = "MOMENTUM"
	SetupMeanReversion SetupType = "MEAN_REVERSION"
	SetupBreakout      SetupType = "BREAKOUT"
	SetupTrendFollow   SetupType = "TREND_FOLLOWING"
)

// Indicator pairs a numeric reading with its conviction signal.
type Indicator struct {
	Value  float64        `json:"value"`
	Signal SignalStrength `json:"signal"`
}

// BollingerBands carries the three band levels and a signal.
type BollingerBands struct {
	Upper  float64        `json:"upper"`
	Middle float64        `json:"middle"`
	Lower  float64        `json:"lower"`
	Signal SignalStrength `json:"signal"`
}

// MovingAverages carries the SMA ladder and a signal.
type MovingAverages struct {
	SMA20  float64        `json:"sma20"`
	SMA50  float64        `json:"sma50"`
	SMA200 float64        `json:"sma200"`
	Signal SignalStrength `json:"signal"`
}

// IndicatorSet groups every indicator computed for a snapshot.
type IndicatorSet struct {
	RSI           Indicator      `json:"rsi"`
	MACD          Indicator      `json:"macd"`
	Bollinger     BollingerBands `json:"bb"`
	SMA           MovingAverages `json:"sma"`
	VolumeProfile Indicator      `json:"volume_profile"`
	Momentum      Indicator      `json:"momentum"`
}

// MarketData is the complete per-pair snapshot at one point in time.
// A new snapshot always replaces the previous one wholesale.
type MarketData struct {
	Symbol      TradingPair  `json:"symbol"`
	Price       float64      `json:"price"`
	Volume      float64      `json:"volume"`
	Timestamp   time.Time    `json:"timestamp"`
	Indicators  IndicatorSet `json:"indicators"`
	DailyChange float64      `json:"dailyChange"`
}

// TradeSetup is a sparse, scored trading-opportunity event.
type TradeSetup struct {
	Symbol              TradingPair    `json:"symbol"`
	SetupType           SetupType      `json:"setup_type"`
	SignalStrength      SignalStrength `json:"signal_strength"`
	Score               float64        `json:"score"`
	RMultiple           float64        `json:"r_multiple"`
	EntryPrice          float64        `json:"entry_price"`
	StopLoss            float64        `json:"stop_loss"`
	TargetPrice         float64        `json:"target_price"`
	Timestamp           time.Time      `json:"timestamp"`
	IndicatorsConfirmed []string       `json:"indicators_confirmed"`
	RiskRewardRatio     float64        `json:"risk_reward_ratio"`
	ConfidenceScore     float64        `json:"confidence_score"`
}
