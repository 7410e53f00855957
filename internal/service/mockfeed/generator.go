package mockfeed

import (
	"math"
	"time"

	"TradeDash/internal/domain/models"
)

// confirmable is the fixed universe of indicator tags a setup may confirm,
// in the order they appear in the alert.
var confirmable = []string{"RSI", "MACD", "BB", "SMA", "Volume", "Momentum"}

// nextMarketData advances the pair's random walk and derives a full snapshot
// from the new price. Called only from the run loop.
func (c *Connection) nextMarketData(pair models.TradingPair, st *pairState) *models.MarketData {
	st.price *= 1 + (c.rand.Float64()-0.5)*0.02  // 2% max change
	st.volume *= 1 + (c.rand.Float64()-0.5)*0.05 // 5% max change

	price := math.Round(st.price*100) / 100
	rsi := 30 + c.rand.Float64()*40
	macd := -2 + c.rand.Float64()*4

	return &models.MarketData{
		Symbol:    pair,
		Price:     price,
		Volume:    math.Round(st.volume),
		Timestamp: time.Now().UTC(),
		Indicators: models.IndicatorSet{
			RSI:  models.Indicator{Value: rsi, Signal: rsiSignal(rsi)},
			MACD: models.Indicator{Value: macd, Signal: macdSignal(macd)},
			Bollinger: models.BollingerBands{
				Upper:  price * 1.02,
				Middle: price,
				Lower:  price * 0.98,
				Signal: c.randomSignal(),
			},
			SMA: models.MovingAverages{
				SMA20:  price * (1 + (c.rand.Float64()-0.5)*0.01),
				SMA50:  price * (1 + (c.rand.Float64()-0.5)*0.02),
				SMA200: price * (1 + (c.rand.Float64()-0.5)*0.03),
				Signal: c.randomSignal(),
			},
			VolumeProfile: models.Indicator{Value: c.rand.Float64() * 100, Signal: c.randomSignal()},
			Momentum:      models.Indicator{Value: -1 + c.rand.Float64()*2, Signal: c.randomSignal()},
		},
		DailyChange: -0.05 + c.rand.Float64()*0.1,
	}
}

// nextSetup builds a sparse trade-setup alert around the current price.
func (c *Connection) nextSetup(pair models.TradingPair, price float64) *models.TradeSetup {
	confirmed := make([]string, 0, len(confirmable))
	for _, tag := range confirmable {
		if c.rand.Float64() > 0.5 {
			confirmed = append(confirmed, tag)
		}
	}

	return &models.TradeSetup{
		Symbol:              pair,
		SetupType:           c.nextSetupType(),
		SignalStrength:      c.randomSignal(),
		Score:               0.5 + c.rand.Float64()*0.5,
		RMultiple:           1 + c.rand.Float64()*3,
		EntryPrice:          price,
		StopLoss:            price * 0.98,
		TargetPrice:         price * 1.04,
		Timestamp:           time.Now().UTC(),
		IndicatorsConfirmed: confirmed,
		RiskRewardRatio:     1 + c.rand.Float64()*2,
		ConfidenceScore:     c.rand.Float64(),
	}
}

// nextSetupType draws from the 30/30/20/20 split.
func (c *Connection) nextSetupType() models.SetupType {
	u := c.rand.Float64()
	switch {
	case u < 0.3:
		return models.SetupBreakout
	case u < 0.6:
		return models.SetupMomentum
	case u < 0.8:
		return models.SetupMeanReversion
	default:
		return models.SetupTrendFollow
	}
}

func rsiSignal(v float64) models.SignalStrength {
	switch {
	case v > 70:
		return models.SignalStrong
	case v < 30:
		return models.SignalWeak
	default:
		return models.SignalModerate
	}
}

func macdSignal(v float64) models.SignalStrength {
	switch {
	case v > 1:
		return models.SignalStrong
	case v < -1:
		return models.SignalWeak
	default:
		return models.SignalModerate
	}
}

// randomSignal draws from the fixed 30/30/30/10 distribution. Bollinger,
// SMA, volume-profile and momentum signals are deliberately independent of
// their numeric values; the generator pins the Bollinger middle band to the
// current price, so nothing meaningful can be derived from it anyway.
func (c *Connection) randomSignal() models.SignalStrength {
	u := c.rand.Float64()
	switch {
	case u > 0.7:
		return models.SignalStrong
	case u > 0.4:
		return models.SignalModerate
	case u > 0.1:
		return models.SignalWeak
	default:
		return models.SignalNeutral
	}
}
