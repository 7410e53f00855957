package usecase

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"TradeDash/internal/domain/models"
)

// Display formatting for presentation consumers. Presentation components
// receive already-formatted strings; they never see raw floats.

var enUS = message.NewPrinter(language.AmericanEnglish)

// FormatPrice renders a price as an en-US currency string, e.g. "$50,000.00".
func FormatPrice(v float64) string {
	return enUS.Sprintf("$%.2f", v)
}

// FormatCount renders a count with grouping and no fraction, e.g. "1,000".
func FormatCount(v float64) string {
	return enUS.Sprintf("%d", int64(math.Round(v)))
}

// FormatChange renders a fractional change as a signed percent, e.g. "+1.25%".
func FormatChange(v float64) string {
	return fmt.Sprintf("%+.2f%%", v*100)
}

// IndicatorDisplay pairs a formatted reading with its signal.
type IndicatorDisplay struct {
	Value  string                `json:"value"`
	Signal models.SignalStrength `json:"signal"`
}

// BandsDisplay renders the Bollinger levels as prices.
type BandsDisplay struct {
	Upper  string                `json:"upper"`
	Middle string                `json:"middle"`
	Lower  string                `json:"lower"`
	Signal models.SignalStrength `json:"signal"`
}

// SMADisplay renders the moving-average ladder as prices.
type SMADisplay struct {
	SMA20  string                `json:"sma20"`
	SMA50  string                `json:"sma50"`
	SMA200 string                `json:"sma200"`
	Signal models.SignalStrength `json:"signal"`
}

// SetupDisplay is the signal-light panel's data: the latest sparse setup.
type SetupDisplay struct {
	SetupType           models.SetupType      `json:"setup_type"`
	SignalStrength      models.SignalStrength `json:"signal_strength"`
	Score               string                `json:"score"`
	RMultiple           string                `json:"r_multiple"`
	EntryPrice          string                `json:"entry_price"`
	StopLoss            string                `json:"stop_loss"`
	TargetPrice         string                `json:"target_price"`
	IndicatorsConfirmed []string              `json:"indicators_confirmed"`
	RiskRewardRatio     string                `json:"risk_reward_ratio"`
	ConfidenceScore     string                `json:"confidence_score"`
}

// PairDisplay is the full formatted view of one pair's state.
type PairDisplay struct {
	Symbol        models.TradingPair `json:"symbol"`
	Price         string             `json:"price"`
	Volume        string             `json:"volume"`
	DailyChange   string             `json:"dailyChange"`
	RSI           IndicatorDisplay   `json:"rsi"`
	MACD          IndicatorDisplay   `json:"macd"`
	Bollinger     BandsDisplay       `json:"bb"`
	SMA           SMADisplay         `json:"sma"`
	VolumeProfile IndicatorDisplay   `json:"volume_profile"`
	Momentum      IndicatorDisplay   `json:"momentum"`
	Setup         *SetupDisplay      `json:"setup,omitempty"`
}

// BuildDisplay formats one pair's merged state for rendering. The setup
// section is present only when a setup has actually arrived.
func BuildDisplay(md models.MarketData, setup *models.TradeSetup) PairDisplay {
	d := PairDisplay{
		Symbol:      md.Symbol,
		Price:       FormatPrice(md.Price),
		Volume:      FormatCount(md.Volume),
		DailyChange: FormatChange(md.DailyChange),
		RSI: IndicatorDisplay{
			Value:  fmt.Sprintf("%.2f", md.Indicators.RSI.Value),
			Signal: md.Indicators.RSI.Signal,
		},
		MACD: IndicatorDisplay{
			Value:  fmt.Sprintf("%.3f", md.Indicators.MACD.Value),
			Signal: md.Indicators.MACD.Signal,
		},
		Bollinger: BandsDisplay{
			Upper:  FormatPrice(md.Indicators.Bollinger.Upper),
			Middle: FormatPrice(md.Indicators.Bollinger.Middle),
			Lower:  FormatPrice(md.Indicators.Bollinger.Lower),
			Signal: md.Indicators.Bollinger.Signal,
		},
		SMA: SMADisplay{
			SMA20:  FormatPrice(md.Indicators.SMA.SMA20),
			SMA50:  FormatPrice(md.Indicators.SMA.SMA50),
			SMA200: FormatPrice(md.Indicators.SMA.SMA200),
			Signal: md.Indicators.SMA.Signal,
		},
		VolumeProfile: IndicatorDisplay{
			Value:  fmt.Sprintf("%.2f", md.Indicators.VolumeProfile.Value),
			Signal: md.Indicators.VolumeProfile.Signal,
		},
		Momentum: IndicatorDisplay{
			Value:  fmt.Sprintf("%.3f", md.Indicators.Momentum.Value),
			Signal: md.Indicators.Momentum.Signal,
		},
	}
	if setup != nil {
		d.Setup = &SetupDisplay{
			SetupType:           setup.SetupType,
			SignalStrength:      setup.SignalStrength,
			Score:               fmt.Sprintf("%.2f", setup.Score),
			RMultiple:           fmt.Sprintf("%.1fR", setup.RMultiple),
			EntryPrice:          FormatPrice(setup.EntryPrice),
			StopLoss:            FormatPrice(setup.StopLoss),
			TargetPrice:         FormatPrice(setup.TargetPrice),
			IndicatorsConfirmed: setup.IndicatorsConfirmed,
			RiskRewardRatio:     fmt.Sprintf("%.2f", setup.RiskRewardRatio),
			ConfidenceScore:     fmt.Sprintf("%.0f%%", setup.ConfidenceScore*100),
		}
	}
	return d
}
