package signal

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"stockgenie/internal/indicator"
	"stockgenie/models"
)

var (
	overbought = decimal.NewFromInt(70)
	oversold   = decimal.NewFromInt(30)
)

// Config holds the indicator periods consulted by the generator.
type Config struct {
	MinBars          int
	SMAFastPeriod    int
	SMASlowPeriod    int
	RSIPeriod        int
	MACDFastPeriod   int
	MACDSlowPeriod   int
	MACDSignalPeriod int
}

// DefaultConfig returns the standard daily-bar configuration.
func DefaultConfig() Config {
	return Config{
		MinBars:          50,
		SMAFastPeriod:    20,
		SMASlowPeriod:    50,
		RSIPeriod:        14,
		MACDFastPeriod:   12,
		MACDSlowPeriod:   26,
		MACDSignalPeriod: 9,
	}
}

// Generator folds the latest indicator samples into per-family
// BUY/SELL/HOLD recommendations plus an OVERALL majority vote.
type Generator struct {
	cfg    Config
	logger zerolog.Logger
}

func New(cfg Config) *Generator {
	def := DefaultConfig()
	if cfg.MinBars == 0 {
		cfg.MinBars = def.MinBars
	}
	if cfg.SMAFastPeriod == 0 {
		cfg.SMAFastPeriod = def.SMAFastPeriod
	}
	if cfg.SMASlowPeriod == 0 {
		cfg.SMASlowPeriod = def.SMASlowPeriod
	}
	if cfg.RSIPeriod == 0 {
		cfg.RSIPeriod = def.RSIPeriod
	}
	if cfg.MACDFastPeriod == 0 {
		cfg.MACDFastPeriod = def.MACDFastPeriod
	}
	if cfg.MACDSlowPeriod == 0 {
		cfg.MACDSlowPeriod = def.MACDSlowPeriod
	}
	if cfg.MACDSignalPeriod == 0 {
		cfg.MACDSignalPeriod = def.MACDSignalPeriod
	}
	return &Generator{
		cfg:    cfg,
		logger: log.With().Str("component", "signal_generator").Logger(),
	}
}

// Signals evaluates the family rules on the latest available sample of
// each indicator. Fewer than MinBars bars yields an empty map, never an
// error.
func (g *Generator) Signals(symbol string, bars []models.Bar) map[string]models.Signal {
	signals := make(map[string]models.Signal)
	if len(bars) < g.cfg.MinBars {
		g.logger.Warn().
			Str("symbol", symbol).
			Int("bars", len(bars)).
			Int("required", g.cfg.MinBars).
			Msg("insufficient data for signal generation")
		return signals
	}

	latestClose := bars[len(bars)-1].Close

	smaFast := indicator.SMA(bars, g.cfg.SMAFastPeriod)
	smaSlow := indicator.SMA(bars, g.cfg.SMASlowPeriod)
	if len(smaFast) > 0 && len(smaSlow) > 0 {
		fast := smaFast[len(smaFast)-1].Value
		slow := smaSlow[len(smaSlow)-1].Value
		switch {
		case fast.GreaterThan(slow) && latestClose.GreaterThan(fast):
			signals[models.FamilySMA] = models.SignalBuy
		case fast.LessThan(slow) && latestClose.LessThan(fast):
			signals[models.FamilySMA] = models.SignalSell
		default:
			signals[models.FamilySMA] = models.SignalHold
		}
	}

	if rsi := indicator.RSI(bars, g.cfg.RSIPeriod); len(rsi) > 0 {
		value := rsi[len(rsi)-1].Value
		switch {
		case value.GreaterThan(overbought):
			signals[models.FamilyRSI] = models.SignalSell
		case value.LessThan(oversold):
			signals[models.FamilyRSI] = models.SignalBuy
		default:
			signals[models.FamilyRSI] = models.SignalHold
		}
	}

	macd := indicator.MACD(bars, g.cfg.MACDFastPeriod, g.cfg.MACDSlowPeriod, g.cfg.MACDSignalPeriod)
	if len(macd) > 0 {
		// No HOLD state for MACD: zero or below is a SELL.
		if macd[len(macd)-1].Value.Sign() > 0 {
			signals[models.FamilyMACD] = models.SignalBuy
		} else {
			signals[models.FamilyMACD] = models.SignalSell
		}
	}

	signals[models.FamilyOverall] = overall(signals)

	g.logger.Debug().
		Str("symbol", symbol).
		Interface("signals", signals).
		Msg("generated signals")
	return signals
}

// overall is a majority vote of BUY vs SELL; ties resolve to HOLD.
func overall(signals map[string]models.Signal) models.Signal {
	var buys, sells int
	for _, s := range signals {
		switch s {
		case models.SignalBuy:
			buys++
		case models.SignalSell:
			sells++
		}
	}
	switch {
	case buys > sells:
		return models.SignalBuy
	case sells > buys:
		return models.SignalSell
	default:
		return models.SignalHold
	}
}
