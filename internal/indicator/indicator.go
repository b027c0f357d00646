// Package indicator computes technical indicators over ascending bar
// series. All arithmetic is fixed-point decimal with round-half-up at a
// fixed scale, so results reproduce exactly across runs and platforms.
// Inputs shorter than the required warm-up yield an empty series.
package indicator

import (
	"fmt"

	"github.com/shopspring/decimal"

	"stockgenie/models"
)

// priceScale is the fractional precision of every emitted value.
// multiplierScale is used only for the EMA smoothing multiplier.
const (
	priceScale      = 4
	multiplierScale = 6
)

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
	two     = decimal.NewFromInt(2)
)

// SMA returns the simple moving average of closes, one sample per bar
// from index period-1 onward.
func SMA(bars []models.Bar, period int) []models.IndicatorSample {
	if period <= 0 || len(bars) < period {
		return nil
	}

	p := decimal.NewFromInt(int64(period))
	samples := make([]models.IndicatorSample, 0, len(bars)-period+1)
	for i := period - 1; i < len(bars); i++ {
		sum := decimal.Zero
		for j := i - period + 1; j <= i; j++ {
			sum = sum.Add(bars[j].Close)
		}
		samples = append(samples, models.IndicatorSample{
			Symbol:    bars[i].Symbol,
			Date:      bars[i].Date,
			Indicator: models.IndicatorSMA,
			Period:    period,
			Value:     sum.DivRound(p, priceScale),
		})
	}
	return samples
}

// EMA returns the exponential moving average of closes. The seed value
// at index period-1 is the SMA over the first period closes; every
// subsequent step is re-rounded to the price scale before it feeds the
// next step, so rounding error accumulates deterministically.
func EMA(bars []models.Bar, period int) []models.IndicatorSample {
	if period <= 0 || len(bars) < period {
		return nil
	}

	p := decimal.NewFromInt(int64(period))
	multiplier := two.DivRound(decimal.NewFromInt(int64(period+1)), multiplierScale)
	oneMinus := one.Sub(multiplier)

	sum := decimal.Zero
	for i := 0; i < period; i++ {
		sum = sum.Add(bars[i].Close)
	}
	ema := sum.DivRound(p, priceScale)

	samples := make([]models.IndicatorSample, 0, len(bars)-period+1)
	samples = append(samples, models.IndicatorSample{
		Symbol:    bars[period-1].Symbol,
		Date:      bars[period-1].Date,
		Indicator: models.IndicatorEMA,
		Period:    period,
		Value:     ema,
	})

	for i := period; i < len(bars); i++ {
		ema = bars[i].Close.Mul(multiplier).Add(ema.Mul(oneMinus)).Round(priceScale)
		samples = append(samples, models.IndicatorSample{
			Symbol:    bars[i].Symbol,
			Date:      bars[i].Date,
			Indicator: models.IndicatorEMA,
			Period:    period,
			Value:     ema,
		})
	}
	return samples
}

// RSI returns the relative strength index using Wilder's smoothing.
// Losses are tracked as non-negative magnitudes; a zero average loss
// forces RSI to exactly 100. The seed sample is emitted at index
// period, smoothed samples follow one per bar.
func RSI(bars []models.Bar, period int) []models.IndicatorSample {
	if period <= 0 || len(bars) < period+1 {
		return nil
	}

	p := decimal.NewFromInt(int64(period))
	pMinusOne := decimal.NewFromInt(int64(period - 1))

	gains := make([]decimal.Decimal, len(bars)-1)
	losses := make([]decimal.Decimal, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		change := bars[i].Close.Sub(bars[i-1].Close)
		if change.Sign() > 0 {
			gains[i-1] = change
			losses[i-1] = decimal.Zero
		} else {
			gains[i-1] = decimal.Zero
			losses[i-1] = change.Abs()
		}
	}

	sumGain, sumLoss := decimal.Zero, decimal.Zero
	for i := 0; i < period; i++ {
		sumGain = sumGain.Add(gains[i])
		sumLoss = sumLoss.Add(losses[i])
	}
	avgGain := sumGain.DivRound(p, priceScale)
	avgLoss := sumLoss.DivRound(p, priceScale)

	samples := make([]models.IndicatorSample, 0, len(bars)-period)
	samples = append(samples, rsiSample(bars[period], period, avgGain, avgLoss))

	for i := period; i < len(gains); i++ {
		avgGain = avgGain.Mul(pMinusOne).Add(gains[i]).DivRound(p, priceScale)
		avgLoss = avgLoss.Mul(pMinusOne).Add(losses[i]).DivRound(p, priceScale)
		samples = append(samples, rsiSample(bars[i+1], period, avgGain, avgLoss))
	}
	return samples
}

func rsiSample(bar models.Bar, period int, avgGain, avgLoss decimal.Decimal) models.IndicatorSample {
	var rsi decimal.Decimal
	if avgLoss.IsZero() {
		rsi = hundred
	} else {
		rs := avgGain.DivRound(avgLoss, priceScale)
		rsi = hundred.Sub(hundred.DivRound(one.Add(rs), priceScale))
	}
	return models.IndicatorSample{
		Symbol:    bar.Symbol,
		Date:      bar.Date,
		Indicator: models.IndicatorRSI,
		Period:    period,
		Value:     rsi,
	}
}

// MACD returns fast EMA minus slow EMA aligned by date, with the
// signal line (an EMA of the macd line) and histogram filled in once
// enough macd history exists; before that they are nil.
func MACD(bars []models.Bar, fast, slow, signalPeriod int) []models.IndicatorSample {
	if fast <= 0 || slow <= fast || len(bars) < slow {
		return nil
	}

	fastEMA := EMA(bars, fast)
	slowEMA := EMA(bars, slow)

	// slowEMA[0] is at bar index slow-1, which is fastEMA[slow-fast].
	offset := slow - fast
	meta := fmt.Sprintf("%d/%d/%d", fast, slow, signalPeriod)

	samples := make([]models.IndicatorSample, len(slowEMA))
	macdValues := make([]decimal.Decimal, len(slowEMA))
	for k := range slowEMA {
		macdValues[k] = fastEMA[k+offset].Value.Sub(slowEMA[k].Value)
		samples[k] = models.IndicatorSample{
			Symbol:    slowEMA[k].Symbol,
			Date:      slowEMA[k].Date,
			Indicator: models.IndicatorMACD,
			Period:    fast,
			Value:     macdValues[k],
			Metadata:  meta,
		}
	}

	if signalPeriod > 0 && len(macdValues) >= signalPeriod {
		signalLine := emaOverValues(macdValues, signalPeriod)
		for k := range signalLine {
			i := k + signalPeriod - 1
			sig := signalLine[k]
			hist := samples[i].Value.Sub(sig)
			samples[i].Signal = &sig
			samples[i].Histogram = &hist
		}
	}
	return samples
}

// emaOverValues applies the same seeded, per-step-rounded EMA recursion
// to a plain decimal series.
func emaOverValues(values []decimal.Decimal, period int) []decimal.Decimal {
	p := decimal.NewFromInt(int64(period))
	multiplier := two.DivRound(decimal.NewFromInt(int64(period+1)), multiplierScale)
	oneMinus := one.Sub(multiplier)

	sum := decimal.Zero
	for i := 0; i < period; i++ {
		sum = sum.Add(values[i])
	}
	ema := sum.DivRound(p, priceScale)

	out := make([]decimal.Decimal, 0, len(values)-period+1)
	out = append(out, ema)
	for i := period; i < len(values); i++ {
		ema = values[i].Mul(multiplier).Add(ema.Mul(oneMinus)).Round(priceScale)
		out = append(out, ema)
	}
	return out
}

// OBV returns the on-balance volume running total, starting at zero and
// adding, subtracting or holding each day's volume according to the
// close-to-close direction. One sample per bar from the second onward.
func OBV(bars []models.Bar) []models.IndicatorSample {
	if len(bars) < 2 {
		return nil
	}

	obv := decimal.Zero
	samples := make([]models.IndicatorSample, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		volume := decimal.NewFromInt(bars[i].Volume)
		switch bars[i].Close.Cmp(bars[i-1].Close) {
		case 1:
			obv = obv.Add(volume)
		case -1:
			obv = obv.Sub(volume)
		}
		samples = append(samples, models.IndicatorSample{
			Symbol:    bars[i].Symbol,
			Date:      bars[i].Date,
			Indicator: models.IndicatorOBV,
			Period:    1,
			Value:     obv,
		})
	}
	return samples
}
