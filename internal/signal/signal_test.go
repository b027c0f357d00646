package signal

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"stockgenie/models"
)

func barsFromCloses(closes []float64) []models.Bar {
	bars := make([]models.Bar, len(closes))
	date := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		d := decimal.NewFromFloat(c).Round(4)
		bars[i] = models.Bar{
			Symbol: "TEST", Date: date.AddDate(0, 0, i),
			Open: d, High: d, Low: d, Close: d,
			Volume: 1000, AdjustedClose: d, Source: models.SourceMock,
		}
	}
	return bars
}

func TestInsufficientBarsYieldEmptyMap(t *testing.T) {
	g := New(DefaultConfig())

	closes := make([]float64, 49)
	for i := range closes {
		closes[i] = 100
	}
	signals := g.Signals("TEST", barsFromCloses(closes))
	if len(signals) != 0 {
		t.Errorf("49 bars produced %d signals, want empty map", len(signals))
	}
}

func TestBullishTrendWithNeutralRSI(t *testing.T) {
	// Gentle uptrend with alternating pullbacks: SMA(20) > SMA(50),
	// close above SMA(20), RSI mid-range, macd line positive.
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + 0.05*float64(i)
		if i%2 == 1 {
			closes[i] += 0.5
		}
	}
	g := New(DefaultConfig())

	signals := g.Signals("TEST", barsFromCloses(closes))
	if got := signals[models.FamilySMA]; got != models.SignalBuy {
		t.Errorf("SMA = %s, want BUY", got)
	}
	if got := signals[models.FamilyRSI]; got != models.SignalHold {
		t.Errorf("RSI = %s, want HOLD", got)
	}
	if got := signals[models.FamilyMACD]; got != models.SignalBuy {
		t.Errorf("MACD = %s, want BUY", got)
	}
	if got := signals[models.FamilyOverall]; got != models.SignalBuy {
		t.Errorf("OVERALL = %s, want BUY", got)
	}
}

func TestBearishTrend(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 200 - 0.05*float64(i)
		if i%2 == 1 {
			closes[i] -= 0.5
		}
	}
	g := New(DefaultConfig())

	signals := g.Signals("TEST", barsFromCloses(closes))
	if got := signals[models.FamilySMA]; got != models.SignalSell {
		t.Errorf("SMA = %s, want SELL", got)
	}
	if got := signals[models.FamilyMACD]; got != models.SignalSell {
		t.Errorf("MACD = %s, want SELL", got)
	}
	if got := signals[models.FamilyOverall]; got != models.SignalSell {
		t.Errorf("OVERALL = %s, want SELL", got)
	}
}

func TestFlatSeriesHolds(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100
	}
	g := New(DefaultConfig())

	signals := g.Signals("TEST", barsFromCloses(closes))
	if got := signals[models.FamilySMA]; got != models.SignalHold {
		t.Errorf("SMA = %s, want HOLD on a flat series", got)
	}
	// MACD has no HOLD state; a zero macd line reads as SELL, and the
	// single SELL vote wins the majority.
	if got := signals[models.FamilyMACD]; got != models.SignalSell {
		t.Errorf("MACD = %s, want SELL on a zero macd line", got)
	}
	if got := signals[models.FamilyOverall]; got != models.SignalSell {
		t.Errorf("OVERALL = %s, want SELL", got)
	}
}

func TestOverallTieResolvesToHold(t *testing.T) {
	votes := map[string]models.Signal{
		"SMA":  models.SignalBuy,
		"RSI":  models.SignalHold,
		"MACD": models.SignalSell,
	}
	if got := overall(votes); got != models.SignalHold {
		t.Errorf("overall = %s, want HOLD on a 1-1 tie", got)
	}
}
