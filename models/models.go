package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Data source tags recorded on every Bar.
const (
	SourceAlphaVantage = "alpha-vantage"
	SourceEODHD        = "eodhd"
	SourceMock         = "mock"
)

// Bar represents one trading day of OHLCV data for a symbol.
// At most one Bar exists per (symbol, date).
type Bar struct {
	Symbol        string          `json:"symbol"`
	Date          time.Time       `json:"date"`
	Open          decimal.Decimal `json:"open"`
	High          decimal.Decimal `json:"high"`
	Low           decimal.Decimal `json:"low"`
	Close         decimal.Decimal `json:"close"`
	Volume        int64           `json:"volume"`
	AdjustedClose decimal.Decimal `json:"adjusted_close"`
	Source        string          `json:"source"`
}

// IndicatorType identifies an indicator family.
type IndicatorType string

const (
	IndicatorSMA  IndicatorType = "SMA"
	IndicatorEMA  IndicatorType = "EMA"
	IndicatorRSI  IndicatorType = "RSI"
	IndicatorMACD IndicatorType = "MACD"
	IndicatorOBV  IndicatorType = "OBV"
)

// IndicatorSample is one computed indicator value, uniquely keyed by
// (symbol, date, indicator, period). Signal and Histogram are only set
// for MACD once enough history exists for the signal line.
type IndicatorSample struct {
	Symbol    string           `json:"symbol"`
	Date      time.Time        `json:"date"`
	Indicator IndicatorType    `json:"indicator"`
	Period    int              `json:"period"`
	Value     decimal.Decimal  `json:"value"`
	Signal    *decimal.Decimal `json:"signal,omitempty"`
	Histogram *decimal.Decimal `json:"histogram,omitempty"`
	Metadata  string           `json:"metadata,omitempty"`
}

// Signal is a discrete trading recommendation.
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
	SignalHold Signal = "HOLD"
)

// Keys of the per-family signal map returned by the signal generator.
const (
	FamilySMA     = "SMA"
	FamilyRSI     = "RSI"
	FamilyMACD    = "MACD"
	FamilyOverall = "OVERALL"
)

// Query describes the shape of a provider request for daily bars.
type Query struct {
	Function   string `json:"function"`
	OutputSize string `json:"output_size"`
}

// DailyQuery is the standard full-history daily series request.
func DailyQuery() Query {
	return Query{Function: "TIME_SERIES_DAILY", OutputSize: "full"}
}

func (q Query) String() string {
	return q.Function + ":" + q.OutputSize
}
