package models

import (
	"context"
	"time"
)

// BarStore is the keyed persistence layer for bars and indicator samples.
// Upserts are atomic per row; the core never deletes.
type BarStore interface {
	HasRange(ctx context.Context, symbol string, start, end time.Time) (bool, error)
	GetRange(ctx context.Context, symbol string, start, end time.Time) ([]Bar, error)
	UpsertBars(ctx context.Context, bars []Bar) error
	UpsertIndicatorSamples(ctx context.Context, samples []IndicatorSample) error
	LatestDate(ctx context.Context, symbol string) (time.Time, bool, error)
	EarliestDate(ctx context.Context, symbol string) (time.Time, bool, error)
}

// ProviderClient fetches raw market-data payloads from one named provider
// and knows how to parse that provider's wire format into bars.
type ProviderClient interface {
	Name() string
	RawFetch(ctx context.Context, symbol string, query Query) ([]byte, error)
	ParseBars(payload []byte) ([]Bar, error)
}

// Completer is an opaque text-completion collaborator.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
