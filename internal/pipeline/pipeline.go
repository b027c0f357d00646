package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"stockgenie/internal/dedup"
	"stockgenie/internal/fetch"
	"stockgenie/internal/mock"
	"stockgenie/models"
)

// Options configures a Pipeline.
type Options struct {
	Store models.BarStore
	// Provider and Fetcher may both be nil when no usable credential is
	// configured; the pipeline then serves synthetic data only.
	Provider models.ProviderClient
	Fetcher  *fetch.Fetcher
	// MaxConcurrentFetches bounds the fetch worker pool. Defaults to 4.
	MaxConcurrentFetches int64
}

// Pipeline acquires daily bars: store first, then a deduplicated,
// rate-limited, retried provider fetch, and finally a synthetic
// fallback. GetBars never fails for data-availability reasons; the
// Source tag on the returned bars is the only signal of degradation.
type Pipeline struct {
	store     models.BarStore
	provider  models.ProviderClient
	fetcher   *fetch.Fetcher
	dedup     *dedup.Deduplicator
	workers   *semaphore.Weighted
	generator *mock.BarGenerator
	logger    zerolog.Logger
}

func New(opts Options) *Pipeline {
	if opts.MaxConcurrentFetches <= 0 {
		opts.MaxConcurrentFetches = 4
	}
	return &Pipeline{
		store:     opts.Store,
		provider:  opts.Provider,
		fetcher:   opts.Fetcher,
		dedup:     dedup.New(),
		workers:   semaphore.NewWeighted(opts.MaxConcurrentFetches),
		generator: mock.NewBarGenerator(),
		logger:    log.With().Str("component", "pipeline").Logger(),
	}
}

// GetBars returns bars for the symbol over [start, end], ascending by
// date. The call is idempotent: repeating it for the same range returns
// the same data without extra network traffic once the store is warm.
func (p *Pipeline) GetBars(ctx context.Context, symbol string, start, end time.Time) ([]models.Bar, error) {
	start, end = midnight(start), midnight(end)
	if end.Before(start) {
		return []models.Bar{}, nil
	}

	logger := p.logger.With().
		Str("request_id", uuid.NewString()).
		Str("symbol", symbol).
		Str("start", start.Format("2006-01-02")).
		Str("end", end.Format("2006-01-02")).
		Logger()

	covered, err := p.store.HasRange(ctx, symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("checking store coverage: %w", err)
	}
	if covered {
		logger.Info().Msg("serving bars from local store")
		return p.store.GetRange(ctx, symbol, start, end)
	}

	if p.provider == nil || p.fetcher == nil {
		logger.Warn().Msg("no provider configured, serving synthetic bars")
		return p.generator.GenerateDailyBars(symbol, start, end), nil
	}

	query := models.DailyQuery()
	bars, ok := p.fetchAndPersist(ctx, logger, symbol, query)
	if !ok {
		return p.generator.GenerateDailyBars(symbol, start, end), nil
	}

	return filterRange(bars, start, end), nil
}

// fetchAndPersist runs the deduplicated fetch and stores the parsed
// bars. It reports false on any failure path, leaving fallback to the
// caller.
func (p *Pipeline) fetchAndPersist(ctx context.Context, logger zerolog.Logger, symbol string, query models.Query) ([]models.Bar, bool) {
	key := requestKey(p.provider.Name(), symbol, query)

	v, shared, err := p.dedup.Do(key, func() (interface{}, error) {
		// A caller that abandons interest must not cancel the fetch for
		// the other attached waiters, so the operation runs detached
		// from the triggering caller's context.
		opCtx := context.WithoutCancel(ctx)
		if err := p.workers.Acquire(opCtx, 1); err != nil {
			return nil, err
		}
		defer p.workers.Release(1)
		return p.fetcher.Fetch(opCtx, symbol, query), nil
	})
	if err != nil {
		logger.Error().Err(err).Msg("deduplicated fetch failed")
		return nil, false
	}
	outcome := v.(fetch.Outcome)
	if shared {
		logger.Debug().Str("key", key).Msg("reused in-flight fetch result")
	}

	if !outcome.OK() {
		logger.Warn().
			Err(outcome.Err).
			Str("class", outcome.Class.String()).
			Int("attempts", outcome.Attempts).
			Msg("fetch failed, falling back to synthetic bars")
		return nil, false
	}

	bars, err := p.provider.ParseBars(outcome.Payload)
	if err != nil {
		logger.Warn().Err(err).Msg("rejecting provider payload, falling back to synthetic bars")
		return nil, false
	}

	// Persist everything the provider returned, typically a superset of
	// the requested range.
	if err := p.store.UpsertBars(ctx, bars); err != nil {
		// The fetched data is already in hand; a persistence fault only
		// costs the cache, not the response.
		logger.Error().Err(err).Msg("persisting fetched bars failed")
	} else {
		logger.Info().Int("count", len(bars)).Msg("persisted fetched bars")
	}

	return bars, true
}

func requestKey(provider, symbol string, query models.Query) string {
	return provider + "|" + symbol + "|" + query.String()
}

func filterRange(bars []models.Bar, start, end time.Time) []models.Bar {
	out := make([]models.Bar, 0, len(bars))
	for _, b := range bars {
		if !b.Date.Before(start) && !b.Date.After(end) {
			out = append(out, b)
		}
	}
	return out
}

func midnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
