package fetch

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpclient "stockgenie/internal/platform/http"
	"stockgenie/internal/ratelimit"
	"stockgenie/models"
)

// Class discriminates the result of a fetch.
type Class int

const (
	Success Class = iota
	RetryableFailure
	NonRetryableFailure
)

func (c Class) String() string {
	switch c {
	case Success:
		return "success"
	case RetryableFailure:
		return "retryable_failure"
	default:
		return "non_retryable_failure"
	}
}

// Outcome is the discriminated result of one fetch, threaded through
// return values so callers branch on it explicitly.
type Outcome struct {
	Payload  []byte
	Class    Class
	Err      error
	Attempts int
}

func (o Outcome) OK() bool { return o.Class == Success }

// Options configures a Fetcher.
type Options struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// RateLimitCooldown is slept when the limiter refuses a reservation,
	// without consuming an attempt. Defaults to 2 * BaseDelay.
	RateLimitCooldown time.Duration
}

// Fetcher performs provider calls with bounded retries. Backoff between
// failed attempts scales linearly with the attempt number; client-class
// provider rejections are never retried.
type Fetcher struct {
	client  models.ProviderClient
	limiter *ratelimit.Limiter
	opts    Options
	logger  zerolog.Logger
}

func New(client models.ProviderClient, limiter *ratelimit.Limiter, opts Options) *Fetcher {
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = 3
	}
	if opts.BaseDelay == 0 {
		opts.BaseDelay = time.Second
	}
	if opts.RateLimitCooldown == 0 {
		opts.RateLimitCooldown = 2 * opts.BaseDelay
	}
	return &Fetcher{
		client:  client,
		limiter: limiter,
		opts:    opts,
		logger:  log.With().Str("component", "fetcher").Str("provider", client.Name()).Logger(),
	}
}

// Fetch performs the provider call for (symbol, query), consulting the
// rate limiter before each attempt. A refused reservation costs a
// cooldown sleep, not an attempt.
func (f *Fetcher) Fetch(ctx context.Context, symbol string, query models.Query) Outcome {
	provider := f.client.Name()

	attempt := 0
	var lastErr error
	for attempt < f.opts.MaxAttempts {
		if !f.limiter.TryReserve(provider) {
			f.logger.Warn().
				Str("symbol", symbol).
				Msg("rate limited, cooling down before retrying the same attempt")
			if err := sleep(ctx, f.opts.RateLimitCooldown); err != nil {
				return Outcome{Class: RetryableFailure, Err: err, Attempts: attempt}
			}
			continue
		}

		attempt++
		payload, err := f.client.RawFetch(ctx, symbol, query)
		// The attempt was dispatched, so provider quota is spent whether
		// or not the call succeeded.
		f.limiter.Record(provider)

		if err == nil {
			f.logger.Debug().
				Str("symbol", symbol).
				Int("attempt", attempt).
				Msg("fetch succeeded")
			return Outcome{Payload: payload, Class: Success, Attempts: attempt}
		}

		class := classify(err)
		f.logger.Warn().
			Err(err).
			Str("symbol", symbol).
			Int("attempt", attempt).
			Str("class", class.String()).
			Msg("fetch attempt failed")

		if class == NonRetryableFailure {
			return Outcome{Class: NonRetryableFailure, Err: err, Attempts: attempt}
		}

		lastErr = err
		if attempt < f.opts.MaxAttempts {
			// Linear backoff: base delay scaled by the attempt number.
			if err := sleep(ctx, f.opts.BaseDelay*time.Duration(attempt)); err != nil {
				return Outcome{Class: RetryableFailure, Err: err, Attempts: attempt}
			}
		}
	}

	f.logger.Error().
		Err(lastErr).
		Str("symbol", symbol).
		Int("attempts", attempt).
		Msg("fetch failed after all attempts")
	return Outcome{Class: RetryableFailure, Err: lastErr, Attempts: attempt}
}

// classify maps a transport error to a failure class. Client-class HTTP
// rejections (4xx: malformed request, bad credentials, not found) are
// permanent; everything else (timeouts, 5xx, network faults) may pass
// on retry.
func classify(err error) Class {
	var statusErr *httpclient.HTTPStatusError
	if errors.As(err, &statusErr) {
		if statusErr.StatusCode >= 400 && statusErr.StatusCode < 500 {
			return NonRetryableFailure
		}
		return RetryableFailure
	}
	return RetryableFailure
}

// sleep blocks only the calling worker; other fetch keys proceed.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
