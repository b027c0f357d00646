package ratelimit

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// WindowKind distinguishes the two rolling windows tracked per provider.
type WindowKind string

const (
	WindowMinute WindowKind = "minute"
	WindowDay    WindowKind = "day"
)

func (k WindowKind) duration() time.Duration {
	if k == WindowDay {
		return 24 * time.Hour
	}
	return time.Minute
}

// Limits holds the per-provider call ceilings.
type Limits struct {
	PerMinute int
	PerDay    int
}

// DefaultLimits is applied to providers without explicit configuration.
var DefaultLimits = Limits{PerMinute: 5, PerDay: 25}

type window struct {
	count int
	start time.Time
}

// Limiter tracks per-provider call counts in rolling minute and day
// windows. TryReserve never consumes quota; only Record increments the
// counters, so a reservation that is abandoned before the network call
// costs nothing.
type Limiter struct {
	mu      sync.Mutex
	limits  map[string]Limits
	windows map[string]*window // keyed provider + "_" + windowKind
	now     func() time.Time
	logger  zerolog.Logger
}

// New creates a Limiter with the given per-provider limits. Providers
// not present in the map fall back to DefaultLimits.
func New(limits map[string]Limits) *Limiter {
	return NewWithClock(limits, time.Now)
}

// NewWithClock is New with an injectable time source.
func NewWithClock(limits map[string]Limits, now func() time.Time) *Limiter {
	l := &Limiter{
		limits:  make(map[string]Limits, len(limits)),
		windows: make(map[string]*window),
		now:     now,
		logger:  log.With().Str("component", "rate_limiter").Logger(),
	}
	for provider, lim := range limits {
		l.limits[provider] = lim
	}
	return l
}

// TryReserve reports whether a call to the provider is currently
// admissible under both the minute and the day window. It does not
// increment any counter.
func (l *Limiter) TryReserve(provider string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for _, kind := range []WindowKind{WindowMinute, WindowDay} {
		w := l.window(provider, kind, now)
		if w.count >= l.ceiling(provider, kind) {
			l.logger.Warn().
				Str("provider", provider).
				Str("window", string(kind)).
				Int("count", w.count).
				Msg("rate limit exceeded")
			return false
		}
	}
	return true
}

// Record registers one real network call against both windows. Call it
// only after an attempt was actually dispatched to the provider.
func (l *Limiter) Record(provider string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	minute := l.window(provider, WindowMinute, now)
	minute.count++
	day := l.window(provider, WindowDay, now)
	day.count++

	l.logger.Debug().
		Str("provider", provider).
		Int("minute", minute.count).
		Int("day", day.count).
		Msg("recorded API call")
}

// Status reports current usage against the ceilings, for observability.
type Status struct {
	Provider    string
	MinuteUsed  int
	MinuteLimit int
	DayUsed     int
	DayLimit    int
}

func (l *Limiter) Status(provider string) Status {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	return Status{
		Provider:    provider,
		MinuteUsed:  l.window(provider, WindowMinute, now).count,
		MinuteLimit: l.ceiling(provider, WindowMinute),
		DayUsed:     l.window(provider, WindowDay, now).count,
		DayLimit:    l.ceiling(provider, WindowDay),
	}
}

// window returns the tracked window for (provider, kind), resetting it
// first if a full window length has elapsed. Callers must hold l.mu.
func (l *Limiter) window(provider string, kind WindowKind, now time.Time) *window {
	key := provider + "_" + string(kind)
	w, ok := l.windows[key]
	if !ok {
		w = &window{start: now}
		l.windows[key] = w
	}
	if now.Sub(w.start) >= kind.duration() {
		w.count = 0
		w.start = now
	}
	return w
}

func (l *Limiter) ceiling(provider string, kind WindowKind) int {
	lim, ok := l.limits[provider]
	if !ok {
		lim = DefaultLimits
	}
	if kind == WindowDay {
		return lim.PerDay
	}
	return lim.PerMinute
}
