package dedup

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Deduplicator collapses concurrent identical requests into a single
// in-flight operation. It deliberately does not cache: the in-flight
// entry is removed the instant the operation settles, so a call issued
// after completion starts a fresh operation.
type Deduplicator struct {
	group  singleflight.Group
	logger zerolog.Logger
}

func New() *Deduplicator {
	return &Deduplicator{
		logger: log.With().Str("component", "deduplicator").Logger(),
	}
}

// Do runs fn for key unless an identical operation is already in
// flight, in which case the caller attaches to its result. The boolean
// reports whether the result was shared with other callers.
func (d *Deduplicator) Do(key string, fn func() (interface{}, error)) (interface{}, bool, error) {
	v, err, shared := d.group.Do(key, fn)
	if shared {
		d.logger.Debug().Str("key", key).Msg("attached to in-flight request")
	}
	return v, shared, err
}
