// Package idempotency implements the orchestrator's workflow-level
// idempotency store from spec.md §4.6: "A successful execution records
// key -> trip_id in a shared key-value store with TTL (default one
// hour). A second call with the same key returns the stored trip_id
// without re-executing." Built on shared/cache.Cache so it can be
// backed by Redis in production and an in-memory map in tests, the same
// split every other store in this repo makes.
package idempotency

import (
	"context"
	"time"

	"github.com/ridehail/control-plane/shared/cache"
)

// DefaultTTL is the spec's reference default for how long a completed
// workflow's idempotency record is honored.
const DefaultTTL = time.Hour

// record is the value persisted under an idempotency key.
type record struct {
	TripID string `json:"trip_id"`
}

// Store records idempotency-key -> trip_id, and checks for replays of a
// key from a prior successful workflow execution.
type Store struct {
	cache cache.Cache
	ttl   time.Duration
}

// New creates a Store backed by c with ttl (DefaultTTL if zero).
func New(c cache.Cache, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{cache: c, ttl: ttl}
}

// Lookup reports whether key was already recorded, and if so, the trip
// id the prior execution committed.
func (s *Store) Lookup(ctx context.Context, key string) (tripID string, found bool, err error) {
	var rec record
	if err := s.cache.Get(ctx, key, &rec); err != nil {
		if err == cache.ErrCacheMiss {
			return "", false, nil
		}
		return "", false, err
	}
	return rec.TripID, true, nil
}

// Record persists key -> tripID, first writer wins: if a concurrent
// execution already recorded a result for this key, Record reports that
// loss (won=false) rather than overwriting it, so the caller can return
// the winner's trip id instead of two workflows disagreeing about which
// trip "the" idempotency key produced.
func (s *Store) Record(ctx context.Context, key, tripID string) (won bool, err error) {
	return s.cache.SetNX(ctx, key, record{TripID: tripID}, s.ttl)
}
