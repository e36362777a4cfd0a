// Package idempotency provides the TTL-keyed marker store that keeps
// overlapping refresh runs from double-processing the same item.
//
// A live key means the item was already processed within the current window;
// absence or expiry means it must be (re)processed. Expiry is handled by the
// store's native TTL; Sweep is a defensive cleanup for keys that somehow lost
// their TTL.
package idempotency

import (
	"context"
	"time"
)

// Store is the minimal contract the refresher and the cleanup job need.
type Store interface {
	// Mark sets a key with the given TTL. Re-marking an existing key resets
	// its TTL.
	Mark(ctx context.Context, key string, ttl time.Duration) error

	// IsMarked reports whether a live key exists.
	IsMarked(ctx context.Context, key string) (bool, error)

	// Sweep scans keys under prefix and deletes any with no TTL or with less
	// than a minute remaining, returning the count removed.
	Sweep(ctx context.Context, prefix string) (int, error)
}

// minSweepTTL is the remaining-TTL threshold below which Sweep removes a key.
const minSweepTTL = 60 * time.Second
