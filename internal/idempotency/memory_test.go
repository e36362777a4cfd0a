package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreMarkAndCheck(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	marked, err := store.IsMarked(ctx, "idempotency:refresh:1:2026-08-28")
	require.NoError(t, err)
	assert.False(t, marked)

	require.NoError(t, store.Mark(ctx, "idempotency:refresh:1:2026-08-28", time.Hour))

	marked, err = store.IsMarked(ctx, "idempotency:refresh:1:2026-08-28")
	require.NoError(t, err)
	assert.True(t, marked)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Mark(ctx, "k", 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	marked, err := store.IsMarked(ctx, "k")
	require.NoError(t, err)
	assert.False(t, marked, "expired key should read as unmarked")
}

func TestMemoryStoreRemarkResetsTTL(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Mark(ctx, "k", 10*time.Millisecond))
	require.NoError(t, store.Mark(ctx, "k", time.Hour))
	time.Sleep(20 * time.Millisecond)

	marked, err := store.IsMarked(ctx, "k")
	require.NoError(t, err)
	assert.True(t, marked, "re-mark should have reset the TTL")
}

func TestMemoryStoreSweep(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	// Near expiry (< 60s remaining) — swept.
	require.NoError(t, store.Mark(ctx, "idempotency:refresh:1:w", 10*time.Second))
	// Healthy — kept.
	require.NoError(t, store.Mark(ctx, "idempotency:refresh:2:w", time.Hour))
	// Different prefix — kept regardless of TTL.
	require.NoError(t, store.Mark(ctx, "other:3", 10*time.Second))

	deleted, err := store.Sweep(ctx, "idempotency:")
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	marked, err := store.IsMarked(ctx, "idempotency:refresh:2:w")
	require.NoError(t, err)
	assert.True(t, marked)

	marked, err = store.IsMarked(ctx, "other:3")
	require.NoError(t, err)
	assert.True(t, marked)
}
