package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/torresguilherme/magic-qr-flows/models"
)

func TestMemoryQRLookupCacheGenerations(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryQRLookupCache(time.Minute)
	id := uuid.New()
	lookup := &models.QRLookup{ID: 1, DestinationURL: "https://example.com/menu", IsActive: true}

	_, stale, err := cache.Get(ctx, id)
	require.ErrorIs(t, err, ErrCacheMiss)

	// a fill that started before the invalidation is discarded
	require.NoError(t, cache.Invalidate(ctx, id))
	require.NoError(t, cache.Set(ctx, id, lookup, stale))
	_, current, err := cache.Get(ctx, id)
	require.ErrorIs(t, err, ErrCacheMiss)
	assert.Greater(t, current, stale)

	require.NoError(t, cache.Set(ctx, id, lookup, current))
	got, generation, err := cache.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, lookup, got)
	assert.Equal(t, current, generation)

	require.NoError(t, cache.Invalidate(ctx, id))
	_, _, err = cache.Get(ctx, id)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryQRLookupCacheExpiry(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryQRLookupCache(time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	id := uuid.New()
	require.NoError(t, cache.Set(ctx, id, &models.QRLookup{ID: 1, DestinationURL: "https://example.com", IsActive: true}, 0))
	_, _, err := cache.Get(ctx, id)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, _, err = cache.Get(ctx, id)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestNoopQRLookupCacheAlwaysMisses(t *testing.T) {
	ctx := context.Background()
	var cache QRLookupCache = NoopQRLookupCache{}
	id := uuid.New()

	require.NoError(t, cache.Set(ctx, id, &models.QRLookup{ID: 1}, 0))
	_, _, err := cache.Get(ctx, id)
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.NoError(t, cache.Invalidate(ctx, id))
}
