package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptchaRotateRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewMemoryChallengeStore(ctx)
	svc, err := NewCaptchaServiceRotate(store, time.Minute, 5, 160)
	require.NoError(t, err)

	challenge, err := svc.GenerateRotate(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, challenge.ID)
	assert.NotEmpty(t, challenge.MasterImageBase64)
	assert.NotEmpty(t, challenge.ThumbImageBase64)

	store.mu.Lock()
	target := store.m[challenge.ID].targetAngle
	store.mu.Unlock()

	// the thumb is rotated back by the remaining angle
	solved := float64(360 - target)
	assert.True(t, svc.VerifyRotate(ctx, challenge.ID, solved))
	// consumed
	assert.False(t, svc.VerifyRotate(ctx, challenge.ID, solved))
}

func TestCaptchaRotateRejectsWrongAngle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewMemoryChallengeStore(ctx)
	svc, err := NewCaptchaServiceRotate(store, time.Minute, 5, 160)
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "fixed", 90, time.Minute))
	assert.False(t, svc.VerifyRotate(ctx, "fixed", 90))

	require.NoError(t, store.Put(ctx, "fixed", 90, time.Minute))
	assert.True(t, svc.VerifyRotate(ctx, "fixed", 272))
}

func TestCaptchaRejectsUnknownAndExpired(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewMemoryChallengeStore(ctx)
	svc, err := NewCaptchaServiceRotate(store, time.Minute, 5, 160)
	require.NoError(t, err)

	assert.False(t, svc.VerifyRotate(ctx, "", 0))
	assert.False(t, svc.VerifyRotate(ctx, "missing", 0))

	require.NoError(t, store.Put(ctx, "stale", 90, -time.Second))
	assert.False(t, svc.VerifyRotate(ctx, "stale", 90))
}

func TestNewCaptchaServiceRequiresStore(t *testing.T) {
	svc, err := NewCaptchaServiceRotate(nil, time.Minute, 5, 160)
	assert.Error(t, err)
	assert.Nil(t, svc)
}
