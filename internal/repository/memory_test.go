package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAvailabilityRepository(t *testing.T) {
	repo := NewMemoryAvailabilityRepository(time.Minute)
	ctx := context.Background()

	hit, err := repo.GetAvailability(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, hit, "empty cache answers nil")

	require.NoError(t, repo.SetAvailability(ctx, 1, false))

	hit, err = repo.GetAvailability(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.False(t, *hit)

	require.NoError(t, repo.SetAvailability(ctx, 1, true))
	hit, err = repo.GetAvailability(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.True(t, *hit)

	require.NoError(t, repo.Invalidate(ctx, 1))
	hit, err = repo.GetAvailability(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, hit)
}

func TestMemoryAvailabilityRepositoryTTL(t *testing.T) {
	repo := NewMemoryAvailabilityRepository(10 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, repo.SetAvailability(ctx, 2, true))

	time.Sleep(20 * time.Millisecond)

	hit, err := repo.GetAvailability(ctx, 2)
	require.NoError(t, err)
	assert.Nil(t, hit, "expired entry must behave like a miss")
}
