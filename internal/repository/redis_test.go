package repository

import (
	"context"
	"testing"
	"time"

	"salonbook/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisSlotLocker(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := NewRedisClient(config.RedisConfig{Address: s.Addr()})
	defer client.Close()

	locker := NewRedisSlotLocker(client)
	ctx := context.Background()

	t.Run("AcquireAndRelease", func(t *testing.T) {
		release, err := locker.Acquire(ctx, "slot:2024-01-01:10:00", time.Minute)
		require.NoError(t, err)
		assert.True(t, s.Exists(lockKeyPrefix+"slot:2024-01-01:10:00"))

		_, err = locker.Acquire(ctx, "slot:2024-01-01:10:00", time.Minute)
		assert.ErrorIs(t, err, ErrSlotLocked)

		release()
		release() // second call is a no-op
		assert.False(t, s.Exists(lockKeyPrefix+"slot:2024-01-01:10:00"))

		again, err := locker.Acquire(ctx, "slot:2024-01-01:10:00", time.Minute)
		require.NoError(t, err)
		again()
	})

	t.Run("Expiry", func(t *testing.T) {
		_, err := locker.Acquire(ctx, "slot:expiring", time.Second)
		require.NoError(t, err)

		s.FastForward(time.Second + time.Millisecond)

		release, err := locker.Acquire(ctx, "slot:expiring", time.Second)
		require.NoError(t, err)
		release()
	})

	t.Run("StaleReleaseKeepsNewOwner", func(t *testing.T) {
		stale, err := locker.Acquire(ctx, "slot:stale", time.Second)
		require.NoError(t, err)
		s.FastForward(2 * time.Second)

		owner, err := locker.Acquire(ctx, "slot:stale", time.Minute)
		require.NoError(t, err)

		stale()
		assert.True(t, s.Exists(lockKeyPrefix+"slot:stale"))
		owner()
	})

	t.Run("NilClient", func(t *testing.T) {
		_, err := NewRedisSlotLocker(nil).Acquire(ctx, "slot", time.Second)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "redis client is nil")
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, Ping(ctx, client))
	})
}

func TestRedisSlotLockerServerDown(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: s.Addr(), MaxRetries: -1})
	defer client.Close()
	s.Close()

	_, err = NewRedisSlotLocker(client).Acquire(context.Background(), "slot", time.Second)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrSlotLocked)
}

func TestClose(t *testing.T) {
	assert.NoError(t, Close(nil))
}
