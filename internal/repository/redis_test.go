package repository

import (
	"context"
	"testing"
	"time"

	"parkdesk/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisSlotLocker(t *testing.T) {
	s := miniredis.RunT(t)
	client := NewRedisClient(config.RedisConfig{Address: s.Addr()})
	defer client.Close()

	ctx := context.Background()
	require.NoError(t, Ping(ctx, client))
	locker := NewRedisSlotLocker(client)

	token, ok, err := locker.Acquire(ctx, 3, 10*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEmpty(t, token)

	t.Run("HeldLockRejects", func(t *testing.T) {
		_, ok, err := locker.Acquire(ctx, 3, 10*time.Second)
		require.NoError(t, err)
		assert.False(t, ok)

		_, ok, err = locker.Acquire(ctx, 4, 10*time.Second)
		require.NoError(t, err)
		assert.True(t, ok, "other slots are independent")
	})

	t.Run("ForeignTokenDoesNotRelease", func(t *testing.T) {
		require.NoError(t, locker.Release(ctx, 3, "not-mine"))
		assert.True(t, s.Exists(slotLockKey(3)))
	})

	t.Run("Release", func(t *testing.T) {
		require.NoError(t, locker.Release(ctx, 3, token))
		assert.False(t, s.Exists(slotLockKey(3)))

		_, ok, err := locker.Acquire(ctx, 3, 10*time.Second)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("Expiry", func(t *testing.T) {
		_, ok, err := locker.Acquire(ctx, 9, time.Second)
		require.NoError(t, err)
		require.True(t, ok)

		s.FastForward(2 * time.Second)

		_, ok, err = locker.Acquire(ctx, 9, time.Second)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestRedisSlotLockerUnavailable(t *testing.T) {
	s := miniredis.RunT(t)
	client := NewRedisClient(config.RedisConfig{Address: s.Addr()})
	defer client.Close()
	s.Close()

	locker := NewRedisSlotLocker(client)
	_, _, err := locker.Acquire(context.Background(), 1, time.Second)
	assert.Error(t, err)
	assert.Error(t, Ping(context.Background(), client))
}
