package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySlotLocker(t *testing.T) {
	ctx := context.Background()
	l := NewMemorySlotLocker()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	token, ok, err := l.Acquire(ctx, 1, 10*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, _ = l.Acquire(ctx, 1, 10*time.Second)
	assert.False(t, ok)

	require.NoError(t, l.Release(ctx, 1, "other"))
	_, ok, _ = l.Acquire(ctx, 1, 10*time.Second)
	assert.False(t, ok, "foreign token must not release")

	now = now.Add(11 * time.Second)
	token2, ok, _ := l.Acquire(ctx, 1, 10*time.Second)
	assert.True(t, ok, "expired lock is taken over")

	require.NoError(t, l.Release(ctx, 1, token))
	_, ok, _ = l.Acquire(ctx, 1, 10*time.Second)
	assert.False(t, ok, "stale token from the first holder is ignored")

	require.NoError(t, l.Release(ctx, 1, token2))
	_, ok, _ = l.Acquire(ctx, 1, 10*time.Second)
	assert.True(t, ok)
}

func TestMemorySlotLockerConcurrent(t *testing.T) {
	ctx := context.Background()
	l := NewMemorySlotLocker()

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok, _ := l.Acquire(ctx, 7, time.Minute); ok {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, winners)
}
