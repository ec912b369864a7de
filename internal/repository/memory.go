package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryLock struct {
	token     string
	expiresAt time.Time
}

// MemorySlotLocker is a process-local SlotLocker with the same expiry
// semantics as the Redis one.
type MemorySlotLocker struct {
	mu    sync.Mutex
	locks map[int64]memoryLock
	now   func() time.Time
}

func NewMemorySlotLocker() *MemorySlotLocker {
	return &MemorySlotLocker{locks: make(map[int64]memoryLock), now: time.Now}
}

func (l *MemorySlotLocker) Acquire(_ context.Context, slotID int64, ttl time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if held, ok := l.locks[slotID]; ok && now.Before(held.expiresAt) {
		return "", false, nil
	}
	token := uuid.NewString()
	l.locks[slotID] = memoryLock{token: token, expiresAt: now.Add(ttl)}
	return token, true, nil
}

func (l *MemorySlotLocker) Release(_ context.Context, slotID int64, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if held, ok := l.locks[slotID]; ok && held.token == token {
		delete(l.locks, slotID)
	}
	return nil
}
