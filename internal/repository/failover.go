package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"parkdesk/internal/domain"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverSlotLocker uses primary until it errors, then serves from fallback
// and probes primary again once recoveryInterval has passed.
type FailoverSlotLocker struct {
	primary  domain.SlotLocker
	fallback domain.SlotLocker
	logger   *zerolog.Logger

	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
	now       func() time.Time
}

func NewFailoverSlotLocker(primary, fallback domain.SlotLocker, logger *zerolog.Logger) *FailoverSlotLocker {
	return &FailoverSlotLocker{primary: primary, fallback: fallback, logger: logger, now: time.Now}
}

func (l *FailoverSlotLocker) markDown(err error) {
	l.logger.Error().Err(err).Msg("primary slot locker failed, falling back to memory")
	l.isDown.Store(true)
	l.mu.Lock()
	l.lastCheck = l.now()
	l.mu.Unlock()
}

// usePrimary reports whether the next call should go to primary.
func (l *FailoverSlotLocker) usePrimary() bool {
	if !l.isDown.Load() {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.now().Sub(l.lastCheck) > recoveryInterval {
		l.lastCheck = l.now()
		return true
	}
	return false
}

func (l *FailoverSlotLocker) Acquire(ctx context.Context, slotID int64, ttl time.Duration) (string, bool, error) {
	if l.usePrimary() {
		token, ok, err := l.primary.Acquire(ctx, slotID, ttl)
		if err == nil {
			if l.isDown.Swap(false) {
				l.logger.Info().Msg("primary slot locker recovered")
			}
			return token, ok, nil
		}
		l.markDown(err)
	}
	return l.fallback.Acquire(ctx, slotID, ttl)
}

// Release goes to both lockers; a token only matches in the one that issued it.
func (l *FailoverSlotLocker) Release(ctx context.Context, slotID int64, token string) error {
	if !l.isDown.Load() {
		if err := l.primary.Release(ctx, slotID, token); err != nil {
			l.markDown(err)
		}
	}
	return l.fallback.Release(ctx, slotID, token)
}
