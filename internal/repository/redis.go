package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"parkdesk/internal/config"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const slotLockPrefix = "parkdesk:slot_lock:"

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func Ping(ctx context.Context, client *redis.Client) error {
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisSlotLocker holds per-slot locks as SET NX PX keys carrying a random token.
type RedisSlotLocker struct {
	client *redis.Client
}

func NewRedisSlotLocker(client *redis.Client) *RedisSlotLocker {
	return &RedisSlotLocker{client: client}
}

func slotLockKey(slotID int64) string {
	return slotLockPrefix + strconv.FormatInt(slotID, 10)
}

func (l *RedisSlotLocker) Acquire(ctx context.Context, slotID int64, ttl time.Duration) (string, bool, error) {
	if l.client == nil {
		return "", false, errors.New("redis client is nil")
	}
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, slotLockKey(slotID), token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to acquire slot lock: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (l *RedisSlotLocker) Release(ctx context.Context, slotID int64, token string) error {
	if l.client == nil {
		return errors.New("redis client is nil")
	}
	if err := releaseScript.Run(ctx, l.client, []string{slotLockKey(slotID)}, token).Err(); err != nil {
		return fmt.Errorf("failed to release slot lock: %w", err)
	}
	return nil
}
