package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"salonbook/internal/config"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrSlotLocked means another invocation is booking the same slot.
var ErrSlotLocked = errors.New("slot is locked by a concurrent booking")

const lockKeyPrefix = "salonbook:lock:"

// releaseScript deletes the lock only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisSlotLocker struct {
	client *redis.Client
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	return redis.NewClient(options)
}

func NewRedisSlotLocker(client *redis.Client) *RedisSlotLocker {
	return &RedisSlotLocker{client: client}
}

func (l *RedisSlotLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if l.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}

	redisKey := lockKeyPrefix + key
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, redisKey, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock in redis: %w", err)
	}
	if !ok {
		return nil, ErrSlotLocked
	}

	releaseCtx := context.WithoutCancel(ctx)
	release := sync.OnceFunc(func() {
		_ = releaseScript.Run(releaseCtx, l.client, []string{redisKey}, token).Err()
	})
	return release, nil
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
