package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/liamashdown/insiderdetector/internal/config"
	"github.com/liamashdown/insiderdetector/internal/metrics"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisStore keeps state keys in Redis under a common prefix
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(cfg *config.Config, log *logrus.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	s := NewRedisStoreWithClient(client, cfg.RedisPrefix)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Ping(ctx); err != nil {
		client.Close()
		return nil, err
	}

	log.WithField("addr", cfg.RedisAddr).Info("Redis connection established")
	return s, nil
}

// NewRedisStoreWithClient wraps an existing client
func NewRedisStoreWithClient(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":state:" + k
}

// GetState retrieves a state value by key
func (s *RedisStore) GetState(ctx context.Context, key string) (string, error) {
	start := time.Now()
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		val, err = "", nil
	}
	metrics.RecordStoreQuery(config.CursorStoreRedis, "get", time.Since(start), err)
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, nil
}

// SetState stores a state value with no expiry
func (s *RedisStore) SetState(ctx context.Context, key, value string) error {
	start := time.Now()
	err := s.client.Set(ctx, s.key(key), value, 0).Err()
	metrics.RecordStoreQuery(config.CursorStoreRedis, "set", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Ping verifies the connection is alive
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}
