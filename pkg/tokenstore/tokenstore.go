// Package tokenstore keeps the ids of tokens revoked before their natural expiry.
package tokenstore

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Store revoked token registry
type Store interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Config Redis connection settings
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
	Prefix   string
}

// RedisStore Redis-backed Store. Entries expire with the token they revoke.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to Redis
func NewRedisStore(config *Config) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", config.Host, config.Port),
		Password: config.Password,
		DB:       config.DB,
	})
	return NewRedisStoreWithClient(client, config.Prefix)
}

// NewRedisStoreWithClient wraps an existing client
func NewRedisStoreWithClient(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "tripadmin"
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
	}
}

func (s *RedisStore) key(jti string) string {
	return fmt.Sprintf("%s:revoked:%s", s.prefix, jti)
}

// Revoke marks jti as revoked for ttl. A non-positive ttl means the token already expired.
func (s *RedisStore) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, s.key(jti), 1, ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether jti was revoked
func (s *RedisStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	n, err := s.client.Exists(ctx, s.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return n > 0, nil
}

// Ping checks the connection
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Noop is used when Redis is not configured: nothing is ever revoked.
type Noop struct{}

func (Noop) Revoke(context.Context, string, time.Duration) error { return nil }

func (Noop) IsRevoked(context.Context, string) (bool, error) { return false, nil }
