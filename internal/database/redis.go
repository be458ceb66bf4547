package database

import (
	"context"
	"sync"
	"time"

	"tripadmin/pkg/config"
	"tripadmin/pkg/logger"
	"tripadmin/pkg/tokenstore"
)

var (
	tokenStoreInstance tokenstore.Store
	redisStore         *tokenstore.RedisStore
	tokenStoreOnce     sync.Once
)

// GetTokenStore returns the revoked token store singleton. Without a configured Redis host
// revocation is disabled.
func GetTokenStore() tokenstore.Store {
	tokenStoreOnce.Do(func() {
		cfg := config.GetConfig()
		if cfg.Redis.Host == "" {
			logger.Component("token-store").Warn("REDIS_HOST not set, token revocation disabled")
			tokenStoreInstance = tokenstore.Noop{}
			return
		}

		redisStore = tokenstore.NewRedisStore(&tokenstore.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := redisStore.Ping(ctx); err != nil {
			logger.Component("token-store").Errorf("Redis ping failed: %v", err)
		}
		tokenStoreInstance = redisStore
	})
	return tokenStoreInstance
}

// CloseTokenStore closes the Redis connection
func CloseTokenStore() error {
	if redisStore != nil {
		return redisStore.Close()
	}
	return nil
}
