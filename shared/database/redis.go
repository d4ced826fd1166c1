package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ridehail/control-plane/shared/logger"
)

// RedisDB represents a Redis connection pool. The key-value operations
// used by the orchestrator's idempotency store live in shared/cache.Cache,
// not here — this type owns only the connection lifecycle.
type RedisDB struct {
	Client *redis.Client
	logger *logger.Logger
}

// NewRedisDB dials addr (host:port) and verifies the connection with a
// Ping before returning.
func NewRedisDB(ctx context.Context, addr, password string, db int, log *logger.Logger) (*RedisDB, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	log.WithFields(logger.Fields{"addr": addr, "db": db}).Info("connected to Redis")

	return &RedisDB{Client: client, logger: log}, nil
}

// Close closes the Redis connection.
func (r *RedisDB) Close() error {
	if r.Client != nil {
		r.logger.Logger.Info("closing Redis connection")
		return r.Client.Close()
	}
	return nil
}

// Health checks the Redis health.
func (r *RedisDB) Health(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}

// Stats returns Redis pool statistics.
func (r *RedisDB) Stats() *redis.PoolStats {
	return r.Client.PoolStats()
}
