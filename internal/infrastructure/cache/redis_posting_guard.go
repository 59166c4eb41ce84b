package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apptransfer "github.com/wms/backend/internal/application/transfer"
)

// RedisPostingGuard implements the posting guard on Redis. Suitable for
// multi-instance deployments where concurrent posting attempts for the same
// transfer can arrive on different instances.
type RedisPostingGuard struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisPostingGuard creates a new Redis-based posting guard
func NewRedisPostingGuard(cfg RedisConfig) (*RedisPostingGuard, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisPostingGuard{
		client:    client,
		keyPrefix: "posting:guard:",
	}, nil
}

// NewRedisPostingGuardWithClient creates a guard with an existing Redis client
func NewRedisPostingGuardWithClient(client *redis.Client, keyPrefix string) *RedisPostingGuard {
	if keyPrefix == "" {
		keyPrefix = "posting:guard:"
	}
	return &RedisPostingGuard{client: client, keyPrefix: keyPrefix}
}

// Acquire atomically claims the key with a TTL. Returns false when another
// posting attempt already holds it.
func (g *RedisPostingGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	acquired, err := g.client.SetNX(ctx, g.keyPrefix+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire posting guard: %w", err)
	}
	return acquired, nil
}

// Release frees the key so a retry can acquire it again
func (g *RedisPostingGuard) Release(ctx context.Context, key string) error {
	if err := g.client.Del(ctx, g.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release posting guard: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (g *RedisPostingGuard) Close() error {
	return g.client.Close()
}

// Ensure RedisPostingGuard implements PostingGuard
var _ apptransfer.PostingGuard = (*RedisPostingGuard)(nil)
