package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/olekros/zvistka/internal/config"
	"github.com/olekros/zvistka/internal/utils"
)

// Freshness tracks which listing walks are recent enough to serve from the
// store without re-fetching.
type Freshness interface {
	IsFresh(ctx context.Context, sourceURL, mode string) (bool, error)
	MarkFresh(ctx context.Context, sourceURL, mode string, ttl time.Duration) error
	Invalidate(ctx context.Context, sourceURL, mode string) error
	Close() error
}

type RedisClient struct {
	client *redis.Client
	prefix string
}

func NewRedisClient(cfg *config.Config) (*RedisClient, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisClient{
		client: client,
		prefix: cfg.RedisPrefix + "fresh:",
	}, nil
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}

func (r *RedisClient) IsFresh(ctx context.Context, sourceURL, mode string) (bool, error) {
	exists, err := r.client.Exists(ctx, r.key(sourceURL, mode)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists error: %w", err)
	}
	return exists > 0, nil
}

func (r *RedisClient) MarkFresh(ctx context.Context, sourceURL, mode string, ttl time.Duration) error {
	return r.client.Set(ctx, r.key(sourceURL, mode), "1", ttl).Err()
}

func (r *RedisClient) Invalidate(ctx context.Context, sourceURL, mode string) error {
	return r.client.Del(ctx, r.key(sourceURL, mode)).Err()
}

func (r *RedisClient) key(sourceURL, mode string) string {
	return r.prefix + utils.Hash(sourceURL+"|"+mode)
}
