package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"voice-summary-service/internal/config"
)

// Nil re-exports the driver's cache-miss sentinel so callers outside this
// package don't import the driver directly.
var Nil = redis.Nil

type RedisClient interface {
	Ping(ctx context.Context) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	Close() error
}

var _ RedisClient = (*redClient)(nil)

type redClient struct {
	cli *redis.Client
}

func NewClient(ctx context.Context, cfg *config.RedisConfig) (*redClient, error) {
	opts := &redis.Options{
		Addr:     cfg.URL,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	c := redis.NewClient(opts)
	if err := c.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &redClient{cli: c}, nil
}

func (r *redClient) Ping(ctx context.Context) error {
	return r.cli.Ping(ctx).Err()
}

func (r *redClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return r.cli.Set(ctx, key, value, expiration).Err()
}

func (r *redClient) Get(ctx context.Context, key string) (string, error) {
	return r.cli.Get(ctx, key).Result()
}

func (r *redClient) Del(ctx context.Context, keys ...string) error {
	return r.cli.Del(ctx, keys...).Err()
}

func (r *redClient) Close() error {
	return r.cli.Close()
}
