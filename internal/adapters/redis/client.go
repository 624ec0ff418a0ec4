package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"coinm/internal/adapters/config"
	"coinm/pkg/errors"
)

// Client wraps Redis client. It backs the exchange info cache of the coin-M client.
type Client struct {
	rdb    *redis.Client
	prefix string
}

// NewClient creates a new Redis client and verifies the connection.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrapf(err, "redis ping %s", cfg.Addr())
	}

	return &Client{rdb: rdb}, nil
}

// WithPrefix returns a client that namespaces every key with prefix.
func (c *Client) WithPrefix(prefix string) *Client {
	return &Client{rdb: c.rdb, prefix: c.prefix + prefix}
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Health checks Redis connectivity
func (c *Client) Health(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Set stores value as JSON with optional TTL
func (c *Client) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "marshal cache value")
	}
	return c.rdb.Set(ctx, c.prefix+key, data, ttl).Err()
}

// Get decodes the value stored under key into dest. A missing key is errors.ErrNotFound.
func (c *Client) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if err == redis.Nil {
		return errors.ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// Delete deletes keys
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.prefix + k
	}
	return c.rdb.Del(ctx, full...).Err()
}
