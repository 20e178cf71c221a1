package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/vietddude/bridge/internal/core/domain"
)

// Client wraps Redis operations for the quote cache.
type Client struct {
	rdb *redis.Client
}

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping reports whether Redis is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Key helpers
func quoteKey(asset domain.Asset, amount decimal.Decimal) string {
	return fmt.Sprintf("quote:%s:%s", asset, amount.String())
}

// QuoteCache stores point quotes keyed by (asset, amount).
type QuoteCache struct {
	client *Client
	ttl    time.Duration
}

// NewQuoteCache creates a cache whose entries expire after ttl.
func NewQuoteCache(client *Client, ttl time.Duration) *QuoteCache {
	return &QuoteCache{client: client, ttl: ttl}
}

// Get returns the cached points for the pair. found is false on a miss.
func (q *QuoteCache) Get(
	ctx context.Context,
	asset domain.Asset,
	amount decimal.Decimal,
) (points decimal.Decimal, found bool, err error) {
	val, err := q.client.rdb.Get(ctx, quoteKey(asset, amount)).Result()
	if errors.Is(err, redis.Nil) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("get failed: %w", err)
	}

	points, err = decimal.NewFromString(val)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("invalid cached quote %q: %w", val, err)
	}
	return points, true, nil
}

// Set stores the points for the pair.
func (q *QuoteCache) Set(
	ctx context.Context,
	asset domain.Asset,
	amount decimal.Decimal,
	points decimal.Decimal,
) error {
	if err := q.client.rdb.Set(ctx, quoteKey(asset, amount), points.String(), q.ttl).Err(); err != nil {
		return fmt.Errorf("set failed: %w", err)
	}
	return nil
}
