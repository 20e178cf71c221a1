// Package quote fetches how many points a deposit will yield.
package quote

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vietddude/bridge/internal/core/domain"
	"github.com/vietddude/bridge/internal/metrics"
)

// Source computes quotes. Implemented by the backend client.
type Source interface {
	Quote(ctx context.Context, asset domain.Asset, amount decimal.Decimal) (decimal.Decimal, error)
}

// Cache stores quotes per (asset, amount) pair.
type Cache interface {
	Get(ctx context.Context, asset domain.Asset, amount decimal.Decimal) (decimal.Decimal, bool, error)
	Set(ctx context.Context, asset domain.Asset, amount, points decimal.Decimal) error
}

// Client requests quotes and keeps only the most recent result. Each call
// takes a sequence number; a response that arrives after a newer request
// was issued is dropped with ErrStaleQuote so it cannot overwrite the
// newer display.
type Client struct {
	source Source
	cache  Cache
	log    *slog.Logger

	mu     sync.Mutex
	seq    uint64
	latest *domain.Quote
}

// NewClient creates a quote client. cache may be nil.
func NewClient(source Source, cache Cache) *Client {
	return &Client{
		source: source,
		cache:  cache,
		log:    slog.Default().With("component", "quote"),
	}
}

// Quote fetches points for the pair. amount 0 is passed through to the
// backend like any other value. On error the previous quote stays latest.
func (c *Client) Quote(ctx context.Context, asset domain.Asset, amount decimal.Decimal) (domain.Quote, error) {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.mu.Unlock()

	if c.cache != nil {
		points, ok, err := c.cache.Get(ctx, asset, amount)
		if err != nil {
			c.log.Warn("quote cache read failed", "error", err)
		}
		if ok {
			metrics.QuoteRequests.WithLabelValues("cache_hit").Inc()
			return c.publish(seq, domain.Quote{
				Asset:     asset,
				Amount:    amount,
				Points:    points,
				FetchedAt: time.Now(),
			})
		}
	}

	points, err := c.source.Quote(ctx, asset, amount)
	if err != nil {
		metrics.QuoteRequests.WithLabelValues("error").Inc()
		c.log.Warn("quote request failed",
			"asset", asset,
			"amount", amount.String(),
			"error", err,
		)
		return domain.Quote{}, err
	}
	metrics.QuoteRequests.WithLabelValues("ok").Inc()

	if c.cache != nil {
		if err := c.cache.Set(ctx, asset, amount, points); err != nil {
			c.log.Warn("quote cache write failed", "error", err)
		}
	}

	return c.publish(seq, domain.Quote{
		Asset:     asset,
		Amount:    amount,
		Points:    points,
		FetchedAt: time.Now(),
	})
}

// Latest returns the most recent successful quote.
func (c *Client) Latest() (domain.Quote, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.latest == nil {
		return domain.Quote{}, false
	}
	return *c.latest, true
}

// Reset forgets the latest quote and invalidates in-flight requests.
func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.latest = nil
}

func (c *Client) publish(seq uint64, q domain.Quote) (domain.Quote, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.seq {
		metrics.QuoteRequests.WithLabelValues("stale").Inc()
		return q, domain.ErrStaleQuote
	}
	c.latest = &q
	return q, nil
}
