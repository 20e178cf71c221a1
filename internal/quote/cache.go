package quote

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vietddude/bridge/internal/core/domain"
)

type cacheEntry struct {
	points    decimal.Decimal
	expiresAt time.Time
}

// MemoryCache is a process-local Cache used when Redis is not configured.
type MemoryCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

func memoryKey(asset domain.Asset, amount decimal.Decimal) string {
	return string(asset) + ":" + amount.String()
}

func (m *MemoryCache) Get(_ context.Context, asset domain.Asset, amount decimal.Decimal) (decimal.Decimal, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := memoryKey(asset, amount)
	e, ok := m.entries[key]
	if !ok {
		return decimal.Zero, false, nil
	}
	if m.ttl > 0 && m.now().After(e.expiresAt) {
		delete(m.entries, key)
		return decimal.Zero, false, nil
	}
	return e.points, true, nil
}

func (m *MemoryCache) Set(_ context.Context, asset domain.Asset, amount, points decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[memoryKey(asset, amount)] = cacheEntry{
		points:    points,
		expiresAt: m.now().Add(m.ttl),
	}
	return nil
}
