package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"pricecompare/internal/catalog"
	"pricecompare/internal/logger"
)

// snapshot is the last successful load with its expiry.
type snapshot struct {
	expiresAt time.Time
	products  []catalog.Product
}

// Source caches the products of an underlying catalog.Source for a TTL.
// Concurrent refreshes are coalesced; when a refresh fails and an older
// snapshot exists, the stale snapshot is served instead of the error.
type Source struct {
	S   catalog.Source
	TTL time.Duration
	Log *logger.Entry

	now func() time.Time

	mu   sync.RWMutex
	snap *snapshot

	sf singleflight.Group
}

func New(s catalog.Source, ttl time.Duration) *Source {
	return &Source{S: s, TTL: ttl, Log: logger.GetLogger().WithComponent("catalog-cache")}
}

func (c *Source) clock() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}

func (c *Source) Products(ctx context.Context) ([]catalog.Product, error) {
	if c.TTL <= 0 {
		return c.S.Products(ctx)
	}

	c.mu.RLock()
	snap := c.snap
	c.mu.RUnlock()
	if snap != nil && c.clock().Before(snap.expiresAt) {
		return snap.products, nil
	}

	v, err, _ := c.sf.Do("products", func() (any, error) {
		c.mu.RLock()
		cur := c.snap
		c.mu.RUnlock()
		if cur != nil && c.clock().Before(cur.expiresAt) {
			return cur.products, nil
		}
		// Detach so one caller's cancellation does not fail the others sharing this load.
		products, err := c.S.Products(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.snap = &snapshot{expiresAt: c.clock().Add(c.TTL), products: products}
		c.mu.Unlock()
		return products, nil
	})
	if err != nil {
		if snap != nil {
			if c.Log != nil {
				c.Log.WithError(err).Warn("catalog refresh failed, serving stale snapshot")
			}
			return snap.products, nil
		}
		return nil, err
	}
	return v.([]catalog.Product), nil
}
