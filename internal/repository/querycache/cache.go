// Package querycache caches serialized compiled queries in a two-level
// cache: an in-process LRU in front of an optional shared Redis layer.
package querycache

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/kailas-cloud/querydsl/internal/db"
	"github.com/kailas-cloud/querydsl/internal/metrics"
)

// store is the consumer interface for the L2 layer (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Options configures a Cache.
type Options struct {
	// L1Size is the LRU capacity; 0 disables the in-process layer.
	L1Size int
	// TTL applies to both layers.
	TTL time.Duration
	// KeyPrefix namespaces L2 keys.
	KeyPrefix string
	// MaxFailures consecutive L2 failures open the breaker.
	MaxFailures uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
}

// Cache is safe for concurrent use. L2 failures are logged and counted,
// never returned.
type Cache struct {
	l1      *expirable.LRU[string, []byte]
	l2      store
	breaker *gobreaker.CircuitBreaker
	opts    Options
	logger  *zap.Logger
}

// New creates a cache. l2 may be nil.
func New(l2 store, opts Options, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxFailures == 0 {
		opts.MaxFailures = 5
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = 30 * time.Second
	}

	c := &Cache{l2: l2, opts: opts, logger: logger}
	if opts.L1Size > 0 {
		c.l1 = expirable.NewLRU[string, []byte](opts.L1Size, nil, opts.TTL)
	}
	if l2 != nil {
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "query-cache-l2",
			MaxRequests: 1,
			Timeout:     opts.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= opts.MaxFailures
			},
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, db.ErrKeyNotFound)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				metrics.CacheBreakerState.Set(breakerGauge(to))
				logger.Warn("cache breaker state changed",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		})
		metrics.CacheBreakerState.Set(0)
	}
	return c
}

func breakerGauge(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// Get looks key up in L1, then L2. An L2 hit is copied into L1.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c.l1 != nil {
		if v, ok := c.l1.Get(key); ok {
			inc("l1", "hit")
			return v, true
		}
		inc("l1", "miss")
	}
	if c.l2 == nil {
		return nil, false
	}

	res, err := c.breaker.Execute(func() (any, error) {
		return c.l2.Get(ctx, c.opts.KeyPrefix+key)
	})
	switch {
	case err == nil:
	case errors.Is(err, db.ErrKeyNotFound):
		inc("l2", "miss")
		return nil, false
	default:
		c.l2Failed("get", key, err)
		return nil, false
	}

	data, _ := res.([]byte)
	if len(data) == 0 {
		inc("l2", "miss")
		return nil, false
	}
	inc("l2", "hit")
	if c.l1 != nil {
		c.l1.Add(key, data)
	}
	return data, true
}

// Put stores data in both layers.
func (c *Cache) Put(ctx context.Context, key string, data []byte) {
	if c.l1 != nil {
		c.l1.Add(key, data)
	}
	if c.l2 == nil {
		return
	}
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.l2.SetWithTTL(ctx, c.opts.KeyPrefix+key, data, c.opts.TTL)
	})
	if err != nil {
		c.l2Failed("put", key, err)
	}
}

// Len is the number of L1 entries.
func (c *Cache) Len() int {
	if c.l1 == nil {
		return 0
	}
	return c.l1.Len()
}

func (c *Cache) l2Failed(op, key string, err error) {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		inc("l2", "open")
		return
	}
	inc("l2", "error")
	c.logger.Warn("L2 cache "+op+" failed", zap.String("key", key), zap.Error(err))
}

func inc(layer, result string) {
	metrics.CacheTotal.WithLabelValues(layer, result).Inc()
}
