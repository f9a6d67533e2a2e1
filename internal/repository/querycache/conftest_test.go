package querycache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/querydsl/internal/db"
	"github.com/kailas-cloud/querydsl/internal/metrics"
)

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
	err  error
	gets int
	puts int
}

func newMockKVStore() *mockKVStore {
	return &mockKVStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *mockKVStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.err != nil {
		return nil, m.err
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockKVStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	if m.err != nil {
		return m.err
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func newTestCache(t *testing.T, l2 store, opts Options) *Cache {
	t.Helper()
	if opts.TTL == 0 {
		opts.TTL = time.Minute
	}
	return New(l2, opts, zap.NewNop())
}

func cacheCount(layer, result string) float64 {
	return testutil.ToFloat64(metrics.CacheTotal.WithLabelValues(layer, result))
}
