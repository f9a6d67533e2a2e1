package querydsl

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	catalogPath string
	catalogYAML []byte
	baseDir     string
	watch       bool

	addrs      []string
	password   string
	standalone bool
	keyPrefix  string

	l1Size int
	ttl    time.Duration

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithCatalogFile loads the catalog from a YAML file. Script files are
// resolved relative to its directory.
func WithCatalogFile(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.catalogPath = path
		c.catalogYAML = nil
	})
}

// WithCatalog uses an in-memory YAML catalog. Script files are resolved
// relative to baseDir.
func WithCatalog(yaml []byte, baseDir string) Option {
	return optionFunc(func(c *clientConfig) {
		c.catalogYAML = yaml
		c.baseDir = baseDir
		c.catalogPath = ""
	})
}

// WithWatch reloads a file catalog whenever it changes on disk.
// Ignored for in-memory catalogs.
func WithWatch() Option {
	return optionFunc(func(c *clientConfig) {
		c.watch = true
	})
}

// WithRedis shares compiled queries through a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithStandalone disables cluster topology discovery.
// Use for standalone Redis instances (not managed by cluster operator).
func WithStandalone() Option {
	return optionFunc(func(c *clientConfig) {
		c.standalone = true
	})
}

// WithKeyPrefix sets the Redis key prefix. Default: "querydsl:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithCache keeps up to size compiled queries in process for ttl.
// ttl also applies to Redis entries. Default: no in-process cache.
func WithCache(size int, ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.l1Size = size
		c.ttl = ttl
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
