package querydsl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/querydsl/internal/catalog"
	dbRedis "github.com/kailas-cloud/querydsl/internal/db/redis"
	"github.com/kailas-cloud/querydsl/internal/repository/querycache"
	compileuc "github.com/kailas-cloud/querydsl/internal/usecase/compile"
	healthuc "github.com/kailas-cloud/querydsl/internal/usecase/health"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultKeyPrefix        = "querydsl:"
)

// Internal interfaces, replaced in tests.
type compileUseCase interface {
	Compile(ctx context.Context, req compileuc.Request) (compileuc.Result, error)
	Engines() []compileuc.EngineInfo
	Engine(name string) (compileuc.EngineInfo, error)
}

type cacheStore interface {
	Ping(ctx context.Context) error
	Close()
}

// Client is the querydsl SDK entry point.
type Client struct {
	registry   *catalog.Registry
	watcher    *catalog.Watcher
	store      cacheStore
	compileSvc compileUseCase
	healthSvc  healthUseCase
	cfg        *clientConfig
	obs        *observer
}

// New loads the catalog and creates a Client. When Redis is configured the
// provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{keyPrefix: defaultKeyPrefix}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.catalogPath == "" && cfg.catalogYAML == nil {
		return nil, errors.New("querydsl: catalog required (use WithCatalogFile or WithCatalog)")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	cat, err := loadCatalog(cfg)
	if err != nil {
		return nil, fmt.Errorf("querydsl: %w", err)
	}

	c := &Client{registry: catalog.NewRegistry(cat), cfg: cfg, obs: obs}

	var l2 *dbRedis.Store
	if len(cfg.addrs) > 0 {
		l2, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:      cfg.addrs,
			Password:   cfg.password,
			Standalone: cfg.standalone,
		})
		if err != nil {
			return nil, fmt.Errorf("querydsl: create redis store: %w", err)
		}
		if err := l2.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			l2.Close()
			return nil, fmt.Errorf("querydsl: redis not ready: %w", err)
		}
		c.store = l2
	}
	c.wire(l2)

	if cfg.watch && cfg.catalogPath != "" {
		c.watcher = catalog.NewWatcher(cfg.catalogPath, c.registry, nil, c.onReload)
		if err := c.watcher.Start(); err != nil {
			c.Close()
			return nil, fmt.Errorf("querydsl: %w", err)
		}
	}
	return c, nil
}

func loadCatalog(cfg *clientConfig) (*catalog.Catalog, error) {
	if cfg.catalogPath != "" {
		return catalog.Load(cfg.catalogPath, nil)
	}
	return catalog.Parse(cfg.catalogYAML, cfg.baseDir, nil)
}

// wire builds the services. l2 may be nil.
func (c *Client) wire(l2 *dbRedis.Store) {
	opts := querycache.Options{
		L1Size:    c.cfg.l1Size,
		TTL:       c.cfg.ttl,
		KeyPrefix: c.cfg.keyPrefix,
	}
	// Pass nil interfaces (not typed nil pointers) when Redis is not configured.
	var pinger healthuc.CachePinger
	cache := querycache.New(nil, opts, zap.NewNop())
	if l2 != nil {
		pinger = l2
		cache = querycache.New(l2, opts, zap.NewNop())
	}

	var compileCache compileuc.Cache
	if c.cfg.l1Size > 0 || l2 != nil {
		compileCache = cache
	}
	c.compileSvc = compileuc.New(c.registry, compileCache)
	c.healthSvc = healthuc.New(c.registry, pinger)
}

func (c *Client) onReload(rev uint64, err error) {
	if c.obs == nil || c.obs.logger == nil {
		return
	}
	if err != nil {
		c.obs.logger.Warn("catalog reload failed", "error", err)
		return
	}
	c.obs.logger.Info("catalog reloaded", "revision", rev)
}

// Close releases all resources.
func (c *Client) Close() {
	if c.watcher != nil {
		c.watcher.Stop()
	}
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks Redis connectivity. It is a no-op without Redis.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if c.store == nil {
		return nil
	}
	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Reload re-reads the catalog file and activates it. It returns the new
// revision; on error the current catalog stays active.
func (c *Client) Reload() (rev uint64, err error) {
	start := time.Now()
	defer func() { c.obs.observe("catalog.reload", start, err) }()

	if c.cfg.catalogPath == "" {
		return 0, errors.New("querydsl: reload needs a catalog file")
	}
	cat, err := catalog.Load(c.cfg.catalogPath, nil)
	if err != nil {
		return 0, fmt.Errorf("reload: %w", err)
	}
	return c.registry.Swap(cat), nil
}

// Revision is the revision of the active catalog. It starts at 1 and
// grows with every reload.
func (c *Client) Revision() uint64 {
	_, rev := c.registry.Snapshot()
	return rev
}

// Engines lists the engines of the active catalog sorted by name.
func (c *Client) Engines() []Engine {
	infos := c.compileSvc.Engines()
	out := make([]Engine, len(infos))
	for i, e := range infos {
		out[i] = engineFromInfo(e)
	}
	return out
}

// Engine describes one engine.
func (c *Client) Engine(name string) (Engine, error) {
	e, err := c.compileSvc.Engine(name)
	if err != nil {
		return Engine{}, fmt.Errorf("engine: %w", err)
	}
	return engineFromInfo(e), nil
}

// Compile compiles req.Engine with req.Params. Errors wrap the package
// sentinels.
func (c *Client) Compile(ctx context.Context, req Request) (res Result, err error) {
	start := time.Now()
	defer func() { c.obs.observe("compile", start, err) }()

	r, err := c.compileSvc.Compile(ctx, compileuc.Request{
		Engine: req.Engine,
		Params: req.Params,
		Base:   req.Base,
	})
	if err != nil {
		return Result{}, fmt.Errorf("compile: %w", err)
	}
	return Result{
		Engine:   r.Engine,
		Kind:     r.Kind,
		Revision: r.Revision,
		Query:    r.Query,
		Cached:   r.Cached,
	}, nil
}

func engineFromInfo(e compileuc.EngineInfo) Engine {
	return Engine{Name: e.Name, Kind: e.Kind, Attributes: e.Attributes}
}
