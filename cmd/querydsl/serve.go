package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/querydsl/internal/catalog"
	"github.com/kailas-cloud/querydsl/internal/config"
	dbRedis "github.com/kailas-cloud/querydsl/internal/db/redis"
	logpkg "github.com/kailas-cloud/querydsl/internal/logger"
	"github.com/kailas-cloud/querydsl/internal/metrics"
	"github.com/kailas-cloud/querydsl/internal/repository/querycache"
	chiTransport "github.com/kailas-cloud/querydsl/internal/transport/chi"
	compileuc "github.com/kailas-cloud/querydsl/internal/usecase/compile"
	healthuc "github.com/kailas-cloud/querydsl/internal/usecase/health"
	"github.com/kailas-cloud/querydsl/internal/version"
)

// redisReadyTimeout bounds the wait for the L2 cache at startup.
const redisReadyTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var env, configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the compile HTTP service",
		Long: `Run the compile HTTP service. Configuration is read from
config/<env>.yaml, or from --config. The environment defaults to $ENV,
then "local".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if env == "" {
				env = config.GetEnv()
			}
			var (
				cfg config.Config
				err error
			)
			if configPath != "" {
				cfg, err = config.LoadFile(configPath)
			} else {
				cfg, err = config.Load(env)
			}
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return serve(env, cfg)
		},
	}
	cmd.Flags().StringVar(&env, "env", "", "Environment: local, dev, docker or prod")
	cmd.Flags().StringVar(&configPath, "config", "", "Explicit config file path")
	return cmd
}

func serve(env string, cfg config.Config) error {
	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting querydsl API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("catalog", cfg.Catalog.Path),
		zap.Strings("cache_addrs", cfg.Cache.Redis.Addrs),
	)

	metrics.Register()

	cat, err := catalog.Load(cfg.Catalog.Path, logger)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	registry := catalog.NewRegistry(cat)
	logger.Info("Catalog loaded", zap.Int("engines", registry.EngineCount()), zap.String("digest", cat.Digest()))

	if cfg.Catalog.Watch {
		watcher := catalog.NewWatcher(cfg.Catalog.Path, registry, logger, nil)
		if err := watcher.Start(); err != nil {
			return err
		}
		defer watcher.Stop()
	}

	// Pass a nil interface (not a typed nil pointer) when L2 is not configured.
	var (
		cachePinger healthuc.CachePinger
		cache       *querycache.Cache
	)
	cacheOpts := querycache.Options{
		L1Size:      cfg.Cache.L1Size,
		TTL:         cfg.Cache.TTL(),
		KeyPrefix:   cfg.Cache.Redis.KeyPrefix,
		MaxFailures: cfg.Cache.Breaker.MaxFailures,
		OpenTimeout: time.Duration(cfg.Cache.Breaker.OpenSec) * time.Second,
	}
	if len(cfg.Cache.Redis.Addrs) > 0 {
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:      cfg.Cache.Redis.Addrs,
			Password:   cfg.Cache.Redis.Password,
			Standalone: cfg.Cache.Redis.Standalone,
			Timeout:    time.Duration(cfg.Cache.Redis.TimeoutMs) * time.Millisecond,
		})
		if err != nil {
			return fmt.Errorf("create cache store: %w", err)
		}
		defer store.Close()
		if err := store.WaitForReady(context.Background(), redisReadyTimeout); err != nil {
			// L2 is optional: serve from L1 and let the breaker guard calls.
			logger.Warn("Cache store not ready", zap.Error(err))
		} else {
			logger.Info("Connected to cache store")
		}
		cachePinger = store
		cache = querycache.New(store, cacheOpts, logger)
	} else {
		cache = querycache.New(nil, cacheOpts, logger)
	}

	compileSvc := compileuc.New(registry, cache)
	healthSvc := healthuc.New(registry, cachePinger)

	server := chiTransport.NewServer(compileSvc, healthSvc, int64(cfg.HTTP.MaxBodyBytes), logger)
	handler := chiTransport.NewRouter(server, chiTransport.RouterConfig{
		APIKeys: cfg.Auth.APIKeys,
		RPS:     cfg.RateLimit.RPS,
		Burst:   cfg.RateLimit.Burst,
	}, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-quit:
		logger.Info("Received shutdown signal")
	case err := <-errCh:
		return fmt.Errorf("HTTP server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
	return nil
}
