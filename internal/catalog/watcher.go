package catalog

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/kailas-cloud/querydsl/internal/metrics"
)

// Watcher reloads the catalog into a registry whenever the catalog file or
// one of its script files changes. A catalog that fails to load is logged
// and the previous one stays active.
type Watcher struct {
	path     string
	registry *Registry
	logger   *zap.Logger
	onReload func(rev uint64, err error)

	watcher *fsnotify.Watcher
	done    chan struct{}
	// files and dirs are owned by the loop goroutine once started.
	files map[string]struct{}
	dirs  map[string]struct{}
}

// NewWatcher creates a watcher for path. onReload, if set, is called after
// every reload attempt.
func NewWatcher(path string, registry *Registry, logger *zap.Logger, onReload func(rev uint64, err error)) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		path:     filepath.Clean(path),
		registry: registry,
		logger:   logger.With(zap.String("catalog", path)),
		onReload: onReload,
		done:     make(chan struct{}),
		files:    make(map[string]struct{}),
		dirs:     make(map[string]struct{}),
	}
}

// Start begins watching the catalog and the script files of the active
// catalog. Directories are watched rather than files so that editors
// replacing a file by rename are picked up. Call Stop to clean up.
func (cw *Watcher) Start() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("catalog watcher: %w", err)
	}
	cw.watcher = w
	if err := cw.track(cw.path); err != nil {
		_ = w.Close()
		return fmt.Errorf("catalog watcher: %w", err)
	}
	if c, _ := cw.registry.Snapshot(); c != nil {
		cw.trackScripts(c)
	}

	go cw.loop()
	cw.logger.Info("watching catalog", zap.Int("script_files", len(cw.files)-1))
	return nil
}

// track adds file to the watch set.
func (cw *Watcher) track(file string) error {
	file = filepath.Clean(file)
	dir := filepath.Dir(file)
	if _, ok := cw.dirs[dir]; !ok {
		if err := cw.watcher.Add(dir); err != nil {
			return err
		}
		cw.dirs[dir] = struct{}{}
	}
	cw.files[file] = struct{}{}
	return nil
}

// trackScripts watches the script files of c. Files dropped from the
// catalog stay watched.
func (cw *Watcher) trackScripts(c *Catalog) {
	for _, f := range c.ScriptFiles() {
		if err := cw.track(f); err != nil {
			cw.logger.Warn("cannot watch script file", zap.String("file", f), zap.Error(err))
		}
	}
}

// Stop shuts down the watcher.
func (cw *Watcher) Stop() {
	if cw.watcher == nil {
		return
	}
	_ = cw.watcher.Close()
	<-cw.done
}

func (cw *Watcher) loop() {
	defer close(cw.done)
	for {
		select {
		case evt, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if _, ok := cw.files[filepath.Clean(evt.Name)]; !ok {
				continue
			}
			if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				cw.reload()
			}
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			cw.logger.Warn("catalog watcher error", zap.Error(err))
		}
	}
}

func (cw *Watcher) reload() {
	c, err := Load(cw.path, cw.logger)
	if err != nil {
		metrics.CatalogReloadsTotal.WithLabelValues("error").Inc()
		cw.logger.Error("catalog reload failed, keeping previous catalog", zap.Error(err))
		if cw.onReload != nil {
			cw.onReload(0, err)
		}
		return
	}
	rev := cw.registry.Swap(c)
	cw.trackScripts(c)
	metrics.CatalogReloadsTotal.WithLabelValues("ok").Inc()
	cw.logger.Info("catalog reloaded",
		zap.Uint64("revision", rev),
		zap.Int("engines", len(c.Engines())),
	)
	if cw.onReload != nil {
		cw.onReload(rev, nil)
	}
}
