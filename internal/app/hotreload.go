package app

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"sample-calibrator/internal/config"
)

// ConfigReloader watches the config file and hands each successfully loaded
// revision to a callback. Rig constants can then be tuned while the camera
// keeps running.
type ConfigReloader struct {
	path          string
	baseline      time.Time
	checkInterval time.Duration
	logger        *slog.Logger

	mu       sync.Mutex
	stopCh   chan struct{}
	onReload func(*config.Config)
}

// NewConfigReloader creates a reloader for path. The file's current
// modification time is the baseline; a missing file has a zero baseline, so
// creating it later counts as a change.
func NewConfigReloader(path string, checkInterval time.Duration, logger *slog.Logger) *ConfigReloader {
	if realPath, err := filepath.EvalSymlinks(path); err == nil {
		path = realPath
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &ConfigReloader{
		path:          path,
		checkInterval: checkInterval,
		logger:        logger,
	}
	if t, err := r.CurrentModTime(); err == nil {
		r.baseline = t
	}
	return r
}

// OnReload sets the callback for new configurations. It is called from a
// background goroutine; UI updates need their own synchronisation.
func (r *ConfigReloader) OnReload(callback func(*config.Config)) {
	r.mu.Lock()
	r.onReload = callback
	r.mu.Unlock()
}

// Start begins polling in a background goroutine.
func (r *ConfigReloader) Start() {
	r.mu.Lock()
	r.stopCh = make(chan struct{})
	stop := r.stopCh
	r.mu.Unlock()
	go r.watchLoop(stop)
}

// Stop stops the watcher goroutine.
func (r *ConfigReloader) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopCh != nil {
		close(r.stopCh)
		r.stopCh = nil
	}
}

func (r *ConfigReloader) watchLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(r.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.Check()
		}
	}
}

// Check loads the file if it changed since the last successful load and
// reports whether a new configuration was delivered. A file that fails to
// parse is logged and retried on the next change.
func (r *ConfigReloader) Check() bool {
	t, err := r.CurrentModTime()
	if err != nil || !t.After(r.baseline) {
		return false
	}
	r.baseline = t

	cfg, err := config.Load(r.path)
	if err != nil {
		r.logger.Warn("config.reload_failed", "path", r.path, "error", err)
		return false
	}
	r.logger.Info("config.reloaded", "path", r.path)

	r.mu.Lock()
	cb := r.onReload
	r.mu.Unlock()
	if cb != nil {
		cb(cfg)
	}
	return true
}

// CurrentModTime returns the modification time of the watched file.
func (r *ConfigReloader) CurrentModTime() (time.Time, error) {
	info, err := os.Stat(r.path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// Path returns the watched config path.
func (r *ConfigReloader) Path() string { return r.path }
