// Package watch hot-reloads target-level ambient flags (sync-to-live,
// server base path, maintainer lists) from the configuration file without
// restarting in-flight instructions. The server-wide settings — listen
// address, workspace/backup roots, tool paths — are fixed for the process
// lifetime and are not affected by a reload.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	appcfg "codeberg.org/opensuse/docbuildd/internal/config"
)

// debounceTime absorbs editors that write a config file in several rapid
// events (write-then-rename, multiple partial writes).
const debounceTime = 2 * time.Second

// ConfigWatcher monitors the configuration file for changes and applies
// target-profile updates to the live *appcfg.Config in place.
type ConfigWatcher struct {
	configPath string
	cfg        *appcfg.Config

	watcher *fsnotify.Watcher

	mu         sync.Mutex
	stopChan   chan struct{}
	reloadChan chan struct{}
	debounce   time.Duration
}

// NewConfigWatcher builds a watcher for configPath that applies reloads onto
// cfg. cfg must be the same *appcfg.Config instance shared with the
// scheduler, handler, and cron job, since those consult it via
// Config.TargetsSnapshot/TargetByName.
func NewConfigWatcher(configPath string, cfg *appcfg.Config) (*ConfigWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	absPath, err := filepath.Abs(configPath)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch: resolve config path: %w", err)
	}

	return &ConfigWatcher{
		configPath: absPath,
		cfg:        cfg,
		watcher:    watcher,
		stopChan:   make(chan struct{}),
		reloadChan: make(chan struct{}, 1),
		debounce:   debounceTime,
	}, nil
}

// Start begins monitoring the configuration file's directory. Renames and
// atomic-replace writes (the common pattern for editors and deploy tooling)
// only emit events visible at the directory level, not the file level.
func (cw *ConfigWatcher) Start(ctx context.Context) error {
	configDir := filepath.Dir(cw.configPath)
	if err := cw.watcher.Add(configDir); err != nil {
		return fmt.Errorf("watch: watch config directory %s: %w", configDir, err)
	}

	slog.Info("configuration watcher started", slog.String("config_path", cw.configPath))

	go cw.watchLoop(ctx)
	go cw.reloadLoop(ctx)

	return nil
}

// Stop halts the watcher's goroutines and closes the underlying fsnotify
// watcher. Safe to call once.
func (cw *ConfigWatcher) Stop() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	select {
	case <-cw.stopChan:
		return nil // already stopped
	default:
		close(cw.stopChan)
	}
	return cw.watcher.Close()
}

func (cw *ConfigWatcher) watchLoop(ctx context.Context) {
	configFile := filepath.Base(cw.configPath)

	for {
		select {
		case <-ctx.Done():
			return
		case <-cw.stopChan:
			return
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != configFile {
				continue
			}
			switch {
			case event.Op&fsnotify.Remove == fsnotify.Remove:
				slog.Warn("config file removed, keeping current targets", slog.String("file", event.Name))
			case event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0:
				cw.triggerReload()
			}
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("config watcher error", slog.String("error", err.Error()))
		}
	}
}

func (cw *ConfigWatcher) reloadLoop(ctx context.Context) {
	var reloadTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			return
		case <-cw.stopChan:
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			return
		case <-cw.reloadChan:
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			reloadTimer = time.AfterFunc(cw.debounce, func() {
				if err := cw.performReload(); err != nil {
					slog.Error("config reload failed", slog.String("error", err.Error()))
				}
			})
		}
	}
}

func (cw *ConfigWatcher) triggerReload() {
	select {
	case cw.reloadChan <- struct{}{}:
	default:
		// a reload is already pending
	}
}

func (cw *ConfigWatcher) performReload() error {
	slog.Info("reloading configuration", slog.String("config_path", cw.configPath))

	newCfg, err := appcfg.Load(cw.configPath)
	if err != nil {
		return fmt.Errorf("load new configuration: %w", err)
	}

	if err := cw.validateReload(newCfg); err != nil {
		return err
	}

	cw.cfg.ReplaceTargets(newCfg.Targets)
	slog.Info("configuration reloaded", slog.Int("targets", len(newCfg.Targets)))
	return nil
}

// validateReload rejects a change of the config version, which needs a
// restart. A changed listen address is only logged and keeps its startup
// value. No other field outside Targets is compared, and the reload does not
// apply changes to them.
func (cw *ConfigWatcher) validateReload(newCfg *appcfg.Config) error {
	if newCfg.Version != cw.cfg.Version {
		return fmt.Errorf("config version changed from %q to %q, restart required", cw.cfg.Version, newCfg.Version)
	}
	if newCfg.Listen != cw.cfg.Listen {
		slog.Warn("listen address changed in config file, restart required for it to take effect",
			slog.String("current", cw.cfg.Listen), slog.String("new", newCfg.Listen))
	}
	return nil
}
