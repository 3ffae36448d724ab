package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	appcfg "codeberg.org/opensuse/docbuildd/internal/config"
)

const baseConfig = `
version: "1"
server_name: docbuildd
listen: 127.0.0.1:8080
workspace_root: /tmp/ws
backup_root: /tmp/backup
cache_dir: /tmp/cache
valid_languages: [en-us]
targets:
  - name: public
    config_dir: /cfg/public
`

const updatedConfig = `
version: "1"
server_name: docbuildd
listen: 127.0.0.1:8080
workspace_root: /tmp/ws
backup_root: /tmp/backup
cache_dir: /tmp/cache
valid_languages: [en-us]
targets:
  - name: public
    config_dir: /cfg/public
  - name: internal
    config_dir: /cfg/internal
    internal: true
`

func writeConfig(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestConfigWatcherReloadsTargetsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docbuildd.yaml")
	writeConfig(t, path, baseConfig)

	cfg, err := appcfg.Load(path)
	if err != nil {
		t.Fatalf("load initial config: %v", err)
	}
	if len(cfg.TargetsSnapshot()) != 1 {
		t.Fatalf("expected 1 initial target, got %d", len(cfg.TargetsSnapshot()))
	}

	cw, err := NewConfigWatcher(path, cfg)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	cw.debounce = 20 * time.Millisecond
	defer cw.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := cw.Start(ctx); err != nil {
		t.Fatalf("start watcher: %v", err)
	}

	writeConfig(t, path, updatedConfig)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(cfg.TargetsSnapshot()) == 2 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	targets := cfg.TargetsSnapshot()
	if len(targets) != 2 {
		t.Fatalf("expected reload to pick up 2 targets, got %d", len(targets))
	}
	if _, ok := cfg.TargetByName("internal"); !ok {
		t.Fatalf("expected new target %q to be present after reload", "internal")
	}
}

func TestConfigWatcherRejectsVersionChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docbuildd.yaml")
	writeConfig(t, path, baseConfig)

	cfg, err := appcfg.Load(path)
	if err != nil {
		t.Fatalf("load initial config: %v", err)
	}

	cw, err := NewConfigWatcher(path, cfg)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}

	newCfg := &appcfg.Config{Version: "2"}
	if err := cw.validateReload(newCfg); err == nil {
		t.Fatal("expected version mismatch to be rejected")
	}
}
