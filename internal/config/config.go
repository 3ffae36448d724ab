// Package config loads and validates the documentation build server's YAML
// configuration: server-wide settings, the target publication profiles, and
// the ambient build/notification/metrics knobs shared across the scheduler,
// git client, and control plane.
package config

import (
	"fmt"
	"os"
	"sync"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the unified server configuration format, decoded from a single
// YAML file at startup.
type Config struct {
	Version string `yaml:"version"`

	ServerName string `yaml:"server_name"`
	Listen     string `yaml:"listen"`
	MaxThreads int    `yaml:"max_threads,omitempty"`

	WorkspaceRoot    string `yaml:"workspace_root"`
	BackupRoot       string `yaml:"backup_root"`
	CacheDir         string `yaml:"cache_dir"`
	StateFile        string `yaml:"state_file,omitempty"`
	StaticServerRoot string `yaml:"static_server_root,omitempty"`

	ValidLanguages    []string `yaml:"valid_languages"`
	ValidSiteSections []string `yaml:"valid_site_sections,omitempty"`

	Build BuildConfig `yaml:"build,omitempty"`

	Targets []Target `yaml:"targets"`

	Notification NotificationConfig `yaml:"notification,omitempty"`
	Metrics      MetricsConfig      `yaml:"metrics,omitempty"`
	NATS         *NATSConfig        `yaml:"nats,omitempty"`
	History      HistoryConfig      `yaml:"history,omitempty"`
	Resync       ResyncConfig       `yaml:"resync,omitempty"`

	// Tools holds the filesystem paths/commands used to invoke external
	// collaborators (stitcher, DAPS runner, archive tool, navigation builder,
	// dc-hash, rsync). See internal/execx.
	Tools ToolsConfig `yaml:"tools,omitempty"`

	// targetsMu guards Targets against concurrent reload by internal/watch.
	// Every other field is treated as fixed for the process lifetime; only
	// the target profiles are hot-swappable.
	targetsMu sync.RWMutex
}

// TargetsSnapshot returns a copy of the current target profiles, safe to
// range over even while a reload is swapping them out underneath.
func (c *Config) TargetsSnapshot() []Target {
	c.targetsMu.RLock()
	defer c.targetsMu.RUnlock()
	out := make([]Target, len(c.Targets))
	copy(out, c.Targets)
	return out
}

// TargetByName looks up a single target profile by name.
func (c *Config) TargetByName(name string) (Target, bool) {
	c.targetsMu.RLock()
	defer c.targetsMu.RUnlock()
	for _, t := range c.Targets {
		if t.Name == name {
			return t, true
		}
	}
	return Target{}, false
}

// ReplaceTargets atomically swaps in a new set of target profiles, picked up
// by the next TargetsSnapshot/TargetByName call. In-flight instructions keep
// whatever target value they already captured.
func (c *Config) ReplaceTargets(targets []Target) {
	c.targetsMu.Lock()
	defer c.targetsMu.Unlock()
	c.Targets = targets
}

// Target is a named publication profile: the set of ambient flags that shape
// how an instruction destined for it is validated, built, and published.
type Target struct {
	Name                string   `yaml:"name"`
	Internal            bool     `yaml:"internal,omitempty"`
	ConfigDir           string   `yaml:"config_dir"`
	CanonicalDomain     string   `yaml:"canonical_domain"`
	ServerBasePath      string   `yaml:"server_base_path,omitempty"`
	DefaultLanguage     string   `yaml:"default_language"`
	OmitDefaultLanguage bool     `yaml:"omit_default_language,omitempty"`
	SyncToLive          bool     `yaml:"sync_to_live,omitempty"`
	LivePath            string   `yaml:"live_path,omitempty"`
	RsyncExcludeFile    string   `yaml:"rsync_exclude_file,omitempty"`
	BackupRoot          string   `yaml:"backup_root,omitempty"`
	WorkspaceRoot       string   `yaml:"workspace_root,omitempty"`
	Maintainers         []string `yaml:"maintainers,omitempty"`
	DAPSImage           string   `yaml:"daps_image,omitempty"`
	DAPSRemarks         bool     `yaml:"daps_remarks,omitempty"`
	DAPSMeta            bool     `yaml:"daps_meta,omitempty"`
}

// NotificationConfig selects how maintainer notifications are delivered.
type NotificationConfig struct {
	Mode         string `yaml:"mode"` // sendmail|filedrop
	SendmailPath string `yaml:"sendmail_path,omitempty"`
	MailFrom     string `yaml:"mail_from,omitempty"`
	DropDir      string `yaml:"drop_dir,omitempty"`
}

// MetricsConfig configures the Prometheus recorder. An empty Listen keeps
// the Noop recorder active.
type MetricsConfig struct {
	Listen string `yaml:"listen,omitempty"`
	Path   string `yaml:"path,omitempty"`
}

// NATSConfig configures the optional notification fan-out publisher.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// HistoryConfig configures the SQLite historical build-record archive backing
// the debug history endpoint.
type HistoryConfig struct {
	Path               string `yaml:"path,omitempty"`
	RetentionPerTarget int    `yaml:"retention_per_target,omitempty"`
}

// ResyncConfig configures the periodic full-resync job.
type ResyncConfig struct {
	Enabled  bool   `yaml:"enabled,omitempty"`
	Schedule string `yaml:"schedule,omitempty"` // cron expression, default nightly
}

// ToolsConfig names the external collaborator binaries/images invoked by execx.
type ToolsConfig struct {
	Stitcher          string `yaml:"stitcher,omitempty"`
	DCHash            string `yaml:"dc_hash,omitempty"`
	DAPSRunner        string `yaml:"daps_runner,omitempty"`
	ArchiveTool       string `yaml:"archive_tool,omitempty"`
	NavigationBuilder string `yaml:"navigation_builder,omitempty"`
	Rsync             string `yaml:"rsync,omitempty"`
	XMLStarlet        string `yaml:"xmlstarlet,omitempty"`
}

// Load reads, expands, defaults, and validates a server configuration file.
// A .env file in the current working directory, if present, overlays process
// environment variables referenced by ${VAR} expansion before the YAML is
// parsed.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "config: .env not loaded: %v\n", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
