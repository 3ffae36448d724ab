package config

import (
	"fmt"

	foundationerrors "codeberg.org/opensuse/docbuildd/internal/foundation/errors"
)

// Validate performs fail-fast structural validation of a loaded configuration.
// Every failure is a *foundationerrors.ClassifiedError tagged CategoryConfig so
// the CLI adapter exits with the configuration-error code.
func Validate(cfg *Config) error {
	if len(cfg.Targets) == 0 {
		return configError("at least one target must be configured")
	}
	if len(cfg.ValidLanguages) == 0 {
		return configError("valid_languages must not be empty")
	}
	if cfg.WorkspaceRoot == "" {
		return configError("workspace_root is required")
	}
	if cfg.BackupRoot == "" {
		return configError("backup_root is required")
	}
	if cfg.CacheDir == "" {
		return configError("cache_dir is required")
	}

	seen := make(map[string]struct{}, len(cfg.Targets))
	for _, t := range cfg.Targets {
		if t.Name == "" {
			return configError("target name cannot be empty")
		}
		if _, dup := seen[t.Name]; dup {
			return configError(fmt.Sprintf("duplicate target name: %s", t.Name))
		}
		seen[t.Name] = struct{}{}

		if t.ConfigDir == "" {
			return configError(fmt.Sprintf("target %s: config_dir is required", t.Name))
		}
		if t.WorkspaceRoot == "" {
			return configError(fmt.Sprintf("target %s: workspace_root could not be resolved", t.Name))
		}
		if t.BackupRoot == "" {
			return configError(fmt.Sprintf("target %s: backup_root could not be resolved", t.Name))
		}
		if t.SyncToLive && t.LivePath == "" {
			return configError(fmt.Sprintf("target %s: sync_to_live requires live_path", t.Name))
		}
	}

	switch cfg.Notification.Mode {
	case "sendmail", "filedrop":
	default:
		return configError(fmt.Sprintf("unsupported notification mode: %s", cfg.Notification.Mode))
	}
	if cfg.Notification.Mode == "filedrop" && cfg.Notification.DropDir == "" {
		cfg.Notification.DropDir = cfg.CacheDir
	}

	if cfg.Build.MaxRetries < 0 {
		return configError("build.max_retries cannot be negative")
	}
	if mode := cfg.Build.RetryBackoff; mode != "" && NormalizeRetryBackoff(string(mode)) == "" {
		return configError(fmt.Sprintf("build.retry_backoff: unrecognized mode %q", mode))
	}

	return nil
}

func configError(message string) error {
	return foundationerrors.ConfigError(message).Build()
}
