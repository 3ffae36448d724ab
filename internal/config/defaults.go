package config

// ApplyDefaults fills in zero-valued fields with sensible defaults. Called
// after YAML decoding, before Validate.
func ApplyDefaults(cfg *Config) {
	if cfg.ServerName == "" {
		cfg.ServerName = "docbuildd"
	}
	if cfg.Listen == "" {
		cfg.Listen = "127.0.0.1:8080"
	}
	if cfg.MaxThreads <= 0 {
		cfg.MaxThreads = 4
	}
	if cfg.StateFile == "" {
		cfg.StateFile = cfg.CacheDir + "/" + cfg.ServerName + ".json"
	}

	applyBuildDefaults(&cfg.Build)
	applyNotificationDefaults(&cfg.Notification)
	applyHistoryDefaults(&cfg.History)
	applyResyncDefaults(&cfg.Resync)
	applyToolsDefaults(&cfg.Tools)

	for i := range cfg.Targets {
		applyTargetDefaults(&cfg.Targets[i], cfg)
	}
}

func applyBuildDefaults(b *BuildConfig) {
	if b.CloneConcurrency <= 0 {
		b.CloneConcurrency = 4
	}
	if b.MaxRetries <= 0 {
		b.MaxRetries = 2
	}
	if b.RetryBackoff == "" {
		b.RetryBackoff = RetryBackoffLinear
	}
	if b.RetryInitialDelay == "" {
		b.RetryInitialDelay = "1s"
	}
	if b.RetryMaxDelay == "" {
		b.RetryMaxDelay = "30s"
	}
}

func applyNotificationDefaults(n *NotificationConfig) {
	if n.Mode == "" {
		n.Mode = "filedrop"
	}
	if n.Mode == "sendmail" && n.SendmailPath == "" {
		n.SendmailPath = "/usr/sbin/sendmail"
	}
}

func applyHistoryDefaults(h *HistoryConfig) {
	if h.RetentionPerTarget <= 0 {
		h.RetentionPerTarget = 200
	}
}

func applyResyncDefaults(r *ResyncConfig) {
	if r.Enabled && r.Schedule == "" {
		r.Schedule = "0 2 * * *" // nightly at 02:00
	}
}

func applyToolsDefaults(t *ToolsConfig) {
	if t.Stitcher == "" {
		t.Stitcher = "stitcher"
	}
	if t.DCHash == "" {
		t.DCHash = "dc-hash"
	}
	if t.DAPSRunner == "" {
		t.DAPSRunner = "daps"
	}
	if t.ArchiveTool == "" {
		t.ArchiveTool = "daps-zip"
	}
	if t.NavigationBuilder == "" {
		t.NavigationBuilder = "daps-navigation"
	}
	if t.Rsync == "" {
		t.Rsync = "rsync"
	}
	if t.XMLStarlet == "" {
		t.XMLStarlet = "xmlstarlet"
	}
}

func applyTargetDefaults(t *Target, cfg *Config) {
	if t.WorkspaceRoot == "" {
		t.WorkspaceRoot = cfg.WorkspaceRoot
	}
	if t.BackupRoot == "" {
		t.BackupRoot = cfg.BackupRoot
	}
	if t.DefaultLanguage == "" && len(cfg.ValidLanguages) > 0 {
		t.DefaultLanguage = cfg.ValidLanguages[0]
	}
}
