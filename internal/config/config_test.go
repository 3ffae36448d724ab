package config

import "testing"

func TestApplyDefaultsFillsBuildAndNotification(t *testing.T) {
	cfg := &Config{
		WorkspaceRoot:  "/ws",
		BackupRoot:     "/backup",
		CacheDir:       "/cache",
		ValidLanguages: []string{"en-us"},
		Targets:        []Target{{Name: "main", ConfigDir: "/cfg/main"}},
	}
	ApplyDefaults(cfg)

	if cfg.Build.RetryBackoff != RetryBackoffLinear {
		t.Fatalf("expected default retry backoff linear, got %s", cfg.Build.RetryBackoff)
	}
	if cfg.Build.MaxRetries != 2 {
		t.Fatalf("expected default max retries 2, got %d", cfg.Build.MaxRetries)
	}
	if cfg.Notification.Mode != "filedrop" {
		t.Fatalf("expected default notification mode filedrop, got %s", cfg.Notification.Mode)
	}
	if cfg.Targets[0].WorkspaceRoot != "/ws" {
		t.Fatalf("expected target to inherit server workspace_root, got %s", cfg.Targets[0].WorkspaceRoot)
	}
	if cfg.History.RetentionPerTarget != 200 {
		t.Fatalf("expected default history retention 200, got %d", cfg.History.RetentionPerTarget)
	}
}

func TestValidateRejectsEmptyTargets(t *testing.T) {
	cfg := &Config{
		WorkspaceRoot:  "/ws",
		BackupRoot:     "/backup",
		CacheDir:       "/cache",
		ValidLanguages: []string{"en-us"},
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for empty targets")
	}
}

func TestValidateRejectsDuplicateTargetNames(t *testing.T) {
	cfg := &Config{
		WorkspaceRoot:  "/ws",
		BackupRoot:     "/backup",
		CacheDir:       "/cache",
		ValidLanguages: []string{"en-us"},
		Targets: []Target{
			{Name: "main", ConfigDir: "/cfg/a"},
			{Name: "main", ConfigDir: "/cfg/b"},
		},
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for duplicate target name")
	}
}

func TestValidateRequiresLivePathWhenSyncToLive(t *testing.T) {
	cfg := &Config{
		WorkspaceRoot:  "/ws",
		BackupRoot:     "/backup",
		CacheDir:       "/cache",
		ValidLanguages: []string{"en-us"},
		Targets: []Target{
			{Name: "main", ConfigDir: "/cfg/a", SyncToLive: true},
		},
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for sync_to_live without live_path")
	}
}

func TestTargetsSnapshotAndByName(t *testing.T) {
	cfg := &Config{Targets: []Target{{Name: "public"}, {Name: "internal"}}}

	snap := cfg.TargetsSnapshot()
	if len(snap) != 2 {
		t.Fatalf("expected 2 targets in snapshot, got %d", len(snap))
	}

	if _, ok := cfg.TargetByName("internal"); !ok {
		t.Fatal("expected to find target by name")
	}
	if _, ok := cfg.TargetByName("missing"); ok {
		t.Fatal("expected no match for unknown target name")
	}
}

func TestReplaceTargetsSwapsSnapshot(t *testing.T) {
	cfg := &Config{Targets: []Target{{Name: "public"}}}

	cfg.ReplaceTargets([]Target{{Name: "public"}, {Name: "beta"}})

	if len(cfg.TargetsSnapshot()) != 2 {
		t.Fatalf("expected replaced targets to contain 2 entries, got %d", len(cfg.TargetsSnapshot()))
	}
	if _, ok := cfg.TargetByName("beta"); !ok {
		t.Fatal("expected newly added target to be visible after replace")
	}
}

func TestNormalizeRetryBackoff(t *testing.T) {
	cases := map[string]RetryBackoffMode{
		"Fixed":        RetryBackoffFixed,
		" linear ":     RetryBackoffLinear,
		"EXPONENTIAL":  RetryBackoffExponential,
		"nonsense":     "",
	}
	for in, want := range cases {
		if got := NormalizeRetryBackoff(in); got != want {
			t.Errorf("NormalizeRetryBackoff(%q) = %q, want %q", in, got, want)
		}
	}
}
