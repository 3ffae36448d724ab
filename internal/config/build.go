package config

// BuildConfig holds git/worker tuning knobs shared by the scheduler and the git client.
// Zero values trigger sensible defaults applied in ApplyDefaults.
type BuildConfig struct {
	// CloneConcurrency caps parallel clones across the worker pool.
	CloneConcurrency int `yaml:"clone_concurrency,omitempty"`
	// ShallowDepth, when >0, clones/fetches with --depth.
	ShallowDepth int `yaml:"shallow_depth,omitempty"`
	// PruneNonDocPaths removes top-level entries from a checkout that fall outside
	// the repository's configured doc paths, after clone and after update.
	PruneNonDocPaths bool `yaml:"prune_non_doc_paths,omitempty"`
	// PruneAllow/PruneDeny are glob patterns evaluated against top-level entry
	// names when PruneNonDocPaths is set; deny wins over allow, both lose to doc roots.
	PruneAllow []string `yaml:"prune_allow,omitempty"`
	PruneDeny  []string `yaml:"prune_deny,omitempty"`
	// CleanUntracked removes untracked files from the worktree after update.
	CleanUntracked bool `yaml:"clean_untracked,omitempty"`

	// Retry policy fields, shared between git operations and deliverable steps.
	MaxRetries        int              `yaml:"max_retries,omitempty"`
	RetryBackoff      RetryBackoffMode `yaml:"retry_backoff,omitempty"`
	RetryInitialDelay string           `yaml:"retry_initial_delay,omitempty"`
	RetryMaxDelay     string           `yaml:"retry_max_delay,omitempty"`
}
