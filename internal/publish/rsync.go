// Package publish drives the finalize-phase collaborators: the archive tool,
// the navigation builder, and rsync, for copying a completed instruction's
// output tree into a target's backup path and optionally its live web root.
package publish

import (
	"context"

	"codeberg.org/opensuse/docbuildd/internal/execx"
)

// Rsync wraps the rsync binary with the two invocation shapes the finalize
// phase needs: a plain archive-style copy, and a delete-after sync to a live
// web root honoring an exclude file.
type Rsync struct {
	runner *execx.Runner
	bin    string
}

// NewRsync returns an Rsync that shells out to bin.
func NewRsync(runner *execx.Runner, bin string) *Rsync {
	return &Rsync{runner: runner, bin: bin}
}

// Copy runs `rsync -lr src/ dst`, the shape used for syncing build output
// into a backup path or navigation tree.
func (r *Rsync) Copy(ctx context.Context, src, dst string) execx.Result {
	return r.runner.Run(ctx, "", r.bin, "-lr", src+"/", dst)
}

// SyncToLive runs `rsync -lr --delete-after [--exclude-from=excludeFile] src/ dst`,
// the shape used to publish a target's backup path to its live web root.
func (r *Rsync) SyncToLive(ctx context.Context, src, dst, excludeFile string) execx.Result {
	args := []string{"-lr", "--delete-after"}
	if excludeFile != "" {
		args = append(args, "--exclude-from="+excludeFile)
	}
	args = append(args, src+"/", dst)
	return r.runner.Run(ctx, "", r.bin, args...)
}
