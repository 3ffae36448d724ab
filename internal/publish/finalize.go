package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"codeberg.org/opensuse/docbuildd/internal/stitch"
)

// Step is one command in a finalize sequence. ExecuteAfterError steps still
// run even after an earlier step has failed, so cleanup/removal never leaks
// temporary directories.
type Step struct {
	Name              string
	ExecuteAfterError bool
	Run               func(ctx context.Context) error
}

// RunSteps executes steps in order. A non-ExecuteAfterError step's failure
// aborts remaining non-cleanup steps but does not skip later
// ExecuteAfterError steps. The first error encountered is returned.
func RunSteps(ctx context.Context, steps []Step) error {
	var firstErr error
	failed := false
	for _, step := range steps {
		if failed && !step.ExecuteAfterError {
			continue
		}
		if err := step.Run(ctx); err != nil {
			slog.Error("finalize step failed", slog.String("step", step.Name), slog.String("error", err.Error()))
			failed = true
			if firstErr == nil {
				firstErr = fmt.Errorf("finalize step %s: %w", step.Name, err)
			}
		}
	}
	return firstErr
}

// Plan describes everything the finalize phase of one instruction needs to
// know to assemble its step sequence.
type Plan struct {
	Success            bool
	Docset             *stitch.Docset
	Target             string
	Lang               string
	Product            string
	DocsetID           string
	BackupPath         string
	DocsetRelativePath string
	TempInstructionDir string
	EphemeralGitDir    string
	TempNavigationDir  string
	SyncToLive         bool
	LivePath           string
	RsyncExcludeFile   string

	Rsync            *Rsync
	Archiver         *Archiver
	ArchiveOpts      ArchiveOptions
	NavBuilder       *NavigationBuilder
	NavOpts          NavigationOptions
	StaticServerRoot string
}

// BuildSteps assembles the finalize step sequence per the success/lifecycle/
// navigation/sync-to-live rules: archive+backup, navigation regeneration,
// live sync, and unconditional cleanup of every temporary tree.
func (p *Plan) BuildSteps() []Step {
	var steps []Step

	if p.Success {
		backupDocsetPath := p.BackupPath + "/" + p.DocsetRelativePath

		if p.Docset.Lifecycle != stitch.LifecycleUnsupported {
			steps = append(steps, Step{
				Name: "archive",
				Run: func(ctx context.Context) error {
					return p.Archiver.Archive(ctx, p.ArchiveOpts)
				},
			})
			steps = append(steps, Step{
				Name: "rsync-backup",
				Run: func(ctx context.Context) error {
					res := p.Rsync.Copy(ctx, p.TempInstructionDir, p.BackupPath)
					return res.Err
				},
			})
		} else {
			steps = append(steps, Step{
				Name: "recreate-empty-backup-subdir",
				Run: func(ctx context.Context) error {
					if err := os.RemoveAll(backupDocsetPath); err != nil {
						return err
					}
					if err := os.MkdirAll(backupDocsetPath, 0o755); err != nil {
						return err
					}
					return p.Archiver.Archive(ctx, p.ArchiveOpts)
				},
			})
		}

		if p.Docset.Navigation == stitch.NavigationLinked || p.Docset.Navigation == stitch.NavigationHidden {
			steps = append(steps, Step{
				Name: "prepare-temp-navigation-dir",
				Run: func(ctx context.Context) error {
					return os.MkdirAll(p.TempNavigationDir, 0o755)
				},
			})
			steps = append(steps, Step{
				Name: "rsync-static-into-navigation-tmp",
				Run: func(ctx context.Context) error {
					res := p.Rsync.Copy(ctx, p.StaticServerRoot, p.TempNavigationDir)
					return res.Err
				},
			})
			steps = append(steps, Step{
				Name: "build-navigation",
				Run: func(ctx context.Context) error {
					return p.NavBuilder.Build(ctx, p.NavOpts)
				},
			})
			steps = append(steps, Step{
				Name: "rsync-navigation-into-backup",
				Run: func(ctx context.Context) error {
					res := p.Rsync.Copy(ctx, p.TempNavigationDir, p.BackupPath)
					return res.Err
				},
			})
		}

		if p.SyncToLive {
			steps = append(steps, Step{
				Name: "sync-to-live",
				Run: func(ctx context.Context) error {
					res := p.Rsync.SyncToLive(ctx, p.BackupPath, p.LivePath, p.RsyncExcludeFile)
					return res.Err
				},
			})
		}
	}

	steps = append(steps,
		Step{Name: "remove-ephemeral-git-dir", ExecuteAfterError: true, Run: removeDirStep(p.EphemeralGitDir)},
		Step{Name: "remove-temp-instruction-dir", ExecuteAfterError: true, Run: removeDirStep(p.TempInstructionDir)},
	)
	if p.TempNavigationDir != "" {
		steps = append(steps, Step{Name: "remove-temp-navigation-dir", ExecuteAfterError: true, Run: removeDirStep(p.TempNavigationDir)})
	}

	return steps
}

func removeDirStep(dir string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if dir == "" {
			return nil
		}
		if err := os.RemoveAll(dir); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}
}
