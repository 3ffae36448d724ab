// Package cron drives periodic maintenance jobs — currently the full-resync
// sweep that re-submits every supported docset on a schedule, independent of
// the HTTP control plane.
package cron

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-co-op/gocron/v2"

	appcfg "codeberg.org/opensuse/docbuildd/internal/config"
	"codeberg.org/opensuse/docbuildd/internal/scheduler"
	"codeberg.org/opensuse/docbuildd/internal/stitch"
)

// defaultSchedule matches the reference nightly cadence when the
// configuration leaves the resync schedule unset.
const defaultSchedule = "0 2 * * *"

// Submitter is the subset of scheduler.Scheduler the resync job needs.
type Submitter interface {
	Submit(d scheduler.Descriptor)
}

// Job runs the periodic full-resync sweep: for every configured target, it
// re-stitches that target's configuration and submits one instruction per
// (product, docset, language) whose docset lifecycle is "supported".
type Job struct {
	cfg      *appcfg.Config
	stitcher *stitch.Invoker
	sched    Submitter
	cron     gocron.Scheduler
}

// New builds a resync Job. It does not start the underlying gocron
// scheduler; call Start for that.
func New(cfg *appcfg.Config, stitcher *stitch.Invoker, sched Submitter) (*Job, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("cron: create scheduler: %w", err)
	}
	return &Job{cfg: cfg, stitcher: stitcher, sched: sched, cron: s}, nil
}

// Start registers the resync job per the configured cron expression (or the
// nightly default) and starts the gocron scheduler. It is a no-op when
// resync is disabled in configuration.
func (j *Job) Start(ctx context.Context) error {
	if !j.cfg.Resync.Enabled {
		slog.Info("periodic resync disabled")
		return nil
	}

	schedule := j.cfg.Resync.Schedule
	if schedule == "" {
		schedule = defaultSchedule
	}

	_, err := j.cron.NewJob(
		gocron.CronJob(schedule, false),
		gocron.NewTask(func() {
			j.runOnce(ctx)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("cron: schedule resync job: %w", err)
	}

	j.cron.Start()
	slog.Info("periodic resync scheduled", slog.String("schedule", schedule))
	return nil
}

// Stop gracefully shuts down the underlying gocron scheduler.
func (j *Job) Stop() error {
	return j.cron.Shutdown()
}

func (j *Job) runOnce(ctx context.Context) {
	submitted := 0
	for _, target := range j.cfg.TargetsSnapshot() {
		n, err := j.resyncTarget(ctx, target)
		if err != nil {
			slog.Error("resync failed for target", slog.String("target", target.Name), slog.String("error", err.Error()))
			continue
		}
		submitted += n
	}
	slog.Info("periodic resync sweep complete", slog.Int("submitted", submitted))
}

func (j *Job) resyncTarget(ctx context.Context, target appcfg.Target) (int, error) {
	outFile := filepath.Join(os.TempDir(), "docbuildd-resync-"+target.Name+".xml")
	defer os.Remove(outFile)

	cfg, err := j.stitcher.Invoke(ctx, stitch.Options{
		ConfigDir:         target.ConfigDir,
		OutFile:           outFile,
		ValidLanguages:    j.cfg.ValidLanguages,
		ValidSiteSections: j.cfg.ValidSiteSections,
		RevalidateOnly:    true,
	})
	if err != nil {
		return 0, fmt.Errorf("stitch target %s: %w", target.Name, err)
	}

	descriptors := supportedDescriptors(target.Name, cfg)
	for _, d := range descriptors {
		j.sched.Submit(d)
	}
	return len(descriptors), nil
}

// supportedDescriptors walks a stitched configuration and returns one
// Descriptor per (product, docset, language) combination whose docset
// lifecycle is "supported".
func supportedDescriptors(targetName string, cfg *stitch.Config) []scheduler.Descriptor {
	var out []scheduler.Descriptor
	for _, product := range cfg.Products {
		for _, docset := range product.Docsets {
			if docset.Lifecycle != stitch.LifecycleSupported {
				continue
			}
			for _, lang := range docset.BuildDocs.Languages {
				out = append(out, scheduler.Descriptor{
					Target:  targetName,
					Product: product.ProductID,
					Docset:  docset.SetID,
					Lang:    lang.Lang,
				})
			}
		}
	}
	return out
}
