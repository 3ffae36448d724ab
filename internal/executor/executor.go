// Package executor runs a single Deliverable through its build pipeline:
// parameter-file composition, the containerized DAPS build, output staging,
// metadata extraction, and deliverable-cache recording.
package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"codeberg.org/opensuse/docbuildd/internal/cache"
	appcfg "codeberg.org/opensuse/docbuildd/internal/config"
	"codeberg.org/opensuse/docbuildd/internal/daps"
	"codeberg.org/opensuse/docbuildd/internal/dchash"
	"codeberg.org/opensuse/docbuildd/internal/execx"
	foundationerrors "codeberg.org/opensuse/docbuildd/internal/foundation/errors"
	"codeberg.org/opensuse/docbuildd/internal/metrics"
	"codeberg.org/opensuse/docbuildd/internal/model"
	"codeberg.org/opensuse/docbuildd/internal/notify"
	"codeberg.org/opensuse/docbuildd/internal/publish"
	"codeberg.org/opensuse/docbuildd/internal/stitch"
	"codeberg.org/opensuse/docbuildd/internal/xmlstarlet"
)

// Executor runs one deliverable's build pipeline.
type Executor struct {
	DAPS       *daps.Runner
	DCHash     *dchash.Invoker
	XMLStarlet *xmlstarlet.Invoker
	Rsync      *publish.Rsync
	Notifier   notify.Notifier
	CacheBase  string
	// Recorder receives per-stage and per-build metrics. Defaults to a noop
	// when left nil.
	Recorder metrics.Recorder
}

func (e *Executor) recorder() metrics.Recorder {
	if e.Recorder == nil {
		return metrics.NoopRecorder{}
	}
	return e.Recorder
}

// timed wraps a step's Run function so its duration and outcome feed the
// recorder, without each step having to do its own bookkeeping.
func (e *Executor) timed(name string, fn func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		start := time.Now()
		err := fn(ctx)
		e.recorder().ObserveStageDuration(name, time.Since(start))
		if err != nil {
			e.recorder().IncStageResult(name, metrics.ResultFatal)
		} else {
			e.recorder().IncStageResult(name, metrics.ResultSuccess)
		}
		return err
	}
}

// Context bundles the ambient state an execution needs beyond the
// deliverable itself.
type Context struct {
	Target      appcfg.Target
	Docset      *stitch.Docset
	Instruction *model.BuildInstruction
	// SourceDir is the ephemeral git checkout's root.
	SourceDir string
	// InstructionTempDir is the instruction's temporary working tree, with
	// the <lang>/<product>/<docset> path already created.
	InstructionTempDir string
}

// Execute runs the full 8-step pipeline for d. It always returns after
// cleanup has run, regardless of which step failed.
func (e *Executor) Execute(ctx context.Context, ectx Context, d *model.Deliverable) error {
	bi := ectx.Instruction
	d.MarkAttempt(bi.Commit)

	workDir, err := os.MkdirTemp("", "docbuild-"+d.ID+"-")
	if err != nil {
		d.Finish(false, bi.Commit)
		return foundationerrors.BuildError("create temp build dir").WithCause(err).Build()
	}
	xsltParams := filepath.Join(workDir, "xslt.params")
	dapsParams := filepath.Join(workDir, "daps.params")
	outputDir := filepath.Join(workDir, "output")

	d.Path = e.relOutputPath(bi, d)

	var rootID string
	var titles []cache.Title

	steps := []publish.Step{
		{
			Name: "compose-xslt-params",
			Run: e.timed("compose-xslt-params", func(ctx context.Context) error {
				return writeXSLTParams(xsltParams, ectx.Target, d, bi.Language)
			}),
		},
		{
			Name: "compose-daps-params",
			Run: e.timed("compose-daps-params", func(ctx context.Context) error {
				return writeDAPSParams(dapsParams, ectx.Target, ectx.Docset)
			}),
		},
		{
			Name: "run-daps-build",
			Run: e.timed("run-daps-build", func(ctx context.Context) error {
				result := e.DAPS.Run(ctx, daps.RunOptions{
					InputDir:       ectx.SourceDir,
					OutputDir:      outputDir,
					Format:         string(d.Format),
					DCFile:         d.DCFile,
					XSLTParamsFile: xsltParams,
					DAPSParamsFile: dapsParams,
					ContainerImage: firstNonEmpty(d.ContainerImage, ectx.Target.DAPSImage),
					Bigfile:        true,
					JSONFilelist:   true,
					AutoValidate:   true,
					ContainerPull:  false,
				})
				if !result.Succeeded() {
					e.notifyFailure(bi, d, "run-daps-build", result)
					return fmt.Errorf("daps build failed: %w", result.Err)
				}
				return nil
			}),
		},
		{
			Name: "prepare-output-dir",
			Run: e.timed("prepare-output-dir", func(ctx context.Context) error {
				return os.MkdirAll(e.outputRelPath(ectx, d), 0o755)
			}),
		},
		{
			Name: "parse-filelist-and-rsync",
			Run: e.timed("parse-filelist-and-rsync", func(ctx context.Context) error {
				fl, err := daps.ParseFilelist(filepath.Join(outputDir, "filelist.json"))
				if err != nil {
					return err
				}
				entry, ok := fl.FindSucceeded(string(d.Format))
				if !ok {
					return fmt.Errorf("no succeeded entry for format %s", d.Format)
				}
				res := e.Rsync.Copy(ctx, filepath.Join(outputDir, entry.File), e.outputRelPath(ectx, d))
				return res.Err
			}),
		},
		{
			Name: "extract-metadata",
			Run: e.timed("extract-metadata", func(ctx context.Context) error {
				id, err := extractRootID(filepath.Join(ectx.SourceDir, d.DCFile))
				if err != nil {
					id = ""
				}
				rootID = id

				bigfile := rootID
				xpath := xmlstarlet.TitleXPath(rootID)
				if rootID == "" {
					bigfile = dcSlug(d.DCFile)
					xpath = xmlstarlet.RootTitleXPath()
				}
				bigfilePath := filepath.Join(outputDir, ".tmp", bigfile+"_bigfile.xml")

				title, err := e.XMLStarlet.SelectText(ctx, bigfilePath, xpath)
				if err != nil {
					return err
				}
				d.Title = title

				dcPath := filepath.Join(ectx.SourceDir, d.DCFile)
				digest, err := e.DCHash.Hash(ctx, dcPath, rootID)
				if err != nil {
					return err
				}
				titles = append(titles, cache.Title{Hash: digest, RootID: rootID, Text: title})

				for _, subRootID := range d.SubdeliverableRootIDs {
					subTitle, err := e.XMLStarlet.SelectText(ctx, bigfilePath, xmlstarlet.TitleXPath(subRootID))
					if err != nil {
						return err
					}
					subDigest, err := e.DCHash.Hash(ctx, dcPath, subRootID)
					if err != nil {
						return err
					}
					titles = append(titles, cache.Title{Hash: subDigest, RootID: subRootID, Text: subTitle})
				}
				return nil
			}),
		},
		{
			Name: "write-deliverable-cache",
			Run: e.timed("write-deliverable-cache", func(ctx context.Context) error {
				if ectx.Docset.Lifecycle == stitch.LifecycleUnsupported {
					return nil
				}
				path := cache.PathFor(e.CacheBase, bi.Target, bi.Language, bi.Product, bi.Docset, string(d.Format), d.DCFile)
				return cache.Write(path, cache.Record{
					Lang:      bi.Language,
					ProductID: bi.Product,
					SetID:     bi.Docset,
					DC:        d.DCFile,
					Commit:    d.LastBuildAttemptCommit,
					Path:      cache.Path{Format: string(d.Format), Text: d.Path},
					Titles:    titles,
				})
			}),
		},
		{
			Name:              "remove-temp-build-dir",
			ExecuteAfterError: true,
			Run: func(ctx context.Context) error {
				return os.RemoveAll(workDir)
			},
		},
	}

	buildStart := time.Now()
	err = publish.RunSteps(ctx, steps)
	e.recorder().ObserveBuildDuration(time.Since(buildStart))
	if err != nil {
		e.recorder().IncBuildOutcome(metrics.BuildOutcomeFailed)
	} else {
		e.recorder().IncBuildOutcome(metrics.BuildOutcomeSuccess)
	}

	d.Finish(err == nil, bi.Commit)
	return err
}

// outputRelPath computes <lang>/<product>/<docset>/<format>[/<dc-slug>]
// under the instruction's temp tree, per the html/single-html exception.
func (e *Executor) outputRelPath(ectx Context, d *model.Deliverable) string {
	base := filepath.Join(ectx.InstructionTempDir, string(d.Format))
	if d.Format == model.FormatHTML || d.Format == model.FormatSingleHTML {
		return filepath.Join(base, dcSlug(d.DCFile))
	}
	return base
}

// relOutputPath computes the same <lang>/<product>/<docset>/<format>[/<dc-slug>]
// layout as outputRelPath, relative to the target's publish root rather than
// the instruction's temp tree, for recording in the deliverable cache.
func (e *Executor) relOutputPath(bi *model.BuildInstruction, d *model.Deliverable) string {
	base := filepath.Join(bi.Language, bi.Product, bi.Docset, string(d.Format))
	if d.Format == model.FormatHTML || d.Format == model.FormatSingleHTML {
		return filepath.Join(base, dcSlug(d.DCFile))
	}
	return base
}

func (e *Executor) notifyFailure(bi *model.BuildInstruction, d *model.Deliverable, step string, result execx.Result) {
	if e.Notifier == nil {
		return
	}
	msg := notify.BuildFailure(
		fmt.Sprintf("build failed: %s/%s/%s (%s)", bi.Product, bi.Docset, bi.Language, d.Format),
		nil,
		map[string]string{"instruction": bi.ID, "deliverable": d.ID, "step": step},
		step, result.Stdout, result.Stderr,
	)
	_ = e.Notifier.Notify(msg)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
