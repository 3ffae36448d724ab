// Package scheduler implements the build server's worker-pool orchestrator:
// the scheduled/updating/active/activeIds/past collections and the worker
// loop that drives instructions from submission through finalize.
package scheduler

import (
	"context"
	"log/slog"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	appcfg "codeberg.org/opensuse/docbuildd/internal/config"
	"codeberg.org/opensuse/docbuildd/internal/executor"
	"codeberg.org/opensuse/docbuildd/internal/handler"
	"codeberg.org/opensuse/docbuildd/internal/lock"
	"codeberg.org/opensuse/docbuildd/internal/logfields"
	"codeberg.org/opensuse/docbuildd/internal/model"
	"codeberg.org/opensuse/docbuildd/internal/notify"
	"codeberg.org/opensuse/docbuildd/internal/pipeline"
	"codeberg.org/opensuse/docbuildd/internal/publish"
)

// dispenseSleep bounds how long a worker sleeps when both queues are
// momentarily empty, avoiding a busy spin.
const dispenseSleep = 100 * time.Millisecond

// trackedInstruction pairs a BuildInstruction with the handler-produced
// state the finalize phase needs.
type trackedInstruction struct {
	bi     *model.BuildInstruction
	init   handler.InitResult
	target appcfg.Target
}

// Checkpointer persists the current instruction snapshot to durable
// storage. Worker 0 calls it once per loop iteration.
type Checkpointer interface {
	Checkpoint(scheduled, active, past []*model.BuildInstruction)
}

// Historian archives a finished instruction for later lookup, independent
// of the live checkpoint file.
type Historian interface {
	Record(ctx context.Context, bi *model.BuildInstruction) error
}

// Publishers bundles the finalize-phase collaborators a Scheduler needs to
// assemble a publish.Plan.
type Publishers struct {
	Rsync      *publish.Rsync
	Archiver   *publish.Archiver
	NavBuilder *publish.NavigationBuilder
}

// Scheduler owns the scheduled/updating/active/past collections and the
// worker pool that drains them.
type Scheduler struct {
	cfg     *appcfg.Config
	handler *handler.Handler
	exec    *executor.Executor
	locks   *lock.Registry
	bus     *pipeline.Bus
	checkpt Checkpointer
	history Historian
	pub     Publishers

	scheduled *instructionMap
	updating  *idSet
	active    *instructionMap
	activeIDs *fifo
	past      *instructionMap

	shuttingDown atomic.Bool
	wg           sync.WaitGroup
}

// New constructs a Scheduler with empty collections.
func New(cfg *appcfg.Config, h *handler.Handler, exec *executor.Executor, locks *lock.Registry, bus *pipeline.Bus, checkpt Checkpointer, history Historian, pub Publishers) *Scheduler {
	return &Scheduler{
		cfg:       cfg,
		handler:   h,
		exec:      exec,
		locks:     locks,
		bus:       bus,
		checkpt:   checkpt,
		history:   history,
		pub:       pub,
		scheduled: newInstructionMap(),
		updating:  newIDSet(),
		active:    newInstructionMap(),
		activeIDs: newFIFO(),
		past:      newInstructionMap(),
	}
}

// Restore seeds the scheduled and past collections from a prior checkpoint,
// before Run starts the worker pool. Instructions restored as scheduled have
// already had their Open/Building lists cleared by the caller (see
// internal/state.Store.Load); workers pick them up exactly as if they had
// just been submitted.
func (s *Scheduler) Restore(scheduled, past []*model.BuildInstruction) {
	for _, bi := range scheduled {
		s.scheduled.put(bi.ID, &trackedInstruction{bi: bi})
	}
	for _, bi := range past {
		s.past.put(bi.ID, &trackedInstruction{bi: bi})
	}
}

// workerCount returns min(configured max_threads, host core count), falling
// back to the core count alone when unconfigured.
func (s *Scheduler) workerCount() int {
	n := runtime.NumCPU()
	if s.cfg.MaxThreads > 0 && s.cfg.MaxThreads < n {
		n = s.cfg.MaxThreads
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Run starts the worker pool and blocks until ctx is cancelled, at which
// point shutdown is requested and Run waits for every worker to finish its
// current iteration before returning.
func (s *Scheduler) Run(ctx context.Context) {
	n := s.workerCount()
	slog.Info("scheduler starting", slog.Int("workers", n))

	for i := 0; i < n; i++ {
		s.wg.Add(1)
		go s.runWorker(ctx, i)
	}

	<-ctx.Done()
	s.Shutdown()
	s.wg.Wait()
	slog.Info("scheduler stopped")
}

// Shutdown requests cooperative shutdown: in-flight deliverables are
// allowed to finish, but no new iterations begin.
func (s *Scheduler) Shutdown() {
	s.shuttingDown.Store(true)
}

func (s *Scheduler) runWorker(ctx context.Context, workerID int) {
	defer s.wg.Done()
	for {
		s.initStep(ctx)
		s.dispenseStep(ctx)

		if workerID == 0 && s.checkpt != nil {
			s.checkpt.Checkpoint(s.allScheduled(), s.allActive(), s.allPast())
		}

		if s.shuttingDown.Load() {
			slog.Info("worker exiting on shutdown", logfields.Worker(workerIDString(workerID)))
			return
		}
		time.Sleep(dispenseSleep)
	}
}

// initStep tries to claim one scheduled instruction, run its handler init,
// and promote it to active.
func (s *Scheduler) initStep(ctx context.Context) {
	id, ok := s.claimScheduled()
	if !ok {
		return
	}

	tracked, _ := s.scheduled.get(id)
	bi := tracked.bi

	initResult, err := s.handler.Init(ctx, bi)
	if err != nil {
		slog.Error("instruction init failed", logfields.Name(id), slog.String("error", err.Error()))
		bi.Status = model.InstructionFailed
		s.moveToPast(id)
		if s.history != nil {
			if herr := s.history.Record(ctx, bi); herr != nil {
				slog.Error("history record failed", logfields.Name(id), slog.String("error", herr.Error()))
			}
		}
		s.publish(pipeline.EventInstructionFailed, id)
		return
	}

	tracked.init = initResult
	tracked.target = s.targetFor(bi.Target)
	bi.Status = model.InstructionBuilding

	s.scheduled.remove(id)
	s.updating.remove(id)
	s.active.put(id, tracked)
	s.activeIDs.push(id)
	s.publish(pipeline.EventInstructionInit, id)
}

// dispenseStep pops one active instruction id and advances it by one
// deliverable, or finalizes it once both its open and building lists are
// empty.
func (s *Scheduler) dispenseStep(ctx context.Context) {
	id, ok := s.activeIDs.pop()
	if !ok {
		return
	}

	tracked, ok := s.active.get(id)
	if !ok {
		return
	}
	bi := tracked.bi

	deliverableID, result := bi.DispenseNext()
	switch result {
	case model.DispenseReady:
		s.publish(pipeline.EventDeliverableBuilding, deliverableID)
		s.executeDeliverable(ctx, tracked, deliverableID)
		s.activeIDs.push(id)
	case model.DispenseNoneAvailableYet:
		s.activeIDs.push(id)
	case model.DispenseDone:
		s.finalize(ctx, tracked)
	}
}

func (s *Scheduler) executeDeliverable(ctx context.Context, tracked *trackedInstruction, deliverableID string) {
	bi := tracked.bi
	d, ok := bi.Deliverable(deliverableID)
	if !ok {
		return
	}

	ectx := executor.Context{
		Target:             tracked.target,
		Docset:             tracked.init.Docset,
		Instruction:        bi,
		SourceDir:          tracked.init.EphemeralGitDir,
		InstructionTempDir: tracked.init.WorkDir,
	}
	if err := s.exec.Execute(ctx, ectx, d); err != nil {
		slog.Error("deliverable build failed", logfields.Name(deliverableID), slog.String("error", err.Error()))
	}
	bi.CompleteBuilding(deliverableID)
	s.publish(pipeline.EventDeliverableDone, deliverableID)
}

// finalize runs the instruction handler's finalize phase and moves the
// record to past, under the target's backup-dir lock.
func (s *Scheduler) finalize(ctx context.Context, tracked *trackedInstruction) {
	bi := tracked.bi
	if !bi.FinalizeMu.TryLock() {
		return
	}
	defer bi.FinalizeMu.Unlock()

	bi.Status = bi.OverallStatus()

	backupRoot := tracked.target.BackupRoot
	if backupRoot == "" {
		backupRoot = s.cfg.BackupRoot
	}
	docsetRelPath := bi.Language + "/" + bi.Product + "/" + bi.Docset

	navigationTempDir := filepath.Join(s.cfg.WorkspaceRoot, "navigation", bi.ID)

	backupLock := s.locks.Lock(lock.TypeBackupDir, bi.Target)
	backupLock.Acquire()
	plan := &publish.Plan{
		Success:             bi.Status == model.InstructionDone,
		Docset:              tracked.init.Docset,
		Target:              bi.Target,
		Lang:                bi.Language,
		Product:             bi.Product,
		DocsetID:            bi.Docset,
		BackupPath:          backupRoot,
		DocsetRelativePath:  docsetRelPath,
		TempInstructionDir:  tracked.init.WorkDir,
		EphemeralGitDir:     tracked.init.EphemeralGitDir,
		TempNavigationDir:   navigationTempDir,
		SyncToLive:          tracked.target.SyncToLive,
		LivePath:            tracked.target.LivePath,
		RsyncExcludeFile:    tracked.target.RsyncExcludeFile,
		Rsync:               s.pub.Rsync,
		Archiver:            s.pub.Archiver,
		ArchiveOpts: publish.ArchiveOptions{
			InputDir:  tracked.init.WorkDir,
			OutputZip: backupRoot + "/" + docsetRelPath + "/" + bi.Docset + ".zip",
			CacheBase: s.cfg.CacheDir,
			Target:    bi.Target,
			Product:   bi.Product,
			Docset:    bi.Docset,
			Lang:      bi.Language,
		},
		NavBuilder: s.pub.NavBuilder,
		NavOpts: publish.NavigationOptions{
			StitchedConfigPath: tracked.target.ConfigDir,
			Target:             bi.Target,
			Product:            bi.Product,
			Docset:             bi.Docset,
			UILanguages:        s.cfg.ValidLanguages,
			DeliverableCache:   s.cfg.CacheDir,
			OutputDir:          navigationTempDir,
			BaseURLPath:        tracked.target.ServerBasePath,
		},
		StaticServerRoot: s.cfg.StaticServerRoot,
	}
	err := publish.RunSteps(ctx, plan.BuildSteps())
	backupLock.Release()

	if err != nil {
		slog.Error("instruction finalize failed", logfields.Name(bi.ID), slog.String("error", err.Error()))
		bi.Status = model.InstructionFailed
	}

	s.active.remove(bi.ID)
	s.past.put(bi.ID, tracked)
	if s.history != nil {
		if herr := s.history.Record(ctx, bi); herr != nil {
			slog.Error("history record failed", logfields.Name(bi.ID), slog.String("error", herr.Error()))
		}
	}
	if bi.Status == model.InstructionFailed {
		s.publish(pipeline.EventInstructionFailed, bi.ID)
	} else {
		s.publish(pipeline.EventInstructionPublished, bi.ID)
	}
}

func (s *Scheduler) publish(event, id string) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(pipeline.SimpleEvent{E: event + ":" + id})
}

func (s *Scheduler) targetFor(name string) appcfg.Target {
	t, _ := s.cfg.TargetByName(name)
	return t
}

func (s *Scheduler) moveToPast(id string) {
	tracked, ok := s.scheduled.get(id)
	if !ok {
		return
	}
	s.scheduled.remove(id)
	s.updating.remove(id)
	s.past.put(id, tracked)
}

func (s *Scheduler) allScheduled() []*model.BuildInstruction { return bis(s.scheduled.values()) }
func (s *Scheduler) allActive() []*model.BuildInstruction    { return bis(s.active.values()) }
func (s *Scheduler) allPast() []*model.BuildInstruction      { return bis(s.past.values()) }

func bis(tracked []*trackedInstruction) []*model.BuildInstruction {
	out := make([]*model.BuildInstruction, 0, len(tracked))
	for _, t := range tracked {
		out = append(out, t.bi)
	}
	return out
}

func workerIDString(id int) string {
	const digits = "0123456789"
	if id < 10 {
		return string(digits[id])
	}
	return "worker"
}
