package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"

	"codeberg.org/opensuse/docbuildd/internal/api"
	"codeberg.org/opensuse/docbuildd/internal/config"
	"codeberg.org/opensuse/docbuildd/internal/cron"
	"codeberg.org/opensuse/docbuildd/internal/daps"
	"codeberg.org/opensuse/docbuildd/internal/dchash"
	"codeberg.org/opensuse/docbuildd/internal/executor"
	"codeberg.org/opensuse/docbuildd/internal/execx"
	foundationerrors "codeberg.org/opensuse/docbuildd/internal/foundation/errors"
	"codeberg.org/opensuse/docbuildd/internal/git"
	"codeberg.org/opensuse/docbuildd/internal/handler"
	"codeberg.org/opensuse/docbuildd/internal/lock"
	"codeberg.org/opensuse/docbuildd/internal/metrics"
	"codeberg.org/opensuse/docbuildd/internal/notify"
	"codeberg.org/opensuse/docbuildd/internal/pipeline"
	"codeberg.org/opensuse/docbuildd/internal/publish"
	"codeberg.org/opensuse/docbuildd/internal/scheduler"
	"codeberg.org/opensuse/docbuildd/internal/state"
	"codeberg.org/opensuse/docbuildd/internal/stitch"
	"codeberg.org/opensuse/docbuildd/internal/watch"
	"codeberg.org/opensuse/docbuildd/internal/xmlstarlet"
)

// Set at build time with: -ldflags "-X main.version=1.0.0"
var version = "dev"

// CLI is the root command definition and global flags.
type CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"docbuildd.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Serve   ServeCmd   `cmd:"" help:"Run the build server: scheduler, HTTP control plane, and periodic resync"`
	Version VersionCmd `cmd:"" help:"Print the server version and exit"`
}

// ServeCmd starts the long-running build server.
type ServeCmd struct{}

// VersionCmd prints the build's version string.
type VersionCmd struct{}

func (v *VersionCmd) Run(root *CLI) error {
	fmt.Println(version)
	return nil
}

func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

func main() {
	cli := &CLI{}
	parser := kong.Parse(cli,
		kong.Description("docbuildd: orchestrates documentation builds driven by stitched target configurations."),
	)

	errorAdapter := foundationerrors.NewCLIErrorAdapter(cli.Verbose, slog.Default())
	if err := parser.Run(cli); err != nil {
		errorAdapter.HandleError(err)
	}
}

// Run wires every collaborator and blocks until SIGINT/SIGTERM.
func (s *ServeCmd) Run(root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	runner := execx.NewRunner()
	locks := lock.NewRegistry()
	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if cfg.Metrics.Listen != "" {
		recorder = metrics.NewPrometheusRecorder(prom.NewRegistry())
	}
	gitClient := git.NewClient(cfg.WorkspaceRoot).WithBuildConfig(&cfg.Build).WithRecorder(recorder)

	stitcher := stitch.NewInvoker(runner, cfg.Tools.Stitcher)
	dcHash := dchash.NewInvoker(runner, cfg.Tools.DCHash)
	dapsRunner := daps.NewRunner(runner, cfg.Tools.DAPSRunner)
	xmlInvoker := xmlstarlet.NewInvoker(runner, cfg.Tools.XMLStarlet)

	notifier := buildNotifier(cfg)

	pub := scheduler.Publishers{
		Rsync:      publish.NewRsync(runner, cfg.Tools.Rsync),
		Archiver:   publish.NewArchiver(runner, cfg.Tools.ArchiveTool),
		NavBuilder: publish.NewNavigationBuilder(runner, cfg.Tools.NavigationBuilder),
	}

	exec := &executor.Executor{
		DAPS:       dapsRunner,
		DCHash:     dcHash,
		XMLStarlet: xmlInvoker,
		Rsync:      pub.Rsync,
		Notifier:   notifier,
		CacheBase:  cfg.CacheDir,
		Recorder:   recorder,
	}

	h := handler.New(cfg, stitcher, locks, gitClient)
	bus := pipeline.NewBus()

	store := state.NewStore(cfg.CacheDir, cfg.ServerName)

	var history *state.History
	if cfg.History.Path != "" {
		history, err = state.OpenHistory(cfg.History.Path, cfg.History.RetentionPerTarget)
		if err != nil {
			return fmt.Errorf("open history archive: %w", err)
		}
		defer history.Close()
	}

	sched := scheduler.New(cfg, h, exec, locks, bus, store, history, pub)

	restored := store.Load()
	sched.Restore(restored.Scheduled, restored.Past)
	slog.Info("restored checkpoint state",
		slog.Int("scheduled", len(restored.Scheduled)), slog.Int("past", len(restored.Past)))

	var historian api.Historian
	if history != nil {
		historian = history
	}
	server := api.NewServer(cfg.Listen, sched, historian, recorder)

	resyncJob, err := cron.New(cfg, stitcher, sched)
	if err != nil {
		return fmt.Errorf("create resync job: %w", err)
	}

	configWatcher, err := watch.NewConfigWatcher(root.Config, cfg)
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	schedulerDone := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(schedulerDone)
	}()

	if err := resyncJob.Start(ctx); err != nil {
		return fmt.Errorf("start resync job: %w", err)
	}
	defer resyncJob.Stop()

	if err := configWatcher.Start(ctx); err != nil {
		return fmt.Errorf("start config watcher: %w", err)
	}
	defer configWatcher.Stop()

	serveErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			serveErr <- err
		}
	}()

	slog.Info("docbuildd serving", slog.String("listen", cfg.Listen))

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	<-schedulerDone
	slog.Info("docbuildd stopped")
	return nil
}

func buildNotifier(cfg *config.Config) notify.Notifier {
	var backends []notify.Notifier
	switch cfg.Notification.Mode {
	case "sendmail":
		backends = append(backends, notify.NewSendmailNotifier(cfg.Notification.SendmailPath, cfg.Notification.MailFrom))
	default:
		backends = append(backends, notify.NewFileDropNotifier(cfg.Notification.DropDir))
	}
	if cfg.NATS != nil {
		natsNotifier, err := notify.NewNATSNotifier(cfg.NATS.URL, cfg.NATS.Subject)
		if err != nil {
			slog.Error("nats notifier unavailable, continuing without it", slog.String("error", err.Error()))
		} else {
			backends = append(backends, natsNotifier)
		}
	}
	return notify.NewMultiNotifier(backends...)
}
