package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"codeberg.org/opensuse/docbuildd/internal/metrics"
)

type fakeStageRecorder struct {
	metrics.NoopRecorder
	durations []string
	results   map[string]metrics.ResultLabel
}

func (f *fakeStageRecorder) ObserveStageDuration(stage string, _ time.Duration) {
	f.durations = append(f.durations, stage)
}

func (f *fakeStageRecorder) IncStageResult(stage string, result metrics.ResultLabel) {
	if f.results == nil {
		f.results = map[string]metrics.ResultLabel{}
	}
	f.results[stage] = result
}

func TestTimedRecordsSuccessAndFailure(t *testing.T) {
	rec := &fakeStageRecorder{}
	e := &Executor{Recorder: rec}

	okStep := e.timed("ok-step", func(ctx context.Context) error { return nil })
	if err := okStep(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	failStep := e.timed("fail-step", func(ctx context.Context) error { return errors.New("boom") })
	if err := failStep(context.Background()); err == nil {
		t.Fatal("expected error to propagate through timed")
	}

	if rec.results["ok-step"] != metrics.ResultSuccess {
		t.Fatalf("expected ok-step to record success, got %v", rec.results["ok-step"])
	}
	if rec.results["fail-step"] != metrics.ResultFatal {
		t.Fatalf("expected fail-step to record fatal, got %v", rec.results["fail-step"])
	}
	if len(rec.durations) != 2 {
		t.Fatalf("expected 2 duration observations, got %d", len(rec.durations))
	}
}

func TestExecutorDefaultsToNoopRecorder(t *testing.T) {
	e := &Executor{}
	if _, ok := e.recorder().(metrics.NoopRecorder); !ok {
		t.Fatal("expected nil Recorder to default to NoopRecorder")
	}
}
