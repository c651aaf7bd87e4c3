package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/nao1215/sitemigrate/internal/config"
)

// mockStep is a test helper that implements the Step interface.
type mockStep struct {
	name      string
	doFunc    func(ctx context.Context, run *Run) error
	callCount int
}

// Do implements Step.Do.
func (m *mockStep) Do(ctx context.Context, run *Run) error {
	m.callCount++
	if m.doFunc != nil {
		return m.doFunc(ctx, run)
	}
	return nil
}

// Name implements Step.Name.
func (m *mockStep) Name() string {
	return m.name
}

func newTestRun(t *testing.T) *Run {
	t.Helper()
	cfg := config.NewConfig()
	cfg.StartURL = "https://example.com/"
	cfg.OutputDir = t.TempDir()
	return NewRun(cfg)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPipelineNew(t *testing.T) {
	t.Parallel()

	t.Run("creates pipeline with default settings", func(t *testing.T) {
		t.Parallel()

		p := New()
		if p.StepCount() != 0 {
			t.Errorf("expected 0 steps, got %d", p.StepCount())
		}
		if p.logger == nil {
			t.Error("expected a default logger")
		}
	})

	t.Run("applies options", func(t *testing.T) {
		t.Parallel()

		logger := quietLogger()
		p := New(WithContinueOnError(true), WithLogger(logger))
		if !p.continueOnError {
			t.Error("expected continueOnError to be true")
		}
		if p.logger != logger {
			t.Error("expected custom logger")
		}
	})
}

func TestPipelineStepNames(t *testing.T) {
	t.Parallel()

	p := New()
	p.AddFinalStep(&mockStep{name: "report"})
	p.AddStep(&mockStep{name: "prepare"})
	p.AddSteps(&mockStep{name: "crawl"}, &mockStep{name: "media"})

	want := []string{"prepare", "crawl", "media", "report"}
	got := p.StepNames()
	if len(got) != len(want) || p.StepCount() != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("step %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("executes regular then final steps in order", func(t *testing.T) {
		t.Parallel()

		var order []string
		record := func(name string) *mockStep {
			return &mockStep{name: name, doFunc: func(_ context.Context, _ *Run) error {
				order = append(order, name)
				return nil
			}}
		}

		p := New(WithLogger(quietLogger()))
		p.AddFinalStep(record("final"))
		p.AddSteps(record("step-1"), record("step-2"))

		run := newTestRun(t)
		if err := p.Execute(context.Background(), run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(order) != 3 || order[0] != "step-1" || order[1] != "step-2" || order[2] != "final" {
			t.Errorf("wrong execution order: %v", order)
		}
		if len(run.PerformedSteps) != 3 {
			t.Errorf("expected 3 performed steps, got %v", run.PerformedSteps)
		}
		if run.Info.Interrupted {
			t.Error("run should not be interrupted")
		}
	})

	t.Run("fatal error skips remaining and final steps", func(t *testing.T) {
		t.Parallel()

		expectedErr := errors.New("step failed")
		next := &mockStep{name: "should-not-run"}
		final := &mockStep{name: "final"}

		p := New(WithLogger(quietLogger()))
		p.AddStep(&mockStep{name: "failing-step", doFunc: func(_ context.Context, _ *Run) error {
			return expectedErr
		}})
		p.AddStep(next)
		p.AddFinalStep(final)

		err := p.Execute(context.Background(), newTestRun(t))
		if !errors.Is(err, expectedErr) {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if next.callCount != 0 || final.callCount != 0 {
			t.Error("no step should run after a fatal error")
		}
	})

	t.Run("continues on error when configured", func(t *testing.T) {
		t.Parallel()

		next := &mockStep{name: "should-run"}
		final := &mockStep{name: "final"}

		p := New(WithContinueOnError(true), WithLogger(quietLogger()))
		p.AddStep(&mockStep{name: "failing-step", doFunc: func(_ context.Context, _ *Run) error {
			return errors.New("step failed")
		}})
		p.AddStep(next)
		p.AddFinalStep(final)

		run := newTestRun(t)
		if err := p.Execute(context.Background(), run); err != nil {
			t.Errorf("expected nil error with continueOnError, got %v", err)
		}
		if next.callCount != 1 || final.callCount != 1 {
			t.Error("expected the remaining steps to run")
		}
		if len(run.PerformedSteps) != 2 {
			t.Errorf("expected the failed step not to be recorded, got %v", run.PerformedSteps)
		}
	})

	t.Run("cancelled context still runs final steps", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		regular := &mockStep{name: "should-not-run"}
		var finalCtxErr error
		final := &mockStep{name: "final", doFunc: func(ctx context.Context, _ *Run) error {
			finalCtxErr = ctx.Err()
			return nil
		}}

		p := New(WithLogger(quietLogger()))
		p.AddStep(regular)
		p.AddFinalStep(final)

		run := newTestRun(t)
		if err := p.Execute(ctx, run); err != nil {
			t.Errorf("expected interruption not to be an error, got %v", err)
		}
		if regular.callCount != 0 {
			t.Error("regular step should not have been called")
		}
		if final.callCount != 1 || finalCtxErr != nil {
			t.Errorf("expected final step on a live context, calls=%d err=%v", final.callCount, finalCtxErr)
		}
		if !run.Info.Interrupted {
			t.Error("run should be marked interrupted")
		}
	})

	t.Run("cancellation during a step stops regular steps", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		next := &mockStep{name: "should-not-run"}
		final := &mockStep{name: "final"}

		p := New(WithLogger(quietLogger()))
		p.AddStep(&mockStep{name: "cancelling", doFunc: func(ctx context.Context, _ *Run) error {
			cancel()
			return ctx.Err()
		}})
		p.AddStep(next)
		p.AddFinalStep(final)

		run := newTestRun(t)
		if err := p.Execute(ctx, run); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if next.callCount != 0 || final.callCount != 1 {
			t.Errorf("unexpected calls next=%d final=%d", next.callCount, final.callCount)
		}
		if !run.Info.Interrupted {
			t.Error("run should be marked interrupted")
		}
	})

	t.Run("final step errors are not fatal", func(t *testing.T) {
		t.Parallel()

		second := &mockStep{name: "second-final"}
		p := New(WithLogger(quietLogger()))
		p.AddFinalStep(&mockStep{name: "failing-final", doFunc: func(_ context.Context, _ *Run) error {
			return errors.New("disk full")
		}})
		p.AddFinalStep(second)

		if err := p.Execute(context.Background(), newTestRun(t)); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if second.callCount != 1 {
			t.Error("expected the next final step to run")
		}
	})
}

func TestNewRun(t *testing.T) {
	t.Parallel()

	cfg := config.NewConfig()
	cfg.StartURL = "https://example.com/about"
	cfg.OutputDir = "/tmp/out"

	run := NewRun(cfg)
	if run.Info.StartURL != cfg.StartURL || run.Info.BaseURL != "https://example.com/" {
		t.Errorf("unexpected run info %+v", run.Info)
	}
	if run.Layout.Root != "/tmp/out" {
		t.Errorf("unexpected layout root %q", run.Layout.Root)
	}
	if run.Info.Started.IsZero() {
		t.Error("expected a start time")
	}
	if run.Pages() != nil || len(run.AllErrors()) != 0 || run.Stats().Visited != 0 {
		t.Error("expected an empty run before the crawl")
	}
}
