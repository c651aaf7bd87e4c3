package pipeline

import (
	"context"
	"errors"
	"log/slog"
)

// Step is one stage of a run.
type Step interface {
	// Do executes the step. A returned error is fatal for the run;
	// recoverable failures are recorded on the Run and Do returns nil.
	Do(ctx context.Context, run *Run) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
type Pipeline struct {
	// steps run in order until one fails or the context is cancelled.
	steps []Step

	// finalSteps run after steps, even when the run was interrupted.
	finalSteps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// continueOnError keeps running regular steps after one fails.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to continue with the next
// regular step when one fails. Final steps still run in that case.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps:      make([]Step, 0),
		finalSteps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a regular step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple regular steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// AddFinalStep appends a step that runs after the regular steps, also
// when the run was interrupted.
func (p *Pipeline) AddFinalStep(step Step) {
	p.finalSteps = append(p.finalSteps, step)
}

// Execute runs the regular steps, then the final steps.
//
// Cancellation before or during a regular step marks the run interrupted
// and moves on to the final steps. Any other regular step error is fatal:
// final steps are skipped and the error is returned, unless
// continueOnError is set. Final step errors are only logged.
func (p *Pipeline) Execute(ctx context.Context, run *Run) error {
	var fatal error

regular:
	for _, step := range p.steps {
		if ctx.Err() != nil {
			p.markInterrupted(run, step, ctx.Err())
			break
		}

		p.logger.Info("executing step", "step", step.Name(), "url", run.Info.StartURL)

		err := step.Do(ctx, run)
		switch {
		case err == nil:
			p.logger.Debug("step completed", "step", step.Name())
			run.PerformedSteps = append(run.PerformedSteps, step.Name())
		case ctx.Err() != nil && errors.Is(err, context.Canceled):
			p.markInterrupted(run, step, err)
			break regular
		default:
			p.logger.Error("step failed", "step", step.Name(), "url", run.Info.StartURL, "error", err)
			if !p.continueOnError {
				fatal = err
				break regular
			}
		}
	}

	if fatal != nil {
		return fatal
	}

	finalCtx := context.WithoutCancel(ctx)
	for _, step := range p.finalSteps {
		p.logger.Info("executing step", "step", step.Name(), "url", run.Info.StartURL)
		if err := step.Do(finalCtx, run); err != nil {
			p.logger.Error("step failed", "step", step.Name(), "url", run.Info.StartURL, "error", err)
			continue
		}
		run.PerformedSteps = append(run.PerformedSteps, step.Name())
	}

	return nil
}

func (p *Pipeline) markInterrupted(run *Run, step Step, reason error) {
	p.logger.Warn("pipeline interrupted", "step", step.Name(), "reason", reason)
	run.Info.Interrupted = true
}

// StepCount returns the number of steps in the pipeline, final steps included.
func (p *Pipeline) StepCount() int {
	return len(p.steps) + len(p.finalSteps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, 0, p.StepCount())
	for _, step := range p.steps {
		names = append(names, step.Name())
	}
	for _, step := range p.finalSteps {
		names = append(names, step.Name())
	}
	return names
}
