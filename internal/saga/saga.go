// Package saga executes a multi-step workflow across independent remote
// services as an ordered list of (action, compensation) pairs. There is no
// distributed transaction underneath: a failing step triggers best-effort
// compensations of the steps already committed, in reverse order.
package saga

import (
	"context"
	"fmt"
	"log/slog"
)

// Step is one action of a saga. Compensate semantically undoes a committed
// Run when a later step fails; it is best-effort and may be nil.
//
// Unwind controls whether a failure of this step triggers the compensations
// of previously completed steps. A step with Unwind false propagates its
// error while leaving earlier effects in place, which makes a deliberate
// "no rollback here" gap visible in the step list instead of hiding it in
// control flow.
type Step struct {
	Name       string
	Run        func(ctx context.Context) error
	Compensate func(ctx context.Context) error
	Unwind     bool
}

var stepRecorder = func(saga, step, status string) {}

// RegisterStepRecorder allows external packages to observe step outcomes,
// e.g. for metrics.
func RegisterStepRecorder(recorder func(saga, step, status string)) {
	if recorder == nil {
		stepRecorder = func(string, string, string) {}
		return
	}

	stepRecorder = recorder
}

// Runner drives a saga to completion or failure. Once started a saga cannot
// be aborted by the caller; context cancellation only interrupts the step
// currently running.
type Runner struct {
	name string
	log  *slog.Logger
}

// NewRunner constructs a runner for the named saga.
func NewRunner(name string, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}

	return &Runner{name: name, log: log}
}

// Execute runs the steps in order. On failure it unwinds the compensations
// of completed steps (newest first) when the failing step requests it, then
// returns the step's original error untouched. Compensation failures are
// logged and never change the outcome.
func (r *Runner) Execute(ctx context.Context, steps []Step) error {
	if len(steps) == 0 {
		return nil
	}

	completed := make([]Step, 0, len(steps))

	for _, step := range steps {
		if step.Run == nil {
			return fmt.Errorf("saga %s: step %s has no action", r.name, step.Name)
		}

		if err := step.Run(ctx); err != nil {
			stepRecorder(r.name, step.Name, "failed")
			r.log.Warn("saga step failed",
				slog.String("saga", r.name),
				slog.String("step", step.Name),
				slog.Bool("unwind", step.Unwind),
				slog.Any("error", err),
			)

			if step.Unwind {
				r.unwind(ctx, completed)
			}

			return err
		}

		stepRecorder(r.name, step.Name, "ok")
		completed = append(completed, step)
	}

	return nil
}

func (r *Runner) unwind(ctx context.Context, completed []Step) {
	for i := len(completed) - 1; i >= 0; i-- {
		step := completed[i]
		if step.Compensate == nil {
			continue
		}

		if err := step.Compensate(ctx); err != nil {
			stepRecorder(r.name, step.Name, "compensation_failed")
			r.log.Error("saga compensation failed",
				slog.String("saga", r.name),
				slog.String("step", step.Name),
				slog.Any("error", err),
			)
			continue
		}

		stepRecorder(r.name, step.Name, "compensated")
	}
}
