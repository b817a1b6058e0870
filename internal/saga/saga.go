// Package saga runs an ordered list of steps across stores that share no
// transaction. When a step fails, the compensations of the steps that already
// succeeded run in reverse order. Compensation is best-effort: its failures
// are logged and the original step error is what Run returns.
package saga

import (
	"context"
	"fmt"
	"log/slog"
)

type Step struct {
	Name string
	Do   func(ctx context.Context) error
	// Compensate undoes Do. It may be nil for steps with nothing to undo.
	Compensate func(ctx context.Context) error
}

type Saga struct {
	name   string
	steps  []Step
	logger *slog.Logger
}

func New(name string, logger *slog.Logger) *Saga {
	return &Saga{name: name, logger: logger}
}

func (s *Saga) Add(step Step) *Saga {
	s.steps = append(s.steps, step)
	return s
}

// Run executes the steps in order and stops at the first failure.
func (s *Saga) Run(ctx context.Context) error {
	for i, step := range s.steps {
		if err := step.Do(ctx); err != nil {
			s.compensate(ctx, i)
			return fmt.Errorf("%s: %w", step.Name, err)
		}
	}
	return nil
}

// compensate undoes steps [0, failed) in reverse order. A detached context is
// used so a cancelled request still gets its cleanup attempted.
func (s *Saga) compensate(ctx context.Context, failed int) {
	ctx = context.WithoutCancel(ctx)
	for i := failed - 1; i >= 0; i-- {
		step := s.steps[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx); err != nil {
			s.logger.Warn("compensation failed",
				"saga", s.name,
				"step", step.Name,
				"error", err,
			)
			continue
		}
		s.logger.Info("compensated step", "saga", s.name, "step", step.Name)
	}
}
