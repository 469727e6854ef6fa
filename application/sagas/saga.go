package sagas

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Step is a single step in a saga. Compensate undoes a completed Execute and
// may be nil when the step writes nothing.
type Step[T any] struct {
	Name       string
	Execute    func(ctx context.Context, state *T) error
	Compensate func(ctx context.Context, state *T) error
}

// State represents the current state of a saga execution
type State string

const (
	StatePending      State = "PENDING"
	StateRunning      State = "RUNNING"
	StateCompleted    State = "COMPLETED"
	StateCompensating State = "COMPENSATING"
	StateCompensated  State = "COMPENSATED"
	StateFailed       State = "FAILED"
)

// StepError reports the step a saga stopped at
type StepError struct {
	Saga string
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("saga %s failed at step %s: %v", e.Saga, e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Saga runs steps in order over a shared state. When a step fails the
// completed steps are compensated in reverse order. A saga is single use.
type Saga[T any] struct {
	id          string
	name        string
	steps       []Step[T]
	state       State
	currentStep int
	logger      *zap.Logger
}

// New creates a new saga instance
func New[T any](name string, logger *zap.Logger) *Saga[T] {
	return &Saga[T]{
		id:     uuid.New().String(),
		name:   name,
		state:  StatePending,
		logger: logger,
	}
}

// Step appends a step
func (s *Saga[T]) Step(name string, execute, compensate func(context.Context, *T) error) *Saga[T] {
	s.steps = append(s.steps, Step[T]{Name: name, Execute: execute, Compensate: compensate})
	return s
}

// Execute runs the saga against state
func (s *Saga[T]) Execute(ctx context.Context, state *T) error {
	s.state = StateRunning
	s.logger.Debug("Starting saga execution",
		zap.String("saga_id", s.id),
		zap.String("saga_name", s.name),
		zap.Int("total_steps", len(s.steps)),
	)

	for i, step := range s.steps {
		s.currentStep = i

		err := ctx.Err()
		if err == nil {
			err = step.Execute(ctx, state)
		}
		if err != nil {
			s.logger.Warn("Saga step failed",
				zap.String("saga_id", s.id),
				zap.String("step_name", step.Name),
				zap.Error(err),
			)
			s.compensate(ctx, state, i)
			return &StepError{Saga: s.name, Step: step.Name, Err: err}
		}
	}

	s.state = StateCompleted
	s.logger.Debug("Saga completed",
		zap.String("saga_id", s.id),
		zap.String("saga_name", s.name),
	)
	return nil
}

// compensate undoes steps [0, failed) in reverse order. Compensation keeps
// going past a failing step; the saga ends FAILED if any did.
func (s *Saga[T]) compensate(ctx context.Context, state *T, failed int) {
	s.state = StateCompensating
	// compensation must run even when ctx is what stopped the saga
	ctx = context.WithoutCancel(ctx)

	clean := true
	for i := failed - 1; i >= 0; i-- {
		step := s.steps[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx, state); err != nil {
			clean = false
			s.logger.Error("Compensation failed",
				zap.String("saga_id", s.id),
				zap.String("step_name", step.Name),
				zap.Error(err),
			)
		}
	}

	if clean {
		s.state = StateCompensated
	} else {
		s.state = StateFailed
	}
}

// GetState returns the current state of the saga
func (s *Saga[T]) GetState() State {
	return s.state
}

// GetID returns the saga ID
func (s *Saga[T]) GetID() string {
	return s.id
}

// GetCurrentStep returns the current step index
func (s *Saga[T]) GetCurrentStep() int {
	return s.currentStep
}
