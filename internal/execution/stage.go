// Package execution runs a work plan step by step against the artifact store.
//
// Steps run strictly in order and the plan stops at the first failure.
// Canceling the context stops the plan before the next step starts; the
// step already running is allowed to finish so the store is never left
// half-written.
//
// Import rules:
//   - CAN import: internal/artifact, internal/generator, internal/events, internal/domain, internal/constants, internal/errors
//   - MUST NOT import: internal/agent, internal/api, internal/cli
package execution

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrz1836/gamesmith/internal/artifact"
	"github.com/mrz1836/gamesmith/internal/clock"
	"github.com/mrz1836/gamesmith/internal/constants"
	"github.com/mrz1836/gamesmith/internal/domain"
	gserrors "github.com/mrz1836/gamesmith/internal/errors"
	"github.com/mrz1836/gamesmith/internal/events"
)

// StepHook observes step transitions. It is called when a step starts and
// again when it reaches a final status.
type StepHook func(index int, step domain.WorkPlanStep)

// StepError reports the step that stopped a plan. Error returns the step's
// own failure message unchanged.
type StepError struct {
	StepID string
	Err    error
}

func (e *StepError) Error() string {
	return e.Err.Error()
}

// Unwrap exposes both ErrPlanStepFailed and the step's cause.
func (e *StepError) Unwrap() []error {
	return []error{gserrors.ErrPlanStepFailed, e.Err}
}

// Stage is the execution stage of the agent pipeline.
type Stage struct {
	store    artifact.Store
	registry *ExecutorRegistry
	emit     *events.Emitter
	clock    clock.Clock
	logger   zerolog.Logger
	minDelay time.Duration
	maxDelay time.Duration
}

// Option configures a Stage.
type Option func(*Stage)

// WithClock sets the clock used for timestamps and simulated work.
func WithClock(c clock.Clock) Option {
	return func(s *Stage) {
		s.clock = c
	}
}

// WithStepDelay bounds the simulated duration of steps without real work.
// Zero disables the delay.
func WithStepDelay(minDelay, maxDelay time.Duration) Option {
	return func(s *Stage) {
		s.minDelay = max(minDelay, 0)
		s.maxDelay = max(maxDelay, s.minDelay)
	}
}

// WithExecutor registers or replaces the executor for e.Type().
func WithExecutor(e StepExecutor) Option {
	return func(s *Stage) {
		s.registry.Register(e)
	}
}

// New creates an execution stage with the default executors registered.
func New(store artifact.Store, pub events.Publisher, logger zerolog.Logger, opts ...Option) *Stage {
	s := &Stage{
		store:    store,
		registry: NewExecutorRegistry(),
		clock:    clock.RealClock{},
		logger:   logger.With().Str("component", "execution").Logger(),
		minDelay: constants.DefaultMinStepDelay,
		maxDelay: constants.DefaultMaxStepDelay,
	}
	s.registerDefaults()
	for _, opt := range opts {
		opt(s)
	}
	s.emit = events.NewEmitter(pub, s.clock, "Execution")
	return s
}

// Registry returns the executor registry.
func (s *Stage) Registry() *ExecutorRegistry {
	return s.registry
}

// ExecuteWorkPlan runs plan from its current step and reports whether every step completed.
func (s *Stage) ExecuteWorkPlan(ctx context.Context, plan *domain.WorkPlan) bool {
	ok, _ := s.Run(ctx, plan, nil)
	return ok
}

// Run is ExecuteWorkPlan with a step observer. When a step fails, the
// returned error is a *StepError. An interrupted plan returns false and a
// nil error. A plan whose current step already failed is not retried.
func (s *Stage) Run(ctx context.Context, plan *domain.WorkPlan, hook StepHook) (bool, error) {
	if plan == nil {
		return false, nil
	}
	taskID := plan.TaskID
	total := len(plan.Steps)
	log := s.logger.With().Str("task_id", taskID).Str("plan_id", plan.ID).Logger()

	for plan.CurrentStepIndex < total {
		if ctx.Err() != nil {
			log.Info().Int("step_index", plan.CurrentStepIndex).Msg("plan interrupted before step")
			s.emit.Log(taskID, constants.LogInfo, "Execution interrupted; remaining steps stay pending.", nil)
			return false, nil
		}

		index := plan.CurrentStepIndex
		step := &plan.Steps[index]
		switch step.Status {
		case constants.StepStatusCompleted:
			plan.CurrentStepIndex++
			continue
		case constants.StepStatusFailed:
			log.Warn().Str("step_id", step.ID).Msg("plan stopped at a failed step")
			return false, &StepError{StepID: step.ID, Err: stepFailure(step)}
		}

		advance(step, constants.StepStatusInProgress)
		if hook != nil {
			hook(index, *step)
		}
		s.emit.Progress(taskID, domain.ProgressPayload{
			Stage:      stageFor(step.Type),
			Percent:    index * constants.ProgressComplete / total,
			ETASeconds: plan.RemainingSeconds(),
			Message:    step.Description,
		})
		s.emit.Log(taskID, constants.LogInfo,
			fmt.Sprintf("Step %d/%d: %s", index+1, total, step.Description),
			map[string]any{"step_id": step.ID, "type": string(step.Type)})

		started := s.clock.Now()
		// The running step is not interrupted by cancellation.
		err := s.execute(context.WithoutCancel(ctx), plan, step)
		elapsed := s.clock.Now().Sub(started)

		if err != nil {
			advance(step, constants.StepStatusFailed)
			step.Error = err.Error()
			if hook != nil {
				hook(index, *step)
			}
			log.Error().Err(err).
				Str("step_id", step.ID).
				Str("step_type", string(step.Type)).
				Dur("duration", elapsed).
				Msg("step failed")
			s.emit.Log(taskID, constants.LogError,
				fmt.Sprintf("Step %q failed: %v", step.Description, err),
				map[string]any{"step_id": step.ID})
			return false, &StepError{StepID: step.ID, Err: err}
		}

		advance(step, constants.StepStatusCompleted)
		plan.CurrentStepIndex++
		if hook != nil {
			hook(index, *step)
		}
		log.Debug().
			Str("step_id", step.ID).
			Str("step_type", string(step.Type)).
			Dur("duration", elapsed).
			Msg("step completed")
	}

	s.emit.Progress(taskID, domain.ProgressPayload{
		Stage:   constants.StageCompleted,
		Percent: constants.ProgressComplete,
		Message: "plan completed",
	})
	s.emit.Log(taskID, constants.LogSuccess, "All work plan steps completed.", nil)
	log.Info().Int("steps", total).Msg("plan completed")
	return true, nil
}

// stepFailure rebuilds the recorded failure of a step.
func stepFailure(step *domain.WorkPlanStep) error {
	if step.Error == "" {
		return gserrors.ErrPlanStepFailed
	}
	return errors.New(step.Error) //nolint:err113 // carries a recorded message
}

// execute dispatches step to its executor.
func (s *Stage) execute(ctx context.Context, plan *domain.WorkPlan, step *domain.WorkPlanStep) error {
	e, err := s.registry.Get(step.Type)
	if err != nil {
		return err
	}
	return e.Execute(ctx, plan, step)
}

// simulate sleeps for a random duration within the configured bounds.
func (s *Stage) simulate(ctx context.Context) error {
	d := s.minDelay
	if span := s.maxDelay - s.minDelay; span > 0 {
		d += rand.N(span) //nolint:gosec // simulated work, not security sensitive
	}
	if d <= 0 {
		return nil
	}
	return s.clock.Sleep(ctx, d)
}

// advance moves step forward, ignoring transitions that would regress it.
func advance(step *domain.WorkPlanStep, next constants.StepStatus) {
	if step.Status == "" {
		step.Status = constants.StepStatusPending
	}
	if step.Status.CanAdvanceTo(next) {
		step.Status = next
	}
}

// stageFor maps a step type to the development stage it belongs to.
func stageFor(t constants.StepType) constants.DevelopmentStage {
	switch t {
	case constants.StepTypeRunTests, constants.StepTypeDebugCode:
		return constants.StageTesting
	case constants.StepTypeReviewCode:
		return constants.StageOptimization
	default:
		return constants.StageCoding
	}
}
