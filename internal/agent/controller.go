// Package agent drives one task through the analyze, plan, generate and
// execute pipeline and owns the task's run state.
//
// A Controller accepts control calls (start, pause, resume, stop) from any
// goroutine. Each accepted start or resume launches one run goroutine; runs
// are stamped with a counter and a run whose counter is no longer current
// leaves the task state untouched. Every state change is followed by one
// immutable TaskState snapshot on the event bus.
//
// Import rules:
//   - CAN import: internal/execution, internal/generator, internal/events, internal/domain, internal/constants, internal/errors
//   - MUST NOT import: internal/api, internal/cli, internal/registry
package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mrz1836/gamesmith/internal/clock"
	"github.com/mrz1836/gamesmith/internal/constants"
	"github.com/mrz1836/gamesmith/internal/ctxutil"
	"github.com/mrz1836/gamesmith/internal/domain"
	gserrors "github.com/mrz1836/gamesmith/internal/errors"
	"github.com/mrz1836/gamesmith/internal/events"
	"github.com/mrz1836/gamesmith/internal/execution"
	"github.com/mrz1836/gamesmith/internal/generator"
)

// Planner analyzes an instruction and plans the work.
type Planner interface {
	AnalyzeRequirement(ctx context.Context, taskID, instruction string) (*domain.RequirementAnalysis, error)
	GenerateWorkPlan(ctx context.Context, taskID string, analysis *domain.RequirementAnalysis) (*domain.WorkPlan, error)
}

// PlanRunner executes a work plan from its current step.
type PlanRunner interface {
	Run(ctx context.Context, plan *domain.WorkPlan, hook execution.StepHook) (bool, error)
}

// DeliverableGenerator produces the game files of a task.
type DeliverableGenerator interface {
	Generate(ctx context.Context, project *domain.Project, kind constants.GameKind, req generator.Requirements, cust generator.Customizations) (*domain.GeneratedDeliverable, error)
}

// Stages bundles the pipeline stages used by one run. Generator is optional.
type Stages struct {
	Planner   Planner
	Runner    PlanRunner
	Generator DeliverableGenerator
}

// StageBuilder builds the stages of a run. The stages must publish through
// pub so their logs, thoughts and actions reach the task state.
type StageBuilder func(pub events.Publisher) Stages

// ProjectUpdater mirrors run outcomes back to project storage.
type ProjectUpdater interface {
	UpdateProject(ctx context.Context, projectID string, update domain.ProjectUpdate) error
}

// ProjectUpdaterFunc adapts a function to ProjectUpdater.
type ProjectUpdaterFunc func(ctx context.Context, projectID string, update domain.ProjectUpdate) error

// UpdateProject implements ProjectUpdater.
func (f ProjectUpdaterFunc) UpdateProject(ctx context.Context, projectID string, update domain.ProjectUpdate) error {
	return f(ctx, projectID, update)
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock sets the clock used for timestamps and run durations.
func WithClock(c clock.Clock) Option {
	return func(ctl *Controller) {
		ctl.clock = c
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m Metrics) Option {
	return func(ctl *Controller) {
		ctl.metrics = m
	}
}

// WithProjectUpdater sets the hook that receives project status mirrors.
func WithProjectUpdater(u ProjectUpdater) Option {
	return func(ctl *Controller) {
		ctl.updater = u
	}
}

// WithPreviewImage asks the generator for a preview image placeholder.
func WithPreviewImage(enabled bool) Option {
	return func(ctl *Controller) {
		ctl.previewImage = enabled
	}
}

// Controller is the run-state owner of one task.
type Controller struct {
	mu      sync.Mutex
	project *domain.Project
	state   domain.TaskState

	run    uint64
	cancel context.CancelFunc
	done   chan struct{}
	base   context.Context

	instruction   string
	analysis      *domain.RequirementAnalysis
	plan          *domain.WorkPlan
	deliverable   *domain.GeneratedDeliverable
	generated     bool
	awaitingInput bool
	clarified     bool
	runStarted    time.Time

	build        StageBuilder
	pub          events.Publisher
	updater      ProjectUpdater
	metrics      Metrics
	clock        clock.Clock
	logger       zerolog.Logger
	previewImage bool
	wg           sync.WaitGroup

	// Project mirrors carry a sequence number taken under mu so a late
	// delivery never overwrites a newer status.
	mirrorMu   sync.Mutex
	mirrorSeq  uint64
	mirrorSent uint64
}

// New creates an idle controller for project.
func New(project *domain.Project, build StageBuilder, pub events.Publisher, logger zerolog.Logger, opts ...Option) *Controller {
	if project == nil {
		project = &domain.Project{}
	}
	c := &Controller{
		project: project.Clone(),
		build:   build,
		pub:     pub,
		metrics: NoopMetrics{},
		clock:   clock.RealClock{},
		base:    context.Background(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logger.With().Str("component", "agent").Str("task_id", project.ID).Logger()
	c.state = domain.TaskState{
		TaskID:       project.ID,
		Status:       constants.AgentStatusIdle,
		CurrentStage: constants.StageRequirementAnalysis,
		LastAction: domain.Action{
			Kind:        constants.ActionIdle,
			Description: "Agent initialized",
			Timestamp:   c.clock.Now().UTC(),
		},
		LogEntries:   []domain.LogEntry{},
		ThoughtSteps: []domain.ThoughtStep{},
	}
	return c
}

// TaskID returns the id of the task this controller owns.
func (c *Controller) TaskID() string {
	return c.state.TaskID
}

// State returns a deep copy of the current task state.
func (c *Controller) State() *domain.TaskState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Project returns a copy of the project context.
func (c *Controller) Project() *domain.Project {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.project.Clone()
}

// SetProject refreshes the project context used by the next run.
// The project id cannot change.
func (c *Controller) SetProject(p *domain.Project) {
	if p == nil || p.ID != c.state.TaskID {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.project = p.Clone()
}

// Deliverable returns the deliverable of the current run, if any.
func (c *Controller) Deliverable() *domain.GeneratedDeliverable {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.deliverable == nil {
		return nil
	}
	d := *c.deliverable
	return &d
}

// Wait blocks until every launched run goroutine has returned.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Start begins a fresh run for instruction. It is accepted from idle, paused,
// completed and error; otherwise it records a warning, republishes the state
// and returns ErrInvalidTransition without touching the active run.
// An empty instruction falls back to the project description.
func (c *Controller) Start(ctx context.Context, instruction string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !CanStart(c.state.Status) {
		return c.rejectLocked("start")
	}
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		instruction = strings.TrimSpace(c.project.Description)
	}
	if instruction == "" {
		c.addLogLocked(constants.LogWarning, "Cannot start without an instruction.", nil)
		c.publishLocked()
		return fmt.Errorf("instruction %w", gserrors.ErrEmptyValue)
	}

	c.base = ctxutil.Detach(ctx)
	c.instruction = instruction
	c.analysis = nil
	c.plan = nil
	c.deliverable = nil
	c.generated = false
	c.awaitingInput = false
	c.clarified = false

	run, runCtx := c.nextRunLocked()
	c.runStarted = c.clock.Now()

	c.state.Status = constants.AgentStatusThinking
	c.state.CurrentStage = constants.StageRequirementAnalysis
	c.state.ProgressPercent = 0
	c.state.EstimatedSecondsRemaining = 0
	c.state.Error = nil
	c.state.CurrentTaskSummary = "Analyzing: " + instruction
	c.setActionLocked(constants.ActionInitialize, "Received instruction", "", map[string]any{"instruction": instruction})
	c.addThoughtLocked(constants.ThoughtStageProblemDefinition, "Received instruction: "+instruction, constants.ThoughtCompleted)
	if c.pub != nil {
		c.pub.Publish(c.state.TaskID, domain.EventThinking, domain.ThinkingPayload{Text: "Received instruction: " + instruction})
	}
	c.addLogLocked(constants.LogInfo, "Agent started", map[string]any{"instruction": instruction})
	c.publishLocked()

	c.logger.Info().Uint64("run", run).Msg("agent started")
	c.launchLocked(runCtx, run)
	return nil
}

// Pause stops the run before its next step. The step already running
// finishes; nothing after it starts.
func (c *Controller) Pause() error {
	c.mu.Lock()
	if !CanPause(c.state.Status) {
		err := c.rejectLocked("pause")
		c.mu.Unlock()
		return err
	}

	summary := c.state.CurrentTaskSummary
	c.state.Status = constants.AgentStatusPaused
	c.cancelLocked()
	c.setActionLocked(constants.ActionUserInput, "Pause requested", "", nil)
	c.addThoughtLocked(constants.ThoughtStageStateUpdate, "Paused during: "+summary, constants.ThoughtInfo)
	c.addLogLocked(constants.LogInfo, "Agent paused", nil)
	c.publishLocked()
	c.metrics.RunFinished(c.state.TaskID, c.clock.Now().Sub(c.runStarted), constants.AgentStatusPaused)
	update := c.projectUpdateLocked(constants.ProjectStatusPaused)
	c.mu.Unlock()

	c.logger.Info().Msg("agent paused")
	c.mirror(update)
	return nil
}

// Resume continues a paused run. Execution picks up at the plan's current
// step; a run paused for clarification restarts from analysis.
func (c *Controller) Resume() error {
	return c.resume("")
}

// ResumeWithInput resumes a run paused for clarification, appending answer
// to the original instruction before it is analyzed again.
func (c *Controller) ResumeWithInput(answer string) error {
	return c.resume(strings.TrimSpace(answer))
}

func (c *Controller) resume(answer string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !CanResume(c.state.Status) {
		return c.rejectLocked("resume")
	}

	if c.awaitingInput {
		if answer != "" {
			c.instruction += "\n\nClarification: " + answer
		}
		c.analysis = nil
		c.plan = nil
		c.generated = false
		c.awaitingInput = false
		c.clarified = true
	}

	run, runCtx := c.nextRunLocked()
	c.runStarted = c.clock.Now()

	c.state.Status = constants.AgentStatusThinking
	c.state.Error = nil
	if answer != "" {
		c.setActionLocked(constants.ActionUserInput, "Received clarification", "", map[string]any{"answer": answer})
		c.addLogLocked(constants.LogInfo, "Clarification received: "+answer, nil)
	} else {
		c.setActionLocked(constants.ActionUserInput, "Resume requested", "", nil)
	}
	c.addThoughtLocked(constants.ThoughtStageStateUpdate, "Resuming: "+c.state.CurrentTaskSummary, constants.ThoughtInfo)
	c.addLogLocked(constants.LogInfo, "Agent resumed", nil)
	c.publishLocked()

	c.logger.Info().Uint64("run", run).Msg("agent resumed")
	c.launchLocked(runCtx, run)
	return nil
}

// Stop resets the task to idle. It is valid in every status and never fails.
// A run in flight is canceled and its late results are discarded.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.run++
	c.cancelLocked()

	c.instruction = ""
	c.analysis = nil
	c.plan = nil
	c.deliverable = nil
	c.generated = false
	c.awaitingInput = false
	c.clarified = false

	c.state.Status = constants.AgentStatusIdle
	c.state.CurrentStage = constants.StageRequirementAnalysis
	c.state.ProgressPercent = 0
	c.state.EstimatedSecondsRemaining = 0
	c.state.CurrentTaskSummary = ""
	c.state.Error = nil
	c.setActionLocked(constants.ActionIdle, constants.MsgStopped, "", nil)
	c.addThoughtLocked(constants.ThoughtStageStateUpdate, constants.MsgStopped, constants.ThoughtInfo)
	c.addLogLocked(constants.LogInfo, constants.MsgStopped, nil)
	c.publishLocked()

	c.logger.Info().Msg("agent stopped")
}

// AddLog appends an operational log entry to the task state.
func (c *Controller) AddLog(level constants.LogLevel, message string, details map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.addLogLocked(level, message, details)
	c.publishLocked()
}

// nextRunLocked bumps the run counter and returns a fresh run context.
func (c *Controller) nextRunLocked() (uint64, context.Context) {
	c.run++
	c.cancelLocked()
	ctx, cancel := context.WithCancel(c.base)
	c.cancel = cancel
	return c.run, ctx
}

func (c *Controller) cancelLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// launchLocked starts the run goroutine. A run waits for the previous run
// goroutine to return so two runs never touch the same plan.
func (c *Controller) launchLocked(ctx context.Context, run uint64) {
	prev := c.done
	done := make(chan struct{})
	c.done = done
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()
		defer close(done)
		if prev != nil {
			<-prev
		}
		defer c.recoverRun(run)

		var m *pendingMirror
		if !c.withRun(run, func() { m = c.projectUpdateLocked(constants.ProjectStatusInProgress) }) {
			return
		}
		c.mirror(m)
		c.metrics.RunStarted(c.state.TaskID)
		stages := c.build(&runPublisher{c: c, run: run})
		c.pipeline(ctx, run, stages)
	}()
}

// recoverRun turns a panic in the run goroutine into the error status.
func (c *Controller) recoverRun(run uint64) {
	r := recover()
	if r == nil {
		return
	}
	c.logger.Error().Interface("panic", r).Uint64("run", run).Msg("agent run panicked")
	c.fail(run, fmt.Sprintf("internal error: %v", r), "")
}

// withRun runs fn under the lock when run is still current.
func (c *Controller) withRun(run uint64, fn func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if run != c.run {
		return false
	}
	fn()
	return true
}

// rejectLocked records an invalid control call.
func (c *Controller) rejectLocked(action string) error {
	status := c.state.Status
	c.addLogLocked(constants.LogWarning, fmt.Sprintf("Cannot %s while %s.", action, status), nil)
	c.publishLocked()
	c.logger.Warn().Str("action", action).Str("status", string(status)).Msg("control call rejected")
	return fmt.Errorf("%w: cannot %s while %s", gserrors.ErrInvalidTransition, action, status)
}

// setStatusLocked changes the status when the transition is valid. A paused
// or stopped task keeps its status while an in-flight step finishes.
func (c *Controller) setStatusLocked(to constants.AgentStatus) {
	if c.state.Status != to && IsValidTransition(c.state.Status, to) && c.state.Status.IsActive() {
		c.state.Status = to
	}
}

func (c *Controller) publishLocked() {
	if c.pub == nil {
		return
	}
	c.pub.Publish(c.state.TaskID, domain.EventState, *c.state.Clone())
}

func (c *Controller) setActionLocked(kind constants.ActionKind, description, target string, details map[string]any) {
	c.state.LastAction = domain.Action{
		Kind:        kind,
		Description: description,
		Target:      target,
		Timestamp:   c.clock.Now().UTC(),
		Details:     details,
	}
}

func (c *Controller) addLogLocked(level constants.LogLevel, message string, details map[string]any) {
	entry := domain.LogEntry{
		ID:        uuid.NewString(),
		Message:   message,
		Level:     level,
		Timestamp: c.clock.Now().UTC(),
		Context:   details,
	}
	c.appendLogLocked(entry)
	if c.pub != nil {
		c.pub.Publish(c.state.TaskID, domain.EventLog, entry)
	}
}

// appendLogLocked keeps the most recent MaxLogEntries entries.
func (c *Controller) appendLogLocked(entry domain.LogEntry) {
	c.state.LogEntries = append(c.state.LogEntries, entry)
	if n := len(c.state.LogEntries) - constants.MaxLogEntries; n > 0 {
		c.state.LogEntries = append([]domain.LogEntry(nil), c.state.LogEntries[n:]...)
	}
}

// addThoughtLocked keeps the most recent MaxThoughtSteps thought steps.
func (c *Controller) addThoughtLocked(stage, description string, status constants.ThoughtStatus) {
	c.state.ThoughtSteps = append(c.state.ThoughtSteps, domain.ThoughtStep{
		ID:          uuid.NewString(),
		Stage:       stage,
		Description: description,
		Status:      status,
		Timestamp:   c.clock.Now().UTC(),
	})
	if n := len(c.state.ThoughtSteps) - constants.MaxThoughtSteps; n > 0 {
		c.state.ThoughtSteps = append([]domain.ThoughtStep(nil), c.state.ThoughtSteps[n:]...)
	}
}

// pendingMirror is a project update captured under the lock and sent after it is released.
type pendingMirror struct {
	ctx    context.Context
	seq    uint64
	update domain.ProjectUpdate
}

// projectUpdateLocked captures the project mirror for status.
func (c *Controller) projectUpdateLocked(status constants.ProjectStatus) *pendingMirror {
	if c.updater == nil {
		return nil
	}
	c.mirrorSeq++
	return &pendingMirror{
		ctx: c.base,
		seq: c.mirrorSeq,
		update: domain.ProjectUpdate{
			Status:          status,
			CurrentStage:    c.state.CurrentStage,
			ProgressPercent: c.state.ProgressPercent,
		},
	}
}

// mirror sends a captured update to the project updater unless a newer one
// was already sent. It must be called without the lock.
func (c *Controller) mirror(m *pendingMirror) {
	if m == nil {
		return
	}
	c.mirrorMu.Lock()
	defer c.mirrorMu.Unlock()
	if m.seq <= c.mirrorSent {
		return
	}
	c.mirrorSent = m.seq
	if err := c.updater.UpdateProject(m.ctx, c.state.TaskID, m.update); err != nil {
		c.logger.Warn().Err(err).Str("project_status", string(m.update.Status)).Msg("failed to mirror project status")
	}
}

// runPublisher folds the events of one run into the task state and
// forwards them. Events of a stale run are dropped.
type runPublisher struct {
	c   *Controller
	run uint64
}

func (p *runPublisher) Publish(taskID string, eventType domain.EventType, data any) {
	c := p.c
	c.mu.Lock()
	defer c.mu.Unlock()
	if p.run != c.run {
		return
	}

	snapshot := false
	switch v := data.(type) {
	case domain.LogEntry:
		c.appendLogLocked(v)
		snapshot = true
	case domain.ThinkingPayload:
		c.addThoughtLocked(thoughtStage(c.state.CurrentStage), v.Text, constants.ThoughtInfo)
		snapshot = true
	case domain.Action:
		c.state.LastAction = v
		snapshot = true
	case domain.ProgressPayload:
		if v.ETASeconds > 0 {
			c.state.EstimatedSecondsRemaining = v.ETASeconds
		}
	}

	if c.pub != nil {
		c.pub.Publish(taskID, eventType, data)
	}
	if snapshot {
		c.publishLocked()
	}
}

// thoughtStage labels thought steps by pipeline position.
func thoughtStage(stage constants.DevelopmentStage) string {
	switch stage {
	case constants.StageRequirementAnalysis:
		return constants.ThoughtStageAnalysis
	case constants.StageDesign:
		return constants.ThoughtStagePlanning
	case constants.StageCompleted:
		return constants.ThoughtStageCompletion
	default:
		return constants.ThoughtStageExecution
	}
}
