package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/gamesmith/internal/artifact"
	"github.com/mrz1836/gamesmith/internal/clock"
	"github.com/mrz1836/gamesmith/internal/constants"
	"github.com/mrz1836/gamesmith/internal/domain"
	gserrors "github.com/mrz1836/gamesmith/internal/errors"
	"github.com/mrz1836/gamesmith/internal/events"
	"github.com/mrz1836/gamesmith/internal/execution"
	"github.com/mrz1836/gamesmith/internal/generator"
	"github.com/mrz1836/gamesmith/internal/planning"
	"github.com/mrz1836/gamesmith/internal/testutil"
)

type harness struct {
	ctl   *Controller
	rec   *events.Recorder
	store *artifact.FSStore
}

func newHarness(t *testing.T, project *domain.Project, execOpts []execution.Option, opts ...Option) *harness {
	t.Helper()
	store, err := artifact.NewFSStore(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	reg, err := generator.NewDefaultRegistry("")
	require.NoError(t, err)

	rec := events.NewRecorder(nil)
	build := func(pub events.Publisher) Stages {
		return Stages{
			Planner:   planning.New(nil, pub, zerolog.Nop()),
			Runner:    execution.New(store, pub, zerolog.Nop(), append([]execution.Option{execution.WithStepDelay(0, 0)}, execOpts...)...),
			Generator: generator.New(reg, store, pub, zerolog.Nop()),
		}
	}
	opts = append([]Option{WithClock(clock.NewFakeClock(time.Unix(1700000000, 0)))}, opts...)
	return &harness{ctl: New(project, build, rec, zerolog.Nop(), opts...), rec: rec, store: store}
}

func quizProject() *domain.Project {
	return &domain.Project{ID: "task-1", Name: "Planets", Description: "a quiz about planets", GameKind: constants.GameKindQuiz}
}

// gate blocks the executor of one step type until released.
type gate struct {
	entered chan struct{}
	release chan struct{}
}

func newGate() *gate {
	return &gate{entered: make(chan struct{}, 1), release: make(chan struct{})}
}

func (g *gate) executor(t constants.StepType) execution.Option {
	return execution.WithExecutor(execution.NewExecutor(t, func(context.Context, *domain.WorkPlan, *domain.WorkPlanStep) error {
		select {
		case g.entered <- struct{}{}:
		default:
		}
		<-g.release
		return nil
	}))
}

func (g *gate) wait(t *testing.T) {
	t.Helper()
	select {
	case <-g.entered:
	case <-time.After(5 * time.Second):
		require.FailNow(t, "step never started")
	}
}

type recordingUpdater struct {
	mu      sync.Mutex
	updates []domain.ProjectUpdate
}

func (u *recordingUpdater) UpdateProject(_ context.Context, _ string, update domain.ProjectUpdate) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.updates = append(u.updates, update)
	return nil
}

func (u *recordingUpdater) statuses() []constants.ProjectStatus {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]constants.ProjectStatus, len(u.updates))
	for i, up := range u.updates {
		out[i] = up.Status
	}
	return out
}

type recordingMetrics struct {
	mu       sync.Mutex
	started  int
	finished []constants.AgentStatus
	steps    int
}

func (m *recordingMetrics) RunStarted(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started++
}

func (m *recordingMetrics) RunFinished(_ string, _ time.Duration, status constants.AgentStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished = append(m.finished, status)
}

func (m *recordingMetrics) StepExecuted(string, constants.StepType, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps++
}

func warnings(s *domain.TaskState) int {
	n := 0
	for _, e := range s.LogEntries {
		if e.Level == constants.LogWarning {
			n++
		}
	}
	return n
}

// matcher reports whether an event is the next one expected.
type matcher func(domain.Event) bool

func ofType(t domain.EventType) matcher {
	return func(ev domain.Event) bool { return ev.Type == t }
}

func progressAt(stage constants.DevelopmentStage) matcher {
	return func(ev domain.Event) bool {
		p, ok := ev.Data.(domain.ProgressPayload)
		return ev.Type == domain.EventProgress && ok && p.Stage == stage
	}
}

func assertSubsequence(t *testing.T, evs []domain.Event, want ...matcher) {
	t.Helper()
	i := 0
	for _, ev := range evs {
		if i < len(want) && want[i](ev) {
			i++
		}
	}
	assert.Equal(t, len(want), i, "only %d of %d expected events seen in order", i, len(want))
}

func TestController_StartRunsToCompletion(t *testing.T) {
	updater := &recordingUpdater{}
	metrics := &recordingMetrics{}
	h := newHarness(t, quizProject(), nil, WithProjectUpdater(updater), WithMetrics(metrics))

	require.NoError(t, h.ctl.Start(context.Background(), "create a quiz about planets"))
	h.ctl.Wait()

	state := h.ctl.State()
	assert.Equal(t, constants.AgentStatusCompleted, state.Status)
	assert.Equal(t, constants.StageCompleted, state.CurrentStage)
	assert.Equal(t, 100, state.ProgressPercent)
	assert.Nil(t, state.Error)
	assert.Zero(t, state.EstimatedSecondsRemaining)

	assertSubsequence(t, h.rec.Events(),
		ofType(domain.EventThinking),
		progressAt(constants.StageRequirementAnalysis),
		progressAt(constants.StageDesign),
		progressAt(constants.StageCoding),
		ofType(domain.EventArtifactCreated),
		ofType(domain.EventPreviewUpdated),
		progressAt(constants.StageCompleted),
	)

	d := h.ctl.Deliverable()
	require.NotNil(t, d)
	assert.Equal(t, "quiz-basic", d.BaseTemplateID)
	ok, err := h.store.Exists(context.Background(), "task-1/"+d.DeliverableID+"/index.html")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, []constants.ProjectStatus{constants.ProjectStatusInProgress, constants.ProjectStatusCompleted}, updater.statuses())
	assert.Equal(t, 1, metrics.started)
	assert.Equal(t, []constants.AgentStatus{constants.AgentStatusCompleted}, metrics.finished)
	assert.Equal(t, 7, metrics.steps)

	last := h.rec.OfType(domain.EventState)
	require.NotEmpty(t, last)
	assert.Equal(t, constants.AgentStatusCompleted, last[len(last)-1].(domain.TaskState).Status)
}

func TestController_StartWithoutGameKindSkipsGeneration(t *testing.T) {
	h := newHarness(t, &domain.Project{ID: "task-1"}, nil)

	require.NoError(t, h.ctl.Start(context.Background(), "make something fun"))
	h.ctl.Wait()

	assert.Equal(t, constants.AgentStatusCompleted, h.ctl.State().Status)
	assert.Nil(t, h.ctl.Deliverable())
	assert.Empty(t, h.rec.OfType(domain.EventPreviewUpdated))
}

func TestController_StartInstructionFallback(t *testing.T) {
	t.Run("empty instruction uses the project description", func(t *testing.T) {
		h := newHarness(t, quizProject(), nil)
		require.NoError(t, h.ctl.Start(context.Background(), "  "))
		h.ctl.Wait()
		assert.Equal(t, constants.AgentStatusCompleted, h.ctl.State().Status)
	})

	t.Run("nothing to start from", func(t *testing.T) {
		h := newHarness(t, &domain.Project{ID: "task-1"}, nil)
		err := h.ctl.Start(context.Background(), "")
		require.ErrorIs(t, err, gserrors.ErrEmptyValue)
		assert.Equal(t, constants.AgentStatusIdle, h.ctl.State().Status)
	})
}

func TestController_StartRejectedWhileActive(t *testing.T) {
	g := newGate()
	h := newHarness(t, quizProject(), []execution.Option{g.executor(constants.StepTypeGenerateGameCode)})

	require.NoError(t, h.ctl.Start(context.Background(), "create a quiz"))
	g.wait(t)

	before := h.ctl.State()
	err := h.ctl.Start(context.Background(), "something else")
	require.ErrorIs(t, err, gserrors.ErrInvalidTransition)

	after := h.ctl.State()
	assert.Equal(t, before.Status, after.Status)
	assert.Equal(t, warnings(before)+1, warnings(after))

	close(g.release)
	h.ctl.Wait()
	assert.Equal(t, constants.AgentStatusCompleted, h.ctl.State().Status)
}

func TestController_PauseAndResumeContinues(t *testing.T) {
	g := newGate()
	updater := &recordingUpdater{}
	h := newHarness(t, quizProject(), []execution.Option{g.executor(constants.StepTypeGenerateGameCode)}, WithProjectUpdater(updater))

	require.NoError(t, h.ctl.Start(context.Background(), "create a quiz"))
	g.wait(t)

	require.NoError(t, h.ctl.Pause())
	assert.Equal(t, constants.AgentStatusPaused, h.ctl.State().Status)

	// The in-flight step finishes; nothing after it starts.
	close(g.release)
	h.ctl.Wait()

	state := h.ctl.State()
	assert.Equal(t, constants.AgentStatusPaused, state.Status)
	h.ctl.mu.Lock()
	index := h.ctl.plan.CurrentStepIndex
	stepStatus := h.ctl.plan.Steps[2].Status
	h.ctl.mu.Unlock()
	assert.Equal(t, 2, index)
	assert.Equal(t, constants.StepStatusPending, stepStatus)

	require.ErrorIs(t, h.ctl.Pause(), gserrors.ErrInvalidTransition)

	require.NoError(t, h.ctl.Resume())
	h.ctl.Wait()

	state = h.ctl.State()
	assert.Equal(t, constants.AgentStatusCompleted, state.Status)
	assert.Equal(t, 100, state.ProgressPercent)
	// Generation ran once across both runs.
	assert.Len(t, h.rec.OfType(domain.EventPreviewUpdated), 1)
	assert.Equal(t, []constants.ProjectStatus{
		constants.ProjectStatusInProgress,
		constants.ProjectStatusPaused,
		constants.ProjectStatusInProgress,
		constants.ProjectStatusCompleted,
	}, updater.statuses())
}

func TestController_ClarificationRoundTrip(t *testing.T) {
	h := newHarness(t, quizProject(), nil)

	require.NoError(t, h.ctl.Start(context.Background(), "build a complex quiz"))
	h.ctl.Wait()

	state := h.ctl.State()
	require.Equal(t, constants.AgentStatusPaused, state.Status)
	assert.Contains(t, state.CurrentTaskSummary, "Waiting for clarification")
	assert.Equal(t, constants.ActionAgentResponse, state.LastAction.Kind)

	var pending int
	for _, ts := range state.ThoughtSteps {
		if ts.Status == constants.ThoughtPending {
			pending++
		}
	}
	assert.Equal(t, 1, pending)

	require.NoError(t, h.ctl.ResumeWithInput("three levels with ten questions"))
	h.ctl.Wait()

	state = h.ctl.State()
	assert.Equal(t, constants.AgentStatusCompleted, state.Status)
	h.ctl.mu.Lock()
	instruction := h.ctl.instruction
	h.ctl.mu.Unlock()
	assert.Equal(t, "build a complex quiz\n\nClarification: three levels with ten questions", instruction)
}

func TestController_StopDiscardsStaleRun(t *testing.T) {
	g := newGate()
	h := newHarness(t, quizProject(), []execution.Option{g.executor(constants.StepTypeGenerateGameCode)})

	require.NoError(t, h.ctl.Start(context.Background(), "create a quiz"))
	g.wait(t)

	h.ctl.Stop()
	close(g.release)
	h.ctl.Wait()

	state := h.ctl.State()
	assert.Equal(t, constants.AgentStatusIdle, state.Status)
	assert.Equal(t, constants.StageRequirementAnalysis, state.CurrentStage)
	assert.Zero(t, state.ProgressPercent)
	assert.Equal(t, constants.MsgStopped, state.LogEntries[len(state.LogEntries)-1].Message)
	assert.Nil(t, h.ctl.Deliverable())

	snapshots := h.rec.OfType(domain.EventState)
	assert.Equal(t, constants.AgentStatusIdle, snapshots[len(snapshots)-1].(domain.TaskState).Status)

	// Stop is valid from idle too.
	h.ctl.Stop()
	assert.Equal(t, constants.AgentStatusIdle, h.ctl.State().Status)
}

func TestController_PlanFailure(t *testing.T) {
	failing := execution.WithExecutor(execution.NewExecutor(constants.StepTypeReviewCode,
		func(context.Context, *domain.WorkPlan, *domain.WorkPlanStep) error { return testutil.ErrMockStepFailed }))
	updater := &recordingUpdater{}
	h := newHarness(t, quizProject(), []execution.Option{failing}, WithProjectUpdater(updater))

	require.NoError(t, h.ctl.Start(context.Background(), "create a quiz"))
	h.ctl.Wait()

	state := h.ctl.State()
	assert.Equal(t, constants.AgentStatusError, state.Status)
	require.NotNil(t, state.Error)
	assert.Equal(t, constants.MsgPlanFailed, state.Error.Message)
	assert.Equal(t, testutil.ErrMockStepFailed.Error(), state.Error.Details)
	assert.Equal(t, []constants.ProjectStatus{constants.ProjectStatusInProgress, constants.ProjectStatusError}, updater.statuses())

	// A failed task can be started again.
	require.NoError(t, h.ctl.Start(context.Background(), "try again"))
	h.ctl.Wait()
	assert.Equal(t, constants.AgentStatusError, h.ctl.State().Status)
}

// failingGate blocks one step type until released, then fails it.
type failingGate struct {
	*gate

	mu    sync.Mutex
	calls int
}

func newFailingGate() *failingGate {
	return &failingGate{gate: newGate()}
}

func (g *failingGate) executor(t constants.StepType) execution.Option {
	return execution.WithExecutor(execution.NewExecutor(t, func(context.Context, *domain.WorkPlan, *domain.WorkPlanStep) error {
		g.mu.Lock()
		g.calls++
		g.mu.Unlock()
		select {
		case g.entered <- struct{}{}:
		default:
		}
		<-g.release
		return testutil.ErrMockStepFailed
	}))
}

func (g *failingGate) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func TestController_StepFailureWhilePaused(t *testing.T) {
	assertFailedOnce := func(t *testing.T, h *harness, g *failingGate) {
		t.Helper()
		state := h.ctl.State()
		assert.Equal(t, constants.AgentStatusError, state.Status)
		require.NotNil(t, state.Error)
		assert.Equal(t, constants.MsgPlanFailed, state.Error.Message)
		assert.Equal(t, testutil.ErrMockStepFailed.Error(), state.Error.Details)
		assert.Equal(t, 1, g.count())

		h.ctl.mu.Lock()
		defer h.ctl.mu.Unlock()
		assert.Equal(t, constants.StepStatusFailed, h.ctl.plan.Steps[1].Status)
		for _, st := range h.ctl.plan.Steps[2:] {
			assert.Equal(t, constants.StepStatusPending, st.Status)
		}
	}

	t.Run("failure after pause ends in error", func(t *testing.T) {
		g := newFailingGate()
		h := newHarness(t, quizProject(), []execution.Option{g.executor(constants.StepTypeGenerateGameCode)})

		require.NoError(t, h.ctl.Start(context.Background(), "create a quiz"))
		g.wait(t)
		require.NoError(t, h.ctl.Pause())

		close(g.release)
		h.ctl.Wait()

		assertFailedOnce(t, h, g)
		require.ErrorIs(t, h.ctl.Resume(), gserrors.ErrInvalidTransition)
	})

	t.Run("resume before the step returns does not retry it", func(t *testing.T) {
		g := newFailingGate()
		h := newHarness(t, quizProject(), []execution.Option{g.executor(constants.StepTypeGenerateGameCode)})

		require.NoError(t, h.ctl.Start(context.Background(), "create a quiz"))
		g.wait(t)
		require.NoError(t, h.ctl.Pause())
		require.NoError(t, h.ctl.Resume())

		close(g.release)
		h.ctl.Wait()

		assertFailedOnce(t, h, g)
	})
}

// blockingStore holds the first write of the entry point until released.
type blockingStore struct {
	artifact.Store

	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (b *blockingStore) Write(ctx context.Context, path string, content []byte) error {
	if strings.HasSuffix(path, "/index.html") {
		b.once.Do(func() {
			close(b.entered)
			<-b.release
		})
	}
	return b.Store.Write(ctx, path, content)
}

func TestController_PauseDuringGeneration(t *testing.T) {
	store, err := artifact.NewFSStore(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	reg, err := generator.NewDefaultRegistry("")
	require.NoError(t, err)
	blocking := &blockingStore{Store: store, entered: make(chan struct{}), release: make(chan struct{})}

	rec := events.NewRecorder(nil)
	build := func(pub events.Publisher) Stages {
		return Stages{
			Planner:   planning.New(nil, pub, zerolog.Nop()),
			Runner:    execution.New(store, pub, zerolog.Nop(), execution.WithStepDelay(0, 0)),
			Generator: generator.New(reg, blocking, pub, zerolog.Nop()),
		}
	}
	ctl := New(quizProject(), build, rec, zerolog.Nop())

	require.NoError(t, ctl.Start(context.Background(), "create a quiz"))
	select {
	case <-blocking.entered:
	case <-time.After(5 * time.Second):
		require.FailNow(t, "generation never started")
	}
	require.NoError(t, ctl.Pause())
	close(blocking.release)
	ctl.Wait()

	assert.Equal(t, constants.AgentStatusPaused, ctl.State().Status)
	assert.Nil(t, ctl.Deliverable())
	assert.Empty(t, rec.OfType(domain.EventPreviewUpdated))
	files, err := generator.LoadLatestDeliverable(context.Background(), store, "task-1")
	require.NoError(t, err)
	assert.Empty(t, files)

	require.NoError(t, ctl.Resume())
	ctl.Wait()

	state := ctl.State()
	assert.Equal(t, constants.AgentStatusCompleted, state.Status)
	assert.Nil(t, state.Error)
	require.NotNil(t, ctl.Deliverable())
	assert.Len(t, rec.OfType(domain.EventPreviewUpdated), 1)
}

func TestController_PanicBecomesError(t *testing.T) {
	panicking := execution.WithExecutor(execution.NewExecutor(constants.StepTypeReviewCode,
		func(context.Context, *domain.WorkPlan, *domain.WorkPlanStep) error { panic("kaboom") }))
	h := newHarness(t, quizProject(), []execution.Option{panicking})

	require.NoError(t, h.ctl.Start(context.Background(), "create a quiz"))
	h.ctl.Wait()

	state := h.ctl.State()
	assert.Equal(t, constants.AgentStatusError, state.Status)
	require.NotNil(t, state.Error)
	assert.Contains(t, state.Error.Message, "kaboom")
}

func TestController_RejectedControlCalls(t *testing.T) {
	h := newHarness(t, quizProject(), nil)

	require.ErrorIs(t, h.ctl.Pause(), gserrors.ErrInvalidTransition)
	require.ErrorIs(t, h.ctl.Resume(), gserrors.ErrInvalidTransition)
	require.ErrorIs(t, h.ctl.ResumeWithInput("x"), gserrors.ErrInvalidTransition)

	state := h.ctl.State()
	assert.Equal(t, constants.AgentStatusIdle, state.Status)
	assert.Equal(t, 3, warnings(state))
}

func TestController_LogsAreBounded(t *testing.T) {
	h := newHarness(t, quizProject(), nil)
	for i := range constants.MaxLogEntries + 20 {
		h.ctl.AddLog(constants.LogInfo, fmt.Sprintf("entry %d", i), nil)
	}

	state := h.ctl.State()
	require.Len(t, state.LogEntries, constants.MaxLogEntries)
	assert.Equal(t, "entry 20", state.LogEntries[0].Message)
	assert.Equal(t, fmt.Sprintf("entry %d", constants.MaxLogEntries+19), state.LogEntries[constants.MaxLogEntries-1].Message)
}

func TestController_StateIsACopy(t *testing.T) {
	h := newHarness(t, quizProject(), nil)
	h.ctl.AddLog(constants.LogInfo, "hello", map[string]any{"k": "v"})

	s := h.ctl.State()
	s.LogEntries[0].Message = "changed"
	s.LogEntries[0].Context["k"] = "changed"
	s.Status = constants.AgentStatusError

	again := h.ctl.State()
	assert.Equal(t, "hello", again.LogEntries[0].Message)
	assert.Equal(t, "v", again.LogEntries[0].Context["k"])
	assert.Equal(t, constants.AgentStatusIdle, again.Status)
}

func TestController_SetProject(t *testing.T) {
	h := newHarness(t, quizProject(), nil)

	h.ctl.SetProject(&domain.Project{ID: "other", Name: "ignored"})
	assert.Equal(t, "Planets", h.ctl.Project().Name)

	h.ctl.SetProject(&domain.Project{ID: "task-1", Name: "Moons", GameKind: constants.GameKindMatching})
	assert.Equal(t, "Moons", h.ctl.Project().Name)
	assert.Equal(t, "task-1", h.ctl.TaskID())
}
