package agent

import (
	"context"
	"fmt"

	"github.com/mrz1836/gamesmith/internal/constants"
	"github.com/mrz1836/gamesmith/internal/domain"
	"github.com/mrz1836/gamesmith/internal/generator"
)

// Progress milestones of a run.
const (
	progressAnalysis = 5
	progressDesign   = 15
	progressCoding   = 25
	progressExecSpan = constants.ProgressComplete - progressCoding - 5
)

// pipeline runs the phases not yet done for the current instruction:
// analysis, planning, generation and execution. It returns quietly when
// the run is paused, stopped or superseded.
func (c *Controller) pipeline(ctx context.Context, run uint64, stages Stages) {
	c.mu.Lock()
	taskID := c.state.TaskID
	instruction := c.instruction
	analysis := c.analysis
	plan := c.plan
	c.mu.Unlock()

	if analysis == nil {
		c.progress(run, constants.StageRequirementAnalysis, progressAnalysis, "Analyzing requirements")
		a, err := stages.Planner.AnalyzeRequirement(ctx, taskID, instruction)
		if err != nil {
			c.abort(ctx, run, err)
			return
		}
		waiting := false
		ok := c.withRun(run, func() {
			c.analysis = a
			if a.NeedsClarification() && !c.clarified {
				c.awaitForInputLocked(a)
				waiting = true
				return
			}
			c.addThoughtLocked(constants.ThoughtStageAnalysis,
				fmt.Sprintf("Parsed %d requirements.", len(a.ParsedRequirements)), constants.ThoughtCompleted)
			c.publishLocked()
		})
		if !ok || waiting {
			return
		}
		analysis = a
	}
	if ctx.Err() != nil {
		return
	}

	if plan == nil {
		c.progress(run, constants.StageDesign, progressDesign, "Designing work plan")
		p, err := stages.Planner.GenerateWorkPlan(ctx, taskID, analysis)
		if err != nil {
			c.abort(ctx, run, err)
			return
		}
		ok := c.withRun(run, func() {
			c.plan = p
			c.state.EstimatedSecondsRemaining = p.RemainingSeconds()
			c.addThoughtLocked(constants.ThoughtStagePlanning,
				fmt.Sprintf("Planned %d steps: %s", len(p.Steps), p.OverallGoal), constants.ThoughtCompleted)
			c.publishLocked()
		})
		if !ok {
			return
		}
		plan = p
	}
	if ctx.Err() != nil {
		return
	}

	c.generate(ctx, run, stages, plan, analysis)
	if ctx.Err() != nil {
		return
	}

	c.execute(ctx, run, stages, plan)
}

// awaitForInputLocked pauses the run until the user answers the clarification questions.
func (c *Controller) awaitForInputLocked(a *domain.RequirementAnalysis) {
	c.awaitingInput = true
	c.state.Status = constants.AgentStatusPaused
	c.state.CurrentTaskSummary = "Waiting for clarification: " + a.ClarificationsNeeded[0]
	c.cancelLocked()
	c.setActionLocked(constants.ActionAgentResponse, "Clarification needed", "", map[string]any{
		"questions": a.ClarificationsNeeded,
	})
	for _, q := range a.ClarificationsNeeded {
		c.addThoughtLocked(constants.ThoughtStageAnalysis, "Clarification needed: "+q, constants.ThoughtPending)
	}
	c.addLogLocked(constants.LogWarning, "Clarification needed before continuing.", map[string]any{
		"questions": a.ClarificationsNeeded,
	})
	c.publishLocked()
	c.metrics.RunFinished(c.state.TaskID, c.clock.Now().Sub(c.runStarted), constants.AgentStatusPaused)
}

// generate produces the game files once per instruction when the plan asks
// for generation and the project names a game kind. It is best-effort:
// failures are logged and the run continues.
func (c *Controller) generate(ctx context.Context, run uint64, stages Stages, plan *domain.WorkPlan, analysis *domain.RequirementAnalysis) {
	var project *domain.Project
	should := false
	c.withRun(run, func() {
		project = c.project.Clone()
		should = !c.generated && stages.Generator != nil && plan.HasGenerationStep() && project.GameKind != ""
		if !should {
			return
		}
		c.setStatusLocked(constants.AgentStatusCoding)
		c.state.CurrentTaskSummary = fmt.Sprintf("Generating %s game", project.GameKind)
		c.addThoughtLocked(constants.ThoughtStageGeneration, "Generating game files from template", constants.ThoughtInProgress)
		c.publishLocked()
	})
	if !should {
		return
	}
	c.progress(run, constants.StageCoding, progressCoding, "Generating game files")

	req := generator.RequirementsFromAnalysis(project, analysis)
	d, err := stages.Generator.Generate(ctx, project, project.GameKind, req, generator.Customizations{PreviewImage: c.previewImage})

	c.withRun(run, func() {
		if err != nil && ctx.Err() != nil {
			// Interrupted by pause; the next run generates again.
			c.addThoughtLocked(constants.ThoughtStageGeneration, "Game generation interrupted", constants.ThoughtSkipped)
			c.publishLocked()
			return
		}
		c.generated = true
		switch {
		case err != nil:
			c.addThoughtLocked(constants.ThoughtStageGeneration, "Game generation failed: "+err.Error(), constants.ThoughtFailed)
			c.addLogLocked(constants.LogWarning, "Game generation failed; continuing with the work plan.", map[string]any{"error": err.Error()})
			c.logger.Warn().Err(err).Msg("game generation failed")
		case d == nil:
			c.addThoughtLocked(constants.ThoughtStageGeneration, "No template available; generation skipped", constants.ThoughtSkipped)
		default:
			c.deliverable = d
			c.addThoughtLocked(constants.ThoughtStageGeneration,
				fmt.Sprintf("Generated %s from template %s", d.DeliverableID, d.BaseTemplateID), constants.ThoughtCompleted)
		}
		c.publishLocked()
	})
}

// execute hands the plan to the runner and records the outcome.
func (c *Controller) execute(ctx context.Context, run uint64, stages Stages, plan *domain.WorkPlan) {
	c.progress(run, constants.StageCoding, progressCoding, "Executing work plan")
	if !c.withRun(run, func() {
		c.setStatusLocked(constants.AgentStatusCoding)
		c.state.CurrentTaskSummary = "Executing: " + plan.OverallGoal
		c.publishLocked()
	}) {
		return
	}

	ok, err := stages.Runner.Run(ctx, plan, func(index int, step domain.WorkPlanStep) {
		c.onStep(run, plan, index, step)
	})
	switch {
	case ok:
		c.complete(run)
	case err != nil:
		// A failed step ends the run even when a pause arrived meanwhile.
		c.fail(run, constants.MsgPlanFailed, err.Error())
	case ctx.Err() != nil:
		// Paused or stopped; state was already updated by the control call.
	default:
		c.fail(run, constants.MsgPlanFailed, "")
	}
}

// onStep mirrors a step transition into the task state.
func (c *Controller) onStep(run uint64, plan *domain.WorkPlan, index int, step domain.WorkPlanStep) {
	c.withRun(run, func() {
		total := len(plan.Steps)
		switch step.Status {
		case constants.StepStatusInProgress:
			if step.Type == constants.StepTypeRunTests {
				c.setStatusLocked(constants.AgentStatusTesting)
				c.state.CurrentStage = constants.StageTesting
			} else {
				c.setStatusLocked(constants.AgentStatusCoding)
				c.state.CurrentStage = constants.StageCoding
			}
			c.state.CurrentTaskSummary = fmt.Sprintf("Step %d/%d: %s", index+1, total, step.Description)
			c.addThoughtLocked(constants.ThoughtStageExecution, step.Description, constants.ThoughtInProgress)
		case constants.StepStatusCompleted:
			c.state.ProgressPercent = progressCoding + (index+1)*progressExecSpan/total
			c.state.EstimatedSecondsRemaining = plan.RemainingSeconds()
			c.addThoughtLocked(constants.ThoughtStageExecution, "Completed: "+step.Description, constants.ThoughtCompleted)
			c.metrics.StepExecuted(c.state.TaskID, step.Type, true)
		case constants.StepStatusFailed:
			c.addThoughtLocked(constants.ThoughtStageExecution, "Failed: "+step.Description, constants.ThoughtFailed)
			c.metrics.StepExecuted(c.state.TaskID, step.Type, false)
		}
		c.publishLocked()
	})
}

// progress moves the task to stage and publishes a progress event.
func (c *Controller) progress(run uint64, stage constants.DevelopmentStage, percent int, message string) {
	c.withRun(run, func() {
		c.state.CurrentStage = stage
		c.state.ProgressPercent = max(c.state.ProgressPercent, percent)
		if c.pub != nil {
			c.pub.Publish(c.state.TaskID, domain.EventProgress, domain.ProgressPayload{
				Stage:      stage,
				Percent:    c.state.ProgressPercent,
				ETASeconds: c.state.EstimatedSecondsRemaining,
				Message:    message,
			})
		}
		c.publishLocked()
	})
}

// complete marks a finished run.
func (c *Controller) complete(run uint64) {
	var m *pendingMirror
	c.withRun(run, func() {
		if c.state.Status == constants.AgentStatusPaused {
			// Paused during the last step; resume completes the run.
			return
		}
		c.state.Status = constants.AgentStatusCompleted
		c.state.CurrentStage = constants.StageCompleted
		c.state.ProgressPercent = constants.ProgressComplete
		c.state.EstimatedSecondsRemaining = 0
		c.state.CurrentTaskSummary = "Task completed"
		c.setActionLocked(constants.ActionAgentResponse, "Task completed", "", nil)
		c.addThoughtLocked(constants.ThoughtStageCompletion, "All work plan steps completed.", constants.ThoughtCompleted)
		c.addLogLocked(constants.LogSuccess, "Task completed successfully.", nil)
		if c.pub != nil {
			c.pub.Publish(c.state.TaskID, domain.EventProgress, domain.ProgressPayload{
				Stage:   constants.StageCompleted,
				Percent: constants.ProgressComplete,
				Message: "Task completed",
			})
		}
		c.publishLocked()
		c.metrics.RunFinished(c.state.TaskID, c.clock.Now().Sub(c.runStarted), constants.AgentStatusCompleted)
		m = c.projectUpdateLocked(constants.ProjectStatusCompleted)
		c.logger.Info().Msg("task completed")
	})
	c.mirror(m)
}

// abort ends the run after a stage error unless the run was paused or stopped.
func (c *Controller) abort(ctx context.Context, run uint64, err error) {
	if ctx.Err() != nil {
		return
	}
	c.fail(run, err.Error(), "")
}

// fail moves the task to the error status. It also overrides a pause, so a
// failure that lands after Pause is never retried by Resume.
func (c *Controller) fail(run uint64, message, details string) {
	var m *pendingMirror
	c.withRun(run, func() {
		if c.state.Status == constants.AgentStatusIdle {
			return
		}
		c.state.Status = constants.AgentStatusError
		c.state.EstimatedSecondsRemaining = 0
		c.state.Error = &domain.ErrorInfo{Message: message, Details: details}
		c.state.CurrentTaskSummary = "Error: " + message
		c.setActionLocked(constants.ActionAgentResponse, "Task failed", "", map[string]any{"error": message})
		c.addThoughtLocked(constants.ThoughtStageStateUpdate, "Run failed: "+message, constants.ThoughtFailed)
		c.addLogLocked(constants.LogError, message, nil)
		c.publishLocked()
		c.metrics.RunFinished(c.state.TaskID, c.clock.Now().Sub(c.runStarted), constants.AgentStatusError)
		m = c.projectUpdateLocked(constants.ProjectStatusError)
		c.logger.Error().Str("error", message).Msg("task failed")
	})
	c.mirror(m)
}
