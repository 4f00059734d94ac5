package execution

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/mrz1836/gamesmith/internal/constants"
	"github.com/mrz1836/gamesmith/internal/domain"
	gserrors "github.com/mrz1836/gamesmith/internal/errors"
	"github.com/mrz1836/gamesmith/internal/generator"
)

// executorFunc adapts a function to StepExecutor.
type executorFunc struct {
	stepType constants.StepType
	fn       func(ctx context.Context, plan *domain.WorkPlan, step *domain.WorkPlanStep) error
}

func (e executorFunc) Execute(ctx context.Context, plan *domain.WorkPlan, step *domain.WorkPlanStep) error {
	return e.fn(ctx, plan, step)
}

func (e executorFunc) Type() constants.StepType {
	return e.stepType
}

// NewExecutor returns a StepExecutor for t backed by fn.
func NewExecutor(t constants.StepType, fn func(ctx context.Context, plan *domain.WorkPlan, step *domain.WorkPlanStep) error) StepExecutor {
	return executorFunc{stepType: t, fn: fn}
}

func (s *Stage) registerDefaults() {
	s.registry.Register(NewExecutor(constants.StepTypeCreateFile, s.executeCreate))
	s.registry.Register(NewExecutor(constants.StepTypeModifyFile, s.executeModify))
	s.registry.Register(NewExecutor(constants.StepTypeDeleteFile, s.executeDelete))
	s.registry.Register(NewExecutor(constants.StepTypeRunTests, s.executeTests))
	for _, t := range []constants.StepType{
		constants.StepTypeGenerateGameCode,
		constants.StepTypeCustomizeGameAssets,
		constants.StepTypeDebugCode,
		constants.StepTypeReviewCode,
		constants.StepTypeOther,
	} {
		s.registry.Register(NewExecutor(t, s.executeSimulated))
	}
}

func (s *Stage) executeCreate(ctx context.Context, plan *domain.WorkPlan, step *domain.WorkPlanStep) error {
	for _, p := range step.RelatedArtifacts {
		if _, err := s.CreateFile(ctx, plan.TaskID, p, placeholder(plan, step, p), generator.KindForFile(p)); err != nil {
			return err
		}
	}
	return s.simulate(ctx)
}

func (s *Stage) executeModify(ctx context.Context, plan *domain.WorkPlan, step *domain.WorkPlanStep) error {
	for _, p := range step.RelatedArtifacts {
		current, err := s.store.Read(ctx, p)
		if errors.Is(err, gserrors.ErrArtifactNotFound) {
			content := placeholder(plan, step, p)
			if _, err := s.CreateFile(ctx, plan.TaskID, p, content, generator.KindForFile(p)); err != nil {
				return err
			}
			current, err = []byte(content), nil
		}
		if err != nil {
			return gserrors.Wrapf(err, "failed to read %s", p)
		}
		revised := revise(string(current), p, fmt.Sprintf("%s (%s)", step.Description, s.clock.Now().UTC().Format("2006-01-02T15:04:05Z")))
		if _, err := s.ModifyFile(ctx, plan.TaskID, p, revised); err != nil {
			return err
		}
	}
	return s.simulate(ctx)
}

func (s *Stage) executeDelete(ctx context.Context, plan *domain.WorkPlan, step *domain.WorkPlanStep) error {
	for _, p := range step.RelatedArtifacts {
		if _, err := s.DeleteFile(ctx, plan.TaskID, p); err != nil {
			return err
		}
	}
	return nil
}

// executeTests runs the deliverable checks over the task's newest deliverable.
// A task without a deliverable passes.
func (s *Stage) executeTests(ctx context.Context, plan *domain.WorkPlan, step *domain.WorkPlanStep) error {
	files, err := generator.LoadLatestDeliverable(ctx, s.store, plan.TaskID)
	if err != nil {
		return gserrors.Wrap(err, "failed to load deliverable")
	}
	if len(files) == 0 {
		s.emit.Log(plan.TaskID, constants.LogInfo, "No generated game to test; skipping checks.", nil)
		return s.simulate(ctx)
	}

	results := generator.Tester{}.Run(files)
	summary := generator.Summarize(results)

	details := make(map[string]any, len(results))
	for _, r := range results {
		details[r.CaseID] = r.Passed
		level := constants.LogSuccess
		if !r.Passed {
			level = constants.LogWarning
		}
		s.emit.Log(plan.TaskID, level, r.Message, map[string]any{"case_id": r.CaseID})
	}
	s.emit.Action(plan.TaskID, constants.ActionRunTest, summary.Message, path.Dir(files[0].Path), details)

	if !summary.Passed {
		return fmt.Errorf("%w: %s", gserrors.ErrPlanStepFailed, summary.Message)
	}
	return nil
}

func (s *Stage) executeSimulated(ctx context.Context, plan *domain.WorkPlan, step *domain.WorkPlanStep) error {
	s.emit.Thinking(plan.TaskID, "Working on: "+step.Description)
	return s.simulate(ctx)
}

// placeholder returns the initial content of a planned file.
func placeholder(plan *domain.WorkPlan, step *domain.WorkPlanStep, p string) string {
	header := fmt.Sprintf("%s - %s", plan.OverallGoal, step.Description)
	switch strings.ToLower(path.Ext(p)) {
	case ".json":
		data, _ := json.MarshalIndent(map[string]any{
			"goal": plan.OverallGoal,
			"step": step.Description,
		}, "", "  ")
		return string(data) + "\n"
	case ".md":
		return "# " + plan.OverallGoal + "\n\n" + step.Description + "\n"
	case ".html":
		return "<!-- " + header + " -->\n"
	case ".css", ".js":
		return "/* " + header + " */\n"
	default:
		return header + "\n"
	}
}

// revise appends a revision marker in the comment syntax of p.
// JSON objects get a "revision" field instead so they stay parseable.
func revise(content, p, marker string) string {
	switch strings.ToLower(path.Ext(p)) {
	case ".json":
		var obj map[string]any
		if err := json.Unmarshal([]byte(content), &obj); err == nil && obj != nil {
			obj["revision"] = marker
			if data, err := json.MarshalIndent(obj, "", "  "); err == nil {
				return string(data) + "\n"
			}
		}
		return content
	case ".html", ".md":
		return content + "<!-- Revision: " + marker + " -->\n"
	case ".js":
		return content + "// Revision: " + marker + "\n"
	case ".css":
		return content + "/* Revision: " + marker + " */\n"
	default:
		return content + "# Revision: " + marker + "\n"
	}
}
