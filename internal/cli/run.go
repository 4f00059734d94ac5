package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mrz1836/gamesmith/internal/agent"
	"github.com/mrz1836/gamesmith/internal/config"
	"github.com/mrz1836/gamesmith/internal/constants"
	"github.com/mrz1836/gamesmith/internal/domain"
	"github.com/mrz1836/gamesmith/internal/errors"
	"github.com/mrz1836/gamesmith/internal/events"
	"github.com/mrz1836/gamesmith/internal/signal"
	"github.com/mrz1836/gamesmith/internal/tui"
)

// projectVersion is the version stamped on newly created projects.
const projectVersion = "1.0.0"

// runEventBuffer is the minimum bus queue for a foreground run. The printer
// is the only subscriber and must not miss events.
const runEventBuffer = 4096

// runOptions holds the flags of the run command.
type runOptions struct {
	kind      string
	name      string
	answer    string
	ephemeral bool
	stepDelay time.Duration
	delaySet  bool
}

// AddRunCommand adds the run command to the root command.
func AddRunCommand(root *cobra.Command, flags *GlobalFlags) {
	root.AddCommand(newRunCmd(flags))
}

func newRunCmd(flags *GlobalFlags) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run <instruction>",
		Short: "Run the agent once in the foreground",
		Long: `Create a project for the instruction and run the agent on it in-process,
streaming every event to the terminal until the run finishes.

If the agent asks for clarification, the run pauses. Pass --answer to
resume it with your answer right away.

Examples:
  gamesmith run "create a quiz about the solar system" --kind quiz
  gamesmith run "a complex matching game" --kind matching --answer "two levels"
  gamesmith run "sorting animals by habitat" --output json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.delaySet = cmd.Flags().Changed("step-delay")
			return runRun(cmd.Context(), flags, opts, strings.Join(args, " "), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&opts.kind, "kind", "k", "", "game kind (quiz, matching, sorting, ...)")
	cmd.Flags().StringVarP(&opts.name, "name", "n", "", "project name (default derived from the instruction)")
	cmd.Flags().StringVarP(&opts.answer, "answer", "a", "", "answer to send if the agent asks for clarification")
	cmd.Flags().BoolVar(&opts.ephemeral, "ephemeral", false, "keep the project in memory instead of the configured store")
	cmd.Flags().DurationVar(&opts.stepDelay, "step-delay", 0, "fixed delay for simulated steps (overrides execution config)")
	return cmd
}

func runRun(ctx context.Context, flags *GlobalFlags, opts *runOptions, instruction string, w io.Writer) error {
	tui.CheckNoColor()
	out := tui.NewOutput(w, flags.Output)
	logger := zerolog.Ctx(ctx).With().Str("component", "cli_run").Logger()

	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		err := fmt.Errorf("instruction %w", errors.ErrEmptyValue)
		out.Error(err)
		return err
	}

	cfg, err := loadConfig(ctx, flags)
	if err != nil {
		out.Error(err)
		return err
	}
	if opts.ephemeral {
		cfg.Store.Driver = config.StoreMemory
	}
	cfg.Events.BufferSize = max(cfg.Events.BufferSize, runEventBuffer)
	if opts.delaySet {
		cfg.Execution.MinStepDelay = opts.stepDelay
		cfg.Execution.MaxStepDelay = opts.stepDelay
	}

	svc, err := newServices(ctx, cfg, logger)
	if err != nil {
		out.Error(err)
		return err
	}
	defer func() { _ = svc.Close() }()

	p := newProject(opts.name, instruction, constants.GameKind(opts.kind))
	if err := svc.projects.Create(ctx, p); err != nil {
		out.Error(err)
		return err
	}
	logger = logger.With().Str("task_id", p.ID).Logger()
	logger.Debug().Str("game_kind", string(p.GameKind)).Msg("project created")

	sub := svc.bus.Subscribe(p.ID)
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		printEvents(sub, w, flags.Output)
	}()

	ctl := svc.newController(p, svc.bus)

	h := signal.NewHandler(ctx)
	defer h.Stop()

	runErr := drive(h.Context(), ctl, instruction, opts.answer)
	sub.Close()
	<-printed

	if runErr != nil {
		out.Error(runErr)
		return runErr
	}
	return report(out, w, flags.Output, ctl)
}

// newProject builds the project record for a one-shot run.
func newProject(name, instruction string, kind constants.GameKind) *domain.Project {
	if name == "" {
		name = deriveName(instruction)
	}
	return &domain.Project{
		ID:           uuid.NewString(),
		Name:         name,
		Description:  instruction,
		GameKind:     kind,
		Status:       constants.ProjectStatusPlanning,
		CurrentStage: constants.StageRequirementAnalysis,
		Version:      projectVersion,
	}
}

// maxDerivedNameWords bounds names derived from the instruction.
const maxDerivedNameWords = 6

// deriveName uses the first words of the instruction as the project name.
func deriveName(instruction string) string {
	words := strings.Fields(instruction)
	if len(words) > maxDerivedNameWords {
		words = words[:maxDerivedNameWords]
	}
	return strings.Join(words, " ")
}

// drive starts the run, answers one clarification round if an answer was
// given and waits for the run to settle. Canceling ctx stops the run.
func drive(ctx context.Context, ctl *agent.Controller, instruction, answer string) error {
	if err := ctl.Start(ctx, instruction); err != nil {
		return err
	}
	if err := wait(ctx, ctl); err != nil {
		return err
	}

	state := ctl.State()
	if state.Status != constants.AgentStatusPaused || answer == "" {
		return nil
	}
	if err := ctl.ResumeWithInput(answer); err != nil {
		return err
	}
	return wait(ctx, ctl)
}

// wait blocks until the controller's run goroutines return or ctx ends.
func wait(ctx context.Context, ctl *agent.Controller) error {
	done := make(chan struct{})
	go func() {
		ctl.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		ctl.Stop()
		<-done
		return ctx.Err()
	}
}

// printEvents renders events until sub is closed.
func printEvents(sub *events.Subscription, w io.Writer, format string) {
	if format == OutputJSON {
		enc := tui.NewJSONOutput(w)
		for e := range sub.C {
			_ = enc.JSON(e)
		}
		return
	}
	printer := tui.NewEventPrinter(w)
	for e := range sub.C {
		printer.Print(e)
	}
}

// runResult is the final JSON line of `run --output json`.
type runResult struct {
	Type        string                       `json:"type"`
	State       *domain.TaskState            `json:"state"`
	Deliverable *domain.GeneratedDeliverable `json:"deliverable,omitempty"`
}

// report prints the final state and turns error and pending-clarification
// outcomes into ErrRunFailed.
func report(out tui.Output, w io.Writer, format string, ctl *agent.Controller) error {
	state := ctl.State()
	deliverable := ctl.Deliverable()

	if format == OutputJSON {
		if err := out.JSON(runResult{Type: "result", State: state, Deliverable: deliverable}); err != nil {
			return err
		}
	} else {
		_, _ = fmt.Fprintln(w, tui.RenderSummary(state, deliverable))
	}

	switch state.Status {
	case constants.AgentStatusError:
		msg := "run ended in error"
		if state.Error != nil {
			msg = state.Error.Message
		}
		return errors.Wrap(errors.ErrRunFailed, msg)
	case constants.AgentStatusPaused:
		if format != OutputJSON {
			out.Warning(state.CurrentTaskSummary)
			out.Info("Run again with --answer to continue.")
		}
		return errors.Wrap(errors.ErrRunFailed, "clarification required")
	default:
		return nil
	}
}
