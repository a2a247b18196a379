package operations

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/lo"

	perrors "salespipeline/internal/errors"
	"salespipeline/internal/infrastructure"
	"salespipeline/internal/report"
)

// Manager runs the registered steps in order and reports their outcome
type Manager struct {
	registry *Registry
	console  *report.Console
	tracer   *OperationTracer
	logger   *slog.Logger
}

// NewManager creates a new operation manager.
// A nil tracer disables tracing and metrics.
func NewManager(registry *Registry, console *report.Console, tracer *OperationTracer, logger *slog.Logger) *Manager {
	if tracer == nil {
		tracer, _ = NewOperationTracer(nil)
	}
	return &Manager{
		registry: registry,
		console:  console,
		tracer:   tracer,
		logger:   infrastructure.WithComponent(logger, "operation_manager"),
	}
}

// GetRegistry returns the Step registry
func (m *Manager) GetRegistry() *Registry {
	return m.registry
}

// Execute runs every registered Step once, in registration order.
// A fatal failure (see perrors.IsFatal) halts the run and is returned; the
// returned state then has no final summary. Other failures are collected
// in the state's SinkErrors and only skip the steps that depend on them.
func (m *Manager) Execute(ctx context.Context) (*OperationState, error) {
	ctx = infrastructure.EnsureRunID(ctx)
	state := NewOperationState(infrastructure.GetRunID(ctx))
	steps := m.registry.List()
	for _, step := range steps {
		state.SetStage(step.ID(), NewStepState(step.ID(), step.Name(), step.Phase()))
	}

	ctx, span := m.tracer.TraceOperationExecution(ctx, state.ID)
	m.logOperationStart(ctx, state.ID, len(steps))
	state.Start()

	err := m.executeSequential(ctx, state, steps)
	if err != nil {
		state.Fail(err)
		m.logOperationError(ctx, state.ID, err)
	} else {
		state.Complete()
		if state.Table != nil && state.Stats != nil {
			m.console.Summary(state.Table, *state.Stats, m.outcomes(state))
		}
		m.logOperationComplete(ctx, state.ID, state.Duration(), string(state.Status))
	}

	m.tracer.RecordOperationCompletion(span, state, err)
	return state, err
}

// executeSequential executes steps one by one
func (m *Manager) executeSequential(ctx context.Context, state *OperationState, steps []Step) error {
	phase := 0
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			m.logger.WarnContext(ctx, "operation_cancelled",
				slog.String("operation_id", state.ID),
				slog.String("step", step.ID()))
			m.skipRemaining(state, steps[i:], "operation cancelled")
			return fmt.Errorf("operation cancelled before %s: %w", step.Name(), err)
		}

		stepState := state.GetStage(step.ID())
		if stepState.GetStatus() == StepStatusSkipped {
			m.logger.InfoContext(ctx, "stage_skipped",
				slog.String("operation_id", state.ID),
				slog.String("step", step.ID()),
				slog.String("reason", stepState.Message))
			continue
		}

		if step.Phase() != phase {
			phase = step.Phase()
			m.console.Phase(phase, phaseTitles[phase])
		}

		m.logger.InfoContext(ctx, "executing_stage",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.Int("stage_number", i+1),
			slog.Int("total_stages", len(steps)))

		err := m.executeStage(ctx, state, step)
		if err == nil {
			continue
		}

		m.console.Failure(err)
		if perrors.GetErrorType(err) == perrors.ErrorTypeMissingFile {
			m.console.Info("Please ensure the file is in the same directory or provide the full path.")
		}
		pe := perrors.WrapError(err, step.ErrorType(), step.Phase(), step.Name())
		if perrors.IsFatal(pe) {
			m.skipRemaining(state, steps[i+1:], fmt.Sprintf("pipeline halted at %s", step.Name()))
			return pe
		}
		state.SinkErrors.Add(pe)
		m.skipDependentStages(ctx, state, steps, step.ID())
	}

	if state.HasFailures() {
		m.logger.WarnContext(ctx, "stages_completed_with_failures",
			slog.String("operation_id", state.ID),
			slog.Any("failed_stages", lo.Map(state.GetFailedStages(), func(s *StepState, _ int) string {
				return s.ID
			})),
			slog.Bool("sink_errors", state.SinkErrors.HasErrors()))
		return nil
	}
	m.logger.InfoContext(ctx, "all_stages_completed",
		slog.String("operation_id", state.ID))
	return nil
}

// executeStage executes a single Step
func (m *Manager) executeStage(ctx context.Context, state *OperationState, step Step) error {
	stepState := state.GetStage(step.ID())

	if err := m.checkDependencies(state, step); err != nil {
		m.logger.WarnContext(ctx, "dependencies_not_met",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.String("error", err.Error()))
		stepState.Skip(fmt.Sprintf("Dependencies not met: %v", err))
		return nil
	}

	if err := step.Validate(state); err != nil {
		m.logger.WarnContext(ctx, "validation_failed",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.String("error", err.Error()))
		stepState.Skip(fmt.Sprintf("Validation failed: %v", err))
		return nil
	}

	stageCtx, span := m.tracer.TraceStageExecution(ctx, state.ID, step)
	m.logStageStart(stageCtx, state.ID, step.ID())
	stepState.Start()

	err := step.Execute(stageCtx, state)
	if err != nil {
		stepState.Fail(err)
		m.logStageError(stageCtx, state.ID, step.ID(), err)
	} else {
		stepState.Complete()
		m.logStageComplete(stageCtx, state.ID, step.ID(), stepState.Duration())
	}

	m.tracer.RecordStageCompletion(stageCtx, span, step, stepState.Duration(), err)
	return err
}

// checkDependencies checks that every dependency of step completed
func (m *Manager) checkDependencies(state *OperationState, step Step) error {
	for _, depID := range step.GetDependencies() {
		depState := state.GetStage(depID)
		if depState == nil {
			return fmt.Errorf("dependency %s not found", depID)
		}
		if status := depState.GetStatus(); status != StepStatusCompleted {
			return fmt.Errorf("dependency %s is %s", depID, status)
		}
	}
	return nil
}

// skipDependentStages marks every pending Step that depends on failedID,
// directly or through another skipped Step, as skipped.
func (m *Manager) skipDependentStages(ctx context.Context, state *OperationState, steps []Step, failedID string) {
	blocked := map[string]bool{failedID: true}
	for _, step := range steps {
		stepState := state.GetStage(step.ID())
		if stepState.GetStatus() != StepStatusPending {
			continue
		}
		dep, found := lo.Find(step.GetDependencies(), func(id string) bool { return blocked[id] })
		if !found {
			continue
		}
		stepState.Skip(fmt.Sprintf("Dependency %s failed", dep))
		blocked[step.ID()] = true
		m.logger.InfoContext(ctx, "stage_skipped_due_to_dependency",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.String("dependency", dep))
	}
}

// skipRemaining marks the given pending steps as skipped
func (m *Manager) skipRemaining(state *OperationState, steps []Step, reason string) {
	for _, step := range steps {
		if stepState := state.GetStage(step.ID()); stepState.GetStatus() == StepStatusPending {
			stepState.Skip(reason)
		}
	}
}

// outcomes lists the sink steps for the final summary
func (m *Manager) outcomes(state *OperationState) []report.Outcome {
	sinks := lo.Filter(state.OrderedStages(), func(s *StepState, _ int) bool {
		return s.Phase >= perrors.PhaseSink
	})
	return lo.Map(sinks, func(s *StepState, _ int) report.Outcome {
		return report.Outcome{
			Label:  s.Name,
			Status: string(s.GetStatus()),
			Err:    s.Error,
		}
	})
}
