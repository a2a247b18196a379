package operations

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	perrors "salespipeline/internal/errors"
	"salespipeline/internal/infrastructure"
	"salespipeline/internal/report"
)

// stubStep records its execution and returns a fixed error
type stubStep struct {
	BaseStage
	err         error
	validateErr error
	ran         *[]string
}

func newStubStep(id string, phase int, ran *[]string, deps ...string) *stubStep {
	errType := perrors.ErrorTypeExport
	if phase < perrors.PhaseSink {
		errType = perrors.ErrorTypeTransform
	}
	return &stubStep{
		BaseStage: NewBaseStage(id, id+" step", phase, errType, deps),
		ran:       ran,
	}
}

func (s *stubStep) Validate(state *OperationState) error {
	return s.validateErr
}

func (s *stubStep) Execute(ctx context.Context, state *OperationState) error {
	*s.ran = append(*s.ran, s.ID())
	return s.err
}

func newTestManager(t *testing.T, steps ...Step) (*Manager, *bytes.Buffer) {
	t.Helper()
	registry := NewRegistry()
	for _, step := range steps {
		require.NoError(t, registry.Register(step))
	}
	var out bytes.Buffer
	return NewManager(registry, report.NewConsole(&out), nil, nil), &out
}

func TestRegistry_Register(t *testing.T) {
	var ran []string
	registry := NewRegistry()

	require.NoError(t, registry.Register(newStubStep("a", 1, &ran)))
	require.NoError(t, registry.Register(newStubStep("b", 2, &ran, "a")))

	tests := []struct {
		name    string
		step    Step
		wantErr string
	}{
		{name: "nil step", step: nil, wantErr: "nil Step"},
		{name: "empty id", step: newStubStep("", 2, &ran), wantErr: "cannot be empty"},
		{name: "duplicate", step: newStubStep("a", 2, &ran), wantErr: "already registered"},
		{name: "unknown dependency", step: newStubStep("c", 2, &ran, "missing"), wantErr: "unregistered Step missing"},
		{name: "phase goes back", step: newStubStep("c", 1, &ran), wantErr: "registered after phase 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := registry.Register(tt.step)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	assert.Equal(t, 2, registry.Count())
	ids := []string{}
	for _, step := range registry.List() {
		ids = append(ids, step.ID())
	}
	assert.Equal(t, []string{"a", "b"}, ids)

	step, err := registry.Get("b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, step.GetDependencies())

	_, err = registry.Get("zzz")
	assert.Error(t, err)
}

func TestManager_AllStepsSucceed(t *testing.T) {
	var ran []string
	m, out := newTestManager(t,
		newStubStep("load", 1, &ran),
		newStubStep("transform", 2, &ran, "load"),
		newStubStep("sink", 3, &ran, "transform"),
	)

	state, err := m.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"load", "transform", "sink"}, ran)
	assert.Equal(t, OperationStatusCompleted, state.Status)
	assert.False(t, state.HasFailures())
	assert.NotEmpty(t, state.ID)
	for _, s := range state.OrderedStages() {
		assert.Equal(t, StepStatusCompleted, s.GetStatus(), s.ID)
	}

	assert.Contains(t, out.String(), "PHASE 1: DATA LOADING & EXPLORATION")
	assert.Contains(t, out.String(), "PHASE 2: DATA CLEANING & TRANSFORMATION")
	assert.Contains(t, out.String(), "PHASE 3: DATA STORAGE & VISUALIZATION")
}

func TestManager_EarlyFailureHalts(t *testing.T) {
	var ran []string
	transform := newStubStep("transform", 2, &ran, "load")
	transform.err = perrors.NewTransformError("date conversion", "row 3: bad date", nil)

	m, out := newTestManager(t,
		newStubStep("load", 1, &ran),
		transform,
		newStubStep("storage", 3, &ran, "transform"),
		newStubStep("chart", 3, &ran, "transform"),
	)

	state, err := m.Execute(context.Background())
	require.Error(t, err)
	assert.Equal(t, perrors.ErrorTypeTransform, perrors.GetErrorType(err))

	assert.Equal(t, []string{"load", "transform"}, ran)
	assert.Equal(t, OperationStatusFailed, state.Status)
	assert.Equal(t, StepStatusFailed, state.GetStage("transform").GetStatus())
	assert.Equal(t, StepStatusSkipped, state.GetStage("storage").GetStatus())
	assert.Equal(t, StepStatusSkipped, state.GetStage("chart").GetStatus())
	assert.False(t, state.SinkErrors.HasErrors())

	assert.Contains(t, out.String(), "❌ Error: [transform] Phase 2 / date conversion")
	assert.NotContains(t, out.String(), "PHASE 3")
}

func TestManager_SinkFailureIsolated(t *testing.T) {
	var ran []string
	storage := newStubStep("storage", 3, &ran, "transform")
	storage.err = errors.New("disk full")

	m, _ := newTestManager(t,
		newStubStep("load", 1, &ran),
		newStubStep("transform", 2, &ran, "load"),
		storage,
		newStubStep("verify", 3, &ran, "storage"),
		newStubStep("chart", 3, &ran, "transform"),
		newStubStep("export", 3, &ran, "transform"),
	)

	state, err := m.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"load", "transform", "storage", "chart", "export"}, ran)
	assert.Equal(t, OperationStatusCompleted, state.Status)
	assert.Equal(t, StepStatusSkipped, state.GetStage("verify").GetStatus())
	assert.Contains(t, state.GetStage("verify").Message, "storage")

	require.Len(t, state.SinkErrors.Errors, 1)
	sinkErr := state.SinkErrors.Errors[0]
	assert.Equal(t, perrors.ErrorTypeExport, sinkErr.Type)
	assert.Equal(t, perrors.PhaseSink, sinkErr.Phase)
	assert.Equal(t, "storage step", sinkErr.Operation)

	failed := state.GetFailedStages()
	require.Len(t, failed, 1)
	assert.Equal(t, "storage", failed[0].ID)
}

func TestManager_FatalityFollowsErrorType(t *testing.T) {
	tests := []struct {
		name      string
		phase     int
		errType   perrors.ErrorType
		err       error
		wantHalt  bool
		wantSteps []string
	}{
		{
			name:      "untyped failure in a transform step halts",
			phase:     perrors.PhaseTransformation,
			errType:   perrors.ErrorTypeTransform,
			err:       errors.New("boom"),
			wantHalt:  true,
			wantSteps: []string{"failing"},
		},
		{
			name:      "untyped failure in a render step is isolated",
			phase:     perrors.PhaseSink,
			errType:   perrors.ErrorTypeRender,
			err:       errors.New("boom"),
			wantSteps: []string{"failing", "after"},
		},
		{
			name:      "typed load failure halts whatever the step type",
			phase:     perrors.PhaseSink,
			errType:   perrors.ErrorTypeRender,
			err:       perrors.NewLoadError("sheet unreadable", nil),
			wantHalt:  true,
			wantSteps: []string{"failing"},
		},
		{
			name:      "typed storage failure is isolated",
			phase:     perrors.PhaseSink,
			errType:   perrors.ErrorTypeExport,
			err:       perrors.NewStorageError("database write", errors.New("locked")),
			wantSteps: []string{"failing", "after"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ran []string
			failing := &stubStep{
				BaseStage: NewBaseStage("failing", "failing step", tt.phase, tt.errType, nil),
				err:       tt.err,
				ran:       &ran,
			}
			m, _ := newTestManager(t, failing, newStubStep("after", perrors.PhaseSink, &ran))

			state, err := m.Execute(context.Background())
			assert.Equal(t, tt.wantSteps, ran)
			if tt.wantHalt {
				require.Error(t, err)
				assert.True(t, perrors.IsFatal(err))
				assert.Equal(t, StepStatusSkipped, state.GetStage("after").GetStatus())
				assert.False(t, state.SinkErrors.HasErrors())
				return
			}

			require.NoError(t, err)
			require.True(t, state.SinkErrors.HasErrors())
			wantType := perrors.GetErrorType(tt.err)
			if wantType == "" {
				wantType = tt.errType
			}
			assert.Len(t, state.SinkErrors.GetByType(wantType), 1)
			assert.True(t, state.HasFailures())
		})
	}
}

func TestManager_StageErrorLog(t *testing.T) {
	var ran []string
	storage := newStubStep("storage", perrors.PhaseSink, &ran)
	storage.err = errors.New("disk full")

	registry := NewRegistry()
	require.NoError(t, registry.Register(storage))
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	m := NewManager(registry, report.NewConsole(&bytes.Buffer{}), nil, logger)

	_, err := m.Execute(context.Background())
	require.NoError(t, err)

	out := logs.String()
	assert.Contains(t, out, `"component":"operation_manager"`)
	assert.Regexp(t, `"msg":"stage_error"[^\n]*"error":"disk full"`, out)
	assert.Contains(t, out, `"msg":"stages_completed_with_failures"`)
	assert.Contains(t, out, `"failed_stages":["storage"]`)
}

func TestManager_ValidationFailureSkips(t *testing.T) {
	var ran []string
	chart := newStubStep("chart", 3, &ran)
	chart.validateErr = errors.New("no cleaned table available")

	m, _ := newTestManager(t, chart, newStubStep("export", 3, &ran))

	state, err := m.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"export"}, ran)
	assert.Equal(t, StepStatusSkipped, state.GetStage("chart").GetStatus())
	assert.Contains(t, state.GetStage("chart").Message, "Validation failed")
}

func TestManager_Cancelled(t *testing.T) {
	var ran []string
	m, _ := newTestManager(t, newStubStep("load", 1, &ran), newStubStep("sink", 3, &ran, "load"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	state, err := m.Execute(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, ran)
	assert.Equal(t, StepStatusSkipped, state.GetStage("load").GetStatus())
	assert.Equal(t, StepStatusSkipped, state.GetStage("sink").GetStatus())
}

func TestManager_Spans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer tp.Shutdown(context.Background())

	tracer, err := NewOperationTracer(&infrastructure.OTelProviders{
		Tracer: tp.Tracer(TracerName),
		Meter:  metricnoop.NewMeterProvider().Meter(TracerName),
	})
	require.NoError(t, err)
	require.NotNil(t, tracer.Metrics())

	var ran []string
	failing := newStubStep("chart", 3, &ran)
	failing.err = errors.New("render failed")

	registry := NewRegistry()
	require.NoError(t, registry.Register(newStubStep("load", 1, &ran)))
	require.NoError(t, registry.Register(failing))
	m := NewManager(registry, report.NewConsole(&bytes.Buffer{}), tracer, nil)

	_, err = m.Execute(context.Background())
	require.NoError(t, err)

	names := []string{}
	for _, span := range exporter.GetSpans() {
		names = append(names, span.Name)
	}
	assert.ElementsMatch(t, []string{"operation.step.load", "operation.step.chart", "operation.execute"}, names)
}
