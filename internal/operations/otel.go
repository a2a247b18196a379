package operations

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"salespipeline/internal/infrastructure"
)

const (
	TracerName = "salespipeline.operation"
)

// OperationTracer provides OpenTelemetry instrumentation for pipeline runs
type OperationTracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.PipelineMetrics
}

// NewOperationTracer creates a new operation tracer.
// Nil providers give a tracer whose spans and instruments are no-ops.
func NewOperationTracer(providers *infrastructure.OTelProviders) (*OperationTracer, error) {
	tracer := tracenoop.NewTracerProvider().Tracer(TracerName)
	meter := metricnoop.NewMeterProvider().Meter(TracerName)
	if providers != nil {
		tracer = providers.Tracer
		meter = providers.Meter
	}

	metrics, err := infrastructure.CreatePipelineMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
	}

	return &OperationTracer{
		tracer:  tracer,
		metrics: metrics,
	}, nil
}

// Metrics returns the pipeline instruments
func (pt *OperationTracer) Metrics() *infrastructure.PipelineMetrics {
	return pt.metrics
}

// TraceOperationExecution creates a span for the entire pipeline run
func (pt *OperationTracer) TraceOperationExecution(ctx context.Context, operationID string) (context.Context, trace.Span) {
	return pt.tracer.Start(ctx, "operation.execute",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("operation.id", operationID),
		),
	)
}

// TraceStageExecution creates a span for an individual Step
func (pt *OperationTracer) TraceStageExecution(ctx context.Context, operationID string, step Step) (context.Context, trace.Span) {
	spanName := fmt.Sprintf("operation.step.%s", step.ID())
	return pt.tracer.Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("operation.id", operationID),
			attribute.String("step.id", step.ID()),
			attribute.String("step.name", step.Name()),
			attribute.Int("step.phase", step.Phase()),
		),
	)
}

// RecordStageCompletion ends a Step span and records its duration and outcome
func (pt *OperationTracer) RecordStageCompletion(ctx context.Context, span trace.Span, step Step, duration time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("step", step.ID()))
	pt.metrics.StepDuration.Record(ctx, duration.Seconds(), attrs)

	span.SetAttributes(attribute.Float64("step.duration_seconds", duration.Seconds()))
	if err != nil {
		pt.metrics.StepErrors.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// RecordOperationCompletion ends the run span
func (pt *OperationTracer) RecordOperationCompletion(span trace.Span, state *OperationState, err error) {
	span.SetAttributes(
		attribute.String("operation.status", string(state.Status)),
		attribute.Bool("operation.sink_failures", state.SinkErrors.HasErrors()),
		attribute.Float64("operation.duration_seconds", state.Duration().Seconds()),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
