package infrastructure

import (
	"go.opentelemetry.io/otel/metric"
)

// PipelineMetrics holds the instruments recorded during a pipeline run
type PipelineMetrics struct {
	RowsLoaded   metric.Int64Counter
	RowsStored   metric.Int64Counter
	StepDuration metric.Float64Histogram
	StepErrors   metric.Int64Counter
}

// CreatePipelineMetrics creates the pipeline instruments on meter
func CreatePipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	rowsLoaded, err := meter.Int64Counter(
		"sales_rows_loaded",
		metric.WithDescription("Rows read from the input workbook"),
	)
	if err != nil {
		return nil, err
	}

	rowsStored, err := meter.Int64Counter(
		"sales_rows_stored",
		metric.WithDescription("Rows written to the sales table"),
	)
	if err != nil {
		return nil, err
	}

	stepDuration, err := meter.Float64Histogram(
		"pipeline_step_duration_seconds",
		metric.WithDescription("Pipeline step duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	stepErrors, err := meter.Int64Counter(
		"pipeline_step_errors",
		metric.WithDescription("Pipeline steps that ended in an error"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		RowsLoaded:   rowsLoaded,
		RowsStored:   rowsStored,
		StepDuration: stepDuration,
		StepErrors:   stepErrors,
	}, nil
}
