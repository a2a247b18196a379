package operations

import (
	"context"
	"log/slog"
	"time"

	"salespipeline/internal/infrastructure"
)

// logOperationStart logs the start of a pipeline run
func (m *Manager) logOperationStart(ctx context.Context, operationID string, stageCount int) {
	m.logger.InfoContext(ctx, "operation_start",
		slog.String("operation_id", operationID),
		slog.Int("stage_count", stageCount))
}

// logOperationComplete logs the completion of a pipeline run
func (m *Manager) logOperationComplete(ctx context.Context, operationID string, duration time.Duration, status string) {
	m.logger.InfoContext(ctx, "operation_complete",
		slog.String("operation_id", operationID),
		slog.String("status", status),
		slog.Duration("duration", duration))
}

// logOperationError logs a halted pipeline run
func (m *Manager) logOperationError(ctx context.Context, operationID string, err error) {
	infrastructure.WithError(m.logger, err).ErrorContext(ctx, "operation_error",
		slog.String("operation_id", operationID))
}

// logStageStart logs the start of a Step execution
func (m *Manager) logStageStart(ctx context.Context, operationID, stageID string) {
	m.logger.InfoContext(ctx, "stage_start",
		slog.String("operation_id", operationID),
		slog.String("step", stageID))
}

// logStageComplete logs the completion of a Step execution
func (m *Manager) logStageComplete(ctx context.Context, operationID, stageID string, duration time.Duration) {
	m.logger.InfoContext(ctx, "stage_complete",
		slog.String("operation_id", operationID),
		slog.String("step", stageID),
		slog.Duration("duration", duration))
}

// logStageError logs a Step error
func (m *Manager) logStageError(ctx context.Context, operationID, stageID string, err error) {
	infrastructure.WithError(m.logger, err).ErrorContext(ctx, "stage_error",
		slog.String("operation_id", operationID),
		slog.String("step", stageID))
}
