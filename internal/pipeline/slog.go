package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/oonisim/ml-credit-risk/internal/transform"
)

// logRunStart logs the start of a pipeline run
func (p *Pipeline) logRunStart(ctx context.Context, runID string, rows, columns int) {
	p.logger.InfoContext(ctx, "pipeline_start",
		slog.String("run_id", runID),
		slog.Int("rows", rows),
		slog.Int("columns", columns),
		slog.Int("stages", len(p.stages)))
}

// logRunComplete logs the completion of a pipeline run
func (p *Pipeline) logRunComplete(ctx context.Context, runID string, columns int, duration time.Duration) {
	p.logger.InfoContext(ctx, "pipeline_complete",
		slog.String("run_id", runID),
		slog.Int("columns", columns),
		slog.Duration("duration", duration))
}

// logRunError logs a failed run
func (p *Pipeline) logRunError(ctx context.Context, runID string, err error) {
	p.logger.ErrorContext(ctx, "pipeline_error",
		slog.String("run_id", runID),
		slog.String("error", errorString(err)))
}

// logStageStart logs the start of a stage
func (p *Pipeline) logStageStart(ctx context.Context, runID, stageID string) {
	p.logger.InfoContext(ctx, "stage_start",
		slog.String("run_id", runID),
		slog.String("stage", stageID))
}

// logStageComplete logs the completion of a stage
func (p *Pipeline) logStageComplete(ctx context.Context, runID, stageID string, columns int, duration time.Duration) {
	p.logger.InfoContext(ctx, "stage_complete",
		slog.String("run_id", runID),
		slog.String("stage", stageID),
		slog.Int("columns", columns),
		slog.Duration("duration", duration))
}

// logStageError logs a stage error with its kind and column when known
func (p *Pipeline) logStageError(ctx context.Context, runID, stageID string, err error) {
	attrs := []any{
		slog.String("run_id", runID),
		slog.String("stage", stageID),
		slog.String("error", errorString(err)),
	}
	if kind := transform.GetErrorKind(err); kind != "" {
		attrs = append(attrs, slog.String("kind", string(kind)))
	}
	p.logger.ErrorContext(ctx, "stage_error", attrs...)
}

// logUnassigned warns about values the discretizer could not place in a bin
func (p *Pipeline) logUnassigned(ctx context.Context, runID string, r transform.BinReport) {
	p.logger.WarnContext(ctx, "discretize_unassigned",
		slog.String("run_id", runID),
		slog.String("source", r.Source),
		slog.String("target", r.Target),
		slog.Int("unassigned", r.Unassigned),
		slog.Any("rows", r.UnassignedRows))
}

// logEmptyDropped warns about a categorical column dropped for having no values
func (p *Pipeline) logEmptyDropped(ctx context.Context, runID, column string) {
	p.logger.WarnContext(ctx, "encode_empty_dropped",
		slog.String("run_id", runID),
		slog.String("column", column))
}

func errorString(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
