package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	TracerName = "credit-risk.pipeline"
	MeterName  = "credit-risk.pipeline"
)

// Telemetry provides OpenTelemetry instrumentation for pipeline runs
type Telemetry struct {
	tracer trace.Tracer

	runsTotal         metric.Int64Counter
	runDuration       metric.Float64Histogram
	stagesTotal       metric.Int64Counter
	stageDuration     metric.Float64Histogram
	rowsProcessed     metric.Int64Counter
	unassignedTotal   metric.Int64Counter
	imputedTotal      metric.Int64Counter
	indicatorsTotal   metric.Int64Counter
	emptyDroppedTotal metric.Int64Counter
}

// DefaultTelemetry instruments runs with the global tracer and meter providers
func DefaultTelemetry() (*Telemetry, error) {
	return NewTelemetry(otel.Tracer(TracerName), otel.Meter(MeterName))
}

// NewTelemetry creates the pipeline instruments on meter
func NewTelemetry(tracer trace.Tracer, meter metric.Meter) (*Telemetry, error) {
	t := &Telemetry{tracer: tracer}
	var err error

	if t.runsTotal, err = meter.Int64Counter(
		"feature_pipeline_runs_total",
		metric.WithDescription("Total number of pipeline runs"),
	); err != nil {
		return nil, fmt.Errorf("failed to create runs counter: %w", err)
	}
	if t.runDuration, err = meter.Float64Histogram(
		"feature_pipeline_run_duration_seconds",
		metric.WithDescription("Pipeline run duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create run duration histogram: %w", err)
	}
	if t.stagesTotal, err = meter.Int64Counter(
		"feature_pipeline_stages_total",
		metric.WithDescription("Total number of stage executions"),
	); err != nil {
		return nil, fmt.Errorf("failed to create stages counter: %w", err)
	}
	if t.stageDuration, err = meter.Float64Histogram(
		"feature_pipeline_stage_duration_seconds",
		metric.WithDescription("Stage duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create stage duration histogram: %w", err)
	}
	if t.rowsProcessed, err = meter.Int64Counter(
		"feature_pipeline_rows_total",
		metric.WithDescription("Total number of rows transformed"),
	); err != nil {
		return nil, fmt.Errorf("failed to create rows counter: %w", err)
	}
	if t.unassignedTotal, err = meter.Int64Counter(
		"feature_pipeline_unassigned_values_total",
		metric.WithDescription("Values left without a bin by the discretizer"),
	); err != nil {
		return nil, fmt.Errorf("failed to create unassigned counter: %w", err)
	}
	if t.imputedTotal, err = meter.Int64Counter(
		"feature_pipeline_imputed_values_total",
		metric.WithDescription("Missing values replaced by the imputer"),
	); err != nil {
		return nil, fmt.Errorf("failed to create imputed counter: %w", err)
	}
	if t.indicatorsTotal, err = meter.Int64Counter(
		"feature_pipeline_indicator_columns_total",
		metric.WithDescription("Indicator columns generated by the encoder"),
	); err != nil {
		return nil, fmt.Errorf("failed to create indicator counter: %w", err)
	}
	if t.emptyDroppedTotal, err = meter.Int64Counter(
		"feature_pipeline_empty_columns_dropped_total",
		metric.WithDescription("Categorical columns dropped because they had no values"),
	); err != nil {
		return nil, fmt.Errorf("failed to create empty column counter: %w", err)
	}
	return t, nil
}

// startRun creates a span for a whole pipeline run
func (t *Telemetry) startRun(ctx context.Context, runID string, rows, stages int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "pipeline.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("pipeline.run_id", runID),
			attribute.Int("pipeline.rows", rows),
			attribute.Int("pipeline.stages", stages),
		),
	)
}

// endRun records the outcome of a run and ends its span
func (t *Telemetry) endRun(ctx context.Context, span trace.Span, rows int, duration time.Duration, err error) {
	status := "completed"
	if err != nil {
		status = "failed"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
		t.rowsProcessed.Add(ctx, int64(rows))
	}
	attrs := metric.WithAttributes(attribute.String("status", status))
	t.runsTotal.Add(ctx, 1, attrs)
	t.runDuration.Record(ctx, duration.Seconds(), attrs)
	span.End()
}

// startStage creates a span for one stage
func (t *Telemetry) startStage(ctx context.Context, runID string, stage Stage) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, fmt.Sprintf("pipeline.stage.%s", stage.ID()),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("pipeline.run_id", runID),
			attribute.String("stage.id", stage.ID()),
			attribute.String("stage.name", stage.Name()),
		),
	)
}

// endStage records the outcome of a stage and ends its span
func (t *Telemetry) endStage(ctx context.Context, span trace.Span, stage Stage, duration time.Duration, err error) {
	status := "completed"
	if err != nil {
		status = "failed"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	attrs := metric.WithAttributes(
		attribute.String("stage", stage.ID()),
		attribute.String("status", status),
	)
	t.stagesTotal.Add(ctx, 1, attrs)
	t.stageDuration.Record(ctx, duration.Seconds(), attrs)
	span.End()
}

func (t *Telemetry) recordUnassigned(ctx context.Context, source string, n int) {
	t.unassignedTotal.Add(ctx, int64(n), metric.WithAttributes(attribute.String("source", source)))
}

func (t *Telemetry) recordImputed(ctx context.Context, column string, n int) {
	t.imputedTotal.Add(ctx, int64(n), metric.WithAttributes(attribute.String("column", column)))
}

func (t *Telemetry) recordIndicators(ctx context.Context, source string, n int) {
	t.indicatorsTotal.Add(ctx, int64(n), metric.WithAttributes(attribute.String("source", source)))
}

func (t *Telemetry) recordEmptyDropped(ctx context.Context, column string) {
	t.emptyDroppedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("column", column)))
}
