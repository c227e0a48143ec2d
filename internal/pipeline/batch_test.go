package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/oonisim/ml-credit-risk/internal/shared/testutil"
	"github.com/oonisim/ml-credit-risk/internal/table"
	"github.com/oonisim/ml-credit-risk/internal/transform"
)

func TestRunAll(t *testing.T) {
	p, _ := newTestPipeline(t, CreditRiskDefaults(), WithConcurrency(2))
	records := testutil.GermanCreditRecords()

	inputs := []Input{
		{Name: "train", Table: testutil.GermanCreditTable(t, records[:5]), Roles: CreditRiskRoles()},
		{Name: "score", Table: testutil.GermanCreditTable(t, records[5:]), Roles: CreditRiskRoles()},
		{Name: "all", Table: testutil.GermanCredit(t), Roles: CreditRiskRoles()},
	}

	results, err := RunAll(context.Background(), p, inputs...)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, 5, results[0].Table.Rows())
	assert.Equal(t, 3, results[1].Table.Rows())
	assert.Equal(t, 8, results[2].Table.Rows())

	ids := map[string]bool{}
	for _, r := range results {
		ids[r.RunID] = true
	}
	assert.Len(t, ids, 3)
}

func TestRunAllReturnsFirstError(t *testing.T) {
	p, _ := newTestPipeline(t, CreditRiskDefaults())
	broken, err := testutil.GermanCredit(t).Drop("Saving accounts")
	require.NoError(t, err)

	_, err = RunAll(context.Background(), p,
		Input{Name: "good", Table: testutil.GermanCredit(t), Roles: CreditRiskRoles()},
		Input{Name: "broken", Table: broken, Roles: CreditRiskRoles()},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `input "broken"`)
	assert.True(t, errors.Is(err, transform.ErrColumnNotFound))
}

func TestManifestRoundTrip(t *testing.T) {
	p, _ := newTestPipeline(t, scenarioConfig())
	res, err := p.Run(context.Background(), scenarioTable(t),
		transform.MustRoles([]string{"Age", "Credit amount"}, []string{"Saving accounts"}))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "manifest.json")
	require.NoError(t, res.Manifest.SaveToFile(path))

	loaded, err := LoadManifestFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, res.RunID, loaded.RunID)
	assert.Equal(t, StatusCompleted, loaded.Status)
	assert.Equal(t, res.Manifest.StageIDs(), loaded.StageIDs())
	assert.Equal(t, res.Table.Names(), loaded.OutputColumns)
	assert.Equal(t, 2, loaded.InputRows)

	stage, ok := loaded.Stage("discretize:Generation")
	require.True(t, ok)
	assert.Equal(t, StatusCompleted, stage.Status)
	assert.Equal(t, float64(0), stage.Metadata["unassigned"])
	assert.True(t, loaded.IsStageCompleted("encode"))
}

func TestManifestRecordsFailure(t *testing.T) {
	m := NewRunManifest("run-1", 3, []string{"a"})
	m.RecordStageStart("select", "Column Selection")
	m.RecordStageFailure("select", transform.NewColumnNotFoundError("select", "b"))

	assert.Equal(t, StatusFailed, m.GetStatus())
	assert.False(t, m.IsStageCompleted("select"))
	stage, ok := m.Stage("select")
	require.True(t, ok)
	assert.Contains(t, stage.Error, "column not found")
	assert.Contains(t, m.Error, "stage select failed")
}

func TestTelemetry(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	tel, err := NewTelemetry(tp.Tracer(TracerName), mp.Meter(MeterName))
	require.NoError(t, err)

	p, _ := newTestPipeline(t, scenarioConfig(), WithTelemetry(tel))
	tbl := table.MustNew(
		table.Column{Name: "Age", Values: []table.Value{table.Number(17), table.Number(30)}},
		table.Column{Name: "Credit amount", Values: []table.Value{table.Number(100), table.Number(200)}},
		table.Column{Name: "Saving accounts", Values: []table.Value{table.Missing(), table.Text("rich")}},
	)
	_, err = p.Run(context.Background(), tbl, transform.MustRoles([]string{"Age", "Credit amount"}, []string{"Saving accounts"}))
	require.NoError(t, err)

	spans := recorder.Ended()
	names := make([]string, len(spans))
	for i, s := range spans {
		names[i] = s.Name()
	}
	assert.Contains(t, names, "pipeline.run")
	assert.Contains(t, names, "pipeline.stage.encode")
	assert.Len(t, spans, 8)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if data, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range data.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(1), sums["feature_pipeline_runs_total"])
	assert.Equal(t, int64(7), sums["feature_pipeline_stages_total"])
	assert.Equal(t, int64(1), sums["feature_pipeline_unassigned_values_total"])
	assert.Equal(t, int64(1), sums["feature_pipeline_imputed_values_total"])
	assert.Equal(t, int64(2), sums["feature_pipeline_rows_total"])
}
