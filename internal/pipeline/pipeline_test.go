package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oonisim/ml-credit-risk/internal/shared/testutil"
	"github.com/oonisim/ml-credit-risk/internal/table"
	"github.com/oonisim/ml-credit-risk/internal/transform"
)

func scenarioTable(t *testing.T) *table.Table {
	t.Helper()
	tbl, err := table.New(
		table.Column{Name: "Age", Values: []table.Value{table.Number(20), table.Number(70)}},
		table.Column{Name: "Credit amount", Values: []table.Value{table.Number(3000), table.Number(22000)}},
		table.Column{Name: "Saving accounts", Values: []table.Value{table.Missing(), table.Text("rich")}},
	)
	require.NoError(t, err)
	return tbl
}

func scenarioConfig() Config {
	return Config{
		Bins:   []transform.DiscretizeConfig{GenerationBins(), AmountBins()},
		Impute: transform.ImputeConfig{Columns: []string{"Saving accounts"}},
	}
}

func newTestPipeline(t *testing.T, cfg Config, opts ...Option) (*Pipeline, *testutil.BufferedSlogHandler) {
	t.Helper()
	logger, handler := testutil.NewTestLogger(t)
	p, err := New(cfg, append([]Option{WithLogger(logger)}, opts...)...)
	require.NoError(t, err)
	return p, handler
}

func column(t *testing.T, tbl *table.Table, name string) []float64 {
	t.Helper()
	col, ok := tbl.Column(name)
	require.True(t, ok, "column %q missing from %v", name, tbl.Names())
	out := make([]float64, len(col.Values))
	for i, v := range col.Values {
		f, ok := v.Float()
		require.True(t, ok, "column %q row %d is not numeric", name, i)
		out[i] = f
	}
	return out
}

func TestEndToEndScenario(t *testing.T) {
	p, handler := newTestPipeline(t, scenarioConfig())
	input := scenarioTable(t)
	roles := transform.MustRoles([]string{"Age", "Credit amount"}, []string{"Saving accounts"})

	res, err := p.Run(context.Background(), input, roles)
	require.NoError(t, err)

	out := res.Table
	for _, gone := range []string{"Age", "Credit amount", "Saving accounts", "Generation", "Amount"} {
		assert.False(t, out.Has(gone), "%s should be gone", gone)
	}

	expected := map[string][]float64{
		"saving_accounts_no_inf": {1, 0},
		"saving_accounts_rich":   {0, 1},
		"generation_student":     {1, 0},
		"generation_senior":      {0, 1},
		"amount_<5k":             {1, 0},
		"amount_20k+":            {0, 1},
	}
	for name, want := range expected {
		assert.Equal(t, want, column(t, out, name), name)
	}
	assert.Equal(t, []string{
		"saving_accounts_no_inf", "saving_accounts_rich",
		"generation_student", "generation_senior",
		"amount_<5k", "amount_20k+",
	}, out.Names())

	assert.Equal(t, out.Names(), res.Roles.Numeric())
	assert.Empty(t, res.Roles.Categorical())
	assert.Equal(t, input.Rows(), out.Rows())

	// input untouched
	assert.Equal(t, []string{"Age", "Credit amount", "Saving accounts"}, input.Names())
	v, err := input.Value("Saving accounts", 0)
	require.NoError(t, err)
	assert.True(t, v.IsMissing())
	assert.Equal(t, []string{"Age", "Credit amount"}, roles.Numeric())

	assert.Equal(t, StatusCompleted, res.Manifest.GetStatus())
	assert.Equal(t, []string{
		"select", "discretize:Generation", "discretize:Amount",
		"impute", "encode", "rename", "drop_absorbed",
	}, res.Manifest.StageIDs())
	assert.NotEmpty(t, res.RunID)

	testutil.AssertNoErrors(t, handler)
	testutil.AssertLogged(t, handler, slog.LevelInfo, "pipeline_complete")
	assert.True(t, handler.ContainsAttr("run_id", res.RunID))
}

func TestRoleTableConsistency(t *testing.T) {
	p, _ := newTestPipeline(t, CreditRiskDefaults())
	raw := testutil.GermanCredit(t)

	res, err := p.Run(context.Background(), raw, CreditRiskRoles())
	require.NoError(t, err)

	out := res.Table
	assert.Equal(t, raw.Rows(), out.Rows())

	seen := map[string]bool{}
	for _, name := range append(res.Roles.All(), res.Targets...) {
		assert.True(t, out.Has(name), name)
		assert.False(t, seen[name], "%s listed twice", name)
		seen[name] = true
	}
	assert.Len(t, seen, out.Width())

	assert.Equal(t, []string{"risk"}, res.Targets)
	assert.Equal(t, []string{"duration", "risk"}, out.Names()[:2])
	assert.False(t, out.Has("Age"))
	assert.False(t, out.Has("Credit amount"))

	gen, ok := res.Encodings.Lookup("Generation")
	require.True(t, ok)
	assert.Equal(t, []string{"generation_student", "generation_adult", "generation_senior"}, gen.Columns)

	job, ok := res.Encodings.Lookup("Job")
	require.True(t, ok)
	assert.Equal(t, []string{"job_1", "job_2", "job_3"}, job.Columns)

	sa, ok := res.Encodings.Lookup("Saving accounts")
	require.True(t, ok)
	assert.Equal(t, []string{"saving_accounts_little", "saving_accounts_no_inf", "saving_accounts_quite_rich"}, sa.Columns)

	assert.Equal(t, 2, res.Imputed.Filled["Saving accounts"])
	assert.Equal(t, 3, res.Imputed.Filled["Checking account"])

	// every source yields exactly one indicator per row
	for _, e := range res.Encodings.Encoded {
		for row := 0; row < out.Rows(); row++ {
			sum := 0.0
			for _, name := range e.Columns {
				sum += column(t, out, name)[row]
			}
			assert.Equal(t, 1.0, sum, "%s row %d", e.Source, row)
		}
	}

	m, names, err := res.Matrix()
	require.NoError(t, err)
	rows, cols := m.Dims()
	assert.Equal(t, raw.Rows(), rows)
	assert.Equal(t, len(res.Roles.Numeric()), cols)
	assert.Equal(t, res.Roles.Numeric(), names)
	assert.Equal(t, 6.0, m.At(0, 0)) // duration of the first applicant
}

func TestUnassignedValuesAreReported(t *testing.T) {
	p, handler := newTestPipeline(t, scenarioConfig())
	tbl := table.MustNew(
		table.Column{Name: "Age", Values: []table.Value{table.Number(17), table.Number(30)}},
		table.Column{Name: "Credit amount", Values: []table.Value{table.Number(-1), table.Number(math.NaN())}},
		table.Column{Name: "Saving accounts", Values: []table.Value{table.Text("little"), table.Text("rich")}},
	)

	res, err := p.Run(context.Background(), tbl, transform.MustRoles([]string{"Age", "Credit amount"}, []string{"Saving accounts"}))
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"Generation": 1, "Amount": 2}, res.Unassigned())
	assert.Equal(t, []string{"generation_young"}, mustLookup(t, res, "Generation").Columns)
	assert.Equal(t, []float64{0, 1}, column(t, res.Table, "generation_young"))

	// the amount column has no assigned values at all
	_, ok := res.Encodings.Lookup("Amount")
	assert.False(t, ok)

	assert.Len(t, handler.Find("discretize_unassigned"), 2)
	testutil.AssertLogged(t, handler, slog.LevelWarn, "discretize_unassigned")
}

func TestDefaultsScoreOutOfRangeApplicant(t *testing.T) {
	p, handler := newTestPipeline(t, CreditRiskDefaults())
	records := testutil.GermanCreditRecords()[:1]
	records[0].Age = 17
	records[0].CreditAmount = -100

	res, err := p.Run(context.Background(), testutil.GermanCreditTable(t, records), CreditRiskRoles())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Table.Rows())
	assert.Equal(t, map[string]int{"Generation": 1, "Amount": 1}, res.Unassigned())
	assert.ElementsMatch(t, []string{"Generation", "Amount"}, res.Encodings.Dropped)
	for _, name := range res.Table.Names() {
		assert.NotContains(t, name, "generation_")
		assert.NotContains(t, name, "amount_")
	}
	assert.Len(t, handler.Find("encode_empty_dropped"), 2)
	assert.Len(t, handler.Find("discretize_unassigned"), 2)
}

func mustLookup(t *testing.T, res *Result, source string) transform.EncodedColumn {
	t.Helper()
	e, ok := res.Encodings.Lookup(source)
	require.True(t, ok, source)
	return e
}

func TestErrorsAbortTheRun(t *testing.T) {
	roles := transform.MustRoles([]string{"Age", "Credit amount"}, []string{"Saving accounts"})

	tests := []struct {
		name    string
		cfg     func() Config
		table   func(t *testing.T) *table.Table
		roles   transform.Roles
		stage   string
		wantErr error
	}{
		{
			name:    "role names a missing column",
			cfg:     scenarioConfig,
			table:   scenarioTable,
			roles:   transform.MustRoles([]string{"Age", "Credit amount", "Duration"}, []string{"Saving accounts"}),
			stage:   StageIDSelect,
			wantErr: transform.ErrColumnNotFound,
		},
		{
			name: "impute column missing",
			cfg: func() Config {
				c := scenarioConfig()
				c.Impute.Columns = []string{"Checking account"}
				return c
			},
			table:   scenarioTable,
			roles:   roles,
			stage:   StageIDImpute,
			wantErr: transform.ErrColumnNotFound,
		},
		{
			name: "rename collides",
			cfg: func() Config {
				c := scenarioConfig()
				c.Rename = map[string]string{"saving_accounts_rich": "generation_student"}
				return c
			},
			table:   scenarioTable,
			roles:   roles,
			stage:   StageIDRename,
			wantErr: transform.ErrDuplicateColumn,
		},
		{
			name: "empty categorical column",
			cfg: func() Config {
				c := scenarioConfig()
				c.Impute.Columns = nil
				return c
			},
			table: func(t *testing.T) *table.Table {
				return table.MustNew(
					table.Column{Name: "Age", Values: []table.Value{table.Number(20)}},
					table.Column{Name: "Credit amount", Values: []table.Value{table.Number(100)}},
					table.Column{Name: "Saving accounts", Values: []table.Value{table.Missing()}},
				)
			},
			roles:   roles,
			stage:   StageIDEncode,
			wantErr: transform.ErrEmptyCategoricalColumn,
		},
		{
			name: "discretize a categorical column",
			cfg: func() Config {
				return Config{Bins: []transform.DiscretizeConfig{{
					Source: "Saving accounts",
					Target: "Band",
					Bins:   transform.BinSpec{Boundaries: []float64{0, 1}, Labels: []string{"x"}},
				}}}
			},
			table:   scenarioTable,
			roles:   roles,
			stage:   "discretize:Band",
			wantErr: transform.ErrRoleListInvariant,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, handler := newTestPipeline(t, tt.cfg())

			res, err := p.Run(context.Background(), tt.table(t), tt.roles)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)

			var sErr *StageError
			require.True(t, errors.As(err, &sErr))
			assert.Equal(t, tt.stage, sErr.Stage)
			assert.Equal(t, tt.stage, FailedStage(err))

			var tErr *transform.Error
			require.True(t, errors.As(err, &tErr))

			testutil.AssertLogged(t, handler, slog.LevelError, "stage_error")
		})
	}
}

func TestEmptyColumnDropPolicy(t *testing.T) {
	cfg := scenarioConfig()
	cfg.Impute.Columns = nil
	cfg.Encode.EmptyPolicy = transform.EmptyDrop
	p, handler := newTestPipeline(t, cfg)

	tbl := table.MustNew(
		table.Column{Name: "Age", Values: []table.Value{table.Number(20)}},
		table.Column{Name: "Credit amount", Values: []table.Value{table.Number(100)}},
		table.Column{Name: "Saving accounts", Values: []table.Value{table.Missing()}},
	)
	res, err := p.Run(context.Background(), tbl, transform.MustRoles([]string{"Age", "Credit amount"}, []string{"Saving accounts"}))
	require.NoError(t, err)

	assert.Equal(t, []string{"Saving accounts"}, res.Encodings.Dropped)
	assert.Equal(t, []string{"generation_student", "amount_<5k"}, res.Table.Names())
	testutil.AssertLogged(t, handler, slog.LevelWarn, "encode_empty_dropped")
}

func TestTargetsMustNotHaveRoles(t *testing.T) {
	cfg := scenarioConfig()
	cfg.Targets = []string{"Saving accounts"}
	p, _ := newTestPipeline(t, cfg)

	_, err := p.Run(context.Background(), scenarioTable(t),
		transform.MustRoles([]string{"Age", "Credit amount"}, []string{"Saving accounts"}))
	assert.True(t, errors.Is(err, transform.ErrRoleListInvariant))
}

func TestRunRejectsNilTable(t *testing.T) {
	p, _ := newTestPipeline(t, scenarioConfig())
	_, err := p.Run(context.Background(), nil, transform.Roles{})
	assert.ErrorIs(t, err, ErrNilTable)
}

func TestCancelledContext(t *testing.T) {
	p, _ := newTestPipeline(t, scenarioConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx, scenarioTable(t), transform.MustRoles([]string{"Age", "Credit amount"}, []string{"Saving accounts"}))
	require.Error(t, err)
	assert.True(t, IsCancelled(err))
	assert.Equal(t, StageIDSelect, FailedStage(err))
}

func TestInvariantCheckCatchesBadStage(t *testing.T) {
	p, _ := newTestPipeline(t, Config{})
	p.stages = []Stage{NewSelectStage(), leakyStage{}}

	_, err := p.Run(context.Background(), scenarioTable(t),
		transform.MustRoles([]string{"Age", "Credit amount"}, []string{"Saving accounts"}))
	assert.True(t, errors.Is(err, transform.ErrRoleListInvariant))
	assert.Equal(t, "leaky", FailedStage(err))

	unchecked, _ := newTestPipeline(t, Config{}, WithInvariantChecks(false))
	unchecked.stages = []Stage{NewSelectStage(), leakyStage{}}
	_, err = unchecked.Run(context.Background(), scenarioTable(t),
		transform.MustRoles([]string{"Age", "Credit amount"}, []string{"Saving accounts"}))
	assert.NoError(t, err)
}

// leakyStage adds a column without giving it a role
type leakyStage struct{}

func (leakyStage) ID() string   { return "leaky" }
func (leakyStage) Name() string { return "Leaky" }

func (leakyStage) Apply(_ context.Context, s State) (State, error) {
	values := make([]table.Value, s.Table.Rows())
	for i := range values {
		values[i] = table.Number(0)
	}
	t, err := s.Table.WithColumns(table.Column{Name: "orphan", Values: values})
	if err != nil {
		return State{}, err
	}
	s.Table = t
	return s, nil
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"bad boundaries", func(c *Config) { c.Bins[0].Bins.Boundaries = []float64{5, 1} }, transform.ErrInvalidBoundary},
		{"duplicate bin target", func(c *Config) { c.Bins[1].Target = c.Bins[0].Target }, transform.ErrDuplicateColumn},
		{"non-injective rename", func(c *Config) { c.Rename = map[string]string{"a": "x", "b": "x"} }, transform.ErrDuplicateColumn},
		{"duplicate target", func(c *Config) { c.Targets = []string{"Risk", "Risk"} }, transform.ErrDuplicateColumn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := CreditRiskDefaults()
			tt.mutate(&cfg)
			_, err := New(cfg)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}

	t.Run("missing bin source", func(t *testing.T) {
		cfg := CreditRiskDefaults()
		cfg.Bins[0].Source = ""
		_, err := New(cfg)
		assert.Error(t, err)
	})

	t.Run("unknown empty policy", func(t *testing.T) {
		cfg := CreditRiskDefaults()
		cfg.Encode.EmptyPolicy = "ignore"
		_, err := New(cfg)
		assert.Error(t, err)
	})
}

func TestConfigIsCopied(t *testing.T) {
	cfg := CreditRiskDefaults()
	p, _ := newTestPipeline(t, cfg)

	cfg.Bins[0].Bins.Labels[0] = "changed"
	cfg.Rename["Duration"] = "changed"

	got := p.Config()
	assert.Equal(t, "Student", got.Bins[0].Bins.Labels[0])
	assert.Equal(t, "duration", got.Rename["Duration"])
}

func TestConformTo(t *testing.T) {
	p, _ := newTestPipeline(t, CreditRiskDefaults())
	ctx := context.Background()

	train, err := p.Run(ctx, testutil.GermanCredit(t), CreditRiskRoles())
	require.NoError(t, err)
	score, err := p.Run(ctx, testutil.GermanCreditTable(t, testutil.GermanCreditRecords()[:1]), CreditRiskRoles())
	require.NoError(t, err)
	require.False(t, score.Table.Has("generation_student"))

	t.Run("missing indicators are filled with zero", func(t *testing.T) {
		out, err := score.ConformTo(train)
		require.NoError(t, err)
		assert.Equal(t, train.Table.Names(), out.Table.Names())
		assert.Equal(t, train.Roles, out.Roles)
		assert.Equal(t, []float64{0}, column(t, out.Table, "generation_student"))
		assert.Equal(t, []float64{1}, column(t, out.Table, "generation_senior"))
		assert.Equal(t, []float64{6}, column(t, out.Table, "duration"))
		assert.Equal(t, score.RunID, out.RunID)
		assert.False(t, score.Table.Has("generation_student"), "input result unchanged")
	})

	t.Run("unseen category is rejected", func(t *testing.T) {
		records := testutil.GermanCreditRecords()[:1]
		records[0].Purpose = "vacation"
		other, err := p.Run(ctx, testutil.GermanCreditTable(t, records), CreditRiskRoles())
		require.NoError(t, err)

		_, err = other.ConformTo(train)
		assert.ErrorIs(t, err, transform.ErrColumnNotFound)
		assert.ErrorContains(t, err, "purpose_vacation")
	})

	t.Run("missing feature column is rejected", func(t *testing.T) {
		dropped := *score
		dropped.Table, err = score.Table.Drop("duration")
		require.NoError(t, err)

		_, err = dropped.ConformTo(train)
		assert.ErrorIs(t, err, transform.ErrColumnNotFound)
		assert.ErrorContains(t, err, `"duration"`)
	})
}
