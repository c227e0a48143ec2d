package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oonisim/ml-credit-risk/internal/config"
	"github.com/oonisim/ml-credit-risk/internal/shared/testutil"
	"github.com/oonisim/ml-credit-risk/internal/table"
)

// fakeTx records what a write sends. Methods a write never calls stay on the
// nil embedded interface.
type fakeTx struct {
	pgx.Tx
	execs      []string
	batches    []int
	rows       [][]any
	target     pgx.Identifier
	columns    []string
	copyErr    error
	existing   []string
	queries    int
	committed  bool
	rolledBack bool
}

func (f *fakeTx) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, sql)
	return pgconn.NewCommandTag("OK"), nil
}

func (f *fakeTx) Query(context.Context, string, ...any) (pgx.Rows, error) {
	f.queries++
	return &fakeRows{names: f.existing, i: -1}, nil
}

// fakeRows yields one text column per row
type fakeRows struct {
	pgx.Rows
	names []string
	i     int
}

func (r *fakeRows) Next() bool {
	r.i++
	return r.i < len(r.names)
}

func (r *fakeRows) Scan(dest ...any) error {
	*dest[0].(*string) = r.names[r.i]
	return nil
}

func (r *fakeRows) Close() {}
func (r *fakeRows) Err() error { return nil }

func (f *fakeTx) CopyFrom(_ context.Context, name pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error) {
	if f.copyErr != nil {
		return 0, f.copyErr
	}
	f.target, f.columns = name, columns

	n := 0
	for src.Next() {
		values, err := src.Values()
		if err != nil {
			return 0, err
		}
		f.rows = append(f.rows, values)
		n++
	}
	f.batches = append(f.batches, n)
	return int64(n), src.Err()
}

func (f *fakeTx) Commit(context.Context) error {
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(context.Context) error {
	f.rolledBack = true
	if f.committed {
		return pgx.ErrTxClosed
	}
	return nil
}

type fakeDB struct {
	tx  *fakeTx
	err error
}

func (d *fakeDB) Begin(context.Context) (pgx.Tx, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.tx, nil
}

func TestWrite_Batches(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	tx := &fakeTx{}
	s := New(&fakeDB{tx: tx}, logger)
	tbl := testutil.GermanCredit(t)

	n, err := s.Write(context.Background(), tbl, Options{Schema: "credit", Table: "credit_risk", Mode: ModeReplace, BatchSize: 3})
	require.NoError(t, err)

	assert.EqualValues(t, 8, n)
	assert.Equal(t, []int{3, 3, 2}, tx.batches)
	assert.Equal(t, pgx.Identifier{"credit", "credit_risk"}, tx.target)
	assert.Equal(t, tbl.Names(), tx.columns)
	assert.True(t, tx.committed)
	assert.False(t, tx.rolledBack)

	require.Len(t, tx.execs, 2)
	assert.Equal(t, `DROP TABLE IF EXISTS "credit"."credit_risk"`, tx.execs[0])

	// Age, Sex, Saving accounts of the first applicant
	first := tx.rows[0]
	assert.Equal(t, float64(67), first[1])
	assert.Equal(t, "male", first[2])
	assert.Nil(t, first[5])

	assert.Len(t, logs.Find("table_stored"), 1)
	assert.Len(t, logs.Find("batch_copied"), 3)
}

func TestWrite_AppendChecksExistingColumns(t *testing.T) {
	tbl := table.MustNew(
		table.Column{Name: "duration", Values: []table.Value{table.Number(6)}},
		table.Column{Name: "purpose_car", Values: []table.Value{table.Number(1)}},
	)
	opts := Options{Schema: "credit", Table: "credit_risk", Mode: ModeAppend, BatchSize: 10}

	t.Run("new table", func(t *testing.T) {
		tx := &fakeTx{}
		_, err := New(&fakeDB{tx: tx}, nil).Write(context.Background(), tbl, opts)
		require.NoError(t, err)
		assert.Equal(t, 1, tx.queries)
		assert.True(t, tx.committed)
	})

	t.Run("same columns in another order", func(t *testing.T) {
		tx := &fakeTx{existing: []string{"purpose_car", "duration"}}
		n, err := New(&fakeDB{tx: tx}, nil).Write(context.Background(), tbl, opts)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)
		assert.Equal(t, []string{"duration", "purpose_car"}, tx.columns)
	})

	t.Run("mismatched columns", func(t *testing.T) {
		logger, logs := testutil.NewTestLogger(t)
		tx := &fakeTx{existing: []string{"duration", "purpose_vacation"}}
		_, err := New(&fakeDB{tx: tx}, logger).Write(context.Background(), tbl, opts)
		assert.ErrorIs(t, err, ErrSchemaMismatch)
		assert.ErrorContains(t, err, "purpose_vacation")
		assert.ErrorContains(t, err, "purpose_car")
		assert.Empty(t, tx.rows)
		assert.Empty(t, tx.execs)
		assert.True(t, tx.rolledBack)
		assert.False(t, tx.committed)
		assert.Len(t, logs.Find("schema_mismatch"), 1)
	})

	t.Run("replace skips the check", func(t *testing.T) {
		tx := &fakeTx{existing: []string{"other"}}
		replace := opts
		replace.Mode = ModeReplace
		_, err := New(&fakeDB{tx: tx}, nil).Write(context.Background(), tbl, replace)
		require.NoError(t, err)
		assert.Zero(t, tx.queries)
	})
}

func TestWrite_Errors(t *testing.T) {
	tbl := testutil.GermanCredit(t)
	opts := Options{Table: "credit_risk", Mode: ModeAppend, BatchSize: 5}
	copyErr := errors.New("connection reset")

	t.Run("copy failure rolls back", func(t *testing.T) {
		tx := &fakeTx{copyErr: copyErr}
		_, err := New(&fakeDB{tx: tx}, nil).Write(context.Background(), tbl, opts)
		assert.ErrorIs(t, err, copyErr)
		assert.True(t, tx.rolledBack)
		assert.False(t, tx.committed)
	})

	t.Run("begin failure", func(t *testing.T) {
		_, err := New(&fakeDB{err: copyErr}, nil).Write(context.Background(), tbl, opts)
		assert.ErrorIs(t, err, copyErr)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		tx := &fakeTx{}
		_, err := New(&fakeDB{tx: tx}, nil).Write(ctx, tbl, opts)
		assert.ErrorIs(t, err, context.Canceled)
		assert.True(t, tx.rolledBack)
	})

	t.Run("invalid mode", func(t *testing.T) {
		_, err := New(&fakeDB{tx: &fakeTx{}}, nil).Write(context.Background(), tbl, Options{Table: "t", Mode: "upsert"})
		assert.ErrorIs(t, err, ErrInvalidMode)
	})

	t.Run("empty table", func(t *testing.T) {
		_, err := New(&fakeDB{tx: &fakeTx{}}, nil).Write(context.Background(), table.MustNew(), opts)
		assert.ErrorIs(t, err, ErrEmptyTable)
	})
}

func TestStatements(t *testing.T) {
	tbl := table.MustNew(
		table.Column{Name: "Age", Values: []table.Value{table.Number(30), table.Missing()}},
		table.Column{Name: "Saving accounts", Values: []table.Value{table.Text("little"), table.Missing()}},
		table.Column{Name: "is_good", Values: []table.Value{table.Bool(true), table.Bool(false)}},
	)

	assert.Equal(t, []string{
		`CREATE TABLE IF NOT EXISTS "credit_risk" ("Age" double precision, "Saving accounts" text, "is_good" boolean)`,
	}, Statements(tbl, Options{Table: "credit_risk", Mode: ModeAppend}))

	replace := Statements(tbl, Options{Schema: "credit", Table: "credit_risk", Mode: ModeReplace})
	require.Len(t, replace, 2)
	assert.Equal(t, `DROP TABLE IF EXISTS "credit"."credit_risk"`, replace[0])
}

func TestColumnType(t *testing.T) {
	tests := []struct {
		name   string
		values []table.Value
		want   string
	}{
		{name: "numbers", values: []table.Value{table.Number(1), table.Missing()}, want: "double precision"},
		{name: "all missing", values: []table.Value{table.Missing()}, want: "double precision"},
		{name: "bools", values: []table.Value{table.Bool(true)}, want: "boolean"},
		{name: "text", values: []table.Value{table.Text("own")}, want: "text"},
		{name: "mixed", values: []table.Value{table.Number(1), table.Bool(true)}, want: "text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ColumnType(table.Column{Name: "c", Values: tt.values}))
		})
	}
}

func TestLookupPassword(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".pgpass")
	content := "# feature store\n" +
		"\n" +
		"db.example.com:5432:features:dbadm:exact\n" +
		"*:*:features:dbadm:wildcard\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg := config.PostgresConfig{Host: "db.example.com", Port: 5432, Database: "features", User: "dbadm"}

	password, err := LookupPassword(path, cfg)
	require.NoError(t, err)
	assert.Equal(t, "exact", password)

	cfg.Host = "localhost"
	password, err = LookupPassword(path, cfg)
	require.NoError(t, err)
	assert.Equal(t, "wildcard", password)

	cfg.User = "analyst"
	_, err = LookupPassword(path, cfg)
	assert.ErrorIs(t, err, ErrNoPassword)

	_, err = LookupPassword(filepath.Join(t.TempDir(), "missing"), cfg)
	assert.Error(t, err)
}

func TestConnString(t *testing.T) {
	cfg := config.PostgresConfig{Host: "localhost", Port: 5433, Database: "features", User: "dbadm", SSLMode: "disable"}

	cc, err := pgx.ParseConfig(ConnString(cfg, "p@ss:w/rd"))
	require.NoError(t, err)
	assert.Equal(t, "localhost", cc.Host)
	assert.EqualValues(t, 5433, cc.Port)
	assert.Equal(t, "features", cc.Database)
	assert.Equal(t, "dbadm", cc.User)
	assert.Equal(t, "p@ss:w/rd", cc.Password)
	assert.Nil(t, cc.TLSConfig)
}

func TestOptionsFromConfig(t *testing.T) {
	opts := OptionsFromConfig(config.Default().Postgres)
	assert.Equal(t, Options{Schema: "public", Table: config.DefaultFeatureTable, Mode: ModeReplace, BatchSize: config.DefaultBatchSize}, opts)
}
