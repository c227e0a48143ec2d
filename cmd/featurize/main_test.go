package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oonisim/ml-credit-risk/internal/config"
	"github.com/oonisim/ml-credit-risk/internal/exporter"
	"github.com/oonisim/ml-credit-risk/internal/pipeline"
	"github.com/oonisim/ml-credit-risk/internal/shared/testutil"
	"github.com/oonisim/ml-credit-risk/internal/transform"
)

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{"-in", "a.csv", "-in", "b.xlsx", "-out", "out", "-manifest"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, inputList{"a.csv", "b.xlsx"}, opts.inputs)
	assert.Equal(t, "out", opts.outDir)
	assert.True(t, opts.manifest)
	assert.False(t, opts.postgres)

	_, err = parseFlags(nil, io.Discard)
	assert.Error(t, err)

	_, err = parseFlags([]string{"-unknown"}, io.Discard)
	assert.Error(t, err)
}

func writeInput(t *testing.T, dir, name string) string {
	t.Helper()
	return writeRecords(t, dir, name, testutil.GermanCreditRecords())
}

func writeRecords(t *testing.T, dir, name string, records []testutil.CreditRecord) string {
	t.Helper()
	path := filepath.Join(dir, name)
	tbl := testutil.GermanCreditTable(t, records)
	require.NoError(t, exporter.NewCSVWriter(nil).WriteTableFile(path, tbl, exporter.DefaultWriteOptions()))
	return path
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "features")
	opts := &options{
		inputs:   inputList{writeInput(t, dir, "train.csv"), writeInput(t, dir, "score.csv")},
		outDir:   outDir,
		manifest: true,
	}
	logger, logs := testutil.NewTestLogger(t)

	require.NoError(t, run(context.Background(), opts, config.Default(), logger))

	for _, name := range []string{"train", "score"} {
		f, err := os.Open(filepath.Join(outDir, name+"_features.csv"))
		require.NoError(t, err)
		records, err := csv.NewReader(f).ReadAll()
		f.Close()
		require.NoError(t, err)
		assert.Len(t, records, 9, name)
		assert.NotContains(t, records[0], "Unnamed: 0")
		assert.Contains(t, records[0], "risk")

		data, err := os.ReadFile(filepath.Join(outDir, name+"_run.json"))
		require.NoError(t, err)
		var summary struct {
			RunID string `json:"run_id"`
			Rows  int    `json:"rows"`
		}
		require.NoError(t, json.Unmarshal(data, &summary))
		assert.NotEmpty(t, summary.RunID)
		assert.Equal(t, 8, summary.Rows)
	}
	assert.Len(t, logs.Find("features_written"), 2)
}

func TestRun_Errors(t *testing.T) {
	dir := t.TempDir()
	logger, _ := testutil.NewTestLogger(t)

	t.Run("duplicate output names", func(t *testing.T) {
		other := filepath.Join(dir, "other")
		require.NoError(t, os.MkdirAll(other, 0o755))
		opts := &options{
			inputs: inputList{writeInput(t, dir, "train.csv"), writeInput(t, other, "train.csv")},
			outDir: filepath.Join(dir, "out"),
		}
		err := run(context.Background(), opts, config.Default(), logger)
		assert.ErrorContains(t, err, "same outputs")
	})

	t.Run("category unseen in the first input", func(t *testing.T) {
		records := testutil.GermanCreditRecords()[:2]
		records[1].Purpose = "vacation"
		outDir := filepath.Join(dir, "postgres-out")
		opts := &options{
			inputs:   inputList{writeInput(t, dir, "first.csv"), writeRecords(t, dir, "second.csv", records)},
			outDir:   outDir,
			postgres: true,
		}
		err := run(context.Background(), opts, config.Default(), logger)
		assert.ErrorContains(t, err, "second cannot be appended to first")
		assert.ErrorIs(t, err, transform.ErrColumnNotFound)
		assert.NoDirExists(t, outDir)
	})

	t.Run("missing pipeline file", func(t *testing.T) {
		cfg := config.Default()
		cfg.Pipeline.File = filepath.Join(dir, "missing.yaml")
		opts := &options{inputs: inputList{writeInput(t, dir, "a.csv")}, outDir: dir}
		assert.Error(t, run(context.Background(), opts, cfg, logger))
	})

	t.Run("missing input", func(t *testing.T) {
		opts := &options{inputs: inputList{filepath.Join(dir, "missing.csv")}, outDir: dir}
		assert.ErrorIs(t, run(context.Background(), opts, config.Default(), logger), os.ErrNotExist)
	})
}

func TestConformResults(t *testing.T) {
	p, err := pipeline.New(pipeline.CreditRiskDefaults())
	require.NoError(t, err)
	roles := pipeline.CreditRiskRoles()
	inputs := []pipeline.Input{
		{Name: "train", Table: testutil.GermanCredit(t), Roles: roles},
		{Name: "score", Table: testutil.GermanCreditTable(t, testutil.GermanCreditRecords()[:1]), Roles: roles},
	}
	results, err := pipeline.RunAll(context.Background(), p, inputs...)
	require.NoError(t, err)
	require.NotEqual(t, results[0].Table.Names(), results[1].Table.Names())

	require.NoError(t, conformResults(inputs, results))
	assert.Equal(t, results[0].Table.Names(), results[1].Table.Names())
	assert.Equal(t, 1, results[1].Table.Rows())
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "german_credit_data", baseName("data/german_credit_data.csv"))
	assert.Equal(t, "score", baseName("score.xlsx"))
}
