// Command featurize transforms raw credit applicant files into numeric
// feature tables.
//
//	featurize -in data/train.csv -in data/score.xlsx -out data/features -manifest
//
// Every input is run through the same pipeline concurrently. For an input
// named train.csv it writes train_features.csv and, with -manifest,
// train_run.json. With -postgres the tables are also loaded into the
// configured PostgreSQL table; inputs after the first are appended after
// being conformed to the first input's columns, and nothing is written when
// one cannot be.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/oonisim/ml-credit-risk/internal/config"
	"github.com/oonisim/ml-credit-risk/internal/exporter"
	"github.com/oonisim/ml-credit-risk/internal/infrastructure"
	"github.com/oonisim/ml-credit-risk/internal/loader"
	"github.com/oonisim/ml-credit-risk/internal/pipeline"
	"github.com/oonisim/ml-credit-risk/internal/store"
)

type inputList []string

func (l *inputList) String() string {
	return strings.Join(*l, ",")
}

func (l *inputList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

type options struct {
	configPath   string
	pipelinePath string
	inputs       inputList
	outDir       string
	manifest     bool
	postgres     bool
	keepIndex    bool
}

func parseFlags(args []string, output io.Writer) (*options, error) {
	opts := &options{}

	fs := flag.NewFlagSet("featurize", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&opts.configPath, "config", "", "config file (defaults to configs/config.yaml when present)")
	fs.StringVar(&opts.pipelinePath, "pipeline", "", "pipeline definition YAML (overrides pipeline.file)")
	fs.Var(&opts.inputs, "in", "input .csv or .xlsx file; repeat for several inputs")
	fs.StringVar(&opts.outDir, "out", "data/features", "output directory")
	fs.BoolVar(&opts.manifest, "manifest", false, "write the run summary as JSON next to each table")
	fs.BoolVar(&opts.postgres, "postgres", false, "load the transformed tables into PostgreSQL")
	fs.BoolVar(&opts.keepIndex, "keep-index", false, "keep a leading unnamed index column")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if len(opts.inputs) == 0 {
		fs.Usage()
		return nil, errors.New("at least one -in file is required")
	}
	return opts, nil
}

func main() {
	os.Exit(realMain(os.Args[1:]))
}

func realMain(args []string) int {
	opts, err := parseFlags(args, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		slog.Error("invalid arguments", slog.String("error", err.Error()))
		return 2
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		return 1
	}
	if opts.pipelinePath != "" {
		cfg.Pipeline.File = opts.pipelinePath
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("failed to initialize logger, using default", slog.String("error", err.Error()))
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	// Scrape-based exporters have nothing to serve a one-shot command
	cfg.Telemetry.MetricExporter = "none"
	providers, err := infrastructure.InitializeOTel(infrastructure.NewOTelConfig(cfg.Telemetry), logger)
	if err != nil {
		logger.Error("failed to initialize telemetry", slog.String("error", err.Error()))
		return 1
	}
	defer func() {
		if err := providers.Shutdown(context.Background()); err != nil {
			logger.Warn("telemetry_shutdown_failed", slog.String("error", err.Error()))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(infrastructure.EnsureTraceID(ctx), opts, cfg, logger); err != nil {
		infrastructure.WithError(logger, err).Error("featurize_failed")
		return 1
	}
	return 0
}

// run loads every input, transforms them and writes the outputs
func run(ctx context.Context, opts *options, cfg *config.Config, logger *slog.Logger) error {
	def, err := config.LoadPipelineFile(cfg.Pipeline.File)
	if err != nil {
		return err
	}
	roles, err := def.Roles.Roles()
	if err != nil {
		return err
	}

	p, err := pipeline.New(def.ToConfig(),
		pipeline.WithLogger(logger),
		pipeline.WithConcurrency(cfg.Pipeline.Workers),
	)
	if err != nil {
		return err
	}

	loadOpts := loader.DefaultOptions()
	loadOpts.DropIndexColumn = !opts.keepIndex
	l := loader.NewLoader(loadOpts, logger)

	inputs := make([]pipeline.Input, 0, len(opts.inputs))
	seen := make(map[string]string, len(opts.inputs))
	for _, path := range opts.inputs {
		name := baseName(path)
		if prev, dup := seen[name]; dup {
			return fmt.Errorf("inputs %s and %s would write the same outputs", prev, path)
		}
		seen[name] = path

		t, err := l.LoadFile(path)
		if err != nil {
			return err
		}
		inputs = append(inputs, pipeline.Input{Name: name, Table: t, Roles: roles})
	}

	results, err := pipeline.RunAll(ctx, p, inputs...)
	if err != nil {
		return err
	}
	if opts.postgres {
		if err := conformResults(inputs, results); err != nil {
			return err
		}
	}

	w := exporter.NewCSVWriter(logger)
	for i, res := range results {
		name := inputs[i].Name
		if err := w.WriteTableFile(filepath.Join(opts.outDir, name+"_features.csv"), res.Table, exporter.DefaultWriteOptions()); err != nil {
			return err
		}
		if opts.manifest {
			if err := exporter.WriteSummaryFile(filepath.Join(opts.outDir, name+"_run.json"), res); err != nil {
				return err
			}
		}
		logger.InfoContext(ctx, "features_written",
			slog.String("input", name),
			slog.String("run_id", res.RunID),
			slog.Int("rows", res.Table.Rows()),
			slog.Int("columns", res.Table.Width()))
	}

	if opts.postgres {
		return loadPostgres(ctx, cfg.Postgres, results, logger)
	}
	return nil
}

func loadPostgres(ctx context.Context, cfg config.PostgresConfig, results []*pipeline.Result, logger *slog.Logger) error {
	conn, err := store.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close(context.Background())

	s := store.New(conn, logger)
	opts := store.OptionsFromConfig(cfg)
	for i, res := range results {
		if i > 0 {
			opts.Mode = store.ModeAppend
		}
		if _, err := s.Write(ctx, res.Table, opts); err != nil {
			return err
		}
	}
	return nil
}

// conformResults gives every result the columns of the first so they can
// share one table
func conformResults(inputs []pipeline.Input, results []*pipeline.Result) error {
	for i := 1; i < len(results); i++ {
		conformed, err := results[i].ConformTo(results[0])
		if err != nil {
			return fmt.Errorf("input %s cannot be appended to %s: %w", inputs[i].Name, inputs[0].Name, err)
		}
		results[i] = conformed
	}
	return nil
}

func baseName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
