package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/oonisim/ml-credit-risk/internal/table"
	"github.com/oonisim/ml-credit-risk/internal/transform"
)

// Pipeline runs the feature stages in a fixed order.
// A Pipeline holds no per-run state and is safe for concurrent use.
type Pipeline struct {
	cfg             Config
	stages          []Stage
	logger          *slog.Logger
	telemetry       *Telemetry
	checkInvariants bool
	workers         int
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithLogger sets the logger; nil means slog.Default()
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithTelemetry sets the OpenTelemetry instruments
func WithTelemetry(t *Telemetry) Option {
	return func(p *Pipeline) {
		if t != nil {
			p.telemetry = t
		}
	}
}

// WithInvariantChecks turns the role/table consistency check between stages on or off.
// Checks are on by default.
func WithInvariantChecks(enabled bool) Option {
	return func(p *Pipeline) {
		p.checkInvariants = enabled
	}
}

// WithConcurrency limits how many inputs RunAll transforms at once; 0 means no limit
func WithConcurrency(workers int) Option {
	return func(p *Pipeline) {
		if workers >= 0 {
			p.workers = workers
		}
	}
}

// New validates cfg and builds its stages
func New(cfg Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.Clone()

	p := &Pipeline{
		cfg:             cfg,
		stages:          BuildStages(cfg),
		logger:          slog.Default(),
		checkInvariants: true,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.telemetry == nil {
		t, err := DefaultTelemetry()
		if err != nil {
			return nil, fmt.Errorf("failed to create telemetry: %w", err)
		}
		p.telemetry = t
	}
	return p, nil
}

// Config returns a copy of the pipeline configuration
func (p *Pipeline) Config() Config {
	return p.cfg.Clone()
}

// StageIDs returns the stage IDs in execution order
func (p *Pipeline) StageIDs() []string {
	ids := make([]string, len(p.stages))
	for i, s := range p.stages {
		ids[i] = s.ID()
	}
	return ids
}

// Run transforms t. roles names the numeric and categorical columns of t.
// On failure Run returns a nil result and a *StageError wrapping the stage's error.
// Neither t nor roles is modified.
func (p *Pipeline) Run(ctx context.Context, t *table.Table, roles transform.Roles) (*Result, error) {
	if t == nil {
		return nil, ErrNilTable
	}

	runID := uuid.New().String()
	start := time.Now()
	manifest := NewRunManifest(runID, t.Rows(), t.Names())

	ctx, span := p.telemetry.startRun(ctx, runID, t.Rows(), len(p.stages))
	p.logRunStart(ctx, runID, t.Rows(), t.Width())

	fail := func(err error) (*Result, error) {
		p.logRunError(ctx, runID, err)
		p.telemetry.endRun(ctx, span, t.Rows(), time.Since(start), err)
		return nil, err
	}

	if err := p.checkInput(roles); err != nil {
		manifest.Fail(err)
		return fail(err)
	}

	state := State{
		Table:   t,
		Roles:   roles,
		Targets: cloneList(p.cfg.Targets),
	}

	for _, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			sErr := &StageError{RunID: runID, Stage: stage.ID(), Err: err}
			manifest.RecordStageFailure(stage.ID(), err)
			return fail(sErr)
		}

		next, err := p.runStage(ctx, runID, stage, state, manifest)
		if err != nil {
			return fail(&StageError{RunID: runID, Stage: stage.ID(), Err: err})
		}
		state = next
	}

	manifest.Complete(state.Table.Names())
	duration := time.Since(start)
	p.logRunComplete(ctx, runID, state.Table.Width(), duration)
	p.telemetry.endRun(ctx, span, t.Rows(), duration, nil)

	return &Result{
		RunID:     runID,
		Table:     state.Table,
		Roles:     state.Roles,
		Targets:   state.Targets,
		Encodings: state.Encodings,
		Bins:      state.Bins,
		Imputed:   state.Imputed,
		Manifest:  manifest,
	}, nil
}

// runStage applies one stage and records it in the manifest, logs and telemetry
func (p *Pipeline) runStage(ctx context.Context, runID string, stage Stage, state State, manifest *RunManifest) (State, error) {
	manifest.RecordStageStart(stage.ID(), stage.Name())
	p.logStageStart(ctx, runID, stage.ID())

	stageCtx, span := p.telemetry.startStage(ctx, runID, stage)
	began := time.Now()

	next, err := stage.Apply(stageCtx, state)
	if err == nil && p.checkInvariants {
		err = next.check(stage.ID())
	}
	duration := time.Since(began)
	p.telemetry.endStage(stageCtx, span, stage, duration, err)

	if err != nil {
		manifest.RecordStageFailure(stage.ID(), err)
		p.logStageError(ctx, runID, stage.ID(), err)
		return State{}, err
	}

	var metadata map[string]interface{}
	if r, ok := stage.(reporter); ok {
		metadata = r.report(state, next)
	}
	manifest.RecordStageCompletion(stage.ID(), next.Table.Width(), metadata)
	p.observe(ctx, runID, stage, next)
	p.logStageComplete(ctx, runID, stage.ID(), next.Table.Width(), duration)
	return next, nil
}

// observe surfaces stage outcomes that are not errors but need attention
func (p *Pipeline) observe(ctx context.Context, runID string, stage Stage, s State) {
	switch stage.(type) {
	case *DiscretizeStage:
		r := s.Bins[len(s.Bins)-1]
		if r.Unassigned > 0 {
			p.logUnassigned(ctx, runID, r)
			p.telemetry.recordUnassigned(ctx, r.Source, r.Unassigned)
		}
	case *ImputeStage:
		for column, n := range s.Imputed.Filled {
			if n > 0 {
				p.telemetry.recordImputed(ctx, column, n)
			}
		}
	case *EncodeStage:
		for _, e := range s.Encodings.Encoded {
			p.telemetry.recordIndicators(ctx, e.Source, len(e.Columns))
		}
		for _, column := range s.Encodings.Dropped {
			p.logEmptyDropped(ctx, runID, column)
			p.telemetry.recordEmptyDropped(ctx, column)
		}
	}
}

// checkInput rejects role lists that overlap each other or the targets
func (p *Pipeline) checkInput(roles transform.Roles) error {
	if err := roles.Validate(); err != nil {
		return err
	}
	for _, target := range p.cfg.Targets {
		if roles.IsNumeric(target) || roles.IsCategorical(target) {
			return transform.NewRoleListInvariantError("", target, "target column is also listed in the roles")
		}
	}
	return nil
}

// IsCancelled reports whether err comes from a cancelled or expired context
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
