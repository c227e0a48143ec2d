package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/oonisim/ml-credit-risk/internal/config"
	"github.com/oonisim/ml-credit-risk/internal/infrastructure"
	"github.com/oonisim/ml-credit-risk/internal/table"
)

// Mode controls what happens to an existing target table
type Mode string

const (
	// ModeReplace drops and recreates the target table
	ModeReplace Mode = "replace"
	// ModeAppend creates the target table when absent and adds rows to it
	ModeAppend Mode = "append"
)

var (
	// ErrEmptyTable is returned when the table has no columns
	ErrEmptyTable = errors.New("table has no columns")

	// ErrInvalidMode is returned for a mode other than replace or append
	ErrInvalidMode = errors.New("invalid write mode")

	// ErrSchemaMismatch is returned when appending to a table whose columns
	// differ from the written table's
	ErrSchemaMismatch = errors.New("table columns do not match the existing table")
)

const columnsQuery = `SELECT column_name FROM information_schema.columns
WHERE table_schema = COALESCE(NULLIF($1, ''), current_schema()) AND table_name = $2
ORDER BY ordinal_position`

// DB begins the transaction a write runs in. *pgx.Conn satisfies it.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Options names the target table and how rows are written
type Options struct {
	Schema    string
	Table     string
	Mode      Mode
	BatchSize int
}

// OptionsFromConfig returns the write options of cfg
func OptionsFromConfig(cfg config.PostgresConfig) Options {
	return Options{
		Schema:    cfg.Schema,
		Table:     cfg.Table,
		Mode:      Mode(cfg.Mode),
		BatchSize: cfg.BatchSize,
	}
}

func (o Options) identifier() pgx.Identifier {
	if o.Schema == "" {
		return pgx.Identifier{o.Table}
	}
	return pgx.Identifier{o.Schema, o.Table}
}

// Store writes tables to PostgreSQL
type Store struct {
	db     DB
	tracer trace.Tracer
	logger *slog.Logger
}

// New creates a store on db. A nil logger uses slog.Default.
func New(db DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		db:     db,
		tracer: otel.Tracer("credit-risk/store"),
		logger: infrastructure.WithComponent(logger, "store"),
	}
}

// Connect opens a connection described by cfg. Without a configured password
// the password is looked up in the pgpass file.
func Connect(ctx context.Context, cfg config.PostgresConfig) (*pgx.Conn, error) {
	password := cfg.Password
	if password == "" {
		var err error
		if password, err = LookupPassword(cfg.PassFile, cfg); err != nil {
			return nil, err
		}
	}

	connConfig, err := pgx.ParseConfig(ConnString(cfg, password))
	if err != nil {
		return nil, fmt.Errorf("invalid postgres configuration: %w", err)
	}

	conn, err := pgx.ConnectConfig(ctx, connConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Database, err)
	}
	return conn, nil
}

// ConnString builds a postgres:// URL for cfg with the given password
func ConnString(cfg config.PostgresConfig, password string) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, password),
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + cfg.Database,
	}
	if cfg.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {cfg.SSLMode}}.Encode()
	}
	return u.String()
}

// Write stores t in the target table inside one transaction, copying rows in
// batches of opts.BatchSize. It returns the number of rows written.
func (s *Store) Write(ctx context.Context, t *table.Table, opts Options) (rows int64, err error) {
	if t == nil || t.Width() == 0 {
		return 0, ErrEmptyTable
	}
	if opts.Mode != ModeReplace && opts.Mode != ModeAppend {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMode, opts.Mode)
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = config.DefaultBatchSize
	}

	target := opts.identifier().Sanitize()
	ctx, span := s.tracer.Start(ctx, "store.write", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.collection.name", target),
		attribute.String("store.mode", string(opts.Mode)),
		attribute.Int("store.rows", t.Rows()),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	start := time.Now()
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				s.logger.WarnContext(ctx, "rollback_failed", slog.String("error", rbErr.Error()))
			}
		}
	}()

	if opts.Mode == ModeAppend {
		if err = s.checkColumns(ctx, tx, t, opts); err != nil {
			return 0, err
		}
	}

	for _, stmt := range Statements(t, opts) {
		if _, err = tx.Exec(ctx, stmt); err != nil {
			return 0, fmt.Errorf("failed to prepare %s: %w", target, err)
		}
	}

	names, types := t.Names(), columnTypes(t)
	for lo := 0; lo < t.Rows(); lo += opts.BatchSize {
		if err = ctx.Err(); err != nil {
			return 0, err
		}
		hi := min(lo+opts.BatchSize, t.Rows())

		n, copyErr := tx.CopyFrom(ctx, opts.identifier(), names, batchSource(t, types, lo, hi))
		if copyErr != nil {
			err = fmt.Errorf("failed to copy rows %d-%d into %s: %w", lo, hi-1, target, copyErr)
			return 0, err
		}
		rows += n

		s.logger.DebugContext(ctx, "batch_copied",
			slog.String("table", target),
			slog.Int("from", lo),
			slog.Int("to", hi),
			slog.Int64("rows", n))
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}

	s.logger.InfoContext(ctx, "table_stored",
		slog.String("table", target),
		slog.String("mode", string(opts.Mode)),
		slog.Int64("rows", rows),
		slog.Int("columns", t.Width()),
		slog.Duration("duration", time.Since(start)))
	return rows, nil
}

// checkColumns compares t with an existing target table. An absent target passes.
func (s *Store) checkColumns(ctx context.Context, tx pgx.Tx, t *table.Table, opts Options) error {
	rows, err := tx.Query(ctx, columnsQuery, opts.Schema, opts.Table)
	if err != nil {
		return fmt.Errorf("failed to read columns of %s: %w", opts.identifier().Sanitize(), err)
	}
	existing, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return fmt.Errorf("failed to read columns of %s: %w", opts.identifier().Sanitize(), err)
	}
	if len(existing) == 0 {
		return nil
	}

	have := make(map[string]bool, len(existing))
	for _, name := range existing {
		have[name] = true
	}
	var missing, extra []string
	for _, name := range t.Names() {
		if !have[name] {
			extra = append(extra, name)
		}
		delete(have, name)
	}
	for _, name := range existing {
		if have[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 && len(extra) == 0 {
		return nil
	}

	s.logger.WarnContext(ctx, "schema_mismatch",
		slog.String("table", opts.identifier().Sanitize()),
		slog.Any("missing", missing),
		slog.Any("extra", extra))
	return fmt.Errorf("%w: %s lacks %v and has extra %v", ErrSchemaMismatch, opts.identifier().Sanitize(), missing, extra)
}

// Statements returns the DDL run before copying: a drop for ModeReplace and
// a create for the table's columns
func Statements(t *table.Table, opts Options) []string {
	target := opts.identifier().Sanitize()

	types := columnTypes(t)
	defs := make([]string, 0, t.Width())
	for j, name := range t.Names() {
		defs = append(defs, pgx.Identifier{name}.Sanitize()+" "+types[j])
	}
	create := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", target, strings.Join(defs, ", "))

	if opts.Mode == ModeReplace {
		return []string{"DROP TABLE IF EXISTS " + target, create}
	}
	return []string{create}
}

// ColumnType returns the PostgreSQL type for a column: double precision when
// every present value is a number, boolean when every one is a bool and text
// otherwise. An all-missing column is double precision.
func ColumnType(col table.Column) string {
	var numbers, bools, texts int
	for _, v := range col.Values {
		if v.IsMissing() {
			continue
		}
		switch v.Kind() {
		case table.KindNumber:
			numbers++
		case table.KindBool:
			bools++
		default:
			texts++
		}
	}
	switch {
	case texts == 0 && bools == 0:
		return "double precision"
	case texts == 0 && numbers == 0:
		return "boolean"
	default:
		return "text"
	}
}

func columnTypes(t *table.Table) []string {
	types := make([]string, t.Width())
	for j, name := range t.Names() {
		col, _ := t.Column(name)
		types[j] = ColumnType(col)
	}
	return types
}

func batchSource(t *table.Table, types []string, lo, hi int) pgx.CopyFromSource {
	return pgx.CopyFromSlice(hi-lo, func(i int) ([]any, error) {
		row := t.Row(lo + i)
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = copyValue(v, types[j])
		}
		return values, nil
	})
}

func copyValue(v table.Value, columnType string) any {
	if v.IsMissing() {
		return nil
	}
	switch columnType {
	case "double precision":
		f, _ := v.Float()
		return f
	case "boolean":
		f, _ := v.Float()
		return f == 1
	default:
		return v.String()
	}
}
