// Package store loads transformed feature tables into PostgreSQL.
//
// Rows are sent with the COPY protocol in batches, all inside one
// transaction, so a failed load leaves the target untouched. In replace mode
// the target table is dropped and recreated from the table's columns; in
// append mode it is created only when absent. Number columns become double
// precision, bool columns boolean and anything else text; missing cells are
// NULL.
//
//	conn, err := store.Connect(ctx, cfg.Postgres)
//	...
//	defer conn.Close(ctx)
//	n, err := store.New(conn, logger).Write(ctx, res.Table, store.OptionsFromConfig(cfg.Postgres))
//
// Without a configured password, Connect reads it from the pgpass file
// (config passfile, $PGPASSFILE or ~/.pgpass).
package store
