// Package pipeline composes the column transformations into the credit-risk
// feature pipeline.
//
// # Stages
//
// A run executes a fixed sequence of stages:
//
//	select -> discretize (one per bin config) -> impute -> encode -> rename -> drop_absorbed
//
// Each stage is a Stage value whose Apply takes a State and returns a new one.
// The State carries the table, the numeric and categorical role lists, the
// discretized source columns waiting to be dropped ("absorbed"), the
// pass-through target columns, and the reports of earlier stages.
//
// # Role bookkeeping
//
// Discretizing moves the source column from the numeric roles to the absorbed
// list and adds the new column to the categorical roles. Encoding removes the
// encoded columns from the roles and adds their indicators to the numeric roles.
// Renaming applies the rename map to every list. Between stages the pipeline
// checks that each table column has exactly one role.
//
// # Usage
//
//	p, err := pipeline.New(pipeline.CreditRiskDefaults(), pipeline.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	res, err := p.Run(ctx, raw, pipeline.CreditRiskRoles())
//	if err != nil {
//	    return err // *pipeline.StageError wrapping a *transform.Error
//	}
//	features, names, err := res.Matrix()
//
// RunAll transforms several independent tables concurrently.
//
// # Observability
//
// Runs log snake_case events (pipeline_start, stage_complete, stage_error,
// discretize_unassigned, encode_empty_dropped, pipeline_complete), create one
// span per run and per stage, and count stage executions, unassigned values,
// imputed values and generated indicators. Every run also produces a
// RunManifest that can be saved as JSON.
package pipeline
