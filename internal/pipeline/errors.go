package pipeline

import (
	"errors"
	"fmt"
)

// ErrNilTable is returned when Run is called without an input table
var ErrNilTable = errors.New("input table is nil")

// StageError reports which stage of a run failed.
// It unwraps to the stage's own error, so errors.Is and errors.As see through it.
type StageError struct {
	RunID string `json:"run_id"`
	Stage string `json:"stage"`
	Err   error  `json:"-"`
}

// Error implements the error interface
func (e *StageError) Error() string {
	if e == nil {
		return "unknown stage error"
	}
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

// Unwrap returns the stage error
func (e *StageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// FailedStage returns the ID of the stage that produced err, or "" when err
// did not come from a pipeline stage
func FailedStage(err error) string {
	var sErr *StageError
	if errors.As(err, &sErr) {
		return sErr.Stage
	}
	return ""
}
