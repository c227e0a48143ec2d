package pipeline

import (
	"context"
)

// Stage identifiers
const (
	StageIDSelect       = "select"
	StageIDImpute       = "impute"
	StageIDEncode       = "encode"
	StageIDRename       = "rename"
	StageIDDropAbsorbed = "drop_absorbed"

	// discretize stages are identified as "discretize:<target>"
	stageIDDiscretizePrefix = "discretize:"
)

// Stage is one step of the feature pipeline
type Stage interface {
	// ID returns the unique identifier for this stage
	ID() string

	// Name returns the human-readable name for this stage
	Name() string

	// Apply transforms the state. It must not modify its input.
	Apply(ctx context.Context, s State) (State, error)
}

// reporter is implemented by stages that add details to the run manifest
type reporter interface {
	report(before, after State) map[string]interface{}
}

// baseStage provides ID and Name for stage implementations
type baseStage struct {
	id   string
	name string
}

func newBaseStage(id, name string) baseStage {
	return baseStage{id: id, name: name}
}

// ID returns the stage ID
func (b baseStage) ID() string {
	return b.id
}

// Name returns the stage name
func (b baseStage) Name() string {
	return b.name
}
