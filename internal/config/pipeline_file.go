package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/oonisim/ml-credit-risk/internal/pipeline"
	"github.com/oonisim/ml-credit-risk/internal/transform"
)

// RoleLists names the numeric and categorical feature columns of an input table
type RoleLists struct {
	Numeric     []string `yaml:"numeric" json:"numeric"`
	Categorical []string `yaml:"categorical" json:"categorical"`
}

// Roles converts the lists into validated role sets
func (r RoleLists) Roles() (transform.Roles, error) {
	return transform.NewRoles(r.Numeric, r.Categorical)
}

// PipelineFile is the YAML pipeline definition:
//
//	roles:
//	  numeric: [Age, Credit amount, Duration]
//	  categorical: [Sex, Job, Housing, Saving accounts, Checking account, Purpose]
//	targets: [Risk]
//	discretize:
//	  - source: Age
//	    target: Generation
//	    bins:
//	      boundaries: [18, 25, 35, 60, 100]
//	      labels: [Student, Young, Adult, Senior]
//	impute:
//	  columns: [Saving accounts, Checking account]
//	  sentinel: no_inf
//	encode:
//	  empty_policy: reject
//	rename:
//	  Duration: duration
//
// An unbounded last bin uses .inf as its upper boundary.
type PipelineFile struct {
	Roles           RoleLists `yaml:"roles"`
	pipeline.Config `yaml:",inline"`
}

// DefaultPipelineFile returns the built-in credit-risk pipeline definition
func DefaultPipelineFile() *PipelineFile {
	roles := pipeline.CreditRiskRoles()
	return &PipelineFile{
		Roles: RoleLists{
			Numeric:     roles.Numeric(),
			Categorical: roles.Categorical(),
		},
		Config: pipeline.CreditRiskDefaults(),
	}
}

// LoadPipelineFile reads and validates a pipeline definition.
// An empty path returns DefaultPipelineFile.
func LoadPipelineFile(path string) (*PipelineFile, error) {
	if path == "" {
		return DefaultPipelineFile(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline file: %w", err)
	}
	return ParsePipelineFile(data)
}

// ParsePipelineFile decodes and validates a YAML pipeline definition
func ParsePipelineFile(data []byte) (*PipelineFile, error) {
	var pf PipelineFile
	if err := yaml.UnmarshalStrict(data, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse pipeline file: %w", err)
	}
	if err := pf.Validate(); err != nil {
		return nil, err
	}
	return &pf, nil
}

// Validate checks the role lists and the stage configuration
func (pf *PipelineFile) Validate() error {
	if _, err := pf.Roles.Roles(); err != nil {
		return fmt.Errorf("invalid pipeline roles: %w", err)
	}
	return pf.Config.Validate()
}

// ToConfig returns a copy of the stage configuration
func (pf *PipelineFile) ToConfig() pipeline.Config {
	return pf.Config.Clone()
}
