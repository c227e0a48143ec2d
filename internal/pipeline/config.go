package pipeline

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/oonisim/ml-credit-risk/internal/transform"
)

// Config holds every parameter of the feature pipeline
type Config struct {
	// Targets are kept by select and passed through untouched by every other stage
	Targets []string `json:"targets,omitempty" yaml:"targets" validate:"dive,required"`

	// Bins adds one discretize stage per entry, in order
	Bins []transform.DiscretizeConfig `json:"discretize,omitempty" yaml:"discretize" validate:"dive"`

	Impute transform.ImputeConfig `json:"impute" yaml:"impute"`

	// Encode.Columns nil means every column that is categorical when the encode stage runs
	Encode transform.EncodeConfig `json:"encode" yaml:"encode"`

	Rename map[string]string `json:"rename,omitempty" yaml:"rename" validate:"dive,keys,required,endkeys,required"`
}

var configValidator = newConfigValidator()

func newConfigValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the configuration before any data is touched
func (c Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("invalid pipeline config: %w", err)
	}

	targets := make(map[string]bool, len(c.Targets))
	for _, t := range c.Targets {
		if targets[t] {
			return transform.NewDuplicateColumnError("", t, "target listed twice")
		}
		targets[t] = true
	}

	binTargets := make(map[string]bool, len(c.Bins))
	for _, b := range c.Bins {
		if err := b.Validate(); err != nil {
			return err
		}
		if binTargets[b.Target] || targets[b.Target] {
			return transform.NewDuplicateColumnError(transform.StageDiscretize, b.Target, "bin target is produced twice")
		}
		binTargets[b.Target] = true
	}

	if _, err := transform.InvertRenameMap(c.Rename); err != nil {
		return err
	}
	return nil
}

// Clone returns a deep copy of the configuration
func (c Config) Clone() Config {
	out := Config{
		Targets: cloneList(c.Targets),
		Impute: transform.ImputeConfig{
			Columns:  cloneList(c.Impute.Columns),
			Sentinel: c.Impute.Sentinel,
		},
		Encode: transform.EncodeConfig{
			Columns:     cloneList(c.Encode.Columns),
			EmptyPolicy: c.Encode.EmptyPolicy,
		},
	}
	for _, b := range c.Bins {
		out.Bins = append(out.Bins, transform.DiscretizeConfig{
			Source: b.Source,
			Target: b.Target,
			Bins: transform.BinSpec{
				Boundaries: append([]float64(nil), b.Bins.Boundaries...),
				Labels:     cloneList(b.Bins.Labels),
			},
		})
	}
	if c.Rename != nil {
		out.Rename = make(map[string]string, len(c.Rename))
		for k, v := range c.Rename {
			out.Rename[k] = v
		}
	}
	return out
}

// cloneList keeps nil and empty apart: a nil encode list means every
// categorical column, an empty one means none
func cloneList(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
