package pipeline

import (
	"context"

	"github.com/oonisim/ml-credit-risk/internal/transform"
)

// SelectStage keeps the role and target columns and discards everything else
type SelectStage struct {
	baseStage
}

// NewSelectStage creates the column selection stage
func NewSelectStage() *SelectStage {
	return &SelectStage{baseStage: newBaseStage(StageIDSelect, "Column Selection")}
}

// Apply implements Stage
func (s *SelectStage) Apply(_ context.Context, st State) (State, error) {
	keep := appendCopy(st.Roles.All(), st.Targets...)
	t, err := transform.Select(st.Table, keep)
	if err != nil {
		return State{}, err
	}
	st.Table = t
	return st, nil
}

func (s *SelectStage) report(before, after State) map[string]interface{} {
	return map[string]interface{}{
		"dropped_columns": before.Table.Width() - after.Table.Width(),
	}
}

// DiscretizeStage bins one numeric column into a new categorical column
type DiscretizeStage struct {
	baseStage
	cfg transform.DiscretizeConfig
}

// NewDiscretizeStage creates a discretize stage for cfg
func NewDiscretizeStage(cfg transform.DiscretizeConfig) *DiscretizeStage {
	return &DiscretizeStage{
		baseStage: newBaseStage(stageIDDiscretizePrefix+cfg.Target, "Discretize "+cfg.Source),
		cfg:       cfg,
	}
}

// Apply implements Stage. The source moves from the numeric roles to the
// absorbed list and the target joins the categorical roles.
func (s *DiscretizeStage) Apply(_ context.Context, st State) (State, error) {
	t, report, err := transform.Discretize(st.Table, s.cfg)
	if err != nil {
		return State{}, err
	}

	src := s.cfg.Source
	absorbed := hasName(st.Absorbed, src)
	if !st.Roles.IsNumeric(src) && !absorbed {
		return State{}, transform.NewRoleListInvariantError(transform.StageDiscretize, src,
			"discretize source is not a numeric column")
	}

	st.Table = t
	st.Roles = st.Roles.WithoutNumeric(src).WithCategorical(s.cfg.Target)
	if !absorbed {
		st.Absorbed = appendCopy(st.Absorbed, src)
	}
	st.Bins = append(append([]transform.BinReport(nil), st.Bins...), report)
	return st, nil
}

func (s *DiscretizeStage) report(_, after State) map[string]interface{} {
	r := after.Bins[len(after.Bins)-1]
	return map[string]interface{}{
		"source":     r.Source,
		"target":     r.Target,
		"counts":     r.Counts,
		"unassigned": r.Unassigned,
	}
}

// ImputeStage fills missing categorical values with the sentinel
type ImputeStage struct {
	baseStage
	cfg transform.ImputeConfig
}

// NewImputeStage creates the imputation stage
func NewImputeStage(cfg transform.ImputeConfig) *ImputeStage {
	return &ImputeStage{baseStage: newBaseStage(StageIDImpute, "Missing Value Imputation"), cfg: cfg}
}

// Apply implements Stage
func (s *ImputeStage) Apply(_ context.Context, st State) (State, error) {
	t, report, err := transform.Impute(st.Table, s.cfg)
	if err != nil {
		return State{}, err
	}
	st.Table = t
	st.Imputed = report
	return st, nil
}

func (s *ImputeStage) report(_, after State) map[string]interface{} {
	return map[string]interface{}{
		"sentinel": after.Imputed.Sentinel,
		"filled":   after.Imputed.Filled,
	}
}

// EncodeStage one-hot encodes categorical columns
type EncodeStage struct {
	baseStage
	cfg transform.EncodeConfig
}

// NewEncodeStage creates the encoding stage
func NewEncodeStage(cfg transform.EncodeConfig) *EncodeStage {
	return &EncodeStage{baseStage: newBaseStage(StageIDEncode, "Categorical Encoding"), cfg: cfg}
}

// Apply implements Stage. Encoded columns leave the role lists and their
// indicators join the numeric roles.
func (s *EncodeStage) Apply(_ context.Context, st State) (State, error) {
	cfg := s.cfg
	if cfg.Columns == nil {
		cfg.Columns = st.Roles.Categorical()
	}

	t, manifest, err := transform.Encode(st.Table, cfg)
	if err != nil {
		return State{}, err
	}

	sources := manifest.Sources()
	st.Table = t
	st.Roles = st.Roles.
		WithoutCategorical(sources...).
		WithoutNumeric(sources...).
		WithNumeric(manifest.Columns()...)
	st.Encodings = manifest
	return st, nil
}

func (s *EncodeStage) report(_, after State) map[string]interface{} {
	generated := make(map[string]interface{}, len(after.Encodings.Encoded))
	for _, e := range after.Encodings.Encoded {
		generated[e.Source] = e.Columns
	}
	out := map[string]interface{}{"indicators": generated}
	if len(after.Encodings.Dropped) > 0 {
		out["dropped_empty"] = after.Encodings.Dropped
	}
	return out
}

// RenameStage renames columns in the table, the roles and the bookkeeping lists
type RenameStage struct {
	baseStage
	mapping map[string]string
}

// NewRenameStage creates the rename stage
func NewRenameStage(mapping map[string]string) *RenameStage {
	return &RenameStage{baseStage: newBaseStage(StageIDRename, "Column Renaming"), mapping: mapping}
}

// Apply implements Stage
func (s *RenameStage) Apply(_ context.Context, st State) (State, error) {
	if len(s.mapping) == 0 {
		return st, nil
	}
	t, err := transform.Rename(st.Table, s.mapping)
	if err != nil {
		return State{}, err
	}
	st.Table = t
	st.Roles = st.Roles.Renamed(s.mapping)
	st.Absorbed = renameList(st.Absorbed, s.mapping)
	st.Targets = renameList(st.Targets, s.mapping)
	st.Encodings = renameEncodings(st.Encodings, s.mapping)
	return st, nil
}

func (s *RenameStage) report(before, _ State) map[string]interface{} {
	renamed := 0
	for _, name := range before.Table.Names() {
		if to, ok := s.mapping[name]; ok && to != name {
			renamed++
		}
	}
	return map[string]interface{}{"renamed": renamed}
}

// DropAbsorbedStage removes discretized source columns from the table
type DropAbsorbedStage struct {
	baseStage
}

// NewDropAbsorbedStage creates the final clean-up stage
func NewDropAbsorbedStage() *DropAbsorbedStage {
	return &DropAbsorbedStage{baseStage: newBaseStage(StageIDDropAbsorbed, "Drop Discretized Sources")}
}

// Apply implements Stage
func (s *DropAbsorbedStage) Apply(_ context.Context, st State) (State, error) {
	if len(st.Absorbed) == 0 {
		return st, nil
	}
	for _, name := range st.Absorbed {
		if !st.Table.Has(name) {
			return State{}, transform.NewColumnNotFoundError(StageIDDropAbsorbed, name)
		}
	}
	t, err := st.Table.Drop(st.Absorbed...)
	if err != nil {
		return State{}, err
	}
	st.Table = t
	st.Absorbed = nil
	return st, nil
}

func (s *DropAbsorbedStage) report(before, _ State) map[string]interface{} {
	return map[string]interface{}{"dropped": before.Absorbed}
}

// BuildStages returns the stages for cfg in execution order
func BuildStages(cfg Config) []Stage {
	stages := []Stage{NewSelectStage()}
	for _, b := range cfg.Bins {
		stages = append(stages, NewDiscretizeStage(b))
	}
	return append(stages,
		NewImputeStage(cfg.Impute),
		NewEncodeStage(cfg.Encode),
		NewRenameStage(cfg.Rename),
		NewDropAbsorbedStage(),
	)
}

func renameEncodings(m transform.EncodingManifest, mapping map[string]string) transform.EncodingManifest {
	out := transform.EncodingManifest{Dropped: cloneList(m.Dropped)}
	for _, e := range m.Encoded {
		out.Encoded = append(out.Encoded, transform.EncodedColumn{
			Source:     e.Source,
			Categories: append([]string(nil), e.Categories...),
			Columns:    renameList(e.Columns, mapping),
		})
	}
	return out
}
