package http

import (
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"gopkg.in/yaml.v2"

	"github.com/oonisim/ml-credit-risk/internal/config"
	apierrors "github.com/oonisim/ml-credit-risk/internal/errors"
	"github.com/oonisim/ml-credit-risk/internal/transform"
)

// PipelineHandler exposes the active pipeline definition
type PipelineHandler struct {
	definition   *config.PipelineFile
	stages       []string
	errorHandler *apierrors.ErrorHandler
}

// NewPipelineHandler creates a handler for the definition the service runs.
// stages lists the stage IDs the definition builds, in execution order.
func NewPipelineHandler(definition *config.PipelineFile, stages []string, errorHandler *apierrors.ErrorHandler) *PipelineHandler {
	if errorHandler == nil {
		errorHandler = apierrors.NewErrorHandler(nil, false)
	}
	return &PipelineHandler{
		definition:   definition,
		stages:       stages,
		errorHandler: errorHandler,
	}
}

// Routes returns the pipeline routes
func (h *PipelineHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.GetPipeline)
	return r
}

// PipelineView is the JSON form of a pipeline definition. JSON has no
// infinity, so unbounded bin edges are written as "+Inf" or "-Inf".
type PipelineView struct {
	Roles   config.RoleLists       `json:"roles"`
	Targets []string               `json:"targets"`
	Bins    []BinView              `json:"discretize"`
	Impute  transform.ImputeConfig `json:"impute"`
	Encode  transform.EncodeConfig `json:"encode"`
	Rename  map[string]string      `json:"rename,omitempty"`
	Stages  []string               `json:"stages"`
}

// BinView is one discretize entry of a PipelineView
type BinView struct {
	Source     string        `json:"source"`
	Target     string        `json:"target"`
	Boundaries []interface{} `json:"boundaries"`
	Labels     []string      `json:"labels"`
}

// NewPipelineView converts a definition into its JSON form
func NewPipelineView(def *config.PipelineFile, stages []string) PipelineView {
	cfg := def.ToConfig()
	view := PipelineView{
		Roles:   def.Roles,
		Targets: nonNilStrings(cfg.Targets),
		Bins:    make([]BinView, 0, len(cfg.Bins)),
		Impute:  cfg.Impute,
		Encode:  cfg.Encode,
		Rename:  cfg.Rename,
		Stages:  nonNilStrings(stages),
	}
	for _, b := range cfg.Bins {
		view.Bins = append(view.Bins, BinView{
			Source:     b.Source,
			Target:     b.Target,
			Boundaries: boundaryValues(b.Bins.Boundaries),
			Labels:     b.Bins.Labels,
		})
	}
	return view
}

// GetPipeline handles GET /api/v1/pipeline. format=yaml returns the
// definition in the same YAML form the service loads it from.
func (h *PipelineHandler) GetPipeline(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("format") == "yaml" {
		data, err := yaml.Marshal(h.definition)
		if err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		w.Write(data)
		return
	}

	render.JSON(w, r, NewPipelineView(h.definition, h.stages))
}

func boundaryValues(edges []float64) []interface{} {
	out := make([]interface{}, len(edges))
	for i, e := range edges {
		switch {
		case math.IsInf(e, 1):
			out[i] = "+Inf"
		case math.IsInf(e, -1):
			out[i] = "-Inf"
		default:
			out[i] = e
		}
	}
	return out
}

func nonNilStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
