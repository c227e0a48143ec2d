package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/oonisim/ml-credit-risk/internal/config"
	apierrors "github.com/oonisim/ml-credit-risk/internal/errors"
	"github.com/oonisim/ml-credit-risk/internal/exporter"
	custommw "github.com/oonisim/ml-credit-risk/internal/middleware"
	"github.com/oonisim/ml-credit-risk/internal/pipeline"
	"github.com/oonisim/ml-credit-risk/internal/table"
	"github.com/oonisim/ml-credit-risk/internal/transform"
)

// Transformer runs the feature pipeline on one table
type Transformer interface {
	Run(ctx context.Context, t *table.Table, roles transform.Roles) (*pipeline.Result, error)
}

// TransformRequest is the body of POST /api/v1/transform.
// Roles defaults to the roles of the pipeline definition.
type TransformRequest struct {
	Table *table.Table      `json:"table" validate:"required"`
	Roles *config.RoleLists `json:"roles,omitempty"`
}

// TransformHandler serves feature transformation requests
type TransformHandler struct {
	transformer  Transformer
	defaultRoles config.RoleLists
	validator    *custommw.Validator
	csv          *exporter.CSVWriter
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewTransformHandler creates a transform handler. defaultRoles apply to
// requests that carry no roles of their own.
func NewTransformHandler(transformer Transformer, defaultRoles config.RoleLists, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *TransformHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if errorHandler == nil {
		errorHandler = apierrors.NewErrorHandler(logger, false)
	}
	return &TransformHandler{
		transformer:  transformer,
		defaultRoles: defaultRoles,
		validator:    custommw.NewValidator(logger),
		csv:          exporter.NewCSVWriter(logger),
		logger:       logger.With(slog.String("component", "transform_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the transform routes
func (h *TransformHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(custommw.ContentTypeValidator(h.errorHandler, "application/json"))
	r.Post("/", h.Transform)
	return r
}

// Transform handles POST /api/v1/transform. The response is the run result
// as JSON, or the transformed table as CSV when the client asks for text/csv
// or passes format=csv.
func (h *TransformHandler) Transform(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req TransformRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	lists := h.defaultRoles
	if req.Roles != nil {
		lists = *req.Roles
	}
	roles, err := lists.Roles()
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	res, err := h.transformer.Run(ctx, req.Table, roles)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "transform_served",
		slog.String("run_id", res.RunID),
		slog.String("request_id", middleware.GetReqID(ctx)),
		slog.Int("rows", res.Table.Rows()),
		slog.Int("columns", res.Table.Width()),
	)

	if wantsCSV(r) {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("X-Run-ID", res.RunID)
		if err := h.csv.WriteTable(w, res.Table, exporter.DefaultWriteOptions()); err != nil {
			h.logger.ErrorContext(ctx, "csv_response_failed",
				slog.String("run_id", res.RunID),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	render.JSON(w, r, res)
}

func wantsCSV(r *http.Request) bool {
	if strings.EqualFold(r.URL.Query().Get("format"), "csv") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/csv")
}
