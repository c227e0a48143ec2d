// Package http implements the HTTP handlers of the feature transformation
// service. Handlers stay thin: they decode and validate requests, call the
// pipeline and render the result, leaving status mapping to
// internal/errors.
//
// # Endpoints
//
//	POST /api/v1/transform   JSON table + optional roles → run result (JSON or CSV)
//	GET  /api/v1/pipeline    active pipeline definition (JSON or YAML)
//	GET  /healthz            liveness, pipeline stages and runtime statistics
//
// A transform request looks like:
//
//	{
//	  "table": {"columns": [{"name": "Age", "values": [24, 61]}, ...]},
//	  "roles": {"numeric": ["Age"], "categorical": ["Sex"]}
//	}
//
// Errors are RFC 7807 problem documents. Transformation failures carry the
// failing stage, column and error kind as extension members.
package http
