// Package config loads the service configuration and the pipeline definition.
//
// # Configuration Sources
//
// Values are resolved in the following order of precedence:
//
//	1. Environment variables (highest priority)
//	2. The YAML configuration file
//	3. Default values (lowest priority)
//
// Without an explicit path, Load looks for config.yaml or configs/config.yaml.
//
// # Environment Variables
//
// Variables use the CREDIT prefix followed by the section and field name:
//
//	CREDIT_SERVER_PORT=8080
//	CREDIT_LOGGING_LEVEL=debug
//	CREDIT_TELEMETRY_TRACE_EXPORTER=stdout
//	CREDIT_POSTGRES_PASSWORD=secret
//	CREDIT_PIPELINE_FILE=configs/pipeline.yaml
//
// # Pipeline Definition
//
// The pipeline stages and the input column roles are described by a separate
// YAML file read with LoadPipelineFile. See PipelineFile for the format.
//
// # YAML Helpers
//
// GetValue reads one top-level key and returns errors to the caller. ReadYAML
// reads a whole mapping and falls back to a default on any failure, logging
// the reason.
package config
