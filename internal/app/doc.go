// Package app assembles the feature transformation service and manages its
// lifecycle.
//
// # Initialization Flow
//
//	1. Configuration is loaded by the caller (config.Load)
//	2. OpenTelemetry providers are installed globally
//	3. The pipeline definition is loaded and the pipeline built
//	4. Middleware, handlers and routes are registered on a chi router
//	5. Run serves until SIGINT or SIGTERM and then shuts down gracefully
//
// # Middleware Order
//
//	RequestID → RealIP → Recovery → OTel → StructuredLogger → SecurityHeaders
//	  /api/v1: RateLimiter (when enabled)
//	  /api/v1/transform: BodyLimit → Timeout
package app
