package config

// Application constants
const (
	AppName    = "credit-risk-features"
	AppVersion = "1.0.0"

	// EnvPrefix namespaces environment variables, e.g. CREDIT_SERVER_PORT
	EnvPrefix = "CREDIT"

	DefaultPort         = 8080
	DefaultMaxBodyBytes = 32 << 20

	// Rate Limiting
	DefaultRateLimit = 100 // requests per second
	DefaultBurstSize = 50

	// Log Settings
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
	DefaultLogFile   = "logs/app.log"

	// Postgres loading
	DefaultFeatureTable = "credit_risk_features"
	DefaultBatchSize    = 1000

	// API Endpoints
	APIBasePath       = "/api/v1"
	TransformEndpoint = "/api/v1/transform"
	PipelineEndpoint  = "/api/v1/pipeline"
	HealthEndpoint    = "/healthz"
	MetricsEndpoint   = "/metrics"
)
