package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	Postgres  PostgresConfig  `yaml:"postgres" envconfig:"POSTGRES"`
	Pipeline  PipelineConfig  `yaml:"pipeline" envconfig:"PIPELINE"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" split_words:"true" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" split_words:"true" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" split_words:"true" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" split_words:"true"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" split_words:"true"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes" split_words:"true" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" split_words:"true"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	RateLimit RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" split_words:"true"`
	RPS     float64 `yaml:"rps" split_words:"true" validate:"gte=0"`
	Burst   int     `yaml:"burst" split_words:"true" validate:"gte=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" split_words:"true" validate:"oneof=debug info warn warning error"`
	Format   string `yaml:"format" split_words:"true"`
	Output   string `yaml:"output" split_words:"true" validate:"oneof=console stdout file both"`
	FilePath string `yaml:"file_path" split_words:"true"`
}

// TelemetryConfig selects the OpenTelemetry exporters
type TelemetryConfig struct {
	Environment    string  `yaml:"environment" split_words:"true"`
	TraceExporter  string  `yaml:"trace_exporter" split_words:"true" validate:"oneof=stdout none"`
	MetricExporter string  `yaml:"metric_exporter" split_words:"true" validate:"oneof=prometheus none"`
	SampleRatio    float64 `yaml:"sample_ratio" split_words:"true" validate:"gte=0,lte=1"`
}

// PostgresConfig describes where transformed tables are loaded
type PostgresConfig struct {
	Host      string `yaml:"host" split_words:"true" validate:"required"`
	Port      int    `yaml:"port" split_words:"true" validate:"min=1,max=65535"`
	Database  string `yaml:"database" split_words:"true" validate:"required"`
	User      string `yaml:"user" split_words:"true" validate:"required"`
	Password  string `yaml:"password" split_words:"true"`
	PassFile  string `yaml:"passfile" split_words:"true"`
	SSLMode   string `yaml:"sslmode" split_words:"true" validate:"oneof=disable allow prefer require verify-ca verify-full"`
	Schema    string `yaml:"schema" split_words:"true" validate:"required"`
	Table     string `yaml:"table" split_words:"true" validate:"required"`
	Mode      string `yaml:"mode" split_words:"true" validate:"oneof=replace append"`
	BatchSize int    `yaml:"batch_size" split_words:"true" validate:"min=1"`
}

// PipelineConfig locates the pipeline definition and sizes batch runs
type PipelineConfig struct {
	// File is a pipeline definition; empty uses the built-in credit-risk pipeline
	File    string `yaml:"file" split_words:"true"`
	Workers int    `yaml:"workers" split_words:"true" validate:"gte=0"`
}

var structValidator = validator.New()

// Load builds the configuration from defaults, the YAML file at path (when
// non-empty) and CREDIT_* environment variables, in increasing precedence.
// With an empty path the first existing default location is used; that file
// is optional, so when it cannot be read or parsed the defaults are kept and
// the problem is logged.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if found := getConfigFilePath(); found != "" {
			if err := loadOptionalFile(found, cfg); err != nil {
				return nil, fmt.Errorf("failed to load config from file: %w", err)
			}
		}
	} else if err := loadFromFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from file: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg. Keys absent from the file keep
// their current values.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// loadOptionalFile overlays the mapping ReadYAML returns for filePath onto cfg
func loadOptionalFile(filePath string, cfg *Config) error {
	doc := ReadYAML(filePath, nil)
	if len(doc) == 0 {
		return nil
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if err := structValidator.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid %s: failed %q check", verrs[0].Namespace(), verrs[0].Tag())
		}
		return err
	}
	if c.Logging.Output == "file" || c.Logging.Output == "both" {
		if c.Logging.FilePath == "" {
			return fmt.Errorf("logging output %q needs a file path", c.Logging.Output)
		}
	}
	return nil
}

// getConfigFilePath returns the first config file found in the common locations
func getConfigFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
		"../../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            DefaultPort,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20,
			MaxBodyBytes:    DefaultMaxBodyBytes,
			ShutdownTimeout: 30 * time.Second,
		},
		Security: SecurityConfig{
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimit,
				Burst:   DefaultBurstSize,
			},
		},
		Logging: LoggingConfig{
			Level:    DefaultLogLevel,
			Format:   DefaultLogFormat,
			Output:   "console",
			FilePath: DefaultLogFile,
		},
		Telemetry: TelemetryConfig{
			Environment:    "development",
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			SampleRatio:    1.0,
		},
		Postgres: PostgresConfig{
			Host:      "localhost",
			Port:      5432,
			Database:  "postgres",
			User:      "postgres",
			SSLMode:   "prefer",
			Schema:    "public",
			Table:     DefaultFeatureTable,
			Mode:      "replace",
			BatchSize: DefaultBatchSize,
		},
	}
}
