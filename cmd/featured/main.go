// Command featured serves the feature transformation pipeline over HTTP.
//
//	featured -config configs/config.yaml
//
// Settings come from the config file and CREDIT_* environment variables,
// e.g. CREDIT_SERVER_PORT=9090 or CREDIT_PIPELINE_FILE=configs/pipeline.yaml.
package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/oonisim/ml-credit-risk/internal/app"
	"github.com/oonisim/ml-credit-risk/internal/config"
	"github.com/oonisim/ml-credit-risk/internal/infrastructure"
)

func main() {
	configPath := flag.String("config", "", "config file (defaults to configs/config.yaml when present)")
	pipelinePath := flag.String("pipeline", "", "pipeline definition YAML (overrides pipeline.file)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if *pipelinePath != "" {
		cfg.Pipeline.File = *pipelinePath
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("failed to initialize logger, using default", slog.String("error", err.Error()))
		logger = slog.Default()
	}

	application, err := app.NewApplication(cfg, logger)
	if err != nil {
		infrastructure.WithError(logger, err).Error("application_init_failed")
		os.Exit(1)
	}

	err = application.Run()
	_ = infrastructure.CloseLogFile()
	if err != nil {
		infrastructure.WithError(logger, err).Error("application_error")
		os.Exit(1)
	}
}
