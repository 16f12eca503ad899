package main

import (
	"context"
	"log"

	"salonbook/internal/api"
	"salonbook/internal/config"
	"salonbook/internal/logging"
	"salonbook/internal/metrics"

	"github.com/aws/aws-lambda-go/lambda"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
	}

	// The runtime keeps the process warm between invocations, so a pooled
	// store and redis client outlive a single request.
	handler, cleanup := api.Build(context.Background(), cfg, logging.Component(logger, "lambda"))
	defer cleanup()

	lambda.Start(handler.Handle)
}
