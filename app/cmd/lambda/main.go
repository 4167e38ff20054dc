package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"archdiagram/app/bootstrap"
	"archdiagram/app/config"
	"archdiagram/internal/infrastructure/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Log.SlogLevel(),
	}))
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "err", err)
		log.Fatalf("invalid config: %v", err)
	}

	// Lambda only offers /tmp as writable storage.
	if cfg.Render.ImageDir == "./generated_diagrams" {
		cfg.Render.ImageDir = "/tmp/generated_diagrams"
	}

	app, err := bootstrap.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("bootstrap failed", "err", err)
		log.Fatalf("bootstrap: %v", err)
	}

	lambda.Start(transport.NewLambdaHandler(app.Handler, logger).Handle)
}
