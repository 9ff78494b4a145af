// Package main provides the AWS Lambda entry point.
//
// Config, AWS clients and the pipeline are built once per container at cold
// start. An initialization failure is captured rather than raised so every
// invocation gets a clean 500 response instead of a runtime crash.
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kinesis"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/sxnfer/guardian-content-stream/internal/config"
	"github.com/sxnfer/guardian-content-stream/internal/guardian"
	"github.com/sxnfer/guardian-content-stream/internal/handler"
	"github.com/sxnfer/guardian-content-stream/internal/logger"
	"github.com/sxnfer/guardian-content-stream/internal/orchestrator"
	"github.com/sxnfer/guardian-content-stream/internal/publisher"
	"github.com/sxnfer/guardian-content-stream/internal/secrets"
)

func initialize(ctx context.Context) *handler.Handler {
	cfg, err := config.Load()
	if err != nil {
		return handler.NewWithInitError(err, logger.NewLogger("info", "json"))
	}

	log := logger.NewLogger(cfg.Logging.Level, "json")

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return handler.NewWithInitError(err, log)
	}

	pub, err := publisher.NewPublisher(
		kinesis.NewFromConfig(awsCfg),
		cfg.StreamName,
		cfg.Retry,
		cfg.Publish.Workers,
		log,
	)
	if err != nil {
		return handler.NewWithInitError(err, log)
	}

	newClient := func(apiKey string) (orchestrator.SearchClient, error) {
		return guardian.NewClient(apiKey, log)
	}

	orch := orchestrator.New(
		secrets.NewProvider(secretsmanager.NewFromConfig(awsCfg)),
		cfg.SecretName,
		newClient,
		pub,
		log,
	)

	return handler.New(orch, log)
}

func main() {
	h := initialize(context.Background())
	lambda.Start(h.Handle)
}
