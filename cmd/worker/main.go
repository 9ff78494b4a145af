// Package main provides the one-shot CLI: search The Guardian and publish
// the results to the configured Kinesis stream.
package main

import (
	"context"
	"fmt"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kinesis"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/spf13/cobra"

	"github.com/sxnfer/guardian-content-stream/internal/config"
	"github.com/sxnfer/guardian-content-stream/internal/guardian"
	"github.com/sxnfer/guardian-content-stream/internal/logger"
	"github.com/sxnfer/guardian-content-stream/internal/models"
	"github.com/sxnfer/guardian-content-stream/internal/orchestrator"
	"github.com/sxnfer/guardian-content-stream/internal/output"
	"github.com/sxnfer/guardian-content-stream/internal/publisher"
	"github.com/sxnfer/guardian-content-stream/internal/secrets"
)

// recordingPublisher keeps the last batch of outcomes so the CLI can render
// a per-record table after the run.
type recordingPublisher struct {
	inner    orchestrator.StreamPublisher
	outcomes []models.PublishOutcome
}

func (r *recordingPublisher) Publish(ctx context.Context, articles []models.Article) []models.PublishOutcome {
	r.outcomes = r.inner.Publish(ctx, articles)

	return r.outcomes
}

func newRootCmd() *cobra.Command {
	var (
		dateFrom   string
		configFile string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "worker <search-term>",
		Short: "Search The Guardian and publish articles to Kinesis",
		Long: `worker runs one ingestion pass: it queries the Guardian content
search API for the given term (newest first, max 10 results) and publishes
each article onto the configured Kinesis stream.

Required environment:
  GUARDIAN_API_KEY_SECRET_NAME  Secrets Manager secret holding the API key
  KINESIS_STREAM_NAME           target stream name`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0], dateFrom, configFile, logLevel)
		},
	}

	cmd.Flags().StringVar(&dateFrom, "date-from", "", "Filter articles from this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&configFile, "config", "", "Optional YAML file overriding retry/publish settings")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")

	return cmd
}

func run(cmd *cobra.Command, searchTerm, dateFrom, configFile, logLevel string) error {
	cfg, err := config.LoadWithOverlay(configFile)
	if err != nil {
		return err
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	log := logger.NewLogger(cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Retry.GetTimeout())
	defer cancel()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	pub, err := publisher.NewPublisher(
		kinesis.NewFromConfig(awsCfg),
		cfg.StreamName,
		cfg.Retry,
		cfg.Publish.Workers,
		log,
	)
	if err != nil {
		return err
	}

	recorder := &recordingPublisher{inner: pub}

	newClient := func(apiKey string) (orchestrator.SearchClient, error) {
		return guardian.NewClient(apiKey, log)
	}

	orch := orchestrator.New(
		secrets.NewProvider(secretsmanager.NewFromConfig(awsCfg)),
		cfg.SecretName,
		newClient,
		recorder,
		log,
	)

	summary, err := orch.Run(ctx, models.SearchRequest{
		SearchTerm: searchTerm,
		DateFrom:   dateFrom,
	})
	if err != nil {
		return err
	}

	if table := output.RenderOutcomes(recorder.outcomes); table != "" {
		cmd.Println(table)
	}

	cmd.Println(output.RenderSummary(summary, cfg.StreamName))

	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
