// Package publisher emits articles onto an AWS Kinesis stream.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kinesis"
	"github.com/aws/aws-sdk-go-v2/service/kinesis/types"
	"golang.org/x/sync/errgroup"

	"github.com/sxnfer/guardian-content-stream/internal/config"
	"github.com/sxnfer/guardian-content-stream/internal/logger"
	"github.com/sxnfer/guardian-content-stream/internal/models"
)

// Publisher errors.
var (
	ErrEmptyStreamName = errors.New("stream name must not be empty or whitespace")
	ErrRecordTooLarge  = errors.New("record exceeds the stream size limit")
	ErrTotalFailure    = errors.New("stream publish failed for every record")
)

// MaxRecordSize is the Kinesis per-record data limit.
const MaxRecordSize = 1024 * 1024

// defaultWorkers bounds concurrent publish attempts when no override is given.
const defaultWorkers = 4

// StreamAPI is the slice of the Kinesis client the publisher needs.
type StreamAPI interface {
	PutRecord(ctx context.Context, params *kinesis.PutRecordInput, optFns ...func(*kinesis.Options)) (*kinesis.PutRecordOutput, error)
}

// Publisher publishes articles one record at a time with per-record retry.
// Delivery is at-least-once: a retried record may land twice downstream.
type Publisher struct {
	client      StreamAPI
	streamName  string
	retryPolicy config.RetryPolicy
	workers     int
	logger      *logger.Logger
}

// NewPublisher creates a publisher for the named stream.
func NewPublisher(client StreamAPI, streamName string, retry config.RetryPolicy, workers int, log *logger.Logger) (*Publisher, error) {
	if strings.TrimSpace(streamName) == "" {
		return nil, ErrEmptyStreamName
	}

	if workers < 1 {
		workers = defaultWorkers
	}

	return &Publisher{
		client:      client,
		streamName:  streamName,
		retryPolicy: retry,
		workers:     workers,
		logger:      log,
	}, nil
}

// Publish emits each article as one stream record, partition key = webUrl.
// Records are independent, so attempts run on a small bounded worker pool;
// the returned outcomes keep input order regardless of completion order.
// One record exhausting its retries never aborts the rest of the batch.
func (p *Publisher) Publish(ctx context.Context, articles []models.Article) []models.PublishOutcome {
	outcomes := make([]models.PublishOutcome, len(articles))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i, article := range articles {
		i, article := i, article
		g.Go(func() error {
			outcomes[i] = p.publishOne(gctx, article)

			// Failures land in the outcome, never in the group error,
			// so one bad record cannot cancel its siblings.
			return nil
		})
	}

	_ = g.Wait()

	return outcomes
}

// publishOne serializes and submits a single article, retrying throttled or
// transient failures per the retry policy.
func (p *Publisher) publishOne(ctx context.Context, article models.Article) models.PublishOutcome {
	outcome := models.PublishOutcome{Article: article}

	data, err := json.Marshal(article)
	if err != nil {
		outcome.Err = fmt.Errorf("failed to serialize record: %w", err)

		return outcome
	}

	if len(data) > MaxRecordSize {
		outcome.Err = fmt.Errorf("%w: %d bytes", ErrRecordTooLarge, len(data))

		return outcome
	}

	var lastErr error

	for attempt := 1; attempt <= p.retryPolicy.MaxAttempts; attempt++ {
		outcome.Attempts = attempt

		resp, err := p.client.PutRecord(ctx, &kinesis.PutRecordInput{
			StreamName:   aws.String(p.streamName),
			Data:         data,
			PartitionKey: aws.String(article.WebURL),
		})
		if err == nil {
			outcome.ShardID = aws.ToString(resp.ShardId)
			outcome.SequenceNumber = aws.ToString(resp.SequenceNumber)

			return outcome
		}

		lastErr = fmt.Errorf("put record failed (attempt %d/%d): %w", attempt, p.retryPolicy.MaxAttempts, err)

		if !isRetryable(err) {
			break
		}

		if attempt < p.retryPolicy.MaxAttempts {
			if p.logger != nil {
				p.logger.Warn("retrying record", "url", article.WebURL, "attempt", attempt)
			}

			if err := p.sleep(ctx, p.retryPolicy.GetRetryDelay(attempt)); err != nil {
				lastErr = err

				break
			}
		}
	}

	outcome.Err = lastErr

	return outcome
}

// sleep waits for the backoff delay unless the invocation is cancelled.
func (p *Publisher) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// isRetryable reports whether a put failure is worth another attempt.
// Throttling and transport-level failures are; bad requests and missing
// streams are not.
func isRetryable(err error) bool {
	var throughput *types.ProvisionedThroughputExceededException
	if errors.As(err, &throughput) {
		return true
	}

	var limit *types.LimitExceededException
	if errors.As(err, &limit) {
		return true
	}

	var notFound *types.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return false
	}

	var invalid *types.InvalidArgumentException
	if errors.As(err, &invalid) {
		return false
	}

	var denied *types.AccessDeniedException
	if errors.As(err, &denied) {
		return false
	}

	// Anything else is assumed transient (connection resets, 5xx faults).
	return true
}

// CountSuccesses tallies accepted records in a batch of outcomes.
func CountSuccesses(outcomes []models.PublishOutcome) int {
	count := 0

	for _, o := range outcomes {
		if o.Succeeded() {
			count++
		}
	}

	return count
}
