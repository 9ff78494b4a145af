// Package orchestrator composes the search-shape-publish pipeline.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/sxnfer/guardian-content-stream/internal/guardian"
	"github.com/sxnfer/guardian-content-stream/internal/logger"
	"github.com/sxnfer/guardian-content-stream/internal/models"
	"github.com/sxnfer/guardian-content-stream/internal/publisher"
	"github.com/sxnfer/guardian-content-stream/internal/shaper"
)

// SecretProvider resolves a named credential.
type SecretProvider interface {
	Fetch(ctx context.Context, name string) (string, error)
}

// SearchClient returns raw search results, newest first.
type SearchClient interface {
	Search(ctx context.Context, term string, dateFrom time.Time) ([]guardian.RawItem, error)
}

// StreamPublisher emits shaped articles and reports per-record outcomes.
type StreamPublisher interface {
	Publish(ctx context.Context, articles []models.Article) []models.PublishOutcome
}

// SearchClientFactory builds a search client once the credential is known.
type SearchClientFactory func(apiKey string) (SearchClient, error)

// Orchestrator runs one invocation end to end. All collaborators are
// injected so tests can run the pipeline against fakes.
type Orchestrator struct {
	secrets    SecretProvider
	secretName string
	newClient  SearchClientFactory
	publisher  StreamPublisher
	logger     *logger.Logger
}

// New creates an orchestrator.
func New(secrets SecretProvider, secretName string, newClient SearchClientFactory, pub StreamPublisher, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		secrets:    secrets,
		secretName: secretName,
		newClient:  newClient,
		publisher:  pub,
		logger:     log,
	}
}

// Run executes one invocation: resolve credential, search, shape, publish,
// summarize. Partial publish failures reduce the published count but are
// not invocation failures; a batch with zero accepted records is.
func (o *Orchestrator) Run(ctx context.Context, req models.SearchRequest) (models.Summary, error) {
	var summary models.Summary

	// Request validation happens before any I/O.
	if err := req.Validate(); err != nil {
		return summary, err
	}

	apiKey, err := o.secrets.Fetch(ctx, o.secretName)
	if err != nil {
		return summary, fmt.Errorf("credential resolution failed: %w", err)
	}

	client, err := o.newClient(apiKey)
	if err != nil {
		return summary, fmt.Errorf("search client setup failed: %w", err)
	}

	raw, err := client.Search(ctx, req.SearchTerm, req.DateFromTime())
	if err != nil {
		return summary, fmt.Errorf("search failed: %w", err)
	}

	summary.ArticlesFound = len(raw)

	articles, dropped := shaper.Shape(raw)
	if dropped > 0 {
		o.logger.Warn("dropped malformed search results", "dropped", dropped, "found", summary.ArticlesFound)
	}

	if len(articles) == 0 {
		return summary, nil
	}

	outcomes := o.publisher.Publish(ctx, articles)
	summary.ArticlesPublished = publisher.CountSuccesses(outcomes)

	if summary.ArticlesPublished == 0 {
		return summary, fmt.Errorf("%w: %v", publisher.ErrTotalFailure, firstFailure(outcomes))
	}

	if summary.ArticlesPublished < len(articles) {
		o.logger.Warn("partial publish failure",
			"published", summary.ArticlesPublished,
			"failed", len(articles)-summary.ArticlesPublished)
	}

	o.logger.Info("invocation complete",
		"found", summary.ArticlesFound,
		"published", summary.ArticlesPublished)

	return summary, nil
}

func firstFailure(outcomes []models.PublishOutcome) error {
	for _, o := range outcomes {
		if o.Err != nil {
			return o.Err
		}
	}

	return nil
}
