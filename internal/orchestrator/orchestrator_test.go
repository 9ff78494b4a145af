package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sxnfer/guardian-content-stream/internal/guardian"
	"github.com/sxnfer/guardian-content-stream/internal/logger"
	"github.com/sxnfer/guardian-content-stream/internal/models"
	"github.com/sxnfer/guardian-content-stream/internal/publisher"
	"github.com/sxnfer/guardian-content-stream/internal/secrets"
)

type fakeSecrets struct {
	value string
	err   error
	calls int
}

func (f *fakeSecrets) Fetch(ctx context.Context, name string) (string, error) {
	f.calls++

	if f.err != nil {
		return "", f.err
	}

	return f.value, nil
}

type fakeSearch struct {
	items    []guardian.RawItem
	err      error
	calls    int
	gotTerm  string
	gotDate  time.Time
	gotKey   string
}

func (f *fakeSearch) Search(ctx context.Context, term string, dateFrom time.Time) ([]guardian.RawItem, error) {
	f.calls++
	f.gotTerm = term
	f.gotDate = dateFrom

	if f.err != nil {
		return nil, f.err
	}

	return f.items, nil
}

// fakePublisher fails records whose URL appears in failURLs.
type fakePublisher struct {
	failURLs map[string]bool
	calls    int
}

func (f *fakePublisher) Publish(ctx context.Context, articles []models.Article) []models.PublishOutcome {
	f.calls++

	outcomes := make([]models.PublishOutcome, len(articles))
	for i, a := range articles {
		outcomes[i] = models.PublishOutcome{Article: a, Attempts: 1, SequenceNumber: "1", ShardID: "shardId-0"}
		if f.failURLs[a.WebURL] {
			outcomes[i] = models.PublishOutcome{Article: a, Attempts: 3, Err: errors.New("throughput exceeded")}
		}
	}

	return outcomes
}

func rawItems(n int) []guardian.RawItem {
	items := make([]guardian.RawItem, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, guardian.RawItem{
			WebPublicationDate: "2024-03-01T10:00:00Z",
			WebTitle:           fmt.Sprintf("Article %d", i),
			WebURL:             fmt.Sprintf("https://www.theguardian.com/article-%d", i),
		})
	}

	return items
}

// Helper wiring an orchestrator around fakes.
func newTestOrchestrator(t *testing.T, sec *fakeSecrets, search *fakeSearch, pub *fakePublisher) *Orchestrator {
	t.Helper()

	factory := func(apiKey string) (SearchClient, error) {
		search.gotKey = apiKey

		return search, nil
	}

	return New(sec, "guardian/api-key", factory, pub, logger.NewLogger("error", "text"))
}

func TestRun_FullPipeline(t *testing.T) {
	sec := &fakeSecrets{value: "api-key-value"}
	search := &fakeSearch{items: rawItems(10)}
	pub := &fakePublisher{}

	orch := newTestOrchestrator(t, sec, search, pub)

	summary, err := orch.Run(context.Background(), models.SearchRequest{SearchTerm: "climate change"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.ArticlesFound != 10 || summary.ArticlesPublished != 10 {
		t.Errorf("Expected 10/10, got %d/%d", summary.ArticlesFound, summary.ArticlesPublished)
	}

	if search.gotKey != "api-key-value" {
		t.Errorf("Expected resolved credential handed to client factory, got %q", search.gotKey)
	}

	if search.gotTerm != "climate change" {
		t.Errorf("Expected search term forwarded, got %q", search.gotTerm)
	}
}

func TestRun_DateFilterForwarded(t *testing.T) {
	sec := &fakeSecrets{value: "k"}
	search := &fakeSearch{items: rawItems(1)}
	pub := &fakePublisher{}

	orch := newTestOrchestrator(t, sec, search, pub)

	_, err := orch.Run(context.Background(), models.SearchRequest{SearchTerm: "x", DateFrom: "2024-01-15"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	if !search.gotDate.Equal(want) {
		t.Errorf("Expected date filter %v, got %v", want, search.gotDate)
	}
}

func TestRun_InvalidRequest_NoIO(t *testing.T) {
	tests := []struct {
		name    string
		req     models.SearchRequest
		wantErr error
	}{
		{name: "Empty term", req: models.SearchRequest{SearchTerm: ""}, wantErr: models.ErrEmptySearchTerm},
		{name: "Whitespace term", req: models.SearchRequest{SearchTerm: "  "}, wantErr: models.ErrEmptySearchTerm},
		{name: "Bad date", req: models.SearchRequest{SearchTerm: "x", DateFrom: "01/02/2024"}, wantErr: models.ErrInvalidDateFrom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sec := &fakeSecrets{value: "k"}
			search := &fakeSearch{}
			pub := &fakePublisher{}

			orch := newTestOrchestrator(t, sec, search, pub)

			if _, err := orch.Run(context.Background(), tt.req); !errors.Is(err, tt.wantErr) {
				t.Fatalf("Expected %v, got %v", tt.wantErr, err)
			}

			if sec.calls != 0 || search.calls != 0 || pub.calls != 0 {
				t.Errorf("Expected zero I/O, got secrets=%d search=%d publish=%d", sec.calls, search.calls, pub.calls)
			}
		})
	}
}

func TestRun_SecretMissing_NoSearchCall(t *testing.T) {
	sec := &fakeSecrets{err: fmt.Errorf("%w: guardian/api-key", secrets.ErrSecretNotFound)}
	search := &fakeSearch{items: rawItems(3)}
	pub := &fakePublisher{}

	orch := newTestOrchestrator(t, sec, search, pub)

	_, err := orch.Run(context.Background(), models.SearchRequest{SearchTerm: "x"})
	if !errors.Is(err, secrets.ErrSecretNotFound) {
		t.Fatalf("Expected ErrSecretNotFound, got %v", err)
	}

	if search.calls != 0 {
		t.Errorf("Expected zero search calls, got %d", search.calls)
	}
}

func TestRun_SearchFailureAborts(t *testing.T) {
	sec := &fakeSecrets{value: "k"}
	search := &fakeSearch{err: fmt.Errorf("%w: status 500", guardian.ErrUpstreamUnavailable)}
	pub := &fakePublisher{}

	orch := newTestOrchestrator(t, sec, search, pub)

	_, err := orch.Run(context.Background(), models.SearchRequest{SearchTerm: "x"})
	if !errors.Is(err, guardian.ErrUpstreamUnavailable) {
		t.Fatalf("Expected ErrUpstreamUnavailable, got %v", err)
	}

	if pub.calls != 0 {
		t.Errorf("Expected zero publish calls, got %d", pub.calls)
	}
}

func TestRun_NoResults_NoPublishCall(t *testing.T) {
	sec := &fakeSecrets{value: "k"}
	search := &fakeSearch{items: nil}
	pub := &fakePublisher{}

	orch := newTestOrchestrator(t, sec, search, pub)

	summary, err := orch.Run(context.Background(), models.SearchRequest{SearchTerm: "x", DateFrom: "2099-01-01"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.ArticlesFound != 0 || summary.ArticlesPublished != 0 {
		t.Errorf("Expected 0/0, got %d/%d", summary.ArticlesFound, summary.ArticlesPublished)
	}

	if pub.calls != 0 {
		t.Errorf("Expected zero publish calls, got %d", pub.calls)
	}
}

func TestRun_MalformedItemsLowerPublishedOnly(t *testing.T) {
	items := rawItems(9)
	items = append(items, guardian.RawItem{WebTitle: "no date or url"})

	sec := &fakeSecrets{value: "k"}
	search := &fakeSearch{items: items}
	pub := &fakePublisher{}

	orch := newTestOrchestrator(t, sec, search, pub)

	summary, err := orch.Run(context.Background(), models.SearchRequest{SearchTerm: "x"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.ArticlesFound != 10 {
		t.Errorf("Expected articles_found to count raw results (10), got %d", summary.ArticlesFound)
	}

	if summary.ArticlesPublished != 9 {
		t.Errorf("Expected 9 published, got %d", summary.ArticlesPublished)
	}
}

func TestRun_PartialPublishFailureIsSuccess(t *testing.T) {
	sec := &fakeSecrets{value: "k"}
	search := &fakeSearch{items: rawItems(5)}
	pub := &fakePublisher{failURLs: map[string]bool{"https://www.theguardian.com/article-2": true}}

	orch := newTestOrchestrator(t, sec, search, pub)

	summary, err := orch.Run(context.Background(), models.SearchRequest{SearchTerm: "x"})
	if err != nil {
		t.Fatalf("Expected partial failure to be success, got %v", err)
	}

	if summary.ArticlesFound != 5 || summary.ArticlesPublished != 4 {
		t.Errorf("Expected 5/4, got %d/%d", summary.ArticlesFound, summary.ArticlesPublished)
	}
}

func TestRun_TotalPublishFailureIsFatal(t *testing.T) {
	failAll := map[string]bool{}
	for i := 0; i < 3; i++ {
		failAll[fmt.Sprintf("https://www.theguardian.com/article-%d", i)] = true
	}

	sec := &fakeSecrets{value: "k"}
	search := &fakeSearch{items: rawItems(3)}
	pub := &fakePublisher{failURLs: failAll}

	orch := newTestOrchestrator(t, sec, search, pub)

	_, err := orch.Run(context.Background(), models.SearchRequest{SearchTerm: "x"})
	if !errors.Is(err, publisher.ErrTotalFailure) {
		t.Fatalf("Expected ErrTotalFailure, got %v", err)
	}
}
