// Package guardian queries The Guardian's Open Platform search API.
package guardian

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sxnfer/guardian-content-stream/internal/logger"
	"github.com/sxnfer/guardian-content-stream/internal/models"
)

// Search client errors.
var (
	ErrEmptyAPIKey         = errors.New("API key must not be empty")
	ErrEmptySearchTerm     = errors.New("search term must not be empty")
	ErrRateLimited         = errors.New("search API rate limit exceeded")
	ErrUpstreamUnavailable = errors.New("search API unavailable")
	ErrUpstreamProtocol    = errors.New("search API returned an unexpected response shape")
)

// DefaultBaseURL is the Guardian content search endpoint.
const DefaultBaseURL = "https://content.guardianapis.com/search"

// PageSize caps how many results one search returns.
const PageSize = 10

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 1 << 20

// RawItem is one search result as returned by the API, before shaping.
type RawItem struct {
	WebPublicationDate string `json:"webPublicationDate"`
	WebTitle           string `json:"webTitle"`
	WebURL             string `json:"webUrl"`
}

// searchResponse mirrors the envelope the API wraps results in. The
// Response pointer distinguishes a missing envelope from an empty one.
type searchResponse struct {
	Response *struct {
		Results []RawItem `json:"results"`
	} `json:"response"`
}

// Client issues search requests against the Guardian API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates a search client with the default endpoint and a 10s
// HTTP timeout.
func NewClient(apiKey string, log *logger.Logger) (*Client, error) {
	return NewClientWithDeps(apiKey, DefaultBaseURL, &http.Client{Timeout: 10 * time.Second}, log)
}

// NewClientWithDeps creates a search client with injected endpoint and HTTP
// client (useful for testing).
func NewClientWithDeps(apiKey, baseURL string, httpClient *http.Client, log *logger.Logger) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrEmptyAPIKey
	}

	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     log,
	}, nil
}

// Search issues exactly one request for articles matching term, newest
// first, capped at PageSize. A zero dateFrom applies no lower bound.
// No retry happens at this layer.
func (c *Client) Search(ctx context.Context, term string, dateFrom time.Time) ([]RawItem, error) {
	if strings.TrimSpace(term) == "" {
		return nil, ErrEmptySearchTerm
	}

	params := url.Values{}
	params.Set("api-key", c.apiKey)
	params.Set("q", term)
	params.Set("page-size", strconv.Itoa(PageSize))
	params.Set("order-by", "newest")

	if !dateFrom.IsZero() {
		params.Set("from-date", dateFrom.Format(models.DateFromLayout))
	}

	reqURL := c.baseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUpstreamUnavailable, c.redact(err.Error()))
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUpstreamUnavailable, c.redact(err.Error()))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Response bodies of failed calls are dropped, not echoed.
		return nil, fmt.Errorf("%w: status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUpstreamUnavailable, c.redact(err.Error()))
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUpstreamProtocol, c.redact(err.Error()))
	}

	if parsed.Response == nil {
		return nil, fmt.Errorf("%w: missing response envelope", ErrUpstreamProtocol)
	}

	results := parsed.Response.Results
	if len(results) > PageSize {
		results = results[:PageSize]
	}

	if c.logger != nil {
		c.logger.Debug("search completed", "term", term, "results", len(results))
	}

	return results, nil
}

// redact strips the API key from any message that might echo a request URL.
func (c *Client) redact(msg string) string {
	msg = strings.ReplaceAll(msg, c.apiKey, "REDACTED")
	msg = strings.ReplaceAll(msg, url.QueryEscape(c.apiKey), "REDACTED")

	return msg
}
