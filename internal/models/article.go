// Package models defines data structures shared across the ingestion pipeline.
package models

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Request validation errors.
var (
	ErrEmptySearchTerm = errors.New("search_term must not be empty")
	ErrInvalidDateFrom = errors.New("date_from must be a YYYY-MM-DD date")
)

// DateFromLayout is the accepted format for the optional date filter.
const DateFromLayout = "2006-01-02"

// Article represents one Guardian article in the three-field wire schema
// published to the stream.
type Article struct {
	WebPublicationDate time.Time `json:"webPublicationDate"`
	WebTitle           string    `json:"webTitle"`
	WebURL             string    `json:"webUrl"`
}

// MarshalJSON emits the publication date in RFC3339 UTC regardless of the
// zone the upstream response carried.
func (a Article) MarshalJSON() ([]byte, error) {
	type wire struct {
		WebPublicationDate string `json:"webPublicationDate"`
		WebTitle           string `json:"webTitle"`
		WebURL             string `json:"webUrl"`
	}

	return json.Marshal(wire{
		WebPublicationDate: a.WebPublicationDate.UTC().Format(time.RFC3339),
		WebTitle:           a.WebTitle,
		WebURL:             a.WebURL,
	})
}

// SearchRequest is the input contract for one invocation.
type SearchRequest struct {
	SearchTerm string `json:"search_term"`
	DateFrom   string `json:"date_from,omitempty"`
}

// Validate checks the request before any network call is made.
func (r SearchRequest) Validate() error {
	if strings.TrimSpace(r.SearchTerm) == "" {
		return ErrEmptySearchTerm
	}

	if r.DateFrom != "" {
		if _, err := time.Parse(DateFromLayout, r.DateFrom); err != nil {
			return ErrInvalidDateFrom
		}
	}

	return nil
}

// DateFromTime returns the parsed date filter, or the zero time when no
// filter was supplied. Validate must have been called first.
func (r SearchRequest) DateFromTime() time.Time {
	if r.DateFrom == "" {
		return time.Time{}
	}

	t, err := time.Parse(DateFromLayout, r.DateFrom)
	if err != nil {
		return time.Time{}
	}

	return t
}

// PublishOutcome records the result of publishing a single article.
type PublishOutcome struct {
	Article        Article
	ShardID        string
	SequenceNumber string
	Attempts       int
	Err            error
}

// Succeeded reports whether the record was accepted by the stream.
func (o PublishOutcome) Succeeded() bool {
	return o.Err == nil
}

// Summary is the per-invocation result reported to the caller.
type Summary struct {
	ArticlesFound     int `json:"articles_found"`
	ArticlesPublished int `json:"articles_published"`
}
