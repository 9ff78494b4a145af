// Package handler maps invocation events to pipeline runs and results.
//
// This is the single sanitizing boundary: every error kind is translated to
// a fixed, generic message here, so credential material and raw upstream
// bodies can never reach the caller.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sxnfer/guardian-content-stream/internal/guardian"
	"github.com/sxnfer/guardian-content-stream/internal/logger"
	"github.com/sxnfer/guardian-content-stream/internal/models"
	"github.com/sxnfer/guardian-content-stream/internal/publisher"
	"github.com/sxnfer/guardian-content-stream/internal/secrets"
)

// Event is the invocation input.
type Event struct {
	SearchTerm string `json:"search_term"`
	DateFrom   string `json:"date_from,omitempty"`

	// badTypes marks fields that arrived with a non-string type, so the
	// invocation gets a 400 instead of a runtime deserialization error.
	badTypes bool
}

// UnmarshalJSON tolerates wrongly-typed fields rather than failing the
// whole invocation at the runtime boundary.
func (e *Event) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if v, ok := raw["search_term"]; ok {
		if s, ok := v.(string); ok {
			e.SearchTerm = s
		} else {
			e.badTypes = true
		}
	}

	if v, ok := raw["date_from"]; ok && v != nil {
		if s, ok := v.(string); ok {
			e.DateFrom = s
		} else {
			e.badTypes = true
		}
	}

	return nil
}

// Response is the API Gateway style invocation output. Body is a JSON
// document serialized to a string.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// Runner executes one pipeline invocation.
type Runner interface {
	Run(ctx context.Context, req models.SearchRequest) (models.Summary, error)
}

// Handler turns events into responses.
type Handler struct {
	runner  Runner
	initErr error
	logger  *logger.Logger
}

// New creates a handler around a pipeline runner.
func New(runner Runner, log *logger.Logger) *Handler {
	return &Handler{runner: runner, logger: log}
}

// NewWithInitError creates a handler that reports a cold-start failure on
// every invocation instead of crashing the runtime.
func NewWithInitError(err error, log *logger.Logger) *Handler {
	return &Handler{initErr: err, logger: log}
}

// Handle processes one invocation event.
func (h *Handler) Handle(ctx context.Context, event Event) (Response, error) {
	if h.initErr != nil {
		h.logger.Error("invocation rejected: initialization failed", "error", h.initErr.Error())

		return errorResponse(http.StatusInternalServerError, "Service configuration error"), nil
	}

	if event.badTypes {
		return errorResponse(http.StatusBadRequest, "search_term and date_from must be strings"), nil
	}

	req := models.SearchRequest{
		SearchTerm: event.SearchTerm,
		DateFrom:   event.DateFrom,
	}

	if err := req.Validate(); err != nil {
		return h.mapError(err), nil
	}

	summary, err := h.runner.Run(ctx, req)
	if err != nil {
		return h.mapError(err), nil
	}

	body, err := json.Marshal(summary)
	if err != nil {
		return errorResponse(http.StatusInternalServerError, "Internal server error"), nil
	}

	return Response{StatusCode: http.StatusOK, Body: string(body)}, nil
}

// mapError translates an error kind to a status code and a generic message.
// Messages are fixed strings on purpose; the underlying error is logged,
// never returned.
func (h *Handler) mapError(err error) Response {
	h.logger.Error("invocation failed", "error", err.Error())

	switch {
	case errors.Is(err, models.ErrEmptySearchTerm) || errors.Is(err, guardian.ErrEmptySearchTerm):
		return errorResponse(http.StatusBadRequest, "search_term is required")
	case errors.Is(err, models.ErrInvalidDateFrom):
		return errorResponse(http.StatusBadRequest, "Invalid date format. Use YYYY-MM-DD.")
	case errors.Is(err, secrets.ErrSecretNotFound),
		errors.Is(err, secrets.ErrSecretUnavailable),
		errors.Is(err, secrets.ErrEmptySecretValue),
		errors.Is(err, secrets.ErrEmptySecretName),
		errors.Is(err, guardian.ErrEmptyAPIKey):
		return errorResponse(http.StatusInternalServerError, "Credential unavailable")
	case errors.Is(err, guardian.ErrRateLimited):
		return errorResponse(http.StatusTooManyRequests, "Rate limit exceeded")
	case errors.Is(err, guardian.ErrUpstreamUnavailable):
		return errorResponse(http.StatusServiceUnavailable, "Search API unavailable")
	case errors.Is(err, guardian.ErrUpstreamProtocol):
		return errorResponse(http.StatusInternalServerError, "Search API error")
	case errors.Is(err, publisher.ErrTotalFailure):
		return errorResponse(http.StatusInternalServerError, "Publishing failed")
	default:
		return errorResponse(http.StatusInternalServerError, "Internal server error")
	}
}

func errorResponse(statusCode int, message string) Response {
	body, _ := json.Marshal(map[string]string{"error": message})

	return Response{StatusCode: statusCode, Body: string(body)}
}
