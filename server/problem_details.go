// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/z5labs/contract"
)

// ProblemDetail represents an RFC 7807 Problem Details error response.
// Embed it in custom error types to add extension fields.
//
// Example:
//
//	type GameFullError struct {
//	    server.ProblemDetail
//	    Players int `json:"players"`
//	}
//
// Reference: https://www.rfc-editor.org/rfc/rfc7807
type ProblemDetail struct {
	// Type is a URI reference that identifies the problem type.
	Type string `json:"type"`

	// Title is a short, human-readable summary of the problem type.
	Title string `json:"title"`

	// Status is the HTTP status code for this occurrence of the problem.
	Status int `json:"status"`

	// Detail is a human-readable explanation specific to this occurrence.
	Detail string `json:"detail,omitempty"`

	// Instance is a URI reference that identifies the specific occurrence.
	Instance string `json:"instance,omitempty"`
}

// Error returns Detail if present, otherwise Title.
func (p ProblemDetail) Error() string {
	if p.Detail != "" {
		return p.Detail
	}
	return p.Title
}

type problemDetailMarker interface {
	statusCode() int
}

func (p ProblemDetail) statusCode() int {
	return p.Status
}

// ProblemDetailsErrorHandler is an [ErrorHandler] that returns RFC 7807 Problem Details responses.
//
// Errors are rendered in three tiers:
//  1. Errors embedding [ProblemDetail] are marshaled as is, extension fields included
//  2. A [BadRequestError] becomes a 400 problem carrying the rejected input message
//  3. Anything else becomes a 500 problem with a fixed detail message
type ProblemDetailsErrorHandler struct {
	defaultType string
	log         *slog.Logger
}

// ProblemDetailsOption configures a [ProblemDetailsErrorHandler].
type ProblemDetailsOption func(*ProblemDetailsErrorHandler)

// WithDefaultType sets the base type URI of problems. Defaults to "about:blank".
// A custom base like "https://api.example.com/problems/" gets the problem
// identifier appended, e.g. "https://api.example.com/problems/invalid-variables".
func WithDefaultType(uri string) ProblemDetailsOption {
	return func(h *ProblemDetailsErrorHandler) {
		h.defaultType = uri
	}
}

// NewProblemDetailsErrorHandler creates a new Problem Details error handler.
//
// Example:
//
//	server.Route(createGame, h, server.OnError(server.NewProblemDetailsErrorHandler()))
func NewProblemDetailsErrorHandler(opts ...ProblemDetailsOption) *ProblemDetailsErrorHandler {
	h := &ProblemDetailsErrorHandler{
		defaultType: "about:blank",
		log:         contract.Logger(instrumentationName),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// OnError implements the [ErrorHandler] interface.
func (h *ProblemDetailsErrorHandler) OnError(ctx context.Context, w http.ResponseWriter, err error) {
	h.log.ErrorContext(ctx, "sending error response", slog.Any("error", err))

	var body any
	var status int
	if pd, ok := err.(problemDetailMarker); ok {
		body = err
		status = pd.statusCode()
	} else {
		problem := h.convert(err)
		body = problem
		status = problem.Status
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	encodeErr := json.NewEncoder(w).Encode(body)
	if encodeErr != nil {
		h.log.ErrorContext(ctx, "failed to encode problem details", slog.Any("error", encodeErr))
	}
}

func (h *ProblemDetailsErrorHandler) convert(err error) ProblemDetail {
	var badRequest BadRequestError
	if !errors.As(err, &badRequest) {
		return ProblemDetail{
			Type:   h.typeURI("internal-error"),
			Title:  "Internal Server Error",
			Status: http.StatusInternalServerError,
			Detail: "An internal server error occurred.",
		}
	}

	problem := ProblemDetail{
		Type:   h.typeURI("bad-request"),
		Title:  "Bad Request",
		Status: http.StatusBadRequest,
		Detail: badRequest.Message(),
	}

	var invalidJSON InvalidJSONError
	if errors.As(badRequest.Cause, &invalidJSON) {
		problem.Type = h.typeURI("invalid-json")
		problem.Title = "Invalid JSON"
		return problem
	}

	problem.Type = h.typeURI("invalid-variables")
	problem.Title = "Invalid Variables"
	return problem
}

func (h *ProblemDetailsErrorHandler) typeURI(problemType string) string {
	if h.defaultType == "about:blank" {
		return h.defaultType
	}
	return h.defaultType + problemType
}
