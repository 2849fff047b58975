// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/z5labs/contract/route"
)

// HttpResponseWriter is implemented by errors which write their own HTTP response.
type HttpResponseWriter interface {
	WriteHttpResponse(context.Context, http.ResponseWriter)
}

// ErrorHandler handles errors that occur during request processing.
// Custom error handlers can be configured per route using [OnError].
type ErrorHandler interface {
	OnError(context.Context, http.ResponseWriter, error)
}

// ErrorHandlerFunc is a function adapter that implements [ErrorHandler].
type ErrorHandlerFunc func(context.Context, http.ResponseWriter, error)

func (f ErrorHandlerFunc) OnError(ctx context.Context, w http.ResponseWriter, err error) {
	f(ctx, w, err)
}

func defaultErrorHandler(h slog.Handler) ErrorHandlerFunc {
	log := slog.New(h)

	return func(ctx context.Context, w http.ResponseWriter, err error) {
		log.ErrorContext(ctx, "sending error response", slog.Any("error", err))

		if hrw, ok := err.(HttpResponseWriter); ok {
			hrw.WriteHttpResponse(ctx, w)
			return
		}

		w.WriteHeader(http.StatusInternalServerError)
	}
}

// BadRequestError is returned when the incoming request does not
// satisfy the route's variables schema.
type BadRequestError struct {
	Cause error
}

func (e BadRequestError) Error() string {
	return fmt.Sprintf("bad request error: %v", e.Cause)
}

// Unwrap returns the underlying cause of the bad request.
func (e BadRequestError) Unwrap() error {
	return e.Cause
}

// Message describes the rejected input without the error prefixes.
func (e BadRequestError) Message() string {
	var vve route.VariablesValidationError
	if errors.As(e.Cause, &vve) {
		if len(vve.Path) == 0 {
			return vve.Message
		}
		return strings.Join(vve.Path, ".") + " " + vve.Message
	}
	var ije InvalidJSONError
	if errors.As(e.Cause, &ije) {
		return ije.Error()
	}
	return http.StatusText(http.StatusBadRequest)
}

type badRequestBody struct {
	StatusCode int    `json:"statusCode"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

// WriteHttpResponse implements [HttpResponseWriter].
//
// Example body:
//
//	{"statusCode":400,"error":"Bad Request","message":"body.user_name expected string, received int"}
func (e BadRequestError) WriteHttpResponse(ctx context.Context, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(badRequestBody{
		StatusCode: http.StatusBadRequest,
		Error:      http.StatusText(http.StatusBadRequest),
		Message:    e.Message(),
	})
}

// InvalidJSONError is the cause of a [BadRequestError] when the
// request body is not valid JSON.
type InvalidJSONError struct {
	Cause error
}

func (e InvalidJSONError) Error() string {
	return fmt.Sprintf("body is not valid JSON: %v", e.Cause)
}

func (e InvalidJSONError) Unwrap() error {
	return e.Cause
}

// UndeclaredResponseStatusError is returned when a [Handler] replies
// with a status the route declares no response for.
type UndeclaredResponseStatusError struct {
	Status int
}

func (e UndeclaredResponseStatusError) Error() string {
	return fmt.Sprintf("no response declared for the status %d", e.Status)
}
