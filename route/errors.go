// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package route

import (
	"errors"
	"fmt"
	"strings"

	"github.com/z5labs/contract/schema"
)

// Authoring errors are returned when a route is first resolved. They
// describe a mistake in the route declaration rather than a runtime condition.

var (
	// ErrNoResponsesDeclared is returned for a route without any responses.
	ErrNoResponsesDeclared = errors.New("route: no responses declared")

	// ErrMissingMethod is returned for a route without a method.
	ErrMissingMethod = errors.New("route: missing method")
)

// MalformedPathError is returned when a path template cannot be parsed.
type MalformedPathError struct {
	Path   string
	Reason string
}

// Error implements the [error] interface.
func (e MalformedPathError) Error() string {
	return fmt.Sprintf("malformed path %q: %s", e.Path, e.Reason)
}

// MissingPathParamError is returned when a path is built without
// a value for one of its parameters.
type MissingPathParamError struct {
	Param string
}

// Error implements the [error] interface.
func (e MissingPathParamError) Error() string {
	return fmt.Sprintf("missing value for path param: %s", e.Param)
}

// UndeclaredPathParamError is returned when a param binding names
// a parameter which is not part of the path template.
type UndeclaredPathParamError struct {
	Param string
}

// Error implements the [error] interface.
func (e UndeclaredPathParamError) Error() string {
	return fmt.Sprintf("path param is not declared in the path: %s", e.Param)
}

// InvalidRawBodySchemaError is returned when a raw body is bound
// to a schema which does not produce strings.
type InvalidRawBodySchemaError struct {
	Key  string
	Kind schema.Kind
}

// Error implements the [error] interface.
func (e InvalidRawBodySchemaError) Error() string {
	return fmt.Sprintf("raw body must use a string schema, received %s", e.Kind)
}

// InvalidBindingError is returned when a binding conflicts with
// a binding declared before it.
type InvalidBindingError struct {
	Key    string
	Reason string
}

// Error implements the [error] interface.
func (e InvalidBindingError) Error() string {
	return fmt.Sprintf("invalid binding for key %q: %s", e.Key, e.Reason)
}

// DuplicateResponseSelectorError is returned when two responses
// of a route are registered under the same selector.
type DuplicateResponseSelectorError struct {
	Selector Selector
}

// Error implements the [error] interface.
func (e DuplicateResponseSelectorError) Error() string {
	return fmt.Sprintf("response for the %q status registered multiple times", string(e.Selector))
}

// VariablesValidationError is returned when variables are rejected
// while serializing a request or parsing an incoming one.
type VariablesValidationError struct {
	Path    []string
	Message string
	Cause   error
}

// Error implements the [error] interface.
func (e VariablesValidationError) Error() string {
	return "invalid variables: " + formatPath(e.Path, e.Message)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e VariablesValidationError) Unwrap() error {
	return e.Cause
}

// ResponseValidationError is returned when a response is rejected by
// the response entry resolved for its status.
type ResponseValidationError struct {
	Status  int
	Path    []string
	Message string
	Cause   error
}

// Error implements the [error] interface.
func (e ResponseValidationError) Error() string {
	return fmt.Sprintf("invalid response for status %d: %s", e.Status, formatPath(e.Path, e.Message))
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e ResponseValidationError) Unwrap() error {
	return e.Cause
}

// UnhandledResponseStatusError is returned when no response entry
// matches the status of a response. Message carries the "message"
// field of the response body, if it had one.
type UnhandledResponseStatusError struct {
	Status  int
	Message string
}

// Error implements the [error] interface.
func (e UnhandledResponseStatusError) Error() string {
	msg := fmt.Sprintf("no registered responses for the status %q", fmt.Sprint(e.Status))
	if e.Message == "" {
		return msg
	}
	return msg + ": " + e.Message
}

func formatPath(path []string, message string) string {
	if len(path) == 0 {
		return message
	}
	return strings.Join(path, ".") + ": " + message
}

// fromSchemaError splits a schema failure into its path and message,
// prefixing the path with prefix.
func fromSchemaError(err error, prefix ...string) ([]string, string) {
	var se *schema.Error
	if !errors.As(err, &se) {
		return prefix, err.Error()
	}
	path := make([]string, 0, len(prefix)+len(se.Path))
	path = append(path, prefix...)
	path = append(path, se.Path...)
	return path, se.Message
}
