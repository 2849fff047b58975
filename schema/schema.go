// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package schema provides bidirectional codecs for the values carried by a route.
//
// A [Schema] parses transport values into typed values (server input and
// client output) and serializes typed values back into transport values
// (client input and server output). Every schema also describes itself as a
// JSON Schema so documentation is generated from the same source of truth.
//
// Typed values use the following Go representation:
//   - [String]: string
//   - [Int]: int64
//   - [Float]: float64
//   - [Bool]: bool
//   - [Array]: []any
//   - [Object]: map[string]any
package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/swaggest/jsonschema-go"
)

// Kind identifies the variant of a [Schema].
type Kind int

const (
	KindAny Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindLiteral
	KindArray
	KindObject
	KindUnion
)

var kindNames = [...]string{
	KindAny:     "any",
	KindString:  "string",
	KindInt:     "int",
	KindFloat:   "float",
	KindBool:    "bool",
	KindLiteral: "literal",
	KindArray:   "array",
	KindObject:  "object",
	KindUnion:   "union",
}

// String implements the [fmt.Stringer] interface.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Schema validates and converts a single value in both directions.
type Schema interface {
	Kind() Kind

	// Parse converts a transport value into its typed form.
	Parse(v any) (any, error)

	// Serialize converts a typed value into its transport form.
	Serialize(v any) (any, error)

	// JSONSchema describes the transport form of the value.
	JSONSchema() jsonschema.Schema
}

// Error is returned when a value is rejected by a [Schema].
// Path locates the offending value relative to the schema root.
type Error struct {
	Path    []string
	Message string
	Cause   error
}

// Error implements the [error] interface.
func (e *Error) Error() string {
	if len(e.Path) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", strings.Join(e.Path, "."), e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

func errorf(format string, args ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

func unexpected(want string, got any) *Error {
	return errorf("expected %s, received %s", want, describe(got))
}

// At prefixes the path of err with key. Non schema errors
// are wrapped into an [Error] rooted at key.
func At(key string, err error) *Error {
	var se *Error
	if errors.As(err, &se) {
		path := make([]string, 0, len(se.Path)+1)
		path = append(path, key)
		path = append(path, se.Path...)
		return &Error{Path: path, Message: se.Message, Cause: se.Cause}
	}
	return &Error{Path: []string{key}, Message: err.Error(), Cause: err}
}

func describe(v any) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", v)
}
