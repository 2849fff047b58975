// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package schema

import (
	"math"
	"strings"

	"github.com/spf13/cast"
	"github.com/swaggest/jsonschema-go"
)

type coercedSchema struct {
	inner Schema
}

// Coerce adapts s to values which arrive as text, such as headers,
// query parameters and path parameters.
//
// Only [Bool], [Int] and [Float] schemas, optionally wrapped by [Optional],
// are affected; any other schema is returned unchanged. A coerced schema
// turns "true" and "false" into booleans and finite numeric strings into
// numbers before parsing. Values which do not look like either are passed
// through untouched, so the inner schema reports the mismatch.
func Coerce(s Schema) Schema {
	if o, ok := s.(*OptionalSchema); ok {
		inner := Coerce(o.Unwrap())
		if inner == o.Unwrap() {
			return s
		}
		return Optional(inner)
	}
	if _, ok := s.(*coercedSchema); ok {
		return s
	}
	switch s.(type) {
	case *boolSchema, *intSchema, *floatSchema:
		return &coercedSchema{inner: s}
	}
	return s
}

// Kind implements the [Schema] interface.
func (s *coercedSchema) Kind() Kind { return s.inner.Kind() }

// Parse implements the [Schema] interface.
func (s *coercedSchema) Parse(v any) (any, error) {
	return s.inner.Parse(coerce(v))
}

// Serialize implements the [Schema] interface.
func (s *coercedSchema) Serialize(v any) (any, error) {
	return s.inner.Serialize(v)
}

// JSONSchema implements the [Schema] interface.
func (s *coercedSchema) JSONSchema() jsonschema.Schema {
	return s.inner.JSONSchema()
}

func coerce(v any) any {
	str, ok := v.(string)
	if !ok {
		return v
	}
	switch str {
	case "true":
		return true
	case "false":
		return false
	}

	trimmed := strings.TrimSpace(str)
	if trimmed == "" {
		return v
	}
	f, err := cast.ToFloat64E(trimmed)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return v
	}
	return f
}
