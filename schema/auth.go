// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package schema

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/swaggest/jsonschema-go"
)

// AuthScheme names an HTTP authorization scheme.
type AuthScheme string

const (
	Bearer AuthScheme = "Bearer"
	Basic  AuthScheme = "Basic"
)

// Valid reports whether the scheme is supported.
func (s AuthScheme) Valid() bool {
	return s == Bearer || s == Basic
}

// AuthFormatError is returned when an authorization value is not
// of the form "<Scheme> <token>" or the scheme is not supported.
type AuthFormatError struct {
	Scheme AuthScheme
}

// Error implements the [error] interface.
func (e AuthFormatError) Error() string {
	if !e.Scheme.Valid() {
		return fmt.Sprintf("unsupported authorization scheme: %q", string(e.Scheme))
	}
	return fmt.Sprintf("invalid authorization format: expected %q followed by a token", string(e.Scheme))
}

type authSchema struct {
	scheme AuthScheme
}

// Auth converts between an authorization header value and its token.
// Parse turns "Bearer abc" into "abc" and Serialize does the reverse.
//
// Auth returns an [AuthFormatError] when scheme is not supported.
func Auth(scheme AuthScheme) (Schema, error) {
	if !scheme.Valid() {
		return nil, AuthFormatError{Scheme: scheme}
	}
	return &authSchema{scheme: scheme}, nil
}

// Kind implements the [Schema] interface.
func (s *authSchema) Kind() Kind { return KindString }

// Parse implements the [Schema] interface.
func (s *authSchema) Parse(v any) (any, error) {
	str, ok := indirect(v).(string)
	if !ok {
		return nil, unexpected("string", v)
	}

	parts := strings.Split(str, " ")
	if len(parts) != 2 || parts[0] != string(s.scheme) {
		err := AuthFormatError{Scheme: s.scheme}
		return nil, &Error{Message: err.Error(), Cause: err}
	}
	return parts[1], nil
}

// Serialize implements the [Schema] interface.
func (s *authSchema) Serialize(v any) (any, error) {
	token, ok := indirect(v).(string)
	if !ok {
		return nil, unexpected("string", v)
	}
	return string(s.scheme) + " " + token, nil
}

// JSONSchema implements the [Schema] interface.
func (s *authSchema) JSONSchema() jsonschema.Schema {
	var js jsonschema.Schema
	js.WithType(jsonschema.String.Type())
	js.WithPattern("^" + regexp.QuoteMeta(string(s.scheme)) + " [^ ]*$")
	return js
}

// AuthSchemeOf returns the scheme of an [Auth] schema.
func AuthSchemeOf(s Schema) (AuthScheme, bool) {
	a, ok := s.(*authSchema)
	if !ok {
		return "", false
	}
	return a.scheme, true
}
