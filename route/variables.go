// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package route

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/swaggest/jsonschema-go"
	"github.com/z5labs/contract/schema"
)

// Variables declares where each logical input of a route lives.
// It is handed to [Definition.Variables] while the route is resolved.
//
// Every method takes the logical key of the input within the variables
// value. An empty key binds the whole variables value and must then be
// the only binding.
type Variables struct {
	bindings

	path PathItems
	raw  bool
}

// Field binds key to the body field name.
func (v *Variables) Field(key, name string, s schema.Schema) {
	v.add(Binding{Key: key, Location: InBody, Name: name, Schema: s})
}

// Body binds key to the whole JSON body.
func (v *Variables) Body(key string, s schema.Schema) {
	v.add(Binding{Key: key, Location: InBody, Schema: s})
}

// RawBody binds key to the whole body sent as text, bypassing JSON.
// The schema must be string based.
func (v *Variables) RawBody(key string, s schema.Schema) {
	if s != nil && s.Kind() != schema.KindString {
		v.fail(InvalidRawBodySchemaError{Key: key, Kind: s.Kind()})
		return
	}
	if v.add(Binding{Key: key, Location: InBody, Schema: s}) {
		v.raw = true
	}
}

// Header binds key to the header name. Names are matched case insensitively.
func (v *Variables) Header(key, name string, s schema.Schema) {
	v.add(Binding{Key: key, Location: InHeaders, Name: strings.ToLower(name), Schema: coerce(s)})
}

// Query binds key to the query parameter name.
func (v *Variables) Query(key, name string, s schema.Schema) {
	v.add(Binding{Key: key, Location: InQuery, Name: name, Schema: coerce(s)})
}

// Param binds key to the path parameter name, which
// must appear as {name} in the route path.
func (v *Variables) Param(key, name string, s schema.Schema) {
	if !v.path.HasParam(name) {
		v.fail(UndeclaredPathParamError{Param: name})
		return
	}
	v.add(Binding{Key: key, Location: InParams, Name: name, Schema: coerce(s)})
}

// Auth binds key to the token of the authorization header.
func (v *Variables) Auth(key string, scheme schema.AuthScheme) {
	s, err := schema.Auth(scheme)
	if err != nil {
		v.fail(err)
		return
	}
	v.add(Binding{Key: key, Location: InHeaders, Name: "authorization", Schema: s})
}

func coerce(s schema.Schema) schema.Schema {
	if s == nil {
		return nil
	}
	return schema.Coerce(s)
}

func (v *Variables) build() (*VariablesSchema, error) {
	if v.err != nil {
		return nil, v.err
	}
	return &VariablesSchema{bindings: v.list, raw: v.raw}, nil
}

// VariablesSchema is the composed, bidirectional schema of a route's variables.
type VariablesSchema struct {
	bindings []Binding
	raw      bool
}

// Bindings returns the declared bindings in declaration order.
func (vs *VariablesSchema) Bindings() []Binding {
	return vs.bindings
}

// RawBody reports whether the body is sent as text instead of JSON.
func (vs *VariablesSchema) RawBody() bool {
	return vs.raw
}

// BodySchema describes the request body, if the route has one.
func (vs *VariablesSchema) BodySchema() (jsonschema.Schema, bool) {
	return sectionSchema(vs.bindings, InBody)
}

// Parts is a serialized variables value split into its HTTP sections.
// Body is a map whenever a body field is bound.
type Parts struct {
	Body    any
	Headers []Field
	Query   []Field
	Params  map[string]string
}

// Serialize converts a variables value into its transport parts.
func (vs *VariablesSchema) Serialize(v any) (*Parts, error) {
	parts := &Parts{}

	var body map[string]any
	for _, b := range vs.bindings {
		if b.Location == InBody && !b.Whole() {
			body = make(map[string]any)
			parts.Body = body
			break
		}
	}

	err := serializeAll(vs.bindings, v, func(b Binding, x any) {
		switch b.Location {
		case InBody:
			if b.Whole() {
				parts.Body = x
				return
			}
			body[b.Name] = x
		case InHeaders:
			parts.Headers = append(parts.Headers, Field{Name: b.Name, Value: x})
		case InQuery:
			parts.Query = append(parts.Query, Field{Name: b.Name, Value: x})
		case InParams:
			if parts.Params == nil {
				parts.Params = make(map[string]string)
			}
			parts.Params[b.Name] = Stringify(x)
		}
	})
	if err != nil {
		path, msg := fromSchemaError(err)
		return nil, VariablesValidationError{Path: path, Message: msg, Cause: err}
	}
	return parts, nil
}

// Input is an incoming request split into its HTTP sections.
// Body is the decoded JSON body, or the text of a raw body.
type Input struct {
	Body    any
	Headers http.Header
	Query   url.Values
	Params  map[string]string
}

// Parse converts an incoming request into the variables value.
func (vs *VariablesSchema) Parse(in Input) (any, error) {
	body := &sectionReader{value: in.Body}
	v, err := parseAll(vs.bindings, func(b Binding) (any, error) {
		switch b.Location {
		case InBody:
			return body.read(b)
		case InHeaders:
			return headerValue(in.Headers, b.Name), nil
		case InQuery:
			return queryValue(in.Query, b.Name), nil
		case InParams:
			p, ok := in.Params[b.Name]
			if !ok {
				return nil, nil
			}
			return p, nil
		}
		return nil, nil
	})
	if err != nil {
		path, msg := fromSchemaError(err)
		return nil, VariablesValidationError{Path: path, Message: msg, Cause: err}
	}
	return v, nil
}
