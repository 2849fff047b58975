// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package schema

import (
	"errors"
	"reflect"
	"strconv"

	"github.com/swaggest/jsonschema-go"
	"github.com/z5labs/contract/internal/mapping"
)

type literalSchema struct {
	value any
}

// Literal accepts exactly v. Numbers compare by value regardless of their Go type.
func Literal(v any) Schema {
	return &literalSchema{value: v}
}

// Kind implements the [Schema] interface.
func (s *literalSchema) Kind() Kind { return KindLiteral }

// Parse implements the [Schema] interface.
func (s *literalSchema) Parse(v any) (any, error) { return s.check(v) }

// Serialize implements the [Schema] interface.
func (s *literalSchema) Serialize(v any) (any, error) { return s.check(v) }

func (s *literalSchema) check(v any) (any, error) {
	v = indirect(v)
	if want, ok := toFloat(s.value); ok {
		got, ok := toFloat(v)
		if ok && got == want {
			return s.value, nil
		}
		return nil, errorf("expected literal %v, received %v", s.value, v)
	}
	if v == nil {
		if s.value == nil {
			return nil, nil
		}
	} else if reflect.TypeOf(v).Comparable() && v == s.value {
		return s.value, nil
	}
	return nil, errorf("expected literal %v, received %v", s.value, v)
}

// JSONSchema implements the [Schema] interface.
func (s *literalSchema) JSONSchema() jsonschema.Schema {
	var js jsonschema.Schema
	js.WithEnum(s.value)
	return js
}

type arraySchema struct {
	item Schema
}

// Array accepts slices whose every element satisfies item.
func Array(item Schema) Schema {
	return &arraySchema{item: item}
}

// Kind implements the [Schema] interface.
func (s *arraySchema) Kind() Kind { return KindArray }

// Parse implements the [Schema] interface.
func (s *arraySchema) Parse(v any) (any, error) { return s.each(v, s.item.Parse) }

// Serialize implements the [Schema] interface.
func (s *arraySchema) Serialize(v any) (any, error) { return s.each(v, s.item.Serialize) }

func (s *arraySchema) each(v any, f func(any) (any, error)) (any, error) {
	rv := reflect.ValueOf(indirect(v))
	if !rv.IsValid() || rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, unexpected("array", v)
	}

	out := make([]any, rv.Len())
	for i := range rv.Len() {
		x, err := f(rv.Index(i).Interface())
		if err != nil {
			return nil, At(strconv.Itoa(i), err)
		}
		out[i] = x
	}
	return out, nil
}

// JSONSchema implements the [Schema] interface.
func (s *arraySchema) JSONSchema() jsonschema.Schema {
	itemJS := s.item.JSONSchema()
	item := itemJS.ToSchemaOrBool()

	var js jsonschema.Schema
	js.WithType(jsonschema.Array.Type())
	js.WithItems(jsonschema.Items{SchemaOrBool: &item})
	return js
}

// Property is a named member of an [Object].
type Property struct {
	Name   string
	Schema Schema
}

// Prop declares an object property.
func Prop(name string, s Schema) Property {
	return Property{Name: name, Schema: s}
}

type objectSchema struct {
	props []Property
}

// Object accepts maps and structs. Structs are read through their json tags.
// Unknown keys are dropped and properties not wrapped in [Optional] are required.
func Object(props ...Property) Schema {
	return &objectSchema{props: props}
}

// Properties returns the declared properties in declaration order.
func (s *objectSchema) Properties() []Property {
	return s.props
}

// Kind implements the [Schema] interface.
func (s *objectSchema) Kind() Kind { return KindObject }

// Parse implements the [Schema] interface.
func (s *objectSchema) Parse(v any) (any, error) {
	return s.each(v, func(p Property, x any) (any, error) { return p.Schema.Parse(x) })
}

// Serialize implements the [Schema] interface.
func (s *objectSchema) Serialize(v any) (any, error) {
	return s.each(v, func(p Property, x any) (any, error) { return p.Schema.Serialize(x) })
}

func (s *objectSchema) each(v any, f func(Property, any) (any, error)) (any, error) {
	m, err := AsMap(v)
	if err != nil {
		return nil, err
	}

	out := make(map[string]any, len(s.props))
	for _, p := range s.props {
		x, err := f(p, m[p.Name])
		if err != nil {
			return nil, At(p.Name, err)
		}
		if x == nil && IsOptional(p.Schema) {
			continue
		}
		out[p.Name] = x
	}
	return out, nil
}

// JSONSchema implements the [Schema] interface.
func (s *objectSchema) JSONSchema() jsonschema.Schema {
	var js jsonschema.Schema
	js.WithType(jsonschema.Object.Type())

	var required []string
	for _, p := range s.props {
		propJS := p.Schema.JSONSchema()
		js.WithPropertiesItem(p.Name, propJS.ToSchemaOrBool())
		if !IsOptional(p.Schema) {
			required = append(required, p.Name)
		}
	}
	if len(required) > 0 {
		js.WithRequired(required...)
	}
	return js
}

// AsMap returns v as a map[string]any. Structs and maps of
// other types are converted using their json tags.
func AsMap(v any) (map[string]any, error) {
	v = indirect(v)
	if m, ok := v.(map[string]any); ok {
		return m, nil
	}

	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Map && rv.Kind() != reflect.Struct {
		return nil, unexpected("object", v)
	}
	m, err := mapping.ToMap(v)
	if err != nil {
		return nil, &Error{Message: "expected object, received " + describe(v), Cause: err}
	}
	return m, nil
}

type unionSchema struct {
	variants []Schema
}

// Union accepts the first variant which accepts the value.
func Union(variants ...Schema) Schema {
	return &unionSchema{variants: variants}
}

// Kind implements the [Schema] interface.
func (s *unionSchema) Kind() Kind { return KindUnion }

// Parse implements the [Schema] interface.
func (s *unionSchema) Parse(v any) (any, error) {
	return s.first(v, Schema.Parse)
}

// Serialize implements the [Schema] interface.
func (s *unionSchema) Serialize(v any) (any, error) {
	return s.first(v, Schema.Serialize)
}

func (s *unionSchema) first(v any, f func(Schema, any) (any, error)) (any, error) {
	errs := make([]error, 0, len(s.variants))
	for _, variant := range s.variants {
		x, err := f(variant, v)
		if err == nil {
			return x, nil
		}
		errs = append(errs, err)
	}
	return nil, &Error{
		Message: "no union variant matched " + describe(v),
		Cause:   errors.Join(errs...),
	}
}

// JSONSchema implements the [Schema] interface.
func (s *unionSchema) JSONSchema() jsonschema.Schema {
	variants := make([]jsonschema.SchemaOrBool, 0, len(s.variants))
	for _, variant := range s.variants {
		variantJS := variant.JSONSchema()
		variants = append(variants, variantJS.ToSchemaOrBool())
	}

	var js jsonschema.Schema
	js.WithAnyOf(variants...)
	return js
}

type anySchema struct{}

// Any accepts every value unchanged.
func Any() Schema {
	return anySchema{}
}

// Kind implements the [Schema] interface.
func (anySchema) Kind() Kind { return KindAny }

// Parse implements the [Schema] interface.
func (anySchema) Parse(v any) (any, error) { return v, nil }

// Serialize implements the [Schema] interface.
func (anySchema) Serialize(v any) (any, error) { return v, nil }

// JSONSchema implements the [Schema] interface.
func (anySchema) JSONSchema() jsonschema.Schema { return jsonschema.Schema{} }

// OptionalSchema lets a nil value through its inner schema.
type OptionalSchema struct {
	inner Schema
}

// Optional accepts nil in addition to every value s accepts.
// Object properties and route bindings omit nil optional values.
func Optional(s Schema) *OptionalSchema {
	if o, ok := s.(*OptionalSchema); ok {
		return o
	}
	return &OptionalSchema{inner: s}
}

// IsOptional reports whether s accepts nil.
func IsOptional(s Schema) bool {
	_, ok := s.(*OptionalSchema)
	return ok
}

// Unwrap returns the inner schema.
func (s *OptionalSchema) Unwrap() Schema { return s.inner }

// Kind implements the [Schema] interface.
func (s *OptionalSchema) Kind() Kind { return s.inner.Kind() }

// Parse implements the [Schema] interface.
func (s *OptionalSchema) Parse(v any) (any, error) {
	if indirect(v) == nil {
		return nil, nil
	}
	return s.inner.Parse(v)
}

// Serialize implements the [Schema] interface.
func (s *OptionalSchema) Serialize(v any) (any, error) {
	if indirect(v) == nil {
		return nil, nil
	}
	return s.inner.Serialize(v)
}

// JSONSchema implements the [Schema] interface.
func (s *OptionalSchema) JSONSchema() jsonschema.Schema { return s.inner.JSONSchema() }
