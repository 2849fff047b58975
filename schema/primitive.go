// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package schema

import (
	"encoding/json"
	"math"
	"reflect"
	"regexp"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/swaggest/jsonschema-go"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validator tags which map directly onto a JSON Schema format.
var jsonFormats = map[string]string{
	"email":    "email",
	"url":      "uri",
	"uri":      "uri",
	"hostname": "hostname",
	"ipv4":     "ipv4",
	"ipv6":     "ipv6",
	"uuid":     "uuid",
}

type options struct {
	description string
	minLength   *int
	maxLength   *int
	pattern     *regexp.Regexp
	format      string
	uuid        bool
	min         *float64
	max         *float64
}

// Option refines a primitive schema.
type Option func(*options)

// Description documents the value in the generated JSON Schema.
func Description(d string) Option {
	return func(o *options) {
		o.description = d
	}
}

// MinLength requires a string to have at least n characters.
func MinLength(n int) Option {
	return func(o *options) {
		o.minLength = &n
	}
}

// MaxLength requires a string to have at most n characters.
func MaxLength(n int) Option {
	return func(o *options) {
		o.maxLength = &n
	}
}

// Pattern requires a string to match re.
func Pattern(re *regexp.Regexp) Option {
	return func(o *options) {
		o.pattern = re
	}
}

// Format validates a string with a go-playground/validator tag.
//
// Example:
//
//	schema.String(schema.Format("email"))
//	schema.String(schema.Format("url,max=2048"))
func Format(tag string) Option {
	return func(o *options) {
		o.format = tag
	}
}

// UUID requires a string to be a valid UUID.
func UUID() Option {
	return func(o *options) {
		o.uuid = true
	}
}

// Min requires a number to be greater than or equal to f.
func Min(f float64) Option {
	return func(o *options) {
		o.min = &f
	}
}

// Max requires a number to be less than or equal to f.
func Max(f float64) Option {
	return func(o *options) {
		o.max = &f
	}
}

func newOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) describe(js *jsonschema.Schema) {
	if o.description != "" {
		js.WithDescription(o.description)
	}
}

func (o options) bounds(f float64) *Error {
	if o.min != nil && f < *o.min {
		return errorf("expected a number greater than or equal to %v, received %v", *o.min, f)
	}
	if o.max != nil && f > *o.max {
		return errorf("expected a number less than or equal to %v, received %v", *o.max, f)
	}
	return nil
}

func (o options) numberSchema(js *jsonschema.Schema) {
	if o.min != nil {
		js.WithMinimum(*o.min)
	}
	if o.max != nil {
		js.WithMaximum(*o.max)
	}
	o.describe(js)
}

// indirect dereferences pointers so typed values produced from
// structs (e.g. *string fields) are handled like their element.
func indirect(v any) any {
	rv := reflect.ValueOf(v)
	for rv.IsValid() && rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil
	}
	return rv.Interface()
}

type stringSchema struct {
	opts options
}

// String accepts strings.
func String(opts ...Option) Schema {
	return &stringSchema{opts: newOptions(opts)}
}

// Kind implements the [Schema] interface.
func (s *stringSchema) Kind() Kind { return KindString }

// Parse implements the [Schema] interface.
func (s *stringSchema) Parse(v any) (any, error) { return s.check(v) }

// Serialize implements the [Schema] interface.
func (s *stringSchema) Serialize(v any) (any, error) { return s.check(v) }

func (s *stringSchema) check(v any) (any, error) {
	rv := reflect.ValueOf(indirect(v))
	if !rv.IsValid() || rv.Kind() != reflect.String {
		return nil, unexpected("string", v)
	}
	str := rv.String()

	n := utf8.RuneCountInString(str)
	if s.opts.minLength != nil && n < *s.opts.minLength {
		return nil, errorf("expected at least %d characters, received %d", *s.opts.minLength, n)
	}
	if s.opts.maxLength != nil && n > *s.opts.maxLength {
		return nil, errorf("expected at most %d characters, received %d", *s.opts.maxLength, n)
	}
	if s.opts.pattern != nil && !s.opts.pattern.MatchString(str) {
		return nil, errorf("expected a string matching %q", s.opts.pattern.String())
	}
	if s.opts.uuid {
		if _, err := uuid.Parse(str); err != nil {
			return nil, &Error{Message: "expected a UUID", Cause: err}
		}
	}
	if s.opts.format != "" {
		if err := validate.Var(str, s.opts.format); err != nil {
			return nil, &Error{
				Message: "expected a string satisfying " + s.opts.format,
				Cause:   err,
			}
		}
	}
	return str, nil
}

// JSONSchema implements the [Schema] interface.
func (s *stringSchema) JSONSchema() jsonschema.Schema {
	var js jsonschema.Schema
	js.WithType(jsonschema.String.Type())
	if s.opts.minLength != nil {
		js.WithMinLength(int64(*s.opts.minLength))
	}
	if s.opts.maxLength != nil {
		js.WithMaxLength(int64(*s.opts.maxLength))
	}
	if s.opts.pattern != nil {
		js.WithPattern(s.opts.pattern.String())
	}
	if s.opts.uuid {
		js.WithFormat("uuid")
	} else if f, ok := jsonFormats[s.opts.format]; ok {
		js.WithFormat(f)
	}
	s.opts.describe(&js)
	return js
}

type intSchema struct {
	opts options
}

// Int accepts whole numbers.
func Int(opts ...Option) Schema {
	return &intSchema{opts: newOptions(opts)}
}

// Kind implements the [Schema] interface.
func (s *intSchema) Kind() Kind { return KindInt }

// Parse implements the [Schema] interface.
func (s *intSchema) Parse(v any) (any, error) { return s.check(v) }

// Serialize implements the [Schema] interface.
func (s *intSchema) Serialize(v any) (any, error) { return s.check(v) }

func (s *intSchema) check(v any) (any, error) {
	i, ok := toInt(indirect(v))
	if !ok {
		return nil, unexpected("int", v)
	}
	if err := s.opts.bounds(float64(i)); err != nil {
		return nil, err
	}
	return i, nil
}

// JSONSchema implements the [Schema] interface.
func (s *intSchema) JSONSchema() jsonschema.Schema {
	var js jsonschema.Schema
	js.WithType(jsonschema.Integer.Type())
	s.opts.numberSchema(&js)
	return js
}

type floatSchema struct {
	opts options
}

// Float accepts any finite number.
func Float(opts ...Option) Schema {
	return &floatSchema{opts: newOptions(opts)}
}

// Kind implements the [Schema] interface.
func (s *floatSchema) Kind() Kind { return KindFloat }

// Parse implements the [Schema] interface.
func (s *floatSchema) Parse(v any) (any, error) { return s.check(v) }

// Serialize implements the [Schema] interface.
func (s *floatSchema) Serialize(v any) (any, error) { return s.check(v) }

func (s *floatSchema) check(v any) (any, error) {
	f, ok := toFloat(indirect(v))
	if !ok {
		return nil, unexpected("float", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, errorf("expected a finite number, received %v", f)
	}
	if err := s.opts.bounds(f); err != nil {
		return nil, err
	}
	return f, nil
}

// JSONSchema implements the [Schema] interface.
func (s *floatSchema) JSONSchema() jsonschema.Schema {
	var js jsonschema.Schema
	js.WithType(jsonschema.Number.Type())
	s.opts.numberSchema(&js)
	return js
}

type boolSchema struct {
	opts options
}

// Bool accepts booleans.
func Bool(opts ...Option) Schema {
	return &boolSchema{opts: newOptions(opts)}
}

// Kind implements the [Schema] interface.
func (s *boolSchema) Kind() Kind { return KindBool }

// Parse implements the [Schema] interface.
func (s *boolSchema) Parse(v any) (any, error) { return s.check(v) }

// Serialize implements the [Schema] interface.
func (s *boolSchema) Serialize(v any) (any, error) { return s.check(v) }

func (s *boolSchema) check(v any) (any, error) {
	rv := reflect.ValueOf(indirect(v))
	if !rv.IsValid() || rv.Kind() != reflect.Bool {
		return nil, unexpected("bool", v)
	}
	return rv.Bool(), nil
}

// JSONSchema implements the [Schema] interface.
func (s *boolSchema) JSONSchema() jsonschema.Schema {
	var js jsonschema.Schema
	js.WithType(jsonschema.Boolean.Type())
	s.opts.describe(&js)
	return js
}

func toFloat(v any) (float64, bool) {
	if n, ok := v.(json.Number); ok {
		f, err := n.Float64()
		return f, err == nil
	}
	rv := reflect.ValueOf(v)
	switch {
	case !rv.IsValid():
		return 0, false
	case rv.CanFloat():
		return rv.Float(), true
	case rv.CanInt():
		return float64(rv.Int()), true
	case rv.CanUint():
		return float64(rv.Uint()), true
	}
	return 0, false
}

func toInt(v any) (int64, bool) {
	if n, ok := v.(json.Number); ok {
		i, err := n.Int64()
		return i, err == nil
	}
	rv := reflect.ValueOf(v)
	switch {
	case !rv.IsValid():
		return 0, false
	case rv.CanInt():
		return rv.Int(), true
	case rv.CanUint():
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, false
		}
		return int64(u), true
	case rv.CanFloat():
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
			return 0, false
		}
		if f < math.MinInt64 || f >= math.MaxInt64 {
			return 0, false
		}
		return int64(f), true
	}
	return 0, false
}
