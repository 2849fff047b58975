// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package route

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/swaggest/jsonschema-go"
	"github.com/z5labs/contract/schema"
)

// Location is the section of an HTTP message a binding reads from and writes to.
type Location string

const (
	InBody    Location = "body"
	InHeaders Location = "headers"
	InQuery   Location = "query"
	InParams  Location = "params"
	InData    Location = "data"
)

// Binding ties a logical key of a route's variables (or response value)
// to a named field within a [Location].
//
// An empty Key binds the whole value and an empty Name binds the whole
// body or data section.
type Binding struct {
	Key      string
	Location Location
	Name     string
	Schema   schema.Schema
}

// Whole reports whether the binding covers its entire section.
func (b Binding) Whole() bool {
	return b.Name == ""
}

// Field is a named transport value.
type Field struct {
	Name  string
	Value any
}

type bindings struct {
	list []Binding
	err  error
}

func (bs *bindings) fail(err error) {
	if bs.err == nil {
		bs.err = err
	}
}

func (bs *bindings) add(b Binding) bool {
	if bs.err != nil {
		return false
	}
	err := bs.check(b)
	if err != nil {
		bs.err = err
		return false
	}
	bs.list = append(bs.list, b)
	return true
}

func (bs *bindings) check(b Binding) error {
	invalid := func(format string, args ...any) error {
		return InvalidBindingError{Key: b.Key, Reason: fmt.Sprintf(format, args...)}
	}

	if b.Schema == nil {
		return invalid("missing schema")
	}
	if b.Whole() && b.Location != InBody && b.Location != InData {
		return invalid("missing %s field name", b.Location)
	}
	for _, other := range bs.list {
		switch {
		case b.Key == "" || other.Key == "":
			return invalid("a binding of the whole value must be the only binding")
		case b.Key == other.Key:
			return invalid("key is already bound")
		case b.Location != other.Location:
			continue
		case b.Whole() || other.Whole():
			return invalid("the whole %s cannot be combined with other %s bindings", b.Location, b.Location)
		case b.Name == other.Name:
			return invalid("%s field %q is already bound", b.Location, b.Name)
		}
	}
	return nil
}

func wholeValue(list []Binding) bool {
	return len(list) == 1 && list[0].Key == ""
}

// serializeAll runs v through every binding, handing each transport
// value to place. Nil values of optional bindings are skipped.
func serializeAll(list []Binding, v any, place func(Binding, any)) error {
	if len(list) == 0 {
		return nil
	}

	get := func(string) any { return v }
	if !wholeValue(list) {
		var m map[string]any
		if v != nil {
			var err error
			m, err = schema.AsMap(v)
			if err != nil {
				return err
			}
		}
		get = func(key string) any { return m[key] }
	}

	for _, b := range list {
		x, err := b.Schema.Serialize(get(b.Key))
		if err != nil {
			if b.Key == "" {
				return err
			}
			return schema.At(b.Key, err)
		}
		if x == nil && schema.IsOptional(b.Schema) {
			continue
		}
		place(b, x)
	}
	return nil
}

// parseAll reads every binding's transport value with read and
// assembles the typed value. Failures are located by transport
// location and field name.
func parseAll(list []Binding, read func(Binding) (any, error)) (any, error) {
	if len(list) == 0 {
		return nil, nil
	}

	values := make(map[string]any, len(list))
	for _, b := range list {
		raw, err := read(b)
		if err != nil {
			return nil, schema.At(string(b.Location), err)
		}

		x, err := b.Schema.Parse(raw)
		if err != nil {
			if !b.Whole() {
				err = schema.At(b.Name, err)
			}
			return nil, schema.At(string(b.Location), err)
		}
		if wholeValue(list) {
			return x, nil
		}
		if x == nil && schema.IsOptional(b.Schema) {
			continue
		}
		values[b.Key] = x
	}
	return values, nil
}

// sectionReader lazily views a JSON body or response data as an object.
type sectionReader struct {
	value any
	m     map[string]any
	err   error
	done  bool
}

func (r *sectionReader) read(b Binding) (any, error) {
	if b.Whole() {
		return r.value, nil
	}
	if !r.done {
		r.done = true
		if r.value != nil {
			r.m, r.err = schema.AsMap(r.value)
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	return r.m[b.Name], nil
}

func headerValue(h http.Header, name string) any {
	vals := h.Values(name)
	if len(vals) == 0 {
		return nil
	}
	return vals[0]
}

func queryValue(q url.Values, name string) any {
	vals := q[name]
	switch len(vals) {
	case 0:
		return nil
	case 1:
		return vals[0]
	}
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}

// sectionSchema describes the JSON of a body or data section.
func sectionSchema(list []Binding, loc Location) (jsonschema.Schema, bool) {
	var props []schema.Property
	for _, b := range list {
		if b.Location != loc {
			continue
		}
		if b.Whole() {
			return b.Schema.JSONSchema(), true
		}
		props = append(props, schema.Prop(b.Name, b.Schema))
	}
	if len(props) == 0 {
		return jsonschema.Schema{}, false
	}
	return schema.Object(props...).JSONSchema(), true
}

// In returns the bindings of list at loc.
func In(list []Binding, loc Location) []Binding {
	var out []Binding
	for _, b := range list {
		if b.Location == loc {
			out = append(out, b)
		}
	}
	return out
}
