// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package route

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/swaggest/jsonschema-go"
	"github.com/z5labs/contract/schema"
)

// Selector identifies which statuses a response entry answers for.
// It is an exact status ("200"), a status class ("4XX") or [Default].
type Selector string

// Default matches any status without a more specific entry.
const Default Selector = "default"

// StatusSelector selects exactly the given status.
func StatusSelector(code int) Selector {
	return Selector(strconv.Itoa(code))
}

// ClassSelector selects every status in the hundred range of n, e.g. 4 selects 400-499.
func ClassSelector(n int) Selector {
	return Selector(strconv.Itoa(n) + "XX")
}

// Response declares one response of a route. It is handed to each
// function in [Definition.Responses] while the route is resolved.
// A response without any status is registered as [Default].
type Response struct {
	bindings

	selectors   []Selector
	description string
}

// Status registers the response for an exact status code.
// It may be called more than once.
func (r *Response) Status(code int) {
	r.selectors = append(r.selectors, StatusSelector(code))
}

// StatusClass registers the response for a whole status class, e.g. 4 for 4XX.
func (r *Response) StatusClass(n int) {
	r.selectors = append(r.selectors, ClassSelector(n))
}

// Description documents the response.
func (r *Response) Description(text string) {
	r.description = text
}

// Data binds key to the whole response data.
func (r *Response) Data(key string, s schema.Schema) {
	r.add(Binding{Key: key, Location: InData, Schema: s})
}

// Field binds key to the data field name.
func (r *Response) Field(key, name string, s schema.Schema) {
	r.add(Binding{Key: key, Location: InData, Name: name, Schema: s})
}

// Header binds key to the response header name.
func (r *Response) Header(key, name string, s schema.Schema) {
	r.add(Binding{Key: key, Location: InHeaders, Name: strings.ToLower(name), Schema: coerce(s)})
}

func (r *Response) build() (*ResponseEntry, error) {
	if r.err != nil {
		return nil, r.err
	}
	selectors := r.selectors
	if len(selectors) == 0 {
		selectors = []Selector{Default}
	}
	return &ResponseEntry{
		Selectors:   selectors,
		Description: r.description,
		bindings:    r.list,
	}, nil
}

// ResponseEntry is a resolved response declaration.
type ResponseEntry struct {
	Selectors   []Selector
	Description string

	bindings []Binding
}

// Bindings returns the declared bindings in declaration order.
func (e *ResponseEntry) Bindings() []Binding {
	return e.bindings
}

// DataSchema describes the response data, if the response has any.
func (e *ResponseEntry) DataSchema() (jsonschema.Schema, bool) {
	return sectionSchema(e.bindings, InData)
}

// Parse converts a received response into the response value.
func (e *ResponseEntry) Parse(status int, data any, headers http.Header) (any, error) {
	section := &sectionReader{value: data}
	v, err := parseAll(e.bindings, func(b Binding) (any, error) {
		if b.Location == InHeaders {
			return headerValue(headers, b.Name), nil
		}
		return section.read(b)
	})
	if err != nil {
		path, msg := fromSchemaError(err)
		return nil, ResponseValidationError{Status: status, Path: path, Message: msg, Cause: err}
	}
	return v, nil
}

// Reply is a serialized response value split into data and headers.
// Data is a map whenever a data field is bound.
type Reply struct {
	Data    any
	Headers []Field
}

// Serialize converts a response value into its transport form.
// Status is only used to annotate failures.
func (e *ResponseEntry) Serialize(status int, v any) (*Reply, error) {
	reply := &Reply{}

	var data map[string]any
	for _, b := range e.bindings {
		if b.Location == InData && !b.Whole() {
			data = make(map[string]any)
			reply.Data = data
			break
		}
	}

	err := serializeAll(e.bindings, v, func(b Binding, x any) {
		switch {
		case b.Location == InHeaders:
			reply.Headers = append(reply.Headers, Field{Name: b.Name, Value: x})
		case b.Whole():
			reply.Data = x
		default:
			data[b.Name] = x
		}
	})
	if err != nil {
		path, msg := fromSchemaError(err)
		return nil, ResponseValidationError{Status: status, Path: path, Message: msg, Cause: err}
	}
	return reply, nil
}

// Table maps selectors to response entries.
type Table struct {
	entries    []*ResponseEntry
	bySelector map[Selector]*ResponseEntry
}

// NewTable initializes an empty [Table].
func NewTable() *Table {
	return &Table{
		bySelector: make(map[Selector]*ResponseEntry),
	}
}

// Register adds e under sel. A [DuplicateResponseSelectorError] is
// returned if sel is already registered.
func (t *Table) Register(sel Selector, e *ResponseEntry) error {
	if _, exists := t.bySelector[sel]; exists {
		return DuplicateResponseSelectorError{Selector: sel}
	}
	t.bySelector[sel] = e
	if !slices.Contains(t.entries, e) {
		t.entries = append(t.entries, e)
	}
	return nil
}

// Resolve returns the entry for status, trying the exact status,
// then its status class and finally [Default].
func (t *Table) Resolve(status int) (*ResponseEntry, bool) {
	candidates := [...]Selector{
		StatusSelector(status),
		ClassSelector(status / 100),
		Default,
	}
	for _, sel := range candidates {
		if e, ok := t.bySelector[sel]; ok {
			return e, true
		}
	}
	return nil, false
}

// Entries returns the registered entries in declaration order.
func (t *Table) Entries() []*ResponseEntry {
	return t.entries
}

// Len returns the number of registered selectors.
func (t *Table) Len() int {
	return len(t.bySelector)
}
