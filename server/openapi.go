// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/z5labs/contract/route"
	"github.com/z5labs/contract/schema"

	jsonschemav6 "github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/swaggest/jsonschema-go"
	"github.com/swaggest/openapi-go/openapi3"
	"github.com/z5labs/sdk-go/ptr"
)

type operationDoc struct {
	op      openapi3.Operation
	schemes map[string]openapi3.SecuritySchemeOrRef
}

func document(c *route.Contract) (*operationDoc, error) {
	def := c.Definition
	doc := &operationDoc{
		op: openapi3.Operation{
			Tags: def.Tags,
		},
		schemes: make(map[string]openapi3.SecuritySchemeOrRef),
	}
	if def.Summary != "" {
		doc.op.Summary = ptr.Ref(def.Summary)
	}
	if def.Description != "" {
		doc.op.Description = ptr.Ref(def.Description)
	}
	if def.OperationID != "" {
		doc.op.ID = ptr.Ref(def.OperationID)
	}
	if def.Deprecated {
		doc.op.Deprecated = ptr.Ref(true)
	}
	if def.ExternalDocs != nil {
		doc.op.ExternalDocs = &openapi3.ExternalDocumentation{
			URL: def.ExternalDocs.URL,
		}
		if def.ExternalDocs.Description != "" {
			doc.op.ExternalDocs.Description = ptr.Ref(def.ExternalDocs.Description)
		}
	}

	err := doc.parameters(c)
	if err != nil {
		return nil, err
	}

	err = doc.requestBody(c)
	if err != nil {
		return nil, err
	}

	err = doc.responses(c)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (doc *operationDoc) parameters(c *route.Contract) error {
	bound := make(map[string]bool)
	for _, b := range c.Variables.Bindings() {
		var in openapi3.ParameterIn
		switch b.Location {
		case route.InHeaders:
			if scheme, ok := schema.AuthSchemeOf(b.Schema); ok {
				doc.secure(scheme)
				continue
			}
			in = openapi3.ParameterInHeader
		case route.InQuery:
			in = openapi3.ParameterInQuery
		case route.InParams:
			in = openapi3.ParameterInPath
			bound[b.Name] = true
		default:
			continue
		}

		js := b.Schema.JSONSchema()
		err := compile(js)
		if err != nil {
			return fmt.Errorf("failed to create JSON-Schema for %s parameter %q: %w", in, b.Name, err)
		}

		doc.op.Parameters = append(doc.op.Parameters, openapi3.ParameterOrRef{
			Parameter: &openapi3.Parameter{
				Name:     b.Name,
				In:       in,
				Required: ptr.Ref(in == openapi3.ParameterInPath || !schema.IsOptional(b.Schema)),
				Schema:   schemaOrRef(js),
			},
		})
	}

	// path parameters are always documented, even when nothing binds them
	for _, name := range c.Path.Params() {
		if bound[name] {
			continue
		}
		doc.op.Parameters = append(doc.op.Parameters, openapi3.ParameterOrRef{
			Parameter: &openapi3.Parameter{
				Name:     name,
				In:       openapi3.ParameterInPath,
				Required: ptr.Ref(true),
				Schema:   schemaOrRef(schema.String().JSONSchema()),
			},
		})
	}
	return nil
}

func (doc *operationDoc) secure(scheme schema.AuthScheme) {
	name := strings.ToLower(string(scheme)) + "Auth"

	hs := &openapi3.HTTPSecurityScheme{
		Scheme: strings.ToLower(string(scheme)),
	}
	doc.schemes[name] = openapi3.SecuritySchemeOrRef{
		SecurityScheme: &openapi3.SecurityScheme{
			HTTPSecurityScheme: hs,
		},
	}
	doc.op.Security = append(doc.op.Security, map[string][]string{
		name: {},
	})
}

func (doc *operationDoc) requestBody(c *route.Contract) error {
	js, ok := c.Variables.BodySchema()
	if !ok {
		return nil
	}

	err := compile(js)
	if err != nil {
		return fmt.Errorf("failed to create JSON-Schema for request body: %w", err)
	}

	contentType := "application/json"
	if c.RawBody() {
		contentType = "text/plain"
	}

	doc.op.RequestBody = &openapi3.RequestBodyOrRef{
		RequestBody: &openapi3.RequestBody{
			Required: ptr.Ref(true),
			Content: map[string]openapi3.MediaType{
				contentType: {
					Schema: schemaOrRef(js),
				},
			},
		},
	}
	return nil
}

func (doc *operationDoc) responses(c *route.Contract) error {
	doc.op.Responses.MapOfResponseOrRefValues = make(map[string]openapi3.ResponseOrRef)

	for _, e := range c.Responses.Entries() {
		resp := &openapi3.Response{
			Description: describe(e),
		}

		js, ok := e.DataSchema()
		if ok {
			err := compile(js)
			if err != nil {
				return fmt.Errorf("failed to create JSON-Schema for response with status %s: %w", e.Selectors[0], err)
			}

			resp.Content = map[string]openapi3.MediaType{
				"application/json": {
					Schema: schemaOrRef(js),
				},
			}
		}

		for _, b := range route.In(e.Bindings(), route.InHeaders) {
			if resp.Headers == nil {
				resp.Headers = make(map[string]openapi3.HeaderOrRef)
			}
			resp.Headers[b.Name] = openapi3.HeaderOrRef{
				Header: &openapi3.Header{
					Required: ptr.Ref(!schema.IsOptional(b.Schema)),
					Schema:   schemaOrRef(b.Schema.JSONSchema()),
				},
			}
		}

		for _, sel := range e.Selectors {
			if sel == route.Default {
				doc.op.Responses.Default = &openapi3.ResponseOrRef{Response: resp}
				continue
			}
			doc.op.Responses.MapOfResponseOrRefValues[string(sel)] = openapi3.ResponseOrRef{Response: resp}
		}
	}
	return nil
}

func describe(e *route.ResponseEntry) string {
	if e.Description != "" {
		return e.Description
	}
	if len(e.Selectors) == 1 {
		if code, err := strconv.Atoi(string(e.Selectors[0])); err == nil {
			if text := http.StatusText(code); text != "" {
				return text
			}
		}
	}
	return "Default response"
}

func schemaOrRef(js jsonschema.Schema) *openapi3.SchemaOrRef {
	var sor openapi3.SchemaOrRef
	sor.FromJSONSchema(js.ToSchemaOrBool())
	return &sor
}

// compile rejects JSON Schema documents which a validator would refuse.
func compile(js jsonschema.Schema) error {
	b, err := json.Marshal(js)
	if err != nil {
		return err
	}

	doc, err := jsonschemav6.UnmarshalJSON(bytes.NewReader(b))
	if err != nil {
		return err
	}

	const name = "schema.json"
	compiler := jsonschemav6.NewCompiler()
	err = compiler.AddResource(name, doc)
	if err != nil {
		return err
	}

	_, err = compiler.Compile(name)
	return err
}
