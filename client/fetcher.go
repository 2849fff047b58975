// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/z5labs/sdk-go/try"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
)

// Request is the transport agnostic request produced for a single call.
// Path is the complete URL including the query string. Body is nil when
// the route sends no body and Headers is nil when no header is set.
type Request struct {
	Method  string
	Path    string
	Body    []byte
	Headers http.Header
}

// Response is the transport agnostic response handed back by a [Fetcher].
// Data is the decoded body.
type Response struct {
	Status  int
	Data    any
	Headers http.Header
}

// Fetcher performs the network call of a [Client].
type Fetcher interface {
	Fetch(context.Context, Request) (*Response, error)
}

// FetcherFunc is a func type which implements the [Fetcher] interface.
type FetcherFunc func(context.Context, Request) (*Response, error)

// Fetch implements the [Fetcher] interface.
func (f FetcherFunc) Fetch(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

// HTTPFetcher is the default [Fetcher]. It decodes response bodies
// according to their content type:
//   - application/*json* is decoded as JSON
//   - text/* is returned as a string
//   - anything else is returned as a []byte
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher returns a [HTTPFetcher] which sends requests with c.
// A nil client is replaced with one whose transport is instrumented by otelhttp.
func NewHTTPFetcher(c *http.Client) *HTTPFetcher {
	if c == nil {
		c = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &HTTPFetcher{client: c}
}

// Fetch implements the [Fetcher] interface.
func (f *HTTPFetcher) Fetch(ctx context.Context, req Request) (_ *Response, err error) {
	spanCtx, span := otel.Tracer("github.com/z5labs/contract/client").Start(ctx, "HTTPFetcher.Fetch")
	defer span.End()

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	hreq, err := http.NewRequestWithContext(spanCtx, req.Method, req.Path, body)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if req.Headers != nil {
		hreq.Header = req.Headers.Clone()
	}

	resp, err := f.client.Do(hreq)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	defer try.Close(&err, resp.Body)

	data, err := decodeBody(resp.Header.Get("Content-Type"), resp.Body)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return &Response{
		Status:  resp.StatusCode,
		Data:    data,
		Headers: resp.Header,
	}, nil
}

func decodeBody(contentType string, r io.Reader) (any, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(contentType)
	}

	switch {
	case strings.HasPrefix(mediaType, "application/") && strings.Contains(mediaType, "json"):
		var v any
		err := json.NewDecoder(r).Decode(&v)
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return v, err
	case strings.HasPrefix(mediaType, "text/"):
		b, err := io.ReadAll(r)
		return string(b), err
	default:
		return io.ReadAll(r)
	}
}
