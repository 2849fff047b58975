// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package client calls routes declared with the route package.
package client

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/z5labs/contract"
	"github.com/z5labs/contract/route"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/z5labs/contract/client"

// Options holds configuration values used when constructing a [Client].
type Options struct {
	fetcher   Fetcher
	jsonQuery bool
	cache     *route.Cache
	log       *slog.Logger
	tp        trace.TracerProvider
}

// Option is an interface for configuring a [Client].
type Option interface {
	ApplyClientOption(*Options)
}

type optionFunc func(*Options)

func (f optionFunc) ApplyClientOption(co *Options) {
	f(co)
}

// WithFetcher replaces the default [HTTPFetcher].
func WithFetcher(f Fetcher) Option {
	return optionFunc(func(co *Options) {
		co.fetcher = f
	})
}

// JSONQuery toggles JSON encoding of query values.
func JSONQuery(enabled bool) Option {
	return optionFunc(func(co *Options) {
		co.jsonQuery = enabled
	})
}

// WithCache resolves routes with c instead of the process wide cache.
func WithCache(c *route.Cache) Option {
	return optionFunc(func(co *Options) {
		co.cache = c
	})
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(log *slog.Logger) Option {
	return optionFunc(func(co *Options) {
		co.log = log
	})
}

// WithTracerProvider sets the provider of the tracer which traces calls.
// The global provider is used by default.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return optionFunc(func(co *Options) {
		co.tp = tp
	})
}

// Client calls routes against a single base URL.
type Client struct {
	baseURL   string
	fetcher   Fetcher
	jsonQuery bool
	cache     *route.Cache
	log       *slog.Logger
	tracer    trace.Tracer
}

// New initializes a [Client] for the API served at baseURL.
//
// Example:
//
//	c := client.New("http://localhost:8080")
//	ok, err := c.Call(ctx, CreateGame, map[string]any{"userName": "Dmitry"})
func New(baseURL string, opts ...Option) *Client {
	co := &Options{
		log: contract.Logger(instrumentationName),
		tp:  otel.GetTracerProvider(),
	}
	for _, opt := range opts {
		opt.ApplyClientOption(co)
	}
	if co.fetcher == nil {
		co.fetcher = NewHTTPFetcher(nil)
	}

	return &Client{
		baseURL:   baseURL,
		fetcher:   co.fetcher,
		jsonQuery: co.jsonQuery,
		cache:     co.cache,
		log:       co.log,
		tracer:    co.tp.Tracer(instrumentationName),
	}
}

// BaseURL returns the URL every route path is appended to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Fetcher returns the [Fetcher] performing network calls.
func (c *Client) Fetcher() Fetcher {
	return c.fetcher
}

// JSONQuery reports whether query values are JSON encoded.
func (c *Client) JSONQuery() bool {
	return c.jsonQuery
}

// Contract resolves r with the cache of the client.
func (c *Client) Contract(r *route.Route) (*route.Contract, error) {
	if c.cache != nil {
		return c.cache.Resolve(r)
	}
	return route.Resolve(r)
}

// Call invokes r with vars and returns the value parsed by the
// response entry matching the response status.
//
// The following errors may be returned:
//   - authoring errors from resolving r, e.g. [route.MalformedPathError]
//   - [route.VariablesValidationError] if vars is rejected
//   - [route.MissingPathParamError] if a path param has no value
//   - [route.UnhandledResponseStatusError] if no response matches the status
//   - [route.ResponseValidationError] if the response is rejected
//   - any error returned by the [Fetcher]
func (c *Client) Call(ctx context.Context, r *route.Route, vars any) (_ any, err error) {
	rc, err := c.Contract(r)
	if err != nil {
		return nil, err
	}

	spanCtx, span := c.tracer.Start(
		ctx,
		"Client.Call",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", rc.Method),
			attribute.String("url.template", rc.Path.Template()),
		),
	)
	defer span.End()
	defer func() {
		if err == nil {
			return
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}()

	return invoke(spanCtx, c.log, rc, c.baseURL, vars, c.fetcher, c.jsonQuery)
}

// URL renders the complete URL r is called at with vars.
func (c *Client) URL(r *route.Route, vars any) (string, error) {
	rc, err := c.Contract(r)
	if err != nil {
		return "", err
	}
	req, err := newRequest(rc, c.baseURL, vars, c.jsonQuery)
	if err != nil {
		return "", err
	}
	return req.Path, nil
}

// CallAs is like [Client.Call] but decodes the result into a T using json struct tags.
func CallAs[T any](ctx context.Context, c *Client, r *route.Route, vars any) (T, error) {
	v, err := c.Call(ctx, r, vars)
	if err != nil {
		var zero T
		return zero, err
	}
	return route.Decode[T](v)
}

// Fetch calls r without a [Client]. It resolves r with the process wide cache.
func Fetch(ctx context.Context, r *route.Route, baseURL string, vars any, fetcher Fetcher, jsonQuery bool) (any, error) {
	rc, err := route.Resolve(r)
	if err != nil {
		return nil, err
	}
	if fetcher == nil {
		fetcher = NewHTTPFetcher(nil)
	}
	return invoke(ctx, contract.Logger(instrumentationName), rc, baseURL, vars, fetcher, jsonQuery)
}

func invoke(ctx context.Context, log *slog.Logger, rc *route.Contract, baseURL string, vars any, fetcher Fetcher, jsonQuery bool) (any, error) {
	req, err := newRequest(rc, baseURL, vars, jsonQuery)
	if err != nil {
		return nil, err
	}

	resp, err := fetcher.Fetch(ctx, *req)
	if err != nil {
		return nil, err
	}

	entry, found := rc.Responses.Resolve(resp.Status)
	if !found {
		err := route.UnhandledResponseStatusError{
			Status:  resp.Status,
			Message: messageOf(resp.Data),
		}
		log.WarnContext(
			ctx,
			"received response with unhandled status",
			slog.String("http.request.method", req.Method),
			slog.String("url.full", req.Path),
			slog.Int("http.response.status_code", resp.Status),
			slog.Any("error", err),
		)
		return nil, err
	}

	return entry.Parse(resp.Status, resp.Data, resp.Headers)
}

func newRequest(rc *route.Contract, baseURL string, vars any, jsonQuery bool) (*Request, error) {
	parts, err := rc.Variables.Serialize(vars)
	if err != nil {
		return nil, err
	}

	path, err := rc.Path.Build(parts.Params, baseURL)
	if err != nil {
		return nil, err
	}
	query, err := encodeQuery(parts.Query, jsonQuery)
	if err != nil {
		return nil, err
	}
	if query != "" {
		path += "?" + query
	}

	req := &Request{
		Method: rc.Method,
		Path:   path,
	}
	for _, h := range parts.Headers {
		if req.Headers == nil {
			req.Headers = make(http.Header)
		}
		req.Headers.Set(h.Name, route.Stringify(h.Value))
	}

	if parts.Body == nil {
		return req, nil
	}
	if rc.RawBody() {
		s, _ := parts.Body.(string)
		req.Body = []byte(s)
		setDefaultHeader(req, "Content-Type", "text/plain; charset=utf-8")
		return req, nil
	}

	req.Body, err = marshalJSON(parts.Body)
	if err != nil {
		return nil, err
	}
	setDefaultHeader(req, "Content-Type", "application/json")
	return req, nil
}

func setDefaultHeader(req *Request, name, value string) {
	if req.Headers == nil {
		req.Headers = make(http.Header)
	}
	if req.Headers.Get(name) != "" {
		return
	}
	req.Headers.Set(name, value)
}

func messageOf(data any) string {
	m, ok := data.(map[string]any)
	if !ok {
		return ""
	}
	msg, _ := m["message"].(string)
	return msg
}
