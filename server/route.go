// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/z5labs/contract"
	"github.com/z5labs/contract/route"

	"github.com/go-chi/chi/v5"
	"github.com/z5labs/sdk-go/try"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RouteOptions holds configuration values for a served route.
type RouteOptions struct {
	errHandler ErrorHandler
}

// RouteOption configures a route registered with [Route].
type RouteOption interface {
	ApplyRouteOption(*RouteOptions)
}

type routeOptionFunc func(*RouteOptions)

func (f routeOptionFunc) ApplyRouteOption(ro *RouteOptions) {
	f(ro)
}

// OnError replaces the default [ErrorHandler] of a route.
func OnError(eh ErrorHandler) RouteOption {
	return routeOptionFunc(func(ro *RouteOptions) {
		ro.errHandler = eh
	})
}

// Route serves r with h and documents it in the [Api]'s OpenAPI document.
//
// Route panics if r cannot be resolved or its documentation is invalid,
// since both are programming errors.
func Route(r *route.Route, h Handler, opts ...RouteOption) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		c := route.MustResolve(r)

		ro := &RouteOptions{
			errHandler: defaultErrorHandler(contract.LogHandler(instrumentationName)),
		}
		for _, opt := range opts {
			opt.ApplyRouteOption(ro)
		}

		doc, err := document(c)
		if err != nil {
			panic(err)
		}

		for name, scheme := range doc.schemes {
			ao.def.ComponentsEns().SecuritySchemesEns().WithMapOfSecuritySchemeOrRefValuesItem(
				name,
				scheme,
			)
		}

		endpoint := c.Path.Template()

		err = ao.def.AddOperation(c.Method, endpoint, doc.op)
		if err != nil {
			panic(err)
		}

		ao.mux.Method(c.Method, endpoint, otelhttp.WithRouteTag(endpoint, &routeHandler{
			tracer:     otel.Tracer(instrumentationName),
			contract:   c,
			errHandler: ro.errHandler,
			handler:    h,
		}))
	})
}

type routeHandler struct {
	tracer     trace.Tracer
	contract   *route.Contract
	errHandler ErrorHandler
	handler    Handler
}

func (h *routeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "routeHandler.ServeHTTP", trace.WithAttributes(
		attribute.String("http.request.method", h.contract.Method),
		attribute.String("url.template", h.contract.Path.Template()),
	))
	defer span.End()

	var err error
	defer func() {
		if err == nil {
			return
		}
		err = flattenPanic(err)

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.errHandler.OnError(ctx, w, err)
	}()
	defer try.Recover(&err)

	input, err := h.readInput(ctx, r)
	if err != nil {
		return
	}

	out, err := h.handler.Handle(ctx, input)
	if err != nil {
		return
	}

	err = h.writeOutput(ctx, w, out)
}

// flattenPanic replaces a recovered panic whose value is not an error,
// since unwrapping it would panic again inside errors.As.
func flattenPanic(err error) error {
	pe, ok := err.(try.PanicError)
	if !ok {
		return err
	}
	if _, ok := pe.Value.(error); ok {
		return err
	}
	return errors.New(pe.Error())
}

func (h *routeHandler) readInput(ctx context.Context, r *http.Request) (_ any, err error) {
	_, span := h.tracer.Start(ctx, "routeHandler.readInput")
	defer span.End()
	defer try.Close(&err, r.Body)

	in := route.Input{
		Headers: r.Header,
		Query:   r.URL.Query(),
	}

	if params := h.contract.Path.Params(); len(params) > 0 {
		in.Params = make(map[string]string, len(params))
		for _, name := range params {
			v := chi.URLParam(r, name)
			if v == "" {
				continue
			}
			// chi matches against RawPath when it is set, leaving
			// escapes such as %2F in the captured segment.
			if r.URL.RawPath != "" {
				if unescaped, uerr := url.PathUnescape(v); uerr == nil {
					v = unescaped
				}
			}
			in.Params[name] = v
		}
	}

	if len(route.In(h.contract.Variables.Bindings(), route.InBody)) > 0 {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, err
		}

		switch {
		case h.contract.RawBody():
			in.Body = string(b)
		case len(bytes.TrimSpace(b)) > 0:
			err = json.Unmarshal(b, &in.Body)
			if err != nil {
				return nil, BadRequestError{Cause: InvalidJSONError{Cause: err}}
			}
		}
	}

	v, err := h.contract.Variables.Parse(in)
	if err != nil {
		return nil, BadRequestError{Cause: err}
	}
	return v, nil
}

func (h *routeHandler) writeOutput(ctx context.Context, w http.ResponseWriter, out *Output) error {
	_, span := h.tracer.Start(ctx, "routeHandler.writeOutput")
	defer span.End()

	status := http.StatusOK
	var value any
	if out != nil {
		if out.Status != 0 {
			status = out.Status
		}
		value = out.Value
	}
	span.SetAttributes(attribute.Int("http.response.status_code", status))

	entry, found := h.contract.Responses.Resolve(status)
	if !found {
		return UndeclaredResponseStatusError{Status: status}
	}

	reply, err := entry.Serialize(status, value)
	if err != nil {
		return err
	}

	for _, f := range reply.Headers {
		w.Header().Set(f.Name, route.Stringify(f.Value))
	}

	if reply.Data == nil {
		w.WriteHeader(status)
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	err = enc.Encode(reply.Data)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, err = w.Write(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
	return err
}
