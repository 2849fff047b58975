// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/z5labs/contract"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/openapi-go/openapi3"
)

const instrumentationName = "github.com/z5labs/contract/server"

// ApiOptions holds configuration values used when constructing an [Api].
type ApiOptions struct {
	mux *chi.Mux
	def *openapi3.Spec
}

// ApiOption is an interface for configuring an [Api].
//
// Common implementations include:
//   - [Route] - serves a declared route
//   - [Readiness] - configures readiness probe endpoint
//   - [Liveness] - configures liveness probe endpoint
//   - [NotFound] - customizes 404 handling
//   - [MethodNotAllowed] - customizes 405 handling
type ApiOption interface {
	ApplyApiOption(*ApiOptions)
}

type apiOptionFunc func(*ApiOptions)

func (f apiOptionFunc) ApplyApiOption(ao *ApiOptions) {
	f(ao)
}

// Readiness configures a custom readiness probe endpoint at GET /health/readiness.
//
// See [Liveness, Readiness, and Startup Probes] for more details.
//
// [Liveness, Readiness, and Startup Probes]: https://kubernetes.io/docs/concepts/configuration/liveness-readiness-startup-probes/
func Readiness(h http.Handler) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		ao.mux.Method(http.MethodGet, "/health/readiness", h)
	})
}

// Liveness configures a custom liveness probe endpoint at GET /health/liveness.
//
// See [Liveness, Readiness, and Startup Probes] for more details.
//
// [Liveness, Readiness, and Startup Probes]: https://kubernetes.io/docs/concepts/configuration/liveness-readiness-startup-probes/
func Liveness(h http.Handler) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		ao.mux.Method(http.MethodGet, "/health/liveness", h)
	})
}

// NotFound configures a custom handler for requests that don't match any route.
func NotFound(h http.Handler) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		ao.mux.NotFound(h.ServeHTTP)
	})
}

// MethodNotAllowed configures a custom handler for requests to known paths
// with an unsupported HTTP method.
func MethodNotAllowed(h http.Handler) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		ao.mux.MethodNotAllowed(h.ServeHTTP)
	})
}

// Api is an [http.Handler] serving declared routes along with their
// OpenAPI documentation.
//
// Every Api provides:
//   - OpenAPI 3.0 document at GET /openapi.json
//   - Default liveness probe at GET /health/liveness (returns 200 OK)
//   - Default readiness probe at GET /health/readiness (returns 200 OK)
//
// Example:
//
//	api := server.NewApi(
//	    "Games",
//	    "v1.0.0",
//	    server.Route(createGame, server.HandlerFunc(create)),
//	)
//	http.ListenAndServe(":8080", api)
type Api struct {
	router *chi.Mux
}

// NewApi creates a new [Api] with the specified title and version.
func NewApi(title, version string, opts ...ApiOption) *Api {
	log := contract.Logger(instrumentationName)

	ao := &ApiOptions{
		mux: chi.NewMux(),
		def: &openapi3.Spec{
			Openapi: "3.0.3",
			Info: openapi3.Info{
				Title:   title,
				Version: version,
			},
		},
	}

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	Readiness(ok).ApplyApiOption(ao)
	Liveness(ok).ApplyApiOption(ao)

	for _, opt := range opts {
		opt.ApplyApiOption(ao)
	}

	ao.mux.Get("/openapi.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		enc := json.NewEncoder(w)
		err := enc.Encode(ao.def)
		if err == nil {
			return
		}
		log.ErrorContext(
			r.Context(),
			"failed to encode openapi schema to json",
			slog.Any("error", err),
		)
	})

	return &Api{
		router: ao.mux,
	}
}

// ServeHTTP implements the [http.Handler] interface.
func (api *Api) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	api.router.ServeHTTP(w, req)
}
