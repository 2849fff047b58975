// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package contract declares a REST route once and derives a typed client,
// a server adapter and OpenAPI documentation from that single declaration.
//
// Routes are declared in the [route] package, called with the [client]
// package, served with the [server] package and consumed by data fetching
// hooks through the [swr] package.
//
// [route]: https://pkg.go.dev/github.com/z5labs/contract/route
// [client]: https://pkg.go.dev/github.com/z5labs/contract/client
// [server]: https://pkg.go.dev/github.com/z5labs/contract/server
// [swr]: https://pkg.go.dev/github.com/z5labs/contract/swr
package contract

import (
	"bytes"
	_ "embed"
	"io"
	"log/slog"
	"os"

	bedrockcfg "github.com/z5labs/bedrock/config"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

// Logger returns a [slog.Logger] which forwards records to the
// globally registered OTel logger provider.
func Logger(name string) *slog.Logger {
	return otelslog.NewLogger(name)
}

// LogHandler returns the [slog.Handler] backing [Logger].
func LogHandler(name string) slog.Handler {
	return otelslog.NewHandler(name)
}

// ConfigSource standardizes the template for configuration of contract clients.
// The [io.Reader] is expected to be YAML with support for Go templating. Currently,
// only 2 template functions are supported:
//   - env - this allows environment variables to be substituted into the YAML
//   - default - define a default value in case the original value is nil
func ConfigSource(r io.Reader) bedrockcfg.Source {
	return bedrockcfg.FromYaml(
		bedrockcfg.RenderTextTemplate(
			r,
			bedrockcfg.TemplateFunc("env", func(key string) any {
				v, ok := os.LookupEnv(key)
				if ok {
					return v
				}
				return nil
			}),
			bedrockcfg.TemplateFunc("default", func(def, v any) any {
				if v == nil {
					return def
				}
				return v
			}),
		),
	)
}

//go:embed default_config.yaml
var defaultConfig []byte

// DefaultConfig returns the default config source. It is layered underneath
// user provided sources with [bedrockcfg.MultiSource].
func DefaultConfig() bedrockcfg.Source {
	return ConfigSource(bytes.NewReader(defaultConfig))
}
