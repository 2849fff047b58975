// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package client

import (
	"net/http"
	"time"

	"github.com/z5labs/contract"

	bedrockcfg "github.com/z5labs/bedrock/config"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Config configures a [Client]. It is read from the "client" section of a config source.
//
// Example:
//
//	client:
//	  base_url: https://api.example.com
//	  json_query: true
//	  timeout: 10s
type Config struct {
	BaseURL   string        `config:"base_url"`
	JSONQuery bool          `config:"json_query"`
	Timeout   time.Duration `config:"timeout"`
}

type configRoot struct {
	Client Config `config:"client"`
}

// ReadConfig reads a [Config] from src layered over [contract.DefaultConfig].
func ReadConfig(src bedrockcfg.Source) (Config, error) {
	m, err := bedrockcfg.Read(bedrockcfg.MultiSource(contract.DefaultConfig(), src))
	if err != nil {
		return Config{}, err
	}

	var root configRoot
	err = m.Unmarshal(&root)
	if err != nil {
		return Config{}, err
	}
	return root.Client, nil
}

// NewFromConfig initializes a [Client] from cfg. Options are
// applied after the ones derived from cfg.
func NewFromConfig(cfg Config, opts ...Option) *Client {
	hc := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   cfg.Timeout,
	}

	base := []Option{
		WithFetcher(NewHTTPFetcher(hc)),
		JSONQuery(cfg.JSONQuery),
	}
	return New(cfg.BaseURL, append(base, opts...)...)
}
