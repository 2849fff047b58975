// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/z5labs/contract"

	"github.com/sourcegraph/conc/pool"
	bedrockcfg "github.com/z5labs/bedrock/config"
)

// Config configures the HTTP server started by [ListenAndServe].
// It is read from the "server" section of a config source.
//
// Example:
//
//	server:
//	  addr: :9090
//	  write_timeout: 30s
type Config struct {
	Addr              string        `config:"addr"`
	ReadTimeout       time.Duration `config:"read_timeout"`
	ReadHeaderTimeout time.Duration `config:"read_header_timeout"`
	WriteTimeout      time.Duration `config:"write_timeout"`
	IdleTimeout       time.Duration `config:"idle_timeout"`
	MaxHeaderBytes    int           `config:"max_header_bytes"`
}

type configRoot struct {
	Server Config `config:"server"`
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
	return root.Server, nil
}

// ListenAndServe listens on cfg.Addr and serves h until ctx is cancelled.
func ListenAndServe(ctx context.Context, cfg Config, h http.Handler) error {
	ls, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return err
	}
	return Serve(ctx, ls, cfg, h)
}

// Serve serves h on ls until ctx is cancelled, after which the
// server is gracefully shut down. A clean shutdown returns nil.
func Serve(ctx context.Context, ls net.Listener, cfg Config, h http.Handler) error {
	srv := &http.Server{
		Handler:           h,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	p := pool.New().WithContext(ctx).WithCancelOnError()

	p.Go(func(ctx context.Context) error {
		return srv.Serve(ls)
	})

	p.Go(func(ctx context.Context) error {
		<-ctx.Done()
		return srv.Shutdown(context.Background())
	})

	err := p.Wait()
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
