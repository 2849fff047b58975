// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package swr adapts GET routes to stale-while-revalidate style data fetching,
// where the URL of a call doubles as its cache key.
package swr

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/z5labs/contract/client"
	"github.com/z5labs/contract/route"

	"github.com/sourcegraph/conc/pool"
	"golang.org/x/sync/singleflight"
)

// UnsupportedMethodError is returned for routes which are not GET routes.
type UnsupportedMethodError struct {
	Method string
}

func (e UnsupportedMethodError) Error() string {
	return fmt.Sprintf("swr: only GET routes can be fetched, got %s", e.Method)
}

// Hook fetches GET routes through a [client.Client]. Concurrent fetches
// of the same key share a single call.
type Hook struct {
	client *client.Client
	group  singleflight.Group
}

// New initializes a [Hook] for c.
func New(c *client.Client) *Hook {
	return &Hook{
		client: c,
	}
}

// Key returns the cache key of r called with vars, which is its URL.
//
// An empty key means there is nothing to fetch yet. It is returned when
// vars is nil and r declares variables.
func (h *Hook) Key(r *route.Route, vars any) (string, error) {
	rc, err := h.contract(r)
	if err != nil {
		return "", err
	}
	if vars == nil && len(rc.Variables.Bindings()) > 0 {
		return "", nil
	}
	return h.client.URL(r, vars)
}

// Use fetches r with vars. An empty [Hook.Key] yields a nil value.
//
// Concurrent calls share a fetch only when their URL and headers match.
// The shared fetch outlives a canceled caller, which returns ctx.Err().
func (h *Hook) Use(ctx context.Context, r *route.Route, vars any) (any, error) {
	key, err := h.Key(r, vars)
	if err != nil || key == "" {
		return nil, err
	}

	flight, err := h.flightKey(r, key, vars)
	if err != nil {
		return nil, err
	}

	ch := h.group.DoChan(flight, func() (any, error) {
		return h.client.Call(context.WithoutCancel(ctx), r, vars)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

// flightKey extends the URL key with the request headers, since two
// callers with different credentials must not share a response.
func (h *Hook) flightKey(r *route.Route, key string, vars any) (string, error) {
	rc, err := h.contract(r)
	if err != nil {
		return "", err
	}
	parts, err := rc.Variables.Serialize(vars)
	if err != nil {
		return "", err
	}

	headers := make([]string, 0, len(parts.Headers))
	for _, f := range parts.Headers {
		headers = append(headers, strings.ToLower(f.Name)+": "+route.Stringify(f.Value))
	}
	slices.Sort(headers)

	var sb strings.Builder
	sb.WriteString(http.MethodGet)
	sb.WriteString(" ")
	sb.WriteString(key)
	for _, hdr := range headers {
		sb.WriteString("\n")
		sb.WriteString(hdr)
	}
	return sb.String(), nil
}

// Request pairs a route with its variables for [Hook.Preload].
type Request struct {
	Route     *route.Route
	Variables any
}

// Preload fetches every request concurrently. Results are returned in
// the order of reqs and the first error cancels the remaining fetches.
func (h *Hook) Preload(ctx context.Context, reqs ...Request) ([]any, error) {
	results := make([]any, len(reqs))

	p := pool.New().WithContext(ctx).WithCancelOnError()
	for i, req := range reqs {
		p.Go(func(ctx context.Context) error {
			v, err := h.Use(ctx, req.Route, req.Variables)
			if err != nil {
				return err
			}
			results[i] = v
			return nil
		})
	}

	err := p.Wait()
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (h *Hook) contract(r *route.Route) (*route.Contract, error) {
	rc, err := h.client.Contract(r)
	if err != nil {
		return nil, err
	}
	if rc.Method != http.MethodGet {
		return nil, UnsupportedMethodError{Method: rc.Method}
	}
	return rc, nil
}
