// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/z5labs/contract"
)

// Monitor reports the current state of health of a dependency.
type Monitor interface {
	Healthy(context.Context) (bool, error)
}

// Binary is a [Monitor] which is either healthy or unhealthy.
// The zero value is unhealthy.
type Binary struct {
	healthy atomic.Bool
}

// MarkUnhealthy changes the state to unhealthy.
func (b *Binary) MarkUnhealthy() {
	b.healthy.Store(false)
}

// MarkHealthy changes the state to healthy.
func (b *Binary) MarkHealthy() {
	b.healthy.Store(true)
}

// Healthy implements the [Monitor] interface.
func (b *Binary) Healthy(ctx context.Context) (bool, error) {
	return b.healthy.Load(), nil
}

// AndMonitor is healthy when all of its monitors are. It stops at the
// first unhealthy monitor or error.
type AndMonitor []Monitor

// And combines ms into an [AndMonitor].
func And(ms ...Monitor) AndMonitor {
	return AndMonitor(ms)
}

// Healthy implements the [Monitor] interface.
func (am AndMonitor) Healthy(ctx context.Context) (bool, error) {
	for _, m := range am {
		healthy, err := m.Healthy(ctx)
		if !healthy || err != nil {
			return healthy, err
		}
	}
	return true, nil
}

// OrMonitor is healthy when any of its monitors is. Errors are only
// returned, joined, if no monitor is healthy.
type OrMonitor []Monitor

// Or combines ms into an [OrMonitor].
func Or(ms ...Monitor) OrMonitor {
	return OrMonitor(ms)
}

// Healthy implements the [Monitor] interface.
func (om OrMonitor) Healthy(ctx context.Context) (bool, error) {
	errs := make([]error, 0, len(om))
	for _, m := range om {
		healthy, err := m.Healthy(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if healthy {
			return true, nil
		}
	}
	return false, errors.Join(errs...)
}

// Probe serves m as a health probe, replying 200 OK when healthy
// and 503 Service Unavailable otherwise.
//
// Example:
//
//	var ready server.Binary
//	api := server.NewApi("Games", "v1", server.Readiness(server.Probe(&ready)))
func Probe(m Monitor) http.Handler {
	log := contract.Logger(instrumentationName)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		healthy, err := m.Healthy(r.Context())
		if err != nil {
			log.WarnContext(r.Context(), "health check failed", slog.Any("error", err))
		}
		if !healthy || err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
}
