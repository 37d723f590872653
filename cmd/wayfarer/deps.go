// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"

	"github.com/holomush/wayfarer/internal/observability"
)

// SimulateDeps holds injectable dependencies for the simulate command.
// Nil fields are replaced by the production implementation.
type SimulateDeps struct {
	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker, opts ...observability.Option) ObservabilityServer
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start(ctx context.Context) (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}

func (d *SimulateDeps) withDefaults() *SimulateDeps {
	out := SimulateDeps{}
	if d != nil {
		out = *d
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker, opts ...observability.Option) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker, opts...)
		}
	}
	return &out
}
