// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Renegan Contributors

package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/renegan/campusauth/internal/flow"
	"github.com/renegan/campusauth/internal/gateway"
	"github.com/renegan/campusauth/internal/observability"
	"github.com/renegan/campusauth/internal/tui"
	"github.com/renegan/campusauth/internal/xdg"
)

// FlowRunner drives one engine until the flow completes or the user leaves.
type FlowRunner func(ctx context.Context, engine *flow.Engine, bridge *tui.Bridge) (tui.Result, error)

// ObservabilityServer is the subset of observability.Server used by flows.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}

// FlowDeps contains injectable dependencies for the flow commands.
// All fields with nil values will use their default implementations.
type FlowDeps struct {
	// GatewayFactory creates the backend client.
	// Default: gateway.NewHTTPClient
	GatewayFactory func(cfg gateway.HTTPConfig) (gateway.Gateway, error)

	// Runner presents the flow to the user.
	// Default: tui.Run in the alternate screen
	Runner FlowRunner

	// ObservabilityServerFactory creates the metrics server.
	// Default: observability.NewServer with the flow metrics registered
	ObservabilityServerFactory func(addr string, ready observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer

	// LogWriterOpener opens the file that receives logs while a flow runs.
	// Default: openLogFile
	LogWriterOpener func(path string) (io.WriteCloser, error)
}

func (d *FlowDeps) withDefaults() FlowDeps {
	out := *d
	if out.GatewayFactory == nil {
		out.GatewayFactory = func(cfg gateway.HTTPConfig) (gateway.Gateway, error) {
			return gateway.NewHTTPClient(cfg)
		}
	}
	if out.Runner == nil {
		out.Runner = func(ctx context.Context, engine *flow.Engine, bridge *tui.Bridge) (tui.Result, error) {
			return tui.Run(ctx, engine, bridge, tea.WithAltScreen())
		}
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = func(addr string, ready observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer {
			return observability.NewServer(addr, ready, logger, flow.RegisterMetrics)
		}
	}
	if out.LogWriterOpener == nil {
		out.LogWriterOpener = openLogFile
	}
	return out
}

// openLogFile appends to path, creating its directory if needed.
func openLogFile(path string) (io.WriteCloser, error) {
	if err := xdg.EnsureDir(filepath.Dir(path)); err != nil {
		return nil, err
	}
	//nolint:gosec // path comes from the user's own config
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, err //nolint:wrapcheck // caller adds context
	}
	return f, nil
}
