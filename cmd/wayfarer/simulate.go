// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/wayfarer/internal/config"
	"github.com/holomush/wayfarer/internal/engine"
	"github.com/holomush/wayfarer/internal/logging"
	"github.com/holomush/wayfarer/internal/observability"
	"github.com/holomush/wayfarer/internal/scenario"
	"github.com/holomush/wayfarer/internal/traversal"
)

const serviceName = "wayfarer"

// NewSimulateCmd creates the simulate subcommand.
func NewSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate [scenario]",
		Short: "Run a scenario until interrupted or the tick limit",
		Long: `Load a scenario, seed the engine with its regions, routes and NPCs,
and tick until SIGINT/SIGTERM or --max-ticks. The scenario argument
overrides the scenario config key.

Metrics, health probes and the latest tick report are served on
--metrics-addr. With --reports every tick report is written to stdout
as one JSON object per line.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulateWithDeps(cmd.Context(), cmd, args, nil)
		},
	}

	config.RegisterFlags(cmd.Flags())

	return cmd
}

// runSimulateWithDeps runs the simulate command with injectable dependencies.
// If deps is nil, default implementations are used.
func runSimulateWithDeps(ctx context.Context, cmd *cobra.Command, args []string, deps *SimulateDeps) error {
	deps = deps.withDefaults()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return oops.With("config", configFile).Wrapf(err, "invalid configuration")
	}
	if len(args) == 1 {
		cfg.Scenario = args[0]
	}
	if cfg.Scenario == "" {
		return oops.Code("SCENARIO_REQUIRED").Errorf("no scenario: pass a file or set the scenario key")
	}

	logger := logging.Setup(serviceName, version, cfg.LogFormat, cfg.Level(), cmd.ErrOrStderr())
	slog.SetDefault(logger)

	doc, err := scenario.Load(cfg.Scenario)
	if err != nil {
		return err
	}

	ecfg := cfg.Engine(logger)
	doc.Configure(&ecfg)
	eng, err := engine.New(ecfg)
	if err != nil {
		return err
	}
	if err := doc.Apply(eng); err != nil {
		return oops.With("scenario", cfg.Scenario).Wrapf(err, "apply scenario")
	}

	logger.Info("starting simulation",
		"scenario", doc.Name,
		"npcs", len(doc.NPCs),
		"events", len(doc.Events),
		"tick_rate", ecfg.TickRate.String())

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var latest atomic.Pointer[engine.Report]
	reports := eng.Reports().Subscribe()
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		enc := json.NewEncoder(cmd.OutOrStdout())
		for r := range reports {
			latest.Store(&r)
			if !cfg.Reports {
				continue
			}
			if err := enc.Encode(r); err != nil {
				logger.Warn("write tick report failed", "tick", r.Tick, "error", err)
			}
		}
	}()

	var obsServer ObservabilityServer
	if cfg.MetricsAddr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.MetricsAddr, eng.Running,
			observability.WithCollectors(traversal.RegisterMetrics, engine.RegisterMetrics),
			observability.WithStatus(func() any {
				if r := latest.Load(); r != nil {
					return r
				}
				return nil
			}),
		)
		obsErrChan, err := obsServer.Start(ctx)
		if err != nil {
			eng.Reports().Unsubscribe(reports)
			<-drained
			return oops.With("addr", cfg.MetricsAddr).Wrapf(err, "start observability server")
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
	}

	runErr := eng.Run(ctx)

	eng.Reports().Unsubscribe(reports)
	<-drained

	if obsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	if runErr != nil {
		return runErr
	}

	logger.Info("simulation finished", "tick", eng.CurrentTick())
	return nil
}

// monitorServerErrors cancels ctx when errCh delivers an error. It exits
// when the channel closes or ctx is done.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
