// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Ticks counts completed engine ticks.
// Use RegisterMetrics to register this with a Prometheus registry.
var Ticks = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "wayfarer_engine_ticks_total",
		Help: "Total number of engine ticks processed",
	},
)

// TickDuration observes the wall time spent in one tick.
var TickDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "wayfarer_engine_tick_duration_seconds",
		Help:    "Wall time spent processing one engine tick",
		Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1},
	},
)

// InboxActions counts actions applied at tick boundaries.
var InboxActions = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "wayfarer_engine_inbox_actions_total",
		Help: "Total number of queued actions applied at tick boundaries",
	},
)

// DroppedReports counts tick reports a slow subscriber missed.
var DroppedReports = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "wayfarer_engine_dropped_reports_total",
		Help: "Total number of tick reports dropped for slow subscribers",
	},
)

// NPCs tracks the number of NPCs the engine drives.
var NPCs = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "wayfarer_engine_npcs",
		Help: "Number of NPCs managed by the engine",
	},
)

// RegisterMetrics registers engine metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Ticks)
	reg.MustRegister(TickDuration)
	reg.MustRegister(InboxActions)
	reg.MustRegister(DroppedReports)
	reg.MustRegister(NPCs)
}
