// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package traversal

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Respawn sources for RecordRespawn.
const (
	RespawnSimulated    = "simulated"
	RespawnRegionReload = "region_reload"
	RespawnExternal     = "external"
)

// Transitions counts reconciler state transitions.
// Use RegisterMetrics to register this with a Prometheus registry.
var Transitions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "wayfarer_reconcile_transitions_total",
		Help: "Total number of despawn reconciler state transitions",
	},
	[]string{"from", "to"},
)

// StaleEvents counts host events ignored as duplicate or out of order.
var StaleEvents = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "wayfarer_stale_events_total",
		Help: "Total number of host events ignored as stale",
	},
	[]string{"event"},
)

// Respawns counts entities brought back at a simulated position.
var Respawns = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "wayfarer_respawns_total",
		Help: "Total number of reconciled respawns by source",
	},
	[]string{"source"},
)

// FinishNotifications counts finish callbacks delivered.
var FinishNotifications = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "wayfarer_finish_notifications_total",
		Help: "Total number of traversal finish notifications",
	},
	[]string{"kind"},
)

// WaypointsDispatched counts waypoints handed to the navigator.
var WaypointsDispatched = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "wayfarer_waypoints_dispatched_total",
		Help: "Total number of waypoints dispatched to navigators",
	},
	[]string{"kind"},
)

// HostFailures counts failed calls into the host or navigator.
var HostFailures = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "wayfarer_host_failures_total",
		Help: "Total number of failed host or navigator calls",
	},
	[]string{"operation"},
)

// Unreconciled tracks NPCs whose position is currently simulated.
var Unreconciled = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "wayfarer_unreconciled_npcs",
		Help: "Number of NPCs whose entity is unloaded while traversal continues",
	},
)

// RegisterMetrics registers traversal metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Transitions)
	reg.MustRegister(StaleEvents)
	reg.MustRegister(Respawns)
	reg.MustRegister(FinishNotifications)
	reg.MustRegister(WaypointsDispatched)
	reg.MustRegister(HostFailures)
	reg.MustRegister(Unreconciled)
}

func recordTransition(from, to ReconcileState) {
	Transitions.WithLabelValues(from.String(), to.String()).Inc()
	switch {
	case from == StateActive && to != StateActive:
		Unreconciled.Inc()
	case from != StateActive && to == StateActive:
		Unreconciled.Dec()
	}
}

func recordStale(event string) {
	StaleEvents.WithLabelValues(event).Inc()
}

func recordHostFailure(operation string) {
	HostFailures.WithLabelValues(operation).Inc()
}
