// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package traversal

// ReconcileState is where an NPC stands between real and simulated movement.
type ReconcileState uint8

// Reconcile states.
const (
	// StateActive means the entity exists and the traversal goal drives it.
	StateActive ReconcileState = iota
	// StateSimulating means the entity is gone and the timer drives its position.
	StateSimulating
	// StateAwaitingReload means the simulated position can be materialized
	// but the NPC's own region was force-loaded and has not loaded yet.
	StateAwaitingReload
	// StateAwaitingRespawn means a spawn at the simulated position is pending.
	StateAwaitingRespawn
)

func (s ReconcileState) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateSimulating:
		return "simulating"
	case StateAwaitingReload:
		return "awaiting_reload"
	case StateAwaitingRespawn:
		return "awaiting_respawn"
	default:
		return "unknown"
	}
}

// RespawnIntent records whether, and how, the reconciler expects the entity
// to come back. Any value other than IntentNone marks spawn and despawn
// events for the NPC as belonging to the reconciler.
type RespawnIntent uint8

// Respawn intents.
const (
	IntentNone RespawnIntent = iota
	// IntentAwaitingRegionReload: the host removed the entity with its
	// region and will try to respawn it when that region loads.
	IntentAwaitingRegionReload
	// IntentAwaitingManualRespawn: the reconciler spawns the entity itself.
	IntentAwaitingManualRespawn
)

func (i RespawnIntent) String() string {
	switch i {
	case IntentNone:
		return "none"
	case IntentAwaitingRegionReload:
		return "awaiting_region_reload"
	case IntentAwaitingManualRespawn:
		return "awaiting_manual_respawn"
	default:
		return "unknown"
	}
}

// Kind selects the traversal variant.
type Kind uint8

// Traversal kinds.
const (
	// KindPlanned consumes its waypoints and keeps simulating movement while
	// the entity is unloaded.
	KindPlanned Kind = iota
	// KindSimple replays its waypoints from the start whenever the goal
	// resumes and does nothing while the entity is unloaded.
	KindSimple
)

func (k Kind) String() string {
	switch k {
	case KindPlanned:
		return "planned"
	case KindSimple:
		return "simple"
	default:
		return "unknown"
	}
}

// ParseKind parses "planned" or "simple".
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "planned":
		return KindPlanned, true
	case "simple":
		return KindSimple, true
	default:
		return 0, false
	}
}
