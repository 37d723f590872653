// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package npc defines how traversal code talks to the world hosting an NPC:
// the entity host, its navigator, and the events the host emits.
package npc

import "github.com/holomush/wayfarer/internal/waypoint"

// Navigator moves a materialized entity toward a target. Pathfinding is the
// navigator's concern.
type Navigator interface {
	SetTarget(target waypoint.Waypoint) error
	Cancel()
	IsRunning() bool
	Speed() float64
}

// Host exposes one NPC's entity and the region state around it.
type Host interface {
	// Spawn materializes the entity at pos.
	Spawn(pos waypoint.Waypoint) error
	// Despawn removes the entity from the world.
	Despawn() error
	// IsSpawned reports whether the entity is materialized.
	IsSpawned() bool
	// Position is the entity's position, or its last known position while
	// despawned.
	Position() waypoint.Waypoint
	// Teleport moves a materialized entity to pos.
	Teleport(pos waypoint.Waypoint) error
	// LookAt turns the entity to face pos.
	LookAt(pos waypoint.Waypoint)
	// IsRegionActive reports whether a region is loaded and ticking.
	IsRegionActive(region waypoint.RegionCoords) bool
	// ForceLoadRegion asks the host to load a region. Completion is
	// signalled later through the host's region-load handling.
	ForceLoadRegion(region waypoint.RegionCoords) error
	// RegionSize is the edge length of the host's regions.
	RegionSize() int
}

// DespawnReason says why an entity left the world.
type DespawnReason uint8

// Despawn reasons.
const (
	// DespawnRegionUnload means the region holding the entity was deactivated.
	DespawnRegionUnload DespawnReason = iota
	// DespawnExplicit means something asked for the entity to be removed.
	DespawnExplicit
)

func (r DespawnReason) String() string {
	switch r {
	case DespawnRegionUnload:
		return "region_unload"
	case DespawnExplicit:
		return "explicit"
	default:
		return "unknown"
	}
}

// SpawnReason says why an entity is entering the world.
type SpawnReason uint8

// Spawn reasons.
const (
	// SpawnRegionLoad is the host's automatic respawn of an entity whose
	// region was reloaded.
	SpawnRegionLoad SpawnReason = iota
	// SpawnInvoked is a spawn requested through Host.Spawn.
	SpawnInvoked
)

func (r SpawnReason) String() string {
	switch r {
	case SpawnRegionLoad:
		return "region_load"
	case SpawnInvoked:
		return "invoked"
	default:
		return "unknown"
	}
}

// DespawnEvent reports that an entity left the world.
type DespawnEvent struct {
	NPC      ID
	Reason   DespawnReason
	Position waypoint.Waypoint
}

// SpawnAttempt is raised before the host spawns an entity. Handlers may
// cancel it.
type SpawnAttempt struct {
	NPC       ID
	Reason    SpawnReason
	Position  waypoint.Waypoint
	cancelled bool
}

// Cancel stops the host from spawning the entity.
func (a *SpawnAttempt) Cancel() {
	a.cancelled = true
}

// Cancelled reports whether a handler cancelled the attempt.
func (a *SpawnAttempt) Cancelled() bool {
	return a.cancelled
}

// SpawnEvent reports that an entity entered the world.
type SpawnEvent struct {
	NPC      ID
	Reason   SpawnReason
	Position waypoint.Waypoint
}
