// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package world

import (
	"math"

	"github.com/samber/oops"

	"github.com/holomush/wayfarer/internal/npc"
	"github.com/holomush/wayfarer/internal/waypoint"
)

// Entity is one NPC's body in the world. It implements npc.Host.
type Entity struct {
	id    npc.ID
	name  string
	world *World
	nav   *Navigator

	pos     waypoint.Waypoint
	yaw     float64
	spawned bool
	// awaitingRegion is set when the host removed the entity because its
	// region unloaded; the host respawns it when the region loads again.
	awaitingRegion bool
}

var _ npc.Host = (*Entity)(nil)

// ID returns the NPC ID.
func (e *Entity) ID() npc.ID { return e.id }

// NPC returns the entity's ID. It lets an Entity serve as goal state.
func (e *Entity) NPC() npc.ID { return e.id }

// Name returns the NPC name.
func (e *Entity) Name() string { return e.name }

// Navigator returns the entity's navigator.
func (e *Entity) Navigator() *Navigator { return e.nav }

// Yaw returns the facing angle in degrees, 0 facing +Z.
func (e *Entity) Yaw() float64 { return e.yaw }

// AwaitingRegionRespawn reports whether the host will respawn the entity
// when its region loads.
func (e *Entity) AwaitingRegionRespawn() bool { return e.awaitingRegion }

// Spawn materializes the entity at pos. pos must be in an active region.
func (e *Entity) Spawn(pos waypoint.Waypoint) error {
	if err := pos.Validate(); err != nil {
		return err
	}
	if e.spawned {
		return oops.Code("ENTITY_ALREADY_SPAWNED").With("npc_id", e.id.String()).Errorf("entity is already spawned")
	}
	region := pos.Region(e.world.regionSize)
	if !e.world.active[region] {
		return oops.Code("REGION_INACTIVE").
			With("npc_id", e.id.String()).
			With("region", region.String()).
			Errorf("cannot spawn into an inactive region")
	}

	attempt := &npc.SpawnAttempt{NPC: e.id, Reason: npc.SpawnInvoked, Position: pos}
	if e.world.listener != nil {
		e.world.listener.OnSpawnAttempt(attempt)
	}
	if attempt.Cancelled() {
		return oops.Code("SPAWN_CANCELLED").With("npc_id", e.id.String()).Errorf("spawn was cancelled")
	}
	e.awaitingRegion = false
	e.materialize(pos, npc.SpawnInvoked)
	return nil
}

// Despawn removes the entity. Despawning a despawned entity does nothing.
func (e *Entity) Despawn() error {
	if !e.spawned {
		return nil
	}
	e.awaitingRegion = false
	e.dematerialize(npc.DespawnExplicit)
	return nil
}

// IsSpawned reports whether the entity is in the world.
func (e *Entity) IsSpawned() bool { return e.spawned }

// Position returns the current or last known position.
func (e *Entity) Position() waypoint.Waypoint { return e.pos }

// Teleport moves a spawned entity to pos.
func (e *Entity) Teleport(pos waypoint.Waypoint) error {
	if err := pos.Validate(); err != nil {
		return err
	}
	if !e.spawned {
		return oops.Code("ENTITY_NOT_SPAWNED").With("npc_id", e.id.String()).Errorf("cannot teleport a despawned entity")
	}
	e.nav.Cancel()
	e.pos = pos
	return nil
}

// LookAt turns the entity toward pos.
func (e *Entity) LookAt(pos waypoint.Waypoint) {
	dx, dz := pos.X-e.pos.X, pos.Z-e.pos.Z
	if dx == 0 && dz == 0 {
		return
	}
	e.yaw = math.Atan2(-dx, dz) * 180 / math.Pi
}

// IsRegionActive reports whether region is loaded.
func (e *Entity) IsRegionActive(region waypoint.RegionCoords) bool {
	return e.world.IsRegionActive(region)
}

// ForceLoadRegion schedules region to load.
func (e *Entity) ForceLoadRegion(region waypoint.RegionCoords) error {
	return e.world.ForceLoadRegion(region)
}

// RegionSize returns the world's region edge length.
func (e *Entity) RegionSize() int { return e.world.regionSize }

func (e *Entity) materialize(pos waypoint.Waypoint, reason npc.SpawnReason) {
	e.pos = pos
	e.spawned = true
	e.world.logger.Debug("entity spawned", "npc_id", e.id.String(), "reason", reason.String(), "position", pos.String())
	if e.world.listener != nil {
		e.world.listener.OnSpawn(npc.SpawnEvent{NPC: e.id, Reason: reason, Position: pos})
	}
}

func (e *Entity) dematerialize(reason npc.DespawnReason) {
	e.spawned = false
	e.nav.Cancel()
	if reason == npc.DespawnRegionUnload {
		e.awaitingRegion = true
	}
	e.world.logger.Debug("entity despawned", "npc_id", e.id.String(), "reason", reason.String(), "position", e.pos.String())
	if e.world.listener != nil {
		e.world.listener.OnDespawn(npc.DespawnEvent{NPC: e.id, Reason: reason, Position: e.pos})
	}
}
