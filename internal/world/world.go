// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package world is an in-memory world host: regions that load and unload,
// NPC entities that spawn into them, and straight-line navigators that move
// the entities. It emits the spawn and despawn events a game host would.
package world

import (
	"log/slog"
	"slices"
	"sort"

	"github.com/samber/oops"

	"github.com/holomush/wayfarer/internal/npc"
	"github.com/holomush/wayfarer/internal/waypoint"
)

// Listener receives entity lifecycle events. Handlers run synchronously on
// the goroutine driving the world and may call back into it.
type Listener interface {
	OnDespawn(ev npc.DespawnEvent)
	OnSpawnAttempt(ev *npc.SpawnAttempt)
	OnSpawn(ev npc.SpawnEvent)
}

// Config holds World settings.
type Config struct {
	// RegionSize is the region edge length. Defaults to waypoint.DefaultRegionSize.
	RegionSize int
	Logger     *slog.Logger
}

// World holds region state and entities. It is driven from a single
// goroutine and is not safe for concurrent use.
type World struct {
	regionSize int
	logger     *slog.Logger
	listener   Listener

	active       map[waypoint.RegionCoords]bool
	pendingLoads []waypoint.RegionCoords
	entities     map[npc.ID]*Entity
}

// New creates an empty world with no active regions.
func New(cfg Config) *World {
	if cfg.RegionSize <= 0 {
		cfg.RegionSize = waypoint.DefaultRegionSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &World{
		regionSize: cfg.RegionSize,
		logger:     cfg.Logger,
		active:     make(map[waypoint.RegionCoords]bool),
		entities:   make(map[npc.ID]*Entity),
	}
}

// SetListener installs the receiver of entity events. Nil disables delivery.
func (w *World) SetListener(l Listener) {
	w.listener = l
}

// RegionSize returns the region edge length.
func (w *World) RegionSize() int {
	return w.regionSize
}

// IsRegionActive reports whether region is loaded.
func (w *World) IsRegionActive(region waypoint.RegionCoords) bool {
	return w.active[region]
}

// ActiveRegions returns the loaded regions in a stable order.
func (w *World) ActiveRegions() []waypoint.RegionCoords {
	out := make([]waypoint.RegionCoords, 0, len(w.active))
	for r := range w.active {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.World != b.World {
			return a.World < b.World
		}
		if a.X != b.X {
			return a.X < b.X
		}
		return a.Z < b.Z
	})
	return out
}

// ActivateRegion loads region. Entities the host removed when the region
// unloaded are offered a respawn at their last position; the respawn can be
// cancelled by the listener.
func (w *World) ActivateRegion(region waypoint.RegionCoords) {
	if w.active[region] {
		return
	}
	w.active[region] = true
	w.logger.Debug("region activated", "region", region.String())

	for _, e := range w.sortedEntities() {
		if e.spawned || !e.awaitingRegion || e.pos.Region(w.regionSize) != region {
			continue
		}
		e.awaitingRegion = false
		attempt := &npc.SpawnAttempt{NPC: e.id, Reason: npc.SpawnRegionLoad, Position: e.pos}
		if w.listener != nil {
			w.listener.OnSpawnAttempt(attempt)
		}
		if attempt.Cancelled() {
			w.logger.Debug("region respawn cancelled", "npc_id", e.id.String(), "region", region.String())
			continue
		}
		e.materialize(e.pos, npc.SpawnRegionLoad)
	}
}

// DeactivateRegion unloads region, removing every entity standing in it.
func (w *World) DeactivateRegion(region waypoint.RegionCoords) {
	if !w.active[region] {
		return
	}
	delete(w.active, region)
	w.logger.Debug("region deactivated", "region", region.String())

	for _, e := range w.sortedEntities() {
		if e.spawned && e.pos.Region(w.regionSize) == region {
			e.dematerialize(npc.DespawnRegionUnload)
		}
	}
}

// ForceLoadRegion schedules region to load on the next ApplyPendingLoads.
func (w *World) ForceLoadRegion(region waypoint.RegionCoords) error {
	if region.World == "" {
		return oops.Code("REGION_INVALID").Errorf("region has no world")
	}
	if w.active[region] || slices.Contains(w.pendingLoads, region) {
		return nil
	}
	w.pendingLoads = append(w.pendingLoads, region)
	return nil
}

// PendingLoads returns the regions waiting to be force-loaded.
func (w *World) PendingLoads() []waypoint.RegionCoords {
	return slices.Clone(w.pendingLoads)
}

// ApplyPendingLoads activates every force-loaded region.
func (w *World) ApplyPendingLoads() {
	pending := w.pendingLoads
	w.pendingLoads = nil
	for _, r := range pending {
		w.ActivateRegion(r)
	}
}

// AddEntity creates an NPC entity at pos. The entity spawns immediately when
// pos is in an active region; otherwise it waits for the region to load.
func (w *World) AddEntity(id npc.ID, name string, pos waypoint.Waypoint, speed float64) (*Entity, error) {
	if err := pos.Validate(); err != nil {
		return nil, oops.With("npc", name).Wrap(err)
	}
	if _, exists := w.entities[id]; exists {
		return nil, oops.Code("ENTITY_EXISTS").With("npc_id", id.String()).Errorf("entity already exists")
	}
	e := &Entity{id: id, name: name, world: w, pos: pos}
	e.nav = &Navigator{entity: e, speed: speed}
	w.entities[id] = e

	if w.active[pos.Region(w.regionSize)] {
		e.materialize(pos, npc.SpawnInvoked)
	} else {
		e.awaitingRegion = true
	}
	return e, nil
}

// RemoveEntity deletes an entity without emitting events.
func (w *World) RemoveEntity(id npc.ID) {
	delete(w.entities, id)
}

// Entity returns the entity with id.
func (w *World) Entity(id npc.ID) (*Entity, bool) {
	e, ok := w.entities[id]
	return e, ok
}

// Entities returns every entity ordered by ID.
func (w *World) Entities() []*Entity {
	return w.sortedEntities()
}

// Step advances every navigator by dt seconds. An entity that walks into an
// inactive region is removed as if that region had unloaded.
func (w *World) Step(dt float64) {
	for _, e := range w.sortedEntities() {
		if !e.spawned {
			continue
		}
		e.nav.step(dt)
		if !w.active[e.pos.Region(w.regionSize)] {
			e.dematerialize(npc.DespawnRegionUnload)
		}
	}
}

func (w *World) sortedEntities() []*Entity {
	out := make([]*Entity, 0, len(w.entities))
	for _, e := range w.entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id.Compare(out[j].id) < 0 })
	return out
}
