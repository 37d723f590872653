// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package traversal

import (
	"log/slog"
	"slices"

	"github.com/samber/oops"

	"github.com/holomush/wayfarer/internal/npc"
)

// Registry owns the traits of every NPC and routes host events to them.
// It is driven from the engine's tick goroutine and is not safe for
// concurrent use.
type Registry struct {
	traits map[npc.ID]*Trait
	tick   uint64
	logger *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{traits: make(map[npc.ID]*Trait), logger: logger}
}

// SetTick records the engine tick being processed. Deferred respawns are
// scheduled relative to it.
func (r *Registry) SetTick(tick uint64) {
	r.tick = tick
}

// Tick returns the tick being processed.
func (r *Registry) Tick() uint64 {
	return r.tick
}

// Attach adds t. An NPC has at most one trait.
func (r *Registry) Attach(t *Trait) error {
	if _, exists := r.traits[t.id]; exists {
		return oops.Code("TRAIT_EXISTS").With("npc_id", t.id.String()).Errorf("npc already has a traversal")
	}
	t.attached = true
	t.clock = r.Tick
	r.traits[t.id] = t
	r.logger.Debug("traversal attached", "npc_id", t.id.String(), "kind", t.kind.String())
	return nil
}

// Detach stops and clears the NPC's trait and drops it. It reports whether
// the NPC had one.
func (r *Registry) Detach(id npc.ID) bool {
	t, ok := r.traits[id]
	if !ok {
		return false
	}
	t.Stop()
	t.Clear()
	t.finish = nil
	t.attached = false
	delete(r.traits, id)
	r.logger.Debug("traversal detached", "npc_id", id.String())
	return true
}

// Get returns the NPC's trait.
func (r *Registry) Get(id npc.ID) (*Trait, bool) {
	t, ok := r.traits[id]
	return t, ok
}

// Len returns the number of attached traits.
func (r *Registry) Len() int {
	return len(r.traits)
}

// Each calls fn for every trait in NPC ID order.
func (r *Registry) Each(fn func(*Trait)) {
	ids := make([]npc.ID, 0, len(r.traits))
	for id := range r.traits {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b npc.ID) int { return a.Compare(b) })
	for _, id := range ids {
		if t, ok := r.traits[id]; ok {
			fn(t)
		}
	}
}

// OnDespawn routes a host despawn to the NPC's trait.
func (r *Registry) OnDespawn(ev npc.DespawnEvent) {
	if t, ok := r.traits[ev.NPC]; ok {
		t.handleDespawn(ev)
	}
}

// OnSpawnAttempt routes a host spawn attempt to the NPC's trait.
func (r *Registry) OnSpawnAttempt(a *npc.SpawnAttempt) {
	if t, ok := r.traits[a.NPC]; ok {
		t.handleSpawnAttempt(a)
	}
}

// OnSpawn routes a host spawn to the NPC's trait.
func (r *Registry) OnSpawn(ev npc.SpawnEvent) {
	if t, ok := r.traits[ev.NPC]; ok {
		t.handleSpawn(ev)
	}
}
