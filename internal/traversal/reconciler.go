// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package traversal

import (
	"time"

	"github.com/holomush/wayfarer/internal/npc"
	"github.com/holomush/wayfarer/internal/simulate"
	"github.com/holomush/wayfarer/internal/waypoint"
	"github.com/holomush/wayfarer/pkg/errutil"
)

const (
	// DefaultCheckInterval is how many ticks pass between checks that the
	// regions around an active NPC are still loaded.
	DefaultCheckInterval = 10
	// DefaultMaterializeRadius is the ring of regions around a position that
	// must be active for an NPC to stand there.
	DefaultMaterializeRadius = 1
)

type pendingSpawn struct {
	pos waypoint.Waypoint
	due uint64
}

// reconciler keeps a planned traversal going while the NPC's entity is
// unloaded, then brings the entity back at the simulated position.
type reconciler struct {
	t     *Trait
	timer *simulate.Timer

	state   ReconcileState
	intent  RespawnIntent
	lastPos waypoint.Waypoint
	speed   float64
	pending *pendingSpawn

	sinceCheck int
	// despawning is set while the reconciler despawns the entity itself.
	despawning bool
}

func newReconciler(t *Trait) *reconciler {
	r := &reconciler{t: t}
	r.timer = simulate.NewTimer(simulate.Callbacks{
		Materializable:   r.materializable,
		OnMaterializable: r.onMaterializable,
		OnPathComplete:   r.onPathComplete,
	})
	return r
}

func (r *reconciler) transition(to ReconcileState, reason string) {
	from := r.state
	if from == to {
		return
	}
	r.state = to
	recordTransition(from, to)
	r.t.logf("reconcile transition",
		"from", from.String(),
		"to", to.String(),
		"intent", r.intent.String(),
		"reason", reason)
}

// materializable reports whether every region around pos is active.
func (r *reconciler) materializable(pos waypoint.Waypoint) bool {
	host := r.t.host
	for _, region := range pos.Region(host.RegionSize()).Nearby(r.t.cfg.MaterializeRadius) {
		if !host.IsRegionActive(region) {
			return false
		}
	}
	return true
}

// beginSimulation starts the timer from pos toward the current waypoint.
// The caller has set the intent.
func (r *reconciler) beginSimulation(from waypoint.Waypoint, speed float64, reason string) bool {
	r.t.nav.Cancel()
	if err := r.timer.Start(from, *r.t.current, speed); err != nil {
		errutil.LogError(r.t.logger, "cannot simulate traversal", err,
			"npc_id", r.t.id.String(), "from", from.String())
		r.intent = IntentNone
		return false
	}
	r.lastPos = from
	r.speed = speed
	r.transition(StateSimulating, reason)
	return true
}

func (r *reconciler) onDespawn(ev npc.DespawnEvent) {
	if r.despawning {
		return
	}
	if r.intent != IntentNone {
		recordStale("despawn")
		r.t.logf("despawn ignored", "reason", ev.Reason.String(), "intent", r.intent.String())
		return
	}
	if ev.Reason != npc.DespawnRegionUnload || r.t.current == nil {
		return
	}
	r.intent = IntentAwaitingRegionReload
	r.beginSimulation(ev.Position, r.t.nav.Speed(), "region_unload")
}

func (r *reconciler) onMaterializable(pos waypoint.Waypoint) {
	if r.intent == IntentAwaitingRegionReload {
		own := r.lastPos.Region(r.t.host.RegionSize())
		if !r.t.host.IsRegionActive(own) {
			if err := r.t.host.ForceLoadRegion(own); err != nil {
				recordHostFailure("force_load")
				errutil.LogError(r.t.logger, "force load failed", err,
					"npc_id", r.t.id.String(), "region", own.String())
				r.requestSpawn(pos, r.t.clock(), "force_load_failed")
				return
			}
			r.transition(StateAwaitingReload, "materializable")
			return
		}
	}
	r.requestSpawn(pos, r.t.clock(), "materializable")
}

// onPathComplete fires when a segment ends out of reach. The plan carries
// on toward the next queued waypoint. Subscribers hear only once the queue
// is exhausted, and whatever they queue in response is simulated as well.
func (r *reconciler) onPathComplete() {
	reached := r.timer.Position()
	if !r.t.queue.HasNext() {
		r.t.logf("simulated path complete", "destination", reached.String())
		r.t.notifyFinish()
		if !r.t.queue.HasNext() {
			return
		}
	}
	next := r.t.pop()
	if err := r.timer.Start(reached, next, r.speed); err != nil {
		errutil.LogError(r.t.logger, "cannot simulate toward next waypoint", err,
			"npc_id", r.t.id.String(), "from", reached.String(), "waypoint", next.String())
		return
	}
	r.t.logf("simulated waypoint reached",
		"waypoint", reached.String(),
		"next", next.String(),
		"remaining", r.t.queue.Remaining())
}

// onSpawnAttempt intercepts the host's own region-load respawn, which would
// put the entity back where it was unloaded.
func (r *reconciler) onSpawnAttempt(a *npc.SpawnAttempt) {
	if a.Reason != npc.SpawnRegionLoad {
		return
	}
	if r.intent == IntentNone {
		recordStale("spawn_attempt")
		return
	}
	a.Cancel()

	switch r.state {
	case StateAwaitingReload:
		pos, _ := r.timer.Stop()
		r.schedule(pos)
	case StateSimulating:
		pos := r.timer.Position()
		if r.materializable(pos) {
			r.timer.Stop()
			r.schedule(pos)
			return
		}
		// The host has given up its respawn, so the entity comes back only
		// through a spawn of our own.
		r.intent = IntentAwaitingManualRespawn
	}
}

func (r *reconciler) schedule(pos waypoint.Waypoint) {
	r.requestSpawn(pos, r.t.clock()+1, "region_reload")
}

// requestSpawn queues a spawn at pos for the update of tick due. Spawns never
// run inside timer or host callbacks.
func (r *reconciler) requestSpawn(pos waypoint.Waypoint, due uint64, reason string) {
	r.intent = IntentAwaitingManualRespawn
	r.pending = &pendingSpawn{pos: pos, due: due}
	r.transition(StateAwaitingRespawn, reason)
}

// spawnDue runs a pending spawn whose tick has come. It reports whether one
// was taken off.
func (r *reconciler) spawnDue(tick uint64) bool {
	if r.pending == nil || tick < r.pending.due {
		return false
	}
	p := r.pending
	r.pending = nil
	if r.state == StateAwaitingRespawn && r.intent != IntentNone {
		r.spawnAt(p.pos)
	}
	return true
}

func (r *reconciler) spawnAt(pos waypoint.Waypoint) {
	if err := r.t.host.Spawn(pos); err != nil {
		recordHostFailure("spawn")
		errutil.LogWarn(r.t.logger, "respawn failed, resuming simulation", err,
			"npc_id", r.t.id.String(), "position", pos.String())
		if !r.beginSimulation(pos, r.speed, "spawn_failed") {
			r.halt("spawn_failed")
		}
	}
}

func (r *reconciler) onSpawn(ev npc.SpawnEvent) {
	if r.intent == IntentNone {
		return
	}
	pos, ok := r.timer.Stop()
	r.pending = nil
	source := RespawnSimulated
	if ev.Reason == npc.SpawnRegionLoad {
		source = RespawnRegionReload
	} else if r.state != StateAwaitingRespawn {
		source = RespawnExternal
	}
	if ok && r.t.host.Position() != pos {
		if err := r.t.host.Teleport(pos); err != nil {
			recordHostFailure("teleport")
			errutil.LogError(r.t.logger, "teleport to simulated position failed", err,
				"npc_id", r.t.id.String(), "position", pos.String())
		}
	}
	r.intent = IntentNone
	Respawns.WithLabelValues(source).Inc()
	r.transition(StateActive, "spawned")

	// current already names the destination unless a segment could not be
	// started toward it.
	dest, ok := r.timer.CurrentDestination()
	if r.t.current != nil {
		dest, ok = *r.t.current, true
	}
	if !ok {
		return
	}
	r.t.current = &dest
	if err := r.t.nav.SetTarget(dest); err != nil {
		recordHostFailure("set_target")
		errutil.LogError(r.t.logger, "navigator rejected resumed waypoint", err,
			"npc_id", r.t.id.String(), "waypoint", dest.String())
		return
	}
	r.t.host.LookAt(dest)
}

func (r *reconciler) update(tick uint64, dt time.Duration) {
	if r.spawnDue(tick) {
		return
	}

	switch r.state {
	case StateSimulating:
		if r.timer.IsRunning() {
			r.timer.Tick(dt)
		} else if pos := r.timer.Position(); r.materializable(pos) {
			// Completed without materializing: the destination's
			// surroundings have loaded since.
			r.onMaterializable(pos)
		}
		r.spawnDue(tick)
	case StateActive:
		r.checkSurroundings()
	}
}

// checkSurroundings despawns an active NPC whose surroundings are no longer
// loaded and continues its traversal in simulation.
func (r *reconciler) checkSurroundings() {
	interval := r.t.cfg.CheckInterval
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	r.sinceCheck++
	if r.sinceCheck < interval {
		return
	}
	r.sinceCheck = 0

	host := r.t.host
	if r.t.current == nil || !host.IsSpawned() || r.intent != IntentNone {
		return
	}
	pos := host.Position()
	if r.materializable(pos) {
		return
	}
	speed := r.t.nav.Speed()
	r.intent = IntentAwaitingManualRespawn
	r.despawning = true
	err := host.Despawn()
	r.despawning = false
	if err != nil {
		recordHostFailure("despawn")
		errutil.LogError(r.t.logger, "self despawn failed", err, "npc_id", r.t.id.String())
		r.intent = IntentNone
		return
	}
	r.beginSimulation(pos, speed, "surroundings_unloaded")
}

// halt drops any simulation or pending respawn.
func (r *reconciler) halt(reason string) {
	r.timer.Clear()
	r.pending = nil
	r.intent = IntentNone
	r.sinceCheck = 0
	r.transition(StateActive, reason)
}
