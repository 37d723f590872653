// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package traversal

import (
	"github.com/holomush/wayfarer/internal/goal"
	"github.com/holomush/wayfarer/internal/waypoint"
	"github.com/holomush/wayfarer/pkg/errutil"
)

// TraversalGoal walks the NPC through the trait's waypoint queue, one
// navigator target at a time.
type TraversalGoal struct {
	t *Trait
}

var _ goal.Goal = (*TraversalGoal)(nil)

// Name implements goal.Goal.
func (g *TraversalGoal) Name() string {
	if g.t.kind == KindSimple {
		return "SimpleWaypoint"
	}
	return "PlannedWaypoint"
}

// CanRun implements goal.Goal.
func (g *TraversalGoal) CanRun(goal.State) bool {
	return g.t.queue.HasNext()
}

// Reset implements goal.Goal. The simple variant replays its route from the
// start each time it is selected.
func (g *TraversalGoal) Reset(goal.State) {
	if g.t.kind != KindSimple {
		return
	}
	if err := g.t.queue.Reset(); err != nil {
		errutil.LogWarn(g.t.logger, "waypoint queue reset failed", err, "npc_id", g.t.id.String())
	}
}

// Pause implements goal.Goal.
func (g *TraversalGoal) Pause(goal.State) {}

// Cost implements goal.Goal.
func (g *TraversalGoal) Cost(goal.State) float64 {
	return 1.0
}

// FirstRun implements goal.Goal. A planned traversal resumes toward the
// waypoint it was heading to; a simple one starts over.
func (g *TraversalGoal) FirstRun(goal.Agent) {
	t := g.t
	t.nav.Cancel()
	if t.kind == KindSimple {
		t.current = nil
		return
	}
	if t.current != nil {
		g.dispatch(*t.current)
	}
}

// Run implements goal.Goal.
func (g *TraversalGoal) Run(agent goal.Agent) {
	if g.t.nav.IsRunning() {
		return
	}
	if !g.t.queue.HasNext() {
		if !g.t.notified {
			g.t.notifyFinish()
		}
		if !g.t.queue.HasNext() {
			g.t.current = nil
			agent.Finish()
			return
		}
	}
	g.advance()
}

func (g *TraversalGoal) advance() {
	g.dispatch(g.t.pop())
}

// dispatch targets w. A rejected waypoint is skipped: the navigator stays
// idle and the next Run pops the following one.
func (g *TraversalGoal) dispatch(w waypoint.Waypoint) {
	t := g.t
	if err := t.nav.SetTarget(w); err != nil {
		recordHostFailure("set_target")
		errutil.LogError(t.logger, "navigator rejected waypoint", err,
			"npc_id", t.id.String(), "waypoint", w.String())
		return
	}
	t.host.LookAt(w)
	t.logf("waypoint dispatched", "waypoint", w.String(), "remaining", t.queue.Remaining())
}
