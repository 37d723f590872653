// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package traversal_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/holomush/wayfarer/internal/goal"
	"github.com/holomush/wayfarer/internal/npc"
	"github.com/holomush/wayfarer/internal/traversal"
	"github.com/holomush/wayfarer/internal/waypoint"
	"github.com/holomush/wayfarer/internal/world"
)

const worldName = "overworld"

func wp(x float64) waypoint.Waypoint {
	return waypoint.At(worldName, x, 0, 0)
}

func region(x, z int) waypoint.RegionCoords {
	return waypoint.RegionCoords{World: worldName, X: x, Z: z}
}

// harness runs one NPC through the same per-tick order as the engine.
type harness struct {
	world  *world.World
	reg    *traversal.Registry
	entity *world.Entity
	sched  *goal.Scheduler
	trait  *traversal.Trait
	tick   uint64
}

func newHarness(t *testing.T, cfg traversal.Config, start waypoint.Waypoint, speed float64, active ...waypoint.RegionCoords) *harness {
	t.Helper()

	w := world.New(world.Config{RegionSize: 16})
	for _, r := range active {
		w.ActivateRegion(r)
	}
	reg := traversal.NewRegistry(nil)
	w.SetListener(reg)

	id := npc.NewID()
	e, err := w.AddEntity(id, "walker", start, speed)
	require.NoError(t, err)
	sched := goal.NewScheduler(e, nil)
	tr, err := traversal.New(id, e, e.Navigator(), sched, cfg)
	require.NoError(t, err)
	require.NoError(t, reg.Attach(tr))

	return &harness{world: w, reg: reg, entity: e, sched: sched, trait: tr}
}

// strip returns regions x = from..to at z = 0.
func strip(from, to int) []waypoint.RegionCoords {
	var out []waypoint.RegionCoords
	for x := from; x <= to; x++ {
		out = append(out, region(x, 0))
	}
	return out
}

func (h *harness) begin() {
	h.tick++
	h.reg.SetTick(h.tick)
	h.world.ApplyPendingLoads()
}

func (h *harness) update() {
	h.trait.Update(h.tick, time.Second)
	h.sched.Tick()
}

func (h *harness) move() {
	h.world.Step(1)
}

func (h *harness) step() {
	h.begin()
	h.update()
	h.move()
}

func (h *harness) steps(n int) {
	for range n {
		h.step()
	}
}

func (h *harness) finishCounter(t *testing.T) *int {
	t.Helper()
	var n int
	_, err := h.trait.OnFinish(func(*traversal.Trait) { n++ })
	require.NoError(t, err)
	return &n
}

// blocker is a higher-priority goal that runs once when raised.
type blocker struct {
	raised bool
}

func (b *blocker) Name() string            { return "Blocker" }
func (b *blocker) CanRun(goal.State) bool  { return b.raised }
func (b *blocker) Reset(goal.State)        {}
func (b *blocker) Pause(goal.State)        {}
func (b *blocker) Cost(goal.State) float64 { return 1 }
func (b *blocker) FirstRun(goal.Agent)     {}
func (b *blocker) Run(agent goal.Agent) {
	b.raised = false
	agent.Finish()
}
