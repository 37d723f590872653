// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package world_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/wayfarer/internal/npc"
	"github.com/holomush/wayfarer/internal/waypoint"
	"github.com/holomush/wayfarer/internal/world"
	"github.com/holomush/wayfarer/pkg/errutil"
)

// eventLog records listener calls in order.
type eventLog struct {
	events       []string
	cancelReload bool
}

func (l *eventLog) OnDespawn(ev npc.DespawnEvent) {
	l.events = append(l.events, "despawn:"+ev.Reason.String())
}

func (l *eventLog) OnSpawnAttempt(ev *npc.SpawnAttempt) {
	l.events = append(l.events, "attempt:"+ev.Reason.String())
	if l.cancelReload && ev.Reason == npc.SpawnRegionLoad {
		ev.Cancel()
	}
}

func (l *eventLog) OnSpawn(ev npc.SpawnEvent) {
	l.events = append(l.events, "spawn:"+ev.Reason.String())
}

var (
	home = waypoint.RegionCoords{World: "overworld"}
	east = waypoint.RegionCoords{World: "overworld", X: 1}
)

func newWorld(t *testing.T, active ...waypoint.RegionCoords) (*world.World, *eventLog) {
	t.Helper()
	w := world.New(world.Config{RegionSize: 16})
	for _, r := range active {
		w.ActivateRegion(r)
	}
	log := &eventLog{}
	w.SetListener(log)
	return w, log
}

func TestWorld_AddEntitySpawnsInActiveRegion(t *testing.T) {
	w, log := newWorld(t, home)

	e, err := w.AddEntity(npc.NewID(), "guard", waypoint.At("overworld", 2, 64, 2), 1)
	require.NoError(t, err)

	assert.True(t, e.IsSpawned())
	assert.Equal(t, []string{"spawn:invoked"}, log.events)
}

func TestWorld_AddEntityWaitsForRegion(t *testing.T) {
	w, log := newWorld(t)
	e, err := w.AddEntity(npc.NewID(), "guard", waypoint.At("overworld", 2, 64, 2), 1)
	require.NoError(t, err)
	assert.False(t, e.IsSpawned())
	assert.True(t, e.AwaitingRegionRespawn())

	w.ActivateRegion(home)

	assert.True(t, e.IsSpawned())
	assert.Equal(t, []string{"attempt:region_load", "spawn:region_load"}, log.events)
}

func TestWorld_AddEntityErrors(t *testing.T) {
	w, _ := newWorld(t, home)
	id := npc.NewID()

	_, err := w.AddEntity(id, "guard", waypoint.Waypoint{}, 1)
	errutil.AssertErrorCode(t, err, "WAYPOINT_INVALID")

	_, err = w.AddEntity(id, "guard", waypoint.At("overworld", 1, 1, 1), 1)
	require.NoError(t, err)
	_, err = w.AddEntity(id, "guard", waypoint.At("overworld", 1, 1, 1), 1)
	errutil.AssertErrorCode(t, err, "ENTITY_EXISTS")
}

func TestWorld_DeactivateAndReactivate(t *testing.T) {
	w, log := newWorld(t, home)
	e, err := w.AddEntity(npc.NewID(), "guard", waypoint.At("overworld", 2, 64, 2), 1)
	require.NoError(t, err)
	log.events = nil

	w.DeactivateRegion(home)
	assert.False(t, e.IsSpawned())
	assert.False(t, w.IsRegionActive(home))

	w.ActivateRegion(home)
	assert.True(t, e.IsSpawned())
	assert.Equal(t, []string{"despawn:region_unload", "attempt:region_load", "spawn:region_load"}, log.events)
}

func TestWorld_CancelledRegionRespawn(t *testing.T) {
	w, log := newWorld(t, home)
	e, err := w.AddEntity(npc.NewID(), "guard", waypoint.At("overworld", 2, 64, 2), 1)
	require.NoError(t, err)
	log.cancelReload = true

	w.DeactivateRegion(home)
	w.ActivateRegion(home)

	assert.False(t, e.IsSpawned())
	assert.False(t, e.AwaitingRegionRespawn(), "a cancelled respawn is not retried")
}

func TestWorld_ExplicitDespawnDoesNotAutoRespawn(t *testing.T) {
	w, log := newWorld(t, home)
	e, err := w.AddEntity(npc.NewID(), "guard", waypoint.At("overworld", 2, 64, 2), 1)
	require.NoError(t, err)

	require.NoError(t, e.Despawn())
	require.NoError(t, e.Despawn())
	w.DeactivateRegion(home)
	w.ActivateRegion(home)

	assert.False(t, e.IsSpawned())
	assert.Equal(t, []string{"spawn:invoked", "despawn:explicit"}, log.events)
}

func TestWorld_ForceLoadRegion(t *testing.T) {
	w, log := newWorld(t)
	e, err := w.AddEntity(npc.NewID(), "guard", waypoint.At("overworld", 2, 64, 2), 1)
	require.NoError(t, err)

	require.NoError(t, e.ForceLoadRegion(home))
	require.NoError(t, e.ForceLoadRegion(home))
	assert.Equal(t, []waypoint.RegionCoords{home}, w.PendingLoads())
	assert.False(t, w.IsRegionActive(home), "forced loads wait for the next boundary")

	w.ApplyPendingLoads()

	assert.True(t, w.IsRegionActive(home))
	assert.Empty(t, w.PendingLoads())
	assert.True(t, e.IsSpawned())
	assert.Contains(t, log.events, "spawn:region_load")

	errutil.AssertErrorCode(t, w.ForceLoadRegion(waypoint.RegionCoords{}), "REGION_INVALID")
}

func TestEntity_SpawnRules(t *testing.T) {
	w, _ := newWorld(t, home)
	e, err := w.AddEntity(npc.NewID(), "guard", waypoint.At("overworld", 2, 64, 2), 1)
	require.NoError(t, err)

	errutil.AssertErrorCode(t, e.Spawn(waypoint.At("overworld", 3, 64, 3)), "ENTITY_ALREADY_SPAWNED")

	require.NoError(t, e.Despawn())
	errutil.AssertErrorCode(t, e.Spawn(waypoint.At("overworld", 20, 64, 3)), "REGION_INACTIVE")
	errutil.AssertErrorCode(t, e.Teleport(waypoint.At("overworld", 3, 64, 3)), "ENTITY_NOT_SPAWNED")

	require.NoError(t, e.Spawn(waypoint.At("overworld", 3, 64, 3)))
	assert.Equal(t, waypoint.At("overworld", 3, 64, 3), e.Position())
}

func TestEntity_SpawnCancelledByListener(t *testing.T) {
	w := world.New(world.Config{})
	w.ActivateRegion(home)
	e, err := w.AddEntity(npc.NewID(), "guard", waypoint.At("overworld", 2, 64, 2), 1)
	require.NoError(t, err)
	require.NoError(t, e.Despawn())
	w.SetListener(cancelAll{})

	errutil.AssertErrorCode(t, e.Spawn(waypoint.At("overworld", 2, 64, 2)), "SPAWN_CANCELLED")
	assert.False(t, e.IsSpawned())
}

type cancelAll struct{}

func (cancelAll) OnDespawn(npc.DespawnEvent)         {}
func (cancelAll) OnSpawnAttempt(a *npc.SpawnAttempt) { a.Cancel() }
func (cancelAll) OnSpawn(npc.SpawnEvent)             {}

func TestEntity_LookAt(t *testing.T) {
	w, _ := newWorld(t, home)
	e, err := w.AddEntity(npc.NewID(), "guard", waypoint.At("overworld", 0, 64, 0), 1)
	require.NoError(t, err)

	e.LookAt(waypoint.At("overworld", 0, 64, 5))
	assert.InDelta(t, 0, e.Yaw(), 1e-9)

	e.LookAt(waypoint.At("overworld", -5, 64, 0))
	assert.InDelta(t, 90, e.Yaw(), 1e-9)
}

func TestNavigator_StepsTowardTarget(t *testing.T) {
	w, _ := newWorld(t, home)
	e, err := w.AddEntity(npc.NewID(), "guard", waypoint.At("overworld", 0, 64, 0), 2)
	require.NoError(t, err)
	nav := e.Navigator()

	require.NoError(t, nav.SetTarget(waypoint.At("overworld", 10, 64, 0)))
	assert.True(t, nav.IsRunning())

	w.Step(1)
	assert.InDelta(t, 2, e.Position().X, 1e-9)

	w.Step(10)
	assert.Equal(t, waypoint.At("overworld", 10, 64, 0), e.Position())
	assert.False(t, nav.IsRunning())
}

func TestNavigator_WalkingIntoInactiveRegionDespawns(t *testing.T) {
	w, log := newWorld(t, home)
	e, err := w.AddEntity(npc.NewID(), "guard", waypoint.At("overworld", 14, 64, 0), 2)
	require.NoError(t, err)
	require.NoError(t, e.Navigator().SetTarget(waypoint.At("overworld", 30, 64, 0)))
	log.events = nil

	w.Step(2)

	assert.False(t, e.IsSpawned())
	assert.False(t, e.Navigator().IsRunning())
	assert.Equal(t, []string{"despawn:region_unload"}, log.events)

	w.ActivateRegion(east)
	assert.True(t, e.IsSpawned())
}

func TestNavigator_SetTargetErrors(t *testing.T) {
	w, _ := newWorld(t, home)
	e, err := w.AddEntity(npc.NewID(), "guard", waypoint.At("overworld", 0, 64, 0), 0)
	require.NoError(t, err)
	nav := e.Navigator()

	errutil.AssertErrorCode(t, nav.SetTarget(waypoint.At("nether", 1, 1, 1)), "WORLD_MISMATCH")
	errutil.AssertErrorCode(t, nav.SetTarget(waypoint.At("overworld", 1, 1, 1)), "SPEED_INVALID")

	nav.SetSpeed(1)
	require.NoError(t, e.Despawn())
	errutil.AssertErrorCode(t, nav.SetTarget(waypoint.At("overworld", 1, 1, 1)), "ENTITY_NOT_SPAWNED")
}

func TestWorld_ActiveRegionsSorted(t *testing.T) {
	w, _ := newWorld(t, east, home, waypoint.RegionCoords{World: "nether"})

	assert.Equal(t, []waypoint.RegionCoords{
		{World: "nether"},
		home,
		east,
	}, w.ActiveRegions())
}
