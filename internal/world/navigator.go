// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package world

import (
	"github.com/samber/oops"

	"github.com/holomush/wayfarer/internal/npc"
	"github.com/holomush/wayfarer/internal/waypoint"
)

// Navigator walks its entity straight toward a target at a fixed speed.
// It implements npc.Navigator.
type Navigator struct {
	entity  *Entity
	speed   float64
	target  waypoint.Waypoint
	running bool
}

var _ npc.Navigator = (*Navigator)(nil)

// SetTarget starts moving toward target. The entity must be spawned and in
// the same world as target.
func (n *Navigator) SetTarget(target waypoint.Waypoint) error {
	if err := target.Validate(); err != nil {
		return err
	}
	if !n.entity.spawned {
		return oops.Code("ENTITY_NOT_SPAWNED").
			With("npc_id", n.entity.id.String()).
			Errorf("cannot navigate a despawned entity")
	}
	if target.World != n.entity.pos.World {
		return oops.Code("WORLD_MISMATCH").
			With("npc_id", n.entity.id.String()).
			With("target", target.String()).
			Errorf("target is in another world")
	}
	if n.speed <= 0 {
		return oops.Code("SPEED_INVALID").With("npc_id", n.entity.id.String()).Errorf("navigator has no speed")
	}
	n.target = target
	n.running = true
	return nil
}

// Cancel stops navigation.
func (n *Navigator) Cancel() {
	n.running = false
}

// IsRunning reports whether the navigator is moving toward a target.
func (n *Navigator) IsRunning() bool {
	return n.running
}

// Speed returns the movement speed in units per second.
func (n *Navigator) Speed() float64 {
	return n.speed
}

// SetSpeed changes the movement speed.
func (n *Navigator) SetSpeed(speed float64) {
	n.speed = speed
}

// Target returns the current or last target.
func (n *Navigator) Target() waypoint.Waypoint {
	return n.target
}

func (n *Navigator) step(dt float64) {
	if !n.running || dt <= 0 {
		return
	}
	e := n.entity
	remaining := e.pos.Distance(n.target)
	travel := n.speed * dt
	if travel >= remaining {
		e.pos = n.target
		n.running = false
		return
	}
	e.pos = e.pos.Lerp(n.target, travel/remaining)
}
