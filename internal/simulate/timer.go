// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package simulate advances an NPC along a path segment in virtual time while
// its entity does not exist in the world.
package simulate

import (
	"math"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/wayfarer/internal/waypoint"
)

// ErrInvalidSpeed is returned by Start when the speed is not a positive number.
var ErrInvalidSpeed = oops.Code("SPEED_INVALID").Errorf("speed must be positive")

// Callbacks receive the timer's terminal signals. Each fires at most once per
// Start, and the timer is already stopped when it fires.
type Callbacks struct {
	// Materializable reports whether the entity could exist at pos.
	// A nil func means never.
	Materializable func(pos waypoint.Waypoint) bool
	// OnMaterializable fires when Materializable first returns true.
	OnMaterializable func(pos waypoint.Waypoint)
	// OnPathComplete fires when the segment is travelled without the
	// position becoming materializable.
	OnPathComplete func()
}

// Timer simulates a point moving in a straight line from a start position to
// a destination at constant speed (distance per second).
//
// A Timer is not safe for concurrent use; it is driven from the tick loop.
type Timer struct {
	cb Callbacks

	from     waypoint.Waypoint
	dest     waypoint.Waypoint
	speed    float64
	distance float64
	elapsed  time.Duration
	current  waypoint.Waypoint
	started  bool
	running  bool
}

// NewTimer creates a stopped timer.
func NewTimer(cb Callbacks) *Timer {
	return &Timer{cb: cb}
}

// Start begins simulating from from to dest. Starting a running timer
// restarts it: elapsed time is not carried over.
func (t *Timer) Start(from, dest waypoint.Waypoint, speed float64) error {
	if speed <= 0 || math.IsNaN(speed) || math.IsInf(speed, 0) {
		return oops.With("speed", speed).Wrap(ErrInvalidSpeed)
	}
	if err := from.Validate(); err != nil {
		return oops.With("field", "from").Wrap(err)
	}
	if err := dest.Validate(); err != nil {
		return oops.With("field", "destination").Wrap(err)
	}
	if from.World != dest.World {
		return oops.Code("WORLD_MISMATCH").
			With("from", from.World).
			With("destination", dest.World).
			Errorf("cannot simulate a segment across worlds")
	}

	t.from = from
	t.dest = dest
	t.speed = speed
	t.distance = from.Distance(dest)
	t.elapsed = 0
	t.current = from
	t.started = true
	t.running = true
	return nil
}

// Tick advances the simulation by elapsed and returns the simulated position.
// Ticking a stopped timer changes nothing. Negative elapsed counts as zero.
func (t *Timer) Tick(elapsed time.Duration) waypoint.Waypoint {
	if !t.running {
		return t.current
	}
	if elapsed > 0 {
		t.elapsed += elapsed
	}

	travelled := t.elapsed.Seconds() * t.speed
	complete := travelled >= t.distance
	if complete {
		t.current = t.dest
	} else {
		t.current = t.from.Lerp(t.dest, travelled/t.distance)
	}

	if t.cb.Materializable != nil && t.cb.Materializable(t.current) {
		t.running = false
		if t.cb.OnMaterializable != nil {
			t.cb.OnMaterializable(t.current)
		}
		return t.current
	}

	if complete {
		t.running = false
		if t.cb.OnPathComplete != nil {
			t.cb.OnPathComplete()
		}
	}
	return t.current
}

// IsRunning reports whether the timer is simulating.
func (t *Timer) IsRunning() bool {
	return t.running
}

// Stop halts the simulation and returns the last simulated position.
// ok is false if the timer was never started or has been cleared.
func (t *Timer) Stop() (pos waypoint.Waypoint, ok bool) {
	t.running = false
	return t.current, t.started
}

// Position returns the last simulated position.
func (t *Timer) Position() waypoint.Waypoint {
	return t.current
}

// CurrentDestination returns the destination of the segment being, or last,
// simulated.
func (t *Timer) CurrentDestination() (waypoint.Waypoint, bool) {
	return t.dest, t.started
}

// Elapsed returns the virtual time simulated since Start.
func (t *Timer) Elapsed() time.Duration {
	return t.elapsed
}

// Speed returns the speed passed to Start.
func (t *Timer) Speed() float64 {
	return t.speed
}

// Progress returns the fraction of the segment travelled, in [0, 1].
func (t *Timer) Progress() float64 {
	if !t.started {
		return 0
	}
	if t.distance == 0 {
		return 1
	}
	return math.Min(1, t.elapsed.Seconds()*t.speed/t.distance)
}

// Clear stops the timer and forgets its segment.
func (t *Timer) Clear() {
	*t = Timer{cb: t.cb}
}
