// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package waypoint contains world positions, region coordinates and the
// queues an NPC consumes while traversing a route.
package waypoint

import (
	"fmt"
	"math"

	"github.com/samber/oops"
)

// DefaultRegionSize is the edge length of a region in world units.
const DefaultRegionSize = 16

// Waypoint is an immutable world position. Two waypoints are equal when
// their world and coordinates are equal.
type Waypoint struct {
	World string  `yaml:"world" json:"world" jsonschema:"minLength=1"`
	X     float64 `yaml:"x" json:"x"`
	Y     float64 `yaml:"y,omitempty" json:"y,omitempty"`
	Z     float64 `yaml:"z" json:"z"`
}

// At is shorthand for constructing a Waypoint.
func At(world string, x, y, z float64) Waypoint {
	return Waypoint{World: world, X: x, Y: y, Z: z}
}

// String renders the waypoint as world(x, y, z).
func (w Waypoint) String() string {
	return fmt.Sprintf("%s(%.2f, %.2f, %.2f)", w.World, w.X, w.Y, w.Z)
}

// IsZero reports whether w is the zero value, which stands for "no waypoint".
func (w Waypoint) IsZero() bool {
	return w == Waypoint{}
}

// Validate checks that the waypoint names a world and has finite coordinates.
func (w Waypoint) Validate() error {
	if w.World == "" {
		return oops.Code("WAYPOINT_INVALID").
			With("waypoint", w.String()).
			Errorf("waypoint has no world")
	}
	for _, v := range [...]float64{w.X, w.Y, w.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return oops.Code("WAYPOINT_INVALID").
				With("waypoint", w.String()).
				Errorf("waypoint coordinates must be finite")
		}
	}
	return nil
}

// Distance returns the straight-line distance between w and o.
// Waypoints in different worlds are infinitely far apart.
func (w Waypoint) Distance(o Waypoint) float64 {
	if w.World != o.World {
		return math.Inf(1)
	}
	return math.Sqrt((o.X-w.X)*(o.X-w.X) + (o.Y-w.Y)*(o.Y-w.Y) + (o.Z-w.Z)*(o.Z-w.Z))
}

// Lerp returns the point a fraction t of the way from w to o.
// t is clamped to [0, 1].
func (w Waypoint) Lerp(o Waypoint, t float64) Waypoint {
	switch {
	case t <= 0:
		return w
	case t >= 1:
		return o
	}
	return Waypoint{
		World: w.World,
		X:     w.X + (o.X-w.X)*t,
		Y:     w.Y + (o.Y-w.Y)*t,
		Z:     w.Z + (o.Z-w.Z)*t,
	}
}

// Region returns the coordinates of the region containing w.
func (w Waypoint) Region(size int) RegionCoords {
	if size <= 0 {
		size = DefaultRegionSize
	}
	s := float64(size)
	return RegionCoords{
		World: w.World,
		X:     int(math.Floor(w.X / s)),
		Z:     int(math.Floor(w.Z / s)),
	}
}

// RegionCoords identifies a region, the unit the host loads and unloads.
type RegionCoords struct {
	World string `yaml:"world" json:"world" jsonschema:"minLength=1"`
	X     int    `yaml:"x" json:"x"`
	Z     int    `yaml:"z" json:"z"`
}

// String renders the region as world[x, z].
func (r RegionCoords) String() string {
	return fmt.Sprintf("%s[%d, %d]", r.World, r.X, r.Z)
}

// Nearby returns every region within radius of r, r included, in row order.
// A negative radius is treated as zero.
func (r RegionCoords) Nearby(radius int) []RegionCoords {
	if radius < 0 {
		radius = 0
	}
	out := make([]RegionCoords, 0, (2*radius+1)*(2*radius+1))
	for dx := -radius; dx <= radius; dx++ {
		for dz := -radius; dz <= radius; dz++ {
			out = append(out, RegionCoords{World: r.World, X: r.X + dx, Z: r.Z + dz})
		}
	}
	return out
}
