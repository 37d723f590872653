// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package scenario loads YAML scenario documents describing a world, its
// NPCs and the region events to play against them.
package scenario

import (
	"bytes"
	"os"

	"github.com/Masterminds/semver/v3"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"github.com/holomush/wayfarer/internal/traversal"
	"github.com/holomush/wayfarer/internal/waypoint"
)

// SupportedVersions is the constraint a document's version must satisfy.
const SupportedVersions = "^1"

// Document is a parsed scenario file.
type Document struct {
	Version    string `yaml:"version" json:"version" jsonschema:"minLength=1"`
	Name       string `yaml:"name,omitempty" json:"name,omitempty"`
	RegionSize int    `yaml:"region_size,omitempty" json:"region_size,omitempty" jsonschema:"minimum=1"`
	// MaterializeRadius overrides the configured radius for worlds whose
	// active regions are sparse.
	MaterializeRadius *int                           `yaml:"materialize_radius,omitempty" json:"materialize_radius,omitempty" jsonschema:"minimum=0"`
	ActiveRegions     []waypoint.RegionCoords        `yaml:"active_regions,omitempty" json:"active_regions,omitempty"`
	Routes            map[string][]waypoint.Waypoint `yaml:"routes,omitempty" json:"routes,omitempty"`
	NPCs              []NPC                          `yaml:"npcs" json:"npcs" jsonschema:"minItems=1"`
	Events            []Event                        `yaml:"events,omitempty" json:"events,omitempty"`
}

// NPC declares one NPC and its traversal.
type NPC struct {
	Name      string              `yaml:"name" json:"name" jsonschema:"minLength=1"`
	Kind      string              `yaml:"kind,omitempty" json:"kind,omitempty" jsonschema:"enum=planned,enum=simple"`
	Spawn     waypoint.Waypoint   `yaml:"spawn" json:"spawn"`
	Speed     float64             `yaml:"speed" json:"speed" jsonschema:"exclusiveMinimum=0"`
	Priority  int                 `yaml:"priority,omitempty" json:"priority,omitempty" jsonschema:"minimum=1"`
	Route     string              `yaml:"route,omitempty" json:"route,omitempty"`
	Waypoints []waypoint.Waypoint `yaml:"waypoints,omitempty" json:"waypoints,omitempty"`
	// Loop replays the NPC's waypoints each time they run out.
	Loop bool `yaml:"loop,omitempty" json:"loop,omitempty"`
	// Paused leaves the traversal stopped until a start event.
	Paused bool `yaml:"paused,omitempty" json:"paused,omitempty"`
}

// Event is an action applied at the boundary of a tick. Exactly one of its
// action fields is set.
type Event struct {
	Tick   uint64                 `yaml:"tick" json:"tick" jsonschema:"minimum=1"`
	Load   *waypoint.RegionCoords `yaml:"load,omitempty" json:"load,omitempty"`
	Unload *waypoint.RegionCoords `yaml:"unload,omitempty" json:"unload,omitempty"`
	Start  string                 `yaml:"start,omitempty" json:"start,omitempty"`
	Stop   string                 `yaml:"stop,omitempty" json:"stop,omitempty"`
	Clear  string                 `yaml:"clear,omitempty" json:"clear,omitempty"`
}

// Load reads and parses the scenario at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is operator-supplied
	if err != nil {
		return nil, oops.Code("SCENARIO_READ_FAILED").With("path", path).Wrap(err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, oops.With("path", path).Wrap(err)
	}
	return doc, nil
}

// Parse validates data against the scenario schema, decodes it and checks
// that its references resolve.
func Parse(data []byte) (*Document, error) {
	if err := ValidateSchema(data); err != nil {
		return nil, err
	}

	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, oops.Code("SCENARIO_INVALID").Wrapf(err, "decode scenario")
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks what the schema cannot: the version constraint, name
// uniqueness, references and waypoint validity.
func (d *Document) Validate() error {
	if err := checkVersion(d.Version); err != nil {
		return err
	}

	errb := oops.Code("SCENARIO_INVALID")
	for name, route := range d.Routes {
		if len(route) == 0 {
			return errb.With("route", name).Errorf("route has no waypoints")
		}
		for i, w := range route {
			if err := w.Validate(); err != nil {
				return oops.Code("SCENARIO_INVALID").With("route", name).With("index", i).Wrap(err)
			}
		}
	}
	for i, r := range d.ActiveRegions {
		if r.World == "" {
			return errb.With("index", i).Errorf("active region has no world")
		}
	}

	names := make(map[string]bool, len(d.NPCs))
	for _, n := range d.NPCs {
		if names[n.Name] {
			return errb.With("npc", n.Name).Errorf("duplicate npc name")
		}
		names[n.Name] = true
		if err := d.validateNPC(n); err != nil {
			return err
		}
	}

	for i, ev := range d.Events {
		if err := validateEvent(ev, names); err != nil {
			return oops.With("event", i).Wrap(err)
		}
	}
	return nil
}

func checkVersion(version string) error {
	v, err := semver.NewVersion(version)
	if err != nil {
		return oops.Code("SCENARIO_VERSION_INVALID").With("version", version).Wrap(err)
	}
	c, err := semver.NewConstraint(SupportedVersions)
	if err != nil {
		return oops.Code("SCENARIO_VERSION_INVALID").Wrap(err)
	}
	if !c.Check(v) {
		return oops.Code("SCENARIO_VERSION_UNSUPPORTED").
			With("version", version).
			With("supported", SupportedVersions).
			Errorf("scenario version is not supported")
	}
	return nil
}

func (d *Document) validateNPC(n NPC) error {
	errb := oops.Code("SCENARIO_INVALID").With("npc", n.Name)
	if _, ok := traversal.ParseKind(n.kindOrDefault()); !ok {
		return errb.With("kind", n.Kind).Errorf("unknown traversal kind")
	}
	if err := n.Spawn.Validate(); err != nil {
		return oops.Code("SCENARIO_INVALID").With("npc", n.Name).With("field", "spawn").Wrap(err)
	}
	if n.Speed <= 0 {
		return errb.With("speed", n.Speed).Errorf("speed must be positive")
	}
	if n.Route != "" && len(n.Waypoints) > 0 {
		return errb.Errorf("route and waypoints are mutually exclusive")
	}

	seq := n.Waypoints
	if n.Route != "" {
		route, ok := d.Routes[n.Route]
		if !ok {
			return errb.With("route", n.Route).Errorf("unknown route")
		}
		seq = route
	}
	for i, w := range seq {
		if err := w.Validate(); err != nil {
			return oops.Code("SCENARIO_INVALID").With("npc", n.Name).With("index", i).Wrap(err)
		}
		if w.World != n.Spawn.World {
			return errb.With("index", i).With("world", w.World).Errorf("waypoint is in a different world than the spawn")
		}
	}
	if n.Loop && len(seq) == 0 {
		return errb.Errorf("loop requires waypoints")
	}
	return nil
}

func validateEvent(ev Event, names map[string]bool) error {
	errb := oops.Code("SCENARIO_INVALID").With("tick", ev.Tick)
	if ev.Tick == 0 {
		return errb.Errorf("event tick must be at least 1")
	}

	actions := 0
	for _, set := range []bool{ev.Load != nil, ev.Unload != nil, ev.Start != "", ev.Stop != "", ev.Clear != ""} {
		if set {
			actions++
		}
	}
	if actions != 1 {
		return errb.With("actions", actions).Errorf("event must have exactly one action")
	}

	for _, r := range []*waypoint.RegionCoords{ev.Load, ev.Unload} {
		if r != nil && r.World == "" {
			return errb.Errorf("event region has no world")
		}
	}
	for _, name := range []string{ev.Start, ev.Stop, ev.Clear} {
		if name != "" && !names[name] {
			return errb.With("npc", name).Errorf("event references unknown npc")
		}
	}
	return nil
}

func (n NPC) kindOrDefault() string {
	if n.Kind == "" {
		return traversal.KindPlanned.String()
	}
	return n.Kind
}

// Path returns the NPC's waypoints, resolving a route reference.
func (d *Document) Path(n NPC) []waypoint.Waypoint {
	if n.Route != "" {
		return d.Routes[n.Route]
	}
	return n.Waypoints
}
