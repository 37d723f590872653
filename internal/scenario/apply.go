// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package scenario

import (
	"github.com/samber/oops"

	"github.com/holomush/wayfarer/internal/engine"
	"github.com/holomush/wayfarer/internal/traversal"
	"github.com/holomush/wayfarer/pkg/errutil"
)

// Configure applies document-level engine settings to cfg.
func (d *Document) Configure(cfg *engine.Config) {
	if d.RegionSize > 0 {
		cfg.RegionSize = d.RegionSize
	}
	if d.MaterializeRadius != nil {
		cfg.MaterializeRadius = *d.MaterializeRadius
	}
}

// Apply seeds e with the document's regions, routes and NPCs, and schedules
// its events. Call it before Run or from the loop goroutine.
func (d *Document) Apply(e *engine.Engine) error {
	for _, r := range d.ActiveRegions {
		e.World().ActivateRegion(r)
	}
	for name, route := range d.Routes {
		if err := e.Routes().Store(name, route); err != nil {
			return err
		}
	}
	for _, n := range d.NPCs {
		if err := d.addNPC(e, n); err != nil {
			return err
		}
	}
	for _, ev := range d.Events {
		e.At(ev.Tick, eventAction(ev))
	}
	return nil
}

func (d *Document) addNPC(e *engine.Engine, n NPC) error {
	kind, _ := traversal.ParseKind(n.kindOrDefault())
	a, err := e.AddNPC(engine.NPCSpec{
		Name:     n.Name,
		Kind:     kind,
		Position: n.Spawn,
		Speed:    n.Speed,
		Priority: n.Priority,
	})
	if err != nil {
		return err
	}

	tr := a.Trait
	if n.Route != "" {
		_, err = tr.UseRoute(e.Routes(), n.Route)
	} else {
		_, err = tr.SetWaypoints(n.Waypoints)
	}
	if err != nil {
		return oops.With("npc", n.Name).Wrap(err)
	}

	if n.Loop {
		path := d.Path(n)
		if _, err := tr.OnFinish(func(t *traversal.Trait) {
			if _, err := t.SetWaypoints(path); err != nil {
				errutil.LogError(nil, "loop refill failed", err, "npc", n.Name)
			}
		}); err != nil {
			return err
		}
	}
	if !n.Paused {
		tr.Start()
	}
	return nil
}

func eventAction(ev Event) func(*engine.Engine) {
	return func(e *engine.Engine) {
		switch {
		case ev.Load != nil:
			e.World().ActivateRegion(*ev.Load)
		case ev.Unload != nil:
			e.World().DeactivateRegion(*ev.Unload)
		case ev.Start != "":
			withTrait(e, ev.Start, (*traversal.Trait).Start)
		case ev.Stop != "":
			withTrait(e, ev.Stop, (*traversal.Trait).Stop)
		case ev.Clear != "":
			withTrait(e, ev.Clear, (*traversal.Trait).Clear)
		}
	}
}

func withTrait(e *engine.Engine, name string, fn func(*traversal.Trait) *traversal.Trait) {
	a, ok := e.Agent(name)
	if !ok {
		return
	}
	fn(a.Trait)
}
