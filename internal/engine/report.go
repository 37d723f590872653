// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package engine

import (
	"github.com/holomush/wayfarer/internal/waypoint"
)

// NPCStatus is one NPC's state at the end of a tick.
type NPCStatus struct {
	Name      string             `json:"name"`
	ID        string             `json:"id"`
	Kind      string             `json:"kind"`
	Spawned   bool               `json:"spawned"`
	Position  waypoint.Waypoint  `json:"position"`
	Simulated *waypoint.Waypoint `json:"simulated,omitempty"`
	Current   *waypoint.Waypoint `json:"current,omitempty"`
	Remaining int                `json:"remaining"`
	State     string             `json:"state"`
	Intent    string             `json:"intent"`
}

// Report is the state of every NPC at the end of a tick.
type Report struct {
	Tick          uint64                  `json:"tick"`
	ActiveRegions []waypoint.RegionCoords `json:"active_regions"`
	NPCs          []NPCStatus             `json:"npcs"`
}

func (e *Engine) report(tick uint64, agents []*Agent) Report {
	r := Report{
		Tick:          tick,
		ActiveRegions: e.world.ActiveRegions(),
		NPCs:          make([]NPCStatus, 0, len(agents)),
	}
	for _, a := range agents {
		tr := a.Trait
		st := NPCStatus{
			Name:      a.Name,
			ID:        a.ID.String(),
			Kind:      tr.Kind().String(),
			Spawned:   a.Entity.IsSpawned(),
			Position:  a.Entity.Position(),
			Remaining: tr.Remaining(),
			State:     tr.State().String(),
			Intent:    tr.Intent().String(),
		}
		if cur, ok := tr.Current(); ok {
			st.Current = &cur
		}
		if sim, ok := tr.Simulated(); ok {
			st.Simulated = &sim
		}
		r.NPCs = append(r.NPCs, st)
	}
	return r
}

// Snapshot reports the current state without advancing. Loop goroutine only.
func (e *Engine) Snapshot() Report {
	return e.report(e.CurrentTick(), e.Agents())
}
