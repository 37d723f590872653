// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package goal defines prioritized NPC behaviors and the scheduler that runs
// them one tick at a time.
package goal

import "github.com/holomush/wayfarer/internal/npc"

// State is the view of the NPC a goal is evaluated against.
type State interface {
	NPC() npc.ID
	IsSpawned() bool
}

// Agent is handed to a running goal so it can end itself.
type Agent interface {
	// Finish marks the goal as done; the scheduler drops it after the
	// current callback returns.
	Finish()
}

// Goal is one behavior. The scheduler calls Reset then FirstRun each time the
// goal is selected, Run on every tick while it stays selected, and Pause when
// a higher-priority goal takes over.
type Goal interface {
	Name() string
	CanRun(state State) bool
	Reset(state State)
	Pause(state State)
	Cost(state State) float64
	FirstRun(agent Agent)
	Run(agent Agent)
}
