// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package goal

import (
	"log/slog"
	"sort"
)

type entry struct {
	goal     Goal
	priority int
	seq      uint64
}

type agent struct {
	finished bool
}

func (a *agent) Finish() {
	a.finished = true
}

// Scheduler runs at most one goal per NPC. On each tick the runnable goal
// with the highest priority wins; ties go to the lower cost, then to the goal
// added first. A running goal is only displaced by a strictly higher priority.
//
// A Scheduler is driven from the tick loop and is not safe for concurrent use.
type Scheduler struct {
	state   State
	logger  *slog.Logger
	entries []*entry
	current *entry
	nextSeq uint64
}

// NewScheduler creates a scheduler for the NPC described by state.
func NewScheduler(state State, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{state: state, logger: logger}
}

// Add registers g at priority. Adding a registered goal updates its priority.
func (s *Scheduler) Add(priority int, g Goal) {
	for _, e := range s.entries {
		if e.goal == g {
			e.priority = priority
			return
		}
	}
	s.entries = append(s.entries, &entry{goal: g, priority: priority, seq: s.nextSeq})
	s.nextSeq++
}

// Remove deregisters g, pausing it if it is running. It reports whether g
// was registered.
func (s *Scheduler) Remove(g Goal) bool {
	for i, e := range s.entries {
		if e.goal != g {
			continue
		}
		if s.current == e {
			e.goal.Pause(s.state)
			s.current = nil
		}
		s.entries = append(s.entries[:i], s.entries[i+1:]...)
		return true
	}
	return false
}

// Has reports whether g is registered.
func (s *Scheduler) Has(g Goal) bool {
	for _, e := range s.entries {
		if e.goal == g {
			return true
		}
	}
	return false
}

// Current returns the running goal, or nil.
func (s *Scheduler) Current() Goal {
	if s.current == nil {
		return nil
	}
	return s.current.goal
}

// Len returns the number of registered goals.
func (s *Scheduler) Len() int {
	return len(s.entries)
}

// Tick selects and runs a goal. Nothing runs while the NPC is despawned; the
// running goal stays selected across the gap.
func (s *Scheduler) Tick() {
	if !s.state.IsSpawned() {
		return
	}

	best := s.selectRunnable()
	if s.current != nil && best != nil && best != s.current && best.priority > s.current.priority {
		s.logger.Debug("goal preempted",
			"npc_id", s.state.NPC().String(),
			"goal", s.current.goal.Name(),
			"by", best.goal.Name())
		s.current.goal.Pause(s.state)
		s.current = nil
	}

	ag := &agent{}
	if s.current == nil {
		if best == nil {
			return
		}
		s.current = best
		best.goal.Reset(s.state)
		best.goal.FirstRun(ag)
		if ag.finished {
			s.finish()
			return
		}
	}

	s.current.goal.Run(ag)
	if ag.finished {
		s.finish()
	}
}

func (s *Scheduler) finish() {
	s.logger.Debug("goal finished",
		"npc_id", s.state.NPC().String(),
		"goal", s.current.goal.Name())
	s.current = nil
}

func (s *Scheduler) selectRunnable() *entry {
	runnable := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		if e.goal.CanRun(s.state) {
			runnable = append(runnable, e)
		}
	}
	if len(runnable) == 0 {
		return nil
	}
	sort.SliceStable(runnable, func(i, j int) bool {
		a, b := runnable[i], runnable[j]
		if a.priority != b.priority {
			return a.priority > b.priority
		}
		if ca, cb := a.goal.Cost(s.state), b.goal.Cost(s.state); ca != cb {
			return ca < cb
		}
		return a.seq < b.seq
	})
	return runnable[0]
}
