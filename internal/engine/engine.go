// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package engine runs the tick loop that drives every NPC's traversal
// against the simulated world.
package engine

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/wayfarer/internal/goal"
	"github.com/holomush/wayfarer/internal/npc"
	"github.com/holomush/wayfarer/internal/traversal"
	"github.com/holomush/wayfarer/internal/waypoint"
	"github.com/holomush/wayfarer/internal/world"
)

var tracer = otel.Tracer("wayfarer/engine")

// DefaultTickRate is the wall time between ticks.
const DefaultTickRate = 50 * time.Millisecond

// Config configures an Engine.
type Config struct {
	// TickRate is the wall time between ticks.
	TickRate time.Duration
	// TickDelta is the game time each tick advances. Zero means TickRate.
	TickDelta time.Duration
	// MaxTicks stops Run after this many ticks. Zero means no limit.
	MaxTicks          uint64
	RegionSize        int
	MaterializeRadius int
	CheckInterval     int
	// TracePatterns are globs over NPC names whose traversal is logged at
	// info level.
	TracePatterns []string
	Logger        *slog.Logger
}

// NPCSpec describes an NPC to add.
type NPCSpec struct {
	Name     string
	Kind     traversal.Kind
	Position waypoint.Waypoint
	Speed    float64
	Priority int
}

// Agent bundles an NPC's entity, scheduler and traversal.
type Agent struct {
	ID        npc.ID
	Name      string
	Entity    *world.Entity
	Scheduler *goal.Scheduler
	Trait     *traversal.Trait
}

type scheduled struct {
	tick uint64
	fn   func(*Engine)
}

// Engine owns the world, the NPCs and the tick loop. Everything the loop
// touches is confined to its goroutine; other goroutines talk to the engine
// through Post, At and Do.
type Engine struct {
	cfg      Config
	logger   *slog.Logger
	world    *world.World
	registry *traversal.Registry
	routes   *waypoint.RouteCache
	traces   []glob.Glob
	reports  *Broadcaster

	agents map[npc.ID]*Agent
	byName map[string]npc.ID

	mu      sync.Mutex
	inbox   []func(*Engine)
	timed   []scheduled
	tick    atomic.Uint64
	running atomic.Bool
}

// New creates an engine with an empty world.
func New(cfg Config) (*Engine, error) {
	if cfg.TickRate <= 0 {
		cfg.TickRate = DefaultTickRate
	}
	if cfg.TickDelta <= 0 {
		cfg.TickDelta = cfg.TickRate
	}
	if cfg.RegionSize <= 0 {
		cfg.RegionSize = waypoint.DefaultRegionSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	traces := make([]glob.Glob, 0, len(cfg.TracePatterns))
	for _, p := range cfg.TracePatterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, oops.Code("TRACE_PATTERN_INVALID").With("pattern", p).Wrap(err)
		}
		traces = append(traces, g)
	}

	e := &Engine{
		cfg:      cfg,
		logger:   cfg.Logger,
		world:    world.New(world.Config{RegionSize: cfg.RegionSize, Logger: cfg.Logger}),
		registry: traversal.NewRegistry(cfg.Logger),
		routes:   waypoint.NewRouteCache(),
		traces:   traces,
		reports:  NewBroadcaster(),
		agents:   make(map[npc.ID]*Agent),
		byName:   make(map[string]npc.ID),
	}
	e.world.SetListener(e.registry)
	return e, nil
}

// World returns the simulated world. Loop goroutine only.
func (e *Engine) World() *world.World { return e.world }

// Registry returns the traversal registry. Loop goroutine only.
func (e *Engine) Registry() *traversal.Registry { return e.registry }

// Routes returns the shared route cache. Safe for concurrent use.
func (e *Engine) Routes() *waypoint.RouteCache { return e.routes }

// Reports returns the tick report broadcaster.
func (e *Engine) Reports() *Broadcaster { return e.reports }

// CurrentTick returns the number of ticks processed.
func (e *Engine) CurrentTick() uint64 { return e.tick.Load() }

// Running reports whether Run is looping.
func (e *Engine) Running() bool { return e.running.Load() }

func (e *Engine) traced(name string) bool {
	for _, g := range e.traces {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// AddNPC creates an NPC with a traversal attached but not started.
// Loop goroutine only.
func (e *Engine) AddNPC(spec NPCSpec) (*Agent, error) {
	if spec.Name == "" {
		return nil, oops.Code("NPC_INVALID").Errorf("npc name is required")
	}
	if _, exists := e.byName[spec.Name]; exists {
		return nil, oops.Code("NPC_EXISTS").With("npc", spec.Name).Errorf("npc already exists")
	}

	id := npc.NewID()
	ent, err := e.world.AddEntity(id, spec.Name, spec.Position, spec.Speed)
	if err != nil {
		return nil, err
	}
	logger := e.logger.With("npc", spec.Name)
	sched := goal.NewScheduler(ent, logger)
	tr, err := traversal.New(id, ent, ent.Navigator(), sched, traversal.Config{
		Kind:              spec.Kind,
		Priority:          spec.Priority,
		MaterializeRadius: e.cfg.MaterializeRadius,
		CheckInterval:     e.cfg.CheckInterval,
		Verbose:           e.traced(spec.Name),
		Logger:            logger,
	})
	if err != nil {
		e.world.RemoveEntity(id)
		return nil, oops.With("npc", spec.Name).Wrap(err)
	}
	if err := e.registry.Attach(tr); err != nil {
		e.world.RemoveEntity(id)
		return nil, oops.With("npc", spec.Name).Wrap(err)
	}

	a := &Agent{ID: id, Name: spec.Name, Entity: ent, Scheduler: sched, Trait: tr}
	e.agents[id] = a
	e.byName[spec.Name] = id
	NPCs.Inc()
	e.logger.Info("npc added",
		"npc", spec.Name,
		"npc_id", id.String(),
		"kind", spec.Kind.String(),
		"position", spec.Position.String())
	return a, nil
}

// RemoveNPC detaches the NPC's traversal and removes its entity.
// Loop goroutine only.
func (e *Engine) RemoveNPC(name string) error {
	id, ok := e.byName[name]
	if !ok {
		return oops.Code("NPC_NOT_FOUND").With("npc", name).Errorf("npc not found")
	}
	e.registry.Detach(id)
	e.world.RemoveEntity(id)
	delete(e.agents, id)
	delete(e.byName, name)
	NPCs.Dec()
	e.logger.Info("npc removed", "npc", name, "npc_id", id.String())
	return nil
}

// Agent returns the NPC called name. Loop goroutine only.
func (e *Engine) Agent(name string) (*Agent, bool) {
	id, ok := e.byName[name]
	if !ok {
		return nil, false
	}
	return e.agents[id], true
}

// Agents returns every NPC in ID order. Loop goroutine only.
func (e *Engine) Agents() []*Agent {
	out := make([]*Agent, 0, len(e.agents))
	for _, a := range e.agents {
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b *Agent) int { return a.ID.Compare(b.ID) })
	return out
}

// Post queues fn to run on the loop goroutine at the next tick boundary.
// Safe for concurrent use.
func (e *Engine) Post(fn func(*Engine)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inbox = append(e.inbox, fn)
}

// At queues fn to run at the boundary of the given tick. A tick already
// processed runs fn at the next boundary. Safe for concurrent use.
func (e *Engine) At(tick uint64, fn func(*Engine)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.timed = append(e.timed, scheduled{tick: tick, fn: fn})
}

// Do runs fn on the loop goroutine and waits for it. It blocks until the
// next tick boundary, so Run must be looping.
func (e *Engine) Do(ctx context.Context, fn func(*Engine) error) error {
	done := make(chan error, 1)
	e.Post(func(e *Engine) { done <- fn(e) })
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return oops.Code("ENGINE_TIMEOUT").Wrap(ctx.Err())
	}
}

// LoadRegion activates region at the next tick boundary. Safe for
// concurrent use.
func (e *Engine) LoadRegion(region waypoint.RegionCoords) {
	e.Post(func(e *Engine) { e.world.ActivateRegion(region) })
}

// UnloadRegion deactivates region at the next tick boundary. Safe for
// concurrent use.
func (e *Engine) UnloadRegion(region waypoint.RegionCoords) {
	e.Post(func(e *Engine) { e.world.DeactivateRegion(region) })
}

// drain takes the actions due at tick.
func (e *Engine) drain(tick uint64) []func(*Engine) {
	e.mu.Lock()
	defer e.mu.Unlock()

	actions := e.inbox
	e.inbox = nil
	if len(e.timed) > 0 {
		slices.SortStableFunc(e.timed, func(a, b scheduled) int {
			switch {
			case a.tick < b.tick:
				return -1
			case a.tick > b.tick:
				return 1
			default:
				return 0
			}
		})
		n := 0
		for n < len(e.timed) && e.timed[n].tick <= tick {
			actions = append(actions, e.timed[n].fn)
			n++
		}
		e.timed = e.timed[n:]
	}
	return actions
}

// Step processes one tick: queued actions and forced region loads first,
// then each NPC's traversal and goals in ID order, then movement.
func (e *Engine) Step(ctx context.Context) {
	start := time.Now()
	n := e.tick.Add(1)
	_, span := tracer.Start(ctx, "engine.tick",
		trace.WithAttributes(attribute.Int64("engine.tick", int64(n))), //nolint:gosec // tick count fits
	)
	defer span.End()

	e.registry.SetTick(n)
	actions := e.drain(n)
	for _, fn := range actions {
		fn(e)
	}
	InboxActions.Add(float64(len(actions)))
	e.world.ApplyPendingLoads()

	agents := e.Agents()
	dt := e.cfg.TickDelta
	for _, a := range agents {
		a.Trait.Update(n, dt)
		a.Scheduler.Tick()
	}
	e.world.Step(dt.Seconds())

	span.SetAttributes(
		attribute.Int("engine.npcs", len(agents)),
		attribute.Int("engine.actions", len(actions)),
	)
	Ticks.Inc()
	TickDuration.Observe(time.Since(start).Seconds())
	e.reports.Broadcast(e.report(n, agents))
}

// Run ticks until ctx is done or MaxTicks is reached.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return oops.Code("ENGINE_RUNNING").Errorf("engine is already running")
	}
	defer e.running.Store(false)

	ticker := time.NewTicker(e.cfg.TickRate)
	defer ticker.Stop()

	e.logger.Info("engine started",
		"tick_rate", e.cfg.TickRate.String(),
		"npcs", len(e.agents),
		"max_ticks", e.cfg.MaxTicks)

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("engine stopped", "tick", e.CurrentTick())
			return nil
		case <-ticker.C:
			e.Step(ctx)
			if e.cfg.MaxTicks > 0 && e.CurrentTick() >= e.cfg.MaxTicks {
				e.logger.Info("engine reached tick limit", "tick", e.CurrentTick())
				return nil
			}
		}
	}
}
