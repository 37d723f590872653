// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package traversal

import (
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/wayfarer/internal/goal"
	"github.com/holomush/wayfarer/internal/npc"
	"github.com/holomush/wayfarer/internal/waypoint"
	"github.com/holomush/wayfarer/pkg/errutil"
)

// DefaultPriority is the goal priority traits register at unless configured.
const DefaultPriority = 1

// ErrNilCallback is returned by OnFinish when given a nil func.
var ErrNilCallback = oops.Code("CALLBACK_INVALID").Errorf("finish callback must not be nil")

// Scheduler is where a trait registers its goal.
type Scheduler interface {
	Add(priority int, g goal.Goal)
	Remove(g goal.Goal) bool
}

// Config configures a trait.
type Config struct {
	Kind     Kind
	Priority int
	// MaterializeRadius is how many regions around a position must be active
	// for the NPC to stand there: an active NPC whose ring unloads despawns,
	// and an unloaded one comes back only once it loads. Zero means only the
	// position's own region; DefaultMaterializeRadius is what ships.
	MaterializeRadius int
	// CheckInterval is the number of ticks between surroundings checks of an
	// active planned NPC. Zero means DefaultCheckInterval.
	CheckInterval int
	// Verbose logs reconciliation at info level instead of debug.
	Verbose bool
	Logger  *slog.Logger
}

// Trait gives one NPC a waypoint traversal. All methods run on the engine's
// tick goroutine.
type Trait struct {
	id    npc.ID
	kind  Kind
	cfg   Config
	host  npc.Host
	nav   npc.Navigator
	sched Scheduler

	queue   waypoint.Queue
	goal    *TraversalGoal
	rec     *reconciler
	current *waypoint.Waypoint
	finish  []func(*Trait)
	// notified is set once finish subscribers ran for the current
	// exhaustion of the queue.
	notified bool

	attached bool
	started  bool
	clock    func() uint64
	logger   *slog.Logger
}

// New creates a trait for the NPC id. It does nothing until attached to a
// Registry and started.
func New(id npc.ID, host npc.Host, nav npc.Navigator, sched Scheduler, cfg Config) (*Trait, error) {
	errb := oops.Code("TRAIT_INVALID").With("npc_id", id.String())
	switch {
	case host == nil:
		return nil, errb.Errorf("host is required")
	case nav == nil:
		return nil, errb.Errorf("navigator is required")
	case sched == nil:
		return nil, errb.Errorf("scheduler is required")
	case cfg.MaterializeRadius < 0:
		return nil, errb.With("materialize_radius", cfg.MaterializeRadius).Errorf("materialize radius must not be negative")
	case cfg.CheckInterval < 0:
		return nil, errb.With("check_interval", cfg.CheckInterval).Errorf("check interval must not be negative")
	}
	if cfg.Priority == 0 {
		cfg.Priority = DefaultPriority
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	t := &Trait{
		id:     id,
		kind:   cfg.Kind,
		cfg:    cfg,
		host:   host,
		nav:    nav,
		sched:  sched,
		clock:  func() uint64 { return 0 },
		logger: logger.With("npc_id", id.String(), "traversal", cfg.Kind.String()),
	}
	switch cfg.Kind {
	case KindPlanned:
		t.queue = &waypoint.ConsumingQueue{}
		t.rec = newReconciler(t)
	case KindSimple:
		t.queue = &waypoint.ResettableQueue{}
	default:
		return nil, errb.With("kind", cfg.Kind).Errorf("unknown traversal kind")
	}
	t.goal = &TraversalGoal{t: t}
	return t, nil
}

// SetWaypoints replaces the queued waypoints.
func (t *Trait) SetWaypoints(seq []waypoint.Waypoint) (*Trait, error) {
	if err := t.queue.SetAll(seq); err != nil {
		return t, err
	}
	return t, nil
}

// AddWaypoint appends one waypoint.
func (t *Trait) AddWaypoint(w waypoint.Waypoint) (*Trait, error) {
	if err := t.queue.Add(w); err != nil {
		return t, err
	}
	return t, nil
}

// AddWaypoints appends waypoints in order.
func (t *Trait) AddWaypoints(seq []waypoint.Waypoint) (*Trait, error) {
	if err := t.queue.AddAll(seq); err != nil {
		return t, err
	}
	return t, nil
}

// UseRoute replaces the queued waypoints with a copy of a shared route.
func (t *Trait) UseRoute(cache *waypoint.RouteCache, name string) (*Trait, error) {
	seq, err := cache.Route(name)
	if err != nil {
		return t, err
	}
	return t.SetWaypoints(seq)
}

// OnFinish subscribes fn to run each time the queue runs out. A subscriber
// may queue more waypoints to keep the NPC moving.
func (t *Trait) OnFinish(fn func(*Trait)) (*Trait, error) {
	if fn == nil {
		return t, ErrNilCallback
	}
	t.finish = append(t.finish, fn)
	return t, nil
}

// Start registers the traversal goal with the NPC's scheduler.
func (t *Trait) Start() *Trait {
	if t.started {
		return t
	}
	if !t.attached {
		t.logger.Warn("start ignored for detached traversal")
		return t
	}
	t.sched.Add(t.cfg.Priority, t.goal)
	t.started = true
	t.logf("traversal started", "remaining", t.queue.Remaining())
	return t
}

// Stop deregisters the goal, halts the navigator and drops any simulated
// movement or pending respawn. Queued waypoints are kept.
func (t *Trait) Stop() *Trait {
	if !t.started {
		return t
	}
	t.sched.Remove(t.goal)
	t.nav.Cancel()
	if t.rec != nil {
		t.rec.halt("stopped")
	}
	t.started = false
	t.logf("traversal stopped")
	return t
}

// Clear drops every queued waypoint and the current one.
func (t *Trait) Clear() *Trait {
	t.queue.Clear()
	t.current = nil
	t.notified = false
	if t.rec != nil {
		t.rec.halt("cleared")
	}
	return t
}

// NPC returns the ID of the NPC the trait drives.
func (t *Trait) NPC() npc.ID { return t.id }

// Kind returns the traversal variant.
func (t *Trait) Kind() Kind { return t.kind }

// Goal returns the traversal goal.
func (t *Trait) Goal() goal.Goal { return t.goal }

// Started reports whether the goal is registered.
func (t *Trait) Started() bool { return t.started }

// Attached reports whether the trait belongs to a Registry.
func (t *Trait) Attached() bool { return t.attached }

// Remaining returns the number of waypoints left to dispatch.
func (t *Trait) Remaining() int { return t.queue.Remaining() }

// Waypoints returns a copy of the waypoints left to dispatch.
func (t *Trait) Waypoints() []waypoint.Waypoint { return t.queue.Snapshot() }

// Current returns the waypoint being travelled to, if any.
func (t *Trait) Current() (waypoint.Waypoint, bool) {
	if t.current == nil {
		return waypoint.Waypoint{}, false
	}
	return *t.current, true
}

// State returns the reconcile state. Simple traversals are always active.
func (t *Trait) State() ReconcileState {
	if t.rec == nil {
		return StateActive
	}
	return t.rec.state
}

// Intent returns the respawn intent.
func (t *Trait) Intent() RespawnIntent {
	if t.rec == nil {
		return IntentNone
	}
	return t.rec.intent
}

// Simulated returns the simulated position while the entity is unloaded.
func (t *Trait) Simulated() (waypoint.Waypoint, bool) {
	if t.rec == nil || t.rec.state == StateActive {
		return waypoint.Waypoint{}, false
	}
	return t.rec.timer.Position(), true
}

// Update advances simulation and pending respawns for one tick. The engine
// calls it before ticking the NPC's scheduler.
func (t *Trait) Update(tick uint64, dt time.Duration) {
	if !t.attached || !t.started || t.rec == nil {
		return
	}
	t.rec.update(tick, dt)
}

func (t *Trait) handleDespawn(ev npc.DespawnEvent) {
	if !t.started || t.rec == nil {
		return
	}
	t.rec.onDespawn(ev)
}

func (t *Trait) handleSpawnAttempt(a *npc.SpawnAttempt) {
	if !t.started || t.rec == nil {
		return
	}
	t.rec.onSpawnAttempt(a)
}

func (t *Trait) handleSpawn(ev npc.SpawnEvent) {
	if !t.started || t.rec == nil {
		return
	}
	t.rec.onSpawn(ev)
}

// pop makes the next queued waypoint current. Callers gate on HasNext.
func (t *Trait) pop() waypoint.Waypoint {
	errutil.Invariant(t.queue.HasNext(), "advance with exhausted waypoint queue", "npc_id", t.id.String())
	next, err := t.queue.Next()
	errutil.MustNot(err, "pop gated waypoint", "npc_id", t.id.String())

	t.current = &next
	t.notified = false
	WaypointsDispatched.WithLabelValues(t.kind.String()).Inc()
	return next
}

func (t *Trait) notifyFinish() {
	t.notified = true
	FinishNotifications.WithLabelValues(t.kind.String()).Inc()
	t.logf("traversal finished", "subscribers", len(t.finish))
	for _, fn := range append([]func(*Trait){}, t.finish...) {
		fn(t)
	}
}

func (t *Trait) logf(msg string, args ...any) {
	if t.cfg.Verbose {
		t.logger.Info(msg, args...)
		return
	}
	t.logger.Debug(msg, args...)
}
