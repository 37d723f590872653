// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package traversal_test

import (
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/wayfarer/internal/engine"
	"github.com/holomush/wayfarer/internal/traversal"
	"github.com/holomush/wayfarer/internal/waypoint"
)

type position struct {
	pos     waypoint.Waypoint
	spawned bool
	state   traversal.ReconcileState
}

var _ = Describe("Planned traversal across region unloads", func() {
	var (
		h        *harness
		finishes atomic.Int32
	)

	BeforeEach(func() {
		finishes.Store(0)
		h = &harness{eng: newEngine(engine.Config{})}
		for x := 0; x <= 3; x++ {
			h.eng.World().ActivateRegion(region(x))
		}
		a, err := h.eng.AddNPC(engine.NPCSpec{
			Name:     "runner",
			Kind:     traversal.KindPlanned,
			Position: at(0),
			Speed:    4,
		})
		Expect(err).NotTo(HaveOccurred())
		_, err = a.Trait.SetWaypoints([]waypoint.Waypoint{at(56)})
		Expect(err).NotTo(HaveOccurred())
		_, err = a.Trait.OnFinish(func(*traversal.Trait) { finishes.Add(1) })
		Expect(err).NotTo(HaveOccurred())
		a.Trait.Start()
		h.run()
	})

	AfterEach(func() {
		h.shutdown()
	})

	observe := func() position {
		var p position
		Expect(h.query(func(e *engine.Engine) error {
			a, _ := e.Agent("runner")
			p = position{pos: a.Entity.Position(), spawned: a.Entity.IsSpawned(), state: a.Trait.State()}
			return nil
		})).To(Succeed())
		return p
	}

	// unloadInside deactivates regions once the runner is inside region 1,
	// on the loop goroutine so the runner cannot walk out first.
	unloadInside := func(regions ...waypoint.RegionCoords) {
		Eventually(func() bool {
			var done bool
			Expect(h.query(func(e *engine.Engine) error {
				a, _ := e.Agent("runner")
				x := a.Entity.Position().X
				if x >= 18 && x < 30 {
					for _, r := range regions {
						e.World().DeactivateRegion(r)
					}
					done = true
				}
				return nil
			})).To(Succeed())
			return done
		}, 5*time.Second, time.Millisecond).Should(BeTrue())
	}

	It("simulates through the unloaded region and respawns beyond it", func() {
		unloadInside(region(1))

		Eventually(func() []string { return h.rec.states("runner") }, 5*time.Second).
			Should(ContainElements("simulating", "awaiting_reload", "awaiting_respawn"))

		Eventually(finishes.Load, 5*time.Second).Should(BeEquivalentTo(1))
		p := observe()
		Expect(p.spawned).To(BeTrue())
		Expect(p.state).To(Equal(traversal.StateActive))
		Expect(p.pos.Distance(at(56))).To(BeNumerically("<", 1))
		Expect(h.rec.states("runner")).To(HaveExactElements("active", "simulating", "awaiting_reload", "awaiting_respawn", "active"))
	})

	It("finishes while unloaded and respawns at the destination once it loads", func() {
		unloadInside(region(1), region(2), region(3))

		Eventually(finishes.Load, 5*time.Second).Should(BeEquivalentTo(1))
		p := observe()
		Expect(p.spawned).To(BeFalse())
		Expect(p.state).To(Equal(traversal.StateSimulating))

		h.eng.LoadRegion(region(3))

		Eventually(func() bool { return observe().spawned }, 5*time.Second).Should(BeTrue())
		p = observe()
		Expect(p.state).To(Equal(traversal.StateActive))
		Expect(p.pos).To(Equal(at(56)))
		Consistently(finishes.Load, 100*time.Millisecond).Should(BeEquivalentTo(1))
	})

	It("does not respawn a traversal stopped while simulating", func() {
		unloadInside(region(1))

		var before traversal.ReconcileState
		Expect(h.query(func(e *engine.Engine) error {
			a, _ := e.Agent("runner")
			before = a.Trait.State()
			a.Trait.Stop()
			return nil
		})).To(Succeed())
		Expect(before).To(Equal(traversal.StateSimulating))

		Consistently(func() traversal.ReconcileState { return observe().state }, 200*time.Millisecond).
			Should(Equal(traversal.StateActive))
		Expect(finishes.Load()).To(BeZero())
	})
})
