// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package traversal_test

import (
	"context"
	"io"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/wayfarer/internal/engine"
	"github.com/holomush/wayfarer/internal/observability"
	"github.com/holomush/wayfarer/internal/scenario"
	"github.com/holomush/wayfarer/internal/traversal"
)

const patrolPath = "../../../internal/scenario/testdata/patrol.yaml"

var _ = Describe("Scenario playback", func() {
	It("plays the patrol scenario to its tick limit", func() {
		doc, err := scenario.Load(patrolPath)
		Expect(err).NotTo(HaveOccurred())

		cfg := engine.Config{
			TickRate:  time.Millisecond,
			TickDelta: 500 * time.Millisecond,
			MaxTicks:  40,
		}
		doc.Configure(&cfg)
		eng, err := engine.New(cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(doc.Apply(eng)).To(Succeed())

		rec := record(eng)
		Expect(eng.Run(context.Background())).To(Succeed())
		eng.Reports().Close()
		Eventually(rec.done).Should(BeClosed())

		final, ok := rec.last()
		Expect(ok).To(BeTrue())
		Expect(final.Tick).To(BeEquivalentTo(40))
		Expect(final.ActiveRegions).To(ContainElement(region(1)))

		By("the guard walking into the unloaded region and coming back out")
		Expect(rec.states("guard")).To(HaveExactElements("active", "simulating", "awaiting_respawn", "active"))

		By("the guard's loop keeping it supplied with waypoints")
		for _, st := range final.NPCs {
			if st.Name == "guard" {
				Expect(st.Current).NotTo(BeNil())
				Expect(st.Spawned).To(BeTrue())
			}
		}

		By("the courier never leaving its loaded region")
		Expect(rec.states("courier")).To(HaveExactElements("active"))
	})
})

var _ = Describe("Observability endpoints", func() {
	var (
		h      *harness
		server *observability.Server
	)

	get := func(path string) (int, string) {
		resp, err := http.Get("http://" + server.Addr() + path)
		Expect(err).NotTo(HaveOccurred())
		defer func() { _ = resp.Body.Close() }()
		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		return resp.StatusCode, string(body)
	}

	BeforeEach(func() {
		h = &harness{eng: newEngine(engine.Config{})}
		h.eng.World().ActivateRegion(region(0))
		_, err := h.eng.AddNPC(engine.NPCSpec{Name: "sentry", Kind: traversal.KindSimple, Position: at(1), Speed: 1})
		Expect(err).NotTo(HaveOccurred())

		server = observability.NewServer("127.0.0.1:0", h.eng.Running,
			observability.WithCollectors(traversal.RegisterMetrics, engine.RegisterMetrics))
		_, err = server.Start(context.Background())
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		Expect(server.Stop(ctx)).To(Succeed())
		h.shutdown()
	})

	It("reports ready only while the engine ticks", func() {
		status, _ := get("/healthz/readiness")
		Expect(status).To(Equal(http.StatusServiceUnavailable))

		h.run()
		status, _ = get("/healthz/readiness")
		Expect(status).To(Equal(http.StatusOK))

		h.shutdown()
		h.cancel = nil
		status, _ = get("/healthz/readiness")
		Expect(status).To(Equal(http.StatusServiceUnavailable))
	})

	It("exposes engine and traversal metrics", func() {
		h.run()
		Eventually(h.eng.CurrentTick).Should(BeNumerically(">", 3))

		status, body := get("/metrics")
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(ContainSubstring("wayfarer_engine_ticks_total"))
		Expect(body).To(ContainSubstring("wayfarer_engine_npcs"))
		Expect(body).To(ContainSubstring("wayfarer_unreconciled_npcs"))
	})
})
