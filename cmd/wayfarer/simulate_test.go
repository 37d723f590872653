// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/wayfarer/internal/engine"
	"github.com/holomush/wayfarer/internal/observability"
	"github.com/holomush/wayfarer/pkg/errutil"
)

// mockObservabilityServer records how simulate drives it.
type mockObservabilityServer struct {
	addr    string
	ready   observability.ReadinessChecker
	real    *observability.Server
	started bool
	stopped bool
	startFn func() (<-chan error, error)
}

func (m *mockObservabilityServer) Start(_ context.Context) (<-chan error, error) {
	m.started = true
	if m.startFn != nil {
		return m.startFn()
	}
	return make(chan error), nil
}

func (m *mockObservabilityServer) Stop(_ context.Context) error {
	m.stopped = true
	return nil
}

func (m *mockObservabilityServer) Addr() string { return m.addr }

func mockDeps(m *mockObservabilityServer) *SimulateDeps {
	return &SimulateDeps{
		ObservabilityServerFactory: func(addr string, ready observability.ReadinessChecker, opts ...observability.Option) ObservabilityServer {
			m.addr = addr
			m.ready = ready
			m.real = observability.NewServer(addr, ready, opts...)
			return m
		},
	}
}

func simulateCmd(t *testing.T, args ...string) (*bytes.Buffer, func(deps *SimulateDeps, positional ...string) error) {
	t.Helper()
	configFile = ""
	cmd := NewSimulateCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	require.NoError(t, cmd.Flags().Parse(args))
	return out, func(deps *SimulateDeps, positional ...string) error {
		return runSimulateWithDeps(context.Background(), cmd, positional, deps)
	}
}

func TestSimulate_RequiresScenario(t *testing.T) {
	isolateConfig(t)

	_, err := execute(t, "simulate", "--metrics-addr=")
	errutil.AssertErrorCode(t, err, "SCENARIO_REQUIRED")
}

func TestSimulate_RejectsInvalidConfig(t *testing.T) {
	isolateConfig(t)

	_, err := execute(t, "simulate", "testdata/walk.yaml", "--metrics-addr=", "--log-format=xml")
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
}

func TestSimulate_RejectsInvalidScenario(t *testing.T) {
	isolateConfig(t)

	_, err := execute(t, "simulate", "testdata/broken.yaml", "--metrics-addr=")
	require.Error(t, err)
}

func TestSimulate_StreamsReports(t *testing.T) {
	isolateConfig(t)

	out, err := execute(t, "simulate", "testdata/walk.yaml",
		"--max-ticks=5", "--tick-rate=1ms", "--metrics-addr=", "--reports", "--log-format=text")
	require.NoError(t, err)

	var ticks []uint64
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		var r engine.Report
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &r), "line %q", scanner.Text())
		require.Len(t, r.NPCs, 1)
		assert.Equal(t, "walker", r.NPCs[0].Name)
		ticks = append(ticks, r.Tick)
	}
	assert.Equal(t, []uint64{1, 2, 3, 4, 5}, ticks)
}

func TestSimulate_ReportsOffByDefault(t *testing.T) {
	isolateConfig(t)

	out, err := execute(t, "simulate", "testdata/walk.yaml",
		"--max-ticks=3", "--tick-rate=1ms", "--metrics-addr=")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestSimulate_ScenarioFromConfigFile(t *testing.T) {
	isolateConfig(t)
	scenarioPath, err := filepath.Abs("testdata/walk.yaml")
	require.NoError(t, err)
	cfgPath := filepath.Join(t.TempDir(), "wayfarer.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(
		"scenario: "+scenarioPath+"\nmax_ticks: 2\ntick_rate: 1ms\nmetrics_addr: \"\"\nreports: true\n"), 0o600))

	out, err := execute(t, "simulate", "--config", cfgPath)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "\n"))
}

func TestSimulate_WiresObservabilityServer(t *testing.T) {
	isolateConfig(t)
	m := &mockObservabilityServer{}
	_, run := simulateCmd(t, "--max-ticks=3", "--tick-rate=1ms", "--metrics-addr=127.0.0.1:0")

	require.NoError(t, run(mockDeps(m), "testdata/walk.yaml"))

	assert.Equal(t, "127.0.0.1:0", m.addr)
	assert.True(t, m.started)
	assert.True(t, m.stopped)
	require.NotNil(t, m.ready)
	assert.False(t, m.ready(), "engine is not running after simulate returns")

	families, err := m.real.Registry().Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "wayfarer_engine_ticks_total")
	assert.Contains(t, names, "wayfarer_unreconciled_npcs")
}

func TestSimulate_ObservabilityStartFailure(t *testing.T) {
	isolateConfig(t)
	m := &mockObservabilityServer{
		startFn: func() (<-chan error, error) { return nil, errors.New("address in use") },
	}
	_, run := simulateCmd(t, "--max-ticks=3", "--tick-rate=1ms", "--metrics-addr=127.0.0.1:1")

	err := run(mockDeps(m), "testdata/walk.yaml")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "address in use")
	assert.False(t, m.stopped)
}

func TestSimulate_ServerErrorStopsEngine(t *testing.T) {
	isolateConfig(t)
	errCh := make(chan error, 1)
	m := &mockObservabilityServer{
		startFn: func() (<-chan error, error) { return errCh, nil },
	}
	_, run := simulateCmd(t, "--tick-rate=1ms", "--metrics-addr=127.0.0.1:0")

	done := make(chan error, 1)
	go func() { done <- run(mockDeps(m), "testdata/walk.yaml") }()

	time.Sleep(20 * time.Millisecond)
	errCh <- errors.New("listener closed")

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("simulate did not stop after the server failed")
	}
	assert.True(t, m.stopped)
}

func TestMonitorServerErrors(t *testing.T) {
	t.Run("error cancels", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		errCh := make(chan error, 1)
		errCh <- errors.New("boom")

		monitorServerErrors(ctx, cancel, errCh, "test")
		assert.Error(t, ctx.Err())
	})

	t.Run("closed channel does not cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		errCh := make(chan error)
		close(errCh)

		monitorServerErrors(ctx, cancel, errCh, "test")
		assert.NoError(t, ctx.Err())
	})
}
