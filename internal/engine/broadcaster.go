// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package engine

import (
	"log/slog"
	"sync"
)

// reportBuffer is the per-subscriber channel capacity.
const reportBuffer = 64

// Broadcaster fans tick reports out to subscribers without blocking the
// tick loop.
type Broadcaster struct {
	mu   sync.RWMutex
	subs []chan Report
}

// NewBroadcaster creates a broadcaster with no subscribers.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{}
}

// Subscribe returns a channel receiving every subsequent report.
func (b *Broadcaster) Subscribe() chan Report {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Report, reportBuffer)
	b.subs = append(b.subs, ch)
	return ch
}

// Unsubscribe removes and closes ch.
func (b *Broadcaster) Unsubscribe(ch chan Report) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, sub := range b.subs {
		if sub == ch {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			close(ch)
			return
		}
	}
}

// Close unsubscribes everyone.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}

// Broadcast sends r to every subscriber. A subscriber whose buffer is full
// misses r.
func (b *Broadcaster) Broadcast(r Report) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- r:
		default:
			DroppedReports.Inc()
			slog.Warn("tick report dropped: subscriber buffer full", "tick", r.Tick)
		}
	}
}
