// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package waypoint

import (
	"slices"

	"github.com/samber/oops"
)

// Queue errors.
var (
	// ErrEmptyQueue is returned by Next when no waypoint remains.
	ErrEmptyQueue = oops.Code("QUEUE_EMPTY").Errorf("waypoint queue is empty")
	// ErrResetUnsupported is returned by Reset on a consuming queue.
	ErrResetUnsupported = oops.Code("QUEUE_RESET_UNSUPPORTED").Errorf("consuming queue cannot be reset")
)

// Queue is an ordered sequence of waypoints handed out one at a time.
type Queue interface {
	// SetAll replaces the contents of the queue.
	SetAll(seq []Waypoint) error
	// Add appends one waypoint.
	Add(w Waypoint) error
	// AddAll appends waypoints in order.
	AddAll(seq []Waypoint) error
	// HasNext reports whether Next would succeed.
	HasNext() bool
	// Next returns the next waypoint, or ErrEmptyQueue.
	Next() (Waypoint, error)
	// Reset rewinds to the first waypoint where supported.
	Reset() error
	// Clear drops every waypoint and any cursor.
	Clear()
	// Len is the number of waypoints held.
	Len() int
	// Remaining is the number of waypoints Next can still return.
	Remaining() int
	// Snapshot returns a copy of the waypoints Next can still return.
	Snapshot() []Waypoint
}

func validateAll(seq []Waypoint) error {
	for i, w := range seq {
		if err := w.Validate(); err != nil {
			return oops.With("index", i).Wrap(err)
		}
	}
	return nil
}

// ConsumingQueue removes each waypoint as it is handed out. It never replays;
// once empty it stays empty until refilled.
type ConsumingQueue struct {
	items []Waypoint
}

// NewConsumingQueue returns a consuming queue holding a copy of seq.
func NewConsumingQueue(seq ...Waypoint) (*ConsumingQueue, error) {
	q := &ConsumingQueue{}
	if err := q.SetAll(seq); err != nil {
		return nil, err
	}
	return q, nil
}

// SetAll replaces the contents with a copy of seq.
func (q *ConsumingQueue) SetAll(seq []Waypoint) error {
	if err := validateAll(seq); err != nil {
		return err
	}
	q.items = slices.Clone(seq)
	return nil
}

// Add appends w.
func (q *ConsumingQueue) Add(w Waypoint) error {
	if err := w.Validate(); err != nil {
		return err
	}
	q.items = append(q.items, w)
	return nil
}

// AddAll appends seq. Nothing is appended if any waypoint is invalid.
func (q *ConsumingQueue) AddAll(seq []Waypoint) error {
	if err := validateAll(seq); err != nil {
		return err
	}
	q.items = append(q.items, seq...)
	return nil
}

// HasNext reports whether the queue is non-empty.
func (q *ConsumingQueue) HasNext() bool {
	return len(q.items) > 0
}

// Next removes and returns the head of the queue.
func (q *ConsumingQueue) Next() (Waypoint, error) {
	if len(q.items) == 0 {
		return Waypoint{}, ErrEmptyQueue
	}
	head := q.items[0]
	q.items = slices.Delete(q.items, 0, 1)
	return head, nil
}

// Reset is unsupported: consumed waypoints are gone.
func (q *ConsumingQueue) Reset() error {
	return ErrResetUnsupported
}

// Clear drops every waypoint.
func (q *ConsumingQueue) Clear() {
	q.items = nil
}

// Len returns the number of waypoints left.
func (q *ConsumingQueue) Len() int {
	return len(q.items)
}

// Remaining equals Len for a consuming queue.
func (q *ConsumingQueue) Remaining() int {
	return len(q.items)
}

// Snapshot returns a copy of the waypoints left.
func (q *ConsumingQueue) Snapshot() []Waypoint {
	return slices.Clone(q.items)
}

// ResettableQueue hands out waypoints through a cursor and keeps them, so the
// sequence can be replayed from the start with Reset.
type ResettableQueue struct {
	items  []Waypoint
	cursor int
}

// NewResettableQueue returns a resettable queue holding a copy of seq.
func NewResettableQueue(seq ...Waypoint) (*ResettableQueue, error) {
	q := &ResettableQueue{}
	if err := q.SetAll(seq); err != nil {
		return nil, err
	}
	return q, nil
}

// SetAll primes the backing list with a copy of seq and rewinds the cursor.
func (q *ResettableQueue) SetAll(seq []Waypoint) error {
	if err := validateAll(seq); err != nil {
		return err
	}
	q.items = slices.Clone(seq)
	q.cursor = 0
	return nil
}

// Add appends w without moving the cursor.
func (q *ResettableQueue) Add(w Waypoint) error {
	if err := w.Validate(); err != nil {
		return err
	}
	q.items = append(q.items, w)
	return nil
}

// AddAll appends seq without moving the cursor.
func (q *ResettableQueue) AddAll(seq []Waypoint) error {
	if err := validateAll(seq); err != nil {
		return err
	}
	q.items = append(q.items, seq...)
	return nil
}

// HasNext reports whether the cursor is before the end.
func (q *ResettableQueue) HasNext() bool {
	return q.cursor < len(q.items)
}

// Next returns the waypoint at the cursor and advances it.
func (q *ResettableQueue) Next() (Waypoint, error) {
	if q.cursor >= len(q.items) {
		return Waypoint{}, ErrEmptyQueue
	}
	w := q.items[q.cursor]
	q.cursor++
	return w, nil
}

// Reset rewinds the cursor to the first waypoint.
func (q *ResettableQueue) Reset() error {
	q.cursor = 0
	return nil
}

// Clear drops every waypoint and rewinds the cursor.
func (q *ResettableQueue) Clear() {
	q.items = nil
	q.cursor = 0
}

// Len returns the number of waypoints held, handed out or not.
func (q *ResettableQueue) Len() int {
	return len(q.items)
}

// Remaining returns the number of waypoints after the cursor.
func (q *ResettableQueue) Remaining() int {
	return len(q.items) - q.cursor
}

// Cursor returns the index of the next waypoint to hand out.
func (q *ResettableQueue) Cursor() int {
	return q.cursor
}

// Snapshot returns a copy of the waypoints after the cursor.
func (q *ResettableQueue) Snapshot() []Waypoint {
	return slices.Clone(q.items[q.cursor:])
}
