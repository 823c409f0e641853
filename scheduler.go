// SPDX-License-Identifier: GPL-3.0-or-later

package replica

import (
	"github.com/bassosimone/runtimex"
	"github.com/google/btree"
)

// schedulerEvent is an event in the [*Scheduler] queue.
type schedulerEvent struct {
	// at is the virtual time when the event fires.
	at float64

	// seq breaks ties between events firing at the same time.
	seq uint64

	// fn is the function to invoke.
	fn func()
}

// schedulerEventLess orders events by time and then by submission order.
func schedulerEventLess(a, b *schedulerEvent) bool {
	if a.at != b.at {
		return a.at < b.at
	}
	return a.seq < b.seq
}

// schedulerBTreeDegree is the degree of the event queue B-tree.
const schedulerBTreeDegree = 16

// Scheduler is a single-threaded discrete-event loop using virtual time.
//
// Events run one at a time and each runs to completion before the
// next one starts. Events scheduled for the same instant run in the
// order in which they were scheduled.
//
// The zero value is invalid. Construct using [NewScheduler].
type Scheduler struct {
	// now is the current virtual time.
	now float64

	// queue contains the pending events.
	queue *btree.BTreeG[*schedulerEvent]

	// seq is the next event sequence number.
	seq uint64
}

// NewScheduler creates a new [*Scheduler] whose clock starts at zero.
func NewScheduler() *Scheduler {
	return &Scheduler{
		now:   0,
		queue: btree.NewG[*schedulerEvent](schedulerBTreeDegree, schedulerEventLess),
		seq:   0,
	}
}

// Now returns the current virtual time.
func (s *Scheduler) Now() float64 {
	return s.now
}

// Pending returns the number of events waiting to run.
func (s *Scheduler) Pending() int {
	return s.queue.Len()
}

// Schedule arranges for fn to run delay time units from now.
//
// This method PANICs if delay is negative or NaN.
func (s *Scheduler) Schedule(delay float64, fn func()) {
	runtimex.Assert(delay >= 0)
	s.queue.ReplaceOrInsert(&schedulerEvent{
		at:  s.now + delay,
		seq: s.seq,
		fn:  fn,
	})
	s.seq++
}

// Step runs the earliest pending event, advancing the clock to its
// time, and returns whether there was an event to run.
func (s *Scheduler) Step() bool {
	ev, ok := s.queue.DeleteMin()
	if !ok {
		return false
	}
	s.now = ev.at
	ev.fn()
	return true
}

// Run runs events until the queue is empty.
func (s *Scheduler) Run() {
	for s.Step() {
		// nothing
	}
}

// RunUntil runs all the events scheduled at or before deadline and
// then advances the clock to deadline, if it is in the future.
func (s *Scheduler) RunUntil(deadline float64) {
	for {
		ev, ok := s.queue.Min()
		if !ok || ev.at > deadline {
			break
		}
		s.Step()
	}
	s.now = max(s.now, deadline)
}
