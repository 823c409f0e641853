// SPDX-License-Identifier: GPL-3.0-or-later

package replica_test

import (
	"math"
	"testing"

	"github.com/bassosimone/replica"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type firedEvent struct {
	Name string
	At   float64
}

func TestSchedulerOrdersByTimeThenSubmission(t *testing.T) {
	sched := replica.NewScheduler()
	var fired []firedEvent
	record := func(name string) func() {
		return func() {
			fired = append(fired, firedEvent{Name: name, At: sched.Now()})
		}
	}

	sched.Schedule(2, record("c"))
	sched.Schedule(0, record("a"))
	sched.Schedule(1, record("b1"))
	sched.Schedule(1, record("b2"))
	sched.Schedule(0, record("a2"))
	assert.Equal(t, 5, sched.Pending())

	sched.Run()

	expect := []firedEvent{
		{Name: "a", At: 0},
		{Name: "a2", At: 0},
		{Name: "b1", At: 1},
		{Name: "b2", At: 1},
		{Name: "c", At: 2},
	}
	if diff := cmp.Diff(expect, fired); diff != "" {
		t.Fatal(diff)
	}
	assert.Zero(t, sched.Pending())
	assert.Equal(t, 2.0, sched.Now())
}

func TestSchedulerEventsScheduleEvents(t *testing.T) {
	sched := replica.NewScheduler()
	var times []float64
	sched.Schedule(1, func() {
		times = append(times, sched.Now())
		sched.Schedule(0.5, func() {
			times = append(times, sched.Now())
		})
	})
	sched.Run()
	assert.Equal(t, []float64{1, 1.5}, times)
}

func TestSchedulerStepEmpty(t *testing.T) {
	sched := replica.NewScheduler()
	assert.False(t, sched.Step())
	assert.Zero(t, sched.Now())
}

func TestSchedulerRunUntil(t *testing.T) {
	sched := replica.NewScheduler()
	count := 0
	for _, delay := range []float64{1, 2, 3} {
		sched.Schedule(delay, func() { count++ })
	}

	sched.RunUntil(2)
	assert.Equal(t, 2, count)
	assert.Equal(t, 2.0, sched.Now())
	assert.Equal(t, 1, sched.Pending())

	sched.RunUntil(10)
	assert.Equal(t, 3, count)
	assert.Equal(t, 10.0, sched.Now())
}

func TestSchedulerRejectsInvalidDelay(t *testing.T) {
	sched := replica.NewScheduler()
	require.Panics(t, func() {
		sched.Schedule(-1, func() {})
	})
	require.Panics(t, func() {
		sched.Schedule(math.NaN(), func() {})
	})
}
