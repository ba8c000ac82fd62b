package game

import (
	"sort"
	"sync"
	"time"
)

// timerSet holds the armed one-shot spawn timers for a session so that
// pause and teardown can revoke them. Every registration is revocable;
// nothing may keep firing against a torn-down session.
type timerSet struct {
	mu     sync.Mutex
	timers map[int]*time.Timer
	closed bool
}

func newTimerSet() *timerSet {
	return &timerSet{timers: make(map[int]*time.Timer)}
}

// Arm schedules fn to run after d, keyed by beat index. No-op once the
// set is closed. Re-arming an index replaces the previous timer.
func (ts *timerSet) Arm(beatIndex int, d time.Duration, fn func()) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.closed {
		return
	}
	if old, ok := ts.timers[beatIndex]; ok {
		old.Stop()
	}
	ts.timers[beatIndex] = time.AfterFunc(d, func() {
		ts.mu.Lock()
		delete(ts.timers, beatIndex)
		closed := ts.closed
		ts.mu.Unlock()
		if !closed {
			fn()
		}
	})
}

// Drain stops every pending timer and returns their beat indices in
// ascending order, for re-arming after a resume.
func (ts *timerSet) Drain() []int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	indices := make([]int, 0, len(ts.timers))
	for idx, t := range ts.timers {
		t.Stop()
		indices = append(indices, idx)
	}
	ts.timers = make(map[int]*time.Timer)
	sort.Ints(indices)
	return indices
}

// Close stops every pending timer and refuses all future registrations.
func (ts *timerSet) Close() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.closed = true
	for idx, t := range ts.timers {
		t.Stop()
		delete(ts.timers, idx)
	}
}

// Pending reports how many timers are currently armed.
func (ts *timerSet) Pending() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return len(ts.timers)
}
