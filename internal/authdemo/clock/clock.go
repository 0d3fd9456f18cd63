package clock

import (
	"sort"
	"sync"
	"time"
)

// Timer is a handle to a scheduled callback.
type Timer interface {
	// Stop prevents the callback from firing. It reports whether the call stopped the timer.
	Stop() bool
}

// Scheduler runs callbacks after a delay without blocking the caller.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// SchedulerFunc adapts ordinary functions to Scheduler.
type SchedulerFunc func(time.Duration, func()) Timer

// AfterFunc schedules fn using the wrapped function.
func (f SchedulerFunc) AfterFunc(d time.Duration, fn func()) Timer {
	return f(d, fn)
}

// Real returns a Scheduler backed by time.AfterFunc.
func Real() Scheduler {
	return SchedulerFunc(func(d time.Duration, fn func()) Timer {
		return time.AfterFunc(d, fn)
	})
}

// Immediate returns a Scheduler that runs callbacks synchronously, ignoring the delay.
func Immediate() Scheduler {
	return SchedulerFunc(func(_ time.Duration, fn func()) Timer {
		fn()
		return firedTimer{}
	})
}

type firedTimer struct{}

func (firedTimer) Stop() bool { return false }

// Manual collects callbacks and runs them only when the owner advances time.
type Manual struct {
	mu      sync.Mutex
	now     time.Duration
	seq     int
	pending []*manualTimer
}

type manualTimer struct {
	owner   *Manual
	due     time.Duration
	seq     int
	fn      func()
	stopped bool
	fired   bool
}

// NewManual constructs an empty Manual scheduler.
func NewManual() *Manual {
	return &Manual{}
}

// AfterFunc records fn to run once Advance moves past d.
func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{owner: m, due: m.now + d, seq: m.seq, fn: fn}
	m.pending = append(m.pending, t)
	return t
}

// Pending returns the number of callbacks that have not fired or been stopped.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, t := range m.pending {
		if !t.stopped && !t.fired {
			count++
		}
	}
	return count
}

// Advance moves the virtual clock forward and runs every callback that became due, in due order.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now += d
	due := m.collect(func(t *manualTimer) bool { return t.due <= m.now })
	m.mu.Unlock()

	for _, t := range due {
		t.fn()
	}
}

// FireAll runs every pending callback regardless of its delay.
func (m *Manual) FireAll() {
	m.mu.Lock()
	due := m.collect(func(*manualTimer) bool { return true })
	m.mu.Unlock()

	for _, t := range due {
		t.fn()
	}
}

// collect must be called with m.mu held.
func (m *Manual) collect(ready func(*manualTimer) bool) []*manualTimer {
	var due, keep []*manualTimer
	for _, t := range m.pending {
		if t.stopped || t.fired {
			continue
		}
		if ready(t) {
			t.fired = true
			due = append(due, t)
			continue
		}
		keep = append(keep, t)
	}
	m.pending = keep
	sort.SliceStable(due, func(i, j int) bool {
		if due[i].due == due[j].due {
			return due[i].seq < due[j].seq
		}
		return due[i].due < due[j].due
	})
	return due
}

func (t *manualTimer) Stop() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}
