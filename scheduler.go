// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package irc

import (
	"container/heap"
	"sync"
	"time"
)

// scheduledFunc is one entry in the Scheduler's priority queue: a function
// due to run at a specific time, optionally repeating at a fixed period.
type scheduledFunc struct {
	due    time.Time
	period time.Duration // zero for a one-shot
	fn     func()
	index  int // maintained by container/heap
	id     uint64
}

// schedHeap implements container/heap.Interface, ordering entries by
// ascending due time.
type schedHeap []*scheduledFunc

func (h schedHeap) Len() int            { return len(h) }
func (h schedHeap) Less(i, j int) bool  { return h[i].due.Before(h[j].due) }
func (h schedHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}

func (h *schedHeap) Push(x any) {
	entry := x.(*scheduledFunc)
	entry.index = len(*h)
	*h = append(*h, entry)
}

func (h *schedHeap) Pop() any {
	old := *h
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	entry.index = -1
	*h = old[:n-1]
	return entry
}

// Scheduler is a single-goroutine-driven priority queue of delayed and
// periodic functions, used to drive housekeeping tasks (PING timers, DCC
// timeouts, periodic reconnaissance) without spawning one goroutine per
// timer. A Scheduler is safe for concurrent use.
type Scheduler struct {
	mu     sync.Mutex
	heap   schedHeap
	nextID uint64
	timer  *time.Timer
	stop   chan struct{}
	wake   chan struct{}
}

// NewScheduler returns an empty, ready-to-use Scheduler. Call Run to begin
// dispatching due entries; Run blocks until Stop is called.
func NewScheduler() *Scheduler {
	return &Scheduler{
		stop: make(chan struct{}),
		wake: make(chan struct{}, 1),
	}
}

// scheduledHandle identifies a previously scheduled entry so it may be
// cancelled.
type scheduledHandle struct {
	s  *Scheduler
	id uint64
}

// Cancel removes the associated entry from the schedule, if it has not
// already fired (for periodic entries, stops future firings).
func (h scheduledHandle) Cancel() {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	for i, e := range h.s.heap {
		if e.id == h.id {
			heap.Remove(&h.s.heap, i)
			return
		}
	}
}

// ExecuteAfter schedules fn to run once, after delay has elapsed.
func (s *Scheduler) ExecuteAfter(delay time.Duration, fn func()) scheduledHandle {
	return s.schedule(time.Now().Add(delay), 0, fn)
}

// ExecuteAt schedules fn to run once, at the given absolute time.
func (s *Scheduler) ExecuteAt(at time.Time, fn func()) scheduledHandle {
	return s.schedule(at, 0, fn)
}

// ExecuteEvery schedules fn to run repeatedly, first after period has
// elapsed, then at a fixed rate: each subsequent due time is computed as
// the prior due time plus period, not "now + period", so that scheduling
// jitter or slow handlers never drift the nominal period.
func (s *Scheduler) ExecuteEvery(period time.Duration, fn func()) scheduledHandle {
	return s.schedule(time.Now().Add(period), period, fn)
}

func (s *Scheduler) schedule(due time.Time, period time.Duration, fn func()) scheduledHandle {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	heap.Push(&s.heap, &scheduledFunc{due: due, period: period, fn: fn, id: id})
	s.mu.Unlock()

	s.nudge()

	return scheduledHandle{s: s, id: id}
}

func (s *Scheduler) nudge() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run dispatches due entries until Stop is called. Each due function runs
// synchronously on the Scheduler's own calling goroutine; a slow handler
// delays subsequent ones, so callers that need concurrency should have fn
// spawn its own goroutine.
func (s *Scheduler) Run() {
	for {
		s.mu.Lock()
		var wait time.Duration
		if len(s.heap) == 0 {
			wait = time.Hour
		} else {
			wait = time.Until(s.heap[0].due)
		}
		s.mu.Unlock()

		if wait < 0 {
			wait = 0
		}

		timer := time.NewTimer(wait)
		select {
		case <-s.stop:
			timer.Stop()
			return
		case <-s.wake:
			timer.Stop()
		case <-timer.C:
		}

		s.runDue()
	}
}

func (s *Scheduler) runDue() {
	now := time.Now()

	for {
		s.mu.Lock()
		if len(s.heap) == 0 || s.heap[0].due.After(now) {
			s.mu.Unlock()
			return
		}

		entry := heap.Pop(&s.heap).(*scheduledFunc)

		if entry.period > 0 {
			entry.due = entry.due.Add(entry.period)
			heap.Push(&s.heap, entry)
		}
		s.mu.Unlock()

		entry.fn()
	}
}

// Stop halts Run. Stop is idempotent only if called once; calling it twice
// panics on a closed channel, matching the single-owner lifecycle the
// reactor drives it with.
func (s *Scheduler) Stop() {
	close(s.stop)
}

// RunPending runs every entry currently due, without blocking to wait for
// the next one. Used by a cooperative caller (Reactor.ProcessOnce) that
// drives the scheduler itself instead of calling Run.
func (s *Scheduler) RunPending() {
	s.runDue()
}

// NextDue returns the due time of the earliest scheduled entry, and false
// if nothing is scheduled.
func (s *Scheduler) NextDue() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.heap) == 0 {
		return time.Time{}, false
	}
	return s.heap[0].due, true
}

// Len returns the number of entries currently scheduled.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.heap)
}
