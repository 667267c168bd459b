// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package irc

import (
	"testing"
	"time"
)

func TestSchedulerExecuteAfterRunPending(t *testing.T) {
	s := NewScheduler()

	var ran bool
	s.ExecuteAfter(0, func() { ran = true })

	time.Sleep(time.Millisecond)
	s.RunPending()

	if !ran {
		t.Fatal("ExecuteAfter(0, ...) should have run after RunPending")
	}
	if s.Len() != 0 {
		t.Fatalf("Len() after a one-shot fires = %d, want 0", s.Len())
	}
}

func TestSchedulerExecuteAtFuture(t *testing.T) {
	s := NewScheduler()

	var ran bool
	s.ExecuteAt(time.Now().Add(time.Hour), func() { ran = true })

	s.RunPending()
	if ran {
		t.Fatal("a future-dated entry should not run via RunPending")
	}
	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (entry still pending)", s.Len())
	}
}

func TestSchedulerOrderingByDueTime(t *testing.T) {
	s := NewScheduler()

	var order []int
	s.ExecuteAt(time.Now().Add(30*time.Millisecond), func() { order = append(order, 2) })
	s.ExecuteAt(time.Now(), func() { order = append(order, 1) })

	time.Sleep(40 * time.Millisecond)
	s.RunPending()

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("dispatch order = %v, want [1 2]", order)
	}
}

func TestSchedulerExecuteEveryFixedRate(t *testing.T) {
	s := NewScheduler()

	var fires []time.Time
	h := s.ExecuteEvery(5*time.Millisecond, func() {
		fires = append(fires, time.Now())
	})

	deadline := time.Now().Add(60 * time.Millisecond)
	for time.Now().Before(deadline) {
		s.RunPending()
		time.Sleep(2 * time.Millisecond)
	}
	h.Cancel()

	if len(fires) < 2 {
		t.Fatalf("ExecuteEvery fired %d times in 60ms at a 5ms period, want at least 2", len(fires))
	}

	before := len(fires)
	time.Sleep(20 * time.Millisecond)
	s.RunPending()
	if len(fires) != before {
		t.Fatalf("entry fired %d more times after Cancel, want 0", len(fires)-before)
	}
}

func TestSchedulerCancelOneShot(t *testing.T) {
	s := NewScheduler()

	var ran bool
	h := s.ExecuteAfter(5*time.Millisecond, func() { ran = true })
	h.Cancel()

	time.Sleep(10 * time.Millisecond)
	s.RunPending()

	if ran {
		t.Fatal("a cancelled one-shot entry should not run")
	}
	if s.Len() != 0 {
		t.Fatalf("Len() after cancel = %d, want 0", s.Len())
	}
}

func TestSchedulerNextDue(t *testing.T) {
	s := NewScheduler()

	if _, ok := s.NextDue(); ok {
		t.Fatal("NextDue() on an empty scheduler should report false")
	}

	want := time.Now().Add(time.Minute)
	s.ExecuteAt(want, func() {})

	got, ok := s.NextDue()
	if !ok {
		t.Fatal("NextDue() should report true with a pending entry")
	}
	if !got.Equal(want) {
		t.Fatalf("NextDue() = %v, want %v", got, want)
	}
}

func TestSchedulerRunStop(t *testing.T) {
	s := NewScheduler()

	fired := make(chan struct{})
	s.ExecuteAfter(0, func() { close(fired) })

	go s.Run()

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("Run() never dispatched a due entry")
	}

	s.Stop()
}
