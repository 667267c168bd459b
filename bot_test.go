// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package irc

import (
	"testing"
	"time"
)

func TestExponentialBackoffBounds(t *testing.T) {
	b := &ExponentialBackoff{
		MinInterval: 2 * time.Second,
		MaxInterval: 10 * time.Second,
		Rand:        func() float64 { return 1 },
	}

	if got := b.Delay(1); got != b.MinInterval {
		t.Fatalf("Delay(1) = %s, want the MinInterval floor of %s", got, b.MinInterval)
	}

	if got := b.Delay(10); got != b.MaxInterval {
		t.Fatalf("Delay(10) = %s, want the MaxInterval cap of %s", got, b.MaxInterval)
	}
}

func TestExponentialBackoffGrows(t *testing.T) {
	b := &ExponentialBackoff{
		MinInterval: 0,
		MaxInterval: time.Hour,
		Rand:        func() float64 { return 1 },
	}

	d3 := b.Delay(3)
	d5 := b.Delay(5)
	if d5 <= d3 {
		t.Fatalf("Delay should grow with attempt number: Delay(3)=%s, Delay(5)=%s", d3, d5)
	}
}

func TestNewExponentialBackoffDefaults(t *testing.T) {
	b := NewExponentialBackoff()
	if b.MinInterval != 60*time.Second || b.MaxInterval != 300*time.Second {
		t.Fatalf("NewExponentialBackoff() = %+v, want 60s/300s bounds", b)
	}
}

func TestBotNextServerCycles(t *testing.T) {
	bot := NewBot([]ServerSpec{
		{Host: "one.example.com", Port: 6667},
		{Host: "two.example.com", Port: 6667},
	}, Config{Nick: "bot"})

	first := bot.nextServer()
	second := bot.nextServer()
	third := bot.nextServer()

	if first.Host != "one.example.com" || second.Host != "two.example.com" || third.Host != "one.example.com" {
		t.Fatalf("nextServer() cycle = %s, %s, %s", first.Host, second.Host, third.Host)
	}
}

func TestBotOnWelcomeJoinsConfiguredChannels(t *testing.T) {
	bot := NewBot([]ServerSpec{{Host: "irc.example.com", Port: 6667}}, Config{Nick: "bot", User: "bot"})
	bot.Channels = []string{"#one", "#two"}
	bot.attempt = 3

	c, b, conn := cmdTestConn(t)
	defer c.Close()
	defer conn.Close()

	bot.onWelcome(c, Event{Command: "RPL_WELCOME"})

	if bot.attempt != 0 {
		t.Fatalf("onWelcome should reset the attempt counter, got %d", bot.attempt)
	}

	e := readEvent(t, conn, b)
	if e.Command != JOIN || e.Params[0] != "#one,#two" {
		t.Fatalf("unexpected JOIN event: %#v", e)
	}
}

type reflectiveProbe struct {
	sawPrivmsg bool
}

func (p *reflectiveProbe) OnPrivmsg(conn *ServerConn, event Event) HandlerResult {
	p.sawPrivmsg = true
	return Continue
}

func TestBotDispatchReflective(t *testing.T) {
	bot := NewBot([]ServerSpec{{Host: "irc.example.com", Port: 6667}}, Config{})
	probe := &reflectiveProbe{}
	bot.SetReflectiveHandler(probe)

	conn := NewServerConn(Config{})
	bot.dispatchReflective(conn, Event{Command: PRIVMSG})

	if !probe.sawPrivmsg {
		t.Fatal("dispatchReflective should have invoked OnPrivmsg")
	}
}

func TestBotDispatchReflectiveNoTarget(t *testing.T) {
	bot := NewBot([]ServerSpec{{Host: "irc.example.com", Port: 6667}}, Config{})
	conn := NewServerConn(Config{})

	if got := bot.dispatchReflective(conn, Event{Command: PRIVMSG}); got != Continue {
		t.Fatalf("dispatchReflective with no reflective target = %v, want Continue", got)
	}
}

func TestBotReconnectScheduleStaysBounded(t *testing.T) {
	bot := NewBot([]ServerSpec{{Host: "irc.example.com", Port: 6667}}, Config{Nick: "bot", User: "bot"})

	conn := NewServerConn(Config{})
	bot.Tracker.Attach(conn)
	bot.Tracker.SetReconnectHook(bot.scheduleReconnect)

	for i := 0; i < 4; i++ {
		conn.Handlers.exec(DISCONNECT, conn, &Event{Command: DISCONNECT})
		if got := bot.reactor.Scheduler().Len(); got > 1 {
			t.Fatalf("scheduler queue size after disconnect %d = %d, want <= 1", i+1, got)
		}
	}
}

func TestChannelTrackerClearsOnDisconnect(t *testing.T) {
	tracker := NewChannelTracker()
	conn := NewServerConn(Config{Nick: "me"})
	tracker.Attach(conn)

	conn.Handlers.exec(JOIN, conn, &Event{Source: &Source{Name: "me"}, Params: []string{"#room"}})
	if len(tracker.Channels()) != 1 {
		t.Fatalf("expected 1 tracked channel before disconnect, got %d", len(tracker.Channels()))
	}

	var hookRan bool
	tracker.SetReconnectHook(func() { hookRan = true })

	conn.Handlers.exec(DISCONNECT, conn, &Event{Command: DISCONNECT})

	if len(tracker.Channels()) != 0 {
		t.Fatalf("expected channels to be cleared on disconnect, got %d", len(tracker.Channels()))
	}
	if !hookRan {
		t.Fatal("expected the reconnect hook to run after clearing channels")
	}
}

func TestTitleCase(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"PRIVMSG", "Privmsg"},
		{"join", "Join"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := titleCase(tt.in); got != tt.want {
			t.Errorf("titleCase(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
