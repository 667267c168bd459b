// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package irc

import "testing"

func TestHandlePINGRepliesWithPong(t *testing.T) {
	c, b, conn := cmdTestConn(t)
	defer c.Close()

	handlePING(c, Event{Command: PING, Trailing: "12345"})

	e := readEvent(t, conn, b)
	if e.Command != PONG || len(e.Params) == 0 || e.Params[0] != "12345" {
		t.Fatalf("unexpected reply to PING: %#v", e)
	}
}

func TestHandleWelcomeUpdatesNick(t *testing.T) {
	conn := NewServerConn(Config{Nick: "requested"})

	handleWelcome(conn, Event{Command: "RPL_WELCOME", Params: []string{"actual"}})

	if got := conn.GetNick(); got != "actual" {
		t.Fatalf("GetNick() = %q, want %q", got, "actual")
	}
}

func TestHandleNickInUseAppendsUnderscore(t *testing.T) {
	c, b, conn := cmdTestConn(t)
	defer c.Close()

	handleNickInUse(c, Event{Command: "ERR_NICKNAMEINUSE", Params: []string{"*", "test"}})

	e := readEvent(t, conn, b)
	if e.Command != NICK || e.Params[0] != "test_" {
		t.Fatalf("unexpected retry nick: %#v", e)
	}
}

func TestHandleISUPPORTAppliesFeatures(t *testing.T) {
	conn := NewServerConn(Config{})

	handleISUPPORT(conn, Event{
		Command: "RPL_ISUPPORT",
		Params:  []string{"mynick", "CHANTYPES=#&", "PREFIX=(ov)@+"},
	})

	if v, ok := conn.Features.Get("CHANTYPES"); !ok || v != "#&" {
		t.Fatalf("CHANTYPES not applied: (%q, %v)", v, ok)
	}
}

func TestHandleNICKUpdatesOwnNickOnMatch(t *testing.T) {
	conn := NewServerConn(Config{Nick: "old"})

	handleNICK(conn, Event{Command: NICK, Source: &Source{Name: "old"}, Params: []string{"new"}})
	if got := conn.GetNick(); got != "new" {
		t.Fatalf("GetNick() = %q, want new", got)
	}
}

func TestHandleNICKIgnoresOtherUsers(t *testing.T) {
	conn := NewServerConn(Config{Nick: "self"})

	handleNICK(conn, Event{Command: NICK, Source: &Source{Name: "someoneelse"}, Params: []string{"newnick"}})
	if got := conn.GetNick(); got != "self" {
		t.Fatalf("GetNick() = %q, a NICK from another user should not change it", got)
	}
}
