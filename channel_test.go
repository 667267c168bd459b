// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package irc

import "testing"

func newTestTrackerConn(nick string) (*ChannelTracker, *ServerConn) {
	conn := NewServerConn(Config{Server: "irc.example.com", Nick: nick, User: nick})
	tracker := NewChannelTracker()
	tracker.Attach(conn)
	return tracker, conn
}

func TestChannelTrackerJoinPart(t *testing.T) {
	tracker, conn := newTestTrackerConn("self")

	tracker.onJoin(conn, Event{Command: JOIN, Source: &Source{Name: "alice"}, Params: []string{"#test"}})

	ch, ok := tracker.Channel("#test")
	if !ok {
		t.Fatal("channel should be tracked after a JOIN")
	}
	if !ch.HasUser("alice") {
		t.Fatal("alice should be a tracked member after JOIN")
	}

	tracker.onPart(conn, Event{Command: PART, Source: &Source{Name: "alice"}, Params: []string{"#test"}})
	if ch.HasUser("alice") {
		t.Fatal("alice should be removed after PART")
	}
}

func TestChannelTrackerSelfPartDropsChannel(t *testing.T) {
	tracker, conn := newTestTrackerConn("self")

	tracker.onJoin(conn, Event{Command: JOIN, Source: &Source{Name: "self"}, Params: []string{"#test"}})
	if _, ok := tracker.Channel("#test"); !ok {
		t.Fatal("channel should be tracked after JOIN")
	}

	tracker.onPart(conn, Event{Command: PART, Source: &Source{Name: "self"}, Params: []string{"#test"}})
	if _, ok := tracker.Channel("#test"); ok {
		t.Fatal("channel should be dropped once the local user parts")
	}
}

func TestChannelTrackerKick(t *testing.T) {
	tracker, conn := newTestTrackerConn("self")

	tracker.onJoin(conn, Event{Command: JOIN, Source: &Source{Name: "alice"}, Params: []string{"#test"}})
	tracker.onKick(conn, Event{Command: KICK, Params: []string{"#test", "alice", "bye"}})

	ch, _ := tracker.Channel("#test")
	if ch.HasUser("alice") {
		t.Fatal("alice should be removed after being kicked")
	}
}

func TestChannelTrackerSelfKickDropsChannel(t *testing.T) {
	tracker, conn := newTestTrackerConn("self")

	tracker.onJoin(conn, Event{Command: JOIN, Source: &Source{Name: "self"}, Params: []string{"#test"}})
	tracker.onKick(conn, Event{Command: KICK, Params: []string{"#test", "self", "bye"}})

	if _, ok := tracker.Channel("#test"); ok {
		t.Fatal("channel should be dropped when the local user is kicked")
	}
}

func TestChannelTrackerQuitRemovesFromAllChannels(t *testing.T) {
	tracker, conn := newTestTrackerConn("self")

	tracker.onJoin(conn, Event{Command: JOIN, Source: &Source{Name: "alice"}, Params: []string{"#one"}})
	tracker.onJoin(conn, Event{Command: JOIN, Source: &Source{Name: "alice"}, Params: []string{"#two"}})

	tracker.onQuit(conn, Event{Command: QUIT, Source: &Source{Name: "alice"}})

	one, _ := tracker.Channel("#one")
	two, _ := tracker.Channel("#two")
	if one.HasUser("alice") || two.HasUser("alice") {
		t.Fatal("QUIT should remove the user from every tracked channel")
	}
}

func TestChannelTrackerNickRename(t *testing.T) {
	tracker, conn := newTestTrackerConn("self")

	tracker.onJoin(conn, Event{Command: JOIN, Source: &Source{Name: "alice"}, Params: []string{"#test"}})
	tracker.onNick(conn, Event{Command: NICK, Source: &Source{Name: "alice"}, Params: []string{"alicia"}})

	ch, _ := tracker.Channel("#test")
	if ch.HasUser("alice") {
		t.Fatal("old nick should no longer be tracked after rename")
	}
	if !ch.HasUser("alicia") {
		t.Fatal("new nick should be tracked after rename")
	}
}

func TestChannelTrackerNamesWithPrefixes(t *testing.T) {
	tracker, conn := newTestTrackerConn("self")
	conn.Features.Apply([]string{"PREFIX=(ov)@+"})

	event := Event{
		Command: "RPL_NAMREPLY",
		Params:  []string{"self", "=", "#test"},
		Trailing: "@alice +bob carol",
	}
	tracker.onNames(conn, event)

	ch, ok := tracker.Channel("#test")
	if !ok {
		t.Fatal("channel should be created from a NAMES reply")
	}

	for _, nick := range []string{"alice", "bob", "carol"} {
		if !ch.HasUser(nick) {
			t.Fatalf("%s should be tracked after NAMES reply", nick)
		}
	}

	if perms := ch.UserPerms("alice"); !perms.Op {
		t.Fatalf("alice should have Op from the @ prefix, got %+v", perms)
	}
	if perms := ch.UserPerms("bob"); !perms.Voice {
		t.Fatalf("bob should have Voice from the + prefix, got %+v", perms)
	}
	if perms := ch.UserPerms("carol"); perms.Op || perms.Voice {
		t.Fatalf("carol should have no special perms, got %+v", perms)
	}
}

func TestChannelTrackerModeUserVsChannelWide(t *testing.T) {
	tracker, conn := newTestTrackerConn("self")

	tracker.onJoin(conn, Event{Command: JOIN, Source: &Source{Name: "alice"}, Params: []string{"#test"}})
	tracker.onMode(conn, Event{Command: MODE, Params: []string{"#test", "+o", "alice"}})

	ch, _ := tracker.Channel("#test")
	if perms := ch.UserPerms("alice"); !perms.Op {
		t.Fatalf("alice should have Op after +o mode, got %+v", perms)
	}

	tracker.onMode(conn, Event{Command: MODE, Params: []string{"#test", "+nt"}})
	if got := ch.modes.String(); got != "+nt" {
		t.Fatalf("channel-wide modes = %q, want +nt", got)
	}
}

func TestChannelTrackerChannels(t *testing.T) {
	tracker, conn := newTestTrackerConn("self")

	tracker.onJoin(conn, Event{Command: JOIN, Source: &Source{Name: "alice"}, Params: []string{"#one"}})
	tracker.onJoin(conn, Event{Command: JOIN, Source: &Source{Name: "alice"}, Params: []string{"#two"}})

	if got := len(tracker.Channels()); got != 2 {
		t.Fatalf("Channels() returned %d entries, want 2", got)
	}
}
