// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package irc

import "testing"

func TestCModesParseAndApply(t *testing.T) {
	cm := newCModes(ModeDefaults, "@+")

	parsed := cm.parse("+nt", nil)
	if len(parsed) != 2 {
		t.Fatalf("parse(+nt) returned %d modes, want 2", len(parsed))
	}
	if !parsed[0].add || parsed[0].name != 'n' {
		t.Fatalf("parsed[0] = %+v, want add n", parsed[0])
	}

	cm.apply(parsed)
	if got := cm.String(); got != "+nt" {
		t.Fatalf("String() after apply = %q, want +nt", got)
	}

	// Removing "t" should drop it from the tracked set.
	removed := cm.parse("-t", nil)
	cm.apply(removed)
	if got := cm.String(); got != "+n" {
		t.Fatalf("String() after removing t = %q, want +n", got)
	}
}

func TestCModesParseWithArgs(t *testing.T) {
	cm := newCModes(ModeDefaults, "@+")

	parsed := cm.parse("+kl", []string{"secret", "10"})
	if len(parsed) != 2 {
		t.Fatalf("parse(+kl) returned %d modes, want 2", len(parsed))
	}
	if parsed[0].name != 'k' || parsed[0].args != "secret" {
		t.Fatalf("parsed[0] = %+v, want k=secret", parsed[0])
	}
	if parsed[1].name != 'l' || parsed[1].args != "10" {
		t.Fatalf("parsed[1] = %+v, want l=10", parsed[1])
	}
}

func TestCModesBanListModeHasNoSettingArg(t *testing.T) {
	cm := newCModes(ModeDefaults, "@+")

	// "b" is a type-A (list) mode: it always takes an argument but is never
	// folded into the tracked non-list mode set.
	parsed := cm.parse("+b", []string{"*!*@host"})
	if len(parsed) != 1 {
		t.Fatalf("parse(+b) returned %d modes, want 1", len(parsed))
	}
	if parsed[0].setting {
		t.Fatal("list-type mode should not be marked as a tracked setting")
	}

	cm.apply(parsed)
	if got := cm.String(); got != "" {
		t.Fatalf("String() after applying a list-type mode = %q, want empty", got)
	}
}

func TestIsValidChannelMode(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"b,k,l,imnpst", true},
		{"", false},
		{"b,k,l,imn1pst", false},
	}

	for _, tt := range tests {
		if got := isValidChannelMode(tt.in); got != tt.want {
			t.Errorf("isValidChannelMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestIsValidUserPrefix(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"(ov)@+", true},
		{"(qaohv)~&@%+", true},
		{"ov@+", false},
		{"(ov)@", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := isValidUserPrefix(tt.in); got != tt.want {
			t.Errorf("isValidUserPrefix(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParsePrefixes(t *testing.T) {
	modes, prefixes := parsePrefixes("(ov)@+")
	if modes != "ov" || prefixes != "@+" {
		t.Fatalf("parsePrefixes = (%q, %q), want (ov, @+)", modes, prefixes)
	}

	// Invalid input should yield zero values rather than panic.
	modes, prefixes = parsePrefixes("garbage")
	if modes != "" || prefixes != "" {
		t.Fatalf("parsePrefixes(garbage) = (%q, %q), want empty", modes, prefixes)
	}
}

func TestUserPermsSet(t *testing.T) {
	var m UserPerms
	m.set("@+", false)

	if !m.Op || !m.Voice {
		t.Fatalf("set(@+) = %+v, want Op and Voice", m)
	}
	if m.Owner || m.Admin || m.HalfOp {
		t.Fatalf("set(@+) set unrelated flags: %+v", m)
	}
	if !m.IsAdmin() {
		t.Fatal("Op should imply IsAdmin()")
	}
	if !m.IsTrusted() {
		t.Fatal("Op should imply IsTrusted()")
	}
}

func TestUserPermsSetFromMode(t *testing.T) {
	var m UserPerms
	m.setFromMode(CMode{name: 'o', add: true})
	if !m.Op {
		t.Fatal("setFromMode(+o) should set Op")
	}

	m.setFromMode(CMode{name: 'o', add: false})
	if m.Op {
		t.Fatal("setFromMode(-o) should clear Op")
	}
}

func TestUserPermsResetOnNonAppend(t *testing.T) {
	var m UserPerms
	m.Voice = true
	m.set("@", false)

	if m.Voice {
		t.Fatal("set with appendTo=false should reset prior flags")
	}
	if !m.Op {
		t.Fatal("set(@) should set Op")
	}
}

func TestParseUserPrefix(t *testing.T) {
	modes, nick, ok := parseUserPrefix("@+Guest")
	if !ok {
		t.Fatal("parseUserPrefix should succeed for a valid prefixed nick")
	}
	if modes != "@+" || nick != "Guest" {
		t.Fatalf("parseUserPrefix = (%q, %q), want (@+, Guest)", modes, nick)
	}

	modes, nick, ok = parseUserPrefix("PlainNick")
	if !ok || modes != "" || nick != "PlainNick" {
		t.Fatalf("parseUserPrefix(PlainNick) = (%q, %q, %v), want (\"\", PlainNick, true)", modes, nick, ok)
	}
}

func TestParseNickModes(t *testing.T) {
	added, removed := parseNickModes("+i-w+x")
	if string(added) != "ix" {
		t.Fatalf("added = %q, want ix", added)
	}
	if string(removed) != "w" {
		t.Fatalf("removed = %q, want w", removed)
	}
}
