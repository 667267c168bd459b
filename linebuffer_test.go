// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package irc

import (
	"bytes"
	"testing"
)

func TestLineBufferLines(t *testing.T) {
	var lb LineBuffer
	lb.Feed([]byte("one\r\ntwo\nthree"))

	lines := lb.Lines()
	if len(lines) != 2 {
		t.Fatalf("Lines() returned %d lines, want 2", len(lines))
	}
	if string(lines[0]) != "one" || string(lines[1]) != "two" {
		t.Fatalf("Lines() = %q, want [one two]", lines)
	}
	if lb.Len() != len("three") {
		t.Fatalf("Len() = %d, want %d (residual fragment)", lb.Len(), len("three"))
	}

	lb.Feed([]byte(" more\n"))
	lines = lb.Lines()
	if len(lines) != 1 || string(lines[0]) != "three more" {
		t.Fatalf("Lines() after more feed = %q, want [three more]", lines)
	}
	if lb.Len() != 0 {
		t.Fatalf("Len() after full drain = %d, want 0", lb.Len())
	}
}

func TestLineBufferArbitraryChunking(t *testing.T) {
	whole := []byte("first\r\nsecond\nthird\r\nfourth")

	var oneShot LineBuffer
	oneShot.Feed(whole)
	wantLines := oneShot.Lines()

	// Feed the same bytes in small, arbitrary chunks and confirm the same
	// lines come out, regardless of where the chunk boundaries fall.
	chunked := [][]byte{
		whole[:3], whole[3:9], whole[9:14], whole[14:20], whole[20:],
	}
	var lb LineBuffer
	var gotLines [][]byte
	for _, c := range chunked {
		lb.Feed(c)
		gotLines = append(gotLines, lb.Lines()...)
	}

	if len(gotLines) != len(wantLines) {
		t.Fatalf("got %d lines from chunked feed, want %d", len(gotLines), len(wantLines))
	}
	for i := range wantLines {
		if !bytes.Equal(gotLines[i], wantLines[i]) {
			t.Fatalf("line %d = %q, want %q", i, gotLines[i], wantLines[i])
		}
	}

	// Residual bytes plus emitted line+terminator bytes must sum to the
	// original length.
	var total int
	for _, l := range gotLines {
		total += len(l)
	}
	// Recompute how many terminator bytes were consumed by re-running the
	// regex over the original payload.
	idx := lineSepExp.FindAllIndex(whole, -1)
	var termBytes int
	for _, m := range idx {
		termBytes += m[1] - m[0]
	}
	if total+termBytes+lb.Len() != len(whole) {
		t.Fatalf("accounting mismatch: lines=%d term=%d residual=%d total=%d", total, termBytes, lb.Len(), len(whole))
	}
}

func TestDecodingLineBufferStrict(t *testing.T) {
	var d DecodingLineBuffer
	d.Feed([]byte("valid\r\n"))
	d.Feed([]byte{0xff, 0xfe, '\r', '\n'})

	lines := d.Lines()
	if len(lines) != 2 {
		t.Fatalf("Lines() returned %d entries, want 2", len(lines))
	}
	if lines[0].Err != nil || lines[0].Text != "valid" {
		t.Fatalf("first line = %+v, want {valid nil}", lines[0])
	}
	if lines[1].Err == nil {
		t.Fatal("second line should fail strict UTF-8 decoding")
	}
	if _, ok := lines[1].Err.(*DecodeFailedError); !ok {
		t.Fatalf("expected *DecodeFailedError, got %T", lines[1].Err)
	}
}

func TestLenientDecodingLineBufferNeverFails(t *testing.T) {
	var l LenientDecodingLineBuffer
	l.Feed([]byte{0xff, 0xfe, 'a', '\r', '\n'})

	lines := l.Lines()
	if len(lines) != 1 {
		t.Fatalf("Lines() returned %d lines, want 1", len(lines))
	}
	if lines[0] == "" {
		t.Fatal("lenient decode should never fail/return empty for non-empty input")
	}
}
