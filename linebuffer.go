// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package irc

import (
	"regexp"
	"unicode/utf8"
)

var lineSepExp = regexp.MustCompile(`\r?\n`)

// LineBuffer accumulates bytes fed to it and yields complete, terminator-
// stripped lines. The terminator recognized is the regular expression
// \r?\n. Bytes following the last terminator remain buffered until more
// input arrives or Lines is called again.
type LineBuffer struct {
	buf []byte
}

// Feed appends b to the buffer.
func (l *LineBuffer) Feed(b []byte) {
	l.buf = append(l.buf, b...)
}

// Len returns the number of currently buffered bytes, including complete
// lines that Lines has not drained yet.
func (l *LineBuffer) Len() int {
	return len(l.buf)
}

// Lines drains and returns every complete line currently buffered, leaving
// any trailing unterminated fragment in place.
func (l *LineBuffer) Lines() [][]byte {
	idx := lineSepExp.FindAllIndex(l.buf, -1)
	if len(idx) == 0 {
		return nil
	}

	lines := make([][]byte, 0, len(idx))
	start := 0
	for _, m := range idx {
		lines = append(lines, l.buf[start:m[0]])
		start = m[1]
	}
	l.buf = l.buf[start:]

	return lines
}

// DecodingLineBuffer is a LineBuffer that decodes each line as UTF-8,
// failing strictly: a line that is not valid UTF-8 yields a DecodeFailedError
// instead of a string.
type DecodingLineBuffer struct {
	LineBuffer
}

// DecodedLine is one decoded line, or the error encountered decoding it.
type DecodedLine struct {
	Text string
	Err  error
}

// Lines drains buffered lines, attempting strict UTF-8 decoding of each.
func (d *DecodingLineBuffer) Lines() []DecodedLine {
	raw := d.LineBuffer.Lines()
	out := make([]DecodedLine, 0, len(raw))
	for _, line := range raw {
		if !utf8.Valid(line) {
			out = append(out, DecodedLine{Err: &DecodeFailedError{Line: string(line)}})
			continue
		}
		out = append(out, DecodedLine{Text: string(line)})
	}
	return out
}

// LenientDecodingLineBuffer is a LineBuffer that decodes each line as UTF-8,
// falling back to Latin-1 (ISO-8859-1, which never fails since every byte
// value maps to a codepoint) if strict UTF-8 decoding fails.
type LenientDecodingLineBuffer struct {
	LineBuffer
}

// Lines drains buffered lines, decoding each leniently.
func (l *LenientDecodingLineBuffer) Lines() []string {
	raw := l.LineBuffer.Lines()
	out := make([]string, 0, len(raw))
	for _, line := range raw {
		if utf8.Valid(line) {
			out = append(out, string(line))
			continue
		}
		out = append(out, latin1ToUTF8(line))
	}
	return out
}

// latin1ToUTF8 decodes bytes as ISO-8859-1 (Latin-1), where each byte value
// maps directly to the Unicode codepoint of the same value.
func latin1ToUTF8(b []byte) string {
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}
