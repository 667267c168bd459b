// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package irc

import (
	"bytes"
	"unicode/utf8"
)

// splitFunc is the type used for functions implementing splitting of
// too long IRC messages. The function is passed an event which must be
// split into multiple and an event length which shall not be exceeded.
type splitFunc func(event *Event, maxLen int) []*Event

var splitFuncs = map[string]splitFunc{
	PRIVMSG: splitPRIVMSG,
	NOTICE:  splitPRIVMSG,
}

// maxPrefixLen returns the maximum possible length of a server message
// prefix as defined by the following ABNF in RFC 2812:
//
//	[ ":" ( servername / ( nickname [ [ "!" user ] "@" host ] ) ) SPACE ]
func maxPrefixLen(conn *ServerConn) int {
	// Default values taken from https://modern.ircdocs.horse/
	// Most of these are not actually standardized.
	nicklen := conn.Features.GetInt("NICKLEN", 10)
	userlen := conn.Features.GetInt("USERLEN", 18)
	hostlen := conn.Features.GetInt("HOSTLEN", 63)

	// The code here assumes that `servername` is never used in a
	// prefix as this function is only concerned with messages sent
	// by our own client. In accordance with the ABNF from above,
	// the maximum length is therefore calculated as:
	//
	//   ":" <nickname> "!" <user> "@" <host> " "
	return 1 + nicklen + 1 + userlen + 1 + hostlen + 1
}

func splitPRIVMSG(event *Event, maxLen int) (events []*Event) {
	newMsg := func(text []byte) *Event {
		e := event.Copy()
		e.Trailing = string(text)
		e.EmptyTrailing = len(text) == 0
		return e
	}

	// Event used to calculate base length of command, this does not
	// include the event source and the trailing parameter.
	rawEvent := event.Copy()
	rawEvent.Trailing = ""
	rawEvent.EmptyTrailing = false

	// maxTextLen must not be exceeded by the trailing parameter of the
	// PRIVMSG. Also include " :" for formatting this last parameter.
	maxTextLen := maxLen - rawEvent.Len() - len(" :")
	if maxTextLen <= 0 {
		return []*Event{event} // TODO: too long without any text
	}

	b := []byte(event.Last())
	for len(b) > maxTextLen {
		idx := bytes.LastIndexByte(b[:maxTextLen], byte(' '))
		if idx > 0 {
			// maxTextLen is inclusive → include separator
			idx++
		} else {
			// maxTextLen is inclusive → include extra byte
			idx = bytes.LastIndexFunc(b[:maxTextLen+1], utf8.ValidRune)
		}

		events = append(events, newMsg(b[:idx]))
		b = b[idx:]
	}
	events = append(events, newMsg(b))

	return events
}

// splitEvent splits a given event into multiple events to satisfy the
// maximum message length requirements imposed upon the given connection by
// the associated IRC server.
func splitEvent(conn *ServerConn, event *Event) []*Event {
	// From RFC 2812:
	//   IRC messages are always lines of characters terminated with a CR-LF
	//   (Carriage Return - Line Feed) pair, and these messages SHALL NOT
	//   exceed 512 characters in length, counting all characters including
	//   the trailing CR-LF.
	const maxIRClen int = 512 - len("\r\n")

	// We cannot calculate the length of the source part actually
	// used by the server. Assume the largest possible value and
	// make sure source is unset for the event to ensure it is not
	// taken into account by event.Len().
	event = event.Copy()
	event.Source = nil

	maxLen := maxIRClen - maxPrefixLen(conn)
	if event.Len() > maxLen {
		fn, ok := splitFuncs[event.Command]
		if ok {
			return fn(event, maxLen)
		}
	}

	return []*Event{event}
}
