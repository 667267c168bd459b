// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package irc

import "strings"

// Pseudo commands synthesized by reclassify and dispatched through the same
// Caller as any other event. None of these appear on the wire; they exist
// only so handlers can register against the semantic shape of a message
// (channel vs. private, CTCP vs. plain text) instead of re-deriving it from
// PRIVMSG/NOTICE/MODE every time.
const (
	ALL_RAW_MESSAGES = "ALL_RAW_MESSAGES"
	PUBMSG           = "PUBMSG"
	PUBNOTICE        = "PUBNOTICE"
	PRIVNOTICE       = "PRIVNOTICE"
	UMODE            = "UMODE"
	CTCPEVT          = "CTCP"
	CTCPREPLY        = "CTCPREPLY"
	ACTION           = "ACTION"

	// DISCONNECT is emitted exactly once by ServerConn.connect when the
	// connection ends, whether the socket never dialed, was closed
	// deliberately, or errored out. It never appears on the wire.
	DISCONNECT = "DISCONNECT"
)

// reclassify emits the reclassified/derived events described for the
// receive path: every decoded line first gets an ALL_RAW_MESSAGES event
// carrying the untouched wire text, then PRIVMSG/NOTICE get rewritten to
// PUBMSG/PUBNOTICE/PRIVNOTICE depending on whether the target is a channel,
// MODE targeted at a nickname becomes UMODE, and CTCP payloads inside a
// PRIVMSG/NOTICE additionally fire CTCP/CTCPREPLY/ACTION.
func (c *ServerConn) reclassify(raw string, event *Event) {
	rawEvent := &Event{Command: ALL_RAW_MESSAGES, Trailing: raw}
	c.Handlers.exec(ALL_RAW_MESSAGES, c, rawEvent)

	switch event.Command {
	case PRIVMSG, NOTICE:
		if len(event.Params) != 1 {
			return
		}
		target := event.Params[0]

		// A body made up entirely of CTCP-tagged chunks (e.g. a lone
		// ACTION) should only surface as ctcp/ctcpreply/action, not also
		// as a pubmsg/pubnotice/privnotice carrying the raw, quoted
		// \x01...\x01 bytes as if they were a plain-text message.
		onlyCTCP := strings.IndexByte(event.Trailing, ctcpDelim) >= 0
		if onlyCTCP {
			for _, chunk := range splitCTCP(event.Trailing) {
				if !chunk.Tagged {
					onlyCTCP = false
					break
				}
			}
		}

		for _, ctcp := range decodeAllCTCP(event) {
			cmd := CTCPEVT
			if ctcp.Reply {
				cmd = CTCPREPLY
			}

			synthetic := &Event{
				Source:   event.Source,
				Command:  cmd,
				Params:   []string{target, ctcp.Command},
				Trailing: ctcp.Text,
			}
			c.Handlers.exec(cmd, c, synthetic)

			if cmd == CTCPEVT && ctcp.Command == CTCP_ACTION {
				c.Handlers.exec(ACTION, c, &Event{
					Source:   event.Source,
					Command:  ACTION,
					Params:   []string{target},
					Trailing: ctcp.Text,
				})
			}
		}

		if onlyCTCP {
			return
		}

		if IsValidChannel(target) {
			cmd := PUBMSG
			if event.Command == NOTICE {
				cmd = PUBNOTICE
			}
			c.Handlers.exec(cmd, c, &Event{Source: event.Source, Command: cmd, Params: []string{target}, Trailing: event.Trailing})
			return
		}

		if event.Command == NOTICE {
			c.Handlers.exec(PRIVNOTICE, c, &Event{Source: event.Source, Command: PRIVNOTICE, Params: []string{target}, Trailing: event.Trailing})
		}
	case MODE:
		if len(event.Params) > 0 && !IsValidChannel(event.Params[0]) {
			c.Handlers.exec(UMODE, c, &Event{Source: event.Source, Command: UMODE, Params: event.Params, Trailing: event.Trailing})
		}
	}
}
