// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package irc

import (
	"strings"

	"github.com/araddon/dateparse"
)

// registerBuiltins installs the handlers every ServerConn needs regardless
// of what the caller registers: keepalive PING replies, nickname
// registration/collision handling, and ISUPPORT/welcome bookkeeping. These
// all run at a lower (more negative) priority than DefaultPriority, so user
// handlers observe already-updated connection state.
func registerBuiltins(c *Caller) {
	c.register(true, false, -42, PING, HandlerFunc(handlePING))
	c.register(true, false, -42, "RPL_WELCOME", HandlerFunc(handleWelcome))
	c.register(true, false, -42, "ERR_NICKNAMEINUSE", HandlerFunc(handleNickInUse))
	c.register(true, false, -42, "RPL_ISUPPORT", HandlerFunc(handleISUPPORT))
	c.register(true, false, -42, "RPL_CREATED", HandlerFunc(handleCreated))
	c.register(true, false, -42, NICK, HandlerFunc(handleNICK))
}

// handlePING answers the server's keepalive PING with a matching PONG.
func handlePING(conn *ServerConn, event Event) HandlerResult {
	_ = conn.Cmd.Pong(event.Last())
	return Continue
}

// handleWelcome records the nickname the server actually assigned us
// (which may differ from the one requested, e.g. after collision
// resolution) once registration completes.
func handleWelcome(conn *ServerConn, event Event) HandlerResult {
	if len(event.Params) > 0 {
		conn.setNick(event.Params[0])
	}
	return Continue
}

// handleNickInUse appends an underscore to the requested nickname and
// retries, the simplest collision-resolution strategy and the one RFC 1459
// clients have used since the beginning.
func handleNickInUse(conn *ServerConn, event Event) HandlerResult {
	var attempted string
	if len(event.Params) > 1 {
		attempted = event.Params[1]
	} else {
		attempted = conn.GetNick()
	}

	_ = conn.Cmd.Nick(attempted + "_")
	return Continue
}

// handleISUPPORT folds a RPL_ISUPPORT line's parameters into the
// connection's FeatureSet.
func handleISUPPORT(conn *ServerConn, event Event) HandlerResult {
	if len(event.Params) < 2 {
		return Continue
	}
	// Params[0] is our own nickname; the remainder are ISUPPORT tokens
	// (the trailing ":are supported by this server" comment is not a
	// parameter, it is the trailing argument, already excluded).
	conn.Features.Apply(event.Params[1:])
	return Continue
}

// handleCreated parses the server's RPL_CREATED human-readable creation
// timestamp and logs it at debug level; the format varies enough between
// ircds that a lenient parser is the only practical approach.
func handleCreated(conn *ServerConn, event Event) HandlerResult {
	text := event.Last()
	idx := strings.Index(text, "on ")
	if idx >= 0 {
		text = text[idx+3:]
	}

	if t, err := dateparse.ParseAny(text); err == nil {
		conn.debug.Printf("server reports creation time %s", t)
	}

	return Continue
}

// handleNICK keeps the connection's own nickname current when the server
// confirms a nick change we asked for (or renames us involuntarily, e.g.
// for a services-enforced collision).
func handleNICK(conn *ServerConn, event Event) HandlerResult {
	if event.Source == nil || len(event.Params) != 1 {
		return Continue
	}

	if FoldEqual(event.Source.Name, conn.GetNick()) {
		conn.setNick(event.Params[0])
	}

	return Continue
}
