// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package irc

import (
	"runtime"
	"strings"
	"sync"
	"time"
)

// ctcpDelim if the delimiter used for CTCP formatted events/messages.
const ctcpDelim byte = 0x01 // Prefix and suffix for CTCP messages.

const lowLevelQuoteByte byte = 0x10

// CTCPEvent is the necessary information from an IRC message.
type CTCPEvent struct {
	// Source is the author of the CTCP event.
	Source *Source
	// Command is the type of CTCP event. E.g. PING, TIME, VERSION.
	Command string
	// Text is the raw arguments following the command.
	Text string
	// Reply is true if the CTCP event is intended to be a reply to a
	// previous CTCP (e.g, if we sent one).
	Reply bool
}

// lowLevelQuote escapes NUL, NL, CR, and the low-level quote byte itself so
// that they may safely travel inside a line-oriented protocol message, per
// the CTCP low-level quoting rule.
func lowLevelQuote(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case 0x00:
			b.WriteByte(lowLevelQuoteByte)
			b.WriteByte('0')
		case '\n':
			b.WriteByte(lowLevelQuoteByte)
			b.WriteByte('n')
		case '\r':
			b.WriteByte(lowLevelQuoteByte)
			b.WriteByte('r')
		case lowLevelQuoteByte:
			b.WriteByte(lowLevelQuoteByte)
			b.WriteByte(lowLevelQuoteByte)
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// lowLevelDequote reverses lowLevelQuote. An orphaned quote byte not
// followed by a recognized escape character is dropped (its follower is
// passed through literally), matching the lenient behavior of most CTCP
// implementations.
func lowLevelDequote(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != lowLevelQuoteByte || i+1 >= len(s) {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case '0':
			b.WriteByte(0x00)
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case lowLevelQuoteByte:
			b.WriteByte(lowLevelQuoteByte)
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// ctcpChunk is one piece of a dequoted CTCP message: either plain text
// (Tagged == false) or the payload of a single DELIM...DELIM tagged block
// (Tagged == true).
type ctcpChunk struct {
	Text   string
	Tagged bool
}

// splitCTCP splits a message body (already low-level-dequoted) into
// alternating plain-text and tagged chunks on the 0x01 delimiter, following
// the parity rule: a lone trailing delimiter with no matching close is kept,
// together with everything after it, as part of the final plain-text chunk.
func splitCTCP(body string) []ctcpChunk {
	var chunks []ctcpChunk

	parts := strings.Split(body, string(ctcpDelim))
	if len(parts)%2 == 0 {
		last := len(parts) - 1
		parts[last-1] += string(ctcpDelim) + parts[last]
		parts = parts[:last]
	}
	for i, p := range parts {
		if p == "" && i != 0 && i != len(parts)-1 {
			continue
		}
		tagged := i%2 == 1
		if p == "" {
			continue
		}
		chunks = append(chunks, ctcpChunk{Text: p, Tagged: tagged})
	}

	return chunks
}

// decodeCTCP decodes the first CTCP tagged chunk found in an incoming
// PRIVMSG/NOTICE event. nil is returned if the event carries no CTCP.
func decodeCTCP(e *Event) *CTCPEvent {
	all := decodeAllCTCP(e)
	if len(all) == 0 {
		return nil
	}
	return all[0]
}

// decodeAllCTCP decodes every CTCP tagged chunk found in an incoming
// PRIVMSG/NOTICE event -- a single protocol line may legally carry more
// than one stacked CTCP query.
func decodeAllCTCP(e *Event) []*CTCPEvent {
	if len(e.Params) != 1 || len(e.Trailing) < 3 {
		return nil
	}

	if e.Command != PRIVMSG && e.Command != NOTICE {
		return nil
	}
	if !IsValidNick(e.Params[0]) && !IsValidChannel(e.Params[0]) {
		return nil
	}

	if strings.IndexByte(e.Trailing, ctcpDelim) < 0 {
		return nil
	}

	var out []*CTCPEvent
	for _, chunk := range splitCTCP(e.Trailing) {
		if !chunk.Tagged {
			continue
		}

		text := lowLevelDequote(chunk.Text)

		s := strings.IndexByte(text, eventSpace)
		if s < 0 {
			if !isValidCTCPTag(text) {
				continue
			}
			out = append(out, &CTCPEvent{
				Source:  e.Source,
				Command: text,
				Reply:   e.Command == NOTICE,
			})
			continue
		}

		if !isValidCTCPTag(text[:s]) {
			continue
		}

		out = append(out, &CTCPEvent{
			Source:  e.Source,
			Command: text[0:s],
			Text:    text[s+1:],
			Reply:   e.Command == NOTICE,
		})
	}

	return out
}

// isValidCTCPTag reports whether s consists solely of A-Z/0-9, the
// characters permitted in a CTCP tag.
func isValidCTCPTag(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if (s[i] < 0x41 || s[i] > 0x5A) && (s[i] < 0x30 || s[i] > 0x39) {
			return false
		}
	}
	return true
}

// encodeCTCP encodes a CTCP event into a string, including delimiters and
// low-level quoting.
func encodeCTCP(ctcp *CTCPEvent) (out string) {
	if ctcp == nil {
		return ""
	}

	return encodeCTCPRaw(ctcp.Command, ctcp.Text)
}

// encodeCTCPRaw is much like encodeCTCP, however accepts a raw command and
// string as input.
func encodeCTCPRaw(cmd, text string) (out string) {
	if len(cmd) <= 0 {
		return ""
	}

	body := cmd
	if len(text) > 0 {
		body += string(eventSpace) + text
	}

	return string(ctcpDelim) + lowLevelQuote(body) + string(ctcpDelim)
}

// CTCP handles the storage and execution of CTCP handlers against incoming
// CTCP events.
type CTCP struct {
	disableDefault bool
	// mu is the mutex that should be used when accessing callbacks.
	mu sync.RWMutex
	// handlers is a map of CTCP message -> functions.
	handlers map[string]CTCPHandler
}

// newCTCP returns a new clean CTCP handler.
func newCTCP() *CTCP {
	return &CTCP{handlers: map[string]CTCPHandler{}}
}

// call executes the necessary CTCP handler for the incoming event/CTCP
// command.
func (c *CTCP) call(event *CTCPEvent, conn *ServerConn) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	// Support wildcard CTCP event handling. Gets executed first before
	// regular event handlers.
	if _, ok := c.handlers["*"]; ok {
		c.handlers["*"](conn, *event)
	}

	if _, ok := c.handlers[event.Command]; !ok {
		return
	}

	c.handlers[event.Command](conn, *event)
}

// parseCMD parses a CTCP command/tag, ensuring it's valid. If not, an empty
// string is returned.
func (c *CTCP) parseCMD(cmd string) string {
	if cmd == "*" {
		return "*"
	}

	cmd = strings.ToUpper(cmd)
	if !isValidCTCPTag(cmd) {
		return ""
	}

	return cmd
}

// Set saves handler for execution upon a matching incoming CTCP event.
// Use SetBg if the handler may take an extended period of time to execute.
// If you would like to have a handler which will catch ALL CTCP requests,
// simply use "*" in place of the command.
func (c *CTCP) Set(cmd string, handler func(conn *ServerConn, ctcp CTCPEvent)) {
	if cmd = c.parseCMD(cmd); cmd == "" {
		return
	}

	c.mu.Lock()
	c.handlers[cmd] = CTCPHandler(handler)
	c.mu.Unlock()
}

// SetBg is much like Set, however the handler is executed in the background,
// ensuring that event handling isn't hung during long running tasks. See Set
// for more information.
func (c *CTCP) SetBg(cmd string, handler func(conn *ServerConn, ctcp CTCPEvent)) {
	c.Set(cmd, func(conn *ServerConn, ctcp CTCPEvent) {
		go handler(conn, ctcp)
	})
}

// Clear removes currently setup handler for cmd, if one is set. This will
// also disable default handlers for a specific cmd.
func (c *CTCP) Clear(cmd string) {
	if cmd = c.parseCMD(cmd); cmd == "" {
		return
	}

	c.mu.Lock()
	delete(c.handlers, cmd)
	c.mu.Unlock()
}

// ClearAll removes all currently setup handlers and re-registers the
// default handlers, unless disableDefault is set.
func (c *CTCP) ClearAll() {
	c.mu.Lock()
	c.handlers = map[string]CTCPHandler{}
	c.mu.Unlock()

	c.addDefaultHandlers()
}

// CTCPHandler is a type that represents the function necessary to
// implement a CTCP handler.
type CTCPHandler func(conn *ServerConn, ctcp CTCPEvent)

// addDefaultHandlers adds some useful default CTCP response handlers, unless
// requested not to.
func (c *CTCP) addDefaultHandlers() {
	if c.disableDefault {
		return
	}

	c.SetBg(CTCP_PING, handleCTCPPing)
	c.SetBg(CTCP_VERSION, handleCTCPVersion)
	c.SetBg(CTCP_SOURCE, handleCTCPSource)
	c.SetBg(CTCP_TIME, handleCTCPTime)
	c.SetBg(CTCP_CLIENTINFO, handleCTCPClientinfo)
}

// handleCTCPPing replies with a ping and whatever was originally requested.
func handleCTCPPing(conn *ServerConn, ctcp CTCPEvent) {
	if ctcp.Reply || ctcp.Source == nil {
		return
	}
	conn.Cmd.SendCTCPReply(ctcp.Source.Name, CTCP_PING, ctcp.Text)
}

// handleCTCPVersion replies with Config.Version if it is set, otherwise with
// the Go version, as well as the os type (darwin, linux, windows, etc) and
// architecture type (x86, arm, etc).
func handleCTCPVersion(conn *ServerConn, ctcp CTCPEvent) {
	if ctcp.Source == nil {
		return
	}
	if conn.Config.Version != "" {
		conn.Cmd.SendCTCPReply(ctcp.Source.Name, CTCP_VERSION, conn.Config.Version)
		return
	}
	conn.Cmd.SendCTCPReplyf(
		ctcp.Source.Name, CTCP_VERSION,
		"%s (%s, %s)", runtime.Version(), runtime.GOOS, runtime.GOARCH,
	)
}

// handleCTCPSource replies with the configured source location of this bot,
// if any.
func handleCTCPSource(conn *ServerConn, ctcp CTCPEvent) {
	if ctcp.Source == nil {
		return
	}
	conn.Cmd.SendCTCPReply(ctcp.Source.Name, CTCP_SOURCE, conn.Config.Version)
}

// handleCTCPTime replies with a RFC 1123 (Z) formatted version of Go's
// local time.
func handleCTCPTime(conn *ServerConn, ctcp CTCPEvent) {
	if ctcp.Source == nil {
		return
	}
	conn.Cmd.SendCTCPReply(ctcp.Source.Name, CTCP_TIME, time.Now().Format(time.RFC1123Z))
}

// handleCTCPClientinfo replies with the list of CTCP tags this connection
// currently has handlers registered for.
func handleCTCPClientinfo(conn *ServerConn, ctcp CTCPEvent) {
	if ctcp.Source == nil {
		return
	}

	conn.CTCP.mu.RLock()
	tags := make([]string, 0, len(conn.CTCP.handlers))
	for tag := range conn.CTCP.handlers {
		if tag == "*" {
			continue
		}
		tags = append(tags, tag)
	}
	conn.CTCP.mu.RUnlock()

	conn.Cmd.SendCTCPReply(ctcp.Source.Name, CTCP_CLIENTINFO, strings.Join(tags, " "))
}
