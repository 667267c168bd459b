// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package irc

import (
	"bytes"
	"fmt"
	"strings"
)

const (
	eventSpace byte = 0x20 // Separator.
	maxLength       = 510  // Maximum length is 510 (2 for line endings).
)

// cutCRFunc is used to trim CR/LF characters from raw input.
func cutCRFunc(r rune) bool {
	return r == '\r' || r == '\n'
}

// Event represents a single parsed IRC protocol message, see RFC1459
// section 2.3.1:
//
//	<message>  :: [':' <prefix> <SPACE>] <command> <params> <crlf>
//	<prefix>   :: <servername> | <nick> ['!' <user>] ['@' <host>]
//	<command>  :: <letter>{<letter>} | <number> <number> <number>
//	<SPACE>    :: ' '{' '}
//	<params>   :: <SPACE> [':' <trailing> | <middle> <params>]
type Event struct {
	Source *Source // The source of the event, if any.
	Tags   Tags    // IRCv3 message tags.

	// Command is the IRC verb, e.g. JOIN, PRIVMSG, or the symbolic name of a
	// numeric reply (e.g. RPL_WELCOME), looked up via NumericToSymbol.
	Command string

	Params        []string // Positional arguments.
	Trailing      string   // Trailing (":"-prefixed) argument, if any.
	EmptyTrailing bool     // True if a trailing argument is present but empty.

	Sensitive bool // If true, the event should not be logged verbatim.
	Echo      bool // True if this is an echo-message of our own PRIVMSG/NOTICE.
}

// ParseEvent takes a raw protocol line (without the trailing CRLF, though a
// trailing CRLF is tolerated) and returns the parsed Event. Returns nil if
// the line cannot be parsed as an event at all.
func ParseEvent(raw string) (e *Event) {
	if raw = strings.TrimFunc(raw, cutCRFunc); len(raw) < 2 {
		return nil
	}

	i, j := 0, 0
	e = &Event{}

	if raw[0] == prefixTag {
		i = strings.IndexByte(raw, eventSpace)
		if i < 2 {
			return nil
		}

		e.Tags = ParseTags(raw[1:i])
		raw = raw[i+1:]

		if len(raw) < 2 {
			return nil
		}
	}

	if raw[0] == prefix {
		i = strings.IndexByte(raw, eventSpace)
		if i < 2 {
			return nil
		}

		e.Source = ParseSource(raw[1:i])
		i++
	}

	j = i + strings.IndexByte(raw[i:], eventSpace)

	if j < i {
		e.Command = canonicalizeCommand(raw[i:])
		return e
	}

	e.Command = canonicalizeCommand(raw[i:j])
	j++

	idx := bytes.Index([]byte(raw[j:]), []byte{eventSpace, prefix})
	if idx != -1 {
		idx++
	}

	if idx < 0 || raw[j+idx-1] != eventSpace {
		if len(raw[j:]) > 0 && raw[j] == prefix {
			e.Trailing = raw[j+1:]
			if len(e.Trailing) == 0 {
				e.EmptyTrailing = true
			}
			return e
		}
		e.Params = strings.Split(raw[j:], string(eventSpace))
		return e
	}

	idx = idx + j

	if idx > j {
		e.Params = strings.Split(raw[j:idx-1], string(eventSpace))
	}

	e.Trailing = raw[idx+1:]

	if len(e.Trailing) == 0 {
		e.EmptyTrailing = true
	}

	return e
}

// canonicalizeCommand uppercases a textual command and maps a bare numeric
// code through the numeric table to its symbolic name.
func canonicalizeCommand(raw string) string {
	if isNumeric(raw) {
		if symbol, ok := NumericToSymbol(raw); ok {
			return symbol
		}
	}

	return strings.ToUpper(raw)
}

// Len calculates the length of the string representation of the event.
func (e *Event) Len() (length int) {
	if e.Tags != nil {
		length = e.Tags.Len() + 1
	}
	if e.Source != nil {
		length += e.Source.Len() + 2
	}

	length += len(e.commandWire())

	if len(e.Params) > 0 {
		length += len(e.Params)
		for i := 0; i < len(e.Params); i++ {
			length += len(e.Params[i])
		}
	}

	if len(e.Trailing) > 0 || e.EmptyTrailing {
		length += len(e.Trailing) + 2
	}

	return
}

// commandWire returns the command as it should be written on the wire: the
// original numeric if Command was a symbolic numeric name, otherwise the
// command as-is.
func (e *Event) commandWire() string {
	if code, ok := SymbolToNumeric(e.Command); ok {
		return code
	}
	return e.Command
}

// Bytes returns a []byte representation of event, stripping all embedded
// newlines/carriage returns and truncating to the 512 byte IRC message
// limit (510 plus the trailing CRLF).
func (e *Event) Bytes() []byte {
	buffer := new(bytes.Buffer)

	if e.Tags != nil {
		e.Tags.writeTo(buffer)
	}

	if e.Source != nil {
		buffer.WriteByte(prefix)
		e.Source.writeTo(buffer)
		buffer.WriteByte(eventSpace)
	}

	buffer.WriteString(e.commandWire())

	if len(e.Params) > 0 {
		buffer.WriteByte(eventSpace)
		buffer.WriteString(strings.Join(e.Params, string(eventSpace)))
	}

	if len(e.Trailing) > 0 || e.EmptyTrailing {
		buffer.WriteByte(eventSpace)
		buffer.WriteByte(prefix)
		buffer.WriteString(e.Trailing)
	}

	if buffer.Len() > maxLength {
		if e.Tags != nil {
			buffer.Truncate(maxLength + maxTagLength + 1)
		} else {
			buffer.Truncate(maxLength)
		}
	}

	out := buffer.Bytes()

	for i := 0; i < len(out); i++ {
		if out[i] == 0x0A || out[i] == 0x0D {
			out = append(out[:i], out[i+1:]...)
			i--
		}
	}

	return out
}

// String returns a string representation of this event.
func (e *Event) String() string {
	return string(e.Bytes())
}

// Copy returns a deep-enough copy of the event (new Params/Tags slices/maps,
// Source is shared since it is treated as immutable once parsed).
func (e *Event) Copy() *Event {
	if e == nil {
		return nil
	}

	n := *e

	if e.Params != nil {
		n.Params = make([]string, len(e.Params))
		copy(n.Params, e.Params)
	}

	if e.Tags != nil {
		n.Tags = make(Tags, len(e.Tags))
		for k, v := range e.Tags {
			n.Tags[k] = v
		}
	}

	return &n
}

// Last returns the trailing argument if present, otherwise the final
// positional parameter, otherwise the empty string.
func (e *Event) Last() string {
	if len(e.Trailing) > 0 || e.EmptyTrailing {
		return e.Trailing
	}
	if len(e.Params) > 0 {
		return e.Params[len(e.Params)-1]
	}
	return ""
}

// Pretty returns a human-readable rendering of the event, useful for a
// console transcript. If the event doesn't support prettification, ok is
// false.
func (e *Event) Pretty() (out string, ok bool) {
	switch e.Command {
	case PRIVMSG, NOTICE:
		if len(e.Params) > 0 && e.Source != nil {
			return fmt.Sprintf("[%s] (%s) %s", strings.Join(e.Params, ","), e.Source.Name, e.Trailing), true
		}
	case JOIN:
		if e.Source != nil {
			return fmt.Sprintf("[*] %s has joined %s", e.Source.Name, strings.Join(e.Params, ", ")), true
		}
	case PART:
		if e.Source != nil {
			return fmt.Sprintf("[*] %s has left %s (%s)", e.Source.Name, strings.Join(e.Params, ", "), e.Trailing), true
		}
	case QUIT:
		if e.Source != nil {
			return fmt.Sprintf("[*] %s has quit (%s)", e.Source.Name, e.Trailing), true
		}
	case KICK:
		if len(e.Params) == 2 && e.Source != nil {
			return fmt.Sprintf("[%s] *** %s has kicked %s: %s", e.Params[0], e.Source.Name, e.Params[1], e.Trailing), true
		}
	case NICK:
		if len(e.Params) == 1 && e.Source != nil {
			return fmt.Sprintf("[*] %s is now known as %s", e.Source.Name, e.Params[0]), true
		}
	case TOPIC:
		if len(e.Params) > 0 && e.Source != nil {
			return fmt.Sprintf("[%s] *** %s has set the topic to: %s", e.Params[len(e.Params)-1], e.Source.Name, e.Trailing), true
		}
	case MODE:
		if len(e.Params) > 2 && e.Source != nil {
			return fmt.Sprintf("[%s] %s set modes: %s", e.Params[0], e.Source.Name, strings.Join(e.Params[1:], " ")), true
		}
	case ERROR:
		return "[*] an error occurred: " + e.Trailing, true
	}

	return "", false
}

// IsAction checks whether the event is a PRIVMSG CTCP ACTION (/me).
func (e *Event) IsAction() bool {
	if len(e.Trailing) <= 0 || e.Command != PRIVMSG {
		return false
	}

	if !strings.HasPrefix(e.Trailing, "\x01ACTION") || e.Trailing[len(e.Trailing)-1] != ctcpDelim {
		return false
	}

	return true
}

// StripAction returns the message text of a PRIVMSG ACTION, stripped of its
// CTCP envelope.
func (e *Event) StripAction() string {
	if !e.IsAction() || len(e.Trailing) < 9 {
		return e.Trailing
	}

	return e.Trailing[8 : len(e.Trailing)-1]
}

// IsFromChannel checks whether a PRIVMSG/NOTICE was sent to a channel
// (rather than directly to a user).
func (e *Event) IsFromChannel() bool {
	if len(e.Params) != 1 {
		return false
	}

	if (e.Command != PRIVMSG && e.Command != NOTICE) || !IsValidChannel(e.Params[0]) {
		return false
	}

	return true
}

// IsFromUser checks whether a PRIVMSG/NOTICE was sent directly to a user
// (rather than to a channel).
func (e *Event) IsFromUser() bool {
	if len(e.Params) != 1 {
		return false
	}

	if (e.Command != PRIVMSG && e.Command != NOTICE) || !IsValidNick(e.Params[0]) {
		return false
	}

	return true
}
