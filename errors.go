// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package irc

import "fmt"

// InvalidCharactersError describes outbound text that contains characters
// that cannot be framed as a single IRC line (a bare LF). The ServerConn
// send path does not return it: Event.Bytes removes CR and LF instead.
type InvalidCharactersError struct {
	Command string
}

func (e *InvalidCharactersError) Error() string {
	return fmt.Sprintf("invalid characters in %s: contains a bare newline", e.Command)
}

// MessageTooLongError describes an outbound event that, once framed, would
// exceed the 512 byte IRC message limit. The ServerConn send path does not
// return it: Send splits an over-long PRIVMSG/NOTICE into several events,
// and Event.Bytes truncates any other line to 510 bytes.
type MessageTooLongError struct {
	Command string
	Length  int
}

func (e *MessageTooLongError) Error() string {
	return fmt.Sprintf("%s message too long: %d bytes exceeds the 512 byte limit", e.Command, e.Length)
}

// NotConnectedError is returned when a send is attempted on a connection
// that has no active socket.
type NotConnectedError struct{}

func (e *NotConnectedError) Error() string { return "not connected to a server" }

// ConnectFailedError wraps the underlying error from a failed socket dial,
// bind, or TLS handshake.
type ConnectFailedError struct {
	Server string
	Err    error
}

func (e *ConnectFailedError) Error() string {
	return fmt.Sprintf("unable to connect to %s: %s", e.Server, e.Err)
}

func (e *ConnectFailedError) Unwrap() error { return e.Err }

// DccConnectFailedError wraps the underlying error from a failed DCC socket
// dial, bind, or accept.
type DccConnectFailedError struct {
	Addr string
	Err  error
}

func (e *DccConnectFailedError) Error() string {
	return fmt.Sprintf("dcc connection to %s failed: %s", e.Addr, e.Err)
}

func (e *DccConnectFailedError) Unwrap() error { return e.Err }

// DecodeFailedError is returned when an inbound line fails strict decoding.
type DecodeFailedError struct {
	Line string
	Err  error
}

func (e *DecodeFailedError) Error() string {
	return fmt.Sprintf("unable to decode line %q: %s", e.Line, e.Err)
}

func (e *DecodeFailedError) Unwrap() error { return e.Err }

// ProtocolViolationError is returned when a line could not be split into a
// well-formed message by the parser.
type ProtocolViolationError struct {
	Line string
}

func (e *ProtocolViolationError) Error() string {
	return "protocol violation: unable to parse line: " + e.Line
}

// ErrInvalidTarget is returned when a command is given an invalid nickname,
// channel, or other target.
type ErrInvalidTarget struct {
	Target string
}

func (e *ErrInvalidTarget) Error() string { return "invalid target: " + e.Target }
