// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package irc

import (
	"bufio"
	"crypto/tls"
	"net"
	"sync"
	"time"
)

// Messages are delimited with CR and LF line endings; we're using the
// last one to split the stream. Both are removed during parsing.
const delim byte = '\n'

var endline = []byte("\r\n")

// Dialer is an interface implementation of net.Dialer. Use this if you
// would like to implement your own dialer which the connection will use,
// e.g. to dial through a SOCKS proxy.
type Dialer interface {
	Dial(network, address string) (net.Conn, error)
}

// socket wraps a single TCP/TLS connection to an IRC server with buffered
// line-oriented I/O and activity/rate-limit bookkeeping.
type socket struct {
	io   *bufio.ReadWriter
	sock net.Conn

	mu sync.Mutex
	// lastWrite is the last time a line was written to the server.
	lastWrite time.Time
	// lastActive is the last time non-housekeeping traffic was written.
	lastActive time.Time
	// writeDelay accumulates the rate-limit debt described by rate().
	writeDelay time.Duration
	connected  bool
	connTime   time.Time
	lastPing   time.Time
	lastPong   time.Time

	// decoder buffers inbound bytes into complete lines and decodes each
	// as UTF-8, lenient (Latin-1 fallback) by default, strict if setStrict
	// is called.
	decoder lineDecoder
	queue   []decodedText
}

// decodedText is one buffered, decoded (or decode-failed) line, pending
// delivery from readEvent.
type decodedText struct {
	text string
	err  error
}

// lineDecoder adapts DecodingLineBuffer/LenientDecodingLineBuffer behind a
// single interface, so readEvent can switch between strict and lenient
// UTF-8 handling without duplicating the line-splitting logic.
type lineDecoder interface {
	Feed(b []byte)
	Drain() []decodedText
}

// strictLineDecoder fails a line outright (DecodeFailedError) if it is not
// valid UTF-8.
type strictLineDecoder struct {
	DecodingLineBuffer
}

func (d *strictLineDecoder) Drain() []decodedText {
	lines := d.Lines()
	out := make([]decodedText, len(lines))
	for i, l := range lines {
		out[i] = decodedText{text: l.Text, err: l.Err}
	}
	return out
}

// lenientLineDecoder falls back to Latin-1 for a line that is not valid
// UTF-8, and never fails.
type lenientLineDecoder struct {
	LenientDecodingLineBuffer
}

func (d *lenientLineDecoder) Drain() []decodedText {
	lines := d.Lines()
	out := make([]decodedText, len(lines))
	for i, l := range lines {
		out[i] = decodedText{text: l}
	}
	return out
}

// dial opens a new socket to addr using dialer (or a 5-second-timeout
// net.Dialer if dialer is nil), optionally wrapped in TLS.
func dial(dialer Dialer, addr string, bind string, useTLS bool, tlsConf *tls.Config, serverName string) (*socket, error) {
	var conn net.Conn
	var err error

	if dialer == nil {
		netDialer := &net.Dialer{Timeout: 5 * time.Second}

		if bind != "" {
			local, rerr := net.ResolveTCPAddr("tcp", bind+":0")
			if rerr != nil {
				return nil, rerr
			}
			netDialer.LocalAddr = local
		}

		dialer = netDialer
	}

	if conn, err = dialer.Dial("tcp", addr); err != nil {
		return nil, &ConnectFailedError{Server: addr, Err: err}
	}

	if useTLS {
		conn = tlsHandshake(conn, tlsConf, serverName)
	}

	s := &socket{
		sock:      conn,
		connTime:  time.Now(),
		connected: true,
		decoder:   &lenientLineDecoder{},
	}
	s.newReadWriter()

	return s, nil
}

func newMockSocket(conn net.Conn) *socket {
	s := &socket{
		sock:      conn,
		connTime:  time.Now(),
		connected: true,
		decoder:   &lenientLineDecoder{},
	}
	s.newReadWriter()
	return s
}

// setStrict switches the socket to strict UTF-8 line decoding. Must be
// called before any bytes are fed to the decoder, i.e. immediately after
// the socket is created and before the read loop starts.
func (s *socket) setStrict() {
	s.decoder = &strictLineDecoder{}
}

func (s *socket) newReadWriter() {
	s.io = bufio.NewReadWriter(bufio.NewReader(s.sock), bufio.NewWriter(s.sock))
}

func tlsHandshake(conn net.Conn, conf *tls.Config, server string) net.Conn {
	if conf == nil {
		conf = &tls.Config{ServerName: server}
	}
	return tls.Client(conn, conf)
}

// Close closes the underlying socket.
func (s *socket) Close() error {
	return s.sock.Close()
}

type decodedLine struct {
	raw   string
	event *Event
	err   error
}

// readEvent blocks until a single decoded line is available (buffering and
// decoding as many bytes off the wire as it takes) and parses it, applying
// the given read deadline to the underlying socket reads.
func (s *socket) readEvent(deadline time.Duration) decodedLine {
	_ = s.sock.SetReadDeadline(time.Now().Add(deadline))

	for len(s.queue) == 0 {
		buf := make([]byte, 4096)
		n, err := s.io.Read(buf)
		if n > 0 {
			s.decoder.Feed(buf[:n])
			s.queue = append(s.queue, s.decoder.Drain()...)
		}
		if err != nil {
			if len(s.queue) == 0 {
				return decodedLine{err: err}
			}
			break
		}
	}

	dt := s.queue[0]
	s.queue = s.queue[1:]

	if dt.err != nil {
		return decodedLine{raw: dt.text, err: dt.err}
	}

	event := ParseEvent(dt.text)
	if event == nil {
		return decodedLine{raw: dt.text, err: &ProtocolViolationError{Line: dt.text}}
	}

	return decodedLine{raw: dt.text, event: event}
}

// writeEvent writes a single event to the wire, followed by the CRLF
// terminator, flushing the underlying buffer.
func (s *socket) writeEvent(event *Event) error {
	if _, err := s.io.Write(event.Bytes()); err != nil {
		return err
	}
	if _, err := s.io.Write(endline); err != nil {
		return err
	}
	return s.io.Flush()
}

// rate limits events based on how frequently they are sent and how many
// characters each event has, returning how long the caller should wait
// before writing.
func (s *socket) rate(chars int) time.Duration {
	cost := time.Second + ((time.Duration(chars) * time.Second) / 100)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writeDelay += cost - time.Since(s.lastWrite); s.writeDelay < 0 {
		s.writeDelay = 0
	}

	if s.writeDelay > 8*time.Second {
		return cost
	}

	return 0
}
