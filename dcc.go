// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package irc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DCC event commands dispatched to a DCCConn's own handler registry. These
// never cross the wire; they are synthesized the same way ALL_RAW_MESSAGES
// and friends are for ServerConn.
const (
	DCC_CONNECT    = "DCC_CONNECT"
	DCC_DISCONNECT = "DCC_DISCONNECT"
	DCCMSG         = "DCCMSG"
)

// maxDCCChunk is the read size per wake and the chat-mode buffering limit,
// matching the "16384 bytes" figure used throughout the protocol.
const maxDCCChunk = 16384

// DCCKind selects how a DCCConn frames inbound data: chat sessions are
// newline-delimited text, raw (file transfer) sessions are an untouched
// byte stream.
type DCCKind int

const (
	DCCChat DCCKind = iota
	DCCRaw
)

// DCCHandler responds to an event raised on a DCCConn.
type DCCHandler func(conn *DCCConn, event Event) HandlerResult

type dccRegisteredHandler struct {
	id       string
	priority int
	seq      uint64
	handler  DCCHandler
}

// DCCConn is a single DCC (Direct Client Connection): an out-of-band TCP
// session negotiated over CTCP DCC CHAT/SEND, used for direct chat or file
// transfer between two clients without routing through the server.
type DCCConn struct {
	Kind DCCKind

	mu        sync.RWMutex
	sock      net.Conn
	buf       LineBuffer
	connected bool
	peerAddr  string
	peerPort  int
	localPort int
	done      chan struct{}
	doneOnce  sync.Once

	handlers map[string][]*dccRegisteredHandler
	seq      uint64
}

func newDCCConn(kind DCCKind) *DCCConn {
	return &DCCConn{
		Kind:     kind,
		handlers: make(map[string][]*dccRegisteredHandler),
		done:     make(chan struct{}),
	}
}

// NewDCCConn returns a DCCConn ready to Connect or Listen.
func NewDCCConn(kind DCCKind) *DCCConn {
	return newDCCConn(kind)
}

// Done returns a channel closed once the session has disconnected (from
// either side). Useful for a caller that just wants to block until a
// single transfer or chat session finishes.
func (d *DCCConn) Done() <-chan struct{} {
	return d.done
}

// AddHandler registers fn for event (or ALL_EVENTS), run in ascending
// priority order. Returns an id usable with RemoveHandler.
func (d *DCCConn) AddHandler(event string, priority int, fn DCCHandler) (id string) {
	event = strings.ToUpper(event)

	d.mu.Lock()
	defer d.mu.Unlock()

	d.seq++
	id = fmt.Sprintf("%s:%d", event, d.seq)
	d.handlers[event] = append(d.handlers[event], &dccRegisteredHandler{id: id, priority: priority, seq: d.seq, handler: fn})
	return id
}

// RemoveHandler removes a handler previously registered with AddHandler.
func (d *DCCConn) RemoveHandler(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for cmd, list := range d.handlers {
		for i, h := range list {
			if h.id == id {
				d.handlers[cmd] = append(list[:i], list[i+1:]...)
				return
			}
		}
	}
}

func (d *DCCConn) dispatch(event *Event) {
	d.mu.RLock()
	merged := append([]*dccRegisteredHandler{}, d.handlers[ALL_EVENTS]...)
	merged = append(merged, d.handlers[event.Command]...)
	d.mu.RUnlock()

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].priority != merged[j].priority {
			return merged[i].priority < merged[j].priority
		}
		return merged[i].seq < merged[j].seq
	})

	for _, h := range merged {
		if h.handler(d, *event) == NoMore {
			return
		}
	}
}

// IsConnected reports whether the DCC socket is currently open.
func (d *DCCConn) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

// PeerAddr returns the remote peer's address and port, once connected.
func (d *DCCConn) PeerAddr() (addr string, port int) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.peerAddr, d.peerPort
}

// Connect actively dials a peer that sent (or will receive) a DCC request,
// e.g. the sender side of a DCC SEND, or either side of a DCC CHAT.
func (d *DCCConn) Connect(addr string, port int) error {
	target := net.JoinHostPort(addr, strconv.Itoa(port))

	conn, err := net.DialTimeout("tcp", target, 10*time.Second)
	if err != nil {
		return &DccConnectFailedError{Addr: target, Err: err}
	}

	d.mu.Lock()
	d.sock = conn
	d.connected = true
	d.peerAddr = addr
	d.peerPort = port
	d.mu.Unlock()

	d.dispatch(&Event{Command: DCC_CONNECT})
	go d.readLoop()

	return nil
}

// Listen passively binds an ephemeral local port and waits, in the
// background, for one inbound connection (the standard DCC "passive"
// negotiation: the offering side sends the listening port in its CTCP DCC
// request, and the peer connects to it). Returns the bound port to embed
// in that request.
func (d *DCCConn) Listen(bindAddr string) (port int, err error) {
	return d.ListenPort(bindAddr, 0)
}

// ListenPort is like Listen, but binds requestedPort instead of an
// ephemeral one (0 still means "any"). Useful for a fixed-port receiver
// whose address is shared with a peer out of band.
func (d *DCCConn) ListenPort(bindAddr string, requestedPort int) (port int, err error) {
	ln, err := net.Listen("tcp", net.JoinHostPort(bindAddr, strconv.Itoa(requestedPort)))
	if err != nil {
		return 0, &DccConnectFailedError{Addr: bindAddr, Err: err}
	}

	_, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ = strconv.Atoi(portStr)

	d.mu.Lock()
	d.localPort = port
	d.mu.Unlock()

	go func() {
		conn, acceptErr := ln.Accept()
		_ = ln.Close()
		if acceptErr != nil {
			d.dispatch(&Event{Command: DCC_DISCONNECT, Trailing: acceptErr.Error()})
			return
		}

		host, peerPortStr, _ := net.SplitHostPort(conn.RemoteAddr().String())
		peerPort, _ := strconv.Atoi(peerPortStr)

		d.mu.Lock()
		d.sock = conn
		d.connected = true
		d.peerAddr = host
		d.peerPort = peerPort
		d.mu.Unlock()

		d.dispatch(&Event{Command: DCC_CONNECT})
		d.readLoop()
	}()

	return port, nil
}

func (d *DCCConn) readLoop() {
	buf := make([]byte, maxDCCChunk)

	for {
		d.mu.RLock()
		sock := d.sock
		d.mu.RUnlock()
		if sock == nil {
			return
		}

		n, err := sock.Read(buf)
		if err != nil || n == 0 {
			d.disconnect(err)
			return
		}

		chunk := buf[:n]

		if d.Kind == DCCChat {
			d.buf.Feed(chunk)

			for _, line := range d.buf.Lines() {
				d.emitMsg(string(line))
			}

			if d.buf.Len() > maxDCCChunk {
				d.disconnect(errors.New("dcc: peer sent >16KiB without a newline"))
				return
			}

			continue
		}

		d.emitMsg(string(chunk))
	}
}

func (d *DCCConn) emitMsg(text string) {
	d.mu.RLock()
	addr := d.peerAddr
	d.mu.RUnlock()

	d.dispatch(&Event{Command: DCCMSG, Source: &Source{Name: addr}, Trailing: text})
}

func (d *DCCConn) disconnect(cause error) {
	d.mu.Lock()
	if d.sock != nil {
		_ = d.sock.Close()
		d.sock = nil
	}
	d.connected = false
	d.mu.Unlock()

	reason := ""
	if cause != nil {
		reason = cause.Error()
	}
	d.dispatch(&Event{Command: DCC_DISCONNECT, Trailing: reason})
	d.doneOnce.Do(func() { close(d.done) })
}

// Disconnect closes the connection from our side, with an optional
// message recorded in the resulting DCC_DISCONNECT event.
func (d *DCCConn) Disconnect(message string) {
	d.mu.RLock()
	connected := d.connected
	d.mu.RUnlock()
	if !connected {
		return
	}

	if message == "" {
		d.disconnect(nil)
		return
	}
	d.disconnect(errors.New(message))
}

// SendBytes writes b verbatim to the peer.
func (d *DCCConn) SendBytes(b []byte) error {
	d.mu.RLock()
	sock := d.sock
	d.mu.RUnlock()

	if sock == nil {
		return &NotConnectedError{}
	}

	if _, err := sock.Write(b); err != nil {
		d.disconnect(err)
		return err
	}
	return nil
}

// Privmsg sends text to the peer, newline-terminated in chat mode.
func (d *DCCConn) Privmsg(text string) error {
	if d.Kind == DCCChat {
		text += "\n"
	}
	return d.SendBytes([]byte(text))
}

// DCCRequest is a parsed CTCP DCC SEND/CHAT handshake payload.
type DCCRequest struct {
	Kind     string // "CHAT" or "SEND"
	Filename string
	Addr     net.IP
	Port     int
	Size     int64
}

func ip4ToUint32(ip net.IP) uint32 {
	ip4 := ip.To4()
	return binary.BigEndian.Uint32(ip4)
}

func uint32ToIP4(v uint32) net.IP {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return net.IP(b)
}

// EncodeDCCSendRequest builds the CTCP DCC SEND payload advertising filename
// at ip:port, size bytes long.
func EncodeDCCSendRequest(filename string, ip net.IP, port int, size int64) string {
	return fmt.Sprintf("DCC SEND %s %d %d %d", filename, ip4ToUint32(ip), port, size)
}

// EncodeDCCChatRequest builds the CTCP DCC CHAT payload advertising a chat
// session listening at ip:port.
func EncodeDCCChatRequest(ip net.IP, port int) string {
	return fmt.Sprintf("DCC CHAT chat %d %d", ip4ToUint32(ip), port)
}

// ParseDCCRequest parses the text of a CTCP DCC request (the portion after
// "DCC "), as carried in a CTCPEvent whose Command is CTCP_DCC.
func ParseDCCRequest(text string) (*DCCRequest, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil, &ProtocolViolationError{Line: text}
	}

	switch strings.ToUpper(fields[0]) {
	case "CHAT":
		if len(fields) < 4 {
			return nil, &ProtocolViolationError{Line: text}
		}
		ipN, err := strconv.ParseUint(fields[2], 10, 32)
		if err != nil {
			return nil, err
		}
		port, err := strconv.Atoi(fields[3])
		if err != nil {
			return nil, err
		}
		return &DCCRequest{Kind: "CHAT", Addr: uint32ToIP4(uint32(ipN)), Port: port}, nil
	case "SEND":
		if len(fields) < 5 {
			return nil, &ProtocolViolationError{Line: text}
		}
		ipN, err := strconv.ParseUint(fields[2], 10, 32)
		if err != nil {
			return nil, err
		}
		port, err := strconv.Atoi(fields[3])
		if err != nil {
			return nil, err
		}
		size, err := strconv.ParseInt(fields[4], 10, 64)
		if err != nil {
			return nil, err
		}
		return &DCCRequest{Kind: "SEND", Filename: fields[1], Addr: uint32ToIP4(uint32(ipN)), Port: port, Size: size}, nil
	default:
		return nil, &ProtocolViolationError{Line: text}
	}
}

// DCCFileReceiver is a DCCMSG handler that writes each received raw chunk
// to Out and acks it with the running byte count, per the DCC SEND
// handshake (the sender waits for an ack matching the file size before
// disconnecting).
type DCCFileReceiver struct {
	Out      io.Writer
	Received int64
}

// Handle implements the DCCHandler signature for use with DCCConn.AddHandler.
func (r *DCCFileReceiver) Handle(conn *DCCConn, event Event) HandlerResult {
	data := []byte(event.Trailing)
	n, err := r.Out.Write(data)
	if err != nil {
		return Continue
	}
	r.Received += int64(n)

	ack := make([]byte, 4)
	binary.BigEndian.PutUint32(ack, uint32(r.Received))
	_ = conn.SendBytes(ack)

	return Continue
}

// DCCSendFile streams size bytes from r to conn (a raw-mode DCCConn),
// waiting for the peer's 4-byte big-endian byte-count ack after each
// write before sending the next chunk, and returning once the peer has
// acked the full size.
func DCCSendFile(conn *DCCConn, r io.Reader, size int64) error {
	ackCh := make(chan int64, 8)
	id := conn.AddHandler(DCCMSG, 0, func(c *DCCConn, e Event) HandlerResult {
		b := []byte(e.Trailing)
		if len(b) == 4 {
			ackCh <- int64(binary.BigEndian.Uint32(b))
		}
		return Continue
	})
	defer conn.RemoveHandler(id)

	buf := make([]byte, 4096)
	var sent int64

	for sent < size {
		n, rerr := r.Read(buf)
		if n > 0 {
			if werr := conn.SendBytes(buf[:n]); werr != nil {
				return werr
			}
			sent += int64(n)

			for {
				select {
				case acked := <-ackCh:
					if acked >= sent {
						goto nextChunk
					}
				case <-time.After(30 * time.Second):
					return &DccConnectFailedError{Addr: conn.peerAddr, Err: errors.New("dcc send: ack timeout")}
				}
			}
		}
	nextChunk:
		if rerr != nil {
			break
		}
	}

	return nil
}
