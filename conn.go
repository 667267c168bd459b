// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package irc

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jaraco/irc/internal/ctxgroup"
)

// Config contains configuration options for a single ServerConn.
type Config struct {
	// Server is the hostname/IP of the server to connect to.
	Server string
	// Port is the remote port of the server to connect to.
	Port int
	// Nick is the nickname to use when registering.
	Nick string
	// User is the ident/username to use when registering.
	User string
	// Name is the realname sent during registration. Defaults to User.
	Name string
	// ServerPass is the server password (PASS), if any.
	ServerPass string
	// Bind, if set, is the local address to bind the outbound connection
	// to.
	Bind string

	// SSL enables a TLS-wrapped connection.
	SSL bool
	// TLSConfig, if set, overrides the default TLS configuration used
	// when SSL is enabled.
	TLSConfig *tls.Config

	// RequestCaps is the list of IRCv3 capabilities to request during
	// CAP negotiation, in addition to the ones this package always
	// requests (message-tags, server-time, echo-message).
	RequestCaps []string

	// Version is the CTCP VERSION/SOURCE reply string advertised by this
	// connection.
	Version string

	// AllowFlood disables the outbound rate limiter.
	AllowFlood bool
	// DisableTracking disables channel/user state tracking.
	DisableTracking bool

	// PingDelay is how often to send a keepalive PING. Zero disables the
	// keepalive loop entirely.
	PingDelay time.Duration
	// PingTimeout is how long to wait for a PONG before considering the
	// connection dead.
	PingTimeout time.Duration

	// Strict enables strict UTF-8 decoding of inbound lines: a line that
	// is not valid UTF-8 is logged and dropped instead of being leniently
	// decoded as Latin-1.
	Strict bool

	// RecoverFunc, if set, is called with diagnostic information whenever
	// a handler panics, instead of letting the panic propagate.
	RecoverFunc func(conn *ServerConn, err *HandlerError)
	// Out, if set, receives a human-readable transcript of every event.
	Out io.Writer
	// Debug, if set, receives a verbose protocol/dispatch debug log.
	Debug io.Writer
}

func (conf *Config) isValid() error {
	if conf.Server == "" {
		return fmt.Errorf("irc: config: Server must not be empty")
	}
	if conf.Nick == "" || !IsValidNick(conf.Nick) {
		return fmt.Errorf("irc: config: Nick %q is not a valid nickname", conf.Nick)
	}
	if conf.User == "" {
		return fmt.Errorf("irc: config: User must not be empty")
	}
	return nil
}

func (conf *Config) addr() string {
	return conf.Server + ":" + strconv.Itoa(conf.Port)
}

// requestCaps returns the full set of capabilities this connection will
// request, built-ins first, then any configured extras, de-duplicated.
func (conf *Config) requestCaps() []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(conf.RequestCaps)+3)
	for _, cap := range append([]string{"message-tags", "server-time", "echo-message"}, conf.RequestCaps...) {
		if seen[cap] {
			continue
		}
		seen[cap] = true
		out = append(out, cap)
	}
	return out
}

// ServerConn is a single registered connection to one IRC server: the
// socket, the protocol state machine (registration, CAP negotiation,
// PING/PONG keepalive), and the priority-ordered handler dispatch for
// events received on it.
type ServerConn struct {
	Config Config

	Cmd     *Commands
	Handlers *Caller
	CTCP    *CTCP

	Features *FeatureSet

	nick atomic.Value // string
	ident atomic.Value
	host  atomic.Value

	mu             sync.RWMutex
	sock           *socket
	dialer         Dialer
	tx             chan *Event
	stop           context.CancelFunc
	enabledCaps    map[string]bool
	connSince      time.Time
	realServerName string

	debug *log.Logger
}

// NewServerConn returns a ServerConn ready to Connect with the given
// configuration.
func NewServerConn(conf Config) *ServerConn {
	conn := &ServerConn{
		Config:      conf,
		Features:    newFeatureSet(),
		tx:          make(chan *Event, 32),
		enabledCaps: make(map[string]bool),
	}

	conn.nick.Store(conf.Nick)
	conn.ident.Store(conf.User)
	conn.host.Store("")

	if conf.Debug != nil {
		conn.debug = log.New(conf.Debug, "irc: ", log.LstdFlags)
	} else {
		conn.debug = log.New(io.Discard, "", 0)
	}

	conn.Cmd = &Commands{conn: conn}
	conn.Handlers = newCaller(conn, conn.debug)
	conn.CTCP = newCTCP()
	conn.CTCP.addDefaultHandlers()

	registerBuiltins(conn.Handlers)

	return conn
}

// GetNick returns the connection's current nickname.
func (c *ServerConn) GetNick() string { return c.nick.Load().(string) }

// GetIdent returns the connection's current ident/username.
func (c *ServerConn) GetIdent() string { return c.ident.Load().(string) }

// GetHost returns the connection's current hostname, as last observed
// from the server (may be empty until a JOIN/WHO echoes it back).
func (c *ServerConn) GetHost() string { return c.host.Load().(string) }

func (c *ServerConn) setNick(n string)  { c.nick.Store(n) }
func (c *ServerConn) setIdent(n string) { c.ident.Store(n) }
func (c *ServerConn) setHost(n string)  { c.host.Store(n) }

// GetServerName returns the server name as carried in the prefix of the
// first server-sourced event received (typically the RPL_WELCOME line),
// or "" before registration completes.
func (c *ServerConn) GetServerName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.realServerName
}

// HasCapability reports whether name was successfully negotiated with the
// server during CAP negotiation.
func (c *ServerConn) HasCapability(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabledCaps[name]
}

// IsConnected reports whether the socket is currently open.
func (c *ServerConn) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sock != nil && c.sock.connected
}

// ConnSince returns the time the connection was established. Zero if not
// currently connected.
func (c *ServerConn) ConnSince() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connSince
}

// Connect dials the configured server and blocks until the connection is
// closed, either by a protocol error, Quit, or Close. A nil return means
// Close was called deliberately.
func (c *ServerConn) Connect() error {
	return c.connect(nil, nil)
}

// DialerConnect is like Connect, but dials through a caller-supplied
// Dialer (for example a SOCKS proxy dialer).
func (c *ServerConn) DialerConnect(dialer Dialer) error {
	return c.connect(nil, dialer)
}

// MockConnect is like Connect, but uses an already-established net.Conn
// (e.g. one half of a net.Pipe()) instead of dialing out. Useful for
// tests.
func (c *ServerConn) MockConnect(mock net.Conn) error {
	return c.connect(newMockSocket(mock), nil)
}

func (c *ServerConn) connect(mockSock *socket, dialer Dialer) error {
	if err := c.Config.isValid(); err != nil {
		return err
	}

	c.mu.Lock()
	if c.sock != nil {
		c.mu.Unlock()
		panic("irc: ServerConn.Connect called while already connected")
	}

	var sock *socket
	var err error

	if mockSock != nil {
		sock = mockSock
	} else {
		sock, err = dial(dialer, c.Config.addr(), c.Config.Bind, c.Config.SSL, c.Config.TLSConfig, c.Config.Server)
		if err != nil {
			c.mu.Unlock()
			c.Handlers.exec(DISCONNECT, c, &Event{Command: DISCONNECT, Trailing: err.Error()})
			return err
		}
	}

	if c.Config.Strict {
		sock.setStrict()
	}

	c.sock = sock
	c.connSince = sock.connTime
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.stop = cancel
	c.mu.Unlock()

	group := ctxgroup.New(ctx)
	group.Go(c.readLoop)
	group.Go(c.sendLoop)
	group.Go(c.pingLoop)

	if c.Config.ServerPass != "" {
		c.write(&Event{Command: PASS, Params: []string{c.Config.ServerPass}, Sensitive: true})
	}

	c.write(&Event{Command: CAP, Params: []string{"LS", "302"}})

	c.write(&Event{Command: NICK, Params: []string{c.Config.Nick}})

	name := c.Config.Name
	if name == "" {
		name = c.Config.User
	}
	c.write(&Event{Command: USER, Params: []string{c.Config.User, "0", "*"}, Trailing: name})

	err = group.Wait()

	c.mu.Lock()
	if c.sock != nil {
		_ = c.sock.Close()
		c.sock = nil
	}
	c.mu.Unlock()

	reason := "closed"
	if err != nil {
		reason = err.Error()
	}
	c.Handlers.exec(DISCONNECT, c, &Event{Command: DISCONNECT, Trailing: reason})

	return err
}

// Close terminates the connection. It does not send QUIT; use Cmd.Quit
// first for a clean disconnect.
func (c *ServerConn) Close() error {
	c.mu.RLock()
	stop := c.stop
	c.mu.RUnlock()

	if stop != nil {
		stop()
	}
	return nil
}

func (c *ServerConn) readLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		c.mu.RLock()
		sock := c.sock
		c.mu.RUnlock()
		if sock == nil {
			return nil
		}

		dl := sock.readEvent(300 * time.Second)
		if dl.err != nil {
			switch dl.err.(type) {
			case *DecodeFailedError, *ProtocolViolationError:
				c.debug.Printf("dropping unparsable line: %s", dl.err)
				continue
			default:
				return dl.err
			}
		}

		event := dl.event

		if (event.Command == PRIVMSG || event.Command == NOTICE) && event.Source != nil {
			event.Echo = FoldEqual(event.Source.Name, c.GetNick())
		}

		if event.Source != nil && event.Source.IsServer() {
			c.mu.Lock()
			if c.realServerName == "" {
				c.realServerName = event.Source.Name
			}
			c.mu.Unlock()
		}

		c.dispatch(dl.raw, event)

		if event.Command == CAP {
			c.handleCAPLine(event)
		}
	}
}

// dispatch logs/pretty-prints and runs the priority-ordered handlers for
// event: first every handler registered against its literal Command, merged
// with the ALL_EVENTS handlers, then the reclassified events
// (all_raw_messages, pubmsg/pubnotice/privnotice, umode, ctcp/ctcpreply/
// action) described by the classify layer.
func (c *ServerConn) dispatch(raw string, event *Event) {
	prefix := "< "
	if event.Echo {
		prefix += "[echo] "
	}
	c.debug.Print(prefix + event.String())

	if c.Config.Out != nil {
		if pretty, ok := event.Pretty(); ok {
			fmt.Fprintln(c.Config.Out, pretty)
		}
	}

	c.Handlers.exec(event.Command, c, event)

	c.reclassify(raw, event)

	for _, ctcp := range decodeAllCTCP(event) {
		c.CTCP.call(ctcp, c)
	}
}

// Send queues event for delivery, splitting it into multiple events first
// if it would otherwise exceed the server's maximum line length, and
// applying the outbound rate limiter unless Config.AllowFlood is set.
func (c *ServerConn) Send(event *Event) {
	for _, e := range splitEvent(c, event) {
		c.sendOne(e)
	}
}

func (c *ServerConn) sendOne(event *Event) {
	var delay time.Duration

	if !c.Config.AllowFlood {
		c.mu.RLock()
		sock := c.sock
		c.mu.RUnlock()

		if sock == nil {
			return
		}

		delay = sock.rate(event.Len())
	}

	if delay > 0 {
		time.Sleep(delay)
	}

	c.write(event)
}

func (c *ServerConn) write(event *Event) {
	t := time.NewTimer(30 * time.Second)
	defer t.Stop()

	select {
	case c.tx <- event:
	case <-t.C:
		c.debug.Printf("dropped event, tx channel full: %s", event.Command)
	}
}

func (c *ServerConn) sendLoop(ctx context.Context) error {
	for {
		select {
		case event := <-c.tx:
			if event.Tags != nil && !c.HasCapability("message-tags") {
				event.Tags = nil
			}

			c.debug.Print("> " + event.String())

			c.mu.RLock()
			sock := c.sock
			c.mu.RUnlock()
			if sock == nil {
				return nil
			}

			sock.mu.Lock()
			sock.lastWrite = time.Now()
			if event.Command != "PING" && event.Command != "PONG" {
				sock.lastActive = sock.lastWrite
			}
			sock.mu.Unlock()

			err := sock.writeEvent(event)

			if event.Command == QUIT {
				_ = c.Close()
				return nil
			}

			if err != nil {
				return err
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// pingLoop drives the keepalive PING on a private Scheduler (spec's
// scheduler, not a bare ticker): ExecuteEvery fires the same check every
// PingDelay, which either sends the next PING or, if the previous one
// went unanswered past PingDelay+PingTimeout, reports a TimedOutError.
func (c *ServerConn) pingLoop(ctx context.Context) error {
	if c.Config.PingDelay <= 0 {
		return nil
	}

	c.mu.Lock()
	if c.sock != nil {
		c.sock.lastPing = time.Now()
		c.sock.lastPong = time.Now()
	}
	c.mu.Unlock()

	sched := NewScheduler()
	var stopOnce sync.Once
	stop := func() { stopOnce.Do(sched.Stop) }
	defer stop()

	started := time.Now()
	past := false
	pingSent := false

	result := make(chan error, 1)

	sched.ExecuteEvery(c.Config.PingDelay, func() {
		if !past {
			if time.Since(started) < 30*time.Second {
				return
			}
			past = true
		}

		c.mu.RLock()
		sock := c.sock
		c.mu.RUnlock()
		if sock == nil {
			stop()
			return
		}

		sock.mu.Lock()
		if pingSent && time.Since(sock.lastPong) > c.Config.PingDelay+c.Config.PingTimeout {
			lastPong, lastPing := sock.lastPong, sock.lastPing
			sock.mu.Unlock()

			select {
			case result <- &TimedOutError{
				TimeSinceSuccess: time.Since(lastPong),
				LastPong:         lastPong,
				LastPing:         lastPing,
				Delay:            c.Config.PingDelay,
			}:
			default:
			}
			stop()
			return
		}
		sock.lastPing = time.Now()
		sock.mu.Unlock()

		c.Cmd.Ping(strconv.FormatInt(time.Now().UnixNano(), 10))
		pingSent = true
	})

	go sched.Run()

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		stop()
		return nil
	}
}

// TimedOutError is returned when we attempt to ping the server, and timed
// out before receiving a PONG back.
type TimedOutError struct {
	TimeSinceSuccess time.Duration
	LastPong         time.Time
	LastPing         time.Time
	Delay            time.Duration
}

func (*TimedOutError) Error() string { return "timed out waiting for a requested PING response" }

// handleCAPLine folds IRCv3 CAP negotiation directly into connection
// registration: LS is answered with REQ for every capability this
// connection asked for that the server also advertises, and once the
// server ACKs or NAKs, CAP END completes registration.
func (c *ServerConn) handleCAPLine(event *Event) {
	if len(event.Params) < 2 {
		return
	}

	sub := event.Params[1]

	switch sub {
	case "LS":
		offered := strings.Fields(event.Last())
		offeredSet := make(map[string]bool, len(offered))
		for _, o := range offered {
			name, _, _ := strings.Cut(o, "=")
			offeredSet[name] = true
		}

		var want []string
		for _, name := range c.Config.requestCaps() {
			if offeredSet[name] {
				want = append(want, name)
			}
		}

		if len(want) == 0 {
			c.write(&Event{Command: CAP, Params: []string{"END"}})
			return
		}

		c.write(&Event{Command: CAP, Params: []string{"REQ"}, Trailing: strings.Join(want, " ")})
	case "ACK":
		c.mu.Lock()
		for _, name := range strings.Fields(event.Last()) {
			c.enabledCaps[name] = true
		}
		c.mu.Unlock()
		c.write(&Event{Command: CAP, Params: []string{"END"}})
	case "NAK":
		c.write(&Event{Command: CAP, Params: []string{"END"}})
	}
}
