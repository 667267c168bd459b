// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package irc

import (
	"math"
	"math/rand"
	"reflect"
	"strings"
	"sync"
	"time"
)

// ServerSpec is one entry in a Bot's cyclic server list: a host/port pair
// and an optional password, tried in order and wrapped back to the start
// after the last one fails.
type ServerSpec struct {
	Host     string
	Port     int
	Password string
}

// ExponentialBackoff computes the delay before reconnect attempt k (1 for
// the first retry, 2 for the second, and so on): clamp(floor((2^k-1) *
// U[0,1)), MinInterval, MaxInterval). MinInterval is a hard floor (even
// attempt 1, with 2^1-1=1, can round down to 0), MaxInterval caps runaway
// growth from repeated failures.
type ExponentialBackoff struct {
	MinInterval time.Duration
	MaxInterval time.Duration

	// Rand supplies the uniform [0,1) jitter sample. Defaults to
	// math/rand's package-level source if nil.
	Rand func() float64
}

// NewExponentialBackoff returns a backoff policy with the spec's default
// 60s/300s bounds.
func NewExponentialBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{MinInterval: 60 * time.Second, MaxInterval: 300 * time.Second}
}

func (b *ExponentialBackoff) jitter() float64 {
	if b.Rand != nil {
		return b.Rand()
	}
	return rand.Float64()
}

// Delay returns the backoff interval for attempt k (k >= 1).
func (b *ExponentialBackoff) Delay(k int) time.Duration {
	x := math.Pow(2, float64(k)) - 1
	d := time.Duration(math.Floor(x*b.jitter())) * time.Second

	if d < b.MinInterval {
		return b.MinInterval
	}
	if d > b.MaxInterval {
		return b.MaxInterval
	}
	return d
}

// BotHandler is a convenience handler signature matching the reflective
// on_<Event> dispatch Bot offers in addition to its explicit registry.
type BotHandler func(bot *Bot, event Event) HandlerResult

// Bot wraps a single ServerConn with the conveniences a single-network
// client typically wants: a cyclic server list with exponential-backoff
// reconnect, channel membership tracking, and an auto-rejoin list. It
// layers two dispatch mechanisms on top of the underlying ServerConn's
// explicit Caller: RegisterHandler (the primary, explicit path) and
// reflective on_<Event> methods on a user-supplied value (opt-in
// convenience, looked up by name for every event, never the only path).
type Bot struct {
	Servers  []ServerSpec
	Nick     string
	User     string
	Name     string
	Channels []string

	Backoff *ExponentialBackoff

	Tracker *ChannelTracker

	mu         sync.Mutex
	serverIdx  int
	conn       *ServerConn
	reactor    *Reactor
	stop       chan struct{}
	attempt    int
	reflective any
	baseConfig Config

	schedOnce sync.Once

	pendingReconnect scheduledHandle
	hasPending       bool
}

// NewBot returns a Bot ready to Run. conf supplies every Config field
// except Server/Port/ServerPass, which come from servers instead (the
// cyclic server list).
func NewBot(servers []ServerSpec, conf Config) *Bot {
	return &Bot{
		Servers:    servers,
		Nick:       conf.Nick,
		User:       conf.User,
		Name:       conf.Name,
		Backoff:    NewExponentialBackoff(),
		Tracker:    NewChannelTracker(),
		reactor:    NewReactor(),
		stop:       make(chan struct{}),
		baseConfig: conf,
	}
}

// SetReflectiveHandler registers v as the target for reflective dispatch:
// for every event, if v has a method named "On" + the titlecased event
// (e.g. OnPrivmsg, OnJoin, OnPubmsg), it is called with (conn, event). The
// lookup runs as an ALL_EVENTS handler at DefaultPriority, so it is ordered
// with the explicit handlers by priority and then by registration order.
func (bot *Bot) SetReflectiveHandler(v any) {
	bot.mu.Lock()
	defer bot.mu.Unlock()
	bot.reflective = v
}

// RegisterHandler registers fn for event against the bot's connection at
// DefaultPriority, the explicit (and primary) dispatch path.
func (bot *Bot) RegisterHandler(event string, fn func(conn *ServerConn, event Event) HandlerResult) {
	bot.reactor.AddGlobalHandler(event, fn)
}

// Conn returns the bot's current ServerConn, or nil before the first
// connection attempt.
func (bot *Bot) Conn() *ServerConn {
	bot.mu.Lock()
	defer bot.mu.Unlock()
	return bot.conn
}

func (bot *Bot) nextServer() ServerSpec {
	bot.mu.Lock()
	defer bot.mu.Unlock()
	spec := bot.Servers[bot.serverIdx%len(bot.Servers)]
	bot.serverIdx++
	return spec
}

// Run connects to the first server in the list and blocks, reconnecting
// through the cyclic server list with exponential backoff on every
// disconnect, until Stop is called. Reconnects are driven entirely by the
// reactor's Scheduler (see scheduleReconnect), not a bare timer: a
// disconnect schedules a single ExecuteAfter check, cancelling any check
// already pending, so the scheduler queue never holds more than one
// reconnect attempt regardless of how many disconnects arrive in a row.
func (bot *Bot) Run() error {
	bot.schedOnce.Do(func() {
		go bot.reactor.Scheduler().Run()
	})

	bot.Tracker.SetReconnectHook(bot.scheduleReconnect)

	bot.connectOnce()

	<-bot.stop
	return nil
}

// connectOnce builds the next cyclic server's Config, attaches the channel
// tracker and welcome/reflective handlers, and starts the connection in
// its own goroutine. It is the Bot's initial connect (from Run) and the
// callback a scheduled reconnect eventually invokes.
func (bot *Bot) connectOnce() {
	select {
	case <-bot.stop:
		return
	default:
	}

	bot.mu.Lock()
	bot.hasPending = false
	bot.mu.Unlock()

	spec := bot.nextServer()

	conf := bot.baseConfig
	conf.Server = spec.Host
	conf.Port = spec.Port
	conf.ServerPass = spec.Password
	conf.Nick = bot.Nick
	conf.User = bot.User
	conf.Name = bot.Name

	conn := bot.reactor.Server(conf)
	bot.Tracker.Attach(conn)
	conn.Handlers.register(true, false, -21, "RPL_WELCOME", HandlerFunc(bot.onWelcome))
	conn.Handlers.register(false, false, DefaultPriority, ALL_EVENTS, HandlerFunc(bot.dispatchReflective))

	bot.mu.Lock()
	bot.conn = conn
	bot.mu.Unlock()

	go conn.Connect()
}

// scheduleReconnect is installed as the ChannelTracker's reconnect hook: it
// runs once per disconnect, after the tracker has already cleared its
// channel state. Any previously scheduled reconnect is cancelled before a
// new one is scheduled, so the scheduler queue holds at most one pending
// reconnect at any time.
func (bot *Bot) scheduleReconnect() {
	select {
	case <-bot.stop:
		return
	default:
	}

	bot.mu.Lock()
	if bot.hasPending {
		bot.pendingReconnect.Cancel()
	}
	bot.attempt++
	k := bot.attempt
	bot.mu.Unlock()

	delay := bot.Backoff.Delay(k)

	bot.mu.Lock()
	bot.pendingReconnect = bot.reactor.Scheduler().ExecuteAfter(delay, bot.connectOnce)
	bot.hasPending = true
	bot.mu.Unlock()
}

// onWelcome joins the bot's configured channel set once registration
// completes, and resets the backoff attempt counter: a connection that
// reaches RPL_WELCOME is "successful" regardless of how soon it later
// drops.
func (bot *Bot) onWelcome(conn *ServerConn, event Event) HandlerResult {
	bot.mu.Lock()
	bot.attempt = 0
	bot.mu.Unlock()

	if len(bot.Channels) > 0 {
		_ = conn.Cmd.Join(bot.Channels...)
	}
	return Continue
}

// dispatchReflective looks up an On<Event> method (PascalCase, e.g.
// OnPrivmsg for a PRIVMSG event) on the registered reflective target and
// invokes it if present. This is strictly additive to RegisterHandler;
// a Bot with no reflective target set is unaffected.
func (bot *Bot) dispatchReflective(conn *ServerConn, event Event) HandlerResult {
	bot.mu.Lock()
	target := bot.reflective
	bot.mu.Unlock()

	if target == nil {
		return Continue
	}

	name := "On" + titleCase(event.Command)
	method := reflect.ValueOf(target).MethodByName(name)
	if !method.IsValid() {
		return Continue
	}

	fn, ok := method.Interface().(func(*ServerConn, Event) HandlerResult)
	if !ok {
		if asVoid, ok := method.Interface().(func(*ServerConn, Event)); ok {
			asVoid(conn, event)
		}
		return Continue
	}

	return fn(conn, event)
}

func titleCase(s string) string {
	s = strings.ToLower(s)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Stop disconnects the current connection (if any) with message, cancels
// any pending scheduled reconnect, and halts the reconnect loop.
func (bot *Bot) Stop(message string) {
	bot.mu.Lock()
	conn := bot.conn
	if bot.hasPending {
		bot.pendingReconnect.Cancel()
		bot.hasPending = false
	}
	bot.mu.Unlock()

	close(bot.stop)

	if conn != nil && conn.IsConnected() {
		_ = conn.Cmd.Quit(message)
	}

	bot.reactor.Scheduler().Stop()
}
