// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package irc

import (
	"fmt"
	"log"
	"runtime"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"
)

// HandlerResult is returned by a Handler to control whether dispatch
// continues to lower-priority handlers registered for the same event.
type HandlerResult int

const (
	// Continue allows dispatch to proceed to the next handler in priority
	// order. This is the zero value, so handlers that return nothing
	// (via a bare HandlerFunc signature) continue by default.
	Continue HandlerResult = iota
	// NoMore halts further dispatch of the current event to any handler
	// of lower priority (a higher Priority number).
	NoMore
)

// ALL_EVENTS is a magic command name: handlers registered against it
// receive every event, regardless of Command.
const ALL_EVENTS = "*"

// DefaultPriority is the priority assigned to a handler registered through
// Add/AddHandler when no explicit priority is requested. Built-in protocol
// handlers (PING/PONG keepalive, channel tracking) run at lower (more
// negative) priorities so they observe events before user code.
const DefaultPriority = 0

// Handler is the lower level interface implemented by anything that can
// respond to an event. See Caller.AddHandler.
type Handler interface {
	Execute(conn *ServerConn, event Event) HandlerResult
}

// HandlerFunc is a function implementing Handler.
type HandlerFunc func(conn *ServerConn, event Event) HandlerResult

// Execute calls f.
func (f HandlerFunc) Execute(conn *ServerConn, event Event) HandlerResult {
	return f(conn, event)
}

// registeredHandler is one entry in a Caller's dispatch list.
type registeredHandler struct {
	id       string
	priority int
	seq      uint64
	bg       bool
	internal bool
	handler  Handler
}

// Caller manages the priority-ordered set of handlers registered against a
// single ServerConn, for both internal (built-in protocol machinery) and
// external (user-registered) use. Dispatch runs handlers in ascending
// Priority order; handlers that share a priority run in the order they
// were registered. A handler may return NoMore to prevent any
// lower-priority handler from seeing the same event.
type Caller struct {
	mu sync.RWMutex

	parent *ServerConn

	// handlers maps an upper-cased command (or ALL_EVENTS) to its
	// dispatch list, kept sorted by (priority, seq).
	handlers map[string][]*registeredHandler
	seq      uint64

	debug *log.Logger
}

// newCaller creates and initializes a new Caller.
func newCaller(parent *ServerConn, debugOut *log.Logger) *Caller {
	return &Caller{
		handlers: make(map[string][]*registeredHandler),
		debug:    debugOut,
		parent:   parent,
	}
}

// Len returns the total number of external handlers currently registered.
func (c *Caller) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var n int
	for _, list := range c.handlers {
		for _, h := range list {
			if !h.internal {
				n++
			}
		}
	}
	return n
}

// Count returns the number of external handlers registered for cmd.
func (c *Caller) Count(cmd string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var n int
	for _, h := range c.handlers[strings.ToUpper(cmd)] {
		if !h.internal {
			n++
		}
	}
	return n
}

func (c *Caller) String() string {
	return fmt.Sprintf("<Caller handlers:%d>", c.Len())
}

// exec runs every handler registered for command (plus ALL_EVENTS),
// lowest Priority first, stopping early if a handler returns NoMore.
// Background handlers (registered via AddBg/register(bg=true)) are
// dispatched in priority order but execute asynchronously, so they cannot
// themselves halt dispatch of later handlers.
func (c *Caller) exec(command string, conn *ServerConn, event *Event) {
	merged := c.mergedHandlers(command)

	for _, h := range merged {
		if h.bg {
			go c.invoke(h, conn, event)
			continue
		}

		if c.invoke(h, conn, event) == NoMore {
			return
		}
	}
}

// mergedHandlers returns the handlers registered for ALL_EVENTS and for
// command, merged into one ascending (priority, seq) ordered slice.
func (c *Caller) mergedHandlers(command string) []*registeredHandler {
	c.mu.RLock()
	all := append([]*registeredHandler{}, c.handlers[ALL_EVENTS]...)
	cmd := append([]*registeredHandler{}, c.handlers[strings.ToUpper(command)]...)
	c.mu.RUnlock()

	merged := append(all, cmd...)
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].priority != merged[j].priority {
			return merged[i].priority < merged[j].priority
		}
		return merged[i].seq < merged[j].seq
	})

	return merged
}

func (c *Caller) invoke(h *registeredHandler, conn *ServerConn, event *Event) (result HandlerResult) {
	start := time.Now()

	defer func() {
		if conn.Config.RecoverFunc != nil {
			if perr := recover(); perr != nil {
				conn.Config.RecoverFunc(conn, newHandlerError(perr, *event, h.id))
			}
		}
	}()

	result = h.handler.Execute(conn, *event)
	c.debug.Printf("exec %s => %s (%s)", event.Command, h.id, time.Since(start))

	return result
}

// ClearAll clears all external handlers. Internal handlers are preserved.
func (c *Caller) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for cmd, list := range c.handlers {
		kept := list[:0]
		for _, h := range list {
			if h.internal {
				kept = append(kept, h)
			}
		}
		c.handlers[cmd] = kept
	}
}

// Clear clears all external handlers registered for cmd.
func (c *Caller) Clear(cmd string) {
	cmd = strings.ToUpper(cmd)

	c.mu.Lock()
	defer c.mu.Unlock()

	list := c.handlers[cmd]
	kept := list[:0]
	for _, h := range list {
		if h.internal {
			kept = append(kept, h)
		}
	}
	c.handlers[cmd] = kept
}

// Remove removes the handler with id from the handler stack. success
// indicates whether it was found.
func (c *Caller) Remove(id string) (success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for cmd, list := range c.handlers {
		for i, h := range list {
			if h.id == id {
				c.handlers[cmd] = append(list[:i], list[i+1:]...)
				return true
			}
		}
	}

	return false
}

// register inserts handler into the dispatch list for cmd at priority.
func (c *Caller) register(internal, bg bool, priority int, cmd string, handler Handler) (id string) {
	cmd = strings.ToUpper(cmd)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	id = fmt.Sprintf("%s:%d", cmd, c.seq)

	c.handlers[cmd] = append(c.handlers[cmd], &registeredHandler{
		id:       id,
		priority: priority,
		seq:      c.seq,
		bg:       bg,
		internal: internal,
		handler:  handler,
	})

	c.debug.Printf("reg %q => %s [int:%t bg:%t prio:%d]", id, cmd, internal, bg, priority)

	return id
}

// AddHandler registers a Handler for cmd at DefaultPriority. id can be
// used to remove the handler with Caller.Remove().
func (c *Caller) AddHandler(cmd string, handler Handler) (id string) {
	return c.register(false, false, DefaultPriority, cmd, handler)
}

// AddHandlerPriority is like AddHandler, but lets the caller pick where in
// dispatch order the handler runs; lower values run earlier.
func (c *Caller) AddHandlerPriority(cmd string, priority int, handler Handler) (id string) {
	return c.register(false, false, priority, cmd, handler)
}

// Add registers a handler function for cmd at DefaultPriority.
func (c *Caller) Add(cmd string, handler func(conn *ServerConn, event Event) HandlerResult) (id string) {
	return c.register(false, false, DefaultPriority, cmd, HandlerFunc(handler))
}

// AddBg registers a handler function for cmd, executed in its own
// goroutine so that long-running work doesn't stall dispatch to later
// handlers.
func (c *Caller) AddBg(cmd string, handler func(conn *ServerConn, event Event) HandlerResult) (id string) {
	return c.register(false, true, DefaultPriority, cmd, HandlerFunc(handler))
}

// AddTmp adds a handler intended for one-time or few-time use, for example
// capturing the full multi-line output of a WHOIS or LIST query. The
// handler returns true once it wants to be removed from the stack. If
// deadline is greater than zero, the handler is removed once that much
// time has passed, regardless of whether it ever returned true.
func (c *Caller) AddTmp(cmd string, deadline time.Duration, handler func(conn *ServerConn, event Event) bool) (id string, done chan struct{}) {
	done = make(chan struct{})

	id = c.register(false, true, DefaultPriority, cmd, HandlerFunc(func(conn *ServerConn, event Event) HandlerResult {
		if handler(conn, event) {
			if ok := c.Remove(id); ok {
				close(done)
			}
		}
		return Continue
	}))

	if deadline > 0 {
		go func() {
			select {
			case <-time.After(deadline):
			case <-done:
				return
			}

			if ok := c.Remove(id); ok {
				close(done)
			}
		}()
	}

	return id, done
}

// newHandlerError builds a HandlerError from a recovered panic value.
func newHandlerError(perr interface{}, event Event, id string) *HandlerError {
	var file, function string
	var line int

	pcs := make([]uintptr, 10)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	if frame, ok := frames.Next(); ok {
		file = frame.File
		line = frame.Line
		function = frame.Function
	}

	return &HandlerError{
		Event: event,
		ID:    id,
		File:  file,
		Line:  line,
		Func:  function,
		Panic: perr,
		Stack: debug.Stack(),
	}
}

// HandlerError is the error passed to Config.RecoverFunc when a handler
// panics. It carries enough information (handler id, file/line, call
// stack, and the event being processed) to diagnose the panic after the
// fact.
type HandlerError struct {
	Event Event       // Event is the event that caused the error.
	ID    string      // ID is the id of the handler.
	File  string      // File is the file from where the panic originated.
	Line  int         // Line number where the panic originated.
	Func  string      // Func is the function name where the panic originated.
	Panic interface{} // Panic is the value passed to panic().
	Stack []byte      // Stack is the call stack at the time of the panic.
}

// Error returns a prettified version of HandlerError.
func (e *HandlerError) Error() string {
	return fmt.Sprintf("panic during handler [%s] execution in %s:%d: %v", e.ID, e.File, e.Line, e.Panic)
}

// String returns the panic value and the entire call trace of where it
// originated.
func (e *HandlerError) String() string {
	return fmt.Sprintf("panic: %v\n\n%s", e.Panic, string(e.Stack))
}

// DefaultRecoverHandler can be used with Config.RecoverFunc as a
// catch-all for handler panics: it logs the error and call trace to the
// connection's debug log, or stdout if no debug log is configured.
func DefaultRecoverHandler(conn *ServerConn, err *HandlerError) {
	if conn.Config.Debug == nil {
		fmt.Println(err.Error())
		fmt.Println(err.String())
		return
	}

	conn.debug.Println(err.Error())
	conn.debug.Println(err.String())
}
