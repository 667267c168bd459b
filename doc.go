// Copyright 2016-2017 Liam Stanley <me@liamstanley.io>. All rights reserved.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

// Package irc is an event-driven framework for building IRC clients and
// bots: a reactor multiplexes any number of server and DCC connections,
// dispatching parsed protocol events to priority-ordered handlers, with
// built-in CAP negotiation, ISUPPORT/feature tracking, channel state
// tracking, and CTCP.
//
// A Reactor owns zero or more ServerConn and DCCConn instances and a
// Scheduler for timed/periodic work. Bot wraps a single ServerConn with an
// exponential-backoff reconnect policy and channel auto-rejoin, for the
// common case of a single-network client.
//
// See cmd/irccat for a minimal example of wiring a ServerConn directly.
package irc
