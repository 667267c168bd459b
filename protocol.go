// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package irc

// Textual IRC command verbs used throughout the package. Numeric replies
// are not listed here -- they are looked up by symbolic name via
// NumericToSymbol/SymbolToNumeric against the codes.txt table.
const (
	PASS    = "PASS"
	NICK    = "NICK"
	USER    = "USER"
	OPER    = "OPER"
	MODE    = "MODE"
	SERVICE = "SERVICE"
	QUIT    = "QUIT"
	SQUIT   = "SQUIT"

	JOIN    = "JOIN"
	PART    = "PART"
	TOPIC   = "TOPIC"
	NAMES   = "NAMES"
	LIST    = "LIST"
	INVITE  = "INVITE"
	KICK    = "KICK"

	PRIVMSG = "PRIVMSG"
	NOTICE  = "NOTICE"

	MOTD    = "MOTD"
	LUSERS  = "LUSERS"
	VERSION = "VERSION"
	STATS   = "STATS"
	LINKS   = "LINKS"
	TIME    = "TIME"
	CONNECT = "CONNECT"
	TRACE   = "TRACE"
	ADMIN   = "ADMIN"
	INFO    = "INFO"

	WHO     = "WHO"
	WHOIS   = "WHOIS"
	WHOWAS  = "WHOWAS"

	KILL    = "KILL"
	PING    = "PING"
	PONG    = "PONG"
	ERROR   = "ERROR"

	AWAY    = "AWAY"
	REHASH  = "REHASH"
	DIE     = "DIE"
	RESTART = "RESTART"
	SUMMON  = "SUMMON"
	USERS   = "USERS"
	WALLOPS = "WALLOPS"
	USERHOST = "USERHOST"
	ISON    = "ISON"

	CAP     = "CAP"
	AUTHENTICATE = "AUTHENTICATE"
	ACCOUNT = "ACCOUNT"
	CHGHOST = "CHGHOST"

	CTCP_ACTION  = "ACTION"
	CTCP_PING    = "PING"
	CTCP_PONG    = "PONG"
	CTCP_VERSION = "VERSION"
	CTCP_SOURCE  = "SOURCE"
	CTCP_TIME    = "TIME"
	CTCP_FINGER  = "FINGER"
	CTCP_CLIENTINFO = "CLIENTINFO"
	CTCP_DCC     = "DCC"
)
