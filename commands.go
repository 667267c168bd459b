// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package irc

import (
	"fmt"
	"strconv"
)

// Commands holds a large list of useful methods to interact with the
// server, and wrappers for common events. Every send is fire-and-forget:
// validation errors (invalid nick/channel target) are returned directly,
// but once an Event reaches ServerConn.Send it is queued for delivery and
// errors are surfaced only through the connection's Config.Out/Debug
// logging, not through these methods.
type Commands struct {
	conn *ServerConn
}

// Nick changes the connection's nickname.
func (cmd *Commands) Nick(name string) error {
	if !IsValidNick(name) {
		return &ErrInvalidTarget{Target: name}
	}

	cmd.conn.Send(&Event{Command: NICK, Params: []string{name}})
	return nil
}

// Join attempts to enter a list of IRC channels, batched to avoid
// exceeding the line length limit.
func (cmd *Commands) Join(channels ...string) error {
	return cmd.joinOrList(JOIN, channels)
}

// JoinKey attempts to enter a single IRC channel with a password.
func (cmd *Commands) JoinKey(channel, password string) error {
	if !IsValidChannel(channel) {
		return &ErrInvalidTarget{Target: channel}
	}

	cmd.conn.Send(&Event{Command: JOIN, Params: []string{channel, password}})
	return nil
}

// Part leaves an IRC channel.
func (cmd *Commands) Part(channel string) error {
	if !IsValidChannel(channel) {
		return &ErrInvalidTarget{Target: channel}
	}

	cmd.conn.Send(&Event{Command: PART, Params: []string{channel}})
	return nil
}

// PartMessage leaves an IRC channel with a specified leave message.
func (cmd *Commands) PartMessage(channel, message string) error {
	if !IsValidChannel(channel) {
		return &ErrInvalidTarget{Target: channel}
	}

	cmd.conn.Send(&Event{Command: PART, Params: []string{channel}, Trailing: message})
	return nil
}

func (cmd *Commands) joinOrList(command string, channels []string) error {
	if len(channels) == 0 {
		cmd.conn.Send(&Event{Command: command})
		return nil
	}

	max := maxLength - len(command) - 1

	var buffer string

	for i := 0; i < len(channels); i++ {
		if !IsValidChannel(channels[i]) {
			return &ErrInvalidTarget{Target: channels[i]}
		}

		if len(buffer+","+channels[i]) > max {
			cmd.conn.Send(&Event{Command: command, Params: []string{buffer}})
			buffer = ""
		}

		if len(buffer) == 0 {
			buffer = channels[i]
		} else {
			buffer += "," + channels[i]
		}

		if i == len(channels)-1 {
			cmd.conn.Send(&Event{Command: command, Params: []string{buffer}})
		}
	}

	return nil
}

// SendCTCP sends a CTCP request to target, via PRIVMSG.
func (cmd *Commands) SendCTCP(target, ctcpType, message string) error {
	out := encodeCTCPRaw(ctcpType, message)
	if out == "" {
		return fmt.Errorf("irc: invalid CTCP tag %q", ctcpType)
	}

	return cmd.Message(target, out)
}

// SendCTCPf sends a CTCP request to target using a specific format, via
// PRIVMSG.
func (cmd *Commands) SendCTCPf(target, ctcpType, format string, a ...interface{}) error {
	return cmd.SendCTCP(target, ctcpType, fmt.Sprintf(format, a...))
}

// SendCTCPReplyf sends a CTCP response to target using a specific format,
// via NOTICE.
func (cmd *Commands) SendCTCPReplyf(target, ctcpType, format string, a ...interface{}) error {
	return cmd.SendCTCPReply(target, ctcpType, fmt.Sprintf(format, a...))
}

// SendCTCPReply sends a CTCP response to target, via NOTICE.
func (cmd *Commands) SendCTCPReply(target, ctcpType, message string) error {
	out := encodeCTCPRaw(ctcpType, message)
	if out == "" {
		return fmt.Errorf("irc: invalid CTCP tag %q", ctcpType)
	}

	return cmd.Notice(target, out)
}

// Message sends a PRIVMSG to target (either channel, service, or user).
func (cmd *Commands) Message(target, message string) error {
	if !IsValidNick(target) && !IsValidChannel(target) {
		return &ErrInvalidTarget{Target: target}
	}

	cmd.conn.Send(&Event{Command: PRIVMSG, Params: []string{target}, Trailing: message})
	return nil
}

// Messagef sends a formatted PRIVMSG to target.
func (cmd *Commands) Messagef(target, format string, a ...interface{}) error {
	return cmd.Message(target, fmt.Sprintf(format, a...))
}

// Action sends a PRIVMSG ACTION (/me) to target.
func (cmd *Commands) Action(target, message string) error {
	if !IsValidNick(target) && !IsValidChannel(target) {
		return &ErrInvalidTarget{Target: target}
	}

	cmd.conn.Send(&Event{
		Command:  PRIVMSG,
		Params:   []string{target},
		Trailing: fmt.Sprintf("\x01ACTION %s\x01", message),
	})
	return nil
}

// Actionf sends a formatted PRIVMSG ACTION (/me) to target.
func (cmd *Commands) Actionf(target, format string, a ...interface{}) error {
	return cmd.Action(target, fmt.Sprintf(format, a...))
}

// Notice sends a NOTICE to target (either channel, service, or user).
func (cmd *Commands) Notice(target, message string) error {
	if !IsValidNick(target) && !IsValidChannel(target) {
		return &ErrInvalidTarget{Target: target}
	}

	cmd.conn.Send(&Event{Command: NOTICE, Params: []string{target}, Trailing: message})
	return nil
}

// Noticef sends a formatted NOTICE to target.
func (cmd *Commands) Noticef(target, format string, a ...interface{}) error {
	return cmd.Notice(target, fmt.Sprintf(format, a...))
}

// SendRaw sends a raw protocol line to the server.
func (cmd *Commands) SendRaw(raw string) error {
	e := ParseEvent(raw)
	if e == nil {
		return &ProtocolViolationError{Line: raw}
	}

	cmd.conn.Send(e)
	return nil
}

// SendRawf sends a formatted raw protocol line to the server.
func (cmd *Commands) SendRawf(format string, a ...interface{}) error {
	return cmd.SendRaw(fmt.Sprintf(format, a...))
}

// Topic sets the topic of channel to message.
func (cmd *Commands) Topic(channel, message string) error {
	if !IsValidChannel(channel) {
		return &ErrInvalidTarget{Target: channel}
	}

	cmd.conn.Send(&Event{Command: TOPIC, Params: []string{channel}, Trailing: message})
	return nil
}

// Who sends a WHO query to the server, targeted at a nick, channel, or
// user.
func (cmd *Commands) Who(target string) error {
	if !IsValidNick(target) && !IsValidChannel(target) && !IsValidUser(target) {
		return &ErrInvalidTarget{Target: target}
	}

	cmd.conn.Send(&Event{Command: WHO, Params: []string{target}})
	return nil
}

// Whois sends a WHOIS query to the server, targeted at a specific user.
func (cmd *Commands) Whois(nick string) error {
	if !IsValidNick(nick) {
		return &ErrInvalidTarget{Target: nick}
	}

	cmd.conn.Send(&Event{Command: WHOIS, Params: []string{nick}})
	return nil
}

// Whowas sends a WHOWAS query to the server. amount is the number of
// results wanted back.
func (cmd *Commands) Whowas(nick string, amount int) error {
	if !IsValidNick(nick) {
		return &ErrInvalidTarget{Target: nick}
	}

	cmd.conn.Send(&Event{Command: WHOWAS, Params: []string{nick, strconv.Itoa(amount)}})
	return nil
}

// Ping sends a PING query to the server with id.
func (cmd *Commands) Ping(id string) error {
	cmd.conn.Send(&Event{Command: PING, Params: []string{id}})
	return nil
}

// Pong sends a PONG response to the server with id, the identifier carried
// by a previously received PING.
func (cmd *Commands) Pong(id string) error {
	cmd.conn.Send(&Event{Command: PONG, Params: []string{id}})
	return nil
}

// Quit disconnects from the server with the given reason. The connection
// closes as soon as the QUIT line has been written; it does not wait for
// the server's reply.
func (cmd *Commands) Quit(reason string) error {
	cmd.conn.Send(&Event{Command: QUIT, Trailing: reason})
	return nil
}

// Oper authenticates as an IRC operator.
func (cmd *Commands) Oper(user, pass string) error {
	cmd.conn.Send(&Event{Command: OPER, Params: []string{user, pass}, Sensitive: true})
	return nil
}

// Kick attempts to kick nick from channel, with reason. If reason is
// blank, one is not sent to the server.
func (cmd *Commands) Kick(channel, nick, reason string) error {
	if !IsValidChannel(channel) {
		return &ErrInvalidTarget{Target: channel}
	}

	if !IsValidNick(nick) {
		return &ErrInvalidTarget{Target: nick}
	}

	if reason != "" {
		cmd.conn.Send(&Event{Command: KICK, Params: []string{channel, nick}, Trailing: reason})
	} else {
		cmd.conn.Send(&Event{Command: KICK, Params: []string{channel, nick}})
	}
	return nil
}

// Invite invites nick to channel.
func (cmd *Commands) Invite(channel, nick string) error {
	if !IsValidChannel(channel) {
		return &ErrInvalidTarget{Target: channel}
	}

	if !IsValidNick(nick) {
		return &ErrInvalidTarget{Target: nick}
	}

	cmd.conn.Send(&Event{Command: INVITE, Params: []string{nick, channel}})
	return nil
}

// Away marks the connection as away with the given reason. An empty reason
// calls Back instead.
func (cmd *Commands) Away(reason string) error {
	if reason == "" {
		return cmd.Back()
	}

	cmd.conn.Send(&Event{Command: AWAY, Trailing: reason})
	return nil
}

// Back clears an away status previously set with Away.
func (cmd *Commands) Back() error {
	cmd.conn.Send(&Event{Command: AWAY})
	return nil
}

// List lists channels and topics. Supply no channels to list every channel
// on the server.
func (cmd *Commands) List(channels ...string) error {
	return cmd.joinOrList(LIST, channels)
}

// Names requests the list of users in one or more channels.
func (cmd *Commands) Names(channels ...string) error {
	return cmd.joinOrList(NAMES, channels)
}

// Mode sends a MODE query or change for target (a channel or nick). flags
// is the mode string (e.g. "+o"), args are its positional arguments.
func (cmd *Commands) Mode(target, flags string, args ...string) error {
	if !IsValidChannel(target) && !IsValidNick(target) {
		return &ErrInvalidTarget{Target: target}
	}

	params := append([]string{target}, flagsAndArgs(flags, args)...)
	cmd.conn.Send(&Event{Command: MODE, Params: params})
	return nil
}

func flagsAndArgs(flags string, args []string) []string {
	if flags == "" {
		return nil
	}
	return append([]string{flags}, args...)
}

// Admin requests information about the administrator of the given server
// (or the current server, if empty).
func (cmd *Commands) Admin(server string) error {
	if server == "" {
		cmd.conn.Send(&Event{Command: ADMIN})
	} else {
		cmd.conn.Send(&Event{Command: ADMIN, Params: []string{server}})
	}
	return nil
}

// Info requests version and miscellaneous information about the server.
func (cmd *Commands) Info() error {
	cmd.conn.Send(&Event{Command: INFO})
	return nil
}

// Ison queries whether the given nicknames are currently online.
func (cmd *Commands) Ison(nicks ...string) error {
	if len(nicks) == 0 {
		return &ErrInvalidTarget{Target: ""}
	}
	cmd.conn.Send(&Event{Command: ISON, Params: nicks})
	return nil
}

// Links lists server links matching mask, via the given remote server.
func (cmd *Commands) Links(remote, mask string) error {
	var params []string
	if remote != "" {
		params = append(params, remote)
	}
	if mask != "" {
		params = append(params, mask)
	}
	cmd.conn.Send(&Event{Command: LINKS, Params: params})
	return nil
}

// Lusers requests statistics about the size of the network.
func (cmd *Commands) Lusers() error {
	cmd.conn.Send(&Event{Command: LUSERS})
	return nil
}

// Motd requests the server's message of the day.
func (cmd *Commands) Motd() error {
	cmd.conn.Send(&Event{Command: MOTD})
	return nil
}

// Pass sends the server password. Normally only needed prior to
// registration; ServerConn.Connect sends this automatically when
// Config.ServerPass is set.
func (cmd *Commands) Pass(password string) error {
	cmd.conn.Send(&Event{Command: PASS, Params: []string{password}, Sensitive: true})
	return nil
}

// Squit instructs the server to disconnect a linked server (operator-only).
func (cmd *Commands) Squit(server, comment string) error {
	cmd.conn.Send(&Event{Command: SQUIT, Params: []string{server}, Trailing: comment})
	return nil
}

// Stats requests server statistics of the given query letter.
func (cmd *Commands) Stats(query string) error {
	cmd.conn.Send(&Event{Command: STATS, Params: []string{query}})
	return nil
}

// Time requests the current local time of the server.
func (cmd *Commands) Time(server string) error {
	if server == "" {
		cmd.conn.Send(&Event{Command: TIME})
	} else {
		cmd.conn.Send(&Event{Command: TIME, Params: []string{server}})
	}
	return nil
}

// Trace traces a route to the given server.
func (cmd *Commands) Trace(target string) error {
	if target == "" {
		cmd.conn.Send(&Event{Command: TRACE})
	} else {
		cmd.conn.Send(&Event{Command: TRACE, Params: []string{target}})
	}
	return nil
}

// Userhost requests the hostmasks of up to five nicknames.
func (cmd *Commands) Userhost(nicks ...string) error {
	if len(nicks) == 0 || len(nicks) > 5 {
		return &ErrInvalidTarget{Target: fmt.Sprint(nicks)}
	}
	cmd.conn.Send(&Event{Command: USERHOST, Params: nicks})
	return nil
}

// Users requests a list of users and services currently online, on
// networks that implement it (many disable it by default).
func (cmd *Commands) Users() error {
	cmd.conn.Send(&Event{Command: USERS})
	return nil
}

// Version requests the server's version string.
func (cmd *Commands) Version(server string) error {
	if server == "" {
		cmd.conn.Send(&Event{Command: VERSION})
	} else {
		cmd.conn.Send(&Event{Command: VERSION, Params: []string{server}})
	}
	return nil
}

// Wallops sends a message to all users with user mode +w set (operator
// only).
func (cmd *Commands) Wallops(message string) error {
	cmd.conn.Send(&Event{Command: WALLOPS, Trailing: message})
	return nil
}
