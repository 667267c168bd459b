// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package irc

import "strings"

// Default channel mode/prefix tables, used until ISUPPORT CHANMODES/PREFIX
// are received from the server (see FeatureSet).
const (
	ModeDefaults    = "b,k,l,imnpst"
	DefaultPrefixes = "(ov)@+"
)

// Mode letters for the non-rfc owner/admin/op/half-op/voice permission
// levels commonly found on modern networks.
const (
	ModeOwner        = "q"
	ModeAdmin        = "a"
	ModeOperator     = "o"
	ModeHalfOperator = "h"
	ModeVoice        = "v"
)

// Prefix characters corresponding to the mode letters above.
const (
	OwnerPrefix        = "~"
	AdminPrefix        = "&"
	OperatorPrefix     = "@"
	HalfOperatorPrefix = "%"
	VoicePrefix        = "+"
)

// CMode represents a single parsed channel mode change (e.g. "+o nick" or
// "-b *!*@host").
type CMode struct {
	add     bool
	name    byte
	setting bool
	args    string
}

// Short returns the mode in "+x"/"-x" form, without any argument.
func (c *CMode) Short() string {
	var status string
	if c.add {
		status = "+"
	} else {
		status = "-"
	}

	return status + string(c.name)
}

// String returns the mode along with its argument, if any.
func (c *CMode) String() string {
	if len(c.args) == 0 {
		return c.Short()
	}

	return c.Short() + " " + c.args
}

// CModes tracks the CHANMODES-derived argument rules for a network, and the
// currently-applied, non-list channel modes for a single channel.
//
// "modes" is a list of channel modes according to 4 types: "A,B,C,D".
// A = Mode that adds or removes a nick or address to a list. Always has a parameter.
// B = Mode that changes a setting and always has a parameter.
// C = Mode that changes a setting and only has a parameter when set.
// D = Mode that changes a setting and never has a parameter.
// Note: Modes of type A return the list when there is no parameter present.
// Note: Some clients assumes that any mode not listed is of type D.
// Note: Modes in PREFIX are not listed but could be considered type B.
type CModes struct {
	raw           string
	modesListArgs string
	modesArgs     string
	modesSetArgs  string
	modesNoArgs   string

	prefixes string
	modes    []CMode
}

// String renders the currently-applied mode set, e.g. "+nt".
func (c *CModes) String() string {
	var out string
	var args string

	if len(c.modes) > 0 {
		out += "+"
	}

	for i := 0; i < len(c.modes); i++ {
		out += string(c.modes[i].name)

		if len(c.modes[i].args) > 0 {
			args += " " + c.modes[i].args
		}
	}

	return out + args
}

func (c *CModes) hasArg(set bool, mode byte) (hasArgs, isSetting bool) {
	if len(c.raw) < 1 {
		return false, true
	}

	if strings.IndexByte(c.modesListArgs, mode) > -1 {
		return true, false
	}

	if strings.IndexByte(c.modesArgs, mode) > -1 {
		return true, true
	}

	if strings.IndexByte(c.modesSetArgs, mode) > -1 {
		if set {
			return true, true
		}

		return false, true
	}

	if strings.IndexByte(c.prefixes, mode) > -1 {
		return true, false
	}

	return false, true
}

// apply merges a freshly-parsed mode delta into the channel's current
// non-list mode set.
func (c *CModes) apply(modes []CMode) {
	var newModes []CMode

	for j := 0; j < len(c.modes); j++ {
		isin := false
		for i := 0; i < len(modes); i++ {
			if !modes[i].setting {
				continue
			}
			if c.modes[j].name == modes[i].name {
				if modes[i].add {
					newModes = append(newModes, modes[i])
				}
				isin = true
				break
			}
		}

		if !isin {
			newModes = append(newModes, c.modes[j])
		}
	}

	for i := 0; i < len(modes); i++ {
		if !modes[i].setting || !modes[i].add {
			continue
		}

		isin := false
		for j := 0; j < len(newModes); j++ {
			if modes[i].name == newModes[j].name {
				isin = true
				break
			}
		}

		if !isin {
			newModes = append(newModes, modes[i])
		}
	}

	c.modes = newModes
}

// parse decodes a MODE flags string (e.g. "+o-l") together with its
// positional arguments into a slice of CMode.
func (c *CModes) parse(flags string, args []string) (out []CMode) {
	add := true
	var argCount int

	for i := 0; i < len(flags); i++ {
		if flags[i] == '+' {
			add = true
			continue
		}
		if flags[i] == '-' {
			add = false
			continue
		}

		mode := CMode{
			name: flags[i],
			add:  add,
		}

		hasArgs, isSetting := c.hasArg(add, flags[i])
		if hasArgs && len(args) >= argCount+1 {
			mode.args = args[argCount]
			argCount++
		}
		mode.setting = isSetting

		out = append(out, mode)
	}

	return out
}

// newCModes builds a CModes from a raw ISUPPORT CHANMODES value and a raw
// ISUPPORT PREFIX mode-letter list.
func newCModes(channelModes, userPrefixes string) CModes {
	split := strings.SplitN(channelModes, ",", 4)
	if len(split) != 4 {
		for i := len(split); i < 4; i++ {
			split = append(split, "")
		}
	}

	return CModes{
		raw:           channelModes,
		modesListArgs: split[0],
		modesArgs:     split[1],
		modesSetArgs:  split[2],
		modesNoArgs:   split[3],

		prefixes: userPrefixes,
		modes:    []CMode{},
	}
}

func isValidChannelMode(raw string) bool {
	if len(raw) < 1 {
		return false
	}

	for i := 0; i < len(raw); i++ {
		if raw[i] != ',' && (raw[i] < 0x41 || raw[i] > 0x5A) && (raw[i] < 0x61 || raw[i] > 0x7A) {
			return false
		}
	}

	return true
}

func isValidUserPrefix(raw string) bool {
	if len(raw) < 1 {
		return false
	}

	if raw[0] != '(' {
		return false
	}

	var keys, rep int
	var passedKeys bool

	for i := 1; i < len(raw); i++ {
		if raw[i] == ')' {
			passedKeys = true
			continue
		}

		if passedKeys {
			rep++
		} else {
			keys++
		}
	}

	return keys == rep
}

// parsePrefixes splits a raw ISUPPORT PREFIX value, e.g. "(ov)@+", into its
// mode-letter half ("ov") and prefix-character half ("@+"). Order is
// significant: position N in modes corresponds to position N in prefixes.
func parsePrefixes(raw string) (modes, prefixes string) {
	if !isValidUserPrefix(raw) {
		return modes, prefixes
	}

	i := strings.Index(raw, ")")
	if i < 1 {
		return modes, prefixes
	}

	return raw[1:i], raw[i+1:]
}

// UserPerms contains all channel-based user permissions. The minimum op, and
// voice should be supported on all networks. This also supports non-rfc
// Owner, Admin, and HalfOp, if the network has support for it.
type UserPerms struct {
	// Owner (non-rfc) indicates that the user has full permissions to the
	// channel. More than one user can have owner permission.
	Owner bool
	// Admin (non-rfc) is commonly given to users that are trusted enough
	// to manage channel permissions, as well as higher level service settings.
	Admin bool
	// Op is commonly given to trusted users who can manage a given channel
	// by kicking, and banning users.
	Op bool
	// HalfOp (non-rfc) is commonly used to give users permissions like the
	// ability to kick, without giving them greater abilities to ban all users.
	HalfOp bool
	// Voice indicates the user has voice permissions, commonly given to known
	// users, with very light trust, or to indicate a user is active.
	Voice bool
}

// IsAdmin indicates that the user has banning abilities, and are likely a
// very trustable user (e.g. op+).
func (m UserPerms) IsAdmin() bool {
	return m.Owner || m.Admin || m.Op
}

// IsTrusted indicates that the user at least has modes set upon them,
// higher than a regular joining user.
func (m UserPerms) IsTrusted() bool {
	return m.IsAdmin() || m.HalfOp || m.Voice
}

// reset clears every permission flag.
func (m *UserPerms) reset() {
	m.Owner = false
	m.Admin = false
	m.Op = false
	m.HalfOp = false
	m.Voice = false
}

// set translates raw prefix characters (e.g. "@+") into permissions.
func (m *UserPerms) set(prefix string, appendTo bool) {
	if !appendTo {
		m.reset()
	}

	for i := 0; i < len(prefix); i++ {
		switch string(prefix[i]) {
		case OwnerPrefix:
			m.Owner = true
		case AdminPrefix:
			m.Admin = true
		case OperatorPrefix:
			m.Op = true
		case HalfOperatorPrefix:
			m.HalfOp = true
		case VoicePrefix:
			m.Voice = true
		}
	}
}

// setFromMode applies a single parsed CMode (e.g. "+o") to the permission
// set.
func (m *UserPerms) setFromMode(mode CMode) {
	switch string(mode.name) {
	case ModeOwner:
		m.Owner = mode.add
	case ModeAdmin:
		m.Admin = mode.add
	case ModeOperator:
		m.Op = mode.add
	case ModeHalfOperator:
		m.HalfOp = mode.add
	case ModeVoice:
		m.Voice = mode.add
	}
}

// parseUserPrefix parses a raw NAMES-reply entry, like "@user" or "@+user",
// into its mode-prefix characters and bare nickname.
func parseUserPrefix(raw string) (modes, nick string, success bool) {
	for i := 0; i < len(raw); i++ {
		char := string(raw[i])

		if char == OwnerPrefix || char == AdminPrefix || char == HalfOperatorPrefix ||
			char == OperatorPrefix || char == VoicePrefix {
			modes += char
			continue
		}

		if !IsValidNick(raw[i:]) {
			return modes, nick, false
		}

		nick = raw[i:]

		return modes, nick, true
	}

	return
}

// parseNickModes parses a user-mode string as carried in a MODE line
// targeted directly at a nickname (e.g. "+i-w"), independent of any
// channel's CHANMODES rules: every listed letter always takes no argument.
func parseNickModes(flags string) (added, removed []byte) {
	add := true

	for i := 0; i < len(flags); i++ {
		switch flags[i] {
		case '+':
			add = true
		case '-':
			add = false
		default:
			if add {
				added = append(added, flags[i])
			} else {
				removed = append(removed, flags[i])
			}
		}
	}

	return added, removed
}
