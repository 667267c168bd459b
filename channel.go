// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package irc

import (
	"strings"
	"sync"

	cmap "github.com/orcaman/concurrent-map"
)

// Channel is the tracked state of a single joined channel: its case-folded
// member set, the per-letter set of nicks carrying a user mode (o, v, q, h,
// a), and the channel's non-list modes. A nick present in any mode_users
// entry is always also present in users; removing a nick purges it from
// every set, and renaming a nick preserves membership in all of them.
type Channel struct {
	mu sync.RWMutex

	name      string
	users     *CaseFoldedMap[struct{}]
	modeUsers map[byte]*CaseFoldedMap[struct{}]
	modes     CModes
}

func newChannel(name string) *Channel {
	return &Channel{
		name:      name,
		users:     NewCaseFoldedMap[struct{}](),
		modeUsers: make(map[byte]*CaseFoldedMap[struct{}]),
	}
}

// Name returns the channel name as first observed (display case preserved).
func (ch *Channel) Name() string {
	ch.mu.RLock()
	defer ch.mu.RUnlock()
	return ch.name
}

// Users returns the case-folded-unique set of nicks currently believed to
// be in the channel, in display case.
func (ch *Channel) Users() []string {
	ch.mu.RLock()
	defer ch.mu.RUnlock()
	return ch.users.Keys()
}

// HasUser reports whether nick is a tracked member of the channel.
func (ch *Channel) HasUser(nick string) bool {
	ch.mu.RLock()
	defer ch.mu.RUnlock()
	return ch.users.Has(nick)
}

// UserPerms returns the permission set tracked for nick in this channel.
func (ch *Channel) UserPerms(nick string) (perms UserPerms) {
	ch.mu.RLock()
	defer ch.mu.RUnlock()

	for letter, set := range ch.modeUsers {
		if set.Has(nick) {
			perms.setFromMode(CMode{name: letter, add: true})
		}
	}
	return perms
}

func (ch *Channel) addUser(nick string) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.users.Set(nick, struct{}{})
}

func (ch *Channel) removeUser(nick string) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.users.Delete(nick)
	for _, set := range ch.modeUsers {
		set.Delete(nick)
	}
}

func (ch *Channel) renameUser(oldNick, newNick string) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if !ch.users.Has(oldNick) {
		return
	}
	ch.users.Rename(oldNick, newNick)
	for _, set := range ch.modeUsers {
		if set.Has(oldNick) {
			set.Rename(oldNick, newNick)
		}
	}
}

func (ch *Channel) setUserMode(letter byte, nick string, on bool) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	set, ok := ch.modeUsers[letter]
	if !ok {
		set = NewCaseFoldedMap[struct{}]()
		ch.modeUsers[letter] = set
	}

	if on {
		ch.users.Set(nick, struct{}{})
		set.Set(nick, struct{}{})
	} else {
		set.Delete(nick)
	}
}

func (ch *Channel) applyModes(modes []CMode) {
	ch.mu.Lock()
	ch.modes.apply(modes)
	ch.mu.Unlock()
}

// userModeLetters are the channel mode letters that describe a per-user
// permission rather than a channel-wide setting.
var userModeLetters = map[byte]bool{
	'o': true, 'v': true, 'q': true, 'h': true, 'a': true,
}

// ChannelTracker maintains the set of channels the connection currently
// believes it is in, keyed case-insensitively, updated from JOIN, PART,
// KICK, QUIT, NICK, MODE, and RPL_NAMREPLY events. It registers its
// handlers at priority -20: after the built-in protocol handlers
// (-42) but before ordinary user handlers (0), so user code observes
// already-updated channel state.
type ChannelTracker struct {
	channels cmap.ConcurrentMap

	mu        sync.RWMutex
	reconnect func()
}

// NewChannelTracker returns an empty tracker. Call Attach to start tracking
// a connection's channel state.
func NewChannelTracker() *ChannelTracker {
	return &ChannelTracker{channels: cmap.New()}
}

// Attach registers the tracker's handlers on conn.
func (t *ChannelTracker) Attach(conn *ServerConn) {
	conn.Handlers.register(true, false, -20, JOIN, HandlerFunc(t.onJoin))
	conn.Handlers.register(true, false, -20, PART, HandlerFunc(t.onPart))
	conn.Handlers.register(true, false, -20, KICK, HandlerFunc(t.onKick))
	conn.Handlers.register(true, false, -20, QUIT, HandlerFunc(t.onQuit))
	conn.Handlers.register(true, false, -20, NICK, HandlerFunc(t.onNick))
	conn.Handlers.register(true, false, -20, MODE, HandlerFunc(t.onMode))
	conn.Handlers.register(true, false, -20, "RPL_NAMREPLY", HandlerFunc(t.onNames))
	conn.Handlers.register(true, false, -20, DISCONNECT, HandlerFunc(t.onDisconnect))
}

// SetReconnectHook installs fn to be called after the tracker clears its
// state on disconnect, e.g. to schedule a reconnect attempt.
func (t *ChannelTracker) SetReconnectHook(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reconnect = fn
}

// clear drops every tracked channel, mirroring the original bot's
// _on_disconnect resetting its channel dict to empty before rescheduling.
func (t *ChannelTracker) clear() {
	for item := range t.channels.IterBuffered() {
		t.channels.Remove(item.Key)
	}
}

func (t *ChannelTracker) onDisconnect(conn *ServerConn, event Event) HandlerResult {
	t.clear()

	t.mu.RLock()
	reconnect := t.reconnect
	t.mu.RUnlock()

	if reconnect != nil {
		reconnect()
	}
	return Continue
}

// Channel returns the tracked state for name, and whether it is known.
func (t *ChannelTracker) Channel(name string) (*Channel, bool) {
	v, ok := t.channels.Get(Fold(name))
	if !ok {
		return nil, false
	}
	return v.(*Channel), true
}

// Channels returns every currently-tracked channel.
func (t *ChannelTracker) Channels() []*Channel {
	out := make([]*Channel, 0, t.channels.Count())
	for item := range t.channels.IterBuffered() {
		out = append(out, item.Val.(*Channel))
	}
	return out
}

func (t *ChannelTracker) getOrCreate(name string) *Channel {
	key := Fold(name)
	if v, ok := t.channels.Get(key); ok {
		return v.(*Channel)
	}
	ch := newChannel(name)
	t.channels.SetIfAbsent(key, ch)
	v, _ := t.channels.Get(key)
	return v.(*Channel)
}

func (t *ChannelTracker) drop(name string) {
	t.channels.Remove(Fold(name))
}

func (t *ChannelTracker) onJoin(conn *ServerConn, event Event) HandlerResult {
	if event.Source == nil || len(event.Params) < 1 {
		return Continue
	}
	channel := event.Params[0]
	nick := event.Source.Name

	ch := t.getOrCreate(channel)
	ch.addUser(nick)

	return Continue
}

func (t *ChannelTracker) onPart(conn *ServerConn, event Event) HandlerResult {
	if event.Source == nil || len(event.Params) < 1 {
		return Continue
	}
	channel := event.Params[0]
	nick := event.Source.Name

	if FoldEqual(nick, conn.GetNick()) {
		t.drop(channel)
		return Continue
	}

	if ch, ok := t.Channel(channel); ok {
		ch.removeUser(nick)
	}
	return Continue
}

func (t *ChannelTracker) onKick(conn *ServerConn, event Event) HandlerResult {
	if len(event.Params) < 2 {
		return Continue
	}
	channel := event.Params[0]
	kicked := event.Params[1]

	if FoldEqual(kicked, conn.GetNick()) {
		t.drop(channel)
		return Continue
	}

	if ch, ok := t.Channel(channel); ok {
		ch.removeUser(kicked)
	}
	return Continue
}

func (t *ChannelTracker) onQuit(conn *ServerConn, event Event) HandlerResult {
	if event.Source == nil {
		return Continue
	}
	nick := event.Source.Name

	for _, ch := range t.Channels() {
		if ch.HasUser(nick) {
			ch.removeUser(nick)
		}
	}
	return Continue
}

func (t *ChannelTracker) onNick(conn *ServerConn, event Event) HandlerResult {
	if event.Source == nil || len(event.Params) != 1 {
		return Continue
	}
	before := event.Source.Name
	after := event.Params[0]

	for _, ch := range t.Channels() {
		if ch.HasUser(before) {
			ch.renameUser(before, after)
		}
	}
	return Continue
}

func (t *ChannelTracker) onMode(conn *ServerConn, event Event) HandlerResult {
	if len(event.Params) < 1 || !IsValidChannel(event.Params[0]) {
		return Continue
	}
	channel := event.Params[0]
	ch, ok := t.Channel(channel)
	if !ok {
		return Continue
	}

	chanModes := conn.Features.ChanModes()
	args := event.Params[1:]
	if event.Trailing != "" || event.EmptyTrailing {
		args = append(append([]string{}, args...), event.Trailing)
	}
	if len(args) == 0 {
		return Continue
	}

	parsed := chanModes.parse(args[0], args[1:])

	var userModes []CMode
	var chanWide []CMode
	for _, m := range parsed {
		if userModeLetters[m.name] {
			userModes = append(userModes, m)
		} else {
			chanWide = append(chanWide, m)
		}
	}

	for _, m := range userModes {
		ch.setUserMode(m.name, m.args, m.add)
	}
	ch.applyModes(chanWide)

	return Continue
}

// onNames handles RPL_NAMREPLY (353): Params are [nick, chan-type, channel],
// Trailing is the space-separated, prefix-decorated nick list.
func (t *ChannelTracker) onNames(conn *ServerConn, event Event) HandlerResult {
	if len(event.Params) < 3 {
		return Continue
	}
	channel := event.Params[2]
	ch := t.getOrCreate(channel)

	modeLetters, modeChars := conn.Features.Prefixes()

	for _, entry := range strings.Fields(event.Last()) {
		prefixes, nick, ok := parseUserPrefix(entry)
		if !ok {
			continue
		}

		ch.addUser(nick)

		for _, c := range prefixes {
			if i := strings.IndexRune(modeChars, c); i >= 0 && i < len(modeLetters) {
				ch.setUserMode(modeLetters[i], nick, true)
			}
		}
	}

	return Continue
}
