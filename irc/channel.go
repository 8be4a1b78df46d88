package irc

import (
	"log"
	"sync"

	"github.com/andrzejkrzywda/ircd/syncstore"
)

// DefaultTopic is the placeholder topic of a freshly created channel.
const DefaultTopic = "There is no topic"

// Channel is a named group-messaging context: a membership store
// (connection ID -> session), a topic and an operator set. Keying by
// connection ID keeps membership and the operator mark stable across
// nick changes. The first member ever added to an empty channel is
// granted the operator mark.
type Channel struct {
	name    string
	members *syncstore.Store[*Client]

	mu    sync.Mutex // guards topic and opers
	topic string
	opers map[string]bool
}

// NewChannel creates an empty channel. Use ChannelStore.GetOrCreate
// rather than calling this directly.
func NewChannel(name string) *Channel {
	log.Printf("[%s] create channel", name)
	return &Channel{
		name:    name,
		members: syncstore.New[*Client](),
		topic:   DefaultTopic,
		opers:   make(map[string]bool),
	}
}

// Name returns the channel name.
func (ch *Channel) Name() string {
	return ch.name
}

// Empty reports whether the channel has no members.
func (ch *Channel) Empty() bool {
	return ch.members.Len() == 0
}

// Len returns the current member count.
func (ch *Channel) Len() int {
	return ch.members.Len()
}

// IsMember reports whether c is in the membership store. Membership
// is by session identity, not nick: a member that changed its nick is
// still a member.
func (ch *Channel) IsMember(c *Client) bool {
	_, ok := ch.members.Get(c.ID())
	return ok
}

// add inserts c into the membership store, granting the operator mark
// when the channel was empty.
func (ch *Channel) add(c *Client) {
	ch.mu.Lock()
	if len(ch.opers) == 0 && ch.members.Len() == 0 {
		ch.opers[c.ID()] = true
	}
	ch.mu.Unlock()
	ch.members.Set(c.ID(), c)
}

func (ch *Channel) remove(c *Client) {
	ch.members.Delete(c.ID())
}

// Join adds c to the channel and announces the join to every member,
// the joiner included. Returns false without side effects if c is
// already a member.
func (ch *Channel) Join(c *Client) bool {
	if ch.IsMember(c) {
		return false
	}
	ch.add(c)
	joined := JoinReply{Prefix: c.Prefix(), Channel: ch.name}
	ch.members.ForEach(func(m *Client) {
		m.Send(joined)
	})
	return true
}

// Part announces the departure to every member, the leaver included
// (a client expects to see its own PART confirmed), then removes c.
// Returns false without side effects if c is not a member.
func (ch *Channel) Part(c *Client, message string) bool {
	if !ch.IsMember(c) {
		return false
	}
	parted := PartReply{Prefix: c.Prefix(), Channel: ch.name, Message: message}
	ch.members.ForEach(func(m *Client) {
		m.Send(parted)
	})
	ch.remove(c)
	return true
}

// Quit removes c first and then notifies the remaining members. The
// removal must precede the broadcast: the quitting session has already
// logically left and must not see its own quit notice.
func (ch *Channel) Quit(c *Client, message string) {
	ch.remove(c)
	quit := QuitReply{Prefix: c.Prefix(), Message: message}
	ch.members.ForEach(func(m *Client) {
		if m != c {
			m.Send(quit)
		}
	})
}

// Privmsg relays a PRIVMSG to every member except the sender.
func (ch *Channel) Privmsg(text string, from *Client) {
	msg := PrivmsgReply{Prefix: from.Prefix(), Target: ch.name, Text: text}
	ch.members.ForEach(func(m *Client) {
		if m != from {
			m.Send(msg)
		}
	})
}

// Notice relays a NOTICE to every member except the sender.
func (ch *Channel) Notice(text string, from *Client) {
	msg := NoticeReply{Prefix: from.Prefix(), Target: ch.name, Text: text}
	ch.members.ForEach(func(m *Client) {
		if m != from {
			m.Send(msg)
		}
	})
}

// Topic returns the current topic.
func (ch *Channel) Topic() string {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.topic
}

// SetTopic replaces the topic and announces the change to every
// member, the setter included.
func (ch *Channel) SetTopic(text string, by *Client) {
	ch.mu.Lock()
	ch.topic = text
	ch.mu.Unlock()
	changed := TopicReply{Prefix: by.Prefix(), Channel: ch.name, Text: text}
	ch.members.ForEach(func(m *Client) {
		m.Send(changed)
	})
}

// ModePrefix returns "@" when c holds the operator mark, "" otherwise.
// The mark is cosmetic: it decorates NAMES and WHO listings.
func (ch *Channel) ModePrefix(c *Client) string {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.opers[c.ID()] {
		return "@"
	}
	return ""
}

// Nicks returns a snapshot of the members' current nicks.
func (ch *Channel) Nicks() []string {
	nicks := make([]string, 0, ch.members.Len())
	for _, m := range ch.members.Values() {
		nicks = append(nicks, m.Nick())
	}
	return nicks
}

// EachMember visits every member; see syncstore.ForEach for the
// concurrency contract.
func (ch *Channel) EachMember(fn func(*Client)) {
	ch.members.ForEach(fn)
}
