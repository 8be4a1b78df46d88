package irc

import "github.com/andrzejkrzywda/ircd/syncstore"

// UserStore is the nickname -> session directory. One entry per
// registered nick; entries move during nick changes.
type UserStore struct {
	*syncstore.Store[*Client]
}

// NewUserStore creates an empty user directory.
func NewUserStore() *UserStore {
	return &UserStore{Store: syncstore.New[*Client]()}
}

// Register stores the client under its current nick. Registering twice
// under the same nick overwrites, which is how a nick change finalizes.
func (s *UserStore) Register(c *Client) {
	s.Set(c.Nick(), c)
}

// Unregister removes the directory entry for nick only while it still
// maps to c. After a stale session has been evicted and its nick
// claimed by another client, the evicted session's teardown must not
// take the new registration with it.
func (s *UserStore) Unregister(nick string, c *Client) {
	s.DeleteIf(nick, func(cur *Client) bool { return cur == c })
}

// Nicks returns a snapshot of all registered nicks.
func (s *UserStore) Nicks() []string {
	return s.Keys()
}

// EachUser visits every registered session; see syncstore.ForEach for
// the concurrency contract.
func (s *UserStore) EachUser(fn func(*Client)) {
	s.ForEach(fn)
}

// ChannelStore is the channel name -> channel directory. Channels are
// created lazily on first join.
type ChannelStore struct {
	*syncstore.Store[*Channel]
}

// NewChannelStore creates an empty channel directory.
func NewChannelStore() *ChannelStore {
	return &ChannelStore{Store: syncstore.New[*Channel]()}
}

// GetOrCreate returns the channel stored under name, creating it if
// absent. Two sessions racing on the first join of a channel resolve to
// a single Channel instance.
func (s *ChannelStore) GetOrCreate(name string) *Channel {
	return s.GetOrSet(name, func() *Channel { return NewChannel(name) })
}

// Remove deletes the channel only while it is still empty. A session
// that joins between the emptiness check and the delete keeps the
// channel alive.
func (s *ChannelStore) Remove(name string) {
	s.DeleteIf(name, func(ch *Channel) bool { return ch.Empty() })
}

// Channels returns a snapshot of all channel names.
func (s *ChannelStore) Channels() []string {
	return s.Keys()
}

// EachChannel visits every channel; see syncstore.ForEach for the
// concurrency contract.
func (s *ChannelStore) EachChannel(fn func(*Channel)) {
	s.ForEach(fn)
}
