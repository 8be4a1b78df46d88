package irc

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"net"
	"net/textproto"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// registrationDeadline bounds how long an unregistered connection may
// idle before the first read fails.
const registrationDeadline = 60 * time.Second

// Client is one connected, not-necessarily-registered session. Identity
// fields are guarded by mu; teardown is gated by the alive flag so that
// racing quit paths (explicit QUIT, read failure, write failure,
// nick-collision eviction) run the cleanup exactly once.
type Client struct {
	id     string
	conn   net.Conn
	server *Server

	writer    *bufio.Writer
	writeLock sync.Mutex

	mu        sync.RWMutex
	nick      string
	user      string
	realname  string
	host      string
	pass      string
	away      string
	channels  []string
	welcomed  bool
	nickTries int

	alive  atomic.Bool
	failed atomic.Bool
}

func newClient(conn net.Conn, server *Server) *Client {
	c := &Client{
		id:     uuid.NewString(),
		conn:   conn,
		server: server,
		writer: bufio.NewWriter(conn),
		host:   peerHost(conn),
	}
	c.alive.Store(true)
	return c
}

// peerHost returns the host portion of the connection's remote address.
func peerHost(conn net.Conn) string {
	addr := conn.RemoteAddr().String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// handleConnection runs the session's read loop. Any read failure,
// including EOF, is treated as an implicit QUIT.
func (c *Client) handleConnection() {
	defer c.Quit("aborted..")

	log.Printf("[%s] *** new connection from %s", c.id, c.host)
	c.handleConnect()

	c.conn.SetReadDeadline(time.Now().Add(registrationDeadline))

	reader := textproto.NewReader(bufio.NewReader(c.conn))
	for {
		line, err := reader.ReadLine()
		if err != nil {
			if err != io.EOF {
				log.Printf("[%s] read error: %v", c.host, err)
			} else {
				log.Printf("[%s] disconnected", c.host)
			}
			return
		}
		c.server.dispatch(c, line)
	}
}

// ID returns the session's unique connection identifier.
func (c *Client) ID() string {
	return c.id
}

// Nick returns the session's current nick, empty until NICK succeeds.
func (c *Client) Nick() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.nick
}

// User returns the username supplied by USER.
func (c *Client) User() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user
}

// Realname returns the real name supplied by USER.
func (c *Client) Realname() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.realname
}

// Host returns the peer host string.
func (c *Client) Host() string {
	return c.host
}

// Away returns the away text, empty when the session is not away.
func (c *Client) Away() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.away
}

// Welcomed reports whether the welcome burst has been sent.
func (c *Client) Welcomed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.welcomed
}

// Channels returns a snapshot of the channel names the session
// currently occupies, in join order.
func (c *Client) Channels() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.channels...)
}

// Prefix returns the nick!~user@host source mask for this session.
func (c *Client) Prefix() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return fmt.Sprintf(":%s!~%s@%s", c.nick, c.user, c.host)
}

// Closed reports whether the session's connection is no longer usable.
// A directory entry whose session is closed is a zombie and may be
// evicted by a nick collision.
func (c *Client) Closed() bool {
	return !c.alive.Load() || c.failed.Load()
}

func (c *Client) encoder() Encoder {
	return Encoder{ServerName: c.server.Name(), Nick: c.Nick()}
}

// Send encodes r and writes it to the peer. A write failure marks the
// session failed and closes the connection; the read loop then runs the
// implicit-QUIT cleanup.
func (c *Client) Send(r Reply) {
	line := c.encoder().Encode(r)
	if c.server.config.Debug {
		log.Printf("[%s] => %s", c.host, line)
	}

	c.writeLock.Lock()
	defer c.writeLock.Unlock()

	if _, err := c.writer.WriteString(line + "\r\n"); err == nil {
		if err = c.writer.Flush(); err == nil {
			c.server.metrics.linesOut.Inc()
			return
		}
	}
	if c.failed.CompareAndSwap(false, true) {
		log.Printf("[%s] write failed, closing %s", c.host, c.Nick())
		c.conn.Close()
	}
}

func (c *Client) sendNumeric(code int, trailing string, params ...string) {
	c.Send(NumericReply{Code: code, Params: params, Trailing: trailing})
}

func (c *Client) sendNoSuchNick(nick string) {
	c.sendNumeric(ERR_NOSUCHNICK, "No such nick/channel", nick)
}

func (c *Client) sendNoSuchChannel(channel string) {
	c.sendNumeric(ERR_NOSUCHCHANNEL, "That channel doesn't exist", channel)
}

func (c *Client) sendNotOnChannel(channel string) {
	c.sendNumeric(ERR_NOTONCHANNEL, "Not a member of that channel", channel)
}

// sendPing emits the keepalive probe. Dead peers surface as transport
// failures on this write or the next.
func (c *Client) sendPing() {
	c.Send(PingReply{Server: c.server.Name()})
}

// handleConnect greets a freshly accepted connection.
func (c *Client) handleConnect() {
	c.Send(RawReply{Line: fmt.Sprintf("NOTICE AUTH :%s initialized, welcome.", Version)})
}

func (c *Client) handlePass(pass string) {
	c.mu.Lock()
	c.pass = pass
	c.mu.Unlock()
}

// handleNick implements nick assignment and collision resolution: a
// free nick is adopted (the first assignment may complete registration,
// later ones are renames announced to every user that shares a channel
// with this session); a nick held by a live session is refused with
// ERR_NICKNAMEINUSE until the retry budget forces an abort; a nick held
// by a closed session evicts the zombie and is then claimed.
func (c *Client) handleNick(newNick string) {
	existing, taken := c.server.users.Get(newNick)

	if taken && existing == c {
		return // renaming to our own nick is a no-op
	}

	if taken && !existing.Closed() {
		c.sendNumeric(ERR_NICKNAMEINUSE, "Nickname is already in use.", "*", newNick)
		c.mu.Lock()
		c.nickTries++
		tries := c.nickTries
		c.mu.Unlock()
		if tries > c.server.config.Limits.NickTries {
			log.Printf("[%s] kicking spurious user %s after %d tries", c.host, newNick, tries)
			c.Quit("aborted..")
		}
		return
	}

	if taken {
		// The registration is a zombie: its connection is already
		// closed. Evict it, then claim the nick.
		log.Printf("[%s] evicting stale session holding %s", c.host, newNick)
		existing.Quit("aborted..")
	}

	c.mu.Lock()
	firstNick := c.nick == ""
	oldPrefix := fmt.Sprintf(":%s!~%s@%s", c.nick, c.user, c.host)
	oldNick := c.nick
	c.nick = newNick
	c.nickTries = 0
	c.mu.Unlock()

	if !firstNick {
		c.server.users.Unregister(oldNick, c)
	}
	c.server.users.Register(c)

	if firstNick {
		c.maybeWelcome()
		return
	}

	// Announce the rename to every distinct user that can currently
	// see this session: itself plus the occupants of its channels.
	// Each observer is notified once even when reachable through
	// several shared channels.
	observers := map[string]*Client{newNick: c}
	for _, name := range c.Channels() {
		ch, ok := c.server.channels.Get(name)
		if !ok {
			continue
		}
		ch.EachMember(func(m *Client) {
			observers[m.Nick()] = m
		})
	}
	renamed := NickReply{Prefix: oldPrefix, NewNick: newNick}
	for _, observer := range observers {
		observer.Send(renamed)
	}
}

func (c *Client) handleUser(user, mode, unused, realname string) {
	_ = mode
	_ = unused
	c.mu.Lock()
	c.user = user
	c.realname = realname
	c.mu.Unlock()
	c.maybeWelcome()
}

// maybeWelcome fires the welcome burst exactly once, as soon as both
// nick and username are known, regardless of NICK/USER arrival order.
func (c *Client) maybeWelcome() {
	c.mu.Lock()
	ready := c.nick != "" && c.user != "" && !c.welcomed
	pass := c.pass
	c.mu.Unlock()
	if !ready {
		return
	}

	if !c.server.config.CheckPassword(pass) {
		c.sendNumeric(ERR_PASSWDMISMATCH, "Password incorrect")
		return
	}

	c.mu.Lock()
	if c.welcomed {
		c.mu.Unlock()
		return
	}
	c.welcomed = true
	c.mu.Unlock()

	// Registered; lift the registration deadline.
	c.conn.SetReadDeadline(time.Time{})
	c.server.metrics.registrations.Inc()

	name := c.server.Name()
	c.sendNumeric(RPL_WELCOME, fmt.Sprintf("Welcome to this IRC server %s!%s@%s", c.Nick(), c.User(), c.host))
	c.sendNumeric(RPL_YOURHOST, fmt.Sprintf("Your host is %s, running version %s", name, Version))
	c.sendNumeric(RPL_CREATED, fmt.Sprintf("This server was created %s", c.server.startTime.Format(time.RFC1123)))
	c.sendNumeric(RPL_MYINFO, fmt.Sprintf("%s %s %s %s", name, Version, UserModes, ChannelModes))
	c.sendMOTD()
}

func (c *Client) sendMOTD() {
	c.sendNumeric(RPL_MOTDSTART, "- Message of the Day")
	for _, line := range c.server.config.MOTD {
		c.sendNumeric(RPL_MOTD, "- "+line)
	}
	c.sendNumeric(RPL_ENDOFMOTD, "- End of /MOTD command.")
}

// handleJoin processes a comma-separated channel list. An entry that
// fails the channel-name grammar rejects that entry with "no such
// channel" and abandons the remaining entries.
func (c *Client) handleJoin(list string) {
	for _, raw := range strings.Split(list, ",") {
		name := strings.TrimSpace(raw)
		if !IsChannelName(name) {
			c.sendNoSuchChannel(name)
			log.Printf("[%s] no such channel: %s", c.host, name)
			return
		}
		ch := c.server.channels.GetOrCreate(name)
		if !ch.Join(c) {
			log.Printf("[%s] already joined %s", c.host, name)
			continue
		}
		c.mu.Lock()
		c.channels = append(c.channels, name)
		c.mu.Unlock()
		c.sendTopic(name)
		c.sendNamesList(name)
	}
}

func (c *Client) handlePart(name, message string) {
	ch, ok := c.server.channels.Get(name)
	if !ok {
		c.sendNoSuchChannel(name)
		return
	}
	if !ch.Part(c, message) {
		c.sendNotOnChannel(name)
		return
	}
	c.dropChannel(name)
	c.server.pruneChannel(name)
}

func (c *Client) dropChannel(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, n := range c.channels {
		if n == name {
			c.channels = append(c.channels[:i], c.channels[i+1:]...)
			return
		}
	}
}

// Quit tears the session down: every occupied channel broadcasts the
// quit, the directory entry is removed and the connection closed. The
// alive flag makes a second, concurrent quit a silent no-op.
func (c *Client) Quit(message string) {
	if !c.alive.CompareAndSwap(true, false) {
		return
	}

	for _, name := range c.Channels() {
		if ch, ok := c.server.channels.Get(name); ok {
			ch.Quit(c, message)
			c.server.pruneChannel(name)
		}
	}
	c.server.users.Unregister(c.Nick(), c)
	log.Printf("[%s] %s %s", c.host, c.Nick(), message)
	c.conn.Close()
}

func (c *Client) handlePrivmsg(target, text string) {
	c.server.metrics.messages.WithLabelValues("PRIVMSG").Inc()
	if IsChannelName(target) {
		ch, ok := c.server.channels.Get(target)
		if !ok {
			c.sendNoSuchNick(target)
			return
		}
		ch.Privmsg(text, c)
		return
	}

	peer, ok := c.server.users.Get(target)
	if !ok {
		c.sendNoSuchNick(target)
		return
	}
	if away := peer.Away(); away != "" {
		c.sendNumeric(RPL_AWAY, away, peer.Nick())
	}
	peer.Send(PrivmsgReply{Prefix: c.Prefix(), Target: peer.Nick(), Text: text})
}

func (c *Client) handleNotice(target, text string) {
	c.server.metrics.messages.WithLabelValues("NOTICE").Inc()
	if IsChannelName(target) {
		ch, ok := c.server.channels.Get(target)
		if !ok {
			c.sendNoSuchNick(target)
			return
		}
		ch.Notice(text, c)
		return
	}

	peer, ok := c.server.users.Get(target)
	if !ok {
		c.sendNoSuchNick(target)
		return
	}
	peer.Send(NoticeReply{Prefix: c.Prefix(), Target: peer.Nick(), Text: text})
}

func (c *Client) handleTopic(name, topic string) {
	log.Printf("[%s] topic for %s: %q", c.host, name, topic)
	if strings.TrimSpace(topic) == "" {
		c.sendTopic(name)
		return
	}
	ch, ok := c.server.channels.Get(name)
	if !ok {
		c.sendNoSuchChannel(name)
		return
	}
	ch.SetTopic(topic, c)
}

func (c *Client) sendTopic(name string) {
	ch, ok := c.server.channels.Get(name)
	if !ok {
		c.sendNotOnChannel(name)
		return
	}
	c.sendNumeric(RPL_TOPIC, ch.Topic(), name)
}

func (c *Client) sendNamesList(name string) {
	ch, ok := c.server.channels.Get(name)
	if !ok {
		log.Printf("[%s] names failed: %s", c.host, name)
		return
	}
	var names []string
	ch.EachMember(func(m *Client) {
		if nick := m.Nick(); nick != "" {
			names = append(names, ch.ModePrefix(m)+nick)
		}
	})
	c.sendNumeric(RPL_NAMREPLY, strings.Join(names, " "), "=", ch.Name())
	c.sendNumeric(RPL_ENDOFNAMES, "End of /NAMES list.", ch.Name())
}

func (c *Client) handleAway(text string) {
	log.Printf("[%s] away: %q", c.host, text)
	c.mu.Lock()
	if strings.TrimSpace(text) == "" {
		c.away = ""
		c.mu.Unlock()
		c.sendNumeric(RPL_UNAWAY, "You are no longer marked as being away")
		return
	}
	c.away = text
	c.mu.Unlock()
	c.sendNumeric(RPL_NOWAWAY, "You have been marked as being away")
}

// handleList lists the named channels when the argument looks like a
// channel list; any other argument (some clients send "<1000") lists
// everything.
func (c *Client) handleList(arg string) {
	c.sendNumeric(RPL_LISTSTART, "Users  Name", "Channel")
	if strings.HasPrefix(strings.TrimSpace(arg), "#") {
		for _, raw := range strings.Split(arg, ",") {
			if ch, ok := c.server.channels.Get(strings.TrimSpace(raw)); ok {
				c.sendNumeric(RPL_LIST, ch.Topic(), ch.Name(), fmt.Sprintf("%d", ch.Len()))
			}
		}
	} else {
		c.server.channels.EachChannel(func(ch *Channel) {
			c.sendNumeric(RPL_LIST, ch.Topic(), ch.Name(), fmt.Sprintf("%d", ch.Len()))
		})
	}
	c.sendNumeric(RPL_LISTEND, "End of /LIST")
}

func (c *Client) handleWhois(target, nicks string) {
	_ = target // target server selection is not supported
	if strings.TrimSpace(nicks) == "" {
		c.sendNumeric(ERR_NONICKNAMEGIVEN, "No nickname given")
		return
	}
	for _, raw := range strings.Split(nicks, ",") {
		nick := strings.TrimSpace(raw)
		peer, ok := c.server.users.Get(nick)
		if !ok {
			c.sendNoSuchNick(nick)
			return
		}
		c.sendNumeric(RPL_WHOISUSER, peer.Realname(), peer.Nick(), peer.User(), peer.Host(), "*")
		c.sendNumeric(RPL_WHOISCHANNELS, strings.Join(peer.Channels(), " "), peer.Nick())
		if away := peer.Away(); away != "" {
			c.sendNumeric(RPL_AWAY, away, peer.Nick())
		}
		c.sendNumeric(RPL_ENDOFWHOIS, "End of /WHOIS list", peer.Nick())
	}
}

// handleWho lists the occupants of a channel matching the mask, or,
// when no channel matches, every user whose synthetic
// "host.realname.nick" string matches the mask as a wildcard pattern.
func (c *Client) handleWho(mask, rest string) {
	_ = rest
	name := c.server.Name()
	if ch, ok := c.server.channels.Get(mask); ok {
		ch.EachMember(func(m *Client) {
			c.sendNumeric(RPL_WHOREPLY, "0 "+m.Realname(),
				mask, "~"+m.User(), m.Host(), name, m.Nick(), "H"+ch.ModePrefix(m))
		})
		c.sendNumeric(RPL_ENDOFWHO, "End of /WHO list.", mask)
		return
	}

	c.server.users.EachUser(func(m *Client) {
		synthetic := fmt.Sprintf("%s.%s.%s", m.Host(), m.Realname(), m.Nick())
		if !WildcardMatch(synthetic, mask) {
			return
		}
		channel := "*"
		if chs := m.Channels(); len(chs) > 0 {
			channel = chs[0]
		}
		c.sendNumeric(RPL_WHOREPLY, "0 "+m.Realname(),
			channel, "~"+m.User(), m.Host(), name, m.Nick(), "H")
	})
	c.sendNumeric(RPL_ENDOFWHO, "End of /WHO list.", mask)
}

func (c *Client) handleNames(channels, server string) {
	_ = server
	for _, raw := range strings.Split(channels, ",") {
		c.sendNamesList(strings.TrimSpace(raw))
	}
}

// handleMode echoes the request back unmodified. MODE is a stub.
func (c *Client) handleMode(target, rest string) {
	c.Send(ModeReply{Prefix: c.Prefix(), Target: target, Rest: rest})
}

func (c *Client) handleUserhost(nicks string) {
	var info []string
	for _, raw := range strings.Split(nicks, ",") {
		nick := strings.TrimSpace(raw)
		if peer, ok := c.server.users.Get(nick); ok {
			info = append(info, fmt.Sprintf("%s=-%s@%s", peer.Nick(), peer.Nick(), peer.Host()))
		}
	}
	c.sendNumeric(RPL_USERHOST, strings.Join(info, " "))
}

func (c *Client) handleVersion() {
	c.sendNumeric(RPL_VERSION, "", fmt.Sprintf("%s %s", Version, c.server.Name()))
}

func (c *Client) handlePing(token, rest string) {
	_ = rest
	c.Send(PongReply{Server: c.server.Name(), Peer: c.host, Token: token})
}

func (c *Client) handlePong(token string) {
	log.Printf("[%s] got pong: %s", c.host, token)
}

func (c *Client) handleUnknown(line string) {
	log.Printf("[%s] unknown: %q", c.host, line)
	command := line
	if i := strings.IndexByte(line, ' '); i > 0 {
		command = line[:i]
	}
	c.sendNumeric(ERR_UNKNOWNCOMMAND, "Unknown command", command)
}
