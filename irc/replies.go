package irc

import (
	"fmt"
	"strings"
)

// Reply is one outbound protocol line. The variants form a closed set,
// one per reply kind, each carrying its own typed fields; an Encoder
// turns a variant into the wire line for a particular session.
type Reply interface {
	line(e Encoder) string
}

// Encoder formats replies for one recipient session. Numeric replies
// embed the recipient's nick, so each session encodes with its own
// Encoder value.
type Encoder struct {
	ServerName string
	Nick       string
}

// Encode returns the wire line for r, without the trailing CRLF.
func (e Encoder) Encode(r Reply) string {
	return r.line(e)
}

// JoinReply announces a channel join. Prefix is the joiner's
// nick!~user@host mask.
type JoinReply struct {
	Prefix  string
	Channel string
}

func (r JoinReply) line(Encoder) string {
	return fmt.Sprintf("%s JOIN :%s", r.Prefix, r.Channel)
}

// PartReply announces a channel departure.
type PartReply struct {
	Prefix  string
	Channel string
	Message string
}

func (r PartReply) line(Encoder) string {
	return fmt.Sprintf("%s PART %s :%s", r.Prefix, r.Channel, r.Message)
}

// QuitReply announces a session quitting the server.
type QuitReply struct {
	Prefix  string
	Message string
}

func (r QuitReply) line(Encoder) string {
	return fmt.Sprintf("%s QUIT :%s", r.Prefix, r.Message)
}

// PrivmsgReply relays a PRIVMSG to a channel or a nick.
type PrivmsgReply struct {
	Prefix string
	Target string
	Text   string
}

func (r PrivmsgReply) line(Encoder) string {
	return fmt.Sprintf("%s PRIVMSG %s :%s", r.Prefix, r.Target, r.Text)
}

// NoticeReply relays a NOTICE to a channel or a nick.
type NoticeReply struct {
	Prefix string
	Target string
	Text   string
}

func (r NoticeReply) line(Encoder) string {
	return fmt.Sprintf("%s NOTICE %s :%s", r.Prefix, r.Target, r.Text)
}

// TopicReply announces a topic change.
type TopicReply struct {
	Prefix  string
	Channel string
	Text    string
}

func (r TopicReply) line(Encoder) string {
	return fmt.Sprintf("%s TOPIC %s :%s", r.Prefix, r.Channel, r.Text)
}

// NickReply announces a nick change to every user who can see the
// renamed session.
type NickReply struct {
	Prefix  string
	NewNick string
}

func (r NickReply) line(Encoder) string {
	return fmt.Sprintf("%s NICK :%s", r.Prefix, r.NewNick)
}

// ModeReply echoes a MODE command back unmodified. MODE is a stub.
type ModeReply struct {
	Prefix string
	Target string
	Rest   string
}

func (r ModeReply) line(Encoder) string {
	return fmt.Sprintf("%s MODE %s :%s", r.Prefix, r.Target, r.Rest)
}

// PingReply is the keepalive probe sent by the server.
type PingReply struct {
	Server string
}

func (r PingReply) line(Encoder) string {
	return fmt.Sprintf("PING :%s", r.Server)
}

// PongReply answers a client PING.
type PongReply struct {
	Server string
	Peer   string
	Token  string
}

func (r PongReply) line(Encoder) string {
	return fmt.Sprintf("PONG %s %s :%s", r.Server, r.Peer, r.Token)
}

// NumericReply is a three-digit status reply addressed to the
// recipient's nick ("*" before a nick is known).
type NumericReply struct {
	Code     int
	Params   []string
	Trailing string
}

func (r NumericReply) line(e Encoder) string {
	nick := e.Nick
	if nick == "" {
		nick = "*"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, ":%s %03d %s", e.ServerName, r.Code, nick)
	for _, p := range r.Params {
		sb.WriteString(" ")
		sb.WriteString(p)
	}
	sb.WriteString(" :")
	sb.WriteString(r.Trailing)
	return sb.String()
}

// RawReply carries a preformatted line.
type RawReply struct {
	Line string
}

func (r RawReply) line(Encoder) string {
	return r.Line
}
