package irc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeNumeric(t *testing.T) {
	e := Encoder{ServerName: "test.local", Nick: "alice"}

	assert.Equal(t, ":test.local 001 alice :Welcome!",
		e.Encode(NumericReply{Code: RPL_WELCOME, Trailing: "Welcome!"}))
	assert.Equal(t, ":test.local 353 alice = #go :@alice bob",
		e.Encode(NumericReply{Code: RPL_NAMREPLY, Params: []string{"=", "#go"}, Trailing: "@alice bob"}))
}

func TestEncodeNumericWithoutNick(t *testing.T) {
	e := Encoder{ServerName: "test.local"}

	assert.Equal(t, ":test.local 433 * bob :Nickname is already in use.",
		e.Encode(NumericReply{Code: ERR_NICKNAMEINUSE, Params: []string{"bob"}, Trailing: "Nickname is already in use."}))
}

func TestEncodeRelays(t *testing.T) {
	e := Encoder{ServerName: "test.local", Nick: "bob"}
	prefix := ":alice!~alice@10.0.0.1"

	assert.Equal(t, ":alice!~alice@10.0.0.1 JOIN :#go",
		e.Encode(JoinReply{Prefix: prefix, Channel: "#go"}))
	assert.Equal(t, ":alice!~alice@10.0.0.1 PART #go :bye",
		e.Encode(PartReply{Prefix: prefix, Channel: "#go", Message: "bye"}))
	assert.Equal(t, ":alice!~alice@10.0.0.1 QUIT :gone",
		e.Encode(QuitReply{Prefix: prefix, Message: "gone"}))
	assert.Equal(t, ":alice!~alice@10.0.0.1 PRIVMSG #go :hi",
		e.Encode(PrivmsgReply{Prefix: prefix, Target: "#go", Text: "hi"}))
	assert.Equal(t, ":alice!~alice@10.0.0.1 NOTICE bob :psst",
		e.Encode(NoticeReply{Prefix: prefix, Target: "bob", Text: "psst"}))
	assert.Equal(t, ":alice!~alice@10.0.0.1 TOPIC #go :news",
		e.Encode(TopicReply{Prefix: prefix, Channel: "#go", Text: "news"}))
	assert.Equal(t, ":alice!~alice@10.0.0.1 NICK :alicia",
		e.Encode(NickReply{Prefix: prefix, NewNick: "alicia"}))
}

func TestEncodePingPong(t *testing.T) {
	e := Encoder{ServerName: "test.local", Nick: "alice"}

	assert.Equal(t, "PING :test.local", e.Encode(PingReply{Server: "test.local"}))
	assert.Equal(t, "PONG test.local 10.0.0.1 :token",
		e.Encode(PongReply{Server: "test.local", Peer: "10.0.0.1", Token: "token"}))
}
