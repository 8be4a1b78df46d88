package ircbot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewFillsDefaults(t *testing.T) {
	b := New(Config{Server: "irc.example.org", Port: 6667, Nick: "announcer"})

	assert.Equal(t, "announcer", b.config.User)
	assert.Equal(t, "announcer", b.config.Realname)
	assert.False(t, b.Connected())
}

func TestSayBuffersWhileDisconnected(t *testing.T) {
	b := New(Config{Server: "irc.example.org", Port: 6667, Nick: "announcer"})

	b.Say("#go", "one")
	b.Say("#go", "two")

	b.mu.Lock()
	defer b.mu.Unlock()
	assert.Len(t, b.pending, 2)
	assert.Equal(t, pendingMessage{target: "#go", text: "one"}, b.pending[0])
}

func TestSayBufferIsBounded(t *testing.T) {
	b := New(Config{Server: "irc.example.org", Port: 6667, Nick: "announcer"})

	for i := 0; i < 150; i++ {
		b.Say("#go", "spam")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	assert.Len(t, b.pending, 100)
}

func TestOnMessageReplacesHandler(t *testing.T) {
	b := New(Config{Server: "irc.example.org", Port: 6667, Nick: "announcer"})

	calls := 0
	b.OnMessage(func(source, target, text string) { calls++ })
	b.OnMessage(func(source, target, text string) { calls += 10 })

	b.mu.Lock()
	handler := b.onMessage
	b.mu.Unlock()
	handler("alice", "#go", "hi")
	assert.Equal(t, 10, calls)
}
