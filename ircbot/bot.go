// Package ircbot is a small girc-based client for driving a channel
// from Go code: connect, join, announce and react to messages. It is
// the companion client for services that want a presence on the server
// without speaking the wire protocol themselves.
package ircbot

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/lrstanley/girc"
)

// Config holds the bot's connection settings.
type Config struct {
	Server   string
	Port     int
	Nick     string
	User     string
	Realname string
	Password string
	UseTLS   bool
	Channels []string
}

// MessageHandler receives every PRIVMSG visible to the bot. target is
// the channel, or the bot's nick for a direct message.
type MessageHandler func(source, target, text string)

// Bot wraps a girc client with join bookkeeping and an outbound
// message buffer for the window before the connection settles.
type Bot struct {
	config Config
	client *girc.Client

	mu        sync.Mutex
	connected bool
	pending   []pendingMessage
	onMessage MessageHandler
}

type pendingMessage struct {
	target string
	text   string
}

// New creates a bot. Nothing connects until Connect.
func New(cfg Config) *Bot {
	if cfg.User == "" {
		cfg.User = cfg.Nick
	}
	if cfg.Realname == "" {
		cfg.Realname = cfg.Nick
	}

	clientConfig := girc.Config{
		Server: cfg.Server,
		Port:   cfg.Port,
		Nick:   cfg.Nick,
		User:   cfg.User,
		Name:   cfg.Realname,
		SSL:    cfg.UseTLS,
	}
	if cfg.Password != "" {
		clientConfig.ServerPass = cfg.Password
	}

	b := &Bot{
		config: cfg,
		client: girc.New(clientConfig),
	}

	b.client.Handlers.Add(girc.CONNECTED, func(c *girc.Client, e girc.Event) {
		for _, channel := range b.config.Channels {
			c.Cmd.Join(channel)
		}
		b.mu.Lock()
		b.connected = true
		pending := b.pending
		b.pending = nil
		b.mu.Unlock()

		for i, msg := range pending {
			c.Cmd.Message(msg.target, msg.text)
			if i < len(pending)-1 {
				time.Sleep(100 * time.Millisecond)
			}
		}
	})

	b.client.Handlers.Add(girc.DISCONNECTED, func(c *girc.Client, e girc.Event) {
		b.mu.Lock()
		b.connected = false
		b.mu.Unlock()
		log.Printf("ircbot: disconnected from %s", b.config.Server)
	})

	b.client.Handlers.Add(girc.PRIVMSG, func(c *girc.Client, e girc.Event) {
		b.mu.Lock()
		handler := b.onMessage
		b.mu.Unlock()
		if handler != nil && len(e.Params) > 0 {
			handler(e.Source.Name, e.Params[0], e.Last())
		}
	})

	return b
}

// OnMessage registers the PRIVMSG handler. Only one handler is kept;
// a second call replaces the first.
func (b *Bot) OnMessage(handler MessageHandler) {
	b.mu.Lock()
	b.onMessage = handler
	b.mu.Unlock()
}

// Connect dials the server and blocks until the connection closes.
// Run it in a goroutine; messages sent before the connection settles
// are buffered and flushed on connect.
func (b *Bot) Connect() error {
	if err := b.client.Connect(); err != nil {
		return fmt.Errorf("ircbot: connect to %s: %w", b.config.Server, err)
	}
	return nil
}

// Close disconnects the bot.
func (b *Bot) Close() {
	b.client.Close()
}

// Connected reports whether the bot currently has a live connection.
func (b *Bot) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

// Join joins an additional channel.
func (b *Bot) Join(channel string) {
	b.client.Cmd.Join(channel)
}

// Say sends text to a channel or nick, buffering while disconnected.
func (b *Bot) Say(target, text string) {
	b.mu.Lock()
	if !b.connected {
		if len(b.pending) >= 100 {
			b.pending = b.pending[1:]
		}
		b.pending = append(b.pending, pendingMessage{target: target, text: text})
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()
	b.client.Cmd.Message(target, text)
}
