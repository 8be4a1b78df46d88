package irc

import (
	"bufio"
	"net"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type lineSink struct {
	mu    sync.Mutex
	lines []string
}

func (ls *lineSink) count(substr string) int {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	n := 0
	for _, line := range ls.lines {
		if strings.Contains(line, substr) {
			n++
		}
	}
	return n
}

// sinkClient is a pipeClient whose peer end records every line the
// server writes to it.
func sinkClient(t *testing.T, s *Server, nick string) (*Client, *lineSink) {
	t.Helper()
	server, peer := net.Pipe()
	t.Cleanup(func() {
		server.Close()
		peer.Close()
	})

	sink := &lineSink{}
	go func() {
		reader := textproto.NewReader(bufio.NewReader(peer))
		for {
			line, err := reader.ReadLine()
			if err != nil {
				return
			}
			sink.mu.Lock()
			sink.lines = append(sink.lines, line)
			sink.mu.Unlock()
		}
	}()

	c := newClient(server, s)
	c.mu.Lock()
	c.nick = nick
	c.user = nick
	c.mu.Unlock()
	return c, sink
}

func TestQuitTwiceBroadcastsOnce(t *testing.T) {
	s := testServer()
	bob, sink := sinkClient(t, s, "bob")
	alice := pipeClient(t, s, "alice")

	ch := s.channels.GetOrCreate("#go")
	ch.Join(bob)
	ch.Join(alice)
	s.users.Register(alice)
	alice.mu.Lock()
	alice.channels = []string{"#go"}
	alice.mu.Unlock()

	// The explicit QUIT and the read-loop teardown both reach Quit;
	// the second call must produce no second broadcast or removal.
	alice.Quit("bye")
	alice.Quit("bye")

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, sink.count("QUIT :bye"))

	_, ok := s.users.Get("alice")
	assert.False(t, ok)
	assert.False(t, ch.IsMember(alice))
	assert.True(t, ch.IsMember(bob))
}

func TestNickClaimEvictsZombieHolder(t *testing.T) {
	s := testServer()

	// A session whose transport already failed but whose directory
	// entry still exists.
	zombie := pipeClient(t, s, "alice")
	s.users.Register(zombie)
	zombie.failed.Store(true)

	fresh := pipeClient(t, s, "")
	fresh.handleNick("alice")

	got, ok := s.users.Get("alice")
	assert.True(t, ok)
	assert.Same(t, fresh, got, "fresh session should hold the nick")
	assert.True(t, zombie.Closed())
	assert.False(t, zombie.alive.Load(), "zombie should be torn down")
}

func TestNickToOwnNickIsNoOp(t *testing.T) {
	s := testServer()
	alice := pipeClient(t, s, "alice")
	s.users.Register(alice)

	alice.handleNick("alice")

	got, _ := s.users.Get("alice")
	assert.Same(t, alice, got)
	assert.False(t, alice.Closed())
}

func TestRenameMovesDirectoryEntry(t *testing.T) {
	s := testServer()
	alice := pipeClient(t, s, "alice")
	s.users.Register(alice)

	alice.handleNick("alicia")

	_, oldExists := s.users.Get("alice")
	assert.False(t, oldExists)
	got, ok := s.users.Get("alicia")
	assert.True(t, ok)
	assert.Same(t, alice, got)
	assert.Equal(t, "alicia", alice.Nick())
}
