package irc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// matchLine runs a line through the grammar table the way dispatch
// does and returns the winning pattern's captures, nil when no grammar
// matches.
func matchLine(line string) []string {
	if m := prefixPattern.FindStringSubmatch(line); m != nil {
		line = m[1]
	}
	for _, g := range grammars {
		if m := g.pattern.FindStringSubmatch(line); m != nil {
			return m
		}
	}
	return nil
}

func TestGrammarCaptures(t *testing.T) {
	tests := []struct {
		line     string
		captures []string
	}{
		{"NICK alice", []string{"alice"}},
		{"nick alice", []string{"alice"}},
		{"USER joe 0 * :Joe User", []string{"joe", "0", "*", "Joe User"}},
		// ChatZilla collapses the middle USER fields
		{"USER joe :Joe User", []string{"joe", "Joe User"}},
		{"JOIN #go,#ruby", []string{"#go,#ruby"}},
		{"PRIVMSG #go :hello there", []string{"#go", "hello there"}},
		{"PART #go", []string{"#go", ""}},
		{"PART :#go", []string{"#go", ""}},
		{"TOPIC #go :new topic", []string{"#go", "new topic"}},
		{"TOPIC #go", []string{"#go", ""}},
		{"AWAY :lunch", []string{"lunch"}},
		{"AWAY", []string{""}},
		{"WHOIS bob", []string{"bob"}},
		{"WHOIS irc.local bob", []string{"irc.local", "bob"}},
		{"PING test.local", []string{"test.local", ""}},
		{"USERHOST :alice bob", []string{"alice bob"}},
		{"QUIT :bye now", []string{"bye now"}},
	}
	for _, tt := range tests {
		m := matchLine(tt.line)
		require.NotNil(t, m, "no grammar matched %q", tt.line)
		assert.Equal(t, tt.captures, m[1:], "captures for %q", tt.line)
	}
}

func TestGrammarStripsSourcePrefix(t *testing.T) {
	m := matchLine(":alice!~alice@10.0.0.1 PRIVMSG #go :hi")
	require.NotNil(t, m)
	assert.Equal(t, []string{"#go", "hi"}, m[1:])
}

func TestGrammarRejectsUnknown(t *testing.T) {
	assert.Nil(t, matchLine("FROBNICATE #go"))
}

func TestIsChannelName(t *testing.T) {
	assert.True(t, IsChannelName("#go"))
	assert.True(t, IsChannelName("&local"))
	assert.True(t, IsChannelName("$wild"))
	assert.False(t, IsChannelName("alice"))
	assert.False(t, IsChannelName(""))
}

func TestWildcardMatch(t *testing.T) {
	assert.True(t, WildcardMatch("anything", "*"))
	assert.True(t, WildcardMatch("10.0.0.1.Joe User.joe", "*joe"))
	assert.True(t, WildcardMatch("10.0.0.1.Joe User.joe", "10.*"))
	assert.True(t, WildcardMatch("10.0.0.1.Joe User.joe", "*Joe*"))
	assert.True(t, WildcardMatch("exact", "exact"))
	assert.False(t, WildcardMatch("exact", "other"))
	assert.False(t, WildcardMatch("10.0.0.1.Joe User.joe", "*bob"))
}
