package irc

import (
	"regexp"
	"strings"
)

// Inbound lines are matched against an ordered, case-insensitive
// grammar table; the first matching pattern wins. The table is
// deliberately permissive, with overlapping grammars per command to
// tolerate client variance (Opera quotes USER differently, ChatZilla
// collapses the middle USER fields, some clients colon-prefix PART).
var (
	prefixPattern  = regexp.MustCompile(`^:[^ ]+ +(.+)$`)
	blankPattern   = regexp.MustCompile(`^[ ]*$`)
	channelPattern = regexp.MustCompile(`^[#$&]`)
)

type grammar struct {
	pattern *regexp.Regexp
	run     func(c *Client, m []string)
}

var grammars = []grammar{
	{regexp.MustCompile(`(?i)^PASS +(.+)$`), func(c *Client, m []string) {
		c.handlePass(strings.TrimSpace(m[1]))
	}},
	{regexp.MustCompile(`(?i)^NICK +(.+)$`), func(c *Client, m []string) {
		c.handleNick(strings.TrimSpace(m[1]))
	}},
	{regexp.MustCompile(`(?i)^USER +([^ ]+) +([0-9]+) +([^ ]+) +:(.*)$`), func(c *Client, m []string) {
		c.handleUser(m[1], m[2], m[3], m[4])
	}},
	// ChatZilla sends USER without the mode and unused fields.
	{regexp.MustCompile(`(?i)^USER +([^ ]+) +[^:]*:(.*)`), func(c *Client, m []string) {
		c.handleUser(m[1], "", "", m[2])
	}},
	{regexp.MustCompile(`(?i)^JOIN +(.+)$`), func(c *Client, m []string) {
		c.handleJoin(m[1])
	}},
	{regexp.MustCompile(`(?i)^PING +([^ ]+) *(.*)$`), func(c *Client, m []string) {
		c.handlePing(m[1], m[2])
	}},
	{regexp.MustCompile(`(?i)^PONG +:(.+)$`), func(c *Client, m []string) {
		c.handlePong(m[1])
	}},
	{regexp.MustCompile(`(?i)^PONG +(.+)$`), func(c *Client, m []string) {
		c.handlePong(m[1])
	}},
	{regexp.MustCompile(`(?i)^PRIVMSG +([^ ]+) +:(.*)$`), func(c *Client, m []string) {
		c.handlePrivmsg(strings.TrimSpace(m[1]), m[2])
	}},
	{regexp.MustCompile(`(?i)^NOTICE +([^ ]+) +(.*)$`), func(c *Client, m []string) {
		c.handleNotice(strings.TrimSpace(m[1]), strings.TrimPrefix(m[2], ":"))
	}},
	// Some clients colon-prefix the channel in PART.
	{regexp.MustCompile(`(?i)^PART :+([^ ]+) *(.*)$`), func(c *Client, m []string) {
		c.handlePart(m[1], strings.TrimPrefix(m[2], ":"))
	}},
	{regexp.MustCompile(`(?i)^PART +([^ ]+) *(.*)$`), func(c *Client, m []string) {
		c.handlePart(m[1], strings.TrimPrefix(m[2], ":"))
	}},
	{regexp.MustCompile(`(?i)^QUIT :(.*)$`), func(c *Client, m []string) {
		c.Quit(m[1])
	}},
	{regexp.MustCompile(`(?i)^QUIT *(.*)$`), func(c *Client, m []string) {
		c.Quit(m[1])
	}},
	{regexp.MustCompile(`(?i)^TOPIC +([^ ]+) *:*(.*)$`), func(c *Client, m []string) {
		c.handleTopic(m[1], m[2])
	}},
	{regexp.MustCompile(`(?i)^AWAY +:(.*)$`), func(c *Client, m []string) {
		c.handleAway(m[1])
	}},
	// Opera omits the colon.
	{regexp.MustCompile(`(?i)^AWAY +(.*)$`), func(c *Client, m []string) {
		c.handleAway(m[1])
	}},
	{regexp.MustCompile(`(?i)^:*([^ ])* *AWAY *$`), func(c *Client, m []string) {
		c.handleAway("")
	}},
	{regexp.MustCompile(`(?i)^LIST *(.*)$`), func(c *Client, m []string) {
		c.handleList(m[1])
	}},
	{regexp.MustCompile(`(?i)^WHOIS +([^ ]+) +(.+)$`), func(c *Client, m []string) {
		c.handleWhois(m[1], m[2])
	}},
	{regexp.MustCompile(`(?i)^WHOIS +([^ ]+)$`), func(c *Client, m []string) {
		c.handleWhois("", m[1])
	}},
	{regexp.MustCompile(`(?i)^WHO +([^ ]+) *(.*)$`), func(c *Client, m []string) {
		c.handleWho(m[1], m[2])
	}},
	{regexp.MustCompile(`(?i)^NAMES +([^ ]+) *(.*)$`), func(c *Client, m []string) {
		c.handleNames(m[1], m[2])
	}},
	{regexp.MustCompile(`(?i)^MODE +([^ ]+) *(.*)$`), func(c *Client, m []string) {
		c.handleMode(m[1], m[2])
	}},
	// besirc colon-prefixes the USERHOST nick list, against RFC 2812.
	{regexp.MustCompile(`(?i)^USERHOST +:(.+)$`), func(c *Client, m []string) {
		c.handleUserhost(m[1])
	}},
	{regexp.MustCompile(`(?i)^USERHOST +(.+)$`), func(c *Client, m []string) {
		c.handleUserhost(m[1])
	}},
	{regexp.MustCompile(`(?i)^VERSION *$`), func(c *Client, m []string) {
		c.handleVersion()
	}},
}

// IsChannelName reports whether name carries a channel sigil.
func IsChannelName(name string) bool {
	return channelPattern.MatchString(name)
}

// WildcardMatch reports whether s matches a shell-style pattern where
// '*' matches any run of characters.
func WildcardMatch(s, pattern string) bool {
	if pattern == "*" {
		return true
	}
	if !strings.Contains(pattern, "*") {
		return s == pattern
	}

	parts := strings.Split(pattern, "*")
	if parts[0] != "" && !strings.HasPrefix(s, parts[0]) {
		return false
	}
	if parts[len(parts)-1] != "" && !strings.HasSuffix(s, parts[len(parts)-1]) {
		return false
	}

	pos := 0
	for _, part := range parts {
		if part == "" {
			continue
		}
		next := strings.Index(s[pos:], part)
		if next == -1 {
			return false
		}
		pos += next + len(part)
	}
	return true
}
