package irc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMessageBasic(t *testing.T) {
	msg := ParseMessage("JOIN #chat")
	assert.Equal(t, "JOIN", msg.Command)
	assert.Equal(t, []string{"#chat"}, msg.Params)
}

func TestParseMessageTrailing(t *testing.T) {
	msg := ParseMessage("PRIVMSG #chat :hello there friend")
	assert.Equal(t, "PRIVMSG", msg.Command)
	assert.Equal(t, []string{"#chat", "hello there friend"}, msg.Params)
}

func TestParseMessageSlashPrefix(t *testing.T) {
	msg := ParseMessage("/join #chat")
	assert.Equal(t, "JOIN", msg.Command)
}

func TestParseMessageEmptyVerb(t *testing.T) {
	assert.Nil(t, ParseMessage(""))
}

func TestParseMessageRoundTrip(t *testing.T) {
	msg := ParseMessage("KICK #chat bob :Kicked by operator")
	assert.Equal(t, "KICK #chat bob :Kicked by operator", msg.String())
}

func TestFramerSplitsOnCRLF(t *testing.T) {
	var f Framer
	lines := f.Feed([]byte("PASS secret\r\nNICK alice\r\n"))
	assert.Equal(t, []string{"PASS secret", "NICK alice"}, lines)
}

func TestFramerBuffersPartialLine(t *testing.T) {
	var f Framer
	lines := f.Feed([]byte("NICK al"))
	assert.Empty(t, lines)

	lines = f.Feed([]byte("ice\r\n"))
	assert.Equal(t, []string{"NICK alice"}, lines)
}

func TestFormatAndParseHostmask(t *testing.T) {
	mask := FormatHostmask("alice", "alice", "localhost")
	nick, user, host := ParseHostmask(mask)
	assert.Equal(t, "alice", nick)
	assert.Equal(t, "alice", user)
	assert.Equal(t, "localhost", host)
}
