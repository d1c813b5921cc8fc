package irc

import (
	"bytes"
	"fmt"
	"strings"
)

// Message represents a parsed IRC line: a verb plus positional arguments,
// with the last argument optionally being a trailing (":"-prefixed) one.
type Message struct {
	Prefix  string
	Command string
	Params  []string
}

// ParseMessage parses a single IRC line (no terminator) into a Message.
// Leading "/" or "\" on the verb is tolerated and stripped. Lines with an
// empty verb are ignored (nil).
func ParseMessage(line string) *Message {
	if line == "" {
		return nil
	}

	msg := &Message{
		Params: make([]string, 0),
	}

	if line[0] == ':' {
		parts := strings.SplitN(line[1:], " ", 2)
		if len(parts) < 2 {
			return nil
		}
		msg.Prefix = parts[0]
		line = parts[1]
	}

	parts := strings.SplitN(line, " ", 2)
	if len(parts) == 0 {
		return nil
	}

	verb := strings.TrimLeft(parts[0], "/\\")
	if verb == "" {
		return nil
	}
	msg.Command = strings.ToUpper(verb)

	if len(parts) > 1 {
		paramPart := parts[1]
		for paramPart != "" {
			paramPart = strings.TrimLeft(paramPart, " ")
			if paramPart == "" {
				break
			}
			if paramPart[0] == ':' {
				msg.Params = append(msg.Params, paramPart[1:])
				break
			}

			parts := strings.SplitN(paramPart, " ", 2)
			msg.Params = append(msg.Params, parts[0])
			if len(parts) > 1 {
				paramPart = parts[1]
			} else {
				break
			}
		}
	}

	return msg
}

// String renders the message back to wire form (no CRLF terminator).
func (m *Message) String() string {
	var builder strings.Builder

	if m.Prefix != "" {
		builder.WriteString(":")
		builder.WriteString(m.Prefix)
		builder.WriteString(" ")
	}

	builder.WriteString(m.Command)

	for i, param := range m.Params {
		builder.WriteString(" ")

		if i == len(m.Params)-1 && (strings.Contains(param, " ") || strings.HasPrefix(param, ":") || param == "") {
			builder.WriteString(":")
			builder.WriteString(param)
		} else {
			builder.WriteString(param)
		}
	}

	return builder.String()
}

// ParseHostmask parses a hostmask of the form nick!user@host.
func ParseHostmask(hostmask string) (nick, user, host string) {
	nickParts := strings.SplitN(hostmask, "!", 2)
	if len(nickParts) < 2 {
		nick = hostmask
		return
	}
	nick = nickParts[0]

	userHostParts := strings.SplitN(nickParts[1], "@", 2)
	if len(userHostParts) < 2 {
		user = nickParts[1]
		return
	}
	user = userHostParts[0]
	host = userHostParts[1]

	return
}

// FormatHostmask formats a nick/user/host triple as nick!user@host.
func FormatHostmask(nick, user, host string) string {
	return fmt.Sprintf("%s!%s@%s", nick, user, host)
}

// Framer accumulates bytes from one connection and yields complete,
// newline-terminated lines with any trailing "\r" stripped. It mirrors the
// accumulate-then-scan loop of the original C++ ChatServer's per-client
// read buffer, translated to a reusable byte buffer.
type Framer struct {
	buf []byte
}

// Feed appends newly-read bytes and returns every complete line they make
// available, oldest first. Bytes after the last terminator remain buffered
// for the next Feed call.
func (f *Framer) Feed(chunk []byte) []string {
	f.buf = append(f.buf, chunk...)

	var lines []string
	for {
		idx := bytes.IndexByte(f.buf, '\n')
		if idx < 0 {
			break
		}

		line := f.buf[:idx]
		if len(line) > 0 && line[len(line)-1] == '\r' {
			line = line[:len(line)-1]
		}
		lines = append(lines, string(line))

		f.buf = f.buf[idx+1:]
	}

	return lines
}
