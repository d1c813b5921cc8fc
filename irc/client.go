package irc

import (
	"bufio"
	"fmt"
	"net"
	"strings"

	"github.com/google/uuid"
)

// serverName is the fixed wire identity this server presents in every
// prefixed reply and numeric. It is never configurable.
const serverName = "irc.localhost"

// registrationState is the per-connection registration automaton (§4.E).
type registrationState int

const (
	AwaitingPass registrationState = iota
	AwaitingNickUser
	Registered
	Quit
)

// Client is one connected peer. All mutation happens from within the
// server's single event-loop goroutine; Client carries no mutex.
type Client struct {
	id       int
	conn     net.Conn
	writer   *bufio.Writer
	traceID  string
	hostname string

	state         registrationState
	authenticated bool
	hasNick       bool
	hasUser       bool
	welcomeSent   bool

	nickname string
	username string
	realname string

	framer Framer

	// channels is the inverse index (client -> joined channels), kept so
	// disconnect teardown is O(joined channels) rather than a full sweep
	// of the channel registry.
	channels map[string]bool

	currentChannel string
}

func newClient(id int, conn net.Conn) *Client {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		host = conn.RemoteAddr().String()
	}

	return &Client{
		id:       id,
		conn:     conn,
		writer:   bufio.NewWriter(conn),
		traceID:  uuid.NewString(),
		hostname: host,
		state:    AwaitingPass,
		channels: make(map[string]bool),
	}
}

// registered reports whether the client has completed the full handshake:
// authenticated, nickname set, and username set.
func (c *Client) registered() bool {
	return c.authenticated && c.hasNick && c.hasUser
}

// hostmask returns the nick!user@host prefix used on relayed messages.
func (c *Client) hostmask() string {
	return FormatHostmask(c.nickname, c.username, "localhost")
}

// sendRaw writes one already-formatted line, appending the wire CRLF
// terminator, and flushes immediately (writes are best-effort per §5 —
// failures are not retried).
func (c *Client) sendRaw(line string) {
	_, err := c.writer.WriteString(line + "\r\n")
	if err == nil {
		c.writer.Flush()
	}
}

// sendMessage sends a server-prefixed command line that isn't a numeric
// reply, e.g. the password-prompt NOTICE.
func (c *Client) sendMessage(command string, params ...string) {
	var sb strings.Builder
	sb.WriteString(":")
	sb.WriteString(serverName)
	sb.WriteString(" ")
	sb.WriteString(command)

	for i, param := range params {
		sb.WriteString(" ")
		if i == len(params)-1 && (strings.Contains(param, " ") || param == "") {
			sb.WriteString(":")
		}
		sb.WriteString(param)
	}

	c.sendRaw(sb.String())
}

// sendNumeric sends a numeric reply addressed to this client, using its
// nickname (or "*" before one is set) as the target per RFC 2812.
func (c *Client) sendNumeric(numeric int, message string) {
	var sb strings.Builder
	sb.WriteString(":")
	sb.WriteString(serverName)
	sb.WriteString(" ")
	sb.WriteString(fmt.Sprintf("%03d", numeric))
	sb.WriteString(" ")

	if c.nickname != "" {
		sb.WriteString(c.nickname)
	} else {
		sb.WriteString("*")
	}
	sb.WriteString(" ")
	sb.WriteString(message)

	c.sendRaw(sb.String())
}

// relayFrom writes a message as if sent by another client, prefixed with
// that client's hostmask rather than the server's identity. The message
// text of PRIVMSG/NOTICE is always sent as a ":"-prefixed trailing param.
func (c *Client) relayFrom(sender *Client, command string, params ...string) {
	var sb strings.Builder
	sb.WriteString(":")
	sb.WriteString(sender.hostmask())
	sb.WriteString(" ")
	sb.WriteString(command)

	textCommand := command == "PRIVMSG" || command == "NOTICE"
	for i, param := range params {
		sb.WriteString(" ")
		if i == len(params)-1 && (textCommand || strings.Contains(param, " ") || param == "") {
			sb.WriteString(":")
		}
		sb.WriteString(param)
	}

	c.sendRaw(sb.String())
}

// isValidNickname mirrors the teacher's permissive nickname check: any
// non-empty token without whitespace or the IRC-reserved separators.
func isValidNickname(nick string) bool {
	if nick == "" {
		return false
	}
	for _, r := range nick {
		if r == ' ' || r == ',' || r == '*' || r == '?' || r == '!' || r == '@' {
			return false
		}
	}
	return true
}

// isValidChannelName reports whether name already carries the "#" or "&"
// channel-name prefix required by §3.
func isValidChannelName(name string) bool {
	return len(name) > 1 && (name[0] == '#' || name[0] == '&')
}

// normalizeChannelName prepends "#" when a bare channel name is given, per
// the JOIN dispatch rule in §4.E.
func normalizeChannelName(name string) string {
	if name == "" {
		return name
	}
	if name[0] == '#' || name[0] == '&' {
		return name
	}
	return "#" + name
}

// ClientRegistry maps connection IDs to client records (4.C). Nickname
// lookup is linear, by design: uniqueness is a dispatcher concern, not the
// registry's (§9 open question 3 — duplicate nicknames are tolerated).
type ClientRegistry struct {
	byID map[int]*Client
}

func newClientRegistry() *ClientRegistry {
	return &ClientRegistry{byID: make(map[int]*Client)}
}

func (r *ClientRegistry) add(c *Client) {
	r.byID[c.id] = c
}

func (r *ClientRegistry) remove(id int) {
	delete(r.byID, id)
}

func (r *ClientRegistry) get(id int) (*Client, bool) {
	c, ok := r.byID[id]
	return c, ok
}

func (r *ClientRegistry) findByNickname(nick string) (*Client, bool) {
	for _, c := range r.byID {
		if c.nickname == nick {
			return c, true
		}
	}
	return nil, false
}

func (r *ClientRegistry) count() int {
	return len(r.byID)
}
