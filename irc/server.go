package irc

import (
	"log"
	"net"
	"time"

	"github.com/presbrey/ircd/irc/metrics"
)

// Event carries something for the event loop to act on. The single-writer
// guarantee required by §5 comes from the fact that only Server.eventLoop
// ever reads one off s.events and mutates the client/channel registries
// — grounded on other_examples/horgh-catbox__ircd.go's Event/EventType/
// ToServerChan/eventLoop, the pack's own idiomatic translation of a
// poll()-driven single-threaded IRC server.
type Event struct {
	Type      EventType
	ClientID  int
	Conn      net.Conn
	Lines     []string
	Err       error
	ReplyChan chan Stats
}

// EventType enumerates what an Event means to the event loop.
type EventType int

const (
	NullEvent EventType = iota
	NewClientEvent
	DeadClientEvent
	MessageEvent
	StatsRequestEvent
)

// Stats is a point-in-time snapshot of server activity, answered through
// the event loop so admin/metrics queries never touch the registries from
// another goroutine.
type Stats struct {
	Connections int
	Channels    int
	Uptime      time.Duration
}

// Server owns the client registry, channel registry, and event loop. The
// registries and client state are touched only from within eventLoop; there
// is no mutex because there is only ever one goroutine mutating state (§5).
type Server struct {
	password string

	listener net.Listener
	events   chan Event
	shutdown chan struct{}

	clients  *ClientRegistry
	channels *ChannelRegistry

	motd    []string
	metrics *metrics.Metrics

	readBufBytes int

	nextClientID int
	startedAt    time.Time
}

// defaultReadBufBytes is the per-read buffer size (§4.A) used when the
// caller never overrides it via SetReadBufBytes.
const defaultReadBufBytes = 1024

// NewServer builds a server bound to password and ready to Serve on a
// listener. motd supplies the lines sent as part of the welcome burst's
// MOTD (372) frames.
func NewServer(password string, motd []string) *Server {
	return &Server{
		password:     password,
		events:       make(chan Event, 64),
		shutdown:     make(chan struct{}),
		clients:      newClientRegistry(),
		channels:     newChannelRegistry(),
		motd:         motd,
		readBufBytes: defaultReadBufBytes,
	}
}

// SetMetrics attaches a Metrics instance whose counters/gauges the event
// loop updates as connections and channels come and go. Optional: a nil
// or never-called SetMetrics leaves the core fully functional.
func (s *Server) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// SetReadBufBytes overrides the per-read buffer size each connection's
// reader goroutine uses (§4.A). Optional: values <= 0 are ignored and the
// default of 1024 bytes stands.
func (s *Server) SetReadBufBytes(n int) {
	if n > 0 {
		s.readBufBytes = n
	}
}

// Serve accepts connections on ln until Stop is called, and drives the
// single event-loop goroutine until shutdown. It blocks until the loop
// exits.
func (s *Server) Serve(ln net.Listener) error {
	s.listener = ln

	go s.acceptConnections()

	s.eventLoop()
	return nil
}

// Stop begins an orderly shutdown: the listener is closed, no further
// connections are accepted, and the event loop exits once it observes the
// shutdown channel.
func (s *Server) Stop() {
	close(s.shutdown)
	if s.listener != nil {
		s.listener.Close()
	}
}

// acceptConnections accepts sockets and spawns one reader goroutine per
// connection. Each reader goroutine only does I/O: it never touches the
// registries, only forwards Events onto the shared channel.
func (s *Server) acceptConnections() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return
			default:
				log.Printf("accept error: %v", err)
				continue
			}
		}

		s.events <- Event{Type: NewClientEvent, Conn: conn}
	}
}

// readConnection is the per-connection reader goroutine. It reads raw
// bytes, frames them into lines via a Framer, and forwards MessageEvents;
// a read error or EOF forwards one DeadClientEvent and exits.
func (s *Server) readConnection(id int, conn net.Conn) {
	framer := &Framer{}
	buf := make([]byte, s.readBufBytes)

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			lines := framer.Feed(buf[:n])
			if len(lines) > 0 {
				s.events <- Event{Type: MessageEvent, ClientID: id, Lines: lines}
			}
		}
		if err != nil {
			s.events <- Event{Type: DeadClientEvent, ClientID: id, Err: err}
			return
		}
	}
}

// eventLoop is the sole mutator of s.clients and s.channels (§5's "no
// locks required"). It runs until Stop closes s.shutdown.
func (s *Server) eventLoop() {
	s.startedAt = time.Now()

	for {
		select {
		case evt := <-s.events:
			switch evt.Type {
			case NewClientEvent:
				s.handleNewClient(evt.Conn)
			case MessageEvent:
				s.handleMessages(evt.ClientID, evt.Lines)
			case DeadClientEvent:
				s.handleDeadClient(evt.ClientID)
			case StatsRequestEvent:
				evt.ReplyChan <- s.snapshot()
			}

		case <-s.shutdown:
			return
		}
	}
}

func (s *Server) handleNewClient(conn net.Conn) {
	s.nextClientID++
	id := s.nextClientID

	c := newClient(id, conn)
	s.clients.add(c)

	log.Printf("[%s] connect from %s", c.traceID, c.hostname)

	if s.metrics != nil {
		s.metrics.Connections.Inc()
		s.metrics.ActiveConnection.Inc()
	}

	c.sendMessage("NOTICE", "*", "Please enter the password using PASS <password>.")

	go s.readConnection(id, conn)
}

func (s *Server) handleMessages(id int, lines []string) {
	c, ok := s.clients.get(id)
	if !ok {
		return
	}

	for _, line := range lines {
		msg := ParseMessage(line)
		if msg == nil || c.state == Quit {
			continue
		}
		s.dispatch(c, msg)
		if c.state == Quit {
			break
		}
	}
}

func (s *Server) handleDeadClient(id int) {
	c, ok := s.clients.get(id)
	if !ok {
		return
	}
	s.disconnect(c, "")
}

// disconnect tears a client out of every channel it's in, removes it from
// the client registry, and closes its socket. Only one cleanup path ever
// runs this (§5: "a single cleanup path").
func (s *Server) disconnect(c *Client, quitMessage string) {
	if c.state == Quit {
		return
	}
	c.state = Quit
	log.Printf("[%s] disconnect: %s", c.traceID, quitMessage)

	for chanName := range c.channels {
		ch, ok := s.channels.get(chanName)
		if !ok {
			continue
		}
		ch.relayQuit(s.clients, c, quitMessage)
		ch.removeMember(c.id)
	}

	s.clients.remove(c.id)
	c.writer.Flush()
	c.conn.Close()

	if s.metrics != nil {
		s.metrics.Disconnects.Inc()
		s.metrics.ActiveConnection.Dec()
		s.metrics.Channels.Set(float64(s.channels.count()))
	}
}

// snapshot answers a Stats request. Only eventLoop calls this, so it's safe
// to read the registries directly.
func (s *Server) snapshot() Stats {
	return Stats{
		Connections: s.clients.count(),
		Channels:    s.channels.count(),
		Uptime:      time.Since(s.startedAt),
	}
}

// Snapshot backs the StatsSource interface consumed by irc/admin (through
// the adapter in irc/ircd, since admin.Stats is a separate type). It routes the request through the event loop channel so the admin HTTP
// goroutine never touches the registries directly, preserving "no locks"
// even though admin runs on its own goroutine.
func (s *Server) Snapshot() Stats {
	reply := make(chan Stats, 1)
	s.events <- Event{Type: StatsRequestEvent, ReplyChan: reply}
	return <-reply
}
