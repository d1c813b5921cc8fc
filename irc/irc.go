/*
Package irc implements the core of a multi-user IRC chat server: a
connection multiplexer plus protocol state machine speaking the RFC 1459
line protocol.

# Architecture

Connections are accepted on a net.Listener; each gets a goroutine that
only reads bytes and frames them into lines (see Framer in message.go).
Those lines are forwarded as Events onto one shared channel, drained by a
single event-loop goroutine (Server.eventLoop) that owns the client and
channel registries exclusively — no locking is needed anywhere in the
core, since there is only ever one goroutine mutating state.

# Registration

Every connection starts unauthenticated. PASS must match the server's
configured password before NICK and USER are accepted; once both are set,
the client is Registered and receives a one-time welcome burst (numerics
001, 375, 376).

# Channels

Channel names begin with "#" or "&" (a bare name is normalized by
prepending "#"). A channel's creator becomes its first operator.
Supported modes: i (invite-only), t (topic-restricted), k (key), l
(member limit), and the per-member o (operator) flag, including the
asymmetric policy that an operator may demote themselves from +o but may
not demote another operator.

# Commands

PASS, NICK, USER, JOIN, PART, PRIVMSG, NOTICE, KICK, INVITE, TOPIC, MODE,
PING, PONG, QUIT. Clients may prefix any command with "/" or "\", which
is stripped.

# Usage

	server := irc.NewServer(password, motd)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
	    log.Fatal(err)
	}
	if err := server.Serve(ln); err != nil {
	    log.Fatal(err)
	}
*/
package irc
