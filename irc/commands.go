package irc

import (
	"fmt"
	"log"
	"strings"
)

// dispatch drives the registration automaton (4.E) and, once Registered,
// routes to the per-verb handler. It runs entirely inside eventLoop.
func (s *Server) dispatch(c *Client, msg *Message) {
	cmd := msg.Command
	params := msg.Params

	if !c.authenticated {
		switch cmd {
		case "PASS":
			s.handlePass(c, params)
		case "PING":
			s.handlePing(c, params)
		default:
			c.sendMessage("NOTICE", "*", "Please enter the password using PASS <password>.")
		}
		return
	}

	if !c.registered() {
		c.state = AwaitingNickUser
		switch cmd {
		case "NICK":
			s.handleNick(c, params)
		case "USER":
			s.handleUser(c, params)
		case "PASS":
			s.handlePass(c, params)
		case "PING":
			s.handlePing(c, params)
		default:
			c.sendNumeric(ERR_NOTREGISTERED, ":You have not registered")
		}

		if c.registered() && !c.welcomeSent {
			s.sendWelcome(c)
		}
		return
	}

	c.state = Registered

	switch cmd {
	case "PING":
		s.handlePing(c, params)
	case "PONG":
		// no keep-alive tracking (§5: no cancellation/timeouts)
	case "NICK":
		s.handleNick(c, params)
	case "USER":
		s.handleUser(c, params)
	case "JOIN":
		s.handleJoin(c, params)
	case "PART":
		s.handlePart(c, params)
	case "PRIVMSG":
		s.handlePrivmsg(c, params, true)
	case "NOTICE":
		s.handlePrivmsg(c, params, false)
	case "KICK":
		s.handleKick(c, params)
	case "INVITE":
		s.handleInvite(c, params)
	case "TOPIC":
		s.handleTopic(c, params)
	case "MODE":
		s.handleMode(c, params)
	case "QUIT":
		s.handleQuit(c, params)
	default:
		c.sendNumeric(ERR_UNKNOWNCOMMAND, fmt.Sprintf("%s :Unknown command", cmd))
	}
}

// sendWelcome emits the one-time welcome burst (001, 375, [372...], 376) the
// instant Registered first becomes true. With no configured MOTD lines this
// is exactly the three core frames spec §8 scenario 2 requires; any ambient
// MOTD lines from config are inserted as additional 372 frames between them.
func (s *Server) sendWelcome(c *Client) {
	c.sendNumeric(RPL_WELCOME, fmt.Sprintf(":Welcome to the Internet Relay Network %s", c.hostmask()))
	c.sendNumeric(RPL_MOTDSTART, fmt.Sprintf(":- %s Message of the day -", serverName))
	for _, line := range s.motd {
		c.sendNumeric(RPL_MOTD, ":- "+line)
	}
	c.sendNumeric(RPL_ENDOFMOTD, ":End of MOTD command")
	c.welcomeSent = true
}

func (s *Server) handlePass(c *Client, params []string) {
	if len(params) < 1 || params[0] == "" {
		c.sendNumeric(ERR_NEEDMOREPARAMS, "PASS :Not enough parameters")
		return
	}

	if params[0] != s.password {
		c.sendNumeric(ERR_PASSWDMISMATCH, ":Incorrect password.")
		s.disconnect(c, "")
		return
	}

	c.authenticated = true
	c.sendMessage("NOTICE", "*", "Password accepted.")
}

// handlePing replies with an unprefixed PONG, matching
// original_source/ChatServer.cpp's processCompleteMessage exactly: the
// token defaults to ":irc.localhost" and gets a ":" prepended if the
// client didn't supply one, but the reply itself carries no server prefix.
func (s *Server) handlePing(c *Client, params []string) {
	token := ":irc.localhost"
	if len(params) > 0 && params[0] != "" {
		token = params[0]
		if token[0] != ':' {
			token = ":" + token
		}
	}
	c.sendRaw("PONG " + token)
}

func (s *Server) handleNick(c *Client, params []string) {
	if len(params) < 1 || params[0] == "" {
		c.sendNumeric(ERR_NONICKNAMEGIVEN, ":No nickname given")
		return
	}
	if !isValidNickname(params[0]) {
		c.sendNumeric(ERR_NONICKNAMEGIVEN, ":No nickname given")
		return
	}

	c.nickname = params[0]
	c.hasNick = true
}

func (s *Server) handleUser(c *Client, params []string) {
	if len(params) < 4 || params[0] == "" {
		c.sendNumeric(ERR_NEEDMOREPARAMS, "USER :Not enough parameters")
		return
	}

	// §9 open question 4: accepted post-registration too, silently
	// overwriting; no 462 is emitted, per spec.md over the teacher's own
	// (stricter) handling.
	c.username = params[0]
	c.realname = params[len(params)-1]
	c.hasUser = true
}

func (s *Server) handleJoin(c *Client, params []string) {
	if len(params) < 1 || params[0] == "" {
		c.sendNumeric(ERR_NEEDMOREPARAMS, "JOIN :Not enough parameters")
		return
	}

	names := strings.Split(params[0], ",")
	var keys []string
	if len(params) > 1 {
		keys = strings.Split(params[1], ",")
	}

	for i, rawName := range names {
		name := normalizeChannelName(rawName)
		var key string
		if i < len(keys) {
			key = keys[i]
		}
		s.joinOne(c, name, key)
	}
}

func (s *Server) joinOne(c *Client, name, key string) {
	ch, created := s.channels.getOrCreate(name)

	if !created {
		if ch.inviteOnly && !ch.isInvited(c.nickname) {
			c.sendNumeric(ERR_INVITEONLYCHAN, fmt.Sprintf("%s :Cannot join channel (+i)", name))
			return
		}
		if ch.userLimit > 0 && ch.memberCount() >= ch.userLimit {
			c.sendNumeric(ERR_CHANNELISFULL, fmt.Sprintf("%s :Cannot join channel (+l)", name))
			return
		}
		if ch.key != "" && key != ch.key {
			c.sendNumeric(ERR_BADCHANNELKEY, fmt.Sprintf("%s :Cannot join channel (+k)", name))
			return
		}
	}

	ch.addMember(c.id, c.nickname, c.username)
	if created {
		ch.operators[c.id] = true
		if s.metrics != nil {
			s.metrics.Channels.Set(float64(s.channels.count()))
		}
	}
	c.channels[name] = true
	c.currentChannel = name

	ch.relayToAll(s.clients, c, "JOIN", name)

	if ch.topic == "" {
		c.sendNumeric(RPL_NOTOPIC, fmt.Sprintf("%s :No topic is set", name))
	} else {
		c.sendNumeric(RPL_TOPIC, fmt.Sprintf("%s :%s", name, ch.topic))
	}

	c.sendNumeric(RPL_NAMREPLY, fmt.Sprintf("= %s :%s", name, strings.Join(ch.names(), " ")))
	c.sendNumeric(RPL_ENDOFNAMES, fmt.Sprintf("%s :End of NAMES list", name))
}

func (s *Server) handlePart(c *Client, params []string) {
	if len(params) < 1 || params[0] == "" {
		c.sendNumeric(ERR_NEEDMOREPARAMS, "PART :Not enough parameters")
		return
	}

	name := normalizeChannelName(params[0])
	ch, ok := s.channels.get(name)
	if !ok {
		c.sendNumeric(ERR_NOSUCHCHANNEL, fmt.Sprintf("%s :No such channel", name))
		return
	}
	if !ch.isMember(c.id) {
		c.sendNumeric(ERR_NOTONCHANNEL, fmt.Sprintf("%s :You're not on that channel", name))
		return
	}

	if len(params) > 1 && params[1] != "" {
		ch.relayToAll(s.clients, c, "PART", name, params[1])
	} else {
		ch.relayToAll(s.clients, c, "PART", name)
	}
	ch.removeMember(c.id)
	delete(c.channels, name)
	if c.currentChannel == name {
		c.currentChannel = ""
	}
}

func (s *Server) handlePrivmsg(c *Client, params []string, withErrors bool) {
	if len(params) < 2 || params[0] == "" || params[1] == "" {
		if withErrors {
			c.sendNumeric(ERR_NEEDMOREPARAMS, "PRIVMSG :Not enough parameters")
		} else {
			log.Printf("[%s] NOTICE dropped: not enough parameters", c.traceID)
		}
		return
	}

	target, text := params[0], params[1]

	if isValidChannelName(target) {
		ch, ok := s.channels.get(target)
		if !ok {
			if withErrors {
				c.sendNumeric(ERR_NOSUCHCHANNEL, fmt.Sprintf("%s :No such channel", target))
			} else {
				log.Printf("[%s] NOTICE dropped: no such channel %s", c.traceID, target)
			}
			return
		}
		if !ch.isMember(c.id) {
			if withErrors {
				c.sendNumeric(ERR_CANNOTSENDTOCHAN, fmt.Sprintf("%s :Cannot send to channel", target))
			} else {
				log.Printf("[%s] NOTICE dropped: not a member of %s", c.traceID, target)
			}
			return
		}

		command := "PRIVMSG"
		if !withErrors {
			command = "NOTICE"
		}
		ch.relayFromSender(s.clients, c, command, target, text)
		if s.metrics != nil {
			s.metrics.MessagesRelayed.Inc()
		}
		return
	}

	recipient, ok := s.clients.findByNickname(target)
	if !ok {
		if withErrors {
			c.sendNumeric(ERR_NOSUCHNICK, fmt.Sprintf("%s :No such nick/channel", target))
		} else {
			log.Printf("[%s] NOTICE dropped: no such nick %s", c.traceID, target)
		}
		return
	}

	command := "PRIVMSG"
	if !withErrors {
		command = "NOTICE"
	}
	recipient.relayFrom(c, command, target, text)
	if s.metrics != nil {
		s.metrics.MessagesRelayed.Inc()
	}
}

func (s *Server) handleKick(c *Client, params []string) {
	if len(params) < 2 || params[0] == "" || params[1] == "" {
		c.sendNumeric(ERR_NEEDMOREPARAMS, "KICK :Not enough parameters")
		return
	}

	name := normalizeChannelName(params[0])
	targetNick := params[1]

	ch, ok := s.channels.get(name)
	if !ok {
		c.sendNumeric(ERR_NOSUCHCHANNEL, fmt.Sprintf("%s :No such channel", name))
		return
	}
	if !ch.isOperator(c.id) {
		c.sendNumeric(ERR_CHANOPRIVSNEEDED, fmt.Sprintf("%s :You're not channel operator", name))
		return
	}

	target, ok := s.clients.findByNickname(targetNick)
	if !ok || !ch.isMember(target.id) {
		c.sendNumeric(ERR_USERNOTINCHANNEL, fmt.Sprintf("%s %s :They aren't on that channel", targetNick, name))
		return
	}

	reason := "Kicked by operator"
	if len(params) > 2 && params[2] != "" {
		reason = params[2]
	}

	ch.relayToAll(s.clients, c, "KICK", name, targetNick, reason)
	ch.removeMember(target.id)
	delete(target.channels, name)
	if target.currentChannel == name {
		target.currentChannel = ""
	}
}

func (s *Server) handleInvite(c *Client, params []string) {
	if len(params) < 2 || params[0] == "" || params[1] == "" {
		c.sendNumeric(ERR_NEEDMOREPARAMS, "INVITE :Not enough parameters")
		return
	}

	targetNick := params[0]
	name := normalizeChannelName(params[1])

	ch, ok := s.channels.get(name)
	if !ok {
		c.sendNumeric(ERR_NOSUCHCHANNEL, fmt.Sprintf("%s :No such channel", name))
		return
	}
	if !ch.isOperator(c.id) {
		c.sendNumeric(ERR_CHANOPRIVSNEEDED, fmt.Sprintf("%s :You're not channel operator", name))
		return
	}

	target, ok := s.clients.findByNickname(targetNick)
	if !ok {
		c.sendNumeric(ERR_NOSUCHNICK, fmt.Sprintf("%s :No such nick/channel", targetNick))
		return
	}

	ch.invited[targetNick] = true
	target.relayFrom(c, "INVITE", targetNick, name)
	c.sendNumeric(RPL_INVITING, fmt.Sprintf("%s %s", targetNick, name))
}

func (s *Server) handleTopic(c *Client, params []string) {
	if len(params) < 1 || params[0] == "" {
		c.sendNumeric(ERR_NEEDMOREPARAMS, "TOPIC :Not enough parameters")
		return
	}

	name := normalizeChannelName(params[0])
	ch, ok := s.channels.get(name)
	if !ok {
		c.sendNumeric(ERR_NOSUCHCHANNEL, fmt.Sprintf("%s :No such channel", name))
		return
	}

	if len(params) < 2 {
		if ch.topic == "" {
			c.sendNumeric(RPL_NOTOPIC, fmt.Sprintf("%s :No topic is set", name))
		} else {
			c.sendNumeric(RPL_TOPIC, fmt.Sprintf("%s :%s", name, ch.topic))
		}
		return
	}

	if ch.topicRestricted && !ch.isOperator(c.id) {
		c.sendNumeric(ERR_CHANOPRIVSNEEDED, fmt.Sprintf("%s :You're not channel operator", name))
		return
	}

	ch.topic = params[1]
	ch.relayToAll(s.clients, c, "TOPIC", name, ch.topic)
}

func (s *Server) handleMode(c *Client, params []string) {
	if len(params) < 2 || params[0] == "" || params[1] == "" {
		c.sendNumeric(ERR_NEEDMOREPARAMS, "MODE :Not enough parameters")
		return
	}

	name := normalizeChannelName(params[0])
	ch, ok := s.channels.get(name)
	if !ok {
		c.sendNumeric(ERR_NOSUCHCHANNEL, fmt.Sprintf("%s :No such channel", name))
		return
	}
	if !ch.isOperator(c.id) {
		c.sendNumeric(ERR_CHANOPRIVSNEEDED, fmt.Sprintf("%s :You're not channel operator", name))
		return
	}

	var param string
	if len(params) > 2 {
		param = params[2]
	}

	result, errCode, errMsg := ch.setMode(params[1], param, c, s.clients)
	if errCode != 0 {
		c.sendNumeric(errCode, errMsg)
		return
	}

	if result.broadcast {
		if param != "" {
			ch.relayToAll(s.clients, c, "MODE", name, params[1], param)
		} else {
			ch.relayToAll(s.clients, c, "MODE", name, params[1])
		}
	}
	if result.demoteNotice != nil {
		result.demoteNotice.sendNumeric(RPL_INVITING, fmt.Sprintf(":You have been demoted from operator in %s", name))
	}
}

func (s *Server) handleQuit(c *Client, params []string) {
	msg := "Client Quit"
	if len(params) > 0 && params[0] != "" {
		msg = params[0]
	}
	s.disconnect(c, msg)
}
