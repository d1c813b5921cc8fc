package irc

import (
	"fmt"
	"strconv"
)

// Channel mode flags (4.D). Only the modes this spec defines are
// supported; the teacher's wider UnrealIRCd-style set (p/s/m/n/b/r/Q/O)
// has no corresponding component here and is not carried over.
const (
	CMODE_INVITEONLY = 'i'
	CMODE_TOPICLIMIT = 't'
	CMODE_KEY        = 'k'
	CMODE_LIMIT      = 'l'
)

type member struct {
	id       int
	nickname string
	username string
}

// Channel is one named fan-out group (§3). It holds only connection IDs —
// non-owning references into the client registry — plus a cached
// nick/username per member for prefix construction without a lookup.
type Channel struct {
	name string

	members   map[int]*member
	operators map[int]bool
	invited   map[string]bool

	// joinOrder tracks arrival order so operator promotion-on-departure
	// (§4.D, §9) is deterministic rather than dependent on Go's
	// randomized map iteration order.
	joinOrder []int

	topic           string
	key             string
	userLimit       int
	inviteOnly      bool
	topicRestricted bool
}

func newChannel(name string) *Channel {
	return &Channel{
		name:      name,
		members:   make(map[int]*member),
		operators: make(map[int]bool),
		invited:   make(map[string]bool),
	}
}

func (ch *Channel) isMember(id int) bool {
	_, ok := ch.members[id]
	return ok
}

func (ch *Channel) isOperator(id int) bool {
	return ch.operators[id]
}

func (ch *Channel) isInvited(nick string) bool {
	return ch.invited[nick]
}

// addMember is idempotent on membership; re-joining refreshes the cached
// nick/username rather than duplicating the entry.
func (ch *Channel) addMember(id int, nick, user string) {
	if _, exists := ch.members[id]; !exists {
		ch.joinOrder = append(ch.joinOrder, id)
	}
	ch.members[id] = &member{id: id, nickname: nick, username: user}
}

// removeMember drops id from members, operators, and invited (by its
// current nickname), promoting the earliest-joined remaining member to
// operator if id was the channel's sole/first operator.
func (ch *Channel) removeMember(id int) {
	m, ok := ch.members[id]
	if !ok {
		return
	}

	wasFirstOperator := ch.operators[id] && ch.isFirstOperator(id)

	delete(ch.members, id)
	delete(ch.operators, id)
	delete(ch.invited, m.nickname)

	for i, joined := range ch.joinOrder {
		if joined == id {
			ch.joinOrder = append(ch.joinOrder[:i], ch.joinOrder[i+1:]...)
			break
		}
	}

	if wasFirstOperator && len(ch.joinOrder) > 0 {
		ch.operators[ch.joinOrder[0]] = true
	}
}

func (ch *Channel) isFirstOperator(id int) bool {
	for _, joined := range ch.joinOrder {
		if ch.operators[joined] {
			return joined == id
		}
	}
	return false
}

func (ch *Channel) memberCount() int {
	return len(ch.members)
}

// names returns the NAMES-reply tokens: "@nick" for operators, "nick"
// otherwise, in join order.
func (ch *Channel) names() []string {
	out := make([]string, 0, len(ch.members))
	for _, id := range ch.joinOrder {
		m := ch.members[id]
		if ch.operators[id] {
			out = append(out, "@"+m.nickname)
		} else {
			out = append(out, m.nickname)
		}
	}
	return out
}

// modeString renders the currently-set channel modes, e.g. "+itk".
func (ch *Channel) modeString() string {
	flags := ""
	if ch.inviteOnly {
		flags += string(CMODE_INVITEONLY)
	}
	if ch.topicRestricted {
		flags += string(CMODE_TOPICLIMIT)
	}
	if ch.key != "" {
		flags += string(CMODE_KEY)
	}
	if ch.userLimit > 0 {
		flags += string(CMODE_LIMIT)
	}
	if flags == "" {
		return ""
	}
	return "+" + flags
}

// broadcast sends command/params, server-prefixed, to every member.
func (ch *Channel) broadcast(registry *ClientRegistry, command string, params ...string) {
	for _, id := range ch.joinOrder {
		if c, ok := registry.get(id); ok {
			c.sendMessage(command, params...)
		}
	}
}

// relayFromSender sends command/params prefixed with sender's hostmask to
// every member except the sender.
func (ch *Channel) relayFromSender(registry *ClientRegistry, sender *Client, command string, params ...string) {
	for _, id := range ch.joinOrder {
		if id == sender.id {
			continue
		}
		if c, ok := registry.get(id); ok {
			c.relayFrom(sender, command, params...)
		}
	}
}

// relayToAll sends command/params prefixed with sender's hostmask to every
// member, including the sender — used for JOIN/PART/KICK/TOPIC/MODE echoes
// that the acting client must also observe.
func (ch *Channel) relayToAll(registry *ClientRegistry, sender *Client, command string, params ...string) {
	for _, id := range ch.joinOrder {
		if c, ok := registry.get(id); ok {
			c.relayFrom(sender, command, params...)
		}
	}
}

// relayQuit announces a departing member's QUIT to the rest of the channel
// before removeMember takes them out of joinOrder.
func (ch *Channel) relayQuit(registry *ClientRegistry, quitter *Client, message string) {
	for _, id := range ch.joinOrder {
		if id == quitter.id {
			continue
		}
		if c, ok := registry.get(id); ok {
			c.relayFrom(quitter, "QUIT", message)
		}
	}
}

// modeResult carries what happened so the dispatcher can emit the right
// broadcast or private notice.
type modeResult struct {
	broadcast    bool
	demoteNotice *Client // recipient of the private demotion notice
}

// setMode applies one modeSpec ("+X"/"-X") with optional param, per the
// table in §4.D, including the asymmetric -o self-demote-only quirk.
func (ch *Channel) setMode(modeSpec, param string, sender *Client, registry *ClientRegistry) (modeResult, int, string) {
	if len(modeSpec) != 2 {
		return modeResult{}, ERR_UNKNOWNMODE, fmt.Sprintf("%s :is unknown mode char to me", modeSpec)
	}

	adding := modeSpec[0] == '+'
	flag := modeSpec[1]

	switch flag {
	case CMODE_INVITEONLY:
		ch.inviteOnly = adding
		return modeResult{broadcast: true}, 0, ""

	case CMODE_TOPICLIMIT:
		ch.topicRestricted = adding
		return modeResult{broadcast: true}, 0, ""

	case CMODE_KEY:
		if adding {
			if param == "" {
				return modeResult{}, ERR_NEEDMOREPARAMS, "MODE :Not enough parameters"
			}
			ch.key = param
		} else {
			ch.key = ""
		}
		return modeResult{broadcast: true}, 0, ""

	case CMODE_LIMIT:
		if adding {
			n, err := strconv.Atoi(param)
			if err != nil || n <= 0 {
				return modeResult{}, ERR_NEEDMOREPARAMS, "MODE :Not enough parameters"
			}
			ch.userLimit = n
		} else {
			ch.userLimit = 0
		}
		return modeResult{broadcast: true}, 0, ""

	case CMODE_OPERATOR:
		target, ok := registry.findByNickname(param)
		if !ok || !ch.isMember(target.id) {
			return modeResult{}, ERR_NOSUCHNICK, fmt.Sprintf("%s :No such nick/channel", param)
		}

		if adding {
			ch.operators[target.id] = true
			return modeResult{broadcast: true}, 0, ""
		}

		// Asymmetric policy (§4.D, §9 open question 1): an operator may
		// demote themselves but may not demote another operator.
		if sender != nil && sender.id != target.id {
			return modeResult{}, ERR_CHANOPRIVSNEEDED, fmt.Sprintf("%s :You're not channel operator", ch.name)
		}

		delete(ch.operators, target.id)
		return modeResult{demoteNotice: target}, 0, ""

	default:
		return modeResult{}, ERR_UNKNOWNMODE, fmt.Sprintf("%c :is unknown mode char to me", flag)
	}
}

// CMODE_OPERATOR is the (non-channel-record) "+o"/"-o" operator mode; it
// isn't stored as a flag on the channel since operator status lives in
// the operators set instead of the mode string.
const CMODE_OPERATOR = 'o'

// ChannelRegistry maps channel names to channel records (4.D).
type ChannelRegistry struct {
	byName map[string]*Channel
}

func newChannelRegistry() *ChannelRegistry {
	return &ChannelRegistry{byName: make(map[string]*Channel)}
}

func (r *ChannelRegistry) get(name string) (*Channel, bool) {
	ch, ok := r.byName[name]
	return ch, ok
}

// getOrCreate returns the named channel, creating an empty one if absent.
// Channels are never garbage-collected on empty membership (§9 open
// question 2), matching the teacher.
func (r *ChannelRegistry) getOrCreate(name string) (*Channel, bool) {
	if ch, ok := r.byName[name]; ok {
		return ch, false
	}
	ch := newChannel(name)
	r.byName[name] = ch
	return ch, true
}

func (r *ChannelRegistry) remove(name string) {
	delete(r.byName, name)
}

func (r *ChannelRegistry) count() int {
	return len(r.byName)
}
