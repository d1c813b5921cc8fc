package irc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(id int, nick string) *Client {
	return &Client{
		id:       id,
		nickname: nick,
		username: nick,
		channels: make(map[string]bool),
	}
}

func TestChannelAddRemoveMember(t *testing.T) {
	ch := newChannel("#chat")
	ch.addMember(1, "alice", "alice")
	ch.addMember(2, "bob", "bob")

	assert.True(t, ch.isMember(1))
	assert.Equal(t, 2, ch.memberCount())

	ch.removeMember(1)
	assert.False(t, ch.isMember(1))
	assert.Equal(t, 1, ch.memberCount())
}

func TestChannelOperatorPromotionOnDeparture(t *testing.T) {
	ch := newChannel("#chat")
	ch.addMember(1, "alice", "alice")
	ch.operators[1] = true
	ch.addMember(2, "bob", "bob")
	ch.addMember(3, "carol", "carol")

	ch.removeMember(1)

	assert.True(t, ch.isOperator(2), "earliest-joined remaining member should be promoted")
	assert.False(t, ch.isOperator(3))
}

func TestChannelSetModeKeyRequiresParam(t *testing.T) {
	ch := newChannel("#chat")
	registry := newClientRegistry()

	_, errCode, _ := ch.setMode("+k", "", nil, registry)
	assert.Equal(t, ERR_NEEDMOREPARAMS, errCode)

	_, errCode, _ = ch.setMode("+k", "hunter2", nil, registry)
	assert.Zero(t, errCode)
	assert.Equal(t, "hunter2", ch.key)
}

func TestChannelSetModeLimit(t *testing.T) {
	ch := newChannel("#chat")
	registry := newClientRegistry()

	_, errCode, _ := ch.setMode("+l", "not-a-number", nil, registry)
	assert.Equal(t, ERR_NEEDMOREPARAMS, errCode)

	_, errCode, _ = ch.setMode("+l", "2", nil, registry)
	require.Zero(t, errCode)
	assert.Equal(t, 2, ch.userLimit)

	_, errCode, _ = ch.setMode("-l", "", nil, registry)
	require.Zero(t, errCode)
	assert.Equal(t, 0, ch.userLimit)
}

func TestChannelSetModeOperatorSelfDemoteOnly(t *testing.T) {
	ch := newChannel("#chat")
	registry := newClientRegistry()

	alice := newTestClient(1, "alice")
	bob := newTestClient(2, "bob")
	registry.add(alice)
	registry.add(bob)

	ch.addMember(alice.id, "alice", "alice")
	ch.addMember(bob.id, "bob", "bob")
	ch.operators[alice.id] = true
	ch.operators[bob.id] = true

	// alice (an operator) may not demote bob (another operator).
	_, errCode, _ := ch.setMode("-o", "bob", alice, registry)
	assert.Equal(t, ERR_CHANOPRIVSNEEDED, errCode)
	assert.True(t, ch.isOperator(bob.id))

	// alice may demote herself.
	result, errCode, _ := ch.setMode("-o", "alice", alice, registry)
	assert.Zero(t, errCode)
	assert.False(t, ch.isOperator(alice.id))
	require.NotNil(t, result.demoteNotice)
	assert.Equal(t, alice.id, result.demoteNotice.id)
}

func TestChannelSetModeGrantOperatorUnknownTarget(t *testing.T) {
	ch := newChannel("#chat")
	registry := newClientRegistry()

	_, errCode, _ := ch.setMode("+o", "nobody", nil, registry)
	assert.Equal(t, ERR_NOSUCHNICK, errCode)
}

func TestChannelNamesMarksOperators(t *testing.T) {
	ch := newChannel("#chat")
	ch.addMember(1, "alice", "alice")
	ch.operators[1] = true
	ch.addMember(2, "bob", "bob")

	assert.Equal(t, []string{"@alice", "bob"}, ch.names())
}

func TestChannelRegistryGetOrCreate(t *testing.T) {
	reg := newChannelRegistry()

	ch, created := reg.getOrCreate("#chat")
	assert.True(t, created)

	again, created := reg.getOrCreate("#chat")
	assert.False(t, created)
	assert.Same(t, ch, again)
}
