package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCleaner struct{ removed []string }

func (f *fakeCleaner) RemoveName(name string) { f.removed = append(f.removed, name) }

func TestAccountRegistryCreate(t *testing.T) {
	r := NewAccountRegistry()

	alice, err := r.Create("alice", "pw")
	require.NoError(t, err)
	assert.True(t, alice.Administrator, "first account must become administrator")

	bob, err := r.Create("bob", "pw2")
	require.NoError(t, err)
	assert.False(t, bob.Administrator)

	_, err = r.Create("alice", "pw3")
	assert.ErrorIs(t, err, ErrDupUser)
}

func TestAccountRegistryDeleteCascade(t *testing.T) {
	// scenario: delete carol while alice.contacts == [carol, dave];
	// afterwards alice.contacts == [dave] and the channel cleaner has
	// been asked to scrub carol from every room's ban and mute lists.
	r := NewAccountRegistry()
	alice, err := r.Create("alice", "pw")
	require.NoError(t, err)
	_, err = r.Create("carol", "pw")
	require.NoError(t, err)
	_, err = r.Create("dave", "pw")
	require.NoError(t, err)

	require.NoError(t, alice.AddContact("carol"))
	require.NoError(t, alice.AddContact("dave"))

	cleaner := &fakeCleaner{}
	require.NoError(t, r.Delete("carol", cleaner))

	assert.Equal(t, []string{"dave"}, alice.Contacts())
	assert.False(t, r.Exists("carol"))
	assert.Equal(t, []string{"carol"}, cleaner.removed)
}

func TestAccountRegistryDeleteMissing(t *testing.T) {
	r := NewAccountRegistry()
	assert.ErrorIs(t, r.Delete("nobody", nil), ErrNoUser)
}

func TestAccountOnlineWeakReference(t *testing.T) {
	a := NewAccount("alice", "pw", false)
	assert.False(t, a.Online())

	require.NoError(t, a.SetOnline("conn-1"))
	assert.ErrorIs(t, a.SetOnline("conn-2"), ErrAlreadyOnline)

	id, online := a.ConnID()
	assert.True(t, online)
	assert.Equal(t, "conn-1", id)

	a.SetOffline()
	assert.False(t, a.Online())
	// idempotent
	a.SetOffline()
	assert.False(t, a.Online())
}

func TestAccountRegistryRestoreBypassesPromotionRule(t *testing.T) {
	r := NewAccountRegistry()
	_, err := r.Create("alice", "pw")
	require.NoError(t, err)
	assert.True(t, r.IsAdministrator("alice"))

	messages := []Message{{Source: "alice", Text: "hi", New: false}}
	r.Restore("bob", "hash", false, 3, []string{"alice"}, messages)

	bob, ok := r.Get("bob")
	require.True(t, ok)
	assert.False(t, bob.Administrator, "restore must not promote a second account to administrator")
	assert.Equal(t, 3, bob.Forgiven())
	assert.Equal(t, []string{"alice"}, bob.Contacts())
	assert.Equal(t, messages, bob.Messages())
	assert.False(t, bob.Online())
}

func TestAccountRegistryRestoreAdministratorFlagFromSnapshot(t *testing.T) {
	r := NewAccountRegistry()
	r.Restore("root", "hash", true, 0, nil, nil)
	assert.True(t, r.IsAdministrator("root"))
}

func TestDeliverMessage(t *testing.T) {
	r := NewAccountRegistry()
	bob, err := r.Create("bob", "pw")
	require.NoError(t, err)

	conns := NewConnTable()
	require.NoError(t, DeliverMessage(r, conns, "alice", "bob", "hi"))
	assert.Equal(t, 1, bob.UnreadCount())

	assert.ErrorIs(t, DeliverMessage(r, conns, "alice", "nobody", "hi"), ErrNoUser)
}
