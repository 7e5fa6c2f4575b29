package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blastus/confabulator/transport"
)

func TestAccountOptionsPasswordAndPurge(t *testing.T) {
	ctx := newTestContext()
	alice, err := ctx.Accounts.Create("alice", "pw")
	require.NoError(t, err)
	alice.AddMessage("bob", "hi")

	session := &ConnSession{ID: "c1", Account: alice}
	m := NewAccountOptions(ctx, session)

	client, peer := newTestClient(t)
	defer peer.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = m.Handle(client.conn)
	}()

	assert.Contains(t, client.readRaw(t), "Options:")
	_, _ = peer.Write([]byte("password newpw\r\n"))
	assert.Contains(t, client.readLine(t), "Password changed.")
	assert.True(t, alice.CheckPassword("newpw"))

	assert.Contains(t, client.readRaw(t), "Options:")
	_, _ = peer.Write([]byte("purge\r\n"))
	assert.Contains(t, client.readLine(t), "Inbox purged.")
	assert.Empty(t, alice.Messages())

	assert.Contains(t, client.readRaw(t), "Options:")
	_, _ = peer.Write([]byte("exit\r\n"))
	<-done
}

func TestAccountOptionsDeleteAccount(t *testing.T) {
	ctx := newTestContext()
	alice, err := ctx.Accounts.Create("alice", "pw")
	require.NoError(t, err)
	require.NoError(t, alice.SetOnline("c1"))
	ctx.Conns.Register("c1", nil)

	session := &ConnSession{ID: "c1", Account: alice}
	m := NewAccountOptions(ctx, session)

	client, peer := newTestClient(t)
	defer peer.Close()

	outCh := make(chan error, 1)
	go func() {
		_, err := m.Handle(client.conn)
		outCh <- err
	}()

	assert.Contains(t, client.readRaw(t), "Options:")
	_, _ = peer.Write([]byte("delete_account\r\n"))
	assert.Contains(t, client.readRaw(t), "Are you sure")
	_, _ = peer.Write([]byte("yes\r\n"))
	assert.Contains(t, client.readLine(t), "deleted")

	err = <-outCh
	assert.ErrorIs(t, err, transport.ErrDisconnect)
	assert.False(t, ctx.Accounts.Exists("alice"))
	assert.Nil(t, session.Account)
}
