package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContactManagerAddShowRemove(t *testing.T) {
	ctx := newTestContext()
	alice, err := ctx.Accounts.Create("alice", "pw")
	require.NoError(t, err)
	_, err = ctx.Accounts.Create("bob", "pw2")
	require.NoError(t, err)

	session := &ConnSession{ID: "c1", Account: alice}
	m := NewContactManager(ctx, session)

	client, peer := newTestClient(t)
	defer peer.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = m.Handle(client.conn)
	}()

	assert.Contains(t, client.readRaw(t), "Contacts:")
	_, _ = peer.Write([]byte("add bob\r\n"))
	assert.Contains(t, client.readLine(t), "added")

	assert.Contains(t, client.readRaw(t), "Contacts:")
	_, _ = peer.Write([]byte("add alice\r\n"))
	assert.Contains(t, client.readLine(t), "cannot add yourself")

	assert.Contains(t, client.readRaw(t), "Contacts:")
	_, _ = peer.Write([]byte("show\r\n"))
	assert.Contains(t, client.readLine(t), "bob - offline")

	assert.Contains(t, client.readRaw(t), "Contacts:")
	_, _ = peer.Write([]byte("remove bob\r\n"))
	assert.Contains(t, client.readLine(t), "removed")

	assert.Contains(t, client.readRaw(t), "Contacts:")
	_, _ = peer.Write([]byte("remove bob\r\n"))
	assert.Contains(t, client.readLine(t), "not one of your contacts")

	assert.Contains(t, client.readRaw(t), "Contacts:")
	_, _ = peer.Write([]byte("exit\r\n"))
	<-done

	assert.Empty(t, alice.Contacts())
}
