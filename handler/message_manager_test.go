package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageManagerSendShowReadDelete(t *testing.T) {
	ctx := newTestContext()
	alice, err := ctx.Accounts.Create("alice", "pw")
	require.NoError(t, err)
	_, err = ctx.Accounts.Create("bob", "pw2")
	require.NoError(t, err)

	session := &ConnSession{ID: "c1", Account: alice}
	m := NewMessageManager(ctx, session)

	client, peer := newTestClient(t)
	defer peer.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = m.Handle(client.conn)
	}()

	assert.Contains(t, client.readRaw(t), "Messages:")
	_, _ = peer.Write([]byte("send bob\r\n"))
	assert.Contains(t, client.readLine(t), "Please compose your message.")
	assert.Contains(t, client.readLine(t), "Enter 2 blank lines to send.")
	client.readLine(t) // "===...=" rule
	_, _ = peer.Write([]byte("hello there\r\n"))
	_, _ = peer.Write([]byte("\r\n"))
	_, _ = peer.Write([]byte("\r\n"))
	client.readLine(t) // closing "===...=" rule
	assert.Contains(t, client.readLine(t), "Message has been delivered.")

	bob, _ := ctx.Accounts.Get("bob")
	require.Len(t, bob.Messages(), 1)
	assert.Equal(t, "hello there", bob.Messages()[0].Text)

	bobSession := &ConnSession{ID: "c2", Account: bob}
	bm := NewMessageManager(ctx, bobSession)
	bClient, bPeer := newTestClient(t)
	defer bPeer.Close()
	bDone := make(chan struct{})
	go func() {
		defer close(bDone)
		_, _ = bm.Handle(bClient.conn)
	}()

	assert.Contains(t, bClient.readRaw(t), "Messages:")
	_, _ = bPeer.Write([]byte("show\r\n"))
	assert.Contains(t, bClient.readLine(t), "* 0. from alice: hello there")

	assert.Contains(t, bClient.readRaw(t), "Messages:")
	_, _ = bPeer.Write([]byte("read 0\r\n"))
	assert.Contains(t, bClient.readLine(t), "From: alice")
	assert.Contains(t, bClient.readLine(t), "hello there")
	assert.False(t, bob.Messages()[0].New)

	assert.Contains(t, bClient.readRaw(t), "Messages:")
	_, _ = bPeer.Write([]byte("delete 0\r\n"))
	assert.Contains(t, bClient.readLine(t), "Message deleted.")
	assert.Empty(t, bob.Messages())

	assert.Contains(t, bClient.readRaw(t), "Messages:")
	_, _ = bPeer.Write([]byte("delete 0\r\n"))
	assert.Contains(t, bClient.readLine(t), "No such message.")

	assert.Contains(t, client.readRaw(t), "Messages:")
	_, _ = peer.Write([]byte("exit\r\n"))
	assert.Contains(t, bClient.readRaw(t), "Messages:")
	_, _ = bPeer.Write([]byte("exit\r\n"))
	<-done
	<-bDone
}

func TestMessageManagerDeleteByPredicate(t *testing.T) {
	ctx := newTestContext()
	bob, err := ctx.Accounts.Create("bob", "pw")
	require.NoError(t, err)
	bob.AddMessage("alice", "hi")
	bob.AddMessage("carol", "yo")
	require.NoError(t, bob.MarkRead(1))

	session := &ConnSession{ID: "c1", Account: bob}
	m := NewMessageManager(ctx, session)
	client, peer := newTestClient(t)
	defer peer.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = m.Handle(client.conn)
	}()

	assert.Contains(t, client.readRaw(t), "Messages:")
	_, _ = peer.Write([]byte("delete read\r\n"))
	assert.Contains(t, client.readLine(t), "1 message deleted.")
	require.Len(t, bob.Messages(), 1)
	assert.Equal(t, "alice", bob.Messages()[0].Source)

	assert.Contains(t, client.readRaw(t), "Messages:")
	_, _ = peer.Write([]byte("delete alice\r\n"))
	assert.Contains(t, client.readLine(t), "1 message deleted.")
	assert.Empty(t, bob.Messages())

	assert.Contains(t, client.readRaw(t), "Messages:")
	_, _ = peer.Write([]byte("delete all\r\n"))
	assert.Contains(t, client.readLine(t), "No matching messages.")

	assert.Contains(t, client.readRaw(t), "Messages:")
	_, _ = peer.Write([]byte("exit\r\n"))
	<-done
}

func TestMessageManagerSendRejectsSelfAndUnknown(t *testing.T) {
	ctx := newTestContext()
	alice, err := ctx.Accounts.Create("alice", "pw")
	require.NoError(t, err)

	session := &ConnSession{ID: "c1", Account: alice}
	m := NewMessageManager(ctx, session)
	client, peer := newTestClient(t)
	defer peer.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = m.Handle(client.conn)
	}()

	assert.Contains(t, client.readRaw(t), "Messages:")
	_, _ = peer.Write([]byte("send alice\r\n"))
	assert.Contains(t, client.readLine(t), "You are not allowed to talk to yourself.")

	assert.Contains(t, client.readRaw(t), "Messages:")
	_, _ = peer.Write([]byte("send ghost\r\n"))
	assert.Contains(t, client.readLine(t), "Account does not exist.")

	assert.Contains(t, client.readRaw(t), "Messages:")
	_, _ = peer.Write([]byte("exit\r\n"))
	<-done
}
