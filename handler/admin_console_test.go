package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGate struct{ stopped bool }

func (g *fakeGate) StopAccepting() { g.stopped = true }

func TestAdminConsoleShutdownLevels(t *testing.T) {
	ctx := newTestContext()
	gate := &fakeGate{}
	ctx.Gate = gate

	admin, err := ctx.Accounts.Create("root", "pw")
	require.NoError(t, err)
	bob, err := ctx.Accounts.Create("bob", "pw2")
	require.NoError(t, err)

	require.NoError(t, bob.SetOnline("bobconn"))
	bobClient, bobPeer := newTestClient(t)
	defer bobPeer.Close()
	ctx.Conns.Register("bobconn", bobClient.conn)

	session := &ConnSession{ID: "rootconn", Account: admin}
	a := NewAdminConsole(ctx, session)

	client, peer := newTestClient(t)
	defer peer.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = a.Handle(client.conn)
	}()

	assert.Contains(t, client.readRaw(t), "Admin:")

	_, _ = peer.Write([]byte("shutdown server\r\n"))
	assert.Contains(t, client.readLine(t), "No longer accepting")
	assert.True(t, gate.stopped)
	assert.True(t, bob.Online(), "level 'server' must not touch connected users")

	assert.Contains(t, client.readRaw(t), "Admin:")
	_, _ = peer.Write([]byte("shutdown users\r\n"))
	assert.Contains(t, client.readLine(t), "No longer accepting")
	assert.Contains(t, bobClient.readLine(t), "shutting down your connection")

	assert.Contains(t, client.readRaw(t), "Admin:")
	_, _ = peer.Write([]byte("exit\r\n"))
	<-done
}

func TestAdminConsoleAccountAndBan(t *testing.T) {
	ctx := newTestContext()
	ctx.Gate = &fakeGate{}
	admin, err := ctx.Accounts.Create("root", "pw")
	require.NoError(t, err)
	_, err = ctx.Accounts.Create("bob", "pw2")
	require.NoError(t, err)

	session := &ConnSession{ID: "rootconn", Account: admin}
	a := NewAdminConsole(ctx, session)

	client, peer := newTestClient(t)
	defer peer.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = a.Handle(client.conn)
	}()

	assert.Contains(t, client.readRaw(t), "Admin:")
	_, _ = peer.Write([]byte("ban add 10.0.0.5\r\n"))
	assert.Contains(t, client.readLine(t), "banned")
	assert.True(t, ctx.Bans.Contains("10.0.0.5"))

	assert.Contains(t, client.readRaw(t), "Admin:")
	_, _ = peer.Write([]byte("account remove bob\r\n"))
	assert.Contains(t, client.readLine(t), "removed")
	assert.False(t, ctx.Accounts.Exists("bob"))

	assert.Contains(t, client.readRaw(t), "Admin:")
	_, _ = peer.Write([]byte("exit\r\n"))
	<-done
}
