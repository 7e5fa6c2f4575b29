package handler

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/blastus/confabulator/channel"
	"github.com/blastus/confabulator/config"
	"github.com/blastus/confabulator/state"
	"github.com/blastus/confabulator/transport"
)

type testClient struct {
	conn   *transport.Conn
	reader *bufio.Reader
}

func newTestClient(t *testing.T) (*testClient, net.Conn) {
	t.Helper()
	server, peer := net.Pipe()
	_ = peer.SetDeadline(time.Now().Add(5 * time.Second))
	_ = server.SetDeadline(time.Now().Add(5 * time.Second))
	return &testClient{conn: transport.NewConn(server), reader: bufio.NewReader(peer)}, peer
}

func (c *testClient) readLine(t *testing.T) string {
	t.Helper()
	line, err := c.reader.ReadString('\n')
	require.NoError(t, err)
	return line
}

// readRaw drains exactly one pending write from the server side (a bare
// prompt with no trailing newline, such as conn.Input emits). Unlike
// readLine it never blocks waiting for a delimiter that will never
// arrive.
func (c *testClient) readRaw(t *testing.T) string {
	t.Helper()
	buf := make([]byte, 4096)
	n, err := c.reader.Read(buf)
	require.NoError(t, err)
	return string(buf[:n])
}

func newTestContext() *Context {
	accounts := state.NewAccountRegistry()
	conns := state.NewConnTable()
	return &Context{
		Cfg:      config.Config{MercyLimit: 2, DefaultReplaySize: 10, BuiltinBufferLimit: 10000},
		Accounts: accounts,
		Bans:     state.NewBanList(),
		Conns:    conns,
		Channels: channel.NewRegistry(accounts, conns, 10000, 10),
	}
}
