package channel

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blastus/confabulator/proto"
	"github.com/blastus/confabulator/state"
	"github.com/blastus/confabulator/transport"
)

func newTestRoom(t *testing.T) (*Registry, *state.AccountRegistry) {
	t.Helper()
	accounts := state.NewAccountRegistry()
	conns := state.NewConnTable()
	reg := NewRegistry(accounts, conns, 10000, 10)
	return reg, accounts
}

type client struct {
	conn   *transport.Conn
	reader *bufio.Reader
}

func newClient(t *testing.T) (*client, net.Conn) {
	t.Helper()
	server, peer := net.Pipe()
	_ = peer.SetDeadline(time.Now().Add(5 * time.Second))
	_ = server.SetDeadline(time.Now().Add(5 * time.Second))
	return &client{conn: transport.NewConn(server), reader: bufio.NewReader(peer)}, peer
}

func (c *client) readLine(t *testing.T) string {
	t.Helper()
	line, err := c.reader.ReadString('\n')
	require.NoError(t, err)
	return line
}

// readRaw drains exactly one pending write from the server side (a
// bare prompt with no trailing newline, such as conn.Input emits)
// without blocking for a delimiter that will never arrive.
func (c *client) readRaw(t *testing.T) string {
	t.Helper()
	buf := make([]byte, 4096)
	n, err := c.reader.Read(buf)
	require.NoError(t, err)
	return string(buf[:n])
}

// runSetup runs s.Handle on c's connection in a background goroutine
// and sends its outcome to done; the caller answers the setup wizard's
// prompts itself.
func runSetup(t *testing.T, s *Session, c *client, done chan<- result) {
	go func() {
		out, err := s.Handle(c.conn)
		done <- result{out, err}
	}()
}

type result struct {
	out proto.Outcome
	err error
}

func TestChannelFanOutEcho(t *testing.T) {
	reg, accounts := newTestRoom(t)
	_, err := accounts.Create("alice", "pw")
	require.NoError(t, err)
	_, err = accounts.Create("bob", "pw")
	require.NoError(t, err)

	room := reg.Open("room1")

	aSession := room.Connect("alice", false)
	aClient, aPeer := newClient(t)
	defer aPeer.Close()
	aDone := make(chan result, 1)
	runSetup(t, aSession, aClient, aDone)

	// drive the setup wizard with blank answers; each prompt is written
	// with no trailing newline, so it must be drained with readRaw
	// before the next answer can be sent.
	assert.Contains(t, aClient.readRaw(t), "Password")
	_, _ = aPeer.Write([]byte("\r\n"))
	assert.Contains(t, aClient.readRaw(t), "Buffer size")
	_, _ = aPeer.Write([]byte("\r\n"))
	assert.Contains(t, aClient.readRaw(t), "Replay size")
	_, _ = aPeer.Write([]byte("\r\n"))
	assert.Contains(t, aClient.readLine(t), "members connected")

	bSession := room.Connect("bob", false)
	bClient, bPeer := newClient(t)
	defer bPeer.Close()
	bDone := make(chan result, 1)
	runSetup(t, bSession, bClient, bDone)

	assert.Contains(t, aClient.readLine(t), "has joined")
	assert.Contains(t, bClient.readLine(t), "members connected")

	_, _ = aPeer.Write([]byte("hello world\r\n"))
	// broadcast writes to members in map order, so bob's copy is read
	// concurrently with alice's echo.
	bLine := make(chan string, 1)
	go func() {
		line, _ := bClient.reader.ReadString('\n')
		bLine <- line
	}()
	assert.Equal(t, "[alice] hello world\r\n", aClient.readLine(t))
	assert.Equal(t, "[alice] hello world\r\n", <-bLine)

	aPeer.Close()
	bPeer.Close()
}

func TestChannelKick(t *testing.T) {
	reg, accounts := newTestRoom(t)
	_, err := accounts.Create("alice", "pw")
	require.NoError(t, err)
	_, err = accounts.Create("bob", "pw")
	require.NoError(t, err)

	room := reg.Open("room1")

	aSession := room.Connect("alice", false)
	aClient, aPeer := newClient(t)
	defer aPeer.Close()
	aDone := make(chan result, 1)
	runSetup(t, aSession, aClient, aDone)
	_ = aClient.readRaw(t) // password prompt
	_, _ = aPeer.Write([]byte("\r\n"))
	_ = aClient.readRaw(t) // buffer size prompt
	_, _ = aPeer.Write([]byte("\r\n"))
	_ = aClient.readRaw(t) // replay size prompt
	_, _ = aPeer.Write([]byte("\r\n"))
	_ = aClient.readLine(t) // members connected

	bSession := room.Connect("bob", false)
	bClient, bPeer := newClient(t)
	defer bPeer.Close()
	bDone := make(chan result, 1)
	runSetup(t, bSession, bClient, bDone)
	_ = aClient.readLine(t) // bob joined event
	_ = bClient.readLine(t) // members connected

	require.NoError(t, room.kick("bob"))
	_, _ = bPeer.Write([]byte("anything\r\n"))

	assert.Contains(t, bClient.readLine(t), "kicked")
	res := <-bDone
	assert.Equal(t, proto.KindPop, res.out.Kind)

	aPeer.Close()
	bPeer.Close()
	<-aDone
}

func TestRemoveBanAndMute(t *testing.T) {
	reg, accounts := newTestRoom(t)
	_, err := accounts.Create("alice", "pw")
	require.NoError(t, err)

	room := reg.Open("room1")
	room.state = StateReady // skip wizard for this unit test
	require.NoError(t, room.addBan("carol"))
	assert.True(t, room.isBanned("carol"))

	reg.RemoveName("carol")
	assert.False(t, room.isBanned("carol"))
}
