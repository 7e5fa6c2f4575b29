package proto

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blastus/confabulator/transport"
)

func pipe(t *testing.T) (*transport.Conn, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	_ = client.SetDeadline(time.Now().Add(5 * time.Second))
	_ = server.SetDeadline(time.Now().Add(5 * time.Second))
	return transport.NewConn(server), client
}

func TestCommandLoopStopWords(t *testing.T) {
	conn, client := pipe(t)
	defer client.Close()

	cl := NewCommandLoop(map[string]Verb{})
	go func() {
		buf := make([]byte, 256)
		_, _ = client.Read(buf) // drain bare "Command:" prompt
		_, _ = client.Write([]byte("exit\r\n"))
	}()

	out, err := cl.Run(conn, "Command:")
	require.NoError(t, err)
	assert.Equal(t, KindPop, out.Kind)
}

func TestCommandLoopUnknownVerb(t *testing.T) {
	conn, client := pipe(t)
	defer client.Close()

	cl := NewCommandLoop(map[string]Verb{})
	reader := bufio.NewReader(client)
	go func() {
		buf := make([]byte, 256)
		_, _ = reader.Read(buf) // bare "Command:" prompt
		_, _ = client.Write([]byte("bogus\r\n"))
		_, _ = reader.ReadString('\n') // "Command not found!\r\n"
		_, _ = reader.Read(buf)        // next bare "Command:" prompt
		_, _ = client.Write([]byte("stop\r\n"))
	}()

	out, err := cl.Run(conn, "Command:")
	require.NoError(t, err)
	assert.Equal(t, KindPop, out.Kind)
}

func TestCommandLoopDispatch(t *testing.T) {
	conn, client := pipe(t)
	defer client.Close()

	called := false
	cl := NewCommandLoop(map[string]Verb{
		"ping": {Func: func(conn *transport.Conn, args []string) (Outcome, error) {
			called = true
			return Continue(), nil
		}, Doc: "replies pong"},
	})
	reader := bufio.NewReader(client)
	go func() {
		buf := make([]byte, 256)
		_, _ = reader.Read(buf) // bare "Command:" prompt
		_, _ = client.Write([]byte("ping\r\n"))
		_, _ = reader.Read(buf) // next bare "Command:" prompt
		_, _ = client.Write([]byte("quit\r\n"))
	}()

	out, err := cl.Run(conn, "Command:")
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, KindPop, out.Kind)
}
