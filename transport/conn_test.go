package transport

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pipe(t *testing.T) (*Conn, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	_ = client.SetDeadline(time.Now().Add(5 * time.Second))
	_ = server.SetDeadline(time.Now().Add(5 * time.Second))
	return NewConn(server), client
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"a\r\nb":     "a\r\nb",
		"a\n\nb":     "a\r\nb",
		"a\r\r\rb":   "a\r\nb",
		"no-eol":     "no-eol",
		"\n\r mixed": "\r\n mixed",
	}
	for in, want := range cases {
		got := Normalize(in)
		assert.Equal(t, want, got)
		assert.Equal(t, got, Normalize(got), "normalize must be idempotent")
	}
}

func TestConnReadLine(t *testing.T) {
	c, client := pipe(t)
	defer client.Close()

	go func() {
		_, _ = client.Write([]byte("hello\r\n"))
	}()

	line, err := c.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "hello\r\n", line)
}

func TestConnReadLineOversized(t *testing.T) {
	c, client := pipe(t)
	defer client.Close()

	big := make([]byte, maxLine+10)
	for i := range big {
		big[i] = 'x'
	}
	go func() {
		_, _ = client.Write(big)
	}()

	_, err := c.ReadLine()
	assert.ErrorIs(t, err, ErrDisconnect)
}

func TestConnCloseIdempotent(t *testing.T) {
	c, client := pipe(t)
	defer client.Close()

	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Close(), ErrDisconnect)
}

func TestConnPrint(t *testing.T) {
	c, client := pipe(t)
	defer client.Close()

	done := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 64)
		n, _ := client.Read(buf)
		done <- buf[:n]
	}()

	require.NoError(t, c.Println("a", "b"))
	got := <-done
	assert.Equal(t, "a b\r\n", string(got))
}
