package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMathV2PrecedenceAssignAndLiterals(t *testing.T) {
	m := newMathV2()
	client, peer := newTestClient(t)
	defer peer.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = m.Handle(client.conn)
	}()

	assert.Contains(t, client.readRaw(t), ">>>")
	_, _ = peer.Write([]byte("2 + 3 * 4\r\n"))
	assert.Contains(t, client.readLine(t), "14")

	assert.Contains(t, client.readRaw(t), ">>>")
	_, _ = peer.Write([]byte("0x10 -> x\r\n"))

	assert.Contains(t, client.readRaw(t), ">>>")
	_, _ = peer.Write([]byte("x + 1\r\n"))
	assert.Contains(t, client.readLine(t), "17")

	assert.Contains(t, client.readRaw(t), ">>>")
	_, _ = peer.Write([]byte("1 && 0 || 1\r\n"))
	assert.Contains(t, client.readLine(t), "1")

	assert.Contains(t, client.readRaw(t), ">>>")
	_, _ = peer.Write([]byte("2 ** 3 ** 2\r\n"))
	assert.Contains(t, client.readLine(t), "512")

	assert.Contains(t, client.readRaw(t), ">>>")
	_, _ = peer.Write([]byte("missing_var\r\n"))
	assert.Contains(t, client.readLine(t), "unknown variable")

	assert.Contains(t, client.readRaw(t), ">>>")
	_, _ = peer.Write([]byte("exit\r\n"))
	<-done
}
