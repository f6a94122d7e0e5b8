package client

import (
	"bufio"
	"github.com/ValentinKolb/lsrv/srv/common"
	"github.com/ValentinKolb/lsrv/srv/transport/tcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"net"
	"strings"
	"testing"
	"time"
)

// startEcho serves one connection and answers every line with its upper case form
func startEcho(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		reader := bufio.NewReader(conn)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				return
			}
			_, _ = conn.Write([]byte(strings.ToUpper(line)))
		}
	}()
	return ln.Addr().String()
}

func dial(t *testing.T, addr string) *Client {
	t.Helper()
	c, err := Dial(common.ClientConfig{Transport: "tcp", Endpoint: addr, TimeoutSecond: 5}, tcp.NewClientConnector())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestSend(t *testing.T) {
	c := dial(t, startEcho(t))

	reply, err := c.Send("hello")
	require.NoError(t, err)
	assert.Equal(t, "HELLO", reply)

	reply, err = c.Send("again")
	require.NoError(t, err)
	assert.Equal(t, "AGAIN", reply)
}

func TestWriteThenRead(t *testing.T) {
	c := dial(t, startEcho(t))

	require.NoError(t, c.WriteLine("one"))
	require.NoError(t, c.WriteLine("two"))

	first, err := c.ReadLine()
	require.NoError(t, err)
	second, err := c.ReadLine()
	require.NoError(t, err)

	assert.Equal(t, "ONE", first)
	assert.Equal(t, "TWO", second)
}

func TestMultilineRejected(t *testing.T) {
	c := dial(t, startEcho(t))

	_, err := c.Send("5 * 7\n1 + 1")
	assert.ErrorIs(t, err, ErrMultiline)
}

func TestReadLineTimeout(t *testing.T) {
	c := dial(t, startEcho(t))

	start := time.Now()
	_, err := c.ReadLineTimeout(50 * time.Millisecond)
	require.Error(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestDialFails(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = Dial(common.ClientConfig{Transport: "tcp", Endpoint: addr, TimeoutSecond: 1}, tcp.NewClientConnector())
	assert.Error(t, err)
}
