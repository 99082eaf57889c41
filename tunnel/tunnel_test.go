package tunnel

import (
	"io"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func echoServer(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				io.Copy(c, c)
				c.Close()
			}(conn)
		}
	}()
	t.Cleanup(func() { ln.Close() })
	return ln.Addr().(*net.TCPAddr).Port
}

func TestTunnel_StartStopLifecycle(t *testing.T) {
	destPort := echoServer(t)
	port := freePort(t)
	tu := New(port, "127.0.0.1", destPort, nil)

	require.NoError(t, tu.Start())
	assert.Equal(t, StatusStarted, tu.Status())

	require.NoError(t, tu.Stop())
	assert.Equal(t, StatusStopped, tu.Status())
}

func TestTunnel_RelaysData(t *testing.T) {
	destPort := echoServer(t)
	port := freePort(t)
	tu := New(port, "127.0.0.1", destPort, nil)
	require.NoError(t, tu.Start())
	defer tu.Stop()

	time.Sleep(20 * time.Millisecond)
	conn, err := net.Dial("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("hello"))
	require.NoError(t, err)

	buf := make([]byte, 5)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err = io.ReadFull(conn, buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf))
}

func TestRegistry_StartTunnelReplacesExisting(t *testing.T) {
	destPort := echoServer(t)
	port := freePort(t)
	reg := NewRegistry()

	t1 := New(port, "127.0.0.1", destPort, nil)
	require.NoError(t, reg.StartTunnel(t1))

	t2 := New(port, "127.0.0.1", destPort, nil)
	require.NoError(t, reg.StartTunnel(t2))
	defer t2.Stop()

	got, ok := reg.Get(port)
	require.True(t, ok)
	assert.Same(t, t2, got)
	assert.Equal(t, StatusStopped, t1.Status())
}
