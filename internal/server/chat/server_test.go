package chat

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/fastchat/internal/server/auth"
	"github.com/dmitrijs2005/fastchat/internal/server/registry"
)

func startTestServer(t *testing.T, ctx context.Context) (*Server, chan error) {
	t.Helper()

	reg := registry.New()
	log := &memoryLog{}
	router := NewRouter(reg, log, testLogger())
	authService := auth.NewService(newUserStore(), []byte("pepper"), sessionTestParams)

	opts := DefaultServerOptions()
	opts.IdleTimeout = 0

	srv := NewServer("127.0.0.1:0", testLogger(), authService, reg, router, opts)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(ctx) }()

	require.Eventually(t, func() bool { return srv.Addr() != nil }, 2*time.Second, 10*time.Millisecond)
	return srv, errCh
}

func TestServer_ServesConcurrentClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv, _ := startTestServer(t, ctx)

	dialClient := func(user string) (net.Conn, *bufio.Scanner) {
		conn, err := net.Dial("tcp", srv.Addr().String())
		require.NoError(t, err)
		t.Cleanup(func() { _ = conn.Close() })

		sc := bufio.NewScanner(conn)
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		require.True(t, sc.Scan()) // welcome banner

		_, _ = fmt.Fprintf(conn, "register %s secret\nlogin %s secret\n", user, user)
		require.True(t, sc.Scan())
		require.True(t, sc.Scan())
		assert.Contains(t, sc.Text(), "Welcome "+user)
		return conn, sc
	}

	aliceConn, aliceSc := dialClient("alice")
	_, bobSc := dialClient("bob")

	// bob's join notice reaches alice
	_ = aliceSc
	require.True(t, aliceSc.Scan())
	assert.Equal(t, "SYSTEM: bob joined the chat", aliceSc.Text())

	_, _ = fmt.Fprintln(aliceConn, "hello from alice")
	require.True(t, bobSc.Scan())
	assert.Equal(t, "[alice] hello from alice", bobSc.Text())
}

func TestServer_ShutdownClosesSessions(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv, errCh := startTestServer(t, ctx)

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	sc := bufio.NewScanner(conn)
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.True(t, sc.Scan()) // welcome banner

	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
}
