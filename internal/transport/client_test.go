package transport_test

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aevon-lab/fsevents/internal/appmock"
	coreerrors "github.com/aevon-lab/fsevents/internal/core/errors"
	"github.com/aevon-lab/fsevents/internal/transport"
)

func TestClient_SendAndReceive(t *testing.T) {
	srv, err := appmock.Start("127.0.0.1:0")
	require.NoError(t, err)
	defer srv.Close()

	var mu sync.Mutex
	var received [][]byte
	client := transport.NewClient(transport.Config{Address: srv.Addr()}, func(_ context.Context, frame []byte) {
		mu.Lock()
		received = append(received, frame)
		mu.Unlock()
	})
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = client.Run(ctx) }()

	require.NoError(t, srv.WaitForConnections(1, 2*time.Second))
	require.Eventually(t, client.Connected, time.Second, 5*time.Millisecond)
	require.NoError(t, client.Ping(ctx))

	require.NoError(t, client.Send(ctx, []byte("flush-1")))
	require.NoError(t, srv.WaitForMessages([]byte("flush-1"), 1, time.Second))

	require.NoError(t, srv.Send([]byte("first")))
	require.NoError(t, srv.Send([]byte("second")))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 2
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	require.Equal(t, [][]byte{[]byte("first"), []byte("second")}, received)
	mu.Unlock()
}

func TestClient_ConcurrentSendersShareConnection(t *testing.T) {
	srv, err := appmock.Start("127.0.0.1:0")
	require.NoError(t, err)
	defer srv.Close()

	client := transport.NewClient(transport.Config{Address: srv.Addr()}, nil)
	defer client.Close()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, client.Send(context.Background(), []byte("x")))
		}()
	}
	wg.Wait()

	require.NoError(t, srv.WaitForMessages([]byte("x"), 10, time.Second))
	require.Equal(t, 1, srv.Connections())
}

func TestClient_SendUnavailable(t *testing.T) {
	// Reserve a port, then free it so nothing is listening.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	client := transport.NewClient(transport.Config{
		Address:           addr,
		DialTimeout:       100 * time.Millisecond,
		RetryMaxAttempts:  2,
		RetryInitialDelay: time.Millisecond,
	}, nil)
	defer client.Close()

	err = client.Send(context.Background(), []byte("lost"))
	require.ErrorIs(t, err, coreerrors.ErrTransportUnavailable)
	require.False(t, client.Connected())
	require.ErrorIs(t, client.Ping(context.Background()), coreerrors.ErrTransportUnavailable)
}

func TestClient_ReconnectsAfterServerDrop(t *testing.T) {
	srv, err := appmock.Start("127.0.0.1:0")
	require.NoError(t, err)
	addr := srv.Addr()

	client := transport.NewClient(transport.Config{Address: addr, ReconnectInterval: 20 * time.Millisecond}, nil)
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = client.Run(ctx) }()

	require.NoError(t, srv.WaitForConnections(1, 2*time.Second))
	require.NoError(t, srv.Close())
	require.Eventually(t, func() bool { return !client.Connected() }, time.Second, 5*time.Millisecond)

	srv2, err := appmock.Start(addr)
	require.NoError(t, err)
	defer srv2.Close()

	require.NoError(t, srv2.WaitForConnections(1, 2*time.Second))
	require.NoError(t, client.Send(ctx, []byte("again")))
	require.NoError(t, srv2.WaitForMessages([]byte("again"), 1, time.Second))
}
