package udpv4

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestUnicastRoundTrip(t *testing.T) {
	a, err := New(Config{Port: 0})
	require.NoError(t, err)
	defer a.Close()

	b, err := New(Config{Port: 0})
	require.NoError(t, err)
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, a.Write(ctx, []byte("hello"), b.DefaultUnicastLocator()))

	select {
	case recv := <-b.Receive():
		require.Equal(t, []byte("hello"), recv.Data)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for datagram")
	}
}

func TestCloseStopsReceiveLoop(t *testing.T) {
	a, err := New(Config{Port: 0})
	require.NoError(t, err)
	require.NoError(t, a.Close())

	_, ok := <-a.Receive()
	require.False(t, ok)
}
