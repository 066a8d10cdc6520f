package client_test

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rudransh-shrivastava/dgramsock/internal/client"
	"github.com/rudransh-shrivastava/dgramsock/internal/logger"
	"github.com/rudransh-shrivastava/dgramsock/internal/transport"
	"github.com/rudransh-shrivastava/dgramsock/internal/transport/transporttest"
)

type recorder struct {
	mu     sync.Mutex
	data   []string
	errors []transport.ErrorKind
}

func (r *recorder) onData(msg []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data = append(r.data, string(msg))
}

func (r *recorder) onError(kind transport.ErrorKind, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, kind)
}

func (r *recorder) received() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.data...)
}

func newClient(t *testing.T, sock transport.Socket, rec *recorder, mutate ...func(*client.Config)) *client.Client {
	t.Helper()
	cfg := client.DefaultConfig()
	cfg.Logger = logger.Discard()
	cfg.BufferSize = 16
	cfg.OnData = rec.onData
	cfg.OnError = rec.onError
	for _, m := range mutate {
		m(&cfg)
	}
	return client.New(sock, cfg)
}

var peer = &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 7777}

func TestChannelString(t *testing.T) {
	assert.Equal(t, "Reliable", client.Reliable.String())
	assert.Equal(t, "Unreliable", client.Unreliable.String())
	assert.Equal(t, "Unknown", client.Channel(0).String())
}

func TestConnectAndSend(t *testing.T) {
	sock := transporttest.New()
	rec := &recorder{}
	connected := false
	c := newClient(t, sock, rec, func(cfg *client.Config) {
		cfg.OnConnected = func() { connected = true }
	})

	require.NoError(t, c.Connect(peer))
	assert.True(t, connected)
	assert.Equal(t, peer, sock.Remote())

	assert.True(t, c.Send([]byte{0x01, 0x02}, client.Reliable))
	assert.True(t, c.Send([]byte{0x03, 0x04}, client.Unreliable))
	assert.Equal(t, [][]byte{{0x01, 0x02}, {0x03, 0x04}}, sock.Sent())
	assert.Empty(t, rec.errors)
}

type preBound struct {
	*transporttest.Socket
}

func (preBound) Connect(net.Addr) error {
	return transport.Unsupported("connect", "peer fixed at construction")
}

type refusing struct {
	*transporttest.Socket
}

func (refusing) Connect(net.Addr) error {
	return transport.Fault("connect", errors.New("network is unreachable"))
}

func TestConnectPreBoundSocket(t *testing.T) {
	sock := preBound{transporttest.New()}
	rec := &recorder{}
	c := newClient(t, sock, rec)

	require.NoError(t, c.Connect(nil))
	assert.True(t, c.Connected())
	assert.Empty(t, rec.errors)
	assert.True(t, c.Send([]byte{0x01}, client.Unreliable))
}

func TestConnectFailure(t *testing.T) {
	rec := &recorder{}
	c := newClient(t, refusing{transporttest.New()}, rec)

	require.ErrorIs(t, c.Connect(peer), transport.ErrTransportFault)
	assert.False(t, c.Connected())
	assert.Equal(t, []transport.ErrorKind{transport.KindTransportFault}, rec.errors)
}

func TestSendBeforeConnect(t *testing.T) {
	sock := transporttest.New()
	rec := &recorder{}
	c := newClient(t, sock, rec)

	assert.False(t, c.Send([]byte{0x01}, client.Reliable))
	assert.Empty(t, sock.Sent())
	assert.Equal(t, []transport.ErrorKind{transport.KindTransportFault}, rec.errors)
}

func TestSendNotReadyIsNotAnError(t *testing.T) {
	sock := transporttest.New()
	sock.NotReady = true
	rec := &recorder{}
	c := newClient(t, sock, rec)
	require.NoError(t, c.Connect(peer))

	assert.False(t, c.Send([]byte{0x01}, client.Unreliable))
	assert.Empty(t, rec.errors)
}

func TestSendFaultIsReported(t *testing.T) {
	sock := transporttest.New()
	sock.SendErr = transport.Fault("send", errors.New("network is unreachable"))
	rec := &recorder{}
	c := newClient(t, sock, rec)
	require.NoError(t, c.Connect(peer))

	assert.False(t, c.Send([]byte{0x01}, client.Unreliable))
	assert.Equal(t, []transport.ErrorKind{transport.KindTransportFault}, rec.errors)
}

func TestTickDrainsInOrder(t *testing.T) {
	sock := transporttest.New()
	rec := &recorder{}
	c := newClient(t, sock, rec)
	require.NoError(t, c.Connect(peer))

	sock.Push([]byte("A"))
	sock.Push([]byte("B"))
	sock.Push([]byte("C"))

	c.Tick()
	assert.Equal(t, []string{"A", "B", "C"}, rec.received())

	c.Tick()
	assert.Len(t, rec.received(), 3)
}

func TestTickSkipsOversize(t *testing.T) {
	sock := transporttest.New()
	rec := &recorder{}
	c := newClient(t, sock, rec)
	require.NoError(t, c.Connect(peer))

	sock.Push(make([]byte, 32))
	sock.Push([]byte("fits"))

	c.Tick()
	assert.Equal(t, []string{"fits"}, rec.received())
	assert.Equal(t, []transport.ErrorKind{transport.KindDatagramTooLarge}, rec.errors)
}

func TestTickStopsOnFault(t *testing.T) {
	sock := transporttest.New()
	rec := &recorder{}
	c := newClient(t, sock, rec)
	require.NoError(t, c.Connect(peer))

	sock.Push([]byte("lost"))
	sock.RecvErr = transport.Fault("receive", errors.New("connection refused"))

	c.Tick()
	assert.Empty(t, rec.received())
	assert.Equal(t, []transport.ErrorKind{transport.KindTransportFault}, rec.errors)
}

func TestTickBeforeConnectIsNoop(t *testing.T) {
	sock := transporttest.New()
	rec := &recorder{}
	c := newClient(t, sock, rec)

	sock.Push([]byte("early"))
	c.Tick()
	assert.Empty(t, rec.received())
}

func TestListenReceivesWithoutPeer(t *testing.T) {
	sock := transporttest.New()
	rec := &recorder{}
	c := newClient(t, sock, rec)
	c.Listen()

	sock.Push([]byte("anyone"))
	c.Tick()
	assert.Equal(t, []string{"anyone"}, rec.received())

	assert.False(t, c.Send([]byte{0x01}, client.Reliable))
	assert.Nil(t, sock.Remote())

	require.NoError(t, c.Disconnect())
	assert.Equal(t, 1, sock.Closes())
}

func TestRunTicksOnClock(t *testing.T) {
	sock := transporttest.New()
	rec := &recorder{}
	mock := clock.NewMock()
	c := newClient(t, sock, rec, func(cfg *client.Config) {
		cfg.Clock = mock
		cfg.TickInterval = 5 * time.Millisecond
	})
	require.NoError(t, c.Connect(peer))
	sock.Push([]byte("tick"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool {
		mock.Add(5 * time.Millisecond)
		return len(rec.received()) == 1
	}, 2*time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestDisconnect(t *testing.T) {
	sock := transporttest.New()
	rec := &recorder{}
	disconnects := 0
	c := newClient(t, sock, rec, func(cfg *client.Config) {
		cfg.OnDisconnected = func() { disconnects++ }
	})

	require.NoError(t, c.Disconnect())
	assert.Zero(t, sock.Closes())

	require.NoError(t, c.Connect(peer))
	require.NoError(t, c.Disconnect())
	require.NoError(t, c.Disconnect())

	assert.Equal(t, 1, sock.Closes())
	assert.Equal(t, 1, disconnects)
	assert.False(t, c.Connected())
}
