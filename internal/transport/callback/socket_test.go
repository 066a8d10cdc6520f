package callback_test

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rudransh-shrivastava/dgramsock/internal/logger"
	"github.com/rudransh-shrivastava/dgramsock/internal/transport"
	"github.com/rudransh-shrivastava/dgramsock/internal/transport/callback"
)

type sent struct {
	address string
	port    int
	data    []byte
}

// fakeHost plays the host runtime: it owns a reusable receive buffer and
// invokes the registered handlers directly.
type fakeHost struct {
	mu        sync.Mutex
	onMessage callback.MessageHandler
	onError   callback.StatusHandler
	onClose   callback.StatusHandler
	bound     bool
	closes    int
	sent      []sent
	sendErr   error
	bindErr   error
	buf       [256]byte
}

func (h *fakeHost) Bind() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.bound = true
	return h.bindErr
}

func (h *fakeHost) Send(address string, port int, data []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sendErr != nil {
		return h.sendErr
	}
	h.sent = append(h.sent, sent{address, port, append([]byte(nil), data...)})
	return nil
}

func (h *fakeHost) OnMessage(f callback.MessageHandler) { h.mu.Lock(); h.onMessage = f; h.mu.Unlock() }
func (h *fakeHost) OnError(f callback.StatusHandler)    { h.mu.Lock(); h.onError = f; h.mu.Unlock() }
func (h *fakeHost) OnClose(f callback.StatusHandler)    { h.mu.Lock(); h.onClose = f; h.mu.Unlock() }

func (h *fakeHost) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closes++
	return nil
}

// deliver copies payload into the host's reusable buffer and dispatches it,
// the way a runtime hands out a view of its own storage.
func (h *fakeHost) deliver(payload []byte) {
	h.mu.Lock()
	n := copy(h.buf[:], payload)
	f := h.onMessage
	h.mu.Unlock()
	if f != nil {
		f(h.buf[:n])
	}
}

func (h *fakeHost) fail(reason string) {
	h.mu.Lock()
	f := h.onError
	h.mu.Unlock()
	if f != nil {
		f(reason)
	}
}

func (h *fakeHost) hangUp(reason string) {
	h.mu.Lock()
	f := h.onClose
	h.mu.Unlock()
	if f != nil {
		f(reason)
	}
}

func newSocket(t *testing.T, host *fakeHost, mutate ...func(*transport.Config)) *callback.Socket {
	t.Helper()
	cfg := transport.DefaultConfig()
	cfg.Logger = logger.Discard()
	for _, m := range mutate {
		m(&cfg)
	}
	s, err := callback.New(host, "10.0.0.7", 7777, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNewRegistersAndBinds(t *testing.T) {
	host := &fakeHost{}
	newSocket(t, host)

	assert.True(t, host.bound)
	assert.NotNil(t, host.onMessage)
	assert.NotNil(t, host.onError)
	assert.NotNil(t, host.onClose)
}

func TestNewBindFailure(t *testing.T) {
	host := &fakeHost{bindErr: errors.New("no permission")}
	_, err := callback.New(host, "10.0.0.7", 7777, transport.Config{Logger: logger.Discard()})

	require.ErrorIs(t, err, transport.ErrTransportFault)
	assert.Equal(t, 1, host.closes)
	assert.Nil(t, host.onMessage)
}

func TestReceiveFIFO(t *testing.T) {
	host := &fakeHost{}
	s := newSocket(t, host)

	host.deliver([]byte("A"))
	host.deliver([]byte("B"))
	host.deliver([]byte("C"))
	assert.Equal(t, 3, s.Pending())

	buf := make([]byte, 64)
	for _, want := range []string{"A", "B", "C"} {
		data, ok, err := s.ReceiveNonBlocking(buf)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, want, string(data))
	}

	data, ok, err := s.ReceiveNonBlocking(buf)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, data)
}

func TestReceiveCopiesHostBuffer(t *testing.T) {
	host := &fakeHost{}
	s := newSocket(t, host)

	host.deliver([]byte("first"))
	// the host reuses its buffer for the next datagram
	host.deliver([]byte("XXXXXXXX"))

	buf := make([]byte, 64)
	data, ok, err := s.ReceiveNonBlocking(buf)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "first", string(data))
	assert.Same(t, &buf[0], &data[0])
}

func TestReceiveOversizeReject(t *testing.T) {
	host := &fakeHost{}
	s := newSocket(t, host)

	host.deliver([]byte("0123456789"))
	host.deliver([]byte("ok"))

	small := []byte{0xAA, 0xAA, 0xAA, 0xAA}
	_, ok, err := s.ReceiveNonBlocking(small)
	require.ErrorIs(t, err, transport.ErrDatagramTooLarge)
	assert.False(t, ok)
	assert.Equal(t, []byte{0xAA, 0xAA, 0xAA, 0xAA}, small)

	data, ok, err := s.ReceiveNonBlocking(small)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ok", string(data))
}

func TestReceiveOversizeTruncate(t *testing.T) {
	host := &fakeHost{}
	s := newSocket(t, host, func(c *transport.Config) { c.Oversize = transport.OversizeTruncate })

	host.deliver([]byte("0123456789"))

	small := make([]byte, 4)
	data, ok, err := s.ReceiveNonBlocking(small)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "0123", string(data))
}

func TestSendSubmitsToBoundPeer(t *testing.T) {
	host := &fakeHost{}
	s := newSocket(t, host)

	payload := []byte{0x01, 0x02}
	ok, err := s.SendNonBlocking(payload)
	require.NoError(t, err)
	require.True(t, ok)

	require.Len(t, host.sent, 1)
	assert.Equal(t, sent{"10.0.0.7", 7777, []byte{0x01, 0x02}}, host.sent[0])

	host.sendErr = errors.New("runtime rejected message")
	ok, err = s.SendNonBlocking(payload)
	require.ErrorIs(t, err, transport.ErrTransportFault)
	assert.False(t, ok)
}

func TestUnsupportedCapabilities(t *testing.T) {
	s := newSocket(t, &fakeHost{})

	err := s.Connect(&net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 7777})
	assert.ErrorIs(t, err, transport.ErrUnsupported)

	_, err = s.LocalAddr()
	assert.ErrorIs(t, err, transport.ErrUnsupported)

	assert.False(t, s.Blocking())
	assert.NoError(t, s.SetBlocking(true))
	assert.False(t, s.Blocking())

	assert.NoError(t, s.SetReceiveBufferSize(1<<20))
	assert.Equal(t, 0, s.ReceiveBufferSize())
	assert.NoError(t, s.SetSendBufferSize(1<<20))
	assert.Equal(t, 0, s.SendBufferSize())
}

func TestHostEventsAreNotifications(t *testing.T) {
	host := &fakeHost{}
	var events []transport.Event
	s := newSocket(t, host, func(c *transport.Config) {
		c.OnEvent = func(e transport.Event) { events = append(events, e) }
	})

	host.fail("network unreachable")
	host.hangUp("runtime suspended")

	require.Len(t, events, 2)
	assert.Equal(t, transport.Event{Kind: transport.EventError, Reason: "network unreachable"}, events[0])
	assert.Equal(t, transport.Event{Kind: transport.EventClosed, Reason: "runtime suspended"}, events[1])

	// neither tears the socket down
	ok, err := s.SendNonBlocking([]byte("still here"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCloseIdempotent(t *testing.T) {
	host := &fakeHost{}
	var events int
	s := newSocket(t, host, func(c *transport.Config) {
		c.OnEvent = func(transport.Event) { events++ }
	})
	onMessage := host.onMessage

	host.deliver([]byte("queued"))

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, 1, host.closes)
	assert.Nil(t, host.onMessage)
	assert.Nil(t, host.onError)
	assert.Nil(t, host.onClose)

	// a callback already dispatched by the host is ignored
	onMessage([]byte("late"))
	assert.Equal(t, 0, s.Pending())
	host.hangUp("after close")
	assert.Zero(t, events)

	_, err := s.SendNonBlocking([]byte{0x01})
	assert.ErrorIs(t, err, net.ErrClosed)
	_, _, err = s.ReceiveNonBlocking(make([]byte, 8))
	assert.ErrorIs(t, err, transport.ErrTransportFault)
}

func TestConcurrentHandOff(t *testing.T) {
	host := &fakeHost{}
	s := newSocket(t, host)

	const total = 1000
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			host.deliver([]byte(fmt.Sprintf("%04d", i)))
		}
	}()

	buf := make([]byte, 16)
	next := 0
	for next < total {
		data, ok, err := s.ReceiveNonBlocking(buf)
		require.NoError(t, err)
		if !ok {
			continue
		}
		require.Equal(t, fmt.Sprintf("%04d", next), string(data))
		next++
	}
	wg.Wait()
}
