// Package callback bridges a push-driven HostSocket into the pull-based
// transport.Socket contract.
//
// The host delivers datagrams from its own dispatch context; each one is
// copied into a FIFO that ReceiveNonBlocking drains from the caller's tick.
// The FIFO is the only state shared between the two contexts and is guarded
// by a mutex.
package callback

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
	"github.com/sirupsen/logrus"

	"github.com/rudransh-shrivastava/dgramsock/internal/logger"
	"github.com/rudransh-shrivastava/dgramsock/internal/transport"
)

type Socket struct {
	address string
	port    int

	hostMu sync.Mutex
	host   HostSocket

	mu      sync.Mutex
	pending *queue.Queue

	alive    atomic.Bool
	oversize transport.OversizePolicy
	events   *transport.Notifier
	logger   *logrus.Logger
}

var _ transport.Socket = (*Socket)(nil)

// New registers the message, error and close handlers on host and binds it.
// Every datagram sent through the returned socket goes to address:port.
func New(host HostSocket, address string, port int, cfg transport.Config) (*Socket, error) {
	log := cfg.Logger
	if log == nil {
		log = logger.NewLogger()
	}

	s := &Socket{
		address:  address,
		port:     port,
		host:     host,
		pending:  queue.New(),
		oversize: cfg.Oversize,
		events:   transport.NewNotifier(cfg.OnEvent),
		logger:   log,
	}
	s.alive.Store(true)

	host.OnMessage(s.onMessage)
	host.OnError(s.onError)
	host.OnClose(s.onClose)

	if err := host.Bind(); err != nil {
		_ = s.Close()
		return nil, transport.Fault("bind", err)
	}
	return s, nil
}

// onMessage runs on the host's dispatch context. It copies data because the
// host may reuse its buffer once the callback returns.
func (s *Socket) onMessage(data []byte) {
	if !s.alive.Load() || data == nil {
		return
	}
	msg := make([]byte, len(data))
	copy(msg, data)

	s.mu.Lock()
	s.pending.Add(msg)
	s.mu.Unlock()
}

func (s *Socket) onError(reason string) {
	if !s.alive.Load() {
		return
	}
	s.logger.Warnf("[callback] host socket error: %s", reason)
	s.events.Emit(transport.EventError, reason)
}

func (s *Socket) onClose(reason string) {
	if !s.alive.Load() {
		return
	}
	s.logger.Warnf("[callback] host socket closed: %s", reason)
	s.events.Emit(transport.EventClosed, reason)
}

// Pending reports how many datagrams are queued.
func (s *Socket) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending.Length()
}

func (s *Socket) LocalAddr() (net.Addr, error) {
	return nil, transport.Unsupported("localaddr", "host socket exposes no local endpoint")
}

// Blocking is always false: neither direction ever waits.
func (s *Socket) Blocking() bool                  { return false }
func (s *Socket) SetBlocking(bool) error          { return nil }
func (s *Socket) ReceiveBufferSize() int          { return 0 }
func (s *Socket) SetReceiveBufferSize(int) error { return nil }
func (s *Socket) SendBufferSize() int             { return 0 }
func (s *Socket) SetSendBufferSize(int) error    { return nil }

func (s *Socket) Connect(net.Addr) error {
	return transport.Unsupported("connect", fmt.Sprintf("socket is pre-bound to %s:%d", s.address, s.port))
}

// SendNonBlocking submits data to the host and reports true. The host gives
// no delivery feedback, so true means submitted, not transmitted.
func (s *Socket) SendNonBlocking(data []byte) (bool, error) {
	s.hostMu.Lock()
	host := s.host
	s.hostMu.Unlock()

	if host == nil {
		return false, transport.Fault("send", net.ErrClosed)
	}
	if err := host.Send(s.address, s.port, data); err != nil {
		return false, transport.Fault("send", err)
	}
	return true, nil
}

// ReceiveNonBlocking pops the oldest queued datagram into buf.
func (s *Socket) ReceiveNonBlocking(buf []byte) ([]byte, bool, error) {
	if !s.alive.Load() {
		return nil, false, transport.Fault("receive", net.ErrClosed)
	}

	s.mu.Lock()
	if s.pending.Length() == 0 {
		s.mu.Unlock()
		return nil, false, nil
	}
	msg := s.pending.Remove().([]byte)
	s.mu.Unlock()

	if len(msg) > len(buf) && s.oversize == transport.OversizeReject {
		return nil, false, transport.TooLarge("receive", len(msg), len(buf))
	}
	n := copy(buf, msg)
	return buf[:n], true, nil
}

// Close unregisters the handlers and closes the host. Callbacks already in
// flight are ignored.
func (s *Socket) Close() error {
	s.hostMu.Lock()
	host := s.host
	s.host = nil
	s.hostMu.Unlock()

	if host == nil {
		return nil
	}
	s.alive.Store(false)

	host.OnMessage(nil)
	host.OnError(nil)
	host.OnClose(nil)

	s.mu.Lock()
	s.pending = queue.New()
	s.mu.Unlock()

	if err := host.Close(); err != nil {
		return transport.Fault("close", err)
	}
	return nil
}
