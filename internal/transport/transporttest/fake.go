// Package transporttest provides an in-memory transport.Socket with
// controllable readiness, for tests of code that drives a socket.
package transporttest

import (
	"net"
	"sync"

	"github.com/rudransh-shrivastava/dgramsock/internal/transport"
)

// Socket is a fake transport.Socket. Sent datagrams are recorded and inbound
// datagrams are queued with Push.
type Socket struct {
	mu       sync.Mutex
	remote   net.Addr
	sent     [][]byte
	inbound  [][]byte
	closed   int
	blocking bool

	// NotReady makes SendNonBlocking drop datagrams.
	NotReady bool
	SendErr  error
	RecvErr  error
}

var _ transport.Socket = (*Socket)(nil)

func New() *Socket {
	return &Socket{}
}

func (s *Socket) Push(msg []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inbound = append(s.inbound, append([]byte(nil), msg...))
}

func (s *Socket) Sent() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.sent))
	copy(out, s.sent)
	return out
}

func (s *Socket) Remote() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remote
}

// Closes reports how many times Close was called.
func (s *Socket) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Socket) LocalAddr() (net.Addr, error) {
	return &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)}, nil
}

func (s *Socket) Blocking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blocking
}

func (s *Socket) SetBlocking(blocking bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocking = blocking
	return nil
}

func (s *Socket) ReceiveBufferSize() int          { return 0 }
func (s *Socket) SetReceiveBufferSize(int) error { return nil }
func (s *Socket) SendBufferSize() int             { return 0 }
func (s *Socket) SetSendBufferSize(int) error    { return nil }

func (s *Socket) Connect(remote net.Addr) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remote = remote
	return nil
}

func (s *Socket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func (s *Socket) SendNonBlocking(data []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed > 0 {
		return false, transport.Fault("send", net.ErrClosed)
	}
	if s.SendErr != nil {
		return false, s.SendErr
	}
	if s.NotReady {
		return false, nil
	}
	s.sent = append(s.sent, append([]byte(nil), data...))
	return true, nil
}

func (s *Socket) ReceiveNonBlocking(buf []byte) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed > 0 {
		return nil, false, transport.Fault("receive", net.ErrClosed)
	}
	if s.RecvErr != nil {
		return nil, false, s.RecvErr
	}
	if len(s.inbound) == 0 {
		return nil, false, nil
	}

	msg := s.inbound[0]
	s.inbound = s.inbound[1:]
	if len(msg) > len(buf) {
		return nil, false, transport.TooLarge("receive", len(msg), len(buf))
	}
	n := copy(buf, msg)
	return buf[:n], true, nil
}
