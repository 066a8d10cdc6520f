//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package udp

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/rudransh-shrivastava/dgramsock/internal/logger"
	"github.com/rudransh-shrivastava/dgramsock/internal/transport"
)

// Socket is a poll-backed UDP socket bound to at most one remote peer.
type Socket struct {
	mu       sync.Mutex
	fd       int
	family   int
	closed   bool
	blocking bool
	remote   *net.UDPAddr

	pfd   [1]unix.PollFd
	ready func(events int16) (bool, error)

	events *transport.Notifier
	logger *logrus.Logger
}

var _ transport.Socket = (*Socket)(nil)

// New opens an unconnected UDP socket. network is "udp4", "udp6" or "udp"
// (dual-stack IPv6).
func New(network string, cfg transport.Config) (*Socket, error) {
	family, err := familyOf(network)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Socket(family, unix.SOCK_DGRAM, unix.IPPROTO_UDP)
	if err != nil {
		return nil, transport.Fault("socket", err)
	}
	unix.CloseOnExec(fd)

	if network == "udp" {
		_ = unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_V6ONLY, 0)
	}

	log := cfg.Logger
	if log == nil {
		log = logger.NewLogger()
	}

	s := &Socket{
		fd:     fd,
		family: family,
		events: transport.NewNotifier(cfg.OnEvent),
		logger: log,
	}
	s.ready = s.poll

	if err := s.SetBlocking(cfg.Blocking); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	s.tuneBuffers(cfg)

	return s, nil
}

// Listen opens a socket bound to addr, for peers that wait to be contacted.
func Listen(network, addr string, cfg transport.Config) (*Socket, error) {
	laddr, err := net.ResolveUDPAddr(network, addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", addr, err)
	}
	s, err := New(network, cfg)
	if err != nil {
		return nil, err
	}
	if err := s.Bind(laddr); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Dial opens a socket connected to addr.
func Dial(network, addr string, cfg transport.Config) (*Socket, error) {
	raddr, err := net.ResolveUDPAddr(network, addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", addr, err)
	}
	s, err := New(network, cfg)
	if err != nil {
		return nil, err
	}
	if err := s.Connect(raddr); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// tuneBuffers applies the requested kernel buffer sizes. The kernel may clamp
// or refuse them, which only costs burst capacity.
func (s *Socket) tuneBuffers(cfg transport.Config) {
	if cfg.ReceiveBufferSize > 0 {
		if err := s.SetReceiveBufferSize(cfg.ReceiveBufferSize); err != nil {
			s.logger.Warnf("Failed to set receive buffer to %d: %v", cfg.ReceiveBufferSize, err)
		}
	}
	if cfg.SendBufferSize > 0 {
		if err := s.SetSendBufferSize(cfg.SendBufferSize); err != nil {
			s.logger.Warnf("Failed to set send buffer to %d: %v", cfg.SendBufferSize, err)
		}
	}
	s.logger.Debugf("UDP socket buffers: recv=%d send=%d", s.ReceiveBufferSize(), s.SendBufferSize())
}

func (s *Socket) Bind(laddr *net.UDPAddr) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return transport.Fault("bind", net.ErrClosed)
	}
	sa, err := toSockaddr(s.family, laddr)
	if err != nil {
		return transport.Fault("bind", err)
	}
	if err := unix.Bind(s.fd, sa); err != nil {
		return transport.Fault("bind", err)
	}
	return nil
}

func (s *Socket) Connect(remote net.Addr) error {
	if remote == nil {
		return transport.Fault("connect", errors.New("nil remote address"))
	}
	raddr, ok := remote.(*net.UDPAddr)
	if !ok {
		var err error
		if raddr, err = net.ResolveUDPAddr("udp", remote.String()); err != nil {
			return transport.Fault("connect", err)
		}
	}

	if err := s.connect(raddr); err != nil {
		// the handler may close the socket, so it runs without s.mu held
		if !errors.Is(err, net.ErrClosed) {
			s.events.Emit(transport.EventConnectFailed, fmt.Sprintf("connect %s: %v", raddr, err))
		}
		return transport.Fault("connect", err)
	}
	s.logger.Debugf("UDP socket connected to %s", raddr)
	return nil
}

func (s *Socket) connect(raddr *net.UDPAddr) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return net.ErrClosed
	}
	sa, err := toSockaddr(s.family, raddr)
	if err != nil {
		return err
	}
	if err := unix.Connect(s.fd, sa); err != nil {
		return err
	}
	s.remote = raddr
	return nil
}

func (s *Socket) RemoteAddr() *net.UDPAddr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remote
}

func (s *Socket) LocalAddr() (net.Addr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, transport.Fault("getsockname", net.ErrClosed)
	}
	sa, err := unix.Getsockname(s.fd)
	if err != nil {
		return nil, transport.Fault("getsockname", err)
	}
	return fromSockaddr(sa), nil
}

func (s *Socket) Blocking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blocking
}

// SetBlocking toggles O_NONBLOCK on the fd. Send and receive poll before
// every transfer, so they never wait in either mode.
func (s *Socket) SetBlocking(blocking bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return transport.Fault("setblocking", net.ErrClosed)
	}
	if err := unix.SetNonblock(s.fd, !blocking); err != nil {
		return transport.Fault("setblocking", err)
	}
	s.blocking = blocking
	return nil
}

func (s *Socket) ReceiveBufferSize() int {
	return s.sockopt(unix.SO_RCVBUF)
}

func (s *Socket) SetReceiveBufferSize(n int) error {
	return s.setSockopt("setrcvbuf", unix.SO_RCVBUF, n)
}

func (s *Socket) SendBufferSize() int {
	return s.sockopt(unix.SO_SNDBUF)
}

func (s *Socket) SetSendBufferSize(n int) error {
	return s.setSockopt("setsndbuf", unix.SO_SNDBUF, n)
}

func (s *Socket) sockopt(opt int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0
	}
	v, err := unix.GetsockoptInt(s.fd, unix.SOL_SOCKET, opt)
	if err != nil {
		return 0
	}
	return v
}

func (s *Socket) setSockopt(op string, opt, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return transport.Fault(op, net.ErrClosed)
	}
	if err := unix.SetsockoptInt(s.fd, unix.SOL_SOCKET, opt, n); err != nil {
		return transport.Fault(op, err)
	}
	return nil
}

// SendNonBlocking polls for write readiness and, when ready, sends data on
// the connected fd. An unready channel drops the datagram and reports false.
func (s *Socket) SendNonBlocking(data []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, transport.Fault("send", net.ErrClosed)
	}

	ready, err := s.ready(unix.POLLOUT)
	if err != nil {
		return false, transport.Fault("poll", err)
	}
	if !ready {
		return false, nil
	}

	for {
		err = unix.Sendto(s.fd, data, unix.MSG_DONTWAIT, nil)
		if err != unix.EINTR {
			break
		}
	}
	switch {
	case err == nil:
		return true, nil
	case wouldBlock(err):
		return false, nil
	default:
		return false, transport.Fault("send", err)
	}
}

// ReceiveNonBlocking polls for read readiness and, when ready, reads one
// datagram into buf. A datagram larger than buf is consumed and reported as
// transport.ErrDatagramTooLarge.
func (s *Socket) ReceiveNonBlocking(buf []byte) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, false, transport.Fault("receive", net.ErrClosed)
	}

	ready, err := s.ready(unix.POLLIN)
	if err != nil {
		return nil, false, transport.Fault("poll", err)
	}
	if !ready {
		return nil, false, nil
	}

	n, size, err := recvDatagram(s.fd, buf)
	switch {
	case errors.Is(err, errTruncated):
		return nil, false, transport.TooLarge("receive", size, len(buf))
	case err != nil && wouldBlock(err):
		return nil, false, nil
	case err != nil:
		return nil, false, transport.Fault("receive", err)
	}
	return buf[:n], true, nil
}

// Close releases the fd. Later calls are no-ops.
func (s *Socket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	err := unix.Close(s.fd)
	s.fd = -1
	if err != nil {
		return transport.Fault("close", err)
	}
	return nil
}

// poll checks readiness without waiting. POLLERR and POLLHUP count as ready
// so the following syscall surfaces the pending socket error.
func (s *Socket) poll(events int16) (bool, error) {
	s.pfd[0] = unix.PollFd{Fd: int32(s.fd), Events: events}
	for {
		n, err := unix.Poll(s.pfd[:], 0)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return false, err
		}
		return n > 0 && s.pfd[0].Revents&(events|unix.POLLERR|unix.POLLHUP) != 0, nil
	}
}

func wouldBlock(err error) bool {
	return err == unix.EAGAIN || err == unix.EWOULDBLOCK
}

func familyOf(network string) (int, error) {
	switch network {
	case "udp4":
		return unix.AF_INET, nil
	case "udp6", "udp":
		return unix.AF_INET6, nil
	default:
		return 0, transport.Unsupported("socket", "unknown network "+network)
	}
}
