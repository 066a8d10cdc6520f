// Package eventudp is an event-driven UDP host socket: datagrams are pushed
// to registered handlers from a reader goroutine and sends are queued for an
// asynchronous writer. It is the push-callback primitive behind
// callback.Socket on ordinary hosts.
package eventudp

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rudransh-shrivastava/dgramsock/internal/logger"
	"github.com/rudransh-shrivastava/dgramsock/internal/transport"
	"github.com/rudransh-shrivastava/dgramsock/internal/transport/callback"
)

const defaultOutboundQueue = 256

var ErrNotBound = errors.New("eventudp: socket is not bound")

type Config struct {
	// LocalAddr is the address Bind listens on; empty means any port.
	LocalAddr string
	// OutboundQueue bounds the datagrams waiting for the writer. Sends
	// beyond it are dropped.
	OutboundQueue int
	Logger        *logrus.Logger
}

type outbound struct {
	addr *net.UDPAddr
	data []byte
}

type Host struct {
	cfg    Config
	logger *logrus.Logger

	mu        sync.Mutex
	conn      *net.UDPConn
	onMessage callback.MessageHandler
	onError   callback.StatusHandler
	onClose   callback.StatusHandler
	closed    bool

	out  chan outbound
	done chan struct{}
	wg   sync.WaitGroup
}

var _ callback.HostSocket = (*Host)(nil)

func New(cfg Config) *Host {
	if cfg.OutboundQueue <= 0 {
		cfg.OutboundQueue = defaultOutboundQueue
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewLogger()
	}
	return &Host{
		cfg:    cfg,
		logger: log,
		out:    make(chan outbound, cfg.OutboundQueue),
		done:   make(chan struct{}),
	}
}

func (h *Host) OnMessage(f callback.MessageHandler) {
	h.mu.Lock()
	h.onMessage = f
	h.mu.Unlock()
}

func (h *Host) OnError(f callback.StatusHandler) {
	h.mu.Lock()
	h.onError = f
	h.mu.Unlock()
}

func (h *Host) OnClose(f callback.StatusHandler) {
	h.mu.Lock()
	h.onClose = f
	h.mu.Unlock()
}

// Bind opens the UDP socket and starts dispatching.
func (h *Host) Bind() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return net.ErrClosed
	}
	if h.conn != nil {
		return nil
	}

	laddr, err := net.ResolveUDPAddr("udp", h.cfg.LocalAddr)
	if err != nil {
		return fmt.Errorf("eventudp: resolve %s: %w", h.cfg.LocalAddr, err)
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return fmt.Errorf("eventudp: listen %s: %w", h.cfg.LocalAddr, err)
	}
	h.conn = conn

	h.wg.Add(2)
	go h.readLoop(conn)
	go h.writeLoop(conn)
	return nil
}

// LocalAddr returns the bound address, or nil before Bind.
func (h *Host) LocalAddr() *net.UDPAddr {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conn == nil {
		return nil
	}
	return h.conn.LocalAddr().(*net.UDPAddr)
}

// Send queues a copy of data for the writer goroutine. A full queue drops
// the datagram, as a congested host runtime would.
func (h *Host) Send(address string, port int, data []byte) error {
	h.mu.Lock()
	bound, closed := h.conn != nil, h.closed
	h.mu.Unlock()

	if closed {
		return net.ErrClosed
	}
	if !bound {
		return ErrNotBound
	}

	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(address, strconv.Itoa(port)))
	if err != nil {
		return fmt.Errorf("eventudp: resolve %s:%d: %w", address, port, err)
	}

	msg := outbound{addr: addr, data: append([]byte(nil), data...)}
	select {
	case h.out <- msg:
	default:
		h.logger.Debugf("[eventudp] outbound queue full, dropping %d bytes to %s", len(data), addr)
	}
	return nil
}

func (h *Host) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	conn := h.conn
	h.mu.Unlock()

	close(h.done)
	var err error
	if conn != nil {
		err = conn.Close()
	}
	h.wg.Wait()

	h.emit(h.closeHandler(), "socket closed")
	return err
}

const (
	minReadBackoff = 5 * time.Millisecond
	maxReadBackoff = time.Second
)

type udpReader interface {
	ReadFromUDP(b []byte) (int, *net.UDPAddr, error)
}

func (h *Host) readLoop(conn udpReader) {
	defer h.wg.Done()

	// One buffer for the socket's lifetime; handlers must copy what they keep.
	buf := make([]byte, transport.MaxDatagramSize)
	var backoff time.Duration
	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			h.emit(h.errorHandler(), err.Error())

			if backoff == 0 {
				backoff = minReadBackoff
			} else if backoff *= 2; backoff > maxReadBackoff {
				backoff = maxReadBackoff
			}
			h.logger.Debugf("[eventudp] read failed, retrying in %s: %v", backoff, err)
			select {
			case <-h.done:
				return
			case <-time.After(backoff):
			}
			continue
		}
		backoff = 0

		h.mu.Lock()
		f := h.onMessage
		h.mu.Unlock()
		if f != nil {
			f(buf[:n])
		}
	}
}

func (h *Host) writeLoop(conn *net.UDPConn) {
	defer h.wg.Done()

	for {
		select {
		case <-h.done:
			return
		case msg := <-h.out:
			if _, err := conn.WriteToUDP(msg.data, msg.addr); err != nil {
				if errors.Is(err, net.ErrClosed) {
					return
				}
				h.emit(h.errorHandler(), err.Error())
			}
		}
	}
}

func (h *Host) errorHandler() callback.StatusHandler {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.onError
}

func (h *Host) closeHandler() callback.StatusHandler {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.onClose
}

func (h *Host) emit(f callback.StatusHandler, reason string) {
	if f != nil {
		f(reason)
	}
}
