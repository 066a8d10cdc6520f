// Package client drives a transport.Socket from a periodic tick: every tick
// drains all datagrams that arrived since the previous one. It is the shape
// of a game-loop consumer sitting on top of a non-blocking socket.
package client

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/rudransh-shrivastava/dgramsock/internal/logger"
	"github.com/rudransh-shrivastava/dgramsock/internal/transport"
)

var ErrNotConnected = errors.New("client: not connected")

// Channel labels a send. Reliability belongs to whatever engine sits on top
// of the socket; the label is only logged.
type Channel uint8

const (
	Reliable Channel = iota + 1
	Unreliable
)

func (c Channel) String() string {
	switch c {
	case Reliable:
		return "Reliable"
	case Unreliable:
		return "Unreliable"
	default:
		return "Unknown"
	}
}

type Client struct {
	config Config
	logger *logrus.Logger
	sock   transport.Socket
	buf    []byte

	mu        sync.Mutex
	connected bool
	listening bool
	remote    net.Addr
}

func New(sock transport.Socket, cfg Config) *Client {
	defaults := DefaultConfig()
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = defaults.TickInterval
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaults.BufferSize
	}
	if cfg.Clock == nil {
		cfg.Clock = defaults.Clock
	}

	log := cfg.Logger
	if log == nil {
		log = logger.NewLogger()
	}

	return &Client{
		config: cfg,
		logger: log,
		sock:   sock,
		buf:    make([]byte, cfg.BufferSize),
	}
}

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *Client) Connect(remote net.Addr) error {
	c.logger.Infof("Connecting to %s", remote)

	// backends without Connect were bound to their peer at construction
	if err := c.sock.Connect(remote); errors.Is(err, transport.ErrUnsupported) {
		c.logger.Debugf("Socket is pre-bound to its peer: %v", err)
	} else if err != nil {
		c.logger.Errorf("Failed to connect to %s: %v", remote, err)
		c.report(err)
		return err
	}

	c.mu.Lock()
	c.connected = true
	c.remote = remote
	c.mu.Unlock()

	c.logger.Infof("Connected to %s", remote)
	if c.config.OnConnected != nil {
		c.config.OnConnected()
	}
	return nil
}

// Listen makes Tick deliver datagrams from any sender without choosing a
// peer. Send still requires Connect.
func (c *Client) Listen() {
	c.mu.Lock()
	c.listening = true
	c.mu.Unlock()
	c.logger.Infof("Listening for datagrams from any peer")
}

func (c *Client) live() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected || c.listening
}

// Send hands data to the socket once. It reports whether the datagram was
// accepted; a socket that is not ready drops it.
func (c *Client) Send(data []byte, ch Channel) bool {
	if !c.Connected() {
		c.report(transport.Fault("send", ErrNotConnected))
		return false
	}

	ok, err := c.sock.SendNonBlocking(data)
	if err != nil {
		c.logger.Warnf("Send over %s channel failed: %v", ch, err)
		c.report(err)
		return false
	}
	if !ok {
		c.logger.Debugf("Socket not ready, dropped %d bytes on %s channel", len(data), ch)
		return false
	}
	c.logger.Debugf("Sent %d bytes on %s channel", len(data), ch)
	return true
}

// Tick delivers every datagram currently waiting to OnData. The slice passed
// to OnData is only valid until the callback returns.
func (c *Client) Tick() {
	if !c.live() {
		return
	}

	for {
		data, ok, err := c.sock.ReceiveNonBlocking(c.buf)
		if err != nil {
			c.report(err)
			// an oversized datagram is discarded by the socket; keep draining
			if errors.Is(err, transport.ErrDatagramTooLarge) {
				continue
			}
			return
		}
		if !ok {
			return
		}
		if c.config.OnData != nil {
			c.config.OnData(data)
		}
	}
}

// Run ticks until ctx is done.
func (c *Client) Run(ctx context.Context) error {
	ticker := c.config.Clock.Ticker(c.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.Tick()
		}
	}
}

func (c *Client) Disconnect() error {
	c.mu.Lock()
	if !c.connected && !c.listening {
		c.mu.Unlock()
		return nil
	}
	c.connected, c.listening = false, false
	remote := c.remote
	c.mu.Unlock()

	c.logger.Infof("Disconnecting from %s", remote)
	err := c.sock.Close()
	if c.config.OnDisconnected != nil {
		c.config.OnDisconnected()
	}
	return err
}

func (c *Client) report(err error) {
	if c.config.OnError == nil {
		return
	}
	kind := transport.KindOf(err)
	if kind == 0 {
		kind = transport.KindTransportFault
	}
	c.config.OnError(kind, err.Error())
}
