package webrtc

import (
	"net"
	"sync"

	"github.com/pion/webrtc/v3"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/rudransh-shrivastava/dgramsock/internal/logger"
	"github.com/rudransh-shrivastava/dgramsock/internal/transport/callback"
)

// Host adapts one DataChannel to callback.HostSocket. The remote peer is
// fixed by ICE, so the address and port given to Send are ignored.
type Host struct {
	pc     *webrtc.PeerConnection
	dc     *webrtc.DataChannel
	logger *logrus.Logger

	mu        sync.Mutex
	onMessage callback.MessageHandler
	onError   callback.StatusHandler
	onClose   callback.StatusHandler
	closed    bool
}

var _ callback.HostSocket = (*Host)(nil)

// NewHost takes ownership of pc and dc; Close closes both.
func NewHost(pc *webrtc.PeerConnection, dc *webrtc.DataChannel, log *logrus.Logger) *Host {
	if log == nil {
		log = logger.NewLogger()
	}
	h := &Host{pc: pc, dc: dc, logger: log}

	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		h.mu.Lock()
		f := h.onMessage
		h.mu.Unlock()
		if f != nil {
			f(msg.Data)
		}
	})

	dc.OnError(func(err error) {
		h.mu.Lock()
		f := h.onError
		h.mu.Unlock()
		if f != nil {
			f(err.Error())
		}
	})

	dc.OnClose(func() {
		h.mu.Lock()
		f := h.onClose
		h.mu.Unlock()
		if f != nil {
			f("data channel '" + dc.Label() + "' closed")
		}
	})

	return h
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

// Bind fails only when the channel is already gone; a channel that is
// still connecting is accepted and drops sends until it opens.
func (h *Host) Bind() error {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		return net.ErrClosed
	}

	switch h.dc.ReadyState() {
	case webrtc.DataChannelStateClosing, webrtc.DataChannelStateClosed:
		return net.ErrClosed
	}
	return nil
}

func (h *Host) Send(_ string, _ int, data []byte) error {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		return net.ErrClosed
	}

	switch h.dc.ReadyState() {
	case webrtc.DataChannelStateOpen:
		return h.dc.Send(data)
	case webrtc.DataChannelStateConnecting:
		h.logger.Debugf("Data channel '%s' not open yet, dropping %d bytes", h.dc.Label(), len(data))
		return nil
	default:
		return net.ErrClosed
	}
}

func (h *Host) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.mu.Unlock()

	return multierr.Combine(h.dc.Close(), h.pc.Close())
}
