// Package webrtc exposes a pion DataChannel as an event-driven host socket.
//
// The channel is negotiated unordered with no retransmissions, so it behaves
// as a best-effort datagram pipe. Datagrams arrive through pion's OnMessage
// callback on pion's own goroutines, which is exactly the push model that
// callback.Socket bridges.
package webrtc

import (
	"github.com/pion/webrtc/v3"
	"github.com/sirupsen/logrus"

	"github.com/rudransh-shrivastava/dgramsock/internal/logger"
)

const channelProtocol = "dgram"

var defaultSTUNServers = []string{
	"stun:stun.l.google.com:19302",
	"stun:stun1.l.google.com:19302",
	"stun:stun2.l.google.com:19302",
}

func DefaultSTUNConfig() webrtc.Configuration {
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{URLs: defaultSTUNServers},
		},
		ICETransportPolicy: webrtc.ICETransportPolicyAll,
	}
}

// DatagramChannelConfig negotiates an unordered channel that never
// retransmits.
func DatagramChannelConfig() *webrtc.DataChannelInit {
	protocolName := channelProtocol
	ordered := false
	maxRetransmits := uint16(0)
	return &webrtc.DataChannelInit{
		Ordered:        &ordered,
		MaxRetransmits: &maxRetransmits,
		Protocol:       &protocolName,
	}
}

type APIOption func(*webrtc.SettingEngine)

// WithLoopbackCandidates lets ICE pair over loopback interfaces, which pion
// skips by default.
func WithLoopbackCandidates() APIOption {
	return func(se *webrtc.SettingEngine) {
		se.SetIncludeLoopbackCandidate(true)
	}
}

// NewAPI returns a pion API that logs through log.
func NewAPI(log *logrus.Logger, opts ...APIOption) *webrtc.API {
	if log == nil {
		log = logger.NewLogger()
	}
	se := webrtc.SettingEngine{
		LoggerFactory: logger.PionFactory{Logger: log},
	}
	for _, opt := range opts {
		opt(&se)
	}
	return webrtc.NewAPI(webrtc.WithSettingEngine(se))
}
