package cmd

import (
	"context"
	"fmt"
	"net"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/rudransh-shrivastava/dgramsock/internal/transport"
	"github.com/rudransh-shrivastava/dgramsock/internal/transport/callback"
	"github.com/rudransh-shrivastava/dgramsock/internal/transport/eventudp"
	"github.com/rudransh-shrivastava/dgramsock/internal/transport/udp"
	"github.com/rudransh-shrivastava/dgramsock/internal/transport/webrtc"
)

const (
	backendUDP    = "udp"
	backendEvent  = "event"
	backendWebRTC = "webrtc"
)

// socketPair is two sockets that can reach each other. The addresses are nil
// for backends whose peer is fixed at construction.
type socketPair struct {
	a, b         transport.Socket
	aAddr, bAddr net.Addr
}

func (p *socketPair) Close() error {
	return multierr.Combine(p.a.Close(), p.b.Close())
}

func openPair(ctx context.Context, backend string, cfg transport.Config) (*socketPair, error) {
	switch backend {
	case backendUDP:
		return udpPair(cfg)
	case backendEvent:
		return eventPair(cfg)
	case backendWebRTC:
		return webrtcPair(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown backend %q (want %s, %s or %s)", backend, backendUDP, backendEvent, backendWebRTC)
	}
}

func udpPair(cfg transport.Config) (*socketPair, error) {
	a, err := udp.Listen("udp4", "127.0.0.1:0", cfg)
	if err != nil {
		return nil, err
	}
	b, err := udp.Listen("udp4", "127.0.0.1:0", cfg)
	if err != nil {
		return nil, multierr.Append(err, a.Close())
	}

	aAddr, err := a.LocalAddr()
	if err != nil {
		return nil, multierr.Combine(err, a.Close(), b.Close())
	}
	bAddr, err := b.LocalAddr()
	if err != nil {
		return nil, multierr.Combine(err, a.Close(), b.Close())
	}
	return &socketPair{a: a, b: b, aAddr: aAddr, bAddr: bAddr}, nil
}

func eventPair(cfg transport.Config) (*socketPair, error) {
	ha := eventudp.New(eventudp.Config{LocalAddr: "127.0.0.1:0", Logger: cfg.Logger})
	hb := eventudp.New(eventudp.Config{LocalAddr: "127.0.0.1:0", Logger: cfg.Logger})
	if err := multierr.Combine(ha.Bind(), hb.Bind()); err != nil {
		return nil, multierr.Combine(err, ha.Close(), hb.Close())
	}

	a, err := callback.New(ha, "127.0.0.1", hb.LocalAddr().Port, cfg)
	if err != nil {
		return nil, multierr.Append(err, hb.Close())
	}
	b, err := callback.New(hb, "127.0.0.1", ha.LocalAddr().Port, cfg)
	if err != nil {
		return nil, multierr.Append(err, a.Close())
	}
	return &socketPair{a: a, b: b}, nil
}

func webrtcPair(ctx context.Context, cfg transport.Config) (*socketPair, error) {
	offerer, answerer, err := webrtc.Loopback(ctx, webrtc.NewAPI(pionLogger(cfg.Logger), webrtc.WithLoopbackCandidates()), cfg.Logger)
	if err != nil {
		return nil, err
	}

	a, err := callback.New(offerer, "", 0, cfg)
	if err != nil {
		return nil, multierr.Append(err, answerer.Close())
	}
	b, err := callback.New(answerer, "", 0, cfg)
	if err != nil {
		return nil, multierr.Append(err, a.Close())
	}
	return &socketPair{a: a, b: b}, nil
}

// pionLogger keeps pion's chatty negotiation logs one level below ours.
func pionLogger(log *logrus.Logger) *logrus.Logger {
	if log == nil {
		return nil
	}
	quiet := logrus.New()
	quiet.SetOutput(log.Out)
	quiet.SetFormatter(log.Formatter)
	quiet.SetLevel(log.GetLevel())
	if log.GetLevel() > logrus.PanicLevel {
		quiet.SetLevel(log.GetLevel() - 1)
	}
	return quiet
}

func resolveUDP(network, addr string) (*net.UDPAddr, error) {
	raddr, err := net.ResolveUDPAddr(network, addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", addr, err)
	}
	return raddr, nil
}
