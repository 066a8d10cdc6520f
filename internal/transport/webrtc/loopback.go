package webrtc

import (
	"context"
	"fmt"

	"github.com/pion/webrtc/v3"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/rudransh-shrivastava/dgramsock/internal/logger"
)

const loopbackLabel = "dgram"

// Loopback connects two in-process peer connections over a datagram channel
// and returns one host per side once both ends are open. Signalling is a
// direct SDP exchange with non-trickle ICE.
func Loopback(ctx context.Context, api *webrtc.API, log *logrus.Logger) (offerer, answerer *Host, err error) {
	if log == nil {
		log = logger.NewLogger()
	}

	offerPC, err := api.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		return nil, nil, fmt.Errorf("create offer peer connection: %w", err)
	}
	answerPC, err := api.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		_ = offerPC.Close()
		return nil, nil, fmt.Errorf("create answer peer connection: %w", err)
	}

	fail := func(err error) (*Host, *Host, error) {
		return nil, nil, multierr.Combine(err, offerPC.Close(), answerPC.Close())
	}

	remoteDC := make(chan *webrtc.DataChannel, 1)
	answerPC.OnDataChannel(func(dc *webrtc.DataChannel) {
		log.Debugf("Remote data channel '%s' announced", dc.Label())
		select {
		case remoteDC <- dc:
		default:
		}
	})

	localDC, err := offerPC.CreateDataChannel(loopbackLabel, DatagramChannelConfig())
	if err != nil {
		return fail(fmt.Errorf("create data channel: %w", err))
	}
	localOpen := opened(localDC)

	if err := negotiate(ctx, offerPC, answerPC); err != nil {
		return fail(err)
	}

	var dc *webrtc.DataChannel
	select {
	case dc = <-remoteDC:
	case <-ctx.Done():
		return fail(fmt.Errorf("waiting for remote data channel: %w", ctx.Err()))
	}

	for _, ch := range []<-chan struct{}{localOpen, opened(dc)} {
		select {
		case <-ch:
		case <-ctx.Done():
			return fail(fmt.Errorf("waiting for data channel to open: %w", ctx.Err()))
		}
	}

	log.Infof("Loopback data channel '%s' open", loopbackLabel)
	return NewHost(offerPC, localDC, log), NewHost(answerPC, dc, log), nil
}

func negotiate(ctx context.Context, offerPC, answerPC *webrtc.PeerConnection) error {
	offer, err := offerPC.CreateOffer(nil)
	if err != nil {
		return fmt.Errorf("create offer: %w", err)
	}
	if err := setLocal(ctx, offerPC, offer); err != nil {
		return err
	}
	if err := answerPC.SetRemoteDescription(*offerPC.LocalDescription()); err != nil {
		return fmt.Errorf("set remote offer: %w", err)
	}

	answer, err := answerPC.CreateAnswer(nil)
	if err != nil {
		return fmt.Errorf("create answer: %w", err)
	}
	if err := setLocal(ctx, answerPC, answer); err != nil {
		return err
	}
	if err := offerPC.SetRemoteDescription(*answerPC.LocalDescription()); err != nil {
		return fmt.Errorf("set remote answer: %w", err)
	}
	return nil
}

// setLocal applies desc and waits for ICE gathering so the local
// description carries every candidate.
func setLocal(ctx context.Context, pc *webrtc.PeerConnection, desc webrtc.SessionDescription) error {
	gathered := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(desc); err != nil {
		return fmt.Errorf("set local %s: %w", desc.Type, err)
	}
	select {
	case <-gathered:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("gathering candidates: %w", ctx.Err())
	}
}

func opened(dc *webrtc.DataChannel) <-chan struct{} {
	ch := make(chan struct{})
	dc.OnOpen(func() { close(ch) })
	return ch
}
