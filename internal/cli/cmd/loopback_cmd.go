package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/rudransh-shrivastava/dgramsock/internal/client"
	"github.com/rudransh-shrivastava/dgramsock/internal/transport"
)

func newLoopbackCmd(opts *rootOptions) *cobra.Command {
	var (
		backend string
		count   int
		timeout time.Duration
	)

	loopbackCmd := &cobra.Command{
		Use:   "loopback",
		Short: "round trip datagrams between two in-process sockets",
		Long:  `opens two connected sockets on the chosen backend, sends datagrams from one to the other and reports the counters`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count <= 0 {
				return fmt.Errorf("--count must be positive, got %d", count)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			cfg := transport.DefaultConfig()
			cfg.Logger = opts.log
			cfg.OnEvent = func(e transport.Event) {
				opts.log.Warnf("Socket event %s: %s", e.Kind, e.Reason)
			}

			pair, err := openPair(ctx, backend, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = pair.Close() }()

			reg := prometheus.NewRegistry()
			metrics, err := transport.NewMetrics(reg)
			if err != nil {
				return err
			}

			return runLoopback(ctx, cmd, loopbackRun{
				sender:     transport.Instrument(pair.a, backend, metrics),
				receiver:   transport.Instrument(pair.b, backend, metrics),
				senderAddr: pair.aAddr,
				peerAddr:   pair.bAddr,
				count:      count,
				opts:       opts,
				backend:    backend,
				gatherer:   reg,
			})
		},
	}
	loopbackCmd.Flags().StringVar(&backend, "backend", backendUDP, "socket backend: udp, event or webrtc")
	loopbackCmd.Flags().IntVar(&count, "count", 3, "datagrams to send")
	loopbackCmd.Flags().DurationVar(&timeout, "timeout", 15*time.Second, "give up after this long")
	return loopbackCmd
}

type loopbackRun struct {
	sender, receiver     transport.Socket
	senderAddr, peerAddr net.Addr
	count                int
	opts                 *rootOptions
	backend              string
	gatherer             prometheus.Gatherer
}

func runLoopback(ctx context.Context, cmd *cobra.Command, run loopbackRun) error {
	out := cmd.OutOrStdout()
	log := run.opts.log

	recvCtx, stop := context.WithCancel(ctx)
	defer stop()

	received := 0
	rx := client.New(run.receiver, client.Config{
		Logger: log,
		OnData: func(msg []byte) {
			received++
			fmt.Fprintf(out, "received %q\n", msg)
			if received == run.count {
				stop()
			}
		},
		OnError: func(kind transport.ErrorKind, reason string) {
			log.Warnf("Receiver error %s: %s", kind, reason)
		},
	})
	tx := client.New(run.sender, client.Config{
		Logger: log,
		OnError: func(kind transport.ErrorKind, reason string) {
			log.Warnf("Sender error %s: %s", kind, reason)
		},
	})

	if err := tx.Connect(run.peerAddr); err != nil {
		return err
	}
	if err := rx.Connect(run.senderAddr); err != nil {
		return err
	}

	for i := 0; i < run.count; i++ {
		payload := []byte(fmt.Sprintf("dgram-%03d", i))
		if _, err := sendUntilAccepted(ctx, clock.New(), tx, payload, client.Unreliable, 100, client.DefaultTickInterval); err != nil {
			return err
		}
	}

	err := rx.Run(recvCtx)
	switch {
	case received == run.count:
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("received %d of %d datagrams before timing out", received, run.count)
	case err != nil && !errors.Is(err, context.Canceled):
		return err
	}

	return printSummary(out, run.gatherer, run.backend)
}
