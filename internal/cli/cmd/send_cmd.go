package cmd

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/spf13/cobra"

	"github.com/rudransh-shrivastava/dgramsock/internal/client"
	"github.com/rudransh-shrivastava/dgramsock/internal/transport"
	"github.com/rudransh-shrivastava/dgramsock/internal/transport/udp"
)

func newSendCmd(opts *rootOptions) *cobra.Command {
	var (
		local    string
		network  string
		attempts int
		interval time.Duration
		wait     time.Duration
		reliable bool
	)

	sendCmd := &cobra.Command{
		Use:   "send address hex-payload",
		Short: "send one datagram and print the reply",
		Long:  `sends a hex encoded datagram to address, retrying each tick until the socket accepts it, then waits for a reply`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := parseHex(args[1])
			if err != nil {
				return err
			}

			cfg := transport.DefaultConfig()
			cfg.Logger = opts.log

			var sock *udp.Socket
			if local != "" {
				sock, err = udp.Listen(network, local, cfg)
			} else {
				sock, err = udp.New(network, cfg)
			}
			if err != nil {
				return err
			}
			defer func() { _ = sock.Close() }()

			out := cmd.OutOrStdout()
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			clk := clock.New()
			c := client.New(sock, client.Config{
				TickInterval: interval,
				Clock:        clk,
				Logger:       opts.log,
				OnData: func(msg []byte) {
					fmt.Fprintf(out, "reply %s\n", hex.EncodeToString(msg))
					cancel()
				},
				OnError: func(kind transport.ErrorKind, reason string) {
					opts.log.Warnf("Client error %s: %s", kind, reason)
				},
			})
			defer func() { _ = c.Disconnect() }()

			remote, err := resolveUDP(network, args[0])
			if err != nil {
				return err
			}
			if err := c.Connect(remote); err != nil {
				return err
			}

			ch := client.Unreliable
			if reliable {
				ch = client.Reliable
			}
			n, err := sendUntilAccepted(ctx, clk, c, payload, ch, attempts, interval)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "sent %d bytes to %s after %d attempt(s)\n", len(payload), remote, n)

			if wait <= 0 {
				return nil
			}
			waitCtx, stop := context.WithTimeout(ctx, wait)
			defer stop()
			if err := c.Run(waitCtx); errors.Is(err, context.DeadlineExceeded) {
				fmt.Fprintln(out, "no reply")
			}
			return nil
		},
	}
	sendCmd.Flags().StringVar(&local, "local", "", "local address to bind before sending")
	sendCmd.Flags().StringVar(&network, "network", "udp4", "udp4, udp6 or udp (dual-stack)")
	sendCmd.Flags().IntVar(&attempts, "attempts", 100, "ticks to retry a datagram the socket is not ready for")
	sendCmd.Flags().DurationVar(&interval, "tick", client.DefaultTickInterval, "tick interval")
	sendCmd.Flags().DurationVar(&wait, "wait", time.Second, "how long to wait for a reply; 0 disables")
	sendCmd.Flags().BoolVar(&reliable, "reliable", false, "label the datagram for the reliable channel")
	return sendCmd
}

// sendUntilAccepted offers payload once per interval until the socket takes
// it. It returns the number of attempts used.
func sendUntilAccepted(ctx context.Context, clk clock.Clock, c *client.Client, payload []byte, ch client.Channel, attempts int, interval time.Duration) (int, error) {
	for attempt := 1; attempt <= attempts; attempt++ {
		if c.Send(payload, ch) {
			return attempt, nil
		}
		select {
		case <-ctx.Done():
			return attempt, ctx.Err()
		case <-clk.After(interval):
		}
	}
	return attempts, fmt.Errorf("datagram not accepted after %d attempts", attempts)
}

func parseHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.ReplaceAll(s, " ", ""), "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("payload %q is not hex: %w", s, err)
	}
	return b, nil
}
