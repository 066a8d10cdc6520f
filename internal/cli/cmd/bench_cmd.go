package cmd

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/rudransh-shrivastava/dgramsock/internal/transport"
	"github.com/rudransh-shrivastava/dgramsock/internal/transport/udp"
)

func newBenchCmd(opts *rootOptions) *cobra.Command {
	var (
		network string
		count   int
		pps     float64
		size    int
	)

	benchCmd := &cobra.Command{
		Use:   "bench address",
		Short: "send datagrams at a fixed rate",
		Long:  `sends count datagrams of size bytes to address at the given rate and reports how many the socket accepted or dropped`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if count <= 0 || pps <= 0 {
				return fmt.Errorf("--count and --rate must be positive")
			}
			if size < 0 || size > transport.MaxDatagramSize {
				return fmt.Errorf("--size must be between 0 and %d", transport.MaxDatagramSize)
			}

			cfg := transport.DefaultConfig()
			cfg.Logger = opts.log
			sock, err := udp.Dial(network, args[0], cfg)
			if err != nil {
				return err
			}
			defer func() { _ = sock.Close() }()

			reg := prometheus.NewRegistry()
			metrics, err := transport.NewMetrics(reg)
			if err != nil {
				return err
			}
			s := transport.Instrument(sock, backendUDP, metrics)

			limiter := rate.NewLimiter(rate.Limit(pps), 1)
			bar := progressbar.NewOptions(count,
				progressbar.OptionSetWriter(cmd.ErrOrStderr()),
				progressbar.OptionSetDescription("sending"),
				progressbar.OptionShowCount(),
				progressbar.OptionThrottle(100*time.Millisecond),
			)

			payload := make([]byte, size)
			start := time.Now()
			for i := 0; i < count; i++ {
				if err := limiter.Wait(cmd.Context()); err != nil {
					return err
				}
				if _, err := s.SendNonBlocking(payload); err != nil {
					opts.log.Warnf("Send %d failed: %v", i, err)
				}
				_ = bar.Add(1)
			}
			_ = bar.Finish()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n%d datagrams of %d bytes in %s\n", count, size, time.Since(start).Round(time.Millisecond))
			return printSummary(out, reg, backendUDP)
		},
	}
	benchCmd.Flags().StringVar(&network, "network", "udp4", "udp4, udp6 or udp (dual-stack)")
	benchCmd.Flags().IntVar(&count, "count", 1000, "datagrams to send")
	benchCmd.Flags().Float64Var(&pps, "rate", 1000, "datagrams per second")
	benchCmd.Flags().IntVar(&size, "size", 64, "payload size in bytes")
	return benchCmd
}
