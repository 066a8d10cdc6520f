package cmd

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/rudransh-shrivastava/dgramsock/internal/capture"
	"github.com/rudransh-shrivastava/dgramsock/internal/client"
	"github.com/rudransh-shrivastava/dgramsock/internal/transport"
	"github.com/rudransh-shrivastava/dgramsock/internal/transport/udp"
)

const backendLabel = "udp"

func newListenCmd(opts *rootOptions) *cobra.Command {
	var (
		network     string
		peer        string
		echo        bool
		record      string
		metricsAddr string
		count       int
		interval    time.Duration
	)

	listenCmd := &cobra.Command{
		Use:   "listen address",
		Short: "print datagrams arriving on address",
		Long:  `binds a socket on address and prints every datagram it drains each tick, optionally recording them and echoing them back to a fixed peer`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if echo && peer == "" {
				return errors.New("--echo needs --peer: a socket only sends to the peer it is connected to")
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			log := opts.log
			out := cmd.OutOrStdout()

			cfg := transport.DefaultConfig()
			cfg.Logger = log
			cfg.OnEvent = func(e transport.Event) {
				log.Warnf("Socket event %s: %s", e.Kind, e.Reason)
			}
			sock, err := udp.Listen(network, args[0], cfg)
			if err != nil {
				return err
			}
			defer func() { _ = sock.Close() }()
			laddr, _ := sock.LocalAddr()

			reg := prometheus.NewRegistry()
			metrics, err := transport.NewMetrics(reg)
			if err != nil {
				return err
			}
			instrumented := transport.Instrument(sock, backendLabel, metrics)

			if metricsAddr != "" {
				srv := serveMetrics(metricsAddr, reg, opts)
				defer func() { _ = srv.Close() }()
			}

			var rec *capture.Recorder
			if record != "" {
				var db *gorm.DB
				if db, err = capture.Open(record, log); err != nil {
					return err
				}
				if sqlDB, err := db.DB(); err == nil {
					defer func() { _ = sqlDB.Close() }()
				}
				rec = capture.NewRecorder(db, nil)
				log.Infof("Recording session %s to %s", rec.Session(), record)
			}

			source := peer
			if source == "" {
				source = "any"
			}
			seen := 0
			var c *client.Client
			c = client.New(instrumented, client.Config{
				TickInterval: interval,
				Logger:       log,
				OnData: func(msg []byte) {
					// the tick that reaches count may still be draining
					if count > 0 && seen >= count {
						return
					}
					seen++
					fmt.Fprintf(out, "%s %s\n", hex.EncodeToString(msg), printable(msg))
					if rec != nil {
						if err := rec.Record(ctx, capture.Inbound, source, msg); err != nil {
							log.Errorf("Failed to record datagram: %v", err)
						}
					}
					if echo && c.Send(msg, client.Unreliable) && rec != nil {
						if err := rec.Record(ctx, capture.Outbound, peer, msg); err != nil {
							log.Errorf("Failed to record datagram: %v", err)
						}
					}
					if count > 0 && seen >= count {
						cancel()
					}
				},
				OnError: func(kind transport.ErrorKind, reason string) {
					log.Warnf("Listener error %s: %s", kind, reason)
				},
			})
			defer func() { _ = c.Disconnect() }()

			if peer != "" {
				remote, err := resolveUDP(network, peer)
				if err != nil {
					return err
				}
				if err := c.Connect(remote); err != nil {
					return err
				}
			} else {
				c.Listen()
			}
			log.Infof("Listening on %s", laddr)

			if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return printSummary(out, reg, backendLabel)
		},
	}
	listenCmd.Flags().StringVar(&network, "network", "udp4", "udp4, udp6 or udp (dual-stack)")
	listenCmd.Flags().StringVar(&peer, "peer", "", "only accept datagrams from this address")
	listenCmd.Flags().BoolVar(&echo, "echo", false, "send every datagram back to --peer")
	listenCmd.Flags().StringVar(&record, "record", "", "record datagrams into this sqlite file")
	listenCmd.Flags().StringVar(&metricsAddr, "metrics", "", "serve prometheus metrics on this address")
	listenCmd.Flags().IntVar(&count, "count", 0, "exit after this many datagrams; 0 runs until interrupted")
	listenCmd.Flags().DurationVar(&interval, "tick", client.DefaultTickInterval, "tick interval")
	return listenCmd
}

func serveMetrics(addr string, reg *prometheus.Registry, opts *rootOptions) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			opts.log.Errorf("Metrics server failed: %v", err)
		}
	}()
	opts.log.Infof("Serving metrics on http://%s/metrics", addr)
	return srv
}

func printable(b []byte) string {
	r := make([]byte, len(b))
	for i, c := range b {
		if c < 0x20 || c > 0x7e {
			c = '.'
		}
		r[i] = c
	}
	return string(r)
}
