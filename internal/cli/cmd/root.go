package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rudransh-shrivastava/dgramsock/internal/logger"
)

type rootOptions struct {
	logLevel string
	log      *logrus.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{log: logger.NewLogger()}

	rootCmd := &cobra.Command{
		Use:           `dgramctl`,
		Long:          `dgramctl exercises non-blocking datagram sockets over UDP, an event-driven UDP host and WebRTC data channels`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(opts.logLevel)
			if err != nil {
				return err
			}
			opts.log.SetLevel(level)
			opts.log.SetOutput(cmd.ErrOrStderr())
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(newSendCmd(opts))
	rootCmd.AddCommand(newListenCmd(opts))
	rootCmd.AddCommand(newBenchCmd(opts))
	rootCmd.AddCommand(newLoopbackCmd(opts))
	rootCmd.AddCommand(newInspectCmd(opts))
	return rootCmd
}

func Execute() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		logger.NewLogger().Error(err)
		os.Exit(1)
	}
}
