package cmd

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rudransh-shrivastava/dgramsock/internal/capture"
)

func newInspectCmd(opts *rootOptions) *cobra.Command {
	var session string

	inspectCmd := &cobra.Command{
		Use:   "inspect capture-file",
		Short: "show a recorded capture",
		Long:  `lists the sessions in a capture file written by listen --record, or the datagrams of one session`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := capture.Open(args[0], opts.log)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer func() { _ = sqlDB.Close() }()
			}

			out := cmd.OutOrStdout()
			if session == "" {
				sessions, err := capture.Sessions(cmd.Context(), db)
				if err != nil {
					return err
				}
				for _, s := range sessions {
					fmt.Fprintln(out, s)
				}
				return nil
			}

			datagrams, err := capture.List(cmd.Context(), db, session)
			if err != nil {
				return err
			}
			for _, d := range datagrams {
				fmt.Fprintf(out, "%s %-3s %-21s %5d %s\n",
					d.CapturedAt.Format(time.RFC3339Nano), d.Direction, d.Peer, d.Size, hex.EncodeToString(d.Payload))
			}
			return nil
		},
	}
	inspectCmd.Flags().StringVar(&session, "session", "", "session id to print")
	return inspectCmd
}
