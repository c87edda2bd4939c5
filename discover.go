package main

import (
	"fmt"
	"net"
	"strconv"
	"time"

	lnet "ChatDraw/internal/net"

	"github.com/spf13/cobra"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Lists sessions advertised on the local network.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		timeout, _ := cmd.Flags().GetDuration("timeout")
		out := cmd.OutOrStdout()
		found := 0
		err := lnet.Browse(cmd.Context(), timeout, func(p lnet.Peer) {
			found++
			host, port, _ := net.SplitHostPort(p.Addr)
			n, _ := strconv.Atoi(port)
			fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", p.Instance, lnet.ShareLink(host, n), p.Transport, p.ID)
		})
		if err != nil {
			return err
		}
		if found == 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), "No sessions found.")
		}
		return nil
	},
}

func init() {
	discoverCmd.Flags().Duration("timeout", 3*time.Second, "how long to listen for answers")
}
