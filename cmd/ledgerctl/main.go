package main

import (
	"os"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	nodeAddr string
	timeout  time.Duration
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Inspect and drive a powchain node over its HTTP API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&nodeAddr, "node", "http://localhost:5000", "node API address")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "request timeout")

	root.AddCommand(
		chainCmd(),
		mineCmd(),
		txCmd(),
		pendingCmd(),
		peersCmd(),
		resolveCmd(),
		curlCmd(),
		botCmd(),
	)
	return root
}

func client() *nodeClient {
	return newNodeClient(nodeAddr, timeout)
}
