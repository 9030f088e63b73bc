package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"powchain/p2p"
)

// botCmd drives one or more nodes with random traffic: every round it submits
// a few transfers to a node, mines, and asks the node to resolve with its peers
func botCmd() *cobra.Command {
	var (
		nodes       []string
		minInterval time.Duration
		maxInterval time.Duration
		perRound    int
		accounts    int
	)

	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Generate random transactions and mine blocks until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(nodes) == 0 {
				nodes = []string{nodeAddr}
			}
			if maxInterval < minInterval {
				return fmt.Errorf("--max-interval must not be below --min-interval")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			b := &bot{accounts: accounts, perRound: perRound}
			for _, addr := range nodes {
				b.clients = append(b.clients, newNodeClient(addr, timeout))
			}
			return b.run(ctx, minInterval, maxInterval)
		},
	}
	cmd.Flags().StringSliceVar(&nodes, "nodes", nil, "node API addresses to drive (default --node)")
	cmd.Flags().DurationVar(&minInterval, "min-interval", 10*time.Second, "shortest pause between rounds")
	cmd.Flags().DurationVar(&maxInterval, "max-interval", 2*time.Minute, "longest pause between rounds")
	cmd.Flags().IntVar(&perRound, "transactions", 3, "transactions submitted per round")
	cmd.Flags().IntVar(&accounts, "accounts", 5, "size of the simulated account set")
	return cmd
}

type bot struct {
	clients  []*nodeClient
	accounts int
	perRound int
	round    int
}

func (b *bot) run(ctx context.Context, minInterval, maxInterval time.Duration) error {
	for {
		wait := minInterval + randomDuration(maxInterval-minInterval)
		target := b.clients[b.round%len(b.clients)]
		pterm.Info.Printfln("Next round on %s in %s", target.base, wait.Round(time.Second))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}

		if err := b.playRound(ctx, target); err != nil {
			pterm.Warning.Printfln("Round on %s failed: %v", target.base, err)
		}
		b.round++
	}
}

func (b *bot) playRound(ctx context.Context, c *nodeClient) error {
	for i := 0; i < b.perRound; i++ {
		from, to := randomInt(b.accounts), randomInt(b.accounts)
		sender, recipient := fmt.Sprintf("account-%d", from), fmt.Sprintf("account-%d", to)
		amount := uint64(randomInt(100) + 1)

		req := p2p.TransactionRequest{Sender: &sender, Recipient: &recipient, Amount: &amount}
		if err := c.post(ctx, "/transactions/new", req, nil); err != nil {
			return err
		}
	}

	var mined p2p.MineResponse
	if err := c.get(ctx, "/mine", &mined); err != nil {
		return err
	}
	pterm.Success.Printfln("%s mined block %d with %d transactions", c.base, mined.Index, len(mined.Transactions))

	var resolved p2p.ResolveResponse
	if err := c.get(ctx, "/nodes/resolve", &resolved); err != nil {
		return err
	}
	if resolved.Replaced {
		pterm.Warning.Printfln("%s adopted a longer chain (length %d)", c.base, resolved.Length)
	}
	return nil
}

func randomInt(n int) int {
	if n <= 0 {
		return 0
	}
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

func randomDuration(span time.Duration) time.Duration {
	if span <= 0 {
		return 0
	}
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(span)))
	return time.Duration(v.Int64())
}
