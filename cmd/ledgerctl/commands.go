package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"powchain/blockchain"
	"powchain/p2p"
)

func chainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chain",
		Short: "Show the node's chain",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp p2p.ChainResponse
			if err := client().get(cmd.Context(), "/chain", &resp); err != nil {
				return err
			}

			data := pterm.TableData{{"Index", "Hash", "Previous", "Proof", "Time", "Txs"}}
			for _, b := range resp.Chain {
				data = append(data, []string{
					strconv.FormatUint(b.Index, 10),
					short(blockchain.HashBlock(b)),
					short(b.PreviousHash),
					strconv.FormatUint(b.Proof, 10),
					time.UnixMilli(b.Timestamp).UTC().Format(time.RFC3339),
					strconv.Itoa(len(b.Transactions)),
				})
			}
			if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
				return err
			}
			pterm.Info.Printfln("Chain length: %d", resp.Length)
			return nil
		},
	}
}

func mineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mine",
		Short: "Mine the next block",
		RunE: func(cmd *cobra.Command, args []string) error {
			spinner, _ := pterm.DefaultSpinner.Start("Mining...")
			var resp p2p.MineResponse
			if err := client().get(cmd.Context(), "/mine", &resp); err != nil {
				spinner.Fail(err.Error())
				return err
			}
			spinner.Success(fmt.Sprintf("%s: block %d, proof %d, %d transactions",
				resp.Message, resp.Index, resp.Proof, len(resp.Transactions)))
			return nil
		},
	}
}

func txCmd() *cobra.Command {
	var sender, recipient string
	var amount uint64

	cmd := &cobra.Command{
		Use:   "tx",
		Short: "Submit a transaction",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := p2p.TransactionRequest{Sender: &sender, Recipient: &recipient, Amount: &amount}
			if _, err := req.Transaction(); err != nil {
				return err
			}
			var resp p2p.TransactionResponse
			if err := client().post(cmd.Context(), "/transactions/new", req, &resp); err != nil {
				return err
			}
			pterm.Success.Println(resp.Message)
			return nil
		},
	}
	cmd.Flags().StringVar(&sender, "from", "", "sender")
	cmd.Flags().StringVar(&recipient, "to", "", "recipient")
	cmd.Flags().Uint64Var(&amount, "amount", 0, "amount")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func pendingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List transactions waiting for the next block",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp p2p.PendingResponse
			if err := client().get(cmd.Context(), "/transactions/pending", &resp); err != nil {
				return err
			}
			data := pterm.TableData{{"Sender", "Recipient", "Amount"}}
			for _, tx := range resp.Transactions {
				data = append(data, []string{tx.Sender, tx.Recipient, strconv.FormatUint(tx.Amount, 10)})
			}
			if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
				return err
			}
			pterm.Info.Printfln("%d pending", resp.Count)
			return nil
		},
	}
}

func peersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "peers",
		Short: "List registered peers",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp p2p.NodesResponse
			if err := client().get(cmd.Context(), "/nodes", &resp); err != nil {
				return err
			}
			data := pterm.TableData{{"Address", "Status", "Last seen"}}
			for _, p := range resp.Nodes {
				seen := "-"
				if !p.LastSeen.IsZero() {
					seen = p.LastSeen.Format(time.RFC3339)
				}
				data = append(data, []string{p.URL(), p.Status.String(), seen})
			}
			return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add ADDRESS...",
		Short: "Register peers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp p2p.RegisterNodesResponse
			if err := client().post(cmd.Context(), "/nodes/register", p2p.RegisterNodesRequest{Nodes: args}, &resp); err != nil {
				return err
			}
			pterm.Success.Printfln("%s (%d added, %d total)", resp.Message, resp.Added, len(resp.TotalNodes))
			return nil
		},
	})
	return cmd
}

func resolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve",
		Short: "Run a consensus round against the registered peers",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp p2p.ResolveResponse
			if err := client().get(cmd.Context(), "/nodes/resolve", &resp); err != nil {
				return err
			}
			if resp.Replaced {
				pterm.Warning.Printfln("%s (length %d)", resp.Message, resp.Length)
			} else {
				pterm.Success.Printfln("%s (length %d)", resp.Message, resp.Length)
			}
			if resp.Rejected > 0 {
				pterm.Info.Printfln("%d candidate chains rejected", resp.Rejected)
			}
			return nil
		},
	}
}

func short(digest string) string {
	if len(digest) > 16 {
		return digest[:16]
	}
	return digest
}
