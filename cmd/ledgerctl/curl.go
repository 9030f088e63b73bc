package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"powchain/blockchain"
	"powchain/blockchain/processing"
)

// curlCmd writes shell scripts that exercise a node with real data: a few
// transactions and a locally mined candidate chain for POST /nodes/resolve
func curlCmd() *cobra.Command {
	var (
		dir        string
		blocks     int
		difficulty int
	)

	cmd := &cobra.Command{
		Use:   "curl",
		Short: "Generate curl test scripts with real blockchain data",
		RunE: func(cmd *cobra.Command, args []string) error {
			chain, err := prebuiltChain(cmd.Context(), blocks, difficulty)
			if err != nil {
				return err
			}
			return writeCurlScripts(dir, newNodeClient(nodeAddr, timeout).base, chain)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "curl", "output directory")
	cmd.Flags().IntVar(&blocks, "blocks", 3, "blocks to mine after genesis")
	cmd.Flags().IntVar(&difficulty, "difficulty", blockchain.DefaultDifficulty, "difficulty of the target node")
	return cmd
}

func prebuiltChain(ctx context.Context, blocks, difficulty int) ([]*blockchain.Block, error) {
	pow, err := blockchain.NewProofOfWork(difficulty)
	if err != nil {
		return nil, err
	}
	ledger, err := blockchain.NewLedger(blockchain.WithProofOfWork(pow))
	if err != nil {
		return nil, err
	}
	miner := processing.NewMiner(ledger, "ledgerctl", blockchain.DefaultReward, nil)

	spinner, _ := pterm.DefaultSpinner.Start(fmt.Sprintf("Mining %d blocks at difficulty %d...", blocks, difficulty))
	for i := 0; i < blocks; i++ {
		if _, err := ledger.SubmitTransaction(blockchain.Transaction{
			Amount:    uint64(i + 1),
			Recipient: fmt.Sprintf("account-%d", i+1),
			Sender:    fmt.Sprintf("account-%d", i),
		}); err != nil {
			spinner.Fail(err.Error())
			return nil, err
		}
		if _, _, err := miner.MineNextBlock(ctx); err != nil {
			spinner.Fail(err.Error())
			return nil, err
		}
	}
	spinner.Success(fmt.Sprintf("Mined a chain of length %d", ledger.Length()))
	return ledger.Chain(), nil
}

func writeCurlScripts(dir, base string, chain []*blockchain.Block) error {
	var all strings.Builder
	all.WriteString(`#!/bin/bash
echo "=== Submitting transactions and a candidate chain ==="
echo "Make sure your node is running first!"
echo ""

if ! curl -s --connect-timeout 2 --max-time 2 ` + base + `/chain/height > /dev/null; then
    echo "Server not responding at ` + base + `"
    exit 1
fi

`)

	// one script per transaction of the prebuilt chain, reward excluded
	n := 0
	for _, block := range chain[1:] {
		for _, tx := range block.Transactions {
			if tx.IsReward() {
				continue
			}
			n++
			body, err := json.Marshal(tx)
			if err != nil {
				return err
			}
			name := fmt.Sprintf("post_transaction_%d.sh", n)
			script := fmt.Sprintf(`#!/bin/bash
echo "=== POST /transactions/new %d ==="
curl -X POST %s/transactions/new \
  -H "Content-Type: application/json" \
  -d '%s' \
  --max-time 2 \
  --connect-timeout 2 \
  --fail-with-body \
  | jq '.' 2>/dev/null || cat
echo -e "\n"
`, n, base, body)
			if err := writeScript(filepath.Join(dir, name), script); err != nil {
				return err
			}
			pterm.Success.Printfln("Generated: %s", filepath.Join(dir, name))
			fmt.Fprintf(&all, "./%s/%s\n", dir, name)
		}
	}

	candidate, err := json.MarshalIndent(map[string]any{"chains": [][]*blockchain.Block{chain}}, "", "  ")
	if err != nil {
		return err
	}
	resolve := fmt.Sprintf(`#!/bin/bash
echo "=== POST /nodes/resolve with a chain of length %d ==="
echo "Tip hash: %s"
curl -X POST %s/nodes/resolve \
  -H "Content-Type: application/json" \
  -d '%s' \
  --max-time 5 \
  --fail-with-body \
  | jq '{message, replaced, length}' 2>/dev/null || cat
echo -e "\n"
`, len(chain), blockchain.HashBlock(chain[len(chain)-1]), base, candidate)
	if err := writeScript(filepath.Join(dir, "resolve_candidate.sh"), resolve); err != nil {
		return err
	}
	pterm.Success.Printfln("Generated: %s", filepath.Join(dir, "resolve_candidate.sh"))

	fmt.Fprintf(&all, "./%s/resolve_candidate.sh\n", dir)
	fmt.Fprintf(&all, "curl -s %s/chain/height | jq '.' 2>/dev/null || cat\n", base)
	if err := writeScript(filepath.Join(dir, "post_all.sh"), all.String()); err != nil {
		return err
	}
	pterm.Success.Printfln("Generated: %s", filepath.Join(dir, "post_all.sh"))

	pterm.Info.Println("Usage:\n  1. Start a node: go run ./cmd/node\n  2. Run everything: ./" + dir + "/post_all.sh")
	return nil
}

func writeScript(filename, content string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return err
	}
	return os.WriteFile(filename, []byte(content), 0o755)
}
