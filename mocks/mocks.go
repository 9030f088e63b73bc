package mocks

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"powchain/blockchain"
)

// Difficulty keeps fixtures fast to mine
const Difficulty = 2

// NewProofOfWork returns the engine every fixture chain is mined with
func NewProofOfWork(t testing.TB) *blockchain.ProofOfWork {
	t.Helper()
	pow, err := blockchain.NewProofOfWork(Difficulty, blockchain.WithChunkSize(256))
	require.NoError(t, err)
	return pow
}

// NewLedger creates a genesis-only ledger at fixture difficulty
func NewLedger(t testing.TB, opts ...blockchain.Option) *blockchain.Ledger {
	t.Helper()
	l, err := blockchain.NewLedger(append([]blockchain.Option{blockchain.WithProofOfWork(NewProofOfWork(t))}, opts...)...)
	require.NoError(t, err)
	return l
}

// NewNodeID returns an identifier shaped like a node's reward recipient
func NewNodeID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// GenerateTransaction creates a transfer between two fresh accounts
func GenerateTransaction(amount uint64) blockchain.Transaction {
	return blockchain.Transaction{
		Amount:    amount,
		Recipient: NewNodeID(),
		Sender:    NewNodeID(),
	}
}

// GenerateValidMinedBlock mines the successor of the ledger's last block,
// rewarding miner, and seals it into the ledger
func GenerateValidMinedBlock(t testing.TB, l *blockchain.Ledger, miner string) *blockchain.Block {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	last, _ := l.Tip()
	proof, err := l.ProofOfWork().Mine(ctx, last.Proof)
	require.NoError(t, err)

	block, err := l.SealBlock(proof, l.Hasher().HashBlock(last), blockchain.NewRewardTransaction(miner, blockchain.DefaultReward))
	require.NoError(t, err)
	return block
}

// MineBlocks appends n mined blocks, each rewarding a different miner so that
// independently built chains never coincide
func MineBlocks(t testing.TB, l *blockchain.Ledger, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		GenerateValidMinedBlock(t, l, NewNodeID())
	}
}

// BuildChain returns a valid chain of the given length, genesis included
func BuildChain(t testing.TB, length int) []*blockchain.Block {
	t.Helper()
	l := NewLedger(t)
	MineBlocks(t, l, length-1)
	return l.Chain()
}

// GenerateInvalidBlock creates a successor of the last block that links
// correctly but carries a proof that fails the difficulty check
func GenerateInvalidBlock(l *blockchain.Ledger) *blockchain.Block {
	last, _ := l.Tip()
	proof := uint64(0)
	for l.ProofOfWork().ValidProof(last.Proof, proof) {
		proof++
	}
	return blockchain.ForgeBlock(blockchain.BlockCreationParams{
		Previous: last,
		Proof:    proof,
	}, l.Hasher())
}

// TamperPreviousHash breaks the link of the block at 1-based index
func TamperPreviousHash(chain []*blockchain.Block, index int) {
	chain[index-1].PreviousHash = strings.Repeat("0", 64)
}
