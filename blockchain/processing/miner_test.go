package processing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"powchain/blockchain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// observedLedger reports every Tip call and can fail the first seals
type observedLedger struct {
	*blockchain.Ledger
	tips       chan struct{}
	staleSeals int
}

func (o *observedLedger) Tip() (*blockchain.Block, <-chan struct{}) {
	block, changed := o.Ledger.Tip()
	select {
	case o.tips <- struct{}{}:
	default:
	}
	return block, changed
}

func (o *observedLedger) SealBlock(proof uint64, previousHash string, reward blockchain.Transaction) (*blockchain.Block, error) {
	if o.staleSeals > 0 {
		o.staleSeals--
		return nil, blockchain.ErrStaleProof
	}
	return o.Ledger.SealBlock(proof, previousHash, reward)
}

func newLedger(t *testing.T, difficulty int) *blockchain.Ledger {
	t.Helper()
	pow, err := blockchain.NewProofOfWork(difficulty, blockchain.WithWorkers(2), blockchain.WithChunkSize(256))
	require.NoError(t, err)
	l, err := blockchain.NewLedger(blockchain.WithProofOfWork(pow))
	require.NoError(t, err)
	return l
}

func TestMineNextBlock(t *testing.T) {
	l := newLedger(t, 2)
	_, err := l.SubmitTransaction(blockchain.Transaction{Sender: "A", Recipient: "B", Amount: 5})
	require.NoError(t, err)

	miner := NewMiner(l, "node-1", blockchain.DefaultReward, nil)
	block, stats, err := miner.MineNextBlock(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(2), block.Index)
	require.Len(t, block.Transactions, 2)
	require.Equal(t, blockchain.NewRewardTransaction("node-1", 1), block.Transactions[1])
	require.Equal(t, 1, stats.Attempts)
	require.Zero(t, stats.Stale)
	require.Positive(t, stats.Duration)

	require.Empty(t, l.Pending())
	require.NoError(t, l.ValidateChain(l.Chain()))
}

func TestMineNextBlockRetriesStaleProof(t *testing.T) {
	l := &observedLedger{Ledger: newLedger(t, 2), tips: make(chan struct{}, 8), staleSeals: 1}

	miner := NewMiner(l, "node-1", 1, nil)
	block, stats, err := miner.MineNextBlock(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(2), block.Index)
	require.Equal(t, 2, stats.Attempts)
	require.Equal(t, 1, stats.Stale)
	require.Equal(t, 2, l.Length())
}

func TestMineNextBlockPreemptedByNewTip(t *testing.T) {
	// difficulty 16 never finishes within the test
	l := &observedLedger{Ledger: newLedger(t, blockchain.MaxDifficulty), tips: make(chan struct{}, 8)}
	miner := NewMiner(l, "node-1", 1, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type result struct {
		stats Stats
		err   error
	}
	done := make(chan result, 1)
	go func() {
		_, stats, err := miner.MineNextBlock(ctx)
		done <- result{stats, err}
	}()

	waitTip := func() {
		select {
		case <-l.tips:
		case <-time.After(5 * time.Second):
			t.Fatal("miner did not read the tip")
		}
	}
	waitTip()

	genesis, _ := l.Ledger.Tip()
	longer := []*blockchain.Block{genesis, {
		Index:        2,
		PreviousHash: blockchain.HashBlock(genesis),
		Proof:        1,
		Timestamp:    1,
		Transactions: []blockchain.Transaction{},
	}}
	adopted, err := l.AdoptChain(longer)
	require.NoError(t, err)
	require.True(t, adopted)

	waitTip()
	cancel()

	select {
	case res := <-done:
		require.ErrorIs(t, res.err, context.Canceled)
		require.Equal(t, 2, res.stats.Attempts)
		require.Zero(t, res.stats.Stale)
	case <-time.After(5 * time.Second):
		t.Fatal("miner did not stop after cancellation")
	}
	require.Equal(t, 2, l.Length())
}
