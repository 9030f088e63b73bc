package blockchain

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// newTestLedger uses a low difficulty so tests can mine several blocks quickly
func newTestLedger(t *testing.T, difficulty int, opts ...Option) *Ledger {
	t.Helper()
	pow, err := NewProofOfWork(difficulty, WithWorkers(2), WithChunkSize(256))
	require.NoError(t, err)
	l, err := NewLedger(append([]Option{WithProofOfWork(pow)}, opts...)...)
	require.NoError(t, err)
	return l
}

func mineBlocks(t *testing.T, l *Ledger, n int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for i := 0; i < n; i++ {
		last, err := l.LastBlock()
		require.NoError(t, err)
		proof, err := l.ProofOfWork().Mine(ctx, last.Proof)
		require.NoError(t, err)
		_, err = l.NewBlock(proof, "")
		require.NoError(t, err)
	}
}
