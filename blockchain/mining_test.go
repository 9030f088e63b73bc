package blockchain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewProofOfWorkDifficultyRange(t *testing.T) {
	_, err := NewProofOfWork(0)
	require.Error(t, err)
	_, err = NewProofOfWork(MaxDifficulty + 1)
	require.Error(t, err)

	pow, err := NewProofOfWork(DefaultDifficulty)
	require.NoError(t, err)
	require.Equal(t, 4, pow.Difficulty())
}

func TestMineProducesValidProof(t *testing.T) {
	pow, err := NewProofOfWork(DefaultDifficulty)
	require.NoError(t, err)

	for _, last := range []uint64{0, 1, GenesisProof, 35293} {
		proof, err := pow.Mine(context.Background(), last)
		require.NoError(t, err)
		require.True(t, pow.ValidProof(last, proof), "last=%d proof=%d", last, proof)
	}
}

func TestValidProofReference(t *testing.T) {
	pow, err := NewProofOfWork(DefaultDifficulty)
	require.NoError(t, err)

	// sha256("10035293") starts with "0000"
	require.True(t, pow.ValidProof(100, 35293))
	require.False(t, pow.ValidProof(100, 35292))
}

func TestParallelSearchMatchesSequential(t *testing.T) {
	sequential, err := NewProofOfWork(3, WithWorkers(1), WithChunkSize(1<<20))
	require.NoError(t, err)
	parallel, err := NewProofOfWork(3, WithWorkers(8), WithChunkSize(64))
	require.NoError(t, err)

	for _, last := range []uint64{7, GenesisProof, 99999} {
		want, err := sequential.Mine(context.Background(), last)
		require.NoError(t, err)
		got, err := parallel.Mine(context.Background(), last)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestMineFromResumes(t *testing.T) {
	pow, err := NewProofOfWork(2, WithWorkers(1))
	require.NoError(t, err)

	first, err := pow.Mine(context.Background(), GenesisProof)
	require.NoError(t, err)
	next, err := pow.MineFrom(context.Background(), GenesisProof, first+1)
	require.NoError(t, err)
	require.Greater(t, next, first)
	require.True(t, pow.ValidProof(GenesisProof, next))
}

func TestMineCancelled(t *testing.T) {
	pow, err := NewProofOfWork(MaxDifficulty)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = pow.Mine(ctx, GenesisProof)
	require.ErrorIs(t, err, context.Canceled)
}

func TestSearchEmptyRange(t *testing.T) {
	pow, err := NewProofOfWork(MaxDifficulty)
	require.NoError(t, err)

	_, found, err := pow.Search(context.Background(), GenesisProof, 0, 10)
	require.NoError(t, err)
	require.False(t, found)
}
