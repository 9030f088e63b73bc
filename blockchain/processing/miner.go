package processing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"powchain/blockchain"
)

// Ledger is the part of blockchain.Ledger the miner needs
type Ledger interface {
	Tip() (*blockchain.Block, <-chan struct{})
	Hasher() blockchain.Hasher
	ProofOfWork() *blockchain.ProofOfWork
	SealBlock(proof uint64, previousHash string, reward blockchain.Transaction) (*blockchain.Block, error)
}

// Stats describes one MineNextBlock call
type Stats struct {
	Duration time.Duration
	Attempts int // searches started, including preempted and stale ones
	Stale    int // proofs discarded because the tip moved
}

// Miner runs the proof search outside the ledger lock and seals the result.
// A search is preempted when the tip changes under it and restarted against
// the new tip.
type Miner struct {
	ledger    Ledger
	recipient string
	reward    uint64
	log       *zap.Logger
}

func NewMiner(ledger Ledger, recipient string, reward uint64, log *zap.Logger) *Miner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Miner{
		ledger:    ledger,
		recipient: recipient,
		reward:    reward,
		log:       log.With(zap.String("component", "miner")),
	}
}

// MineNextBlock mines and seals one block. The block holds every pending
// transaction followed by the reward transaction.
func (m *Miner) MineNextBlock(ctx context.Context) (_ *blockchain.Block, stats Stats, _ error) {
	start := time.Now()
	defer func() { stats.Duration = time.Since(start) }()

	for {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}
		stats.Attempts++

		last, changed := m.ledger.Tip()
		previousHash := m.ledger.Hasher().HashBlock(last)

		proof, err := m.search(ctx, last.Proof, changed)
		if errors.Is(err, errPreempted) {
			m.log.Debug("tip changed during search, restarting", zap.Uint64("tip", last.Index))
			continue
		}
		if err != nil {
			return nil, stats, fmt.Errorf("mine on block %d: %w", last.Index, err)
		}

		block, err := m.ledger.SealBlock(proof, previousHash, blockchain.NewRewardTransaction(m.recipient, m.reward))
		if errors.Is(err, blockchain.ErrStaleProof) {
			stats.Stale++
			m.log.Info("discarding stale proof", zap.Uint64("proof", proof), zap.Uint64("tip", last.Index))
			continue
		}
		if err != nil {
			return nil, stats, err
		}

		m.log.Info("mined block",
			zap.Uint64("index", block.Index),
			zap.Uint64("proof", block.Proof),
			zap.Int("transactions", len(block.Transactions)),
			zap.Duration("elapsed", time.Since(start)),
		)
		return block, stats, nil
	}
}

var errPreempted = errors.New("search preempted")

func (m *Miner) search(ctx context.Context, lastProof uint64, changed <-chan struct{}) (uint64, error) {
	sctx, cancel := context.WithCancel(ctx)
	defer cancel()

	preempted := make(chan struct{})
	go func() {
		select {
		case <-changed:
			close(preempted)
			cancel()
		case <-sctx.Done():
		}
	}()

	proof, err := m.ledger.ProofOfWork().Mine(sctx, lastProof)
	if err != nil {
		select {
		case <-preempted:
			return 0, errPreempted
		default:
		}
		return 0, err
	}
	return proof, nil
}
