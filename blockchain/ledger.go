package blockchain

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Persister receives every chain mutation before it is committed in memory.
// Implementations live in blockchain/store.
type Persister interface {
	AppendBlock(block *Block) error
	ReplaceChain(chain []*Block) error
}

// Ledger owns the chain and the pending pool. A single RWMutex guards both;
// it is only held for the short mutation steps, never while mining or while
// validating a candidate chain.
type Ledger struct {
	mu     sync.RWMutex
	chain  []*Block
	pool   *Pool
	tip    chan struct{} // closed whenever the last block changes
	pow    *ProofOfWork
	hasher Hasher
	store  Persister
	clock  func() time.Time
	log    *zap.Logger
}

type Option func(*Ledger)

func WithProofOfWork(pow *ProofOfWork) Option {
	return func(l *Ledger) { l.pow = pow }
}

func WithHasher(h Hasher) Option {
	return func(l *Ledger) { l.hasher = h }
}

func WithPersister(p Persister) Option {
	return func(l *Ledger) { l.store = p }
}

func WithClock(clock func() time.Time) Option {
	return func(l *Ledger) { l.clock = clock }
}

func WithLogger(log *zap.Logger) Option {
	return func(l *Ledger) { l.log = log }
}

// NewLedger creates a ledger holding only the genesis block. The genesis
// block is not handed to the persister; callers seed an empty store with
// Chain() before sealing.
func NewLedger(opts ...Option) (*Ledger, error) {
	l := &Ledger{
		pool:  NewPool(),
		tip:   make(chan struct{}),
		clock: time.Now,
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.pow == nil {
		pow, err := NewProofOfWork(DefaultDifficulty, WithPowHasher(l.hasher))
		if err != nil {
			return nil, err
		}
		l.pow = pow
	}
	l.log = l.log.With(zap.String("component", "ledger"))
	l.chain = []*Block{NewGenesisBlock()}
	return l, nil
}

func (l *Ledger) ProofOfWork() *ProofOfWork { return l.pow }

func (l *Ledger) Hasher() Hasher { return l.hasher }

// Restore installs a chain loaded from storage. The chain must start at
// genesis and pass validation; otherwise the ledger is left untouched.
func (l *Ledger) Restore(chain []*Block) error {
	if len(chain) == 0 {
		return nil
	}
	if err := l.ValidateChain(chain); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.chain = CloneChain(chain)
	l.signalLocked()
	l.log.Info("restored chain", zap.Int("length", len(l.chain)))
	return nil
}

// SubmitTransaction queues tx for the next block and returns the index that
// block is expected to get. The index is a hint: other blocks may be sealed
// or adopted first.
func (l *Ledger) SubmitTransaction(tx Transaction) (uint64, error) {
	if err := tx.Validate(); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pool.Add(tx)
	return uint64(len(l.chain)) + 1, nil
}

// NewBlock seals the pending pool into a block carrying proof and appends it.
// An empty previousHash defaults to the digest of the current last block.
func (l *Ledger) NewBlock(proof uint64, previousHash string) (*Block, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.newBlockLocked(proof, previousHash)
}

// SealBlock appends a block for a proof mined against the block whose digest
// is previousHash, adding reward after the pending transactions. It returns
// ErrStaleProof if the tip moved since the search started.
func (l *Ledger) SealBlock(proof uint64, previousHash string, reward Transaction) (*Block, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	last := l.chain[len(l.chain)-1]
	if l.hasher.HashBlock(last) != previousHash || !l.pow.ValidProof(last.Proof, proof) {
		return nil, ErrStaleProof
	}

	l.pool.Add(reward)
	block, err := l.newBlockLocked(proof, previousHash)
	if err != nil {
		// drop the reward again so a failed seal leaves the pool as it was
		pending := l.pool.Drain()
		for _, tx := range pending[:len(pending)-1] {
			l.pool.Add(tx)
		}
		return nil, err
	}
	return block, nil
}

func (l *Ledger) newBlockLocked(proof uint64, previousHash string) (*Block, error) {
	if len(l.chain) == 0 {
		return nil, ErrEmptyChain
	}
	block := ForgeBlock(BlockCreationParams{
		Previous:     l.chain[len(l.chain)-1],
		PreviousHash: previousHash,
		Proof:        proof,
		Transactions: l.pool.Pending(),
		Timestamp:    l.clock(),
	}, l.hasher)

	if l.store != nil {
		if err := l.store.AppendBlock(block); err != nil {
			return nil, fmt.Errorf("persist block %d: %w", block.Index, err)
		}
	}

	l.pool.Drain()
	l.chain = append(l.chain, block)
	l.signalLocked()

	l.log.Debug("sealed block",
		zap.Uint64("index", block.Index),
		zap.Uint64("proof", block.Proof),
		zap.Int("transactions", len(block.Transactions)),
	)
	return block.Clone(), nil
}

// LastBlock returns a copy of the last block of the chain
func (l *Ledger) LastBlock() (*Block, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.chain) == 0 {
		return nil, ErrEmptyChain
	}
	return l.chain[len(l.chain)-1].Clone(), nil
}

// Tip returns the last block and a channel that is closed as soon as the last
// block changes, either by sealing or by adopting another chain.
func (l *Ledger) Tip() (*Block, <-chan struct{}) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.chain[len(l.chain)-1].Clone(), l.tip
}

// Chain returns a deep copy of the chain
func (l *Ledger) Chain() []*Block {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return CloneChain(l.chain)
}

func (l *Ledger) Length() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.chain)
}

// Pending returns a copy of the transactions waiting for the next block
func (l *Ledger) Pending() []Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.pool.Pending()
}

// BlockByHash looks a block up by its hex digest
func (l *Ledger) BlockByHash(digest string) (*Block, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, b := range l.chain {
		if l.hasher.HashBlock(b) == digest {
			return b.Clone(), true
		}
	}
	return nil, false
}

// ValidateChain checks linkage, proofs and block shape of chain. It returns
// an ErrInvalidChain describing the first offending block.
func (l *Ledger) ValidateChain(chain []*Block) error {
	return validateChain(chain, l.pow, l.hasher)
}

func (l *Ledger) IsValidChain(chain []*Block) bool {
	return l.ValidateChain(chain) == nil
}

// AdoptChain replaces the local chain with chain if it is strictly longer
// than the local one at the time of the swap. The caller must have validated
// chain. The pending pool is kept.
func (l *Ledger) AdoptChain(chain []*Block) (bool, error) {
	adopted := CloneChain(chain)

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(adopted) <= len(l.chain) {
		return false, nil
	}
	if l.store != nil {
		if err := l.store.ReplaceChain(adopted); err != nil {
			return false, fmt.Errorf("persist adopted chain: %w", err)
		}
	}
	previous := len(l.chain)
	l.chain = adopted
	l.signalLocked()

	l.log.Info("adopted chain",
		zap.Int("previous_length", previous),
		zap.Int("length", len(adopted)),
	)
	return true, nil
}

func (l *Ledger) signalLocked() {
	close(l.tip)
	l.tip = make(chan struct{})
}
